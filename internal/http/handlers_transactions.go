package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"kosh/internal/core"
	"kosh/internal/storage"
)

type createTransactionRequest struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
}

type importRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := userIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	filter := storage.TransactionFilter{
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
		Month:    r.URL.Query().Get("month"),
	}
	txs, err := s.transactions.List(ctx, userID, filter)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := userIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	date, err := parseDateValue(req.Date)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	saved, err := s.transactions.Create(ctx, core.Transaction{
		UserID:      userID,
		Date:        date,
		Description: req.Description,
		Category:    req.Category,
		Amount:      req.Amount,
		Type:        core.TransactionType(req.Type),
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := userIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := s.transactions.Delete(ctx, userID, id); err != nil {
		writeError(ctx, w, err)
		return
	}
	s.invalidateUser(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleImportTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := userIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	dryRun := r.URL.Query().Get("dry_run") == "true"

	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	parsed, err := s.transactions.Import(ctx, userID, req.Text, dryRun)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if !dryRun {
		s.invalidateUser(userID)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dry_run":      dryRun,
		"transactions": parsed,
	})
}

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := userIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	month, err := monthParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	breakdown, err := s.transactions.CategoryBreakdown(ctx, userID, month)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}
