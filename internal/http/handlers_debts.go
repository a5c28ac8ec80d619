package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"kosh/internal/core"
)

type createDebtRequest struct {
	FriendName  string          `json:"friend_name"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
}

type settleDebtRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := userIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	overview, err := s.debts.Overview(ctx, userID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := userIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req createDebtRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	date, err := parseDateValue(req.Date)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	debt, err := s.debts.Create(ctx, core.Debt{
		UserID:      userID,
		FriendName:  req.FriendName,
		Type:        core.DebtDirection(req.Type),
		Amount:      req.Amount,
		Description: req.Description,
		Date:        date,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusCreated, debt)
}

// handleSettleDebt applies a payment. Paying the full outstanding
// amount settles the debt; anything less leaves it partially paid.
func (s *Server) handleSettleDebt(w http.ResponseWriter, r *http.Request) {
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

	var req settleDebtRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	debt, err := s.debts.Settle(ctx, id, req.Amount)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, debt)
}

func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
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

	if err := s.debts.Delete(ctx, userID, id); err != nil {
		writeError(ctx, w, err)
		return
	}
	s.invalidateUser(userID)
	w.WriteHeader(http.StatusNoContent)
}
