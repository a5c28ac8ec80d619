package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"kosh/internal/core"
)

type configureBudgetRequest struct {
	MonthlyIncome decimal.Decimal `json:"monthly_income"`
	TargetSavings decimal.Decimal `json:"target_savings"`
	AIMode        bool            `json:"ai_mode"`
}

type sweepRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := userIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	date, err := dateParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	key := snapshotKey(userID, core.DayKey(date))
	if snap, ok := s.snapshotCache.Get(key); ok {
		writeJSON(w, http.StatusOK, snap)
		return
	}

	snap, err := s.budget.Snapshot(ctx, userID, date)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	s.snapshotCache.Set(key, snap)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleConfigureBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := userIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req configureBudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := s.budget.Configure(ctx, userID, req.MonthlyIncome, req.TargetSavings, req.AIMode); err != nil {
		writeError(ctx, w, err)
		return
	}
	s.invalidateUser(userID)

	snap, err := s.budget.Snapshot(ctx, userID, timeNow())
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := userIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	date, err := dateParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req sweepRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	snap, err := s.budget.Sweep(ctx, userID, date, req.Amount)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleUndoSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := userIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	date, err := dateParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	snap, err := s.budget.UndoSweep(ctx, userID, date)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, snap)
}
