package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"kosh/internal/core"
)

type createGoalRequest struct {
	Name         string          `json:"name"`
	TargetAmount decimal.Decimal `json:"target_amount"`
}

// depositRequest carries a signed amount; negative withdraws.
type depositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) handleListSavings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := userIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	goals, err := s.savings.List(ctx, userID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleCreateSavings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := userIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req createGoalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	goal, err := s.savings.Create(ctx, core.SavingsGoal{
		UserID:        userID,
		Name:          req.Name,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: decimal.Zero,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusCreated, goal)
}

func (s *Server) handleDepositSavings(w http.ResponseWriter, r *http.Request) {
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

	var req depositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	goal, err := s.savings.Deposit(ctx, id, req.Amount)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, goal)
}

func (s *Server) handleDeleteSavings(w http.ResponseWriter, r *http.Request) {
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

	if err := s.savings.Delete(ctx, userID, id); err != nil {
		writeError(ctx, w, err)
		return
	}
	s.invalidateUser(userID)
	w.WriteHeader(http.StatusNoContent)
}
