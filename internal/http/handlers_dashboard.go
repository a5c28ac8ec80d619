package http

import (
	"fmt"
	"net/http"

	"kosh/internal/core"
)

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := userIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	now := timeNow()
	key := statsKey(userID, core.MonthKey(now))
	if stats, ok := s.statsCache.Get(key); ok {
		writeJSON(w, http.StatusOK, stats)
		return
	}

	stats, err := s.dashboard.Stats(ctx, userID, now)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	s.statsCache.Set(key, stats)
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDashboardTrend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := userIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	period := r.URL.Query().Get("period")
	switch period {
	case "", "week", "month", "year":
	default:
		writeError(ctx, w, fmt.Errorf("%w: invalid period %q", core.ErrValidation, period))
		return
	}

	points, err := s.dashboard.Trend(ctx, userID, period, timeNow())
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}
