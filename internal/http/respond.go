package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"kosh/internal/core"
)

// errorBody is the error envelope every non-2xx response carries.
type errorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// errBadRequest marks transport-level failures, a body that cannot be
// decoded at all, as opposed to domain validation rejections.
var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto the fixed status/code taxonomy.
// Anything unmapped is a 500 with the detail suppressed.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var status int
	var code string

	switch {
	case errors.Is(err, errBadRequest):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrOverpayment):
		status, code = http.StatusUnprocessableEntity, "validation_error"
	case errors.Is(err, core.ErrNotConfigured):
		status, code = http.StatusConflict, "not_configured"
	case errors.Is(err, core.ErrInsufficientSurplus):
		status, code = http.StatusConflict, "insufficient_surplus"
	case errors.Is(err, core.ErrNoSweepToUndo):
		status, code = http.StatusNotFound, "no_sweep_to_undo"
	case errors.Is(err, core.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	default:
		slog.ErrorContext(ctx, "Request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Detail: "internal server error",
			Code:   "internal_error",
		})
		return
	}

	writeJSON(w, status, errorBody{Detail: err.Error(), Code: code})
}
