package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"kosh/internal/core"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// timeNow is a seam for tests that pin the clock.
var timeNow = func() time.Time { return time.Now().UTC() }

// userIDParam reads the required user_id query parameter.
func userIDParam(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		return 0, fmt.Errorf("%w: missing user_id", core.ErrValidation)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid user_id %q", core.ErrValidation, raw)
	}
	return id, nil
}

// dateParam reads the optional date query parameter (YYYY-MM-DD),
// defaulting to the current UTC day.
func dateParam(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return timeNow(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", core.ErrValidation, raw)
	}
	return t.UTC(), nil
}

// monthParam reads the optional month query parameter (YYYY-MM),
// defaulting to the current UTC month.
func monthParam(r *http.Request) (string, error) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return core.MonthKey(timeNow()), nil
	}
	if _, err := time.Parse("2006-01", raw); err != nil {
		return "", fmt.Errorf("%w: invalid month %q, want YYYY-MM", core.ErrValidation, raw)
	}
	return raw, nil
}

// parseDateValue accepts the two date shapes the SPA sends, full
// RFC3339 or a bare YYYY-MM-DD day. Empty means "now".
func parseDateValue(raw string) (time.Time, error) {
	if raw == "" {
		return timeNow(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q", core.ErrValidation, raw)
}

// pathID reads the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", core.ErrValidation, raw)
	}
	return id, nil
}

// decodeJSON decodes a size-capped request body into v.
func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %s", errBadRequest, err)
	}
	return nil
}
