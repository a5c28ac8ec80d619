package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kosh/internal/events"
)

// AppendLedgerEvent records one event in the append-only audit trail.
// Redeliveries are absorbed by the UNIQUE constraint on event_id.
func (r *SQLiteRepository) AppendLedgerEvent(ctx context.Context, event events.LedgerEvent) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO ledger_events (event_id, user_id, kind, amount, detail, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.EventID, event.UserID, event.Kind, event.Amount.String(),
		event.Detail, event.OccurredAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("append ledger event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("append ledger event rows: %w", err)
	}
	if n == 0 {
		slog.DebugContext(ctx, "Duplicate ledger event ignored", "event_id", event.EventID)
		return nil
	}

	slog.InfoContext(ctx, "Ledger event recorded",
		"event_id", event.EventID, "kind", event.Kind, "user_id", event.UserID)
	return nil
}

// ListLedgerEvents returns a user's audit trail, newest first.
func (r *SQLiteRepository) ListLedgerEvents(ctx context.Context, userID int64, limit int) ([]events.LedgerEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_id, user_id, kind, amount, detail, occurred_at
		 FROM ledger_events WHERE user_id = ? ORDER BY occurred_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger events: %w", err)
	}
	defer rows.Close()

	out := []events.LedgerEvent{}
	for rows.Next() {
		var e events.LedgerEvent
		var amount, occurred string
		if err := rows.Scan(&e.EventID, &e.UserID, &e.Kind, &amount, &e.Detail, &occurred); err != nil {
			return nil, fmt.Errorf("scan ledger event: %w", err)
		}
		if e.Amount, err = scanAmount(amount); err != nil {
			return nil, err
		}
		if e.OccurredAt, err = time.Parse(time.RFC3339, occurred); err != nil {
			return nil, fmt.Errorf("parse event occurred_at %q: %w", occurred, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
