// Package worker runs the audit consumer: it drains ledger events from
// RabbitMQ into the append-only trail and periodically exports a
// statement to the configured sink.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kosh/internal/events"
	"kosh/internal/export"
	"kosh/internal/storage"
)

// AuditWorker persists consumed ledger events and exports statements.
type AuditWorker struct {
	storage   *storage.SQLiteRepository
	statement export.StatementWriter
	batchSize int

	// lastExported tracks the newest occurred_at already pushed to the
	// statement sink, per user.
	lastExported map[int64]time.Time
}

func NewAuditWorker(storage *storage.SQLiteRepository, statement export.StatementWriter, batchSize int) *AuditWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &AuditWorker{
		storage:      storage,
		statement:    statement,
		batchSize:    batchSize,
		lastExported: make(map[int64]time.Time),
	}
}

// HandleEvent records one consumed ledger event. Returning an error
// nacks the delivery so the broker redelivers it; AppendLedgerEvent is
// idempotent on event_id, so redeliveries are safe.
func (w *AuditWorker) HandleEvent(ctx context.Context, event events.LedgerEvent) error {
	if event.EventID == "" || event.Kind == "" {
		slog.WarnContext(ctx, "Dropping malformed ledger event",
			"event_id", event.EventID, "kind", event.Kind)
		return nil
	}

	if err := w.storage.AppendLedgerEvent(ctx, event); err != nil {
		return fmt.Errorf("record ledger event: %w", err)
	}
	return nil
}

// ExportStatements pushes each seen user's latest audit entries to the
// statement sink, skipping rows already exported in this process.
func (w *AuditWorker) ExportStatements(ctx context.Context, userIDs []int64) error {
	if w.statement == nil {
		slog.DebugContext(ctx, "No statement sink configured, skipping export")
		return nil
	}

	for _, userID := range userIDs {
		entries, err := w.storage.ListLedgerEvents(ctx, userID, w.batchSize)
		if err != nil {
			return fmt.Errorf("load audit trail for user %d: %w", userID, err)
		}

		cutoff := w.lastExported[userID]
		var rows []export.StatementRow
		newest := cutoff
		// ListLedgerEvents is newest-first; export oldest-first.
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			if !e.OccurredAt.After(cutoff) {
				continue
			}
			rows = append(rows, export.StatementRow{
				UserID:     e.UserID,
				OccurredAt: e.OccurredAt,
				Kind:       e.Kind,
				Detail:     e.Detail,
				Amount:     e.Amount,
			})
			if e.OccurredAt.After(newest) {
				newest = e.OccurredAt
			}
		}
		if len(rows) == 0 {
			continue
		}

		if err := w.statement.AppendRows(ctx, rows); err != nil {
			return fmt.Errorf("export statement for user %d: %w", userID, err)
		}
		w.lastExported[userID] = newest

		slog.InfoContext(ctx, "Statement exported",
			"user_id", userID, "rows", len(rows))
	}
	return nil
}

// Run consumes ledger events until the context is cancelled, exporting
// statements on the given interval. Consumer errors trigger reconnects
// handled by the events client; Run keeps retrying the consume loop.
func (w *AuditWorker) Run(ctx context.Context, client *events.Client, exportInterval time.Duration) error {
	seen := make(chan int64, 64)

	go w.exportLoop(ctx, seen, exportInterval)

	for {
		err := client.ConsumeLedgerEvents(ctx, func(event events.LedgerEvent) error {
			if err := w.HandleEvent(ctx, event); err != nil {
				return err
			}
			select {
			case seen <- event.UserID:
			default:
			}
			return nil
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.ErrorContext(ctx, "Consume loop ended, retrying", "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
}

func (w *AuditWorker) exportLoop(ctx context.Context, seen <-chan int64, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	users := make(map[int64]struct{})
	for {
		select {
		case <-ctx.Done():
			return
		case userID := <-seen:
			users[userID] = struct{}{}
		case <-ticker.C:
			if len(users) == 0 {
				continue
			}
			ids := make([]int64, 0, len(users))
			for id := range users {
				ids = append(ids, id)
			}
			if err := w.ExportStatements(ctx, ids); err != nil {
				slog.ErrorContext(ctx, "Statement export failed", "error", err)
			}
		}
	}
}
