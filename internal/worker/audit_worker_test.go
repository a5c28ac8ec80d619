package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kosh/internal/events"
	"kosh/internal/export"
	"kosh/internal/storage"
)

func newTestStorage(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "kosh_test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestHandleEventPersistsAndDeduplicates(t *testing.T) {
	repo := newTestStorage(t)
	w := NewAuditWorker(repo, nil, 10)
	ctx := context.Background()

	event := events.NewLedgerEvent(1, events.KindSurplusSwept, decimal.RequireFromString("533"), "2025-03-10")

	if err := w.HandleEvent(ctx, event); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	// Broker redelivery of the same event must stay a no-op.
	if err := w.HandleEvent(ctx, event); err != nil {
		t.Fatalf("redelivered HandleEvent() error = %v", err)
	}

	trail, err := repo.ListLedgerEvents(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListLedgerEvents() error = %v", err)
	}
	if len(trail) != 1 {
		t.Fatalf("audit trail has %d entries, want 1", len(trail))
	}
}

func TestHandleEventDropsMalformed(t *testing.T) {
	repo := newTestStorage(t)
	w := NewAuditWorker(repo, nil, 10)
	ctx := context.Background()

	// Missing event ID: drop without error so the broker acks it
	// instead of redelivering forever.
	if err := w.HandleEvent(ctx, events.LedgerEvent{Kind: events.KindSurplusSwept}); err != nil {
		t.Fatalf("HandleEvent() on malformed event error = %v", err)
	}

	trail, _ := repo.ListLedgerEvents(ctx, 0, 10)
	if len(trail) != 0 {
		t.Errorf("malformed event should not be recorded, got %d entries", len(trail))
	}
}

func TestExportStatements(t *testing.T) {
	repo := newTestStorage(t)
	sink := export.NewMemoryWriter()
	w := NewAuditWorker(repo, sink, 10)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	for i, amount := range []string{"100", "200", "300"} {
		event := events.NewLedgerEvent(1, events.KindTransactionAdded, decimal.RequireFromString(amount), "Food")
		event.OccurredAt = base.Add(time.Duration(i) * time.Hour)
		if err := w.HandleEvent(ctx, event); err != nil {
			t.Fatalf("HandleEvent() error = %v", err)
		}
	}

	if err := w.ExportStatements(ctx, []int64{1}); err != nil {
		t.Fatalf("ExportStatements() error = %v", err)
	}

	rows := sink.Rows()
	if len(rows) != 3 {
		t.Fatalf("exported %d rows, want 3", len(rows))
	}
	// Oldest first in the statement.
	if !rows[0].Amount.Equal(decimal.RequireFromString("100")) {
		t.Errorf("first row amount = %s, want 100", rows[0].Amount)
	}

	// A second export with nothing new appends nothing.
	if err := w.ExportStatements(ctx, []int64{1}); err != nil {
		t.Fatalf("repeat ExportStatements() error = %v", err)
	}
	if len(sink.Rows()) != 3 {
		t.Errorf("repeat export appended %d extra rows", len(sink.Rows())-3)
	}

	// New events after the watermark get picked up.
	late := events.NewLedgerEvent(1, events.KindSurplusSwept, decimal.RequireFromString("50"), "2025-03-10")
	late.OccurredAt = base.Add(5 * time.Hour)
	if err := w.HandleEvent(ctx, late); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if err := w.ExportStatements(ctx, []int64{1}); err != nil {
		t.Fatalf("ExportStatements() error = %v", err)
	}
	if len(sink.Rows()) != 4 {
		t.Errorf("incremental export total = %d rows, want 4", len(sink.Rows()))
	}
}

func TestExportStatementsNoSink(t *testing.T) {
	w := NewAuditWorker(newTestStorage(t), nil, 10)
	if err := w.ExportStatements(context.Background(), []int64{1}); err != nil {
		t.Fatalf("ExportStatements() without sink error = %v", err)
	}
}
