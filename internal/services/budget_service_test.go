package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kosh/internal/core"
	"kosh/internal/events"
	"kosh/internal/storage"
)

// capturingPublisher records published events instead of touching AMQP.
type capturingPublisher struct {
	published []events.LedgerEvent
	fail      bool
}

func (p *capturingPublisher) PublishLedgerEvent(_ context.Context, event events.LedgerEvent) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, event)
	return nil
}

func newTestStorage(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "kosh_test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestBudgetServiceConfigureAndSweep(t *testing.T) {
	repo := newTestStorage(t)
	pub := &capturingPublisher{}
	svc := NewBudgetService(repo, pub)
	ctx := context.Background()
	day := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	err := svc.Configure(ctx, 1, decimal.RequireFromString("50000"), decimal.RequireFromString("10000"), false)
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	snap, err := svc.Sweep(ctx, 1, day, decimal.RequireFromString("500"))
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if !snap.SavingsThisMonth.Equal(decimal.RequireFromString("500")) {
		t.Errorf("SavingsThisMonth = %s, want 500", snap.SavingsThisMonth)
	}

	snap, err = svc.UndoSweep(ctx, 1, day)
	if err != nil {
		t.Fatalf("UndoSweep() error = %v", err)
	}
	if !snap.SavingsThisMonth.IsZero() {
		t.Errorf("after undo SavingsThisMonth = %s, want 0", snap.SavingsThisMonth)
	}

	wantKinds := []string{events.KindBudgetConfigured, events.KindSurplusSwept, events.KindSweepUndone}
	if len(pub.published) != len(wantKinds) {
		t.Fatalf("published %d events, want %d", len(pub.published), len(wantKinds))
	}
	for i, kind := range wantKinds {
		if pub.published[i].Kind != kind {
			t.Errorf("event %d kind = %q, want %q", i, pub.published[i].Kind, kind)
		}
	}
}

func TestBudgetServiceConfigureValidation(t *testing.T) {
	svc := NewBudgetService(newTestStorage(t), nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		income  string
		savings string
	}{
		{"negative income", "-1", "0"},
		{"negative savings", "100", "-5"},
		{"savings above income", "100", "200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Configure(ctx, 1,
				decimal.RequireFromString(tt.income),
				decimal.RequireFromString(tt.savings), false)
			if !errors.Is(err, core.ErrValidation) {
				t.Errorf("Configure() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestBudgetServiceSurvivesBrokerOutage(t *testing.T) {
	repo := newTestStorage(t)
	pub := &capturingPublisher{fail: true}
	svc := NewBudgetService(repo, pub)
	ctx := context.Background()
	day := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	if err := svc.Configure(ctx, 1, decimal.RequireFromString("30000"), decimal.Zero, false); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	// Publishing fails but the sweep is durable anyway.
	snap, err := svc.Sweep(ctx, 1, day, decimal.RequireFromString("100"))
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if len(snap.Sweeps) != 1 {
		t.Errorf("sweep not persisted during broker outage")
	}
}

func TestBudgetServiceNilPublisher(t *testing.T) {
	svc := NewBudgetService(newTestStorage(t), nil)
	ctx := context.Background()

	if err := svc.Configure(ctx, 1, decimal.RequireFromString("30000"), decimal.Zero, false); err != nil {
		t.Fatalf("Configure() with nil publisher error = %v", err)
	}
}
