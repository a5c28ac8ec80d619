// Package services orchestrates ledger operations across SQLite and the
// event stream. Every mutation lands in storage first; event publishing
// is best-effort and never fails the request.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"kosh/internal/core"
	"kosh/internal/events"
	"kosh/internal/storage"
)

// EventPublisher is the slice of the AMQP client the services need.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event events.LedgerEvent) error
}

// BudgetService owns the daily-limit and surplus-sweep operations.
type BudgetService struct {
	storage   *storage.SQLiteRepository
	publisher EventPublisher
}

func NewBudgetService(storage *storage.SQLiteRepository, publisher EventPublisher) *BudgetService {
	return &BudgetService{storage: storage, publisher: publisher}
}

// Configure sets the user's income/savings split, overwriting any
// previous configuration.
func (s *BudgetService) Configure(ctx context.Context, userID int64, monthlyIncome, targetSavings decimal.Decimal, aiMode bool) error {
	if err := core.ValidateBudgetInput(monthlyIncome, targetSavings); err != nil {
		return err
	}

	cfg := core.BudgetConfig{
		UserID:        userID,
		MonthlyIncome: monthlyIncome,
		TargetSavings: targetSavings,
		AIMode:        aiMode,
		IsConfigured:  true,
	}
	if err := s.storage.SaveBudgetConfig(ctx, cfg); err != nil {
		return fmt.Errorf("configure budget: %w", err)
	}

	s.publish(ctx, events.NewLedgerEvent(userID, events.KindBudgetConfigured, monthlyIncome, targetSavings.String()))
	return nil
}

// Snapshot returns the derived budget state for the given day.
func (s *BudgetService) Snapshot(ctx context.Context, userID int64, date time.Time) (core.BudgetSnapshot, error) {
	return s.storage.BudgetSnapshot(ctx, userID, date)
}

// Sweep moves part of today's remaining surplus into savings.
func (s *BudgetService) Sweep(ctx context.Context, userID int64, date time.Time, amount decimal.Decimal) (core.BudgetSnapshot, error) {
	sweep, err := s.storage.SweepSurplus(ctx, userID, date, amount)
	if err != nil {
		return core.BudgetSnapshot{}, err
	}

	s.publish(ctx, events.NewLedgerEvent(userID, events.KindSurplusSwept, sweep.Amount, sweep.Date))
	return s.storage.BudgetSnapshot(ctx, userID, date)
}

// UndoSweep removes the most recent sweep dated to the given day.
func (s *BudgetService) UndoSweep(ctx context.Context, userID int64, date time.Time) (core.BudgetSnapshot, error) {
	if err := s.storage.UndoSweep(ctx, userID, date); err != nil {
		return core.BudgetSnapshot{}, err
	}

	s.publish(ctx, events.NewLedgerEvent(userID, events.KindSweepUndone, decimal.Zero, core.DayKey(date)))
	return s.storage.BudgetSnapshot(ctx, userID, date)
}

func (s *BudgetService) publish(ctx context.Context, event events.LedgerEvent) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping ledger event", "kind", event.Kind)
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, event); err != nil {
		// The mutation is already durable in SQLite; losing the audit
		// event is preferable to failing the request.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", event.Kind, "user_id", event.UserID, "error", err)
	}
}
