package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"kosh/internal/core"
	"kosh/internal/events"
	"kosh/internal/storage"
)

// SavingsService owns the savings goals and their balances.
type SavingsService struct {
	storage   *storage.SQLiteRepository
	publisher EventPublisher
}

func NewSavingsService(storage *storage.SQLiteRepository, publisher EventPublisher) *SavingsService {
	return &SavingsService{storage: storage, publisher: publisher}
}

func (s *SavingsService) List(ctx context.Context, userID int64) ([]core.SavingsGoal, error) {
	return s.storage.ListSavingsGoals(ctx, userID)
}

func (s *SavingsService) Create(ctx context.Context, goal core.SavingsGoal) (core.SavingsGoal, error) {
	if err := goal.Validate(); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("%w: %s", core.ErrValidation, err)
	}

	saved, err := s.storage.CreateSavingsGoal(ctx, goal)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	s.publish(ctx, events.NewLedgerEvent(saved.UserID, events.KindGoalCreated, saved.TargetAmount, saved.Name))
	return saved, nil
}

// Deposit applies a signed amount to the goal's balance. Negative
// amounts withdraw.
func (s *SavingsService) Deposit(ctx context.Context, goalID int64, amount decimal.Decimal) (core.SavingsGoal, error) {
	goal, err := s.storage.DepositToGoal(ctx, goalID, amount)
	if err != nil {
		return core.SavingsGoal{}, err
	}

	s.publish(ctx, events.NewLedgerEvent(goal.UserID, events.KindGoalDeposit, amount, goal.Name))
	return goal, nil
}

func (s *SavingsService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.storage.DeleteSavingsGoal(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.NewLedgerEvent(userID, events.KindGoalRemoved, decimal.Zero, fmt.Sprintf("goal %d", id)))
	return nil
}

func (s *SavingsService) publish(ctx context.Context, event events.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", event.Kind, "user_id", event.UserID, "error", err)
	}
}
