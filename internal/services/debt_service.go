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

// DebtService owns the friend ledger: raw debts plus per-friend netting.
type DebtService struct {
	storage   *storage.SQLiteRepository
	publisher EventPublisher
}

func NewDebtService(storage *storage.SQLiteRepository, publisher EventPublisher) *DebtService {
	return &DebtService{storage: storage, publisher: publisher}
}

// DebtOverview is the friend-ledger read model: every debt, the
// per-friend net positions, and the outstanding totals. The embedded
// totals marshal at the top level, where the SPA reads them.
type DebtOverview struct {
	Debts   []core.Debt          `json:"debts"`
	Friends []core.FriendSummary `json:"friends"`
	core.DebtTotals
}

func (s *DebtService) Overview(ctx context.Context, userID int64) (DebtOverview, error) {
	debts, err := s.storage.ListDebts(ctx, userID)
	if err != nil {
		return DebtOverview{}, fmt.Errorf("debt overview: %w", err)
	}
	return DebtOverview{
		Debts:      debts,
		Friends:    core.NetFriends(debts),
		DebtTotals: core.SumDebts(debts),
	}, nil
}

func (s *DebtService) Create(ctx context.Context, debt core.Debt) (core.Debt, error) {
	if debt.Status == "" {
		debt.Status = core.DebtUnpaid
	}
	if err := debt.Validate(); err != nil {
		return core.Debt{}, fmt.Errorf("%w: %s", core.ErrValidation, err)
	}

	saved, err := s.storage.CreateDebt(ctx, debt)
	if err != nil {
		return core.Debt{}, err
	}
	s.publish(ctx, events.NewLedgerEvent(saved.UserID, events.KindDebtRecorded, saved.Amount, saved.FriendName))
	return saved, nil
}

// Settle applies a payment; partial payments leave the debt open.
func (s *DebtService) Settle(ctx context.Context, debtID int64, payment decimal.Decimal) (core.Debt, error) {
	settled, err := s.storage.SettleDebt(ctx, debtID, payment)
	if err != nil {
		return core.Debt{}, err
	}

	s.publish(ctx, events.NewLedgerEvent(settled.UserID, events.KindDebtSettled, payment, settled.FriendName))
	return settled, nil
}

func (s *DebtService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.storage.DeleteDebt(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.NewLedgerEvent(userID, events.KindDebtRemoved, decimal.Zero, fmt.Sprintf("debt %d", id)))
	return nil
}

func (s *DebtService) publish(ctx context.Context, event events.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", event.Kind, "user_id", event.UserID, "error", err)
	}
}
