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

// TransactionService owns transaction CRUD and the magic import flow.
type TransactionService struct {
	storage   *storage.SQLiteRepository
	publisher EventPublisher
}

func NewTransactionService(storage *storage.SQLiteRepository, publisher EventPublisher) *TransactionService {
	return &TransactionService{storage: storage, publisher: publisher}
}

func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %s", core.ErrValidation, err)
	}

	saved, err := s.storage.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.publish(ctx, events.NewLedgerEvent(tx.UserID, events.KindTransactionAdded, saved.Amount, saved.Category))
	return saved, nil
}

func (s *TransactionService) List(ctx context.Context, userID int64, filter storage.TransactionFilter) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx, userID, filter)
}

func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.storage.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.NewLedgerEvent(userID, events.KindTransactionRemoved, decimal.Zero, fmt.Sprintf("transaction %d", id)))
	return nil
}

// Import parses free-form bank-SMS text into transactions. With dryRun
// set nothing is persisted; the parsed rows go back for review.
func (s *TransactionService) Import(ctx context.Context, userID int64, text string, dryRun bool) ([]core.Transaction, error) {
	parsed, err := ParseStatementText(userID, text)
	if err != nil {
		return nil, err
	}
	if dryRun {
		slog.InfoContext(ctx, "Import dry run", "user_id", userID, "parsed", len(parsed))
		return parsed, nil
	}

	saved, err := s.storage.CreateTransactionsBatch(ctx, parsed)
	if err != nil {
		return nil, fmt.Errorf("import transactions: %w", err)
	}
	for _, tx := range saved {
		s.publish(ctx, events.NewLedgerEvent(userID, events.KindTransactionAdded, tx.Amount, tx.Category))
	}
	return saved, nil
}

func (s *TransactionService) CategoryBreakdown(ctx context.Context, userID int64, month string) ([]core.CategoryBreakdown, error) {
	return s.storage.CategoryBreakdown(ctx, userID, month)
}

func (s *TransactionService) publish(ctx context.Context, event events.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", event.Kind, "user_id", event.UserID, "error", err)
	}
}
