// Package events carries ledger mutations over RabbitMQ so the audit
// worker can persist an append-only trail without slowing request
// handling. Publishing is best-effort; the API never fails a request
// because the broker is down.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event kinds published by the API.
const (
	KindBudgetConfigured   = "budget.configured"
	KindSurplusSwept       = "budget.surplus_swept"
	KindSweepUndone        = "budget.sweep_undone"
	KindTransactionAdded   = "transaction.added"
	KindTransactionRemoved = "transaction.removed"
	KindDebtRecorded       = "debt.recorded"
	KindDebtSettled        = "debt.settled"
	KindDebtRemoved        = "debt.removed"
	KindGoalCreated        = "savings.goal_created"
	KindGoalDeposit        = "savings.deposit"
	KindGoalRemoved        = "savings.goal_removed"
)

// LedgerEvent is the wire envelope for a single ledger mutation.
// EventID makes redelivery idempotent on the consumer side.
type LedgerEvent struct {
	EventID    string          `json:"event_id"`
	UserID     int64           `json:"user_id"`
	Kind       string          `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	Detail     string          `json:"detail,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewLedgerEvent stamps a fresh event with a unique ID and the current
// time.
func NewLedgerEvent(userID int64, kind string, amount decimal.Decimal, detail string) LedgerEvent {
	return LedgerEvent{
		EventID:    uuid.NewString(),
		UserID:     userID,
		Kind:       kind,
		Amount:     amount,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	}
}
