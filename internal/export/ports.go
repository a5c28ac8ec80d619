// Package export publishes monthly statements to outbound sinks. The
// audit worker drains recent ledger events into statement rows; the
// Google Sheets sink is optional and the memory sink backs tests.
package export

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StatementRow is one exported line of a user's statement.
type StatementRow struct {
	UserID     int64
	OccurredAt time.Time
	Kind       string
	Detail     string
	Amount     decimal.Decimal
}

// StatementWriter is the outbound port for statement sinks.
type StatementWriter interface {
	AppendRows(ctx context.Context, rows []StatementRow) error
}
