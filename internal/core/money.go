// Package core holds the domain model: money arithmetic, the budget
// ledger calculus, transactions, savings goals and the peer-debt ledger.
//
// All monetary amounts are decimal.Decimal. The ledger never rounds;
// rounding is a presentation concern of the callers.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// budgetDays is the fixed divisor for the daily limit. The budget model
// deliberately assumes a 30-day month regardless of the calendar.
const budgetDays = 30

var thirty = decimal.NewFromInt(budgetDays)

// ParseAmount parses a decimal string into an exact amount.
// It accepts both dot (12.34) and comma (12,34) separators.
// Returns ErrInvalidAmount for empty or malformed input.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParsePositiveAmount is ParseAmount restricted to amounts > 0.
func ParsePositiveAmount(s string) (decimal.Decimal, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// DailyLimit computes the allowed daily spend from a monthly income and
// savings target: (income - savings) / 30. The division is exact decimal
// division at the library's default precision; no further rounding happens
// inside the ledger.
func DailyLimit(monthlyIncome, targetSavings decimal.Decimal) decimal.Decimal {
	return monthlyIncome.Sub(targetSavings).Div(thirty)
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
