package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "Income"
	Expense TransactionType = "Expense"
)

const (
	FriendOwesMe DebtDirection = "FRIEND_OWES_ME"
	IOweFriend   DebtDirection = "I_OWE_FRIEND"
)

const (
	DebtUnpaid        DebtStatus = "UNPAID"
	DebtPartiallyPaid DebtStatus = "PARTIALLY_PAID"
	DebtSettled       DebtStatus = "SETTLED"
)

type (
	TransactionType string
	DebtDirection   string
	DebtStatus      string

	Transaction struct {
		ID          int64           `json:"id"`
		UserID      int64           `json:"-"`
		Date        time.Time       `json:"date"`
		Description string          `json:"description"`
		Category    string          `json:"category"`
		Amount      decimal.Decimal `json:"amount"`
		Type        TransactionType `json:"type"`
	}

	SavingsGoal struct {
		ID            int64           `json:"id"`
		UserID        int64           `json:"-"`
		Name          string          `json:"name"`
		TargetAmount  decimal.Decimal `json:"target_amount"`
		CurrentAmount decimal.Decimal `json:"current_amount"`
		CreatedAt     time.Time       `json:"created_at"`
	}

	Debt struct {
		ID          int64           `json:"id"`
		UserID      int64           `json:"-"`
		FriendName  string          `json:"friend_name"`
		Type        DebtDirection   `json:"type"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		Status      DebtStatus      `json:"status"`
		Date        time.Time       `json:"date"`
	}

	CategoryBreakdown struct {
		Name  string          `json:"name"`
		Value decimal.Decimal `json:"value"`
		Count int             `json:"count"`
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyDescription    = errors.New("empty description")
	ErrEmptyCategory       = errors.New("empty category")
	ErrEmptyFriendName     = errors.New("empty friend name")
	ErrInvalidType         = errors.New("invalid type")
	ErrValidation          = errors.New("validation error")
	ErrNotConfigured       = errors.New("budget not configured")
	ErrInsufficientSurplus = errors.New("insufficient surplus")
	ErrNoSweepToUndo       = errors.New("no sweep to undo")
	ErrNotFound            = errors.New("not found")
	ErrOverpayment         = errors.New("payment exceeds outstanding amount")
)

// DayKey returns the day-granularity key used for used_today matching.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// MonthKey returns the calendar-month key used for savings_this_month.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	switch t.Type {
	case Income, Expense:
	default:
		return ErrInvalidType
	}
	if t.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return errors.New("empty goal name")
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if g.CurrentAmount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// ApplyDeposit adjusts the goal balance by a signed amount. Negative
// amounts withdraw; withdrawing past zero is rejected.
func (g SavingsGoal) ApplyDeposit(amount decimal.Decimal) (SavingsGoal, error) {
	if amount.IsZero() {
		return g, ErrInvalidAmount
	}
	next := g.CurrentAmount.Add(amount)
	if next.IsNegative() {
		return g, ErrInvalidAmount
	}
	g.CurrentAmount = next
	return g, nil
}

func (d Debt) Validate() error {
	if strings.TrimSpace(d.FriendName) == "" {
		return ErrEmptyFriendName
	}
	if !d.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	switch d.Type {
	case FriendOwesMe, IOweFriend:
	default:
		return ErrInvalidType
	}
	switch d.Status {
	case DebtUnpaid, DebtPartiallyPaid, DebtSettled:
	default:
		return errors.New("invalid debt status")
	}
	return nil
}

// Settle applies a partial or full payment to a debt and returns the
// updated copy. The payment must be positive and must not exceed the
// outstanding amount. Reaching zero marks the debt SETTLED; anything
// above zero leaves it PARTIALLY_PAID.
func (d Debt) Settle(payment decimal.Decimal) (Debt, error) {
	if d.Status == DebtSettled {
		return d, errors.New("debt already settled")
	}
	if !payment.IsPositive() {
		return d, ErrInvalidAmount
	}
	if payment.GreaterThan(d.Amount) {
		return d, ErrOverpayment
	}
	d.Amount = d.Amount.Sub(payment)
	if d.Amount.IsZero() {
		d.Status = DebtSettled
	} else {
		d.Status = DebtPartiallyPaid
	}
	return d, nil
}
