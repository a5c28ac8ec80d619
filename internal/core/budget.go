package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	// BudgetConfig is the per-user income/savings split. Configure
	// overwrites it wholesale; no history is retained.
	BudgetConfig struct {
		UserID        int64           `json:"-"`
		MonthlyIncome decimal.Decimal `json:"monthly_income"`
		TargetSavings decimal.Decimal `json:"target_savings"`
		AIMode        bool            `json:"ai_mode"`
		IsConfigured  bool            `json:"is_configured"`
	}

	// Sweep records a surplus transfer into savings. Immutable once
	// created; UndoSweep deletes the newest same-day record outright.
	Sweep struct {
		ID     int64           `json:"id"`
		UserID int64           `json:"-"`
		Amount decimal.Decimal `json:"amount"`
		Date   string          `json:"date"` // day granularity, YYYY-MM-DD
	}

	// CategoryEstimate is a soft per-category limit derived from the
	// spendable amount and this month's observed category weights.
	CategoryEstimate struct {
		Category string          `json:"category"`
		Limit    decimal.Decimal `json:"limit"`
		Spent    decimal.Decimal `json:"spent"`
	}

	// BudgetSnapshot is the read model served to the client for one
	// (user, date) pair. Every numeric field is re-derived on read;
	// nothing carries over between days.
	BudgetSnapshot struct {
		IsConfigured     bool               `json:"is_configured"`
		MonthlyIncome    decimal.Decimal    `json:"monthly_income"`
		DailyLimit       decimal.Decimal    `json:"daily_limit"`
		UsedToday        decimal.Decimal    `json:"used_today"`
		Surplus          decimal.Decimal    `json:"surplus"`
		SavingsThisMonth decimal.Decimal    `json:"savings_this_month"`
		Sweeps           []Sweep            `json:"sweeps"`
		CategoryEstimates []CategoryEstimate `json:"category_estimates"`
	}
)

// ValidateBudgetInput checks the Configure constraints: both amounts
// non-negative and target_savings not exceeding monthly_income.
func ValidateBudgetInput(monthlyIncome, targetSavings decimal.Decimal) error {
	if monthlyIncome.IsNegative() || targetSavings.IsNegative() {
		return ErrValidation
	}
	if targetSavings.GreaterThan(monthlyIncome) {
		return ErrValidation
	}
	return nil
}

// DailyLimit returns the configured daily allowance, zero when unconfigured.
func (c BudgetConfig) DailyLimit() decimal.Decimal {
	if !c.IsConfigured {
		return decimal.Zero
	}
	return DailyLimit(c.MonthlyIncome, c.TargetSavings)
}

// Spendable is the non-savings share of the monthly income.
func (c BudgetConfig) Spendable() decimal.Decimal {
	if !c.IsConfigured {
		return decimal.Zero
	}
	return c.MonthlyIncome.Sub(c.TargetSavings)
}

// SumSweeps adds up sweep amounts.
func SumSweeps(sweeps []Sweep) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sweeps {
		total = total.Add(s.Amount)
	}
	return total
}

// ComputeSnapshot derives the budget read model for one day.
//
// expensesToday is the sum of expense-type transactions dated the
// snapshot day. monthSweeps holds every sweep in the same calendar month
// as the snapshot day; the day's own sweeps are selected from it by the
// day-granularity key. An unconfigured budget yields all zeros.
func ComputeSnapshot(cfg BudgetConfig, expensesToday decimal.Decimal, monthSweeps []Sweep, date time.Time) BudgetSnapshot {
	snap := BudgetSnapshot{
		IsConfigured:      cfg.IsConfigured,
		MonthlyIncome:     decimal.Zero,
		DailyLimit:        decimal.Zero,
		UsedToday:         decimal.Zero,
		Surplus:           decimal.Zero,
		SavingsThisMonth:  decimal.Zero,
		Sweeps:            []Sweep{},
		CategoryEstimates: []CategoryEstimate{},
	}
	if !cfg.IsConfigured {
		return snap
	}

	day := DayKey(date)
	sweptToday := decimal.Zero
	for _, s := range monthSweeps {
		if s.Date == day {
			sweptToday = sweptToday.Add(s.Amount)
		}
	}

	snap.MonthlyIncome = cfg.MonthlyIncome
	snap.DailyLimit = cfg.DailyLimit()
	snap.UsedToday = expensesToday.Add(sweptToday)
	snap.Surplus = NonNegative(snap.DailyLimit.Sub(snap.UsedToday))
	snap.SavingsThisMonth = SumSweeps(monthSweeps)
	if monthSweeps != nil {
		snap.Sweeps = monthSweeps
	}
	return snap
}

// ValidateSweep re-checks the sweep preconditions against the surplus at
// the moment of the call. The client-submitted amount is advisory only;
// the ledger is the source of truth.
func ValidateSweep(cfg BudgetConfig, surplus, amount decimal.Decimal) error {
	if !cfg.IsConfigured {
		return ErrNotConfigured
	}
	if !amount.IsPositive() {
		return ErrValidation
	}
	if amount.GreaterThan(surplus) {
		return ErrInsufficientSurplus
	}
	return nil
}

// LatestSweepOn returns the most recently created sweep dated day, or
// false when none exists. Creation order follows the id sequence.
func LatestSweepOn(sweeps []Sweep, day string) (Sweep, bool) {
	var latest Sweep
	found := false
	for _, s := range sweeps {
		if s.Date != day {
			continue
		}
		if !found || s.ID > latest.ID {
			latest = s
			found = true
		}
	}
	return latest, found
}

// EstimateCategories splits the spendable amount across this month's
// observed expense categories, proportional to their share of the spend
// so far. With no spend yet there is nothing to weight, so the result is
// empty.
func EstimateCategories(cfg BudgetConfig, monthSpend []CategoryBreakdown) []CategoryEstimate {
	estimates := []CategoryEstimate{}
	if !cfg.IsConfigured || len(monthSpend) == 0 {
		return estimates
	}
	total := decimal.Zero
	for _, c := range monthSpend {
		total = total.Add(c.Value)
	}
	if !total.IsPositive() {
		return estimates
	}
	spendable := cfg.Spendable()
	for _, c := range monthSpend {
		estimates = append(estimates, CategoryEstimate{
			Category: c.Name,
			Limit:    spendable.Mul(c.Value).Div(total),
			Spent:    c.Value,
		})
	}
	return estimates
}
