package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"kosh/internal/core"
	"kosh/internal/storage"
)

// DashboardStats is the headline card data for the current month.
// savings_progress is overall progress across all goals, 0-100.
type DashboardStats struct {
	Income          decimal.Decimal `json:"income"`
	Expenses        decimal.Decimal `json:"expenses"`
	Balance         decimal.Decimal `json:"balance"`
	SavingsProgress decimal.Decimal `json:"savings_progress"`
}

// DashboardService derives read-only aggregates for the landing view.
type DashboardService struct {
	storage *storage.SQLiteRepository
}

func NewDashboardService(storage *storage.SQLiteRepository) *DashboardService {
	return &DashboardService{storage: storage}
}

func (s *DashboardService) Stats(ctx context.Context, userID int64, now time.Time) (DashboardStats, error) {
	income, expenses, err := s.storage.MonthTotals(ctx, userID, core.MonthKey(now))
	if err != nil {
		return DashboardStats{}, fmt.Errorf("dashboard stats: %w", err)
	}

	goals, err := s.storage.ListSavingsGoals(ctx, userID)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("dashboard stats: %w", err)
	}

	return DashboardStats{
		Income:          income,
		Expenses:        expenses,
		Balance:         income.Sub(expenses),
		SavingsProgress: savingsProgress(goals),
	}, nil
}

// Trend returns the income/expense series for the requested period
// (week, month or year). Unknown periods fall back to month.
func (s *DashboardService) Trend(ctx context.Context, userID int64, period string, now time.Time) ([]storage.TrendPoint, error) {
	return s.storage.TrendSeries(ctx, userID, period, now)
}

// savingsProgress is the aggregate balance over aggregate target as a
// percentage, capped at 100. No goals means zero progress.
func savingsProgress(goals []core.SavingsGoal) decimal.Decimal {
	target := decimal.Zero
	current := decimal.Zero
	for _, g := range goals {
		target = target.Add(g.TargetAmount)
		current = current.Add(g.CurrentAmount)
	}
	if !target.IsPositive() {
		return decimal.Zero
	}
	progress := current.Div(target).Mul(decimal.NewFromInt(100))
	if progress.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(100)
	}
	return progress
}
