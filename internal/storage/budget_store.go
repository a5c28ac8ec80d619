package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"kosh/internal/core"
)

// GetBudgetConfig returns the user's budget split. An absent row is not
// an error; it comes back with IsConfigured=false and zero amounts.
func (r *SQLiteRepository) GetBudgetConfig(ctx context.Context, userID int64) (core.BudgetConfig, error) {
	return getBudgetConfig(ctx, r.db, userID)
}

func getBudgetConfig(ctx context.Context, q querier, userID int64) (core.BudgetConfig, error) {
	cfg := core.BudgetConfig{
		UserID:        userID,
		MonthlyIncome: decimal.Zero,
		TargetSavings: decimal.Zero,
	}

	var income, savings string
	var aiMode int
	err := q.QueryRowContext(ctx,
		`SELECT monthly_income, target_savings, ai_mode FROM budget_configs WHERE user_id = ?`,
		userID).Scan(&income, &savings, &aiMode)
	if err == sql.ErrNoRows {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("get budget config: %w", err)
	}

	if cfg.MonthlyIncome, err = scanAmount(income); err != nil {
		return cfg, err
	}
	if cfg.TargetSavings, err = scanAmount(savings); err != nil {
		return cfg, err
	}
	cfg.AIMode = aiMode != 0
	cfg.IsConfigured = true
	return cfg, nil
}

// SaveBudgetConfig overwrites the user's budget split. No history is
// kept and past sweeps are left untouched.
func (r *SQLiteRepository) SaveBudgetConfig(ctx context.Context, cfg core.BudgetConfig) error {
	aiMode := 0
	if cfg.AIMode {
		aiMode = 1
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budget_configs (user_id, monthly_income, target_savings, ai_mode, configured_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(user_id) DO UPDATE SET
		   monthly_income = excluded.monthly_income,
		   target_savings = excluded.target_savings,
		   ai_mode        = excluded.ai_mode,
		   configured_at  = CURRENT_TIMESTAMP`,
		cfg.UserID, cfg.MonthlyIncome.String(), cfg.TargetSavings.String(), aiMode)
	if err != nil {
		return fmt.Errorf("save budget config: %w", err)
	}

	slog.InfoContext(ctx, "Budget configured",
		"user_id", cfg.UserID,
		"monthly_income", cfg.MonthlyIncome.String(),
		"target_savings", cfg.TargetSavings.String(),
		"ai_mode", cfg.AIMode)
	return nil
}

// BudgetSnapshot derives the budget read model for the given day.
// Everything is recomputed from that day's transactions and the month's
// sweeps; nothing is carried over between days.
func (r *SQLiteRepository) BudgetSnapshot(ctx context.Context, userID int64, date time.Time) (core.BudgetSnapshot, error) {
	cfg, err := r.GetBudgetConfig(ctx, userID)
	if err != nil {
		return core.BudgetSnapshot{}, err
	}
	if !cfg.IsConfigured {
		return core.ComputeSnapshot(cfg, decimal.Zero, nil, date), nil
	}

	expensesToday, err := r.sumExpensesOn(ctx, r.db, userID, core.DayKey(date))
	if err != nil {
		return core.BudgetSnapshot{}, err
	}
	monthSweeps, err := r.sweepsInMonth(ctx, r.db, userID, core.MonthKey(date))
	if err != nil {
		return core.BudgetSnapshot{}, err
	}

	snap := core.ComputeSnapshot(cfg, expensesToday, monthSweeps, date)

	monthSpend, err := r.CategoryBreakdown(ctx, userID, core.MonthKey(date))
	if err != nil {
		return core.BudgetSnapshot{}, err
	}
	snap.CategoryEstimates = core.EstimateCategories(cfg, monthSpend)
	return snap, nil
}

// SweepSurplus appends a sweep for (userID, date) after re-validating
// the amount against the surplus inside a write transaction. The
// immediate lock makes two racing sweeps observe each other: the loser
// re-reads a reduced surplus and fails cleanly instead of overdrawing
// the daily limit.
func (r *SQLiteRepository) SweepSurplus(ctx context.Context, userID int64, date time.Time, amount decimal.Decimal) (core.Sweep, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Sweep{}, fmt.Errorf("begin sweep tx: %w", err)
	}
	defer tx.Rollback()

	cfg, err := getBudgetConfig(ctx, tx, userID)
	if err != nil {
		return core.Sweep{}, err
	}

	day := core.DayKey(date)
	expensesToday, err := r.sumExpensesOn(ctx, tx, userID, day)
	if err != nil {
		return core.Sweep{}, err
	}
	monthSweeps, err := r.sweepsInMonth(ctx, tx, userID, core.MonthKey(date))
	if err != nil {
		return core.Sweep{}, err
	}

	surplus := core.ComputeSnapshot(cfg, expensesToday, monthSweeps, date).Surplus
	if err := core.ValidateSweep(cfg, surplus, amount); err != nil {
		return core.Sweep{}, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sweeps (user_id, amount, swept_on) VALUES (?, ?, ?)`,
		userID, amount.String(), day)
	if err != nil {
		return core.Sweep{}, fmt.Errorf("insert sweep: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Sweep{}, fmt.Errorf("sweep id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Sweep{}, fmt.Errorf("commit sweep: %w", err)
	}

	slog.InfoContext(ctx, "Surplus swept",
		"user_id", userID, "sweep_id", id, "amount", amount.String(), "date", day)
	return core.Sweep{ID: id, UserID: userID, Amount: amount, Date: day}, nil
}

// UndoSweep deletes the most recently created sweep dated the given
// day. Cross-day reversal is not supported; with no same-day sweep it
// fails with ErrNoSweepToUndo and mutates nothing.
func (r *SQLiteRepository) UndoSweep(ctx context.Context, userID int64, date time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin undo tx: %w", err)
	}
	defer tx.Rollback()

	day := core.DayKey(date)
	monthSweeps, err := r.sweepsInMonth(ctx, tx, userID, core.MonthKey(date))
	if err != nil {
		return err
	}
	sweep, ok := core.LatestSweepOn(monthSweeps, day)
	if !ok {
		return core.ErrNoSweepToUndo
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sweeps WHERE id = ?`, sweep.ID); err != nil {
		return fmt.Errorf("delete sweep: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit undo: %w", err)
	}

	slog.InfoContext(ctx, "Sweep undone",
		"user_id", userID, "sweep_id", sweep.ID, "amount", sweep.Amount.String(), "date", day)
	return nil
}

// querier lets snapshot reads run either on the pool or inside a
// sweep transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLiteRepository) sumExpensesOn(ctx context.Context, q querier, userID int64, day string) (decimal.Decimal, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT amount FROM transactions WHERE user_id = ? AND type = 'Expense' AND substr(date, 1, 10) = ?`,
		userID, day)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum expenses on %s: %w", day, err)
	}
	total, err := sumAmountRows(rows)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum expenses on %s: %w", day, err)
	}
	return total, nil
}

func (r *SQLiteRepository) sweepsInMonth(ctx context.Context, q querier, userID int64, month string) ([]core.Sweep, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, amount, swept_on FROM sweeps WHERE user_id = ? AND substr(swept_on, 1, 7) = ? ORDER BY id`,
		userID, month)
	if err != nil {
		return nil, fmt.Errorf("list sweeps in %s: %w", month, err)
	}
	defer rows.Close()

	var sweeps []core.Sweep
	for rows.Next() {
		s := core.Sweep{UserID: userID}
		var amount string
		if err := rows.Scan(&s.ID, &amount, &s.Date); err != nil {
			return nil, fmt.Errorf("scan sweep: %w", err)
		}
		if s.Amount, err = scanAmount(amount); err != nil {
			return nil, err
		}
		sweeps = append(sweeps, s)
	}
	return sweeps, rows.Err()
}
