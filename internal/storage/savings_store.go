package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"kosh/internal/core"
)

func (r *SQLiteRepository) ListSavingsGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, target_amount, current_amount, created_at
		 FROM savings_goals WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	defer rows.Close()

	goals := []core.SavingsGoal{}
	for rows.Next() {
		g := core.SavingsGoal{UserID: userID}
		var target, current, created string
		if err := rows.Scan(&g.ID, &g.Name, &target, &current, &created); err != nil {
			return nil, fmt.Errorf("scan savings goal: %w", err)
		}
		if g.TargetAmount, err = scanAmount(target); err != nil {
			return nil, err
		}
		if g.CurrentAmount, err = scanAmount(current); err != nil {
			return nil, err
		}
		if g.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("parse goal created_at %q: %w", created, err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (r *SQLiteRepository) CreateSavingsGoal(ctx context.Context, goal core.SavingsGoal) (core.SavingsGoal, error) {
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO savings_goals (user_id, name, target_amount, current_amount, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		goal.UserID, goal.Name, goal.TargetAmount.String(), goal.CurrentAmount.String(),
		goal.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("create savings goal: %w", err)
	}
	if goal.ID, err = res.LastInsertId(); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("savings goal id: %w", err)
	}

	slog.InfoContext(ctx, "Savings goal created",
		"id", goal.ID, "user_id", goal.UserID, "name", goal.Name, "target", goal.TargetAmount.String())
	return goal, nil
}

// DepositToGoal applies a signed amount to a goal's balance inside a
// transaction. Negative amounts withdraw; the balance never drops
// below zero.
func (r *SQLiteRepository) DepositToGoal(ctx context.Context, goalID int64, amount decimal.Decimal) (core.SavingsGoal, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("begin deposit tx: %w", err)
	}
	defer tx.Rollback()

	g := core.SavingsGoal{ID: goalID}
	var target, current, created string
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, name, target_amount, current_amount, created_at
		 FROM savings_goals WHERE id = ?`, goalID).
		Scan(&g.UserID, &g.Name, &target, &current, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsGoal{}, core.ErrNotFound
	}
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("load savings goal: %w", err)
	}
	if g.TargetAmount, err = scanAmount(target); err != nil {
		return core.SavingsGoal{}, err
	}
	if g.CurrentAmount, err = scanAmount(current); err != nil {
		return core.SavingsGoal{}, err
	}
	if g.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("parse goal created_at %q: %w", created, err)
	}

	updated, err := g.ApplyDeposit(amount)
	if err != nil {
		return core.SavingsGoal{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE savings_goals SET current_amount = ? WHERE id = ?`,
		updated.CurrentAmount.String(), goalID); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("update goal balance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("commit deposit: %w", err)
	}

	slog.InfoContext(ctx, "Savings goal balance updated",
		"id", goalID, "amount", amount.String(), "balance", updated.CurrentAmount.String())
	return updated, nil
}

func (r *SQLiteRepository) DeleteSavingsGoal(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM savings_goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete savings goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete savings goal rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Savings goal deleted", "id", id)
	return nil
}
