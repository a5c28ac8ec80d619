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

func (r *SQLiteRepository) ListDebts(ctx context.Context, userID int64) ([]core.Debt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, friend_name, type, amount, description, status, date
		 FROM debts WHERE user_id = ? ORDER BY date DESC, id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	defer rows.Close()

	debts := []core.Debt{}
	for rows.Next() {
		d, err := scanDebt(rows, userID)
		if err != nil {
			return nil, err
		}
		debts = append(debts, d)
	}
	return debts, rows.Err()
}

func (r *SQLiteRepository) CreateDebt(ctx context.Context, debt core.Debt) (core.Debt, error) {
	if debt.Date.IsZero() {
		debt.Date = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO debts (user_id, friend_name, type, amount, description, status, date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		debt.UserID, debt.FriendName, string(debt.Type), debt.Amount.String(),
		debt.Description, string(debt.Status), debt.Date.UTC().Format(time.RFC3339))
	if err != nil {
		return core.Debt{}, fmt.Errorf("create debt: %w", err)
	}
	if debt.ID, err = res.LastInsertId(); err != nil {
		return core.Debt{}, fmt.Errorf("debt id: %w", err)
	}

	slog.InfoContext(ctx, "Debt recorded",
		"id", debt.ID, "user_id", debt.UserID, "friend", debt.FriendName,
		"type", string(debt.Type), "amount", debt.Amount.String())
	return debt, nil
}

// SettleDebt applies a payment to a debt inside a transaction and
// returns the updated debt. Full payments flip the status to SETTLED.
func (r *SQLiteRepository) SettleDebt(ctx context.Context, debtID int64, payment decimal.Decimal) (core.Debt, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Debt{}, fmt.Errorf("begin settle tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT id, friend_name, type, amount, description, status, date, user_id
		 FROM debts WHERE id = ?`, debtID)
	d := core.Debt{}
	var typ, amount, status, date string
	err = row.Scan(&d.ID, &d.FriendName, &typ, &amount, &d.Description, &status, &date, &d.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Debt{}, core.ErrNotFound
	}
	if err != nil {
		return core.Debt{}, fmt.Errorf("load debt: %w", err)
	}
	d.Type = core.DebtDirection(typ)
	d.Status = core.DebtStatus(status)
	if d.Amount, err = scanAmount(amount); err != nil {
		return core.Debt{}, err
	}
	if d.Date, err = time.Parse(time.RFC3339, date); err != nil {
		return core.Debt{}, fmt.Errorf("parse debt date %q: %w", date, err)
	}

	settled, err := d.Settle(payment)
	if err != nil {
		return core.Debt{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE debts SET amount = ?, status = ? WHERE id = ?`,
		settled.Amount.String(), string(settled.Status), debtID); err != nil {
		return core.Debt{}, fmt.Errorf("update debt: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Debt{}, fmt.Errorf("commit settle: %w", err)
	}

	slog.InfoContext(ctx, "Debt payment applied",
		"id", debtID, "payment", payment.String(), "status", string(settled.Status))
	return settled, nil
}

func (r *SQLiteRepository) DeleteDebt(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM debts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete debt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete debt rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Debt deleted", "id", id)
	return nil
}

func scanDebt(row rowScanner, userID int64) (core.Debt, error) {
	d := core.Debt{UserID: userID}
	var typ, amount, status, date string
	if err := row.Scan(&d.ID, &d.FriendName, &typ, &amount, &d.Description, &status, &date); err != nil {
		return d, fmt.Errorf("scan debt: %w", err)
	}
	d.Type = core.DebtDirection(typ)
	d.Status = core.DebtStatus(status)
	var err error
	if d.Amount, err = scanAmount(amount); err != nil {
		return d, err
	}
	if d.Date, err = time.Parse(time.RFC3339, date); err != nil {
		return d, fmt.Errorf("parse debt date %q: %w", date, err)
	}
	return d, nil
}
