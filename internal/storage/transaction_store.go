package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"kosh/internal/core"
)

// TransactionFilter narrows ListTransactions. Zero values match all.
type TransactionFilter struct {
	Search   string
	Category string
	Month    string // YYYY-MM
}

// TrendPoint is one bucket of the dashboard trend series.
type TrendPoint struct {
	Label    string          `json:"label"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, date, description, category, amount, type)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tx.UserID, tx.Date.UTC().Format(time.RFC3339), tx.Description, tx.Category, tx.Amount.String(), string(tx.Type))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	if tx.ID, err = res.LastInsertId(); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", tx.ID, "user_id", tx.UserID, "type", string(tx.Type),
		"category", tx.Category, "amount", tx.Amount.String())
	return tx, nil
}

// CreateTransactionsBatch persists all rows or none of them. Used by
// the magic import once parsing succeeds.
func (r *SQLiteRepository) CreateTransactionsBatch(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin import tx: %w", err)
	}
	defer dbTx.Rollback()

	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		res, err := dbTx.ExecContext(ctx,
			`INSERT INTO transactions (user_id, date, description, category, amount, type)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			t.UserID, t.Date.UTC().Format(time.RFC3339), t.Description, t.Category, t.Amount.String(), string(t.Type))
		if err != nil {
			return nil, fmt.Errorf("insert imported transaction: %w", err)
		}
		if t.ID, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("imported transaction id: %w", err)
		}
		out = append(out, t)
	}
	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Transactions imported", "count", len(out))
	return out, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64, filter TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT id, date, description, category, amount, type FROM transactions WHERE user_id = ?`
	args := []any{userID}

	if filter.Search != "" {
		query += ` AND (description LIKE ? OR category LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.Month != "" {
		query += ` AND substr(date, 1, 7) = ?`
		args = append(args, filter.Month)
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows, userID)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// CategoryBreakdown aggregates expense totals and counts per category
// for a month, descending by total.
func (r *SQLiteRepository) CategoryBreakdown(ctx context.Context, userID int64, month string) ([]core.CategoryBreakdown, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, amount FROM transactions
		 WHERE user_id = ? AND type = 'Expense' AND substr(date, 1, 7) = ?`,
		userID, month)
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]*core.CategoryBreakdown)
	for rows.Next() {
		var category, amount string
		if err := rows.Scan(&category, &amount); err != nil {
			return nil, fmt.Errorf("scan breakdown row: %w", err)
		}
		d, err := scanAmount(amount)
		if err != nil {
			return nil, err
		}
		c, ok := totals[category]
		if !ok {
			c = &core.CategoryBreakdown{Name: category, Value: decimal.Zero}
			totals[category] = c
		}
		c.Value = c.Value.Add(d)
		c.Count++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	breakdown := make([]core.CategoryBreakdown, 0, len(totals))
	for _, c := range totals {
		breakdown = append(breakdown, *c)
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Value.Equal(breakdown[j].Value) {
			return breakdown[i].Name < breakdown[j].Name
		}
		return breakdown[i].Value.GreaterThan(breakdown[j].Value)
	})
	return breakdown, nil
}

// MonthTotals returns the income and expense sums for a month.
func (r *SQLiteRepository) MonthTotals(ctx context.Context, userID int64, month string) (income, expenses decimal.Decimal, err error) {
	income, expenses = decimal.Zero, decimal.Zero

	rows, err := r.db.QueryContext(ctx,
		`SELECT type, amount FROM transactions WHERE user_id = ? AND substr(date, 1, 7) = ?`,
		userID, month)
	if err != nil {
		return income, expenses, fmt.Errorf("month totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var typ, amount string
		if err := rows.Scan(&typ, &amount); err != nil {
			return income, expenses, fmt.Errorf("scan month total row: %w", err)
		}
		d, err := scanAmount(amount)
		if err != nil {
			return income, expenses, err
		}
		if core.TransactionType(typ) == core.Income {
			income = income.Add(d)
		} else {
			expenses = expenses.Add(d)
		}
	}
	return income, expenses, rows.Err()
}

// TrendSeries buckets income/expenses over a trailing window: daily for
// "week" (7 days) and "month" (30 days), monthly for "year" (12 months).
func (r *SQLiteRepository) TrendSeries(ctx context.Context, userID int64, period string, now time.Time) ([]TrendPoint, error) {
	var (
		buckets []string
		keyLen  int
	)
	switch period {
	case "week":
		keyLen = 10
		for i := 6; i >= 0; i-- {
			buckets = append(buckets, core.DayKey(now.AddDate(0, 0, -i)))
		}
	case "year":
		keyLen = 7
		for i := 11; i >= 0; i-- {
			buckets = append(buckets, core.MonthKey(now.AddDate(0, -i, 0)))
		}
	default: // month
		keyLen = 10
		for i := 29; i >= 0; i-- {
			buckets = append(buckets, core.DayKey(now.AddDate(0, 0, -i)))
		}
	}
	since := buckets[0]
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT substr(date, 1, %d), type, amount FROM transactions
		 WHERE user_id = ? AND substr(date, 1, %d) >= ?`, keyLen, keyLen),
		userID, since)
	if err != nil {
		return nil, fmt.Errorf("trend series: %w", err)
	}
	defer rows.Close()

	byKey := make(map[string]*TrendPoint, len(buckets))
	points := make([]TrendPoint, len(buckets))
	for i, key := range buckets {
		points[i] = TrendPoint{Label: key, Income: decimal.Zero, Expenses: decimal.Zero}
		byKey[key] = &points[i]
	}

	for rows.Next() {
		var key, typ, amount string
		if err := rows.Scan(&key, &typ, &amount); err != nil {
			return nil, fmt.Errorf("scan trend row: %w", err)
		}
		p, ok := byKey[key]
		if !ok {
			continue
		}
		d, err := scanAmount(amount)
		if err != nil {
			return nil, err
		}
		if core.TransactionType(typ) == core.Income {
			p.Income = p.Income.Add(d)
		} else {
			p.Expenses = p.Expenses.Add(d)
		}
	}
	return points, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner, userID int64) (core.Transaction, error) {
	t := core.Transaction{UserID: userID}
	var date, amount, typ string
	if err := row.Scan(&t.ID, &date, &t.Description, &t.Category, &amount, &typ); err != nil {
		return t, fmt.Errorf("scan transaction: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339, date)
	if err != nil {
		return t, fmt.Errorf("parse transaction date %q: %w", date, err)
	}
	t.Date = parsed
	if t.Amount, err = scanAmount(amount); err != nil {
		return t, err
	}
	t.Type = core.TransactionType(typ)
	return t, nil
}
