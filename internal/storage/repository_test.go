package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kosh/internal/core"
	"kosh/internal/events"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "kosh_test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func configureBudget(t *testing.T, repo *SQLiteRepository, userID int64, income, savings string) {
	t.Helper()
	err := repo.SaveBudgetConfig(context.Background(), core.BudgetConfig{
		UserID:        userID,
		MonthlyIncome: dec(t, income),
		TargetSavings: dec(t, savings),
		IsConfigured:  true,
	})
	if err != nil {
		t.Fatalf("SaveBudgetConfig() error = %v", err)
	}
}

func addExpense(t *testing.T, repo *SQLiteRepository, userID int64, date time.Time, amount string) {
	t.Helper()
	_, err := repo.CreateTransaction(context.Background(), core.Transaction{
		UserID:      userID,
		Date:        date,
		Description: "groceries",
		Category:    "Food",
		Amount:      dec(t, amount),
		Type:        core.Expense,
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
}

func TestBudgetConfigRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cfg, err := repo.GetBudgetConfig(ctx, 1)
	if err != nil {
		t.Fatalf("GetBudgetConfig() error = %v", err)
	}
	if cfg.IsConfigured {
		t.Error("fresh user should not be configured")
	}

	configureBudget(t, repo, 1, "50000", "10000")

	cfg, err = repo.GetBudgetConfig(ctx, 1)
	if err != nil {
		t.Fatalf("GetBudgetConfig() error = %v", err)
	}
	if !cfg.IsConfigured {
		t.Fatal("user should be configured after save")
	}
	if !cfg.MonthlyIncome.Equal(dec(t, "50000")) {
		t.Errorf("MonthlyIncome = %s, want 50000", cfg.MonthlyIncome)
	}

	// Reconfiguring overwrites in place.
	configureBudget(t, repo, 1, "60000", "12000")
	cfg, _ = repo.GetBudgetConfig(ctx, 1)
	if !cfg.MonthlyIncome.Equal(dec(t, "60000")) {
		t.Errorf("after reconfigure MonthlyIncome = %s, want 60000", cfg.MonthlyIncome)
	}
}

func TestSweepSurplusAndUndo(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	day := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	// income 50000, savings 10000 -> daily limit 40000/30
	configureBudget(t, repo, 1, "50000", "10000")
	addExpense(t, repo, 1, day, "800")

	snap, err := repo.BudgetSnapshot(ctx, 1, day)
	if err != nil {
		t.Fatalf("BudgetSnapshot() error = %v", err)
	}
	wantSurplus := dec(t, "40000").Div(decimal.NewFromInt(30)).Sub(dec(t, "800"))
	if !snap.Surplus.Equal(wantSurplus) {
		t.Fatalf("Surplus = %s, want %s", snap.Surplus, wantSurplus)
	}

	sweep, err := repo.SweepSurplus(ctx, 1, day, dec(t, "533"))
	if err != nil {
		t.Fatalf("SweepSurplus() error = %v", err)
	}
	if sweep.Date != "2025-03-10" {
		t.Errorf("sweep date = %q, want 2025-03-10", sweep.Date)
	}

	// The sweep counts as usage, shrinking both surplus and the month's
	// swept total is credited to savings.
	snap, _ = repo.BudgetSnapshot(ctx, 1, day)
	if !snap.SavingsThisMonth.Equal(dec(t, "533")) {
		t.Errorf("SavingsThisMonth = %s, want 533", snap.SavingsThisMonth)
	}
	if !snap.UsedToday.Equal(dec(t, "1333")) {
		t.Errorf("UsedToday = %s, want 1333", snap.UsedToday)
	}

	if err := repo.UndoSweep(ctx, 1, day); err != nil {
		t.Fatalf("UndoSweep() error = %v", err)
	}
	snap, _ = repo.BudgetSnapshot(ctx, 1, day)
	if !snap.SavingsThisMonth.IsZero() {
		t.Errorf("after undo SavingsThisMonth = %s, want 0", snap.SavingsThisMonth)
	}
	if !snap.Surplus.Equal(wantSurplus) {
		t.Errorf("after undo Surplus = %s, want %s", snap.Surplus, wantSurplus)
	}
}

func TestSweepSurplusRejectsOverdraw(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	day := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	configureBudget(t, repo, 1, "30000", "0") // daily limit 1000
	addExpense(t, repo, 1, day, "900")

	if _, err := repo.SweepSurplus(ctx, 1, day, dec(t, "200")); !errors.Is(err, core.ErrInsufficientSurplus) {
		t.Fatalf("SweepSurplus() error = %v, want ErrInsufficientSurplus", err)
	}

	// The failed attempt must leave no sweep behind.
	snap, err := repo.BudgetSnapshot(ctx, 1, day)
	if err != nil {
		t.Fatalf("BudgetSnapshot() error = %v", err)
	}
	if len(snap.Sweeps) != 0 {
		t.Errorf("failed sweep left %d rows behind", len(snap.Sweeps))
	}
}

func TestSweepSurplusUnconfigured(t *testing.T) {
	repo := newTestRepo(t)
	day := time.Now().UTC()

	_, err := repo.SweepSurplus(context.Background(), 1, day, dec(t, "10"))
	if !errors.Is(err, core.ErrNotConfigured) {
		t.Fatalf("SweepSurplus() error = %v, want ErrNotConfigured", err)
	}
}

func TestUndoSweepLIFOAndCrossDay(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	monday := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)

	configureBudget(t, repo, 1, "60000", "0") // daily limit 2000
	first, _ := repo.SweepSurplus(ctx, 1, monday, dec(t, "300"))
	second, _ := repo.SweepSurplus(ctx, 1, monday, dec(t, "400"))
	if second.ID <= first.ID {
		t.Fatalf("sweep IDs not increasing: %d then %d", first.ID, second.ID)
	}

	// Tuesday has no sweep; Monday's must not be reachable from Tuesday.
	if err := repo.UndoSweep(ctx, 1, tuesday); !errors.Is(err, core.ErrNoSweepToUndo) {
		t.Fatalf("cross-day UndoSweep() error = %v, want ErrNoSweepToUndo", err)
	}

	// LIFO: the second sweep goes first.
	if err := repo.UndoSweep(ctx, 1, monday); err != nil {
		t.Fatalf("UndoSweep() error = %v", err)
	}
	snap, _ := repo.BudgetSnapshot(ctx, 1, monday)
	if len(snap.Sweeps) != 1 || !snap.Sweeps[0].Amount.Equal(dec(t, "300")) {
		t.Fatalf("after first undo sweeps = %+v, want only the 300 sweep", snap.Sweeps)
	}

	if err := repo.UndoSweep(ctx, 1, monday); err != nil {
		t.Fatalf("UndoSweep() error = %v", err)
	}
	if err := repo.UndoSweep(ctx, 1, monday); !errors.Is(err, core.ErrNoSweepToUndo) {
		t.Fatalf("empty-day UndoSweep() error = %v, want ErrNoSweepToUndo", err)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	march := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	april := time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC)

	seed := []core.Transaction{
		{UserID: 1, Date: march, Description: "Weekly groceries", Category: "Food", Amount: dec(t, "450"), Type: core.Expense},
		{UserID: 1, Date: march.AddDate(0, 0, 1), Description: "Metro card", Category: "Transport", Amount: dec(t, "200"), Type: core.Expense},
		{UserID: 1, Date: april, Description: "Salary", Category: "Salary", Amount: dec(t, "50000"), Type: core.Income},
		{UserID: 2, Date: march, Description: "Someone else's coffee", Category: "Food", Amount: dec(t, "80"), Type: core.Expense},
	}
	for _, tx := range seed {
		if _, err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction() error = %v", err)
		}
	}

	all, err := repo.ListTransactions(ctx, 1, TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d transactions, want 3", len(all))
	}
	if all[0].Description != "Salary" {
		t.Errorf("newest first: got %q, want Salary", all[0].Description)
	}

	food, _ := repo.ListTransactions(ctx, 1, TransactionFilter{Category: "Food"})
	if len(food) != 1 || food[0].Description != "Weekly groceries" {
		t.Errorf("category filter got %+v", food)
	}

	search, _ := repo.ListTransactions(ctx, 1, TransactionFilter{Search: "metro"})
	if len(search) != 1 || search[0].Category != "Transport" {
		t.Errorf("search filter got %+v", search)
	}

	monthOnly, _ := repo.ListTransactions(ctx, 1, TransactionFilter{Month: "2025-03"})
	if len(monthOnly) != 2 {
		t.Errorf("month filter got %d, want 2", len(monthOnly))
	}
}

func TestDeleteTransactionNotFound(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.DeleteTransaction(context.Background(), 9999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("DeleteTransaction() error = %v, want ErrNotFound", err)
	}
}

func TestCreateTransactionsBatchAtomic(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	day := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

	batch := []core.Transaction{
		{UserID: 1, Date: day, Description: "Lunch", Category: "Food", Amount: dec(t, "120"), Type: core.Expense},
		{UserID: 1, Date: day, Description: "Taxi", Category: "Transport", Amount: dec(t, "250"), Type: core.Expense},
	}
	out, err := repo.CreateTransactionsBatch(ctx, batch)
	if err != nil {
		t.Fatalf("CreateTransactionsBatch() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d inserted, want 2", len(out))
	}
	for _, tx := range out {
		if tx.ID == 0 {
			t.Error("batch insert should assign IDs")
		}
	}
}

func TestCategoryBreakdown(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	day := time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC)

	addExpense(t, repo, 1, day, "300")
	addExpense(t, repo, 1, day, "150")
	_, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID: 1, Date: day, Description: "Bus", Category: "Transport",
		Amount: dec(t, "600"), Type: core.Expense,
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	// Income must not show up in the expense breakdown.
	repo.CreateTransaction(ctx, core.Transaction{
		UserID: 1, Date: day, Description: "Salary", Category: "Salary",
		Amount: dec(t, "50000"), Type: core.Income,
	})

	breakdown, err := repo.CategoryBreakdown(ctx, 1, "2025-03")
	if err != nil {
		t.Fatalf("CategoryBreakdown() error = %v", err)
	}
	if len(breakdown) != 2 {
		t.Fatalf("got %d categories, want 2", len(breakdown))
	}
	if breakdown[0].Name != "Transport" || !breakdown[0].Value.Equal(dec(t, "600")) {
		t.Errorf("top category = %+v, want Transport 600", breakdown[0])
	}
	if breakdown[1].Name != "Food" || breakdown[1].Count != 2 {
		t.Errorf("second category = %+v, want Food with count 2", breakdown[1])
	}
}

func TestMonthTotals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	day := time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC)

	addExpense(t, repo, 1, day, "0.1")
	addExpense(t, repo, 1, day, "0.2")
	repo.CreateTransaction(ctx, core.Transaction{
		UserID: 1, Date: day, Description: "Salary", Category: "Salary",
		Amount: dec(t, "50000"), Type: core.Income,
	})

	income, expenses, err := repo.MonthTotals(ctx, 1, "2025-03")
	if err != nil {
		t.Fatalf("MonthTotals() error = %v", err)
	}
	if !income.Equal(dec(t, "50000")) {
		t.Errorf("income = %s, want 50000", income)
	}
	// Exact decimal: 0.1 + 0.2 is 0.3, not 0.30000000000000004.
	if !expenses.Equal(dec(t, "0.3")) {
		t.Errorf("expenses = %s, want 0.3", expenses)
	}
}

func TestTrendSeriesBuckets(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	addExpense(t, repo, 1, now, "100")
	addExpense(t, repo, 1, now.AddDate(0, 0, -3), "50")
	addExpense(t, repo, 1, now.AddDate(0, 0, -10), "999") // outside the week window

	points, err := repo.TrendSeries(ctx, 1, "week", now)
	if err != nil {
		t.Fatalf("TrendSeries() error = %v", err)
	}
	if len(points) != 7 {
		t.Fatalf("week series has %d points, want 7", len(points))
	}
	if points[6].Label != "2025-03-10" || !points[6].Expenses.Equal(dec(t, "100")) {
		t.Errorf("last point = %+v, want 2025-03-10 with 100", points[6])
	}
	if !points[3].Expenses.Equal(dec(t, "50")) {
		t.Errorf("day -3 point = %+v, want 50", points[3])
	}
	for _, p := range points {
		if p.Expenses.Equal(dec(t, "999")) {
			t.Error("out-of-window expense leaked into the series")
		}
	}

	year, err := repo.TrendSeries(ctx, 1, "year", now)
	if err != nil {
		t.Fatalf("TrendSeries(year) error = %v", err)
	}
	if len(year) != 12 {
		t.Fatalf("year series has %d points, want 12", len(year))
	}
	if year[11].Label != "2025-03" {
		t.Errorf("last year bucket = %q, want 2025-03", year[11].Label)
	}
}

func TestSavingsGoalLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	goal, err := repo.CreateSavingsGoal(ctx, core.SavingsGoal{
		UserID:        1,
		Name:          "Emergency fund",
		TargetAmount:  dec(t, "100000"),
		CurrentAmount: decimal.Zero,
	})
	if err != nil {
		t.Fatalf("CreateSavingsGoal() error = %v", err)
	}

	updated, err := repo.DepositToGoal(ctx, goal.ID, dec(t, "2500"))
	if err != nil {
		t.Fatalf("DepositToGoal() error = %v", err)
	}
	if !updated.CurrentAmount.Equal(dec(t, "2500")) {
		t.Errorf("balance = %s, want 2500", updated.CurrentAmount)
	}

	// Withdrawals are negative deposits; going below zero is rejected.
	if _, err := repo.DepositToGoal(ctx, goal.ID, dec(t, "-3000")); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("overdraw error = %v, want ErrInvalidAmount", err)
	}
	updated, err = repo.DepositToGoal(ctx, goal.ID, dec(t, "-500"))
	if err != nil {
		t.Fatalf("withdraw error = %v", err)
	}
	if !updated.CurrentAmount.Equal(dec(t, "2000")) {
		t.Errorf("balance after withdraw = %s, want 2000", updated.CurrentAmount)
	}

	if err := repo.DeleteSavingsGoal(ctx, goal.ID); err != nil {
		t.Fatalf("DeleteSavingsGoal() error = %v", err)
	}
	if _, err := repo.DepositToGoal(ctx, goal.ID, dec(t, "1")); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("deposit to deleted goal error = %v, want ErrNotFound", err)
	}
}

func TestSettleDebtPartialAndFull(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	debt, err := repo.CreateDebt(ctx, core.Debt{
		UserID:     1,
		FriendName: "Alice",
		Type:       core.FriendOwesMe,
		Amount:     dec(t, "1000"),
		Status:     core.DebtUnpaid,
		Date:       time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateDebt() error = %v", err)
	}

	partial, err := repo.SettleDebt(ctx, debt.ID, dec(t, "400"))
	if err != nil {
		t.Fatalf("SettleDebt() error = %v", err)
	}
	if partial.Status != core.DebtPartiallyPaid || !partial.Amount.Equal(dec(t, "600")) {
		t.Errorf("after partial: %+v, want PARTIALLY_PAID 600", partial)
	}

	if _, err := repo.SettleDebt(ctx, debt.ID, dec(t, "700")); !errors.Is(err, core.ErrOverpayment) {
		t.Fatalf("overpayment error = %v, want ErrOverpayment", err)
	}

	full, err := repo.SettleDebt(ctx, debt.ID, dec(t, "600"))
	if err != nil {
		t.Fatalf("SettleDebt() error = %v", err)
	}
	if full.Status != core.DebtSettled || !full.Amount.IsZero() {
		t.Errorf("after full: %+v, want SETTLED 0", full)
	}

	if _, err := repo.SettleDebt(ctx, 9999, dec(t, "1")); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing debt error = %v, want ErrNotFound", err)
	}
}

func TestAppendLedgerEventIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	event := events.NewLedgerEvent(1, events.KindSurplusSwept, dec(t, "533"), "2025-03-10")
	if err := repo.AppendLedgerEvent(ctx, event); err != nil {
		t.Fatalf("AppendLedgerEvent() error = %v", err)
	}
	// Redelivery of the same event must be a no-op.
	if err := repo.AppendLedgerEvent(ctx, event); err != nil {
		t.Fatalf("duplicate AppendLedgerEvent() error = %v", err)
	}

	list, err := repo.ListLedgerEvents(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListLedgerEvents() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d events, want 1", len(list))
	}
	if list[0].EventID != event.EventID || !list[0].Amount.Equal(dec(t, "533")) {
		t.Errorf("stored event = %+v", list[0])
	}
}
