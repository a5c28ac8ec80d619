package services

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"kosh/internal/core"
)

func TestParseStatementText(t *testing.T) {
	text := `Sent Rs. 350 to Uber via UPI on 22-10-2023
Rs. 1,250.50 debited for Swiggy order
Salary of Rs. 50000 credited on 2023-10-01
just some chatter with no money in it`

	parsed, err := ParseStatementText(7, text)
	if err != nil {
		t.Fatalf("ParseStatementText() error = %v", err)
	}
	if len(parsed) != 3 {
		t.Fatalf("parsed %d transactions, want 3", len(parsed))
	}

	uber := parsed[0]
	if !uber.Amount.Equal(decimal.RequireFromString("350")) {
		t.Errorf("uber amount = %s, want 350", uber.Amount)
	}
	if uber.Category != "Transport" {
		t.Errorf("uber category = %q, want Transport", uber.Category)
	}
	if uber.Type != core.Expense {
		t.Errorf("uber type = %q, want Expense", uber.Type)
	}
	wantDate := time.Date(2023, 10, 22, 0, 0, 0, 0, time.UTC)
	if !uber.Date.Equal(wantDate) {
		t.Errorf("uber date = %v, want %v", uber.Date, wantDate)
	}

	swiggy := parsed[1]
	if !swiggy.Amount.Equal(decimal.RequireFromString("1250.50")) {
		t.Errorf("swiggy amount = %s, want 1250.50", swiggy.Amount)
	}
	if swiggy.Category != "Food" {
		t.Errorf("swiggy category = %q, want Food", swiggy.Category)
	}

	salary := parsed[2]
	if salary.Type != core.Income {
		t.Errorf("salary type = %q, want Income", salary.Type)
	}
	if salary.Category != "Salary" {
		t.Errorf("salary category = %q, want Salary", salary.Category)
	}
	if salary.Date.Day() != 1 || salary.Date.Month() != time.October {
		t.Errorf("salary date = %v, want 2023-10-01", salary.Date)
	}

	for _, tx := range parsed {
		if tx.UserID != 7 {
			t.Errorf("UserID = %d, want 7", tx.UserID)
		}
		if err := tx.Validate(); err != nil {
			t.Errorf("parsed transaction fails validation: %v", err)
		}
	}
}

func TestParseStatementTextRejectsEmpty(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t  "},
		{"no amounts", "hello there\nno money in this one"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseStatementText(1, tt.text); !errors.Is(err, core.ErrValidation) {
				t.Errorf("ParseStatementText() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestParseStatementLineDefaults(t *testing.T) {
	tx, ok := parseStatementLine(1, "Paid Rs. 99 somewhere unmemorable")
	if !ok {
		t.Fatal("line with amount should parse")
	}
	if tx.Category != "Other" {
		t.Errorf("category = %q, want Other", tx.Category)
	}
	// No date in the line: defaults to now.
	if time.Since(tx.Date) > time.Minute {
		t.Errorf("date should default to now, got %v", tx.Date)
	}
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	// "Rs. 1200 " is 9 bytes, so the 200-byte cut lands mid-rune in the
	// ₹ run that follows.
	line := "Rs. 1200 " + strings.Repeat("₹", 100)
	tx, ok := parseStatementLine(1, line)
	if !ok {
		t.Fatal("line with amount should parse")
	}
	if len(tx.Description) > 200 {
		t.Errorf("description is %d bytes, want at most 200", len(tx.Description))
	}
	if !utf8.ValidString(tx.Description) {
		t.Error("truncated description must remain valid UTF-8")
	}

	if got := truncate("short", 200); got != "short" {
		t.Errorf("truncate(short) = %q, want unchanged", got)
	}
	if got := truncate("aé", 2); got != "a" {
		t.Errorf("truncate(aé, 2) = %q, want %q", got, "a")
	}
}

func TestClassifyType(t *testing.T) {
	tests := []struct {
		line string
		want core.TransactionType
	}{
		{"Rs. 500 credited to your account", core.Income},
		{"Refund of Rs. 120 processed", core.Income},
		{"Cashback Rs. 30 received", core.Income},
		{"Sent Rs. 350 to Uber", core.Expense},
		{"Rs. 1000 debited", core.Expense},
	}

	for _, tt := range tests {
		if got := classifyType(tt.line); got != tt.want {
			t.Errorf("classifyType(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}
