package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"kosh/internal/core"
)

// The import parser is deliberately deterministic: straight regex
// extraction over bank-SMS text, one transaction per line. No external
// calls, so a dry run is always repeatable.

var (
	amountPattern = regexp.MustCompile(`(?i)(?:rs\.?|inr|₹|\$)\s*([0-9][0-9,]*(?:\.[0-9]+)?)|([0-9][0-9,]*(?:\.[0-9]+)?)\s*(?:rs\.?|inr|₹)`)
	datePatterns  = []struct {
		re     *regexp.Regexp
		layout string
	}{
		{regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`), "2006-01-02"},
		{regexp.MustCompile(`\b(\d{2}-\d{2}-\d{4})\b`), "02-01-2006"},
		{regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4})\b`), "02/01/2006"},
	}
	incomeMarkers = []string{"credited", "received", "refund", "deposited", "cashback"}
)

// categoryKeywords maps merchant hints to categories, checked in order.
var categoryKeywords = []struct {
	keyword  string
	category string
}{
	{"uber", "Transport"},
	{"ola", "Transport"},
	{"metro", "Transport"},
	{"fuel", "Transport"},
	{"petrol", "Transport"},
	{"swiggy", "Food"},
	{"zomato", "Food"},
	{"restaurant", "Food"},
	{"grocery", "Food"},
	{"groceries", "Food"},
	{"amazon", "Shopping"},
	{"flipkart", "Shopping"},
	{"myntra", "Shopping"},
	{"netflix", "Entertainment"},
	{"spotify", "Entertainment"},
	{"movie", "Entertainment"},
	{"electricity", "Utilities"},
	{"recharge", "Utilities"},
	{"broadband", "Utilities"},
	{"rent", "Housing"},
	{"salary", "Salary"},
	{"pharmacy", "Health"},
	{"hospital", "Health"},
}

// ParseStatementText extracts one transaction per line that carries a
// recognizable amount. Lines without an amount are skipped; text with
// no usable line at all is a validation error.
func ParseStatementText(userID int64, text string) ([]core.Transaction, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty import text", core.ErrValidation)
	}

	var parsed []core.Transaction
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		tx, ok := parseStatementLine(userID, line)
		if !ok {
			continue
		}
		parsed = append(parsed, tx)
	}

	if len(parsed) == 0 {
		return nil, fmt.Errorf("%w: no transactions recognized in import text", core.ErrValidation)
	}
	return parsed, nil
}

func parseStatementLine(userID int64, line string) (core.Transaction, bool) {
	m := amountPattern.FindStringSubmatch(line)
	if m == nil {
		return core.Transaction{}, false
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	// Commas in matched amounts are thousands separators; strip them
	// before the decimal parse.
	amount, err := core.ParsePositiveAmount(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return core.Transaction{}, false
	}

	return core.Transaction{
		UserID:      userID,
		Date:        parseLineDate(line),
		Description: truncate(line, 200),
		Category:    classifyLine(line),
		Amount:      amount,
		Type:        classifyType(line),
	}, true
}

func parseLineDate(line string) time.Time {
	for _, p := range datePatterns {
		if m := p.re.FindStringSubmatch(line); m != nil {
			if t, err := time.Parse(p.layout, m[1]); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Now().UTC()
}

func classifyType(line string) core.TransactionType {
	lower := strings.ToLower(line)
	for _, marker := range incomeMarkers {
		if strings.Contains(lower, marker) {
			return core.Income
		}
	}
	return core.Expense
}

func classifyLine(line string) string {
	lower := strings.ToLower(line)
	for _, k := range categoryKeywords {
		if strings.Contains(lower, k.keyword) {
			return k.category
		}
	}
	return "Other"
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
