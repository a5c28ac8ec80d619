package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// FriendSummary is the per-counterparty netting over a user's debts.
	FriendSummary struct {
		Name          string          `json:"name"`
		TotalLent     decimal.Decimal `json:"total_lent"`
		TotalBorrowed decimal.Decimal `json:"total_borrowed"`
		Net           decimal.Decimal `json:"net"`
		Count         int             `json:"count"`
		LastActivity  time.Time       `json:"last_activity"`
	}

	// DebtTotals are the user-wide aggregates across all counterparties.
	DebtTotals struct {
		TotalLent     decimal.Decimal `json:"total_lent"`
		TotalBorrowed decimal.Decimal `json:"total_borrowed"`
		NetBalance    decimal.Decimal `json:"net_balance"`
	}
)

// NetFriends groups debts by counterparty and nets each group.
// Settled records still count toward Count and LastActivity but are
// excluded from the lent/borrowed totals. The result is sorted by most
// recent activity, and is independent of the input order.
func NetFriends(debts []Debt) []FriendSummary {
	byName := make(map[string]*FriendSummary)
	for _, d := range debts {
		f, ok := byName[d.FriendName]
		if !ok {
			f = &FriendSummary{
				Name:          d.FriendName,
				TotalLent:     decimal.Zero,
				TotalBorrowed: decimal.Zero,
				LastActivity:  d.Date,
			}
			byName[d.FriendName] = f
		}
		if d.Date.After(f.LastActivity) {
			f.LastActivity = d.Date
		}
		if d.Status != DebtSettled {
			switch d.Type {
			case FriendOwesMe:
				f.TotalLent = f.TotalLent.Add(d.Amount)
			case IOweFriend:
				f.TotalBorrowed = f.TotalBorrowed.Add(d.Amount)
			}
		}
		f.Count++
	}

	friends := make([]FriendSummary, 0, len(byName))
	for _, f := range byName {
		f.Net = f.TotalLent.Sub(f.TotalBorrowed)
		friends = append(friends, *f)
	}
	sort.Slice(friends, func(i, j int) bool {
		if friends[i].LastActivity.Equal(friends[j].LastActivity) {
			return friends[i].Name < friends[j].Name
		}
		return friends[i].LastActivity.After(friends[j].LastActivity)
	})
	return friends
}

// SumDebts computes the user-wide lent/borrowed totals and net balance
// over non-settled debts.
func SumDebts(debts []Debt) DebtTotals {
	totals := DebtTotals{
		TotalLent:     decimal.Zero,
		TotalBorrowed: decimal.Zero,
	}
	for _, d := range debts {
		if d.Status == DebtSettled {
			continue
		}
		switch d.Type {
		case FriendOwesMe:
			totals.TotalLent = totals.TotalLent.Add(d.Amount)
		case IOweFriend:
			totals.TotalBorrowed = totals.TotalBorrowed.Add(d.Amount)
		}
	}
	totals.NetBalance = totals.TotalLent.Sub(totals.TotalBorrowed)
	return totals
}
