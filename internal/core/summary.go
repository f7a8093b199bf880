package core

import (
	"sort"
	"strings"
	"time"
)

// CategoryAmount is an amount aggregated under one category.
type CategoryAmount struct {
	Category Category
	Amount   Money
}

// DayAmount is an amount aggregated under one calendar date.
type DayAmount struct {
	Date   time.Time
	Amount Money
}

// MonthAmount is an amount aggregated under one month label ("May 2024").
type MonthAmount struct {
	Label  string
	Amount Money
}

// TotalSpent sums every expense amount.
func TotalSpent(expenses []Expense) Money {
	var cents int64
	for _, e := range expenses {
		cents += e.Amount.Cents
	}
	return Money{Cents: cents}
}

// SummarizeByCategory groups amounts by category. Categories with no
// matching expense are absent rather than zero-valued. Result order follows
// the fixed category list.
func SummarizeByCategory(expenses []Expense) []CategoryAmount {
	totals := make(map[Category]int64)
	for _, e := range expenses {
		totals[e.Category] += e.Amount.Cents
	}
	out := make([]CategoryAmount, 0, len(totals))
	for _, c := range Categories {
		if cents, ok := totals[c]; ok {
			out = append(out, CategoryAmount{Category: c, Amount: Money{Cents: cents}})
		}
	}
	return out
}

// SummarizeByDay groups amounts by calendar date, ascending.
func SummarizeByDay(expenses []Expense) []DayAmount {
	totals := make(map[time.Time]int64)
	for _, e := range expenses {
		totals[DateOnly(e.Date)] += e.Amount.Cents
	}
	out := make([]DayAmount, 0, len(totals))
	for d, cents := range totals {
		out = append(out, DayAmount{Date: d, Amount: Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// SummarizeByMonth groups amounts by month, labelled "January 2006", in
// first-occurrence order. Date-ordered input yields chronological output.
func SummarizeByMonth(expenses []Expense) []MonthAmount {
	totals := make(map[string]int64)
	var order []string
	for _, e := range expenses {
		label := e.Date.Format("January 2006")
		if _, seen := totals[label]; !seen {
			order = append(order, label)
		}
		totals[label] += e.Amount.Cents
	}
	out := make([]MonthAmount, 0, len(order))
	for _, label := range order {
		out = append(out, MonthAmount{Label: label, Amount: Money{Cents: totals[label]}})
	}
	return out
}

// FilterByKeyword returns the expenses whose note contains the keyword,
// case-insensitively. An empty keyword returns the input unchanged.
func FilterByKeyword(expenses []Expense, keyword string) []Expense {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return expenses
	}
	var out []Expense
	for _, e := range expenses {
		if strings.Contains(strings.ToLower(e.Note), keyword) {
			out = append(out, e)
		}
	}
	return out
}
