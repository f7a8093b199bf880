package core

import (
	"testing"
)

func sampleExpenses() []Expense {
	return []Expense{
		{Note: "Lunch", Amount: Money{Cents: 25000}, Category: Food, Date: NewDate(2024, 5, 1)},
		{Note: "Taxi", Amount: Money{Cents: 15000}, Category: Travel, Date: NewDate(2024, 5, 1)},
		{Note: "Pharmacy", Amount: Money{Cents: 4200}, Category: Health, Date: NewDate(2024, 6, 3)},
	}
}

func TestTotalSpent(t *testing.T) {
	if got := TotalSpent(nil); got.Cents != 0 {
		t.Fatalf("empty input: want 0, got %d", got.Cents)
	}
	if got := TotalSpent(sampleExpenses()); got.Cents != 44200 {
		t.Fatalf("want 44200, got %d", got.Cents)
	}
}

func TestSummarizeByCategory(t *testing.T) {
	rows := SummarizeByCategory(sampleExpenses())
	if len(rows) != 3 {
		t.Fatalf("want 3 categories, got %d", len(rows))
	}
	want := map[Category]int64{Food: 25000, Travel: 15000, Health: 4200}
	for _, r := range rows {
		if want[r.Category] != r.Amount.Cents {
			t.Fatalf("category %s: want %d, got %d", r.Category, want[r.Category], r.Amount.Cents)
		}
	}
	// Unused categories are absent, not zero-valued.
	for _, r := range rows {
		if r.Category == Shopping || r.Category == Bills || r.Category == Other {
			t.Fatalf("category %s should be absent", r.Category)
		}
	}
}

func TestSummarizeByDay(t *testing.T) {
	rows := SummarizeByDay(sampleExpenses())
	if len(rows) != 2 {
		t.Fatalf("want 2 days, got %d", len(rows))
	}
	if !rows[0].Date.Equal(NewDate(2024, 5, 1)) || rows[0].Amount.Cents != 40000 {
		t.Fatalf("day 0 wrong: %v %d", rows[0].Date, rows[0].Amount.Cents)
	}
	if !rows[1].Date.Equal(NewDate(2024, 6, 3)) || rows[1].Amount.Cents != 4200 {
		t.Fatalf("day 1 wrong: %v %d", rows[1].Date, rows[1].Amount.Cents)
	}
}

func TestSummarizeByMonth(t *testing.T) {
	rows := SummarizeByMonth(sampleExpenses())
	if len(rows) != 2 {
		t.Fatalf("want 2 months, got %d", len(rows))
	}
	if rows[0].Label != "May 2024" || rows[0].Amount.Cents != 40000 {
		t.Fatalf("month 0 wrong: %+v", rows[0])
	}
	if rows[1].Label != "June 2024" || rows[1].Amount.Cents != 4200 {
		t.Fatalf("month 1 wrong: %+v", rows[1])
	}
}

// The three groupings must all conserve the overall total.
func TestAggregateConservation(t *testing.T) {
	exps := sampleExpenses()
	total := TotalSpent(exps).Cents

	var byCat int64
	for _, r := range SummarizeByCategory(exps) {
		byCat += r.Amount.Cents
	}
	var byDay int64
	for _, r := range SummarizeByDay(exps) {
		byDay += r.Amount.Cents
	}
	var byMonth int64
	for _, r := range SummarizeByMonth(exps) {
		byMonth += r.Amount.Cents
	}

	if byCat != total || byDay != total || byMonth != total {
		t.Fatalf("conservation violated: total=%d byCategory=%d byDay=%d byMonth=%d",
			total, byCat, byDay, byMonth)
	}
}

func TestFilterByKeyword(t *testing.T) {
	exps := sampleExpenses()

	lower := FilterByKeyword(exps, "taxi")
	upper := FilterByKeyword(exps, "TAXI")
	if len(lower) != 1 || len(upper) != 1 || lower[0].Note != upper[0].Note {
		t.Fatalf("search must be case-insensitive: %d vs %d", len(lower), len(upper))
	}

	if got := FilterByKeyword(exps, ""); len(got) != len(exps) {
		t.Fatalf("empty keyword must return full set, got %d", len(got))
	}
	if got := FilterByKeyword(exps, "  "); len(got) != len(exps) {
		t.Fatalf("blank keyword must return full set, got %d", len(got))
	}
	if got := FilterByKeyword(exps, "nothing-matches"); len(got) != 0 {
		t.Fatalf("want empty result, got %d", len(got))
	}
}
