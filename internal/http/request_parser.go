package http

import (
	"net/http"
	"strings"
	"time"

	"expensify/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// RequireMethod checks if the request method matches one of the expected
// methods. Returns an error response builder on mismatch, nil otherwise.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// ParseFormOrFail parses the request form and returns an error response on
// failure. Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}

// parseExpenseForm builds an expense from the posted form values. The date
// defaults to today when absent, the time of day is always server-side.
func parseExpenseForm(r *http.Request) (core.Expense, *HTMXResponseBuilder) {
	note := sanitizeInput(r.Form.Get("note"))
	amountStr := strings.TrimSpace(r.Form.Get("amount"))
	category := core.Category(sanitizeInput(r.Form.Get("category")))

	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		return core.Expense{}, UnprocessableEntityError("Enter a positive amount, like 250.00")
	}

	now := time.Now()
	date := core.NewDate(now.Year(), int(now.Month()), now.Day())
	if v := strings.TrimSpace(r.Form.Get("date")); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return core.Expense{}, UnprocessableEntityError("Enter the date as YYYY-MM-DD")
		}
		date = core.DateOnly(parsed)
	}

	expense := core.Expense{
		Note:      note,
		Amount:    core.Money{Cents: cents},
		Category:  category,
		Date:      date,
		TimeOfDay: now.Format("15:04:05"),
	}
	if err := expense.Validate(); err != nil {
		return core.Expense{}, UnprocessableEntityError("Invalid data: " + err.Error())
	}
	return expense, nil
}
