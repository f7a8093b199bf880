package http

import (
	"context"
	"log/slog"
	"net/http"

	"expensify/internal/core"
)

// summaryView holds the aggregated dashboard data for one user.
type summaryView struct {
	Total      core.Money
	ByCategory []core.CategoryAmount
	ByDay      []core.DayAmount
	ByMonth    []core.MonthAmount
}

func (s *Server) invalidateSummary(email string) {
	s.summaryCache.Delete(email)
}

func (s *Server) getSummary(ctx context.Context, email string) (summaryView, error) {
	if view, found := s.summaryCache.Get(email); found {
		slog.DebugContext(ctx, "Summary cache hit", "user", email)
		return view, nil
	}

	items, err := s.expenses.ListExpenses(ctx, email)
	if err != nil {
		return summaryView{}, err
	}

	view := summaryView{
		Total:      core.TotalSpent(items),
		ByCategory: core.SummarizeByCategory(items),
		ByDay:      core.SummarizeByDay(items),
		ByMonth:    core.SummarizeByMonth(items),
	}
	s.summaryCache.Set(email, view)
	return view, nil
}

// handleSummary renders the aggregate partial. The by parameter selects the
// grouping: category (default), day or month.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	account, _ := currentAccount(r.Context())
	groupBy := r.URL.Query().Get("by")
	switch groupBy {
	case "day", "month":
	default:
		groupBy = "category"
	}

	view, err := s.getSummary(r.Context(), account.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary query failed",
			"error", err, "user", account.Email)
		_, _ = w.Write([]byte(`<div class="placeholder">Error loading summary</div>`))
		return
	}

	type row struct {
		Label  string
		Amount string
		Width  int
	}
	data := struct {
		GroupBy string
		Total   string
		Rows    []row
	}{
		GroupBy: groupBy,
		Total:   view.Total.String(),
	}

	var labels []string
	var cents []int64
	switch groupBy {
	case "day":
		for _, d := range view.ByDay {
			labels = append(labels, d.Date.Format("2006-01-02"))
			cents = append(cents, d.Amount.Cents)
		}
	case "month":
		for _, m := range view.ByMonth {
			labels = append(labels, m.Label)
			cents = append(cents, m.Amount.Cents)
		}
	default:
		for _, c := range view.ByCategory {
			labels = append(labels, string(c.Category))
			cents = append(cents, c.Amount.Cents)
		}
	}

	var maxCents int64
	for _, c := range cents {
		if c > maxCents {
			maxCents = c
		}
	}
	for i, label := range labels {
		data.Rows = append(data.Rows, row{
			Label:  label,
			Amount: core.Money{Cents: cents[i]}.String(),
			Width:  barWidth(cents[i], maxCents),
		})
	}

	if err := s.templates.ExecuteTemplate(w, "summary.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Summary template execution failed", "error", err)
		_, _ = w.Write([]byte(`<div class="placeholder">Error rendering summary</div>`))
	}
}

// barWidth converts an amount into a rounded percentage of the largest
// amount, keeping very small values visible.
func barWidth(cents, maxCents int64) int {
	if maxCents <= 0 || cents <= 0 {
		return 0
	}
	width := int((cents*100 + maxCents/2) / maxCents)
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}
