package http

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"strings"

	"expensify/internal/core"
)

// handleExportCSV streams the user's ledger as a CSV download. The optional
// q parameter exports the same filtered view the ledger partial shows.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	account, _ := currentAccount(r.Context())
	keyword := strings.TrimSpace(r.URL.Query().Get("q"))

	items, err := s.expenses.ListExpenses(r.Context(), account.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Export query failed",
			"error", err, "user", account.Email)
		http.Error(w, "error exporting expenses", http.StatusInternalServerError)
		return
	}
	items = core.FilterByKeyword(items, keyword)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Note", "Amount", "Category", "Date", "Time"})
	for _, e := range items {
		_ = cw.Write([]string{
			e.Note,
			e.Amount.String(),
			string(e.Category),
			e.Date.Format("2006-01-02"),
			e.TimeOfDay,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.ErrorContext(r.Context(), "Export write failed",
			"error", err, "user", account.Email)
	}

	slog.InfoContext(r.Context(), "Ledger exported",
		"user", account.Email, "rows", len(items))
}
