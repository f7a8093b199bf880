package http

import (
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"expensify/internal/core"
)

// handleApp renders the main application page for the logged-in user.
func (s *Server) handleApp(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	account, _ := currentAccount(r.Context())

	data := struct {
		Email      string
		IsAdmin    bool
		Categories []core.Category
		Today      string
	}{
		Email:      account.Email,
		IsAdmin:    account.IsAdmin,
		Categories: core.Categories,
		Today:      time.Now().Format("2006-01-02"),
	}

	if err := s.templates.ExecuteTemplate(w, "app.html", data); err != nil {
		slog.ErrorContext(r.Context(), "App template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	expense, errResp := parseExpenseForm(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	account, _ := currentAccount(r.Context())
	id, err := s.expenses.RecordExpense(r.Context(), account.Email, expense)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to save expense",
			"error", err,
			"user", account.Email,
			"note", expense.Note,
			"amount_cents", expense.Amount.Cents)
		InternalServerError("Error saving expense").Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Expense created",
		"expense_id", id,
		"user", account.Email,
		"amount_cents", expense.Amount.Cents,
		"category", expense.Category)

	s.invalidateSummary(account.Email)

	NewHTMXResponse().
		TriggerExpenseCreated().
		TriggerFormReset().
		BodyHTML(`<div class="success">Recorded: ` +
			template.HTMLEscapeString(expense.Note) +
			` (` + template.HTMLEscapeString(string(expense.Category)) + `) ` +
			template.HTMLEscapeString(expense.Amount.String()) + `</div>`).
		Write(w)
}

// handleLedger renders the expense list partial, filtered by the optional
// q parameter.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	account, _ := currentAccount(r.Context())
	keyword := strings.TrimSpace(r.URL.Query().Get("q"))

	items, err := s.expenses.SearchExpenses(r.Context(), account.Email, keyword)
	if err != nil {
		slog.ErrorContext(r.Context(), "Ledger query failed",
			"error", err, "user", account.Email)
		_, _ = w.Write([]byte(`<div class="placeholder">Error loading expenses</div>`))
		return
	}

	type row struct {
		Note     string
		Amount   string
		Category string
		Date     string
		Time     string
	}
	data := struct {
		Keyword string
		Total   string
		Rows    []row
	}{
		Keyword: keyword,
		Total:   core.TotalSpent(items).String(),
	}
	for _, e := range items {
		data.Rows = append(data.Rows, row{
			Note:     e.Note,
			Amount:   e.Amount.String(),
			Category: string(e.Category),
			Date:     e.Date.Format("2006-01-02"),
			Time:     e.TimeOfDay,
		})
	}

	if err := s.templates.ExecuteTemplate(w, "ledger.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Ledger template execution failed", "error", err)
		_, _ = w.Write([]byte(`<div class="placeholder">Error rendering expenses</div>`))
	}
}
