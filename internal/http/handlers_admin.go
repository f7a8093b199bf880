package http

import (
	"log/slog"
	"net/http"
)

// handleAdminActivity renders the login activity and feedback overview for
// admin accounts.
func (s *Server) handleAdminActivity(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	activity, err := s.storage.ListLoginActivity(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Login activity query failed", "error", err)
		http.Error(w, "error loading activity", http.StatusInternalServerError)
		return
	}

	feedback, err := s.storage.ListFeedback(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Feedback query failed", "error", err)
		http.Error(w, "error loading feedback", http.StatusInternalServerError)
		return
	}

	type activityRow struct {
		Email         string
		LoginTime     string
		TotalExpenses int
		LastUpdated   string
	}
	type feedbackRow struct {
		Email       string
		Text        string
		SubmittedAt string
	}
	type timelineRow struct {
		Date   string
		Logins int
		Width  int
	}
	data := struct {
		UserCount int
		Activity  []activityRow
		Timeline  []timelineRow
		Feedback  []feedbackRow
	}{
		UserCount: len(activity),
	}
	for _, a := range activity {
		data.Activity = append(data.Activity, activityRow{
			Email:         a.Email,
			LoginTime:     a.LoginTime.Format("2006-01-02 15:04:05"),
			TotalExpenses: a.TotalExpenses,
			LastUpdated:   a.LastUpdated.Format("2006-01-02 15:04:05"),
		})
	}
	// Timeline of login counts per calendar day, in activity order.
	counts := make(map[string]int)
	var days []string
	for _, a := range activity {
		day := a.LoginTime.Format("2006-01-02")
		if _, seen := counts[day]; !seen {
			days = append(days, day)
		}
		counts[day]++
	}
	maxLogins := 0
	for _, n := range counts {
		if n > maxLogins {
			maxLogins = n
		}
	}
	for _, day := range days {
		data.Timeline = append(data.Timeline, timelineRow{
			Date:   day,
			Logins: counts[day],
			Width:  barWidth(int64(counts[day]), int64(maxLogins)),
		})
	}

	for _, f := range feedback {
		data.Feedback = append(data.Feedback, feedbackRow{
			Email:       f.Email,
			Text:        f.Text,
			SubmittedAt: f.SubmittedAt.Format("2006-01-02 15:04:05"),
		})
	}

	if err := s.templates.ExecuteTemplate(w, "admin.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Admin template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
