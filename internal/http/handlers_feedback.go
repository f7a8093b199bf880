package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"expensify/internal/core"
)

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	account, _ := currentAccount(r.Context())
	feedback := core.Feedback{
		Email:       account.Email,
		Text:        sanitizeInput(r.Form.Get("feedback")),
		SubmittedAt: time.Now(),
	}

	err := s.storage.AppendFeedback(r.Context(), feedback)
	switch {
	case errors.Is(err, core.ErrEmptyFeedback):
		UnprocessableEntityError("Write something before submitting").Write(w)
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Failed to save feedback",
			"error", err, "user", account.Email)
		InternalServerError("Error saving feedback").Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Feedback submitted", "user", account.Email)

	NewHTMXResponse().
		TriggerFormReset().
		TriggerSuccessNotification("Thanks for the feedback").
		BodyHTML(`<div class="success">Feedback received, thank you.</div>`).
		Write(w)
}
