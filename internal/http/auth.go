package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"expensify/internal/core"
)

const sessionCookieName = "expensify_session"

type accountKey struct{}

// currentAccount returns the authenticated account stored by requireAuth.
func currentAccount(ctx context.Context) (core.Account, bool) {
	account, ok := ctx.Value(accountKey{}).(core.Account)
	return account, ok
}

// requireAuth resolves the session cookie to an account and stores it in the
// request context. Unauthenticated requests are sent back to the auth page.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			s.redirectToAuth(w, r)
			return
		}

		account, err := s.accounts.Authenticate(r.Context(), cookie.Value)
		if err != nil {
			if !errors.Is(err, core.ErrNotFound) {
				slog.ErrorContext(r.Context(), "Session lookup failed", "error", err)
			}
			s.clearSessionCookie(w)
			s.redirectToAuth(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), accountKey{}, account)
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin rejects non-admin accounts. It must run inside requireAuth.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := currentAccount(r.Context())
		if !ok || !account.IsAdmin {
			slog.WarnContext(r.Context(), "Admin access denied", "user", account.Email)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// redirectToAuth sends the browser to the login page, using HX-Redirect for
// HTMX-originated requests so the full page swaps.
func (s *Server) redirectToAuth(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, session core.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// handleIndex renders the login/signup page, or forwards straight to the app
// when a live session cookie is presented.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if _, err := s.accounts.Authenticate(r.Context(), cookie.Value); err == nil {
			http.Redirect(w, r, "/app", http.StatusSeeOther)
			return
		}
	}

	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	if err := s.templates.ExecuteTemplate(w, "auth.html", nil); err != nil {
		slog.ErrorContext(r.Context(), "Auth template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	email := sanitizeInput(r.Form.Get("email"))
	password := r.Form.Get("password")

	err := s.accounts.Register(r.Context(), email, password)
	switch {
	case errors.Is(err, core.ErrDuplicateAccount):
		UnprocessableEntityError("An account with this email already exists").Write(w)
		return
	case errors.Is(err, core.ErrInvalidEmail), errors.Is(err, core.ErrEmptyPassword):
		UnprocessableEntityError("Enter a valid email and a password").Write(w)
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Signup failed", "error", err, "user", email)
		InternalServerError("Could not create account").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerSuccessNotification("Account created, you can log in now").
		BodyHTML(`<div class="success">Account created. Log in with your new credentials.</div>`).
		Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	email := sanitizeInput(r.Form.Get("email"))
	password := r.Form.Get("password")

	session, err := s.accounts.Login(r.Context(), email, password)
	switch {
	case errors.Is(err, core.ErrUnknownEmail):
		UnprocessableEntityError("Email not found").Write(w)
		return
	case errors.Is(err, core.ErrIncorrectPassword):
		UnprocessableEntityError("Incorrect password").Write(w)
		return
	case errors.Is(err, core.ErrInvalidEmail), errors.Is(err, core.ErrEmptyPassword):
		UnprocessableEntityError("Enter a valid email and a password").Write(w)
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Login failed", "error", err, "user", email)
		InternalServerError("Could not log in").Write(w)
		return
	}

	s.setSessionCookie(w, session)
	NewHTMXResponse().
		Header("HX-Redirect", "/app").
		Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if err := s.accounts.Logout(r.Context(), cookie.Value); err != nil {
			slog.ErrorContext(r.Context(), "Logout failed", "error", err)
		}
	}

	s.clearSessionCookie(w)
	NewHTMXResponse().
		Header("HX-Redirect", "/").
		Write(w)
}
