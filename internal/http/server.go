// Package http provides the web server: session-based auth, expense entry
// and search, dashboard partials, CSV export and the admin activity view.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"expensify/internal/cache"
	"expensify/internal/services"
	"expensify/internal/storage"
	appweb "expensify/web"
)

type Config struct {
	Addr         string
	SecureCookie bool
}

type Server struct {
	http.Server
	templates *template.Template

	accounts *services.AccountService
	expenses *services.ExpenseService
	storage  *storage.Repository

	secureCookie bool
	rateLimiter  *rateLimiter
	metrics      securityMetrics

	// Dashboard partials are cached per user and invalidated on writes.
	summaryCache *cache.LRU[summaryView]
	sweeper      *cache.Sweeper

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(cfg Config, accounts *services.AccountService, expenses *services.ExpenseService, repo *storage.Repository) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    cfg.Addr,
			Handler: mux,
		},
		accounts:     accounts,
		expenses:     expenses,
		storage:      repo,
		secureCookie: cfg.SecureCookie,
		rateLimiter:  newRateLimiter(60),
		summaryCache: cache.NewLRU[summaryView](200, 5*time.Minute),
	}

	s.sweeper = cache.NewSweeper(s.summaryCache)
	s.sweeper.Start(10 * time.Minute)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/signup", s.withSecurityHeaders(s.handleSignup))
	mux.HandleFunc("/login", s.withSecurityHeaders(s.handleLogin))
	mux.HandleFunc("/logout", s.withSecurityHeaders(s.handleLogout))

	mux.HandleFunc("/app", s.withSecurityHeaders(s.requireAuth(s.handleApp)))
	mux.HandleFunc("/expenses", s.withSecurityHeaders(s.requireAuth(s.handleCreateExpense)))
	mux.HandleFunc("/feedback", s.withSecurityHeaders(s.requireAuth(s.handleFeedback)))
	mux.HandleFunc("/export.csv", s.withSecurityHeaders(s.requireAuth(s.handleExportCSV)))

	// UI partials
	mux.HandleFunc("/ui/ledger", s.withSecurityHeaders(s.requireAuth(s.handleLedger)))
	mux.HandleFunc("/ui/summary", s.withSecurityHeaders(s.requireAuth(s.handleSummary)))

	mux.HandleFunc("/admin/activity", s.withSecurityHeaders(s.requireAuth(s.requireAdmin(s.handleAdminActivity))))

	return s
}

// Shutdown stops the background cleanup goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.sweeper != nil {
			s.sweeper.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting and request
// logging to a handler.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, &s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusServiceUnavailable)
		return
	}
	if _, err := s.storage.ListLoginActivity(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness storage check failed", "error", err)
		http.Error(w, "storage not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
