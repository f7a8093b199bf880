package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensify/internal/services"
	"expensify/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.Repository) {
	t.Helper()
	repo, err := storage.NewRepository(":memory:")
	require.NoError(t, err)

	accounts := services.NewAccountService(repo, time.Hour)
	expenses := services.NewExpenseService(repo, nil)

	srv := NewServer(Config{Addr: ":0"}, accounts, expenses, repo)
	t.Cleanup(func() {
		srv.sweeper.Stop()
		srv.rateLimiter.stop()
		repo.Close()
	})
	return srv, repo
}

func postForm(srv *Server, path, form string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func get(srv *Server, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

// register an account and log in, returning the session cookie.
func loginAs(t *testing.T, srv *Server, email string) *http.Cookie {
	t.Helper()
	form := "email=" + email + "&password=s3cret"

	rr := postForm(srv, "/signup", form)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = postForm(srv, "/login", form)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, "/app", rr.Header().Get("HX-Redirect"))

	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie set on login")
	return nil
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := get(srv, path)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestIndexRendersAuthPage(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := get(srv, "/")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Create an account")
}

func TestSignupValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := postForm(srv, "/signup", "email=not-an-email&password=pw")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = postForm(srv, "/signup", "email=alice@example.com&password=")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = postForm(srv, "/signup", "email=alice@example.com&password=pw")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = postForm(srv, "/signup", "email=alice@example.com&password=other")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "already exists")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := postForm(srv, "/signup", "email=alice@example.com&password=s3cret")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = postForm(srv, "/login", "email=alice@example.com&password=wrong")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Incorrect password")

	rr = postForm(srv, "/login", "email=nobody@example.com&password=s3cret")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Email not found")
	assert.NotContains(t, rr.Body.String(), "Incorrect password")
}

func TestAppRequiresSession(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := get(srv, "/app")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	// HTMX requests get an HX-Redirect instead of a 303.
	req := httptest.NewRequest(http.MethodGet, "/ui/ledger", nil)
	req.Header.Set("HX-Request", "true")
	hrr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(hrr, req)
	assert.Equal(t, http.StatusUnauthorized, hrr.Code)
	assert.Equal(t, "/", hrr.Header().Get("HX-Redirect"))
}

func TestAppPageForLoggedInUser(t *testing.T) {
	srv, _ := newTestServer(t)
	cookie := loginAs(t, srv, "alice@example.com")

	rr := get(srv, "/app", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "alice@example.com")
	assert.Contains(t, rr.Body.String(), "Food")
	assert.NotContains(t, rr.Body.String(), "/admin/activity")
}

func TestCreateExpenseAndLedger(t *testing.T) {
	srv, _ := newTestServer(t)
	cookie := loginAs(t, srv, "alice@example.com")

	rr := postForm(srv, "/expenses", "note=coffee&amount=abc&category=Food", cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = postForm(srv, "/expenses", "note=&amount=3.50&category=Food", cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = postForm(srv, "/expenses", "note=coffee&amount=3.50&category=Food&date=2026-08-01", cookie)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "expense:created")

	rr = postForm(srv, "/expenses", "note=train ticket&amount=12.00&category=Travel&date=2026-08-02", cookie)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = get(srv, "/ui/ledger", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "coffee")
	assert.Contains(t, rr.Body.String(), "train ticket")
	assert.Contains(t, rr.Body.String(), "15.50")

	rr = get(srv, "/ui/ledger?q=COFFEE", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "coffee")
	assert.NotContains(t, rr.Body.String(), "train ticket")

	rr = get(srv, "/ui/ledger?q=pizza", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No expenses match")
}

func TestLedgerIsPerUser(t *testing.T) {
	srv, _ := newTestServer(t)
	alice := loginAs(t, srv, "alice@example.com")
	bob := loginAs(t, srv, "bob@example.com")

	rr := postForm(srv, "/expenses", "note=secret dinner&amount=40.00&category=Food", alice)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = get(srv, "/ui/ledger", bob)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret dinner")
}

func TestSummaryPartial(t *testing.T) {
	srv, _ := newTestServer(t)
	cookie := loginAs(t, srv, "alice@example.com")

	rr := get(srv, "/ui/summary", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Nothing to summarize")

	rr = postForm(srv, "/expenses", "note=coffee&amount=3.50&category=Food&date=2026-08-01", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = postForm(srv, "/expenses", "note=lunch&amount=6.50&category=Food&date=2026-08-02", cookie)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = get(srv, "/ui/summary", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Food")
	assert.Contains(t, rr.Body.String(), "10.00")

	rr = get(srv, "/ui/summary?by=month", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "August 2026")

	rr = get(srv, "/ui/summary?by=day", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "2026-08-01")
}

func TestExportCSV(t *testing.T) {
	srv, _ := newTestServer(t)
	cookie := loginAs(t, srv, "alice@example.com")

	rr := postForm(srv, "/expenses", "note=coffee&amount=3.50&category=Food&date=2026-08-01", cookie)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = get(srv, "/export.csv", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "expenses.csv")

	body := rr.Body.String()
	assert.True(t, strings.HasPrefix(body, "Note,Amount,Category,Date,Time"), body)
	assert.Contains(t, body, "coffee,3.50,Food,2026-08-01")

	rr = postForm(srv, "/expenses", "note=bus ticket&amount=2.00&category=Travel&date=2026-08-02", cookie)
	require.Equal(t, http.StatusOK, rr.Code)

	// The q parameter exports the same case-insensitive filtered view.
	rr = get(srv, "/export.csv?q=COFFEE", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	body = rr.Body.String()
	assert.Contains(t, body, "coffee,3.50,Food,2026-08-01")
	assert.NotContains(t, body, "bus ticket")
}

func TestFeedback(t *testing.T) {
	srv, _ := newTestServer(t)
	cookie := loginAs(t, srv, "alice@example.com")

	rr := postForm(srv, "/feedback", "feedback=", cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = postForm(srv, "/feedback", "feedback=love it", cookie)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "thank you")
}

func TestAdminActivityAccess(t *testing.T) {
	srv, repo := newTestServer(t)
	cookie := loginAs(t, srv, "alice@example.com")

	rr := get(srv, "/admin/activity", cookie)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	require.NoError(t, repo.SetAdmin(context.Background(), "alice@example.com", true))

	// Re-login so the session resolves to the updated account.
	login := postForm(srv, "/login", "email=alice@example.com&password=s3cret")
	require.Equal(t, http.StatusOK, login.Code)
	var admin *http.Cookie
	for _, c := range login.Result().Cookies() {
		if c.Name == sessionCookieName {
			admin = c
		}
	}
	require.NotNil(t, admin)

	rr = get(srv, "/admin/activity", admin)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "alice@example.com")
	assert.Contains(t, rr.Body.String(), "Login activity")
}

func TestLogoutKillsSession(t *testing.T) {
	srv, _ := newTestServer(t)
	cookie := loginAs(t, srv, "alice@example.com")

	rr := postForm(srv, "/logout", "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("HX-Redirect"))

	rr = get(srv, "/app", cookie)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(3)
	defer rl.stop()

	var metrics securityMetrics
	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow("1.2.3.4", &metrics))
	}
	assert.False(t, rl.allow("1.2.3.4", &metrics))
	assert.True(t, rl.allow("5.6.7.8", &metrics))
	assert.Equal(t, int64(1), metrics.rateLimitHits)
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "hello", sanitizeInput("  hello \x00\x07"))
	assert.Equal(t, "line1\nline2", sanitizeInput("line1\nline2"))
}
