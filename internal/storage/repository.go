// Package storage persists accounts, expenses, sessions, login activity and
// feedback in SQLite. All mutations are single statements or single
// transactions, so a logical operation is never partially durable.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"expensify/internal/core"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

// NewRepository opens (creating if needed) the SQLite database at dbPath and
// applies pending migrations.
func NewRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// One connection: SQLite allows a single writer, and pooling would give
	// ":memory:" databases a fresh schema per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := runMigrationsOn(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ---- accounts ----

// CreateAccount durably registers a new account. It returns
// core.ErrDuplicateAccount when the email is already taken.
func (r *Repository) CreateAccount(ctx context.Context, email, passwordHash string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create account: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM accounts WHERE email = ?)", email,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check account existence: %w", err)
	}
	if exists {
		return core.ErrDuplicateAccount
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO accounts (email, password_hash, created_at) VALUES (?, ?, ?)",
		email, passwordHash, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create account: %w", err)
	}

	slog.InfoContext(ctx, "Account created", "email", email)
	return nil
}

// AccountExists reports whether an account with the email is registered.
func (r *Repository) AccountExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM accounts WHERE email = ?)", email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check account existence: %w", err)
	}
	return exists, nil
}

// GetAccount returns the account for email, or core.ErrUnknownEmail.
func (r *Repository) GetAccount(ctx context.Context, email string) (core.Account, error) {
	var a core.Account
	var isAdmin int
	err := r.db.QueryRowContext(ctx,
		"SELECT email, is_admin, created_at FROM accounts WHERE email = ?", email,
	).Scan(&a.Email, &isAdmin, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrUnknownEmail
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	a.IsAdmin = isAdmin != 0
	return a, nil
}

// GetPasswordHash returns the stored bcrypt hash for email, or
// core.ErrUnknownEmail when no such account exists.
func (r *Repository) GetPasswordHash(ctx context.Context, email string) (string, error) {
	var hash string
	err := r.db.QueryRowContext(ctx,
		"SELECT password_hash FROM accounts WHERE email = ?", email,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", core.ErrUnknownEmail
	}
	if err != nil {
		return "", fmt.Errorf("get password hash: %w", err)
	}
	return hash, nil
}

// SetAdmin flips the admin role on an account.
func (r *Repository) SetAdmin(ctx context.Context, email string, admin bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE accounts SET is_admin = ? WHERE email = ?", boolToInt(admin), email,
	)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set admin rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrUnknownEmail
	}
	slog.InfoContext(ctx, "Admin role updated", "email", email, "is_admin", admin)
	return nil
}

// ---- expenses ----

// AppendExpense validates and durably appends one ledger entry for the owner.
// Rows are append-only: there is no update or delete path.
func (r *Repository) AppendExpense(ctx context.Context, email string, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_email, note, amount_cents, category, spent_on, time_of_day, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		email, e.Note, e.Amount.Cents, string(e.Category), core.DateOnly(e.Date), e.TimeOfDay, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense insert id: %w", err)
	}

	slog.InfoContext(ctx, "Expense appended",
		"id", id,
		"user", email,
		"note", e.Note,
		"amount_cents", e.Amount.Cents,
		"category", string(e.Category))

	return id, nil
}

// ListExpenses returns every expense owned by email in insertion order.
func (r *Repository) ListExpenses(ctx context.Context, email string) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		"SELECT note, amount_cents, category, spent_on, time_of_day FROM expenses WHERE user_email = ? ORDER BY id",
		email)
}

// SearchExpenses returns email's expenses whose note contains keyword,
// case-insensitively, in insertion order. An empty keyword returns the full
// ledger.
func (r *Repository) SearchExpenses(ctx context.Context, email, keyword string) ([]core.Expense, error) {
	if keyword == "" {
		return r.ListExpenses(ctx, email)
	}
	return r.queryExpenses(ctx,
		`SELECT note, amount_cents, category, spent_on, time_of_day FROM expenses
		 WHERE user_email = ? AND instr(lower(note), lower(?)) > 0 ORDER BY id`,
		email, keyword)
}

func (r *Repository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var e core.Expense
		var category string
		if err := rows.Scan(&e.Note, &e.Amount.Cents, &category, &e.Date, &e.TimeOfDay); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Category = core.Category(category)
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountExpenses returns the number of ledger entries owned by email.
func (r *Repository) CountExpenses(ctx context.Context, email string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM expenses WHERE user_email = ?", email,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return count, nil
}

// OwnedExpense pairs a ledger entry with its owner and row id, for the
// archive worker.
type OwnedExpense struct {
	ID      int64
	Owner   string
	Expense core.Expense
}

// GetExpense loads one expense row by id.
func (r *Repository) GetExpense(ctx context.Context, id int64) (OwnedExpense, error) {
	var oe OwnedExpense
	var category string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_email, note, amount_cents, category, spent_on, time_of_day FROM expenses WHERE id = ?", id,
	).Scan(&oe.ID, &oe.Owner, &oe.Expense.Note, &oe.Expense.Amount.Cents, &category, &oe.Expense.Date, &oe.Expense.TimeOfDay)
	if errors.Is(err, sql.ErrNoRows) {
		return OwnedExpense{}, core.ErrNotFound
	}
	if err != nil {
		return OwnedExpense{}, fmt.Errorf("get expense: %w", err)
	}
	oe.Expense.Category = core.Category(category)
	return oe, nil
}

// GetPendingArchiveExpenses returns up to limit expenses that have not been
// copied to their owner's CSV archive yet, oldest first.
func (r *Repository) GetPendingArchiveExpenses(ctx context.Context, limit int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM expenses WHERE archived = 0 ORDER BY id LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending archive expenses: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkArchived records that an expense reached its owner's CSV archive.
func (r *Repository) MarkArchived(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET archived = 1, archive_error = 0 WHERE id = ?", id,
	); err != nil {
		return fmt.Errorf("mark archived: %w", err)
	}
	slog.InfoContext(ctx, "Expense marked archived", "id", id)
	return nil
}

// MarkArchiveError flags an expense whose archive write failed; the sweep
// will retry it.
func (r *Repository) MarkArchiveError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET archive_error = 1 WHERE id = ?", id,
	); err != nil {
		return fmt.Errorf("mark archive error: %w", err)
	}
	slog.WarnContext(ctx, "Expense marked with archive error", "id", id)
	return nil
}

// ---- sessions ----

// CreateSession stores a new session row.
func (r *Repository) CreateSession(ctx context.Context, s core.Session) error {
	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (token, user_email, created_at, expires_at) VALUES (?, ?, ?, ?)",
		s.Token, s.Email, s.CreatedAt, s.ExpiresAt,
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSessionAccount resolves an unexpired session token to its account.
// Unknown and expired tokens both return core.ErrNotFound.
func (r *Repository) GetSessionAccount(ctx context.Context, token string) (core.Account, error) {
	var a core.Account
	var isAdmin int
	err := r.db.QueryRowContext(ctx,
		`SELECT a.email, a.is_admin, a.created_at
		 FROM sessions s JOIN accounts a ON s.user_email = a.email
		 WHERE s.token = ? AND s.expires_at > ?`,
		token, time.Now().UTC(),
	).Scan(&a.Email, &isAdmin, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get session account: %w", err)
	}
	a.IsAdmin = isAdmin != 0
	return a, nil
}

// DeleteSession removes one session by token.
func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE token = ?", token,
	); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions sweeps sessions past their expiry.
func (r *Repository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at <= ?", time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired sessions rows affected: %w", err)
	}
	return n, nil
}

// ---- login activity ----

// UpsertLoginActivity replaces the activity record for rec.Email, keeping at
// most one live record per email.
func (r *Repository) UpsertLoginActivity(ctx context.Context, rec core.LoginActivity) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO login_activity (email, login_time, total_expenses, last_updated)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
		   login_time = excluded.login_time,
		   total_expenses = excluded.total_expenses,
		   last_updated = excluded.last_updated`,
		rec.Email, rec.LoginTime, rec.TotalExpenses, rec.LastUpdated,
	); err != nil {
		return fmt.Errorf("upsert login activity: %w", err)
	}
	return nil
}

// ListLoginActivity returns every live activity record ordered by login time.
func (r *Repository) ListLoginActivity(ctx context.Context) ([]core.LoginActivity, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT email, login_time, total_expenses, last_updated FROM login_activity ORDER BY login_time",
	)
	if err != nil {
		return nil, fmt.Errorf("query login activity: %w", err)
	}
	defer rows.Close()

	var out []core.LoginActivity
	for rows.Next() {
		var rec core.LoginActivity
		if err := rows.Scan(&rec.Email, &rec.LoginTime, &rec.TotalExpenses, &rec.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan login activity: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ---- feedback ----

// AppendFeedback durably appends one feedback record.
func (r *Repository) AppendFeedback(ctx context.Context, f core.Feedback) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO feedback (email, feedback, submitted_at) VALUES (?, ?, ?)",
		f.Email, f.Text, f.SubmittedAt,
	); err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	slog.InfoContext(ctx, "Feedback recorded", "email", f.Email)
	return nil
}

// ListFeedback returns all feedback, oldest first.
func (r *Repository) ListFeedback(ctx context.Context) ([]core.Feedback, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT email, feedback, submitted_at FROM feedback ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	var out []core.Feedback
	for rows.Next() {
		var f core.Feedback
		if err := rows.Scan(&f.Email, &f.Text, &f.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
