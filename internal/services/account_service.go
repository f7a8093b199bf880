package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"expensify/internal/auth"
	"expensify/internal/core"
	"expensify/internal/storage"
)

// AccountService handles registration, login and session lifecycle.
type AccountService struct {
	storage    *storage.Repository
	sessionTTL time.Duration
}

func NewAccountService(storage *storage.Repository, sessionTTL time.Duration) *AccountService {
	return &AccountService{
		storage:    storage,
		sessionTTL: sessionTTL,
	}
}

// Register creates a new account with a hashed password.
func (s *AccountService) Register(ctx context.Context, email, password string) error {
	if err := core.ValidateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return core.ErrEmptyPassword
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.storage.CreateAccount(ctx, email, hash); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Account registered", "user", email)
	return nil
}

// Login verifies credentials, records the login in the activity log, and
// opens a new session.
func (s *AccountService) Login(ctx context.Context, email, password string) (core.Session, error) {
	if err := core.ValidateEmail(email); err != nil {
		return core.Session{}, err
	}
	if password == "" {
		return core.Session{}, core.ErrEmptyPassword
	}

	hash, err := s.storage.GetPasswordHash(ctx, email)
	if err != nil {
		return core.Session{}, err
	}

	if !auth.CheckPassword(password, hash) {
		return core.Session{}, core.ErrIncorrectPassword
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		return core.Session{}, fmt.Errorf("generate session token: %w", err)
	}

	now := time.Now()
	session := core.Session{
		Token:     token,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.storage.CreateSession(ctx, session); err != nil {
		return core.Session{}, fmt.Errorf("create session: %w", err)
	}

	if err := s.recordLogin(ctx, email, now); err != nil {
		// The login itself succeeded, keep the activity log best-effort.
		slog.ErrorContext(ctx, "Failed to record login activity",
			"user", email, "error", err)
	}

	slog.InfoContext(ctx, "User logged in", "user", email)
	return session, nil
}

// Logout deletes the session. Deleting an unknown token is not an error.
func (s *AccountService) Logout(ctx context.Context, token string) error {
	return s.storage.DeleteSession(ctx, token)
}

// Authenticate resolves a session token to the owning account.
func (s *AccountService) Authenticate(ctx context.Context, token string) (core.Account, error) {
	return s.storage.GetSessionAccount(ctx, token)
}

func (s *AccountService) recordLogin(ctx context.Context, email string, at time.Time) error {
	total, err := s.storage.CountExpenses(ctx, email)
	if err != nil {
		return fmt.Errorf("count expenses: %w", err)
	}

	return s.storage.UpsertLoginActivity(ctx, core.LoginActivity{
		Email:         email,
		LoginTime:     at,
		TotalExpenses: total,
		LastUpdated:   at,
	})
}
