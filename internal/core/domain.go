package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Food     Category = "Food"
	Travel   Category = "Travel"
	Shopping Category = "Shopping"
	Bills    Category = "Bills"
	Health   Category = "Health"
	Other    Category = "Other"
)

// Categories lists every valid expense category in display order.
var Categories = []Category{Food, Travel, Shopping, Bills, Health, Other}

type (
	Category string

	Money struct {
		Cents int64
	}

	// Account is one registered user. Password material never lives here;
	// the storage layer keeps only the bcrypt hash.
	Account struct {
		Email     string
		IsAdmin   bool
		CreatedAt time.Time
	}

	// Expense is a single immutable ledger entry owned by one account.
	// TimeOfDay is informational only and not part of any aggregate.
	Expense struct {
		Note      string
		Amount    Money
		Category  Category
		Date      time.Time // calendar date, midnight UTC
		TimeOfDay string
	}

	// Feedback is one append-only feedback submission.
	Feedback struct {
		Email       string
		Text        string
		SubmittedAt time.Time
	}

	// LoginActivity is the per-email login record. A new login replaces the
	// previous record for the same email (upsert keyed by email).
	LoginActivity struct {
		Email         string
		LoginTime     time.Time
		TotalExpenses int
		LastUpdated   time.Time
	}

	// Session is one authenticated browser session resolved from a cookie.
	Session struct {
		Token     string
		Email     string
		CreatedAt time.Time
		ExpiresAt time.Time
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyNote         = errors.New("empty note")
	ErrInvalidCategory   = errors.New("invalid category")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrEmptyPassword     = errors.New("empty password")
	ErrEmptyFeedback     = errors.New("empty feedback")
	ErrDuplicateAccount  = errors.New("account already exists")
	ErrUnknownEmail      = errors.New("email not found")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrNotFound          = errors.New("not found")
)

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Note)) == 0 {
		return ErrEmptyNote
	}
	if len(e.Note) > 200 {
		return errors.New("note too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ValidateEmail applies the minimal structural check the sign-up form needs.
// Anything with a non-empty local part and domain passes.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrInvalidEmail
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return ErrInvalidEmail
	}
	if strings.ContainsAny(email, " \t\n") {
		return ErrInvalidEmail
	}
	return nil
}

func (f Feedback) Validate() error {
	if len(strings.TrimSpace(f.Text)) == 0 {
		return ErrEmptyFeedback
	}
	return nil
}

// NewDate builds the canonical midnight-UTC date used for ledger entries.
func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// DateOnly truncates a timestamp to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
