package services

import (
	"context"
	"fmt"
	"log/slog"

	"expensify/internal/amqp"
	"expensify/internal/core"
	"expensify/internal/storage"
)

// ExpenseService orchestrates expense operations across SQLite and AMQP.
type ExpenseService struct {
	storage    *storage.Repository
	amqpClient *amqp.Client
}

func NewExpenseService(storage *storage.Repository, amqpClient *amqp.Client) *ExpenseService {
	return &ExpenseService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// RecordExpense saves an expense to the owner's ledger and publishes an
// archive message. A publish failure does not fail the request, the periodic
// sweep picks the row up later.
func (s *ExpenseService) RecordExpense(ctx context.Context, email string, e core.Expense) (int64, error) {
	id, err := s.storage.AppendExpense(ctx, email, e)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}

	if err := s.publishArchiveMessage(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish archive message",
			"expense_id", id, "error", err)
	}

	return id, nil
}

// ListExpenses returns the user's full ledger in insertion order.
func (s *ExpenseService) ListExpenses(ctx context.Context, email string) ([]core.Expense, error) {
	return s.storage.ListExpenses(ctx, email)
}

// SearchExpenses returns the user's expenses whose note contains keyword,
// matched case-insensitively. An empty keyword returns the full ledger.
func (s *ExpenseService) SearchExpenses(ctx context.Context, email, keyword string) ([]core.Expense, error) {
	return s.storage.SearchExpenses(ctx, email, keyword)
}

func (s *ExpenseService) publishArchiveMessage(ctx context.Context, id int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping archive message")
		return nil
	}
	return s.amqpClient.PublishArchive(ctx, id)
}

// Close closes both storage and AMQP connections.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %v", errs)
	}

	return nil
}
