// Package worker moves recorded expenses from SQLite into the per-user CSV
// archive, driven by AMQP messages with a periodic sweep as backup.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"expensify/internal/amqp"
	"expensify/internal/archive"
	"expensify/internal/storage"
)

type ArchiveWorker struct {
	storage   *storage.Repository
	writer    *archive.Writer
	batchSize int
}

func NewArchiveWorker(storage *storage.Repository, writer *archive.Writer, batchSize int) *ArchiveWorker {
	return &ArchiveWorker{
		storage:   storage,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleArchiveMessage processes a single archive message from AMQP.
func (w *ArchiveWorker) HandleArchiveMessage(ctx context.Context, msg *amqp.ArchiveMessage) error {
	slog.InfoContext(ctx, "Processing archive message", "expense_id", msg.ExpenseID)
	return w.archiveExpense(ctx, msg.ExpenseID)
}

// ProcessPendingExpenses archives any expenses the message path missed. This
// is a backup mechanism in case AMQP messages are lost.
func (w *ArchiveWorker) ProcessPendingExpenses(ctx context.Context) error {
	pending, err := w.storage.GetPendingArchiveExpenses(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending expenses: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending expenses", "count", len(pending))

	for _, id := range pending {
		if err := w.archiveExpense(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to archive expense", "expense_id", id, "error", err)
		}
	}

	return nil
}

// StartupCheck archives pending expenses accumulated while the worker was
// down, using a larger batch than the periodic sweep.
func (w *ArchiveWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingArchiveExpenses(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending expenses for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending expenses found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending expenses on startup, processing...",
		"count", len(pending))

	archived := 0
	failed := 0
	for _, id := range pending {
		if err := w.archiveExpense(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to archive expense during startup",
				"expense_id", id, "error", err)
			failed++
			continue
		}
		archived++
	}

	slog.InfoContext(ctx, "Startup archive check completed",
		"total", len(pending),
		"archived", archived,
		"errors", failed)

	return nil
}

func (w *ArchiveWorker) archiveExpense(ctx context.Context, id int64) error {
	owned, err := w.storage.GetExpense(ctx, id)
	if err != nil {
		if markErr := w.storage.MarkArchiveError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark archive error",
				"expense_id", id, "error", markErr)
		}
		return fmt.Errorf("get expense from storage: %w", err)
	}

	if err := w.writer.Append(owned.Owner, owned.Expense); err != nil {
		if markErr := w.storage.MarkArchiveError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark archive error",
				"expense_id", id, "error", markErr)
		}
		return fmt.Errorf("append to archive: %w", err)
	}

	if err := w.storage.MarkArchived(ctx, id); err != nil {
		// The row is in the archive file, only the flag is stale.
		slog.ErrorContext(ctx, "Failed to mark expense archived",
			"expense_id", id, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "Archived expense",
		"expense_id", id,
		"user", owned.Owner,
		"amount_cents", owned.Expense.Amount.Cents)

	return nil
}
