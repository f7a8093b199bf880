package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensify/internal/amqp"
	"expensify/internal/archive"
	"expensify/internal/core"
	"expensify/internal/storage"
)

func newTestWorker(t *testing.T) (*ArchiveWorker, *storage.Repository, *archive.Writer) {
	t.Helper()
	repo, err := storage.NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	writer, err := archive.NewWriter(t.TempDir())
	require.NoError(t, err)

	return NewArchiveWorker(repo, writer, 10), repo, writer
}

func recordExpense(t *testing.T, repo *storage.Repository, email, note string) int64 {
	t.Helper()
	ctx := context.Background()
	if exists, err := repo.AccountExists(ctx, email); err == nil && !exists {
		require.NoError(t, repo.CreateAccount(ctx, email, "hash"))
	}
	id, err := repo.AppendExpense(ctx, email, core.Expense{
		Note:      note,
		Amount:    core.Money{Cents: 999},
		Category:  core.Shopping,
		Date:      core.NewDate(2026, 8, 28),
		TimeOfDay: "14:00:00",
	})
	require.NoError(t, err)
	return id
}

func TestHandleArchiveMessage(t *testing.T) {
	ctx := context.Background()
	w, repo, writer := newTestWorker(t)

	id := recordExpense(t, repo, "alice@example.com", "notebook")

	msg := amqp.NewArchiveMessage(id)
	require.NoError(t, w.HandleArchiveMessage(ctx, msg))

	pending, err := repo.GetPendingArchiveExpenses(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.FileExists(t, writer.FileFor("alice@example.com"))
}

func TestHandleArchiveMessageUnknownID(t *testing.T) {
	ctx := context.Background()
	w, _, _ := newTestWorker(t)

	err := w.HandleArchiveMessage(ctx, amqp.NewArchiveMessage(12345))
	assert.Error(t, err)
}

func TestProcessPendingExpenses(t *testing.T) {
	ctx := context.Background()
	w, repo, _ := newTestWorker(t)

	first := recordExpense(t, repo, "alice@example.com", "notebook")
	second := recordExpense(t, repo, "bob@example.com", "pens")

	require.NoError(t, w.ProcessPendingExpenses(ctx))

	pending, err := repo.GetPendingArchiveExpenses(ctx, 10)
	require.NoError(t, err)
	assert.NotContains(t, pending, first)
	assert.NotContains(t, pending, second)
}

func TestProcessPendingExpensesNoWork(t *testing.T) {
	ctx := context.Background()
	w, _, _ := newTestWorker(t)
	assert.NoError(t, w.ProcessPendingExpenses(ctx))
}

func TestStartupCheck(t *testing.T) {
	ctx := context.Background()
	w, repo, writer := newTestWorker(t)

	recordExpense(t, repo, "alice@example.com", "notebook")
	recordExpense(t, repo, "alice@example.com", "pens")

	require.NoError(t, w.StartupCheck(ctx))

	pending, err := repo.GetPendingArchiveExpenses(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.FileExists(t, writer.FileFor("alice@example.com"))
}
