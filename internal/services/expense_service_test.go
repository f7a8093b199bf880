package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensify/internal/core"
)

func TestExpenseServiceRecordWithoutBroker(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	accounts := NewAccountService(repo, 0)
	svc := NewExpenseService(repo, nil)

	require.NoError(t, accounts.Register(ctx, "alice@example.com", "pw"))

	// With no AMQP client the expense is still saved, the sweep will
	// archive it later.
	id, err := svc.RecordExpense(ctx, "alice@example.com", core.Expense{
		Note:      "groceries",
		Amount:    core.Money{Cents: 4200},
		Category:  core.Food,
		Date:      core.NewDate(2026, 8, 1),
		TimeOfDay: "18:00:00",
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	pending, err := repo.GetPendingArchiveExpenses(ctx, 10)
	require.NoError(t, err)
	assert.Contains(t, pending, id)
}

func TestExpenseServiceRejectsInvalidExpense(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	accounts := NewAccountService(repo, 0)
	svc := NewExpenseService(repo, nil)

	require.NoError(t, accounts.Register(ctx, "alice@example.com", "pw"))

	_, err := svc.RecordExpense(ctx, "alice@example.com", core.Expense{
		Note:     "",
		Amount:   core.Money{Cents: 100},
		Category: core.Food,
		Date:     core.NewDate(2026, 8, 1),
	})
	assert.ErrorIs(t, err, core.ErrEmptyNote)
}

func TestExpenseServiceListAndSearch(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	accounts := NewAccountService(repo, 0)
	svc := NewExpenseService(repo, nil)

	require.NoError(t, accounts.Register(ctx, "alice@example.com", "pw"))

	for _, note := range []string{"Morning coffee", "train ticket", "more COFFEE"} {
		_, err := svc.RecordExpense(ctx, "alice@example.com", core.Expense{
			Note:      note,
			Amount:    core.Money{Cents: 500},
			Category:  core.Other,
			Date:      core.NewDate(2026, 8, 1),
			TimeOfDay: "12:00:00",
		})
		require.NoError(t, err)
	}

	all, err := svc.ListExpenses(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Morning coffee", all[0].Note)

	matched, err := svc.SearchExpenses(ctx, "alice@example.com", "coffee")
	require.NoError(t, err)
	require.Len(t, matched, 2)

	everything, err := svc.SearchExpenses(ctx, "alice@example.com", "")
	require.NoError(t, err)
	assert.Len(t, everything, 3)
}

func TestExpenseServiceCloseWithNilComponents(t *testing.T) {
	svc := &ExpenseService{}
	assert.NoError(t, svc.Close())
}
