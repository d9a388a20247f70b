package testutil

import (
	"context"
	"testing"

	"github.com/dentalclinic/backend/internal/application/transaction"
	"github.com/dentalclinic/backend/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertLedgerConsistent checks the payment, debt and credit invariants for a client:
// every payment is fully split between debts and credit, every debt's paid amount
// is explained by applications plus credit consumed at creation, status matches
// coverage, and the credit balance is not negative.
func AssertLedgerConsistent(t testing.TB, scope transaction.Scope, clientID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	repos := scope.Repositories()

	payments, err := repos.Payments().FindByClient(ctx, clientID)
	require.NoError(t, err)
	for _, p := range payments {
		rows, err := repos.DebtPayments().FindByPayment(ctx, p.ID)
		require.NoError(t, err)
		applied := decimal.Zero
		for _, r := range rows {
			assert.True(t, r.AmountApplied.IsPositive(), "applied amount must be positive")
			applied = applied.Add(r.AmountApplied)
		}
		assert.False(t, p.CreditedAmount.IsNegative())
		assert.True(t, p.Amount.Equal(applied.Add(p.CreditedAmount)),
			"payment %s: amount %s != applied %s + credited %s", p.ID, p.Amount, applied, p.CreditedAmount)
	}

	debts, err := repos.Debts().FindByClient(ctx, clientID)
	require.NoError(t, err)
	for _, d := range debts {
		applied, err := repos.DebtPayments().SumByDebt(ctx, d.ID)
		require.NoError(t, err)
		assert.True(t, d.PaidAmount.Equal(applied.Add(d.CreditApplied)),
			"debt %s: paid %s != applied %s + credit %s", d.ID, d.PaidAmount, applied, d.CreditApplied)
		assert.False(t, d.PaidAmount.GreaterThan(d.Amount))
		assert.Equal(t, d.PaidAmount.Equal(d.Amount), d.Status == finance.DebtStatusPaid,
			"debt %s: status %s with paid %s of %s", d.ID, d.Status, d.PaidAmount, d.Amount)
	}

	credit, err := repos.Credits().FindByClient(ctx, clientID, false)
	require.NoError(t, err)
	assert.False(t, credit.Amount.IsNegative(), "credit balance is negative")
}
