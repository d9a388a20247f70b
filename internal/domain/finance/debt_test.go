package finance

import (
	"testing"
	"time"

	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestDebt(t *testing.T, amount string) *Debt {
	d, err := NewDebt(uuid.New(), dec(amount), time.Now().AddDate(0, 1, 0), "test")
	require.NoError(t, err)
	return d
}

// ============================================
// DebtStatus Tests
// ============================================

func TestDebtStatus_Transitions(t *testing.T) {
	assert.True(t, DebtStatusPending.CanTransitionTo(DebtStatusPaid))
	assert.True(t, DebtStatusPaid.CanTransitionTo(DebtStatusPending))
	assert.False(t, DebtStatusPaid.CanTransitionTo(DebtStatusPaid))
	assert.False(t, DebtStatus("overdue").IsValid())
}

// ============================================
// Debt Tests
// ============================================

func TestNewDebt(t *testing.T) {
	t.Run("creates uncovered pending debt", func(t *testing.T) {
		d := newTestDebt(t, "50.005")
		assert.Equal(t, DebtStatusPending, d.Status)
		assert.True(t, d.Amount.Equal(dec("50.01")))
		assert.True(t, d.PaidAmount.IsZero())
		assert.Nil(t, d.PaidAt)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := NewDebt(uuid.New(), decimal.Zero, time.Now(), "")
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})
}

func TestDebt_ApplyCredit(t *testing.T) {
	now := time.Now()

	t.Run("credit covers the whole debt", func(t *testing.T) {
		d := newTestDebt(t, "20")
		used, err := d.ApplyCredit(dec("30"), now)
		require.NoError(t, err)
		assert.True(t, used.Equal(dec("20")))
		assert.Equal(t, DebtStatusPaid, d.Status)
		assert.True(t, d.CreditApplied.Equal(dec("20")))
		require.NotNil(t, d.PaidAt)
	})

	t.Run("partial credit", func(t *testing.T) {
		d := newTestDebt(t, "25")
		used, err := d.ApplyCredit(dec("10"), now)
		require.NoError(t, err)
		assert.True(t, used.Equal(dec("10")))
		assert.Equal(t, DebtStatusPending, d.Status)
		assert.True(t, d.Outstanding().Equal(dec("15")))
	})

	t.Run("no credit", func(t *testing.T) {
		d := newTestDebt(t, "25")
		used, err := d.ApplyCredit(decimal.Zero, now)
		require.NoError(t, err)
		assert.True(t, used.IsZero())
		assert.True(t, d.CreditApplied.IsZero())
	})
}

func TestDebt_ApplyAndReversePayment(t *testing.T) {
	now := time.Now()
	d := newTestDebt(t, "40")

	require.NoError(t, d.ApplyPayment(dec("15"), now))
	assert.Equal(t, DebtStatusPending, d.Status)

	assert.ErrorIs(t, d.ApplyPayment(dec("30"), now), shared.ErrValidationFailed)

	require.NoError(t, d.ApplyPayment(dec("25"), now))
	assert.Equal(t, DebtStatusPaid, d.Status)
	require.NotNil(t, d.PaidAt)

	require.NoError(t, d.ReversePayment(dec("25")))
	assert.Equal(t, DebtStatusPending, d.Status)
	assert.Nil(t, d.PaidAt)
	assert.True(t, d.PaidAmount.Equal(dec("15")))

	assert.ErrorIs(t, d.ReversePayment(dec("20")), shared.ErrInvalidState)
}

// ============================================
// Payment and Credit Tests
// ============================================

func TestNewPayment(t *testing.T) {
	t.Run("valid payment", func(t *testing.T) {
		p, err := NewPayment(uuid.New(), dec("80"), PaymentMethodCash, time.Now(), " first visit ")
		require.NoError(t, err)
		assert.Equal(t, "first visit", p.Notes)
		assert.True(t, p.CreditedAmount.IsZero())
	})

	t.Run("zero amount", func(t *testing.T) {
		_, err := NewPayment(uuid.New(), decimal.Zero, PaymentMethodCash, time.Now(), "")
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := NewPayment(uuid.New(), dec("1"), PaymentMethod("barter"), time.Now(), "")
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := ParsePaymentMethod(" Card ")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodCard, m)

	_, err = ParsePaymentMethod("bitcoin")
	assert.ErrorIs(t, err, shared.ErrValidationFailed)
}

func TestClientCredit(t *testing.T) {
	c := NewClientCredit(uuid.New())
	require.NoError(t, c.Add(dec("30")))
	require.NoError(t, c.Consume(dec("20")))
	assert.True(t, c.Amount.Equal(dec("10")))

	err := c.Consume(dec("10.01"))
	assert.ErrorIs(t, err, shared.ErrInconsistentCredit)
	assert.True(t, c.Amount.Equal(dec("10")), "failed consume leaves the balance untouched")
}
