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

func TestFIFOAllocator_Allocate(t *testing.T) {
	allocator := NewFIFOAllocator()
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := allocator.Allocate(decimal.Zero, nil)
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})

	t.Run("no targets leaves everything remaining", func(t *testing.T) {
		plan, err := allocator.Allocate(dec("80"), nil)
		require.NoError(t, err)
		assert.Empty(t, plan.Allocations)
		assert.True(t, plan.RemainingAmount.Equal(dec("80")))
	})

	t.Run("oldest due date first", func(t *testing.T) {
		a := AllocationTarget{ID: uuid.New(), OutstandingAmount: dec("40"), DueDate: jan}
		b := AllocationTarget{ID: uuid.New(), OutstandingAmount: dec("30"), DueDate: feb}

		plan, err := allocator.Allocate(dec("50"), []AllocationTarget{b, a})
		require.NoError(t, err)
		require.Len(t, plan.Allocations, 2)
		assert.Equal(t, a.ID, plan.Allocations[0].TargetID)
		assert.True(t, plan.Allocations[0].Amount.Equal(dec("40")))
		assert.Equal(t, b.ID, plan.Allocations[1].TargetID)
		assert.True(t, plan.Allocations[1].Amount.Equal(dec("10")))
		assert.Equal(t, []uuid.UUID{a.ID}, plan.TargetsFullyPaid)
		assert.Equal(t, []uuid.UUID{b.ID}, plan.TargetsPartiallyPaid)
		assert.True(t, plan.RemainingAmount.IsZero())
	})

	t.Run("same due date falls back to creation time", func(t *testing.T) {
		older := AllocationTarget{ID: uuid.New(), OutstandingAmount: dec("10"), DueDate: jan, CreatedAt: jan}
		newer := AllocationTarget{ID: uuid.New(), OutstandingAmount: dec("10"), DueDate: jan, CreatedAt: feb}

		plan, err := allocator.Allocate(dec("5"), []AllocationTarget{newer, older})
		require.NoError(t, err)
		require.Len(t, plan.Allocations, 1)
		assert.Equal(t, older.ID, plan.Allocations[0].TargetID)
	})

	t.Run("overflow stays remaining", func(t *testing.T) {
		d := AllocationTarget{ID: uuid.New(), OutstandingAmount: dec("50"), DueDate: jan}
		plan, err := allocator.Allocate(dec("80"), []AllocationTarget{d})
		require.NoError(t, err)
		assert.True(t, plan.TotalAllocated.Equal(dec("50")))
		assert.True(t, plan.RemainingAmount.Equal(dec("30")))
	})

	t.Run("skips settled targets", func(t *testing.T) {
		settled := AllocationTarget{ID: uuid.New(), OutstandingAmount: decimal.Zero, DueDate: jan}
		open := AllocationTarget{ID: uuid.New(), OutstandingAmount: dec("5"), DueDate: feb}
		plan, err := allocator.Allocate(dec("5"), []AllocationTarget{settled, open})
		require.NoError(t, err)
		require.Len(t, plan.Allocations, 1)
		assert.Equal(t, open.ID, plan.Allocations[0].TargetID)
	})
}

func TestTargetsFromDebts(t *testing.T) {
	pending := newTestDebt(t, "40")
	require.NoError(t, pending.ApplyPayment(dec("15"), time.Now()))
	paid := newTestDebt(t, "10")
	require.NoError(t, paid.ApplyPayment(dec("10"), time.Now()))

	targets := TargetsFromDebts([]Debt{*pending, *paid})
	require.Len(t, targets, 1)
	assert.Equal(t, pending.ID, targets[0].ID)
	assert.True(t, targets[0].OutstandingAmount.Equal(dec("25")))
}
