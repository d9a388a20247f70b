package finance

import (
	"sort"
	"time"

	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationTarget is a pending debt as seen by the allocator
type AllocationTarget struct {
	ID                uuid.UUID
	OutstandingAmount decimal.Decimal
	DueDate           time.Time
	CreatedAt         time.Time
}

// AllocationResult is the share of a payment assigned to one debt
type AllocationResult struct {
	TargetID uuid.UUID
	Amount   decimal.Decimal
}

// AllocationPlan is the complete result of allocating one payment
type AllocationPlan struct {
	Allocations          []AllocationResult
	TotalAllocated       decimal.Decimal
	RemainingAmount      decimal.Decimal // goes to client credit
	TargetsFullyPaid     []uuid.UUID
	TargetsPartiallyPaid []uuid.UUID
}

// FIFOAllocator assigns payments to the oldest debts first:
// due date, then creation time, then id for a stable order.
type FIFOAllocator struct{}

// NewFIFOAllocator creates a FIFO allocator
func NewFIFOAllocator() *FIFOAllocator {
	return &FIFOAllocator{}
}

// Allocate splits amount across targets
func (a *FIFOAllocator) Allocate(amount decimal.Decimal, targets []AllocationTarget) (*AllocationPlan, error) {
	if !amount.IsPositive() {
		return nil, shared.ErrValidationFailed.WithMessage("allocation amount must be positive")
	}

	sorted := make([]AllocationTarget, len(targets))
	copy(sorted, targets)
	SortFIFO(sorted)

	plan := &AllocationPlan{
		Allocations:          make([]AllocationResult, 0, len(sorted)),
		TotalAllocated:       decimal.Zero,
		TargetsFullyPaid:     make([]uuid.UUID, 0),
		TargetsPartiallyPaid: make([]uuid.UUID, 0),
	}
	remaining := amount

	for _, target := range sorted {
		if remaining.IsZero() {
			break
		}
		if !target.OutstandingAmount.IsPositive() {
			continue
		}
		applied := decimal.Min(remaining, target.OutstandingAmount)
		plan.Allocations = append(plan.Allocations, AllocationResult{TargetID: target.ID, Amount: applied})
		plan.TotalAllocated = plan.TotalAllocated.Add(applied)
		remaining = remaining.Sub(applied)

		if applied.Equal(target.OutstandingAmount) {
			plan.TargetsFullyPaid = append(plan.TargetsFullyPaid, target.ID)
		} else {
			plan.TargetsPartiallyPaid = append(plan.TargetsPartiallyPaid, target.ID)
		}
	}

	plan.RemainingAmount = remaining
	return plan, nil
}

// SortFIFO orders targets by due date, creation time and id
func SortFIFO(targets []AllocationTarget) {
	sort.SliceStable(targets, func(i, j int) bool {
		if !targets[i].DueDate.Equal(targets[j].DueDate) {
			return targets[i].DueDate.Before(targets[j].DueDate)
		}
		if !targets[i].CreatedAt.Equal(targets[j].CreatedAt) {
			return targets[i].CreatedAt.Before(targets[j].CreatedAt)
		}
		return targets[i].ID.String() < targets[j].ID.String()
	})
}

// TargetsFromDebts converts pending debts to allocation targets
func TargetsFromDebts(debts []Debt) []AllocationTarget {
	targets := make([]AllocationTarget, 0, len(debts))
	for _, d := range debts {
		if d.Status != DebtStatusPending {
			continue
		}
		targets = append(targets, AllocationTarget{
			ID:                d.ID,
			OutstandingAmount: d.Outstanding(),
			DueDate:           d.DueDate,
			CreatedAt:         d.CreatedAt,
		})
	}
	return targets
}
