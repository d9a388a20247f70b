package finance

import (
	"strings"
	"time"

	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DebtStatus represents the status of a client debt
type DebtStatus string

const (
	DebtStatusPending DebtStatus = "pending" // outstanding balance > 0
	DebtStatusPaid    DebtStatus = "paid"    // paid_amount = amount
)

// debtTransitions: pending <-> paid, driven only by allocation and reversal
var debtTransitions = map[DebtStatus][]DebtStatus{
	DebtStatusPending: {DebtStatusPaid},
	DebtStatusPaid:    {DebtStatusPending},
}

// IsValid checks if the status is a valid DebtStatus
func (s DebtStatus) IsValid() bool {
	_, ok := debtTransitions[s]
	return ok
}

// String returns the string representation of DebtStatus
func (s DebtStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether s -> target is allowed
func (s DebtStatus) CanTransitionTo(target DebtStatus) bool {
	for _, allowed := range debtTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Debt is an obligation of a client to the clinic, optionally tagged with
// the appointment or quote that issued it
type Debt struct {
	shared.BaseEntity
	ClientID      uuid.UUID
	Amount        decimal.Decimal
	PaidAmount    decimal.Decimal
	CreditApplied decimal.Decimal // credit consumed when the debt was created
	Status        DebtStatus
	DueDate       time.Time
	Description   string
	PaidAt        *time.Time
	AppointmentID *uuid.UUID
	QuoteID       *uuid.UUID
}

// NewDebt creates an uncovered pending debt
func NewDebt(clientID uuid.UUID, amount decimal.Decimal, dueDate time.Time, description string) (*Debt, error) {
	if clientID == uuid.Nil {
		return nil, shared.ErrValidationFailed.WithMessage("client is required")
	}
	amount = shared.RoundMoney(amount)
	if !amount.IsPositive() {
		return nil, shared.ErrValidationFailed.WithMessage("debt amount must be positive")
	}
	return &Debt{
		BaseEntity:    shared.NewBaseEntity(),
		ClientID:      clientID,
		Amount:        amount,
		PaidAmount:    decimal.Zero,
		CreditApplied: decimal.Zero,
		Status:        DebtStatusPending,
		DueDate:       shared.NormalizeDate(dueDate),
		Description:   strings.TrimSpace(description),
	}, nil
}

// Outstanding returns amount - paid_amount
func (d *Debt) Outstanding() decimal.Decimal {
	return d.Amount.Sub(d.PaidAmount)
}

// IsPaid returns true when the debt is fully covered
func (d *Debt) IsPaid() bool {
	return d.Status == DebtStatusPaid
}

// ApplyCredit covers as much of a fresh debt as the available credit allows and
// returns the credit consumed. Only valid before any payment has been applied.
func (d *Debt) ApplyCredit(available decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	if !d.PaidAmount.IsZero() {
		return decimal.Zero, shared.ErrInvalidState.WithMessage("credit can only be applied to an uncovered debt")
	}
	if !available.IsPositive() {
		return decimal.Zero, nil
	}
	used := decimal.Min(available, d.Amount)
	d.CreditApplied = used
	if err := d.cover(used, at); err != nil {
		return decimal.Zero, err
	}
	return used, nil
}

// ApplyPayment adds part of a payment to the debt
func (d *Debt) ApplyPayment(amount decimal.Decimal, at time.Time) error {
	if !amount.IsPositive() {
		return shared.ErrValidationFailed.WithMessage("applied amount must be positive")
	}
	if amount.GreaterThan(d.Outstanding()) {
		return shared.ErrValidationFailed.WithMessagef("applied amount %s exceeds outstanding %s", amount, d.Outstanding())
	}
	return d.cover(amount, at)
}

// ReversePayment removes a previously applied amount, reopening the debt when needed
func (d *Debt) ReversePayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.ErrValidationFailed.WithMessage("reversed amount must be positive")
	}
	if amount.GreaterThan(d.PaidAmount) {
		return shared.ErrInvalidState.WithMessagef("cannot reverse %s from a debt with %s paid", amount, d.PaidAmount)
	}
	d.PaidAmount = d.PaidAmount.Sub(amount)
	if d.PaidAmount.LessThan(d.Amount) && d.Status == DebtStatusPaid {
		if err := d.transitionTo(DebtStatusPending); err != nil {
			return err
		}
		d.PaidAt = nil
	}
	d.Touch()
	return nil
}

func (d *Debt) cover(amount decimal.Decimal, at time.Time) error {
	d.PaidAmount = d.PaidAmount.Add(amount)
	if d.PaidAmount.Equal(d.Amount) {
		if err := d.transitionTo(DebtStatusPaid); err != nil {
			return err
		}
		paidAt := at
		d.PaidAt = &paidAt
	}
	d.Touch()
	return nil
}

func (d *Debt) transitionTo(target DebtStatus) error {
	if !d.Status.CanTransitionTo(target) {
		return shared.ErrInvalidState.WithMessagef("cannot change debt from %s to %s", d.Status, target)
	}
	d.Status = target
	return nil
}
