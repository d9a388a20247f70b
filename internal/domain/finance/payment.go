package finance

import (
	"strings"
	"time"

	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how the client paid
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodCheck    PaymentMethod = "check"
	PaymentMethodOther    PaymentMethod = "other"
)

// IsValid checks if the method is known
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer, PaymentMethodCheck, PaymentMethodOther:
		return true
	}
	return false
}

// ParsePaymentMethod normalizes user input to a PaymentMethod
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", shared.ErrValidationFailed.WithMessagef("unknown payment method %q", s)
	}
	return m, nil
}

// Payment is money received from a client. Payments are insert-only;
// deletion reverses every effect they had.
type Payment struct {
	shared.BaseEntity
	ClientID       uuid.UUID
	Amount         decimal.Decimal
	Method         PaymentMethod
	PaymentDate    time.Time
	Notes          string
	CreditedAmount decimal.Decimal // overflow routed to the client's credit
}

// NewPayment creates a payment
func NewPayment(clientID uuid.UUID, amount decimal.Decimal, method PaymentMethod, paymentDate time.Time, notes string) (*Payment, error) {
	if clientID == uuid.Nil {
		return nil, shared.ErrValidationFailed.WithMessage("client is required")
	}
	amount = shared.RoundMoney(amount)
	if !amount.IsPositive() {
		return nil, shared.ErrValidationFailed.WithMessage("payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.ErrValidationFailed.WithMessagef("unknown payment method %q", method)
	}
	return &Payment{
		BaseEntity:     shared.NewBaseEntity(),
		ClientID:       clientID,
		Amount:         amount,
		Method:         method,
		PaymentDate:    shared.NormalizeDate(paymentDate),
		Notes:          strings.TrimSpace(notes),
		CreditedAmount: decimal.Zero,
	}, nil
}

// RecordCredited stores the overflow that went to credit
func (p *Payment) RecordCredited(amount decimal.Decimal) error {
	if amount.IsNegative() || amount.GreaterThan(p.Amount) {
		return shared.ErrValidationFailed.WithMessage("credited amount out of range")
	}
	p.CreditedAmount = amount
	return nil
}

// DebtPayment links part of a payment to a debt
type DebtPayment struct {
	PaymentID     uuid.UUID
	DebtID        uuid.UUID
	AmountApplied decimal.Decimal
	CreatedAt     time.Time
}

// ClientCredit is the non-negative balance the clinic owes a client
type ClientCredit struct {
	ClientID  uuid.UUID
	Amount    decimal.Decimal
	UpdatedAt time.Time
}

// NewClientCredit returns an empty balance for a client
func NewClientCredit(clientID uuid.UUID) *ClientCredit {
	return &ClientCredit{ClientID: clientID, Amount: decimal.Zero, UpdatedAt: time.Now()}
}

// Add increases the balance
func (c *ClientCredit) Add(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.ErrValidationFailed.WithMessage("credit increment cannot be negative")
	}
	c.Amount = c.Amount.Add(amount)
	c.UpdatedAt = time.Now()
	return nil
}

// Consume decreases the balance. It never lets the balance go negative.
func (c *ClientCredit) Consume(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.ErrValidationFailed.WithMessage("credit decrement cannot be negative")
	}
	if c.Amount.LessThan(amount) {
		return shared.ErrInconsistentCredit.WithMessagef(
			"client credit %s is lower than the %s being reversed", c.Amount, amount)
	}
	c.Amount = c.Amount.Sub(amount)
	c.UpdatedAt = time.Now()
	return nil
}
