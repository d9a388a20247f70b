package finance

import (
	"time"

	"github.com/dentalclinic/backend/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreatePaymentRequest registers money received from a client
type CreatePaymentRequest struct {
	ClientID    uuid.UUID       `json:"client_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Method      string          `json:"method" binding:"required"`
	Notes       string          `json:"notes" binding:"max=1000"`
	PaymentDate *time.Time      `json:"payment_date"`
}

// CreateDebtRequest issues a debt. DueDate defaults to today plus the configured months.
type CreateDebtRequest struct {
	ClientID      uuid.UUID       `json:"client_id" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Description   string          `json:"description" binding:"max=500"`
	DueDate       *time.Time      `json:"due_date"`
	AppointmentID *uuid.UUID      `json:"appointment_id"`
	QuoteID       *uuid.UUID      `json:"quote_id"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID             uuid.UUID       `json:"id"`
	ClientID       uuid.UUID       `json:"client_id"`
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method"`
	PaymentDate    time.Time       `json:"payment_date"`
	Notes          string          `json:"notes,omitempty"`
	CreditedAmount decimal.Decimal `json:"credited_amount"`
	CreatedAt      time.Time       `json:"created_at"`
}

// DebtResponse represents a debt in API responses
type DebtResponse struct {
	ID            uuid.UUID       `json:"id"`
	ClientID      uuid.UUID       `json:"client_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	CreditApplied decimal.Decimal `json:"credit_applied"`
	Status        string          `json:"status"`
	DueDate       time.Time       `json:"due_date"`
	Description   string          `json:"description,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	AppointmentID *uuid.UUID      `json:"appointment_id,omitempty"`
	QuoteID       *uuid.UUID      `json:"quote_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AllocationResponse is the share of a payment applied to one debt
type AllocationResponse struct {
	DebtID        uuid.UUID       `json:"debt_id"`
	AmountApplied decimal.Decimal `json:"amount_applied"`
	DebtPaid      bool            `json:"debt_paid"`
}

// PaymentResult is returned by CreatePayment
type PaymentResult struct {
	Payment       PaymentResponse      `json:"payment"`
	Applied       decimal.Decimal      `json:"applied"`
	Credited      decimal.Decimal      `json:"credited"`
	DebtsAffected int                  `json:"debts_affected"`
	Allocations   []AllocationResponse `json:"allocations"`
	Message       string               `json:"message"`
}

// PaymentAllocations explains where a payment went. Unattributed is the share
// whose debts have since been deleted.
type PaymentAllocations struct {
	PaymentID    uuid.UUID            `json:"payment_id"`
	Amount       decimal.Decimal      `json:"amount"`
	Applied      decimal.Decimal      `json:"applied"`
	Credited     decimal.Decimal      `json:"credited"`
	Unattributed decimal.Decimal      `json:"unattributed"`
	Allocations  []AllocationResponse `json:"allocations"`
}

// ClientSummary is the financial position of a client
type ClientSummary struct {
	ClientID            uuid.UUID       `json:"client_id"`
	TotalPayments       decimal.Decimal `json:"total_payments"`
	TotalPendingDebt    decimal.Decimal `json:"total_pending_debt"`
	ClientCreditBalance decimal.Decimal `json:"client_credit_balance"`
}

// ToPaymentResponse converts a domain Payment to PaymentResponse
func ToPaymentResponse(p *finance.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		ClientID:       p.ClientID,
		Amount:         p.Amount,
		Method:         string(p.Method),
		PaymentDate:    p.PaymentDate,
		Notes:          p.Notes,
		CreditedAmount: p.CreditedAmount,
		CreatedAt:      p.CreatedAt,
	}
}

// ToDebtResponse converts a domain Debt to DebtResponse
func ToDebtResponse(d *finance.Debt) DebtResponse {
	return DebtResponse{
		ID:            d.ID,
		ClientID:      d.ClientID,
		Amount:        d.Amount,
		PaidAmount:    d.PaidAmount,
		Outstanding:   d.Outstanding(),
		CreditApplied: d.CreditApplied,
		Status:        string(d.Status),
		DueDate:       d.DueDate,
		Description:   d.Description,
		PaidAt:        d.PaidAt,
		AppointmentID: d.AppointmentID,
		QuoteID:       d.QuoteID,
		CreatedAt:     d.CreatedAt,
	}
}

// ToPaymentResponses converts a slice of payments
func ToPaymentResponses(payments []finance.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = ToPaymentResponse(&payments[i])
	}
	return out
}

// ToDebtResponses converts a slice of debts
func ToDebtResponses(debts []finance.Debt) []DebtResponse {
	out := make([]DebtResponse, len(debts))
	for i := range debts {
		out[i] = ToDebtResponse(&debts[i])
	}
	return out
}
