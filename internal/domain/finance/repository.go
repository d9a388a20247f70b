package finance

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DebtRepository defines persistence for debts
type DebtRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Debt, error)
	// FindPendingByClient returns pending debts in FIFO order.
	// forUpdate locks the rows for the rest of the transaction where the store supports it.
	FindPendingByClient(ctx context.Context, clientID uuid.UUID, forUpdate bool) ([]Debt, error)
	FindByClient(ctx context.Context, clientID uuid.UUID) ([]Debt, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Debt, error)
	FindByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]Debt, error)
	FindByQuote(ctx context.Context, quoteID uuid.UUID) ([]Debt, error)
	// SumOutstanding returns the sum of amount - paid_amount over pending debts
	SumOutstanding(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error)
	Save(ctx context.Context, debt *Debt) error
	SaveBatch(ctx context.Context, debts []*Debt) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PaymentRepository defines persistence for payments
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByClient(ctx context.Context, clientID uuid.UUID) ([]Payment, error)
	SumByClient(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error)
	Save(ctx context.Context, payment *Payment) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// DebtPaymentRepository defines persistence for payment-to-debt applications
type DebtPaymentRepository interface {
	Create(ctx context.Context, rows []DebtPayment) error
	FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]DebtPayment, error)
	FindByDebt(ctx context.Context, debtID uuid.UUID) ([]DebtPayment, error)
	SumByDebt(ctx context.Context, debtID uuid.UUID) (decimal.Decimal, error)
	DeleteByPayment(ctx context.Context, paymentID uuid.UUID) error
	DeleteByDebt(ctx context.Context, debtID uuid.UUID) error
}

// CreditRepository defines persistence for client credit balances
type CreditRepository interface {
	// FindByClient returns the balance, or a zero balance when none exists yet
	FindByClient(ctx context.Context, clientID uuid.UUID, forUpdate bool) (*ClientCredit, error)
	// Save upserts the balance keyed on client id
	Save(ctx context.Context, credit *ClientCredit) error
	DeleteByClient(ctx context.Context, clientID uuid.UUID) error
}
