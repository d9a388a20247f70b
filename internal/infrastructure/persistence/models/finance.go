package models

import (
	"time"

	"github.com/dentalclinic/backend/internal/domain/finance"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DebtModel is the persistence model for the Debt domain entity.
type DebtModel struct {
	BaseModel
	ClientID      uuid.UUID          `gorm:"type:uuid;not null;index:idx_debts_client_status,priority:1"`
	Amount        decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	PaidAmount    decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	CreditApplied decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	Status        finance.DebtStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_debts_client_status,priority:2"`
	DueDate       time.Time          `gorm:"type:date;not null"`
	Description   string             `gorm:"type:text"`
	PaidAt        *time.Time
	AppointmentID *uuid.UUID `gorm:"type:uuid;index"`
	QuoteID       *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (DebtModel) TableName() string {
	return "debts"
}

// ToDomain converts the persistence model to a domain Debt entity.
func (m *DebtModel) ToDomain() *finance.Debt {
	return &finance.Debt{
		BaseEntity:    m.BaseModel.ToDomain(),
		ClientID:      m.ClientID,
		Amount:        shared.RoundMoney(m.Amount),
		PaidAmount:    shared.RoundMoney(m.PaidAmount),
		CreditApplied: shared.RoundMoney(m.CreditApplied),
		Status:        m.Status,
		DueDate:       shared.NormalizeDate(m.DueDate),
		Description:   m.Description,
		PaidAt:        m.PaidAt,
		AppointmentID: m.AppointmentID,
		QuoteID:       m.QuoteID,
	}
}

// DebtModelFromDomain creates a new persistence model from a domain Debt entity.
func DebtModelFromDomain(d *finance.Debt) *DebtModel {
	m := &DebtModel{
		ClientID:      d.ClientID,
		Amount:        d.Amount,
		PaidAmount:    d.PaidAmount,
		CreditApplied: d.CreditApplied,
		Status:        d.Status,
		DueDate:       shared.NormalizeDate(d.DueDate),
		Description:   d.Description,
		PaidAt:        d.PaidAt,
		AppointmentID: d.AppointmentID,
		QuoteID:       d.QuoteID,
	}
	m.FromDomainBaseEntity(d.BaseEntity)
	return m
}

// PaymentModel is the persistence model for the Payment domain entity.
type PaymentModel struct {
	BaseModel
	ClientID       uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount         decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Method         finance.PaymentMethod `gorm:"type:varchar(20);not null"`
	PaymentDate    time.Time             `gorm:"type:date;not null"`
	Notes          string                `gorm:"type:text"`
	CreditedAmount decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *finance.Payment {
	return &finance.Payment{
		BaseEntity:     m.BaseModel.ToDomain(),
		ClientID:       m.ClientID,
		Amount:         shared.RoundMoney(m.Amount),
		Method:         m.Method,
		PaymentDate:    shared.NormalizeDate(m.PaymentDate),
		Notes:          m.Notes,
		CreditedAmount: shared.RoundMoney(m.CreditedAmount),
	}
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment entity.
func PaymentModelFromDomain(p *finance.Payment) *PaymentModel {
	m := &PaymentModel{
		ClientID:       p.ClientID,
		Amount:         p.Amount,
		Method:         p.Method,
		PaymentDate:    shared.NormalizeDate(p.PaymentDate),
		Notes:          p.Notes,
		CreditedAmount: p.CreditedAmount,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}

// DebtPaymentModel is one row of debt_payments
type DebtPaymentModel struct {
	PaymentID     uuid.UUID       `gorm:"type:uuid;primaryKey"`
	DebtID        uuid.UUID       `gorm:"type:uuid;primaryKey;index"`
	AmountApplied decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DebtPaymentModel) TableName() string {
	return "debt_payments"
}

// ToDomain converts the row to a domain DebtPayment
func (m *DebtPaymentModel) ToDomain() finance.DebtPayment {
	return finance.DebtPayment{
		PaymentID:     m.PaymentID,
		DebtID:        m.DebtID,
		AmountApplied: shared.RoundMoney(m.AmountApplied),
		CreatedAt:     m.CreatedAt,
	}
}

// DebtPaymentModelFromDomain creates a row from a domain DebtPayment
func DebtPaymentModelFromDomain(dp finance.DebtPayment) DebtPaymentModel {
	created := dp.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return DebtPaymentModel{
		PaymentID:     dp.PaymentID,
		DebtID:        dp.DebtID,
		AmountApplied: dp.AmountApplied,
		CreatedAt:     created,
	}
}

// ClientCreditModel is the persistence model for ClientCredit, one row per client
type ClientCreditModel struct {
	ClientID  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ClientCreditModel) TableName() string {
	return "client_credits"
}

// ToDomain converts the row to a domain ClientCredit
func (m *ClientCreditModel) ToDomain() *finance.ClientCredit {
	return &finance.ClientCredit{
		ClientID:  m.ClientID,
		Amount:    shared.RoundMoney(m.Amount),
		UpdatedAt: m.UpdatedAt,
	}
}
