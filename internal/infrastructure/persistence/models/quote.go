package models

import (
	"time"

	"github.com/dentalclinic/backend/internal/domain/quote"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteModel is the persistence model for the Quote aggregate root.
type QuoteModel struct {
	BaseModel
	ClientID       uuid.UUID         `gorm:"type:uuid;not null;index"`
	QuoteDate      time.Time         `gorm:"type:date;not null;index"`
	ExpirationDate *time.Time        `gorm:"type:date"`
	TotalAmount    decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	Discount       decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	Status         quote.QuoteStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	Notes          string            `gorm:"type:text"`
	UserID         *uuid.UUID        `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (QuoteModel) TableName() string {
	return "quotes"
}

// ToDomain converts the persistence model to a domain Quote. Lines are attached by the caller.
func (m *QuoteModel) ToDomain() *quote.Quote {
	q := &quote.Quote{
		BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: m.BaseModel.ToDomain()},
		ClientID:          m.ClientID,
		QuoteDate:         shared.NormalizeDate(m.QuoteDate),
		TotalAmount:       shared.RoundMoney(m.TotalAmount),
		Discount:          shared.RoundMoney(m.Discount),
		Status:            m.Status,
		Notes:             m.Notes,
		UserID:            m.UserID,
		Lines:             make([]quote.QuoteLine, 0),
	}
	if m.ExpirationDate != nil {
		exp := shared.NormalizeDate(*m.ExpirationDate)
		q.ExpirationDate = &exp
	}
	return q
}

// QuoteModelFromDomain creates a new persistence model from a domain Quote.
func QuoteModelFromDomain(q *quote.Quote) *QuoteModel {
	m := &QuoteModel{
		ClientID:       q.ClientID,
		QuoteDate:      shared.NormalizeDate(q.QuoteDate),
		ExpirationDate: q.ExpirationDate,
		TotalAmount:    q.TotalAmount,
		Discount:       q.Discount,
		Status:         q.Status,
		Notes:          q.Notes,
		UserID:         q.UserID,
	}
	m.FromDomainBaseEntity(q.BaseEntity)
	return m
}

// QuoteLineModel is one row of quote_treatments
type QuoteLineModel struct {
	QuoteID      uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TreatmentID  uuid.UUID       `gorm:"type:uuid;primaryKey;index"`
	PriceAtQuote decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Quantity     int             `gorm:"not null;default:1"`
	CreatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (QuoteLineModel) TableName() string {
	return "quote_treatments"
}

// ToDomain converts the row to a domain line
func (m *QuoteLineModel) ToDomain() quote.QuoteLine {
	return quote.QuoteLine{
		QuoteID:      m.QuoteID,
		TreatmentID:  m.TreatmentID,
		PriceAtQuote: shared.RoundMoney(m.PriceAtQuote),
		Quantity:     m.Quantity,
	}
}

// QuoteLineModelFromDomain creates a row from a domain line
func QuoteLineModelFromDomain(l quote.QuoteLine) *QuoteLineModel {
	return &QuoteLineModel{
		QuoteID:      l.QuoteID,
		TreatmentID:  l.TreatmentID,
		PriceAtQuote: l.PriceAtQuote,
		Quantity:     l.Quantity,
		CreatedAt:    time.Now(),
	}
}
