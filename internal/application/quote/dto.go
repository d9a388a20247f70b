package quote

import (
	"time"

	"github.com/dentalclinic/backend/internal/domain/quote"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineRequest is one treatment on a quote. Price overrides the catalog price.
type LineRequest struct {
	TreatmentID uuid.UUID        `json:"treatment_id" binding:"required"`
	Quantity    int              `json:"quantity" binding:"required,min=1"`
	Price       *decimal.Decimal `json:"price"`
}

// CreateQuoteRequest represents a request to issue a budget
type CreateQuoteRequest struct {
	ClientID       uuid.UUID       `json:"client_id" binding:"required"`
	Lines          []LineRequest   `json:"lines" binding:"required,min=1,dive"`
	Discount       decimal.Decimal `json:"discount"`
	ExpirationDate *time.Time      `json:"expiration_date"`
	Notes          string          `json:"notes" binding:"max=2000"`
	UserID         *uuid.UUID      `json:"user_id"`
}

// UpdateQuoteRequest replaces every editable field of a quote
type UpdateQuoteRequest struct {
	ClientID       uuid.UUID       `json:"client_id" binding:"required"`
	Lines          []LineRequest   `json:"lines" binding:"required,min=1,dive"`
	Discount       decimal.Decimal `json:"discount"`
	ExpirationDate *time.Time      `json:"expiration_date"`
	Notes          string          `json:"notes" binding:"max=2000"`
	Status         string          `json:"status" binding:"omitempty,oneof=pending approved rejected expired invoiced"`
}

// SetStatusRequest represents a status change
type SetStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending approved rejected expired invoiced"`
}

// ListFilter represents filter options for the quote list
type ListFilter struct {
	ClientID *uuid.UUID `form:"client_id"`
	Status   string     `form:"status" binding:"omitempty,oneof=pending approved rejected expired invoiced"`
	DateFrom *time.Time `form:"date_from" time_format:"2006-01-02"`
	DateTo   *time.Time `form:"date_to" time_format:"2006-01-02"`
	Search   string     `form:"search"`
	Limit    int        `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset   int        `form:"offset" binding:"omitempty,min=0"`
}

// LineResponse is one quoted treatment
type LineResponse struct {
	TreatmentID   uuid.UUID       `json:"treatment_id"`
	TreatmentName string          `json:"treatment_name,omitempty"`
	PriceAtQuote  decimal.Decimal `json:"price_at_quote"`
	Quantity      int             `json:"quantity"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

// QuoteResponse represents a quote in API responses
type QuoteResponse struct {
	ID             uuid.UUID       `json:"id"`
	ClientID       uuid.UUID       `json:"client_id"`
	QuoteDate      time.Time       `json:"quote_date"`
	ExpirationDate *time.Time      `json:"expiration_date,omitempty"`
	Gross          decimal.Decimal `json:"gross"`
	Discount       decimal.Decimal `json:"discount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Status         string          `json:"status"`
	Notes          string          `json:"notes,omitempty"`
	UserID         *uuid.UUID      `json:"user_id,omitempty"`
	Lines          []LineResponse  `json:"lines"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ClientInfo is the client data printed on a budget
type ClientInfo struct {
	ClientID  uuid.UUID `json:"client_id"`
	Name      string    `json:"name"`
	Cedula    string    `json:"cedula"`
	QuoteDate time.Time `json:"quote_date"`
}

// ToQuoteResponse converts a domain Quote to QuoteResponse
func ToQuoteResponse(q *quote.Quote) QuoteResponse {
	return QuoteResponse{
		ID:             q.ID,
		ClientID:       q.ClientID,
		QuoteDate:      q.QuoteDate,
		ExpirationDate: q.ExpirationDate,
		Gross:          q.Gross(),
		Discount:       q.Discount,
		TotalAmount:    q.TotalAmount,
		Status:         q.Status.String(),
		Notes:          q.Notes,
		UserID:         q.UserID,
		Lines:          toLineResponses(q.Lines, nil),
		CreatedAt:      q.CreatedAt,
		UpdatedAt:      q.UpdatedAt,
	}
}

// ToQuoteResponses converts a slice of quotes
func ToQuoteResponses(quotes []quote.Quote) []QuoteResponse {
	out := make([]QuoteResponse, len(quotes))
	for i := range quotes {
		out[i] = ToQuoteResponse(&quotes[i])
	}
	return out
}

func toLineResponses(lines []quote.QuoteLine, names map[uuid.UUID]string) []LineResponse {
	out := make([]LineResponse, len(lines))
	for i, l := range lines {
		out[i] = LineResponse{
			TreatmentID:   l.TreatmentID,
			TreatmentName: names[l.TreatmentID],
			PriceAtQuote:  l.PriceAtQuote,
			Quantity:      l.Quantity,
			Subtotal:      l.Subtotal(),
		}
	}
	return out
}

func toLineInputs(lines []LineRequest) []quote.LineInput {
	out := make([]quote.LineInput, len(lines))
	for i, l := range lines {
		out[i] = quote.LineInput{TreatmentID: l.TreatmentID, Quantity: l.Quantity, Price: l.Price}
	}
	return out
}
