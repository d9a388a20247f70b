package quote

import (
	"context"
	"strings"
	"time"

	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteStatus represents the status of a quote (budget)
type QuoteStatus string

const (
	QuoteStatusPending  QuoteStatus = "pending"
	QuoteStatusApproved QuoteStatus = "approved"
	QuoteStatusRejected QuoteStatus = "rejected"
	QuoteStatusExpired  QuoteStatus = "expired"
	QuoteStatusInvoiced QuoteStatus = "invoiced"
)

// quoteTransitions lists the allowed targets for each status
var quoteTransitions = map[QuoteStatus][]QuoteStatus{
	QuoteStatusPending:  {QuoteStatusApproved, QuoteStatusRejected, QuoteStatusExpired, QuoteStatusInvoiced},
	QuoteStatusApproved: {},
	QuoteStatusRejected: {},
	QuoteStatusExpired:  {},
	QuoteStatusInvoiced: {},
}

// IsValid checks if the status is a known QuoteStatus
func (s QuoteStatus) IsValid() bool {
	_, ok := quoteTransitions[s]
	return ok
}

// String returns the string representation of QuoteStatus
func (s QuoteStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether s -> target is allowed
func (s QuoteStatus) CanTransitionTo(target QuoteStatus) bool {
	for _, allowed := range quoteTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// QuoteLine is one treatment on a quote
type QuoteLine struct {
	QuoteID      uuid.UUID
	TreatmentID  uuid.UUID
	PriceAtQuote decimal.Decimal
	Quantity     int
}

// Subtotal returns price_at_quote * quantity
func (l QuoteLine) Subtotal() decimal.Decimal {
	return l.PriceAtQuote.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineInput is a caller-supplied line. Price overrides the catalog price when set.
type LineInput struct {
	TreatmentID uuid.UUID
	Quantity    int
	Price       *decimal.Decimal
}

// Quote is the aggregate root for a budget offered to a client
type Quote struct {
	shared.BaseAggregateRoot
	ClientID       uuid.UUID
	QuoteDate      time.Time
	ExpirationDate *time.Time
	TotalAmount    decimal.Decimal
	Discount       decimal.Decimal
	Status         QuoteStatus
	Notes          string
	UserID         *uuid.UUID
	Lines          []QuoteLine
}

// NewQuote creates a pending quote dated today
func NewQuote(clientID uuid.UUID, quoteDate time.Time) (*Quote, error) {
	if clientID == uuid.Nil {
		return nil, shared.ErrValidationFailed.WithMessage("client is required")
	}
	return &Quote{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ClientID:          clientID,
		QuoteDate:         shared.NormalizeDate(quoteDate),
		TotalAmount:       decimal.Zero,
		Discount:          decimal.Zero,
		Status:            QuoteStatusPending,
		Lines:             make([]QuoteLine, 0),
	}, nil
}

// Revise replaces the client, lines, discount and optional fields, then recomputes the total.
// catalogPrices supplies the price of every treatment that has no override.
func (q *Quote) Revise(clientID uuid.UUID, inputs []LineInput, catalogPrices map[uuid.UUID]decimal.Decimal,
	discount decimal.Decimal, expiration *time.Time, notes string) error {
	if clientID == uuid.Nil {
		return shared.ErrValidationFailed.WithMessage("client is required")
	}
	if discount.IsNegative() {
		return shared.ErrValidationFailed.WithMessage("discount cannot be negative")
	}
	if len(inputs) == 0 {
		return shared.ErrValidationFailed.WithMessage("a quote needs at least one treatment")
	}

	lines := make([]QuoteLine, 0, len(inputs))
	index := make(map[uuid.UUID]int, len(inputs))
	for _, in := range inputs {
		if in.TreatmentID == uuid.Nil {
			return shared.ErrValidationFailed.WithMessage("treatment is required on every line")
		}
		if in.Quantity < 1 {
			return shared.ErrValidationFailed.WithMessage("line quantity must be at least 1")
		}
		var price decimal.Decimal
		if in.Price != nil {
			if in.Price.IsNegative() {
				return shared.ErrValidationFailed.WithMessage("line price cannot be negative")
			}
			price = *in.Price
		} else {
			p, ok := catalogPrices[in.TreatmentID]
			if !ok {
				return shared.ErrNotFound.WithMessagef("treatment %s not found", in.TreatmentID)
			}
			price = p
		}
		price = shared.RoundMoney(price)
		if i, seen := index[in.TreatmentID]; seen {
			if !lines[i].PriceAtQuote.Equal(price) {
				return shared.ErrValidationFailed.WithMessage("the same treatment cannot appear twice with different prices")
			}
			lines[i].Quantity += in.Quantity
			continue
		}
		index[in.TreatmentID] = len(lines)
		lines = append(lines, QuoteLine{
			QuoteID:      q.ID,
			TreatmentID:  in.TreatmentID,
			PriceAtQuote: price,
			Quantity:     in.Quantity,
		})
	}

	if expiration != nil {
		exp := shared.NormalizeDate(*expiration)
		if exp.Before(q.QuoteDate) {
			return shared.ErrValidationFailed.WithMessage("expiration date cannot be before the quote date")
		}
		expiration = &exp
	}

	q.ClientID = clientID
	q.Lines = lines
	q.Discount = shared.RoundMoney(discount)
	q.ExpirationDate = expiration
	q.Notes = strings.TrimSpace(notes)
	q.TotalAmount = ComputeTotal(lines, q.Discount)
	q.Touch()
	return nil
}

// Gross returns the sum of line subtotals before discount
func (q *Quote) Gross() decimal.Decimal {
	return grossOf(q.Lines)
}

// ComputeTotal returns max(0, sum of subtotals - discount) rounded to cents
func ComputeTotal(lines []QuoteLine, discount decimal.Decimal) decimal.Decimal {
	total := grossOf(lines).Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return shared.RoundMoney(total)
}

func grossOf(lines []QuoteLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

// ChangeStatus applies a status transition. Setting the same status again is a no-op.
func (q *Quote) ChangeStatus(target QuoteStatus) error {
	if !target.IsValid() {
		return shared.ErrValidationFailed.WithMessagef("invalid quote status %q", target)
	}
	if q.Status == target {
		return nil
	}
	if !q.Status.CanTransitionTo(target) {
		return shared.ErrInvalidState.WithMessagef("cannot change quote from %s to %s", q.Status, target)
	}
	q.Status = target
	q.Touch()
	return nil
}

// Filter narrows quote listings
type Filter struct {
	ClientID *uuid.UUID
	Status   QuoteStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Search   string
	Limit    int
	Offset   int
}

// QuoteRepository defines persistence for quotes and their lines
type QuoteRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Quote, error)
	FindAll(ctx context.Context, filter Filter) ([]Quote, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	FindByClient(ctx context.Context, clientID uuid.UUID) ([]Quote, error)
	Save(ctx context.Context, quote *Quote) error
	ReplaceLines(ctx context.Context, quoteID uuid.UUID, lines []QuoteLine) error
	Delete(ctx context.Context, id uuid.UUID) error
	IDsByClient(ctx context.Context, clientID uuid.UUID) ([]uuid.UUID, error)
	// ExpirePending marks every pending quote whose expiration date is before
	// today as expired and returns the affected ids
	ExpirePending(ctx context.Context, today time.Time) ([]uuid.UUID, error)
}
