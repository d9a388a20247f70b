package history

import (
	"context"
	"strings"
	"time"

	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ClientTreatment tracks how much of a prescribed treatment a client has received.
// A row is keyed by (client, treatment, appointment, quote); at most one source id is set.
type ClientTreatment struct {
	shared.BaseEntity
	ClientID          uuid.UUID
	TreatmentID       uuid.UUID
	AppointmentID     *uuid.UUID
	QuoteID           *uuid.UUID
	CompletedQuantity int
	TotalQuantity     int
	TreatmentDate     time.Time
	Notes             string
}

// NewClientTreatment creates a history row with completed clamped to total
func NewClientTreatment(clientID, treatmentID uuid.UUID, total, completed int, date time.Time) (*ClientTreatment, error) {
	if clientID == uuid.Nil || treatmentID == uuid.Nil {
		return nil, shared.ErrValidationFailed.WithMessage("client and treatment are required")
	}
	if total < 1 {
		return nil, shared.ErrValidationFailed.WithMessage("total quantity must be at least 1")
	}
	if completed < 0 {
		return nil, shared.ErrValidationFailed.WithMessage("completed quantity cannot be negative")
	}
	return &ClientTreatment{
		BaseEntity:        shared.NewBaseEntity(),
		ClientID:          clientID,
		TreatmentID:       treatmentID,
		CompletedQuantity: min(completed, total),
		TotalQuantity:     total,
		TreatmentDate:     shared.NormalizeDate(date),
	}, nil
}

// ForAppointment tags the row with an appointment
func (ct *ClientTreatment) ForAppointment(appointmentID uuid.UUID) *ClientTreatment {
	ct.AppointmentID = &appointmentID
	ct.QuoteID = nil
	return ct
}

// ForQuote tags the row with a quote
func (ct *ClientTreatment) ForQuote(quoteID uuid.UUID) *ClientTreatment {
	ct.QuoteID = &quoteID
	ct.AppointmentID = nil
	return ct
}

// Advance marks more units completed, clamped to the total
func (ct *ClientTreatment) Advance(quantity int, notes string, date *time.Time) error {
	if quantity < 0 {
		return shared.ErrValidationFailed.WithMessage("quantity cannot be negative")
	}
	ct.CompletedQuantity = min(ct.TotalQuantity, ct.CompletedQuantity+quantity)
	if notes = strings.TrimSpace(notes); notes != "" {
		ct.Notes = notes
	}
	if date != nil {
		ct.TreatmentDate = shared.NormalizeDate(*date)
	}
	ct.Touch()
	return nil
}

// IsCompleted returns true once every unit has been delivered
func (ct *ClientTreatment) IsCompleted() bool {
	return ct.CompletedQuantity >= ct.TotalQuantity
}

// Source returns which kind of record the row belongs to
func (ct *ClientTreatment) Source() Source {
	switch {
	case ct.AppointmentID != nil:
		return SourceAppointment
	case ct.QuoteID != nil:
		return SourceQuote
	default:
		return SourceRecord
	}
}

// ClientTreatmentRepository defines persistence for history rows
type ClientTreatmentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ClientTreatment, error)
	FindByClient(ctx context.Context, clientID uuid.UUID) ([]ClientTreatment, error)
	// FindByKey returns the row for (client, treatment, appointment, quote) or ErrNotFound
	FindByKey(ctx context.Context, clientID, treatmentID uuid.UUID, appointmentID, quoteID *uuid.UUID) (*ClientTreatment, error)
	FindByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]ClientTreatment, error)
	Save(ctx context.Context, row *ClientTreatment) error
	CreateBatch(ctx context.Context, rows []*ClientTreatment) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByAppointment(ctx context.Context, appointmentID uuid.UUID) error
	DeleteByQuote(ctx context.Context, quoteID uuid.UUID) error
	DeleteByClient(ctx context.Context, clientID uuid.UUID) error
}
