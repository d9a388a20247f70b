package scheduling

import (
	"time"

	"github.com/dentalclinic/backend/internal/domain/scheduling"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// LineRequest is one treatment booked on an appointment
type LineRequest struct {
	TreatmentID uuid.UUID `json:"treatment_id" binding:"required"`
	Quantity    int       `json:"quantity" binding:"required,min=1"`
}

// CreateAppointmentRequest represents a request to book an appointment
type CreateAppointmentRequest struct {
	ClientID  uuid.UUID     `json:"client_id" binding:"required"`
	Date      string        `json:"date" binding:"required,datetime=2006-01-02"`
	Time      string        `json:"time" binding:"required"`
	Lines     []LineRequest `json:"lines" binding:"dive"`
	Notes     string        `json:"notes" binding:"max=2000"`
	DentistID *uuid.UUID    `json:"dentist_id"`
}

// UpdateAppointmentRequest represents a partial update. Lines, when present,
// replace the booked treatments.
type UpdateAppointmentRequest struct {
	ClientID     *uuid.UUID     `json:"client_id"`
	Date         *string        `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Time         *string        `json:"time"`
	Notes        *string        `json:"notes" binding:"omitempty,max=2000"`
	DentistID    *uuid.UUID     `json:"dentist_id"`
	ClearDentist bool           `json:"clear_dentist"`
	Lines        *[]LineRequest `json:"lines" binding:"omitempty,dive"`
}

// SetStatusRequest represents a status change
type SetStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending completed cancelled"`
}

// ListFilter represents filter options for the appointment list
type ListFilter struct {
	DateFrom string     `form:"date_from" binding:"omitempty,datetime=2006-01-02"`
	DateTo   string     `form:"date_to" binding:"omitempty,datetime=2006-01-02"`
	Status   string     `form:"status" binding:"omitempty,oneof=pending completed cancelled"`
	Search   string     `form:"search"`
	ClientID *uuid.UUID `form:"client_id"`
	Limit    int        `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset   int        `form:"offset" binding:"omitempty,min=0"`
}

// LineResponse is one booked treatment with its captured price
type LineResponse struct {
	TreatmentID uuid.UUID       `json:"treatment_id"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// AppointmentResponse represents an appointment in API responses
type AppointmentResponse struct {
	ID        uuid.UUID       `json:"id"`
	ClientID  uuid.UUID       `json:"client_id"`
	DentistID *uuid.UUID      `json:"dentist_id,omitempty"`
	Date      string          `json:"date"`
	Time      string          `json:"time"`
	Status    string          `json:"status"`
	Notes     string          `json:"notes,omitempty"`
	Lines     []LineResponse  `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SlotResponse is one bookable time on a day
type SlotResponse struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// ToAppointmentResponse converts a domain Appointment to AppointmentResponse
func ToAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	lines := make([]LineResponse, len(a.Lines))
	for i, l := range a.Lines {
		lines[i] = LineResponse{
			TreatmentID: l.TreatmentID,
			Price:       l.PriceAtBooking,
			Quantity:    l.Quantity,
			Subtotal:    l.Subtotal(),
		}
	}
	return AppointmentResponse{
		ID:        a.ID,
		ClientID:  a.ClientID,
		DentistID: a.DentistID,
		Date:      a.Date.Format(DateLayout),
		Time:      a.Time,
		Status:    a.Status.String(),
		Notes:     a.Notes,
		Lines:     lines,
		Total:     a.Total(),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// ToAppointmentResponses converts a slice of appointments
func ToAppointmentResponses(appointments []scheduling.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, len(appointments))
	for i := range appointments {
		out[i] = ToAppointmentResponse(&appointments[i])
	}
	return out
}

func toLineInputs(lines []LineRequest) []scheduling.LineInput {
	out := make([]scheduling.LineInput, len(lines))
	for i, l := range lines {
		out[i] = scheduling.LineInput{TreatmentID: l.TreatmentID, Quantity: l.Quantity}
	}
	return out
}
