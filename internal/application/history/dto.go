package history

import (
	"time"

	apppartner "github.com/dentalclinic/backend/internal/application/partner"
	appquote "github.com/dentalclinic/backend/internal/application/quote"
	appscheduling "github.com/dentalclinic/backend/internal/application/scheduling"
	"github.com/dentalclinic/backend/internal/domain/history"
	"github.com/google/uuid"
)

// AddOrAdvanceRequest records delivered units of a treatment
type AddOrAdvanceRequest struct {
	ClientID      uuid.UUID  `json:"client_id" binding:"required"`
	TreatmentID   uuid.UUID  `json:"treatment_id" binding:"required"`
	Quantity      int        `json:"quantity" binding:"omitempty,min=1"`
	Notes         string     `json:"notes" binding:"max=2000"`
	TreatmentDate *time.Time `json:"treatment_date"`
	AppointmentID *uuid.UUID `json:"appointment_id"`
	QuoteID       *uuid.UUID `json:"quote_id"`
}

// ClientTreatmentResponse represents a history row in API responses
type ClientTreatmentResponse struct {
	ID                uuid.UUID  `json:"id"`
	ClientID          uuid.UUID  `json:"client_id"`
	TreatmentID       uuid.UUID  `json:"treatment_id"`
	AppointmentID     *uuid.UUID `json:"appointment_id,omitempty"`
	QuoteID           *uuid.UUID `json:"quote_id,omitempty"`
	CompletedQuantity int        `json:"completed_quantity"`
	TotalQuantity     int        `json:"total_quantity"`
	TreatmentDate     time.Time  `json:"treatment_date"`
	Notes             string     `json:"notes,omitempty"`
}

// MedicalRecordRequest creates or replaces a medical record
type MedicalRecordRequest struct {
	ClientID       uuid.UUID  `json:"client_id" binding:"required"`
	RecordDate     *time.Time `json:"record_date"`
	Diagnosis      string     `json:"diagnosis" binding:"max=4000"`
	TreatmentNotes string     `json:"treatment_notes" binding:"max=4000"`
	Observations   string     `json:"observations" binding:"max=4000"`
}

// MedicalRecordResponse represents a medical record in API responses
type MedicalRecordResponse struct {
	ID             uuid.UUID `json:"id"`
	ClientID       uuid.UUID `json:"client_id"`
	RecordDate     time.Time `json:"record_date"`
	Diagnosis      string    `json:"diagnosis,omitempty"`
	TreatmentNotes string    `json:"treatment_notes,omitempty"`
	Observations   string    `json:"observations,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FullHistory bundles everything recorded for a client
type FullHistory struct {
	Client            apppartner.ClientResponse           `json:"client"`
	MedicalRecords    []MedicalRecordResponse             `json:"medical_records"`
	UnifiedTreatments []history.UnifiedItem               `json:"unified_treatments"`
	Appointments      []appscheduling.AppointmentResponse `json:"appointments"`
	Quotes            []appquote.QuoteResponse            `json:"quotes"`
}

// ToClientTreatmentResponse converts a history row
func ToClientTreatmentResponse(ct *history.ClientTreatment) ClientTreatmentResponse {
	return ClientTreatmentResponse{
		ID:                ct.ID,
		ClientID:          ct.ClientID,
		TreatmentID:       ct.TreatmentID,
		AppointmentID:     ct.AppointmentID,
		QuoteID:           ct.QuoteID,
		CompletedQuantity: ct.CompletedQuantity,
		TotalQuantity:     ct.TotalQuantity,
		TreatmentDate:     ct.TreatmentDate,
		Notes:             ct.Notes,
	}
}

// ToMedicalRecordResponse converts a medical record
func ToMedicalRecordResponse(r *history.MedicalRecord) MedicalRecordResponse {
	return MedicalRecordResponse{
		ID:             r.ID,
		ClientID:       r.ClientID,
		RecordDate:     r.RecordDate,
		Diagnosis:      r.Diagnosis,
		TreatmentNotes: r.TreatmentNotes,
		Observations:   r.Observations,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// ToMedicalRecordResponses converts a slice of medical records
func ToMedicalRecordResponses(records []history.MedicalRecord) []MedicalRecordResponse {
	out := make([]MedicalRecordResponse, len(records))
	for i := range records {
		out[i] = ToMedicalRecordResponse(&records[i])
	}
	return out
}
