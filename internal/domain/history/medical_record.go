package history

import (
	"context"
	"strings"
	"time"

	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MedicalRecord is a free-form clinical note for one visit
type MedicalRecord struct {
	shared.BaseEntity
	ClientID       uuid.UUID
	RecordDate     time.Time
	Diagnosis      string
	TreatmentNotes string
	Observations   string
}

// NewMedicalRecord creates a record for a client
func NewMedicalRecord(clientID uuid.UUID, recordDate time.Time) (*MedicalRecord, error) {
	if clientID == uuid.Nil {
		return nil, shared.ErrValidationFailed.WithMessage("client is required")
	}
	return &MedicalRecord{
		BaseEntity: shared.NewBaseEntity(),
		ClientID:   clientID,
		RecordDate: shared.NormalizeDate(recordDate),
	}, nil
}

// Update replaces the record contents
func (r *MedicalRecord) Update(recordDate time.Time, diagnosis, treatmentNotes, observations string) {
	r.RecordDate = shared.NormalizeDate(recordDate)
	r.Diagnosis = strings.TrimSpace(diagnosis)
	r.TreatmentNotes = strings.TrimSpace(treatmentNotes)
	r.Observations = strings.TrimSpace(observations)
	r.Touch()
}

// MedicalRecordRepository defines persistence for medical records
type MedicalRecordRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	FindByClient(ctx context.Context, clientID uuid.UUID) ([]MedicalRecord, error)
	Save(ctx context.Context, record *MedicalRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByClient(ctx context.Context, clientID uuid.UUID) error
}
