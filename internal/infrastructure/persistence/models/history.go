package models

import (
	"time"

	"github.com/dentalclinic/backend/internal/domain/history"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ClientTreatmentModel is the persistence model for a history row
type ClientTreatmentModel struct {
	BaseModel
	ClientID          uuid.UUID  `gorm:"type:uuid;not null;index"`
	TreatmentID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	AppointmentID     *uuid.UUID `gorm:"type:uuid;index"`
	QuoteID           *uuid.UUID `gorm:"type:uuid;index"`
	CompletedQuantity int        `gorm:"not null;default:0"`
	TotalQuantity     int        `gorm:"not null;default:1"`
	TreatmentDate     time.Time  `gorm:"type:date;not null"`
	Notes             string     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ClientTreatmentModel) TableName() string {
	return "client_treatments"
}

// ToDomain converts the persistence model to a domain ClientTreatment
func (m *ClientTreatmentModel) ToDomain() *history.ClientTreatment {
	return &history.ClientTreatment{
		BaseEntity:        m.BaseModel.ToDomain(),
		ClientID:          m.ClientID,
		TreatmentID:       m.TreatmentID,
		AppointmentID:     m.AppointmentID,
		QuoteID:           m.QuoteID,
		CompletedQuantity: m.CompletedQuantity,
		TotalQuantity:     m.TotalQuantity,
		TreatmentDate:     shared.NormalizeDate(m.TreatmentDate),
		Notes:             m.Notes,
	}
}

// ClientTreatmentModelFromDomain creates a new persistence model from a domain ClientTreatment
func ClientTreatmentModelFromDomain(ct *history.ClientTreatment) *ClientTreatmentModel {
	m := &ClientTreatmentModel{
		ClientID:          ct.ClientID,
		TreatmentID:       ct.TreatmentID,
		AppointmentID:     ct.AppointmentID,
		QuoteID:           ct.QuoteID,
		CompletedQuantity: ct.CompletedQuantity,
		TotalQuantity:     ct.TotalQuantity,
		TreatmentDate:     shared.NormalizeDate(ct.TreatmentDate),
		Notes:             ct.Notes,
	}
	m.FromDomainBaseEntity(ct.BaseEntity)
	return m
}

// MedicalRecordModel is the persistence model for a MedicalRecord
type MedicalRecordModel struct {
	BaseModel
	ClientID       uuid.UUID `gorm:"type:uuid;not null;index"`
	RecordDate     time.Time `gorm:"type:date;not null"`
	Diagnosis      string    `gorm:"type:text"`
	TreatmentNotes string    `gorm:"type:text"`
	Observations   string    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (MedicalRecordModel) TableName() string {
	return "medical_records"
}

// ToDomain converts the persistence model to a domain MedicalRecord
func (m *MedicalRecordModel) ToDomain() *history.MedicalRecord {
	return &history.MedicalRecord{
		BaseEntity:     m.BaseModel.ToDomain(),
		ClientID:       m.ClientID,
		RecordDate:     shared.NormalizeDate(m.RecordDate),
		Diagnosis:      m.Diagnosis,
		TreatmentNotes: m.TreatmentNotes,
		Observations:   m.Observations,
	}
}

// MedicalRecordModelFromDomain creates a new persistence model from a domain MedicalRecord
func MedicalRecordModelFromDomain(r *history.MedicalRecord) *MedicalRecordModel {
	m := &MedicalRecordModel{
		ClientID:       r.ClientID,
		RecordDate:     shared.NormalizeDate(r.RecordDate),
		Diagnosis:      r.Diagnosis,
		TreatmentNotes: r.TreatmentNotes,
		Observations:   r.Observations,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}
