package models

import (
	"time"

	"github.com/dentalclinic/backend/internal/domain/scheduling"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// AppointmentModel is the persistence model for the Appointment aggregate root.
// Lines live in AppointmentLineModel and are loaded separately.
type AppointmentModel struct {
	BaseModel
	ClientID  uuid.UUID                    `gorm:"type:uuid;not null;index"`
	DentistID *uuid.UUID                   `gorm:"type:uuid;index"`
	Date      datatypes.Date               `gorm:"column:appointment_date;not null;index:idx_appointments_slot,priority:1"`
	Time      string                       `gorm:"column:appointment_time;type:varchar(5);not null;index:idx_appointments_slot,priority:2"`
	Status    scheduling.AppointmentStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	Notes     string                       `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (AppointmentModel) TableName() string {
	return "appointments"
}

// ToDomain converts the persistence model to a domain Appointment. Lines are attached by the caller.
func (m *AppointmentModel) ToDomain() *scheduling.Appointment {
	return &scheduling.Appointment{
		BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: m.BaseModel.ToDomain()},
		ClientID:          m.ClientID,
		DentistID:         m.DentistID,
		Date:              shared.NormalizeDate(time.Time(m.Date)),
		Time:              m.Time,
		Status:            m.Status,
		Notes:             m.Notes,
		Lines:             make([]scheduling.AppointmentLine, 0),
	}
}

// AppointmentModelFromDomain creates a new persistence model from a domain Appointment.
func AppointmentModelFromDomain(a *scheduling.Appointment) *AppointmentModel {
	m := &AppointmentModel{
		ClientID:  a.ClientID,
		DentistID: a.DentistID,
		Date:      datatypes.Date(shared.NormalizeDate(a.Date)),
		Time:      a.Time,
		Status:    a.Status,
		Notes:     a.Notes,
	}
	m.FromDomainBaseEntity(a.BaseEntity)
	return m
}

// AppointmentLineModel is one row of appointment_treatments
type AppointmentLineModel struct {
	AppointmentID  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TreatmentID    uuid.UUID       `gorm:"type:uuid;primaryKey;index"`
	PriceAtBooking decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Quantity       int             `gorm:"not null;default:1"`
	CreatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AppointmentLineModel) TableName() string {
	return "appointment_treatments"
}

// ToDomain converts the row to a domain line
func (m *AppointmentLineModel) ToDomain() scheduling.AppointmentLine {
	return scheduling.AppointmentLine{
		AppointmentID:  m.AppointmentID,
		TreatmentID:    m.TreatmentID,
		PriceAtBooking: shared.RoundMoney(m.PriceAtBooking),
		Quantity:       m.Quantity,
	}
}

// AppointmentLineModelFromDomain creates a row from a domain line
func AppointmentLineModelFromDomain(l scheduling.AppointmentLine) *AppointmentLineModel {
	return &AppointmentLineModel{
		AppointmentID:  l.AppointmentID,
		TreatmentID:    l.TreatmentID,
		PriceAtBooking: l.PriceAtBooking,
		Quantity:       l.Quantity,
		CreatedAt:      time.Now(),
	}
}
