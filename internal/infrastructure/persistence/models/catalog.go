package models

import (
	"github.com/dentalclinic/backend/internal/domain/catalog"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DentistModel is the persistence model for the Dentist domain entity.
type DentistModel struct {
	BaseModel
	Name      string `gorm:"type:varchar(200);not null;index"`
	Phone     string `gorm:"type:varchar(50)"`
	Specialty string `gorm:"type:varchar(100)"`
	IsActive  bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (DentistModel) TableName() string {
	return "dentists"
}

// ToDomain converts the persistence model to a domain Dentist entity.
func (m *DentistModel) ToDomain() *catalog.Dentist {
	return &catalog.Dentist{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
		Phone:      m.Phone,
		Specialty:  m.Specialty,
		IsActive:   m.IsActive,
	}
}

// DentistModelFromDomain creates a new persistence model from a domain Dentist entity.
func DentistModelFromDomain(d *catalog.Dentist) *DentistModel {
	m := &DentistModel{
		Name:      d.Name,
		Phone:     d.Phone,
		Specialty: d.Specialty,
		IsActive:  d.IsActive,
	}
	m.FromDomainBaseEntity(d.BaseEntity)
	return m
}

// TreatmentModel is the persistence model for the Treatment domain entity.
type TreatmentModel struct {
	BaseModel
	Name            string          `gorm:"type:varchar(200);not null;index"`
	Description     string          `gorm:"type:text"`
	Price           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DurationMinutes int             `gorm:"not null;default:30"`
	IsActive        bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (TreatmentModel) TableName() string {
	return "treatments"
}

// ToDomain converts the persistence model to a domain Treatment entity.
func (m *TreatmentModel) ToDomain() *catalog.Treatment {
	return &catalog.Treatment{
		BaseEntity:      m.BaseModel.ToDomain(),
		Name:            m.Name,
		Description:     m.Description,
		Price:           shared.RoundMoney(m.Price),
		DurationMinutes: m.DurationMinutes,
		IsActive:        m.IsActive,
	}
}

// TreatmentModelFromDomain creates a new persistence model from a domain Treatment entity.
func TreatmentModelFromDomain(t *catalog.Treatment) *TreatmentModel {
	m := &TreatmentModel{
		Name:            t.Name,
		Description:     t.Description,
		Price:           t.Price,
		DurationMinutes: t.DurationMinutes,
		IsActive:        t.IsActive,
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	return m
}
