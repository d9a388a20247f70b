package models

import (
	"github.com/dentalclinic/backend/internal/domain/partner"
)

// ClientModel is the persistence model for the Client domain entity.
type ClientModel struct {
	BaseModel
	Name    string `gorm:"type:varchar(200);not null;index"`
	Cedula  string `gorm:"type:varchar(20);not null;uniqueIndex:idx_clients_cedula"`
	Phone   string `gorm:"type:varchar(50)"`
	Email   string `gorm:"type:varchar(200)"`
	Address string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts the persistence model to a domain Client entity.
func (m *ClientModel) ToDomain() *partner.Client {
	return &partner.Client{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
		Cedula:     m.Cedula,
		Phone:      m.Phone,
		Email:      m.Email,
		Address:    m.Address,
	}
}

// FromDomain populates the persistence model from a domain Client entity.
func (m *ClientModel) FromDomain(c *partner.Client) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.Name = c.Name
	m.Cedula = c.Cedula
	m.Phone = c.Phone
	m.Email = c.Email
	m.Address = c.Address
}

// ClientModelFromDomain creates a new persistence model from a domain Client entity.
func ClientModelFromDomain(c *partner.Client) *ClientModel {
	m := &ClientModel{}
	m.FromDomain(c)
	return m
}
