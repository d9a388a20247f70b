package catalog

import (
	"strings"
	"time"

	"github.com/dentalclinic/backend/internal/domain/catalog"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateDentistRequest represents a request to register a dentist
type CreateDentistRequest struct {
	Name      string `json:"name" binding:"required,min=3,max=200"`
	Phone     string `json:"phone" binding:"max=50"`
	Specialty string `json:"specialty" binding:"max=100"`
}

// UpdateDentistRequest represents a partial update of a dentist
type UpdateDentistRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=3,max=200"`
	Phone     *string `json:"phone" binding:"omitempty,max=50"`
	Specialty *string `json:"specialty" binding:"omitempty,max=100"`
	IsActive  *bool   `json:"is_active"`
}

// DentistResponse represents a dentist in API responses
type DentistResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Specialty string    `json:"specialty,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateTreatmentRequest represents a request to add a treatment to the catalog
type CreateTreatmentRequest struct {
	Name            string          `json:"name" binding:"required,min=1,max=200"`
	Description     string          `json:"description" binding:"max=2000"`
	Price           decimal.Decimal `json:"price" binding:"required"`
	DurationMinutes int             `json:"duration_minutes" binding:"omitempty,min=1,max=600"`
}

// UpdateTreatmentRequest represents a partial update of a treatment
type UpdateTreatmentRequest struct {
	Name            *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Description     *string          `json:"description" binding:"omitempty,max=2000"`
	Price           *decimal.Decimal `json:"price"`
	DurationMinutes *int             `json:"duration_minutes" binding:"omitempty,min=1,max=600"`
}

// TreatmentResponse represents a treatment in API responses
type TreatmentResponse struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Price           decimal.Decimal `json:"price"`
	DurationMinutes int             `json:"duration_minutes"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ListFilter represents filter options shared by the catalog lists
type ListFilter struct {
	Search     string `form:"search"`
	ActiveOnly bool   `form:"active_only"`
	OrderBy    string `form:"order_by"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset     int    `form:"offset" binding:"omitempty,min=0"`
}

func (f ListFilter) toDomain() shared.Filter {
	return shared.Filter{
		Search:     strings.TrimSpace(f.Search),
		ActiveOnly: f.ActiveOnly,
		OrderBy:    f.OrderBy,
		OrderDir:   f.OrderDir,
		Limit:      f.Limit,
		Offset:     f.Offset,
	}.Normalize()
}

// ToDentistResponse converts a domain Dentist to DentistResponse
func ToDentistResponse(d *catalog.Dentist) DentistResponse {
	return DentistResponse{
		ID:        d.ID,
		Name:      d.Name,
		Phone:     d.Phone,
		Specialty: d.Specialty,
		IsActive:  d.IsActive,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// ToTreatmentResponse converts a domain Treatment to TreatmentResponse
func ToTreatmentResponse(t *catalog.Treatment) TreatmentResponse {
	return TreatmentResponse{
		ID:              t.ID,
		Name:            t.Name,
		Description:     t.Description,
		Price:           t.Price,
		DurationMinutes: t.DurationMinutes,
		IsActive:        t.IsActive,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}
