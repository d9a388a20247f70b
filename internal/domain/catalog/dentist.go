package catalog

import (
	"context"
	"strings"

	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Dentist is a practitioner who can be assigned to appointments
type Dentist struct {
	shared.BaseEntity
	Name      string
	Phone     string
	Specialty string
	IsActive  bool
}

// NewDentist creates an active dentist
func NewDentist(name, phone, specialty string) (*Dentist, error) {
	d := &Dentist{
		BaseEntity: shared.NewBaseEntity(),
		IsActive:   true,
	}
	if err := d.Update(name, phone, specialty); err != nil {
		return nil, err
	}
	return d, nil
}

// Update changes the dentist's details
func (d *Dentist) Update(name, phone, specialty string) error {
	name = strings.TrimSpace(name)
	if len(name) < 3 {
		return shared.ErrValidationFailed.WithMessage("dentist name must be at least 3 characters")
	}
	d.Name = name
	d.Phone = strings.TrimSpace(phone)
	d.Specialty = strings.TrimSpace(specialty)
	d.Touch()
	return nil
}

// SetActive toggles availability for new appointments
func (d *Dentist) SetActive(active bool) {
	d.IsActive = active
	d.Touch()
}

// DentistRepository defines persistence for dentists
type DentistRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Dentist, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Dentist, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, dentist *Dentist) error
	Delete(ctx context.Context, id uuid.UUID) error
	// IsReferenced reports whether any appointment is assigned to the dentist
	IsReferenced(ctx context.Context, id uuid.UUID) (bool, error)
}
