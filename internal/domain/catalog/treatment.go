package catalog

import (
	"context"
	"strings"

	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Treatment is an entry in the clinic's treatments catalog.
// Quotes and appointments capture its price at the time they are created.
type Treatment struct {
	shared.BaseEntity
	Name            string
	Description     string
	Price           decimal.Decimal
	DurationMinutes int
	IsActive        bool
}

// NewTreatment creates an active treatment
func NewTreatment(name string, price decimal.Decimal, durationMinutes int) (*Treatment, error) {
	t := &Treatment{
		BaseEntity: shared.NewBaseEntity(),
		IsActive:   true,
	}
	if err := t.Update(name, t.Description, price, durationMinutes); err != nil {
		return nil, err
	}
	return t, nil
}

// Update changes the catalog fields of the treatment
func (t *Treatment) Update(name, description string, price decimal.Decimal, durationMinutes int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.ErrValidationFailed.WithMessage("treatment name is required")
	}
	if len(name) > 200 {
		return shared.ErrValidationFailed.WithMessage("treatment name cannot exceed 200 characters")
	}
	if price.IsNegative() {
		return shared.ErrValidationFailed.WithMessage("treatment price cannot be negative")
	}
	if durationMinutes <= 0 {
		return shared.ErrValidationFailed.WithMessage("treatment duration must be positive")
	}
	t.Name = name
	t.Description = strings.TrimSpace(description)
	t.Price = shared.RoundMoney(price)
	t.DurationMinutes = durationMinutes
	t.Touch()
	return nil
}

// Activate marks the treatment as offered
func (t *Treatment) Activate() {
	t.IsActive = true
	t.Touch()
}

// Deactivate hides the treatment from new quotes and appointments
func (t *Treatment) Deactivate() {
	t.IsActive = false
	t.Touch()
}

// TreatmentRepository defines persistence for treatments
type TreatmentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Treatment, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Treatment, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Treatment, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, treatment *Treatment) error
	Delete(ctx context.Context, id uuid.UUID) error
	// IsReferenced reports whether any quote or appointment line uses the treatment
	IsReferenced(ctx context.Context, id uuid.UUID) (bool, error)
}
