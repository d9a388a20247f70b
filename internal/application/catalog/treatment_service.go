package catalog

import (
	"context"

	"github.com/dentalclinic/backend/internal/application/transaction"
	"github.com/dentalclinic/backend/internal/domain/catalog"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/dentalclinic/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultTreatmentMinutes = 30

// TreatmentService handles treatment catalog operations.
// Price changes never touch existing quotes or appointments; those keep the
// price captured on their lines.
type TreatmentService struct {
	scope  transaction.Scope
	logger *zap.Logger
}

// NewTreatmentService creates a new TreatmentService
func NewTreatmentService(scope transaction.Scope, logger *zap.Logger) *TreatmentService {
	return &TreatmentService{scope: scope, logger: logger}
}

// Create adds a treatment to the catalog
func (s *TreatmentService) Create(ctx context.Context, req CreateTreatmentRequest) (*TreatmentResponse, error) {
	minutes := req.DurationMinutes
	if minutes == 0 {
		minutes = defaultTreatmentMinutes
	}
	treatment, err := catalog.NewTreatment(req.Name, req.Price, minutes)
	if err != nil {
		return nil, err
	}
	if req.Description != "" {
		if err := treatment.Update(treatment.Name, req.Description, treatment.Price, treatment.DurationMinutes); err != nil {
			return nil, err
		}
	}
	if err := s.scope.Repositories().Treatments().Save(ctx, treatment); err != nil {
		return nil, err
	}
	logger.Enrich(ctx, s.logger).Info("Treatment created",
		zap.String("treatment_id", treatment.ID.String()),
		zap.String("price", treatment.Price.StringFixed(2)),
	)
	resp := ToTreatmentResponse(treatment)
	return &resp, nil
}

// Update applies a partial update
func (s *TreatmentService) Update(ctx context.Context, id uuid.UUID, req UpdateTreatmentRequest) (*TreatmentResponse, error) {
	var treatment *catalog.Treatment
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		var err error
		treatment, err = repos.Treatments().FindByID(ctx, id)
		if err != nil {
			return err
		}

		name, desc, price, minutes := treatment.Name, treatment.Description, treatment.Price, treatment.DurationMinutes
		if req.Name != nil {
			name = *req.Name
		}
		if req.Description != nil {
			desc = *req.Description
		}
		if req.Price != nil {
			price = *req.Price
		}
		if req.DurationMinutes != nil {
			minutes = *req.DurationMinutes
		}
		if err := treatment.Update(name, desc, price, minutes); err != nil {
			return err
		}
		return repos.Treatments().Save(ctx, treatment)
	})
	if err != nil {
		return nil, err
	}
	resp := ToTreatmentResponse(treatment)
	return &resp, nil
}

// Activate makes the treatment available for new quotes and appointments
func (s *TreatmentService) Activate(ctx context.Context, id uuid.UUID) (*TreatmentResponse, error) {
	return s.setActive(ctx, id, true)
}

// Deactivate hides the treatment from new quotes and appointments
func (s *TreatmentService) Deactivate(ctx context.Context, id uuid.UUID) (*TreatmentResponse, error) {
	return s.setActive(ctx, id, false)
}

func (s *TreatmentService) setActive(ctx context.Context, id uuid.UUID, active bool) (*TreatmentResponse, error) {
	var treatment *catalog.Treatment
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		var err error
		treatment, err = repos.Treatments().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if active {
			treatment.Activate()
		} else {
			treatment.Deactivate()
		}
		return repos.Treatments().Save(ctx, treatment)
	})
	if err != nil {
		return nil, err
	}
	resp := ToTreatmentResponse(treatment)
	return &resp, nil
}

// GetByID retrieves a treatment by ID
func (s *TreatmentService) GetByID(ctx context.Context, id uuid.UUID) (*TreatmentResponse, error) {
	treatment, err := s.scope.Repositories().Treatments().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToTreatmentResponse(treatment)
	return &resp, nil
}

// List returns a page of treatments and the total count
func (s *TreatmentService) List(ctx context.Context, filter ListFilter) ([]TreatmentResponse, int64, error) {
	f := filter.toDomain()
	repo := s.scope.Repositories().Treatments()

	treatments, err := repo.FindAll(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := repo.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	out := make([]TreatmentResponse, len(treatments))
	for i := range treatments {
		out[i] = ToTreatmentResponse(&treatments[i])
	}
	return out, total, nil
}

// Delete removes a treatment that no quote or appointment line refers to
func (s *TreatmentService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		if _, err := repos.Treatments().FindByID(ctx, id); err != nil {
			return err
		}
		referenced, err := repos.Treatments().IsReferenced(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return shared.ErrReferentialInUse.WithMessage("treatment is used by quotes or appointments; deactivate it instead")
		}
		return repos.Treatments().Delete(ctx, id)
	})
}
