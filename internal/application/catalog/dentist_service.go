// Package catalog manages the dentists and treatments offered by the clinic.
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

// DentistService handles dentist-related business operations
type DentistService struct {
	scope  transaction.Scope
	logger *zap.Logger
}

// NewDentistService creates a new DentistService
func NewDentistService(scope transaction.Scope, logger *zap.Logger) *DentistService {
	return &DentistService{scope: scope, logger: logger}
}

// Create registers a dentist
func (s *DentistService) Create(ctx context.Context, req CreateDentistRequest) (*DentistResponse, error) {
	dentist, err := catalog.NewDentist(req.Name, req.Phone, req.Specialty)
	if err != nil {
		return nil, err
	}
	if err := s.scope.Repositories().Dentists().Save(ctx, dentist); err != nil {
		return nil, err
	}
	logger.Enrich(ctx, s.logger).Info("Dentist created", zap.String("dentist_id", dentist.ID.String()))
	resp := ToDentistResponse(dentist)
	return &resp, nil
}

// Update applies a partial update
func (s *DentistService) Update(ctx context.Context, id uuid.UUID, req UpdateDentistRequest) (*DentistResponse, error) {
	var dentist *catalog.Dentist
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		var err error
		dentist, err = repos.Dentists().FindByID(ctx, id)
		if err != nil {
			return err
		}

		name, phone, specialty := dentist.Name, dentist.Phone, dentist.Specialty
		if req.Name != nil {
			name = *req.Name
		}
		if req.Phone != nil {
			phone = *req.Phone
		}
		if req.Specialty != nil {
			specialty = *req.Specialty
		}
		if err := dentist.Update(name, phone, specialty); err != nil {
			return err
		}
		if req.IsActive != nil {
			dentist.SetActive(*req.IsActive)
		}
		return repos.Dentists().Save(ctx, dentist)
	})
	if err != nil {
		return nil, err
	}
	resp := ToDentistResponse(dentist)
	return &resp, nil
}

// GetByID retrieves a dentist by ID
func (s *DentistService) GetByID(ctx context.Context, id uuid.UUID) (*DentistResponse, error) {
	dentist, err := s.scope.Repositories().Dentists().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToDentistResponse(dentist)
	return &resp, nil
}

// List returns a page of dentists and the total count
func (s *DentistService) List(ctx context.Context, filter ListFilter) ([]DentistResponse, int64, error) {
	f := filter.toDomain()
	repo := s.scope.Repositories().Dentists()

	dentists, err := repo.FindAll(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := repo.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	out := make([]DentistResponse, len(dentists))
	for i := range dentists {
		out[i] = ToDentistResponse(&dentists[i])
	}
	return out, total, nil
}

// Delete removes a dentist with no appointments. Dentists with history are deactivated instead.
func (s *DentistService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		if _, err := repos.Dentists().FindByID(ctx, id); err != nil {
			return err
		}
		referenced, err := repos.Dentists().IsReferenced(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return shared.ErrReferentialInUse.WithMessage("dentist is assigned to appointments; deactivate it instead")
		}
		return repos.Dentists().Delete(ctx, id)
	})
}
