// Package partner implements client management for the clinic.
package partner

import (
	"context"
	"strings"

	"github.com/dentalclinic/backend/internal/application/transaction"
	"github.com/dentalclinic/backend/internal/domain/partner"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/dentalclinic/backend/internal/infrastructure/logger"
	"github.com/dentalclinic/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClientService handles client-related business operations
type ClientService struct {
	scope  transaction.Scope
	logger *zap.Logger
}

// NewClientService creates a new ClientService
func NewClientService(scope transaction.Scope, logger *zap.Logger) *ClientService {
	return &ClientService{
		scope:  scope,
		logger: logger,
	}
}

// Create registers a new client. The cedula must be unique.
func (s *ClientService) Create(ctx context.Context, req CreateClientRequest) (*ClientResponse, error) {
	client, err := partner.NewClient(req.Name, req.Cedula)
	if err != nil {
		return nil, err
	}
	if err := client.SetContact(req.Phone, req.Email, req.Address); err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		exists, err := repos.Clients().ExistsByCedula(ctx, client.Cedula, uuid.Nil)
		if err != nil {
			return err
		}
		if exists {
			return shared.ErrAlreadyExists.WithMessagef("a client with cedula %s already exists", client.Cedula)
		}
		return repos.Clients().Save(ctx, client)
	})
	if err != nil {
		return nil, err
	}

	logger.Enrich(ctx, s.logger).Info("Client created", zap.String("client_id", client.ID.String()))
	resp := ToClientResponse(client)
	return &resp, nil
}

// Update applies a partial update
func (s *ClientService) Update(ctx context.Context, id uuid.UUID, req UpdateClientRequest) (*ClientResponse, error) {
	var client *partner.Client
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		var err error
		client, err = repos.Clients().FindByID(ctx, id)
		if err != nil {
			return err
		}

		name, cedula := client.Name, client.Cedula
		if req.Name != nil {
			name = *req.Name
		}
		if req.Cedula != nil {
			cedula = strings.TrimSpace(*req.Cedula)
		}
		if cedula != client.Cedula {
			exists, err := repos.Clients().ExistsByCedula(ctx, cedula, client.ID)
			if err != nil {
				return err
			}
			if exists {
				return shared.ErrAlreadyExists.WithMessagef("a client with cedula %s already exists", cedula)
			}
		}
		if err := client.Rename(name, cedula); err != nil {
			return err
		}

		phone, email, address := client.Phone, client.Email, client.Address
		if req.Phone != nil {
			phone = *req.Phone
		}
		if req.Email != nil {
			email = *req.Email
		}
		if req.Address != nil {
			address = *req.Address
		}
		if err := client.SetContact(phone, email, address); err != nil {
			return err
		}
		return repos.Clients().Save(ctx, client)
	})
	if err != nil {
		return nil, err
	}

	resp := ToClientResponse(client)
	return &resp, nil
}

// GetByID retrieves a client by ID
func (s *ClientService) GetByID(ctx context.Context, id uuid.UUID) (*ClientResponse, error) {
	client, err := s.scope.Repositories().Clients().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToClientResponse(client)
	return &resp, nil
}

// GetByCedula retrieves a client by cedula
func (s *ClientService) GetByCedula(ctx context.Context, cedula string) (*ClientResponse, error) {
	client, err := s.scope.Repositories().Clients().FindByCedula(ctx, strings.TrimSpace(cedula))
	if err != nil {
		return nil, err
	}
	resp := ToClientResponse(client)
	return &resp, nil
}

// List returns a page of clients and the total count for the filter
func (s *ClientService) List(ctx context.Context, filter ClientListFilter) ([]ClientResponse, int64, error) {
	f := shared.Filter{
		Search:   strings.TrimSpace(filter.Search),
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}.Normalize()
	if f.OrderBy == "" {
		f.OrderBy = "name"
	}

	repo := s.scope.Repositories().Clients()
	clients, err := repo.FindAll(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := repo.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return ToClientResponses(clients), total, nil
}

// Search matches clients by name or cedula
func (s *ClientService) Search(ctx context.Context, term string, limit int) ([]ClientResponse, error) {
	clients, _, err := s.List(ctx, ClientListFilter{Search: term, Limit: limit})
	return clients, err
}

// Delete removes a client together with everything the client owns:
// appointments, quotes, debts, payments, credit, history and medical records
func (s *ClientService) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "client", "delete")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrClientID, id)

	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		if _, err := repos.Clients().FindByID(ctx, id); err != nil {
			return err
		}

		if err := repos.ClientTreatments().DeleteByClient(ctx, id); err != nil {
			return err
		}
		if err := repos.MedicalRecords().DeleteByClient(ctx, id); err != nil {
			return err
		}

		payments, err := repos.Payments().FindByClient(ctx, id)
		if err != nil {
			return err
		}
		for _, p := range payments {
			if err := repos.DebtPayments().DeleteByPayment(ctx, p.ID); err != nil {
				return err
			}
			if err := repos.Payments().Delete(ctx, p.ID); err != nil {
				return err
			}
		}
		debts, err := repos.Debts().FindByClient(ctx, id)
		if err != nil {
			return err
		}
		for _, d := range debts {
			if err := repos.DebtPayments().DeleteByDebt(ctx, d.ID); err != nil {
				return err
			}
			if err := repos.Debts().Delete(ctx, d.ID); err != nil {
				return err
			}
		}
		if err := repos.Credits().DeleteByClient(ctx, id); err != nil {
			return err
		}

		appointmentIDs, err := repos.Appointments().IDsByClient(ctx, id)
		if err != nil {
			return err
		}
		for _, aid := range appointmentIDs {
			if err := repos.Appointments().Delete(ctx, aid); err != nil {
				return err
			}
		}
		quoteIDs, err := repos.Quotes().IDsByClient(ctx, id)
		if err != nil {
			return err
		}
		for _, qid := range quoteIDs {
			if err := repos.Quotes().Delete(ctx, qid); err != nil {
				return err
			}
		}

		return repos.Clients().Delete(ctx, id)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	logger.Enrich(ctx, s.logger).Info("Client deleted with all owned records", zap.String("client_id", id.String()))
	return nil
}
