package partner

import (
	"context"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	minClientNameLength = 3
	maxClientNameLength = 200
	maxCedulaLength     = 20
)

// Client is a patient of the clinic. Clients own their appointments, quotes,
// debts, payments, credit balance and history entries.
type Client struct {
	shared.BaseEntity
	Name    string
	Cedula  string
	Phone   string
	Email   string
	Address string
}

// NewClient creates a new client after validating name and cedula
func NewClient(name, cedula string) (*Client, error) {
	name = strings.TrimSpace(name)
	cedula = strings.TrimSpace(cedula)
	if err := validateClientName(name); err != nil {
		return nil, err
	}
	if err := validateCedula(cedula); err != nil {
		return nil, err
	}
	return &Client{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Cedula:     cedula,
	}, nil
}

// Rename updates the client's identity fields
func (c *Client) Rename(name, cedula string) error {
	name = strings.TrimSpace(name)
	cedula = strings.TrimSpace(cedula)
	if err := validateClientName(name); err != nil {
		return err
	}
	if err := validateCedula(cedula); err != nil {
		return err
	}
	c.Name = name
	c.Cedula = cedula
	c.Touch()
	return nil
}

// SetContact updates the optional contact details
func (c *Client) SetContact(phone, email, address string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return shared.ErrValidationFailed.WithMessage("invalid email address")
		}
	}
	c.Phone = strings.TrimSpace(phone)
	c.Email = email
	c.Address = strings.TrimSpace(address)
	c.Touch()
	return nil
}

func validateClientName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < minClientNameLength {
		return shared.ErrValidationFailed.WithMessagef("client name must be at least %d characters", minClientNameLength)
	}
	if n > maxClientNameLength {
		return shared.ErrValidationFailed.WithMessagef("client name cannot exceed %d characters", maxClientNameLength)
	}
	return nil
}

func validateCedula(cedula string) error {
	if cedula == "" {
		return shared.ErrValidationFailed.WithMessage("cedula is required")
	}
	if utf8.RuneCountInString(cedula) > maxCedulaLength {
		return shared.ErrValidationFailed.WithMessagef("cedula cannot exceed %d characters", maxCedulaLength)
	}
	return nil
}

// ClientRepository defines persistence for clients
type ClientRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Client, error)
	FindByCedula(ctx context.Context, cedula string) (*Client, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Client, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	// ExistsByCedula reports whether another client (excluding excludeID) holds the cedula
	ExistsByCedula(ctx context.Context, cedula string, excludeID uuid.UUID) (bool, error)
	Save(ctx context.Context, client *Client) error
	Delete(ctx context.Context, id uuid.UUID) error
}
