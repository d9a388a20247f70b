package partner

import (
	"time"

	"github.com/dentalclinic/backend/internal/domain/partner"
	"github.com/dentalclinic/backend/internal/infrastructure/csvimport"
	"github.com/google/uuid"
)

// CreateClientRequest represents a request to register a new client
type CreateClientRequest struct {
	Name    string `json:"name" binding:"required,min=3,max=200"`
	Cedula  string `json:"cedula" binding:"required,max=20"`
	Phone   string `json:"phone" binding:"max=50"`
	Email   string `json:"email" binding:"omitempty,email,max=200"`
	Address string `json:"address" binding:"max=500"`
}

// UpdateClientRequest represents a partial update of a client
type UpdateClientRequest struct {
	Name    *string `json:"name" binding:"omitempty,min=3,max=200"`
	Cedula  *string `json:"cedula" binding:"omitempty,max=20"`
	Phone   *string `json:"phone" binding:"omitempty,max=50"`
	Email   *string `json:"email" binding:"omitempty,email,max=200"`
	Address *string `json:"address" binding:"omitempty,max=500"`
}

// ClientListFilter represents filter options for the client list
type ClientListFilter struct {
	Search   string `form:"search"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
}

// ClientResponse represents a client in API responses
type ClientResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Cedula    string    `json:"cedula"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToClientResponse converts a domain Client to ClientResponse
func ToClientResponse(c *partner.Client) ClientResponse {
	return ClientResponse{
		ID:        c.ID,
		Name:      c.Name,
		Cedula:    c.Cedula,
		Phone:     c.Phone,
		Email:     c.Email,
		Address:   c.Address,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// ToClientResponses converts a slice of clients
func ToClientResponses(clients []partner.Client) []ClientResponse {
	out := make([]ClientResponse, len(clients))
	for i := range clients {
		out[i] = ToClientResponse(&clients[i])
	}
	return out
}

// ImportOptions controls a client import
type ImportOptions struct {
	DryRun         bool `form:"dry_run"`
	UpdateExisting bool `form:"update_existing"`
}

// ImportResult summarizes a client import. Errors lists at most the first
// 200 problems; TotalErrors counts all of them.
type ImportResult struct {
	DryRun      bool                 `json:"dry_run"`
	TotalRows   int                  `json:"total_rows"`
	Created     int                  `json:"created"`
	Updated     int                  `json:"updated"`
	Skipped     int                  `json:"skipped"`
	Errors      []csvimport.RowError `json:"errors"`
	TotalErrors int                  `json:"total_errors"`
	Truncated   bool                 `json:"truncated,omitempty"`
}
