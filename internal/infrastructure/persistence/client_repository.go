package persistence

import (
	"context"
	"strings"

	"github.com/dentalclinic/backend/internal/domain/partner"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/dentalclinic/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormClientRepository implements ClientRepository using GORM
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// FindByID finds a client by its ID
func (r *GormClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Client, error) {
	var model models.ClientModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err, "client")
	}
	return model.ToDomain(), nil
}

// FindByCedula finds a client by national id
func (r *GormClientRepository) FindByCedula(ctx context.Context, cedula string) (*partner.Client, error) {
	var model models.ClientModel
	if err := conn(ctx, r.db).
		Where("cedula = ?", strings.TrimSpace(cedula)).
		First(&model).Error; err != nil {
		return nil, translate(err, "client")
	}
	return model.ToDomain(), nil
}

// FindAll lists clients matching name or cedula
func (r *GormClientRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Client, error) {
	var rows []models.ClientModel
	query := r.applySearch(conn(ctx, r.db).Model(&models.ClientModel{}), filter)
	query = paginate(orderBy(query, filter, ClientSortFields), filter)
	if err := query.Find(&rows).Error; err != nil {
		return nil, translate(err, "client")
	}

	clients := make([]partner.Client, len(rows))
	for i := range rows {
		clients[i] = *rows[i].ToDomain()
	}
	return clients, nil
}

// Count counts clients matching the filter
func (r *GormClientRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applySearch(conn(ctx, r.db).Model(&models.ClientModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, translate(err, "client")
	}
	return count, nil
}

// ExistsByCedula reports whether another client holds the cedula
func (r *GormClientRepository) ExistsByCedula(ctx context.Context, cedula string, excludeID uuid.UUID) (bool, error) {
	var count int64
	query := conn(ctx, r.db).Model(&models.ClientModel{}).Where("cedula = ?", strings.TrimSpace(cedula))
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, translate(err, "client")
	}
	return count > 0, nil
}

// Save creates or updates a client
func (r *GormClientRepository) Save(ctx context.Context, client *partner.Client) error {
	model := models.ClientModelFromDomain(client)
	return translate(conn(ctx, r.db).Save(model).Error, "client")
}

// Delete removes a client row. Owned rows are removed by the caller first.
func (r *GormClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.ClientModel{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error, "client")
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound.WithMessage("client not found")
	}
	return nil
}

func (r *GormClientRepository) applySearch(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if strings.TrimSpace(filter.Search) != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(cedula) LIKE ?", pattern, pattern)
	}
	return query
}

// Ensure GormClientRepository implements partner.ClientRepository
var _ partner.ClientRepository = (*GormClientRepository)(nil)
