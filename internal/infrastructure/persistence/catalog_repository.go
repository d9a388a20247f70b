package persistence

import (
	"context"
	"strings"

	"github.com/dentalclinic/backend/internal/domain/catalog"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/dentalclinic/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDentistRepository implements DentistRepository using GORM
type GormDentistRepository struct {
	db *gorm.DB
}

// NewGormDentistRepository creates a new GormDentistRepository
func NewGormDentistRepository(db *gorm.DB) *GormDentistRepository {
	return &GormDentistRepository{db: db}
}

// FindByID finds a dentist by its ID
func (r *GormDentistRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Dentist, error) {
	var model models.DentistModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err, "dentist")
	}
	return model.ToDomain(), nil
}

// FindAll lists dentists
func (r *GormDentistRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Dentist, error) {
	var rows []models.DentistModel
	query := r.applyFilter(conn(ctx, r.db).Model(&models.DentistModel{}), filter)
	query = paginate(orderBy(query, filter, DentistSortFields), filter)
	if err := query.Find(&rows).Error; err != nil {
		return nil, translate(err, "dentist")
	}
	dentists := make([]catalog.Dentist, len(rows))
	for i := range rows {
		dentists[i] = *rows[i].ToDomain()
	}
	return dentists, nil
}

// Count counts dentists matching the filter
func (r *GormDentistRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.applyFilter(conn(ctx, r.db).Model(&models.DentistModel{}), filter).Count(&count).Error; err != nil {
		return 0, translate(err, "dentist")
	}
	return count, nil
}

// Save creates or updates a dentist
func (r *GormDentistRepository) Save(ctx context.Context, dentist *catalog.Dentist) error {
	return translate(conn(ctx, r.db).Save(models.DentistModelFromDomain(dentist)).Error, "dentist")
}

// Delete removes a dentist
func (r *GormDentistRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.DentistModel{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error, "dentist")
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound.WithMessage("dentist not found")
	}
	return nil
}

// IsReferenced reports whether any appointment is assigned to the dentist
func (r *GormDentistRepository) IsReferenced(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.AppointmentModel{}).
		Where("dentist_id = ?", id).
		Count(&count).Error; err != nil {
		return false, translate(err, "appointment")
	}
	return count > 0, nil
}

func (r *GormDentistRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if strings.TrimSpace(filter.Search) != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(specialty) LIKE ?", pattern, pattern)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	return query
}

// GormTreatmentRepository implements TreatmentRepository using GORM
type GormTreatmentRepository struct {
	db *gorm.DB
}

// NewGormTreatmentRepository creates a new GormTreatmentRepository
func NewGormTreatmentRepository(db *gorm.DB) *GormTreatmentRepository {
	return &GormTreatmentRepository{db: db}
}

// FindByID finds a treatment by its ID
func (r *GormTreatmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Treatment, error) {
	var model models.TreatmentModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err, "treatment")
	}
	return model.ToDomain(), nil
}

// FindByIDs loads the treatments with the given ids; unknown ids are skipped
func (r *GormTreatmentRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Treatment, error) {
	if len(ids) == 0 {
		return []catalog.Treatment{}, nil
	}
	var rows []models.TreatmentModel
	if err := conn(ctx, r.db).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, translate(err, "treatment")
	}
	treatments := make([]catalog.Treatment, len(rows))
	for i := range rows {
		treatments[i] = *rows[i].ToDomain()
	}
	return treatments, nil
}

// FindAll lists treatments
func (r *GormTreatmentRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Treatment, error) {
	var rows []models.TreatmentModel
	query := r.applyFilter(conn(ctx, r.db).Model(&models.TreatmentModel{}), filter)
	query = paginate(orderBy(query, filter, TreatmentSortFields), filter)
	if err := query.Find(&rows).Error; err != nil {
		return nil, translate(err, "treatment")
	}
	treatments := make([]catalog.Treatment, len(rows))
	for i := range rows {
		treatments[i] = *rows[i].ToDomain()
	}
	return treatments, nil
}

// Count counts treatments matching the filter
func (r *GormTreatmentRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.applyFilter(conn(ctx, r.db).Model(&models.TreatmentModel{}), filter).Count(&count).Error; err != nil {
		return 0, translate(err, "treatment")
	}
	return count, nil
}

// Save creates or updates a treatment
func (r *GormTreatmentRepository) Save(ctx context.Context, treatment *catalog.Treatment) error {
	return translate(conn(ctx, r.db).Save(models.TreatmentModelFromDomain(treatment)).Error, "treatment")
}

// Delete removes a treatment
func (r *GormTreatmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.TreatmentModel{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error, "treatment")
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound.WithMessage("treatment not found")
	}
	return nil
}

// IsReferenced reports whether any quote or appointment line uses the treatment
func (r *GormTreatmentRepository) IsReferenced(ctx context.Context, id uuid.UUID) (bool, error) {
	db := conn(ctx, r.db)
	var count int64
	if err := db.Model(&models.QuoteLineModel{}).Where("treatment_id = ?", id).Count(&count).Error; err != nil {
		return false, translate(err, "quote line")
	}
	if count > 0 {
		return true, nil
	}
	if err := db.Model(&models.AppointmentLineModel{}).Where("treatment_id = ?", id).Count(&count).Error; err != nil {
		return false, translate(err, "appointment line")
	}
	return count > 0, nil
}

func (r *GormTreatmentRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if strings.TrimSpace(filter.Search) != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	return query
}

var (
	_ catalog.DentistRepository   = (*GormDentistRepository)(nil)
	_ catalog.TreatmentRepository = (*GormTreatmentRepository)(nil)
)
