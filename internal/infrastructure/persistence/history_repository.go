package persistence

import (
	"context"

	"github.com/dentalclinic/backend/internal/domain/history"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/dentalclinic/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormClientTreatmentRepository implements ClientTreatmentRepository using GORM
type GormClientTreatmentRepository struct {
	db *gorm.DB
}

// NewGormClientTreatmentRepository creates a new GormClientTreatmentRepository
func NewGormClientTreatmentRepository(db *gorm.DB) *GormClientTreatmentRepository {
	return &GormClientTreatmentRepository{db: db}
}

// FindByID finds a history row by its ID
func (r *GormClientTreatmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*history.ClientTreatment, error) {
	var model models.ClientTreatmentModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err, "history record")
	}
	return model.ToDomain(), nil
}

// FindByClient lists every history row of a client, most recent first
func (r *GormClientTreatmentRepository) FindByClient(ctx context.Context, clientID uuid.UUID) ([]history.ClientTreatment, error) {
	return r.find(conn(ctx, r.db).Where("client_id = ?", clientID).Order("treatment_date DESC, created_at DESC"))
}

// FindByKey returns the row for (client, treatment, appointment, quote)
func (r *GormClientTreatmentRepository) FindByKey(ctx context.Context, clientID, treatmentID uuid.UUID, appointmentID, quoteID *uuid.UUID) (*history.ClientTreatment, error) {
	query := conn(ctx, r.db).Where("client_id = ? AND treatment_id = ?", clientID, treatmentID)
	if appointmentID != nil {
		query = query.Where("appointment_id = ?", *appointmentID)
	} else {
		query = query.Where("appointment_id IS NULL")
	}
	if quoteID != nil {
		query = query.Where("quote_id = ?", *quoteID)
	} else {
		query = query.Where("quote_id IS NULL")
	}

	var model models.ClientTreatmentModel
	if err := query.Order("created_at ASC").First(&model).Error; err != nil {
		return nil, translate(err, "history record")
	}
	return model.ToDomain(), nil
}

// FindByAppointment lists the rows tagged with an appointment
func (r *GormClientTreatmentRepository) FindByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]history.ClientTreatment, error) {
	return r.find(conn(ctx, r.db).Where("appointment_id = ?", appointmentID).Order("created_at ASC"))
}

// Save creates or updates a history row
func (r *GormClientTreatmentRepository) Save(ctx context.Context, row *history.ClientTreatment) error {
	return translate(conn(ctx, r.db).Save(models.ClientTreatmentModelFromDomain(row)).Error, "history record")
}

// CreateBatch inserts several rows at once
func (r *GormClientTreatmentRepository) CreateBatch(ctx context.Context, rows []*history.ClientTreatment) error {
	if len(rows) == 0 {
		return nil
	}
	ms := make([]*models.ClientTreatmentModel, len(rows))
	for i, row := range rows {
		ms[i] = models.ClientTreatmentModelFromDomain(row)
	}
	return translate(conn(ctx, r.db).CreateInBatches(ms, 100).Error, "history record")
}

// Delete removes one history row
func (r *GormClientTreatmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.ClientTreatmentModel{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error, "history record")
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound.WithMessage("history record not found")
	}
	return nil
}

// DeleteByAppointment removes the rows tagged with an appointment
func (r *GormClientTreatmentRepository) DeleteByAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	return r.deleteWhere(ctx, "appointment_id = ?", appointmentID)
}

// DeleteByQuote removes the rows tagged with a quote
func (r *GormClientTreatmentRepository) DeleteByQuote(ctx context.Context, quoteID uuid.UUID) error {
	return r.deleteWhere(ctx, "quote_id = ?", quoteID)
}

// DeleteByClient removes every row of a client
func (r *GormClientTreatmentRepository) DeleteByClient(ctx context.Context, clientID uuid.UUID) error {
	return r.deleteWhere(ctx, "client_id = ?", clientID)
}

func (r *GormClientTreatmentRepository) deleteWhere(ctx context.Context, cond string, arg uuid.UUID) error {
	return translate(conn(ctx, r.db).Where(cond, arg).Delete(&models.ClientTreatmentModel{}).Error, "history record")
}

func (r *GormClientTreatmentRepository) find(query *gorm.DB) ([]history.ClientTreatment, error) {
	var rows []models.ClientTreatmentModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, translate(err, "history record")
	}
	out := make([]history.ClientTreatment, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// GormMedicalRecordRepository implements MedicalRecordRepository using GORM
type GormMedicalRecordRepository struct {
	db *gorm.DB
}

// NewGormMedicalRecordRepository creates a new GormMedicalRecordRepository
func NewGormMedicalRecordRepository(db *gorm.DB) *GormMedicalRecordRepository {
	return &GormMedicalRecordRepository{db: db}
}

// FindByID finds a medical record by its ID
func (r *GormMedicalRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*history.MedicalRecord, error) {
	var model models.MedicalRecordModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err, "medical record")
	}
	return model.ToDomain(), nil
}

// FindByClient lists a client's records, newest first
func (r *GormMedicalRecordRepository) FindByClient(ctx context.Context, clientID uuid.UUID) ([]history.MedicalRecord, error) {
	var rows []models.MedicalRecordModel
	if err := conn(ctx, r.db).
		Where("client_id = ?", clientID).
		Order("record_date DESC, created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, translate(err, "medical record")
	}
	out := make([]history.MedicalRecord, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a medical record
func (r *GormMedicalRecordRepository) Save(ctx context.Context, record *history.MedicalRecord) error {
	return translate(conn(ctx, r.db).Save(models.MedicalRecordModelFromDomain(record)).Error, "medical record")
}

// Delete removes a medical record
func (r *GormMedicalRecordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.MedicalRecordModel{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error, "medical record")
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound.WithMessage("medical record not found")
	}
	return nil
}

// DeleteByClient removes every record of a client
func (r *GormMedicalRecordRepository) DeleteByClient(ctx context.Context, clientID uuid.UUID) error {
	return translate(conn(ctx, r.db).Where("client_id = ?", clientID).Delete(&models.MedicalRecordModel{}).Error, "medical record")
}

var (
	_ history.ClientTreatmentRepository = (*GormClientTreatmentRepository)(nil)
	_ history.MedicalRecordRepository   = (*GormMedicalRecordRepository)(nil)
)
