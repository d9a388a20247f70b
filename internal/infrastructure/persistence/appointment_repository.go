package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/dentalclinic/backend/internal/domain/scheduling"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/dentalclinic/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GormAppointmentRepository implements AppointmentRepository using GORM.
// Lines are stored in appointment_treatments and loaded in one extra query per call.
type GormAppointmentRepository struct {
	db *gorm.DB
}

// NewGormAppointmentRepository creates a new GormAppointmentRepository
func NewGormAppointmentRepository(db *gorm.DB) *GormAppointmentRepository {
	return &GormAppointmentRepository{db: db}
}

func dateParam(t time.Time) datatypes.Date {
	return datatypes.Date(shared.NormalizeDate(t))
}

// FindByID loads the appointment with its lines
func (r *GormAppointmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error) {
	db := conn(ctx, r.db)
	var model models.AppointmentModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err, "appointment")
	}
	appointments, err := r.withLines(db, []models.AppointmentModel{model})
	if err != nil {
		return nil, err
	}
	return &appointments[0], nil
}

// FindAll lists appointments ordered by date and time
func (r *GormAppointmentRepository) FindAll(ctx context.Context, filter scheduling.AppointmentFilter) ([]scheduling.Appointment, error) {
	db := conn(ctx, r.db)
	query := r.applyFilter(db.Model(&models.AppointmentModel{}), filter).
		Order("appointments.appointment_date ASC, appointments.appointment_time ASC, appointments.id ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []models.AppointmentModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, translate(err, "appointment")
	}
	return r.withLines(db, rows)
}

// Count counts appointments matching the filter
func (r *GormAppointmentRepository) Count(ctx context.Context, filter scheduling.AppointmentFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(conn(ctx, r.db).Model(&models.AppointmentModel{}), filter).Count(&count).Error; err != nil {
		return 0, translate(err, "appointment")
	}
	return count, nil
}

// FindUpcoming lists pending appointments at or after from, nearest first
func (r *GormAppointmentRepository) FindUpcoming(ctx context.Context, from time.Time, limit int) ([]scheduling.Appointment, error) {
	db := conn(ctx, r.db)
	day := dateParam(from)
	clock := from.Format("15:04")

	query := db.Model(&models.AppointmentModel{}).
		Where("status = ?", scheduling.AppointmentStatusPending).
		Where("appointment_date > ? OR (appointment_date = ? AND appointment_time >= ?)", day, day, clock).
		Order("appointment_date ASC, appointment_time ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.AppointmentModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, translate(err, "appointment")
	}
	return r.withLines(db, rows)
}

// FindByClient lists every appointment of a client, most recent first
func (r *GormAppointmentRepository) FindByClient(ctx context.Context, clientID uuid.UUID) ([]scheduling.Appointment, error) {
	db := conn(ctx, r.db)
	var rows []models.AppointmentModel
	if err := db.Where("client_id = ?", clientID).
		Order("appointment_date DESC, appointment_time DESC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, translate(err, "appointment")
	}
	return r.withLines(db, rows)
}

// ExistsPendingAt reports whether another pending appointment holds date+clock
func (r *GormAppointmentRepository) ExistsPendingAt(ctx context.Context, date time.Time, clock string, excludeID uuid.UUID) (bool, error) {
	var count int64
	query := conn(ctx, r.db).Model(&models.AppointmentModel{}).
		Where("appointment_date = ? AND appointment_time = ? AND status = ?",
			dateParam(date), clock, scheduling.AppointmentStatusPending)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, translate(err, "appointment")
	}
	return count > 0, nil
}

// FindPendingClocksOn returns the clocks taken by pending appointments on a date
func (r *GormAppointmentRepository) FindPendingClocksOn(ctx context.Context, date time.Time) ([]string, error) {
	var clocks []string
	if err := conn(ctx, r.db).Model(&models.AppointmentModel{}).
		Where("appointment_date = ? AND status = ?", dateParam(date), scheduling.AppointmentStatusPending).
		Order("appointment_time ASC").
		Pluck("appointment_time", &clocks).Error; err != nil {
		return nil, translate(err, "appointment")
	}
	return clocks, nil
}

// Save upserts the appointment row without touching its lines
func (r *GormAppointmentRepository) Save(ctx context.Context, appointment *scheduling.Appointment) error {
	return translate(conn(ctx, r.db).Save(models.AppointmentModelFromDomain(appointment)).Error, "appointment")
}

// ReplaceLines deletes the stored lines and inserts the given ones
func (r *GormAppointmentRepository) ReplaceLines(ctx context.Context, appointmentID uuid.UUID, lines []scheduling.AppointmentLine) error {
	db := conn(ctx, r.db)
	if err := db.Where("appointment_id = ?", appointmentID).Delete(&models.AppointmentLineModel{}).Error; err != nil {
		return translate(err, "appointment line")
	}
	if len(lines) == 0 {
		return nil
	}
	rows := make([]*models.AppointmentLineModel, len(lines))
	for i, l := range lines {
		l.AppointmentID = appointmentID
		rows[i] = models.AppointmentLineModelFromDomain(l)
	}
	return translate(db.Create(&rows).Error, "appointment line")
}

// Delete removes the appointment and its lines
func (r *GormAppointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := conn(ctx, r.db)
	if err := db.Where("appointment_id = ?", id).Delete(&models.AppointmentLineModel{}).Error; err != nil {
		return translate(err, "appointment line")
	}
	result := db.Delete(&models.AppointmentModel{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error, "appointment")
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound.WithMessage("appointment not found")
	}
	return nil
}

// IDsByClient lists the ids of every appointment of a client
func (r *GormAppointmentRepository) IDsByClient(ctx context.Context, clientID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := conn(ctx, r.db).Model(&models.AppointmentModel{}).
		Where("client_id = ?", clientID).
		Pluck("id", &ids).Error; err != nil {
		return nil, translate(err, "appointment")
	}
	return ids, nil
}

func (r *GormAppointmentRepository) applyFilter(query *gorm.DB, filter scheduling.AppointmentFilter) *gorm.DB {
	if filter.DateFrom != nil {
		query = query.Where("appointments.appointment_date >= ?", dateParam(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		query = query.Where("appointments.appointment_date <= ?", dateParam(*filter.DateTo))
	}
	if filter.Status != "" {
		query = query.Where("appointments.status = ?", filter.Status)
	}
	if filter.ClientID != nil {
		query = query.Where("appointments.client_id = ?", *filter.ClientID)
	}
	if strings.TrimSpace(filter.Search) != "" {
		pattern := likePattern(filter.Search)
		query = query.Joins("JOIN clients ON clients.id = appointments.client_id").
			Where("LOWER(clients.name) LIKE ? OR LOWER(clients.cedula) LIKE ? OR LOWER(appointments.notes) LIKE ?",
				pattern, pattern, pattern)
	}
	return query
}

// withLines converts rows to domain appointments with their lines attached
func (r *GormAppointmentRepository) withLines(db *gorm.DB, rows []models.AppointmentModel) ([]scheduling.Appointment, error) {
	appointments := make([]scheduling.Appointment, len(rows))
	if len(rows) == 0 {
		return appointments, nil
	}

	ids := make([]uuid.UUID, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	var lineRows []models.AppointmentLineModel
	if err := db.Where("appointment_id IN ?", ids).
		Order("created_at ASC, treatment_id ASC").
		Find(&lineRows).Error; err != nil {
		return nil, translate(err, "appointment line")
	}
	byAppointment := make(map[uuid.UUID][]scheduling.AppointmentLine, len(rows))
	for i := range lineRows {
		l := lineRows[i].ToDomain()
		byAppointment[l.AppointmentID] = append(byAppointment[l.AppointmentID], l)
	}

	for i := range rows {
		a := rows[i].ToDomain()
		if lines, ok := byAppointment[a.ID]; ok {
			a.Lines = lines
		}
		appointments[i] = *a
	}
	return appointments, nil
}

// Ensure GormAppointmentRepository implements scheduling.AppointmentRepository
var _ scheduling.AppointmentRepository = (*GormAppointmentRepository)(nil)
