package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/dentalclinic/backend/internal/domain/quote"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/dentalclinic/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormQuoteRepository implements QuoteRepository using GORM
type GormQuoteRepository struct {
	db *gorm.DB
}

// NewGormQuoteRepository creates a new GormQuoteRepository
func NewGormQuoteRepository(db *gorm.DB) *GormQuoteRepository {
	return &GormQuoteRepository{db: db}
}

// FindByID loads the quote with its lines
func (r *GormQuoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*quote.Quote, error) {
	db := conn(ctx, r.db)
	var model models.QuoteModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err, "quote")
	}
	quotes, err := r.withLines(db, []models.QuoteModel{model})
	if err != nil {
		return nil, err
	}
	return &quotes[0], nil
}

// FindAll lists quotes, newest first
func (r *GormQuoteRepository) FindAll(ctx context.Context, filter quote.Filter) ([]quote.Quote, error) {
	db := conn(ctx, r.db)
	query := r.applyFilter(db.Model(&models.QuoteModel{}), filter).
		Order("quotes.quote_date DESC, quotes.created_at DESC, quotes.id ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []models.QuoteModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, translate(err, "quote")
	}
	return r.withLines(db, rows)
}

// Count counts quotes matching the filter
func (r *GormQuoteRepository) Count(ctx context.Context, filter quote.Filter) (int64, error) {
	var count int64
	if err := r.applyFilter(conn(ctx, r.db).Model(&models.QuoteModel{}), filter).Count(&count).Error; err != nil {
		return 0, translate(err, "quote")
	}
	return count, nil
}

// FindByClient lists every quote of a client, newest first
func (r *GormQuoteRepository) FindByClient(ctx context.Context, clientID uuid.UUID) ([]quote.Quote, error) {
	db := conn(ctx, r.db)
	var rows []models.QuoteModel
	if err := db.Where("client_id = ?", clientID).
		Order("quote_date DESC, created_at DESC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, translate(err, "quote")
	}
	return r.withLines(db, rows)
}

// Save upserts the quote row without touching its lines
func (r *GormQuoteRepository) Save(ctx context.Context, q *quote.Quote) error {
	return translate(conn(ctx, r.db).Save(models.QuoteModelFromDomain(q)).Error, "quote")
}

// ReplaceLines deletes the stored lines and inserts the given ones
func (r *GormQuoteRepository) ReplaceLines(ctx context.Context, quoteID uuid.UUID, lines []quote.QuoteLine) error {
	db := conn(ctx, r.db)
	if err := db.Where("quote_id = ?", quoteID).Delete(&models.QuoteLineModel{}).Error; err != nil {
		return translate(err, "quote line")
	}
	if len(lines) == 0 {
		return nil
	}
	rows := make([]*models.QuoteLineModel, len(lines))
	for i, l := range lines {
		l.QuoteID = quoteID
		rows[i] = models.QuoteLineModelFromDomain(l)
	}
	return translate(db.Create(&rows).Error, "quote line")
}

// Delete removes the quote and its lines
func (r *GormQuoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := conn(ctx, r.db)
	if err := db.Where("quote_id = ?", id).Delete(&models.QuoteLineModel{}).Error; err != nil {
		return translate(err, "quote line")
	}
	result := db.Delete(&models.QuoteModel{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error, "quote")
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound.WithMessage("quote not found")
	}
	return nil
}

// IDsByClient lists the ids of every quote of a client
func (r *GormQuoteRepository) IDsByClient(ctx context.Context, clientID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := conn(ctx, r.db).Model(&models.QuoteModel{}).
		Where("client_id = ?", clientID).
		Pluck("id", &ids).Error; err != nil {
		return nil, translate(err, "quote")
	}
	return ids, nil
}

// ExpirePending flips overdue pending quotes to expired
func (r *GormQuoteRepository) ExpirePending(ctx context.Context, today time.Time) ([]uuid.UUID, error) {
	db := conn(ctx, r.db)
	overdue := db.Model(&models.QuoteModel{}).
		Where("status = ? AND expiration_date IS NOT NULL AND expiration_date < ?",
			quote.QuoteStatusPending, shared.NormalizeDate(today))

	var ids []uuid.UUID
	if err := lockForUpdate(overdue, true).Pluck("id", &ids).Error; err != nil {
		return nil, translate(err, "quote")
	}
	if len(ids) == 0 {
		return ids, nil
	}
	err := db.Model(&models.QuoteModel{}).
		Where("id IN ? AND status = ?", ids, quote.QuoteStatusPending).
		Updates(map[string]any{
			"status":     quote.QuoteStatusExpired,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return nil, translate(err, "quote")
	}
	return ids, nil
}

func (r *GormQuoteRepository) applyFilter(query *gorm.DB, filter quote.Filter) *gorm.DB {
	if filter.ClientID != nil {
		query = query.Where("quotes.client_id = ?", *filter.ClientID)
	}
	if filter.Status != "" {
		query = query.Where("quotes.status = ?", filter.Status)
	}
	if filter.DateFrom != nil {
		query = query.Where("quotes.quote_date >= ?", shared.NormalizeDate(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		query = query.Where("quotes.quote_date <= ?", shared.NormalizeDate(*filter.DateTo))
	}
	if strings.TrimSpace(filter.Search) != "" {
		pattern := likePattern(filter.Search)
		query = query.Joins("JOIN clients ON clients.id = quotes.client_id").
			Where("LOWER(clients.name) LIKE ? OR LOWER(clients.cedula) LIKE ? OR LOWER(quotes.notes) LIKE ?",
				pattern, pattern, pattern)
	}
	return query
}

func (r *GormQuoteRepository) withLines(db *gorm.DB, rows []models.QuoteModel) ([]quote.Quote, error) {
	quotes := make([]quote.Quote, len(rows))
	if len(rows) == 0 {
		return quotes, nil
	}

	ids := make([]uuid.UUID, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	var lineRows []models.QuoteLineModel
	if err := db.Where("quote_id IN ?", ids).
		Order("created_at ASC, treatment_id ASC").
		Find(&lineRows).Error; err != nil {
		return nil, translate(err, "quote line")
	}
	byQuote := make(map[uuid.UUID][]quote.QuoteLine, len(rows))
	for i := range lineRows {
		l := lineRows[i].ToDomain()
		byQuote[l.QuoteID] = append(byQuote[l.QuoteID], l)
	}

	for i := range rows {
		q := rows[i].ToDomain()
		if lines, ok := byQuote[q.ID]; ok {
			q.Lines = lines
		}
		quotes[i] = *q
	}
	return quotes, nil
}

// Ensure GormQuoteRepository implements quote.QuoteRepository
var _ quote.QuoteRepository = (*GormQuoteRepository)(nil)
