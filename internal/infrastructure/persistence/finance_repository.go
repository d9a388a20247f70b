package persistence

import (
	"context"
	"time"

	"github.com/dentalclinic/backend/internal/domain/finance"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/dentalclinic/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sumColumn runs SELECT COALESCE(SUM(expr), 0) on query and rounds to money scale
func sumColumn(query *gorm.DB, expr string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := query.Select("COALESCE(SUM(" + expr + "), 0)").Row().Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return shared.RoundMoney(sum), nil
}

// GormDebtRepository implements DebtRepository using GORM
type GormDebtRepository struct {
	db *gorm.DB
}

// NewGormDebtRepository creates a new GormDebtRepository
func NewGormDebtRepository(db *gorm.DB) *GormDebtRepository {
	return &GormDebtRepository{db: db}
}

// FindByID finds a debt by its ID
func (r *GormDebtRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Debt, error) {
	var model models.DebtModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err, "debt")
	}
	return model.ToDomain(), nil
}

// FindPendingByClient returns pending debts ordered by due date, creation and id
func (r *GormDebtRepository) FindPendingByClient(ctx context.Context, clientID uuid.UUID, forUpdate bool) ([]finance.Debt, error) {
	query := lockForUpdate(conn(ctx, r.db), forUpdate).
		Where("client_id = ? AND status = ?", clientID, finance.DebtStatusPending).
		Order("due_date ASC, created_at ASC, id ASC")
	return r.find(query)
}

// FindByClient lists all debts of a client, newest due date first
func (r *GormDebtRepository) FindByClient(ctx context.Context, clientID uuid.UUID) ([]finance.Debt, error) {
	return r.find(conn(ctx, r.db).Where("client_id = ?", clientID).Order("due_date DESC, created_at DESC, id ASC"))
}

// FindByIDs loads the given debts
func (r *GormDebtRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]finance.Debt, error) {
	if len(ids) == 0 {
		return []finance.Debt{}, nil
	}
	return r.find(conn(ctx, r.db).Where("id IN ?", ids).Order("due_date ASC, created_at ASC, id ASC"))
}

// FindByAppointment lists the debts tagged with an appointment
func (r *GormDebtRepository) FindByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]finance.Debt, error) {
	return r.find(conn(ctx, r.db).Where("appointment_id = ?", appointmentID).Order("created_at ASC, id ASC"))
}

// FindByQuote lists the debts tagged with a quote
func (r *GormDebtRepository) FindByQuote(ctx context.Context, quoteID uuid.UUID) ([]finance.Debt, error) {
	return r.find(conn(ctx, r.db).Where("quote_id = ?", quoteID).Order("created_at ASC, id ASC"))
}

// SumOutstanding returns the unpaid balance across pending debts
func (r *GormDebtRepository) SumOutstanding(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error) {
	sum, err := sumColumn(conn(ctx, r.db).Model(&models.DebtModel{}).
		Where("client_id = ? AND status = ?", clientID, finance.DebtStatusPending), "amount - paid_amount")
	if err != nil {
		return decimal.Zero, translate(err, "debt")
	}
	return sum, nil
}

// Save creates or updates a debt
func (r *GormDebtRepository) Save(ctx context.Context, debt *finance.Debt) error {
	return translate(conn(ctx, r.db).Save(models.DebtModelFromDomain(debt)).Error, "debt")
}

// SaveBatch upserts several debts in one statement
func (r *GormDebtRepository) SaveBatch(ctx context.Context, debts []*finance.Debt) error {
	if len(debts) == 0 {
		return nil
	}
	rows := make([]*models.DebtModel, len(debts))
	for i, d := range debts {
		rows[i] = models.DebtModelFromDomain(d)
	}
	return translate(conn(ctx, r.db).Save(&rows).Error, "debt")
}

// Delete removes a debt
func (r *GormDebtRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.DebtModel{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error, "debt")
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound.WithMessage("debt not found")
	}
	return nil
}

func (r *GormDebtRepository) find(query *gorm.DB) ([]finance.Debt, error) {
	var rows []models.DebtModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, translate(err, "debt")
	}
	debts := make([]finance.Debt, len(rows))
	for i := range rows {
		debts[i] = *rows[i].ToDomain()
	}
	return debts, nil
}

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Payment, error) {
	var model models.PaymentModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err, "payment")
	}
	return model.ToDomain(), nil
}

// FindByClient lists the payments of a client, newest first
func (r *GormPaymentRepository) FindByClient(ctx context.Context, clientID uuid.UUID) ([]finance.Payment, error) {
	var rows []models.PaymentModel
	if err := conn(ctx, r.db).
		Where("client_id = ?", clientID).
		Order("payment_date DESC, created_at DESC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, translate(err, "payment")
	}
	payments := make([]finance.Payment, len(rows))
	for i := range rows {
		payments[i] = *rows[i].ToDomain()
	}
	return payments, nil
}

// SumByClient returns the total received from a client
func (r *GormPaymentRepository) SumByClient(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error) {
	sum, err := sumColumn(conn(ctx, r.db).Model(&models.PaymentModel{}).Where("client_id = ?", clientID), "amount")
	if err != nil {
		return decimal.Zero, translate(err, "payment")
	}
	return sum, nil
}

// Save creates or updates a payment
func (r *GormPaymentRepository) Save(ctx context.Context, payment *finance.Payment) error {
	return translate(conn(ctx, r.db).Save(models.PaymentModelFromDomain(payment)).Error, "payment")
}

// Delete removes a payment
func (r *GormPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.PaymentModel{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error, "payment")
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound.WithMessage("payment not found")
	}
	return nil
}

// GormDebtPaymentRepository implements DebtPaymentRepository using GORM
type GormDebtPaymentRepository struct {
	db *gorm.DB
}

// NewGormDebtPaymentRepository creates a new GormDebtPaymentRepository
func NewGormDebtPaymentRepository(db *gorm.DB) *GormDebtPaymentRepository {
	return &GormDebtPaymentRepository{db: db}
}

// Create inserts application rows
func (r *GormDebtPaymentRepository) Create(ctx context.Context, rows []finance.DebtPayment) error {
	if len(rows) == 0 {
		return nil
	}
	ms := make([]models.DebtPaymentModel, len(rows))
	for i, row := range rows {
		ms[i] = models.DebtPaymentModelFromDomain(row)
	}
	return translate(conn(ctx, r.db).Create(&ms).Error, "debt payment")
}

// FindByPayment lists the debts a payment was applied to
func (r *GormDebtPaymentRepository) FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]finance.DebtPayment, error) {
	return r.find(conn(ctx, r.db).Where("payment_id = ?", paymentID))
}

// FindByDebt lists the payments applied to a debt
func (r *GormDebtPaymentRepository) FindByDebt(ctx context.Context, debtID uuid.UUID) ([]finance.DebtPayment, error) {
	return r.find(conn(ctx, r.db).Where("debt_id = ?", debtID))
}

// SumByDebt returns the amount applied to a debt by payments
func (r *GormDebtPaymentRepository) SumByDebt(ctx context.Context, debtID uuid.UUID) (decimal.Decimal, error) {
	sum, err := sumColumn(conn(ctx, r.db).Model(&models.DebtPaymentModel{}).Where("debt_id = ?", debtID), "amount_applied")
	if err != nil {
		return decimal.Zero, translate(err, "debt payment")
	}
	return sum, nil
}

// DeleteByPayment removes the application rows of a payment
func (r *GormDebtPaymentRepository) DeleteByPayment(ctx context.Context, paymentID uuid.UUID) error {
	return translate(conn(ctx, r.db).Where("payment_id = ?", paymentID).Delete(&models.DebtPaymentModel{}).Error, "debt payment")
}

// DeleteByDebt removes the application rows of a debt
func (r *GormDebtPaymentRepository) DeleteByDebt(ctx context.Context, debtID uuid.UUID) error {
	return translate(conn(ctx, r.db).Where("debt_id = ?", debtID).Delete(&models.DebtPaymentModel{}).Error, "debt payment")
}

func (r *GormDebtPaymentRepository) find(query *gorm.DB) ([]finance.DebtPayment, error) {
	var rows []models.DebtPaymentModel
	if err := query.Order("created_at ASC, debt_id ASC").Find(&rows).Error; err != nil {
		return nil, translate(err, "debt payment")
	}
	out := make([]finance.DebtPayment, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// GormCreditRepository implements CreditRepository using GORM
type GormCreditRepository struct {
	db *gorm.DB
}

// NewGormCreditRepository creates a new GormCreditRepository
func NewGormCreditRepository(db *gorm.DB) *GormCreditRepository {
	return &GormCreditRepository{db: db}
}

// FindByClient returns the client's balance, zero when no row exists yet
func (r *GormCreditRepository) FindByClient(ctx context.Context, clientID uuid.UUID, forUpdate bool) (*finance.ClientCredit, error) {
	db := conn(ctx, r.db)
	if forUpdate && db.Dialector.Name() != "sqlite" {
		// a missing row cannot be locked; insert a zero balance first
		now := time.Now()
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.ClientCreditModel{
			ClientID:  clientID,
			Amount:    decimal.Zero,
			CreatedAt: now,
			UpdatedAt: now,
		}).Error; err != nil {
			return nil, translate(err, "client credit")
		}
	}
	var rows []models.ClientCreditModel
	if err := lockForUpdate(db, forUpdate).
		Where("client_id = ?", clientID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, translate(err, "client credit")
	}
	if len(rows) == 0 {
		return finance.NewClientCredit(clientID), nil
	}
	return rows[0].ToDomain(), nil
}

// Save upserts the balance keyed on client id
func (r *GormCreditRepository) Save(ctx context.Context, credit *finance.ClientCredit) error {
	now := time.Now()
	model := &models.ClientCreditModel{
		ClientID:  credit.ClientID,
		Amount:    credit.Amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return translate(conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(model).Error, "client credit")
}

// DeleteByClient removes the balance row of a client
func (r *GormCreditRepository) DeleteByClient(ctx context.Context, clientID uuid.UUID) error {
	return translate(conn(ctx, r.db).Where("client_id = ?", clientID).Delete(&models.ClientCreditModel{}).Error, "client credit")
}

var (
	_ finance.DebtRepository        = (*GormDebtRepository)(nil)
	_ finance.PaymentRepository     = (*GormPaymentRepository)(nil)
	_ finance.DebtPaymentRepository = (*GormDebtPaymentRepository)(nil)
	_ finance.CreditRepository      = (*GormCreditRepository)(nil)
)
