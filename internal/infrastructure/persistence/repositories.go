package persistence

import (
	"github.com/dentalclinic/backend/internal/application/transaction"
	"github.com/dentalclinic/backend/internal/domain/catalog"
	"github.com/dentalclinic/backend/internal/domain/finance"
	"github.com/dentalclinic/backend/internal/domain/history"
	"github.com/dentalclinic/backend/internal/domain/partner"
	"github.com/dentalclinic/backend/internal/domain/quote"
	"github.com/dentalclinic/backend/internal/domain/scheduling"
	"gorm.io/gorm"
)

// gormRepositories provides access to all repositories. Each repository
// resolves the transaction from the context of every call.
type gormRepositories struct {
	clients          *GormClientRepository
	dentists         *GormDentistRepository
	treatments       *GormTreatmentRepository
	appointments     *GormAppointmentRepository
	quotes           *GormQuoteRepository
	debts            *GormDebtRepository
	payments         *GormPaymentRepository
	debtPayments     *GormDebtPaymentRepository
	credits          *GormCreditRepository
	clientTreatments *GormClientTreatmentRepository
	medicalRecords   *GormMedicalRecordRepository
}

func newGormRepositories(db *gorm.DB) *gormRepositories {
	return &gormRepositories{
		clients:          NewGormClientRepository(db),
		dentists:         NewGormDentistRepository(db),
		treatments:       NewGormTreatmentRepository(db),
		appointments:     NewGormAppointmentRepository(db),
		quotes:           NewGormQuoteRepository(db),
		debts:            NewGormDebtRepository(db),
		payments:         NewGormPaymentRepository(db),
		debtPayments:     NewGormDebtPaymentRepository(db),
		credits:          NewGormCreditRepository(db),
		clientTreatments: NewGormClientTreatmentRepository(db),
		medicalRecords:   NewGormMedicalRecordRepository(db),
	}
}

func (r *gormRepositories) Clients() partner.ClientRepository {
	return r.clients
}

func (r *gormRepositories) Dentists() catalog.DentistRepository {
	return r.dentists
}

func (r *gormRepositories) Treatments() catalog.TreatmentRepository {
	return r.treatments
}

func (r *gormRepositories) Appointments() scheduling.AppointmentRepository {
	return r.appointments
}

func (r *gormRepositories) Quotes() quote.QuoteRepository {
	return r.quotes
}

func (r *gormRepositories) Debts() finance.DebtRepository {
	return r.debts
}

func (r *gormRepositories) Payments() finance.PaymentRepository {
	return r.payments
}

func (r *gormRepositories) DebtPayments() finance.DebtPaymentRepository {
	return r.debtPayments
}

func (r *gormRepositories) Credits() finance.CreditRepository {
	return r.credits
}

func (r *gormRepositories) ClientTreatments() history.ClientTreatmentRepository {
	return r.clientTreatments
}

func (r *gormRepositories) MedicalRecords() history.MedicalRecordRepository {
	return r.medicalRecords
}

// Ensure gormRepositories implements transaction.Repositories
var _ transaction.Repositories = (*gormRepositories)(nil)
