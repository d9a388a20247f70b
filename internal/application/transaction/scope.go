// Package transaction defines the unit of work shared by the clinic services.
package transaction

import (
	"context"

	"github.com/dentalclinic/backend/internal/domain/catalog"
	"github.com/dentalclinic/backend/internal/domain/finance"
	"github.com/dentalclinic/backend/internal/domain/history"
	"github.com/dentalclinic/backend/internal/domain/partner"
	"github.com/dentalclinic/backend/internal/domain/quote"
	"github.com/dentalclinic/backend/internal/domain/scheduling"
)

// Scope runs work inside one database transaction.
//
// The active transaction travels in the context handed to fn. A call to
// Execute with such a context joins the running transaction instead of
// starting a new one, and only the outermost Execute commits or rolls back.
// Services therefore compose by passing that context down.
type Scope interface {
	// Execute commits when fn returns nil and rolls back on error or panic.
	Execute(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error

	// Repositories returns repositories bound to ctx: the running transaction
	// when ctx carries one, the pool otherwise.
	Repositories() Repositories

	// AfterCommit defers fn until the outermost transaction in ctx commits.
	// It is dropped on rollback and runs immediately when ctx has no transaction.
	AfterCommit(ctx context.Context, fn func(ctx context.Context))
}

// Repositories gives access to every clinic repository. All of them resolve the
// transaction from the context of each call.
type Repositories interface {
	Clients() partner.ClientRepository
	Dentists() catalog.DentistRepository
	Treatments() catalog.TreatmentRepository
	Appointments() scheduling.AppointmentRepository
	Quotes() quote.QuoteRepository
	Debts() finance.DebtRepository
	Payments() finance.PaymentRepository
	DebtPayments() finance.DebtPaymentRepository
	Credits() finance.CreditRepository
	ClientTreatments() history.ClientTreatmentRepository
	MedicalRecords() history.MedicalRecordRepository
}
