package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/dentalclinic/backend/internal/application/transaction"
	"github.com/dentalclinic/backend/internal/domain/finance"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/dentalclinic/backend/internal/infrastructure/logger"
	"github.com/dentalclinic/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentService is the payment and debt engine. It keeps payments, debts,
// their applications and the client credit balance consistent:
// a payment's amount is split between debts and credit, a debt's paid amount
// is explained by applications plus credit consumed at creation, and credit
// never goes negative.
type PaymentService struct {
	scope         transaction.Scope
	logger        *zap.Logger
	allocator     *finance.FIFOAllocator
	lockRows      bool
	debtDueMonths int
	location      *time.Location
	now           func() time.Time
	metrics       *telemetry.FinanceMetrics
}

// Option configures a PaymentService
type Option func(*PaymentService)

// WithPessimisticLocking locks the pending debts and the credit row while allocating
func WithPessimisticLocking(enabled bool) Option {
	return func(s *PaymentService) {
		s.lockRows = enabled
	}
}

// WithDebtDueMonths sets how far in the future a debt without due date falls due
func WithDebtDueMonths(months int) Option {
	return func(s *PaymentService) {
		if months > 0 {
			s.debtDueMonths = months
		}
	}
}

// WithLocation sets the clinic's time zone used to determine "today"
func WithLocation(loc *time.Location) Option {
	return func(s *PaymentService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *PaymentService) {
		s.now = now
	}
}

// WithMetrics records payment and debt operations on m
func WithMetrics(m *telemetry.FinanceMetrics) Option {
	return func(s *PaymentService) {
		s.metrics = m
	}
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(scope transaction.Scope, logger *zap.Logger, opts ...Option) *PaymentService {
	s := &PaymentService{
		scope:         scope,
		logger:        logger,
		allocator:     finance.NewFIFOAllocator(),
		debtDueMonths: 1,
		location:      time.UTC,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PaymentService) today() time.Time {
	return shared.NormalizeDate(s.now().In(s.location))
}

// CreatePayment records a payment, applies it to the client's pending debts in
// FIFO order and routes any remainder to the client's credit
func (s *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrClientID, req.ClientID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	method, err := finance.ParsePaymentMethod(req.Method)
	if err != nil {
		s.metrics.RecordPaymentCreated(ctx, "", decimal.Zero, decimal.Zero, err)
		return nil, err
	}
	paymentDate := s.today()
	if req.PaymentDate != nil {
		paymentDate = *req.PaymentDate
	}
	payment, err := finance.NewPayment(req.ClientID, req.Amount, method, paymentDate, req.Notes)
	if err != nil {
		s.metrics.RecordPaymentCreated(ctx, string(method), decimal.Zero, decimal.Zero, err)
		return nil, err
	}

	var result *PaymentResult
	err = s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		if _, err := repos.Clients().FindByID(ctx, req.ClientID); err != nil {
			return err
		}

		pending, err := repos.Debts().FindPendingByClient(ctx, req.ClientID, s.lockRows)
		if err != nil {
			return err
		}
		plan, err := s.allocator.Allocate(payment.Amount, finance.TargetsFromDebts(pending))
		if err != nil {
			return err
		}
		if err := payment.RecordCredited(plan.RemainingAmount); err != nil {
			return err
		}
		if err := repos.Payments().Save(ctx, payment); err != nil {
			return err
		}

		byID := make(map[uuid.UUID]*finance.Debt, len(pending))
		for i := range pending {
			byID[pending[i].ID] = &pending[i]
		}
		now := s.now()
		touched := make([]*finance.Debt, 0, len(plan.Allocations))
		rows := make([]finance.DebtPayment, 0, len(plan.Allocations))
		allocations := make([]AllocationResponse, 0, len(plan.Allocations))
		for _, alloc := range plan.Allocations {
			debt := byID[alloc.TargetID]
			if err := debt.ApplyPayment(alloc.Amount, now); err != nil {
				return err
			}
			touched = append(touched, debt)
			rows = append(rows, finance.DebtPayment{
				PaymentID:     payment.ID,
				DebtID:        debt.ID,
				AmountApplied: alloc.Amount,
				CreatedAt:     now,
			})
			allocations = append(allocations, AllocationResponse{
				DebtID:        debt.ID,
				AmountApplied: alloc.Amount,
				DebtPaid:      debt.IsPaid(),
			})
		}
		if err := repos.Debts().SaveBatch(ctx, touched); err != nil {
			return err
		}
		if err := repos.DebtPayments().Create(ctx, rows); err != nil {
			return err
		}

		if plan.RemainingAmount.IsPositive() {
			credit, err := repos.Credits().FindByClient(ctx, req.ClientID, s.lockRows)
			if err != nil {
				return err
			}
			if err := credit.Add(plan.RemainingAmount); err != nil {
				return err
			}
			if err := repos.Credits().Save(ctx, credit); err != nil {
				return err
			}
		}

		result = &PaymentResult{
			Payment:       ToPaymentResponse(payment),
			Applied:       plan.TotalAllocated,
			Credited:      plan.RemainingAmount,
			DebtsAffected: len(plan.Allocations),
			Allocations:   allocations,
			Message:       allocationMessage(plan.TotalAllocated, len(plan.Allocations), plan.RemainingAmount),
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordPaymentCreated(ctx, string(method), decimal.Zero, decimal.Zero, err)
		return nil, err
	}
	s.metrics.RecordPaymentCreated(ctx, string(method), payment.Amount, result.Credited, nil)

	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, payment.ID)
	logger.Enrich(ctx, s.logger).Info("Payment registered",
		zap.String("payment_id", payment.ID.String()),
		zap.String("client_id", req.ClientID.String()),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.String("applied", result.Applied.StringFixed(2)),
		zap.String("credited", result.Credited.StringFixed(2)),
		zap.Int("debts_affected", result.DebtsAffected),
	)
	return result, nil
}

func allocationMessage(applied decimal.Decimal, debts int, credited decimal.Decimal) string {
	return fmt.Sprintf("Applied %s to %d debt(s); %s added to credit",
		applied.StringFixed(2), debts, credited.StringFixed(2))
}

// CreateDebt issues a debt, covering it with the client's credit first.
// It joins the transaction carried by ctx, so other services can issue debts
// as part of their own unit of work.
func (s *PaymentService) CreateDebt(ctx context.Context, req CreateDebtRequest) (*DebtResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "debt", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrClientID, req.ClientID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	source := debtSource(req.AppointmentID, req.QuoteID)
	if req.AppointmentID != nil && req.QuoteID != nil {
		err := shared.ErrValidationFailed.WithMessage("a debt can belong to an appointment or a quote, not both")
		s.metrics.RecordDebtCreated(ctx, source, decimal.Zero, err)
		return nil, err
	}
	dueDate := s.today().AddDate(0, s.debtDueMonths, 0)
	if req.DueDate != nil {
		dueDate = *req.DueDate
	}
	debt, err := finance.NewDebt(req.ClientID, req.Amount, dueDate, req.Description)
	if err != nil {
		s.metrics.RecordDebtCreated(ctx, source, decimal.Zero, err)
		return nil, err
	}
	debt.AppointmentID = req.AppointmentID
	debt.QuoteID = req.QuoteID

	var used decimal.Decimal
	err = s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		if _, err := repos.Clients().FindByID(ctx, req.ClientID); err != nil {
			return err
		}
		credit, err := repos.Credits().FindByClient(ctx, req.ClientID, s.lockRows)
		if err != nil {
			return err
		}
		used, err = debt.ApplyCredit(credit.Amount, s.now())
		if err != nil {
			return err
		}
		if err := repos.Debts().Save(ctx, debt); err != nil {
			return err
		}
		if used.IsPositive() {
			if err := credit.Consume(used); err != nil {
				return err
			}
			return repos.Credits().Save(ctx, credit)
		}
		return nil
	})
	s.metrics.RecordDebtCreated(ctx, source, used, err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrDebtID, debt.ID)
	logger.Enrich(ctx, s.logger).Info("Debt issued",
		zap.String("debt_id", debt.ID.String()),
		zap.String("client_id", req.ClientID.String()),
		zap.String("amount", debt.Amount.StringFixed(2)),
		zap.String("credit_applied", used.StringFixed(2)),
		zap.String("status", string(debt.Status)),
	)
	resp := ToDebtResponse(debt)
	return &resp, nil
}

// DeletePayment reverses every effect of a payment: applied amounts are taken
// back from their debts and the part that went to credit is withdrawn again.
// When that credit has already been consumed the deletion fails with
// ErrInconsistentCredit and nothing changes.
func (s *PaymentService) DeletePayment(ctx context.Context, paymentID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "delete")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, paymentID)

	var payment *finance.Payment
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		var err error
		payment, err = repos.Payments().FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		rows, err := repos.DebtPayments().FindByPayment(ctx, paymentID)
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.DebtID)
		}
		debts, err := repos.Debts().FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*finance.Debt, len(debts))
		for i := range debts {
			byID[debts[i].ID] = &debts[i]
		}

		touched := make([]*finance.Debt, 0, len(rows))
		for _, r := range rows {
			debt, ok := byID[r.DebtID]
			if !ok {
				continue
			}
			if err := debt.ReversePayment(r.AmountApplied); err != nil {
				return err
			}
			touched = append(touched, debt)
		}
		if err := repos.Debts().SaveBatch(ctx, touched); err != nil {
			return err
		}
		if err := repos.DebtPayments().DeleteByPayment(ctx, paymentID); err != nil {
			return err
		}

		// shares severed by a deleted debt are unattributed, not credit
		if overflow := payment.CreditedAmount; overflow.IsPositive() {
			credit, err := repos.Credits().FindByClient(ctx, payment.ClientID, s.lockRows)
			if err != nil {
				return err
			}
			if err := credit.Consume(overflow); err != nil {
				return err
			}
			if err := repos.Credits().Save(ctx, credit); err != nil {
				return err
			}
		}
		return repos.Payments().Delete(ctx, paymentID)
	})
	var method string
	if payment != nil {
		method = string(payment.Method)
	}
	s.metrics.RecordPaymentDeleted(ctx, method, err)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	logger.Enrich(ctx, s.logger).Info("Payment deleted",
		zap.String("payment_id", paymentID.String()),
		zap.String("client_id", payment.ClientID.String()),
		zap.String("amount", payment.Amount.StringFixed(2)),
	)
	return nil
}

// DeleteDebt removes a debt and gives back the credit consumed when it was issued.
// Payments that were applied to it stay; their share becomes unattributed.
func (s *PaymentService) DeleteDebt(ctx context.Context, debtID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "debt", "delete")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrDebtID, debtID)

	source := debtSourceManual
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		debt, err := repos.Debts().FindByID(ctx, debtID)
		if err != nil {
			return err
		}
		source = debtSource(debt.AppointmentID, debt.QuoteID)
		return s.removeDebt(ctx, repos, debt)
	})
	s.metrics.RecordDebtsDeleted(ctx, source, 1, err)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	logger.Enrich(ctx, s.logger).Info("Debt deleted", zap.String("debt_id", debtID.String()))
	return nil
}

// DeleteDebtsForAppointment removes every debt tagged with the appointment,
// returning consumed credit as DeleteDebt does
func (s *PaymentService) DeleteDebtsForAppointment(ctx context.Context, appointmentID uuid.UUID) (int, error) {
	return s.deleteTagged(ctx, debtSourceAppointment, func(ctx context.Context, repos transaction.Repositories) ([]finance.Debt, error) {
		return repos.Debts().FindByAppointment(ctx, appointmentID)
	})
}

// DeleteDebtsForQuote removes every debt tagged with the quote
func (s *PaymentService) DeleteDebtsForQuote(ctx context.Context, quoteID uuid.UUID) (int, error) {
	return s.deleteTagged(ctx, debtSourceQuote, func(ctx context.Context, repos transaction.Repositories) ([]finance.Debt, error) {
		return repos.Debts().FindByQuote(ctx, quoteID)
	})
}

func (s *PaymentService) deleteTagged(ctx context.Context, source string,
	find func(ctx context.Context, repos transaction.Repositories) ([]finance.Debt, error)) (int, error) {
	var count int
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		debts, err := find(ctx, repos)
		if err != nil {
			return err
		}
		for i := range debts {
			if err := s.removeDebt(ctx, repos, &debts[i]); err != nil {
				return err
			}
		}
		count = len(debts)
		return nil
	})
	s.metrics.RecordDebtsDeleted(ctx, source, count, err)
	return count, err
}

const (
	debtSourceManual      = "manual"
	debtSourceAppointment = "appointment"
	debtSourceQuote       = "quote"
)

func debtSource(appointmentID, quoteID *uuid.UUID) string {
	switch {
	case appointmentID != nil:
		return debtSourceAppointment
	case quoteID != nil:
		return debtSourceQuote
	default:
		return debtSourceManual
	}
}

// removeDebt returns paid_amount - sum(applied) to credit and deletes the debt
func (s *PaymentService) removeDebt(ctx context.Context, repos transaction.Repositories, debt *finance.Debt) error {
	applied, err := repos.DebtPayments().SumByDebt(ctx, debt.ID)
	if err != nil {
		return err
	}
	if refund := debt.PaidAmount.Sub(applied); refund.IsPositive() {
		credit, err := repos.Credits().FindByClient(ctx, debt.ClientID, s.lockRows)
		if err != nil {
			return err
		}
		if err := credit.Add(refund); err != nil {
			return err
		}
		if err := repos.Credits().Save(ctx, credit); err != nil {
			return err
		}
	}
	if err := repos.DebtPayments().DeleteByDebt(ctx, debt.ID); err != nil {
		return err
	}
	return repos.Debts().Delete(ctx, debt.ID)
}

// ListClientPayments returns a client's payments, newest first
func (s *PaymentService) ListClientPayments(ctx context.Context, clientID uuid.UUID) ([]PaymentResponse, error) {
	payments, err := s.scope.Repositories().Payments().FindByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return ToPaymentResponses(payments), nil
}

// ListClientDebts returns a client's debts. pendingOnly restricts to open debts in FIFO order.
func (s *PaymentService) ListClientDebts(ctx context.Context, clientID uuid.UUID, pendingOnly bool) ([]DebtResponse, error) {
	repo := s.scope.Repositories().Debts()
	var (
		debts []finance.Debt
		err   error
	)
	if pendingOnly {
		debts, err = repo.FindPendingByClient(ctx, clientID, false)
	} else {
		debts, err = repo.FindByClient(ctx, clientID)
	}
	if err != nil {
		return nil, err
	}
	return ToDebtResponses(debts), nil
}

// GetPayment retrieves a payment by ID
func (s *PaymentService) GetPayment(ctx context.Context, paymentID uuid.UUID) (*PaymentResponse, error) {
	payment, err := s.scope.Repositories().Payments().FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// GetDebt retrieves a debt by ID
func (s *PaymentService) GetDebt(ctx context.Context, debtID uuid.UUID) (*DebtResponse, error) {
	debt, err := s.scope.Repositories().Debts().FindByID(ctx, debtID)
	if err != nil {
		return nil, err
	}
	resp := ToDebtResponse(debt)
	return &resp, nil
}

// GetPaymentAllocations lists the debts a payment was applied to
func (s *PaymentService) GetPaymentAllocations(ctx context.Context, paymentID uuid.UUID) (*PaymentAllocations, error) {
	repos := s.scope.Repositories()
	payment, err := repos.Payments().FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	rows, err := repos.DebtPayments().FindByPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.DebtID)
	}
	debts, err := repos.Debts().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	paid := make(map[uuid.UUID]bool, len(debts))
	for _, d := range debts {
		paid[d.ID] = d.IsPaid()
	}

	out := &PaymentAllocations{
		PaymentID:   payment.ID,
		Amount:      payment.Amount,
		Applied:     decimal.Zero,
		Credited:    payment.CreditedAmount,
		Allocations: make([]AllocationResponse, 0, len(rows)),
	}
	for _, r := range rows {
		out.Applied = out.Applied.Add(r.AmountApplied)
		out.Allocations = append(out.Allocations, AllocationResponse{
			DebtID:        r.DebtID,
			AmountApplied: r.AmountApplied,
			DebtPaid:      paid[r.DebtID],
		})
	}
	out.Unattributed = payment.Amount.Sub(out.Applied).Sub(out.Credited)
	if out.Unattributed.IsNegative() {
		out.Unattributed = decimal.Zero
	}
	return out, nil
}

// GetSummary returns total payments, outstanding debt and credit for a client
func (s *PaymentService) GetSummary(ctx context.Context, clientID uuid.UUID) (*ClientSummary, error) {
	repos := s.scope.Repositories()
	if _, err := repos.Clients().FindByID(ctx, clientID); err != nil {
		return nil, err
	}
	paid, err := repos.Payments().SumByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	pending, err := repos.Debts().SumOutstanding(ctx, clientID)
	if err != nil {
		return nil, err
	}
	credit, err := repos.Credits().FindByClient(ctx, clientID, false)
	if err != nil {
		return nil, err
	}
	return &ClientSummary{
		ClientID:            clientID,
		TotalPayments:       paid,
		TotalPendingDebt:    pending,
		ClientCreditBalance: credit.Amount,
	}, nil
}

// GetCredit returns the client's credit balance, zero when none was ever recorded
func (s *PaymentService) GetCredit(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error) {
	credit, err := s.scope.Repositories().Credits().FindByClient(ctx, clientID, false)
	if err != nil {
		return decimal.Zero, err
	}
	return credit.Amount, nil
}
