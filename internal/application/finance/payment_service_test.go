package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dentalclinic/backend/internal/application/transaction"
	"github.com/dentalclinic/backend/internal/domain/finance"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/dentalclinic/backend/internal/infrastructure/telemetry"
	"github.com/dentalclinic/backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

type engineFixture struct {
	scope    transaction.Scope
	svc      *PaymentService
	clientID uuid.UUID
}

func newEngine(t *testing.T, opts ...Option) *engineFixture {
	t.Helper()
	scope := testutil.NewScope(t)
	client := testutil.SeedClient(t, scope, "María González", "V-12345678")
	opts = append([]Option{WithClock(testutil.FixedClock(testNow))}, opts...)
	return &engineFixture{
		scope:    scope,
		svc:      NewPaymentService(scope, zap.NewNop(), opts...),
		clientID: client.ID,
	}
}

func date(s string) *time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &d
}

func (f *engineFixture) debt(t *testing.T, amount string, due *time.Time) *DebtResponse {
	t.Helper()
	d, err := f.svc.CreateDebt(context.Background(), CreateDebtRequest{
		ClientID: f.clientID,
		Amount:   testutil.Money(amount),
		DueDate:  due,
	})
	require.NoError(t, err)
	return d
}

func (f *engineFixture) pay(t *testing.T, amount string) *PaymentResult {
	t.Helper()
	res, err := f.svc.CreatePayment(context.Background(), CreatePaymentRequest{
		ClientID: f.clientID,
		Amount:   testutil.Money(amount),
		Method:   "cash",
	})
	require.NoError(t, err)
	return res
}

func (f *engineFixture) credit(t *testing.T) string {
	t.Helper()
	c, err := f.svc.GetCredit(context.Background(), f.clientID)
	require.NoError(t, err)
	return c.StringFixed(2)
}

func (f *engineFixture) reload(t *testing.T, id uuid.UUID) *DebtResponse {
	t.Helper()
	d, err := f.svc.GetDebt(context.Background(), id)
	require.NoError(t, err)
	return d
}

func TestCreatePayment_OverpaymentGoesToCredit(t *testing.T) {
	f := newEngine(t)
	debt := f.debt(t, "50.00", nil)

	res := f.pay(t, "80.00")

	assert.Equal(t, "50.00", res.Applied.StringFixed(2))
	assert.Equal(t, "30.00", res.Credited.StringFixed(2))
	assert.Equal(t, 1, res.DebtsAffected)
	assert.Equal(t, "Applied 50.00 to 1 debt(s); 30.00 added to credit", res.Message)
	assert.Equal(t, "30.00", res.Payment.CreditedAmount.StringFixed(2))

	reloaded := f.reload(t, debt.ID)
	assert.Equal(t, string(finance.DebtStatusPaid), reloaded.Status)
	assert.Equal(t, "50.00", reloaded.PaidAmount.StringFixed(2))
	require.NotNil(t, reloaded.PaidAt)

	allocs, err := f.svc.GetPaymentAllocations(context.Background(), res.Payment.ID)
	require.NoError(t, err)
	require.Len(t, allocs.Allocations, 1)
	assert.Equal(t, "50.00", allocs.Allocations[0].AmountApplied.StringFixed(2))
	assert.True(t, allocs.Unattributed.IsZero())

	assert.Equal(t, "30.00", f.credit(t))
	testutil.AssertLedgerConsistent(t, f.scope, f.clientID)
}

func TestCreateDebt_CreditCoverage(t *testing.T) {
	f := newEngine(t)
	f.pay(t, "30.00")
	require.Equal(t, "30.00", f.credit(t))

	covered := f.debt(t, "20.00", nil)
	assert.Equal(t, string(finance.DebtStatusPaid), covered.Status)
	assert.Equal(t, "20.00", covered.PaidAmount.StringFixed(2))
	assert.Equal(t, "20.00", covered.CreditApplied.StringFixed(2))
	assert.Equal(t, "10.00", f.credit(t))

	partial := f.debt(t, "25.00", nil)
	assert.Equal(t, string(finance.DebtStatusPending), partial.Status)
	assert.Equal(t, "10.00", partial.PaidAmount.StringFixed(2))
	assert.Equal(t, "15.00", partial.Outstanding.StringFixed(2))
	assert.Equal(t, "0.00", f.credit(t))

	testutil.AssertLedgerConsistent(t, f.scope, f.clientID)
}

func TestCreatePayment_FIFOAllocation(t *testing.T) {
	f := newEngine(t)
	b := f.debt(t, "30.00", date("2025-02-01"))
	a := f.debt(t, "40.00", date("2025-01-01"))

	res := f.pay(t, "50.00")

	assert.Equal(t, "Applied 50.00 to 2 debt(s); 0.00 added to credit", res.Message)
	require.Len(t, res.Allocations, 2)
	assert.Equal(t, a.ID, res.Allocations[0].DebtID)
	assert.True(t, res.Allocations[0].DebtPaid)

	ra := f.reload(t, a.ID)
	assert.Equal(t, string(finance.DebtStatusPaid), ra.Status)
	assert.Equal(t, "40.00", ra.PaidAmount.StringFixed(2))

	rb := f.reload(t, b.ID)
	assert.Equal(t, string(finance.DebtStatusPending), rb.Status)
	assert.Equal(t, "10.00", rb.PaidAmount.StringFixed(2))

	assert.Equal(t, "0.00", f.credit(t))
	testutil.AssertLedgerConsistent(t, f.scope, f.clientID)
}

func TestCreatePayment_Validation(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreatePaymentRequest
		want *shared.DomainError
	}{
		{"zero amount", CreatePaymentRequest{ClientID: f.clientID, Amount: testutil.Money("0"), Method: "cash"}, shared.ErrValidationFailed},
		{"negative amount", CreatePaymentRequest{ClientID: f.clientID, Amount: testutil.Money("-5"), Method: "cash"}, shared.ErrValidationFailed},
		{"unknown method", CreatePaymentRequest{ClientID: f.clientID, Amount: testutil.Money("5"), Method: "barter"}, shared.ErrValidationFailed},
		{"unknown client", CreatePaymentRequest{ClientID: uuid.New(), Amount: testutil.Money("5"), Method: "card"}, shared.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreatePayment(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	payments, err := f.svc.ListClientPayments(ctx, f.clientID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestCreateDebt_Defaults(t *testing.T) {
	f := newEngine(t)

	d := f.debt(t, "12.345", nil)
	assert.Equal(t, "2025-04-10", d.DueDate.Format("2006-01-02"))
	assert.Equal(t, "12.35", d.Amount.StringFixed(2))

	_, err := f.svc.CreateDebt(context.Background(), CreateDebtRequest{ClientID: f.clientID, Amount: testutil.Money("0")})
	assert.ErrorIs(t, err, shared.ErrValidationFailed)

	both := uuid.New()
	_, err = f.svc.CreateDebt(context.Background(), CreateDebtRequest{
		ClientID: f.clientID, Amount: testutil.Money("5"), AppointmentID: &both, QuoteID: &both,
	})
	assert.ErrorIs(t, err, shared.ErrValidationFailed)
}

func TestCreateDebt_DueMonthsOption(t *testing.T) {
	f := newEngine(t, WithDebtDueMonths(3))
	d := f.debt(t, "10.00", nil)
	assert.Equal(t, "2025-06-10", d.DueDate.Format("2006-01-02"))
}

func TestDeletePayment_RestoresDebtsAndCredit(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	f.pay(t, "5.00")
	a := f.debt(t, "40.00", date("2025-01-01"))
	b := f.debt(t, "30.00", date("2025-02-01"))
	creditBefore := f.credit(t)
	paidBeforeA := f.reload(t, a.ID).PaidAmount
	paidBeforeB := f.reload(t, b.ID).PaidAmount

	res := f.pay(t, "100.00")
	require.Equal(t, "35.00", f.credit(t))

	require.NoError(t, f.svc.DeletePayment(ctx, res.Payment.ID))

	ra, rb := f.reload(t, a.ID), f.reload(t, b.ID)
	assert.True(t, paidBeforeA.Equal(ra.PaidAmount))
	assert.True(t, paidBeforeB.Equal(rb.PaidAmount))
	assert.Equal(t, string(finance.DebtStatusPending), ra.Status)
	assert.Nil(t, ra.PaidAt)
	assert.Equal(t, creditBefore, f.credit(t))

	_, err := f.svc.GetPayment(ctx, res.Payment.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	testutil.AssertLedgerConsistent(t, f.scope, f.clientID)
}

func TestDeletePayment_ConsumedCreditIsRejected(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	res := f.pay(t, "30.00")
	f.debt(t, "25.00", nil)
	require.Equal(t, "5.00", f.credit(t))

	err := f.svc.DeletePayment(ctx, res.Payment.ID)
	assert.ErrorIs(t, err, shared.ErrInconsistentCredit)

	_, err = f.svc.GetPayment(ctx, res.Payment.ID)
	assert.NoError(t, err)
	assert.Equal(t, "5.00", f.credit(t))
	testutil.AssertLedgerConsistent(t, f.scope, f.clientID)
}

func TestDeleteDebt_ReturnsConsumedCredit(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	f.pay(t, "30.00")

	d := f.debt(t, "20.00", nil)
	require.Equal(t, "10.00", f.credit(t))

	require.NoError(t, f.svc.DeleteDebt(ctx, d.ID))
	assert.Equal(t, "30.00", f.credit(t))

	err := f.svc.DeleteDebt(ctx, d.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteDebt_SeversPaymentShare(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	d := f.debt(t, "40.00", nil)
	res := f.pay(t, "50.00")

	require.NoError(t, f.svc.DeleteDebt(ctx, d.ID))
	assert.Equal(t, "10.00", f.credit(t))

	allocs, err := f.svc.GetPaymentAllocations(ctx, res.Payment.ID)
	require.NoError(t, err)
	assert.Empty(t, allocs.Allocations)
	assert.Equal(t, "40.00", allocs.Unattributed.StringFixed(2))
	assert.Equal(t, "10.00", allocs.Credited.StringFixed(2))

	other := f.pay(t, "30.00")
	require.Equal(t, "40.00", f.credit(t))

	require.NoError(t, f.svc.DeletePayment(ctx, res.Payment.ID))
	assert.Equal(t, "30.00", f.credit(t), "only the recorded overflow is withdrawn")
	testutil.AssertLedgerConsistent(t, f.scope, f.clientID)

	require.NoError(t, f.svc.DeletePayment(ctx, other.Payment.ID))
	assert.Equal(t, "0.00", f.credit(t))
}

func TestDeletePayment_AfterDebtDeletionKeepsOtherCredit(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	d := f.debt(t, "50.00", nil)
	exact := f.pay(t, "50.00")
	require.True(t, exact.Credited.IsZero())
	over := f.pay(t, "80.00")
	require.Equal(t, "80.00", f.credit(t))

	require.NoError(t, f.svc.DeleteDebt(ctx, d.ID))
	assert.Equal(t, "80.00", f.credit(t))

	require.NoError(t, f.svc.DeletePayment(ctx, exact.Payment.ID))
	assert.Equal(t, "80.00", f.credit(t))

	require.NoError(t, f.svc.DeletePayment(ctx, over.Payment.ID))
	assert.Equal(t, "0.00", f.credit(t))
	testutil.AssertLedgerConsistent(t, f.scope, f.clientID)
}

func TestDeleteDebtsForQuote_JoinsOuterTransaction(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	f.pay(t, "100.00")

	quoteID := uuid.New()
	_, err := f.svc.CreateDebt(ctx, CreateDebtRequest{ClientID: f.clientID, Amount: testutil.Money("60"), QuoteID: &quoteID})
	require.NoError(t, err)
	require.Equal(t, "40.00", f.credit(t))

	rollback := errors.New("abort")
	err = f.scope.Execute(ctx, func(ctx context.Context, _ transaction.Repositories) error {
		n, err := f.svc.DeleteDebtsForQuote(ctx, quoteID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		return rollback
	})
	assert.ErrorIs(t, err, rollback)
	assert.Equal(t, "40.00", f.credit(t))

	n, err := f.svc.DeleteDebtsForQuote(ctx, quoteID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "100.00", f.credit(t))
}

func TestGetSummary(t *testing.T) {
	f := newEngine(t, WithPessimisticLocking(true))
	ctx := context.Background()
	f.debt(t, "70.00", nil)
	f.pay(t, "50.00")
	f.pay(t, "30.00")

	summary, err := f.svc.GetSummary(ctx, f.clientID)
	require.NoError(t, err)
	assert.Equal(t, "80.00", summary.TotalPayments.StringFixed(2))
	assert.Equal(t, "0.00", summary.TotalPendingDebt.StringFixed(2))
	assert.Equal(t, "10.00", summary.ClientCreditBalance.StringFixed(2))

	pending, err := f.svc.ListClientDebts(ctx, f.clientID, true)
	require.NoError(t, err)
	assert.Empty(t, pending)
	all, err := f.svc.ListClientDebts(ctx, f.clientID, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = f.svc.GetSummary(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPaymentService_RecordsMetrics(t *testing.T) {
	meter, reader := testutil.NewMeter(t)
	m, err := telemetry.NewFinanceMetrics(meter)
	require.NoError(t, err)
	f := newEngine(t, WithMetrics(m))
	ctx := context.Background()

	debt := f.debt(t, "50.00", nil)
	res := f.pay(t, "80.00")
	_, err = f.svc.CreatePayment(ctx, CreatePaymentRequest{ClientID: uuid.New(), Amount: testutil.Money("5"), Method: "card"})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.NoError(t, f.svc.DeleteDebt(ctx, debt.ID))
	require.NoError(t, f.svc.DeletePayment(ctx, res.Payment.ID))

	created, _ := testutil.MetricValue(t, reader, "clinic_payment_operations_total",
		telemetry.AttrOperation.String("create"), telemetry.AttrOutcome.String(telemetry.OutcomeOK),
		telemetry.AttrPaymentMethod.String("cash"))
	assert.Equal(t, 1.0, created)
	failed, _ := testutil.MetricValue(t, reader, "clinic_payment_operations_total",
		telemetry.AttrOutcome.String(telemetry.OutcomeError), telemetry.AttrPaymentMethod.String("card"))
	assert.Equal(t, 1.0, failed)
	deleted, _ := testutil.MetricValue(t, reader, "clinic_payment_operations_total",
		telemetry.AttrOperation.String("delete"), telemetry.AttrOutcome.String(telemetry.OutcomeOK))
	assert.Equal(t, 1.0, deleted)

	amount, _ := testutil.MetricValue(t, reader, "clinic_payment_amount_total")
	assert.InDelta(t, 80.0, amount, 1e-9)
	credited, _ := testutil.MetricValue(t, reader, "clinic_credit_issued_total")
	assert.InDelta(t, 30.0, credited, 1e-9)

	debtsCreated, _ := testutil.MetricValue(t, reader, "clinic_debt_operations_total",
		telemetry.AttrOperation.String("create"), telemetry.AttrDebtSource.String("manual"))
	assert.Equal(t, 1.0, debtsCreated)
	debtsDeleted, _ := testutil.MetricValue(t, reader, "clinic_debt_operations_total",
		telemetry.AttrOperation.String("delete"), telemetry.AttrOutcome.String(telemetry.OutcomeOK))
	assert.Equal(t, 1.0, debtsDeleted)
}
