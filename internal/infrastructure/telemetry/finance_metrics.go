package telemetry

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// Operation outcomes
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// FinanceMetrics counts the payment engine's operations.
// A nil *FinanceMetrics records nothing.
//
// Instruments:
//   - clinic_payment_operations_total{operation, outcome, payment.method}
//   - clinic_payment_amount_total{payment.method}
//   - clinic_credit_issued_total
//   - clinic_debt_operations_total{operation, outcome, debt.source}
//   - clinic_credit_applied_total
type FinanceMetrics struct {
	paymentOps    metric.Int64Counter
	paymentAmount metric.Float64Counter
	creditIssued  metric.Float64Counter
	debtOps       metric.Int64Counter
	creditApplied metric.Float64Counter
}

// NewFinanceMetrics creates the finance instruments on meter
func NewFinanceMetrics(meter metric.Meter) (*FinanceMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	m := &FinanceMetrics{}
	var err error

	if m.paymentOps, err = meter.Int64Counter("clinic_payment_operations_total",
		metric.WithDescription("Payment registrations and deletions"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create clinic_payment_operations_total counter: %w", err)
	}
	if m.paymentAmount, err = meter.Float64Counter("clinic_payment_amount_total",
		metric.WithDescription("Money received through registered payments"),
		metric.WithUnit("{currency}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create clinic_payment_amount_total counter: %w", err)
	}
	if m.creditIssued, err = meter.Float64Counter("clinic_credit_issued_total",
		metric.WithDescription("Payment overflow routed to client credit"),
		metric.WithUnit("{currency}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create clinic_credit_issued_total counter: %w", err)
	}
	if m.debtOps, err = meter.Int64Counter("clinic_debt_operations_total",
		metric.WithDescription("Debts issued and deleted"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create clinic_debt_operations_total counter: %w", err)
	}
	if m.creditApplied, err = meter.Float64Counter("clinic_credit_applied_total",
		metric.WithDescription("Client credit consumed by newly issued debts"),
		metric.WithUnit("{currency}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create clinic_credit_applied_total counter: %w", err)
	}
	return m, nil
}

func outcomeOf(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// RecordPaymentCreated counts a payment registration. Amounts are only added
// when the registration succeeded.
func (m *FinanceMetrics) RecordPaymentCreated(ctx context.Context, method string, amount, credited decimal.Decimal, err error) {
	if m == nil {
		return
	}
	m.paymentOps.Add(ctx, 1, metric.WithAttributes(
		AttrOperation.String("create"),
		AttrOutcome.String(outcomeOf(err)),
		AttrPaymentMethod.String(method),
	))
	if err != nil {
		return
	}
	m.paymentAmount.Add(ctx, amount.InexactFloat64(), metric.WithAttributes(AttrPaymentMethod.String(method)))
	if credited.IsPositive() {
		m.creditIssued.Add(ctx, credited.InexactFloat64())
	}
}

// RecordPaymentDeleted counts a payment deletion
func (m *FinanceMetrics) RecordPaymentDeleted(ctx context.Context, method string, err error) {
	if m == nil {
		return
	}
	m.paymentOps.Add(ctx, 1, metric.WithAttributes(
		AttrOperation.String("delete"),
		AttrOutcome.String(outcomeOf(err)),
		AttrPaymentMethod.String(method),
	))
}

// RecordDebtCreated counts an issued debt and the credit it consumed
func (m *FinanceMetrics) RecordDebtCreated(ctx context.Context, source string, creditUsed decimal.Decimal, err error) {
	if m == nil {
		return
	}
	m.debtOps.Add(ctx, 1, debtAttrs("create", source, err))
	if err == nil && creditUsed.IsPositive() {
		m.creditApplied.Add(ctx, creditUsed.InexactFloat64())
	}
}

// RecordDebtsDeleted counts n deleted debts; a failed deletion counts once
func (m *FinanceMetrics) RecordDebtsDeleted(ctx context.Context, source string, n int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		n = 1
	}
	if n <= 0 {
		return
	}
	m.debtOps.Add(ctx, int64(n), debtAttrs("delete", source, err))
}

func debtAttrs(op, source string, err error) metric.AddOption {
	return metric.WithAttributes(
		AttrOperation.String(op),
		AttrOutcome.String(outcomeOf(err)),
		AttrDebtSource.String(source),
	)
}
