// Package quote issues budgets to clients and keeps their debts in step.
package quote

import (
	"context"
	"fmt"
	"strings"
	"time"

	appfinance "github.com/dentalclinic/backend/internal/application/finance"
	"github.com/dentalclinic/backend/internal/application/transaction"
	"github.com/dentalclinic/backend/internal/domain/history"
	"github.com/dentalclinic/backend/internal/domain/printing"
	"github.com/dentalclinic/backend/internal/domain/quote"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/dentalclinic/backend/internal/infrastructure/logger"
	"github.com/dentalclinic/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DebtLedger issues and removes the debts tagged with a quote. Both calls join
// the transaction carried by ctx.
type DebtLedger interface {
	CreateDebt(ctx context.Context, req appfinance.CreateDebtRequest) (*appfinance.DebtResponse, error)
	DeleteDebtsForQuote(ctx context.Context, quoteID uuid.UUID) (int, error)
}

// BudgetRenderer turns a budget document into PDF bytes
type BudgetRenderer interface {
	RenderBudget(ctx context.Context, doc *printing.BudgetDocument) ([]byte, error)
}

// Archiver keeps a copy of generated documents
type Archiver interface {
	Archive(ctx context.Context, key string, data []byte, contentType string) error
}

// QuoteService handles quote-related business operations
type QuoteService struct {
	scope    transaction.Scope
	debts    DebtLedger
	logger   *zap.Logger
	renderer BudgetRenderer
	archiver Archiver
	clinic   printing.ClinicHeader
	location *time.Location
	now      func() time.Time
}

// Option configures a QuoteService
type Option func(*QuoteService)

// WithRenderer enables PDF budgets
func WithRenderer(r BudgetRenderer) Option {
	return func(s *QuoteService) {
		s.renderer = r
	}
}

// WithArchiver stores a copy of every rendered budget
func WithArchiver(a Archiver) Option {
	return func(s *QuoteService) {
		s.archiver = a
	}
}

// WithClinicHeader sets the practice details printed on budgets
func WithClinicHeader(h printing.ClinicHeader) Option {
	return func(s *QuoteService) {
		s.clinic = h
	}
}

// WithLocation sets the clinic's time zone used to date new quotes
func WithLocation(loc *time.Location) Option {
	return func(s *QuoteService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *QuoteService) {
		s.now = now
	}
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(scope transaction.Scope, debts DebtLedger, logger *zap.Logger, opts ...Option) *QuoteService {
	s := &QuoteService{
		scope:    scope,
		debts:    debts,
		logger:   logger,
		location: time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create issues a pending quote, opens a history row per line and, when the
// total is positive, a debt for it in the same transaction
func (s *QuoteService) Create(ctx context.Context, req CreateQuoteRequest) (*QuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "create")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrClientID, req.ClientID)

	q, err := quote.NewQuote(req.ClientID, s.now().In(s.location))
	if err != nil {
		return nil, err
	}
	q.UserID = req.UserID

	err = s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		if _, err := repos.Clients().FindByID(ctx, req.ClientID); err != nil {
			return err
		}
		inputs := toLineInputs(req.Lines)
		prices, err := s.catalogPrices(ctx, repos, inputs, nil)
		if err != nil {
			return err
		}
		if err := q.Revise(req.ClientID, inputs, prices, req.Discount, req.ExpirationDate, req.Notes); err != nil {
			return err
		}
		if err := repos.Quotes().Save(ctx, q); err != nil {
			return err
		}
		if err := repos.Quotes().ReplaceLines(ctx, q.ID, q.Lines); err != nil {
			return err
		}
		rows, err := historyRowsFor(q)
		if err != nil {
			return err
		}
		if err := repos.ClientTreatments().CreateBatch(ctx, rows); err != nil {
			return err
		}
		return s.issueDebt(ctx, q)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.Enrich(ctx, s.logger).Info("Quote created",
		zap.String("quote_id", q.ID.String()),
		zap.String("client_id", q.ClientID.String()),
		zap.String("total", q.TotalAmount.StringFixed(2)),
	)
	resp := ToQuoteResponse(q)
	return &resp, nil
}

// Update replaces the quote's content. Tagged history rows are rebuilt and the
// tagged debts are reversed and re-issued for the new total.
func (s *QuoteService) Update(ctx context.Context, id uuid.UUID, req UpdateQuoteRequest) (*QuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "update")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrQuoteID, id)

	var q *quote.Quote
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		var err error
		q, err = repos.Quotes().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if req.ClientID != q.ClientID {
			if _, err := repos.Clients().FindByID(ctx, req.ClientID); err != nil {
				return err
			}
		}

		alreadyQuoted := make(map[uuid.UUID]bool, len(q.Lines))
		for _, l := range q.Lines {
			alreadyQuoted[l.TreatmentID] = true
		}
		inputs := toLineInputs(req.Lines)
		prices, err := s.catalogPrices(ctx, repos, inputs, alreadyQuoted)
		if err != nil {
			return err
		}
		if err := q.Revise(req.ClientID, inputs, prices, req.Discount, req.ExpirationDate, req.Notes); err != nil {
			return err
		}
		if req.Status != "" {
			if err := q.ChangeStatus(quote.QuoteStatus(req.Status)); err != nil {
				return err
			}
		}

		if err := repos.Quotes().Save(ctx, q); err != nil {
			return err
		}
		if err := repos.Quotes().ReplaceLines(ctx, q.ID, q.Lines); err != nil {
			return err
		}
		if err := repos.ClientTreatments().DeleteByQuote(ctx, q.ID); err != nil {
			return err
		}
		rows, err := historyRowsFor(q)
		if err != nil {
			return err
		}
		if err := repos.ClientTreatments().CreateBatch(ctx, rows); err != nil {
			return err
		}
		if _, err := s.debts.DeleteDebtsForQuote(ctx, q.ID); err != nil {
			return err
		}
		return s.issueDebt(ctx, q)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.Enrich(ctx, s.logger).Info("Quote updated",
		zap.String("quote_id", q.ID.String()),
		zap.String("total", q.TotalAmount.StringFixed(2)),
	)
	resp := ToQuoteResponse(q)
	return &resp, nil
}

// SetStatus changes the status without any financial effect
func (s *QuoteService) SetStatus(ctx context.Context, id uuid.UUID, status string) (*QuoteResponse, error) {
	var q *quote.Quote
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		var err error
		q, err = repos.Quotes().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := q.ChangeStatus(quote.QuoteStatus(strings.ToLower(strings.TrimSpace(status)))); err != nil {
			return err
		}
		return repos.Quotes().Save(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	resp := ToQuoteResponse(q)
	return &resp, nil
}

// ExpireOverdue moves pending quotes past their expiration date to expired.
// Debts issued for them are left untouched.
func (s *QuoteService) ExpireOverdue(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "expire_overdue")
	defer span.End()

	today := s.now().In(s.location)
	var expired []uuid.UUID
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		ids, err := repos.Quotes().ExpirePending(ctx, today)
		expired = ids
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}

	if len(expired) > 0 {
		logger.Enrich(ctx, s.logger).Info("Quotes expired",
			zap.Int("count", len(expired)),
			zap.String("as_of", today.Format("2006-01-02")),
		)
	}
	return len(expired), nil
}

// Delete removes the quote with its lines, tagged history rows and tagged debts
func (s *QuoteService) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "delete")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrQuoteID, id)

	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		if _, err := repos.Quotes().FindByID(ctx, id); err != nil {
			return err
		}
		if _, err := s.debts.DeleteDebtsForQuote(ctx, id); err != nil {
			return err
		}
		if err := repos.ClientTreatments().DeleteByQuote(ctx, id); err != nil {
			return err
		}
		return repos.Quotes().Delete(ctx, id)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	logger.Enrich(ctx, s.logger).Info("Quote deleted", zap.String("quote_id", id.String()))
	return nil
}

// GetByID retrieves a quote with its lines
func (s *QuoteService) GetByID(ctx context.Context, id uuid.UUID) (*QuoteResponse, error) {
	q, err := s.scope.Repositories().Quotes().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToQuoteResponse(q)
	return &resp, nil
}

// List returns quotes, newest first
func (s *QuoteService) List(ctx context.Context, filter ListFilter) ([]QuoteResponse, error) {
	f, err := filter.toDomain()
	if err != nil {
		return nil, err
	}
	quotes, err := s.scope.Repositories().Quotes().FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	return ToQuoteResponses(quotes), nil
}

// Count counts quotes matching the filter, ignoring paging
func (s *QuoteService) Count(ctx context.Context, filter ListFilter) (int64, error) {
	f, err := filter.toDomain()
	if err != nil {
		return 0, err
	}
	return s.scope.Repositories().Quotes().Count(ctx, f)
}

// GetTreatments returns the quoted lines with treatment names
func (s *QuoteService) GetTreatments(ctx context.Context, id uuid.UUID) ([]LineResponse, error) {
	repos := s.scope.Repositories()
	q, err := repos.Quotes().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	names, err := treatmentNames(ctx, repos, q.Lines)
	if err != nil {
		return nil, err
	}
	return toLineResponses(q.Lines, names), nil
}

// GetClientInfoForPDF returns the client data printed on the budget
func (s *QuoteService) GetClientInfoForPDF(ctx context.Context, id uuid.UUID) (*ClientInfo, error) {
	repos := s.scope.Repositories()
	q, err := repos.Quotes().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	client, err := repos.Clients().FindByID(ctx, q.ClientID)
	if err != nil {
		return nil, err
	}
	return &ClientInfo{
		ClientID:  client.ID,
		Name:      client.Name,
		Cedula:    client.Cedula,
		QuoteDate: q.QuoteDate,
	}, nil
}

// BudgetDocument assembles everything printed on the quote's budget
func (s *QuoteService) BudgetDocument(ctx context.Context, id uuid.UUID) (*printing.BudgetDocument, error) {
	repos := s.scope.Repositories()
	q, err := repos.Quotes().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	client, err := repos.Clients().FindByID(ctx, q.ClientID)
	if err != nil {
		return nil, err
	}
	names, err := treatmentNames(ctx, repos, q.Lines)
	if err != nil {
		return nil, err
	}

	lines := make([]printing.BudgetLine, len(q.Lines))
	for i, l := range q.Lines {
		lines[i] = printing.BudgetLine{
			Number:    i + 1,
			Treatment: names[l.TreatmentID],
			Quantity:  l.Quantity,
			UnitPrice: l.PriceAtQuote,
			Subtotal:  l.Subtotal(),
		}
	}
	return &printing.BudgetDocument{
		QuoteID:        q.ID,
		Clinic:         s.clinic,
		ClientName:     client.Name,
		ClientCedula:   client.Cedula,
		Date:           q.QuoteDate,
		ExpirationDate: q.ExpirationDate,
		Lines:          lines,
		Gross:          q.Gross(),
		Discount:       q.Discount,
		Total:          q.TotalAmount,
		Notes:          q.Notes,
	}, nil
}

// RenderPDF renders the budget and returns the PDF bytes with a suggested file name.
// A configured archiver receives a copy; archive failures are logged only.
func (s *QuoteService) RenderPDF(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "render_pdf")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrQuoteID, id)

	if s.renderer == nil {
		return nil, "", shared.ErrInvalidState.WithMessage("budget printing is disabled")
	}
	doc, err := s.BudgetDocument(ctx, id)
	if err != nil {
		return nil, "", err
	}
	pdf, err := s.renderer.RenderBudget(ctx, doc)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, "", fmt.Errorf("render budget %s: %w", id, err)
	}

	name := doc.FileName()
	if s.archiver != nil {
		key := "budgets/" + doc.ClientCedula + "/" + name
		if err := s.archiver.Archive(ctx, key, pdf, "application/pdf"); err != nil {
			logger.Enrich(ctx, s.logger).Warn("Failed to archive budget",
				zap.String("quote_id", id.String()),
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
	return pdf, name, nil
}

func (s *QuoteService) issueDebt(ctx context.Context, q *quote.Quote) error {
	if !q.TotalAmount.IsPositive() {
		return nil
	}
	_, err := s.debts.CreateDebt(ctx, appfinance.CreateDebtRequest{
		ClientID:    q.ClientID,
		Amount:      q.TotalAmount,
		Description: "Presupuesto del " + q.QuoteDate.Format("02/01/2006"),
		QuoteID:     &q.ID,
	})
	return err
}

// catalogPrices loads every requested treatment. Inactive treatments are only
// accepted when listed in keep.
func (s *QuoteService) catalogPrices(ctx context.Context, repos transaction.Repositories,
	inputs []quote.LineInput, keep map[uuid.UUID]bool) (map[uuid.UUID]decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	for _, in := range inputs {
		ids = append(ids, in.TreatmentID)
	}
	treatments, err := repos.Treatments().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	prices := make(map[uuid.UUID]decimal.Decimal, len(treatments))
	for _, t := range treatments {
		if !t.IsActive && !keep[t.ID] {
			return nil, shared.ErrValidationFailed.WithMessagef("treatment %s is not active", t.Name)
		}
		prices[t.ID] = t.Price
	}
	for _, id := range ids {
		if _, ok := prices[id]; !ok {
			return nil, shared.ErrNotFound.WithMessagef("treatment %s not found", id)
		}
	}
	return prices, nil
}

func treatmentNames(ctx context.Context, repos transaction.Repositories, lines []quote.QuoteLine) (map[uuid.UUID]string, error) {
	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		ids[i] = l.TreatmentID
	}
	treatments, err := repos.Treatments().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(treatments))
	for _, t := range treatments {
		names[t.ID] = t.Name
	}
	return names, nil
}

// historyRowsFor opens an undelivered history row per quoted line
func historyRowsFor(q *quote.Quote) ([]*history.ClientTreatment, error) {
	rows := make([]*history.ClientTreatment, 0, len(q.Lines))
	for _, line := range q.Lines {
		row, err := history.NewClientTreatment(q.ClientID, line.TreatmentID, line.Quantity, 0, q.QuoteDate)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row.ForQuote(q.ID))
	}
	return rows, nil
}

func (f ListFilter) toDomain() (quote.Filter, error) {
	out := quote.Filter{
		ClientID: f.ClientID,
		Status:   quote.QuoteStatus(f.Status),
		DateFrom: f.DateFrom,
		DateTo:   f.DateTo,
		Search:   strings.TrimSpace(f.Search),
		Limit:    f.Limit,
		Offset:   f.Offset,
	}
	if f.Status != "" && !out.Status.IsValid() {
		return out, shared.ErrValidationFailed.WithMessagef("invalid quote status %q", f.Status)
	}
	return out, nil
}
