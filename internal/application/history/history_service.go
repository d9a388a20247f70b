// Package history serves the per-client treatment history and medical records.
package history

import (
	"context"
	"errors"
	"strings"
	"time"

	apppartner "github.com/dentalclinic/backend/internal/application/partner"
	appquote "github.com/dentalclinic/backend/internal/application/quote"
	appscheduling "github.com/dentalclinic/backend/internal/application/scheduling"
	"github.com/dentalclinic/backend/internal/application/transaction"
	"github.com/dentalclinic/backend/internal/domain/history"
	"github.com/dentalclinic/backend/internal/domain/scheduling"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/dentalclinic/backend/internal/infrastructure/logger"
	"github.com/dentalclinic/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HistoryService handles treatment history and medical record operations
type HistoryService struct {
	scope    transaction.Scope
	logger   *zap.Logger
	location *time.Location
	now      func() time.Time
}

// Option configures a HistoryService
type Option func(*HistoryService)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *HistoryService) {
		s.now = now
	}
}

// WithLocation sets the clinic's time zone used to date records made today
func WithLocation(loc *time.Location) Option {
	return func(s *HistoryService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(scope transaction.Scope, logger *zap.Logger, opts ...Option) *HistoryService {
	s := &HistoryService{scope: scope, logger: logger, location: time.UTC, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HistoryService) today() time.Time {
	return shared.NormalizeDate(s.now().In(s.location))
}

// GetUnifiedForClient merges history rows with the lines of the client's
// quotes and non-cancelled appointments
func (s *HistoryService) GetUnifiedForClient(ctx context.Context, clientID uuid.UUID) ([]history.UnifiedItem, error) {
	repos := s.scope.Repositories()
	if _, err := repos.Clients().FindByID(ctx, clientID); err != nil {
		return nil, err
	}
	return s.unified(ctx, repos, clientID)
}

func (s *HistoryService) unified(ctx context.Context, repos transaction.Repositories, clientID uuid.UUID) ([]history.UnifiedItem, error) {
	rows, err := repos.ClientTreatments().FindByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	quotes, err := repos.Quotes().FindByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	appointments, err := repos.Appointments().FindByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	var lines []history.SourceLine
	for i := range quotes {
		q := &quotes[i]
		for _, l := range q.Lines {
			lines = append(lines, history.SourceLine{
				TreatmentID: l.TreatmentID,
				Price:       l.PriceAtQuote,
				Quantity:    l.Quantity,
				QuoteID:     &q.ID,
				Date:        q.QuoteDate,
			})
		}
	}
	for i := range appointments {
		a := &appointments[i]
		if a.Status == scheduling.AppointmentStatusCancelled {
			continue
		}
		for _, l := range a.Lines {
			lines = append(lines, history.SourceLine{
				TreatmentID:   l.TreatmentID,
				Price:         l.PriceAtBooking,
				Quantity:      l.Quantity,
				AppointmentID: &a.ID,
				Date:          a.Date,
			})
		}
	}

	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, r := range rows {
		if !seen[r.TreatmentID] {
			seen[r.TreatmentID] = true
			ids = append(ids, r.TreatmentID)
		}
	}
	for _, l := range lines {
		if !seen[l.TreatmentID] {
			seen[l.TreatmentID] = true
			ids = append(ids, l.TreatmentID)
		}
	}
	treatments, err := repos.Treatments().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	catalog := make(map[uuid.UUID]history.TreatmentInfo, len(treatments))
	for _, t := range treatments {
		catalog[t.ID] = history.TreatmentInfo{Name: t.Name, Price: t.Price}
	}
	return history.MergeUnified(rows, lines, catalog), nil
}

// AddOrAdvance records delivered units for (client, treatment, appointment, quote).
// An existing row advances by quantity, clamped to its total. A new row takes its
// total from the matching appointment or quote line, or from quantity.
func (s *HistoryService) AddOrAdvance(ctx context.Context, req AddOrAdvanceRequest) (*ClientTreatmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "history", "add_or_advance")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrClientID, req.ClientID.String(),
		telemetry.SpanAttrTreatmentID, req.TreatmentID.String(),
	)

	if req.AppointmentID != nil && req.QuoteID != nil {
		return nil, shared.ErrValidationFailed.WithMessage("a history row belongs to an appointment or a quote, not both")
	}
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return nil, shared.ErrValidationFailed.WithMessage("quantity must be at least 1")
	}

	var row *history.ClientTreatment
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		if _, err := repos.Clients().FindByID(ctx, req.ClientID); err != nil {
			return err
		}
		if _, err := repos.Treatments().FindByID(ctx, req.TreatmentID); err != nil {
			return err
		}

		existing, err := repos.ClientTreatments().FindByKey(ctx, req.ClientID, req.TreatmentID, req.AppointmentID, req.QuoteID)
		switch {
		case err == nil:
			if err := existing.Advance(quantity, req.Notes, req.TreatmentDate); err != nil {
				return err
			}
			row = existing
			return repos.ClientTreatments().Save(ctx, row)
		case !errors.Is(err, shared.ErrNotFound):
			return err
		}

		total, err := s.sourceQuantity(ctx, repos, req)
		if err != nil {
			return err
		}
		if total == 0 {
			total = quantity
		}
		date := s.today()
		if req.TreatmentDate != nil {
			date = *req.TreatmentDate
		}
		row, err = history.NewClientTreatment(req.ClientID, req.TreatmentID, total, quantity, date)
		if err != nil {
			return err
		}
		row.Notes = strings.TrimSpace(req.Notes)
		switch {
		case req.AppointmentID != nil:
			row.ForAppointment(*req.AppointmentID)
		case req.QuoteID != nil:
			row.ForQuote(*req.QuoteID)
		}
		return repos.ClientTreatments().Save(ctx, row)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.Enrich(ctx, s.logger).Info("Treatment progress recorded",
		zap.String("record_id", row.ID.String()),
		zap.String("client_id", row.ClientID.String()),
		zap.Int("completed", row.CompletedQuantity),
		zap.Int("total", row.TotalQuantity),
	)
	resp := ToClientTreatmentResponse(row)
	return &resp, nil
}

// sourceQuantity returns the prescribed quantity of the treatment on the
// referenced appointment or quote, or 0 when it is not prescribed there
func (s *HistoryService) sourceQuantity(ctx context.Context, repos transaction.Repositories, req AddOrAdvanceRequest) (int, error) {
	total := 0
	switch {
	case req.AppointmentID != nil:
		a, err := repos.Appointments().FindByID(ctx, *req.AppointmentID)
		if err != nil {
			return 0, err
		}
		if a.ClientID != req.ClientID {
			return 0, shared.ErrValidationFailed.WithMessage("appointment belongs to another client")
		}
		for _, l := range a.Lines {
			if l.TreatmentID == req.TreatmentID {
				total += l.Quantity
			}
		}
	case req.QuoteID != nil:
		q, err := repos.Quotes().FindByID(ctx, *req.QuoteID)
		if err != nil {
			return 0, err
		}
		if q.ClientID != req.ClientID {
			return 0, shared.ErrValidationFailed.WithMessage("quote belongs to another client")
		}
		for _, l := range q.Lines {
			if l.TreatmentID == req.TreatmentID {
				total += l.Quantity
			}
		}
	}
	return total, nil
}

// DeleteRecord removes one history row
func (s *HistoryService) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		if _, err := repos.ClientTreatments().FindByID(ctx, id); err != nil {
			return err
		}
		return repos.ClientTreatments().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	logger.Enrich(ctx, s.logger).Info("History record deleted", zap.String("record_id", id.String()))
	return nil
}

// DeleteAllForAppointment removes every history row tagged with the appointment.
// It joins the transaction carried by ctx.
func (s *HistoryService) DeleteAllForAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	return s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		return repos.ClientTreatments().DeleteByAppointment(ctx, appointmentID)
	})
}

// GetClientFullHistory bundles client data, medical records, unified treatments,
// appointments and quotes
func (s *HistoryService) GetClientFullHistory(ctx context.Context, clientID uuid.UUID) (*FullHistory, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "history", "full_history")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrClientID, clientID)

	repos := s.scope.Repositories()
	client, err := repos.Clients().FindByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	records, err := repos.MedicalRecords().FindByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	unified, err := s.unified(ctx, repos, clientID)
	if err != nil {
		return nil, err
	}
	appointments, err := repos.Appointments().FindByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	quotes, err := repos.Quotes().FindByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	return &FullHistory{
		Client:            apppartner.ToClientResponse(client),
		MedicalRecords:    ToMedicalRecordResponses(records),
		UnifiedTreatments: unified,
		Appointments:      appscheduling.ToAppointmentResponses(appointments),
		Quotes:            appquote.ToQuoteResponses(quotes),
	}, nil
}

// CreateMedicalRecord adds a clinical note for a client
func (s *HistoryService) CreateMedicalRecord(ctx context.Context, req MedicalRecordRequest) (*MedicalRecordResponse, error) {
	date := s.today()
	if req.RecordDate != nil {
		date = *req.RecordDate
	}
	record, err := history.NewMedicalRecord(req.ClientID, date)
	if err != nil {
		return nil, err
	}
	record.Update(date, req.Diagnosis, req.TreatmentNotes, req.Observations)

	err = s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		if _, err := repos.Clients().FindByID(ctx, req.ClientID); err != nil {
			return err
		}
		return repos.MedicalRecords().Save(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	logger.Enrich(ctx, s.logger).Info("Medical record created",
		zap.String("record_id", record.ID.String()),
		zap.String("client_id", record.ClientID.String()),
	)
	resp := ToMedicalRecordResponse(record)
	return &resp, nil
}

// UpdateMedicalRecord replaces the contents of a record. The owning client cannot change.
func (s *HistoryService) UpdateMedicalRecord(ctx context.Context, id uuid.UUID, req MedicalRecordRequest) (*MedicalRecordResponse, error) {
	var record *history.MedicalRecord
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		var err error
		record, err = repos.MedicalRecords().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if req.ClientID != uuid.Nil && req.ClientID != record.ClientID {
			return shared.ErrValidationFailed.WithMessage("a medical record cannot move to another client")
		}
		date := record.RecordDate
		if req.RecordDate != nil {
			date = *req.RecordDate
		}
		record.Update(date, req.Diagnosis, req.TreatmentNotes, req.Observations)
		return repos.MedicalRecords().Save(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	resp := ToMedicalRecordResponse(record)
	return &resp, nil
}

// DeleteMedicalRecord removes a record
func (s *HistoryService) DeleteMedicalRecord(ctx context.Context, id uuid.UUID) error {
	return s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		if _, err := repos.MedicalRecords().FindByID(ctx, id); err != nil {
			return err
		}
		return repos.MedicalRecords().Delete(ctx, id)
	})
}

// GetMedicalRecord retrieves a record by ID
func (s *HistoryService) GetMedicalRecord(ctx context.Context, id uuid.UUID) (*MedicalRecordResponse, error) {
	record, err := s.scope.Repositories().MedicalRecords().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToMedicalRecordResponse(record)
	return &resp, nil
}

// ListMedicalRecords returns a client's records, newest first
func (s *HistoryService) ListMedicalRecords(ctx context.Context, clientID uuid.UUID) ([]MedicalRecordResponse, error) {
	repos := s.scope.Repositories()
	if _, err := repos.Clients().FindByID(ctx, clientID); err != nil {
		return nil, err
	}
	records, err := repos.MedicalRecords().FindByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return ToMedicalRecordResponses(records), nil
}
