// Package scheduling books, reschedules and closes clinic appointments.
package scheduling

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dentalclinic/backend/internal/application/transaction"
	"github.com/dentalclinic/backend/internal/domain/history"
	"github.com/dentalclinic/backend/internal/domain/scheduling"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/dentalclinic/backend/internal/infrastructure/logger"
	"github.com/dentalclinic/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DebtRemover deletes the debts tagged with an appointment, returning consumed
// credit to the client. It joins the transaction carried by ctx.
type DebtRemover interface {
	DeleteDebtsForAppointment(ctx context.Context, appointmentID uuid.UUID) (int, error)
}

// AppointmentService handles appointment-related business operations
type AppointmentService struct {
	scope     transaction.Scope
	debts     DebtRemover
	publisher shared.EventPublisher
	logger    *zap.Logger
	hours     scheduling.WorkingHours
	location  *time.Location
	now       func() time.Time
}

// Option configures an AppointmentService
type Option func(*AppointmentService)

// WithWorkingHours sets the bookable schedule
func WithWorkingHours(hours scheduling.WorkingHours) Option {
	return func(s *AppointmentService) {
		s.hours = hours
	}
}

// WithLocation sets the clinic's time zone
func WithLocation(loc *time.Location) Option {
	return func(s *AppointmentService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *AppointmentService) {
		s.now = now
	}
}

// NewAppointmentService creates a new AppointmentService. publisher may be nil.
func NewAppointmentService(
	scope transaction.Scope,
	debts DebtRemover,
	publisher shared.EventPublisher,
	logger *zap.Logger,
	opts ...Option,
) *AppointmentService {
	s := &AppointmentService{
		scope:     scope,
		debts:     debts,
		publisher: publisher,
		logger:    logger,
		hours:     scheduling.DefaultWorkingHours(),
		location:  time.Local,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AppointmentService) clinicNow() time.Time {
	return s.now().In(s.location)
}

// Create books a pending appointment, captures current treatment prices on its
// lines and opens a history row per line
func (s *AppointmentService) Create(ctx context.Context, req CreateAppointmentRequest) (*AppointmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "appointment", "create")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrClientID, req.ClientID)

	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	clock, err := s.hours.ValidateBooking(date, req.Time, s.clinicNow())
	if err != nil {
		return nil, err
	}
	appointment, err := scheduling.NewAppointment(req.ClientID, date, clock)
	if err != nil {
		return nil, err
	}
	appointment.SetNotes(req.Notes)

	err = s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		if _, err := repos.Clients().FindByID(ctx, req.ClientID); err != nil {
			return err
		}
		if err := s.assignDentist(ctx, repos, appointment, req.DentistID); err != nil {
			return err
		}
		if err := s.ensureSlotFree(ctx, repos, appointment); err != nil {
			return err
		}
		if err := s.setLines(ctx, repos, appointment, toLineInputs(req.Lines)); err != nil {
			return err
		}
		if err := s.saveAppointment(ctx, repos, appointment); err != nil {
			return err
		}
		if err := repos.Appointments().ReplaceLines(ctx, appointment.ID, appointment.Lines); err != nil {
			return err
		}
		rows, err := historyRowsFor(appointment)
		if err != nil {
			return err
		}
		return repos.ClientTreatments().CreateBatch(ctx, rows)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.Enrich(ctx, s.logger).Info("Appointment booked",
		zap.String("appointment_id", appointment.ID.String()),
		zap.String("date", appointment.Date.Format(DateLayout)),
		zap.String("time", appointment.Time),
	)
	resp := ToAppointmentResponse(appointment)
	return &resp, nil
}

// Update applies a partial update. Moving a pending appointment re-runs the
// booking checks. New lines replace the old ones together with the history
// rows and debts tagged with the appointment; no new debt is issued.
func (s *AppointmentService) Update(ctx context.Context, id uuid.UUID, req UpdateAppointmentRequest) (*AppointmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "appointment", "update")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrAppointmentID, id)

	var appointment *scheduling.Appointment
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		var err error
		appointment, err = repos.Appointments().FindByID(ctx, id)
		if err != nil {
			return err
		}

		if req.Date != nil || req.Time != nil {
			if err := s.reschedule(ctx, repos, appointment, req.Date, req.Time); err != nil {
				return err
			}
		}
		if req.Notes != nil {
			appointment.SetNotes(*req.Notes)
		}
		if req.ClearDentist {
			appointment.AssignDentist(nil)
		} else if req.DentistID != nil {
			if err := s.assignDentist(ctx, repos, appointment, req.DentistID); err != nil {
				return err
			}
		}

		rebuild := false
		if req.ClientID != nil && *req.ClientID != appointment.ClientID {
			if _, err := repos.Clients().FindByID(ctx, *req.ClientID); err != nil {
				return err
			}
			if err := appointment.ChangeClient(*req.ClientID); err != nil {
				return err
			}
			rebuild = true
		}
		if req.Lines != nil {
			if !appointment.IsPending() {
				return shared.ErrInvalidState.WithMessagef("cannot change treatments of a %s appointment", appointment.Status)
			}
			if err := s.setLines(ctx, repos, appointment, toLineInputs(*req.Lines)); err != nil {
				return err
			}
			rebuild = true
		}

		if err := s.saveAppointment(ctx, repos, appointment); err != nil {
			return err
		}
		if !rebuild {
			return nil
		}
		if err := repos.Appointments().ReplaceLines(ctx, appointment.ID, appointment.Lines); err != nil {
			return err
		}
		if _, err := s.debts.DeleteDebtsForAppointment(ctx, appointment.ID); err != nil {
			return err
		}
		if err := repos.ClientTreatments().DeleteByAppointment(ctx, appointment.ID); err != nil {
			return err
		}
		rows, err := historyRowsFor(appointment)
		if err != nil {
			return err
		}
		return repos.ClientTreatments().CreateBatch(ctx, rows)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	resp := ToAppointmentResponse(appointment)
	return &resp, nil
}

// SetStatus moves the appointment along its lifecycle. Completing advances the
// history rows of every line; cancelling removes the tagged debts and history.
// APPOINTMENT_STATUS_CHANGED is published once the transaction commits.
func (s *AppointmentService) SetStatus(ctx context.Context, id uuid.UUID, status string) (*AppointmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "appointment", "set_status")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAppointmentID, id.String(),
		telemetry.SpanAttrStatus, status,
	)

	target := scheduling.AppointmentStatus(strings.ToLower(strings.TrimSpace(status)))
	var appointment *scheduling.Appointment
	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		var err error
		appointment, err = repos.Appointments().FindByID(ctx, id)
		if err != nil {
			return err
		}
		changed, err := appointment.TransitionTo(target)
		if err != nil || !changed {
			return err
		}

		switch target {
		case scheduling.AppointmentStatusCompleted:
			if err := s.advanceHistory(ctx, repos, appointment); err != nil {
				return err
			}
		case scheduling.AppointmentStatusCancelled:
			if _, err := s.debts.DeleteDebtsForAppointment(ctx, appointment.ID); err != nil {
				return err
			}
			if err := repos.ClientTreatments().DeleteByAppointment(ctx, appointment.ID); err != nil {
				return err
			}
		}
		if err := repos.Appointments().Save(ctx, appointment); err != nil {
			return err
		}

		events := appointment.GetDomainEvents()
		appointment.ClearDomainEvents()
		if s.publisher != nil && len(events) > 0 {
			s.scope.AfterCommit(ctx, func(ctx context.Context) {
				if err := s.publisher.Publish(ctx, events...); err != nil {
					logger.Enrich(ctx, s.logger).Warn("Failed to publish appointment events",
						zap.String("appointment_id", id.String()),
						zap.Error(err),
					)
				}
			})
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.Enrich(ctx, s.logger).Info("Appointment status set",
		zap.String("appointment_id", id.String()),
		zap.String("status", appointment.Status.String()),
	)
	resp := ToAppointmentResponse(appointment)
	return &resp, nil
}

// Delete removes the appointment with its lines, tagged history rows and tagged debts
func (s *AppointmentService) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "appointment", "delete")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrAppointmentID, id)

	err := s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
		if _, err := repos.Appointments().FindByID(ctx, id); err != nil {
			return err
		}
		if err := repos.ClientTreatments().DeleteByAppointment(ctx, id); err != nil {
			return err
		}
		if _, err := s.debts.DeleteDebtsForAppointment(ctx, id); err != nil {
			return err
		}
		return repos.Appointments().Delete(ctx, id)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	logger.Enrich(ctx, s.logger).Info("Appointment deleted", zap.String("appointment_id", id.String()))
	return nil
}

// GetByID retrieves an appointment with its lines
func (s *AppointmentService) GetByID(ctx context.Context, id uuid.UUID) (*AppointmentResponse, error) {
	appointment, err := s.scope.Repositories().Appointments().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToAppointmentResponse(appointment)
	return &resp, nil
}

// Search matches appointments by client name or cedula
func (s *AppointmentService) Search(ctx context.Context, term string) ([]AppointmentResponse, error) {
	return s.List(ctx, ListFilter{Search: term})
}

// List returns appointments ordered by date and time
func (s *AppointmentService) List(ctx context.Context, filter ListFilter) ([]AppointmentResponse, error) {
	f, err := filter.toDomain()
	if err != nil {
		return nil, err
	}
	appointments, err := s.scope.Repositories().Appointments().FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	return ToAppointmentResponses(appointments), nil
}

// Count counts appointments matching the filter, ignoring paging
func (s *AppointmentService) Count(ctx context.Context, filter ListFilter) (int64, error) {
	f, err := filter.toDomain()
	if err != nil {
		return 0, err
	}
	return s.scope.Repositories().Appointments().Count(ctx, f)
}

// GetUpcoming lists the next pending appointments from now on
func (s *AppointmentService) GetUpcoming(ctx context.Context, limit int) ([]AppointmentResponse, error) {
	if limit <= 0 {
		limit = 10
	}
	appointments, err := s.scope.Repositories().Appointments().FindUpcoming(ctx, s.clinicNow(), limit)
	if err != nil {
		return nil, err
	}
	return ToAppointmentResponses(appointments), nil
}

// GetAvailableSlots lists every slot of a day. A slot is unavailable when a
// pending appointment holds it or when it has already passed.
func (s *AppointmentService) GetAvailableSlots(ctx context.Context, day string) ([]SlotResponse, error) {
	date, err := parseDate(day)
	if err != nil {
		return nil, err
	}
	taken, err := s.scope.Repositories().Appointments().FindPendingClocksOn(ctx, date)
	if err != nil {
		return nil, err
	}
	busy := make(map[string]bool, len(taken))
	for _, clock := range taken {
		if normalized, err := scheduling.NormalizeClock(clock); err == nil {
			busy[normalized] = true
		}
	}

	now := s.clinicNow()
	slots := s.hours.Slots()
	out := make([]SlotResponse, len(slots))
	for i, clock := range slots {
		minute, _ := scheduling.ParseClock(clock)
		future := scheduling.At(date, minute, s.location).After(now)
		out[i] = SlotResponse{Time: clock, Available: future && !busy[clock]}
	}
	return out, nil
}

func (s *AppointmentService) reschedule(ctx context.Context, repos transaction.Repositories,
	appointment *scheduling.Appointment, day, clock *string) error {
	date := appointment.Date
	if day != nil {
		parsed, err := parseDate(*day)
		if err != nil {
			return err
		}
		date = parsed
	}
	at := appointment.Time
	if clock != nil {
		at = *clock
	}

	if appointment.IsPending() {
		validated, err := s.hours.ValidateBooking(date, at, s.clinicNow())
		if err != nil {
			return err
		}
		at = validated
	}
	if err := appointment.Reschedule(date, at); err != nil {
		return err
	}
	if appointment.IsPending() {
		return s.ensureSlotFree(ctx, repos, appointment)
	}
	return nil
}

func (s *AppointmentService) ensureSlotFree(ctx context.Context, repos transaction.Repositories, appointment *scheduling.Appointment) error {
	taken, err := repos.Appointments().ExistsPendingAt(ctx, appointment.Date, appointment.Time, appointment.ID)
	if err != nil {
		return err
	}
	if taken {
		return shared.ErrConflictingBooking.WithMessagef("another appointment is already booked on %s at %s",
			appointment.Date.Format(DateLayout), appointment.Time)
	}
	return nil
}

// saveAppointment maps a lost race on the pending-slot unique index to a booking conflict
func (s *AppointmentService) saveAppointment(ctx context.Context, repos transaction.Repositories, appointment *scheduling.Appointment) error {
	err := repos.Appointments().Save(ctx, appointment)
	if errors.Is(err, shared.ErrAlreadyExists) {
		return shared.ErrConflictingBooking.WithMessagef("another appointment is already booked on %s at %s",
			appointment.Date.Format(DateLayout), appointment.Time)
	}
	return err
}

func (s *AppointmentService) assignDentist(ctx context.Context, repos transaction.Repositories,
	appointment *scheduling.Appointment, dentistID *uuid.UUID) error {
	if dentistID == nil || *dentistID == uuid.Nil {
		return nil
	}
	dentist, err := repos.Dentists().FindByID(ctx, *dentistID)
	if err != nil {
		return err
	}
	if !dentist.IsActive {
		return shared.ErrValidationFailed.WithMessagef("dentist %s is not active", dentist.Name)
	}
	appointment.AssignDentist(dentistID)
	return nil
}

// setLines captures the current catalog price of every requested treatment
func (s *AppointmentService) setLines(ctx context.Context, repos transaction.Repositories,
	appointment *scheduling.Appointment, inputs []scheduling.LineInput) error {
	ids := make([]uuid.UUID, 0, len(inputs))
	for _, in := range inputs {
		ids = append(ids, in.TreatmentID)
	}
	treatments, err := repos.Treatments().FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	prices := make(map[uuid.UUID]decimal.Decimal, len(treatments))
	for _, t := range treatments {
		if !t.IsActive {
			return shared.ErrValidationFailed.WithMessagef("treatment %s is not active", t.Name)
		}
		prices[t.ID] = t.Price
	}
	return appointment.SetLines(inputs, prices)
}

// advanceHistory marks each line's quantity as delivered on the matching history row
func (s *AppointmentService) advanceHistory(ctx context.Context, repos transaction.Repositories, appointment *scheduling.Appointment) error {
	appointmentID := appointment.ID
	for _, line := range appointment.Lines {
		row, err := repos.ClientTreatments().FindByKey(ctx, appointment.ClientID, line.TreatmentID, &appointmentID, nil)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			row, err = history.NewClientTreatment(appointment.ClientID, line.TreatmentID, line.Quantity, line.Quantity, appointment.Date)
			if err != nil {
				return err
			}
			row.ForAppointment(appointmentID)
		case err != nil:
			return err
		default:
			date := appointment.Date
			if err := row.Advance(line.Quantity, "", &date); err != nil {
				return err
			}
		}
		if err := repos.ClientTreatments().Save(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// historyRowsFor opens an undelivered history row per line
func historyRowsFor(appointment *scheduling.Appointment) ([]*history.ClientTreatment, error) {
	rows := make([]*history.ClientTreatment, 0, len(appointment.Lines))
	for _, line := range appointment.Lines {
		row, err := history.NewClientTreatment(appointment.ClientID, line.TreatmentID, line.Quantity, 0, appointment.Date)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row.ForAppointment(appointment.ID))
	}
	return rows, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, shared.ErrValidationFailed.WithMessagef("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

func (f ListFilter) toDomain() (scheduling.AppointmentFilter, error) {
	out := scheduling.AppointmentFilter{
		Status:   scheduling.AppointmentStatus(f.Status),
		Search:   strings.TrimSpace(f.Search),
		ClientID: f.ClientID,
		Limit:    f.Limit,
		Offset:   f.Offset,
	}
	if f.Status != "" && !out.Status.IsValid() {
		return out, shared.ErrValidationFailed.WithMessagef("invalid appointment status %q", f.Status)
	}
	if f.DateFrom != "" {
		d, err := parseDate(f.DateFrom)
		if err != nil {
			return out, err
		}
		out.DateFrom = &d
	}
	if f.DateTo != "" {
		d, err := parseDate(f.DateTo)
		if err != nil {
			return out, err
		}
		out.DateTo = &d
	}
	return out, nil
}
