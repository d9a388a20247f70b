package scheduling

import (
	"strings"
	"time"

	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AppointmentLine is one treatment booked on an appointment
type AppointmentLine struct {
	AppointmentID  uuid.UUID
	TreatmentID    uuid.UUID
	PriceAtBooking decimal.Decimal
	Quantity       int
}

// Subtotal returns price * quantity
func (l AppointmentLine) Subtotal() decimal.Decimal {
	return l.PriceAtBooking.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineInput is the caller-supplied part of a line before the price is captured
type LineInput struct {
	TreatmentID uuid.UUID
	Quantity    int
}

// Appointment is the aggregate root for a booked visit
type Appointment struct {
	shared.BaseAggregateRoot
	ClientID  uuid.UUID
	DentistID *uuid.UUID
	Date      time.Time // calendar date, UTC midnight
	Time      string    // "HH:MM"
	Status    AppointmentStatus
	Notes     string
	Lines     []AppointmentLine
}

// NewAppointment creates a pending appointment. Booking rules (working hours,
// future time, slot uniqueness) are checked by the caller before persisting.
func NewAppointment(clientID uuid.UUID, date time.Time, clock string) (*Appointment, error) {
	if clientID == uuid.Nil {
		return nil, shared.ErrValidationFailed.WithMessage("client is required")
	}
	normalized, err := NormalizeClock(clock)
	if err != nil {
		return nil, err
	}
	return &Appointment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ClientID:          clientID,
		Date:              shared.NormalizeDate(date),
		Time:              normalized,
		Status:            AppointmentStatusPending,
		Lines:             make([]AppointmentLine, 0),
	}, nil
}

// IsPending returns true while the appointment has not been completed or cancelled
func (a *Appointment) IsPending() bool {
	return a.Status == AppointmentStatusPending
}

// Reschedule moves the appointment to another date and time
func (a *Appointment) Reschedule(date time.Time, clock string) error {
	normalized, err := NormalizeClock(clock)
	if err != nil {
		return err
	}
	a.Date = shared.NormalizeDate(date)
	a.Time = normalized
	a.Touch()
	return nil
}

// SetNotes replaces the free-text notes
func (a *Appointment) SetNotes(notes string) {
	a.Notes = strings.TrimSpace(notes)
	a.Touch()
}

// AssignDentist sets or clears the dentist
func (a *Appointment) AssignDentist(dentistID *uuid.UUID) {
	if dentistID != nil && *dentistID == uuid.Nil {
		dentistID = nil
	}
	a.DentistID = dentistID
	a.Touch()
}

// ChangeClient moves the appointment to another client
func (a *Appointment) ChangeClient(clientID uuid.UUID) error {
	if clientID == uuid.Nil {
		return shared.ErrValidationFailed.WithMessage("client is required")
	}
	a.ClientID = clientID
	a.Touch()
	return nil
}

// SetLines replaces the line items. prices maps treatment ids to the current catalog price.
// Repeated treatments are merged into one line by summing quantities.
func (a *Appointment) SetLines(inputs []LineInput, prices map[uuid.UUID]decimal.Decimal) error {
	lines := make([]AppointmentLine, 0, len(inputs))
	index := make(map[uuid.UUID]int, len(inputs))
	for _, in := range inputs {
		if in.TreatmentID == uuid.Nil {
			return shared.ErrValidationFailed.WithMessage("treatment is required on every line")
		}
		if in.Quantity < 1 {
			return shared.ErrValidationFailed.WithMessage("line quantity must be at least 1")
		}
		price, ok := prices[in.TreatmentID]
		if !ok {
			return shared.ErrNotFound.WithMessagef("treatment %s not found", in.TreatmentID)
		}
		if i, seen := index[in.TreatmentID]; seen {
			lines[i].Quantity += in.Quantity
			continue
		}
		index[in.TreatmentID] = len(lines)
		lines = append(lines, AppointmentLine{
			AppointmentID:  a.ID,
			TreatmentID:    in.TreatmentID,
			PriceAtBooking: shared.RoundMoney(price),
			Quantity:       in.Quantity,
		})
	}
	a.Lines = lines
	a.Touch()
	return nil
}

// Total returns the sum of line subtotals
func (a *Appointment) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range a.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// TransitionTo changes the status following the transition table and records
// an AppointmentStatusChangedEvent. Setting the current status again is a no-op
// and returns false.
func (a *Appointment) TransitionTo(target AppointmentStatus) (bool, error) {
	if !target.IsValid() {
		return false, shared.ErrValidationFailed.WithMessagef("invalid appointment status %q", target)
	}
	if a.Status == target {
		return false, nil
	}
	if !a.Status.CanTransitionTo(target) {
		return false, shared.ErrInvalidState.WithMessagef("cannot change appointment from %s to %s", a.Status, target)
	}
	a.Status = target
	a.Touch()
	a.AddDomainEvent(NewAppointmentStatusChangedEvent(a))
	return true, nil
}
