package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AppointmentFilter narrows appointment listings
type AppointmentFilter struct {
	DateFrom *time.Time
	DateTo   *time.Time
	Status   AppointmentStatus
	Search   string // matches client name or cedula
	ClientID *uuid.UUID
	Limit    int
	Offset   int
}

// AppointmentRepository defines persistence for appointments and their lines
type AppointmentRepository interface {
	// FindByID loads the appointment with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// FindAll lists appointments ordered by date and time, lines included
	FindAll(ctx context.Context, filter AppointmentFilter) ([]Appointment, error)
	Count(ctx context.Context, filter AppointmentFilter) (int64, error)
	// FindUpcoming lists pending appointments from the given instant onward
	FindUpcoming(ctx context.Context, from time.Time, limit int) ([]Appointment, error)
	FindByClient(ctx context.Context, clientID uuid.UUID) ([]Appointment, error)
	// ExistsPendingAt reports whether another pending appointment holds date+clock
	ExistsPendingAt(ctx context.Context, date time.Time, clock string, excludeID uuid.UUID) (bool, error)
	// FindPendingClocksOn returns the clocks taken by pending appointments on a date
	FindPendingClocksOn(ctx context.Context, date time.Time) ([]string, error)
	// Save upserts the appointment row without touching its lines
	Save(ctx context.Context, appointment *Appointment) error
	// ReplaceLines deletes the stored lines and inserts the given ones
	ReplaceLines(ctx context.Context, appointmentID uuid.UUID, lines []AppointmentLine) error
	// Delete removes the appointment and its lines
	Delete(ctx context.Context, id uuid.UUID) error
	// IDsByClient lists the ids of every appointment of a client
	IDsByClient(ctx context.Context, clientID uuid.UUID) ([]uuid.UUID, error)
}
