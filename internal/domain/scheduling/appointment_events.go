package scheduling

import (
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Event type constants for appointments
const (
	EventTypeAppointmentStatusChanged = "APPOINTMENT_STATUS_CHANGED"
	AggregateTypeAppointment          = "Appointment"
)

// AppointmentStatusChangedEvent is raised when an appointment moves to a new status
type AppointmentStatusChangedEvent struct {
	shared.BaseDomainEvent
	AppointmentID uuid.UUID         `json:"id"`
	ClientID      uuid.UUID         `json:"client_id"`
	Status        AppointmentStatus `json:"status"`
}

// NewAppointmentStatusChangedEvent creates the event from the appointment's current state
func NewAppointmentStatusChangedEvent(a *Appointment) *AppointmentStatusChangedEvent {
	return &AppointmentStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAppointmentStatusChanged, AggregateTypeAppointment, a.ID),
		AppointmentID:   a.ID,
		ClientID:        a.ClientID,
		Status:          a.Status,
	}
}
