package scheduling

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// appointmentTransitions lists the allowed targets for each status.
// Completed and cancelled are terminal.
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending:   {AppointmentStatusCompleted, AppointmentStatusCancelled},
	AppointmentStatusCompleted: {},
	AppointmentStatusCancelled: {},
}

// IsValid checks if the status is a known AppointmentStatus
func (s AppointmentStatus) IsValid() bool {
	_, ok := appointmentTransitions[s]
	return ok
}

// String returns the string representation of AppointmentStatus
func (s AppointmentStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transitions are allowed
func (s AppointmentStatus) IsTerminal() bool {
	return len(appointmentTransitions[s]) == 0
}

// CanTransitionTo reports whether the transition s -> target is allowed
func (s AppointmentStatus) CanTransitionTo(target AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// AllAppointmentStatuses returns all valid statuses
func AllAppointmentStatuses() []AppointmentStatus {
	return []AppointmentStatus{
		AppointmentStatusPending,
		AppointmentStatusCompleted,
		AppointmentStatusCancelled,
	}
}
