package event

import (
	"context"

	"github.com/dentalclinic/backend/internal/domain/scheduling"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// NewAppointmentStatusLogger returns a handler that records every appointment
// status change in the application log
func NewAppointmentStatusLogger(logger *zap.Logger) shared.EventHandler {
	return &shared.EventHandlerFunc{
		Types: []string{scheduling.EventTypeAppointmentStatusChanged},
		Fn: func(ctx context.Context, e shared.DomainEvent) error {
			changed, ok := e.(*scheduling.AppointmentStatusChangedEvent)
			if !ok {
				return nil
			}
			logger.Info("Appointment status changed",
				zap.String("appointment_id", changed.AppointmentID.String()),
				zap.String("client_id", changed.ClientID.String()),
				zap.String("status", changed.Status.String()),
				zap.Time("occurred_at", changed.OccurredAt()),
			)
			return nil
		},
	}
}
