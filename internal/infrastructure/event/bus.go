// Package event provides the in-process event bus that fans domain events out
// to subscribers once the originating transaction has committed.
package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/dentalclinic/backend/internal/infrastructure/logger"
	"github.com/dentalclinic/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// SyncEventBus delivers every event to its handlers on the caller's goroutine.
// Handlers run in subscription order; a failing or panicking handler is logged
// and the remaining handlers still run.
type SyncEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	running  atomic.Bool
}

// NewSyncEventBus creates a new synchronous event bus
func NewSyncEventBus(logger *zap.Logger) *SyncEventBus {
	b := &SyncEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
	b.running.Store(true)
	return b
}

// Publish delivers events to all registered handlers. Handler failures never
// reach the publisher, so Publish only returns an error when the bus is stopped.
func (b *SyncEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if !b.running.Load() {
		return fmt.Errorf("event bus is stopped")
	}
	for _, event := range events {
		if event == nil {
			continue
		}
		for _, handler := range b.registry.GetHandlers(event.EventType()) {
			if err := b.dispatchToHandler(ctx, handler, event); err != nil {
				logger.Enrich(ctx, b.logger).Error("handler failed to process event",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.String("aggregate_id", event.AggregateID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers a handler for specific event types
func (b *SyncEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *SyncEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// Start enables delivery
func (b *SyncEventBus) Start(ctx context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started")
	return nil
}

// Stop disables delivery. Publishing afterwards returns an error.
func (b *SyncEventBus) Stop(ctx context.Context) error {
	b.running.Store(false)
	b.logger.Info("event bus stopped")
	return nil
}

// dispatchToHandler runs one handler, turning a panic into an error
func (b *SyncEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "event.dispatch",
		telemetry.WithAttribute(telemetry.SpanAttrEventType, event.EventType()),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			logger.Enrich(ctx, b.logger).Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
				zap.Stack("stacktrace"),
			)
			err = fmt.Errorf("handler panicked: %v", r)
		}
		telemetry.RecordError(span, err)
	}()

	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*SyncEventBus)(nil)
