package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when an instrument set is built without a meter
var ErrMeterNil = errors.New("meter cannot be nil")

// PoolMetrics exports database/sql pool statistics as observable instruments
// and counts transactions refused because no connection became free in time.
//
// Instruments:
//   - db_pool_connections{state=in_use|idle}
//   - db_pool_connections_max
//   - db_pool_wait_total
//   - db_pool_wait_duration_seconds
//   - db_pool_exhausted_total
type PoolMetrics struct {
	exhausted    metric.Int64Counter
	registration metric.Registration
}

// NewPoolMetrics registers the pool instruments on meter. stats is read on
// every collection cycle.
func NewPoolMetrics(meter metric.Meter, stats func() sql.DBStats) (*PoolMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	connections, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Pooled connections by state"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db_pool_connections gauge: %w", err)
	}
	maxOpen, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum open connections allowed"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db_pool_connections_max gauge: %w", err)
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Connections that had to be waited for"),
		metric.WithUnit("{wait}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db_pool_wait_total counter: %w", err)
	}
	waitDuration, err := meter.Float64ObservableCounter("db_pool_wait_duration_seconds",
		metric.WithDescription("Total time spent waiting for a connection"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db_pool_wait_duration_seconds counter: %w", err)
	}
	exhausted, err := meter.Int64Counter("db_pool_exhausted_total",
		metric.WithDescription("Transactions refused after the acquire timeout"),
		metric.WithUnit("{transaction}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db_pool_exhausted_total counter: %w", err)
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := stats()
		o.ObserveInt64(connections, int64(s.InUse), metric.WithAttributes(AttrPoolState.String("in_use")))
		o.ObserveInt64(connections, int64(s.Idle), metric.WithAttributes(AttrPoolState.String("idle")))
		o.ObserveInt64(maxOpen, int64(s.MaxOpenConnections))
		o.ObserveInt64(waits, s.WaitCount)
		o.ObserveFloat64(waitDuration, s.WaitDuration.Seconds())
		return nil
	}, connections, maxOpen, waits, waitDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to register pool callback: %w", err)
	}

	return &PoolMetrics{exhausted: exhausted, registration: reg}, nil
}

// RecordExhausted counts one transaction refused for lack of a connection
func (m *PoolMetrics) RecordExhausted(ctx context.Context) {
	if m == nil {
		return
	}
	m.exhausted.Add(ctx, 1)
}

// Unregister stops observing the pool
func (m *PoolMetrics) Unregister() error {
	if m == nil || m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}
