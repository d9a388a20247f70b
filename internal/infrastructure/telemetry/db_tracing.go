package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include query variables in spans, development only
	SlowQueryThresh time.Duration
	DBSystem        string
}

// DefaultDBTracingConfig returns default configuration for database tracing.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:         false,
		LogFullSQL:      false,
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// DBTracingPlugin installs otelgorm plus slow query detection on a GORM instance.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin with the given configuration.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{
		config: cfg,
		logger: logger,
	}
}

// Register installs the otelgorm plugin and the timing callbacks.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if err := NewDBTracingCallback(p.config.SlowQueryThresh).RegisterCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"

// DBTracingCallback marks slow and failed statements on the active span.
type DBTracingCallback struct {
	slowQueryThresh time.Duration
}

// NewDBTracingCallback creates a new callback for tracking query timing.
func NewDBTracingCallback(slowQueryThresh time.Duration) *DBTracingCallback {
	return &DBTracingCallback{
		slowQueryThresh: slowQueryThresh,
	}
}

// BeforeCallback sets the query start time in context.
func (c *DBTracingCallback) BeforeCallback(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

// AfterCallback checks for slow queries and adds attributes to the span.
func (c *DBTracingCallback) AfterCallback(db *gorm.DB) {
	if db.Statement.Context == nil {
		return
	}

	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}

	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if startTime, ok := db.Statement.Context.Value(queryStartTimeKey).(time.Time); ok {
		elapsed := time.Since(startTime)
		if elapsed > c.slowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", c.slowQueryThresh.Milliseconds()),
			))
		}
	}
}

// RegisterCallbacks registers the before and after callbacks on every GORM processor.
func (c *DBTracingCallback) RegisterCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	steps := []struct {
		name string
		reg  func() error
	}{
		{"create", func() error {
			if err := cb.Create().Before("gorm:create").Register("otel_timing:before_create", c.BeforeCallback); err != nil {
				return err
			}
			return cb.Create().After("gorm:create").Register("otel_timing:after_create", c.AfterCallback)
		}},
		{"query", func() error {
			if err := cb.Query().Before("gorm:query").Register("otel_timing:before_query", c.BeforeCallback); err != nil {
				return err
			}
			return cb.Query().After("gorm:query").Register("otel_timing:after_query", c.AfterCallback)
		}},
		{"update", func() error {
			if err := cb.Update().Before("gorm:update").Register("otel_timing:before_update", c.BeforeCallback); err != nil {
				return err
			}
			return cb.Update().After("gorm:update").Register("otel_timing:after_update", c.AfterCallback)
		}},
		{"delete", func() error {
			if err := cb.Delete().Before("gorm:delete").Register("otel_timing:before_delete", c.BeforeCallback); err != nil {
				return err
			}
			return cb.Delete().After("gorm:delete").Register("otel_timing:after_delete", c.AfterCallback)
		}},
		{"row", func() error {
			if err := cb.Row().Before("gorm:row").Register("otel_timing:before_row", c.BeforeCallback); err != nil {
				return err
			}
			return cb.Row().After("gorm:row").Register("otel_timing:after_row", c.AfterCallback)
		}},
		{"raw", func() error {
			if err := cb.Raw().Before("gorm:raw").Register("otel_timing:before_raw", c.BeforeCallback); err != nil {
				return err
			}
			return cb.Raw().After("gorm:raw").Register("otel_timing:after_raw", c.AfterCallback)
		}},
	}
	for _, step := range steps {
		if err := step.reg(); err != nil {
			return err
		}
	}
	return nil
}
