package telemetry_test

import (
	"context"
	"testing"

	"github.com/dentalclinic/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func disabledConfig() telemetry.Config {
	return telemetry.Config{
		Enabled:           false,
		CollectorEndpoint: "localhost:4317",
		SamplingRatio:     1.0,
		ServiceName:       "dental-clinic-test",
	}
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := disabledConfig()

	tp, err := telemetry.NewTracerProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, tp)

	assert.False(t, tp.IsEnabled())
	assert.Equal(t, cfg.ServiceName, tp.GetConfig().ServiceName)
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestNewTracerProvider_Enabled(t *testing.T) {
	// Needs a reachable OTLP collector.
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	cfg := disabledConfig()
	cfg.Enabled = true
	cfg.Insecure = true

	tp, err := telemetry.NewTracerProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, tp.IsEnabled())

	_, span := tp.Tracer("test").Start(ctx, "appointment.create")
	span.End()

	_ = tp.ForceFlush(ctx)
	_ = tp.Shutdown(ctx)
}

func TestNewTracerProvider_SamplingRatios(t *testing.T) {
	ctx := context.Background()
	for _, ratio := range []float64{0, 0.5, 1, 2} {
		cfg := disabledConfig()
		cfg.SamplingRatio = ratio

		tp, err := telemetry.NewTracerProvider(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.NoError(t, tp.Shutdown(ctx))
	}
}

func TestTracerProvider_DisabledIsNoop(t *testing.T) {
	ctx := context.Background()
	tp, err := telemetry.NewTracerProvider(ctx, disabledConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	tracer := tp.Tracer("test-tracer")
	require.NotNil(t, tracer)
	_, span := tracer.Start(ctx, "quote.create")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, tp.ForceFlush(ctx))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.NoError(t, tp.Shutdown(cancelled))
}
