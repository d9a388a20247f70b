package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// NewMeter returns a meter backed by a manual reader so tests can collect on demand
func NewMeter(t testing.TB) (metric.Meter, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider.Meter("test"), reader
}

// MetricValue collects reader and sums the data points of the named instrument
// whose attributes include attrs. The boolean reports whether the instrument
// was exported at all.
func MetricValue(t testing.TB, reader *sdkmetric.ManualReader, name string, attrs ...attribute.KeyValue) (float64, bool) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			var total float64
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					if hasAttrs(dp.Attributes, attrs) {
						total += float64(dp.Value)
					}
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					if hasAttrs(dp.Attributes, attrs) {
						total += dp.Value
					}
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					if hasAttrs(dp.Attributes, attrs) {
						total += float64(dp.Value)
					}
				}
			case metricdata.Gauge[float64]:
				for _, dp := range data.DataPoints {
					if hasAttrs(dp.Attributes, attrs) {
						total += dp.Value
					}
				}
			default:
				t.Fatalf("metric %s has unsupported data type %T", name, m.Data)
			}
			return total, true
		}
	}
	return 0, false
}

func hasAttrs(set attribute.Set, want []attribute.KeyValue) bool {
	for _, kv := range want {
		v, ok := set.Value(kv.Key)
		if !ok || v.Emit() != kv.Value.Emit() {
			return false
		}
	}
	return true
}
