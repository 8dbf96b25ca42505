package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected an int64 sum, got %T", data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRecordCacheAndDBQuery(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewAppMetrics(provider.Meter("test"), "pcparts-store")
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordCache(ctx, "local", true)
	m.RecordCache(ctx, "local", false)
	m.RecordCache(ctx, "redis", false)
	m.RecordDBQuery(ctx, "sqlite", "SELECT", "components", "SELECT 1", time.Now(), true)

	data := collect(t, reader)
	assert.EqualValues(t, 1, sumOf(t, data["cache_hits_total"]))
	assert.EqualValues(t, 2, sumOf(t, data["cache_misses_total"]))
	assert.EqualValues(t, 1, sumOf(t, data["db.client.queries.count"]))

	sum := data["db.client.queries.count"].(metricdata.Sum[int64])
	service, ok := sum.DataPoints[0].Attributes.Value(attribute.Key("service.name"))
	require.True(t, ok)
	assert.Equal(t, "pcparts-store", service.AsString())
}

func TestNewNoop(t *testing.T) {
	m := NewNoop("test")
	assert.NotPanics(t, func() {
		m.RecordCache(context.Background(), "local", true)
		m.SearchesTotal.Add(context.Background(), 1, m.Attrs())
	})
}

func TestParseHeaders(t *testing.T) {
	assert.Empty(t, parseHeaders(""))
	assert.Equal(t,
		map[string]string{"signoz-ingestion-key": "abc", "x": "y=z"},
		parseHeaders(" signoz-ingestion-key = abc ,x=y=z,broken"))
}
