package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SigNoz/pcparts-store/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// AppMetrics holds all application metrics
type AppMetrics struct {
	// HTTP Metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestsErrors  metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Database Metrics
	DBQueriesTotal  metric.Int64Counter
	DBQueryDuration metric.Float64Histogram

	// Business Metrics
	ComponentsViewed metric.Int64Counter
	InventoryLevel   metric.Int64Gauge
	SearchesTotal    metric.Int64Counter
	BuildsCreated    metric.Int64Counter
	BuildValueTotal  metric.Float64Counter
	CartMutations    metric.Int64Counter
	CartItemsCount   metric.Int64Gauge
	PriceLookups     metric.Int64Counter

	// Application Metrics
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// Service name for adding to all metrics
	serviceName string
}

// NewNoop returns metrics backed by a no-op meter, used when export is disabled and in tests
func NewNoop(serviceName string) *AppMetrics {
	m, err := NewAppMetrics(noop.NewMeterProvider().Meter(serviceName), serviceName)
	if err != nil {
		// the noop meter never fails to create instruments
		panic(err)
	}
	return m
}

// InitMetrics sets up the OTLP HTTP exporter and the global meter provider
func InitMetrics(ctx context.Context, cfg *config.Config, log *zap.Logger) (*AppMetrics, *sdkmetric.MeterProvider, error) {
	// explicit attributes take precedence over OTEL_RESOURCE_ATTRIBUTES
	envRes, err := resource.New(ctx, resource.WithFromEnv())
	if err != nil {
		envRes = resource.Empty()
	}

	explicitRes, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.OTELServiceName),
			semconv.ServiceVersion(cfg.OTELServiceVersion),
			attribute.String("deployment.environment", cfg.OTELDeploymentEnvironment),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create explicit resource: %w", err)
	}

	res, err := resource.Merge(envRes, explicitRes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to merge resources: %w", err)
	}

	// WithEndpoint expects host:port without a scheme
	exporterOpts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.OTELExporterOTLPEndpoint),
		otlpmetrichttp.WithURLPath("/v1/metrics"),
	}
	headers := parseHeaders(cfg.OTELExporterOTLPHeaders)
	if len(headers) > 0 {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithHeaders(headers))
	}
	if cfg.OTELExporterOTLPInsecure {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	log.Info("Metrics exporter configured",
		zap.String("endpoint", cfg.OTELExporterOTLPEndpoint),
		zap.Int("headers", len(headers)),
		zap.Bool("insecure", cfg.OTELExporterOTLPInsecure),
		zap.Duration("interval", 10*time.Second))

	reader := sdkmetric.NewPeriodicReader(exporter,
		sdkmetric.WithInterval(10*time.Second),
	)

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(meterProvider)

	appMetrics, err := NewAppMetrics(meterProvider.Meter(cfg.OTELServiceName), cfg.OTELServiceName)
	if err != nil {
		return nil, nil, err
	}
	return appMetrics, meterProvider, nil
}

// NewAppMetrics creates every instrument on the given meter
func NewAppMetrics(meter metric.Meter, serviceName string) (*AppMetrics, error) {
	// SigNoz default histogram buckets in milliseconds, expanded to 60s
	buckets := []float64{2, 4, 6, 8, 10, 50, 100, 200, 400, 800, 1000, 1400, 2000, 5000, 10000, 15000, 20000, 30000, 45000, 60000}

	m := &AppMetrics{serviceName: serviceName}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	if m.HTTPRequestsErrors, err = meter.Int64Counter(
		"http.server.request.error.count",
		metric.WithDescription("Total number of HTTP error requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http errors counter: %w", err)
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	if m.DBQueriesTotal, err = meter.Int64Counter(
		"db.client.queries.count",
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create db queries counter: %w", err)
	}

	if m.DBQueryDuration, err = meter.Float64Histogram(
		"db.client.queries.duration",
		metric.WithDescription("Database query duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create db duration histogram: %w", err)
	}

	if m.ComponentsViewed, err = meter.Int64Counter(
		"components_viewed_total",
		metric.WithDescription("Total number of component detail views"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create components viewed counter: %w", err)
	}

	if m.InventoryLevel, err = meter.Int64Gauge(
		"inventory_level",
		metric.WithDescription("Stock of the most recently viewed components"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create inventory gauge: %w", err)
	}

	if m.SearchesTotal, err = meter.Int64Counter(
		"searches_total",
		metric.WithDescription("Total number of catalog searches"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create searches counter: %w", err)
	}

	if m.BuildsCreated, err = meter.Int64Counter(
		"builds_created_total",
		metric.WithDescription("Total number of saved builds"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create builds counter: %w", err)
	}

	if m.BuildValueTotal, err = meter.Float64Counter(
		"build_value_total",
		metric.WithDescription("Summed price of saved builds"),
		metric.WithUnit("USD"),
	); err != nil {
		return nil, fmt.Errorf("failed to create build value counter: %w", err)
	}

	if m.CartMutations, err = meter.Int64Counter(
		"cart_mutations_total",
		metric.WithDescription("Total number of cart mutations"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cart mutations counter: %w", err)
	}

	if m.CartItemsCount, err = meter.Int64Gauge(
		"cart_items_count",
		metric.WithDescription("Current number of items in session carts"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cart items gauge: %w", err)
	}

	if m.PriceLookups, err = meter.Int64Counter(
		"price_lookups_total",
		metric.WithDescription("Total number of price comparison lookups"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create price lookups counter: %w", err)
	}

	if m.CacheHits, err = meter.Int64Counter(
		"cache_hits_total",
		metric.WithDescription("Total number of cache hits"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cache hits counter: %w", err)
	}

	if m.CacheMisses, err = meter.Int64Counter(
		"cache_misses_total",
		metric.WithDescription("Total number of cache misses"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cache misses counter: %w", err)
	}

	return m, nil
}

// WithServiceName adds service.name to attributes
func (m *AppMetrics) WithServiceName(attrs []attribute.KeyValue) []attribute.KeyValue {
	return append(attrs, attribute.String("service.name", m.serviceName))
}

// Attrs builds the metric option for attrs plus service.name
func (m *AppMetrics) Attrs(attrs ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(m.WithServiceName(attrs)...)
}

// RecordDBQuery records database query metrics including the SQL statement
func (m *AppMetrics) RecordDBQuery(ctx context.Context, system, operation, table, statement string, start time.Time, success bool) {
	duration := time.Since(start).Milliseconds()

	status := "success"
	if !success {
		status = "error"
	}

	attrs := m.Attrs(
		attribute.String("db.operation", operation),
		attribute.String("db.sql.table", table),
		attribute.String("db.statement", statement),
		attribute.String("db.system", system),
		attribute.String("status", status),
	)

	m.DBQueriesTotal.Add(ctx, 1, attrs)
	m.DBQueryDuration.Record(ctx, float64(duration), attrs)
}

// RecordCache records a hit or miss on the named cache
func (m *AppMetrics) RecordCache(ctx context.Context, cache string, hit bool) {
	attrs := m.Attrs(attribute.String("cache", cache))
	if hit {
		m.CacheHits.Add(ctx, 1, attrs)
		return
	}
	m.CacheMisses.Add(ctx, 1, attrs)
}

// parseHeaders parses header string in format "key1=value1,key2=value2"
func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	if headerStr == "" {
		return headers
	}

	pairs := strings.Split(headerStr, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return headers
}
