package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// PromCollector is the exported metrics strategy: the same event stream
// as SimpleCollector recorded into OpenTelemetry instruments and
// exposed through a Prometheus pull handler.
type PromCollector struct {
	meter metric.Meter

	requestsTotal   metric.Int64Counter
	requestDuration metric.Float64Histogram
	activeRequests  metric.Int64UpDownCounter

	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter

	calculationsTotal   metric.Int64Counter
	calculationDuration metric.Float64Histogram

	active    atomic.Int64
	startTime time.Time
}

// NewPromCollector creates the exported metrics strategy.
func NewPromCollector(serviceName string) (*PromCollector, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String("1.0.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	c := &PromCollector{
		meter:     provider.Meter(serviceName),
		startTime: time.Now(),
	}

	if err := c.initInstruments(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return c, nil
}

func (c *PromCollector) initInstruments() error {
	var err error

	c.requestsTotal, err = c.meter.Int64Counter(
		"api.requests",
		metric.WithDescription("Total number of API requests"),
	)
	if err != nil {
		return err
	}

	c.requestDuration, err = c.meter.Float64Histogram(
		"api.request.duration",
		metric.WithDescription("API request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	c.activeRequests, err = c.meter.Int64UpDownCounter(
		"api.requests.active",
		metric.WithDescription("Number of in-flight API requests"),
	)
	if err != nil {
		return err
	}

	c.cacheHits, err = c.meter.Int64Counter(
		"api.cache.hits",
		metric.WithDescription("Total cache hits"),
	)
	if err != nil {
		return err
	}

	c.cacheMisses, err = c.meter.Int64Counter(
		"api.cache.misses",
		metric.WithDescription("Total cache misses"),
	)
	if err != nil {
		return err
	}

	c.calculationsTotal, err = c.meter.Int64Counter(
		"api.calculations",
		metric.WithDescription("Total astrological calculations"),
	)
	if err != nil {
		return err
	}

	c.calculationDuration, err = c.meter.Float64Histogram(
		"api.calculation.duration",
		metric.WithDescription("Astrological calculation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	return nil
}

// RecordRequest records one completed request.
func (c *PromCollector) RecordRequest(method, path string, status int, duration time.Duration) {
	ctx := context.Background()
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("endpoint", NormalizePath(path)),
		attribute.String("status_code", strconv.Itoa(status)),
	}

	c.requestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	c.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs[:2]...))
}

// StartRequest increments the in-flight request count.
func (c *PromCollector) StartRequest() {
	c.active.Add(1)
	c.activeRequests.Add(context.Background(), 1)
}

// EndRequest decrements the in-flight request count, never below zero.
func (c *PromCollector) EndRequest() {
	for {
		cur := c.active.Load()
		if cur == 0 {
			return
		}
		if c.active.CompareAndSwap(cur, cur-1) {
			c.activeRequests.Add(context.Background(), -1)
			return
		}
	}
}

// RecordCacheHit counts a cache hit for a category.
func (c *PromCollector) RecordCacheHit(category string) {
	c.cacheHits.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("cache_type", category),
	))
}

// RecordCacheMiss counts a cache miss for a category.
func (c *PromCollector) RecordCacheMiss(category string) {
	c.cacheMisses.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("cache_type", category),
	))
}

// RecordCalculation records one backend computation by kind.
func (c *PromCollector) RecordCalculation(kind string, duration time.Duration) {
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("calculation_type", kind))

	c.calculationsTotal.Add(ctx, 1, attrs)
	c.calculationDuration.Record(ctx, duration.Seconds(), attrs)
}

// Snapshot returns uptime and in-flight count. Per-endpoint series live
// in the Prometheus registry and are read through Handler.
func (c *PromCollector) Snapshot() Snapshot {
	return Snapshot{
		UptimeSeconds:  time.Since(c.startTime).Seconds(),
		ActiveRequests: c.active.Load(),
	}
}

// Handler returns the Prometheus exposition handler. The OpenTelemetry
// Prometheus exporter registers with the default registry.
func (c *PromCollector) Handler() http.Handler {
	return promhttp.Handler()
}

var _ Collector = (*PromCollector)(nil)
