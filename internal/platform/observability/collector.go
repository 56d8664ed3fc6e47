package observability

import (
	"net/http"
	"strings"
	"time"
)

// Collector accumulates request, cache and calculation metrics.
//
// Two strategies implement it: SimpleCollector keeps everything
// in-process and serves a JSON snapshot; PromCollector records into
// OpenTelemetry instruments scraped through a Prometheus handler.
// The strategy is chosen once at startup and never changes.
type Collector interface {
	// RecordRequest records one completed request.
	RecordRequest(method, path string, status int, duration time.Duration)

	// StartRequest and EndRequest track the in-flight request count.
	StartRequest()
	EndRequest()

	// RecordCacheHit and RecordCacheMiss count cache outcomes per category.
	RecordCacheHit(category string)
	RecordCacheMiss(category string)

	// RecordCalculation records one backend computation by kind.
	RecordCalculation(kind string, duration time.Duration)

	// Snapshot returns the current derived statistics.
	Snapshot() Snapshot

	// Handler returns the HTTP handler for the pull endpoint.
	Handler() http.Handler
}

// Snapshot is the JSON form of the collected metrics.
type Snapshot struct {
	UptimeSeconds   float64            `json:"uptime_seconds"`
	ActiveRequests  int64              `json:"active_requests"`
	TotalRequests   map[string]int64   `json:"total_requests"`
	ErrorCounts     map[string]int64   `json:"error_counts"`
	AverageDuration map[string]float64 `json:"average_duration_seconds"`
	P95Duration     map[string]float64 `json:"p95_duration_seconds"`

	Calculations       map[string]int64   `json:"calculations,omitempty"`
	CalculationAverage map[string]float64 `json:"calculation_average_seconds,omitempty"`
	CalculationP95     map[string]float64 `json:"calculation_p95_seconds,omitempty"`
}

// NewCollector selects the metrics strategy once at startup. An
// unavailable Prometheus exporter degrades to the minimal strategy
// with a warning instead of failing the process.
func NewCollector(strategy, serviceName string, logger *Logger) Collector {
	if strategy == "prometheus" {
		c, err := NewPromCollector(serviceName)
		if err == nil {
			logger.Info("using Prometheus metrics")
			return c
		}
		logger.Warn("Prometheus unavailable, using simple metrics", "error", err)
	}

	logger.Info("using simple metrics")
	return NewSimpleCollector()
}

// NormalizePath collapses dynamic path segments so path-parameterized
// endpoints aggregate under one metric series. Query strings are
// stripped; numeric and UUID-shaped segments become "{id}".
func NormalizePath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	parts := strings.Split(path, "/")
	for i, part := range parts {
		if isDynamicSegment(part) {
			parts[i] = "{id}"
		}
	}

	return strings.Join(parts, "/")
}

func isDynamicSegment(s string) bool {
	if s == "" {
		return false
	}
	if len(s) == 36 && strings.Count(s, "-") == 4 {
		return true // UUID shape
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
