// Package gateway ties the cache manager, rate limiter, metrics
// collector and worker pool together around the computation backend.
package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/prof-ramos/astro-gateway/internal/astro"
	"github.com/prof-ramos/astro-gateway/internal/platform/cache"
	"github.com/prof-ramos/astro-gateway/internal/platform/observability"
	"github.com/prof-ramos/astro-gateway/internal/platform/worker"
)

// Computation categories; each carries its own cache TTL because their
// result volatility differs.
const (
	CategorySubject  = "astro_subject"
	CategoryChart    = "natal_chart"
	CategoryTransits = "transits"
)

// Dispatcher wraps the computation backend behind cache-check, bounded
// worker execution, cache-store and metrics recording, in that order.
type Dispatcher struct {
	backend astro.Backend
	cache   *cache.Manager
	pool    *worker.Pool
	metrics observability.Collector
	tracer  *observability.TracerProvider
	logger  *observability.Logger
}

// DispatcherConfig collects the dispatcher's collaborators.
type DispatcherConfig struct {
	Backend astro.Backend
	Cache   *cache.Manager
	Pool    *worker.Pool
	Metrics observability.Collector
	Tracer  *observability.TracerProvider
	Logger  *observability.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		backend: cfg.Backend,
		cache:   cfg.Cache,
		pool:    cfg.Pool,
		metrics: cfg.Metrics,
		tracer:  cfg.Tracer,
		logger:  cfg.Logger,
	}
}

// CalculateSubject returns the chart data for one subject, from cache
// when a fresh entry exists, otherwise computed on the worker pool.
func (d *Dispatcher) CalculateSubject(ctx context.Context, req astro.SubjectRequest) (astro.SubjectResult, error) {
	if err := req.Validate(); err != nil {
		return astro.SubjectResult{}, err
	}

	return dispatch(ctx, d, CategorySubject, "subject", req, func(ctx context.Context) (astro.SubjectResult, error) {
		return d.backend.CalculateSubject(ctx, req)
	})
}

// RenderChart returns the rendered chart for one subject.
func (d *Dispatcher) RenderChart(ctx context.Context, req astro.ChartRequest) (astro.ChartResult, error) {
	if err := req.Validate(); err != nil {
		return astro.ChartResult{}, err
	}

	return dispatch(ctx, d, CategoryChart, "natal_chart", req, func(ctx context.Context) (astro.ChartResult, error) {
		return d.backend.RenderChart(ctx, req)
	})
}

// CalculateTransits returns the transits for one natal chart and date.
func (d *Dispatcher) CalculateTransits(ctx context.Context, req astro.TransitRequest) (astro.TransitResult, error) {
	if err := req.Validate(); err != nil {
		return astro.TransitResult{}, err
	}

	return dispatch(ctx, d, CategoryTransits, "transits", req, func(ctx context.Context) (astro.TransitResult, error) {
		return d.backend.CalculateTransits(ctx, req)
	})
}

// SubjectOutcome is one item's result in a batch calculation.
type SubjectOutcome struct {
	Result *astro.SubjectResult `json:"result,omitempty"`
	Err    error                `json:"-"`
}

// CalculateSubjects dispatches independent subject requests
// concurrently and returns when the last completes. Each item succeeds
// or fails on its own; one failure never cancels or corrupts siblings.
func (d *Dispatcher) CalculateSubjects(ctx context.Context, reqs []astro.SubjectRequest) []SubjectOutcome {
	outcomes := make([]SubjectOutcome, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req astro.SubjectRequest) {
			defer wg.Done()
			result, err := d.CalculateSubject(ctx, req)
			if err != nil {
				outcomes[i] = SubjectOutcome{Err: err}
				return
			}
			outcomes[i] = SubjectOutcome{Result: &result}
		}(i, req)
	}
	wg.Wait()

	return outcomes
}

// PoolStatus reports worker pool occupancy for health reporting.
func (d *Dispatcher) PoolStatus() worker.Status {
	return d.pool.Status()
}

// dispatch is the generic cached, metered execution path. There is no
// single-flight coalescing: two identical misses in flight both compute
// and both write the cache, last write wins.
func dispatch[T any](ctx context.Context, d *Dispatcher, category, kind string, req any, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	key := d.cache.GenerateKey(category, req)

	var cached T
	if d.cache.Get(ctx, key, &cached) {
		d.metrics.RecordCacheHit(category)
		return cached, nil
	}
	d.metrics.RecordCacheMiss(category)

	value, err := d.pool.Do(ctx, worker.Job{
		ID: key,
		Execute: func(workerCtx context.Context) (any, error) {
			computeCtx, span := d.tracer.Start(workerCtx, "compute."+kind)
			defer span.End()

			start := time.Now()
			result, err := fn(computeCtx)
			duration := time.Since(start)

			if err != nil {
				// Errors are timed and counted but never cached, so a
				// retry reaches the backend again.
				d.metrics.RecordCalculation(kind+"_error", duration)
				return nil, err
			}

			// Storing on the worker side means a result computed past
			// an abandoned caller's deadline is still cached.
			d.cache.Set(workerCtx, key, result, d.cache.TTL(category))
			d.metrics.RecordCalculation(kind, duration)
			return result, nil
		},
	})
	if err != nil {
		return zero, err
	}

	return value.(T), nil
}
