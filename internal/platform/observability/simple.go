package observability

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SimpleCollector is the minimal in-process metrics strategy: counters
// and raw duration samples per (method, normalized path) key, with
// averages and percentiles derived on demand.
type SimpleCollector struct {
	mu        sync.Mutex
	counts    map[string]int64
	errors    map[string]int64
	durations map[string][]float64

	cacheHits     map[string]int64
	cacheMisses   map[string]int64
	calculations  map[string]int64
	calcDurations map[string][]float64

	active    atomic.Int64
	startTime time.Time

	now func() time.Time // overridable in tests
}

// NewSimpleCollector creates a SimpleCollector.
func NewSimpleCollector() *SimpleCollector {
	return &SimpleCollector{
		counts:        make(map[string]int64),
		errors:        make(map[string]int64),
		durations:     make(map[string][]float64),
		cacheHits:     make(map[string]int64),
		cacheMisses:   make(map[string]int64),
		calculations:  make(map[string]int64),
		calcDurations: make(map[string][]float64),
		startTime:     time.Now(),
		now:           time.Now,
	}
}

// RecordRequest records one completed request.
func (c *SimpleCollector) RecordRequest(method, path string, status int, duration time.Duration) {
	key := method + ":" + NormalizePath(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.counts[key]++
	c.durations[key] = append(c.durations[key], duration.Seconds())
	if status >= 400 {
		c.errors[key]++
	}
}

// StartRequest increments the in-flight request count.
func (c *SimpleCollector) StartRequest() {
	c.active.Add(1)
}

// EndRequest decrements the in-flight request count, never below zero.
func (c *SimpleCollector) EndRequest() {
	for {
		cur := c.active.Load()
		if cur == 0 {
			return
		}
		if c.active.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// RecordCacheHit counts a cache hit for a category.
func (c *SimpleCollector) RecordCacheHit(category string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheHits[category]++
}

// RecordCacheMiss counts a cache miss for a category.
func (c *SimpleCollector) RecordCacheMiss(category string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheMisses[category]++
}

// RecordCalculation counts and times one backend computation by kind.
func (c *SimpleCollector) RecordCalculation(kind string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calculations[kind]++
	c.calcDurations[kind] = append(c.calcDurations[kind], duration.Seconds())
}

// Snapshot computes the derived statistics from the accumulated samples.
func (c *SimpleCollector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		UptimeSeconds:   c.now().Sub(c.startTime).Seconds(),
		ActiveRequests:  c.active.Load(),
		TotalRequests:   make(map[string]int64, len(c.counts)),
		ErrorCounts:     make(map[string]int64, len(c.errors)),
		AverageDuration: make(map[string]float64, len(c.durations)),
		P95Duration:     make(map[string]float64, len(c.durations)),
	}

	for key, n := range c.counts {
		snap.TotalRequests[key] = n
	}
	for key, n := range c.errors {
		snap.ErrorCounts[key] = n
	}

	for key, samples := range c.durations {
		if len(samples) == 0 {
			continue
		}
		snap.AverageDuration[key], snap.P95Duration[key] = summarize(samples)
	}

	if len(c.calculations) > 0 {
		snap.Calculations = make(map[string]int64, len(c.calculations))
		snap.CalculationAverage = make(map[string]float64, len(c.calcDurations))
		snap.CalculationP95 = make(map[string]float64, len(c.calcDurations))

		for kind, n := range c.calculations {
			snap.Calculations[kind] = n
		}
		for kind, samples := range c.calcDurations {
			if len(samples) == 0 {
				continue
			}
			snap.CalculationAverage[kind], snap.CalculationP95[kind] = summarize(samples)
		}
	}

	return snap
}

// summarize derives the mean and 95th percentile of a sample set.
func summarize(samples []float64) (avg, p95 float64) {
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	var sum float64
	for _, d := range sorted {
		sum += d
	}

	idx := int(float64(len(sorted)) * 0.95)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	return sum / float64(len(sorted)), sorted[idx]
}

// Handler serves the JSON snapshot.
func (c *SimpleCollector) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(c.Snapshot())
	})
}

var _ Collector = (*SimpleCollector)(nil)
