// Package ratelimit implements per-client token-bucket rate limiting
// for the gateway's request path.
package ratelimit

import (
	"sync"
	"time"

	"github.com/prof-ramos/astro-gateway/internal/platform/observability"
)

// Config configures the Limiter.
type Config struct {
	// Enabled turns throttling on. A disabled limiter admits everything.
	Enabled bool

	// RequestsPerWindow is the bucket capacity per client.
	RequestsPerWindow int

	// Window is the interval over which the bucket fully refills.
	Window time.Duration

	// Retention is how long an idle bucket survives before the sweep
	// reclaims it.
	Retention time.Duration
}

// DefaultConfig returns conservative limiter defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		RequestsPerWindow: 60,
		Window:            time.Minute,
		Retention:         time.Hour,
	}
}

// Decision is the outcome of one admission check. Its metadata is
// attachable to the outward response whether admitted or rejected.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

// Limiter owns one token bucket per client identifier. Buckets are
// created lazily on first request and garbage-collected after the
// retention horizon to bound memory.
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	buckets map[string]*bucket
	logger  *observability.Logger
	stopCh  chan struct{}

	now func() time.Time // overridable in tests
}

// NewLimiter creates a Limiter and starts its idle-bucket sweep.
func NewLimiter(cfg Config, logger *observability.Logger) *Limiter {
	if cfg.RequestsPerWindow <= 0 {
		cfg.RequestsPerWindow = 60
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = time.Hour
	}

	l := &Limiter{
		cfg:     cfg,
		buckets: make(map[string]*bucket),
		logger:  logger,
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}

	if cfg.Enabled {
		go l.sweep()
		logger.Info("rate limiting enabled",
			"requests_per_window", cfg.RequestsPerWindow,
			"window", cfg.Window)
	} else {
		logger.Info("rate limiting disabled")
	}

	return l
}

// Allow runs one admission check for a client, consuming one token on
// admit. The returned Decision always carries limit, remaining and
// reset metadata; on rejection it also carries a retry-after hint.
func (l *Limiter) Allow(clientID string) Decision {
	now := l.now()

	if !l.cfg.Enabled {
		return Decision{
			Allowed:   true,
			Limit:     l.cfg.RequestsPerWindow,
			Remaining: l.cfg.RequestsPerWindow,
			Reset:     now.Add(l.cfg.Window),
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, exists := l.buckets[clientID]
	if !exists {
		b = newBucket(
			l.cfg.RequestsPerWindow,
			float64(l.cfg.RequestsPerWindow)/l.cfg.Window.Seconds(),
			now,
		)
		l.buckets[clientID] = b
	}

	allowed := b.consume(1, now)

	d := Decision{
		Allowed:   allowed,
		Limit:     l.cfg.RequestsPerWindow,
		Remaining: b.remaining(),
		Reset:     now.Add(l.cfg.Window),
	}

	if !allowed {
		// Time until one whole token is available.
		missing := 1.0 - b.tokens
		if missing < 0 {
			missing = 0
		}
		d.RetryAfter = time.Duration(missing / b.refillRate * float64(time.Second))
	}

	return d
}

// Size reports the number of live buckets.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Close stops the sweep goroutine.
func (l *Limiter) Close() {
	close(l.stopCh)
}

// sweep periodically removes buckets idle past the retention horizon.
func (l *Limiter) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := l.removeIdle()
			if removed > 0 {
				l.logger.Debug("reclaimed idle rate-limit buckets", "count", removed)
			}
		case <-l.stopCh:
			return
		}
	}
}

// removeIdle drops buckets whose last refill is older than retention.
// The map mutex is held for the whole pass, so no caller can observe a
// bucket after removal.
func (l *Limiter) removeIdle() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.cfg.Retention)
	removed := 0
	for id, b := range l.buckets {
		if b.lastRefill.Before(cutoff) {
			delete(l.buckets, id)
			removed++
		}
	}

	return removed
}
