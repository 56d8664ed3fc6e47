package ratelimit

import "time"

// bucket holds the token-bucket state for one client. The caller owns
// synchronization; the Limiter mutex guards every access.
type bucket struct {
	capacity   int
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
}

func newBucket(capacity int, refillRate float64, now time.Time) *bucket {
	return &bucket{
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     float64(capacity), // start full
		lastRefill: now,
	}
}

// refill adds tokens proportional to elapsed time, capped at capacity.
// Tokens only grow here and only shrink in consume, so the
// [0, capacity] invariant holds across any interleaving.
func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	if elapsed < 0 {
		elapsed = 0
	}

	b.tokens += elapsed.Seconds() * b.refillRate
	if b.tokens > float64(b.capacity) {
		b.tokens = float64(b.capacity)
	}

	b.lastRefill = now
}

// consume refills and tries to take cost tokens.
func (b *bucket) consume(cost int, now time.Time) bool {
	b.refill(now)

	if b.tokens >= float64(cost) {
		b.tokens -= float64(cost)
		return true
	}

	return false
}

// remaining reports the whole tokens left, floored and never negative.
func (b *bucket) remaining() int {
	if b.tokens < 0 {
		return 0
	}
	return int(b.tokens)
}
