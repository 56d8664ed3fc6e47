package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/prof-ramos/astro-gateway/internal/platform/observability"
)

// Config configures the cache Manager.
type Config struct {
	// Enabled turns memoization on. A disabled manager reads every key
	// as a miss and drops every write, so all requests recompute.
	// Only NewManager consults it; an explicitly provided backend is
	// always live.
	Enabled bool

	// RedisAddress selects the Redis backend when non-empty.
	RedisAddress  string
	RedisPassword string
	RedisDB       int

	// MaxEntries bounds the in-memory backend.
	MaxEntries int

	// DefaultTTL applies when a category has no explicit TTL.
	DefaultTTL time.Duration

	// CategoryTTL maps computation categories to their TTL.
	CategoryTTL map[string]time.Duration
}

// Manager wraps a cache backend with deterministic key derivation,
// per-category TTL policy and fault tolerance. Backend failures are
// logged and degrade to a miss (read) or no-op (write); they are never
// surfaced to callers.
//
// Concurrent identical misses are not coalesced: both callers compute
// and both write, last write wins.
type Manager struct {
	backend Cache
	cfg     Config
	logger  *observability.Logger
}

// NewManager creates a Manager, selecting the backend once at startup.
// A configured but unreachable Redis falls back to the in-memory
// backend with a warning; it never fails the process.
func NewManager(cfg Config, logger *observability.Logger) *Manager {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}

	m := &Manager{cfg: cfg, logger: logger}

	if !cfg.Enabled {
		logger.Info("caching disabled")
		m.backend = noopCache{}
		return m
	}

	if cfg.RedisAddress != "" {
		backend, err := NewRedisCache(cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB)
		if err == nil {
			logger.Info("using Redis cache backend", "address", cfg.RedisAddress)
			m.backend = backend
			return m
		}
		logger.Warn("Redis unavailable, falling back to in-memory cache", "error", err)
	}

	m.backend = NewMemoryCache(cfg.MaxEntries)
	logger.Info("using in-memory cache backend", "max_entries", cfg.MaxEntries)
	return m
}

// NewManagerWithBackend creates a Manager over an explicit backend.
func NewManagerWithBackend(backend Cache, cfg Config, logger *observability.Logger) *Manager {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}
	return &Manager{backend: backend, cfg: cfg, logger: logger}
}

// GenerateKey derives a deterministic cache key from a category and the
// call arguments. The same arguments always yield the same key; map
// ordering does not matter. Format: <category>:<16 hex of sha256>.
func (m *Manager) GenerateKey(category string, parts ...any) string {
	canonical, err := canonicalize(parts)
	if err != nil {
		// Unmarshalable arguments cannot be cached deterministically;
		// fall back to a key no entry will ever be stored under.
		canonical = []byte(fmt.Sprintf("%#v", parts))
	}

	sum := sha256.Sum256(canonical)
	return category + ":" + hex.EncodeToString(sum[:8])
}

// TTL returns the TTL configured for a category, or the default.
func (m *Manager) TTL(category string) time.Duration {
	if ttl, ok := m.cfg.CategoryTTL[category]; ok && ttl > 0 {
		return ttl
	}
	return m.cfg.DefaultTTL
}

// Get loads the value stored under key into dest and reports whether a
// valid entry was found. Expired entries and backend faults both read
// as a miss.
func (m *Manager) Get(ctx context.Context, key string, dest any) bool {
	data, err := m.backend.Get(ctx, key)
	if err != nil {
		if err != ErrNotFound {
			m.logger.Warn("cache get failed", "key", key, "error", err)
		}
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		m.logger.Warn("cache entry unreadable, evicting", "key", key, "error", err)
		_ = m.backend.Delete(ctx, key)
		return false
	}

	return true
}

// Set stores value under key. A non-positive ttl selects the default.
// Failures are logged, never returned.
func (m *Manager) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.cfg.DefaultTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		m.logger.Warn("cache value not serializable", "key", key, "error", err)
		return
	}

	if err := m.backend.Set(ctx, key, data, ttl); err != nil {
		m.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// Delete removes key, best effort.
func (m *Manager) Delete(ctx context.Context, key string) {
	if err := m.backend.Delete(ctx, key); err != nil {
		m.logger.Warn("cache delete failed", "key", key, "error", err)
	}
}

// Clear removes all entries, best effort.
func (m *Manager) Clear(ctx context.Context) {
	if err := m.backend.Clear(ctx); err != nil {
		m.logger.Warn("cache clear failed", "error", err)
	}
}

// Close closes the backend.
func (m *Manager) Close() error {
	return m.backend.Close()
}

// noopCache is the disabled-cache backend: every read misses and every
// write is dropped.
type noopCache struct{}

func (noopCache) Get(ctx context.Context, key string) ([]byte, error) { return nil, ErrNotFound }
func (noopCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}
func (noopCache) Delete(ctx context.Context, key string) error { return nil }
func (noopCache) Clear(ctx context.Context) error              { return nil }
func (noopCache) Close() error                                 { return nil }

// canonicalize produces a deterministic JSON representation of v.
// Maps are serialized with sorted keys so logically identical arguments
// hash identically regardless of iteration order.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		// Struct field order is fixed by declaration, so plain JSON
		// encoding is already canonical for concrete types.
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}
