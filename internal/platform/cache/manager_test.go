package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prof-ramos/astro-gateway/internal/platform/observability"
)

// faultyCache fails every operation, standing in for an unreachable
// backend.
type faultyCache struct{}

var errBackendDown = errors.New("backend down")

func (f *faultyCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errBackendDown
}
func (f *faultyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errBackendDown
}
func (f *faultyCache) Delete(ctx context.Context, key string) error { return errBackendDown }
func (f *faultyCache) Clear(ctx context.Context) error              { return errBackendDown }
func (f *faultyCache) Close() error                                 { return nil }

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	backend := NewMemoryCache(100)
	t.Cleanup(func() { backend.Close() })

	return NewManagerWithBackend(backend, Config{
		DefaultTTL: time.Hour,
		CategoryTTL: map[string]time.Duration{
			"astro_subject": 2 * time.Hour,
			"transits":      30 * time.Minute,
		},
	}, observability.NewTestLogger())
}

func TestManager_GenerateKey_Deterministic(t *testing.T) {
	m := newTestManager(t)

	args := map[string]any{"name": "Ana", "year": 1990, "city": "Lisbon"}
	k1 := m.GenerateKey("astro_subject", args)
	k2 := m.GenerateKey("astro_subject", args)

	if k1 != k2 {
		t.Errorf("Expected identical keys, got %s and %s", k1, k2)
	}
}

func TestManager_GenerateKey_MapOrderIndependent(t *testing.T) {
	m := newTestManager(t)

	// Maps built in different insertion orders must hash identically.
	a := map[string]any{}
	a["name"] = "Ana"
	a["year"] = 1990
	b := map[string]any{}
	b["year"] = 1990
	b["name"] = "Ana"

	for i := 0; i < 10; i++ {
		if m.GenerateKey("astro_subject", a) != m.GenerateKey("astro_subject", b) {
			t.Fatal("Expected keys independent of map insertion order")
		}
	}
}

func TestManager_GenerateKey_DistinctArgs(t *testing.T) {
	m := newTestManager(t)

	keys := map[string]bool{
		m.GenerateKey("astro_subject", map[string]any{"name": "Ana", "year": 1990}):   true,
		m.GenerateKey("astro_subject", map[string]any{"name": "Ana", "year": 1991}):   true,
		m.GenerateKey("astro_subject", map[string]any{"name": "Bruno", "year": 1990}): true,
		m.GenerateKey("transits", map[string]any{"name": "Ana", "year": 1990}):        true,
	}

	if len(keys) != 4 {
		t.Errorf("Expected 4 distinct keys, got %d", len(keys))
	}
}

func TestManager_SetGet_RoundTrip(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	m.Set(ctx, "k1", payload{Name: "Ana", Count: 3}, time.Minute)

	var got payload
	if !m.Get(ctx, "k1", &got) {
		t.Fatal("Expected cache hit")
	}
	if got.Name != "Ana" || got.Count != 3 {
		t.Errorf("Unexpected payload: %+v", got)
	}
}

func TestManager_Get_Missing(t *testing.T) {
	m := newTestManager(t)

	var got string
	if m.Get(context.Background(), "absent", &got) {
		t.Error("Expected miss for absent key")
	}
}

func TestManager_TTL_PerCategory(t *testing.T) {
	m := newTestManager(t)

	tests := []struct {
		category string
		want     time.Duration
	}{
		{"astro_subject", 2 * time.Hour},
		{"transits", 30 * time.Minute},
		{"unknown", time.Hour}, // default
	}

	for _, tt := range tests {
		if got := m.TTL(tt.category); got != tt.want {
			t.Errorf("TTL(%s) = %s, want %s", tt.category, got, tt.want)
		}
	}
}

func TestManager_BackendFaults_DegradeToMiss(t *testing.T) {
	m := NewManagerWithBackend(&faultyCache{}, Config{DefaultTTL: time.Hour}, observability.NewTestLogger())
	ctx := context.Background()

	// None of these may panic or surface the backend error.
	m.Set(ctx, "k1", "value", time.Minute)
	m.Delete(ctx, "k1")
	m.Clear(ctx)

	var got string
	if m.Get(ctx, "k1", &got) {
		t.Error("Expected miss when backend is down")
	}
}

func TestManager_Disabled_PassThrough(t *testing.T) {
	m := NewManager(Config{Enabled: false, DefaultTTL: time.Hour}, observability.NewTestLogger())
	defer m.Close()
	ctx := context.Background()

	m.Set(ctx, "k1", "value", time.Minute)

	// Writes are dropped, so every read recomputes.
	var got string
	if m.Get(ctx, "k1", &got) {
		t.Error("Disabled cache must read every key as a miss")
	}

	// Key derivation and TTL policy still work for callers that use them.
	if m.GenerateKey("astro_subject", "a") == "" {
		t.Error("Expected key derivation to keep working")
	}
	if m.TTL("unknown") != time.Hour {
		t.Errorf("Expected default TTL, got %s", m.TTL("unknown"))
	}
}

func TestManager_Get_CorruptEntryEvicted(t *testing.T) {
	backend := NewMemoryCache(10)
	defer backend.Close()
	m := NewManagerWithBackend(backend, Config{DefaultTTL: time.Hour}, observability.NewTestLogger())
	ctx := context.Background()

	_ = backend.Set(ctx, "k1", []byte("{not json"), time.Minute)

	var got map[string]any
	if m.Get(ctx, "k1", &got) {
		t.Error("Expected miss for corrupt entry")
	}

	if _, err := backend.Get(ctx, "k1"); err != ErrNotFound {
		t.Errorf("Expected corrupt entry evicted, got %v", err)
	}
}
