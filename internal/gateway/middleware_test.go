package gateway

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prof-ramos/astro-gateway/internal/platform/observability"
)

func TestRecovery(t *testing.T) {
	logger := observability.NewTestLogger()
	handler := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500 after panic, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Error("Panic detail must not leak into the response")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name     string
		forward  string
		realIP   string
		remote   string
		expected string
	}{
		{"forwarded chain", "203.0.113.7, 10.0.0.1", "", "10.0.0.2:80", "203.0.113.7"},
		{"real ip", "", "203.0.113.8", "10.0.0.2:80", "203.0.113.8"},
		{"remote addr", "", "", "203.0.113.9:4567", "203.0.113.9"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remote
			if tc.forward != "" {
				req.Header.Set("X-Forwarded-For", tc.forward)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}

			if got := clientIP(req); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestCompress_LargeJSON(t *testing.T) {
	payload := `{"data":"` + strings.Repeat("x", 4096) + `"}`
	handler := Compress(1000)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatal("Expected gzip encoding for a large JSON response")
	}

	gz, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("Body should be valid gzip: %v", err)
	}
	decoded, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("Decompression failed: %v", err)
	}
	if string(decoded) != payload {
		t.Error("Round-tripped payload differs")
	}
}

func TestCompress_SmallResponseUntouched(t *testing.T) {
	handler := Compress(1000)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") == "gzip" {
		t.Error("Small responses should not be compressed")
	}
	if rec.Body.String() != `{"ok":true}` {
		t.Errorf("Body altered: %q", rec.Body.String())
	}
}

func TestCompress_NonCompressibleType(t *testing.T) {
	payload := strings.Repeat("b", 4096)
	handler := Compress(1000)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte(payload))
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") == "gzip" {
		t.Error("Binary content should pass through uncompressed")
	}
}

func TestCompress_ClientWithoutGzip(t *testing.T) {
	payload := strings.Repeat("c", 4096)
	handler := Compress(1000)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(payload))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Header().Get("Content-Encoding") == "gzip" {
		t.Error("Clients without gzip support must get the identity encoding")
	}
	if rec.Body.String() != payload {
		t.Error("Payload altered for non-gzip client")
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mk := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mk("outer"), mk("inner"))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	want := []string{"outer", "inner", "handler"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Expected order %v, got %v", want, order)
		}
	}
}

func TestMetricsMiddleware(t *testing.T) {
	collector := observability.NewSimpleCollector()
	handler := Metrics(collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/missing", nil))

	snap := collector.Snapshot()
	key := "GET:/api/v1/missing"
	if snap.TotalRequests[key] != 1 {
		t.Errorf("Expected 1 recorded request, got %d", snap.TotalRequests[key])
	}
	if snap.ErrorCounts[key] != 1 {
		t.Errorf("Expected 404 counted as error, got %d", snap.ErrorCounts[key])
	}
	if snap.ActiveRequests != 0 {
		t.Errorf("Expected 0 active after completion, got %d", snap.ActiveRequests)
	}
}
