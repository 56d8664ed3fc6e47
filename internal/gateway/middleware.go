package gateway

import (
	"bytes"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/prof-ramos/astro-gateway/internal/platform/observability"
	"github.com/prof-ramos/astro-gateway/internal/platform/ratelimit"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so the first argument is outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// clientIP extracts the real client address behind reverse proxies.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Recovery is the outermost boundary: unclassified panics are logged
// with full context and surfaced as a generic failure without internal
// detail.
func Recovery(logger *observability.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic while handling request",
						"method", r.Method,
						"path", r.URL.Path,
						"panic", fmt.Sprint(rec),
						"stack", string(debug.Stack()))
					writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RequestLog logs request timing and flags slow requests.
func RequestLog(logger *observability.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			rec.Header().Set("X-Server-Time", strconv.FormatInt(start.Unix(), 10))
			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", elapsed,
				"client", clientIP(r))

			if elapsed > time.Second {
				logger.Warn("slow request",
					"method", r.Method,
					"path", r.URL.Path,
					"duration", elapsed)
			}
		})
	}
}

// Metrics tracks in-flight requests and records every completion.
func Metrics(collector observability.Collector) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			collector.StartRequest()
			defer collector.EndRequest()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			collector.RecordRequest(r.Method, r.URL.Path, rec.status, time.Since(start))
		})
	}
}

// RateLimit throttles per client. Health endpoints are exempt
// unconditionally; every throttled response carries the limit metadata
// headers, and rejections get a machine-readable body with retry
// guidance.
func RateLimit(limiter *ratelimit.Limiter, logger *observability.Logger, exemptPrefixes ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range exemptPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			client := clientIP(r)
			decision := limiter.Allow(client)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))

			if !decision.Allowed {
				logger.Warn("rate limit exceeded", "client", client)

				retryAfter := int(decision.RetryAfter.Seconds() + 0.5)
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeJSON(w, http.StatusTooManyRequests, apiResponse{
					Status:  "KO",
					Message: fmt.Sprintf("maximum %d requests per window allowed", decision.Limit),
					Data: map[string]any{
						"error":       "rate_limit_exceeded",
						"retry_after": retryAfter,
					},
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

var compressibleTypes = map[string]bool{
	"application/json": true,
	"application/xml":  true,
	"text/html":        true,
	"text/plain":       true,
	"image/svg+xml":    true,
}

// bufferedResponse holds the full response so the compression decision
// can consider its size.
type bufferedResponse struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func (b *bufferedResponse) Header() http.Header         { return b.header }
func (b *bufferedResponse) WriteHeader(code int)        { b.status = code }
func (b *bufferedResponse) Write(p []byte) (int, error) { return b.body.Write(p) }

// Compress gzips responses over the minimum size for clients that
// accept it, for compressible content types only.
func Compress(minimumSize int) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(strings.ToLower(r.Header.Get("Accept-Encoding")), "gzip") {
				next.ServeHTTP(w, r)
				return
			}

			buf := &bufferedResponse{header: make(http.Header), status: http.StatusOK}
			next.ServeHTTP(buf, r)

			contentType := strings.Split(buf.header.Get("Content-Type"), ";")[0]

			for key, values := range buf.header {
				w.Header()[key] = values
			}

			if buf.body.Len() < minimumSize || !compressibleTypes[contentType] {
				w.WriteHeader(buf.status)
				_, _ = w.Write(buf.body.Bytes())
				return
			}

			w.Header().Set("Content-Encoding", "gzip")
			w.Header().Del("Content-Length")
			w.WriteHeader(buf.status)

			gz := gzip.NewWriter(w)
			_, _ = gz.Write(buf.body.Bytes())
			_ = gz.Close()
		})
	}
}
