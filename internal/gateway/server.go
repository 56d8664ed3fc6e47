package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prof-ramos/astro-gateway/internal/astro"
	"github.com/prof-ramos/astro-gateway/internal/platform/observability"
	"github.com/prof-ramos/astro-gateway/internal/platform/ratelimit"
)

const healthPrefix = "/api/v1/health"

// apiResponse is the outward envelope for every JSON response.
type apiResponse struct {
	Status  string `json:"status"` // OK or KO
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// ServerConfig collects the HTTP surface's collaborators.
type ServerConfig struct {
	Dispatcher  *Dispatcher
	Limiter     *ratelimit.Limiter
	Metrics     observability.Collector
	Logger      *observability.Logger
	MetricsPath string

	// CompressionMinSize enables response compression when positive.
	CompressionMinSize int
}

// Server exposes the gateway over HTTP.
type Server struct {
	cfg        ServerConfig
	dispatcher *Dispatcher
	logger     *observability.Logger
	started    time.Time
}

// NewServer creates a Server.
func NewServer(cfg ServerConfig) *Server {
	return &Server{
		cfg:        cfg,
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger,
		started:    time.Now(),
	}
}

// Handler builds the route table wrapped in the middleware chain:
// Recovery → RequestLog → Compress → Metrics → RateLimit → handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/astrology/subject", s.handleSubject)
	mux.HandleFunc("POST /api/v1/astrology/subjects", s.handleSubjectBatch)
	mux.HandleFunc("POST /api/v1/astrology/natal-chart", s.handleChart)
	mux.HandleFunc("POST /api/v1/astrology/transits", s.handleTransits)
	mux.HandleFunc("GET "+healthPrefix, s.handleHealth)
	mux.HandleFunc("GET "+healthPrefix+"/status", s.handleStatus)

	metricsPath := s.cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	mux.Handle("GET "+metricsPath, s.cfg.Metrics.Handler())

	mws := []Middleware{
		Recovery(s.logger),
		RequestLog(s.logger),
	}
	if s.cfg.CompressionMinSize > 0 {
		mws = append(mws, Compress(s.cfg.CompressionMinSize))
	}
	mws = append(mws,
		Metrics(s.cfg.Metrics),
		RateLimit(s.cfg.Limiter, s.logger, healthPrefix, metricsPath),
	)

	return Chain(mux, mws...)
}

func (s *Server) handleSubject(w http.ResponseWriter, r *http.Request) {
	var req astro.SubjectRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.dispatcher.CalculateSubject(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		Status:  "OK",
		Data:    result,
		Message: "astrological data calculated",
	})
}

func (s *Server) handleSubjectBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []astro.SubjectRequest
	if !decodeBody(w, r, &reqs) {
		return
	}

	if len(reqs) == 0 {
		writeError(w, http.StatusBadRequest, "validation_error", "batch must contain at least one subject")
		return
	}

	outcomes := s.dispatcher.CalculateSubjects(r.Context(), reqs)

	type batchItem struct {
		Result *astro.SubjectResult `json:"result,omitempty"`
		Error  string               `json:"error,omitempty"`
	}

	items := make([]batchItem, len(outcomes))
	for i, o := range outcomes {
		if o.Err != nil {
			items[i] = batchItem{Error: o.Err.Error()}
			continue
		}
		items[i] = batchItem{Result: o.Result}
	}

	writeJSON(w, http.StatusOK, apiResponse{
		Status:  "OK",
		Data:    items,
		Message: "batch processed",
	})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	req := astro.ChartRequest{IncludeAspects: true}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.dispatcher.RenderChart(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		Status:  "OK",
		Data:    result,
		Message: "natal chart generated",
	})
}

func (s *Server) handleTransits(w http.ResponseWriter, r *http.Request) {
	var req astro.TransitRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.dispatcher.CalculateTransits(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		Status:  "OK",
		Data:    result,
		Message: "transits calculated",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiResponse{
		Status:  "OK",
		Data:    map[string]any{"service": "astro-gateway"},
		Message: "service healthy",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	pool := s.dispatcher.PoolStatus()
	writeJSON(w, http.StatusOK, apiResponse{
		Status: "OK",
		Data: map[string]any{
			"service":        "astro-gateway",
			"uptime_seconds": time.Since(s.started).Seconds(),
			"workers":        pool,
		},
		Message: "detailed status",
	})
}

// writeDomainError maps domain faults to their outward category without
// altering their semantic kind: validation 400, computation 500 with
// its own category, anything else a generic 500.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *astro.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, "validation_error", validationErr.Error())
		return
	}

	var computationErr *astro.ComputationError
	if errors.As(err, &computationErr) {
		s.logger.LogError(r.Context(), "computation failed", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "computation_error", computationErr.Error())
		return
	}

	s.logger.LogError(r.Context(), "unexpected failure", err, "path", r.URL.Path)
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "malformed request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, category, message string) {
	writeJSON(w, status, apiResponse{
		Status:  "KO",
		Message: message,
		Data:    map[string]any{"error": category},
	})
}
