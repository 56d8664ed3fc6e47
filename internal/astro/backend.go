package astro

import (
	"context"
	"fmt"
)

// Backend is the opaque computation collaborator the gateway fronts.
//
// Implementations must be pure with respect to their inputs, idempotent
// for identical requests and safe to invoke concurrently from multiple
// worker goroutines. Expected latency is CPU-bound, sub-second to a few
// seconds.
type Backend interface {
	CalculateSubject(ctx context.Context, req SubjectRequest) (SubjectResult, error)
	RenderChart(ctx context.Context, req ChartRequest) (ChartResult, error)
	CalculateTransits(ctx context.Context, req TransitRequest) (TransitResult, error)
}

// ValidationError reports malformed or out-of-range input. It is never
// retried and its result is never cached.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ComputationError reports a failure inside the computation backend.
// It is surfaced to the caller as its own category and never cached, so
// a retry reaches the backend again.
type ComputationError struct {
	Op  string
	Err error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation %s failed: %v", e.Op, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

// Validate checks the request ranges (mirrors the API schema limits).
func (r SubjectRequest) Validate() error {
	if r.Name == "" || len(r.Name) > 100 {
		return &ValidationError{Field: "name", Reason: "must be 1-100 characters"}
	}
	if r.Year < 1900 || r.Year > 2100 {
		return &ValidationError{Field: "year", Reason: "must be between 1900 and 2100"}
	}
	if r.Month < 1 || r.Month > 12 {
		return &ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	}
	if r.Day < 1 || r.Day > 31 {
		return &ValidationError{Field: "day", Reason: "must be between 1 and 31"}
	}
	if r.Hour < 0 || r.Hour > 23 {
		return &ValidationError{Field: "hour", Reason: "must be between 0 and 23"}
	}
	if r.Minute < 0 || r.Minute > 59 {
		return &ValidationError{Field: "minute", Reason: "must be between 0 and 59"}
	}
	if r.City == "" || len(r.City) > 100 {
		return &ValidationError{Field: "city", Reason: "must be 1-100 characters"}
	}
	if len(r.Nation) != 2 {
		return &ValidationError{Field: "nation", Reason: "must be an ISO 3166-1 alpha-2 code"}
	}
	return nil
}

// Validate checks the chart request.
func (r ChartRequest) Validate() error {
	return r.Subject.Validate()
}

// Validate checks the transit request.
func (r TransitRequest) Validate() error {
	if err := r.NatalSubject.Validate(); err != nil {
		return err
	}
	if r.TransitDate.IsZero() {
		return &ValidationError{Field: "transit_date", Reason: "is required"}
	}
	if r.OrbLimit < 0 || r.OrbLimit > 15 {
		return &ValidationError{Field: "orb_limit", Reason: "must be between 0 and 15"}
	}
	return nil
}
