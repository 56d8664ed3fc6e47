package astro

import (
	"errors"
	"testing"
	"time"
)

func validSubject() SubjectRequest {
	return SubjectRequest{
		Name:   "Ana Silva",
		Year:   1990,
		Month:  6,
		Day:    15,
		Hour:   14,
		Minute: 30,
		City:   "Sao Paulo",
		Nation: "BR",
	}
}

func TestSubjectRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*SubjectRequest)
		wantField string
	}{
		{"valid", func(r *SubjectRequest) {}, ""},
		{"empty name", func(r *SubjectRequest) { r.Name = "" }, "name"},
		{"year too early", func(r *SubjectRequest) { r.Year = 1899 }, "year"},
		{"year too late", func(r *SubjectRequest) { r.Year = 2101 }, "year"},
		{"month zero", func(r *SubjectRequest) { r.Month = 0 }, "month"},
		{"month thirteen", func(r *SubjectRequest) { r.Month = 13 }, "month"},
		{"day zero", func(r *SubjectRequest) { r.Day = 0 }, "day"},
		{"day out of range", func(r *SubjectRequest) { r.Day = 32 }, "day"},
		{"hour negative", func(r *SubjectRequest) { r.Hour = -1 }, "hour"},
		{"hour out of range", func(r *SubjectRequest) { r.Hour = 24 }, "hour"},
		{"minute out of range", func(r *SubjectRequest) { r.Minute = 60 }, "minute"},
		{"empty city", func(r *SubjectRequest) { r.City = "" }, "city"},
		{"bad nation", func(r *SubjectRequest) { r.Nation = "BRA" }, "nation"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validSubject()
			tc.mutate(&req)

			err := req.Validate()
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("Expected valid, got %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if verr.Field != tc.wantField {
				t.Errorf("Expected field %q, got %q", tc.wantField, verr.Field)
			}
		})
	}
}

func TestTransitRequest_Validate(t *testing.T) {
	req := TransitRequest{
		NatalSubject: validSubject(),
		TransitDate:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		OrbLimit:     5,
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("Expected valid, got %v", err)
	}

	missing := req
	missing.TransitDate = time.Time{}
	var verr *ValidationError
	if err := missing.Validate(); !errors.As(err, &verr) || verr.Field != "transit_date" {
		t.Errorf("Expected transit_date error, got %v", err)
	}

	wideOrb := req
	wideOrb.OrbLimit = 16
	if err := wideOrb.Validate(); !errors.As(err, &verr) || verr.Field != "orb_limit" {
		t.Errorf("Expected orb_limit error, got %v", err)
	}
}

func TestComputationError_Unwrap(t *testing.T) {
	cause := errors.New("ephemeris file truncated")
	err := &ComputationError{Op: "subject", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("Expected wrapped cause to be reachable via errors.Is")
	}
}
