// Package astro defines the astrological computation contract the
// gateway dispatches to, together with its request and result types.
package astro

import "time"

// SubjectRequest carries the birth data for one astrological subject.
type SubjectRequest struct {
	Name     string `json:"name"`
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	Day      int    `json:"day"`
	Hour     int    `json:"hour"`
	Minute   int    `json:"minute"`
	City     string `json:"city"`
	Nation   string `json:"nation"` // ISO 3166-1 alpha-2
	Timezone string `json:"timezone,omitempty"`
}

// BirthDate returns the request's birth instant in UTC.
func (r SubjectRequest) BirthDate() time.Time {
	return time.Date(r.Year, time.Month(r.Month), r.Day, r.Hour, r.Minute, 0, 0, time.UTC)
}

// PlanetPosition is one planet's place in the chart.
type PlanetPosition struct {
	Name       string   `json:"name"`
	Longitude  float64  `json:"longitude"`
	Latitude   float64  `json:"latitude"`
	Distance   *float64 `json:"distance,omitempty"`
	Speed      *float64 `json:"speed,omitempty"`
	Sign       string   `json:"sign"`
	House      int      `json:"house"`
	Retrograde bool     `json:"retrograde"`
}

// HousePosition is one house cusp.
type HousePosition struct {
	HouseNumber int     `json:"house_number"`
	Longitude   float64 `json:"longitude"`
	Sign        string  `json:"sign"`
}

// Aspect is an angular relation between two planets.
type Aspect struct {
	Planet1  string  `json:"planet1"`
	Planet2  string  `json:"planet2"`
	Aspect   string  `json:"aspect"`
	Orb      float64 `json:"orb"`
	Applying bool    `json:"applying"`
}

// SubjectResult is the full computed chart for one subject.
type SubjectResult struct {
	Name      string           `json:"name"`
	BirthDate time.Time        `json:"birth_date"`
	City      string           `json:"city"`
	Nation    string           `json:"nation"`
	Latitude  float64          `json:"latitude"`
	Longitude float64          `json:"longitude"`
	Timezone  string           `json:"timezone"`
	Planets   []PlanetPosition `json:"planets"`
	Houses    []HousePosition  `json:"houses"`
	Aspects   []Aspect         `json:"aspects"`
}

// ChartRequest asks for a rendered chart.
type ChartRequest struct {
	Subject        SubjectRequest `json:"subject"`
	ChartType      string         `json:"chart_type,omitempty"`
	IncludeAspects bool           `json:"include_aspects,omitempty"`
	HouseSystem    string         `json:"house_system,omitempty"`
}

// ChartResult carries the rendered chart.
type ChartResult struct {
	Subject         SubjectResult `json:"chart_data"`
	SVGContent      string        `json:"svg_content"`
	ChartType       string        `json:"chart_type"`
	HouseSystem     string        `json:"house_system"`
	CalculationDate time.Time     `json:"calculation_date"`
}

// TransitRequest asks for planetary transits against a natal chart.
type TransitRequest struct {
	NatalSubject SubjectRequest `json:"natal_subject"`
	TransitDate  time.Time      `json:"transit_date"`
	OrbLimit     float64        `json:"orb_limit,omitempty"`
}

// TransitResult carries transit positions and the aspects they form
// against the natal chart.
type TransitResult struct {
	NatalSubject  string           `json:"natal_subject"`
	TransitDate   time.Time        `json:"transit_date"`
	Transits      []PlanetPosition `json:"transits"`
	ActiveAspects []Aspect         `json:"active_aspects"`
}
