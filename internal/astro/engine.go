package astro

import (
	"context"
	"fmt"
	"hash/fnv"
	"html"
	"math"
	"strings"
	"time"
)

// Engine is the built-in reference backend. It computes planet
// longitudes from mean orbital rates against the J2000 epoch, which is
// deliberately simplified astronomy: good enough to exercise the
// gateway end to end, deterministic for identical input, and cheap to
// audit. Swap in a real ephemeris behind the Backend interface for
// production-grade charts.
type Engine struct{}

// NewEngine creates the reference engine.
func NewEngine() *Engine {
	return &Engine{}
}

var j2000 = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

// meanElements holds epoch longitude and mean daily motion in degrees.
type meanElements struct {
	name   string
	epoch  float64
	motion float64
}

var planetElements = []meanElements{
	{"Sun", 280.460, 0.98564736},
	{"Moon", 218.316, 13.17639648},
	{"Mercury", 252.251, 4.09233445},
	{"Venus", 181.980, 1.60213034},
	{"Mars", 355.433, 0.52403840},
	{"Jupiter", 34.351, 0.08308529},
	{"Saturn", 50.077, 0.03344414},
	{"Uranus", 314.055, 0.01172834},
	{"Neptune", 304.348, 0.00598103},
	{"Pluto", 238.958, 0.00396},
}

var zodiacSigns = []string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

type aspectAngle struct {
	name  string
	angle float64
}

var aspectAngles = []aspectAngle{
	{"conjunction", 0},
	{"sextile", 60},
	{"square", 90},
	{"trine", 120},
	{"opposition", 180},
}

const natalOrbLimit = 6.0

// CalculateSubject computes the full chart for a subject.
func (e *Engine) CalculateSubject(ctx context.Context, req SubjectRequest) (SubjectResult, error) {
	doc := e.buildDocument(req)

	result, err := mapDocument(doc)
	if err != nil {
		return SubjectResult{}, &ComputationError{Op: "subject", Err: err}
	}

	return result, nil
}

// RenderChart computes the chart and renders it as an SVG wheel.
func (e *Engine) RenderChart(ctx context.Context, req ChartRequest) (ChartResult, error) {
	subject, err := e.CalculateSubject(ctx, req.Subject)
	if err != nil {
		return ChartResult{}, err
	}

	chartType := req.ChartType
	if chartType == "" {
		chartType = "natal"
	}
	houseSystem := req.HouseSystem
	if houseSystem == "" {
		houseSystem = "equal"
	}

	if !req.IncludeAspects {
		subject.Aspects = nil
	}

	return ChartResult{
		Subject:         subject,
		SVGContent:      renderWheel(subject),
		ChartType:       chartType,
		HouseSystem:     houseSystem,
		CalculationDate: time.Now().UTC(),
	}, nil
}

// CalculateTransits computes planet positions at the transit date and
// the aspects they form against the natal chart.
func (e *Engine) CalculateTransits(ctx context.Context, req TransitRequest) (TransitResult, error) {
	natal, err := e.CalculateSubject(ctx, req.NatalSubject)
	if err != nil {
		return TransitResult{}, err
	}

	orb := req.OrbLimit
	if orb <= 0 {
		orb = 5.0
	}

	asc := ascendant(req.NatalSubject)
	transits := make([]PlanetPosition, 0, len(planetElements))
	for _, el := range planetElements {
		lon := longitudeAt(el, req.TransitDate)
		transits = append(transits, position(el, lon, asc))
	}

	var active []Aspect
	for _, t := range transits {
		for _, n := range natal.Planets {
			if kind, delta, ok := aspectBetween(t.Longitude, n.Longitude, orb); ok {
				active = append(active, Aspect{
					Planet1:  t.Name,
					Planet2:  n.Name,
					Aspect:   kind,
					Orb:      math.Abs(delta),
					Applying: delta < 0,
				})
			}
		}
	}

	return TransitResult{
		NatalSubject:  natal.Name,
		TransitDate:   req.TransitDate,
		Transits:      transits,
		ActiveAspects: active,
	}, nil
}

// buildDocument runs the raw computation into the engine's document
// shape; mapDocument then converts it into the API result type.
func (e *Engine) buildDocument(req SubjectRequest) chartDocument {
	birth := req.BirthDate()
	lat, lon := locate(req.City, req.Nation)
	tz := req.Timezone
	if tz == "" {
		tz = "UTC"
	}

	asc := ascendant(req)

	planets := make([]planetEntry, 0, len(planetElements))
	for _, el := range planetElements {
		plon := longitudeAt(el, birth)
		pos := position(el, plon, asc)

		name := pos.Name
		sign := pos.Sign
		speed := el.motion
		planets = append(planets, planetEntry{
			Name:   &name,
			AbsPos: &pos.Longitude,
			Lat:    0,
			Speed:  &speed,
			Sign:   &sign,
			House:  pos.House,
		})
	}

	houses := make([]houseEntry, 0, 12)
	for i := 0; i < 12; i++ {
		cusp := wrap360(asc + float64(i)*30)
		sign := signOf(cusp)
		c := cusp
		houses = append(houses, houseEntry{AbsPos: &c, Sign: &sign})
	}

	var aspects []aspectEntry
	for i := 0; i < len(planets); i++ {
		for j := i + 1; j < len(planets); j++ {
			if kind, delta, ok := aspectBetween(*planets[i].AbsPos, *planets[j].AbsPos, natalOrbLimit); ok {
				k := kind
				aspects = append(aspects, aspectEntry{
					P1Name: planets[i].Name,
					P2Name: planets[j].Name,
					Aspect: &k,
					Orbit:  math.Abs(delta),
					AID:    delta,
				})
			}
		}
	}

	return chartDocument{
		Name:      &req.Name,
		BirthDate: &birth,
		City:      &req.City,
		Nation:    &req.Nation,
		Latitude:  &lat,
		Longitude: &lon,
		Timezone:  &tz,
		Planets:   planets,
		Houses:    houses,
		Aspects:   aspects,
	}
}

func longitudeAt(el meanElements, t time.Time) float64 {
	days := t.Sub(j2000).Hours() / 24
	return wrap360(el.epoch + el.motion*days)
}

func position(el meanElements, lon, asc float64) PlanetPosition {
	speed := el.motion
	return PlanetPosition{
		Name:      el.name,
		Longitude: lon,
		Sign:      signOf(lon),
		House:     int(wrap360(lon-asc)/30) + 1,
		Speed:     &speed,
	}
}

// ascendant approximates the rising degree from local sidereal time.
func ascendant(req SubjectRequest) float64 {
	birth := req.BirthDate()
	_, lon := locate(req.City, req.Nation)
	days := birth.Sub(j2000).Hours() / 24
	lst := 100.46 + 0.985647352*days + lon + 15*(float64(req.Hour)+float64(req.Minute)/60)
	return wrap360(lst)
}

// aspectBetween reports the aspect formed by two longitudes, if any
// falls within the orb. delta is signed: negative when the separation
// has not yet reached the exact angle (applying).
func aspectBetween(a, b float64, orb float64) (string, float64, bool) {
	sep := math.Abs(wrap360(a) - wrap360(b))
	if sep > 180 {
		sep = 360 - sep
	}

	for _, asp := range aspectAngles {
		delta := sep - asp.angle
		if math.Abs(delta) <= orb {
			return asp.name, delta, true
		}
	}

	return "", 0, false
}

func signOf(lon float64) string {
	return zodiacSigns[int(wrap360(lon)/30)%12]
}

func wrap360(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// knownCities maps a few common birthplaces; anything else gets
// deterministic pseudo-coordinates so identical requests always
// resolve identically without a geocoding dependency.
var knownCities = map[string][2]float64{
	"sao paulo|br":      {-23.55, -46.63},
	"são paulo|br":      {-23.55, -46.63},
	"rio de janeiro|br": {-22.91, -43.17},
	"lisbon|pt":         {38.72, -9.14},
	"london|gb":         {51.51, -0.13},
	"new york|us":       {40.71, -74.01},
	"paris|fr":          {48.86, 2.35},
	"berlin|de":         {52.52, 13.41},
	"tokyo|jp":          {35.68, 139.69},
}

func locate(city, nation string) (lat, lon float64) {
	key := strings.ToLower(strings.TrimSpace(city)) + "|" + strings.ToLower(nation)
	if coords, ok := knownCities[key]; ok {
		return coords[0], coords[1]
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	sum := h.Sum64()

	lat = float64(sum%120000)/1000 - 60         // [-60, 60)
	lon = float64(sum/120000%360000)/1000 - 180 // [-180, 180)
	return lat, lon
}

// renderWheel draws a minimal SVG chart wheel: the zodiac ring, house
// cusps and one marker per planet.
func renderWheel(s SubjectResult) string {
	var b strings.Builder

	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="500" height="500" viewBox="0 0 500 500">`)
	b.WriteString(`<circle cx="250" cy="250" r="240" fill="none" stroke="black"/>`)
	b.WriteString(`<circle cx="250" cy="250" r="180" fill="none" stroke="black"/>`)

	for _, h := range s.Houses {
		x, y := wheelPoint(h.Longitude, 240)
		fmt.Fprintf(&b, `<line x1="250" y1="250" x2="%.1f" y2="%.1f" stroke="gray" stroke-width="0.5"/>`, x, y)
	}

	for _, p := range s.Planets {
		x, y := wheelPoint(p.Longitude, 210)
		fmt.Fprintf(&b, `<circle cx="%.1f" cy="%.1f" r="4"/>`, x, y)
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-size="10">%s</text>`, x+6, y+3, html.EscapeString(p.Name))
	}

	fmt.Fprintf(&b, `<text x="250" y="250" text-anchor="middle" font-size="12">%s</text>`, html.EscapeString(s.Name))
	b.WriteString(`</svg>`)

	return b.String()
}

func wheelPoint(lon float64, radius float64) (x, y float64) {
	rad := (180 - lon) * math.Pi / 180
	return 250 + radius*math.Cos(rad), 250 - radius*math.Sin(rad)
}

var _ Backend = (*Engine)(nil)
