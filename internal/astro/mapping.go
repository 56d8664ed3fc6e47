package astro

import (
	"fmt"
	"time"
)

// chartDocument is the raw output shape of the computation engine.
// Optional fields are pointers; required fields that arrive nil make
// the mapping fail explicitly instead of silently defaulting.
type chartDocument struct {
	Name      *string
	BirthDate *time.Time
	City      *string
	Nation    *string
	Latitude  *float64
	Longitude *float64
	Timezone  *string
	Planets   []planetEntry
	Houses    []houseEntry
	Aspects   []aspectEntry
}

type planetEntry struct {
	Name       *string
	AbsPos     *float64
	Lat        float64
	Dist       *float64
	Speed      *float64
	Sign       *string
	House      int
	Retrograde bool
}

type houseEntry struct {
	AbsPos *float64
	Sign   *string
}

type aspectEntry struct {
	P1Name *string
	P2Name *string
	Aspect *string
	Orbit  float64
	AID    float64 // negative when applying
}

// mappingError reports a required field absent from an engine document.
type mappingError struct {
	field string
}

func (e *mappingError) Error() string {
	return fmt.Sprintf("engine result missing required field %q", e.field)
}

func require[T any](p *T, field string) (T, error) {
	var zero T
	if p == nil {
		return zero, &mappingError{field: field}
	}
	return *p, nil
}

// mapDocument converts an engine document into a SubjectResult. The
// mapping is total: every required field is checked and a missing one
// yields a reported error rather than a zero value.
func mapDocument(doc chartDocument) (SubjectResult, error) {
	var out SubjectResult
	var err error

	if out.Name, err = require(doc.Name, "name"); err != nil {
		return SubjectResult{}, err
	}
	if out.BirthDate, err = require(doc.BirthDate, "birth_date"); err != nil {
		return SubjectResult{}, err
	}
	if out.City, err = require(doc.City, "city"); err != nil {
		return SubjectResult{}, err
	}
	if out.Nation, err = require(doc.Nation, "nation"); err != nil {
		return SubjectResult{}, err
	}
	if out.Latitude, err = require(doc.Latitude, "latitude"); err != nil {
		return SubjectResult{}, err
	}
	if out.Longitude, err = require(doc.Longitude, "longitude"); err != nil {
		return SubjectResult{}, err
	}
	if out.Timezone, err = require(doc.Timezone, "timezone"); err != nil {
		return SubjectResult{}, err
	}

	out.Planets = make([]PlanetPosition, 0, len(doc.Planets))
	for i, p := range doc.Planets {
		name, err := require(p.Name, fmt.Sprintf("planets[%d].name", i))
		if err != nil {
			return SubjectResult{}, err
		}
		pos, err := require(p.AbsPos, fmt.Sprintf("planets[%d].abs_pos", i))
		if err != nil {
			return SubjectResult{}, err
		}
		sign, err := require(p.Sign, fmt.Sprintf("planets[%d].sign", i))
		if err != nil {
			return SubjectResult{}, err
		}

		out.Planets = append(out.Planets, PlanetPosition{
			Name:       name,
			Longitude:  pos,
			Latitude:   p.Lat,
			Distance:   p.Dist,
			Speed:      p.Speed,
			Sign:       sign,
			House:      p.House,
			Retrograde: p.Retrograde,
		})
	}

	out.Houses = make([]HousePosition, 0, len(doc.Houses))
	for i, h := range doc.Houses {
		pos, err := require(h.AbsPos, fmt.Sprintf("houses[%d].abs_pos", i))
		if err != nil {
			return SubjectResult{}, err
		}
		sign, err := require(h.Sign, fmt.Sprintf("houses[%d].sign", i))
		if err != nil {
			return SubjectResult{}, err
		}

		out.Houses = append(out.Houses, HousePosition{
			HouseNumber: i + 1,
			Longitude:   pos,
			Sign:        sign,
		})
	}

	out.Aspects = make([]Aspect, 0, len(doc.Aspects))
	for i, a := range doc.Aspects {
		p1, err := require(a.P1Name, fmt.Sprintf("aspects[%d].p1_name", i))
		if err != nil {
			return SubjectResult{}, err
		}
		p2, err := require(a.P2Name, fmt.Sprintf("aspects[%d].p2_name", i))
		if err != nil {
			return SubjectResult{}, err
		}
		kind, err := require(a.Aspect, fmt.Sprintf("aspects[%d].aspect", i))
		if err != nil {
			return SubjectResult{}, err
		}

		out.Aspects = append(out.Aspects, Aspect{
			Planet1:  p1,
			Planet2:  p2,
			Aspect:   kind,
			Orb:      a.Orbit,
			Applying: a.AID < 0,
		})
	}

	return out, nil
}
