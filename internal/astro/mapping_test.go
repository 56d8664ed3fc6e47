package astro

import (
	"strings"
	"testing"
	"time"
)

func completeDocument() chartDocument {
	name := "Ana Silva"
	birth := time.Date(1990, 6, 15, 14, 30, 0, 0, time.UTC)
	city := "Sao Paulo"
	nation := "BR"
	lat, lon := -23.55, -46.63
	tz := "UTC"

	pname := "Sun"
	ppos := 84.2
	psign := "Gemini"

	hpos := 120.0
	hsign := "Leo"

	aspect := "trine"

	return chartDocument{
		Name:      &name,
		BirthDate: &birth,
		City:      &city,
		Nation:    &nation,
		Latitude:  &lat,
		Longitude: &lon,
		Timezone:  &tz,
		Planets:   []planetEntry{{Name: &pname, AbsPos: &ppos, Sign: &psign, House: 3}},
		Houses:    []houseEntry{{AbsPos: &hpos, Sign: &hsign}},
		Aspects:   []aspectEntry{{P1Name: &pname, P2Name: &pname, Aspect: &aspect, Orbit: 1.5, AID: -1.5}},
	}
}

func TestMapDocument_Complete(t *testing.T) {
	result, err := mapDocument(completeDocument())
	if err != nil {
		t.Fatalf("mapDocument failed: %v", err)
	}

	if result.Name != "Ana Silva" {
		t.Errorf("Expected name carried over, got %q", result.Name)
	}
	if len(result.Planets) != 1 || result.Planets[0].Sign != "Gemini" {
		t.Errorf("Unexpected planets: %+v", result.Planets)
	}
	if result.Houses[0].HouseNumber != 1 {
		t.Errorf("Expected house numbering from 1, got %d", result.Houses[0].HouseNumber)
	}
	if !result.Aspects[0].Applying {
		t.Error("Negative aspect delta should map to applying")
	}
}

func TestMapDocument_MissingRequiredField(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*chartDocument)
		field  string
	}{
		{"missing name", func(d *chartDocument) { d.Name = nil }, "name"},
		{"missing birth date", func(d *chartDocument) { d.BirthDate = nil }, "birth_date"},
		{"missing latitude", func(d *chartDocument) { d.Latitude = nil }, "latitude"},
		{"missing planet position", func(d *chartDocument) { d.Planets[0].AbsPos = nil }, "planets[0].abs_pos"},
		{"missing planet sign", func(d *chartDocument) { d.Planets[0].Sign = nil }, "planets[0].sign"},
		{"missing house sign", func(d *chartDocument) { d.Houses[0].Sign = nil }, "houses[0].sign"},
		{"missing aspect kind", func(d *chartDocument) { d.Aspects[0].Aspect = nil }, "aspects[0].aspect"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc := completeDocument()
			tc.mutate(&doc)

			_, err := mapDocument(doc)
			if err == nil {
				t.Fatal("Expected error for missing field")
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("Expected error to name %q, got %q", tc.field, err.Error())
			}
		})
	}
}
