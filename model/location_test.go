package model

import (
	"math"
	"testing"
)

var (
	paris = Location{Name: "Paris", State: "Paris", Country: "France", PlanetName: "Earth", Longitude: 2.35, Latitude: 48.85, Altitude: 35}
	gale  = Location{Name: "Gale", State: "", Country: "", PlanetName: "Mars", Longitude: 137.4, Latitude: -5.4, Altitude: -4500}
)

func TestLocationID(t *testing.T) {
	if got := paris.ID(); got != "Paris, Paris, France" {
		t.Fatalf("ID() = %q", got)
	}
	name, state, country := ParseLocationID("Paris, Paris, France")
	if name != "Paris" || state != "Paris" || country != "France" {
		t.Fatalf("ParseLocationID = %q %q %q", name, state, country)
	}
	name, state, country = ParseLocationID("Nowhere")
	if name != "Nowhere" || state != "" || country != "" {
		t.Fatalf("ParseLocationID single part = %q %q %q", name, state, country)
	}
}

func TestInterpolateEndpoints(t *testing.T) {
	if got := Interpolate(paris, gale, 0); got != paris {
		t.Fatalf("ratio 0 should return from, got %v", got)
	}
	if got := Interpolate(paris, gale, -3); got != paris {
		t.Fatalf("negative ratio should clamp to from, got %v", got)
	}
	if got := Interpolate(paris, gale, 1); got != gale {
		t.Fatalf("ratio 1 should return to, got %v", got)
	}
	if got := Interpolate(paris, gale, 7); got != gale {
		t.Fatalf("ratio >1 should clamp to to, got %v", got)
	}
}

func TestInterpolateIdentifierSwitchesAtMidpoint(t *testing.T) {
	before := Interpolate(paris, gale, 0.49)
	if before.PlanetName != "Earth" || before.Name != "Paris" {
		t.Fatalf("before midpoint identifiers = %q/%q, want Earth/Paris", before.PlanetName, before.Name)
	}
	after := Interpolate(paris, gale, 0.5)
	if after.PlanetName != "Mars" || after.Name != "Gale" {
		t.Fatalf("at midpoint identifiers = %q/%q, want Mars/Gale", after.PlanetName, after.Name)
	}

	wantLon := paris.Longitude + (gale.Longitude-paris.Longitude)*0.5
	if math.Abs(after.Longitude-wantLon) > 1e-12 {
		t.Fatalf("longitude = %v, want %v", after.Longitude, wantLon)
	}
}

func TestSamePlanet(t *testing.T) {
	if !paris.SamePlanet(Location{PlanetName: "earth"}) {
		t.Fatalf("planet comparison should ignore case")
	}
	if paris.SamePlanet(gale) {
		t.Fatalf("Earth and Mars reported as same planet")
	}
}
