package model

import (
	"fmt"
	"strings"
)

// Location describes where the observer stands on (or above) a body.
// Longitude is east-positive degrees, Latitude degrees, Altitude metres.
type Location struct {
	Name       string `json:"name"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PlanetName string `json:"planet"`

	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Altitude  int     `json:"altitude"`

	LandscapeKey string `json:"landscape_key,omitempty"`
	Population   int    `json:"population,omitempty"` // thousands, informational
	Role         rune   `json:"role,omitempty"`       // e.g. 'C' capital, 'O' observatory; 0 when unknown
}

// ID returns the small-string identifier used by the location registry and
// the init_location/location setting, e.g. "Paris, Paris, France".
func (l Location) ID() string {
	return fmt.Sprintf("%s, %s, %s", l.Name, l.State, l.Country)
}

// String implements fmt.Stringer.
func (l Location) String() string {
	return fmt.Sprintf("%s [%s] lon=%.4f lat=%.4f alt=%dm", l.ID(), l.PlanetName, l.Longitude, l.Latitude, l.Altitude)
}

// SamePlanet reports whether both locations sit on the same body.
func (l Location) SamePlanet(other Location) bool {
	return strings.EqualFold(l.PlanetName, other.PlanetName)
}

// ParseLocationID splits a small-string identifier into its name, state and
// country parts. Missing trailing parts come back empty.
func ParseLocationID(id string) (name, state, country string) {
	parts := strings.SplitN(id, ",", 3)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch len(parts) {
	case 3:
		return parts[0], parts[1], parts[2]
	case 2:
		return parts[0], parts[1], ""
	default:
		return parts[0], "", ""
	}
}

// Interpolate returns the location a fraction ratio of the way from from to
// to. Numeric fields are blended linearly; identifier fields are discrete and
// switch to the destination's values once ratio reaches one half. The ratio is
// clamped to [0, 1] and ratio 1 yields exactly to.
func Interpolate(from, to Location, ratio float64) Location {
	if ratio <= 0 {
		return from
	}
	if ratio >= 1 {
		return to
	}

	out := from
	if ratio >= 0.5 {
		out = to
	}
	out.Longitude = from.Longitude + (to.Longitude-from.Longitude)*ratio
	out.Latitude = from.Latitude + (to.Latitude-from.Latitude)*ratio
	out.Altitude = from.Altitude + int(float64(to.Altitude-from.Altitude)*ratio)
	return out
}

// DefaultLocation is the location used when a configured location cannot be
// resolved.
var DefaultLocation = Location{
	Name:       "Paris",
	State:      "Paris",
	Country:    "France",
	PlanetName: "Earth",
	Longitude:  2.3522,
	Latitude:   48.8566,
	Altitude:   35,
	Population: 2141,
	Role:       'C',
}
