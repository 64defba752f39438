package core

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/skynav/model"
)

// Ephemeris provides the solar-system data the navigator needs. Positions are
// heliocentric ecliptic (VSOP87 frame) in AU; angles are in degrees.
type Ephemeris interface {
	// SiderealTime returns the rotation angle of body at jd, in degrees.
	SiderealTime(jd float64, body string) float64
	// SiderealDay returns the sidereal rotation period of body in solar days.
	SiderealDay(body string) float64
	HeliocentricEclipticPos(body string) mgl64.Vec3
	// RotEquatorialToEcliptic maps body's equatorial frame to VSOP87.
	RotEquatorialToEcliptic(body string) mgl64.Mat4
	// Radius returns the body's equatorial radius in AU.
	Radius(body string) float64
	HasBody(body string) bool
	IsSolarSystemBarycenter(body string) bool
	// ComputePositions recomputes every body for jd, as seen from observerPos.
	ComputePositions(jd float64, observerPos mgl64.Vec3)
}

// LocationResolver turns a small-string location ID into a Location.
type LocationResolver interface {
	Resolve(id string) (model.Location, error)
}

// Selection is the externally owned "currently selected object".
type Selection interface {
	IsAnySelected() bool
	// SelectedBody returns the name of the selected body, or "" when the
	// selection is not a solar-system body.
	SelectedBody() string
	ClearSelection()
}

// Movement is the view-movement collaborator. The navigator only turns
// tracking on when it moves the observer to a selected object.
type Movement interface {
	SetTrackingEnabled(enabled bool)
}

// SettingsWriter persists an option.
type SettingsWriter interface {
	Set(key, value string) error
}

// MetricsRecorder receives navigator activity.
type MetricsRecorder interface {
	ObserveTick(julianDay, timeRate float64, realTime bool, d time.Duration)
	ObserverMoved(animated bool)
	ObserverArrived()
}
