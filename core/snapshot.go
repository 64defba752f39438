package core

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/skynav/model"
	"github.com/signalsfoundry/skynav/timectrl"
)

// Snapshot is a value copy of the navigator state visible to other goroutines.
type Snapshot struct {
	JulianDay float64        `json:"julian_day"`
	UTC       string         `json:"utc"`
	TimeRate  float64        `json:"time_rate"`
	RealTime  bool           `json:"real_time"`
	Mount     string         `json:"mount"`
	Location  model.Location `json:"location"`
	Observer  string         `json:"observer"`
	Transit   float64        `json:"transit_progress"`

	VisionAltAz     mgl64.Vec3 `json:"vision_altaz"`
	VisionEquOfDate mgl64.Vec3 `json:"vision_equ_of_date"`
	VisionJ2000     mgl64.Vec3 `json:"vision_j2000"`
	ViewAltDeg      float64    `json:"view_alt_deg"`
	ViewAzDeg       float64    `json:"view_az_deg"`

	ViewMatrix        mgl64.Mat4 `json:"view_matrix"`
	ObserverHelioPos  mgl64.Vec3 `json:"observer_helio_pos"`
	LocalSiderealTime float64    `json:"local_sidereal_time"`
	SiderealDayLength float64    `json:"sidereal_day_length"`
}

// Snapshot copies the current state.
func (n *Navigator) Snapshot() Snapshot {
	alt, az := AltAzFromVector(n.vision.AltAz)
	return Snapshot{
		JulianDay:         n.clock.JulianDay(),
		UTC:               timectrl.TimeFromJulianDay(n.clock.JulianDay()).Format("2006-01-02T15:04:05.000Z07:00"),
		TimeRate:          n.clock.Rate(),
		RealTime:          n.clock.IsRealTime(),
		Mount:             n.mount.ViewingMode(),
		Location:          n.observer.CurrentLocation(),
		Observer:          n.observer.Kind().String(),
		Transit:           n.observer.Progress(),
		VisionAltAz:       n.vision.AltAz,
		VisionEquOfDate:   n.vision.EquOfDate,
		VisionJ2000:       n.vision.J2000,
		ViewAltDeg:        alt,
		ViewAzDeg:         az,
		ViewMatrix:        n.view,
		ObserverHelioPos:  n.ObserverHeliocentricEclipticPos(),
		LocalSiderealTime: n.LocalSiderealTime(),
		SiderealDayLength: n.LocalSiderealDayLength(),
	}
}
