package core

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/skynav/model"
)

// ObserverKind tells a resting observer from one travelling between locations.
type ObserverKind int

const (
	// ObserverStatic stays at a fixed location.
	ObserverStatic ObserverKind = iota
	// ObserverTransitioning moves from one location to another over a fixed
	// number of real seconds.
	ObserverTransitioning
)

func (k ObserverKind) String() string {
	switch k {
	case ObserverStatic:
		return "static"
	case ObserverTransitioning:
		return "transitioning"
	default:
		return "unknown"
	}
}

// latitudeLimit keeps the alt-az basis defined at the geographic poles.
const latitudeLimit = 90 - 1e-5

// Observer is the navigator's viewpoint: a location on a body, optionally in
// transit toward another one. The navigator replaces the whole value when the
// observer moves or a transit completes.
type Observer struct {
	kind ObserverKind
	eph  Ephemeris

	current model.Location

	from, to          model.Location
	elapsed, duration float64 // real seconds
}

// NewStaticObserver returns an observer resting at loc.
func NewStaticObserver(loc model.Location, eph Ephemeris) *Observer {
	return &Observer{kind: ObserverStatic, eph: eph, current: loc}
}

// newTransitObserver returns an observer that travels from from to to over
// duration real seconds. A non-positive duration yields a static observer at
// to.
func newTransitObserver(from, to model.Location, duration float64, eph Ephemeris) *Observer {
	if duration <= 0 {
		return NewStaticObserver(to, eph)
	}
	return &Observer{
		kind:     ObserverTransitioning,
		eph:      eph,
		current:  from,
		from:     from,
		to:       to,
		duration: duration,
	}
}

// Kind reports whether the observer is resting or in transit.
func (o *Observer) Kind() ObserverKind { return o.kind }

// CurrentLocation returns where the observer is now. During a transit this is
// the interpolated location.
func (o *Observer) CurrentLocation() model.Location { return o.current }

// HomePlanet returns the name of the body the observer stands on.
func (o *Observer) HomePlanet() string { return o.current.PlanetName }

// Target returns the destination of a transit, or the current location of a
// static observer.
func (o *Observer) Target() model.Location {
	if o.kind == ObserverTransitioning {
		return o.to
	}
	return o.current
}

// Progress returns the transit completion ratio in [0, 1]; 1 when static.
func (o *Observer) Progress() float64 {
	if o.kind != ObserverTransitioning {
		return 1
	}
	return clamp(o.elapsed/o.duration, 0, 1)
}

// update advances a transit by dt real seconds.
func (o *Observer) update(dt float64) {
	if o.kind != ObserverTransitioning {
		return
	}
	o.elapsed += dt
	o.current = model.Interpolate(o.from, o.to, o.Progress())
}

// IsLifetimeOver reports whether the navigator should swap this observer for
// NextObserver. Static observers never expire.
func (o *Observer) IsLifetimeOver() bool {
	return o.kind == ObserverTransitioning && o.elapsed >= o.duration
}

// NextObserver returns the observer that replaces this one once its lifetime
// is over: a static observer at the transit target.
func (o *Observer) NextObserver() *Observer {
	if o.kind != ObserverTransitioning {
		return o
	}
	return NewStaticObserver(o.to, o.eph)
}

// RotAltAzToEquOfDate returns the rotation from the local alt-azimuthal frame
// to the home body's equatorial frame of date at jd.
func (o *Observer) RotAltAzToEquOfDate(jd float64) mgl64.Mat4 {
	lat := clamp(o.current.Latitude, -latitudeLimit, latitudeLimit)
	spin := o.eph.SiderealTime(jd, o.HomePlanet()) + o.current.Longitude
	return mgl64.HomogRotate3DZ(mgl64.DegToRad(spin)).
		Mul4(mgl64.HomogRotate3DY(mgl64.DegToRad(90 - lat)))
}

// RotEquatorialToEcliptic returns the rotation from the home body's
// equatorial frame of date to the heliocentric ecliptic (VSOP87) frame.
func (o *Observer) RotEquatorialToEcliptic() mgl64.Mat4 {
	return o.eph.RotEquatorialToEcliptic(o.HomePlanet())
}

// CenterEclipticPos returns the heliocentric ecliptic position of the home
// body's centre, in AU. A transit between bodies blends the two positions.
func (o *Observer) CenterEclipticPos() mgl64.Vec3 {
	if o.kind == ObserverTransitioning && !o.from.SamePlanet(o.to) {
		a := o.eph.HeliocentricEclipticPos(o.from.PlanetName)
		b := o.eph.HeliocentricEclipticPos(o.to.PlanetName)
		return a.Add(b.Sub(a).Mul(o.Progress()))
	}
	return o.eph.HeliocentricEclipticPos(o.HomePlanet())
}

// DistanceFromCenter returns the observer's distance from the home body's
// centre in AU: the body radius plus the location's altitude.
func (o *Observer) DistanceFromCenter() float64 {
	radius := o.eph.Radius(o.HomePlanet())
	if o.kind == ObserverTransitioning && !o.from.SamePlanet(o.to) {
		a := o.eph.Radius(o.from.PlanetName)
		b := o.eph.Radius(o.to.PlanetName)
		radius = a + (b-a)*o.Progress()
	}
	return radius + float64(o.current.Altitude)/(1000*AUKm)
}
