// Package ephem is a small, low-precision ephemeris built on mean Keplerian
// elements. It serves the navigator's needs (body positions, orientation and
// sidereal time) without attempting VSOP87-grade accuracy.
package ephem

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	satellite "github.com/joshuaferrara/go-satellite"
)

// lightTimeDaysPerAU is the one-way light travel time across 1 AU, in days.
const lightTimeDaysPerAU = 499.004783836 / 86400.0

// bodyState is the per-body cache filled by ComputePositions.
type bodyState struct {
	info     *BodyInfo
	position mgl64.Vec3 // heliocentric ecliptic, AU
	apparent mgl64.Vec3 // light-time corrected as seen from the observer
	rotation mgl64.Mat4 // equatorial -> ecliptic
}

// SolarSystem holds a set of bodies and their positions at the last computed
// Julian day. It is safe for concurrent use.
type SolarSystem struct {
	mu     sync.RWMutex
	jd     float64
	order  []string
	bodies map[string]*bodyState
}

// NewSolarSystem returns a solar system with the default planets plus the
// barycentric pseudo-body, with positions computed at jd.
func NewSolarSystem(jd float64) *SolarSystem {
	ss := &SolarSystem{bodies: make(map[string]*bodyState, len(defaultBodies))}
	for i := range defaultBodies {
		info := defaultBodies[i]
		ss.order = append(ss.order, info.Name)
		ss.bodies[key(info.Name)] = &bodyState{info: &info, rotation: mgl64.Ident4()}
	}
	ss.ComputePositions(jd, mgl64.Vec3{})
	return ss
}

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Bodies returns the body names in declaration order.
func (ss *SolarSystem) Bodies() []string {
	return append([]string(nil), ss.order...)
}

// HasBody reports whether name is a known body.
func (ss *SolarSystem) HasBody(name string) bool {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	_, ok := ss.bodies[key(name)]
	return ok
}

// Info returns the static description of a body.
func (ss *SolarSystem) Info(name string) (BodyInfo, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	b, ok := ss.bodies[key(name)]
	if !ok {
		return BodyInfo{}, fmt.Errorf("body %q: %w", name, ErrUnknownBody)
	}
	return *b.info, nil
}

// IsSolarSystemBarycenter reports whether name is the barycentric pseudo-body.
func (ss *SolarSystem) IsSolarSystemBarycenter(name string) bool {
	return key(name) == key(SolarSystemObserver)
}

// JulianDay returns the day of the last ComputePositions call.
func (ss *SolarSystem) JulianDay() float64 {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.jd
}

// ComputePositions recomputes every body's heliocentric position and
// orientation at jd, and the light-time corrected position of each body as
// seen from observerPos (heliocentric ecliptic, AU).
func (ss *SolarSystem) ComputePositions(jd float64, observerPos mgl64.Vec3) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	ss.jd = jd
	for _, b := range ss.bodies {
		b.position = positionAt(b.info, jd)
		b.rotation = rotationAt(b.info, jd)
	}
	for _, b := range ss.bodies {
		if b.info.orbit == nil {
			b.apparent = b.position
			continue
		}
		dist := b.position.Sub(observerPos).Len()
		b.apparent = positionAt(b.info, jd-dist*lightTimeDaysPerAU)
	}
}

// HeliocentricEclipticPos returns the body's heliocentric position in AU at
// the last computed day. Unknown bodies sit at the origin.
func (ss *SolarSystem) HeliocentricEclipticPos(name string) mgl64.Vec3 {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	if b, ok := ss.bodies[key(name)]; ok {
		return b.position
	}
	return mgl64.Vec3{}
}

// ApparentHeliocentricPos is HeliocentricEclipticPos corrected for the light
// travel time to the observer given to the last ComputePositions call.
func (ss *SolarSystem) ApparentHeliocentricPos(name string) mgl64.Vec3 {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	if b, ok := ss.bodies[key(name)]; ok {
		return b.apparent
	}
	return mgl64.Vec3{}
}

// RotEquatorialToEcliptic returns the rotation from the body's equatorial
// frame of date to the heliocentric ecliptic frame.
func (ss *SolarSystem) RotEquatorialToEcliptic(name string) mgl64.Mat4 {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	if b, ok := ss.bodies[key(name)]; ok {
		return b.rotation
	}
	return mgl64.Ident4()
}

// Radius returns the equatorial radius in AU.
func (ss *SolarSystem) Radius(name string) float64 {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	if b, ok := ss.bodies[key(name)]; ok {
		return b.info.RadiusKm / AUKm
	}
	return 0
}

// SiderealDay returns the length of the body's sidereal day in Julian days.
func (ss *SolarSystem) SiderealDay(name string) float64 {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	if b, ok := ss.bodies[key(name)]; ok {
		return b.info.rotation.Period
	}
	return 1
}

// SiderealTime returns the rotation angle of the body's prime meridian at jd,
// in degrees. For the Earth this is Greenwich mean sidereal time.
func (ss *SolarSystem) SiderealTime(jd float64, name string) float64 {
	ss.mu.RLock()
	b, ok := ss.bodies[key(name)]
	ss.mu.RUnlock()
	if !ok || ss.IsSolarSystemBarycenter(name) {
		return 0
	}
	if key(name) == key(Earth) {
		return mgl64.RadToDeg(satellite.ThetaG_JD(jd))
	}

	rot := b.info.rotation
	rotations := (jd - 2451545.0) / rot.Period
	remainder := rotations - math.Floor(rotations)
	return remainder*360 + rot.Offset
}

func positionAt(info *BodyInfo, jd float64) mgl64.Vec3 {
	if info.orbit == nil {
		return mgl64.Vec3{}
	}
	return info.orbit.heliocentricPosition(jd)
}

func rotationAt(info *BodyInfo, jd float64) mgl64.Mat4 {
	rot := info.rotation
	node := rot.AscendingNode - rot.PrecessionRate*(jd-2451545.0)
	return mgl64.HomogRotate3DZ(mgl64.DegToRad(node)).
		Mul4(mgl64.HomogRotate3DX(mgl64.DegToRad(-rot.Obliquity)))
}
