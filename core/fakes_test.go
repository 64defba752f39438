package core

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/skynav/model"
	"github.com/signalsfoundry/skynav/settings"
	"github.com/signalsfoundry/skynav/timectrl"
)

const barycenter = "Solar System Observer"

type fakeBody struct {
	pos         mgl64.Vec3
	radiusAU    float64
	siderealDay float64
	rot         mgl64.Mat4
	velocity    mgl64.Vec3 // AU per day from J2000; zero keeps the body fixed
}

type computeCall struct {
	jd  float64
	pos mgl64.Vec3
}

type fakeEphemeris struct {
	bodies map[string]fakeBody
	calls  []computeCall
	jd     float64 // epoch of the last ComputePositions
}

func newFakeEphemeris() *fakeEphemeris {
	return &fakeEphemeris{bodies: map[string]fakeBody{
		"earth": {
			pos:         mgl64.Vec3{-0.18, 0.97, 0},
			radiusAU:    6378.137 / AUKm,
			siderealDay: 0.99727,
			rot:         J2000ToVSOP87,
		},
		"mars": {
			pos:         mgl64.Vec3{1.39, -0.02, -0.03},
			radiusAU:    3396.19 / AUKm,
			siderealDay: 1.02596,
			rot:         mgl64.HomogRotate3DX(mgl64.DegToRad(-25.19)),
		},
		"jupiter": {
			pos:         mgl64.Vec3{4.0, 2.9, -0.1},
			radiusAU:    71492 / AUKm,
			siderealDay: 0.41354,
			rot:         mgl64.HomogRotate3DX(mgl64.DegToRad(-3.13)),
		},
		strings.ToLower(barycenter): {
			rot:         mgl64.Ident4(),
			siderealDay: 0,
		},
	}}
}

func (f *fakeEphemeris) body(name string) fakeBody {
	b, ok := f.bodies[strings.ToLower(name)]
	if !ok {
		panic(fmt.Sprintf("fake ephemeris: unknown body %q", name))
	}
	return b
}

func (f *fakeEphemeris) SiderealTime(jd float64, body string) float64 {
	if f.IsSolarSystemBarycenter(body) {
		return 0
	}
	turns := (jd - timectrl.J2000) / f.body(body).siderealDay
	return 360 * (turns - math.Floor(turns))
}

func (f *fakeEphemeris) SiderealDay(body string) float64 { return f.body(body).siderealDay }

func (f *fakeEphemeris) HeliocentricEclipticPos(body string) mgl64.Vec3 {
	b := f.body(body)
	if f.jd == 0 {
		return b.pos
	}
	return b.pos.Add(b.velocity.Mul(f.jd - timectrl.J2000))
}

func (f *fakeEphemeris) RotEquatorialToEcliptic(body string) mgl64.Mat4 { return f.body(body).rot }

func (f *fakeEphemeris) Radius(body string) float64 { return f.body(body).radiusAU }

func (f *fakeEphemeris) HasBody(body string) bool {
	_, ok := f.bodies[strings.ToLower(body)]
	return ok
}

func (f *fakeEphemeris) IsSolarSystemBarycenter(body string) bool {
	return strings.EqualFold(body, barycenter)
}

func (f *fakeEphemeris) ComputePositions(jd float64, observerPos mgl64.Vec3) {
	f.calls = append(f.calls, computeCall{jd: jd, pos: observerPos})
	f.jd = jd
}

type fakeLocations map[string]model.Location

func (f fakeLocations) Resolve(id string) (model.Location, error) {
	loc, ok := f[id]
	if !ok {
		return model.Location{}, fmt.Errorf("location %q: not found", id)
	}
	return loc, nil
}

var (
	paris      = model.Location{Name: "Paris", State: "Paris", Country: "France", PlanetName: "Earth", Longitude: 2.35, Latitude: 48.85, Altitude: 35}
	tokyo      = model.Location{Name: "Tokyo", State: "Tokyo", Country: "Japan", PlanetName: "Earth", Longitude: 139.69, Latitude: 35.69, Altitude: 40}
	galeCrater = model.Location{Name: "Gale Crater", State: "Aeolis", Country: "Mars", PlanetName: "Mars", Longitude: 137.4, Latitude: -5.4, Altitude: -4500}
	baryLoc    = model.Location{Name: "Barycenter", PlanetName: barycenter}
)

func testLocations() fakeLocations {
	locs := fakeLocations{}
	for _, l := range []model.Location{paris, tokyo, galeCrater, baryLoc} {
		locs[l.ID()] = l
	}
	return locs
}

type fakeSelection struct {
	body    string
	cleared int
}

func (s *fakeSelection) IsAnySelected() bool  { return s.body != "" }
func (s *fakeSelection) SelectedBody() string { return s.body }
func (s *fakeSelection) ClearSelection() {
	s.body = ""
	s.cleared++
}

type fakeMovement struct {
	calls    int
	tracking bool
}

func (m *fakeMovement) SetTrackingEnabled(enabled bool) {
	m.calls++
	m.tracking = enabled
}

type fakeMetrics struct {
	ticks    int
	moves    int
	animated int
	arrivals int
	lastJD   float64
}

func (m *fakeMetrics) ObserveTick(jd, rate float64, realTime bool, d time.Duration) {
	m.ticks++
	m.lastJD = jd
}

func (m *fakeMetrics) ObserverMoved(animated bool) {
	m.moves++
	if animated {
		m.animated++
	}
}

func (m *fakeMetrics) ObserverArrived() { m.arrivals++ }

var testNow = time.Date(2024, time.March, 10, 15, 0, 0, 0, time.UTC)

func fixedWall() time.Time { return testNow }

func testConfig() settings.Config {
	cfg := settings.Default()
	cfg.LocationID = paris.ID()
	return cfg
}

func newTestNavigator(cfg settings.Config, opts ...Option) (*Navigator, *fakeEphemeris, error) {
	eph := newFakeEphemeris()
	opts = append([]Option{WithWallClock(fixedWall), WithTimeZone(time.UTC)}, opts...)
	nav, err := NewNavigator(cfg, eph, testLocations(), opts...)
	return nav, eph, err
}

// vecClose compares component-wise with an absolute tolerance.
func vecClose(a, b mgl64.Vec3, tol float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}
