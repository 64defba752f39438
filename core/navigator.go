package core

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/skynav/internal/logging"
	"github.com/signalsfoundry/skynav/model"
	"github.com/signalsfoundry/skynav/settings"
	"github.com/signalsfoundry/skynav/timectrl"
)

// Default transit durations, in real seconds, used by MoveObserverToSelected.
const (
	DefaultMoveDuration             = 1.0
	DefaultMoveDurationPlanetChange = 1.0
)

// Frame names accepted by SetVisionDirection.
const (
	FrameAltAz      = "altaz"
	FrameEquatorial = "equatorial"
	FrameJ2000      = "j2000"
)

// defaultVision is the direction the view starts from before the configured
// initial direction is applied.
var defaultVision = mgl64.Vec3{1, 1e-05, 0.2}

// Navigator owns the simulated time, the observer and the coordinate frames
// derived from them. It is not safe for concurrent use: the host calls it from
// a single goroutine, one operation at a time.
type Navigator struct {
	log       logging.Logger
	eph       Ephemeris
	locs      LocationResolver
	selection Selection
	movement  Movement
	settings  SettingsWriter
	metrics   MetricsRecorder
	wall      timectrl.WallClock
	tz        *time.Location

	cfg settings.Config

	clock    *timectrl.SimulatedClock
	observer *Observer

	mount     MountMode
	vision    VisionDirection
	matrices  TransformMatrices
	view      mgl64.Mat4
	viewRight mgl64.Vec3

	listeners      []locationListener
	nextListenerID int
}

type locationListener struct {
	id int
	fn func(model.Location)
}

// NewNavigator builds a navigator from cfg. The configured location is
// resolved through locs; an unknown location falls back to
// model.DefaultLocation with a warning. An unknown viewing mode is an error.
func NewNavigator(cfg settings.Config, eph Ephemeris, locs LocationResolver, opts ...Option) (*Navigator, error) {
	if eph == nil {
		return nil, fmt.Errorf("navigator: ephemeris is required")
	}
	n := &Navigator{
		log:  logging.Noop(),
		eph:  eph,
		locs: locs,
		wall: time.Now,
		tz:   time.Local,
		cfg:  cfg,
		view: mgl64.Ident4(),
	}
	for _, opt := range opts {
		opt(n)
	}
	ctx := context.Background()

	loc := model.DefaultLocation
	if locs != nil {
		resolved, err := locs.Resolve(cfg.LocationID)
		if err != nil {
			n.log.Warn(ctx, "unknown default location, falling back",
				logging.String("location", cfg.LocationID),
				logging.String("fallback", loc.ID()),
				logging.String("error", err.Error()))
		} else {
			loc = resolved
		}
	}
	n.observer = NewStaticObserver(loc, eph)

	n.clock = timectrl.NewSimulatedClock(n.wall)
	n.SetTimeNow()

	n.eph.ComputePositions(n.clock.JulianDay(), n.observer.CenterEclipticPos())
	n.UpdateTransformMatrices()
	n.SetAltAzVisionDirection(defaultVision)

	mount, err := ParseMountMode(cfg.ViewingMode)
	if err != nil {
		return nil, err
	}
	n.mount = mount

	n.SetAltAzVisionDirection(cfg.InitViewPos)

	switch cfg.StartupTimeMode {
	case settings.StartupPreset:
		preset := cfg.PresetSkyTime
		n.SetJulianDay(preset - timectrl.GMTShift(preset, n.tz)*timectrl.JDHour)
	case settings.StartupToday:
		n.SetTodayTime(cfg.TodayTime)
	case settings.StartupActual, "":
	default:
		return nil, fmt.Errorf("%s %q: %w", settings.KeyStartupTimeMode, cfg.StartupTimeMode, settings.ErrUnknownStartupMode)
	}

	n.Refresh()

	n.log.Info(ctx, "navigator initialised",
		logging.String("location", loc.ID()),
		logging.String("planet", loc.PlanetName),
		logging.String("mount", n.mount.String()),
		logging.String("startup_time_mode", string(cfg.StartupTimeMode)),
		logging.Any("julian_day", n.clock.JulianDay()))
	return n, nil
}

// ---- time ----

// JulianDay returns the simulated Julian day.
func (n *Navigator) JulianDay() float64 { return n.clock.JulianDay() }

// TimeRate returns the time rate in Julian days per real second.
func (n *Navigator) TimeRate() float64 { return n.clock.Rate() }

// SetJulianDay sets the simulated time; out-of-range values are clamped.
func (n *Navigator) SetJulianDay(jd float64) { n.clock.SetJulianDay(jd) }

// SetTimeRate sets the time rate. Zero pauses, negative runs backward.
func (n *Navigator) SetTimeRate(rate float64) { n.clock.SetRate(rate) }

// SetTimeNow sets the simulated time to the real-world current instant.
func (n *Navigator) SetTimeNow() { n.clock.SetNow() }

// SetTodayTime sets the simulated time to today's local date at tod. An
// invalid time of day logs a warning and falls back to SetTimeNow.
func (n *Navigator) SetTodayTime(tod timectrl.TimeOfDay) {
	if !tod.Valid() {
		n.log.Warn(context.Background(), "invalid today time, using current time",
			logging.String("today_time", tod.String()))
		n.SetTimeNow()
		return
	}
	now := n.wall()
	nowJD := timectrl.JulianDayFromTime(now)
	local := now.In(n.tz)
	wall := time.Date(local.Year(), local.Month(), local.Day(), tod.Hour, tod.Minute, tod.Second, 0, time.UTC)
	n.SetJulianDay(timectrl.JulianDayFromTime(wall) - timectrl.GMTShift(nowJD, n.tz)*timectrl.JDHour)
}

// AddSolarDays moves the simulated time by d solar days.
func (n *Navigator) AddSolarDays(d float64) { n.clock.AddDays(d) }

// AddSiderealDays moves the simulated time by d sidereal days of the home
// body. The solar-system barycenter has no rotation, so its days are solar.
func (n *Navigator) AddSiderealDays(d float64) {
	home := n.observer.HomePlanet()
	if !n.eph.IsSolarSystemBarycenter(home) {
		d *= n.eph.SiderealDay(home)
	}
	n.clock.AddDays(d)
}

// IncreaseTimeSpeed multiplies the rate by ten, snapping through zero.
func (n *Navigator) IncreaseTimeSpeed() { n.clock.IncreaseRate(10) }

// DecreaseTimeSpeed divides the rate by ten, snapping through zero.
func (n *Navigator) DecreaseTimeSpeed() { n.clock.DecreaseRate(10) }

// IncreaseTimeSpeedLess is IncreaseTimeSpeed with a factor of two.
func (n *Navigator) IncreaseTimeSpeedLess() { n.clock.IncreaseRate(2) }

// DecreaseTimeSpeedLess is DecreaseTimeSpeed with a factor of two.
func (n *Navigator) DecreaseTimeSpeedLess() { n.clock.DecreaseRate(2) }

// IsRealTime reports whether the simulated time is within a second of now.
func (n *Navigator) IsRealTime() bool { return n.clock.IsRealTime() }

// AdvanceTime is the per-frame update. dt is the real time elapsed since the
// previous call, in seconds.
func (n *Navigator) AdvanceTime(dt float64) {
	start := time.Now()

	n.clock.Advance(dt)

	if n.observer.IsLifetimeOver() {
		outgoing := n.observer.HomePlanet()
		if n.selection != nil && n.selection.IsAnySelected() &&
			strings.EqualFold(n.selection.SelectedBody(), outgoing) {
			n.selection.ClearSelection()
		}
		n.observer = n.observer.NextObserver()
		if n.metrics != nil {
			n.metrics.ObserverArrived()
		}
		n.log.Debug(context.Background(), "observer arrived",
			logging.String("location", n.observer.CurrentLocation().ID()))
	}
	n.observer.update(dt)

	n.eph.ComputePositions(n.clock.JulianDay(), n.observer.CenterEclipticPos())
	n.UpdateTransformMatrices()
	n.refreshVision()

	if n.metrics != nil {
		n.metrics.ObserveTick(n.clock.JulianDay(), n.clock.Rate(), n.clock.IsRealTime(), time.Since(start))
	}
}

// Refresh recomputes body positions, frames and vision caches for the
// current time and observer without advancing anything.
func (n *Navigator) Refresh() {
	n.eph.ComputePositions(n.clock.JulianDay(), n.observer.CenterEclipticPos())
	n.UpdateTransformMatrices()
	n.refreshVision()
}

// UpdateTransformMatrices rebuilds every time- and observer-dependent matrix.
func (n *Navigator) UpdateTransformMatrices() {
	n.matrices = deriveTransformMatrices(n.clock.JulianDay(), n.observer)
}

// refreshVision re-derives the three vision frames from the frame the mount
// holds still, then the view matrix.
func (n *Navigator) refreshVision() {
	if n.mount == MountEquatorial {
		n.SetEquatorialVisionDirection(n.vision.EquOfDate)
		return
	}
	n.SetAltAzVisionDirection(n.vision.AltAz)
}

// ---- observer ----

// Observer returns the current observer. Callers must not retain it across
// navigator calls.
func (n *Navigator) Observer() *Observer { return n.observer }

// CurrentLocation returns the observer's current (possibly interpolated)
// location.
func (n *Navigator) CurrentLocation() model.Location { return n.observer.CurrentLocation() }

// HomePlanet returns the body the observer currently stands on.
func (n *Navigator) HomePlanet() string { return n.observer.HomePlanet() }

// MoveObserverTo starts moving the observer to target. duration applies when
// target is on the current body, durationIfPlanetChange otherwise; both are
// real seconds. A non-positive duration moves the observer immediately.
// Listeners registered with OnLocationChanged are told once per call.
func (n *Navigator) MoveObserverTo(target model.Location, duration, durationIfPlanetChange float64) {
	current := n.observer.CurrentLocation()
	d := duration
	if !current.SamePlanet(target) {
		d = durationIfPlanetChange
	}

	if d > 0 {
		n.observer = newTransitObserver(current, target, d, n.eph)
	} else {
		n.observer = NewStaticObserver(target, n.eph)
	}
	if n.metrics != nil {
		n.metrics.ObserverMoved(d > 0)
	}
	n.log.Info(context.Background(), "observer moving",
		logging.String("from", current.ID()),
		logging.String("to", target.ID()),
		logging.String("planet", target.PlanetName),
		logging.Any("duration_s", math.Max(d, 0)))

	n.emitLocationChanged(target)
}

// MoveObserverToSelected moves the observer onto the selected body, keeping
// its longitude, latitude and altitude. Tracking is always switched off.
func (n *Navigator) MoveObserverToSelected() error {
	if n.movement != nil {
		defer n.movement.SetTrackingEnabled(false)
	}
	if n.selection == nil || !n.selection.IsAnySelected() {
		return ErrNothingSelected
	}
	body := n.selection.SelectedBody()
	if body == "" || !n.eph.HasBody(body) {
		return fmt.Errorf("%q: %w", body, ErrNotABody)
	}
	loc := n.observer.CurrentLocation()
	loc.PlanetName = body
	loc.Name = "-"
	loc.State = ""
	n.MoveObserverTo(loc, DefaultMoveDuration, DefaultMoveDurationPlanetChange)
	return nil
}

// OnLocationChanged registers fn to be called with the target of every
// MoveObserverTo. It returns a function that removes the registration.
func (n *Navigator) OnLocationChanged(fn func(model.Location)) (unsubscribe func()) {
	n.nextListenerID++
	id := n.nextListenerID
	n.listeners = append(n.listeners, locationListener{id: id, fn: fn})
	return func() {
		for i, l := range n.listeners {
			if l.id == id {
				n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
				return
			}
		}
	}
}

func (n *Navigator) emitLocationChanged(loc model.Location) {
	for _, l := range append([]locationListener(nil), n.listeners...) {
		l.fn(loc)
	}
}

// ---- mount and vision ----

// MountMode returns the current mount mode.
func (n *Navigator) MountMode() MountMode { return n.mount }

// SetMountMode switches the frame the view is stabilised in.
func (n *Navigator) SetMountMode(m MountMode) {
	n.mount = m
	n.refreshVision()
}

// ToggleMountMode switches between alt-azimuthal and equatorial mounts.
func (n *Navigator) ToggleMountMode() {
	if n.mount == MountEquatorial {
		n.SetMountMode(MountAltAzimuthal)
		return
	}
	n.SetMountMode(MountEquatorial)
}

// VisionDirection returns the current viewing direction in all three frames.
func (n *Navigator) VisionDirection() VisionDirection { return n.vision }

// AltAzVisionDirection returns the viewing direction in the alt-az frame.
func (n *Navigator) AltAzVisionDirection() mgl64.Vec3 { return n.vision.AltAz }

// EquatorialVisionDirection returns the viewing direction in the equatorial
// frame of date.
func (n *Navigator) EquatorialVisionDirection() mgl64.Vec3 { return n.vision.EquOfDate }

// J2000VisionDirection returns the viewing direction in the J2000 frame.
func (n *Navigator) J2000VisionDirection() mgl64.Vec3 { return n.vision.J2000 }

// SetAltAzVisionDirection sets the viewing direction from an alt-az vector.
func (n *Navigator) SetAltAzVisionDirection(v mgl64.Vec3) {
	n.vision.AltAz = v
	n.vision.EquOfDate = n.matrices.AltAzToEquOfDateDir(v)
	n.vision.J2000 = n.matrices.EquOfDateToJ2000Dir(n.vision.EquOfDate)
	n.updateViewMatrix()
}

// SetEquatorialVisionDirection sets the viewing direction from a vector in
// the equatorial frame of date.
func (n *Navigator) SetEquatorialVisionDirection(v mgl64.Vec3) {
	n.vision.EquOfDate = v
	n.vision.AltAz = n.matrices.EquOfDateToAltAzDir(v)
	n.vision.J2000 = n.matrices.EquOfDateToJ2000Dir(v)
	n.updateViewMatrix()
}

// SetJ2000VisionDirection sets the viewing direction from a J2000 vector.
func (n *Navigator) SetJ2000VisionDirection(v mgl64.Vec3) {
	n.vision.J2000 = v
	n.vision.EquOfDate = n.matrices.J2000ToEquOfDateDir(v)
	n.vision.AltAz = n.matrices.EquOfDateToAltAzDir(n.vision.EquOfDate)
	n.updateViewMatrix()
}

// SetVisionDirection dispatches on a frame name (FrameAltAz, FrameEquatorial
// or FrameJ2000).
func (n *Navigator) SetVisionDirection(frame string, v mgl64.Vec3) error {
	switch strings.ToLower(frame) {
	case FrameAltAz:
		n.SetAltAzVisionDirection(v)
	case FrameEquatorial:
		n.SetEquatorialVisionDirection(v)
	case FrameJ2000:
		n.SetJ2000VisionDirection(v)
	default:
		return fmt.Errorf("%q: %w", frame, ErrUnknownFrame)
	}
	return nil
}

func (n *Navigator) updateViewMatrix() {
	n.view, n.viewRight = buildViewMatrix(n.vision, n.mount, &n.matrices, n.viewRight)
}

// ---- persisted settings ----

// SetDefaultLocationID makes id the startup location. It must resolve.
func (n *Navigator) SetDefaultLocationID(id string) error {
	if n.locs == nil {
		return fmt.Errorf("set default location %q: no location registry", id)
	}
	if _, err := n.locs.Resolve(id); err != nil {
		return fmt.Errorf("set default location: %w", err)
	}
	n.cfg.LocationID = id
	return n.persist(settings.KeyInitLocation, id)
}

// SetInitViewDirectionToCurrent stores the current alt-az direction as the
// startup view direction.
func (n *Navigator) SetInitViewDirectionToCurrent() error {
	n.cfg.InitViewPos = n.vision.AltAz
	return n.persist(settings.KeyInitViewPos, settings.FormatVec3(n.vision.AltAz))
}

// SetStartupTimeMode sets how the time is chosen at the next startup.
func (n *Navigator) SetStartupTimeMode(mode settings.StartupTimeMode) error {
	switch mode {
	case settings.StartupActual, settings.StartupPreset, settings.StartupToday:
	default:
		return fmt.Errorf("%q: %w", mode, settings.ErrUnknownStartupMode)
	}
	n.cfg.StartupTimeMode = mode
	return n.persist(settings.KeyStartupTimeMode, string(mode))
}

// SetPresetSkyTime sets the wall Julian day used by the preset startup mode.
func (n *Navigator) SetPresetSkyTime(jd float64) error {
	n.cfg.PresetSkyTime = jd
	return n.persist(settings.KeyPresetSkyTime, strconv.FormatFloat(jd, 'f', -1, 64))
}

// SetInitTodayTime sets the time of day used by the today startup mode.
func (n *Navigator) SetInitTodayTime(tod timectrl.TimeOfDay) error {
	if !tod.Valid() {
		return fmt.Errorf("today time %s: %w", tod, timectrl.ErrInvalidTimeOfDay)
	}
	n.cfg.TodayTime = tod
	return n.persist(settings.KeyTodayTime, tod.String())
}

// Config returns the in-memory copy of the persisted configuration.
func (n *Navigator) Config() settings.Config { return n.cfg }

func (n *Navigator) persist(key, value string) error {
	if n.settings == nil {
		return nil
	}
	if err := n.settings.Set(key, value); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

// ---- derived accessors ----

// Matrices returns the current transform matrices.
func (n *Navigator) Matrices() TransformMatrices { return n.matrices }

// ViewMatrix returns the alt-az to view-space rotation.
func (n *Navigator) ViewMatrix() mgl64.Mat4 { return n.view }

// ObserverHeliocentricEclipticPos returns the observer's own heliocentric
// ecliptic position in AU.
func (n *Navigator) ObserverHeliocentricEclipticPos() mgl64.Vec3 {
	return translation(n.matrices.AltAzToHelioEcliptic)
}

// LocalSiderealTime returns the local sidereal time in radians.
func (n *Navigator) LocalSiderealTime() float64 {
	st := n.eph.SiderealTime(n.clock.JulianDay(), n.observer.HomePlanet())
	return mgl64.DegToRad(st + n.observer.CurrentLocation().Longitude)
}

// LocalSiderealDayLength returns the home body's sidereal day in solar days.
func (n *Navigator) LocalSiderealDayLength() float64 {
	return n.eph.SiderealDay(n.observer.HomePlanet())
}
