package sim

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/signalsfoundry/skynav/core"
	"github.com/signalsfoundry/skynav/ephem"
	"github.com/signalsfoundry/skynav/kb"
	"github.com/signalsfoundry/skynav/settings"
	"github.com/signalsfoundry/skynav/timectrl"
)

var testWall = time.Date(2024, 3, 10, 21, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, tick time.Duration, opts ...EngineOption) (*Engine, *core.Navigator) {
	t.Helper()
	solar := ephem.NewSolarSystem(timectrl.JulianDayFromTime(testWall))
	sel := NewSelection()
	nav, err := core.NewNavigator(settings.Default(), solar, kb.NewWithBuiltins(),
		core.WithSelection(sel),
		core.WithMovement(sel),
		core.WithWallClock(func() time.Time { return testWall }),
		core.WithTimeZone(time.UTC))
	if err != nil {
		t.Fatalf("NewNavigator: %v", err)
	}
	tc := timectrl.NewTimeController(tick, timectrl.Fixed)
	return NewEngine(nav, sel, solar, tc, opts...), nav
}

// runEngine starts e and stops it when the test ends.
func runEngine(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Run returned %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Errorf("engine did not stop")
		}
	})
}

func waitForState(t *testing.T, ch <-chan State, cond func(State) bool) State {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case st, ok := <-ch:
			if !ok {
				t.Fatalf("subscription closed")
			}
			if cond(st) {
				return st
			}
		case <-timeout:
			t.Fatalf("timed out waiting for state")
		}
	}
}

func TestEngineInitialStateHasBodies(t *testing.T) {
	e, nav := newTestEngine(t, time.Millisecond)
	st := e.State()
	if st.JulianDay != nav.JulianDay() {
		t.Fatalf("state jd = %v, want %v", st.JulianDay, nav.JulianDay())
	}
	if st.Tick != 0 {
		t.Fatalf("tick = %d, want 0", st.Tick)
	}

	names := map[string]BodyView{}
	for _, b := range st.Bodies {
		names[b.Name] = b
	}
	if _, ok := names[ephem.Earth]; ok {
		t.Fatalf("home planet listed among bodies")
	}
	if _, ok := names[ephem.SolarSystemObserver]; ok {
		t.Fatalf("barycenter listed among bodies")
	}
	sun, ok := names[ephem.Sun]
	if !ok {
		t.Fatalf("Sun missing from %+v", st.Bodies)
	}
	if math.Abs(sun.DistanceAU-1) > 0.03 {
		t.Fatalf("Sun distance = %v AU, want about 1", sun.DistanceAU)
	}
	// 21:00 UTC in Paris in March: the Sun is below the horizon.
	if sun.AltDeg >= 0 {
		t.Fatalf("Sun altitude = %v, want negative at night", sun.AltDeg)
	}
}

func TestEngineStepAdvancesTimeAndPublishes(t *testing.T) {
	e, nav := newTestEngine(t, time.Millisecond)
	ch, cancel := e.Subscribe()
	defer cancel()
	<-ch

	start := nav.JulianDay()
	e.step(10 * time.Second)

	st := <-ch
	if st.Tick != 1 {
		t.Fatalf("tick = %d, want 1", st.Tick)
	}
	want := start + 10*timectrl.JDSecond
	if math.Abs(st.JulianDay-want) > 1e-9 {
		t.Fatalf("jd = %v, want %v", st.JulianDay, want)
	}
}

func TestEngineSlowSubscriberSeesLatest(t *testing.T) {
	e, _ := newTestEngine(t, time.Millisecond)
	ch, cancel := e.Subscribe()
	for i := 0; i < 5; i++ {
		e.step(time.Second)
	}
	st := <-ch
	if st.Tick != 5 {
		t.Fatalf("tick = %d, want latest 5", st.Tick)
	}
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("channel still open after cancel")
	}
	cancel()
}

func TestEngineRunDrivesTicks(t *testing.T) {
	e, _ := newTestEngine(t, time.Millisecond)
	ch, cancel := e.Subscribe()
	defer cancel()
	start := (<-ch).JulianDay

	runEngine(t, e)
	st := waitForState(t, ch, func(s State) bool { return s.Tick >= 3 })
	if st.JulianDay <= start {
		t.Fatalf("jd did not advance: %v <= %v", st.JulianDay, start)
	}
}

func TestEngineDoRunsOnEngineGoroutine(t *testing.T) {
	e, _ := newTestEngine(t, time.Hour)
	runEngine(t, e)

	ctx := context.Background()
	err := e.Do(ctx, "SetJulianDay", func(n *core.Navigator) error {
		n.SetJulianDay(timectrl.J2000)
		n.SetTimeRate(0)
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	st := e.State()
	if st.JulianDay != timectrl.J2000 || st.TimeRate != 0 {
		t.Fatalf("state = jd %v rate %v", st.JulianDay, st.TimeRate)
	}

	boom := errors.New("boom")
	if err := e.Do(ctx, "Fail", func(*core.Navigator) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Do error = %v, want boom", err)
	}
	err = e.Do(ctx, "Panic", func(*core.Navigator) error { panic("bad") })
	if err == nil || !strings.Contains(err.Error(), "panic") {
		t.Fatalf("Do after panic = %v", err)
	}
}

func TestEngineDoHonoursContext(t *testing.T) {
	e, _ := newTestEngine(t, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Do(ctx, "noop", func(*core.Navigator) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("Do with cancelled ctx = %v", err)
	}
}

func TestEngineDoAfterStop(t *testing.T) {
	e, _ := newTestEngine(t, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = e.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	if err := e.Do(context.Background(), "noop", func(*core.Navigator) error { return nil }); !errors.Is(err, ErrStopped) {
		t.Fatalf("Do after stop = %v, want ErrStopped", err)
	}
	if err := e.Run(context.Background()); err == nil {
		t.Fatalf("second Run succeeded")
	}
}

func TestEngineSelectAndMoveToSelected(t *testing.T) {
	e, nav := newTestEngine(t, time.Hour)
	runEngine(t, e)
	ctx := context.Background()

	if err := e.SelectBody(ctx, "Vulcan"); !errors.Is(err, ErrUnknownBody) {
		t.Fatalf("SelectBody(Vulcan) = %v", err)
	}
	if err := e.SelectBody(ctx, "mars"); err != nil {
		t.Fatalf("SelectBody: %v", err)
	}
	if st := e.State(); st.Selected != "mars" {
		t.Fatalf("selected = %q", st.Selected)
	}

	if err := e.Do(ctx, "MoveToSelected", (*core.Navigator).MoveObserverToSelected); err != nil {
		t.Fatalf("MoveToSelected: %v", err)
	}
	st := e.State()
	if st.Observer != core.ObserverTransitioning.String() {
		t.Fatalf("observer = %q, want transitioning", st.Observer)
	}

	// The hour-long tick never fires, so drive the transit through commands.
	for i := 0; i < 3; i++ {
		if err := e.Do(ctx, "advance", func(n *core.Navigator) error {
			n.AdvanceTime(0.6)
			return nil
		}); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	st = e.State()
	if !strings.EqualFold(st.Location.PlanetName, ephem.Mars) {
		t.Fatalf("planet = %q, want Mars", st.Location.PlanetName)
	}
	if st.Selected != "" {
		t.Fatalf("selection %q not cleared on arrival at the selected planet", st.Selected)
	}
	if nav.HomePlanet() != "mars" {
		t.Fatalf("home planet = %q", nav.HomePlanet())
	}
}

func TestEngineTrackingFollowsSelection(t *testing.T) {
	e, _ := newTestEngine(t, time.Hour)
	runEngine(t, e)
	ctx := context.Background()

	if err := e.SetTracking(ctx, true); !errors.Is(err, core.ErrNothingSelected) {
		t.Fatalf("SetTracking without selection = %v", err)
	}
	if err := e.SelectBody(ctx, ephem.Jupiter); err != nil {
		t.Fatalf("SelectBody: %v", err)
	}
	if err := e.SetTracking(ctx, true); err != nil {
		t.Fatalf("SetTracking: %v", err)
	}

	st := e.State()
	if !st.Tracking {
		t.Fatalf("tracking not reported")
	}
	var jupiter BodyView
	for _, b := range st.Bodies {
		if b.Name == ephem.Jupiter {
			jupiter = b
		}
	}
	if math.Abs(st.ViewAltDeg-jupiter.AltDeg) > 1e-6 {
		t.Fatalf("view alt = %v, want Jupiter's %v", st.ViewAltDeg, jupiter.AltDeg)
	}
	if d := math.Abs(st.ViewAzDeg - jupiter.AzDeg); d > 1e-6 && math.Abs(d-360) > 1e-6 {
		t.Fatalf("view az = %v, want Jupiter's %v", st.ViewAzDeg, jupiter.AzDeg)
	}

	if err := e.SelectBody(ctx, ""); err != nil {
		t.Fatalf("clear selection: %v", err)
	}
	if st := e.State(); st.Tracking || st.Selected != "" {
		t.Fatalf("after clear: tracking %v selected %q", st.Tracking, st.Selected)
	}
}

func TestEngineDoRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	e, _ := newTestEngine(t, time.Hour, WithTracer(tp.Tracer("sim-test")))
	runEngine(t, e)

	ctx := context.Background()
	if err := e.SelectBody(ctx, "Mars"); err != nil {
		t.Fatalf("SelectBody: %v", err)
	}
	if err := e.SelectBody(ctx, "Vulcan"); !errors.Is(err, ErrUnknownBody) {
		t.Fatalf("SelectBody(Vulcan) = %v, want ErrUnknownBody", err)
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}
	for _, span := range spans {
		if span.Name() != "sim.SelectBody" {
			t.Fatalf("span name = %q, want sim.SelectBody", span.Name())
		}
	}
	if spans[0].Status().Code == codes.Error {
		t.Fatalf("successful command span has error status")
	}
	if spans[1].Status().Code != codes.Error {
		t.Fatalf("failed command span status = %v, want error", spans[1].Status().Code)
	}
}
