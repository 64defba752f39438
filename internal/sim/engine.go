// Package sim runs the navigator on a single goroutine. Ticks from a
// timectrl.TimeController and control commands are serialised on that
// goroutine; other goroutines see value snapshots of the resulting state.
package sim

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/skynav/core"
	"github.com/signalsfoundry/skynav/internal/logging"
	"github.com/signalsfoundry/skynav/internal/observability"
	"github.com/signalsfoundry/skynav/timectrl"
)

var (
	// ErrStopped is returned by Do once Run has returned.
	ErrStopped = errors.New("engine stopped")
	// ErrUnknownBody indicates a selection of a body the ephemeris does not know.
	ErrUnknownBody = errors.New("unknown body")
)

// BodySource lists the bodies shown in State and their light-time corrected
// positions. ephem.SolarSystem implements it.
type BodySource interface {
	Bodies() []string
	HasBody(name string) bool
	IsSolarSystemBarycenter(name string) bool
	ApparentHeliocentricPos(name string) mgl64.Vec3
}

// BodyView is one body as seen from the observer.
type BodyView struct {
	Name       string  `json:"name"`
	AltDeg     float64 `json:"alt_deg"`
	AzDeg      float64 `json:"az_deg"`
	DistanceAU float64 `json:"distance_au"`
}

// State is published after every tick and command.
type State struct {
	core.Snapshot
	Tick     uint64     `json:"tick"`
	Selected string     `json:"selected,omitempty"`
	Tracking bool       `json:"tracking"`
	Bodies   []BodyView `json:"bodies"`
}

type command struct {
	name string
	fn   func(*core.Navigator) error
	done chan error
}

// Engine owns a Navigator. Create it with NewEngine and start it with Run.
type Engine struct {
	nav       *core.Navigator
	selection *Selection
	bodies    BodySource
	tc        *timectrl.TimeController
	log       logging.Logger
	tracer    trace.Tracer

	deltas  chan time.Duration
	cmds    chan command
	stopped chan struct{}
	runOnce sync.Once

	tick uint64

	mu        sync.RWMutex
	state     State
	subs      map[int]chan State
	nextSubID int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the engine logger.
func WithEngineLogger(log logging.Logger) EngineOption {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithTracer overrides the tracer used for command spans.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// NewEngine wraps nav. selection must be the same value given to the
// navigator through core.WithSelection so that SelectBody is visible to it.
func NewEngine(nav *core.Navigator, selection *Selection, bodies BodySource, tc *timectrl.TimeController, opts ...EngineOption) *Engine {
	if selection == nil {
		selection = NewSelection()
	}
	e := &Engine{
		nav:       nav,
		selection: selection,
		bodies:    bodies,
		tc:        tc,
		log:       logging.Noop(),
		tracer:    observability.Tracer("sim"),
		deltas:    make(chan time.Duration, 1),
		cmds:      make(chan command),
		stopped:   make(chan struct{}),
		subs:      make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.publish()
	return e
}

// Run drives the navigator until ctx is cancelled. It may be called once.
func (e *Engine) Run(ctx context.Context) error {
	started := false
	e.runOnce.Do(func() { started = true })
	if !started {
		return fmt.Errorf("engine already running")
	}
	defer close(e.stopped)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.tc.AddListener(func(delta time.Duration) {
		select {
		case e.deltas <- delta:
		case <-ctx.Done():
		}
	})
	done := e.tc.Start(ctx, 0)

	e.log.Info(ctx, "sim engine started",
		logging.String("tick", e.tc.Tick.String()),
		logging.String("mode", e.tc.Mode.String()))

	for {
		select {
		case <-ctx.Done():
			<-done
			e.log.Info(context.Background(), "sim engine stopped", logging.Any("ticks", e.tick))
			return ctx.Err()
		case delta := <-e.deltas:
			e.step(delta)
		case cmd := <-e.cmds:
			cmd.done <- e.exec(cmd)
		}
	}
}

// step advances the navigator by one tick.
func (e *Engine) step(delta time.Duration) {
	e.tick++
	e.nav.AdvanceTime(delta.Seconds())
	if e.selection.Tracking() {
		e.follow()
	}
	e.publish()
}

// follow points the view at the tracked body.
func (e *Engine) follow() {
	body := e.selection.SelectedBody()
	if body == "" || strings.EqualFold(body, e.nav.HomePlanet()) {
		return
	}
	m := e.nav.Matrices()
	pos := m.HelioEclipticToAltAzPos(e.bodies.ApparentHeliocentricPos(body))
	if pos.Len() == 0 {
		return
	}
	e.nav.SetAltAzVisionDirection(pos)
}

func (e *Engine) exec(cmd command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", cmd.name, r)
		}
		e.publish()
	}()
	return cmd.fn(e.nav)
}

// Do runs fn on the engine goroutine between ticks and waits for it. name
// labels the tracing span.
func (e *Engine) Do(ctx context.Context, name string, fn func(*core.Navigator) error) error {
	ctx, span := e.tracer.Start(ctx, "sim."+name)
	defer span.End()

	cmd := command{name: name, fn: fn, done: make(chan error, 1)}
	select {
	case e.cmds <- cmd:
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	var err error
	select {
	case err = <-cmd.done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.Float64("skynav.julian_day", e.State().JulianDay))
	return err
}

// SelectBody selects body, or clears the selection when body is empty.
func (e *Engine) SelectBody(ctx context.Context, body string) error {
	return e.Do(ctx, "SelectBody", func(*core.Navigator) error {
		body = strings.TrimSpace(body)
		if body == "" {
			e.selection.ClearSelection()
			return nil
		}
		if !e.bodies.HasBody(body) {
			return fmt.Errorf("%q: %w", body, ErrUnknownBody)
		}
		e.selection.Select(body)
		return nil
	})
}

// SetTracking makes the view follow the selection.
func (e *Engine) SetTracking(ctx context.Context, enabled bool) error {
	return e.Do(ctx, "SetTracking", func(*core.Navigator) error {
		if enabled && !e.selection.IsAnySelected() {
			return core.ErrNothingSelected
		}
		e.selection.SetTrackingEnabled(enabled)
		if enabled {
			e.follow()
		}
		return nil
	})
}

// State returns the most recently published state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Subscribe returns a channel receiving every published state. Slow readers
// only see the latest state. The returned function ends the subscription.
func (e *Engine) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	e.mu.Lock()
	e.nextSubID++
	id := e.nextSubID
	e.subs[id] = ch
	ch <- e.state
	e.mu.Unlock()

	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if _, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(ch)
		}
	}
}

func (e *Engine) publish() {
	st := State{
		Snapshot: e.nav.Snapshot(),
		Tick:     e.tick,
		Selected: e.selection.SelectedBody(),
		Tracking: e.selection.Tracking(),
		Bodies:   e.bodyViews(),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = st
	for _, ch := range e.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

func (e *Engine) bodyViews() []BodyView {
	if e.bodies == nil {
		return nil
	}
	home := e.nav.HomePlanet()
	m := e.nav.Matrices()
	names := e.bodies.Bodies()
	views := make([]BodyView, 0, len(names))
	for _, name := range names {
		if e.bodies.IsSolarSystemBarycenter(name) || strings.EqualFold(name, home) {
			continue
		}
		pos := m.HelioEclipticToAltAzPos(e.bodies.ApparentHeliocentricPos(name))
		alt, az := core.AltAzFromVector(pos)
		views = append(views, BodyView{
			Name:       name,
			AltDeg:     alt,
			AzDeg:      az,
			DistanceAU: pos.Len(),
		})
	}
	return views
}
