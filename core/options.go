package core

import (
	"time"

	"github.com/signalsfoundry/skynav/internal/logging"
	"github.com/signalsfoundry/skynav/timectrl"
)

// Option configures optional Navigator collaborators.
type Option func(*Navigator)

// WithLogger sets the logger used for warnings such as an unresolvable
// location or an invalid today time.
func WithLogger(log logging.Logger) Option {
	return func(n *Navigator) {
		if log != nil {
			n.log = log
		}
	}
}

// WithSelection wires the object-selection collaborator.
func WithSelection(sel Selection) Option {
	return func(n *Navigator) { n.selection = sel }
}

// WithMovement wires the view-movement collaborator.
func WithMovement(mv Movement) Option {
	return func(n *Navigator) { n.movement = mv }
}

// WithSettingsWriter makes the persisted-settings setters write through to w.
func WithSettingsWriter(w SettingsWriter) Option {
	return func(n *Navigator) { n.settings = w }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(rec MetricsRecorder) Option {
	return func(n *Navigator) { n.metrics = rec }
}

// WithWallClock overrides the real-world clock, mainly for tests.
func WithWallClock(wall timectrl.WallClock) Option {
	return func(n *Navigator) {
		if wall != nil {
			n.wall = wall
		}
	}
}

// WithTimeZone sets the zone used for the local-time startup modes. It
// defaults to time.Local.
func WithTimeZone(loc *time.Location) Option {
	return func(n *Navigator) {
		if loc != nil {
			n.tz = loc
		}
	}
}
