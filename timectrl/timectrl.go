package timectrl

import (
	"context"
	"sync"
	"time"
)

// Mode describes how the TimeController measures the delta handed to listeners.
type Mode int

const (
	// RealTime reports the wall-clock time elapsed since the previous tick.
	RealTime Mode = iota
	// Fixed reports exactly Tick on every tick, regardless of scheduling jitter.
	Fixed
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case RealTime:
		return "realtime"
	case Fixed:
		return "fixed"
	default:
		return "unknown"
	}
}

// TickListener receives the real time elapsed since the previous tick.
type TickListener func(delta time.Duration)

// TimeController drives the simulation loop: it fires on a ticker and hands
// every registered listener the elapsed real time.
type TimeController struct {
	mu   sync.RWMutex
	Tick time.Duration
	Mode Mode

	ticks     uint64
	elapsed   time.Duration
	listeners []TickListener
	now       func() time.Time
}

// NewTimeController constructs a controller.
func NewTimeController(tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		Tick: tick,
		Mode: mode,
		now:  time.Now,
	}
}

// AddListener registers a callback invoked on every tick, in registration order.
func (tc *TimeController) AddListener(fn TickListener) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Ticks returns how many ticks have fired so far.
func (tc *TimeController) Ticks() uint64 {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.ticks
}

// Elapsed returns the total delta handed out so far.
func (tc *TimeController) Elapsed() time.Duration {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.elapsed
}

// Start runs the controller in a separate goroutine until ctx is cancelled
// or, when duration > 0, until that much delta has been handed out. It
// returns a channel that is closed when the controller finishes.
func (tc *TimeController) Start(ctx context.Context, duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		ticker := time.NewTicker(tc.Tick)
		defer ticker.Stop()

		last := tc.now()
		for {
			if duration > 0 && tc.Elapsed() >= duration {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			delta := tc.Tick
			if tc.Mode == RealTime {
				now := tc.now()
				delta = now.Sub(last)
				last = now
			}

			tc.mu.Lock()
			tc.ticks++
			tc.elapsed += delta
			listeners := append([]TickListener(nil), tc.listeners...)
			tc.mu.Unlock()

			for _, fn := range listeners {
				fn(delta)
			}
		}
	}()
	return done
}
