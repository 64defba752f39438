// Command simulator runs the navigator headless for a fixed span of real
// time and prints the sky as seen from the observer on every tick. It needs
// no daemon and no database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/signalsfoundry/skynav/core"
	"github.com/signalsfoundry/skynav/ephem"
	"github.com/signalsfoundry/skynav/internal/sim"
	"github.com/signalsfoundry/skynav/kb"
	"github.com/signalsfoundry/skynav/settings"
	"github.com/signalsfoundry/skynav/timectrl"
)

type options struct {
	Duration    time.Duration
	Tick        time.Duration
	Accelerated bool
	Rate        float64 // simulated days per real second; 0 keeps real time
	Start       string  // preset sky time; empty starts now
	Location    string
	MoveTo      string
	Track       string
	JSON        bool
}

func main() {
	opts := options{}
	flag.DurationVar(&opts.Duration, "duration", 10*time.Second, "total real time to simulate")
	flag.DurationVar(&opts.Tick, "tick", time.Second, "tick interval")
	flag.BoolVar(&opts.Accelerated, "accelerated", true, "run in accelerated mode (vs real-time)")
	flag.Float64Var(&opts.Rate, "rate", 0, "time rate in simulated days per real second (0 for real time)")
	flag.StringVar(&opts.Start, "start", "", "start date or Julian day (default now)")
	flag.StringVar(&opts.Location, "location", "", "observer location ID (default Paris)")
	flag.StringVar(&opts.MoveTo, "move-to", "", "location ID to travel to at startup")
	flag.StringVar(&opts.Track, "track", "", "solar-system body to select and keep in view")
	flag.BoolVar(&opts.JSON, "json", false, "print one JSON snapshot per tick")
	flag.Parse()

	if err := simulate(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "simulator: %v\n", err)
		os.Exit(1)
	}
}

func simulate(ctx context.Context, opts options, out io.Writer) error {
	cfg := settings.Default()
	if opts.Location != "" {
		cfg.LocationID = opts.Location
	}
	if opts.Start != "" {
		jd, err := timectrl.ParsePresetSkyTime(opts.Start)
		if err != nil {
			return err
		}
		cfg.StartupTimeMode = settings.StartupPreset
		cfg.PresetSkyTime = jd
	}

	locations := kb.NewWithBuiltins()
	solar := ephem.NewSolarSystem(timectrl.JulianDayFromTime(time.Now()))
	selection := sim.NewSelection()
	nav, err := core.NewNavigator(cfg, solar, locations,
		core.WithSelection(selection),
		core.WithMovement(selection))
	if err != nil {
		return err
	}
	if opts.Rate != 0 {
		nav.SetTimeRate(opts.Rate)
	}
	if opts.MoveTo != "" {
		target, err := locations.Resolve(opts.MoveTo)
		if err != nil {
			return err
		}
		nav.MoveObserverTo(target, core.DefaultMoveDuration, core.DefaultMoveDurationPlanetChange)
	}
	if opts.Track != "" {
		if !solar.HasBody(opts.Track) {
			return fmt.Errorf("%q: %w", opts.Track, sim.ErrUnknownBody)
		}
		selection.Select(opts.Track)
		selection.SetTrackingEnabled(true)
	}

	mode := timectrl.RealTime
	if opts.Accelerated {
		mode = timectrl.Fixed
	}
	tc := timectrl.NewTimeController(opts.Tick, mode)

	enc := json.NewEncoder(out)
	var writeErr error
	// The navigator is only touched from the controller goroutine until done.
	tc.AddListener(func(delta time.Duration) {
		nav.AdvanceTime(delta.Seconds())
		if selection.Tracking() {
			track(nav, solar, selection.SelectedBody())
		}
		snap := nav.Snapshot()
		if writeErr != nil {
			return
		}
		if opts.JSON {
			writeErr = enc.Encode(snap)
			return
		}
		_, writeErr = fmt.Fprintf(out, "[%s] %s (%s) view alt=%6.2f az=%6.2f%s\n",
			snap.UTC, snap.Location.ID(), snap.Observer,
			snap.ViewAltDeg, snap.ViewAzDeg, trackedSuffix(nav, solar, selection.SelectedBody()))
	})

	if !opts.JSON {
		fmt.Fprintf(out, "Starting simulation: duration=%s, tick=%s, mode=%v\n", opts.Duration, opts.Tick, mode)
	}
	<-tc.Start(ctx, opts.Duration)
	if !opts.JSON && writeErr == nil {
		fmt.Fprintln(out, "Simulation complete.")
	}
	return writeErr
}

func track(nav *core.Navigator, solar *ephem.SolarSystem, body string) {
	if body == "" || strings.EqualFold(body, nav.HomePlanet()) {
		return
	}
	m := nav.Matrices()
	pos := m.HelioEclipticToAltAzPos(solar.ApparentHeliocentricPos(body))
	if pos.Len() > 0 {
		nav.SetAltAzVisionDirection(pos)
	}
}

func trackedSuffix(nav *core.Navigator, solar *ephem.SolarSystem, body string) string {
	if body == "" || strings.EqualFold(body, nav.HomePlanet()) {
		return ""
	}
	m := nav.Matrices()
	pos := m.HelioEclipticToAltAzPos(solar.ApparentHeliocentricPos(body))
	alt, az := core.AltAzFromVector(pos)
	return fmt.Sprintf("; %s alt=%6.2f az=%6.2f dist=%.3f AU", body, alt, az, pos.Len())
}
