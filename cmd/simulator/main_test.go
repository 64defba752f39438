package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/skynav/core"
)

// TestSimulateTracksMars runs a tiny accelerated simulation.
func TestSimulateTracksMars(t *testing.T) {
	var out bytes.Buffer
	opts := options{
		Duration:    5 * time.Millisecond,
		Tick:        time.Millisecond,
		Accelerated: true,
		Rate:        1, // one day per real second
		Start:       "2021-10-02T00:00:00",
		Track:       "Mars",
		JSON:        true,
	}
	if err := simulate(context.Background(), opts, &out); err != nil {
		t.Fatalf("simulate: %v", err)
	}

	var snaps []core.Snapshot
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var s core.Snapshot
		if err := json.Unmarshal(sc.Bytes(), &s); err != nil {
			t.Fatalf("decode line %q: %v", sc.Text(), err)
		}
		snaps = append(snaps, s)
	}
	if len(snaps) == 0 {
		t.Fatalf("expected at least one tick, got 0")
	}
	first, last := snaps[0], snaps[len(snaps)-1]
	if last.JulianDay <= first.JulianDay && len(snaps) > 1 {
		t.Fatalf("time did not advance: %v -> %v", first.JulianDay, last.JulianDay)
	}
	if last.VisionAltAz == first.VisionAltAz && len(snaps) > 1 {
		t.Fatalf("tracked view did not move: %v", last.VisionAltAz)
	}
}

func TestSimulateTextOutput(t *testing.T) {
	var out bytes.Buffer
	opts := options{
		Duration:    2 * time.Millisecond,
		Tick:        time.Millisecond,
		Accelerated: true,
		Location:    "Tokyo, Tokyo, Japan",
	}
	if err := simulate(context.Background(), opts, &out); err != nil {
		t.Fatalf("simulate: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "Tokyo, Tokyo, Japan") || !strings.HasSuffix(text, "Simulation complete.\n") {
		t.Fatalf("unexpected output:\n%s", text)
	}
}

func TestSimulateRejectsUnknownBody(t *testing.T) {
	opts := options{Duration: time.Millisecond, Tick: time.Millisecond, Track: "Vulcan"}
	if err := simulate(context.Background(), opts, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown body")
	}
}
