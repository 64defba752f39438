package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/skynav/core"
	"github.com/signalsfoundry/skynav/ephem"
	"github.com/signalsfoundry/skynav/internal/control"
	"github.com/signalsfoundry/skynav/internal/logging"
	"github.com/signalsfoundry/skynav/internal/sim"
	"github.com/signalsfoundry/skynav/internal/stream"
	"github.com/signalsfoundry/skynav/kb"
	"github.com/signalsfoundry/skynav/settings"
	"github.com/signalsfoundry/skynav/timectrl"
)

// startDaemon runs the daemon on a loopback port and returns a control
// client plus a stop function that waits for run to return.
func startDaemon(t *testing.T, dbPath string) (*control.Client, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	cfg := Config{
		ListenAddress: lis.Addr().String(),
		DBPath:        dbPath,
		LogLevel:      "warn",
		LogFormat:     "text",
		TickInterval:  20 * time.Millisecond,
		Accelerated:   true,
		StreamHz:      10,
		StreamMaxHz:   60,
	}
	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, log, lis)
	}()

	conn, err := grpc.NewClient(cfg.ListenAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		cancel()
		t.Fatalf("grpc.NewClient: %v", err)
	}

	var stopped bool
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		conn.Close()
		cancel()
		if err := <-errCh; err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	}
	t.Cleanup(stop)
	return control.NewClient(conn), stop
}

func TestSkynavStartupSmoke(t *testing.T) {
	client, _ := startDaemon(t, filepath.Join(t.TempDir(), "skynav.db"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := client.GetState(ctx, grpc.WaitForReady(true))
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if st.GetFields()["julian_day"].GetNumberValue() <= 0 {
		t.Fatalf("julian_day missing from %v", st)
	}
	if len(st.GetFields()["bodies"].GetListValue().GetValues()) == 0 {
		t.Fatalf("state has no bodies")
	}
}

func TestSettingsSurviveRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "skynav.db")
	const tokyo = "Tokyo, Tokyo, Japan"

	client, stop := startDaemon(t, dbPath)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.UpdateSettings(ctx, map[string]any{"location": tokyo}, grpc.WaitForReady(true)); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	stop()

	client, _ = startDaemon(t, dbPath)
	st, err := client.GetState(ctx, grpc.WaitForReady(true))
	if err != nil {
		t.Fatalf("GetState after restart: %v", err)
	}
	loc := st.GetFields()["location"].GetStructValue()
	if got := loc.GetFields()["name"].GetStringValue(); got != "Tokyo" {
		t.Fatalf("location after restart = %q, want Tokyo", got)
	}
}

func TestHTTPHandler(t *testing.T) {
	solar := ephem.NewSolarSystem(timectrl.J2000)
	sel := sim.NewSelection()
	nav, err := core.NewNavigator(settings.Default(), solar, kb.NewWithBuiltins(), core.WithSelection(sel))
	if err != nil {
		t.Fatalf("NewNavigator: %v", err)
	}
	engine := sim.NewEngine(nav, sel, solar, timectrl.NewTimeController(time.Hour, timectrl.Fixed))
	hub := stream.NewHub(engine)

	srv := httptest.NewServer(newHTTPHandler(prometheus.NewRegistry(), hub, engine))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/healthz status = %d", resp.StatusCode)
	}
	var h health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		t.Fatalf("decode /healthz: %v", err)
	}
	if h.Status != "ok" || !strings.HasPrefix(h.Location, "Paris") {
		t.Fatalf("health = %+v", h)
	}

	metrics, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	metrics.Body.Close()
	if metrics.StatusCode != http.StatusOK {
		t.Fatalf("/metrics status = %d", metrics.StatusCode)
	}
}

func TestStartupSiteFollowsSettings(t *testing.T) {
	cfg := settings.Default()
	cfg.LocationID = "Gale Crater, Aeolis, Mars"
	cfg.ViewingMode = settings.ViewingModeEquator
	nav, err := core.NewNavigator(cfg, ephem.NewSolarSystem(timectrl.J2000), kb.NewWithBuiltins())
	if err != nil {
		t.Fatalf("NewNavigator: %v", err)
	}
	site := startupSite(nav)
	if site.HomeBody != "Mars" || site.Location != cfg.LocationID || site.Mount != "equatorial" {
		t.Fatalf("startupSite = %+v", site)
	}
}
