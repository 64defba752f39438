package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/signalsfoundry/skynav/core"
	"github.com/signalsfoundry/skynav/ephem"
	"github.com/signalsfoundry/skynav/internal/observability"
	"github.com/signalsfoundry/skynav/internal/sim"
	"github.com/signalsfoundry/skynav/kb"
	"github.com/signalsfoundry/skynav/settings"
	"github.com/signalsfoundry/skynav/timectrl"
)

type fakeSource struct {
	ch chan sim.State
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan sim.State)}
}

func (f *fakeSource) Subscribe() (<-chan sim.State, func()) {
	return f.ch, func() {}
}

func state(tick uint64, jd float64) sim.State {
	return sim.State{Snapshot: core.Snapshot{JulianDay: jd}, Tick: tick}
}

func startHub(t *testing.T, src StateSource, opts ...Option) (*Hub, *httptest.Server, *observability.NavigatorCollector) {
	t.Helper()
	collector, err := observability.NewNavigatorCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewNavigatorCollector: %v", err)
	}
	hub := NewHub(src, append([]Option{WithRecorder(collector)}, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()

	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		cancel()
		<-done
		srv.Close()
	})
	return hub, srv, collector
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readState(t *testing.T, conn *websocket.Conn) sim.State {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var st sim.State
	if err := json.Unmarshal(msg, &st); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return st
}

func TestHubBroadcastsStates(t *testing.T) {
	src := newFakeSource()
	hub, srv, collector := startHub(t, src, WithRate(1000, 1000))

	conn := dial(t, srv, "")
	waitFor(t, "client registration", func() bool { return hub.Clients() == 1 })
	if got := testutil.ToFloat64(collector.StreamClients); got != 1 {
		t.Fatalf("stream clients gauge = %v, want 1", got)
	}

	src.ch <- state(7, 2451545.5)
	st := readState(t, conn)
	if st.Tick != 7 || st.JulianDay != 2451545.5 {
		t.Fatalf("frame = tick %d jd %v", st.Tick, st.JulianDay)
	}

	conn.Close()
	waitFor(t, "client removal", func() bool { return hub.Clients() == 0 })
	if got := testutil.ToFloat64(collector.StreamClients); got != 0 {
		t.Fatalf("stream clients gauge = %v, want 0", got)
	}
}

func TestHubSendsLatestFrameOnConnect(t *testing.T) {
	src := newFakeSource()
	hub, srv, _ := startHub(t, src)

	src.ch <- state(3, 2460000)
	// Run takes the second state only after broadcasting the first.
	src.ch <- state(4, 2460001)

	conn := dial(t, srv, "")
	waitFor(t, "client registration", func() bool { return hub.Clients() == 1 })
	if st := readState(t, conn); st.Tick < 3 {
		t.Fatalf("first frame tick = %d, want a stored frame", st.Tick)
	}
}

func TestHubThrottlesPerClient(t *testing.T) {
	src := newFakeSource()
	hub, srv, collector := startHub(t, src, WithRate(0.001, 0.001))

	conn := dial(t, srv, "")
	waitFor(t, "client registration", func() bool { return hub.Clients() == 1 })

	src.ch <- state(1, 1)
	src.ch <- state(2, 2)
	src.ch <- state(3, 3)
	waitFor(t, "throttled frames", func() bool {
		return testutil.ToFloat64(collector.StreamDropped.WithLabelValues(DropThrottled)) == 2
	})
	if st := readState(t, conn); st.Tick != 1 {
		t.Fatalf("delivered tick = %d, want 1", st.Tick)
	}
}

func TestHubRejectsBadRate(t *testing.T) {
	_, srv, _ := startHub(t, newFakeSource())
	resp, err := http.Get(srv.URL + "/?hz=-3")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHubStreamsEngineState(t *testing.T) {
	if testing.Short() {
		t.Skip("runs a live engine")
	}
	eng := newLiveEngine(t)
	hub, srv, _ := startHub(t, eng, WithRate(1000, 1000))

	conn := dial(t, srv, "?hz=1000")
	waitFor(t, "client registration", func() bool { return hub.Clients() == 1 })

	first := readState(t, conn)
	var later sim.State
	for i := 0; i < 50; i++ {
		later = readState(t, conn)
		if later.Tick > first.Tick {
			break
		}
	}
	if later.Tick <= first.Tick {
		t.Fatalf("tick did not advance past %d", first.Tick)
	}
	if len(later.Bodies) == 0 {
		t.Fatalf("frame has no bodies")
	}
}

func newLiveEngine(t *testing.T) *sim.Engine {
	t.Helper()
	solar := ephem.NewSolarSystem(timectrl.J2000)
	sel := sim.NewSelection()
	nav, err := core.NewNavigator(settings.Default(), solar, kb.NewWithBuiltins(), core.WithSelection(sel))
	if err != nil {
		t.Fatalf("NewNavigator: %v", err)
	}
	eng := sim.NewEngine(nav, sel, solar, timectrl.NewTimeController(2*time.Millisecond, timectrl.Fixed))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = eng.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return eng
}
