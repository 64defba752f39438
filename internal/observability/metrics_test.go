package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnaryInterceptorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewControlCollector(reg)
	if err != nil {
		t.Fatalf("NewControlCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/skynav.control.v1.NavigatorControl/SetJulianDay"}

	_, err = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		time.Sleep(5 * time.Millisecond)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("interceptor handler returned error: %v", err)
	}

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("NavigatorControl", "SetJulianDay", "OK")); got != 1 {
		t.Fatalf("skynav_control_requests_total = %v, want 1", got)
	}

	if count := histogramSampleCount(t, reg, "skynav_control_request_duration_seconds", map[string]string{
		"service": "NavigatorControl",
		"method":  "SetJulianDay",
	}); count != 1 {
		t.Fatalf("skynav_control_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestUnaryInterceptorRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewControlCollector(reg)
	if err != nil {
		t.Fatalf("NewControlCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/skynav.control.v1.NavigatorControl/MoveObserver"}

	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "no such location")
	})

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("NavigatorControl", "MoveObserver", "NotFound")); got != 1 {
		t.Fatalf("skynav_control_requests_total error label = %v, want 1", got)
	}
}

func TestCollectorsReuseExistingRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewNavigatorCollector(reg)
	if err != nil {
		t.Fatalf("NewNavigatorCollector: %v", err)
	}
	second, err := NewNavigatorCollector(reg)
	if err != nil {
		t.Fatalf("second NewNavigatorCollector: %v", err)
	}
	first.ObserverArrived()
	second.ObserverArrived()
	if got := testutil.ToFloat64(first.ObserverArrivals); got != 2 {
		t.Fatalf("shared arrivals counter = %v, want 2", got)
	}
}

func TestNavigatorCollectorRecordsTicks(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewNavigatorCollector(reg)
	if err != nil {
		t.Fatalf("NewNavigatorCollector: %v", err)
	}

	collector.ObserveTick(2451545.5, 1.0/86400, true, 200*time.Microsecond)
	collector.ObserveTick(2451546.5, 0, false, 100*time.Microsecond)
	collector.ObserverMoved(true)
	collector.ObserverMoved(false)
	collector.ObserverMoved(true)
	collector.SetStreamClients(3)
	collector.IncStreamDropped("slow_client")

	if got := testutil.ToFloat64(collector.JulianDay); got != 2451546.5 {
		t.Fatalf("skynav_julian_day = %v", got)
	}
	if got := testutil.ToFloat64(collector.TimeRate); got != 0 {
		t.Fatalf("skynav_time_rate_jd_per_second = %v", got)
	}
	if got := testutil.ToFloat64(collector.RealTime); got != 0 {
		t.Fatalf("skynav_real_time = %v", got)
	}
	if got := testutil.ToFloat64(collector.ObserverMoves.WithLabelValues("true")); got != 2 {
		t.Fatalf("animated moves = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.StreamClients); got != 3 {
		t.Fatalf("skynav_stream_clients = %v", got)
	}
	if count := histogramSampleCount(t, reg, "skynav_tick_duration_seconds", nil); count != 2 {
		t.Fatalf("tick histogram sample_count = %d, want 2", count)
	}
}

func TestNilNavigatorCollectorIsSafe(t *testing.T) {
	var c *NavigatorCollector
	c.ObserveTick(0, 0, false, 0)
	c.ObserverMoved(true)
	c.ObserverArrived()
	c.SetStreamClients(1)
	c.IncStreamDropped("x")
}

func TestMetricsHandlerExposesNavigatorGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	control, err := NewControlCollector(reg)
	if err != nil {
		t.Fatalf("NewControlCollector: %v", err)
	}
	nav, err := NewNavigatorCollector(reg)
	if err != nil {
		t.Fatalf("NewNavigatorCollector: %v", err)
	}
	nav.ObserveTick(2460000.25, 0, false, time.Millisecond)
	control.RPCRequests.WithLabelValues("svc", "method", "OK").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	control.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"skynav_control_requests_total",
		"skynav_julian_day",
		"skynav_time_rate_jd_per_second",
		"skynav_tick_duration_seconds",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
	if !strings.Contains(body, "2.46000025e+06") {
		t.Fatalf("/metrics output missing julian day value: %s", body)
	}
}

func TestSplitMethod(t *testing.T) {
	cases := []struct {
		in, service, method string
	}{
		{"/skynav.control.v1.NavigatorControl/GetState", "NavigatorControl", "GetState"},
		{"", "unknown", "unknown"},
		{"NoSlash", "unknown", "unknown"},
	}
	for _, tc := range cases {
		svc, m := SplitMethod(tc.in)
		if svc != tc.service || m != tc.method {
			t.Fatalf("SplitMethod(%q) = %q,%q want %q,%q", tc.in, svc, m, tc.service, tc.method)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
