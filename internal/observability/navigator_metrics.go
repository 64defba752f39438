package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NavigatorCollector exposes navigator and view-stream metrics. It implements
// core.MetricsRecorder.
type NavigatorCollector struct {
	JulianDay        prometheus.Gauge
	TimeRate         prometheus.Gauge
	RealTime         prometheus.Gauge
	TickDuration     prometheus.Histogram
	ObserverMoves    *prometheus.CounterVec
	ObserverArrivals prometheus.Counter
	StreamClients    prometheus.Gauge
	StreamDropped    *prometheus.CounterVec
}

// NewNavigatorCollector registers navigator metrics against the provided registerer.
func NewNavigatorCollector(reg prometheus.Registerer) (*NavigatorCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	jd, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "skynav_julian_day",
		Help: "Current simulated Julian day.",
	}), "skynav_julian_day")
	if err != nil {
		return nil, err
	}
	rate, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "skynav_time_rate_jd_per_second",
		Help: "Simulated Julian days advanced per real second.",
	}), "skynav_time_rate_jd_per_second")
	if err != nil {
		return nil, err
	}
	realTime, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "skynav_real_time",
		Help: "1 when the simulated time is within a second of the real time.",
	}), "skynav_real_time")
	if err != nil {
		return nil, err
	}

	tick := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skynav_tick_duration_seconds",
		Help:    "Duration of one navigator time advance.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	})
	tick, err = registerHistogram(reg, tick, "skynav_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	moves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skynav_observer_moves_total",
		Help: "Observer moves, labeled by whether they were animated.",
	}, []string{"animated"})
	moves, err = registerCounterVec(reg, moves, "skynav_observer_moves_total")
	if err != nil {
		return nil, err
	}

	arrivals := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skynav_observer_arrivals_total",
		Help: "Completed observer transits.",
	})
	arrivals, err = registerCounter(reg, arrivals, "skynav_observer_arrivals_total")
	if err != nil {
		return nil, err
	}

	clients, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "skynav_stream_clients",
		Help: "Connected view-stream clients.",
	}), "skynav_stream_clients")
	if err != nil {
		return nil, err
	}

	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skynav_stream_dropped_total",
		Help: "View-stream frames not delivered, labeled by reason.",
	}, []string{"reason"})
	dropped, err = registerCounterVec(reg, dropped, "skynav_stream_dropped_total")
	if err != nil {
		return nil, err
	}

	return &NavigatorCollector{
		JulianDay:        jd,
		TimeRate:         rate,
		RealTime:         realTime,
		TickDuration:     tick,
		ObserverMoves:    moves,
		ObserverArrivals: arrivals,
		StreamClients:    clients,
		StreamDropped:    dropped,
	}, nil
}

// ObserveTick records the state after one time advance.
func (c *NavigatorCollector) ObserveTick(julianDay, timeRate float64, realTime bool, d time.Duration) {
	if c == nil {
		return
	}
	c.JulianDay.Set(julianDay)
	c.TimeRate.Set(timeRate)
	if realTime {
		c.RealTime.Set(1)
	} else {
		c.RealTime.Set(0)
	}
	c.TickDuration.Observe(d.Seconds())
}

// ObserverMoved counts a MoveObserverTo call.
func (c *NavigatorCollector) ObserverMoved(animated bool) {
	if c == nil {
		return
	}
	c.ObserverMoves.WithLabelValues(strconv.FormatBool(animated)).Inc()
}

// ObserverArrived counts a completed transit.
func (c *NavigatorCollector) ObserverArrived() {
	if c == nil {
		return
	}
	c.ObserverArrivals.Inc()
}

// SetStreamClients updates the connected-client gauge.
func (c *NavigatorCollector) SetStreamClients(n int) {
	if c == nil {
		return
	}
	c.StreamClients.Set(float64(n))
}

// IncStreamDropped counts an undelivered view frame.
func (c *NavigatorCollector) IncStreamDropped(reason string) {
	if c == nil {
		return
	}
	c.StreamDropped.WithLabelValues(reason).Inc()
}
