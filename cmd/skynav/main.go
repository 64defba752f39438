// Command skynav runs the navigator daemon: the simulation engine, the gRPC
// control service and an HTTP listener for metrics, health and the view
// stream.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/signalsfoundry/skynav/core"
	"github.com/signalsfoundry/skynav/ephem"
	"github.com/signalsfoundry/skynav/internal/control"
	"github.com/signalsfoundry/skynav/internal/logging"
	"github.com/signalsfoundry/skynav/internal/observability"
	"github.com/signalsfoundry/skynav/internal/persistence"
	"github.com/signalsfoundry/skynav/internal/sim"
	"github.com/signalsfoundry/skynav/internal/stream"
	"github.com/signalsfoundry/skynav/kb"
	"github.com/signalsfoundry/skynav/settings"
	"github.com/signalsfoundry/skynav/timectrl"
)

// Config is the daemon configuration.
type Config struct {
	ListenAddress string // gRPC control service
	HTTPAddress   string // /metrics, /healthz, /ws/view; empty disables
	DBPath        string // SQLite file; empty keeps settings in memory
	LogLevel      string
	LogFormat     string
	TickInterval  time.Duration
	Accelerated   bool // hand out exactly TickInterval per tick
	StreamHz      float64
	StreamMaxHz   float64
	Tracing       observability.TracingConfig
}

func main() {
	cfg := Config{}
	logCfg := logging.ConfigFromEnv()
	flag.StringVar(&cfg.ListenAddress, "grpc-addr", ":50061", "TCP address the control gRPC server listens on")
	flag.StringVar(&cfg.HTTPAddress, "http-addr", ":9090", "HTTP address for /metrics, /healthz and /ws/view")
	flag.StringVar(&cfg.DBPath, "db", "skynav.db", "SQLite database for settings and locations (empty for in-memory)")
	flag.StringVar(&cfg.LogLevel, "log-level", logCfg.Level, "debug, info, warn or error (env LOG_LEVEL)")
	flag.StringVar(&cfg.LogFormat, "log-format", logCfg.Format, "text or json (env LOG_FORMAT)")
	flag.DurationVar(&cfg.TickInterval, "tick", 50*time.Millisecond, "simulation tick interval")
	flag.BoolVar(&cfg.Accelerated, "accelerated", false, "advance exactly one tick interval per tick instead of the measured wall time")
	flag.Float64Var(&cfg.StreamHz, "stream-hz", 10, "default view-stream frames per second")
	flag.Float64Var(&cfg.StreamMaxHz, "stream-max-hz", 60, "maximum view-stream frames per second")
	flag.Parse()

	logCfg.Level, logCfg.Format = cfg.LogLevel, cfg.LogFormat
	log := logging.New(logCfg)

	cfg.Tracing = observability.TracingConfigFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.ListenAddress), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, lis); err != nil {
		log.Error(ctx, "skynav exited", logging.Err(err))
		os.Exit(1)
	}
}

// run starts every component and blocks until ctx is cancelled or a server
// fails. It closes lis.
func run(ctx context.Context, cfg Config, log logging.Logger, lis net.Listener) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	navMetrics, err := observability.NewNavigatorCollector(reg)
	if err != nil {
		return fmt.Errorf("navigator metrics: %w", err)
	}
	ctlMetrics, err := observability.NewControlCollector(reg)
	if err != nil {
		return fmt.Errorf("control metrics: %w", err)
	}

	locations := kb.NewWithBuiltins()

	var store settings.Store = settings.NewMemoryStore(nil)
	if cfg.DBPath != "" {
		db, err := persistence.Open(cfg.DBPath, log)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		unsubscribe, err := db.SyncKnowledgeBase(ctx, locations)
		if err != nil {
			return err
		}
		defer unsubscribe()
		store = db
	}

	navCfg, err := settings.Load(ctx, store, log)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	solar := ephem.NewSolarSystem(timectrl.JulianDayFromTime(time.Now()))
	selection := sim.NewSelection()
	nav, err := core.NewNavigator(navCfg, solar, locations,
		core.WithLogger(log),
		core.WithSelection(selection),
		core.WithMovement(selection),
		core.WithSettingsWriter(store),
		core.WithMetrics(navMetrics))
	if err != nil {
		return fmt.Errorf("navigator: %w", err)
	}

	// The tracer provider needs the startup site, so it comes up after the
	// navigator.
	cfg.Tracing.Site = startupSite(nav)
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)
	_, span := observability.Tracer("cmd/skynav").Start(ctx, "startup")

	mode := timectrl.RealTime
	if cfg.Accelerated {
		mode = timectrl.Fixed
	}
	engine := sim.NewEngine(nav, selection, solar,
		timectrl.NewTimeController(cfg.TickInterval, mode),
		sim.WithEngineLogger(log))
	hub := stream.NewHub(engine,
		stream.WithRecorder(navMetrics),
		stream.WithLogger(log),
		stream.WithRate(cfg.StreamHz, cfg.StreamMaxHz))
	grpcServer := control.NewGRPCServer(control.NewService(engine, locations, log), ctlMetrics, log)
	span.End()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		_ = engine.Run(runCtx)
	}()
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		_ = hub.Run(runCtx)
	}()

	errCh := make(chan error, 2)
	go func() {
		log.Info(ctx, "starting control gRPC server", logging.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var httpSrv *http.Server
	if cfg.HTTPAddress != "" {
		httpSrv = &http.Server{
			Addr:              cfg.HTTPAddress,
			Handler:           newHTTPHandler(reg, hub, engine),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info(ctx, "serving HTTP", logging.String("addr", cfg.HTTPAddress))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	log.Info(context.Background(), "shutting down skynav")
	grpcServer.GracefulStop()
	cancel()
	if httpSrv != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		_ = httpSrv.Shutdown(shutdownCtx)
		cancelShutdown()
	}
	<-hubDone
	<-engineDone
	return runErr
}

func startupSite(nav *core.Navigator) observability.Site {
	return observability.Site{
		HomeBody: nav.HomePlanet(),
		Location: nav.CurrentLocation().ID(),
		Mount:    nav.MountMode().String(),
	}
}

type health struct {
	Status    string  `json:"status"`
	JulianDay float64 `json:"julian_day"`
	Location  string  `json:"location"`
	Clients   int     `json:"stream_clients"`
}

func newHTTPHandler(reg *prometheus.Registry, hub *stream.Hub, engine *sim.Engine) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.HandlerFor(reg))
	mux.Handle("/ws/view", hub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		st := engine.State()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(health{
			Status:    "ok",
			JulianDay: st.JulianDay,
			Location:  st.Location.ID(),
			Clients:   hub.Clients(),
		})
	})
	return mux
}
