package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/XutaxKamay/css-enhanced-waf/internal/config"
	"github.com/XutaxKamay/css-enhanced-waf/internal/drill"
	"github.com/XutaxKamay/css-enhanced-waf/internal/lagcomp"
	servernet "github.com/XutaxKamay/css-enhanced-waf/internal/net"
	"github.com/XutaxKamay/css-enhanced-waf/internal/net/ws"
	"github.com/XutaxKamay/css-enhanced-waf/internal/observability"
	"github.com/XutaxKamay/css-enhanced-waf/internal/sim"
	"github.com/XutaxKamay/css-enhanced-waf/internal/telemetry"
	"github.com/XutaxKamay/css-enhanced-waf/internal/world"
	"github.com/XutaxKamay/css-enhanced-waf/logging"
	loggingSinks "github.com/XutaxKamay/css-enhanced-waf/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

// Options carries process level collaborators that do not belong in the
// configuration file.
type Options struct {
	Logger telemetry.Logger
}

// Run starts the simulation, the drill population and the diagnostics
// server, and blocks until ctx is cancelled or the server fails.
func Run(ctx context.Context, cfg config.Config, opts Options) error {
	telemetryLogger := opts.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	logConfig, err := cfg.Logging.RouterConfig()
	if err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}
	sinks := map[string]logging.Sink{
		"console": loggingSinks.NewConsole(os.Stdout, logConfig.Console),
	}
	var feed *ws.Feed
	if logConfig.HasSink("feed") {
		feed = ws.NewFeed(ws.FeedConfig{Logger: telemetryLogger})
		sinks["feed"] = feed
	}
	if logConfig.HasSink("json") {
		file, err := os.OpenFile(logConfig.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open json log: %w", err)
		}
		defer file.Close()
		sinks["json"] = loggingSinks.NewJSON(file, logConfig.JSON.FlushInterval)
	}

	router, err := logging.NewRouter(logConfig, logging.SystemClock{}, fallbackLogger, sinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()
	if feed != nil {
		feed.Attach(router)
	}

	observabilityCfg := observability.Config{EnablePprofTrace: cfg.HTTP.EnablePprofTrace}
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	counters := &logging.Metrics{}
	metrics := telemetry.Multi(
		telemetry.NewPrometheusMetrics(registry, observabilityCfg.Namespace()),
		telemetry.WrapMetrics(counters),
	)

	var (
		lag    *lagcomp.Manager
		driver *drill.Driver
	)
	w, err := world.New(world.Config{
		Width:        cfg.World.Width,
		Depth:        cfg.World.Depth,
		Obstacles:    cfg.World.Obstacles,
		Seed:         cfg.World.Seed,
		FriendlyFire: cfg.World.FriendlyFire,
		MaxActors:    cfg.LagComp.MaxActors,
		TickSeconds:  cfg.Sim.TickInterval().Seconds(),
	}, world.Deps{
		Publisher: router,
		OnRemove: func(slot lagcomp.Slot) {
			lag.Forget(slot)
			if driver != nil {
				driver.Forget(slot)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to construct world: %w", err)
	}

	lag = lagcomp.New(lagcomp.Deps{
		Roster:    w,
		Eligible:  world.Eligibility(cfg.World.FriendlyFire),
		Collider:  w.Collider(),
		Publisher: router,
		Metrics:   metrics,
	})
	if err := lag.Init(cfg.LagComp); err != nil {
		return fmt.Errorf("failed to initialise lag compensation: %w", err)
	}

	if cfg.Drill.Enabled {
		minLatency, maxLatency := cfg.Drill.LatencyRange()
		driver, err = drill.New(w, drill.Config{
			Clients:        cfg.Drill.Clients,
			Bots:           cfg.Drill.Bots,
			MinLatency:     minLatency,
			MaxLatency:     maxLatency,
			FireEveryTicks: cfg.Drill.FireEveryTicks,
			Seed:           cfg.Drill.Seed,
		}, drill.Deps{Logger: telemetryLogger})
		if err != nil && !errors.Is(err, drill.ErrNoClients) {
			return fmt.Errorf("failed to start drill: %w", err)
		}
	}

	core := sim.NewCore(w, lag, sim.Deps{
		Logger:    telemetryLogger,
		Metrics:   metrics,
		Publisher: router,
	})

	var (
		loop         *sim.Loop
		resetPending atomic.Bool
	)
	loop = sim.NewLoop(core, sim.LoopConfig{
		TickRate:          cfg.Sim.TickRate,
		CatchupMaxTicks:   cfg.Sim.MaxCatchUpTicks,
		CommandCapacity:   cfg.Sim.CommandCapacity,
		PerActorLimit:     cfg.Sim.PerActorLimit,
		BudgetAlarmRatio:  cfg.Sim.BudgetAlarmRatio,
		BudgetAlarmStreak: cfg.Sim.BudgetAlarmStreak,
	}, sim.LoopHooks{
		Prepare: func(tick sim.LoopTickContext) {
			if resetPending.Swap(false) {
				core.Reset()
				if driver != nil {
					driver.Reset()
				}
				telemetryLogger.Printf("world reset at tick %d", tick.Tick)
			}
			if driver == nil {
				return
			}
			for _, cmd := range driver.Commands(tick.Tick) {
				loop.Enqueue(cmd)
			}
		},
		OnQueueWarning: func(length int) {
			telemetryLogger.Printf("[backpressure] command queue at %d", length)
		},
	})

	stop := make(chan struct{})
	simDone := make(chan struct{})
	go func() {
		defer close(simDone)
		loop.Run(stop)
	}()
	defer func() {
		close(stop)
		<-simDone
		lag.Teardown()
	}()

	handler := servernet.NewHTTPHandler(loop, servernet.HTTPHandlerConfig{
		Logger:        telemetryLogger,
		Observability: observabilityCfg,
		TickRate:      cfg.Sim.TickRate,
		Feed:          feed,
		Gatherer:      registry,
		Metrics:       counters,
		RouterStats:   router.Stats,
		Reset: func() {
			resetPending.Store(true)
		},
	})

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}
	serveErr := make(chan error, 1)
	go func() {
		telemetryLogger.Printf("server listening on %s", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
