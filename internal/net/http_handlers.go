package net

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/XutaxKamay/css-enhanced-waf/internal/net/ws"
	"github.com/XutaxKamay/css-enhanced-waf/internal/observability"
	"github.com/XutaxKamay/css-enhanced-waf/internal/sim"
	"github.com/XutaxKamay/css-enhanced-waf/internal/telemetry"
	"github.com/XutaxKamay/css-enhanced-waf/logging"
)

// SnapshotSource exposes the latest simulation state.
type SnapshotSource interface {
	Snapshot() sim.Snapshot
}

type HTTPHandlerConfig struct {
	Logger        telemetry.Logger
	Observability observability.Config
	TickRate      int

	// Feed serves /ws/events when set.
	Feed *ws.Feed
	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer
	// Metrics and RouterStats are folded into /diagnostics when set.
	Metrics     *logging.Metrics
	RouterStats func() logging.RouterStats
	// Reset serves POST /world/reset when set. It must only schedule the
	// reset; the simulation goroutine performs it.
	Reset func()
}

type diagnosticsPayload struct {
	Status     string               `json:"status"`
	ServerTime int64                `json:"serverTime"`
	TickRate   int                  `json:"tickRate"`
	State      sim.Snapshot         `json:"state"`
	Telemetry  map[string]uint64    `json:"telemetry,omitempty"`
	Router     *logging.RouterStats `json:"router,omitempty"`
	Feed       *int                 `json:"feedSubscribers,omitempty"`
}

func NewHTTPHandler(source SnapshotSource, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := diagnosticsPayload{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			TickRate:   cfg.TickRate,
			State:      source.Snapshot(),
			Telemetry:  cfg.Metrics.Snapshot(),
		}
		if cfg.RouterStats != nil {
			stats := cfg.RouterStats()
			payload.Router = &stats
		}
		if cfg.Feed != nil {
			subscribers := cfg.Feed.Subscribers()
			payload.Feed = &subscribers
		}
		writeJSON(w, logger, payload)
	})

	if cfg.Reset != nil {
		mux.HandleFunc("/world/reset", func(w nethttp.ResponseWriter, r *nethttp.Request) {
			if r.Method != nethttp.MethodPost {
				httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
				return
			}
			cfg.Reset()
			writeJSON(w, logger, struct {
				Status string `json:"status"`
			}{Status: "scheduled"})
		})
	}

	if cfg.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	if cfg.Feed != nil {
		mux.HandleFunc("/ws/events", cfg.Feed.Handle)
	}

	if cfg.Observability.EnablePprofTrace {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	return mux
}

func writeJSON(w nethttp.ResponseWriter, logger telemetry.Logger, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("failed to encode response: %v", err)
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
