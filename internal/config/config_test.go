package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/XutaxKamay/css-enhanced-waf/internal/lagcomp"
	"github.com/XutaxKamay/css-enhanced-waf/internal/telemetry"
	"github.com/XutaxKamay/css-enhanced-waf/logging"
)

func envMap(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := cfg.Sim.TickInterval(); got != time.Second/64 {
		t.Fatalf("unexpected tick interval: %v", got)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	doc := `
lagcomp:
  debug: true
  historyTicks: 128
sim:
  tickRate: 100
logging:
  sinks: [console]
  minimumSeverity: debug
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !cfg.LagComp.Debug || cfg.LagComp.HistoryTicks != 128 {
		t.Fatalf("lagcomp section not applied: %+v", cfg.LagComp)
	}
	if !cfg.LagComp.Enabled || cfg.LagComp.FractionScale != lagcomp.DefaultFractionScale {
		t.Fatalf("defaults lost: %+v", cfg.LagComp)
	}
	if cfg.Sim.TickRate != 100 || cfg.Sim.CommandCapacity != 256 {
		t.Fatalf("sim section not merged: %+v", cfg.Sim)
	}
	routerCfg, err := cfg.Logging.RouterConfig()
	if err != nil {
		t.Fatalf("router config: %v", err)
	}
	if routerCfg.MinimumSeverity != logging.SeverityDebug || !routerCfg.HasSink("console") || routerCfg.HasSink("feed") {
		t.Fatalf("unexpected router config: %+v", routerCfg)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	var cfg Config
	err := Decode([]byte("lagcomp:\n  unlag: true\n"), &cfg)
	if err == nil || !strings.Contains(err.Error(), "unlag") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	var logged []string
	logger := telemetry.LoggerFunc(func(format string, args ...any) {
		logged = append(logged, format)
	})
	cfg := Default()
	ApplyEnv(&cfg, envMap(map[string]string{
		"SV_UNLAG":             "0",
		"SV_UNLAG_DEBUG":       "true",
		"SV_LAGFLUSHBONECACHE": "1",
		"TICK_RATE":            "fast",
		"HTTP_ADDR":            "127.0.0.1:9000",
	}), logger)

	if cfg.LagComp.Enabled || !cfg.LagComp.Debug || !cfg.LagComp.FlushBoneCache {
		t.Fatalf("lagcomp overrides not applied: %+v", cfg.LagComp)
	}
	if cfg.Sim.TickRate != 64 {
		t.Fatalf("invalid tick rate should be ignored, got %d", cfg.Sim.TickRate)
	}
	if cfg.HTTP.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr %q", cfg.HTTP.Addr)
	}
	if len(logged) != 1 {
		t.Fatalf("expected one logged parse failure, got %d", len(logged))
	}
}

func TestFromEnvironmentValidates(t *testing.T) {
	_, err := FromEnvironment(envMap(map[string]string{"TICK_RATE": "0"}), nil)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}

	_, err = FromEnvironment(envMap(map[string]string{PathEnv: filepath.Join(t.TempDir(), "missing.yaml")}), nil)
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"json sink without path": func(c *Config) { c.Logging.Sinks = []string{"json"} },
		"unknown sink":           func(c *Config) { c.Logging.Sinks = []string{"syslog"} },
		"bad severity":           func(c *Config) { c.Logging.MinimumSeverity = "loud" },
		"drill over capacity":    func(c *Config) { c.Drill.Clients = c.LagComp.MaxActors },
		"empty latency range":    func(c *Config) { c.Drill.MinLatencyMs, c.Drill.MaxLatencyMs = 50, 10 },
		"flat world":             func(c *Config) { c.World.Depth = 0 },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", name, err)
		}
	}

	cfg := Default()
	cfg.LagComp.MaxActors = 0
	if err := cfg.Validate(); !errors.Is(err, lagcomp.ErrInvalidConfig) {
		t.Fatalf("expected lagcomp.ErrInvalidConfig, got %v", err)
	}
}
