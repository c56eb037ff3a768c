// Package config loads the server configuration from an optional YAML file
// and environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/XutaxKamay/css-enhanced-waf/internal/lagcomp"
	"github.com/XutaxKamay/css-enhanced-waf/logging"
)

// PathEnv names the environment variable holding the config file path.
const PathEnv = "LAGCOMP_CONFIG"

// ErrInvalid reports a configuration that cannot run.
var ErrInvalid = errors.New("config: invalid")

// Config is the full server configuration.
type Config struct {
	LagComp lagcomp.Config `yaml:"lagcomp" json:"lagcomp"`
	Sim     SimConfig      `yaml:"sim" json:"sim"`
	World   WorldConfig    `yaml:"world" json:"world"`
	Logging LoggingConfig  `yaml:"logging" json:"logging"`
	HTTP    HTTPConfig     `yaml:"http" json:"http"`
	Drill   DrillConfig    `yaml:"drill" json:"drill"`
}

// SimConfig tunes the fixed timestep loop.
type SimConfig struct {
	TickRate        int `yaml:"tickRate" json:"tickRate" jsonschema:"minimum=1"`
	MaxCatchUpTicks int `yaml:"maxCatchUpTicks" json:"maxCatchUpTicks" jsonschema:"minimum=0"`
	// CommandCapacity bounds the commands staged between ticks.
	CommandCapacity int `yaml:"commandCapacity" json:"commandCapacity" jsonschema:"minimum=1"`
	// PerActorLimit bounds the commands one actor may stage per tick. Zero
	// disables throttling.
	PerActorLimit     int     `yaml:"perActorLimit" json:"perActorLimit" jsonschema:"minimum=0"`
	BudgetAlarmRatio  float64 `yaml:"budgetAlarmRatio" json:"budgetAlarmRatio"`
	BudgetAlarmStreak uint64  `yaml:"budgetAlarmStreak" json:"budgetAlarmStreak"`
}

// TickInterval is the wall time between ticks.
func (c SimConfig) TickInterval() time.Duration {
	if c.TickRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.TickRate)
}

// WorldConfig describes the host arena.
type WorldConfig struct {
	Width        float64 `yaml:"width" json:"width"`
	Depth        float64 `yaml:"depth" json:"depth"`
	Obstacles    int     `yaml:"obstacles" json:"obstacles" jsonschema:"minimum=0"`
	Seed         string  `yaml:"seed" json:"seed"`
	FriendlyFire bool    `yaml:"friendlyFire" json:"friendlyFire"`
}

// LoggingConfig selects sinks and the severity floor.
type LoggingConfig struct {
	Sinks           []string `yaml:"sinks" json:"sinks" jsonschema:"enum=console,enum=json,enum=feed"`
	MinimumSeverity string   `yaml:"minimumSeverity" json:"minimumSeverity" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	BufferSize      int      `yaml:"bufferSize" json:"bufferSize"`
	JSONPath        string   `yaml:"jsonPath" json:"jsonPath"`
	UseColor        bool     `yaml:"useColor" json:"useColor"`
}

// RouterConfig converts the section into the router's configuration.
func (c LoggingConfig) RouterConfig() (logging.Config, error) {
	cfg := logging.DefaultConfig()
	severity, err := logging.ParseSeverity(c.MinimumSeverity)
	if err != nil {
		return cfg, err
	}
	cfg.MinimumSeverity = severity
	cfg.EnabledSinks = append([]string(nil), c.Sinks...)
	if c.BufferSize > 0 {
		cfg.BufferSize = c.BufferSize
	}
	cfg.JSON.FilePath = c.JSONPath
	cfg.Console.UseColor = c.UseColor
	return cfg, nil
}

// HTTPConfig configures the diagnostics server.
type HTTPConfig struct {
	Addr             string `yaml:"addr" json:"addr"`
	EnablePprofTrace bool   `yaml:"enablePprofTrace" json:"enablePprofTrace"`
}

// DrillConfig spawns simulated clients that fire at each other with
// configurable latency.
type DrillConfig struct {
	Enabled        bool  `yaml:"enabled" json:"enabled"`
	Clients        int   `yaml:"clients" json:"clients" jsonschema:"minimum=0"`
	Bots           int   `yaml:"bots" json:"bots" jsonschema:"minimum=0"`
	MinLatencyMs   int   `yaml:"minLatencyMs" json:"minLatencyMs" jsonschema:"minimum=0"`
	MaxLatencyMs   int   `yaml:"maxLatencyMs" json:"maxLatencyMs" jsonschema:"minimum=0"`
	FireEveryTicks int   `yaml:"fireEveryTicks" json:"fireEveryTicks" jsonschema:"minimum=1"`
	Seed           int64 `yaml:"seed" json:"seed"`
}

// LatencyRange converts the millisecond bounds to durations.
func (c DrillConfig) LatencyRange() (time.Duration, time.Duration) {
	return time.Duration(c.MinLatencyMs) * time.Millisecond, time.Duration(c.MaxLatencyMs) * time.Millisecond
}

// Default returns the built in configuration.
func Default() Config {
	return Config{
		LagComp: lagcomp.DefaultConfig(),
		Sim: SimConfig{
			TickRate:          64,
			MaxCatchUpTicks:   4,
			CommandCapacity:   256,
			PerActorLimit:     8,
			BudgetAlarmRatio:  2,
			BudgetAlarmStreak: 32,
		},
		World: WorldConfig{
			Width:     2048,
			Depth:     2048,
			Obstacles: 12,
			Seed:      "arena",
		},
		Logging: LoggingConfig{
			Sinks:           []string{"console", "feed"},
			MinimumSeverity: "info",
			BufferSize:      512,
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		Drill: DrillConfig{
			Enabled:        true,
			Clients:        4,
			Bots:           2,
			MinLatencyMs:   20,
			MaxLatencyMs:   150,
			FireEveryTicks: 32,
			Seed:           7,
		},
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := Decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Decode applies the YAML document in data onto cfg.
func Decode(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

// Validate rejects configurations the server cannot run.
func (c Config) Validate() error {
	if err := c.LagComp.Validate(); err != nil {
		return err
	}
	if c.Sim.TickRate < 1 {
		return fmt.Errorf("%w: sim.tickRate must be positive, got %d", ErrInvalid, c.Sim.TickRate)
	}
	if c.Sim.CommandCapacity < 1 {
		return fmt.Errorf("%w: sim.commandCapacity must be positive, got %d", ErrInvalid, c.Sim.CommandCapacity)
	}
	if c.Sim.MaxCatchUpTicks < 0 || c.Sim.PerActorLimit < 0 {
		return fmt.Errorf("%w: sim limits must not be negative", ErrInvalid)
	}
	if c.World.Width <= 0 || c.World.Depth <= 0 {
		return fmt.Errorf("%w: world extents must be positive", ErrInvalid)
	}
	if _, err := logging.ParseSeverity(c.Logging.MinimumSeverity); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	for _, sink := range c.Logging.Sinks {
		switch sink {
		case "console", "json", "feed":
		default:
			return fmt.Errorf("%w: unknown logging sink %q", ErrInvalid, sink)
		}
		if sink == "json" && strings.TrimSpace(c.Logging.JSONPath) == "" {
			return fmt.Errorf("%w: logging.jsonPath is required by the json sink", ErrInvalid)
		}
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return fmt.Errorf("%w: http.addr must not be empty", ErrInvalid)
	}
	if c.Drill.Enabled {
		if c.Drill.Clients < 0 || c.Drill.Bots < 0 {
			return fmt.Errorf("%w: drill counts must not be negative", ErrInvalid)
		}
		if total := c.Drill.Clients + c.Drill.Bots; total > c.LagComp.MaxActors {
			return fmt.Errorf("%w: drill spawns %d actors but lagcomp.maxActors is %d", ErrInvalid, total, c.LagComp.MaxActors)
		}
		if c.Drill.MinLatencyMs < 0 || c.Drill.MaxLatencyMs < c.Drill.MinLatencyMs {
			return fmt.Errorf("%w: drill latency range [%d, %d] is empty", ErrInvalid, c.Drill.MinLatencyMs, c.Drill.MaxLatencyMs)
		}
		if c.Drill.FireEveryTicks < 1 {
			return fmt.Errorf("%w: drill.fireEveryTicks must be positive", ErrInvalid)
		}
	}
	return nil
}
