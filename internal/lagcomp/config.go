package lagcomp

import (
	"errors"
	"fmt"
)

const (
	// DefaultHistoryTicks is the per-actor track capacity.
	DefaultHistoryTicks = 1000
	// DefaultMaxActors sizes the per-slot arenas.
	DefaultMaxActors = 32
	// DefaultFractionScale lands partial restorations just short of the
	// obstruction.
	DefaultFractionScale = 0.95
)

// ErrInvalidConfig reports a configuration the engine cannot be sized from.
var ErrInvalidConfig = errors.New("lagcomp: invalid config")

// Config tunes the compensation engine.
type Config struct {
	// Enabled is the global switch. Disabling clears all history.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Debug publishes debug events for skipped actors, blocked restorations
	// and invariant violations.
	Debug bool `yaml:"debug" json:"debug"`
	// FlushBoneCache invalidates cached bones of every backtracked actor.
	FlushBoneCache bool `yaml:"flushBoneCache" json:"flushBoneCache"`
	// HistoryTicks is the capacity of every per-actor track.
	HistoryTicks int `yaml:"historyTicks" json:"historyTicks" jsonschema:"minimum=1"`
	// MaxActors is the number of slots the arenas are sized for.
	MaxActors int `yaml:"maxActors" json:"maxActors" jsonschema:"minimum=1"`
	// FractionScale damps partial restorations, in (0, 1].
	FractionScale float64 `yaml:"fractionScale" json:"fractionScale" jsonschema:"exclusiveMinimum=0,maximum=1"`
	// DebugEventsPerSecond rate limits missing-history debug events.
	DebugEventsPerSecond float64 `yaml:"debugEventsPerSecond" json:"debugEventsPerSecond"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		HistoryTicks:         DefaultHistoryTicks,
		MaxActors:            DefaultMaxActors,
		FractionScale:        DefaultFractionScale,
		DebugEventsPerSecond: 20,
	}
}

// Validate checks the sizing fields.
func (c Config) Validate() error {
	if c.HistoryTicks < 1 {
		return fmt.Errorf("%w: historyTicks must be positive, got %d", ErrInvalidConfig, c.HistoryTicks)
	}
	if c.MaxActors < 1 {
		return fmt.Errorf("%w: maxActors must be positive, got %d", ErrInvalidConfig, c.MaxActors)
	}
	if !(c.FractionScale > 0 && c.FractionScale <= 1) {
		return fmt.Errorf("%w: fractionScale must be in (0, 1], got %v", ErrInvalidConfig, c.FractionScale)
	}
	if c.DebugEventsPerSecond < 0 {
		return fmt.Errorf("%w: debugEventsPerSecond must not be negative, got %v", ErrInvalidConfig, c.DebugEventsPerSecond)
	}
	return nil
}
