package world

import "strings"

const (
	DefaultSeed  = "arena"
	DefaultWidth = 2048.0
	DefaultDepth = 2048.0

	// Standing and crouched player hulls.
	HullHalfWidth     = 16.0
	HullHeight        = 72.0
	HullCrouchHeight  = 54.0
	EyeHeight         = 64.0
	CrouchEyeHeight   = 46.0
	DefaultMoveSpeed  = 250.0
	DefaultMaxHealth  = 100
	DefaultShotDamage = 34
	RespawnTicks      = 128

	SpawnMargin        = 64.0
	DefaultTickSeconds = 1.0 / 64
)

// Config describes the arena.
type Config struct {
	Width        float64 `json:"width"`
	Depth        float64 `json:"depth"`
	Obstacles    int     `json:"obstacles"`
	Seed         string  `json:"seed"`
	FriendlyFire bool    `json:"friendlyFire"`
	// MaxActors sizes the slot arena.
	MaxActors int `json:"maxActors"`
	// TickSeconds is the simulated time advanced per tick.
	TickSeconds float64 `json:"tickSeconds"`
}

func (cfg Config) normalized() Config {
	normalized := cfg
	normalized.Seed = strings.TrimSpace(normalized.Seed)
	if normalized.Seed == "" {
		normalized.Seed = DefaultSeed
	}
	if normalized.Width <= 0 {
		normalized.Width = DefaultWidth
	}
	if normalized.Depth <= 0 {
		normalized.Depth = DefaultDepth
	}
	if normalized.Obstacles < 0 {
		normalized.Obstacles = 0
	}
	if normalized.MaxActors <= 0 {
		normalized.MaxActors = 32
	}
	if normalized.TickSeconds <= 0 {
		normalized.TickSeconds = DefaultTickSeconds
	}
	return normalized
}

// Normalized returns cfg with defaults filled in.
func (cfg Config) Normalized() Config {
	return cfg.normalized()
}

func DefaultConfig() Config {
	return Config{
		Width:       DefaultWidth,
		Depth:       DefaultDepth,
		Obstacles:   12,
		Seed:        DefaultSeed,
		MaxActors:   32,
		TickSeconds: DefaultTickSeconds,
	}
}
