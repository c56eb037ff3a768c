package sim

import (
	"errors"

	"github.com/XutaxKamay/css-enhanced-waf/internal/lagcomp"
	"github.com/XutaxKamay/css-enhanced-waf/internal/world"
)

var (
	// ErrMissingWorld indicates NewEngine was invoked without a world instance.
	ErrMissingWorld = errors.New("sim: world is nil")
	// ErrMissingManager indicates NewEngine was invoked without a compensation
	// manager.
	ErrMissingManager = errors.New("sim: lag compensation manager is nil")
)

// EngineOption configures NewEngine behaviour. Options are applied in order;
// later options override earlier ones.
type EngineOption interface {
	apply(*engineConfig)
}

type engineOptionFunc func(*engineConfig)

func (f engineOptionFunc) apply(cfg *engineConfig) {
	if f != nil {
		f(cfg)
	}
}

type engineConfig struct {
	deps       Deps
	loopConfig LoopConfig
	loopHooks  LoopHooks
}

// WithDeps injects shared infrastructure dependencies used by the engine core
// and loop orchestration.
func WithDeps(deps Deps) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.deps = deps
	})
}

// WithLoopConfig overrides the default command queue and tick loop sizing used
// by the engine.
func WithLoopConfig(config LoopConfig) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.loopConfig = config
	})
}

// WithLoopHooks supplies custom loop callbacks.
func WithLoopHooks(hooks LoopHooks) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.loopHooks = hooks
	})
}

// NewEngine binds the world and its compensation manager to a command queue
// and fixed-timestep loop.
func NewEngine(w *world.World, lag *lagcomp.Manager, opts ...EngineOption) (*Loop, error) {
	if w == nil {
		return nil, ErrMissingWorld
	}
	if lag == nil {
		return nil, ErrMissingManager
	}

	cfg := engineConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(&cfg)
		}
	}

	return NewLoop(NewCore(w, lag, cfg.deps), cfg.loopConfig, cfg.loopHooks), nil
}
