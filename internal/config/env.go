package config

import (
	"os"
	"strconv"

	"github.com/XutaxKamay/css-enhanced-waf/internal/telemetry"
)

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg from the environment. Values that fail to parse are
// logged and ignored.
func ApplyEnv(cfg *Config, lookup LookupFunc, logger telemetry.Logger) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}

	boolVar := func(key string, dst *bool) {
		raw, ok := lookup(key)
		if !ok || raw == "" {
			return
		}
		value, err := strconv.ParseBool(raw)
		if err != nil {
			logger.Printf("invalid %s=%q: %v", key, raw, err)
			return
		}
		*dst = value
	}

	boolVar("SV_UNLAG", &cfg.LagComp.Enabled)
	boolVar("SV_UNLAG_DEBUG", &cfg.LagComp.Debug)
	boolVar("SV_LAGFLUSHBONECACHE", &cfg.LagComp.FlushBoneCache)
	boolVar("ENABLE_PPROF_TRACE", &cfg.HTTP.EnablePprofTrace)
	boolVar("DRILL_ENABLED", &cfg.Drill.Enabled)

	if raw, ok := lookup("TICK_RATE"); ok && raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			cfg.Sim.TickRate = value
		} else {
			logger.Printf("invalid TICK_RATE=%q: %v", raw, err)
		}
	}
	if raw, ok := lookup("HTTP_ADDR"); ok && raw != "" {
		cfg.HTTP.Addr = raw
	}
}

// FromEnvironment loads the file named by LAGCOMP_CONFIG, if any, applies the
// environment overrides and validates the result.
func FromEnvironment(lookup LookupFunc, logger telemetry.Logger) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := Default()
	if path, ok := lookup(PathEnv); ok && path != "" {
		loaded, err := Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	ApplyEnv(&cfg, lookup, logger)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
