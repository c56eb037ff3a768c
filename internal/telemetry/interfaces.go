// Package telemetry carries the plain diagnostics logger and the metric sink
// shared by the compensation engine, the tick loop and the HTTP layer.
package telemetry

import (
	"log"

	"github.com/XutaxKamay/css-enhanced-waf/logging"
)

// Logger is the printf style diagnostics logger. Structured, player facing
// events go through logging.Publisher instead.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts functions into the Logger interface. A nil LoggerFunc
// discards everything.
type LoggerFunc func(format string, args ...any)

func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a standard library logger. The result also exposes the
// wrapped logger through StandardLogger so the logging router can reuse it
// as its fallback.
func WrapLogger(logger *log.Logger) Logger {
	return &stdLogger{logger: logger}
}

type stdLogger struct {
	logger *log.Logger
}

func (l *stdLogger) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

// StandardLogger returns the wrapped logger, nil when none was given.
func (l *stdLogger) StandardLogger() *log.Logger {
	if l == nil {
		return nil
	}
	return l.logger
}

// WithPrefix tags every line of logger with prefix, e.g. "[drill] ".
func WithPrefix(logger Logger, prefix string) Logger {
	if logger == nil {
		return LoggerFunc(nil)
	}
	return LoggerFunc(func(format string, args ...any) {
		logger.Printf(prefix+format, args...)
	})
}

// Metrics receives counters (Add) and gauges (Store) keyed by metric name,
// e.g. lagcomp_backtracked_total or sim_command_buffer_occupancy.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// WrapMetrics feeds an in-process logging.Metrics registry, the backing store
// of the diagnostics endpoint.
func WrapMetrics(metrics *logging.Metrics) Metrics {
	return counterMap{metrics: metrics}
}

type counterMap struct {
	metrics *logging.Metrics
}

func (m counterMap) Add(key string, delta uint64) {
	m.metrics.TelemetryAdd(key, delta)
}

func (m counterMap) Store(key string, value uint64) {
	m.metrics.TelemetryStore(key, value)
}
