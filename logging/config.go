package logging

import "time"

// Config drives the Router. Sinks are referenced by name: "console", "json"
// and "feed" in the server, plus "memory" in tests.
type Config struct {
	EnabledSinks []string
	// BufferSize bounds the queue between Publish and the sinks; events past
	// it are dropped and counted in RouterStats.
	BufferSize      int
	MinimumSeverity Severity
	// Fields are merged into every event's Extra, e.g. the server name.
	Fields           map[string]any
	JSON             JSONConfig
	Console          ConsoleConfig
	DropWarnInterval time.Duration
}

// JSONConfig configures the newline delimited event log.
type JSONConfig struct {
	FilePath string
	// FlushInterval is how long buffered lines may wait before reaching the
	// file. Zero flushes after every event.
	FlushInterval time.Duration
}

type ConsoleConfig struct {
	UseColor bool
}

// DefaultConfig logs info and above to the console only. Most lag
// compensation events are debug and stay off unless the floor is lowered.
func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{"console"},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			FlushInterval: 2 * time.Second,
		},
	}
}

func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}

// CloneFields returns a copy of Fields, nil when there are none.
func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	cloned := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		cloned[k] = v
	}
	return cloned
}
