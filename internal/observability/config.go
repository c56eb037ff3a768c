package observability

// Config captures opt-in observability toggles that wire into the server.
type Config struct {
	// EnablePprofTrace mounts net/http/pprof under /debug/pprof/.
	EnablePprofTrace bool
	// MetricsNamespace prefixes every exported Prometheus series.
	MetricsNamespace string
}

// DefaultMetricsNamespace is used when Config.MetricsNamespace is empty.
const DefaultMetricsNamespace = "waf"

// Namespace returns the effective metrics namespace.
func (c Config) Namespace() string {
	if c.MetricsNamespace == "" {
		return DefaultMetricsNamespace
	}
	return c.MetricsNamespace
}
