package telemetry

// NopMetrics discards every sample.
func NopMetrics() Metrics {
	return nopMetrics{}
}

type nopMetrics struct{}

func (nopMetrics) Add(string, uint64)   {}
func (nopMetrics) Store(string, uint64) {}

// Multi fans samples out to every non-nil backend.
func Multi(backends ...Metrics) Metrics {
	filtered := make([]Metrics, 0, len(backends))
	for _, b := range backends {
		if b != nil {
			filtered = append(filtered, b)
		}
	}
	switch len(filtered) {
	case 0:
		return NopMetrics()
	case 1:
		return filtered[0]
	}
	return multiMetrics(filtered)
}

type multiMetrics []Metrics

func (m multiMetrics) Add(key string, delta uint64) {
	for _, b := range m {
		b.Add(key, delta)
	}
}

func (m multiMetrics) Store(key string, value uint64) {
	for _, b := range m {
		b.Store(key, value)
	}
}
