package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics exports samples as Prometheus collectors. Add feeds a
// counter and Store a gauge; collectors are registered on first use of a key.
type PrometheusMetrics struct {
	factory   promauto.Factory
	namespace string

	mu       sync.Mutex
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
}

// NewPrometheusMetrics registers collectors on reg under namespace.
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) *PrometheusMetrics {
	return &PrometheusMetrics{
		factory:   promauto.With(reg),
		namespace: namespace,
		counters:  make(map[string]prometheus.Counter),
		gauges:    make(map[string]prometheus.Gauge),
	}
}

func (p *PrometheusMetrics) Add(key string, delta uint64) {
	if p == nil || key == "" {
		return
	}
	p.mu.Lock()
	counter, ok := p.counters[key]
	if !ok {
		counter = p.factory.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      key,
			Help:      "Counter " + key + ".",
		})
		p.counters[key] = counter
	}
	p.mu.Unlock()
	counter.Add(float64(delta))
}

func (p *PrometheusMetrics) Store(key string, value uint64) {
	if p == nil || key == "" {
		return
	}
	p.mu.Lock()
	gauge, ok := p.gauges[key]
	if !ok {
		gauge = p.factory.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      key,
			Help:      "Gauge " + key + ".",
		})
		p.gauges[key] = gauge
	}
	p.mu.Unlock()
	gauge.Set(float64(value))
}
