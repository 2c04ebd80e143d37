package bus

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks dropped messages per subscription kind. A nil *Metrics
// is safe to call methods on, matching the teacher's observability
// package so a Bus constructed without metrics costs nothing.
type Metrics struct {
	registry *prometheus.Registry
	dropped  *prometheus.CounterVec
}

// NewMetrics constructs a Metrics backed by a fresh Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.dropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "bus",
			Name:      "dropped_messages_total",
			Help:      "Total number of coordination bus messages dropped due to a full subscriber buffer",
		},
		[]string{"subscription_kind"},
	)
	m.registry.MustRegister(m.dropped)
	return m
}

func (m *Metrics) incDropped(kind string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(kind).Inc()
}

// Registry exposes the underlying registry for an HTTP exporter.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
