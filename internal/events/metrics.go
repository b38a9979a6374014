package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// busMetrics are the event bus's prometheus instruments, grounded on the
// teacher pack's promauto registration idiom (one var block per
// concern, registered once at construction).
type busMetrics struct {
	published       *prometheus.CounterVec
	dropped         *prometheus.CounterVec
	subscriberCount *prometheus.GaugeVec
	registry        *prometheus.Registry
}

// Registry exposes the bus's private metrics registry so an HTTP
// handler (e.g. promhttp.HandlerFor) can serve it alongside the rest of
// the process's metrics.
func (b *Bus) Registry() *prometheus.Registry { return b.metrics.registry }

// newBusMetrics registers a fresh set of instruments on a private
// registry, rather than the global default one, so that constructing
// more than one Bus in a process (e.g. one per test) never panics with
// a duplicate-collector registration error.
func newBusMetrics() *busMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &busMetrics{
		published: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qcpipeline_events_published_total",
			Help: "Total events published per topic and type.",
		}, []string{"topic", "type"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qcpipeline_events_dropped_total",
			Help: "Total events dropped due to subscriber backpressure, per topic.",
		}, []string{"topic"}),
		subscriberCount: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "qcpipeline_event_subscribers",
			Help: "Current subscriber count per topic.",
		}, []string{"topic"}),
		registry: reg,
	}
}
