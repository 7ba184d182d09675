package systems

import (
	"github.com/prometheus/client_golang/prometheus"
)

type allocatorMetrics struct {
	hits     prometheus.Counter
	misses   prometheus.Counter
	releases prometheus.Counter
	live     prometheus.Gauge
	resets   prometheus.Counter
}

func newAllocatorMetrics() *allocatorMetrics {
	return &allocatorMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "framegraph_allocator_reuse_total",
			Help: "Number of logical resources bound to an existing physical resource",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "framegraph_allocator_allocations_total",
			Help: "Number of physical resources created through the backend",
		}),
		releases: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "framegraph_allocator_releases_total",
			Help: "Number of physical resources released through the backend",
		}),
		live: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "framegraph_allocator_live_resources",
			Help: "Physical resources currently owned by the allocator",
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "framegraph_allocator_resets_total",
			Help: "Number of times every physical resource was invalidated",
		}),
	}
}

func (m *allocatorMetrics) MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(m.hits, m.misses, m.releases, m.live, m.resets)
}
