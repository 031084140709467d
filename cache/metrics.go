package cache

import "github.com/prometheus/client_golang/prometheus"

const (
	metricsNamespace = "bale"
	metricsSubsystem = "resource_cache"
	packLabelKey     = "pack"
)

type metrics struct {
	hits      *prometheus.CounterVec
	misses    *prometheus.CounterVec
	negatives *prometheus.CounterVec
	evictions prometheus.Counter
}

func newMetrics() *metrics {
	return &metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "hits_total",
			Help:      "Number of loads served from a cached resource",
		}, []string{packLabelKey}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "misses_total",
			Help:      "Number of loads that reached the pack",
		}, []string{packLabelKey}),
		negatives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "negative_hits_total",
			Help:      "Number of loads answered by a cached not-found result",
		}, []string{packLabelKey}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "evictions_total",
			Help:      "Number of entries evicted to stay within the size limit",
		}),
	}
}

func (m *metrics) register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.hits, m.misses, m.negatives, m.evictions} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}
