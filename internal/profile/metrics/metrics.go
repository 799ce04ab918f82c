// Package metrics holds Prometheus metrics for the profile domain.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all profile lookup metrics. Services nil-guard their metrics
// field so unit tests can skip registration entirely.
type Metrics struct {
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	SingleFlightShared prometheus.Counter
	SourceDegraded     *prometheus.CounterVec
	LookupDuration     prometheus.Histogram
	RateLimitFailOpen  prometheus.Counter
}

// New creates and registers all profile metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kompas_profile_cache_hits_total",
			Help: "Profile lookups served from cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kompas_profile_cache_misses_total",
			Help: "Profile lookups that required an upstream fan-out",
		}),
		SingleFlightShared: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kompas_profile_singleflight_shared_total",
			Help: "Lookups that piggybacked on an in-flight identical fetch",
		}),
		SourceDegraded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kompas_profile_source_degraded_total",
			Help: "Upstream source failures downgraded to degraded sections",
		}, []string{"source"}),
		LookupDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kompas_profile_lookup_duration_seconds",
			Help:    "End-to-end profile assembly latency",
			Buckets: prometheus.DefBuckets,
		}),
		RateLimitFailOpen: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kompas_ratelimit_fail_open_total",
			Help: "Rate limit checks allowed because the backing store was unavailable",
		}),
	}
}

// ObserveLookup records one profile assembly duration.
func (m *Metrics) ObserveLookup(d time.Duration) {
	if m == nil {
		return
	}
	m.LookupDuration.Observe(d.Seconds())
}

// RecordDegraded counts one degraded source outcome.
func (m *Metrics) RecordDegraded(source string) {
	if m == nil {
		return
	}
	m.SourceDegraded.WithLabelValues(source).Inc()
}

// RecordFailOpen counts one rate-limit decision made without the store.
func (m *Metrics) RecordFailOpen() {
	if m == nil {
		return
	}
	m.RateLimitFailOpen.Inc()
}
