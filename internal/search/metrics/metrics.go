package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the search path. A nil *Metrics is a no-op.
type Metrics struct {
	Searches       *prometheus.CounterVec
	SearchDuration prometheus.Histogram
	IndexRetries   prometheus.Counter
	CacheLookups   *prometheus.CounterVec
	BreakerOpen    prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		Searches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tradegraph_search_requests_total",
			Help: "Total number of executed searches by outcome",
		}, []string{"outcome"}),
		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradegraph_search_duration_seconds",
			Help:    "Search execution latency including aggregations",
			Buckets: prometheus.DefBuckets,
		}),
		IndexRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tradegraph_search_index_retries_total",
			Help: "Total number of retried shipment index calls",
		}),
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tradegraph_search_cache_lookups_total",
			Help: "Search result cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		BreakerOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tradegraph_search_index_breaker_open",
			Help: "1 while the shipment index circuit breaker is open",
		}),
	}
}

func (m *Metrics) ObserveSearch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(outcome).Inc()
	m.SearchDuration.Observe(d.Seconds())
}

func (m *Metrics) IncrementRetries() {
	if m == nil {
		return
	}
	m.IndexRetries.Inc()
}

func (m *Metrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}
