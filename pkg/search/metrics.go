package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes search, cache and index collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	searches      *prometheus.CounterVec
	duration      prometheus.Histogram
	cacheLookups  *prometheus.CounterVec
	cacheEntries  prometheus.Gauge
	evictions     prometheus.Counter
	indexEntries  prometheus.Gauge
	indexRebuilds *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitesearch",
			Name:      "queries_total",
			Help:      "Search queries by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sitesearch",
			Name:      "query_duration_seconds",
			Help:      "Time spent answering search queries.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitesearch",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Result cache lookups by result.",
		}, []string{"result"}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sitesearch",
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Entries currently held in the result cache.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sitesearch",
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Entries evicted to keep the cache within its bound.",
		}),
		indexEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sitesearch",
			Subsystem: "index",
			Name:      "entries",
			Help:      "Entries in the current search index.",
		}),
		indexRebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitesearch",
			Subsystem: "index",
			Name:      "rebuilds_total",
			Help:      "Index builds from the content source by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.searches,
			m.duration,
			m.cacheLookups,
			m.cacheEntries,
			m.evictions,
			m.indexEntries,
			m.indexRebuilds,
		)
	}
	return m
}

// Search outcomes
const (
	outcomeHit   = "cache_hit"
	outcomeMiss  = "computed"
	outcomeEmpty = "empty_query"
	outcomeError = "index_error"
)

func (m *Metrics) recordSearch(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) recordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) setCacheSize(n int) {
	if m == nil {
		return
	}
	m.cacheEntries.Set(float64(n))
}

func (m *Metrics) recordEviction() {
	if m == nil {
		return
	}
	m.evictions.Inc()
}

func (m *Metrics) setIndexSize(n int) {
	if m == nil {
		return
	}
	m.indexEntries.Set(float64(n))
}

func (m *Metrics) recordRebuild(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.indexRebuilds.WithLabelValues(result).Inc()
}
