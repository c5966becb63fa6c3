package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "shaderdex"

// Metrics holds the server's Prometheus instruments. Each Server owns
// its own registry, so tests can run servers side by side without
// duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	queryResults    prometheus.Histogram
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	rebuildsTotal   prometheus.Counter
	buildDuration   prometheus.Histogram
}

// newMetrics registers the instrument set. records is sampled at
// scrape time, so the gauge tracks handle swaps without bookkeeping.
func newMetrics(records func() float64) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		queryResults: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "query_results",
			Help:      "Result set sizes of structured queries",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "query_cache_hits_total",
			Help:      "Structured queries answered from the result cache",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "query_cache_misses_total",
			Help:      "Structured queries evaluated against the index",
		}),
		rebuildsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "index_rebuilds_total",
			Help:      "Incremental index rebuilds applied in watch mode",
		}),
		buildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "index_build_duration_seconds",
			Help:      "Time to fold a change batch into the index",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "index_records",
		Help:      "Shaders in the published snapshot",
	}, records)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRebuild counts one applied watch-mode change batch.
func (m *Metrics) RecordRebuild(took time.Duration) {
	m.rebuildsTotal.Inc()
	m.buildDuration.Observe(took.Seconds())
}
