// Package metrics provides Prometheus metrics for the lanceo sync core.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Manager owns every collector exported by the process.
// A nil *Manager is valid and records nothing.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	cacheLoads        *prometheus.CounterVec
	cacheLoadDuration prometheus.Histogram
	listingsCached    prometheus.Gauge
	providersCached   prometheus.Gauge

	optimisticWrites    *prometheus.CounterVec
	optimisticRollbacks *prometheus.CounterVec
	remoteFailures      *prometheus.CounterVec

	feedEvents *prometheus.CounterVec

	sessionTransitions *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "lanceo",
		subsystem:        "sync",
		histogramBuckets: prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.cacheLoads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_loads_total",
		Help:      "Full cache loads by result",
	}, []string{"result"})

	m.cacheLoadDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_load_duration_seconds",
		Help:      "Duration of full cache loads",
		Buckets:   m.histogramBuckets,
	})

	m.listingsCached = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "listings_cached",
		Help:      "Listings currently held by the cache",
	})

	m.providersCached = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "providers_cached",
		Help:      "Provider profiles currently held by the cache",
	})

	m.optimisticWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "optimistic_writes_total",
		Help:      "Optimistic local mutations by operation",
	}, []string{"op"})

	m.optimisticRollbacks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "optimistic_rollbacks_total",
		Help:      "Optimistic mutations reverted after a failed remote write",
	}, []string{"op"})

	m.remoteFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "remote_failures_total",
		Help:      "Failed calls to the remote data service by operation",
	}, []string{"op"})

	m.feedEvents = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_events_total",
		Help:      "Change feed events received by table and operation",
	}, []string{"table", "op"})

	m.sessionTransitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "session_transitions_total",
		Help:      "Session store transitions by resulting kind",
	}, []string{"kind"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status code",
	}, []string{"route", "code"})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCacheLoad records one full cache load.
func (m *Manager) ObserveCacheLoad(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.cacheLoads.WithLabelValues(result).Inc()
	m.cacheLoadDuration.Observe(d.Seconds())
}

// SetCacheSizes updates the cached entity gauges.
func (m *Manager) SetCacheSizes(listings, providers int) {
	if m == nil {
		return
	}
	m.listingsCached.Set(float64(listings))
	m.providersCached.Set(float64(providers))
}

// IncOptimisticWrite counts an optimistic local mutation.
func (m *Manager) IncOptimisticWrite(op string) {
	if m == nil {
		return
	}
	m.optimisticWrites.WithLabelValues(op).Inc()
}

// IncRollback counts a reverted optimistic mutation.
func (m *Manager) IncRollback(op string) {
	if m == nil {
		return
	}
	m.optimisticRollbacks.WithLabelValues(op).Inc()
}

// IncRemoteFailure counts a failed remote call.
func (m *Manager) IncRemoteFailure(op string) {
	if m == nil {
		return
	}
	m.remoteFailures.WithLabelValues(op).Inc()
}

// IncFeedEvent counts a change feed event.
func (m *Manager) IncFeedEvent(table, op string) {
	if m == nil {
		return
	}
	m.feedEvents.WithLabelValues(table, op).Inc()
}

// IncSessionTransition counts a session change.
func (m *Manager) IncSessionTransition(kind string) {
	if m == nil {
		return
	}
	m.sessionTransitions.WithLabelValues(kind).Inc()
}

// IncHTTPRequest counts a served HTTP request.
func (m *Manager) IncHTTPRequest(route, code string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, code).Inc()
}
