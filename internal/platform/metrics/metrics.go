// Package metrics exposes Prometheus instrumentation for the HTTP surface
// and the filtering engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors registered for the service.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	filterApplications prometheus.Counter
	filterResultSize   prometheus.Histogram

	languageCacheHits   prometheus.Counter
	languageCacheMisses prometheus.Counter

	activeSessions prometheus.Gauge
}

// New constructs the metric set on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		filterApplications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "filter",
			Name:      "applications_total",
			Help:      "Number of catalog filtering passes.",
		}),
		filterResultSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "filter",
			Name:      "result_size",
			Help:      "Products returned per filtering pass.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		languageCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "languages",
			Name:      "cache_hits_total",
			Help:      "Language availability lookups served from cache.",
		}),
		languageCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "languages",
			Name:      "cache_misses_total",
			Help:      "Language availability lookups that hit the upstream.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storefront",
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Filter sessions currently held in memory.",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.filterApplications,
		m.filterResultSize,
		m.languageCacheHits,
		m.languageCacheMisses,
		m.activeSessions,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latencies per chi route pattern.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(recorder, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			m.requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(recorder.status)).Inc()
			m.requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}

// ObserveFilterPass records one filtering pass and its result size.
func (m *Metrics) ObserveFilterPass(results int) {
	m.filterApplications.Inc()
	m.filterResultSize.Observe(float64(results))
}

// LanguageCacheHit records a cache-served language lookup.
func (m *Metrics) LanguageCacheHit() { m.languageCacheHits.Inc() }

// LanguageCacheMiss records a language lookup that reached the upstream.
func (m *Metrics) LanguageCacheMiss() { m.languageCacheMisses.Inc() }

// SetActiveSessions reports the current filter session count.
func (m *Metrics) SetActiveSessions(n int) { m.activeSessions.Set(float64(n)) }

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
