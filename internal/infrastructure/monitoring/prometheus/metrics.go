// Package prometheus registers and exposes citekeep's application metrics.
package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "citekeep"

var httpDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
var dedupDurationBuckets = []float64{.01, .05, .1, .5, 1, 5, 15, 60, 300}

// AppMetrics holds every metric the service emits.
type AppMetrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	AnchorResolutionsTotal *prometheus.CounterVec

	DedupRunsTotal       *prometheus.CounterVec
	DedupRunDuration     prometheus.Histogram
	DedupGroupsFound     prometheus.Counter
	DedupFactsSuppressed prometheus.Counter

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	EventsPublishedTotal *prometheus.CounterVec
}

// NewAppMetrics builds a self-contained registry with all application and
// runtime collectors registered.
func NewAppMetrics() *AppMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &AppMetrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   httpDurationBuckets,
		}, []string{"method", "path"}),

		AnchorResolutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anchor_resolutions_total",
			Help:      "Evidence anchor resolutions by match tier and content format.",
		}, []string{"tier", "format"}),

		DedupRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_runs_total",
			Help:      "Deduplication runs by outcome.",
		}, []string{"outcome"}),
		DedupRunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dedup_run_duration_seconds",
			Help:      "Wall-clock duration of deduplication runs.",
			Buckets:   dedupDurationBuckets,
		}),
		DedupGroupsFound: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_groups_found_total",
			Help:      "Duplicate groups detected across all runs.",
		}),
		DedupFactsSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_facts_suppressed_total",
			Help:      "Facts suppressed as near-duplicates across all runs.",
		}),

		CacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_cache_hits_total",
			Help:      "Source content cache hits.",
		}),
		CacheMissesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_cache_misses_total",
			Help:      "Source content cache misses.",
		}),

		EventsPublishedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events published by topic.",
		}, []string{"topic"}),
	}
}

// Handler exposes the registry for scraping.
func (m *AppMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one finished request.
func (m *AppMetrics) ObserveHTTPRequest(method, path string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ObserveAnchorResolution records the tier an anchor resolved at.
func (m *AppMetrics) ObserveAnchorResolution(tier, format string) {
	m.AnchorResolutionsTotal.WithLabelValues(tier, format).Inc()
}

// ObserveDedupRun records the outcome of one deduplication run.
func (m *AppMetrics) ObserveDedupRun(groups, suppressed int, elapsed time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.DedupRunsTotal.WithLabelValues(outcome).Inc()
	m.DedupRunDuration.Observe(elapsed.Seconds())
	m.DedupGroupsFound.Add(float64(groups))
	m.DedupFactsSuppressed.Add(float64(suppressed))
}

// CacheHit satisfies the content cache's observer contract.
func (m *AppMetrics) CacheHit() { m.CacheHitsTotal.Inc() }

// CacheMiss satisfies the content cache's observer contract.
func (m *AppMetrics) CacheMiss() { m.CacheMissesTotal.Inc() }

// ObserveEventPublished records one published domain event.
func (m *AppMetrics) ObserveEventPublished(topic string) {
	m.EventsPublishedTotal.WithLabelValues(topic).Inc()
}
