package prometheus

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveHTTPRequest(t *testing.T) {
	m := NewAppMetrics()

	m.ObserveHTTPRequest("GET", "/facts", 200, 42*time.Millisecond)
	m.ObserveHTTPRequest("GET", "/facts", 200, 10*time.Millisecond)
	m.ObserveHTTPRequest("POST", "/dedup", 500, time.Second)

	assert.Equal(t, float64(2),
		testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/facts", "200")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/dedup", "500")))
}

func TestObserveAnchorResolution(t *testing.T) {
	m := NewAppMetrics()

	m.ObserveAnchorResolution("exact", "raw")
	m.ObserveAnchorResolution("exact", "raw")
	m.ObserveAnchorResolution("none", "markdown")

	assert.Equal(t, float64(2),
		testutil.ToFloat64(m.AnchorResolutionsTotal.WithLabelValues("exact", "raw")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.AnchorResolutionsTotal.WithLabelValues("none", "markdown")))
}

func TestObserveDedupRun(t *testing.T) {
	m := NewAppMetrics()

	m.ObserveDedupRun(3, 7, 120*time.Millisecond, nil)
	m.ObserveDedupRun(0, 0, 10*time.Millisecond, assert.AnError)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.DedupRunsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.DedupRunsTotal.WithLabelValues("error")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.DedupGroupsFound))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.DedupFactsSuppressed))
}

func TestCacheObserver(t *testing.T) {
	m := NewAppMetrics()

	m.CacheHit()
	m.CacheHit()
	m.CacheMiss()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheMissesTotal))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := NewAppMetrics()
	m.ObserveEventPublished("dedup.completed")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "citekeep_events_published_total")
}
