package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHealthRouter(checks map[string]HealthChecker) *gin.Engine {
	h := NewHealthHandler(checks)
	r := gin.New()
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	return r
}

func TestLiveness(t *testing.T) {
	r := newHealthRouter(nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadinessAllHealthy(t *testing.T) {
	r := newHealthRouter(map[string]HealthChecker{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return nil },
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "ok", deps["postgres"])
	assert.Equal(t, "ok", deps["redis"])
}

func TestReadinessDependencyDown(t *testing.T) {
	r := newHealthRouter(map[string]HealthChecker{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return assert.AnError },
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
}
