// Package http assembles the citekeep REST API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/citekeep/citekeep/internal/infrastructure/monitoring/logging"
	"github.com/citekeep/citekeep/internal/interfaces/http/handlers"
	"github.com/citekeep/citekeep/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies for the
// full route tree. Nil handlers leave their routes unregistered, which
// keeps partial wiring usable in tests.
type RouterConfig struct {
	FactHandler   *handlers.FactHandler
	DedupHandler  *handlers.DedupHandler
	SourceHandler *handlers.SourceHandler
	HealthHandler *handlers.HealthHandler

	MetricsHandler  http.Handler
	RequestObserver middleware.RequestObserver
	RateLimiter     *middleware.RateLimiter

	Logger logging.Logger
}

// NewRouter builds the gin engine with the standard middleware chain and
// every registered resource.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS())
	if cfg.RequestObserver != nil {
		r.Use(middleware.Metrics(cfg.RequestObserver))
	}
	r.Use(middleware.Logging(cfg.Logger))
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api/v1")
	{
		if cfg.FactHandler != nil {
			facts := api.Group("/facts")
			facts.GET("", cfg.FactHandler.List)
			facts.POST("", cfg.FactHandler.Create)
			facts.GET("/:id", cfg.FactHandler.Get)
			facts.PATCH("/:id", cfg.FactHandler.Patch)
			facts.DELETE("/:id", cfg.FactHandler.Delete)
			facts.GET("/:id/evidence", cfg.FactHandler.Evidence)
			facts.POST("/:id/capture_excerpt", cfg.FactHandler.CaptureExcerpt)
		}
		if cfg.DedupHandler != nil {
			api.POST("/dedup", cfg.DedupHandler.Run)
		}
		if cfg.SourceHandler != nil {
			api.GET("/sources/:id/content", cfg.SourceHandler.Content)
		}
	}

	return r
}
