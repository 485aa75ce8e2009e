package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/citekeep/citekeep/internal/application/dedup"
	"github.com/citekeep/citekeep/internal/config"
	"github.com/citekeep/citekeep/internal/infrastructure/messaging/kafka"
	"github.com/citekeep/citekeep/internal/infrastructure/monitoring/logging"
	appErrors "github.com/citekeep/citekeep/pkg/errors"
)

// DedupObserver records dedup run outcomes.
type DedupObserver interface {
	ObserveDedupRun(groups, suppressed int, elapsed time.Duration, err error)
}

type nopDedupObserver struct{}

func (nopDedupObserver) ObserveDedupRun(int, int, time.Duration, error) {}

// DedupHandler triggers deduplication runs.
type DedupHandler struct {
	engine    *dedup.Engine
	publisher kafka.Publisher
	observer  DedupObserver
	log       logging.Logger

	mu       sync.RWMutex
	defaults config.DedupConfig
}

// NewDedupHandler wires the dedup endpoint. Publisher and observer may be
// nil; they default to no-ops.
func NewDedupHandler(engine *dedup.Engine, defaults config.DedupConfig, publisher kafka.Publisher, observer DedupObserver, log logging.Logger) *DedupHandler {
	if publisher == nil {
		publisher = kafka.NopPublisher{}
	}
	if observer == nil {
		observer = nopDedupObserver{}
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &DedupHandler{
		engine:    engine,
		publisher: publisher,
		observer:  observer,
		log:       log.Named("dedup_handler"),
		defaults:  defaults,
	}
}

// UpdateDefaults swaps the configured run defaults, used by config
// hot-reload. Only the default threshold and limit take effect at runtime.
func (h *DedupHandler) UpdateDefaults(defaults config.DedupConfig) {
	h.mu.Lock()
	h.defaults = defaults
	h.mu.Unlock()
}

func (h *DedupHandler) currentDefaults() config.DedupConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.defaults
}

type dedupRequest struct {
	ProjectID uuid.UUID `json:"project_id" binding:"required"`
	Threshold float64   `json:"threshold"`
	Limit     int       `json:"limit"`
}

// Run handles POST /dedup. The run is synchronous; the response carries the
// full group report.
func (h *DedupHandler) Run(c *gin.Context) {
	var req dedupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, appErrors.InvalidParam(err.Error()))
		return
	}

	defaults := h.currentDefaults()
	if req.Threshold == 0 {
		req.Threshold = defaults.DefaultThreshold
	}
	if req.Limit == 0 {
		req.Limit = defaults.DefaultLimit
	}

	report, err := h.engine.Run(c.Request.Context(), req.ProjectID, req.Threshold, req.Limit)
	if err != nil {
		h.observer.ObserveDedupRun(0, 0, 0, err)
		respondError(c, err)
		return
	}
	h.observer.ObserveDedupRun(len(report.Groups), report.SuppressedCount, report.Duration, nil)

	if err := h.publisher.PublishDedupCompleted(c.Request.Context(), kafka.DedupCompletedPayload{
		ProjectID:       req.ProjectID.String(),
		Threshold:       report.Threshold,
		FactCount:       report.FactCount,
		GroupCount:      len(report.Groups),
		SuppressedCount: report.SuppressedCount,
		Duration:        report.Duration,
		CompletedAt:     time.Now().UTC(),
	}); err != nil {
		h.log.Warn("dedup.completed event not published",
			logging.String("project_id", req.ProjectID.String()),
			logging.Err(err),
		)
	}

	c.JSON(http.StatusOK, report)
}
