package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/citekeep/citekeep/internal/application/evidence"
	"github.com/citekeep/citekeep/internal/application/excerpt"
	"github.com/citekeep/citekeep/internal/application/projection"
	"github.com/citekeep/citekeep/internal/domain/fact"
	"github.com/citekeep/citekeep/internal/domain/span"
	"github.com/citekeep/citekeep/internal/infrastructure/messaging/kafka"
	"github.com/citekeep/citekeep/internal/infrastructure/monitoring/logging"
	appErrors "github.com/citekeep/citekeep/pkg/errors"
)

// AnchorObserver records which tier evidence anchors resolve at.
type AnchorObserver interface {
	ObserveAnchorResolution(tier, format string)
}

type nopAnchorObserver struct{}

func (nopAnchorObserver) ObserveAnchorResolution(string, string) {}

// ScoreSource exposes the group similarity scores recorded by past dedup
// runs for min_sim filtering of grouped listings.
type ScoreSource interface {
	Snapshot() projection.GroupScores
}

// FactHandler serves the fact resource endpoints.
type FactHandler struct {
	facts         fact.Repository
	evidence      *evidence.Service
	excerpts      *excerpt.Service
	publisher     kafka.Publisher
	anchors       AnchorObserver
	log           logging.Logger
	defaultMinSim float64
	groupScores   ScoreSource
}

// FactOption tunes optional handler behavior.
type FactOption func(*FactHandler)

// WithDefaultMinSim sets the min_sim value used by grouped listings when the
// query string omits one.
func WithDefaultMinSim(minSim float64) FactOption {
	return func(h *FactHandler) { h.defaultMinSim = minSim }
}

// WithGroupScores lets grouped listings filter on the scores recorded by
// dedup runs.  Without a source every group passes any min_sim.
func WithGroupScores(source ScoreSource) FactOption {
	return func(h *FactHandler) { h.groupScores = source }
}

// NewFactHandler wires the fact endpoints. Publisher and observer may be
// nil; they default to no-ops.
func NewFactHandler(
	facts fact.Repository,
	evidenceSvc *evidence.Service,
	excerptSvc *excerpt.Service,
	publisher kafka.Publisher,
	anchors AnchorObserver,
	log logging.Logger,
	opts ...FactOption,
) *FactHandler {
	if publisher == nil {
		publisher = kafka.NopPublisher{}
	}
	if anchors == nil {
		anchors = nopAnchorObserver{}
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	h := &FactHandler{
		facts:     facts,
		evidence:  evidenceSvc,
		excerpts:  excerptSvc,
		publisher: publisher,
		anchors:   anchors,
		log:       log.Named("fact_handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type createFactRequest struct {
	ProjectID       uuid.UUID `json:"project_id" binding:"required"`
	SourceDocID     uuid.UUID `json:"source_doc_id" binding:"required"`
	FactText        string    `json:"fact_text" binding:"required"`
	QuoteTextRaw    string    `json:"quote_text_raw"`
	ConfidenceScore float64   `json:"confidence_score"`
}

// Create handles POST /facts.
func (h *FactHandler) Create(c *gin.Context) {
	var req createFactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, appErrors.InvalidParam(err.Error()))
		return
	}

	f, err := fact.New(req.ProjectID, req.SourceDocID, req.FactText, req.QuoteTextRaw, req.ConfidenceScore)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.facts.Create(c.Request.Context(), f); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

// Get handles GET /facts/:id.
func (h *FactHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	f, err := h.facts.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// Delete handles DELETE /facts/:id.
func (h *FactHandler) Delete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.facts.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type listFactsResponse struct {
	Items  []*fact.Fact                       `json:"items"`
	Groups map[uuid.UUID]projection.GroupView `json:"groups,omitempty"`
	Total  int64                              `json:"total"`
}

// List handles GET /facts. With group_similar set, suppressed duplicates
// collapse under their canonical representatives and a per-group summary
// is attached.
func (h *FactHandler) List(c *gin.Context) {
	projectID, err := uuid.Parse(c.Query("project_id"))
	if err != nil {
		respondError(c, appErrors.InvalidParam("project_id query parameter is required"))
		return
	}

	filter := fact.ListFilter{
		ProjectID:         projectID,
		IncludeSuppressed: queryBool(c, "include_suppressed"),
	}
	if raw := c.Query("review_status"); raw != "" {
		status, err := fact.ParseReviewStatus(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		filter.ReviewStatus = status
	}
	if raw := c.Query("source_doc_id"); raw != "" {
		docID, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, appErrors.InvalidParam("invalid source_doc_id: must be a UUID"))
			return
		}
		filter.SourceDocID = &docID
	}
	if filter.Limit, err = queryInt(c, "limit", 50); err != nil {
		respondError(c, err)
		return
	}
	if filter.Offset, err = queryInt(c, "offset", 0); err != nil {
		respondError(c, err)
		return
	}

	if !queryBool(c, "group_similar") {
		items, total, err := h.facts.List(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, listFactsResponse{Items: items, Total: total})
		return
	}

	// Collapsing needs the suppressed rows in hand.
	filter.IncludeSuppressed = true
	items, total, err := h.facts.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	params := projection.Params{}
	if params.MinSim, err = queryFloat(c, "min_sim", h.defaultMinSim); err != nil {
		respondError(c, err)
		return
	}
	if params.GroupLimit, err = queryInt(c, "group_limit", 0); err != nil {
		respondError(c, err)
		return
	}

	var scores projection.GroupScores
	if h.groupScores != nil {
		scores = h.groupScores.Snapshot()
	}
	view := projection.Project(items, scores, params)
	c.JSON(http.StatusOK, listFactsResponse{
		Items:  view.Items,
		Groups: view.Groups,
		Total:  total,
	})
}

type patchFactRequest struct {
	ReviewStatus *string `json:"review_status"`
	IsPinned     *bool   `json:"is_pinned"`
}

// Patch handles PATCH /facts/:id, updating review state and pinning.
func (h *FactHandler) Patch(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req patchFactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, appErrors.InvalidParam(err.Error()))
		return
	}
	if req.ReviewStatus == nil && req.IsPinned == nil {
		respondError(c, appErrors.InvalidParam("nothing to update"))
		return
	}

	f, err := h.facts.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if req.ReviewStatus != nil {
		status, err := fact.ParseReviewStatus(*req.ReviewStatus)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := f.SetReviewStatus(status); err != nil {
			respondError(c, err)
			return
		}
	}
	if req.IsPinned != nil {
		f.SetPinned(*req.IsPinned)
	}
	if err := h.facts.Update(c.Request.Context(), f); err != nil {
		respondError(c, err)
		return
	}

	if err := h.publisher.PublishFactUpdated(c.Request.Context(), kafka.FactUpdatedPayload{
		FactID:       f.ID.String(),
		ReviewStatus: string(f.ReviewStatus),
		IsPinned:     f.IsPinned,
		UpdatedAt:    f.UpdatedAt,
	}); err != nil {
		h.log.Warn("fact.updated event not published",
			logging.String("fact_id", f.ID.String()),
			logging.Err(err),
		)
	}

	c.JSON(http.StatusOK, f)
}

// Evidence handles GET /facts/:id/evidence.
func (h *FactHandler) Evidence(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	view, err := h.evidence.Build(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	for _, src := range view.Sources {
		h.anchors.ObserveAnchorResolution(string(src.TierRaw), string(fact.FormatRaw))
		h.anchors.ObserveAnchorResolution(string(src.TierMD), string(fact.FormatMarkdown))
	}

	c.JSON(http.StatusOK, view)
}

type captureExcerptRequest struct {
	SourceURL string `json:"source_url"`
	Format    string `json:"format"`
	StartChar *int   `json:"start_char" binding:"required"`
	EndChar   *int   `json:"end_char" binding:"required"`
}

// CaptureExcerpt handles POST /facts/:id/capture_excerpt.
func (h *FactHandler) CaptureExcerpt(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req captureExcerptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, appErrors.InvalidParam(err.Error()))
		return
	}

	format := fact.FormatRaw
	if req.Format != "" {
		var err error
		if format, err = fact.ParseContentFormat(req.Format); err != nil {
			respondError(c, err)
			return
		}
	}
	sp, err := span.New(*req.StartChar, *req.EndChar)
	if err != nil {
		respondError(c, err)
		return
	}

	f, err := h.excerpts.Capture(c.Request.Context(), excerpt.Request{
		FactID:    id,
		SourceURL: req.SourceURL,
		Format:    format,
		Span:      sp,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.publisher.PublishExcerptCaptured(c.Request.Context(), kafka.ExcerptCapturedPayload{
		FactID:      f.ID.String(),
		SourceDocID: f.SourceDocID.String(),
		Format:      string(format),
		StartChar:   sp.Start,
		EndChar:     sp.End,
		CapturedAt:  time.Now().UTC(),
	}); err != nil {
		h.log.Warn("excerpt.captured event not published",
			logging.String("fact_id", f.ID.String()),
			logging.Err(err),
		)
	}

	c.JSON(http.StatusOK, f)
}
