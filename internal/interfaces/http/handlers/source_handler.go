package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/citekeep/citekeep/internal/application/content"
	"github.com/citekeep/citekeep/internal/domain/fact"
	"github.com/citekeep/citekeep/internal/infrastructure/monitoring/logging"
)

// SourceHandler serves captured source content.
type SourceHandler struct {
	content *content.Service
	log     logging.Logger
}

// NewSourceHandler wires the source content endpoint.
func NewSourceHandler(contentSvc *content.Service, log logging.Logger) *SourceHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SourceHandler{content: contentSvc, log: log.Named("source_handler")}
}

type sourceContentResponse struct {
	SourceDocID uuid.UUID `json:"source_doc_id"`
	URL         string    `json:"url,omitempty"`
	Format      string    `json:"format"`
	Text        string    `json:"text"`
	ContentHash string    `json:"content_hash,omitempty"`
	CapturedAt  time.Time `json:"captured_at"`
}

// Content handles GET /sources/:id/content, returning the stored text in
// the requested representation.
func (h *SourceHandler) Content(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	format := fact.FormatRaw
	if raw := c.Query("format"); raw != "" {
		var err error
		if format, err = fact.ParseContentFormat(raw); err != nil {
			respondError(c, err)
			return
		}
	}

	src, err := h.content.BySourceDoc(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	text, err := h.content.Text(c.Request.Context(), src, format)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sourceContentResponse{
		SourceDocID: src.SourceDocID,
		URL:         src.URL,
		Format:      string(format),
		Text:        text,
		ContentHash: src.ContentHash,
		CapturedAt:  src.CapturedAt,
	})
}
