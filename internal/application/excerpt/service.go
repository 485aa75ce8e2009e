// Package excerpt implements capture of an explicit anchor span: the user
// (or a resolver upgrade path) pins a fact's quote to exact offsets in one
// source representation, and the span plus its snippet are persisted on the
// fact.
package excerpt

import (
	"context"

	"github.com/google/uuid"

	"github.com/citekeep/citekeep/internal/application/content"
	"github.com/citekeep/citekeep/internal/domain/fact"
	"github.com/citekeep/citekeep/internal/domain/source"
	"github.com/citekeep/citekeep/internal/domain/span"
	"github.com/citekeep/citekeep/internal/infrastructure/monitoring/logging"
	"github.com/citekeep/citekeep/pkg/errors"
)

// Request carries one capture call.  SourceURL is optional; when empty the
// fact's own source document is used.
type Request struct {
	FactID    uuid.UUID
	SourceURL string
	Format    fact.ContentFormat
	Span      span.Span
}

// Service validates and persists captured anchors.  Each capture is a single
// row read-modify-write on the fact.
type Service struct {
	facts   fact.Repository
	content *content.Service
	log     logging.Logger
}

// NewService constructs the capture service.
func NewService(facts fact.Repository, contentSvc *content.Service, log logging.Logger) *Service {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Service{facts: facts, content: contentSvc, log: log.Named("excerpt")}
}

// Capture validates the span against the source text in the requested
// representation, then persists the anchor and its evidence snippet on the
// fact.  Re-capturing an identical span is a no-op state-wise; a different
// span overwrites.  Returns the updated fact.
func (s *Service) Capture(ctx context.Context, req Request) (*fact.Fact, error) {
	f, err := s.facts.GetByID(ctx, req.FactID)
	if err != nil {
		return nil, err
	}

	src, err := s.loadContent(ctx, f, req.SourceURL)
	if err != nil {
		return nil, err
	}

	text, err := s.content.Text(ctx, src, req.Format)
	if err != nil {
		return nil, err
	}

	contentLen := len([]rune(text))
	if err := req.Span.Validate(contentLen); err != nil {
		return nil, err
	}

	snippet := req.Span.Extract(text)

	// Idempotence: an identical span with an identical snippet changes
	// nothing, so skip the write.
	if existing := f.Anchor(req.Format); existing != nil &&
		*existing == req.Span && f.EvidenceSnippet == snippet {
		return f, nil
	}

	f.SetAnchor(req.Format, req.Span, snippet)
	if err := s.facts.UpdateAnchor(ctx, f); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to persist captured anchor")
	}

	s.log.Info("excerpt captured",
		logging.String("fact_id", f.ID.String()),
		logging.String("format", string(req.Format)),
		logging.Int("start", req.Span.Start),
		logging.Int("end", req.Span.End),
	)
	return f, nil
}

func (s *Service) loadContent(ctx context.Context, f *fact.Fact, sourceURL string) (*source.Content, error) {
	if sourceURL != "" {
		return s.content.ByURL(ctx, sourceURL)
	}
	return s.content.BySourceDoc(ctx, f.SourceDocID)
}
