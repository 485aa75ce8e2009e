// Package evidence assembles the evidence panel payload for a fact: stored
// anchors merged with live anchor resolution against each available source
// representation.  Resolution failures degrade to tier none rather than
// erroring; a fact with no locatable quote is a normal state.
package evidence

import (
	"context"

	"github.com/google/uuid"

	"github.com/citekeep/citekeep/internal/application/content"
	"github.com/citekeep/citekeep/internal/domain/anchor"
	"github.com/citekeep/citekeep/internal/domain/fact"
	"github.com/citekeep/citekeep/internal/domain/source"
	"github.com/citekeep/citekeep/internal/infrastructure/monitoring/logging"
	"github.com/citekeep/citekeep/pkg/errors"
)

// SourceView describes one source's contribution to a fact's evidence.
type SourceView struct {
	SourceDocID uuid.UUID        `json:"source_doc_id"`
	URL         string           `json:"url,omitempty"`
	TierRaw     anchor.MatchTier `json:"tier_raw"`
	TierMD      anchor.MatchTier `json:"tier_md"`
}

// View is the merged evidence payload for one fact.  Offsets are nil when
// the corresponding representation yielded no span.
type View struct {
	FactID          uuid.UUID `json:"fact_id"`
	FactText        string    `json:"fact_text"`
	EvidenceSnippet string    `json:"evidence_snippet,omitempty"`

	EvidenceStartCharRaw *int `json:"evidence_start_char_raw,omitempty"`
	EvidenceEndCharRaw   *int `json:"evidence_end_char_raw,omitempty"`
	EvidenceStartCharMD  *int `json:"evidence_start_char_md,omitempty"`
	EvidenceEndCharMD    *int `json:"evidence_end_char_md,omitempty"`

	Sources []SourceView `json:"sources"`
}

// Service builds evidence views.
type Service struct {
	facts    fact.Repository
	content  *content.Service
	resolver *anchor.Resolver
	log      logging.Logger
}

// NewService constructs the evidence service.
func NewService(facts fact.Repository, contentSvc *content.Service, resolver *anchor.Resolver, log logging.Logger) *Service {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Service{facts: facts, content: contentSvc, resolver: resolver, log: log.Named("evidence")}
}

// Build loads the fact and resolves its quote against every available
// representation of its source.  Missing content lowers the tier to none;
// only a missing fact is an error.
func (s *Service) Build(ctx context.Context, factID uuid.UUID) (*View, error) {
	f, err := s.facts.GetByID(ctx, factID)
	if err != nil {
		return nil, err
	}

	view := &View{
		FactID:          f.ID,
		FactText:        f.FactText,
		EvidenceSnippet: f.EvidenceSnippet,
		Sources:         []SourceView{},
	}

	src, err := s.content.BySourceDoc(ctx, f.SourceDocID)
	if err != nil {
		if errors.IsNotFound(err) {
			// No captured content yet: stored anchors are still reported.
			s.fillStored(view, f)
			return view, nil
		}
		return nil, err
	}

	sv := SourceView{SourceDocID: src.SourceDocID, URL: src.URL, TierRaw: anchor.TierNone, TierMD: anchor.TierNone}

	if raw := s.resolveFormat(ctx, src, f, fact.FormatRaw); raw.Tier != anchor.TierNone {
		sv.TierRaw = raw.Tier
		view.EvidenceStartCharRaw = &raw.Span.Start
		view.EvidenceEndCharRaw = &raw.Span.End
		if view.EvidenceSnippet == "" {
			if text, terr := s.content.Text(ctx, src, fact.FormatRaw); terr == nil {
				view.EvidenceSnippet = raw.Span.Extract(text)
			}
		}
	}

	if md := s.resolveFormat(ctx, src, f, fact.FormatMarkdown); md.Tier != anchor.TierNone {
		sv.TierMD = md.Tier
		view.EvidenceStartCharMD = &md.Span.Start
		view.EvidenceEndCharMD = &md.Span.End
	}

	view.Sources = append(view.Sources, sv)
	return view, nil
}

// resolveFormat runs anchor resolution for one representation, treating
// unavailable content as tier none.
func (s *Service) resolveFormat(ctx context.Context, src *source.Content, f *fact.Fact, format fact.ContentFormat) anchor.MatchResult {
	text, err := s.content.Text(ctx, src, format)
	if err != nil {
		if !errors.IsCode(err, errors.ErrCodeContentUnavailable) {
			s.log.Warn("failed to load content for evidence resolution",
				logging.String("fact_id", f.ID.String()),
				logging.String("format", string(format)),
				logging.Err(err),
			)
		}
		return anchor.MatchResult{Tier: anchor.TierNone}
	}
	return s.resolver.Resolve(text, f.QuoteTextRaw, f.Anchor(format))
}

// fillStored copies already-persisted anchors onto the view when live
// resolution is impossible.
func (s *Service) fillStored(view *View, f *fact.Fact) {
	if f.AnchorRaw != nil {
		view.EvidenceStartCharRaw = &f.AnchorRaw.Start
		view.EvidenceEndCharRaw = &f.AnchorRaw.End
	}
	if f.AnchorMD != nil {
		view.EvidenceStartCharMD = &f.AnchorMD.Start
		view.EvidenceEndCharMD = &f.AnchorMD.End
	}
}
