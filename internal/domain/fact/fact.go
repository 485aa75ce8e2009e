// Package fact defines the Fact aggregate: a single extracted statement tied
// to a source document by a quoted span of evidence.  Facts carry the
// suppression fields that the dedup engine writes and the anchor fields that
// excerpt capture writes; all other mutation happens through the exported
// methods so invariants hold.
package fact

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/citekeep/citekeep/internal/domain/span"
	"github.com/citekeep/citekeep/pkg/errors"
)

// ReviewStatus is the human review state of a fact.  Approved facts win
// canonical selection during deduplication.
type ReviewStatus string

const (
	StatusPending     ReviewStatus = "PENDING"
	StatusApproved    ReviewStatus = "APPROVED"
	StatusNeedsReview ReviewStatus = "NEEDS_REVIEW"
	StatusFlagged     ReviewStatus = "FLAGGED"
	StatusRejected    ReviewStatus = "REJECTED"
)

// validStatuses is the closed set of review states.
var validStatuses = map[ReviewStatus]bool{
	StatusPending:     true,
	StatusApproved:    true,
	StatusNeedsReview: true,
	StatusFlagged:     true,
	StatusRejected:    true,
}

// ParseReviewStatus validates a raw status string.
func ParseReviewStatus(s string) (ReviewStatus, error) {
	rs := ReviewStatus(s)
	if !validStatuses[rs] {
		return "", errors.New(errors.ErrCodeInvalidStatus,
			fmt.Sprintf("unknown review status %q", s))
	}
	return rs, nil
}

// Fact is the aggregate root.  A fact is extracted text plus the quote that
// supports it; anchors locate the quote inside the source's raw and markdown
// representations, and the suppression fields record duplicate-group
// membership.
type Fact struct {
	ID          uuid.UUID `json:"id"`
	ProjectID   uuid.UUID `json:"project_id"`
	SourceDocID uuid.UUID `json:"source_doc_id"`

	FactText     string `json:"fact_text"`
	QuoteTextRaw string `json:"quote_text_raw"`

	// Anchors are nil until resolved or captured.  When present they satisfy
	// 0 <= start < end <= len(content) in the matching representation.
	AnchorRaw       *span.Span `json:"anchor_raw,omitempty"`
	AnchorMD        *span.Span `json:"anchor_md,omitempty"`
	EvidenceSnippet string     `json:"evidence_snippet,omitempty"`

	// Suppression state, written only by the dedup apply step.  A suppressed
	// fact always points at a non-suppressed canonical; a canonical fact's
	// CanonicalFactID is nil.
	IsSuppressed     bool       `json:"is_suppressed"`
	CanonicalFactID  *uuid.UUID `json:"canonical_fact_id,omitempty"`
	DuplicateGroupID *uuid.UUID `json:"duplicate_group_id,omitempty"`

	ReviewStatus    ReviewStatus `json:"review_status"`
	IsPinned        bool         `json:"is_pinned"`
	ConfidenceScore float64      `json:"confidence_score"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New constructs a Fact with required fields validated and defaults applied.
func New(projectID, sourceDocID uuid.UUID, factText, quoteTextRaw string, confidence float64) (*Fact, error) {
	if factText == "" {
		return nil, errors.InvalidParam("fact text must not be empty")
	}
	if confidence < 0 || confidence > 1 {
		return nil, errors.InvalidParam(
			fmt.Sprintf("confidence score %v outside [0, 1]", confidence))
	}
	now := time.Now().UTC()
	return &Fact{
		ID:              uuid.New(),
		ProjectID:       projectID,
		SourceDocID:     sourceDocID,
		FactText:        factText,
		QuoteTextRaw:    quoteTextRaw,
		ReviewStatus:    StatusPending,
		ConfidenceScore: confidence,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// SetReviewStatus transitions the review state.  Any state may move to any
// other; the enum check is the only guard.
func (f *Fact) SetReviewStatus(status ReviewStatus) error {
	if !validStatuses[status] {
		return errors.New(errors.ErrCodeInvalidStatus,
			fmt.Sprintf("unknown review status %q", status))
	}
	f.ReviewStatus = status
	f.touch()
	return nil
}

// SetPinned toggles the pin flag used by canonical selection.
func (f *Fact) SetPinned(pinned bool) {
	f.IsPinned = pinned
	f.touch()
}

// SetAnchor stores a captured anchor span for the given representation and
// replaces the evidence snippet.  Capturing the same span twice is a no-op
// state-wise; capturing a different span overwrites.
func (f *Fact) SetAnchor(format ContentFormat, s span.Span, snippet string) {
	switch format {
	case FormatMarkdown:
		f.AnchorMD = &s
	default:
		f.AnchorRaw = &s
	}
	f.EvidenceSnippet = snippet
	f.touch()
}

// Anchor returns the stored anchor for the given representation, or nil.
func (f *Fact) Anchor(format ContentFormat) *span.Span {
	if format == FormatMarkdown {
		return f.AnchorMD
	}
	return f.AnchorRaw
}

// Suppress marks the fact as a non-canonical duplicate-group member.
func (f *Fact) Suppress(canonicalID, groupID uuid.UUID) {
	f.IsSuppressed = true
	f.CanonicalFactID = &canonicalID
	f.DuplicateGroupID = &groupID
	f.touch()
}

// MarkCanonical marks the fact as its group's visible representative.
func (f *Fact) MarkCanonical(groupID uuid.UUID) {
	f.IsSuppressed = false
	f.CanonicalFactID = nil
	f.DuplicateGroupID = &groupID
	f.touch()
}

// ClearGroup removes all duplicate-group state, returning the fact to the
// ungrouped default.
func (f *Fact) ClearGroup() {
	f.IsSuppressed = false
	f.CanonicalFactID = nil
	f.DuplicateGroupID = nil
	f.touch()
}

func (f *Fact) touch() {
	f.UpdatedAt = time.Now().UTC()
}

// ContentFormat names a textual representation of source content.
type ContentFormat string

const (
	FormatRaw      ContentFormat = "raw"
	FormatMarkdown ContentFormat = "markdown"
)

// ParseContentFormat validates a raw format string from the API surface.
func ParseContentFormat(s string) (ContentFormat, error) {
	switch s {
	case string(FormatRaw):
		return FormatRaw, nil
	case string(FormatMarkdown):
		return FormatMarkdown, nil
	default:
		return "", errors.New(errors.ErrCodeFormatUnsupported,
			fmt.Sprintf("unsupported content format %q", s))
	}
}

// DuplicateGroup is the derived cluster produced by a dedup run.  It is
// persisted only through the suppression fields on its member facts.
type DuplicateGroup struct {
	GroupID         uuid.UUID   `json:"group_id"`
	CanonicalFactID uuid.UUID   `json:"canonical_fact_id"`
	MemberFactIDs   []uuid.UUID `json:"fact_ids"`

	// Reason records which rule triggered membership.
	Reason string `json:"reason"`

	// Score is the maximum pairwise similarity observed inside the group.
	Score float64 `json:"score"`
}
