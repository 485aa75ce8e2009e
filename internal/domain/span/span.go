// Package span defines the half-open character range used to locate evidence
// quotes inside source content.  Offsets are measured in Unicode code points
// (runes), never bytes, so a span computed against one copy of the text stays
// valid against any UTF-8 re-encoding of the same text.
package span

import (
	"fmt"

	"github.com/citekeep/citekeep/pkg/errors"
)

// Span is a half-open [Start, End) character range within a piece of content.
// A zero Span is not meaningful; construct through New or validate explicitly.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// New constructs a Span and validates the basic ordering invariant
// 0 <= start < end.  Bounds against a specific content length are checked
// separately via Validate because the target text is not always at hand
// when the span is created.
func New(start, end int) (Span, error) {
	s := Span{Start: start, End: end}
	if start < 0 || start >= end {
		return Span{}, errors.InvalidRange(fmt.Sprintf("invalid span [%d, %d): start must satisfy 0 <= start < end", start, end))
	}
	return s, nil
}

// Len returns the number of characters covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// IsZero reports whether the span is the zero value.
func (s Span) IsZero() bool {
	return s.Start == 0 && s.End == 0
}

// Validate checks the span against a content length in characters.  The
// ordering invariant and the upper bound End <= contentLen must both hold.
func (s Span) Validate(contentLen int) error {
	if s.Start < 0 || s.Start >= s.End {
		return errors.InvalidRange(fmt.Sprintf("invalid span [%d, %d): start must satisfy 0 <= start < end", s.Start, s.End))
	}
	if s.End > contentLen {
		return errors.InvalidRange(fmt.Sprintf("span [%d, %d) exceeds content length %d", s.Start, s.End, contentLen))
	}
	return nil
}

// Clamp returns a copy of the span with End bounded to contentLen.  Used by
// anchor resolution when a padded end offset may run past the text.
func (s Span) Clamp(contentLen int) Span {
	if s.End > contentLen {
		s.End = contentLen
	}
	return s
}

// CoverageRatio returns the fraction of the content the span covers, in
// characters.  A contentLen of zero yields 0 to avoid division by zero.
func (s Span) CoverageRatio(contentLen int) float64 {
	if contentLen <= 0 {
		return 0
	}
	return float64(s.Len()) / float64(contentLen)
}

// Extract returns the substring of content covered by the span.  The content
// is indexed by rune, matching how spans are computed.  The span must already
// be valid for the content; callers run Validate first.
func (s Span) Extract(content string) string {
	runes := []rune(content)
	if s.Start < 0 || s.End > len(runes) || s.Start >= s.End {
		return ""
	}
	return string(runes[s.Start:s.End])
}

func (s Span) String() string {
	return fmt.Sprintf("[%d, %d)", s.Start, s.End)
}
