// Package anchor implements evidence anchoring: locating a fact's quoted
// text inside a source representation and reporting how confident the match
// is.  Resolution is purely functional, so it is safe to call from any number
// of concurrent request handlers without synchronization.
package anchor

import (
	"unicode"

	"github.com/citekeep/citekeep/internal/domain/span"
)

// MatchTier ranks how an anchor span was derived.  Stored beats every
// derived tier; None means no usable match.
type MatchTier string

const (
	TierStored     MatchTier = "stored"
	TierExact      MatchTier = "exact"
	TierNormalized MatchTier = "normalized"
	TierFuzzy      MatchTier = "fuzzy"
	TierNone       MatchTier = "none"
)

// tierRank orders tiers from weakest to strongest.
var tierRank = map[MatchTier]int{
	TierNone:       0,
	TierFuzzy:      1,
	TierNormalized: 2,
	TierExact:      3,
	TierStored:     4,
}

// Rank returns the tier's strength for comparisons; higher is better.
func (t MatchTier) Rank() int { return tierRank[t] }

// MatchResult is the transient outcome of one resolution attempt.  Span is
// nil exactly when Tier is None.
type MatchResult struct {
	Span *span.Span `json:"span,omitempty"`
	Tier MatchTier  `json:"tier"`
}

// Options tune the fallback heuristics.  Zero values select the defaults.
type Options struct {
	// NormalizedEndPadding widens the end offset of a normalized-tier match
	// to absorb whitespace drift between the normalized and original text.
	// The padded end is a known imprecision accepted in exchange for still
	// producing a highlight.
	NormalizedEndPadding int

	// FuzzyPrefixLen is how many characters of the lowered quote the fuzzy
	// tier searches for.
	FuzzyPrefixLen int

	// BroadMatchRatio rejects any derived span covering more than this
	// fraction of the content.  A pathologically broad highlight is worse
	// than none.
	BroadMatchRatio float64
}

const (
	defaultNormalizedEndPadding = 50
	defaultFuzzyPrefixLen       = 50

	// One third leaves room for a sentence-length quote inside short
	// content while still rejecting highlights that swallow the page.
	defaultBroadMatchRatio = 1.0 / 3
)

func (o Options) withDefaults() Options {
	if o.NormalizedEndPadding <= 0 {
		o.NormalizedEndPadding = defaultNormalizedEndPadding
	}
	if o.FuzzyPrefixLen <= 0 {
		o.FuzzyPrefixLen = defaultFuzzyPrefixLen
	}
	if o.BroadMatchRatio <= 0 {
		o.BroadMatchRatio = defaultBroadMatchRatio
	}
	return o
}

// Resolver locates quote spans inside source content.  It holds only
// configuration and is shared freely across goroutines.
type Resolver struct {
	opts Options
}

// NewResolver constructs a Resolver, filling unset options with defaults.
func NewResolver(opts Options) *Resolver {
	return &Resolver{opts: opts.withDefaults()}
}

// Resolve finds the best span for quote inside content, trying tiers in
// order of confidence.  A previously stored span, when still valid against
// the content, is authoritative and never re-derived.  All offsets are
// character (rune) indices.
func (r *Resolver) Resolve(content, quote string, stored *span.Span) MatchResult {
	contentRunes := []rune(content)
	contentLen := len(contentRunes)

	// Stored tier: caller-validated spans win outright, but a span that no
	// longer fits the content falls through to re-derivation.
	if stored != nil && stored.Validate(contentLen) == nil {
		s := *stored
		return MatchResult{Span: &s, Tier: TierStored}
	}

	if contentLen == 0 || len(quote) == 0 {
		return MatchResult{Tier: TierNone}
	}

	quoteRunes := []rune(quote)
	loweredContent := lowerRunes(contentRunes)
	loweredQuote := lowerRunes(quoteRunes)

	// Exact tier: case-insensitive substring search.
	if idx := indexRunes(loweredContent, loweredQuote); idx >= 0 {
		s := span.Span{Start: idx, End: idx + len(quoteRunes)}
		return r.guard(s, contentLen, TierExact)
	}

	// Normalized tier: collapse whitespace runs in both strings, search, and
	// map the hit back to an original-text offset.
	if s, ok := r.resolveNormalized(loweredContent, loweredQuote, len(quoteRunes), contentLen); ok {
		return r.guard(s, contentLen, TierNormalized)
	}

	// Fuzzy tier: search for just the head of the quote.
	prefixLen := r.opts.FuzzyPrefixLen
	if prefixLen > len(loweredQuote) {
		prefixLen = len(loweredQuote)
	}
	if idx := indexRunes(loweredContent, loweredQuote[:prefixLen]); idx >= 0 {
		s := span.Span{Start: idx, End: idx + len(quoteRunes)}.Clamp(contentLen)
		return r.guard(s, contentLen, TierFuzzy)
	}

	return MatchResult{Tier: TierNone}
}

// resolveNormalized searches the whitespace-collapsed quote inside the
// whitespace-collapsed content.  The returned span starts at the original
// offset of the matched normalized rune; the end is padded because
// normalization drift makes the true end unrecoverable.
func (r *Resolver) resolveNormalized(content, quote []rune, quoteLen, contentLen int) (span.Span, bool) {
	normContent, originalIdx := normalizeRunes(content)
	normQuote, _ := normalizeRunes(quote)
	if len(normQuote) == 0 {
		return span.Span{}, false
	}

	idx := indexRunes(normContent, normQuote)
	if idx < 0 {
		return span.Span{}, false
	}

	start := originalIdx[idx]
	s := span.Span{Start: start, End: start + quoteLen + r.opts.NormalizedEndPadding}.Clamp(contentLen)
	return s, true
}

// guard applies the broad-match rejection to a derived span.
func (r *Resolver) guard(s span.Span, contentLen int, tier MatchTier) MatchResult {
	if s.CoverageRatio(contentLen) > r.opts.BroadMatchRatio {
		return MatchResult{Tier: TierNone}
	}
	return MatchResult{Span: &s, Tier: tier}
}

// lowerRunes lowercases rune-by-rune so offsets stay aligned with the
// original text even for case pairs whose UTF-8 lengths differ.
func lowerRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

// normalizeRunes collapses whitespace runs to a single space and trims the
// ends.  The second return value maps each normalized index back to the
// index of its first contributing rune in the input.
func normalizeRunes(rs []rune) ([]rune, []int) {
	out := make([]rune, 0, len(rs))
	idx := make([]int, 0, len(rs))
	inSpace := false
	spaceStart := -1
	for i, r := range rs {
		if unicode.IsSpace(r) {
			if !inSpace {
				inSpace = true
				spaceStart = i
			}
			continue
		}
		if inSpace {
			if len(out) > 0 {
				out = append(out, ' ')
				idx = append(idx, spaceStart)
			}
			inSpace = false
		}
		out = append(out, r)
		idx = append(idx, i)
	}
	return out, idx
}

// indexRunes returns the index of the first occurrence of needle in
// haystack, or -1.  Plain quadratic scan; quotes are short and content is
// bounded, so no fancier algorithm pays for itself here.
func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i] != needle[0] {
			continue
		}
		match := true
		for j := 1; j < len(needle); j++ {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
