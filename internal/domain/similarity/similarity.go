// Package similarity provides the pluggable text-similarity functions used
// by the deduplication engine.  The engine depends only on the Func contract;
// which metric backs it is a caller (or config) choice.
package similarity

import (
	"strings"
	"unicode"

	"github.com/citekeep/citekeep/pkg/errors"
)

// Func scores how similar two texts are, in [0, 1].  Implementations must be
// symmetric and safe for concurrent use.  An error marks the pair as
// uncomparable, not the batch as failed.
type Func func(a, b string) (float64, error)

// Metric names a built-in similarity algorithm.
type Metric string

const (
	// MetricTokenJaccard compares the sets of lowercased word tokens.
	MetricTokenJaccard Metric = "token_jaccard"

	// MetricTrigramJaccard compares the sets of character trigrams, which
	// tolerates small spelling and inflection differences better than
	// whole-token comparison.
	MetricTrigramJaccard Metric = "trigram_jaccard"
)

// IsValid checks whether the metric names a built-in algorithm.
func (m Metric) IsValid() bool {
	switch m {
	case MetricTokenJaccard, MetricTrigramJaccard:
		return true
	default:
		return false
	}
}

func (m Metric) String() string { return string(m) }

// ParseMetric parses a raw metric name from config or the API.
func ParseMetric(s string) (Metric, error) {
	m := Metric(s)
	if m.IsValid() {
		return m, nil
	}
	return "", errors.New(errors.ErrCodeSimilarityUnsupported, "unsupported similarity metric: "+s)
}

// ForMetric returns the Func implementing a built-in metric.
func ForMetric(m Metric) (Func, error) {
	switch m {
	case MetricTokenJaccard:
		return TokenJaccard, nil
	case MetricTrigramJaccard:
		return TrigramJaccard, nil
	default:
		return nil, errors.New(errors.ErrCodeSimilarityUnsupported, "unsupported similarity metric: "+m.String())
	}
}

// tokenize splits text into lowercased word tokens, treating any
// non-letter/non-digit run as a separator.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// TokenJaccard scores the Jaccard index of the two texts' token sets.
// Two empty texts score 1; one empty text scores 0.
func TokenJaccard(a, b string) (float64, error) {
	ta, tb := tokenize(a), tokenize(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1, nil
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0, nil
	}

	setA := make(map[string]struct{}, len(ta))
	for _, tok := range ta {
		setA[tok] = struct{}{}
	}
	setB := make(map[string]struct{}, len(tb))
	for _, tok := range tb {
		setB[tok] = struct{}{}
	}

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 1, nil
	}
	return float64(intersection) / float64(union), nil
}

// trigrams extracts the set of 3-rune shingles from the lowercased,
// whitespace-collapsed text.  Texts shorter than three runes contribute a
// single shingle of the whole text.
func trigrams(text string) map[string]struct{} {
	collapsed := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	runes := []rune(collapsed)
	set := make(map[string]struct{})
	if len(runes) == 0 {
		return set
	}
	if len(runes) < 3 {
		set[string(runes)] = struct{}{}
		return set
	}
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}

// TrigramJaccard scores the Jaccard index of the two texts' character
// trigram sets.
func TrigramJaccard(a, b string) (float64, error) {
	sa, sb := trigrams(a), trigrams(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 1, nil
	}
	if len(sa) == 0 || len(sb) == 0 {
		return 0, nil
	}

	intersection := 0
	for g := range sa {
		if _, ok := sb[g]; ok {
			intersection++
		}
	}
	union := len(sa) + len(sb) - intersection
	return float64(intersection) / float64(union), nil
}
