package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("token_jaccard")
	require.NoError(t, err)
	assert.Equal(t, MetricTokenJaccard, m)

	m, err = ParseMetric("trigram_jaccard")
	require.NoError(t, err)
	assert.Equal(t, MetricTrigramJaccard, m)

	_, err = ParseMetric("cosine_embedding")
	assert.Error(t, err)
}

func TestForMetric(t *testing.T) {
	for _, m := range []Metric{MetricTokenJaccard, MetricTrigramJaccard} {
		fn, err := ForMetric(m)
		require.NoError(t, err)
		assert.NotNil(t, fn)
	}
	_, err := ForMetric(Metric("nope"))
	assert.Error(t, err)
}

func TestTokenJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "the cat sat", b: "the cat sat", want: 1},
		{name: "case and punctuation ignored", a: "The cat, sat!", b: "the CAT sat", want: 1},
		{name: "disjoint", a: "alpha beta", b: "gamma delta", want: 0},
		{name: "partial overlap", a: "a b c d", b: "c d e f", want: 2.0 / 6.0},
		{name: "both empty", a: "", b: "", want: 1},
		{name: "one empty", a: "something", b: "", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TokenJaccard(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)

			// Symmetry.
			rev, err := TokenJaccard(tt.b, tt.a)
			require.NoError(t, err)
			assert.InDelta(t, got, rev, 1e-9)
		})
	}
}

func TestTrigramJaccard(t *testing.T) {
	identical, err := TrigramJaccard("revenue grew 40% in Q3", "revenue grew 40% in Q3")
	require.NoError(t, err)
	assert.InDelta(t, 1, identical, 1e-9)

	near, err := TrigramJaccard("revenue grew 40% in Q3", "revenue grew 40% in Q4")
	require.NoError(t, err)
	assert.Greater(t, near, 0.7)
	assert.Less(t, near, 1.0)

	far, err := TrigramJaccard("revenue grew 40% in Q3", "the weather was cold in March")
	require.NoError(t, err)
	assert.Less(t, far, 0.2)

	short, err := TrigramJaccard("ab", "ab")
	require.NoError(t, err)
	assert.InDelta(t, 1, short, 1e-9)

	empty, err := TrigramJaccard("", "")
	require.NoError(t, err)
	assert.InDelta(t, 1, empty, 1e-9)

	oneEmpty, err := TrigramJaccard("text", "")
	require.NoError(t, err)
	assert.Zero(t, oneEmpty)
}

func TestScoresBounded(t *testing.T) {
	pairs := [][2]string{
		{"a", "b"},
		{"the cat sat on the mat", "a cat sat on a mat"},
		{"héllo wörld", "hello world"},
		{"  spaced   out  ", "spaced out"},
	}
	for _, fn := range []Func{TokenJaccard, TrigramJaccard} {
		for _, p := range pairs {
			got, err := fn(p[0], p[1])
			require.NoError(t, err)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		}
	}
}
