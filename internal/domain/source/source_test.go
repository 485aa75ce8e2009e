package source

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citekeep/citekeep/internal/domain/fact"
	"github.com/citekeep/citekeep/pkg/errors"
)

func TestNewContent(t *testing.T) {
	docID := uuid.New()
	c := NewContent(docID, "https://example.com/a", "raw body", "# md body", "<p>html</p>")

	assert.Equal(t, docID, c.SourceDocID)
	assert.NotEmpty(t, c.ContentHash)
	assert.Len(t, c.ContentHash, 64)
	assert.False(t, c.CapturedAt.IsZero())
}

func TestHashContent(t *testing.T) {
	assert.Empty(t, HashContent(""))
	assert.Equal(t, HashContent("same"), HashContent("same"))
	assert.NotEqual(t, HashContent("a"), HashContent("b"))
}

func TestTextFor(t *testing.T) {
	c := NewContent(uuid.New(), "", "raw body", "", "")

	text, err := c.TextFor(fact.FormatRaw)
	require.NoError(t, err)
	assert.Equal(t, "raw body", text)

	_, err = c.TextFor(fact.FormatMarkdown)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeContentUnavailable))

	_, err = c.TextFor(fact.ContentFormat("html"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFormatUnsupported))
}

func TestHasFormat(t *testing.T) {
	c := NewContent(uuid.New(), "", "raw", "md", "")
	assert.True(t, c.HasFormat(fact.FormatRaw))
	assert.True(t, c.HasFormat(fact.FormatMarkdown))

	empty := NewContent(uuid.New(), "", "", "", "")
	assert.False(t, empty.HasFormat(fact.FormatRaw))
}
