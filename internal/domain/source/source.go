// Package source models the textual content captured for a source document.
// Content is immutable once captured for a given document version; there is
// at most one active version per document, so readers can cache freely.
package source

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/citekeep/citekeep/internal/domain/fact"
	"github.com/citekeep/citekeep/pkg/errors"
)

// Content holds every textual representation captured for one source
// document version.  RawText is always attempted at ingestion; Markdown and
// HTML are optional conversions.  Oversized raw text may live in the blob
// store instead of the row, in which case BlobKey is set and RawText empty.
type Content struct {
	ID          uuid.UUID `json:"id"`
	SourceDocID uuid.UUID `json:"source_doc_id"`
	URL         string    `json:"url,omitempty"`

	RawText  string `json:"raw_text,omitempty"`
	Markdown string `json:"markdown,omitempty"`
	HTML     string `json:"html,omitempty"`

	// ContentHash is the sha256 of RawText, set at capture time.
	ContentHash string `json:"content_hash,omitempty"`

	// BlobKey points at the object-store copy of the raw text when it was
	// too large to keep inline.
	BlobKey string `json:"blob_key,omitempty"`

	CapturedAt time.Time `json:"captured_at"`
}

// NewContent constructs an immutable Content record, hashing the raw text.
func NewContent(sourceDocID uuid.UUID, url, rawText, markdown, html string) *Content {
	return &Content{
		ID:          uuid.New(),
		SourceDocID: sourceDocID,
		URL:         url,
		RawText:     rawText,
		Markdown:    markdown,
		HTML:        html,
		ContentHash: HashContent(rawText),
		CapturedAt:  time.Now().UTC(),
	}
}

// HashContent returns the hex-encoded sha256 of text, or "" for empty text.
func HashContent(text string) string {
	if text == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// TextFor returns the content in the requested representation.  A missing
// representation is a ContentUnavailable error, distinct from the document
// itself not being found.
func (c *Content) TextFor(format fact.ContentFormat) (string, error) {
	var text string
	switch format {
	case fact.FormatMarkdown:
		text = c.Markdown
	case fact.FormatRaw:
		text = c.RawText
	default:
		return "", errors.New(errors.ErrCodeFormatUnsupported,
			fmt.Sprintf("unsupported content format %q", format))
	}
	if text == "" {
		return "", errors.ContentUnavailable(
			fmt.Sprintf("source %s has no %s content", c.SourceDocID, format))
	}
	return text, nil
}

// HasFormat reports whether the requested representation is present inline.
func (c *Content) HasFormat(format fact.ContentFormat) bool {
	_, err := c.TextFor(format)
	return err == nil
}
