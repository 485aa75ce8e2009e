package source

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence contract for captured source content.
// Content rows are write-once; there is no Update.
type Repository interface {
	Create(ctx context.Context, c *Content) error

	// GetBySourceDocID returns the active content version for a document.
	GetBySourceDocID(ctx context.Context, sourceDocID uuid.UUID) (*Content, error)

	// GetByURL resolves content by the captured page URL, used by the
	// excerpt capture API which identifies sources by URL.
	GetByURL(ctx context.Context, url string) (*Content, error)
}

// BlobStore fetches oversized raw text that was offloaded to object storage.
type BlobStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, text string) error
}
