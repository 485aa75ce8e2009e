// Package content assembles source text for readers: row lookup, blob-store
// fallback for oversized raw text, and an optional read-through cache.
// Content is immutable per document version, so cached text never goes stale
// within its TTL.
package content

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/citekeep/citekeep/internal/domain/fact"
	"github.com/citekeep/citekeep/internal/domain/source"
	"github.com/citekeep/citekeep/internal/infrastructure/monitoring/logging"
	"github.com/citekeep/citekeep/pkg/errors"
)

// Cache is a read-through string cache.  The loader is invoked on a miss and
// its result stored under key for ttl.
type Cache interface {
	GetOrSet(ctx context.Context, key string, ttl time.Duration, loader func(context.Context) (string, error)) (string, error)
}

// Service resolves source content in a requested representation.
type Service struct {
	sources  source.Repository
	blobs    source.BlobStore
	cache    Cache
	cacheTTL time.Duration
	log      logging.Logger
}

// NewService constructs a content Service.  blobs and cache may be nil; the
// service then serves inline row content only.
func NewService(sources source.Repository, blobs source.BlobStore, cache Cache, cacheTTL time.Duration, log logging.Logger) *Service {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &Service{
		sources:  sources,
		blobs:    blobs,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log.Named("content"),
	}
}

// BySourceDoc loads the active content row for a source document.
func (s *Service) BySourceDoc(ctx context.Context, sourceDocID uuid.UUID) (*source.Content, error) {
	return s.sources.GetBySourceDocID(ctx, sourceDocID)
}

// ByURL loads the content row captured for a URL.
func (s *Service) ByURL(ctx context.Context, url string) (*source.Content, error) {
	return s.sources.GetByURL(ctx, url)
}

// Text returns the content text in the requested representation, fetching
// offloaded raw text from the blob store when the row holds only a key.
func (s *Service) Text(ctx context.Context, c *source.Content, format fact.ContentFormat) (string, error) {
	if format == fact.FormatRaw && c.RawText == "" && c.BlobKey != "" {
		return s.fetchBlob(ctx, c)
	}
	return c.TextFor(format)
}

func (s *Service) fetchBlob(ctx context.Context, c *source.Content) (string, error) {
	if s.blobs == nil {
		return "", errors.ContentUnavailable(
			"raw content for source " + c.SourceDocID.String() + " is offloaded and no blob store is configured")
	}

	loader := func(ctx context.Context) (string, error) {
		text, err := s.blobs.Get(ctx, c.BlobKey)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrCodeBlobFetchFailed,
				"failed to fetch offloaded content "+c.BlobKey)
		}
		return text, nil
	}

	if s.cache == nil {
		return loader(ctx)
	}
	text, err := s.cache.GetOrSet(ctx, "content:blob:"+c.BlobKey, s.cacheTTL, loader)
	if err != nil {
		// Cache trouble is not content trouble; fall back to a direct fetch
		// unless the loader itself failed.
		if errors.IsCode(err, errors.ErrCodeBlobFetchFailed) {
			return "", err
		}
		s.log.Warn("content cache unavailable, fetching directly",
			logging.String("blob_key", c.BlobKey), logging.Err(err))
		return loader(ctx)
	}
	return text, nil
}
