package content

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citekeep/citekeep/internal/domain/fact"
	"github.com/citekeep/citekeep/internal/domain/source"
	"github.com/citekeep/citekeep/internal/infrastructure/monitoring/logging"
	"github.com/citekeep/citekeep/pkg/errors"
)

type memSourceRepo struct {
	byDoc map[uuid.UUID]*source.Content
	byURL map[string]*source.Content
}

func (r *memSourceRepo) Create(_ context.Context, c *source.Content) error {
	r.byDoc[c.SourceDocID] = c
	if c.URL != "" {
		r.byURL[c.URL] = c
	}
	return nil
}

func (r *memSourceRepo) GetBySourceDocID(_ context.Context, id uuid.UUID) (*source.Content, error) {
	c, ok := r.byDoc[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeSourceNotFound, "source not found")
	}
	return c, nil
}

func (r *memSourceRepo) GetByURL(_ context.Context, url string) (*source.Content, error) {
	c, ok := r.byURL[url]
	if !ok {
		return nil, errors.New(errors.ErrCodeSourceNotFound, "source not found")
	}
	return c, nil
}

type memBlobStore struct {
	blobs map[string]string
	gets  int
	err   error
}

func (b *memBlobStore) Get(_ context.Context, key string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	b.gets++
	text, ok := b.blobs[key]
	if !ok {
		return "", fmt.Errorf("no such key %s", key)
	}
	return text, nil
}

func (b *memBlobStore) Put(_ context.Context, key, text string) error {
	b.blobs[key] = text
	return nil
}

type memCache struct {
	entries map[string]string
	err     error
}

func (c *memCache) GetOrSet(ctx context.Context, key string, _ time.Duration, loader func(context.Context) (string, error)) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	if v, ok := c.entries[key]; ok {
		return v, nil
	}
	v, err := loader(ctx)
	if err != nil {
		return "", err
	}
	c.entries[key] = v
	return v, nil
}

func newFixture() (*memSourceRepo, *memBlobStore, *memCache) {
	return &memSourceRepo{byDoc: map[uuid.UUID]*source.Content{}, byURL: map[string]*source.Content{}},
		&memBlobStore{blobs: map[string]string{}},
		&memCache{entries: map[string]string{}}
}

func TestTextInline(t *testing.T) {
	repo, blobs, cache := newFixture()
	svc := NewService(repo, blobs, cache, time.Minute, logging.NewNopLogger())

	c := source.NewContent(uuid.New(), "https://example.com", "raw body", "md body", "")
	require.NoError(t, repo.Create(context.Background(), c))

	text, err := svc.Text(context.Background(), c, fact.FormatRaw)
	require.NoError(t, err)
	assert.Equal(t, "raw body", text)

	text, err = svc.Text(context.Background(), c, fact.FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "md body", text)
}

func TestTextUnavailable(t *testing.T) {
	repo, blobs, cache := newFixture()
	svc := NewService(repo, blobs, cache, time.Minute, logging.NewNopLogger())

	c := source.NewContent(uuid.New(), "", "raw only", "", "")
	_, err := svc.Text(context.Background(), c, fact.FormatMarkdown)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeContentUnavailable))
}

func TestTextBlobFallback(t *testing.T) {
	repo, blobs, cache := newFixture()
	blobs.blobs["sources/abc"] = "offloaded raw body"
	svc := NewService(repo, blobs, cache, time.Minute, logging.NewNopLogger())

	c := &source.Content{ID: uuid.New(), SourceDocID: uuid.New(), BlobKey: "sources/abc"}

	text, err := svc.Text(context.Background(), c, fact.FormatRaw)
	require.NoError(t, err)
	assert.Equal(t, "offloaded raw body", text)
	assert.Equal(t, 1, blobs.gets)

	// Second read is served from cache.
	_, err = svc.Text(context.Background(), c, fact.FormatRaw)
	require.NoError(t, err)
	assert.Equal(t, 1, blobs.gets)
}

func TestTextBlobFallbackNoStore(t *testing.T) {
	repo, _, cache := newFixture()
	svc := NewService(repo, nil, cache, time.Minute, logging.NewNopLogger())

	c := &source.Content{ID: uuid.New(), SourceDocID: uuid.New(), BlobKey: "sources/abc"}
	_, err := svc.Text(context.Background(), c, fact.FormatRaw)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeContentUnavailable))
}

func TestTextBlobFetchFailure(t *testing.T) {
	repo, blobs, cache := newFixture()
	svc := NewService(repo, blobs, cache, time.Minute, logging.NewNopLogger())

	c := &source.Content{ID: uuid.New(), SourceDocID: uuid.New(), BlobKey: "missing"}
	_, err := svc.Text(context.Background(), c, fact.FormatRaw)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBlobFetchFailed))
}

func TestTextCacheFailureFallsThrough(t *testing.T) {
	repo, blobs, cache := newFixture()
	blobs.blobs["sources/abc"] = "offloaded raw body"
	cache.err = fmt.Errorf("redis down")
	svc := NewService(repo, blobs, cache, time.Minute, logging.NewNopLogger())

	c := &source.Content{ID: uuid.New(), SourceDocID: uuid.New(), BlobKey: "sources/abc"}
	text, err := svc.Text(context.Background(), c, fact.FormatRaw)
	require.NoError(t, err)
	assert.Equal(t, "offloaded raw body", text)
}

func TestByURLAndByDoc(t *testing.T) {
	repo, blobs, cache := newFixture()
	svc := NewService(repo, blobs, cache, time.Minute, logging.NewNopLogger())

	c := source.NewContent(uuid.New(), "https://example.com/doc", "body", "", "")
	require.NoError(t, repo.Create(context.Background(), c))

	got, err := svc.ByURL(context.Background(), "https://example.com/doc")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	got, err = svc.BySourceDoc(context.Background(), c.SourceDocID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = svc.ByURL(context.Background(), "https://nope")
	assert.True(t, errors.IsNotFound(err))
}
