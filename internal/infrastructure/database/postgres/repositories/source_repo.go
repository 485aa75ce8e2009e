package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/citekeep/citekeep/internal/domain/source"
	"github.com/citekeep/citekeep/internal/infrastructure/monitoring/logging"
	appErrors "github.com/citekeep/citekeep/pkg/errors"
)

const sourceColumns = `id, source_doc_id, url, raw_text, markdown, html,
	content_hash, blob_key, captured_at`

// SourceRepository is the PostgreSQL implementation of source.Repository.
// Content rows are write-once; there is no update path.
type SourceRepository struct {
	pool *pgxpool.Pool
	log  logging.Logger
}

// NewSourceRepository constructs a ready-to-use SourceRepository.
func NewSourceRepository(pool *pgxpool.Pool, log logging.Logger) *SourceRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SourceRepository{pool: pool, log: log.Named("source_repo")}
}

func scanSource(row rowScanner) (*source.Content, error) {
	var (
		c                             source.Content
		url, raw, md, html, hash, key *string
	)
	err := row.Scan(&c.ID, &c.SourceDocID, &url, &raw, &md, &html, &hash, &key, &c.CapturedAt)
	if err != nil {
		return nil, err
	}
	c.URL = deref(url)
	c.RawText = deref(raw)
	c.Markdown = deref(md)
	c.HTML = deref(html)
	c.ContentHash = deref(hash)
	c.BlobKey = deref(key)
	return &c, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Create inserts a content row.
func (r *SourceRepository) Create(ctx context.Context, c *source.Content) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO source_contents (`+sourceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.SourceDocID, nullableString(c.URL), nullableString(c.RawText),
		nullableString(c.Markdown), nullableString(c.HTML),
		nullableString(c.ContentHash), nullableString(c.BlobKey), c.CapturedAt,
	)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to insert source content")
	}
	return nil
}

// GetBySourceDocID loads the newest content version for a document.
func (r *SourceRepository) GetBySourceDocID(ctx context.Context, sourceDocID uuid.UUID) (*source.Content, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sourceColumns+`
		FROM source_contents
		WHERE source_doc_id = $1
		ORDER BY captured_at DESC
		LIMIT 1`, sourceDocID)

	c, err := scanSource(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, appErrors.New(appErrors.ErrCodeSourceNotFound,
				"no content for source "+sourceDocID.String())
		}
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to load source content")
	}
	return c, nil
}

// GetByURL loads the newest content version captured for a URL.
func (r *SourceRepository) GetByURL(ctx context.Context, url string) (*source.Content, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sourceColumns+`
		FROM source_contents
		WHERE url = $1
		ORDER BY captured_at DESC
		LIMIT 1`, url)

	c, err := scanSource(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, appErrors.New(appErrors.ErrCodeSourceNotFound, "no content captured for "+url)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to load source content")
	}
	return c, nil
}
