// Package repositories provides the PostgreSQL-backed implementations of the
// domain repository interfaces.  Every method takes a context for
// cancellation and uses parameterised queries exclusively.
package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/citekeep/citekeep/internal/domain/fact"
	"github.com/citekeep/citekeep/internal/domain/span"
	"github.com/citekeep/citekeep/internal/infrastructure/monitoring/logging"
	appErrors "github.com/citekeep/citekeep/pkg/errors"
)

const factColumns = `id, project_id, source_doc_id, fact_text, quote_text_raw,
	anchor_start_raw, anchor_end_raw, anchor_start_md, anchor_end_md, evidence_snippet,
	is_suppressed, canonical_fact_id, duplicate_group_id, review_status, is_pinned,
	confidence_score, created_at, updated_at`

// FactRepository is the PostgreSQL implementation of fact.Repository.
type FactRepository struct {
	pool *pgxpool.Pool
	log  logging.Logger
}

// NewFactRepository constructs a ready-to-use FactRepository.
func NewFactRepository(pool *pgxpool.Pool, log logging.Logger) *FactRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &FactRepository{pool: pool, log: log.Named("fact_repo")}
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanFact maps one row onto a Fact, folding the nullable anchor column
// pairs back into span values.
func scanFact(row rowScanner) (*fact.Fact, error) {
	var (
		f                    fact.Fact
		startRaw, endRaw     *int
		startMD, endMD       *int
		evidenceSnippet      *string
		reviewStatus         string
	)
	err := row.Scan(
		&f.ID, &f.ProjectID, &f.SourceDocID, &f.FactText, &f.QuoteTextRaw,
		&startRaw, &endRaw, &startMD, &endMD, &evidenceSnippet,
		&f.IsSuppressed, &f.CanonicalFactID, &f.DuplicateGroupID, &reviewStatus, &f.IsPinned,
		&f.ConfidenceScore, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.ReviewStatus = fact.ReviewStatus(reviewStatus)
	if evidenceSnippet != nil {
		f.EvidenceSnippet = *evidenceSnippet
	}
	if startRaw != nil && endRaw != nil {
		f.AnchorRaw = &span.Span{Start: *startRaw, End: *endRaw}
	}
	if startMD != nil && endMD != nil {
		f.AnchorMD = &span.Span{Start: *startMD, End: *endMD}
	}
	return &f, nil
}

// anchorCols splits an optional span back into its nullable column pair.
func anchorCols(s *span.Span) (*int, *int) {
	if s == nil {
		return nil, nil
	}
	start, end := s.Start, s.End
	return &start, &end
}

// Create inserts a new fact row.
func (r *FactRepository) Create(ctx context.Context, f *fact.Fact) error {
	startRaw, endRaw := anchorCols(f.AnchorRaw)
	startMD, endMD := anchorCols(f.AnchorMD)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO facts (`+factColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		f.ID, f.ProjectID, f.SourceDocID, f.FactText, f.QuoteTextRaw,
		startRaw, endRaw, startMD, endMD, nullableString(f.EvidenceSnippet),
		f.IsSuppressed, f.CanonicalFactID, f.DuplicateGroupID, string(f.ReviewStatus), f.IsPinned,
		f.ConfidenceScore, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to insert fact")
	}
	return nil
}

// GetByID loads a single non-deleted fact.
func (r *FactRepository) GetByID(ctx context.Context, id uuid.UUID) (*fact.Fact, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+factColumns+`
		FROM facts
		WHERE id = $1 AND deleted_at IS NULL`, id)

	f, err := scanFact(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, appErrors.New(appErrors.ErrCodeFactNotFound, "fact "+id.String()+" not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to load fact")
	}
	return f, nil
}

// Update rewrites every mutable column of the fact row.
func (r *FactRepository) Update(ctx context.Context, f *fact.Fact) error {
	startRaw, endRaw := anchorCols(f.AnchorRaw)
	startMD, endMD := anchorCols(f.AnchorMD)

	tag, err := r.pool.Exec(ctx, `
		UPDATE facts SET
			fact_text = $2, quote_text_raw = $3,
			anchor_start_raw = $4, anchor_end_raw = $5,
			anchor_start_md = $6, anchor_end_md = $7,
			evidence_snippet = $8,
			is_suppressed = $9, canonical_fact_id = $10, duplicate_group_id = $11,
			review_status = $12, is_pinned = $13, confidence_score = $14,
			updated_at = $15
		WHERE id = $1 AND deleted_at IS NULL`,
		f.ID, f.FactText, f.QuoteTextRaw,
		startRaw, endRaw, startMD, endMD,
		nullableString(f.EvidenceSnippet),
		f.IsSuppressed, f.CanonicalFactID, f.DuplicateGroupID,
		string(f.ReviewStatus), f.IsPinned, f.ConfidenceScore,
		f.UpdatedAt,
	)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to update fact")
	}
	if tag.RowsAffected() == 0 {
		return appErrors.New(appErrors.ErrCodeFactNotFound, "fact "+f.ID.String()+" not found")
	}
	return nil
}

// Delete soft-deletes the fact.  Deleting a group's canonical dissolves the
// whole group in the same transaction: suppressed members must never point
// at a deleted row, so they return to visibility instead.
func (r *FactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to begin delete transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var (
		groupID    *uuid.UUID
		suppressed bool
	)
	err = tx.QueryRow(ctx, `
		SELECT duplicate_group_id, is_suppressed
		FROM facts
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`, id).Scan(&groupID, &suppressed)
	if err != nil {
		if err == pgx.ErrNoRows {
			return appErrors.New(appErrors.ErrCodeFactNotFound, "fact "+id.String()+" not found")
		}
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to load fact for delete")
	}

	_, err = tx.Exec(ctx, `
		UPDATE facts SET
			deleted_at = now(),
			is_suppressed = FALSE, canonical_fact_id = NULL, duplicate_group_id = NULL
		WHERE id = $1`, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to delete fact")
	}

	// A grouped, non-suppressed fact is its group's canonical.
	if groupID != nil && !suppressed {
		if err := clearGroup(ctx, tx, *groupID); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to commit delete transaction")
	}
	return nil
}

// List returns facts matching the filter plus the total count before
// pagination.
func (r *FactRepository) List(ctx context.Context, filter fact.ListFilter) ([]*fact.Fact, int64, error) {
	where := []string{"deleted_at IS NULL"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ProjectID != uuid.Nil {
		where = append(where, "project_id = "+arg(filter.ProjectID))
	}
	if !filter.IncludeSuppressed {
		where = append(where, "is_suppressed = FALSE")
	}
	if filter.ReviewStatus != "" {
		where = append(where, "review_status = "+arg(string(filter.ReviewStatus)))
	}
	if filter.SourceDocID != nil {
		where = append(where, "source_doc_id = "+arg(*filter.SourceDocID))
	}
	whereClause := strings.Join(where, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx,
		"SELECT count(*) FROM facts WHERE "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to count facts")
	}

	query := "SELECT " + factColumns + " FROM facts WHERE " + whereClause +
		" ORDER BY created_at, id"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to list facts")
	}
	defer rows.Close()

	var out []*fact.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, 0, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to scan fact row")
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "fact listing aborted")
	}
	return out, total, nil
}

// ListForDedup returns the dedup working set in deterministic order.
func (r *FactRepository) ListForDedup(ctx context.Context, projectID uuid.UUID, limit int) ([]*fact.Fact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+factColumns+`
		FROM facts
		WHERE project_id = $1 AND deleted_at IS NULL
		ORDER BY created_at, id
		LIMIT $2`, projectID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to load dedup working set")
	}
	defer rows.Close()

	var out []*fact.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to scan fact row")
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "dedup listing aborted")
	}
	return out, nil
}

// UpdateAnchor persists only the anchor and snippet columns.
func (r *FactRepository) UpdateAnchor(ctx context.Context, f *fact.Fact) error {
	startRaw, endRaw := anchorCols(f.AnchorRaw)
	startMD, endMD := anchorCols(f.AnchorMD)

	tag, err := r.pool.Exec(ctx, `
		UPDATE facts SET
			anchor_start_raw = $2, anchor_end_raw = $3,
			anchor_start_md = $4, anchor_end_md = $5,
			evidence_snippet = $6, updated_at = $7
		WHERE id = $1 AND deleted_at IS NULL`,
		f.ID, startRaw, endRaw, startMD, endMD, nullableString(f.EvidenceSnippet), f.UpdatedAt,
	)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to persist anchor")
	}
	if tag.RowsAffected() == 0 {
		return appErrors.New(appErrors.ErrCodeFactNotFound, "fact "+f.ID.String()+" not found")
	}
	return nil
}

// ApplyGroup writes one duplicate group's suppression state in a single
// transaction so a reader never observes half a group.
func (r *FactRepository) ApplyGroup(ctx context.Context, apply fact.GroupApply) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to begin group transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		UPDATE facts SET
			is_suppressed = FALSE, canonical_fact_id = NULL, duplicate_group_id = $2,
			updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`,
		apply.Group.CanonicalFactID, apply.Group.GroupID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to mark canonical fact")
	}

	if len(apply.SuppressIDs) > 0 {
		_, err = tx.Exec(ctx, `
			UPDATE facts SET
				is_suppressed = TRUE, canonical_fact_id = $2, duplicate_group_id = $3,
				updated_at = now()
			WHERE id = ANY($1) AND deleted_at IS NULL`,
			apply.SuppressIDs, apply.Group.CanonicalFactID, apply.Group.GroupID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to suppress group members")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to commit group transaction")
	}

	r.log.Debug("group applied",
		logging.String("group_id", apply.Group.GroupID.String()),
		logging.Int("suppressed", len(apply.SuppressIDs)),
	)
	return nil
}

// ClearGroup removes duplicate-group state from every member of a group.
func (r *FactRepository) ClearGroup(ctx context.Context, groupID uuid.UUID) error {
	return clearGroup(ctx, r.pool, groupID)
}

// execer is the subset of pool and transaction shared statements need.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func clearGroup(ctx context.Context, db execer, groupID uuid.UUID) error {
	_, err := db.Exec(ctx, `
		UPDATE facts SET
			is_suppressed = FALSE, canonical_fact_id = NULL, duplicate_group_id = NULL,
			updated_at = now()
		WHERE duplicate_group_id = $1 AND deleted_at IS NULL`, groupID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to clear group")
	}
	return nil
}

// nullableString maps "" to NULL.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
