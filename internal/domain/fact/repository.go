package fact

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows fact listings.  The zero value lists every non-deleted
// fact in creation order.
type ListFilter struct {
	ProjectID uuid.UUID

	// IncludeSuppressed controls whether suppressed duplicate-group members
	// appear.  Default views hide them.
	IncludeSuppressed bool

	// ReviewStatus, when non-empty, restricts to a single review state.
	ReviewStatus ReviewStatus

	// SourceDocID, when non-nil, restricts to facts from one source.
	SourceDocID *uuid.UUID

	Limit  int
	Offset int
}

// GroupApply is one duplicate group's worth of suppression writes, applied
// atomically by the repository.
type GroupApply struct {
	Group DuplicateGroup

	// SuppressIDs are the non-canonical members to mark suppressed.
	SuppressIDs []uuid.UUID
}

// Repository is the persistence contract for facts, including the
// suppression fields that the dedup engine owns.
type Repository interface {
	Create(ctx context.Context, f *Fact) error
	GetByID(ctx context.Context, id uuid.UUID) (*Fact, error)
	Update(ctx context.Context, f *Fact) error

	// Delete soft-deletes one fact.  When that fact is a duplicate group's
	// canonical, the group dissolves with it: every suppressed member is
	// unsuppressed, since a suppressed fact must always point at a live
	// canonical.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns facts matching the filter plus the total match count
	// before pagination.
	List(ctx context.Context, filter ListFilter) ([]*Fact, int64, error)

	// ListForDedup returns the eligible dedup working set for a project in
	// deterministic order (created_at, then id), capped at limit.
	ListForDedup(ctx context.Context, projectID uuid.UUID, limit int) ([]*Fact, error)

	// UpdateAnchor persists the anchor span and evidence snippet written by
	// excerpt capture in a single row write.
	UpdateAnchor(ctx context.Context, f *Fact) error

	// ApplyGroup writes one group's suppression state in a single
	// transaction: the canonical row gets the group id with suppression
	// cleared, every SuppressIDs row gets is_suppressed, canonical_fact_id,
	// and duplicate_group_id set.  Partial application is never visible.
	ApplyGroup(ctx context.Context, apply GroupApply) error

	// ClearGroup removes duplicate-group state from every member of the
	// given group, used when a re-run dissolves a previous cluster.
	ClearGroup(ctx context.Context, groupID uuid.UUID) error
}
