// Package dedup implements near-duplicate detection over a project's facts:
// pairwise text similarity, union-find clustering, canonical selection, and
// the atomic per-group application of suppression state.
package dedup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/citekeep/citekeep/internal/domain/fact"
	"github.com/citekeep/citekeep/internal/domain/similarity"
	"github.com/citekeep/citekeep/internal/infrastructure/monitoring/logging"
	"github.com/citekeep/citekeep/pkg/errors"
)

const (
	// DefaultThreshold is the pairwise similarity at or above which two
	// facts are considered near-duplicates.
	DefaultThreshold = 0.92

	// DefaultLimit caps the working set per run; the pairwise pass is
	// O(n²), so the limit is the primary backpressure control.
	DefaultLimit = 500

	// MaxLimit is the hard ceiling a caller-supplied limit may not exceed.
	MaxLimit = 5000

	// groupReason records why members were clustered.  Only one rule
	// exists today.
	groupReason = "near-duplicate text"
)

// groupNamespace seeds deterministic group IDs.  A group's ID is derived
// from its canonical fact so that re-running dedup over unchanged data
// reproduces the same group IDs.
var groupNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// Report summarizes one dedup run.
type Report struct {
	Groups          []fact.DuplicateGroup `json:"groups"`
	SuppressedCount int                   `json:"suppressed_count"`
	FactCount       int                   `json:"fact_count"`
	Threshold       float64               `json:"threshold"`
	Duration        time.Duration         `json:"-"`
}

// ScoreSink receives the per-group similarity scores of a completed run,
// keyed by group ID.  The read side uses them to filter collapsed listings.
type ScoreSink interface {
	Record(scores map[uuid.UUID]float64)
}

// Engine runs deduplication over a project's fact set.  The similarity
// function is injected; the engine mandates nothing about its algorithm
// beyond scores in [0, 1].
type Engine struct {
	repo   fact.Repository
	sim    similarity.Func
	log    logging.Logger
	scores ScoreSink
}

// EngineOption tunes optional engine behavior.
type EngineOption func(*Engine)

// WithScoreSink forwards each run's group scores to sink.
func WithScoreSink(sink ScoreSink) EngineOption {
	return func(e *Engine) { e.scores = sink }
}

// NewEngine constructs an Engine.  A nil logger falls back to the nop logger.
func NewEngine(repo fact.Repository, sim similarity.Func, log logging.Logger, opts ...EngineOption) *Engine {
	if log == nil {
		log = logging.NewNopLogger()
	}
	e := &Engine{repo: repo, sim: sim, log: log.Named("dedup")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ValidateParams checks the caller-supplied threshold and limit before any
// work is done.  Zero values select the defaults.
func ValidateParams(threshold float64, limit int) (float64, int, error) {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if threshold <= 0 || threshold > 1 {
		return 0, 0, errors.New(errors.ErrCodeThresholdOutOfRange,
			fmt.Sprintf("threshold %v outside (0, 1]", threshold))
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 || limit > MaxLimit {
		return 0, 0, errors.New(errors.ErrCodeLimitOutOfRange,
			fmt.Sprintf("limit %d outside [1, %d]", limit, MaxLimit))
	}
	return threshold, limit, nil
}

// Run loads the project's eligible facts, clusters them, and applies the
// resulting suppression state group by group.  Each group's writes are
// atomic; a failure between groups leaves earlier groups applied and all
// facts in a valid state.  Re-running over unchanged data produces an
// identical report and changes nothing.
func (e *Engine) Run(ctx context.Context, projectID uuid.UUID, threshold float64, limit int) (*Report, error) {
	threshold, limit, err := ValidateParams(threshold, limit)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	facts, err := e.repo.ListForDedup(ctx, projectID, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDedupFailed, "failed to load dedup working set")
	}

	groups := e.Cluster(facts, threshold)

	if err := e.apply(ctx, facts, groups); err != nil {
		return nil, err
	}

	if e.scores != nil && len(groups) > 0 {
		recorded := make(map[uuid.UUID]float64, len(groups))
		for _, g := range groups {
			recorded[g.GroupID] = g.Score
		}
		e.scores.Record(recorded)
	}

	report := &Report{
		Groups:          groups,
		SuppressedCount: suppressedCount(groups),
		FactCount:       len(facts),
		Threshold:       threshold,
		Duration:        time.Since(started),
	}
	e.log.Info("dedup run complete",
		logging.String("project_id", projectID.String()),
		logging.Int("fact_count", report.FactCount),
		logging.Int("groups", len(report.Groups)),
		logging.Int("suppressed", report.SuppressedCount),
		logging.Duration("took", report.Duration),
	)
	return report, nil
}

// Cluster performs the pure clustering step: pairwise similarity over the
// fact slice, union of pairs at or above the threshold, canonical selection
// per component.  It never mutates the input facts.
func (e *Engine) Cluster(facts []*fact.Fact, threshold float64) []fact.DuplicateGroup {
	n := len(facts)
	if n < 2 {
		return nil
	}

	uf := newUnionFind(n)
	// maxScore[root] tracking happens after union, so record pair scores
	// first and fold them into components below.
	type pairScore struct {
		a, b  int
		score float64
	}
	var matched []pairScore

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			score, err := e.sim(facts[i].FactText, facts[j].FactText)
			if err != nil {
				// One bad pair must not abort the batch; treat it as
				// below threshold.
				e.log.Warn("similarity computation failed for pair",
					logging.String("fact_a", facts[i].ID.String()),
					logging.String("fact_b", facts[j].ID.String()),
					logging.Err(err),
				)
				continue
			}
			if score >= threshold {
				uf.union(i, j)
				matched = append(matched, pairScore{a: i, b: j, score: score})
			}
		}
	}

	components := uf.components()
	var groups []fact.DuplicateGroup
	for root, members := range components {
		if len(members) < 2 {
			continue
		}

		canonical := members[0]
		for _, m := range members[1:] {
			if betterCanonical(facts[m], facts[canonical]) {
				canonical = m
			}
		}

		maxScore := 0.0
		for _, p := range matched {
			if uf.find(p.a) == root && p.score > maxScore {
				maxScore = p.score
			}
		}

		memberIDs := make([]uuid.UUID, 0, len(members))
		for _, m := range members {
			memberIDs = append(memberIDs, facts[m].ID)
		}

		groups = append(groups, fact.DuplicateGroup{
			GroupID:         groupID(facts[canonical]),
			CanonicalFactID: facts[canonical].ID,
			MemberFactIDs:   memberIDs,
			Reason:          groupReason,
			Score:           maxScore,
		})
	}

	// Stable output order for idempotent reports.
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].GroupID.String() < groups[j].GroupID.String()
	})
	return groups
}

// betterCanonical reports whether a should be canonical over b, by strict
// priority: Approved review status, then pinned, then higher confidence,
// then earlier created_at, then lower id.  The final two rules exist purely
// for determinism.
func betterCanonical(a, b *fact.Fact) bool {
	aApproved := a.ReviewStatus == fact.StatusApproved
	bApproved := b.ReviewStatus == fact.StatusApproved
	if aApproved != bApproved {
		return aApproved
	}
	if a.IsPinned != b.IsPinned {
		return a.IsPinned
	}
	if a.ConfidenceScore != b.ConfidenceScore {
		return a.ConfidenceScore > b.ConfidenceScore
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// groupID derives a stable group identifier from the canonical fact so that
// repeated runs over unchanged data reuse the same group IDs.
func groupID(canonical *fact.Fact) uuid.UUID {
	return uuid.NewSHA1(groupNamespace, canonical.ID[:])
}

// apply persists the clustering outcome.  Facts that carried group state but
// ended this run ungrouped are cleared individually; each surviving group is
// then written atomically via the repository.
func (e *Engine) apply(ctx context.Context, facts []*fact.Fact, groups []fact.DuplicateGroup) error {
	grouped := make(map[uuid.UUID]bool)
	for _, g := range groups {
		for _, id := range g.MemberFactIDs {
			grouped[id] = true
		}
	}

	for _, f := range facts {
		if f.DuplicateGroupID == nil || grouped[f.ID] {
			continue
		}
		cleared := *f
		cleared.ClearGroup()
		if err := e.repo.Update(ctx, &cleared); err != nil {
			return errors.Wrap(err, errors.ErrCodeGroupApplyFailed,
				"failed to clear stale group state for fact "+f.ID.String())
		}
	}

	for _, g := range groups {
		suppress := make([]uuid.UUID, 0, len(g.MemberFactIDs)-1)
		for _, id := range g.MemberFactIDs {
			if id != g.CanonicalFactID {
				suppress = append(suppress, id)
			}
		}
		if err := e.repo.ApplyGroup(ctx, fact.GroupApply{Group: g, SuppressIDs: suppress}); err != nil {
			return errors.Wrap(err, errors.ErrCodeGroupApplyFailed,
				"failed to apply group "+g.GroupID.String())
		}
	}
	return nil
}

func suppressedCount(groups []fact.DuplicateGroup) int {
	total := 0
	for _, g := range groups {
		total += len(g.MemberFactIDs) - 1
	}
	return total
}
