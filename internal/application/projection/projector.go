// Package projection builds the collapsed read-side view of a fact list:
// canonical facts surface as items with their suppressed duplicates folded
// underneath.  The projector is pure; it never writes suppression state, it
// only consumes what the dedup engine persisted.
package projection

import (
	"github.com/google/uuid"

	"github.com/citekeep/citekeep/internal/domain/fact"
)

// GroupView summarizes the suppressed members folded under one canonical
// fact.  CollapsedIDs may be capped by a group limit, but CollapsedCount
// always reflects the true total.
type GroupView struct {
	CollapsedIDs   []uuid.UUID `json:"collapsed_ids"`
	CollapsedCount int         `json:"collapsed_count"`
	Score          float64     `json:"score,omitempty"`
}

// ProjectedView is the collapsed listing: visible facts plus a per-group
// summary of what was folded away.
type ProjectedView struct {
	Items  []*fact.Fact            `json:"items"`
	Groups map[uuid.UUID]GroupView `json:"groups"`
}

// Params tune one projection call.
type Params struct {
	// MinSim filters out groups whose recorded score falls below it.
	// Members of a filtered group pass through uncollapsed.
	MinSim float64

	// GroupLimit, when positive, caps how many collapsed member IDs are
	// enumerated per group.
	GroupLimit int
}

// GroupScores carries the per-group similarity scores recorded by the last
// dedup run, keyed by group ID.  Missing entries are treated as passing any
// MinSim filter, since absence of a score is not evidence of dissimilarity.
type GroupScores map[uuid.UUID]float64

// Project collapses suppressed facts under their canonical representatives.
// Input order is preserved for facts that remain visible; facts with no
// group pass through unchanged.
func Project(facts []*fact.Fact, scores GroupScores, params Params) *ProjectedView {
	view := &ProjectedView{
		Items:  make([]*fact.Fact, 0, len(facts)),
		Groups: make(map[uuid.UUID]GroupView),
	}

	for _, f := range facts {
		if f.DuplicateGroupID == nil {
			view.Items = append(view.Items, f)
			continue
		}
		gid := *f.DuplicateGroupID

		score, scored := scores[gid]
		if scored && score < params.MinSim {
			// Group filtered out: members stay visible individually.
			view.Items = append(view.Items, f)
			continue
		}

		if !f.IsSuppressed {
			view.Items = append(view.Items, f)
			if _, ok := view.Groups[gid]; !ok {
				view.Groups[gid] = GroupView{Score: score}
			}
			continue
		}

		gv := view.Groups[gid]
		gv.CollapsedCount++
		if params.GroupLimit <= 0 || len(gv.CollapsedIDs) < params.GroupLimit {
			gv.CollapsedIDs = append(gv.CollapsedIDs, f.ID)
		}
		if scored {
			gv.Score = score
		}
		view.Groups[gid] = gv
	}

	return view
}
