package projection

import (
	"sync"

	"github.com/google/uuid"
)

// ScoreTable retains the per-group similarity scores recorded by dedup runs
// so that listings can filter collapsed groups on min_sim.  Scores live
// in-process only; after a restart the table is empty and every group passes
// the filter until the next run records it.
type ScoreTable struct {
	mu     sync.RWMutex
	scores GroupScores
}

// NewScoreTable returns an empty table.
func NewScoreTable() *ScoreTable {
	return &ScoreTable{scores: GroupScores{}}
}

// Record merges one run's group scores into the table.  Groups absent from
// the run keep their previous scores.
func (t *ScoreTable) Record(scores map[uuid.UUID]float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, score := range scores {
		t.scores[id] = score
	}
}

// Snapshot returns a copy of the current scores, safe to read while later
// runs keep recording.
func (t *ScoreTable) Snapshot() GroupScores {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(GroupScores, len(t.scores))
	for id, score := range t.scores {
		out[id] = score
	}
	return out
}
