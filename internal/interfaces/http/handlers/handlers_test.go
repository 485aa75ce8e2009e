package handlers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/citekeep/citekeep/internal/domain/fact"
	"github.com/citekeep/citekeep/internal/domain/source"
	"github.com/citekeep/citekeep/internal/infrastructure/messaging/kafka"
	appErrors "github.com/citekeep/citekeep/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memFacts is an in-memory fact.Repository for handler tests.
type memFacts struct {
	mu    sync.Mutex
	facts map[uuid.UUID]*fact.Fact
}

func newMemFacts() *memFacts {
	return &memFacts{facts: map[uuid.UUID]*fact.Fact{}}
}

func (m *memFacts) put(f *fact.Fact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *f
	m.facts[f.ID] = &clone
}

func (m *memFacts) Create(_ context.Context, f *fact.Fact) error {
	m.put(f)
	return nil
}

func (m *memFacts) GetByID(_ context.Context, id uuid.UUID) (*fact.Fact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.facts[id]
	if !ok {
		return nil, appErrors.New(appErrors.ErrCodeFactNotFound, "fact not found")
	}
	clone := *f
	return &clone, nil
}

func (m *memFacts) Update(_ context.Context, f *fact.Fact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.facts[f.ID]; !ok {
		return appErrors.New(appErrors.ErrCodeFactNotFound, "fact not found")
	}
	clone := *f
	m.facts[f.ID] = &clone
	return nil
}

func (m *memFacts) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.facts[id]
	if !ok {
		return appErrors.New(appErrors.ErrCodeFactNotFound, "fact not found")
	}
	delete(m.facts, id)
	// Deleting a group's canonical dissolves the group.
	if f.DuplicateGroupID != nil && !f.IsSuppressed {
		for _, member := range m.facts {
			if member.DuplicateGroupID != nil && *member.DuplicateGroupID == *f.DuplicateGroupID {
				member.ClearGroup()
			}
		}
	}
	return nil
}

func (m *memFacts) sorted() []*fact.Fact {
	out := make([]*fact.Fact, 0, len(m.facts))
	for _, f := range m.facts {
		clone := *f
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (m *memFacts) List(_ context.Context, filter fact.ListFilter) ([]*fact.Fact, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*fact.Fact
	for _, f := range m.sorted() {
		if f.ProjectID != filter.ProjectID {
			continue
		}
		if !filter.IncludeSuppressed && f.IsSuppressed {
			continue
		}
		if filter.ReviewStatus != "" && f.ReviewStatus != filter.ReviewStatus {
			continue
		}
		if filter.SourceDocID != nil && f.SourceDocID != *filter.SourceDocID {
			continue
		}
		out = append(out, f)
	}
	total := int64(len(out))
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			out = nil
		} else {
			out = out[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (m *memFacts) ListForDedup(_ context.Context, projectID uuid.UUID, limit int) ([]*fact.Fact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*fact.Fact
	for _, f := range m.sorted() {
		if f.ProjectID == projectID {
			out = append(out, f)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memFacts) UpdateAnchor(ctx context.Context, f *fact.Fact) error {
	return m.Update(ctx, f)
}

func (m *memFacts) ApplyGroup(_ context.Context, apply fact.GroupApply) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	canonical, ok := m.facts[apply.Group.CanonicalFactID]
	if !ok {
		return appErrors.New(appErrors.ErrCodeFactNotFound, "canonical fact not found")
	}
	canonical.MarkCanonical(apply.Group.GroupID)
	for _, id := range apply.SuppressIDs {
		member, ok := m.facts[id]
		if !ok {
			return appErrors.New(appErrors.ErrCodeFactNotFound, "group member not found")
		}
		member.Suppress(apply.Group.CanonicalFactID, apply.Group.GroupID)
	}
	return nil
}

func (m *memFacts) ClearGroup(_ context.Context, groupID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.facts {
		if f.DuplicateGroupID != nil && *f.DuplicateGroupID == groupID {
			f.ClearGroup()
		}
	}
	return nil
}

// memSources is an in-memory source.Repository.
type memSources struct {
	byDoc map[uuid.UUID]*source.Content
	byURL map[string]*source.Content
}

func newMemSources() *memSources {
	return &memSources{byDoc: map[uuid.UUID]*source.Content{}, byURL: map[string]*source.Content{}}
}

func (m *memSources) add(c *source.Content) {
	m.byDoc[c.SourceDocID] = c
	if c.URL != "" {
		m.byURL[c.URL] = c
	}
}

func (m *memSources) Create(_ context.Context, c *source.Content) error {
	m.add(c)
	return nil
}

func (m *memSources) GetBySourceDocID(_ context.Context, id uuid.UUID) (*source.Content, error) {
	c, ok := m.byDoc[id]
	if !ok {
		return nil, appErrors.New(appErrors.ErrCodeSourceNotFound, "source not found")
	}
	return c, nil
}

func (m *memSources) GetByURL(_ context.Context, url string) (*source.Content, error) {
	c, ok := m.byURL[url]
	if !ok {
		return nil, appErrors.New(appErrors.ErrCodeSourceNotFound, "source not found")
	}
	return c, nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	factUpdates      []kafka.FactUpdatedPayload
	excerptCaptures  []kafka.ExcerptCapturedPayload
	dedupCompletions []kafka.DedupCompletedPayload
}

func (p *recordingPublisher) PublishDedupCompleted(_ context.Context, payload kafka.DedupCompletedPayload) error {
	p.dedupCompletions = append(p.dedupCompletions, payload)
	return nil
}

func (p *recordingPublisher) PublishExcerptCaptured(_ context.Context, payload kafka.ExcerptCapturedPayload) error {
	p.excerptCaptures = append(p.excerptCaptures, payload)
	return nil
}

func (p *recordingPublisher) PublishFactUpdated(_ context.Context, payload kafka.FactUpdatedPayload) error {
	p.factUpdates = append(p.factUpdates, payload)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func newFact(projectID, docID uuid.UUID, text, quote string, confidence float64, age time.Duration) *fact.Fact {
	f, err := fact.New(projectID, docID, text, quote, confidence)
	if err != nil {
		panic(err)
	}
	f.CreatedAt = f.CreatedAt.Add(-age)
	return f
}
