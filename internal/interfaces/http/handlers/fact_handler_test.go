package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citekeep/citekeep/internal/application/content"
	"github.com/citekeep/citekeep/internal/application/evidence"
	"github.com/citekeep/citekeep/internal/application/excerpt"
	"github.com/citekeep/citekeep/internal/application/projection"
	"github.com/citekeep/citekeep/internal/domain/anchor"
	"github.com/citekeep/citekeep/internal/domain/fact"
	"github.com/citekeep/citekeep/internal/domain/source"
)

type factFixture struct {
	repo      *memFacts
	sources   *memSources
	publisher *recordingPublisher
	anchors   *recordingAnchors
	router    *gin.Engine
}

type recordingAnchors struct {
	resolutions []string
}

func (r *recordingAnchors) ObserveAnchorResolution(tier, format string) {
	r.resolutions = append(r.resolutions, tier+"/"+format)
}

func newFactFixture(opts ...FactOption) *factFixture {
	repo := newMemFacts()
	sources := newMemSources()
	publisher := &recordingPublisher{}
	anchors := &recordingAnchors{}

	contentSvc := content.NewService(sources, nil, nil, 0, nil)
	evidenceSvc := evidence.NewService(repo, contentSvc, anchor.NewResolver(anchor.Options{}), nil)
	excerptSvc := excerpt.NewService(repo, contentSvc, nil)

	h := NewFactHandler(repo, evidenceSvc, excerptSvc, publisher, anchors, nil, opts...)

	r := gin.New()
	r.GET("/facts", h.List)
	r.POST("/facts", h.Create)
	r.GET("/facts/:id", h.Get)
	r.PATCH("/facts/:id", h.Patch)
	r.DELETE("/facts/:id", h.Delete)
	r.GET("/facts/:id/evidence", h.Evidence)
	r.POST("/facts/:id/capture_excerpt", h.CaptureExcerpt)

	return &factFixture{repo: repo, sources: sources, publisher: publisher, anchors: anchors, router: r}
}

func (fx *factFixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

func TestCreateFact(t *testing.T) {
	fx := newFactFixture()

	rec := fx.do("POST", "/facts", gin.H{
		"project_id":       uuid.New().String(),
		"source_doc_id":    uuid.New().String(),
		"fact_text":        "Водка was first distilled in the 15th century.",
		"quote_text_raw":   "first distilled in the 15th century",
		"confidence_score": 0.9,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created fact.Fact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, fact.StatusPending, created.ReviewStatus)

	stored, err := fx.repo.GetByID(nil, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.FactText, stored.FactText)
}

func TestCreateFactMissingFields(t *testing.T) {
	fx := newFactFixture()
	rec := fx.do("POST", "/facts", gin.H{"fact_text": "orphan"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetFact(t *testing.T) {
	fx := newFactFixture()
	f := newFact(uuid.New(), uuid.New(), "text", "quote", 0.5, 0)
	fx.repo.put(f)

	rec := fx.do("GET", "/facts/"+f.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do("GET", "/facts/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = fx.do("GET", "/facts/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteFact(t *testing.T) {
	fx := newFactFixture()
	f := newFact(uuid.New(), uuid.New(), "text", "quote", 0.5, 0)
	fx.repo.put(f)

	rec := fx.do("DELETE", "/facts/"+f.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = fx.do("GET", "/facts/"+f.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteCanonicalDissolvesGroup(t *testing.T) {
	fx := newFactFixture()
	project := uuid.New()
	doc := uuid.New()
	groupID := uuid.New()

	canonical := newFact(project, doc, "canonical", "q", 0.95, 2*time.Hour)
	canonical.MarkCanonical(groupID)
	member := newFact(project, doc, "duplicate", "q", 0.5, time.Hour)
	member.Suppress(canonical.ID, groupID)
	fx.repo.put(canonical)
	fx.repo.put(member)

	rec := fx.do("DELETE", "/facts/"+canonical.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The member regains visibility with no dangling canonical reference.
	freed, err := fx.repo.GetByID(nil, member.ID)
	require.NoError(t, err)
	assert.False(t, freed.IsSuppressed)
	assert.Nil(t, freed.CanonicalFactID)
	assert.Nil(t, freed.DuplicateGroupID)

	rec = fx.do("GET", "/facts?project_id="+project.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp listFactsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, member.ID, resp.Items[0].ID)
}

func TestDeleteSuppressedMemberKeepsGroup(t *testing.T) {
	fx := newFactFixture()
	project := uuid.New()
	doc := uuid.New()
	groupID := uuid.New()

	canonical := newFact(project, doc, "canonical", "q", 0.95, 3*time.Hour)
	canonical.MarkCanonical(groupID)
	gone := newFact(project, doc, "first duplicate", "q", 0.5, 2*time.Hour)
	gone.Suppress(canonical.ID, groupID)
	stays := newFact(project, doc, "second duplicate", "q", 0.4, time.Hour)
	stays.Suppress(canonical.ID, groupID)
	fx.repo.put(canonical)
	fx.repo.put(gone)
	fx.repo.put(stays)

	rec := fx.do("DELETE", "/facts/"+gone.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The canonical is alive, so the remaining member stays suppressed.
	remaining, err := fx.repo.GetByID(nil, stays.ID)
	require.NoError(t, err)
	assert.True(t, remaining.IsSuppressed)
	require.NotNil(t, remaining.CanonicalFactID)
	assert.Equal(t, canonical.ID, *remaining.CanonicalFactID)
}

func TestListFactsFiltersAndTotal(t *testing.T) {
	fx := newFactFixture()
	project := uuid.New()
	doc := uuid.New()

	approved := newFact(project, doc, "a", "qa", 0.9, 3)
	_ = approved.SetReviewStatus(fact.StatusApproved)
	pending := newFact(project, doc, "b", "qb", 0.8, 2)
	other := newFact(uuid.New(), doc, "c", "qc", 0.7, 1)
	fx.repo.put(approved)
	fx.repo.put(pending)
	fx.repo.put(other)

	rec := fx.do("GET", "/facts?project_id="+project.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp listFactsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Total)
	assert.Len(t, resp.Items, 2)

	rec = fx.do("GET", fmt.Sprintf("/facts?project_id=%s&review_status=APPROVED", project), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = listFactsResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, approved.ID, resp.Items[0].ID)

	rec = fx.do("GET", "/facts", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListFactsGroupSimilar(t *testing.T) {
	fx := newFactFixture()
	project := uuid.New()
	doc := uuid.New()
	groupID := uuid.New()

	canonical := newFact(project, doc, "canonical", "q", 0.95, 3)
	canonical.MarkCanonical(groupID)
	dup := newFact(project, doc, "duplicate", "q", 0.5, 2)
	dup.Suppress(canonical.ID, groupID)
	loner := newFact(project, doc, "standalone", "q", 0.6, 1)
	fx.repo.put(canonical)
	fx.repo.put(dup)
	fx.repo.put(loner)

	// Default listing hides the suppressed member.
	rec := fx.do("GET", "/facts?project_id="+project.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var plain listFactsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plain))
	assert.Len(t, plain.Items, 2)
	assert.Empty(t, plain.Groups)

	// Collapsed view folds it under the canonical with a group summary.
	rec = fx.do("GET", "/facts?project_id="+project.String()+"&group_similar=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var grouped listFactsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grouped))
	assert.Len(t, grouped.Items, 2)
	require.Contains(t, grouped.Groups, groupID)
	assert.Equal(t, []uuid.UUID{dup.ID}, grouped.Groups[groupID].CollapsedIDs)
	assert.Equal(t, 1, grouped.Groups[groupID].CollapsedCount)
}

func TestListFactsGroupSimilarMinSim(t *testing.T) {
	scores := projection.NewScoreTable()
	fx := newFactFixture(WithGroupScores(scores))
	project := uuid.New()
	doc := uuid.New()
	groupID := uuid.New()

	canonical := newFact(project, doc, "canonical", "q", 0.95, 2*time.Hour)
	canonical.MarkCanonical(groupID)
	dup := newFact(project, doc, "duplicate", "q", 0.5, time.Hour)
	dup.Suppress(canonical.ID, groupID)
	fx.repo.put(canonical)
	fx.repo.put(dup)

	scores.Record(map[uuid.UUID]float64{groupID: 0.85})

	// A min_sim above the recorded score uncollapses the group.
	rec := fx.do("GET", "/facts?project_id="+project.String()+"&group_similar=1&min_sim=0.9", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var filtered listFactsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filtered))
	assert.Len(t, filtered.Items, 2)
	assert.Empty(t, filtered.Groups)

	// At or below the recorded score the group collapses as usual.
	rec = fx.do("GET", "/facts?project_id="+project.String()+"&group_similar=1&min_sim=0.8", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var collapsed listFactsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &collapsed))
	assert.Len(t, collapsed.Items, 1)
	require.Contains(t, collapsed.Groups, groupID)
	assert.InDelta(t, 0.85, collapsed.Groups[groupID].Score, 1e-9)
}

func TestPatchFact(t *testing.T) {
	fx := newFactFixture()
	f := newFact(uuid.New(), uuid.New(), "text", "quote", 0.5, 0)
	fx.repo.put(f)

	rec := fx.do("PATCH", "/facts/"+f.ID.String(), gin.H{
		"review_status": "APPROVED",
		"is_pinned":     true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := fx.repo.GetByID(nil, f.ID)
	require.NoError(t, err)
	assert.Equal(t, fact.StatusApproved, updated.ReviewStatus)
	assert.True(t, updated.IsPinned)

	require.Len(t, fx.publisher.factUpdates, 1)
	assert.Equal(t, f.ID.String(), fx.publisher.factUpdates[0].FactID)
	assert.Equal(t, "APPROVED", fx.publisher.factUpdates[0].ReviewStatus)
}

func TestPatchFactRejectsBadInput(t *testing.T) {
	fx := newFactFixture()
	f := newFact(uuid.New(), uuid.New(), "text", "quote", 0.5, 0)
	fx.repo.put(f)

	rec := fx.do("PATCH", "/facts/"+f.ID.String(), gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = fx.do("PATCH", "/facts/"+f.ID.String(), gin.H{"review_status": "SHINY"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fx.publisher.factUpdates)
}

func TestEvidenceResolvesAnchors(t *testing.T) {
	fx := newFactFixture()
	doc := uuid.New()
	text := "The cat sat on the mat and then it slept in the sun."

	f := newFact(uuid.New(), doc, "the cat sat", "cat sat", 0.9, 0)
	fx.repo.put(f)
	fx.sources.add(&source.Content{
		ID:          uuid.New(),
		SourceDocID: doc,
		RawText:     text,
	})

	rec := fx.do("GET", "/facts/"+f.ID.String()+"/evidence", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view evidence.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.NotNil(t, view.EvidenceStartCharRaw)
	assert.Equal(t, 4, *view.EvidenceStartCharRaw)
	require.NotNil(t, view.EvidenceEndCharRaw)
	assert.Equal(t, 11, *view.EvidenceEndCharRaw)

	require.Len(t, fx.anchors.resolutions, 2)
	assert.Equal(t, "exact/raw", fx.anchors.resolutions[0])
}

func TestCaptureExcerpt(t *testing.T) {
	fx := newFactFixture()
	doc := uuid.New()
	text := "The cat sat on the mat and then it slept in the sun."

	f := newFact(uuid.New(), doc, "the cat sat", "cat sat", 0.9, 0)
	fx.repo.put(f)
	fx.sources.add(&source.Content{
		ID:          uuid.New(),
		SourceDocID: doc,
		RawText:     text,
	})

	rec := fx.do("POST", "/facts/"+f.ID.String()+"/capture_excerpt", gin.H{
		"format":     "raw",
		"start_char": 4,
		"end_char":   11,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := fx.repo.GetByID(nil, f.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.AnchorRaw)
	assert.Equal(t, 4, updated.AnchorRaw.Start)
	assert.Equal(t, "cat sat", updated.EvidenceSnippet)

	require.Len(t, fx.publisher.excerptCaptures, 1)
	assert.Equal(t, f.ID.String(), fx.publisher.excerptCaptures[0].FactID)
	assert.Equal(t, 11, fx.publisher.excerptCaptures[0].EndChar)
}

func TestCaptureExcerptRejectsBadSpans(t *testing.T) {
	fx := newFactFixture()
	doc := uuid.New()
	f := newFact(uuid.New(), doc, "text", "quote", 0.9, 0)
	fx.repo.put(f)
	fx.sources.add(&source.Content{ID: uuid.New(), SourceDocID: doc, RawText: "short text"})

	// end before start
	rec := fx.do("POST", "/facts/"+f.ID.String()+"/capture_excerpt", gin.H{
		"start_char": 7, "end_char": 3,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// past the end of content
	rec = fx.do("POST", "/facts/"+f.ID.String()+"/capture_excerpt", gin.H{
		"start_char": 2, "end_char": 500,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// markdown never captured for this source
	rec = fx.do("POST", "/facts/"+f.ID.String()+"/capture_excerpt", gin.H{
		"format": "markdown", "start_char": 0, "end_char": 4,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	assert.Empty(t, fx.publisher.excerptCaptures)
}
