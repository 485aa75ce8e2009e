// Package kafka publishes citekeep domain events. Consumers are external;
// this service only produces.
package kafka

import (
	"encoding/json"
	"time"
)

const (
	TopicDedupCompleted  = "dedup.completed"
	TopicExcerptCaptured = "excerpt.captured"
	TopicFactUpdated     = "fact.updated"
)

const schemaVersion = "1.0"

// EventEnvelope is the wire format shared by all published events.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// DedupCompletedPayload describes the outcome of a deduplication run.
type DedupCompletedPayload struct {
	ProjectID       string        `json:"project_id"`
	Threshold       float64       `json:"threshold"`
	FactCount       int           `json:"fact_count"`
	GroupCount      int           `json:"group_count"`
	SuppressedCount int           `json:"suppressed_count"`
	Duration        time.Duration `json:"duration_ns"`
	CompletedAt     time.Time     `json:"completed_at"`
}

// ExcerptCapturedPayload describes a newly anchored evidence excerpt.
type ExcerptCapturedPayload struct {
	FactID      string    `json:"fact_id"`
	SourceDocID string    `json:"source_doc_id"`
	Format      string    `json:"format"`
	StartChar   int       `json:"start_char"`
	EndChar     int       `json:"end_char"`
	CapturedAt  time.Time `json:"captured_at"`
}

// FactUpdatedPayload describes a review-state change on a fact.
type FactUpdatedPayload struct {
	FactID       string    `json:"fact_id"`
	ReviewStatus string    `json:"review_status"`
	IsPinned     bool      `json:"is_pinned"`
	UpdatedAt    time.Time `json:"updated_at"`
}
