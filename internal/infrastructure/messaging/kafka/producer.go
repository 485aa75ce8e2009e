package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/citekeep/citekeep/internal/config"
	"github.com/citekeep/citekeep/internal/infrastructure/monitoring/logging"
	appErrors "github.com/citekeep/citekeep/pkg/errors"
)

const eventSource = "citekeep"

// Publisher is the event emission surface handed to the interface layer.
// A disabled broker is represented by NopPublisher, so callers never nil-check.
type Publisher interface {
	PublishDedupCompleted(ctx context.Context, p DedupCompletedPayload) error
	PublishExcerptCaptured(ctx context.Context, p ExcerptCapturedPayload) error
	PublishFactUpdated(ctx context.Context, p FactUpdatedPayload) error
	Close() error
}

// writerInterface abstracts kafka.Writer for testing.
type writerInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Observer counts successfully published events per topic.
type Observer interface {
	ObserveEventPublished(topic string)
}

// Producer publishes enveloped JSON events through a shared writer.
// Topics are set per message, so one writer serves all event types.
type Producer struct {
	writer      writerInterface
	topicPrefix string
	log         logging.Logger
	observer    Observer
	closed      atomic.Bool
}

// ProducerOption tunes optional producer behavior.
type ProducerOption func(*Producer)

// WithObserver records every successful publish with obs.
func WithObserver(obs Observer) ProducerOption {
	return func(p *Producer) { p.observer = obs }
}

// NewProducer builds a Producer from configuration.
func NewProducer(cfg config.KafkaConfig, log logging.Logger, opts ...ProducerOption) *Producer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = time.Second
	}
	retries := cfg.ProducerRetries
	if retries <= 0 {
		retries = 3
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  retries + 1,
		BatchTimeout: batchTimeout,
	}
	p := &Producer{
		writer:      writer,
		topicPrefix: cfg.TopicPrefix,
		log:         log.Named("kafka_producer"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Producer) publish(ctx context.Context, topic, eventType, key string, payload any) error {
	if p.closed.Load() {
		return appErrors.New(appErrors.ErrCodeInternal, "kafka producer is closed")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeSerialization, "failed to encode event payload")
	}
	envelope, err := json.Marshal(EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        eventSource,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
		Payload:       body,
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeSerialization, "failed to encode event envelope")
	}

	msg := kafka.Message{
		Topic: p.topicPrefix + topic,
		Key:   []byte(key),
		Value: envelope,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("event publish failed",
			logging.String("topic", msg.Topic),
			logging.Err(err),
		)
		return appErrors.Wrap(err, appErrors.ErrCodeInternal, "failed to publish "+eventType)
	}
	if p.observer != nil {
		p.observer.ObserveEventPublished(msg.Topic)
	}
	p.log.Debug("event published",
		logging.String("topic", msg.Topic),
		logging.String("event_type", eventType),
	)
	return nil
}

func (p *Producer) PublishDedupCompleted(ctx context.Context, payload DedupCompletedPayload) error {
	return p.publish(ctx, TopicDedupCompleted, "dedup.completed", payload.ProjectID, payload)
}

func (p *Producer) PublishExcerptCaptured(ctx context.Context, payload ExcerptCapturedPayload) error {
	return p.publish(ctx, TopicExcerptCaptured, "excerpt.captured", payload.FactID, payload)
}

func (p *Producer) PublishFactUpdated(ctx context.Context, payload FactUpdatedPayload) error {
	return p.publish(ctx, TopicFactUpdated, "fact.updated", payload.FactID, payload)
}

// Close flushes and shuts down the writer. Safe to call more than once.
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.writer.Close()
}

// NopPublisher drops all events. Used when the broker is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishDedupCompleted(context.Context, DedupCompletedPayload) error {
	return nil
}

func (NopPublisher) PublishExcerptCaptured(context.Context, ExcerptCapturedPayload) error {
	return nil
}

func (NopPublisher) PublishFactUpdated(context.Context, FactUpdatedPayload) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
