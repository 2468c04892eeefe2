// Package events publishes finished production briefs to downstream
// production systems.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

type KafkaConfig struct {
	// Brokers is the list of Kafka broker addresses (host:port).
	Brokers []string
	Topic   string

	// MaxAttempts defaults to 3 if <= 0.
	MaxAttempts int

	// WriteTimeout is the per-attempt timeout. Defaults to 5s.
	WriteTimeout time.Duration
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per brief, keyed by persona so briefs
// for the same segment land on the same partition.
type KafkaPublisher struct {
	writer       MessageWriter
	maxAttempts  int
	writeTimeout time.Duration
	backoff      time.Duration
	now          func() time.Time
}

func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic required")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return NewKafkaPublisherWithWriter(w, cfg), nil
}

func NewKafkaPublisherWithWriter(w MessageWriter, cfg KafkaConfig) *KafkaPublisher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &KafkaPublisher{
		writer:       w,
		maxAttempts:  cfg.MaxAttempts,
		writeTimeout: cfg.WriteTimeout,
		backoff:      100 * time.Millisecond,
		now:          time.Now,
	}
}

// BriefEvent is the message value.
type BriefEvent struct {
	RunID       domain.RunID            `json:"run_id"`
	PublishedAt time.Time               `json:"published_at"`
	Brief       *domain.ProductionBrief `json:"brief"`
}

func (p *KafkaPublisher) PublishBrief(ctx context.Context, runID domain.RunID, brief *domain.ProductionBrief) error {
	if brief == nil {
		return fmt.Errorf("kafka: nil brief")
	}

	now := p.now().UTC()
	value, err := json.Marshal(BriefEvent{RunID: runID, PublishedAt: now, Brief: brief})
	if err != nil {
		return fmt.Errorf("marshal brief event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(brief.Persona),
		Value: value,
		Time:  now,
		Headers: []kafka.Header{
			{Key: "run_id", Value: []byte(runID)},
		},
	}

	var lastErr error
	backoff := p.backoff
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.writeTimeout)
		err := p.writer.WriteMessages(attemptCtx, msg)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == p.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("publish brief: %w", ctx.Err())
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
	return fmt.Errorf("publish failed after %d attempts: %w", p.maxAttempts, lastErr)
}

func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
