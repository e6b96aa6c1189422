// Package events publishes domain events to Kafka for downstream consumers
// such as analytics and moderation pipelines.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event is the envelope written to the event topic.
type Event struct {
	Type        string    `json:"type"`
	CommunityID uint      `json:"community_id,omitempty"`
	ActorID     uint      `json:"actor_id,omitempty"`
	SubjectID   uint      `json:"subject_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Event types emitted by the API.
const (
	TypeCommunityCreated    = "community.created"
	TypeApplicationDecided  = "application.decided"
	TypeApplicationReceived = "application.received"
	TypePostCreated         = "post.created"
	TypeReplyCreated        = "reply.created"
	TypeMessageSent         = "message.sent"
	TypeMemberRoleChanged   = "member.role_changed"
	TypeMemberRemoved       = "member.removed"
	TypeBotTokenIssued      = "bot.token_issued"
)

// Publisher writes events to a Kafka topic. A nil Publisher is valid and
// drops everything, so callers never need to branch on whether Kafka is
// configured.
type Publisher struct {
	writer *kafka.Writer
	topic  string
}

// Config holds Kafka connection settings.
type Config struct {
	Brokers []string
	Topic   string
}

// NewPublisher returns a Publisher, or nil when no brokers are configured.
func NewPublisher(cfg Config) *Publisher {
	if len(cfg.Brokers) == 0 {
		return nil
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
	}
	return &Publisher{writer: w, topic: cfg.Topic}
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// Publish writes a single event, keyed by community so per-community
// ordering is preserved.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if p == nil || p.writer == nil {
		return nil
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", ev.CommunityID)),
		Value: value,
	}
	return p.writer.WriteMessages(ctx, msg)
}
