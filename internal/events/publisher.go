// Package events mirrors supervisor activity onto a Kafka topic so
// external consumers (dashboards, audit pipelines) can follow along.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event is one activity record on the wire.
type Event struct {
	Type        string    `json:"type"`
	AgentID     string    `json:"agent_id,omitempty"`
	ChannelID   string    `json:"channel_id,omitempty"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher writes activity events to Kafka. Publishing is best
// effort: a broker outage must never slow down message handling.
type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewPublisher returns a publisher for the given brokers and topic, or
// nil when brokers is empty so callers can treat the mirror as
// optional.
func NewPublisher(brokers, topic string) *Publisher {
	if strings.TrimSpace(brokers) == "" {
		return nil
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(strings.Split(brokers, ",")...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
		},
		logger: slog.With("component", "events"),
	}
}

// Publish sends one event. Safe to call on a nil publisher.
func (p *Publisher) Publish(ctx context.Context, ev Event) {
	if p == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	value, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("marshal event", "type", ev.Type, "error", err)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.ChannelID),
		Value: value,
	})
	if err != nil {
		p.logger.Warn("publish event dropped", "type", ev.Type, "error", err)
	}
}

// Close flushes and closes the writer. Safe on nil.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
