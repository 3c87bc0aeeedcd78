// Package events publishes profile lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"beneficiary/internal/platform/kafka/producer"
	"beneficiary/internal/profile/models"
)

// DefaultTopic receives every profile event.
const DefaultTopic = "beneficiary.profile.events"

// Producer is the publishing half of a Kafka client.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaPublisher writes events keyed by user ID so a person's events stay
// ordered within a partition.
type KafkaPublisher struct {
	producer Producer
	topic    string
}

// NewKafka returns a publisher writing to topic, or DefaultTopic when empty.
func NewKafka(p Producer, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{producer: p, topic: topic}
}

func (k *KafkaPublisher) Publish(ctx context.Context, event models.ProfileEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	msg := &producer.Message{
		Topic:   k.topic,
		Key:     []byte(event.UserID),
		Value:   value,
		Headers: map[string]string{"event_type": string(event.Type)},
	}
	if err := k.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}

// LogPublisher records events in the log when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (l *LogPublisher) Publish(ctx context.Context, event models.ProfileEvent) error {
	if l.logger != nil {
		l.logger.DebugContext(ctx, "profile event",
			"event_type", event.Type,
			"user_id", event.UserID,
			"complete", event.Complete,
		)
	}
	return nil
}
