package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"escrowgate/internal/platform/kafka/producer"
	audit "escrowgate/pkg/platform/audit"
)

// LogSink writes events as structured log lines.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(ctx context.Context, e audit.Event) error {
	s.logger.InfoContext(ctx, "audit event",
		"action", e.Action,
		"subject", e.Subject,
		"endpoint", e.Endpoint,
		"reason", e.Reason,
		"request_id", e.RequestID,
		"timestamp", e.Timestamp,
	)
	return nil
}

// Producer is the subset of the Kafka producer the sink needs.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaSink publishes events as JSON records keyed by action.
type KafkaSink struct {
	producer Producer
	topic    string
}

func NewKafkaSink(p Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic}
}

func (s *KafkaSink) Write(ctx context.Context, e audit.Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return s.producer.Produce(ctx, &producer.Message{
		Topic:   s.topic,
		Key:     []byte(e.Action),
		Value:   value,
		Headers: map[string]string{"content-type": "application/json"},
	})
}
