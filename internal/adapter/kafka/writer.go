// Package kafka publishes render summaries to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/snow-profile-map/internal/domain"
)

// Writer produces render notifications to a Kafka topic.
// It implements pipeline.Notifier.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return &Writer{writer: w, logger: logger}
}

// Notify publishes summary as a single message keyed by the output path, so
// notifications for one map stay ordered on one partition.
func (w *Writer) Notify(ctx context.Context, summary domain.RenderSummary) error {
	msg, err := serializeToMessage(summary)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish render summary: %w", err)
	}
	w.logger.Debug("render summary published", "topic", w.writer.Topic, "run_id", summary.RunID)
	return nil
}

// Close flushes pending messages and closes the producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a RenderSummary into a Kafka message.
func serializeToMessage(summary domain.RenderSummary) (kafkago.Message, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize render summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(summary.OutputPath),
		Value: data,
		Time:  summary.GeneratedAt,
		Headers: []kafkago.Header{
			{Key: "status", Value: []byte(summary.Status)},
			{Key: "run_id", Value: []byte(summary.RunID)},
			{Key: "generated_at", Value: []byte(summary.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
