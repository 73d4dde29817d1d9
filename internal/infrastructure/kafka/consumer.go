package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// Handler processes one message value from a topic.
type Handler func(ctx context.Context, value []byte) error

// JSONHandler adapts a typed event handler to Handler.
func JSONHandler[T any](fn func(ctx context.Context, event T) error) Handler {
	return func(ctx context.Context, value []byte) error {
		var event T
		if err := json.Unmarshal(value, &event); err != nil {
			return fmt.Errorf("failed to decode event: %w", err)
		}
		return fn(ctx, event)
	}
}

type Consumer struct {
	reader  *kafka.Reader
	handler Handler
}

func NewConsumer(brokers []string, topic, groupID string, handler Handler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		handler: handler,
	}
}

// Consume reads until ctx is cancelled. Handler failures are logged and the
// message is committed anyway.
func (c *Consumer) Consume(ctx context.Context) {
	topic := c.reader.Config().Topic
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, context.Canceled) {
				slog.Info("Kafka consumer stopped", "topic", topic)
				return
			}
			slog.Error("failed to read Kafka message", "topic", topic, "error", err)
			continue
		}

		slog.Info("Kafka message received", "topic", msg.Topic, "key", string(msg.Key))

		if err := c.handler(ctx, msg.Value); err != nil {
			// TODO: route failed messages to a dead-letter topic
			slog.Error("failed to handle Kafka message", "topic", msg.Topic, "key", string(msg.Key), "error", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
