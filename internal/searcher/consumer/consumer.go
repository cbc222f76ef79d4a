// Package consumer listens for finished indexing runs on Kafka and drops the
// query cache so that searches see the new term store contents.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/TFIDF-Document-Search/pkg/proto"
)

// Invalidator is implemented by the query cache.
type Invalidator interface {
	Invalidate(ctx context.Context) (int64, error)
}

// IndexEventConsumer wraps a Kafka consumer subscribed to IndexCompleted
// events.
type IndexEventConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *IndexEventConsumer {
	return &IndexEventConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-event-consumer"),
	}
}

// Start blocks until ctx is cancelled.
func (c *IndexEventConsumer) Start(ctx context.Context) error {
	c.logger.Info("index event consumer starting")
	return c.consumer.Start(ctx)
}

// HandleIndexCompleted returns a handler that invalidates cache for every
// IndexCompleted event. Undecodable messages are logged and committed; a
// failed invalidation is returned so the message is redelivered.
func HandleIndexCompleted(cache Invalidator) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-event-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[proto.IndexCompleted](value)
		if err != nil {
			logger.Error("failed to decode index event", "error", err, "key", string(key))
			return nil
		}
		deleted, err := cache.Invalidate(ctx)
		if err != nil {
			return fmt.Errorf("invalidating cache after run %s: %w", event.RunID, err)
		}
		logger.Info("cache invalidated after indexing run",
			"run_id", event.RunID,
			"indexed", event.Indexed,
			"failed", len(event.Failed),
			"keys_deleted", deleted,
		)
		return nil
	}
}
