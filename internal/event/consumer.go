package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/catalog"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// Kafka topic constants for product domain events consumed by the catalog
// service.
var (
	TopicProductCreated = pkgkafka.Topic("product", "created")
	TopicProductUpdated = pkgkafka.Topic("product", "updated")
	TopicProductDeleted = pkgkafka.Topic("product", "deleted")
)

// ProductTopics lists every topic the consumer subscribes to.
func ProductTopics() []string {
	return []string{TopicProductCreated, TopicProductUpdated, TopicProductDeleted}
}

// Reloader rebuilds the catalog snapshot from its source.
type Reloader interface {
	Reload(ctx context.Context) (*catalog.Snapshot, error)
}

// Consumer reloads the catalog whenever a product changes upstream.
type Consumer struct {
	reloader Reloader
	logger   *slog.Logger
}

// NewConsumer creates a new event consumer for the catalog service.
func NewConsumer(reloader Reloader, logger *slog.Logger) *Consumer {
	return &Consumer{
		reloader: reloader,
		logger:   logger,
	}
}

// Handle processes a Kafka event based on its type. Every product event
// triggers a full reload; the snapshot is rebuilt from the source, so the
// payload itself is not needed.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductCreated, TopicProductUpdated, TopicProductDeleted:
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	snap, err := c.reloader.Reload(ctx)
	if err != nil {
		return fmt.Errorf("reload catalog after %s: %w", event.EventType, err)
	}

	c.logger.InfoContext(ctx, "catalog reloaded from product event",
		slog.String("event_type", event.EventType),
		slog.String("product_id", event.AggregateID),
		slog.Uint64("version", snap.Version()),
	)

	return nil
}
