package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/utafrali/storefront/internal/catalog"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// TopicCatalogReloaded carries an announcement for every installed snapshot.
var TopicCatalogReloaded = pkgkafka.Topic("catalog", "reloaded")

// Aggregate type constant.
const AggregateTypeCatalog = "catalog"

// Source identifier for events originating from the catalog service.
const SourceCatalogService = "catalog-service"

// CatalogReloadedData is the payload for a catalog.reloaded event.
type CatalogReloadedData struct {
	Version      uint64    `json:"version"`
	ProductCount int       `json:"product_count"`
	Source       string    `json:"source"`
	LoadedAt     time.Time `json:"loaded_at"`
}

// EventPublisher writes an event to a topic. *pkgkafka.Producer satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes catalog domain events to Kafka.
type Producer struct {
	kafka  EventPublisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the catalog service.
func NewProducer(kafka EventPublisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCatalogReloaded publishes a catalog.reloaded event.
func (p *Producer) PublishCatalogReloaded(ctx context.Context, snap *catalog.Snapshot) error {
	data := CatalogReloadedData{
		Version:      snap.Version(),
		ProductCount: snap.Len(),
		Source:       snap.Source(),
		LoadedAt:     snap.LoadedAt(),
	}

	version := strconv.FormatUint(snap.Version(), 10)
	event, err := pkgkafka.NewEvent(TopicCatalogReloaded, version, AggregateTypeCatalog, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create catalog.reloaded event: %w", err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, TopicCatalogReloaded, event); err != nil {
		return fmt.Errorf("publish catalog.reloaded event: %w", err)
	}

	p.logger.DebugContext(ctx, "published catalog.reloaded event",
		slog.String("version", version),
		slog.Int("product_count", data.ProductCount),
	)

	return nil
}
