package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/catalog"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// =============================================================================
// Mocks
// =============================================================================

type mockReloader struct {
	mock.Mock
}

func (m *mockReloader) Reload(ctx context.Context) (*catalog.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Snapshot), args.Error(1)
}

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

// =============================================================================
// Helpers
// =============================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSnapshot(t *testing.T, version uint64) *catalog.Snapshot {
	t.Helper()
	products, err := catalog.NewEmbeddedSource().Load(context.Background())
	require.NoError(t, err)
	snap, err := catalog.NewSnapshot(products, "embedded", version, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return snap
}

func productEvent(t *testing.T, eventType, id string) *pkgkafka.Event {
	t.Helper()
	ev, err := pkgkafka.NewEvent(eventType, id, "product", "product-service", map[string]string{"id": id})
	require.NoError(t, err)
	return ev
}

// =============================================================================
// Consumer
// =============================================================================

func TestProductTopics(t *testing.T) {
	assert.Equal(t, []string{
		"ecommerce.product.created",
		"ecommerce.product.updated",
		"ecommerce.product.deleted",
	}, ProductTopics())
}

func TestConsumer_ProductEventsReload(t *testing.T) {
	for _, topic := range ProductTopics() {
		t.Run(topic, func(t *testing.T) {
			reloader := new(mockReloader)
			reloader.On("Reload", mock.Anything).Return(testSnapshot(t, 3), nil).Once()

			c := NewConsumer(reloader, discardLogger())
			require.NoError(t, c.Handle(context.Background(), productEvent(t, topic, "7")))
			reloader.AssertExpectations(t)
		})
	}
}

func TestConsumer_UnknownEventIgnored(t *testing.T) {
	reloader := new(mockReloader)
	c := NewConsumer(reloader, discardLogger())

	require.NoError(t, c.Handle(context.Background(), productEvent(t, "ecommerce.order.created", "1")))
	reloader.AssertNotCalled(t, "Reload", mock.Anything)
}

func TestConsumer_ReloadErrorPropagates(t *testing.T) {
	reloader := new(mockReloader)
	reloader.On("Reload", mock.Anything).Return(nil, errors.New("database down"))

	c := NewConsumer(reloader, discardLogger())
	err := c.Handle(context.Background(), productEvent(t, TopicProductUpdated, "2"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ecommerce.product.updated")
	assert.Contains(t, err.Error(), "database down")
}

func TestConsumer_IdempotentDelivery(t *testing.T) {
	reloader := new(mockReloader)
	reloader.On("Reload", mock.Anything).Return(testSnapshot(t, 1), nil).Once()

	c := NewConsumer(reloader, discardLogger())
	handler := pkgkafka.IdempotentHandler(pkgkafka.NewMemoryIdempotencyStore(time.Hour), c.Handle, discardLogger())

	ev := productEvent(t, TopicProductCreated, "10")
	require.NoError(t, handler(context.Background(), ev))
	require.NoError(t, handler(context.Background(), ev))

	reloader.AssertNumberOfCalls(t, "Reload", 1)
}

// =============================================================================
// Producer
// =============================================================================

func TestProducer_PublishCatalogReloaded(t *testing.T) {
	pub := new(mockEventPublisher)
	pub.On("Publish", mock.Anything, "ecommerce.catalog.reloaded", mock.MatchedBy(func(ev *pkgkafka.Event) bool {
		var data CatalogReloadedData
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return false
		}
		return ev.EventType == TopicCatalogReloaded &&
			ev.AggregateID == "4" &&
			ev.AggregateType == AggregateTypeCatalog &&
			ev.Source == SourceCatalogService &&
			ev.CorrelationID == "req-123" &&
			data.Version == 4 &&
			data.ProductCount == 9 &&
			data.Source == "embedded"
	})).Return(nil)

	p := NewProducer(pub, discardLogger())
	ctx := logger.WithCorrelationID(context.Background(), "req-123")

	require.NoError(t, p.PublishCatalogReloaded(ctx, testSnapshot(t, 4)))
	pub.AssertExpectations(t)
}

func TestProducer_PublishError(t *testing.T) {
	pub := new(mockEventPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("leader not available"))

	p := NewProducer(pub, discardLogger())
	err := p.PublishCatalogReloaded(context.Background(), testSnapshot(t, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish catalog.reloaded event")
}
