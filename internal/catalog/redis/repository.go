// Package redis stores the catalog as a JSON array under a single key.
package redis

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
)

// DefaultKey is where the catalog lives unless configured otherwise.
const DefaultKey = "storefront:catalog"

// ErrCatalogMissing is returned when the key does not exist.
var ErrCatalogMissing = errors.New("catalog key not found")

// Repository reads and writes the catalog key. It implements catalog.Source.
type Repository struct {
	client redis.Cmdable
	key    string
}

// NewRepository creates a repository for key, falling back to DefaultKey.
func NewRepository(client redis.Cmdable, key string) *Repository {
	if key == "" {
		key = DefaultKey
	}
	return &Repository{client: client, key: key}
}

// Name returns "redis".
func (r *Repository) Name() string { return "redis" }

// Load fetches and decodes the catalog.
func (r *Repository) Load(ctx context.Context) (_ []domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, "redis", "LoadCatalog", "GET "+r.key)
	defer func() { end(err) }()

	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrCatalogMissing, r.key)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r.key, err)
	}

	products, err := catalog.DecodeJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.key, err)
	}
	return products, nil
}

// Save overwrites the catalog key with products.
func (r *Repository) Save(ctx context.Context, products []domain.Product) (err error) {
	ctx, end := database.TraceQuery(ctx, "redis", "SaveCatalog", "SET "+r.key)
	defer func() { end(err) }()

	var buf bytes.Buffer
	if err := catalog.EncodeJSON(&buf, products); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	if err := r.client.Set(ctx, r.key, buf.Bytes(), 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", r.key, err)
	}
	return nil
}
