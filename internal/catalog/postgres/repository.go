// Package postgres stores the catalog in the catalog_products table.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the schema migrations for database.RunMigrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

const (
	selectProducts = `SELECT id, name, description, category, brand, price::text, discount, rating, review_count, stock, images, colors, features, specs::text FROM catalog_products ORDER BY position, id`

	deleteProducts = `DELETE FROM catalog_products`

	insertProduct = `INSERT INTO catalog_products (id, position, name, description, category, brand, price, discount, rating, review_count, stock, images, colors, features, specs, updated_at) VALUES ($1, $2, $3, $4, $5, $6, ($7::text)::numeric, $8, $9, $10, $11, $12, $13, $14, ($15::text)::jsonb, NOW())`
)

// Repository reads and replaces the catalog. It implements catalog.Source.
type Repository struct {
	db database.TxBeginner
}

// NewRepository creates a repository over a pgx pool or pgxmock pool.
func NewRepository(db database.TxBeginner) *Repository {
	return &Repository{db: db}
}

// Name returns "postgres".
func (r *Repository) Name() string { return "postgres" }

// Load returns every product ordered by position, then id.
func (r *Repository) Load(ctx context.Context) (_ []domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, "postgresql", "LoadCatalog", selectProducts)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, selectProducts)
	if err != nil {
		return nil, fmt.Errorf("query catalog products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var (
			p     domain.Product
			price string
			specs string
		)
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&p.Category,
			&p.Brand,
			&price,
			&p.Discount,
			&p.Rating,
			&p.ReviewCount,
			&p.Stock,
			&p.Images,
			&p.Colors,
			&p.Features,
			&specs,
		); err != nil {
			return nil, fmt.Errorf("scan catalog product: %w", err)
		}

		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price of product %d: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(specs), &p.Specs); err != nil {
			return nil, fmt.Errorf("decode specs of product %d: %w", p.ID, err)
		}

		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog products: %w", err)
	}

	return products, nil
}

// Save replaces the stored catalog with products in one transaction,
// recording their order in the position column.
func (r *Repository) Save(ctx context.Context, products []domain.Product) (err error) {
	ctx, end := database.TraceQuery(ctx, "postgresql", "SaveCatalog", insertProduct)
	defer func() { end(err) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, deleteProducts); err != nil {
		return fmt.Errorf("clear catalog products: %w", err)
	}

	for i := range products {
		p := &products[i]

		specs, err := json.Marshal(nonNilMap(p.Specs))
		if err != nil {
			return fmt.Errorf("encode specs of product %d: %w", p.ID, err)
		}

		if _, err := tx.Exec(ctx, insertProduct,
			p.ID,
			i,
			p.Name,
			p.Description,
			p.Category,
			p.Brand,
			p.Price.String(),
			p.Discount,
			p.Rating,
			p.ReviewCount,
			p.Stock,
			nonNil(p.Images),
			nonNil(p.Colors),
			nonNil(p.Features),
			string(specs),
		); err != nil {
			return fmt.Errorf("insert product %d: %w", p.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
