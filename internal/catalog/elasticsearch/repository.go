// Package elasticsearch keeps the catalog as one document per product in an
// Elasticsearch index.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
)

const (
	// DefaultIndex is used when no index name is configured.
	DefaultIndex = "catalog"

	// maxDocuments is the default index.max_result_window; a single search
	// page cannot return more.
	maxDocuments = 10000
)

// Load errors.
var (
	ErrIndexMissing = errors.New("catalog index not found")
	ErrTruncated    = errors.New("catalog index holds more documents than one search returns")
)

// document is the indexed form of a product. Position preserves catalog
// order, which document ids alone do not.
type document struct {
	domain.Product
	Position int `json:"position"`
}

// esSearchResponse is the subset of the search response we decode.
type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// esBulkResponse is the subset of the bulk response we decode.
type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

// Repository reads and writes the catalog index. It implements catalog.Source.
type Repository struct {
	client *elasticsearch.Client
	index  string
}

// New creates a repository for the cluster at addr. No request is made
// until the first call.
func New(addr, index string) (*Repository, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	if index == "" {
		index = DefaultIndex
	}
	return &Repository{client: client, index: index}, nil
}

// Name returns "elasticsearch".
func (r *Repository) Name() string { return "elasticsearch" }

// Index returns the index name.
func (r *Repository) Index() string { return r.index }

// Ping checks connectivity to the cluster.
func (r *Repository) Ping(ctx context.Context) error {
	res, err := r.client.Ping(r.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping returned status %d", res.StatusCode)
	}
	return nil
}

// Load fetches every document in catalog order. An index larger than one
// search page is refused with ErrTruncated rather than loaded in part.
func (r *Repository) Load(ctx context.Context) (_ []domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, "elasticsearch", "LoadCatalog", "match_all "+r.index)
	defer func() { end(err) }()

	body, err := json.Marshal(map[string]interface{}{
		"query":            map[string]interface{}{"match_all": map[string]interface{}{}},
		"size":             maxDocuments,
		"sort":             []interface{}{map[string]interface{}{"position": "asc"}},
		"track_total_hits": true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", r.index, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrIndexMissing, r.index)
	}
	if res.IsError() {
		return nil, fmt.Errorf("search %s returned status %d: %s", r.index, res.StatusCode, readBody(res.Body))
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if total, got := esResp.Hits.Total.Value, len(esResp.Hits.Hits); total > got {
		return nil, fmt.Errorf("%w: %s has %d, got %d", ErrTruncated, r.index, total, got)
	}

	products := make([]domain.Product, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		products = append(products, hit.Source.Product)
	}
	return products, nil
}

// Save replaces the index contents with products. The index is dropped and
// refilled in one bulk request, refreshed so a following Load sees it.
func (r *Repository) Save(ctx context.Context, products []domain.Product) (err error) {
	ctx, end := database.TraceQuery(ctx, "elasticsearch", "SaveCatalog", "bulk "+r.index)
	defer func() { end(err) }()

	if err := r.dropIndex(ctx); err != nil {
		return err
	}
	if len(products) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for i, p := range products {
		meta, err := json.Marshal(map[string]interface{}{
			"index": map[string]interface{}{"_index": r.index, "_id": strconv.FormatInt(p.ID, 10)},
		})
		if err != nil {
			return fmt.Errorf("marshal bulk meta for product %d: %w", p.ID, err)
		}
		doc, err := json.Marshal(document{Product: p, Position: i})
		if err != nil {
			return fmt.Errorf("marshal product %d: %w", p.ID, err)
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(doc)
		buf.WriteByte('\n')
	}

	res, err := r.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		r.client.Bulk.WithContext(ctx),
		r.client.Bulk.WithIndex(r.index),
		r.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("bulk index %s: %w", r.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk index %s returned status %d: %s", r.index, res.StatusCode, readBody(res.Body))
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if bulkResp.Errors {
		return bulkError(bulkResp)
	}
	return nil
}

func (r *Repository) dropIndex(ctx context.Context) error {
	res, err := r.client.Indices.Delete(
		[]string{r.index},
		r.client.Indices.Delete.WithContext(ctx),
		r.client.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return fmt.Errorf("delete index %s: %w", r.index, err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete index %s returned status %d: %s", r.index, res.StatusCode, readBody(res.Body))
	}
	return nil
}

func bulkError(resp esBulkResponse) error {
	var failed []string
	for _, item := range resp.Items {
		for _, result := range item {
			if result.Error != nil {
				failed = append(failed, fmt.Sprintf("%s: %s", result.ID, result.Error.Reason))
			}
		}
	}
	return fmt.Errorf("bulk index failed for %d documents: %s", len(failed), strings.Join(failed, "; "))
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
