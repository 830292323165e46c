package elasticsearch

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
)

var _ catalog.Source = (*Repository)(nil)

// fakeCluster serves the handful of endpoints the repository uses and keeps
// indexed documents in memory.
type fakeCluster struct {
	mu         sync.Mutex
	docs       []json.RawMessage
	exists     bool
	searchBody string
	bulkStatus int
	bulkItems  string
	// extraTotal is added to the reported hits.total.value.
	extraTotal int
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/":
		_, _ = io.WriteString(w, `{"version":{"number":"8.11.0"}}`)

	case r.Method == http.MethodDelete:
		f.docs = nil
		f.exists = false
		_, _ = io.WriteString(w, `{"acknowledged":true}`)

	case strings.HasSuffix(r.URL.Path, "/_bulk"):
		if f.bulkStatus != 0 {
			w.WriteHeader(f.bulkStatus)
			_, _ = io.WriteString(w, `{"error":"boom"}`)
			return
		}
		if f.bulkItems != "" {
			_, _ = io.WriteString(w, f.bulkItems)
			return
		}
		scanner := bufio.NewScanner(r.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		line := 0
		for scanner.Scan() {
			if line%2 == 1 {
				f.docs = append(f.docs, json.RawMessage(append([]byte(nil), scanner.Bytes()...)))
			}
			line++
		}
		f.exists = true
		_, _ = io.WriteString(w, `{"errors":false,"items":[]}`)

	case strings.HasSuffix(r.URL.Path, "/_search"):
		body, _ := io.ReadAll(r.Body)
		f.searchBody = string(body)
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"type":"index_not_found_exception"},"status":404}`)
			return
		}
		hits := make([]map[string]json.RawMessage, 0, len(f.docs))
		for _, d := range f.docs {
			hits = append(hits, map[string]json.RawMessage{"_source": d})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"hits": map[string]interface{}{
				"total": map[string]interface{}{"value": len(hits) + f.extraTotal, "relation": "eq"},
				"hits":  hits,
			},
		})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeCluster) indexed() []json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]json.RawMessage(nil), f.docs...)
}

func (f *fakeCluster) lastSearch() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchBody
}

func (f *fakeCluster) failBulk(status int, items string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkStatus = status
	f.bulkItems = items
}

func (f *fakeCluster) reportExtraHits(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extraTotal = n
}

func newTestRepository(t *testing.T) (*Repository, *fakeCluster) {
	t.Helper()
	cluster := &fakeCluster{}
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	repo, err := New(srv.URL, "")
	require.NoError(t, err)
	return repo, cluster
}

func testProducts() []domain.Product {
	return []domain.Product{
		{
			ID: 8, Name: "Logitech MX Master 3S", Slug: "logitech-mx-master-3s", Category: "Accessories", Brand: "Logitech",
			Price: decimal.RequireFromString("1499.99"), Discount: 10, Rating: 4.5, ReviewCount: 165, Stock: 40,
			Images: []string{"https://example.com/mouse.jpg"}, Colors: []string{"Graphite"},
			Specs: map[string]string{"connectivity": "Bluetooth, USB receiver"},
		},
		{
			ID: 3, Name: "Asian Paints Royale", Slug: "asian-paints-royale", Category: "Paints", Brand: "Asian Paints",
			Price: decimal.RequireFromString("3599.99"), Discount: 5, Rating: 4.6, ReviewCount: 189, Stock: 50,
			Images: []string{"https://example.com/paint.jpg"}, Colors: []string{"White"},
		},
	}
}

func TestRepository_SaveThenLoad(t *testing.T) {
	repo, cluster := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testProducts()))
	docs := cluster.indexed()
	require.Len(t, docs, 2)
	assert.Contains(t, string(docs[0]), `"position":0`)
	assert.Contains(t, string(docs[1]), `"price":"3599.99"`)

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(8), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
	assert.True(t, decimal.RequireFromString("1499.99").Equal(got[0].Price))
	assert.Equal(t, "Bluetooth, USB receiver", got[0].Specs["connectivity"])
	assert.Contains(t, cluster.lastSearch(), `"position":"asc"`)
	assert.Contains(t, cluster.lastSearch(), `"match_all"`)
	assert.Contains(t, cluster.lastSearch(), `"track_total_hits":true`)
}

func TestRepository_LoadRefusesPartialIndex(t *testing.T) {
	repo, cluster := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testProducts()))
	cluster.reportExtraHits(maxDocuments)

	got, err := repo.Load(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTruncated))
	assert.Contains(t, err.Error(), "has 10002, got 2")
	assert.Nil(t, got)
}

func TestRepository_SaveReplacesPreviousContents(t *testing.T) {
	repo, cluster := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testProducts()))
	require.NoError(t, repo.Save(ctx, testProducts()[:1]))
	assert.Len(t, cluster.indexed(), 1)
}

func TestRepository_LoadMissingIndex(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, err := repo.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIndexMissing))
}

func TestRepository_BulkFailures(t *testing.T) {
	t.Run("error status", func(t *testing.T) {
		repo, cluster := newTestRepository(t)
		cluster.failBulk(http.StatusBadRequest, "")

		err := repo.Save(context.Background(), testProducts())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "returned status 400")
	})

	t.Run("item errors", func(t *testing.T) {
		repo, cluster := newTestRepository(t)
		cluster.failBulk(0, `{"errors":true,"items":[{"index":{"_id":"8","status":400,"error":{"type":"mapper_parsing_exception","reason":"failed to parse field [price]"}}}]}`)

		err := repo.Save(context.Background(), testProducts())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "8: failed to parse field [price]")
	})
}

func TestRepository_Ping(t *testing.T) {
	repo, _ := newTestRepository(t)
	assert.NoError(t, repo.Ping(context.Background()))
	assert.Equal(t, "elasticsearch", repo.Name())
	assert.Equal(t, DefaultIndex, repo.Index())
}

func TestRepository_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	repo, err := New(addr, "products")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = repo.Load(ctx)
	assert.Error(t, err)
	assert.Error(t, repo.Ping(ctx))
}
