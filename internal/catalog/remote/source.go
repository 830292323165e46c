// Package remote loads the catalog from a product API that answers with the
// standard {"data": [...]} envelope.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httpclient"
)

const (
	serviceName  = "product-api"
	maxBodyBytes = 32 << 20
)

// Getter issues GET requests. *httpclient.CircuitBreakerClient satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

type envelope struct {
	Data []domain.Product `json:"data"`
}

// Source fetches the full catalog from url on each Load.
type Source struct {
	client Getter
	url    string
}

// NewSource creates a remote source.
func NewSource(client Getter, url string) *Source {
	return &Source{client: client, url: url}
}

// Name returns "remote".
func (s *Source) Name() string { return "remote" }

// Load fetches and decodes the catalog. Non-2xx answers are mapped through
// httpclient.ParseResponseError.
func (s *Source) Load(ctx context.Context) ([]domain.Product, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog from %s: %w", serviceName, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch catalog from %s: %w", serviceName, httpclient.ParseResponseError(resp, serviceName))
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", serviceName, err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("decode %s response: missing data", serviceName)
	}
	return env.Data, nil
}
