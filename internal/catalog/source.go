package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/utafrali/storefront/internal/domain"
)

// Source supplies the raw records a snapshot is built from.
type Source interface {
	// Name identifies the source in logs, metrics and events.
	Name() string

	// Load returns every record in catalog order.
	Load(ctx context.Context) ([]domain.Product, error)
}

//go:embed seed/catalog.json
var seedCatalog []byte

// EmbeddedSource serves the catalog compiled into the binary.
type EmbeddedSource struct{}

// NewEmbeddedSource creates the default source.
func NewEmbeddedSource() EmbeddedSource {
	return EmbeddedSource{}
}

// Name returns "embedded".
func (EmbeddedSource) Name() string { return "embedded" }

// Load decodes the embedded catalog.
func (EmbeddedSource) Load(_ context.Context) ([]domain.Product, error) {
	products, err := DecodeJSON(bytes.NewReader(seedCatalog))
	if err != nil {
		return nil, fmt.Errorf("decode embedded catalog: %w", err)
	}
	return products, nil
}

// FileSource reads a JSON or YAML catalog file, chosen by extension.
type FileSource struct {
	path string
}

// NewFileSource creates a source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name returns "file".
func (s *FileSource) Name() string { return "file" }

// Load reads and decodes the file on every call.
func (s *FileSource) Load(_ context.Context) ([]domain.Product, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()

	var products []domain.Product
	switch ext := strings.ToLower(filepath.Ext(s.path)); ext {
	case ".json":
		products, err = DecodeJSON(f)
	case ".yaml", ".yml":
		products, err = DecodeYAML(f)
	default:
		return nil, fmt.Errorf("unsupported catalog file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return products, nil
}

// DecodeJSON reads a JSON array of products.
func DecodeJSON(r io.Reader) ([]domain.Product, error) {
	var products []domain.Product
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&products); err != nil {
		return nil, err
	}
	return products, nil
}

// DecodeYAML reads a YAML sequence of products.
func DecodeYAML(r io.Reader) ([]domain.Product, error) {
	var products []domain.Product
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&products); err != nil {
		return nil, err
	}
	return products, nil
}

// EncodeJSON writes products as an indented JSON array.
func EncodeJSON(w io.Writer, products []domain.Product) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(products)
}
