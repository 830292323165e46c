// Package catalog holds the product catalog in memory as immutable snapshots
// loaded from a pluggable Source.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/utafrali/storefront/internal/domain"
)

// Store publishes the current catalog snapshot. Readers never block: they
// receive whichever snapshot was installed last and keep using it for the
// duration of their request.
type Store struct {
	source  Source
	logger  *slog.Logger
	current atomic.Pointer[Snapshot]
	version atomic.Uint64
	loadMu  sync.Mutex
	now     func() time.Time
}

// NewStore creates an empty store. Call Load before serving reads.
func NewStore(source Source, logger *slog.Logger) *Store {
	return &Store{
		source: source,
		logger: logger,
		now:    time.Now,
	}
}

// SourceName names the configured source.
func (s *Store) SourceName() string {
	return s.source.Name()
}

// Current returns the installed snapshot, or nil before the first
// successful load.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Load pulls records from the source, builds a new snapshot and installs it.
// On failure the previous snapshot stays in place. Concurrent calls are
// serialized.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	start := s.now()
	products, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog from %s: %w", s.source.Name(), err)
	}

	return s.install(products, start)
}

func (s *Store) install(products []domain.Product, start time.Time) (*Snapshot, error) {
	snap, err := NewSnapshot(products, s.source.Name(), s.version.Load()+1, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("build catalog snapshot from %s: %w", s.source.Name(), err)
	}

	s.version.Store(snap.Version())
	s.current.Store(snap)

	s.logger.Info("catalog snapshot installed",
		slog.String("source", snap.Source()),
		slog.Uint64("version", snap.Version()),
		slog.Int("products", snap.Len()),
		slog.Duration("duration", s.now().Sub(start)),
	)

	return snap, nil
}
