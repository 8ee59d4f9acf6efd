// Package memory provides an in-process CollectionStore for tests and
// ephemeral sessions. Nothing is persisted.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.CollectionStore = (*Store)(nil)

// Store holds collections in maps.
type Store struct {
	mu          sync.Mutex
	collections map[string]*Collection
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{collections: make(map[string]*Collection)}
}

// GetOrCreate returns the named collection, creating it if absent.
func (s *Store) GetOrCreate(_ context.Context, name string) (driven.VectorCollection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: collection name is empty", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		c = &Collection{name: name, records: make(map[string]domain.VectorRecord)}
		s.collections[name] = c
	}
	return c, nil
}

// Stats summarises every collection, ordered by name.
func (s *Store) Stats(_ context.Context) ([]domain.CollectionStats, error) {
	s.mu.Lock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	s.mu.Unlock()
	sort.Strings(names)

	stats := make([]domain.CollectionStats, 0, len(names))
	for _, name := range names {
		s.mu.Lock()
		c := s.collections[name]
		s.mu.Unlock()
		stats = append(stats, c.stats())
	}
	return stats, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// Collection is an in-memory VectorCollection.
type Collection struct {
	name string

	mu         sync.RWMutex
	dimensions int
	records    map[string]domain.VectorRecord
}

var _ driven.VectorCollection = (*Collection)(nil)

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Upsert validates the whole batch before applying any of it.
func (c *Collection) Upsert(_ context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dims := c.dimensions
	if dims == 0 {
		dims = len(records[0].Embedding)
	}
	for _, r := range records {
		if r.ChunkID == "" {
			return fmt.Errorf("%w: record without chunk id", domain.ErrInvalidInput)
		}
		if len(r.Embedding) == 0 || len(r.Embedding) != dims {
			return fmt.Errorf("%w: chunk %s has %d dimensions, collection %s expects %d",
				domain.ErrDimensionMismatch, r.ChunkID, len(r.Embedding), c.name, dims)
		}
	}

	for _, r := range records {
		c.records[r.ChunkID] = cloneRecord(r)
	}
	c.dimensions = dims
	return nil
}

// Nearest returns the k most similar records.
func (c *Collection) Nearest(_ context.Context, embedding []float32, k int) ([]domain.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.dimensions == 0 {
		return nil, nil
	}
	if len(embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %s expects %d",
			domain.ErrDimensionMismatch, len(embedding), c.name, c.dimensions)
	}

	hits := make([]domain.VectorHit, 0, len(c.records))
	for _, r := range c.records {
		hits = append(hits, domain.VectorHit{
			Record:     cloneRecord(r),
			Similarity: domain.CosineSimilarity(embedding, r.Embedding),
		})
	}
	return domain.RankHits(hits, k), nil
}

// Count returns the number of records.
func (c *Collection) Count(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records), nil
}

func (c *Collection) stats() domain.CollectionStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	docs := make(map[string]struct{})
	for _, r := range c.records {
		docs[r.DocumentID()] = struct{}{}
	}
	return domain.CollectionStats{
		Name:       c.name,
		Dimensions: c.dimensions,
		Records:    len(c.records),
		Documents:  len(docs),
	}
}

// cloneRecord copies the slices and map so callers cannot mutate stored state.
func cloneRecord(r domain.VectorRecord) domain.VectorRecord {
	out := r
	out.Embedding = append([]float32(nil), r.Embedding...)
	if r.Metadata != nil {
		out.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
