package driven

import (
	"context"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

// CollectionStore owns named vector collections.
type CollectionStore interface {
	// GetOrCreate returns the named collection, creating it if absent.
	GetOrCreate(ctx context.Context, name string) (VectorCollection, error)

	// Stats summarises every collection in the store.
	Stats(ctx context.Context) ([]domain.CollectionStats, error)

	// Close releases resources.
	Close() error
}

// VectorCollection is a named, persistent set of chunk embeddings.
// Upserts are idempotent on chunk ID and are serialised per collection.
type VectorCollection interface {
	// Name returns the collection name.
	Name() string

	// Upsert inserts or replaces records atomically.
	Upsert(ctx context.Context, records []domain.VectorRecord) error

	// Nearest returns up to k records ranked by descending cosine similarity.
	Nearest(ctx context.Context, embedding []float32, k int) ([]domain.VectorHit, error)

	// Count returns the number of records in the collection.
	Count(ctx context.Context) (int, error)
}
