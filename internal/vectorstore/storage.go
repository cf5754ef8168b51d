// Package vectorstore persists document vectors inside an index directory and
// answers nearest-neighbor queries over them.
package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"nfe/internal/domain"
)

// ErrDimensionMismatch is returned when a vector does not fit the store.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// SearchResult is one neighbor, most similar first.
type SearchResult struct {
	Document domain.SynthesizedDocument
	Score    float32
}

// Store holds the vectors of one built index.
type Store interface {
	Upsert(ctx context.Context, docs []domain.SynthesizedDocument, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, k int) ([]SearchResult, error)
	Count() int
	Close() error
}

// Backend creates and opens stores bound to an index directory.
type Backend interface {
	Name() string
	// Create starts an empty store in dir, which already exists.
	Create(ctx context.Context, dir string, dimension int) (Store, error)
	// Open returns domain.ErrNoIndex when dir holds no store.
	Open(ctx context.Context, dir string) (Store, error)
	// Drop releases resources living outside dir. It is idempotent.
	Drop(ctx context.Context, dir string) error
}

// CheckBatch validates an upsert batch against the store dimension.
func CheckBatch(docs []domain.SynthesizedDocument, vectors [][]float32, dimension int) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("%d documents and %d vectors", len(docs), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != dimension {
			return fmt.Errorf("%w: document %d has %d values, store expects %d", ErrDimensionMismatch, i, len(v), dimension)
		}
	}
	return nil
}
