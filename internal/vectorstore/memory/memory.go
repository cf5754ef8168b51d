// Package memory is a brute-force cosine vector store persisted as a gob
// snapshot inside the index directory.
package memory

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"nfe/internal/domain"
	"nfe/internal/vectorstore"
)

// SnapshotFile is the snapshot written inside the index directory.
const SnapshotFile = "vectors.gob"

// Backend implements vectorstore.Backend.
type Backend struct{}

// NewBackend returns the in-process backend.
func NewBackend() *Backend { return &Backend{} }

func (b *Backend) Name() string { return "memory" }

func (b *Backend) Create(_ context.Context, dir string, dimension int) (vectorstore.Store, error) {
	if dimension <= 0 {
		return nil, errors.New("invalid dimension")
	}
	return &Storage{path: filepath.Join(dir, SnapshotFile), dimension: dimension}, nil
}

func (b *Backend) Open(_ context.Context, dir string) (vectorstore.Store, error) {
	path := filepath.Join(dir, SnapshotFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrNoIndex
	}
	if err != nil {
		return nil, err
	}
	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", SnapshotFile, err)
	}
	return &Storage{path: path, dimension: snap.Dimension, vectors: snap.Vectors, docs: snap.Documents}, nil
}

// Drop is a no-op; everything lives inside dir.
func (b *Backend) Drop(context.Context, string) error { return nil }

type snapshot struct {
	Dimension int
	Vectors   [][]float32
	Documents []domain.SynthesizedDocument
}

// Storage is a simple vector store using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	path      string
	dimension int
	vectors   [][]float32
	docs      []domain.SynthesizedDocument
}

// Upsert appends the batch and rewrites the snapshot.
func (s *Storage) Upsert(_ context.Context, docs []domain.SynthesizedDocument, vectors [][]float32) error {
	if err := vectorstore.CheckBatch(docs, vectors, s.dimension); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, docs...)
	s.vectors = append(s.vectors, vectors...)
	return s.save()
}

func (s *Storage) save() error {
	var buf bytes.Buffer
	snap := snapshot{Dimension: s.dimension, Vectors: s.vectors, Documents: s.docs}
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Storage) Search(_ context.Context, vector []float32, topK int) ([]vectorstore.SearchResult, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d values, store expects %d", vectorstore.ErrDimensionMismatch, len(vector), s.dimension)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}
	scores := make([]float64, len(s.vectors))
	for i := range s.vectors {
		scores[i] = cosine(s.vectors[i], vector)
	}
	idxs := argsortDesc(scores)
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]vectorstore.SearchResult, 0, topK)
	for i := 0; i < topK; i++ {
		j := idxs[i]
		results = append(results, vectorstore.SearchResult{Document: s.docs[j], Score: float32(scores[j])})
	}
	return results, nil
}

func (s *Storage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *Storage) Close() error { return nil }

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// argsortDesc returns indexes ordering vals from highest to lowest; equal
// scores keep insertion order.
func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	quicksort(idxs, vals, 0, len(idxs)-1)
	return idxs
}

func less(vals []float64, a, b int) bool {
	if vals[a] != vals[b] {
		return vals[a] > vals[b]
	}
	return a < b
}

func quicksort(idxs []int, vals []float64, lo, hi int) {
	if lo >= hi {
		return
	}
	i, j := lo, hi
	pivot := idxs[(lo+hi)/2]
	for i <= j {
		for less(vals, idxs[i], pivot) {
			i++
		}
		for less(vals, pivot, idxs[j]) {
			j--
		}
		if i <= j {
			idxs[i], idxs[j] = idxs[j], idxs[i]
			i++
			j--
		}
	}
	if lo < j {
		quicksort(idxs, vals, lo, j)
	}
	if i < hi {
		quicksort(idxs, vals, i, hi)
	}
}
