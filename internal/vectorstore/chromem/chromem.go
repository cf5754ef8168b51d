// Package chromem stores the index in an embedded, persisted chromem-go
// database inside the index directory.
package chromem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/philippgille/chromem-go"

	"nfe/internal/domain"
	"nfe/internal/vectorstore"
)

const (
	dbDir    = "chromem"
	metaFile = "chromem.json"
)

type meta struct {
	Collection string `json:"collection"`
	Dimension  int    `json:"dimension"`
}

// ErrEmbeddingRequired is returned if chromem is asked to embed text itself.
var ErrEmbeddingRequired = errors.New("chromem: documents and queries must carry their embeddings")

// Config configures the chromem backend.
type Config struct {
	Collection string
	Compress   bool
}

// Backend implements vectorstore.Backend on chromem-go.
type Backend struct {
	config Config
}

// NewBackend returns a chromem backend.
func NewBackend(cfg Config) *Backend {
	if cfg.Collection == "" {
		cfg.Collection = "nfe"
	}
	return &Backend{config: cfg}
}

func (b *Backend) Name() string { return "chromem" }

func (b *Backend) Create(_ context.Context, dir string, dimension int) (vectorstore.Store, error) {
	if dimension <= 0 {
		return nil, errors.New("invalid dimension")
	}
	db, err := chromem.NewPersistentDB(filepath.Join(dir, dbDir), b.config.Compress)
	if err != nil {
		return nil, fmt.Errorf("opening chromem db: %w", err)
	}
	col, err := db.GetOrCreateCollection(b.config.Collection, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", b.config.Collection, err)
	}
	data, err := json.Marshal(meta{Collection: b.config.Collection, Dimension: dimension})
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, metaFile), data, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", metaFile, err)
	}
	return &Store{col: col, dimension: dimension}, nil
}

func (b *Backend) Open(_ context.Context, dir string) (vectorstore.Store, error) {
	data, err := os.ReadFile(filepath.Join(dir, metaFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrNoIndex
	}
	if err != nil {
		return nil, err
	}
	var m meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", metaFile, err)
	}
	db, err := chromem.NewPersistentDB(filepath.Join(dir, dbDir), b.config.Compress)
	if err != nil {
		return nil, fmt.Errorf("opening chromem db: %w", err)
	}
	col := db.GetCollection(m.Collection, noEmbedding)
	if col == nil {
		return nil, fmt.Errorf("chromem collection %s is missing", m.Collection)
	}
	return &Store{col: col, dimension: m.Dimension}, nil
}

// Drop is a no-op; the database lives inside dir.
func (b *Backend) Drop(context.Context, string) error { return nil }

// Store is one chromem collection.
type Store struct {
	col       *chromem.Collection
	dimension int
}

func (s *Store) Upsert(ctx context.Context, docs []domain.SynthesizedDocument, vectors [][]float32) error {
	if err := vectorstore.CheckBatch(docs, vectors, s.dimension); err != nil {
		return err
	}
	cdocs := make([]chromem.Document, len(docs))
	for i, d := range docs {
		cdocs[i] = chromem.Document{
			ID:        d.ID,
			Content:   d.Text,
			Embedding: vectors[i],
			Metadata: map[string]string{
				"access_key": d.AccessKey,
				"number":     d.Number,
				"row":        strconv.Itoa(d.Row),
			},
		}
	}
	// embeddings are precomputed, so one worker is enough
	if err := s.col.AddDocuments(ctx, cdocs, 1); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]vectorstore.SearchResult, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d values, store expects %d", vectorstore.ErrDimensionMismatch, len(vector), s.dimension)
	}
	// chromem requires nResults <= doc count
	n := s.col.Count()
	if n == 0 || k <= 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}
	res, err := s.col.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}
	out := make([]vectorstore.SearchResult, len(res))
	for i, r := range res {
		row, _ := strconv.Atoi(r.Metadata["row"])
		out[i] = vectorstore.SearchResult{
			Document: domain.SynthesizedDocument{
				ID:        r.ID,
				AccessKey: r.Metadata["access_key"],
				Number:    r.Metadata["number"],
				Row:       row,
				Text:      r.Content,
			},
			Score: r.Similarity,
		}
	}
	return out, nil
}

func (s *Store) Count() int { return s.col.Count() }

// Close is a no-op; chromem writes through on every add.
func (s *Store) Close() error { return nil }

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, ErrEmbeddingRequired
}
