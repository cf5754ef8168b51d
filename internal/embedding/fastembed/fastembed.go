//go:build cgo

package fastembed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
)

var models = map[string]fastembed.EmbeddingModel{
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"fast-all-MiniLM-L6-v2":                  fastembed.AllMiniLML6V2,
	"fast-bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"fast-bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
}

var dimensions = map[fastembed.EmbeddingModel]int{
	fastembed.AllMiniLML6V2: 384,
	fastembed.BGESmallENV15: 384,
	fastembed.BGEBaseENV15:  768,
}

// Embedder wraps a fastembed FlagEmbedding model.
type Embedder struct {
	mu        sync.RWMutex
	model     *fastembed.FlagEmbedding
	name      string
	dimension int
	batchSize int
}

// NewEmbedder loads the configured model, downloading it into the cache
// directory on first use.
func NewEmbedder(cfg Config) (*Embedder, error) {
	cfg = cfg.withDefaults()
	model, ok := models[cfg.Model]
	if !ok {
		return nil, fmt.Errorf("fastembed: unsupported model %q", cfg.Model)
	}
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = "."
		}
		cacheDir = filepath.Join(base, "nfe", "models")
	}
	showProgress := false
	fe, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		CacheDir:             cacheDir,
		MaxLength:            cfg.MaxLength,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing fastembed: %w", err)
	}
	return &Embedder{
		model:     fe,
		name:      cfg.Model,
		dimension: dimensions[model],
		batchSize: cfg.BatchSize,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "fastembed" }

// Prepare is a no-op for pretrained models.
func (e *Embedder) Prepare([]string) error { return nil }

// Dimension returns the model's output size.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed embeds a query.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, err := e.model.QueryEmbed(text)
	if err != nil {
		return nil, fmt.Errorf("fastembed query: %w", err)
	}
	return v, nil
}

// EmbedDocuments embeds documents in batches.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	out, err := e.model.PassageEmbed(texts, e.batchSize)
	if err != nil {
		return nil, fmt.Errorf("fastembed passages: %w", err)
	}
	return out, nil
}

// Close releases the ONNX runtime session.
func (e *Embedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return nil
	}
	err := e.model.Destroy()
	e.model = nil
	return err
}
