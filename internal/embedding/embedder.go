// Package embedding turns document and query text into vectors.
package embedding

import (
	"context"
	"fmt"
	"time"

	"nfe/internal/config"
	"nfe/internal/embedding/fastembed"
	"nfe/internal/embedding/openai"
	"nfe/internal/embedding/tfidf"
)

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Stateful is implemented by embedders whose prepared state must be saved
// next to the index it produced and restored before querying it.
type Stateful interface {
	SaveState(dir string) error
	LoadState(dir string) error
}

// DocumentEmbedder is implemented by embedders with a dedicated batch path
// for indexing documents.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Closer is implemented by embedders holding native resources.
type Closer interface {
	Close() error
}

// EmbedAll embeds every text, using the batch path when e provides one.
func EmbedAll(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	if b, ok := e.(DocumentEmbedder); ok {
		return b.EmbedDocuments(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embedding document %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// New selects the embedder named by cfg.Type.
func New(cfg config.EmbedderConfig) (Embedder, error) {
	switch cfg.Type {
	case "", "tfidf":
		return tfidf.NewEmbedder(), nil
	case "openai":
		oc := cfg.OpenAI
		if oc == nil {
			oc = &config.OpenAIEmbedderConfig{}
		}
		c, err := openai.NewClient(openai.Config{
			BaseURL:    oc.BaseURL,
			APIKeyEnv:  oc.APIKeyEnv,
			Model:      oc.Model,
			Timeout:    time.Duration(oc.TimeoutSecs) * time.Second,
			MaxRetries: oc.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "fastembed":
		fc := cfg.FastEmbed
		if fc == nil {
			fc = &config.FastEmbedConfig{}
		}
		e, err := fastembed.NewEmbedder(fastembed.Config{
			Model:     fc.Model,
			CacheDir:  fc.CacheDir,
			MaxLength: fc.MaxLength,
			BatchSize: fc.BatchSize,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, fmt.Errorf("unknown embedder type %q", cfg.Type)
}
