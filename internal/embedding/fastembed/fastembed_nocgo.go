//go:build !cgo

package fastembed

import "context"

// Embedder is a stub for builds without cgo.
type Embedder struct{}

// NewEmbedder always fails without cgo.
func NewEmbedder(Config) (*Embedder, error) {
	return nil, ErrNotAvailable
}

func (e *Embedder) Name() string           { return "fastembed" }
func (e *Embedder) Prepare([]string) error { return ErrNotAvailable }
func (e *Embedder) Dimension() int         { return 0 }

func (e *Embedder) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrNotAvailable
}

func (e *Embedder) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return nil, ErrNotAvailable
}

func (e *Embedder) Close() error { return nil }
