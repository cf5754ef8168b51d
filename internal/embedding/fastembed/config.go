// Package fastembed embeds text locally with ONNX sentence-transformer models.
package fastembed

import "errors"

// DefaultModel is used when no model is configured.
const DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

// ErrNotAvailable is returned by binaries built without cgo.
var ErrNotAvailable = errors.New("fastembed: not available (binary built without cgo)")

// Config configures the local embedder.
type Config struct {
	Model     string
	CacheDir  string
	MaxLength int
	BatchSize int
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxLength == 0 {
		c.MaxLength = 512
	}
	if c.BatchSize == 0 {
		c.BatchSize = 256
	}
	return c
}
