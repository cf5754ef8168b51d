package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nfe/internal/config"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "NFs_Extraidas", cfg.Paths.ExtractionDir)
	assert.Equal(t, "nfe_db", cfg.Paths.IndexLocation)
	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Equal(t, "chromem", cfg.VectorStore.Type)
	assert.Equal(t, 3, cfg.Query.SemanticTopK)
	assert.Equal(t, 10*time.Minute, cfg.RebuildTimeout())
}

func TestLoad_AppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
paths:
  extraction_dir: /data/nfe
source:
  delimiter: ";"
embedder:
  type: openai
vector_store:
  type: qdrant
  qdrant:
    host: qdrant.internal
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/nfe", cfg.Paths.ExtractionDir)
	assert.Equal(t, "nfe_db", cfg.Paths.IndexLocation)
	assert.Equal(t, ';', cfg.Delimiter())
	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, 5, cfg.Embedder.OpenAI.MaxRetries)
	require.NotNil(t, cfg.VectorStore.Qdrant)
	assert.Equal(t, "qdrant.internal", cfg.VectorStore.Qdrant.Host)
	assert.Equal(t, 6334, cfg.VectorStore.Qdrant.Port)
	assert.Equal(t, "nfe", cfg.VectorStore.Qdrant.CollectionPrefix)
	// no rebuild section still bounds the rebuild
	assert.Equal(t, 10*time.Minute, cfg.RebuildTimeout())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paths: [unclosed"), 0o644))
	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := config.Default()
	cfg.Paths.HeaderFile = "cab.csv"
	require.NoError(t, config.Save(path, cfg))

	got, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDelimiter(t *testing.T) {
	tests := []struct {
		in   string
		want rune
	}{
		{"", 0},
		{"auto", 0},
		{",", ','},
		{"tab", '\t'},
		{`\t`, '\t'},
		{"|", '|'},
	}
	for _, tt := range tests {
		cfg := config.Default()
		cfg.Source.Delimiter = tt.in
		assert.Equal(t, tt.want, cfg.Delimiter(), "delimiter %q", tt.in)
	}
}
