package knowledge_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nfe/internal/config"
	"nfe/internal/domain"
	"nfe/internal/embedding"
	"nfe/internal/embedding/tfidf"
	"nfe/internal/knowledge"
	"nfe/internal/nfetest"
	"nfe/internal/vectorstore"
	"nfe/internal/vectorstore/chromem"
	"nfe/internal/vectorstore/memory"
)

func newTFIDF() (embedding.Embedder, error) { return tfidf.NewEmbedder(), nil }

type fixture struct {
	root string
	cfg  *config.AppConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ExtractionDir = filepath.Join(root, "NFs_Extraidas")
	cfg.Paths.IndexLocation = filepath.Join(root, "nfe_db")
	nfetest.WriteSources(t, cfg.Paths.ExtractionDir, nfetest.Sample())
	return &fixture{root: root, cfg: cfg}
}

func (f *fixture) builder(b vectorstore.Backend) *knowledge.Builder {
	return knowledge.NewBuilder(f.cfg, newTFIDF, b, nil)
}

func (f *fixture) searcher(b vectorstore.Backend) *knowledge.Searcher {
	return knowledge.NewSearcher(f.cfg.Paths.IndexLocation, newTFIDF, b, nil)
}

// entries lists the names in the fixture root, to catch leftover staging dirs.
func (f *fixture) entries(t *testing.T) []string {
	t.Helper()
	des, err := os.ReadDir(f.root)
	require.NoError(t, err)
	var names []string
	for _, de := range des {
		names = append(names, de.Name())
	}
	return names
}

type failingBackend struct {
	*memory.Backend
}

func (failingBackend) Create(ctx context.Context, dir string, dim int) (vectorstore.Store, error) {
	return nil, errors.New("disk full")
}

func TestRebuild_BuildsSearchableIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	backend := memory.NewBackend()

	n, err := f.builder(backend).Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"NFs_Extraidas", "nfe_db"}, f.entries(t))

	m, err := knowledge.ReadManifest(f.cfg.Paths.IndexLocation)
	require.NoError(t, err)
	assert.Equal(t, "memory", m.Backend)
	assert.Equal(t, "tfidf", m.Embedder)
	assert.Equal(t, 2, m.Documents)

	texts, err := f.searcher(backend).Search(ctx, "arroz feijao loja", 3)
	require.NoError(t, err)
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "Nota Fiscal: 369180")
}

func TestRebuild_ReplacesPreviousIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	backend := memory.NewBackend()
	s := f.searcher(backend)

	_, err := f.builder(backend).Rebuild(ctx)
	require.NoError(t, err)
	texts, err := s.Search(ctx, "cafe", 3)
	require.NoError(t, err)
	require.NotEmpty(t, texts)

	nfetest.WriteSources(t, f.cfg.Paths.ExtractionDir, []nfetest.Invoice{{
		AccessKey: nfetest.KeyOrphan, Number: "777", Issuer: "PADARIA BOM PAO", Total: "12,00",
		Items: []nfetest.Item{{Description: "PAO FRANCES", Quantity: "20", Total: "12,00"}},
	}})
	n, err := f.builder(backend).Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.ElementsMatch(t, []string{"NFs_Extraidas", "nfe_db"}, f.entries(t))

	texts, err = s.Search(ctx, "padaria pao", 3)
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Nota Fiscal: 777")
}

func TestRebuild_FailureKeepsPreviousIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	backend := memory.NewBackend()

	_, err := f.builder(backend).Rebuild(ctx)
	require.NoError(t, err)
	before, err := knowledge.ReadManifest(f.cfg.Paths.IndexLocation)
	require.NoError(t, err)

	_, err = f.builder(failingBackend{backend}).Rebuild(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexBuild)
	assert.ElementsMatch(t, []string{"NFs_Extraidas", "nfe_db"}, f.entries(t))

	after, err := knowledge.ReadManifest(f.cfg.Paths.IndexLocation)
	require.NoError(t, err)
	assert.Equal(t, before.BuildID, after.BuildID)

	texts, err := f.searcher(backend).Search(ctx, "arroz", 3)
	require.NoError(t, err)
	assert.NotEmpty(t, texts)
}

func TestRebuild_FirstBuildFailureLeavesNoIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.builder(failingBackend{memory.NewBackend()}).Rebuild(ctx)
	require.ErrorIs(t, err, domain.ErrIndexBuild)

	texts, err := f.searcher(memory.NewBackend()).Search(ctx, "arroz", 3)
	require.NoError(t, err)
	assert.Empty(t, texts)
}

func TestRebuild_SourceErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, os.RemoveAll(f.cfg.Paths.ExtractionDir))
	_, err := f.builder(memory.NewBackend()).Rebuild(ctx)
	assert.ErrorIs(t, err, domain.ErrDataSource)

	f = newFixture(t)
	f.cfg.Source.Encoding = "ebcdic"
	_, err = f.builder(memory.NewBackend()).Rebuild(ctx)
	assert.ErrorIs(t, err, domain.ErrEncoding)
}

func TestRebuild_TranscodesLatin1Sources(t *testing.T) {
	f := newFixture(t)
	src := nfetest.WriteSources(t, f.cfg.Paths.ExtractionDir, nfetest.Sample())
	data, err := os.ReadFile(src.Items)
	require.NoError(t, err)
	toLatin1 := strings.NewReplacer("Ç", "\xC7", "Ã", "\xC3", "Ú", "\xDA", "Á", "\xC1", "Ó", "\xD3")
	require.NoError(t, os.WriteFile(src.Items, []byte(toLatin1.Replace(string(data))), 0o644))

	n, err := f.builder(memory.NewBackend()).Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	converted, err := os.ReadFile(src.Items)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(converted))
}

func TestRebuild_CanceledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.builder(memory.NewBackend()).Rebuild(ctx)
	assert.ErrorIs(t, err, domain.ErrIndexBuild)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ElementsMatch(t, []string{"NFs_Extraidas"}, f.entries(t))
}

func TestSearch_NoIndexIsEmpty(t *testing.T) {
	f := newFixture(t)
	texts, err := f.searcher(memory.NewBackend()).Search(context.Background(), "arroz", 3)
	require.NoError(t, err)
	assert.Empty(t, texts)
}

func TestSearch_UnknownVocabularyIsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	backend := memory.NewBackend()
	_, err := f.builder(backend).Rebuild(ctx)
	require.NoError(t, err)

	texts, err := f.searcher(backend).Search(ctx, "parafuso sextavado", 3)
	require.NoError(t, err)
	assert.Empty(t, texts)
}

func TestSearch_BackendMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.builder(memory.NewBackend()).Rebuild(ctx)
	require.NoError(t, err)

	_, err = f.searcher(chromem.NewBackend(chromem.Config{})).Search(ctx, "arroz", 3)
	assert.ErrorContains(t, err, "memory backend")
}

func TestRebuild_Chromem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	backend := chromem.NewBackend(chromem.Config{Collection: "nfe"})

	n, err := f.builder(backend).Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	texts, err := f.searcher(backend).Search(ctx, "supermercado cafe", 1)
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Nota Fiscal: 2525")
}
