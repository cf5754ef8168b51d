package service_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nfe/internal/config"
	"nfe/internal/domain"
	"nfe/internal/nfetest"
	"nfe/internal/query"
	"nfe/internal/service"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ExtractionDir = filepath.Join(root, "NFs_Extraidas")
	cfg.Paths.IndexLocation = filepath.Join(root, "nfe_db")
	return cfg
}

func newService(t *testing.T, cfg *config.AppConfig) *service.NFeService {
	t.Helper()
	svc, err := service.New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func answer(t *testing.T, svc *service.NFeService, q string) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, svc.Answer(context.Background(), &b, q))
	return b.String()
}

func TestNFeService_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	svc := newService(t, cfg)
	ctx := context.Background()

	dir, err := svc.Ingest(ctx, nfetest.WriteBundle(t, nfetest.Sample()))
	require.NoError(t, err)
	assert.Equal(t, cfg.Paths.ExtractionDir, dir)

	n, err := svc.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	out := answer(t, svc, "nota 369180")
	assert.Contains(t, out, "Nota Fiscal: 369180")
	assert.Contains(t, out, "Emitente: LOJA X")

	out = answer(t, svc, "itens 369180")
	assert.Contains(t, out, "- Produto: ARROZ TIPO 1 5KG, Quantidade: 2, Valor Total: 50,00")
	assert.Contains(t, out, "Soma dos valores dos itens: 120.00")

	out = answer(t, svc, "emitente supermercado")
	assert.Contains(t, out, "Nota Fiscal: 2525")

	res, err := svc.Query(ctx, "cafe torrado")
	require.NoError(t, err)
	assert.Equal(t, query.IntentSemantic, res.Classification.Intent)
	require.NotEmpty(t, res.Semantic)
	assert.Contains(t, res.Semantic[0], "Nota Fiscal: 2525")
}

func TestNFeService_StructuredQueryWithoutExports(t *testing.T) {
	svc := newService(t, testConfig(t))
	_, err := svc.Query(context.Background(), "nota 1")
	assert.ErrorIs(t, err, domain.ErrDataSource)
}

func TestNFeService_SemanticQueryWithoutIndex(t *testing.T) {
	svc := newService(t, testConfig(t))
	assert.Equal(t, "Nenhum resultado encontrado para sua consulta.\n", answer(t, svc, "qual foi a maior compra"))
}

func TestNFeService_IngestMissingBundle(t *testing.T) {
	cfg := testConfig(t)
	svc := newService(t, cfg)
	_, err := svc.Ingest(context.Background(), filepath.Join(t.TempDir(), "missing.zip"))
	assert.ErrorIs(t, err, domain.ErrArchive)
}

func TestNFeService_UnrecognizedQueryIsRendered(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	builder := newService(t, cfg)
	_, err := builder.Ingest(ctx, nfetest.WriteBundle(t, nfetest.Sample()))
	require.NoError(t, err)
	_, err = builder.Rebuild(ctx)
	require.NoError(t, err)

	// an index built by chromem cannot be read through the memory backend
	cfg.VectorStore.Type = "memory"
	svc := newService(t, cfg)
	_, err = svc.Query(ctx, "arroz")
	assert.ErrorIs(t, err, domain.ErrUnrecognizedQuery)

	out := answer(t, svc, "arroz")
	assert.True(t, strings.HasPrefix(out, "Comando não reconhecido."), out)
	assert.Contains(t, out, "chromem backend")
}

func TestNFeService_QueriesDuringRebuild(t *testing.T) {
	cfg := testConfig(t)
	svc := newService(t, cfg)
	ctx := context.Background()
	_, err := svc.Ingest(ctx, nfetest.WriteBundle(t, nfetest.Sample()))
	require.NoError(t, err)
	_, err = svc.Rebuild(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Rebuild(ctx)
			errs <- err
		}()
	}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Query(ctx, "feijao")
			if err == nil && len(res.Semantic) == 0 {
				t.Error("semantic query returned nothing during rebuild")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestNewBackend_UnknownType(t *testing.T) {
	_, err := service.NewBackend(config.VectorStoreConfig{Type: "faiss"}, nil)
	assert.ErrorContains(t, err, "unknown vector store type")

	for _, name := range []string{"chromem", "memory", "qdrant"} {
		b, err := service.NewBackend(config.VectorStoreConfig{Type: name}, nil)
		require.NoError(t, err)
		assert.Equal(t, name, b.Name())
	}
}
