package chromem_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nfe/internal/domain"
	"nfe/internal/vectorstore"
	"nfe/internal/vectorstore/chromem"
)

func sampleDocs() []domain.SynthesizedDocument {
	return []domain.SynthesizedDocument{
		{ID: "a1f0c0de-0000-5000-8000-000000000001", AccessKey: "111", Number: "369180", Row: 0, Text: "Nota Fiscal: 369180"},
		{ID: "a1f0c0de-0000-5000-8000-000000000002", AccessKey: "222", Number: "2525", Row: 1, Text: "Nota Fiscal: 2525"},
	}
}

func TestOpen_MissingIsNoIndex(t *testing.T) {
	_, err := chromem.NewBackend(chromem.Config{}).Open(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, domain.ErrNoIndex)
}

func TestCreateSearchReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := chromem.NewBackend(chromem.Config{Collection: "test"})

	store, err := b.Create(ctx, dir, 2)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, sampleDocs(), [][]float32{{1, 0}, {0, 1}}))
	assert.Equal(t, 2, store.Count())

	res, err := store.Search(ctx, []float32{0.1, 1}, 3)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "2525", res[0].Document.Number)
	assert.Equal(t, "222", res[0].Document.AccessKey)
	assert.Equal(t, 1, res[0].Document.Row)
	assert.Equal(t, "Nota Fiscal: 2525", res[0].Document.Text)
	require.NoError(t, store.Close())

	reopened, err := b.Open(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Count())
	res, err = reopened.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "369180", res[0].Document.Number)
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store, err := chromem.NewBackend(chromem.Config{}).Create(ctx, t.TempDir(), 3)
	require.NoError(t, err)
	err = store.Upsert(ctx, sampleDocs(), [][]float32{{1, 0}, {0, 1}})
	assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)
}

func TestSearch_EmptyCollection(t *testing.T) {
	ctx := context.Background()
	store, err := chromem.NewBackend(chromem.Config{}).Create(ctx, t.TempDir(), 2)
	require.NoError(t, err)
	res, err := store.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, res)
}
