// Package knowledge builds the persisted semantic index from the extracted
// exports and answers semantic queries against it.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nfe/internal/bundle"
	"nfe/internal/config"
	"nfe/internal/domain"
	"nfe/internal/embedding"
	"nfe/internal/synth"
	"nfe/internal/tabular"
	"nfe/internal/transcode"
	"nfe/internal/vectorstore"
)

// EmbedderFactory returns a fresh embedder. Builds never share embedder
// state with the searcher serving the live index.
type EmbedderFactory func() (embedding.Embedder, error)

// Builder regenerates the index at paths.IndexLocation. A build happens in a
// staging directory next to it and replaces the live index only on success.
type Builder struct {
	paths       config.PathsConfig
	encoding    string
	loader      *tabular.Loader
	newEmbedder EmbedderFactory
	backend     vectorstore.Backend
	timeout     time.Duration
	logger      *zap.Logger
}

// NewBuilder wires a Builder from configuration.
func NewBuilder(cfg *config.AppConfig, newEmbedder EmbedderFactory, backend vectorstore.Backend, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		paths:       cfg.Paths,
		encoding:    cfg.Source.Encoding,
		loader:      tabular.NewLoader(cfg.Delimiter(), logger),
		newEmbedder: newEmbedder,
		backend:     backend,
		timeout:     cfg.RebuildTimeout(),
		logger:      logger,
	}
}

// Rebuild reads the extracted exports, synthesizes one document per invoice
// and replaces the index with them. It returns the number of documents.
// On failure the previous index, if any, keeps serving.
func (b *Builder) Rebuild(ctx context.Context) (int, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	start := time.Now()

	src, err := bundle.Locate(b.paths.ExtractionDir, b.paths.HeaderFile, b.paths.ItemsFile)
	if err != nil {
		return 0, err
	}
	tc, err := transcode.New(b.encoding)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrEncoding, err)
	}
	for _, path := range []string{src.Header, src.Items} {
		if err := tc.File(path); err != nil {
			return 0, err
		}
	}
	ds, err := b.loader.Load(src)
	if err != nil {
		return 0, err
	}
	docs := synth.Synthesize(ds)

	staging := sibling(b.paths.IndexLocation, "staging")
	m, err := b.build(ctx, staging, docs)
	if err != nil {
		b.discard(ctx, staging)
		return 0, fmt.Errorf("%w: %w", domain.ErrIndexBuild, err)
	}
	if err := b.swap(ctx, staging); err != nil {
		b.discard(ctx, staging)
		return 0, fmt.Errorf("%w: replacing index: %w", domain.ErrIndexBuild, err)
	}

	b.logger.Info("knowledge base rebuilt",
		zap.String("index", b.paths.IndexLocation),
		zap.String("build_id", m.BuildID),
		zap.Int("documents", m.Documents),
		zap.Int("dimension", m.Dimension),
		zap.Duration("took", time.Since(start)),
	)
	return len(docs), nil
}

func (b *Builder) build(ctx context.Context, dir string, docs []domain.SynthesizedDocument) (*Manifest, error) {
	if len(docs) == 0 {
		return nil, errors.New("no documents to index")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	emb, err := b.newEmbedder()
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	if c, ok := emb.(embedding.Closer); ok {
		defer c.Close()
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	if err := emb.Prepare(texts); err != nil {
		return nil, fmt.Errorf("preparing %s embedder: %w", emb.Name(), err)
	}
	vectors, err := embedding.EmbedAll(ctx, emb, texts)
	if err != nil {
		return nil, err
	}
	dim := len(vectors[0])

	store, err := b.backend.Create(ctx, dir, dim)
	if err != nil {
		return nil, fmt.Errorf("creating %s store: %w", b.backend.Name(), err)
	}
	defer store.Close()
	if err := store.Upsert(ctx, docs, vectors); err != nil {
		return nil, err
	}
	if st, ok := emb.(embedding.Stateful); ok {
		if err := st.SaveState(dir); err != nil {
			return nil, fmt.Errorf("saving %s state: %w", emb.Name(), err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := &Manifest{
		BuildID:   uuid.NewString(),
		Backend:   b.backend.Name(),
		Embedder:  emb.Name(),
		Dimension: dim,
		Documents: len(docs),
		BuiltAt:   time.Now().UTC(),
	}
	if err := writeManifest(dir, m); err != nil {
		return nil, err
	}
	return m, nil
}

// swap moves the live index aside, renames staging into place and then drops
// the previous index. A failed rename puts the previous index back.
func (b *Builder) swap(ctx context.Context, staging string) error {
	live := b.paths.IndexLocation
	old := ""
	if _, err := os.Stat(live); err == nil {
		old = sibling(live, "old")
		if err := os.Rename(live, old); err != nil {
			return err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.Rename(staging, live); err != nil {
		if old != "" {
			if rerr := os.Rename(old, live); rerr != nil {
				b.logger.Error("restoring previous index", zap.String("path", old), zap.Error(rerr))
			}
		}
		return err
	}
	if old != "" {
		b.discard(ctx, old)
	}
	return nil
}

// discard drops backend resources tied to dir and removes it.
func (b *Builder) discard(ctx context.Context, dir string) {
	ctx = context.WithoutCancel(ctx)
	if err := b.backend.Drop(ctx, dir); err != nil {
		b.logger.Warn("dropping index resources", zap.String("path", dir), zap.Error(err))
	}
	if err := os.RemoveAll(dir); err != nil {
		b.logger.Warn("removing index directory", zap.String("path", dir), zap.Error(err))
	}
}

// sibling returns a unique hidden path next to path.
func sibling(path, kind string) string {
	dir, base := filepath.Split(filepath.Clean(path))
	return filepath.Join(dir, "."+base+"."+kind+"-"+uuid.NewString()[:8])
}
