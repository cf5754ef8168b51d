// Package service ties extraction, rebuild and querying together behind one
// lock, so a query never reads a half-written extraction directory or index.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"nfe/internal/bundle"
	"nfe/internal/config"
	"nfe/internal/domain"
	"nfe/internal/embedding"
	"nfe/internal/knowledge"
	"nfe/internal/query"
	"nfe/internal/tabular"
	"nfe/internal/transcode"
	"nfe/internal/vectorstore"
)

type NFeService struct {
	paths    config.PathsConfig
	encoding string
	loader   *tabular.Loader
	backend  vectorstore.Backend
	builder  *knowledge.Builder
	searcher *knowledge.Searcher
	router   *query.Router
	logger   *zap.Logger

	// ingest and rebuild take the write lock, queries the read lock
	mu sync.RWMutex
}

// New wires a service from cfg.
func New(cfg *config.AppConfig, logger *zap.Logger) (*NFeService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	backend, err := NewBackend(cfg.VectorStore, logger)
	if err != nil {
		return nil, err
	}
	embedderCfg := cfg.Embedder
	newEmbedder := func() (embedding.Embedder, error) { return embedding.New(embedderCfg) }
	return NewWith(cfg, newEmbedder, backend, logger), nil
}

// NewWith wires a service around an explicit embedder factory and backend.
func NewWith(cfg *config.AppConfig, newEmbedder knowledge.EmbedderFactory, backend vectorstore.Backend, logger *zap.Logger) *NFeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	searcher := knowledge.NewSearcher(cfg.Paths.IndexLocation, newEmbedder, backend, logger.Named("search"))
	return &NFeService{
		paths:    cfg.Paths,
		encoding: cfg.Source.Encoding,
		loader:   tabular.NewLoader(cfg.Delimiter(), logger),
		backend:  backend,
		builder:  knowledge.NewBuilder(cfg, newEmbedder, backend, logger.Named("rebuild")),
		searcher: searcher,
		router:   query.NewRouter(searcher, cfg.Query.SemanticTopK, logger.Named("query")),
		logger:   logger,
	}
}

// Ingest replaces the extraction directory with the contents of the bundle
// at zipPath and returns the directory. Source files found in the bundle
// are converted to UTF-8 right away so they can be queried before the next
// rebuild.
func (s *NFeService) Ingest(ctx context.Context, zipPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := bundle.Extract(zipPath, s.paths.ExtractionDir)
	if err != nil {
		return "", err
	}
	s.logger.Info("bundle extracted",
		zap.String("bundle", zipPath),
		zap.String("dir", s.paths.ExtractionDir),
		zap.Int("files", len(files)),
	)

	src, err := s.locate()
	if errors.Is(err, domain.ErrDataSource) {
		s.logger.Warn("bundle has no NF-e exports", zap.String("bundle", zipPath), zap.Error(err))
		return s.paths.ExtractionDir, nil
	}
	if err != nil {
		return "", err
	}
	if err := s.transcode(src); err != nil {
		return "", err
	}
	return s.paths.ExtractionDir, nil
}

// Rebuild replaces the knowledge base with one built from the extracted
// exports and returns the number of invoices indexed.
func (s *NFeService) Rebuild(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.Rebuild(ctx)
}

// Query answers q. Structured intents read the exports fresh from the
// extraction directory; semantic queries go to the knowledge base.
func (s *NFeService) Query(ctx context.Context, q string) (*query.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ds *tabular.Dataset
	if query.Classify(q).Intent != query.IntentSemantic {
		src, err := s.locate()
		if err != nil {
			return nil, err
		}
		if ds, err = s.loader.Load(src); err != nil {
			return nil, err
		}
	}
	return s.router.Route(ctx, ds, q)
}

// Answer runs q and writes the rendered reply to w. Unrecognized queries are
// rendered as such and are not returned as errors.
func (s *NFeService) Answer(ctx context.Context, w io.Writer, q string) error {
	res, err := s.Query(ctx, q)
	if errors.Is(err, domain.ErrUnrecognizedQuery) {
		s.logger.Debug("query not recognized", zap.String("query", q), zap.Error(err))
		return query.RenderError(w, err)
	}
	if err != nil {
		return err
	}
	return res.Render(w)
}

// Close releases the cached index and the backend connection, if any.
func (s *NFeService) Close() error {
	err := s.searcher.Close()
	if c, ok := s.backend.(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}

func (s *NFeService) locate() (bundle.SourceFiles, error) {
	return bundle.Locate(s.paths.ExtractionDir, s.paths.HeaderFile, s.paths.ItemsFile)
}

func (s *NFeService) transcode(src bundle.SourceFiles) error {
	tc, err := transcode.New(s.encoding)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEncoding, err)
	}
	for _, path := range []string{src.Header, src.Items} {
		if err := tc.File(path); err != nil {
			return err
		}
	}
	return nil
}
