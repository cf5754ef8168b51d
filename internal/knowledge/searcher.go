package knowledge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"nfe/internal/domain"
	"nfe/internal/embedding"
	"nfe/internal/vectorstore"
)

// Searcher answers semantic queries against the live index. The opened index
// is cached until the manifest's build ID changes.
type Searcher struct {
	indexDir    string
	backend     vectorstore.Backend
	newEmbedder EmbedderFactory
	logger      *zap.Logger

	mu       sync.Mutex
	embedder embedding.Embedder
	buildID  string
	store    vectorstore.Store
}

var _ domain.SemanticSearcher = (*Searcher)(nil)

// NewSearcher returns a Searcher over the index in indexDir.
func NewSearcher(indexDir string, newEmbedder EmbedderFactory, backend vectorstore.Backend, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{indexDir: indexDir, backend: backend, newEmbedder: newEmbedder, logger: logger}
}

// Search returns the texts of the k documents nearest to query. A missing
// index, or a query sharing nothing with the indexed vocabulary, yields an
// empty result rather than an error.
func (s *Searcher) Search(ctx context.Context, query string, k int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := ReadManifest(s.indexDir)
	if errors.Is(err, domain.ErrNoIndex) {
		s.reset()
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if m.BuildID != s.buildID || s.store == nil {
		if err := s.open(ctx, m); err != nil {
			if errors.Is(err, domain.ErrNoIndex) {
				return nil, nil
			}
			return nil, err
		}
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if isZero(vec) {
		return nil, nil
	}
	results, err := s.store.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Document.Text
	}
	s.logger.Debug("semantic search", zap.Int("k", k), zap.Int("results", len(texts)), zap.String("build_id", m.BuildID))
	return texts, nil
}

func (s *Searcher) open(ctx context.Context, m *Manifest) error {
	s.reset()
	if m.Backend != s.backend.Name() {
		return fmt.Errorf("index was built with the %s backend, %s is configured", m.Backend, s.backend.Name())
	}
	if s.embedder == nil {
		e, err := s.newEmbedder()
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}
		s.embedder = e
	}
	if m.Embedder != s.embedder.Name() {
		return fmt.Errorf("index was built with the %s embedder, %s is configured", m.Embedder, s.embedder.Name())
	}
	if st, ok := s.embedder.(embedding.Stateful); ok {
		if err := st.LoadState(s.indexDir); err != nil {
			return fmt.Errorf("loading %s state: %w", s.embedder.Name(), err)
		}
	}
	store, err := s.backend.Open(ctx, s.indexDir)
	if err != nil {
		return err
	}
	s.store = store
	s.buildID = m.BuildID
	return nil
}

func (s *Searcher) reset() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("closing index", zap.Error(err))
		}
	}
	s.store = nil
	s.buildID = ""
}

// Close releases the cached index and embedder.
func (s *Searcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	if c, ok := s.embedder.(embedding.Closer); ok {
		return c.Close()
	}
	return nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
