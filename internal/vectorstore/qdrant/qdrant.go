// Package qdrant keeps the index in a Qdrant collection. Every build gets a
// fresh collection; its name is recorded in the index directory so the
// directory swap also swaps collections.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"nfe/internal/domain"
	"nfe/internal/vectorstore"
)

// CollectionFile holds the collection name inside the index directory.
const CollectionFile = "qdrant_collection"

const maxMessageSize = 32 << 20

// Config contains connection details for a Qdrant server.
type Config struct {
	Host             string
	Port             int
	APIKey           string
	UseTLS           bool
	CollectionPrefix string
}

// Backend implements vectorstore.Backend on the Qdrant gRPC API.
type Backend struct {
	config Config
	logger *zap.Logger

	mu     sync.Mutex
	client *qdrant.Client
}

// NewBackend returns a backend that connects on first use.
func NewBackend(cfg Config, logger *zap.Logger) *Backend {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.CollectionPrefix == "" {
		cfg.CollectionPrefix = "nfe"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{config: cfg, logger: logger}
}

func (b *Backend) Name() string { return "qdrant" }

func (b *Backend) conn() (*qdrant.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil {
		return b.client, nil
	}
	if !b.config.UseTLS {
		b.logger.Warn("qdrant gRPC using plaintext", zap.String("host", b.config.Host))
	}
	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   b.config.Host,
		Port:   b.config.Port,
		APIKey: b.config.APIKey,
		UseTLS: b.config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(maxMessageSize),
				grpc.MaxCallSendMsgSize(maxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}
	b.client = c
	return c, nil
}

// Close releases the gRPC connection.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == nil {
		return nil
	}
	err := b.client.Close()
	b.client = nil
	return err
}

// CollectionName returns a fresh collection name for a build.
func (b *Backend) CollectionName() string {
	return b.config.CollectionPrefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (b *Backend) Create(ctx context.Context, dir string, dimension int) (vectorstore.Store, error) {
	if dimension <= 0 {
		return nil, errors.New("invalid dimension")
	}
	c, err := b.conn()
	if err != nil {
		return nil, err
	}
	name := b.CollectionName()
	// record first so a failed build can still drop what it created
	if err := os.WriteFile(filepath.Join(dir, CollectionFile), []byte(name), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", CollectionFile, err)
	}
	err = c.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", name, err)
	}
	b.logger.Debug("created qdrant collection", zap.String("collection", name), zap.Int("dimension", dimension))
	return &Store{client: c, collection: name, dimension: dimension}, nil
}

func (b *Backend) Open(ctx context.Context, dir string) (vectorstore.Store, error) {
	name, err := readCollection(dir)
	if err != nil {
		return nil, err
	}
	c, err := b.conn()
	if err != nil {
		return nil, err
	}
	info, err := c.GetCollectionInfo(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", name, err)
	}
	dimension := 0
	if params := info.GetConfig().GetParams().GetVectorsConfig().GetParams(); params != nil {
		dimension = int(params.GetSize())
	}
	return &Store{client: c, collection: name, dimension: dimension, count: int(info.GetPointsCount())}, nil
}

// Drop deletes the collection recorded in dir, if any.
func (b *Backend) Drop(ctx context.Context, dir string) error {
	name, err := readCollection(dir)
	if errors.Is(err, domain.ErrNoIndex) {
		return nil
	}
	if err != nil {
		return err
	}
	c, err := b.conn()
	if err != nil {
		return err
	}
	if err := c.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("deleting collection %s: %w", name, err)
	}
	b.logger.Debug("dropped qdrant collection", zap.String("collection", name))
	return nil
}

func readCollection(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, CollectionFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", domain.ErrNoIndex
	}
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return "", domain.ErrNoIndex
	}
	return name, nil
}

// Store is one Qdrant collection.
type Store struct {
	client     *qdrant.Client
	collection string
	dimension  int

	mu    sync.Mutex
	count int
}

func (s *Store) Upsert(ctx context.Context, docs []domain.SynthesizedDocument, vectors [][]float32) error {
	if err := vectorstore.CheckBatch(docs, vectors, s.dimension); err != nil {
		return err
	}
	points := make([]*qdrant.PointStruct, len(docs))
	for i, d := range docs {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(d.ID),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: map[string]*qdrant.Value{
				"text":       stringValue(d.Text),
				"access_key": stringValue(d.AccessKey),
				"number":     stringValue(d.Number),
				"row":        {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(d.Row)}},
			},
		}
	}
	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("upserting points to collection %s: %w", s.collection, err)
	}
	s.mu.Lock()
	s.count += len(points)
	s.mu.Unlock()
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]vectorstore.SearchResult, error) {
	if s.dimension > 0 && len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d values, store expects %d", vectorstore.ErrDimensionMismatch, len(vector), s.dimension)
	}
	if k <= 0 {
		return nil, nil
	}
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("searching collection %s: %w", s.collection, err)
	}
	out := make([]vectorstore.SearchResult, len(points))
	for i, p := range points {
		out[i] = vectorstore.SearchResult{Document: documentFromPayload(p.GetPayload()), Score: p.GetScore()}
		out[i].Document.ID = p.GetId().GetUuid()
	}
	return out, nil
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Close is a no-op; the connection belongs to the Backend.
func (s *Store) Close() error { return nil }

func stringValue(v string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
}

func documentFromPayload(payload map[string]*qdrant.Value) domain.SynthesizedDocument {
	var d domain.SynthesizedDocument
	for k, v := range payload {
		switch k {
		case "text":
			d.Text = v.GetStringValue()
		case "access_key":
			d.AccessKey = v.GetStringValue()
		case "number":
			d.Number = v.GetStringValue()
		case "row":
			d.Row = int(v.GetIntegerValue())
		}
	}
	return d
}
