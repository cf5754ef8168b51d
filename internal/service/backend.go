package service

import (
	"fmt"

	"go.uber.org/zap"

	"nfe/internal/config"
	"nfe/internal/vectorstore"
	"nfe/internal/vectorstore/chromem"
	"nfe/internal/vectorstore/memory"
	"nfe/internal/vectorstore/qdrant"
)

// NewBackend selects the vector store named by cfg.Type.
func NewBackend(cfg config.VectorStoreConfig, logger *zap.Logger) (vectorstore.Backend, error) {
	switch cfg.Type {
	case "chromem":
		var cc config.ChromemConfig
		if cfg.Chromem != nil {
			cc = *cfg.Chromem
		}
		return chromem.NewBackend(chromem.Config{Collection: cc.Collection, Compress: cc.Compress}), nil
	case "memory":
		return memory.NewBackend(), nil
	case "qdrant":
		var qc config.QdrantConfig
		if cfg.Qdrant != nil {
			qc = *cfg.Qdrant
		}
		return qdrant.NewBackend(qdrant.Config{
			Host:             qc.Host,
			Port:             qc.Port,
			APIKey:           qc.APIKey,
			UseTLS:           qc.UseTLS,
			CollectionPrefix: qc.CollectionPrefix,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown vector store type: %s", cfg.Type)
	}
}
