package vectordb

import (
	"context"

	"universal-vectorizer/internal/config"
)

// NewStore builds the configured vector store bound to the configured
// collection.
func NewStore(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.VectorDBProvider {
	case "chroma":
		return NewChromaStore(ChromaConfig{
			Host:       cfg.ChromaHost,
			Port:       cfg.ChromaPort,
			Tenant:     cfg.ChromaTenant,
			Database:   cfg.ChromaDatabase,
			Collection: cfg.Collection,
		}), nil
	case "qdrant":
		return NewQdrantStore(QdrantConfig{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			APIKey:     cfg.QdrantAPIKey,
			UseTLS:     cfg.QdrantUseTLS,
			Collection: cfg.Collection,
		})
	case "pgvector":
		if cfg.PostgresDSN == "" {
			return nil, config.NewConfigError("POSTGRES_DSN", "required for the pgvector provider")
		}
		return NewPgVectorStore(ctx, cfg.PostgresDSN, cfg.Collection)
	default:
		return nil, config.NewConfigError("VECTORDB_PROVIDER", "unknown provider: "+cfg.VectorDBProvider)
	}
}
