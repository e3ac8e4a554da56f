package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidate_ChunkGeometry(t *testing.T) {
	cfg := Default()
	cfg.ChunkOverlap = cfg.ChunkSize
	err := cfg.Validate()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "CHUNK_OVERLAP", cfgErr.Field)

	cfg = Default()
	cfg.ChunkSize = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.ChunkOverlap = -1
	assert.Error(t, cfg.Validate())
}

func TestValidate_ProviderNames(t *testing.T) {
	cfg := Default()
	cfg.EmbeddingBackend = "acme"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.VectorDBProvider = "pinecone"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.CheckpointBackend = "s3"
	assert.Error(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "400")
	t.Setenv("CHUNK_OVERLAP", "50")
	t.Setenv("EMBEDDING_BACKEND", "ollama")
	t.Setenv("VECTORDB_PROVIDER", "qdrant")
	t.Setenv("EMBEDDING_RETRY_DELAY", "250ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, "ollama", cfg.EmbeddingBackend)
	assert.Equal(t, "qdrant", cfg.VectorDBProvider)
	assert.Equal(t, "250ms", cfg.EmbeddingRetryDelay.String())
}

func TestLoad_InvalidGeometryFails(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "100")
	t.Setenv("CHUNK_OVERLAP", "100")

	_, err := Load()
	assert.Error(t, err)
}
