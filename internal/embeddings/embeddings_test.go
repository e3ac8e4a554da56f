package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"universal-vectorizer/internal/config"
)

func TestNewOpenAIBackend_MissingKeyIsConfigError(t *testing.T) {
	_, err := NewOpenAIBackend("", "text-embedding-3-large")
	require.Error(t, err)
	var cfgErr *config.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "OPENAI_API_KEY", cfgErr.Field)
}

func TestNewOllamaBackend_EmptyModelIsConfigError(t *testing.T) {
	_, err := NewOllamaBackend("http://localhost:11434", "")
	var cfgErr *config.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "OLLAMA_MODEL", cfgErr.Field)
}

func TestOllamaBackend_Embed(t *testing.T) {
	var gotPath string
	var gotReq struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"model":      gotReq.Model,
			"embeddings": [][]float32{{0.1, 0.2}, {0.3, 0.4}},
		})
	}))
	defer server.Close()

	backend, err := NewOllamaBackend(server.URL, "nomic-embed-text")
	require.NoError(t, err)

	results, err := backend.Embed(context.Background(), []string{"one", "two"})
	require.NoError(t, err)

	assert.Equal(t, "/api/embed", gotPath)
	assert.Equal(t, "nomic-embed-text", gotReq.Model)
	assert.Equal(t, []string{"one", "two"}, gotReq.Input)

	require.Len(t, results, 2)
	assert.Equal(t, []float32{0.1, 0.2}, results[0].Vector)
	assert.Equal(t, []float32{0.3, 0.4}, results[1].Vector)
	assert.Equal(t, "nomic-embed-text", results[0].Model)
}

func TestOllamaBackend_CountMismatchIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": [][]float32{{0.1}},
		})
	}))
	defer server.Close()

	backend, err := NewOllamaBackend(server.URL, "nomic-embed-text")
	require.NoError(t, err)

	_, err = backend.Embed(context.Background(), []string{"one", "two"})
	var embErr *EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, "ollama", embErr.Backend)
}

func TestOllamaBackend_ServerErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusInternalServerError)
	}))
	defer server.Close()

	backend, err := NewOllamaBackend(server.URL, "nomic-embed-text")
	require.NoError(t, err)

	_, err = backend.Embed(context.Background(), []string{"one"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestOllamaBackend_EmptyInputShortCircuits(t *testing.T) {
	backend, err := NewOllamaBackend("http://localhost:1", "nomic-embed-text")
	require.NoError(t, err)

	results, err := backend.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestNewBackend_UnknownName(t *testing.T) {
	cfg := config.Default()
	cfg.EmbeddingBackend = "acme"

	_, err := newBackend(cfg, cfg.EmbeddingBackend)
	var cfgErr *config.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNewFallbackBackend_OppositeProvider(t *testing.T) {
	cfg := config.Default()
	cfg.EmbeddingBackend = "openai"
	cfg.OpenAIAPIKey = "sk-test"

	fallback := NewFallbackBackend(cfg)
	require.NotNil(t, fallback)
	_, isOllama := fallback.(*OllamaBackend)
	assert.True(t, isOllama)
}

func TestNewFallbackBackend_UnconfiguredReturnsNil(t *testing.T) {
	cfg := config.Default()
	cfg.EmbeddingBackend = "ollama"
	// No OpenAI key configured, so there is nothing to fall back to.
	assert.Nil(t, NewFallbackBackend(cfg))
}
