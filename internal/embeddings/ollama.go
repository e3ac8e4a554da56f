package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"universal-vectorizer/internal/config"
	"universal-vectorizer/internal/models"
)

// OllamaBackend embeds text through a local Ollama server's /api/embed
// endpoint. Useful as an offline fallback when no OpenAI key is available.
type OllamaBackend struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaBackend creates the backend and normalizes the base URL
func NewOllamaBackend(baseURL, model string) (*OllamaBackend, error) {
	if baseURL == "" {
		return nil, config.NewConfigError("OLLAMA_URL", "cannot be empty")
	}
	if model == "" {
		return nil, config.NewConfigError("OLLAMA_MODEL", "cannot be empty")
	}
	return &OllamaBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Model returns the configured model identifier
func (b *OllamaBackend) Model() string {
	return b.model
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed requests one vector per input text
func (b *OllamaBackend) Embed(ctx context.Context, texts []string) ([]models.EmbeddingResult, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(ollamaEmbedRequest{Model: b.model, Input: texts})
	if err != nil {
		return nil, NewEmbeddingError("ollama", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, NewEmbeddingError("ollama", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, NewEmbeddingError("ollama", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, NewEmbeddingError("ollama",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var decoded ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, NewEmbeddingError("ollama", err)
	}
	if len(decoded.Embeddings) != len(texts) {
		return nil, NewEmbeddingError("ollama",
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(decoded.Embeddings)))
	}

	results := make([]models.EmbeddingResult, len(decoded.Embeddings))
	for i, vector := range decoded.Embeddings {
		results[i] = models.EmbeddingResult{Vector: vector, Model: b.model}
	}
	return results, nil
}
