package embeddings

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"universal-vectorizer/internal/config"
	"universal-vectorizer/internal/models"
)

// OpenAIBackend embeds text through the OpenAI embeddings API
type OpenAIBackend struct {
	client openai.Client
	model  string
}

// NewOpenAIBackend creates the backend; a missing API key is a
// configuration error, not a runtime one.
func NewOpenAIBackend(apiKey, model string) (*OpenAIBackend, error) {
	if apiKey == "" {
		return nil, config.NewConfigError("OPENAI_API_KEY", "required for the openai embedding backend")
	}
	if model == "" {
		return nil, config.NewConfigError("OPENAI_MODEL", "cannot be empty")
	}
	return &OpenAIBackend{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

// Model returns the configured model identifier
func (b *OpenAIBackend) Model() string {
	return b.model
}

// Embed requests one vector per input text
func (b *OpenAIBackend) Embed(ctx context.Context, texts []string) ([]models.EmbeddingResult, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := b.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(b.model),
	})
	if err != nil {
		return nil, NewEmbeddingError("openai", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, NewEmbeddingError("openai",
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	results := make([]models.EmbeddingResult, len(resp.Data))
	for i, item := range resp.Data {
		vector := make([]float32, len(item.Embedding))
		for j, v := range item.Embedding {
			vector[j] = float32(v)
		}
		results[i] = models.EmbeddingResult{Vector: vector, Model: b.model}
	}
	return results, nil
}
