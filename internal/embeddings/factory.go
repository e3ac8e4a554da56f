package embeddings

import (
	"universal-vectorizer/internal/config"
)

// NewBackend builds the primary embedding backend from configuration
func NewBackend(cfg config.Config) (Backend, error) {
	return newBackend(cfg, cfg.EmbeddingBackend)
}

// NewFallbackBackend builds the backend used when the primary keeps
// failing: whichever of the two providers is not the primary. It returns
// nil (no fallback) when the other provider is not configured.
func NewFallbackBackend(cfg config.Config) Backend {
	var other string
	switch cfg.EmbeddingBackend {
	case "openai":
		other = "ollama"
	case "ollama":
		other = "openai"
	default:
		return nil
	}

	backend, err := newBackend(cfg, other)
	if err != nil {
		return nil
	}
	return backend
}

func newBackend(cfg config.Config, name string) (Backend, error) {
	switch name {
	case "openai":
		return NewOpenAIBackend(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	case "ollama":
		return NewOllamaBackend(cfg.OllamaURL, cfg.OllamaModel)
	default:
		return nil, config.NewConfigError("EMBEDDING_BACKEND", "unknown backend: "+name)
	}
}
