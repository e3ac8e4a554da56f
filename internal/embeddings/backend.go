package embeddings

import (
	"context"
	"fmt"

	"universal-vectorizer/internal/models"
)

// Backend computes embedding vectors for batches of text. Implementations
// must return exactly one result per input, in input order, all with the
// same dimensionality.
type Backend interface {
	Embed(ctx context.Context, texts []string) ([]models.EmbeddingResult, error)
	Model() string
}

// EmbeddingError represents a failure while calling an embedding backend
type EmbeddingError struct {
	Backend string
	Err     error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding backend %s failed: %v", e.Backend, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// NewEmbeddingError creates a new embedding error
func NewEmbeddingError(backend string, err error) *EmbeddingError {
	return &EmbeddingError{Backend: backend, Err: err}
}
