package vectordb

import (
	"context"
	"fmt"

	"universal-vectorizer/internal/models"
)

// Store is a vector database bound to a single collection. Upsert
// overwrites records that share an ID, so re-ingesting a document is
// idempotent. Query returns the topK nearest neighbors for the given
// vector, optionally restricted by metadata equality filters.
type Store interface {
	Upsert(ctx context.Context, records []models.VectorRecord) error
	Query(ctx context.Context, vector []float32, topK int, filters map[string]interface{}) ([]models.Match, error)
	Delete(ctx context.Context, ids []string) error
	Close() error
}

// VectorStoreError represents an error during a vector store operation
type VectorStoreError struct {
	Provider  string
	Operation string
	Err       error
}

func (e *VectorStoreError) Error() string {
	return fmt.Sprintf("vector store %s: %s failed: %v", e.Provider, e.Operation, e.Err)
}

func (e *VectorStoreError) Unwrap() error {
	return e.Err
}

// NewVectorStoreError creates a new vector store error
func NewVectorStoreError(provider, operation string, err error) *VectorStoreError {
	return &VectorStoreError{Provider: provider, Operation: operation, Err: err}
}
