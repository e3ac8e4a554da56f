package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"universal-vectorizer/internal/embeddings"
	"universal-vectorizer/internal/models"
	"universal-vectorizer/internal/preprocess"
	"universal-vectorizer/internal/vectordb"
)

const defaultTopK = 5

// SearchService embeds a query with the primary backend and runs a
// nearest-neighbor lookup against the vector store.
type SearchService struct {
	cleaner *preprocess.Cleaner
	backend embeddings.Backend
	store   vectordb.Store
	logger  zerolog.Logger
}

// NewSearchService creates the service
func NewSearchService(cleaner *preprocess.Cleaner, backend embeddings.Backend, store vectordb.Store, logger zerolog.Logger) *SearchService {
	return &SearchService{cleaner: cleaner, backend: backend, store: store, logger: logger}
}

// Search returns up to topK matches, skipping the first offset results.
// Offset paging is emulated by over-fetching; backends keep their native
// score semantics.
func (s *SearchService) Search(ctx context.Context, query string, topK, offset int, filters map[string]interface{}) ([]models.Match, error) {
	cleaned := s.cleaner.Clean(query)
	if cleaned == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	if offset < 0 {
		offset = 0
	}

	results, err := s.backend.Embed(ctx, []string{cleaned})
	if err != nil {
		return nil, err
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(results))
	}

	matches, err := s.store.Query(ctx, results[0].Vector, topK+offset, filters)
	if err != nil {
		return nil, err
	}

	if offset >= len(matches) {
		return []models.Match{}, nil
	}
	end := offset + topK
	if end > len(matches) {
		end = len(matches)
	}

	s.logger.Debug().Str("query", strings.TrimSpace(query)).
		Int("matches", end-offset).Msg("search served")
	return matches[offset:end], nil
}
