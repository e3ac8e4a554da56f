package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"universal-vectorizer/internal/models"
	"universal-vectorizer/internal/services"
)

// SearchHandler handles semantic search requests
type SearchHandler struct {
	service *services.SearchService
	logger  zerolog.Logger
}

// NewSearchHandler creates a search handler
func NewSearchHandler(service *services.SearchService, logger zerolog.Logger) *SearchHandler {
	return &SearchHandler{service: service, logger: logger}
}

// SearchRequest is the query envelope
type SearchRequest struct {
	Query   string                 `json:"query"`
	TopK    int                    `json:"top_k,omitempty"`
	Offset  int                    `json:"offset,omitempty"`
	Filters map[string]interface{} `json:"filters,omitempty"`
}

// SearchResponse carries the matches for a query
type SearchResponse struct {
	Query   string         `json:"query"`
	Matches []models.Match `json:"matches"`
}

// Search embeds the query and returns the nearest chunks
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	matches, err := h.service.Search(r.Context(), req.Query, req.TopK, req.Offset, req.Filters)
	if err != nil {
		h.logger.Error().Err(err).Msg("search failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if matches == nil {
		matches = []models.Match{}
	}

	writeJSON(w, http.StatusOK, SearchResponse{Query: req.Query, Matches: matches})
}
