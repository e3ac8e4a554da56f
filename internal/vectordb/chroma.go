package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"universal-vectorizer/internal/models"
)

// ChromaStore talks to the ChromaDB v2 REST API directly. This avoids
// compatibility issues with the official Go client library, which lags
// behind the server's API.
type ChromaStore struct {
	baseURL    string
	httpClient *http.Client
	collection string

	mu           sync.Mutex
	collectionID string
}

// ChromaConfig holds configuration for a ChromaDB connection
type ChromaConfig struct {
	Host       string
	Port       int
	Tenant     string // default: "default_tenant"
	Database   string // default: "default_database"
	Collection string
	Timeout    time.Duration
}

// NewChromaStore creates a store bound to one collection. The collection
// is created on first use, not at construction, so the server does not
// have to be up when the process starts.
func NewChromaStore(cfg ChromaConfig) *ChromaStore {
	if cfg.Tenant == "" {
		cfg.Tenant = "default_tenant"
	}
	if cfg.Database == "" {
		cfg.Database = "default_database"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	// ChromaDB v2 API carries tenant and database in the path
	baseURL := fmt.Sprintf("http://%s:%d/api/v2/tenants/%s/databases/%s",
		cfg.Host, cfg.Port, cfg.Tenant, cfg.Database)

	return &ChromaStore{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		collection: cfg.Collection,
	}
}

type chromaCollection struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Metadata map[string]interface{} `json:"metadata"`
}

// ensureCollection resolves and caches the collection's server-side ID,
// creating the collection if it does not exist yet.
func (s *ChromaStore) ensureCollection(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collectionID != "" {
		return s.collectionID, nil
	}

	payload := map[string]interface{}{
		"name":          s.collection,
		"get_or_create": true,
		"metadata":      map[string]interface{}{"hnsw:space": "cosine"},
	}

	var collection chromaCollection
	if err := s.post(ctx, "/collections", payload, &collection); err != nil {
		return "", err
	}
	s.collectionID = collection.ID
	return s.collectionID, nil
}

// Upsert writes records, overwriting any that share an ID
func (s *ChromaStore) Upsert(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	collectionID, err := s.ensureCollection(ctx)
	if err != nil {
		return NewVectorStoreError("chroma", "upsert", err)
	}

	ids := make([]string, len(records))
	documents := make([]string, len(records))
	embeddings := make([][]float32, len(records))
	metadatas := make([]map[string]interface{}, len(records))
	for i, record := range records {
		ids[i] = record.ID
		embeddings[i] = record.Embedding
		metadatas[i] = record.Metadata
		if text, ok := record.Metadata["text"].(string); ok {
			documents[i] = text
		}
	}

	payload := map[string]interface{}{
		"ids":        ids,
		"documents":  documents,
		"embeddings": embeddings,
		"metadatas":  metadatas,
	}
	if err := s.post(ctx, "/collections/"+collectionID+"/upsert", payload, nil); err != nil {
		return NewVectorStoreError("chroma", "upsert", err)
	}
	return nil
}

type chromaQueryResponse struct {
	IDs       [][]string                 `json:"ids"`
	Documents [][]string                 `json:"documents"`
	Metadatas [][]map[string]interface{} `json:"metadatas"`
	Distances [][]float32                `json:"distances"`
}

// Query returns the topK nearest records for the given embedding
func (s *ChromaStore) Query(ctx context.Context, vector []float32, topK int, filters map[string]interface{}) ([]models.Match, error) {
	collectionID, err := s.ensureCollection(ctx)
	if err != nil {
		return nil, NewVectorStoreError("chroma", "query", err)
	}

	payload := map[string]interface{}{
		"query_embeddings": [][]float32{vector},
		"n_results":        topK,
		"include":          []string{"documents", "metadatas", "distances"},
	}
	if len(filters) > 0 {
		payload["where"] = filters
	}

	var decoded chromaQueryResponse
	if err := s.post(ctx, "/collections/"+collectionID+"/query", payload, &decoded); err != nil {
		return nil, NewVectorStoreError("chroma", "query", err)
	}
	if len(decoded.IDs) == 0 {
		return nil, nil
	}

	matches := make([]models.Match, 0, len(decoded.IDs[0]))
	for i, id := range decoded.IDs[0] {
		match := models.Match{ID: id}
		if len(decoded.Distances) > 0 && i < len(decoded.Distances[0]) {
			match.Score = decoded.Distances[0][i]
		}
		if len(decoded.Documents) > 0 && i < len(decoded.Documents[0]) {
			match.Text = decoded.Documents[0][i]
		}
		if len(decoded.Metadatas) > 0 && i < len(decoded.Metadatas[0]) {
			match.Metadata = decoded.Metadatas[0][i]
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// Delete removes records by ID; unknown IDs are ignored by the server
func (s *ChromaStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	collectionID, err := s.ensureCollection(ctx)
	if err != nil {
		return NewVectorStoreError("chroma", "delete", err)
	}

	payload := map[string]interface{}{"ids": ids}
	if err := s.post(ctx, "/collections/"+collectionID+"/delete", payload, nil); err != nil {
		return NewVectorStoreError("chroma", "delete", err)
	}
	return nil
}

// Heartbeat checks whether the ChromaDB server is reachable
func (s *ChromaStore) Heartbeat(ctx context.Context) error {
	// The heartbeat endpoint lives above the tenant/database path.
	heartbeatURL := s.baseURL[:strings.Index(s.baseURL, "/api/v2/")] + "/api/v2/heartbeat"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, heartbeatURL, nil)
	if err != nil {
		return NewVectorStoreError("chroma", "heartbeat", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return NewVectorStoreError("chroma", "heartbeat", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return NewVectorStoreError("chroma", "heartbeat",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return nil
}

// Close releases idle HTTP connections
func (s *ChromaStore) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

func (s *ChromaStore) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("request to %s failed (status %d): %s", path, resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
