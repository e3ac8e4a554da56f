package models

// Chunk is a bounded window of cleaned document text. The ID is derived
// from the document source and the zero-based chunk index, so re-ingesting
// the same source produces the same IDs.
type Chunk struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// EmbeddingResult is one vector produced by an embedding backend. All
// results from a single call share the same dimensionality.
type EmbeddingResult struct {
	Vector []float32 `json:"vector"`
	Model  string    `json:"model"`
}

// VectorRecord is the unit stored in a vector database. The chunk text
// travels inside Metadata under the "text" key.
type VectorRecord struct {
	ID        string                 `json:"id"`
	Embedding []float32              `json:"embedding"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// Match is a single nearest-neighbor result. Score is the backend's native
// distance or similarity and is passed through uninterpreted.
type Match struct {
	ID       string                 `json:"id"`
	Score    float32                `json:"score"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
}
