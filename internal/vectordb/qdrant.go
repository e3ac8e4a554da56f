package vectordb

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"universal-vectorizer/internal/models"
)

// QdrantStore persists vectors in Qdrant over gRPC. Qdrant only accepts
// UUID or integer point IDs, so chunk IDs are mapped to deterministic
// name-based UUIDs; the original chunk ID rides along in the payload and
// is restored on query.
type QdrantStore struct {
	client     *qdrant.Client
	collection string

	mu      sync.Mutex
	created bool
}

// QdrantConfig holds configuration for a Qdrant connection
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// NewQdrantStore connects to Qdrant
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, NewVectorStoreError("qdrant", "connect", err)
	}
	return &QdrantStore{client: client, collection: cfg.Collection}, nil
}

// pointID derives a stable UUID for a chunk ID, so the same chunk always
// maps to the same point and re-ingestion overwrites instead of duplicating.
func pointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

// ensureCollection creates the collection on first upsert, when the
// vector dimensionality is known.
func (s *QdrantStore) ensureCollection(ctx context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.created {
		return nil
	}

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return err
	}
	if !exists {
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return err
		}
	}
	s.created = true
	return nil
}

// Upsert writes records, overwriting points that share an ID
func (s *QdrantStore) Upsert(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	if err := s.ensureCollection(ctx, len(records[0].Embedding)); err != nil {
		return NewVectorStoreError("qdrant", "upsert", err)
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, record := range records {
		payload := make(map[string]interface{}, len(record.Metadata)+1)
		for k, v := range record.Metadata {
			payload[k] = v
		}
		payload["id"] = record.ID

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(record.ID)),
			Vectors: qdrant.NewVectors(record.Embedding...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return NewVectorStoreError("qdrant", "upsert", err)
	}
	return nil
}

// Query returns the topK nearest points for the given embedding
func (s *QdrantStore) Query(ctx context.Context, vector []float32, topK int, filters map[string]interface{}) ([]models.Match, error) {
	query := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	}

	if len(filters) > 0 {
		query.Filter = &qdrant.Filter{Must: matchConditions(filters)}
	}

	points, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, NewVectorStoreError("qdrant", "query", err)
	}

	matches := make([]models.Match, 0, len(points))
	for _, point := range points {
		payload := decodePayload(point.Payload)

		match := models.Match{Score: point.Score, Metadata: payload}
		if id, ok := payload["id"].(string); ok {
			match.ID = id
		} else if pid := point.Id.GetUuid(); pid != "" {
			match.ID = pid
		}
		if text, ok := payload["text"].(string); ok {
			match.Text = text
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// matchConditions builds keyword conditions from metadata filters.
// Metadata is stored as strings, so non-string filter values are
// stringified before matching; nothing is dropped from the conjunction.
func matchConditions(filters map[string]interface{}) []*qdrant.Condition {
	conditions := make([]*qdrant.Condition, 0, len(filters))
	for field, value := range filters {
		str, ok := value.(string)
		if !ok {
			str = fmt.Sprint(value)
		}
		conditions = append(conditions, qdrant.NewMatch(field, str))
	}
	return conditions
}

// Delete removes points by chunk ID
func (s *QdrantStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(pointID(id))
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return NewVectorStoreError("qdrant", "delete", err)
	}
	return nil
}

// Close shuts down the gRPC connection
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func decodePayload(payload map[string]*qdrant.Value) map[string]interface{} {
	if payload == nil {
		return nil
	}
	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		out[k] = decodeValue(v)
	}
	return out
}

func decodeValue(v *qdrant.Value) interface{} {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		list := make([]interface{}, len(values))
		for i, item := range values {
			list[i] = decodeValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return decodePayload(kind.StructValue.GetFields())
	default:
		return nil
	}
}
