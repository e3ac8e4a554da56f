package vectordb

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"universal-vectorizer/internal/models"
)

// PgVectorStore persists vectors in Postgres with the pgvector extension.
// Each collection maps to one table (id text primary key, embedding
// vector, metadata jsonb); similarity uses cosine distance.
type PgVectorStore struct {
	pool  *pgxpool.Pool
	table string

	mu      sync.Mutex
	created bool
}

// NewPgVectorStore connects to Postgres and registers the vector type on
// every pooled connection.
func NewPgVectorStore(ctx context.Context, dsn, collection string) (*PgVectorStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, NewVectorStoreError("pgvector", "connect", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, NewVectorStoreError("pgvector", "connect", err)
	}

	return &PgVectorStore{pool: pool, table: tableName(collection)}, nil
}

// tableName maps a collection name to a safe SQL identifier
func tableName(collection string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(collection) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "c_" + name
	}
	return pgx.Identifier{name}.Sanitize()
}

// ensureTable creates the extension and table on first upsert, when the
// vector dimensionality is known.
func (s *PgVectorStore) ensureTable(ctx context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.created {
		return nil
	}

	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return err
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id text PRIMARY KEY,
		embedding vector(%d) NOT NULL,
		metadata jsonb NOT NULL DEFAULT '{}'::jsonb
	)`, s.table, dim)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return err
	}
	s.created = true
	return nil
}

// Upsert writes records, overwriting rows that share an ID
func (s *PgVectorStore) Upsert(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	if err := s.ensureTable(ctx, len(records[0].Embedding)); err != nil {
		return NewVectorStoreError("pgvector", "upsert", err)
	}

	batch := &pgx.Batch{}
	sql := fmt.Sprintf(`INSERT INTO %s (id, embedding, metadata) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata`, s.table)
	for _, record := range records {
		batch.Queue(sql, record.ID, pgvector.NewVector(record.Embedding), record.Metadata)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range records {
		if _, err := results.Exec(); err != nil {
			return NewVectorStoreError("pgvector", "upsert", err)
		}
	}
	return nil
}

// Query returns the topK nearest rows by cosine distance
func (s *PgVectorStore) Query(ctx context.Context, vector []float32, topK int, filters map[string]interface{}) ([]models.Match, error) {
	args := []interface{}{pgvector.NewVector(vector)}
	var where []string
	for field, value := range filters {
		args = append(args, field, fmt.Sprintf("%v", value))
		where = append(where, fmt.Sprintf("metadata->>$%d = $%d", len(args)-1, len(args)))
	}

	sql := fmt.Sprintf("SELECT id, metadata, embedding <=> $1 AS distance FROM %s", s.table)
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, topK)
	sql += fmt.Sprintf(" ORDER BY distance LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, NewVectorStoreError("pgvector", "query", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var match models.Match
		var distance float64
		if err := rows.Scan(&match.ID, &match.Metadata, &distance); err != nil {
			return nil, NewVectorStoreError("pgvector", "query", err)
		}
		match.Score = float32(distance)
		if text, ok := match.Metadata["text"].(string); ok {
			match.Text = text
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, NewVectorStoreError("pgvector", "query", err)
	}
	return matches, nil
}

// Delete removes rows by ID
func (s *PgVectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	sql := fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", s.table)
	if _, err := s.pool.Exec(ctx, sql, ids); err != nil {
		return NewVectorStoreError("pgvector", "delete", err)
	}
	return nil
}

// Close drains the connection pool
func (s *PgVectorStore) Close() error {
	s.pool.Close()
	return nil
}
