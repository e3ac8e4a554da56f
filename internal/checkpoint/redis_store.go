package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "vectorizer:checkpoint:"

// RedisStore persists snapshots as JSON strings in Redis. Suited to
// deployments where multiple server instances share ingestion work and a
// local checkpoint directory would not survive rescheduling.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, host string, port int, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client. Used by tests.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Load reads the snapshot for jobID; a missing key yields a zero snapshot
func (s *RedisStore) Load(ctx context.Context, jobID string) (Snapshot, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+jobID).Bytes()
	if err == redis.Nil {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, NewCheckpointError("load", jobID, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, NewCheckpointError("load", jobID, err)
	}
	return snap, nil
}

// Write replaces the snapshot for jobID. SET is atomic, so readers never
// observe a partial snapshot.
func (s *RedisStore) Write(ctx context.Context, jobID string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return NewCheckpointError("write", jobID, err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+jobID, data, 0).Err(); err != nil {
		return NewCheckpointError("write", jobID, err)
	}
	return nil
}

// Delete removes the snapshot for jobID; missing keys are ignored
func (s *RedisStore) Delete(ctx context.Context, jobID string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+jobID).Err(); err != nil {
		return NewCheckpointError("delete", jobID, err)
	}
	return nil
}

// Close releases the underlying Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
