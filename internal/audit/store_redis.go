package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	auditGlobalKey    = "audit:recent"
	auditTagKeyPrefix = "audit:tag:"
)

// RedisStore appends audit records as JSON to a global list plus a per-tag
// list for correlation lookups.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed audit store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Append(ctx context.Context, record Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, auditGlobalKey, payload)
	if record.TagID != "" {
		pipe.RPush(ctx, auditTagKeyPrefix+record.TagID, payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

func (s *RedisStore) ListByTag(ctx context.Context, tagID string) ([]Record, error) {
	return s.list(ctx, auditTagKeyPrefix+tagID, 0, -1)
}

func (s *RedisStore) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	return s.list(ctx, auditGlobalKey, int64(-limit), -1)
}

func (s *RedisStore) list(ctx context.Context, key string, start, stop int64) ([]Record, error) {
	raw, err := s.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	var records []Record
	for _, item := range raw {
		var record Record
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			return nil, fmt.Errorf("unmarshal audit record: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}
