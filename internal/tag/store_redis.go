package tag

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const tagKeyPrefix = "tag:"

// RedisStore persists tag records as Redis hashes under "tag:<id>". Suited to
// deployments that already run Redis and do not want a relational database.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed tag store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func tagKey(tagID string) string { return tagKeyPrefix + tagID }

func (s *RedisStore) FindByID(ctx context.Context, tagID string) (Record, error) {
	fields, err := s.client.HGetAll(ctx, tagKey(tagID)).Result()
	if err != nil {
		return Record{}, fmt.Errorf("find tag: %w", err)
	}
	if len(fields) == 0 {
		return Record{}, ErrNotFound
	}
	active, _ := strconv.ParseBool(fields["active"])
	return Record{
		TagID:        tagID,
		PIN:          fields["pin"],
		Active:       active,
		PINUpdatedAt: fields["pinUpdatedAt"],
	}, nil
}

func (s *RedisStore) Save(ctx context.Context, record Record) error {
	err := s.client.HSet(ctx, tagKey(record.TagID),
		"pin", record.PIN,
		"active", strconv.FormatBool(record.Active),
		"pinUpdatedAt", record.PINUpdatedAt,
	).Err()
	if err != nil {
		return fmt.Errorf("save tag: %w", err)
	}
	return nil
}

// UpdatePIN uses WATCH so the overwrite only commits while the stored PIN
// still equals currentPIN. A concurrent writer aborts the transaction and
// surfaces as ErrPINStale rather than a silent last-writer-wins.
func (s *RedisStore) UpdatePIN(ctx context.Context, tagID, currentPIN, newPIN, updatedAt string) error {
	key := tagKey(tagID)

	txn := func(tx *redis.Tx) error {
		stored, err := tx.HGet(ctx, key, "pin").Result()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read pin: %w", err)
		}
		if stored != currentPIN {
			return ErrPINStale
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "pin", newPIN, "pinUpdatedAt", updatedAt)
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txn, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrPINStale
	}
	if err != nil {
		return err
	}
	return nil
}
