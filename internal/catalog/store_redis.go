package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/whereami/internal/whereami"
)

const maxTxRetries = 10

// RedisStore keeps the catalog as a JSON array under a single key so several
// server replicas can share it.
type RedisStore struct {
	client *redis.Client
	key    string
}

var (
	_ Store    = (*RedisStore)(nil)
	_ Appender = (*RedisStore)(nil)
)

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) ([]whereami.Location, error) {
	return s.load(ctx, s.client)
}

func (s *RedisStore) load(ctx context.Context, c redis.Cmdable) ([]whereami.Location, error) {
	data, err := c.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}

	var locs []whereami.Location
	if err := json.Unmarshal(data, &locs); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.key, err)
	}
	return locs, nil
}

func (s *RedisStore) Save(ctx context.Context, locs []whereami.Location) error {
	if locs == nil {
		locs = []whereami.Location{}
	}
	data, err := json.Marshal(locs)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// AppendIfAbsent runs the check-then-append inside an optimistic WATCH
// transaction, retrying when another writer touched the key first.
func (s *RedisStore) AppendIfAbsent(ctx context.Context, loc whereami.Location) (bool, error) {
	var added bool
	txf := func(tx *redis.Tx) error {
		added = false
		locs, err := s.load(ctx, tx)
		if err != nil {
			return err
		}
		if contains(locs, loc) {
			return nil
		}

		data, err := json.Marshal(append(locs, loc))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, data, 0)
			return nil
		})
		if err == nil {
			added = true
		}
		return err
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, s.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, err
		}
		return added, nil
	}
	return false, fmt.Errorf("appending to %s: too much contention", s.key)
}

// Ping lets the store double as a health checker.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
