package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const purgeBatch = 500

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisCache shares rendered projections between API replicas.
type RedisCache struct {
	cli *redis.Client
}

func NewRedisCache(cfg RedisConfig) *RedisCache {
	return &RedisCache{cli: redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})}
}

func (r *RedisCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.cli.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.cli.Set(ctx, key, value, ttl).Err()
}

// PurgeRun unlinks every projection of runID, scanning in batches so a large
// keyspace never blocks the server.
func (r *RedisCache) PurgeRun(ctx context.Context, runID string) (int, error) {
	iter := r.cli.Scan(ctx, 0, RunPrefix(runID)+"*", purgeBatch).Iterator()
	keys := make([]string, 0, purgeBatch)
	n := 0
	flush := func() error {
		if len(keys) == 0 {
			return nil
		}
		if err := r.cli.Unlink(ctx, keys...).Err(); err != nil {
			return err
		}
		n += len(keys)
		keys = keys[:0]
		return nil
	}
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == purgeBatch {
			if err := flush(); err != nil {
				return n, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return n, err
	}
	return n, flush()
}

func (r *RedisCache) Ping(ctx context.Context) error { return r.cli.Ping(ctx).Err() }

func (r *RedisCache) Close() error { return r.cli.Close() }

var (
	_ BytesCache = (*RedisCache)(nil)
	_ RunPurger  = (*RedisCache)(nil)
	_ BytesCache = (*TTLCache)(nil)
	_ RunPurger  = (*TTLCache)(nil)
)
