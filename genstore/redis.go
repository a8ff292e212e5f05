package genstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGenStore shares dependency-key generations between store instances
// that hydrate from the same backend. With a TTL, keys nobody bumps expire
// and read as 0 again.
type RedisGenStore struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ GenStore = (*RedisGenStore)(nil)

func NewRedisGenStore(client redis.UniversalClient, namespace string) *RedisGenStore {
	return NewRedisGenStoreWithTTL(client, namespace, 0)
}

// NewRedisGenStoreWithTTL refreshes the expiry of every key it bumps. ttl <= 0
// disables expiry.
func NewRedisGenStoreWithTTL(client redis.UniversalClient, namespace string, ttl time.Duration) *RedisGenStore {
	return &RedisGenStore{rdb: client, prefix: "entstore:gen:" + namespace + ":", ttl: ttl}
}

func (s *RedisGenStore) redisKeys(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = s.prefix + k
	}
	return out
}

func parseGen(key string, raw any) (uint64, error) {
	var str string
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		str = fmt.Sprint(v)
	}
	g, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("genstore: bad generation for %q: %w", key, err)
	}
	return g, nil
}

func (s *RedisGenStore) Snapshot(ctx context.Context, key string) (uint64, error) {
	raw, err := s.rdb.Get(ctx, s.prefix+key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return parseGen(key, raw)
}

// SnapshotMany reads all keys with one MGET.
func (s *RedisGenStore) SnapshotMany(ctx context.Context, keys []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := s.rdb.MGet(ctx, s.redisKeys(keys)...).Result()
	if err != nil {
		return nil, err
	}
	for i, raw := range vals {
		g, err := parseGen(keys[i], raw)
		if err != nil {
			return nil, err
		}
		out[keys[i]] = g
	}
	return out, nil
}

// BumpMany increments every key inside one MULTI/EXEC, so other stores see
// all of a write pass's bumps or none of them.
func (s *RedisGenStore) BumpMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, rk := range s.redisKeys(keys) {
			p.Incr(ctx, rk)
			if s.ttl > 0 {
				p.Expire(ctx, rk, s.ttl)
			}
		}
		return nil
	})
	return err
}

// Cleanup is a no-op; Redis expires keys itself when a TTL is set.
func (s *RedisGenStore) Cleanup(time.Duration) {}

func (s *RedisGenStore) Close(context.Context) error { return s.rdb.Close() }
