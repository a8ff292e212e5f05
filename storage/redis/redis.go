package redis

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/entstore/storage"
)

var ErrNilClient = errors.New("redis storage: nil client")

const defaultHash = "entstore:data"

// Redis keeps every persisted entry as one field of a single Redis hash, so
// hydration is one HGETALL and a flush is one pipelined HSET/HDEL.
type Redis struct {
	rdb         goredis.UniversalClient
	hash        string
	closeClient bool
}

var _ storage.Storage = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	Hash        string // hash key; "" => "entstore:data"
	CloseClient bool   // set true only if this storage exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	h := cfg.Hash
	if h == "" {
		h = defaultHash
	}
	return &Redis{rdb: cfg.Client, hash: h, closeClient: cfg.CloseClient}, nil
}

func (s *Redis) WriteData(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}
	set := make(map[string]any, len(entries))
	var del []string
	for k, v := range entries {
		if v == nil {
			del = append(del, k)
		} else {
			set[k] = v
		}
	}
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		if len(set) > 0 {
			p.HSet(ctx, s.hash, set)
		}
		if len(del) > 0 {
			p.HDel(ctx, s.hash, del...)
		}
		return nil
	})
	return err
}

func (s *Redis) ReadData(ctx context.Context) (map[string][]byte, error) {
	res, err := s.rdb.HGetAll(ctx, s.hash).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(res))
	for k, v := range res {
		out[k] = []byte(v)
	}
	return out, nil
}

// Close releases the underlying redis client only when this storage owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (s *Redis) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
