package ristretto

import (
	"context"
	"errors"
	"sync"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/entstore/storage"
)

// Storage keeps persisted entries in a cost-bounded Ristretto cache. Ristretto
// may refuse or evict entries under pressure, which only means fewer entries
// hydrate. Ristretto cannot enumerate its keys, so a key index is kept beside
// it and pruned lazily on ReadData.
type Storage struct {
	c *rc.Cache

	mu  sync.Mutex
	idx map[string]struct{}
}

var _ storage.Storage = (*Storage)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64 // cost of an entry is its byte length
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Storage, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Storage{c: c, idx: make(map[string]struct{})}, nil
}

func (s *Storage) WriteData(_ context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range entries {
		if v == nil {
			s.c.Del(k)
			delete(s.idx, k)
			continue
		}
		if s.c.Set(k, append([]byte(nil), v...), int64(len(v))) {
			s.idx[k] = struct{}{}
		}
	}
	// make admitted writes visible to the next ReadData
	s.c.Wait()
	return nil
}

func (s *Storage) ReadData(_ context.Context) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]byte, len(s.idx))
	for k := range s.idx {
		v, ok := s.c.Get(k)
		b, _ := v.([]byte)
		if !ok || b == nil {
			delete(s.idx, k)
			continue
		}
		out[k] = append([]byte(nil), b...)
	}
	return out, nil
}

func (s *Storage) Close(_ context.Context) error {
	s.c.Wait()
	s.c.Close()
	return nil
}

// Metrics exposes Ristretto's counters when Config.Metrics is set.
func (s *Storage) Metrics() *rc.Metrics { return s.c.Metrics }
