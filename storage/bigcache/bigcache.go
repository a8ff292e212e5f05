package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/entstore/storage"
)

// Storage keeps persisted entries in an off-heap BigCache. Entries survive
// store restarts within the process and are subject to BigCache's global
// LifeWindow; expired entries simply do not hydrate.
type Storage struct {
	c *bc.BigCache
}

var _ storage.Storage = (*Storage)(nil)

const defaultLifeWindow = 24 * time.Hour

type Config struct {
	LifeWindow         time.Duration // 0 => 24h
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(ctx context.Context, cfg Config) (*Storage, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = defaultLifeWindow
	}
	conf := bc.DefaultConfig(life)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	conf.Verbose = false
	c, err := bc.New(ctx, conf)
	if err != nil {
		return nil, err
	}
	return &Storage{c: c}, nil
}

func (s *Storage) WriteData(_ context.Context, entries map[string][]byte) error {
	var errs []error
	for k, v := range entries {
		if v == nil {
			if err := s.c.Delete(k); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
				errs = append(errs, err)
			}
			continue
		}
		if err := s.c.Set(k, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Storage) ReadData(_ context.Context) (map[string][]byte, error) {
	out := make(map[string][]byte, s.c.Len())
	it := s.c.Iterator()
	for it.SetNext() {
		e, err := it.Value()
		if err != nil {
			// entry evicted between SetNext and Value
			continue
		}
		out[e.Key()] = append([]byte(nil), e.Value()...)
	}
	return out, nil
}

func (s *Storage) Close(_ context.Context) error {
	return s.c.Close()
}
