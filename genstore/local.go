package genstore

import (
	"context"
	"sync"
	"time"
)

type generation struct {
	n       uint64
	touched time.Time
}

// LocalGenStore keeps generations in process. It is the store's default.
// An optional sweep prunes keys no write pass touched within the retention
// window; a pruned key reads as 0 again, which costs a cached result at
// most one extra miss.
type LocalGenStore struct {
	mu   sync.RWMutex
	gens map[string]generation

	stop     chan struct{}
	stopOnce sync.Once
	done     sync.WaitGroup
}

var _ GenStore = (*LocalGenStore)(nil)

// NewLocalGenStore starts a sweep every cleanupInterval when both arguments
// are positive.
func NewLocalGenStore(cleanupInterval, retention time.Duration) *LocalGenStore {
	s := &LocalGenStore{gens: make(map[string]generation), stop: make(chan struct{})}
	if cleanupInterval > 0 && retention > 0 {
		s.done.Add(1)
		go s.sweep(cleanupInterval, retention)
	}
	return s
}

func (s *LocalGenStore) sweep(every, retention time.Duration) {
	defer s.done.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.Cleanup(retention)
		case <-s.stop:
			return
		}
	}
}

func (s *LocalGenStore) Snapshot(_ context.Context, key string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gens[key].n, nil
}

func (s *LocalGenStore) SnapshotMany(_ context.Context, keys []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(keys))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range keys {
		out[k] = s.gens[k].n
	}
	return out, nil
}

// BumpMany increments every key once under a single lock, so a reader never
// observes half of a pass's invalidation.
func (s *LocalGenStore) BumpMany(_ context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		g := s.gens[k]
		s.gens[k] = generation{n: g.n + 1, touched: now}
	}
	return nil
}

func (s *LocalGenStore) Cleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-retention)
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, g := range s.gens {
		if g.touched.Before(cutoff) {
			delete(s.gens, k)
		}
	}
}

// Len returns the number of tracked keys.
func (s *LocalGenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.gens)
}

// Close stops the sweep. It is safe to call more than once.
func (s *LocalGenStore) Close(context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.done.Wait()
	return nil
}
