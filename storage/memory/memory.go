// Package memory is an in-process Storage, useful in tests and for
// carrying persisted data across store instances within one process.
package memory

import (
	"context"
	"sync"

	"github.com/unkn0wn-root/entstore/storage"
)

type Storage struct {
	mu sync.RWMutex
	m  map[string][]byte

	writes int
}

var _ storage.Storage = (*Storage)(nil)

func New() *Storage { return &Storage{m: make(map[string][]byte)} }

func (s *Storage) WriteData(_ context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range entries {
		if v == nil {
			delete(s.m, k)
			continue
		}
		s.m[k] = append([]byte(nil), v...)
	}
	s.writes++
	return nil
}

func (s *Storage) ReadData(_ context.Context) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte, len(s.m))
	for k, v := range s.m {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

// Len returns the number of stored entries.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Writes returns how many batches have been applied.
func (s *Storage) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *Storage) Close(context.Context) error { return nil }
