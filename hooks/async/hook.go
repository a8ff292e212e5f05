// Package asynchook moves hook delivery off the pass path. Events are
// queued to a small worker pool and dropped when the queue is full.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{SkipEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	st, _ := entstore.New(entstore.Options{
//	    Storage: storage,
//	    Hooks:   hooks, // or raw when delivery cost is negligible
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/entstore"
)

type Hooks struct {
	inner entstore.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once

	dropped atomic.Uint64
}

var _ entstore.Hooks = (*Hooks)(nil)

func New(inner entstore.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains the queue and stops the workers. Events after Close are
// dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

// Dropped returns the number of events lost to a full queue.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	defer func() {
		// send on closed queue
		if recover() != nil {
			h.dropped.Add(1)
		}
	}()
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) LayerSquashed(k entstore.LayerKey, n int) {
	h.try(func() { h.inner.LayerSquashed(k, n) })
}
func (h *Hooks) EntitiesCollected(n int)        { h.try(func() { h.inner.EntitiesCollected(n) }) }
func (h *Hooks) PersistFailed(n int, err error) { h.try(func() { h.inner.PersistFailed(n, err) }) }
func (h *Hooks) HydrateSkipped(k, r string)     { h.try(func() { h.inner.HydrateSkipped(k, r) }) }
func (h *Hooks) GenBumpError(n int, err error)  { h.try(func() { h.inner.GenBumpError(n, err) }) }
func (h *Hooks) MaintenanceDeferred()           { h.try(func() { h.inner.MaintenanceDeferred() }) }
