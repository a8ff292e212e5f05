package entstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/unkn0wn-root/entstore/codec"
	gen "github.com/unkn0wn-root/entstore/genstore"
	"github.com/unkn0wn-root/entstore/storage"
	"github.com/unkn0wn-root/entstore/value"
)

const (
	defaultGenRetention = 30 * 24 * time.Hour
	defaultSweep        = time.Hour
)

// Store is the normalized, layered entity store. All reads and writes go
// through a Pass; at most one pass is open at a time.
type Store struct {
	root     string
	keys     KeyRegistry
	log      Logger
	hooks    Hooks
	storage  storage.Storage
	codec    codec.NodeCodec
	gen      gen.GenStore
	ownGen   bool
	schedule func(func())

	records nodeMap
	links   nodeMap

	// optimistic layers, index 0 = highest priority
	order       []LayerKey
	commutative map[LayerKey]struct{}
	dirty       map[LayerKey]struct{}
	deferred    map[LayerKey]struct{}

	refCount map[string]int
	gc       map[string]struct{}

	types    map[string]map[string]struct{}
	abstract map[string]map[string]struct{}

	persist   map[string]struct{}
	hydrating bool

	arena *Arena

	// mu guards pass, pending and scheduled. Everything above is owned by
	// the open pass, or by whoever holds mu while no pass is open.
	mu        sync.Mutex
	pass      *Pass
	pending   bool // maintenance work is due
	scheduled bool // a maintenance task is queued on the host executor

	ticker    *time.Ticker
	stopCh    chan struct{}
	closeWg   sync.WaitGroup
	closeOnce sync.Once
}

func newStore(opts Options) *Store {
	s := &Store{
		root:        coalesce(opts.RootKey, defaultRootKey),
		keys:        coalesce[KeyRegistry](opts.Keys, defaultKeys),
		log:         coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:       coalesce[Hooks](opts.Hooks, NopHooks{}),
		storage:     opts.Storage,
		codec:       coalesce[codec.NodeCodec](opts.Codec, codec.JSON[value.Node]{}),
		schedule:    opts.Schedule,
		records:     newNodeMap(),
		links:       newNodeMap(),
		commutative: make(map[LayerKey]struct{}),
		dirty:       make(map[LayerKey]struct{}),
		deferred:    make(map[LayerKey]struct{}),
		refCount:    make(map[string]int),
		gc:          make(map[string]struct{}),
		types:       make(map[string]map[string]struct{}),
		abstract:    make(map[string]map[string]struct{}),
		persist:     make(map[string]struct{}),
		hydrating:   opts.Storage != nil,
		arena:       NewArena(),
	}

	if opts.GenStore != nil {
		s.gen = opts.GenStore
	} else {
		// default to in-process generations with periodic cleanup
		s.gen = gen.NewLocalGenStore(
			coalesce(opts.CleanupInterval, defaultSweep),
			coalesce(opts.GenRetention, defaultGenRetention),
		)
		s.ownGen = true
	}

	if opts.MaintenanceInterval > 0 {
		s.ticker = time.NewTicker(opts.MaintenanceInterval)
		s.stopCh = make(chan struct{})
		s.closeWg.Add(1)
		go s.maintenanceLoop()
	}
	return s
}

// RootKey returns the query root entity key.
func (s *Store) RootKey() string { return s.root }

// Arena returns the store's result identity arena.
func (s *Store) Arena() *Arena { return s.arena }

// BeginRead opens a read pass. Reads in a read pass record dependencies.
func (s *Store) BeginRead(opts PassOptions) (*Pass, error) {
	return s.begin(modeRead, opts)
}

// BeginWrite opens a write pass. Writes record dependencies and persistence
// marks only when they change the visible value.
func (s *Store) BeginWrite(opts PassOptions) (*Pass, error) {
	return s.begin(modeWrite, opts)
}

func (s *Store) begin(m mode, opts PassOptions) (*Pass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pass != nil {
		return nil, ErrPassActive
	}

	p := &Pass{
		s: s,
		c: cursor{
			mode:       m,
			optimistic: opts.Optimistic,
			deps:       make(map[string]struct{}),
		},
		owned: make(map[Handle]struct{}),
		remap: make(map[Handle]Handle),
	}
	if m == modeRead {
		p.c.layer = opts.Layer
	} else if opts.Layer != 0 {
		p.c.layer = s.selectWriteLayer(opts.Layer, opts.Optimistic)
	}
	s.pass = p
	return p, nil
}

// selectWriteLayer decides whether a write pass for key goes to an overlay
// or straight to base, updating the layer's lifecycle accordingly.
func (s *Store) selectWriteLayer(key LayerKey, optimistic bool) LayerKey {
	if !optimistic && !s.hydrating && len(s.order) <= 1 {
		// nothing to order against; write base and drop stale overlay data
		s.deleteLayer(key)
		return 0
	}
	if !optimistic && !s.isCommutative(key) {
		// a concrete result for a key seen before only optimistically
		s.reserveLayer(key, false)
	} else if optimistic {
		if i := s.indexOf(key); i >= 0 && !s.isCommutative(key) {
			s.removeAt(i)
		}
		delete(s.commutative, key)
	}
	s.createLayer(key)
	return key
}

// end tears the pass down: settle layers, bump generations, release the
// pass slot and schedule maintenance.
func (s *Store) end(p *Pass) {
	squashed := 0
	if p.c.layer != 0 && !s.hydrating && s.indexOf(p.c.layer) >= 0 {
		squashed = s.settle()
	}

	if p.c.mode == modeWrite && len(p.c.deps) > 0 {
		s.bumpGens(sortedKeys(p.c.deps))
	}

	s.mu.Lock()
	s.pass = nil
	run := false
	if p.c.mode == modeWrite || squashed > 0 {
		run = s.markMaintenanceLocked()
	}
	s.mu.Unlock()

	if run {
		s.schedule(s.runScheduled)
	}
}

// markMaintenanceLocked flags maintenance as due and reports whether a new
// task must be handed to the host executor. Callers hold mu.
func (s *Store) markMaintenanceLocked() bool {
	if s.storage == nil && len(s.order) > 0 {
		// nothing to flush and GC would abort while layers exist
		return false
	}
	s.pending = true
	if s.scheduled || s.schedule == nil {
		return false
	}
	s.scheduled = true
	return true
}

func (s *Store) runScheduled() {
	s.mu.Lock()
	s.scheduled = false
	s.mu.Unlock()
	if err := s.Maintain(context.Background()); err != nil && err != ErrPassActive {
		s.log.Warn("scheduled maintenance failed", Fields{"err": err})
	}
}

func (s *Store) maintenanceLoop() {
	defer s.closeWg.Done()
	for {
		select {
		case <-s.ticker.C:
			s.mu.Lock()
			due := s.pending && !s.scheduled
			s.mu.Unlock()
			if due {
				if err := s.Maintain(context.Background()); err != nil && err != ErrPassActive {
					s.log.Warn("background maintenance failed", Fields{"err": err})
				}
			}
		case <-s.stopCh:
			return
		}
	}
}

// Maintain runs garbage collection and flushes the persistence delta. It
// returns ErrPassActive, leaving the work pending, when a pass is open.
func (s *Store) Maintain(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pass != nil {
		s.hooks.MaintenanceDeferred()
		return ErrPassActive
	}
	s.pending = false
	s.collect()
	if err := s.flush(ctx); err != nil {
		var enc *EncodeError
		if !errors.As(err, &enc) {
			// retry on the next run
			s.pending = true
		}
		return err
	}
	return nil
}

// MaintenancePending reports whether GC or a flush is due.
func (s *Store) MaintenancePending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// SnapshotGen returns the current generation of a dependency key.
func (s *Store) SnapshotGen(key string) uint64 {
	g, err := s.gen.Snapshot(context.Background(), key)
	if err != nil {
		// Conservative: 0 never matches a bumped generation
		s.log.Warn("gen snapshot error", Fields{"key": key, "err": err})
		return 0
	}
	return g
}

// SnapshotGens returns the current generations of dependency keys, e.g. the
// output of Pass.Dependencies for a result about to be cached.
func (s *Store) SnapshotGens(keys []string) map[string]uint64 {
	m, err := s.gen.SnapshotMany(context.Background(), keys)
	if err != nil {
		// conservative fallback: one by one
		out := make(map[string]uint64, len(keys))
		for _, k := range keys {
			out[k] = s.SnapshotGen(k)
		}
		return out
	}
	return m
}

func (s *Store) bumpGens(keys []string) {
	if err := s.gen.BumpMany(context.Background(), keys); err != nil {
		s.log.Error("gen bump error", Fields{"keys": len(keys), "err": err})
		s.hooks.GenBumpError(len(keys), err)
	}
}

// Close stops background maintenance, flushes pending persistence when no
// pass is open, and releases the generation store (when owned) and storage.
func (s *Store) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.closeWg.Wait()
			s.ticker.Stop()
		}
	})

	var flushErr error
	s.mu.Lock()
	if s.pass == nil {
		flushErr = s.flush(ctx)
	}
	s.mu.Unlock()

	if s.ownGen {
		_ = s.gen.Close(ctx)
	}
	if s.storage != nil {
		if err := s.storage.Close(ctx); err != nil {
			return err
		}
	}
	return flushErr
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
