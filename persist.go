package entstore

import (
	"context"
	"errors"
	"sort"

	"github.com/unkn0wn-root/entstore/internal/wire"
	"github.com/unkn0wn-root/entstore/value"
)

// flush writes the persistence delta to storage. Each pending key is read
// in optimistic-evaluation mode; a key with neither a link nor a record is
// sent as a tombstone (nil), and so is a value the codec rejects. On a write
// failure the keys stay pending. Callers hold mu with no pass open.
func (s *Store) flush(ctx context.Context) error {
	if s.storage == nil || s.hydrating || len(s.persist) == 0 {
		return nil
	}

	c := &cursor{mode: modeRead, optimistic: true}
	entries := make(map[string][]byte, len(s.persist))
	var (
		unencodable []string
		encodeErr   error
	)
	for key := range s.persist {
		entity, field, ok := s.keys.DeserializeKeyInfo(key)
		if !ok {
			s.log.Warn("dropping unparsable persist key", Fields{"key": key})
			continue
		}

		kind := wire.Link
		v := visible(s.getNode(&s.links, c, entity, field))
		if v.Missing() {
			kind = wire.Record
			v = visible(s.getNode(&s.records, c, entity, field))
		}
		if v.Missing() {
			entries[key] = nil
			continue
		}

		payload, err := s.codec.Encode(value.ToNode(v))
		if err != nil {
			s.log.Error("persist encode error", Fields{"key": key, "err": err})
			unencodable = append(unencodable, key)
			encodeErr = err
			entries[key] = nil
			continue
		}
		entries[key] = wire.Encode(kind, payload)
	}
	s.persist = make(map[string]struct{})

	if len(entries) == 0 {
		return nil
	}
	if err := s.storage.WriteData(ctx, entries); err != nil {
		for key := range entries {
			s.persist[key] = struct{}{}
		}
		s.log.Error("persist write error", Fields{"entries": len(entries), "err": err})
		s.hooks.PersistFailed(len(entries), err)
		return &PersistError{Entries: len(entries), Err: err}
	}
	s.log.Debug("persisted entries", Fields{"entries": len(entries)})
	if len(unencodable) > 0 {
		sort.Strings(unencodable)
		s.hooks.PersistFailed(len(unencodable), encodeErr)
		return &EncodeError{Keys: unencodable, Err: encodeErr}
	}
	return nil
}

// Flush writes the persistence delta right away.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pass != nil {
		return ErrPassActive
	}
	return s.flush(ctx)
}

// HydrateStats summarizes one Hydrate call.
type HydrateStats struct {
	Entries int // entries read from storage
	Written int // entries written into base
	Skipped int // corrupt or undecodable entries
}

// Hydrate loads persisted entries into the base layer. Entries whose key
// already holds a value (written while hydration was pending) are left
// alone. Afterwards the store leaves hydrating mode and settles any layers
// written in the meantime. Hydrate must be called at most once, and only
// when Options.Storage is set.
func (s *Store) Hydrate(ctx context.Context) (HydrateStats, error) {
	if s.storage == nil {
		return HydrateStats{}, errors.New("entstore: hydrate without storage")
	}

	s.mu.Lock()
	if s.pass != nil {
		s.mu.Unlock()
		return HydrateStats{}, ErrPassActive
	}
	if !s.hydrating {
		s.mu.Unlock()
		return HydrateStats{}, ErrAlreadyHydrated
	}
	st, err := s.hydrate(ctx)
	run := false
	if st.Written > 0 || len(s.persist) > 0 {
		run = s.markMaintenanceLocked()
	}
	s.mu.Unlock()

	if run {
		s.schedule(s.runScheduled)
	}
	return st, err
}

func (s *Store) hydrate(ctx context.Context) (HydrateStats, error) {
	var st HydrateStats
	data, err := s.storage.ReadData(ctx)
	if err != nil {
		// the store still leaves hydrating mode and starts from what it has
		s.log.Error("hydrate read error", Fields{"err": err})
	}

	c := &cursor{mode: modeWrite}
	st.Entries = len(data)
	for key, raw := range data {
		if raw == nil {
			continue
		}
		entity, field, ok := s.keys.DeserializeKeyInfo(key)
		if !ok {
			st.Skipped++
			s.hooks.HydrateSkipped(key, "key")
			continue
		}
		kind, payload, derr := wire.Decode(raw)
		if derr != nil {
			st.Skipped++
			s.hooks.HydrateSkipped(key, "corrupt")
			continue
		}
		n, derr := s.codec.Decode(payload)
		var v value.Value
		if derr == nil {
			v, derr = value.FromNode(n)
		}
		if derr != nil {
			st.Skipped++
			s.hooks.HydrateSkipped(key, "decode")
			continue
		}

		m := &s.records
		if kind == wire.Link {
			m = &s.links
		}
		if !visible(s.getNode(m, c, entity, field)).Missing() {
			continue
		}
		if kind == wire.Link {
			s.writeLink(c, entity, field, v)
		} else {
			s.writeRecord(c, entity, field, v)
			if tn, ok := v.Str(); ok && field == typenameField && entity != s.root {
				s.writeType(tn, entity)
			}
		}
		st.Written++
	}

	// hydrated entries are already durable; only squashes below are new
	s.hydrating = false
	squashed := s.settle()
	s.log.Info("store hydrated", Fields{
		"entries": st.Entries, "written": st.Written, "skipped": st.Skipped, "squashed": squashed,
	})
	return st, err
}
