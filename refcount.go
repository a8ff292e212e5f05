package entstore

import "github.com/unkn0wn-root/entstore/value"

// updateRC adjusts entity's reference count, clamped at zero, and keeps the
// GC set in sync: an entity is queued for collection exactly while its
// count is zero. The query root is never counted.
func (s *Store) updateRC(entity string, by int) {
	if entity == s.root {
		return
	}
	prev := s.refCount[entity]
	count := prev + by
	if count < 0 {
		count = 0
	}
	s.refCount[entity] = count
	if count == 0 {
		s.gc[entity] = struct{}{}
	} else if prev == 0 {
		delete(s.gc, entity)
	}
}

func (s *Store) updateRCForLink(link value.Value, by int) {
	link.EachRef(func(entity string) { s.updateRC(entity, by) })
}

// collect removes every queued entity whose count is still zero, cascading
// through the links it held. It does nothing while optimistic layers exist,
// since an overlay may still reference a queued entity.
func (s *Store) collect() int {
	if len(s.order) > 0 {
		return 0
	}
	collected := 0
	for len(s.gc) > 0 {
		for entity := range s.gc {
			delete(s.gc, entity)
			if s.refCount[entity] > 0 {
				continue
			}
			delete(s.refCount, entity)

			record := s.records.base[entity]
			links := s.links.base[entity]
			if record == nil && links == nil {
				continue
			}
			if tn, ok := record[typenameField].Str(); ok {
				if set := s.types[tn]; set != nil {
					delete(set, entity)
				}
			}
			s.records.dropEntity(entity)
			s.links.dropEntity(entity)

			if s.persisting() {
				for field := range record {
					s.persist[s.keys.SerializeKeys(entity, field)] = struct{}{}
				}
				for field := range links {
					s.persist[s.keys.SerializeKeys(entity, field)] = struct{}{}
				}
			}
			for _, v := range links {
				s.updateRCForLink(v, -1)
			}
			collected++
		}
	}

	if collected > 0 {
		s.log.Debug("gc collected entities", Fields{"count": collected})
		s.hooks.EntitiesCollected(collected)
	}
	return collected
}

// Collect runs garbage collection immediately and returns the number of
// entities removed. It is a no-op while optimistic layers exist.
func (s *Store) Collect() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pass != nil {
		return 0, ErrPassActive
	}
	return s.collect(), nil
}
