package entstore

import "github.com/unkn0wn-root/entstore/value"

type mode uint8

const (
	modeRead mode = iota
	modeWrite
)

// cursor is the per-pass resolution context. For write passes layer is the
// write target (0 = base); for read passes it is the layer the read is
// bound to.
type cursor struct {
	mode       mode
	layer      LayerKey
	optimistic bool
	// replay tracks dependencies by the stored change only
	replay bool
	deps   map[string]struct{}
}

type fields map[string]value.Value

// nodeMap holds one kind of data (records or links): a base map plus one
// overlay per optimistic layer.
type nodeMap struct {
	base       map[string]fields
	optimistic map[LayerKey]map[string]fields
	// field keys per layer (0 = base) and entity, in first-write order
	seq map[LayerKey]map[string][]string
}

func newNodeMap() nodeMap {
	return nodeMap{
		base:       make(map[string]fields),
		optimistic: make(map[LayerKey]map[string]fields),
		seq:        make(map[LayerKey]map[string][]string),
	}
}

func (m *nodeMap) fieldsOf(layer LayerKey, entity string) []string {
	return m.seq[layer][entity]
}

func (m *nodeMap) remember(layer LayerKey, entity, field string) {
	byEntity := m.seq[layer]
	if byEntity == nil {
		byEntity = make(map[string][]string)
		m.seq[layer] = byEntity
	}
	byEntity[entity] = append(byEntity[entity], field)
}

func (m *nodeMap) forget(layer LayerKey, entity, field string) {
	byEntity := m.seq[layer]
	names := byEntity[entity]
	for i, f := range names {
		if f == field {
			names = append(names[:i:i], names[i+1:]...)
			break
		}
	}
	if len(names) == 0 {
		delete(byEntity, entity)
	} else {
		byEntity[entity] = names
	}
}

// dropLayer removes the overlay of layer.
func (m *nodeMap) dropLayer(layer LayerKey) {
	delete(m.optimistic, layer)
	delete(m.seq, layer)
}

// dropEntity removes entity from base.
func (m *nodeMap) dropEntity(entity string) {
	delete(m.base, entity)
	delete(m.seq[0], entity)
}

// getNode resolves (entity, field) through the overlays in priority order,
// then base. The result may be a Tombstone from an overlay.
func (s *Store) getNode(m *nodeMap, c *cursor, entity, field string) value.Value {
	// A read bound to a commutative layer skips the commutative layers
	// above it. Exclusive layers are never skipped.
	skip := !c.optimistic && c.mode == modeRead && c.layer != 0 && s.isCommutative(c.layer)
	for _, k := range s.order {
		skip = skip && k != c.layer
		overlay := m.optimistic[k]
		if overlay == nil {
			continue
		}
		commutative := s.isCommutative(k)
		if skip && commutative {
			continue
		}
		// optimistic evaluation never observes exclusive layers
		if c.optimistic && c.mode != modeWrite && !commutative {
			continue
		}
		if node, ok := overlay[entity]; ok {
			if v, ok := node[field]; ok {
				return v
			}
		}
	}
	return m.base[entity][field]
}

// getBeneath resolves (entity, field) from layer downwards, ignoring every
// layer above it. Layer 0 reads base only.
func (s *Store) getBeneath(m *nodeMap, layer LayerKey, entity, field string) value.Value {
	if layer != 0 {
		if i := s.indexOf(layer); i >= 0 {
			for _, k := range s.order[i:] {
				if v, ok := m.optimistic[k][entity][field]; ok {
					return v
				}
			}
		}
	}
	return m.base[entity][field]
}

// setNode writes into the overlay for target, or base when target is 0.
// Missing values delete from base and tombstone overlays.
func (s *Store) setNode(m *nodeMap, target LayerKey, entity, field string, v value.Value) {
	km := m.base
	if target != 0 {
		km = m.optimistic[target]
		if km == nil {
			km = make(map[string]fields)
			m.optimistic[target] = km
		}
	}

	if v.Missing() {
		if target == 0 {
			if node := km[entity]; node != nil {
				if _, ok := node[field]; ok {
					delete(node, field)
					m.forget(0, entity, field)
				}
				if len(node) == 0 {
					delete(km, entity)
				}
			}
			return
		}
		v = value.Tombstone()
	}

	node := km[entity]
	if node == nil {
		node = make(fields)
		km[entity] = node
	}
	if _, ok := node[field]; !ok {
		m.remember(target, entity, field)
	}
	node[field] = v
}

// visible normalises tombstones to Absent.
func visible(v value.Value) value.Value {
	if v.Missing() {
		return value.Absent
	}
	return v
}

func (s *Store) readRecord(c *cursor, entity, field string) value.Value {
	if c.mode == modeRead {
		s.trackDependency(c, entity, field)
	}
	return visible(s.getNode(&s.records, c, entity, field))
}

func (s *Store) readLink(c *cursor, entity, field string) value.Value {
	if c.mode == modeRead {
		s.trackDependency(c, entity, field)
	}
	return visible(s.getNode(&s.links, c, entity, field))
}

// changes compares v with what a write through c replaces. seen reports a
// change to the value this pass observes; stored reports a change to the
// target layer and what lies beneath it, which is what persistence
// eventually reads once the layers above are gone.
func (s *Store) changes(m *nodeMap, c *cursor, entity, field string, v value.Value) (seen, stored bool) {
	next := visible(v)
	stored = !value.Equal(visible(s.getBeneath(m, c.layer, entity, field)), next)
	if c.replay {
		return stored, stored
	}
	return !value.Equal(visible(s.getNode(m, c, entity, field)), next), stored
}

func (s *Store) writeRecord(c *cursor, entity, field string, v value.Value) {
	seen, stored := s.changes(&s.records, c, entity, field, v)
	if seen {
		s.trackDependency(c, entity, field)
	}
	if stored {
		s.markPersist(c, entity, field)
	}
	s.setNode(&s.records, c.layer, entity, field, v)
}

func (s *Store) writeLink(c *cursor, entity, field string, v value.Value) {
	if c.layer == 0 {
		s.updateRCForLink(s.links.base[entity][field], -1)
		s.updateRCForLink(v, 1)
	}
	seen, stored := s.changes(&s.links, c, entity, field, v)
	if seen {
		s.trackDependency(c, entity, field)
	}
	if stored {
		s.markPersist(c, entity, field)
	}
	s.setNode(&s.links, c.layer, entity, field, v)
}

// trackDependency records the touched key: the entity itself, or for the
// query root the joined root field key. Root __typename is never tracked.
func (s *Store) trackDependency(c *cursor, entity, field string) {
	if c.deps == nil {
		return
	}
	if entity != s.root {
		c.deps[entity] = struct{}{}
	} else if field != "" && field != typenameField {
		c.deps[s.keys.JoinKeys(entity, field)] = struct{}{}
	}
}

func (s *Store) persisting() bool { return s.storage != nil && !s.hydrating }

func (s *Store) markPersist(c *cursor, entity, field string) {
	if !c.optimistic && s.persisting() {
		s.persist[s.keys.SerializeKeys(entity, field)] = struct{}{}
	}
}
