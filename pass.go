package entstore

import "github.com/unkn0wn-root/entstore/value"

// Pass is one open read or write pass against a Store. It owns the store's
// data until End is called; every operation after End returns
// ErrInvalidContext. A Pass must not be shared between goroutines.
type Pass struct {
	s      *Store
	c      cursor
	closed bool

	owned map[Handle]struct{}
	remap map[Handle]Handle
}

func (p *Pass) check() error {
	if p == nil || p.closed {
		return ErrInvalidContext
	}
	return nil
}

// Layer returns the layer the pass is bound to after write-layer selection
// (0 = base).
func (p *Pass) Layer() LayerKey { return p.c.layer }

func (p *Pass) ReadRecord(entity, field string) (value.Value, error) {
	if err := p.check(); err != nil {
		return value.Absent, err
	}
	return p.s.readRecord(&p.c, entity, field), nil
}

// WriteRecord stores a scalar (or list of scalars). value.Absent deletes the
// field.
func (p *Pass) WriteRecord(entity, field string, v value.Value) error {
	if err := p.check(); err != nil {
		return err
	}
	p.s.writeRecord(&p.c, entity, field, v)
	return nil
}

func (p *Pass) ReadLink(entity, field string) (value.Value, error) {
	if err := p.check(); err != nil {
		return value.Absent, err
	}
	return p.s.readLink(&p.c, entity, field), nil
}

// WriteLink stores a reference (value.Ref), a possibly nested list of
// references, or value.Null. value.Absent deletes the link.
func (p *Pass) WriteLink(entity, field string, v value.Value) error {
	if err := p.check(); err != nil {
		return err
	}
	p.s.writeLink(&p.c, entity, field, v)
	return nil
}

// InspectFields lists the fields of entity that are visible to this pass,
// once each. Links are scanned before records; within each, base fields come
// first in write order, then the fields of each layer in priority order.
func (p *Pass) InspectFields(entity string) ([]FieldInfo, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	s := p.s
	if p.c.mode == modeRead {
		s.trackDependency(&p.c, entity, "")
	}

	var out []FieldInfo
	seen := make(map[string]struct{})
	for _, m := range []*nodeMap{&s.links, &s.records} {
		scan := func(names []string) {
			for _, field := range names {
				if _, dup := seen[field]; dup {
					continue
				}
				if s.getNode(m, &p.c, entity, field).Missing() {
					continue
				}
				seen[field] = struct{}{}
				out = append(out, s.keys.FieldInfoOfKey(field))
			}
		}
		scan(m.fieldsOf(0, entity))
		for _, k := range s.order {
			scan(m.fieldsOf(k, entity))
		}
	}
	return out, nil
}

// EntityKeys returns every entity key with data in base or any layer,
// sorted.
func (p *Pass) EntityKeys() ([]string, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	s := p.s
	set := make(map[string]struct{})
	for _, m := range []*nodeMap{&s.links, &s.records} {
		for entity := range m.base {
			set[entity] = struct{}{}
		}
		for _, overlay := range m.optimistic {
			for entity := range overlay {
				set[entity] = struct{}{}
			}
		}
	}
	return sortedKeys(set), nil
}

// Dependencies returns the keys touched so far, sorted.
func (p *Pass) Dependencies() ([]string, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	return sortedKeys(p.c.deps), nil
}

func (p *Pass) RefCount(entity string) (int, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	return p.s.refCount[entity], nil
}

// AdjustRefCount changes entity's reference count by delta, e.g. to retain
// an entity that is only referenced from outside the store. Counts never go
// below zero.
func (p *Pass) AdjustRefCount(entity string, delta int) error {
	if err := p.check(); err != nil {
		return err
	}
	p.s.updateRC(entity, delta)
	return nil
}

func (p *Pass) WriteType(typename, entity string) error {
	if err := p.check(); err != nil {
		return err
	}
	p.s.writeType(typename, entity)
	return nil
}

// EntitiesOfType returns the known entity keys of a concrete type, sorted.
func (p *Pass) EntitiesOfType(typename string) ([]string, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	return setMembers(p.s.types[typename]), nil
}

// WriteConcreteType records that concreteType satisfies abstractType.
func (p *Pass) WriteConcreteType(abstractType, concreteType string) error {
	if err := p.check(); err != nil {
		return err
	}
	p.s.writeConcreteType(abstractType, concreteType)
	return nil
}

func (p *Pass) ConcreteTypes(abstractType string) ([]string, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	return setMembers(p.s.abstract[abstractType]), nil
}

// MakeData returns the container to fill for a result fragment that a
// previous pass produced as src (0 for none). A container already built in
// this pass is returned as is, and src maps to the same replacement for
// the rest of the pass.
func (p *Pass) MakeData(src Handle, list bool) (Handle, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	if src != 0 {
		if _, ok := p.owned[src]; ok {
			return src, nil
		}
		if h, ok := p.remap[src]; ok {
			return h, nil
		}
	}
	h := p.s.arena.alloc(list)
	if src != 0 {
		p.remap[src] = h
	}
	p.owned[h] = struct{}{}
	return h, nil
}

// Owned reports whether h was produced by MakeData in this pass.
func (p *Pass) Owned(h Handle) bool {
	if p.check() != nil {
		return false
	}
	_, ok := p.owned[h]
	return ok
}

// End closes the pass. Closing a pass bound to a layer settles every
// contiguous run of dirty commutative layers at the bottom of the order.
// Write passes bump the generations of their dependencies and schedule
// maintenance.
func (p *Pass) End() error {
	if err := p.check(); err != nil {
		return err
	}
	p.closed = true
	p.s.end(p)
	p.owned = nil
	p.remap = nil
	return nil
}
