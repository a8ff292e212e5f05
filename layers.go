package entstore

func (s *Store) isCommutative(k LayerKey) bool {
	_, ok := s.commutative[k]
	return ok
}

func (s *Store) isDirty(k LayerKey) bool {
	_, ok := s.dirty[k]
	return ok
}

func (s *Store) isDeferred(k LayerKey) bool {
	_, ok := s.deferred[k]
	return ok
}

func (s *Store) indexOf(k LayerKey) int {
	for i, o := range s.order {
		if o == k {
			return i
		}
	}
	return -1
}

func (s *Store) removeAt(i int) {
	s.order = append(s.order[:i], s.order[i+1:]...)
}

func (s *Store) insertAt(i int, k LayerKey) {
	s.order = append(s.order, 0)
	copy(s.order[i+1:], s.order[i:])
	s.order[i] = k
}

// createLayer makes sure key has overlays and is marked dirty. A key not yet
// in the order is placed at the top.
func (s *Store) createLayer(k LayerKey) {
	if s.indexOf(k) < 0 {
		s.insertAt(0, k)
	}
	if !s.isDirty(k) {
		s.dirty[k] = struct{}{}
		s.records.optimistic[k] = make(map[string]fields)
		s.links.optimistic[k] = make(map[string]fields)
	}
}

// clearLayer drops the overlay content of key but keeps its place in the
// order.
func (s *Store) clearLayer(k LayerKey) {
	if s.isDirty(k) {
		delete(s.dirty, k)
		s.records.dropLayer(k)
		s.links.dropLayer(k)
		delete(s.deferred, k)
	}
}

// deleteLayer removes key from the order and the commutative set, then
// clears it.
func (s *Store) deleteLayer(k LayerKey) {
	if i := s.indexOf(k); i >= 0 {
		s.removeAt(i)
		delete(s.commutative, k)
	}
	s.clearLayer(k)
}

// reserveLayer (re)inserts key as a commutative layer.
//
// With hasNext the layer expects more incremental results: it is moved
// below layers that are still waiting for their first data, right before
// the first layer that is deferred or already holds commutative data.
// Without hasNext it becomes the top layer; an exclusive layer turning
// commutative loses its optimistic content first.
func (s *Store) reserveLayer(k LayerKey, hasNext bool) {
	index := s.indexOf(k)
	if index >= 0 {
		s.removeAt(index)
	}

	if hasNext {
		s.deferred[k] = struct{}{}
		if index < 0 {
			index = 0
		}
		for ; index < len(s.order); index++ {
			o := s.order[index]
			if s.isDeferred(o) || (s.isDirty(o) && s.isCommutative(o)) {
				break
			}
		}
	} else {
		delete(s.deferred, k)
		if index >= 0 && !s.isCommutative(k) {
			s.clearLayer(k)
		}
		index = 0
	}

	s.insertAt(index, k)
	s.commutative[k] = struct{}{}
}

// squashLayer replays every entry of key's overlays as writes into the next
// lower layer (or base), then deletes key. The replay runs as its own write
// pass with its dependencies discarded. Its changed-value test looks only at
// the target and below, so a layer above holding the same value never hides
// a base change from persistence.
func (s *Store) squashLayer(k LayerKey) int {
	var target LayerKey
	if i := s.indexOf(k); i >= 0 && i+1 < len(s.order) {
		target = s.order[i+1]
	}
	links, linkSeq := s.links.optimistic[k], s.links.seq[k]
	records, recordSeq := s.records.optimistic[k], s.records.seq[k]
	s.deleteLayer(k)

	if len(links) == 0 && len(records) == 0 {
		return 0
	}
	if target != 0 {
		s.createLayer(target)
	}

	c := &cursor{mode: modeWrite, layer: target, replay: true, deps: make(map[string]struct{})}
	n := 0
	for entity, node := range links {
		for _, field := range linkSeq[entity] {
			s.writeLink(c, entity, field, node[field])
			n++
		}
	}
	for entity, node := range records {
		for _, field := range recordSeq[entity] {
			s.writeRecord(c, entity, field, node[field])
			n++
		}
	}

	s.log.Debug("layer squashed", Fields{"layer": k, "target": target, "entries": n})
	s.hooks.LayerSquashed(k, n)
	return n
}

// settle squashes the contiguous run of dirty commutative layers at the
// bottom of the order, lowest priority first. A layer that is clean or
// exclusive stops the run, so later operations never become durable before
// earlier ones produced data.
func (s *Store) settle() int {
	squashed := 0
	for len(s.order) > 0 {
		k := s.order[len(s.order)-1]
		if !s.isDirty(k) || !s.isCommutative(k) {
			break
		}
		s.squashLayer(k)
		squashed++
	}
	return squashed
}

// ReserveLayer registers key as a commutative layer ahead of its first
// write. hasNext marks a layer that expects further incremental results.
func (s *Store) ReserveLayer(key LayerKey, hasNext bool) error {
	if key == 0 {
		return ErrInvalidLayer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pass != nil {
		return ErrPassActive
	}
	s.reserveLayer(key, hasNext)
	return nil
}

// DiscardLayer drops key and all of its optimistic data, e.g. when the
// mutation that owned it failed.
func (s *Store) DiscardLayer(key LayerKey) error {
	if key == 0 {
		return ErrInvalidLayer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pass != nil {
		return ErrPassActive
	}
	s.deleteLayer(key)
	if s.persisting() || len(s.order) == 0 {
		s.pending = true
	}
	return nil
}

// SquashLayer commits key into the layer below it (or base) right away,
// regardless of settlement order. Squashing an empty layer just removes it.
func (s *Store) SquashLayer(key LayerKey) error {
	if key == 0 {
		return ErrInvalidLayer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pass != nil {
		return ErrPassActive
	}
	s.squashLayer(key)
	s.pending = true
	return nil
}

// Layers returns the optimistic layers in priority order. It returns
// ErrPassActive while a pass is open.
func (s *Store) Layers() ([]LayerInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pass != nil {
		return nil, ErrPassActive
	}
	out := make([]LayerInfo, len(s.order))
	for i, k := range s.order {
		out[i] = LayerInfo{
			Key:         k,
			Commutative: s.isCommutative(k),
			Deferred:    s.isDeferred(k),
			Dirty:       s.isDirty(k),
		}
	}
	return out, nil
}
