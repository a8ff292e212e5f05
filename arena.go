package entstore

import "sync"

// Handle addresses a result container in an Arena. The zero Handle means
// "no container".
type Handle uint32

// Data is a result container: an object (Fields) or a list (Items). Its
// contents are filled by the caller; the arena only tracks identity.
type Data struct {
	List   bool
	Fields map[string]any
	Items  []any
}

// Arena holds result containers by value. Two result trees are unchanged
// exactly where they share handles, so consumers can compare handles
// instead of walking the trees.
type Arena struct {
	mu    sync.Mutex
	slots []Data // index 0 is reserved
	live  []bool
	free  []Handle
}

func NewArena() *Arena {
	return &Arena{slots: make([]Data, 1), live: make([]bool, 1)}
}

func (a *Arena) alloc(list bool) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	d := Data{List: list}
	if !list {
		d.Fields = make(map[string]any)
	}
	if n := len(a.free); n > 0 {
		h := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[h] = d
		a.live[h] = true
		return h
	}
	a.slots = append(a.slots, d)
	a.live = append(a.live, true)
	return Handle(len(a.slots) - 1)
}

func (a *Arena) valid(h Handle) bool {
	return h != 0 && int(h) < len(a.slots) && a.live[h]
}

// Get returns the container behind h.
func (a *Arena) Get(h Handle) (Data, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.valid(h) {
		return Data{}, false
	}
	return a.slots[h], true
}

// Set replaces the container behind h. It reports false for a freed or
// unknown handle.
func (a *Arena) Set(h Handle, d Data) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.valid(h) {
		return false
	}
	a.slots[h] = d
	return true
}

// Free releases h for reuse.
func (a *Arena) Free(h Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.valid(h) {
		return
	}
	a.slots[h] = Data{}
	a.live[h] = false
	a.free = append(a.free, h)
}

// Len returns the number of live containers.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.slots) - 1 - len(a.free)
}
