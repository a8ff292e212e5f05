package entstore

import (
	"context"
	"errors"
	"testing"

	"github.com/unkn0wn-root/entstore/value"
)

type squashRec struct {
	layer   LayerKey
	entries int
}

type recHooks struct {
	NopHooks
	squashed  []squashRec
	collected int
	deferred  int
	persistFa int
	skipped   map[string]string
}

func (h *recHooks) LayerSquashed(k LayerKey, n int) {
	h.squashed = append(h.squashed, squashRec{k, n})
}
func (h *recHooks) EntitiesCollected(n int)  { h.collected += n }
func (h *recHooks) MaintenanceDeferred()     { h.deferred++ }
func (h *recHooks) PersistFailed(int, error) { h.persistFa++ }
func (h *recHooks) HydrateSkipped(key, reason string) {
	if h.skipped == nil {
		h.skipped = make(map[string]string)
	}
	h.skipped[key] = reason
}

func newTestStore(t *testing.T, mutate func(*Options)) *Store {
	t.Helper()
	var opts Options
	if mutate != nil {
		mutate(&opts)
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func writePass(t *testing.T, s *Store, opts PassOptions, fn func(p *Pass)) {
	t.Helper()
	p, err := s.BeginWrite(opts)
	if err != nil {
		t.Fatalf("BeginWrite: %v", err)
	}
	fn(p)
	if err := p.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
}

func readRecord(t *testing.T, s *Store, opts PassOptions, entity, field string) value.Value {
	t.Helper()
	p, err := s.BeginRead(opts)
	if err != nil {
		t.Fatalf("BeginRead: %v", err)
	}
	v, err := p.ReadRecord(entity, field)
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if err := p.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	return v
}

func mustWriteRecord(t *testing.T, p *Pass, entity, field string, v value.Value) {
	t.Helper()
	if err := p.WriteRecord(entity, field, v); err != nil {
		t.Fatalf("WriteRecord(%s, %s): %v", entity, field, err)
	}
}

func mustWriteLink(t *testing.T, p *Pass, entity, field string, v value.Value) {
	t.Helper()
	if err := p.WriteLink(entity, field, v); err != nil {
		t.Fatalf("WriteLink(%s, %s): %v", entity, field, err)
	}
}

func wantInt(t *testing.T, v value.Value, want int64) {
	t.Helper()
	if got, ok := v.Int(); !ok || got != want {
		t.Fatalf("want %d, got %v", want, v)
	}
}

// ==============================
// Pass lifecycle
// ==============================

func TestPassExclusive(t *testing.T) {
	s := newTestStore(t, nil)

	p, err := s.BeginRead(PassOptions{})
	if err != nil {
		t.Fatalf("BeginRead: %v", err)
	}
	if _, err := s.BeginWrite(PassOptions{}); !errors.Is(err, ErrPassActive) {
		t.Fatalf("second pass: want ErrPassActive, got %v", err)
	}
	if err := s.ReserveLayer(1, false); !errors.Is(err, ErrPassActive) {
		t.Fatalf("ReserveLayer during pass: want ErrPassActive, got %v", err)
	}
	if _, err := s.Collect(); !errors.Is(err, ErrPassActive) {
		t.Fatalf("Collect during pass: want ErrPassActive, got %v", err)
	}
	if _, err := s.Layers(); !errors.Is(err, ErrPassActive) {
		t.Fatalf("Layers during pass: want ErrPassActive, got %v", err)
	}
	if err := p.End(); err != nil {
		t.Fatalf("End: %v", err)
	}

	p2, err := s.BeginWrite(PassOptions{})
	if err != nil {
		t.Fatalf("BeginWrite after End: %v", err)
	}
	_ = p2.End()
}

func TestInvalidContext(t *testing.T) {
	s := newTestStore(t, nil)
	p, err := s.BeginWrite(PassOptions{})
	if err != nil {
		t.Fatalf("BeginWrite: %v", err)
	}
	if err := p.End(); err != nil {
		t.Fatalf("End: %v", err)
	}

	checks := map[string]error{
		"End":           p.End(),
		"WriteRecord":   p.WriteRecord("User:1", "name", value.String("x")),
		"WriteLink":     p.WriteLink("Query", "me", value.Ref("User:1")),
		"AdjustRefCnt":  p.AdjustRefCount("User:1", 1),
		"WriteType":     p.WriteType("User", "User:1"),
		"WriteConcrete": p.WriteConcreteType("Node", "User"),
	}
	for name, err := range checks {
		if !errors.Is(err, ErrInvalidContext) {
			t.Fatalf("%s after End: want ErrInvalidContext, got %v", name, err)
		}
	}
	if _, err := p.ReadRecord("User:1", "name"); !errors.Is(err, ErrInvalidContext) {
		t.Fatalf("ReadRecord after End: %v", err)
	}
	if _, err := p.ReadLink("Query", "me"); !errors.Is(err, ErrInvalidContext) {
		t.Fatalf("ReadLink after End: %v", err)
	}
	if _, err := p.Dependencies(); !errors.Is(err, ErrInvalidContext) {
		t.Fatalf("Dependencies after End: %v", err)
	}
	if _, err := p.InspectFields("User:1"); !errors.Is(err, ErrInvalidContext) {
		t.Fatalf("InspectFields after End: %v", err)
	}
	if _, err := p.MakeData(0, false); !errors.Is(err, ErrInvalidContext) {
		t.Fatalf("MakeData after End: %v", err)
	}

	var nilPass *Pass
	if _, err := nilPass.ReadRecord("User:1", "name"); !errors.Is(err, ErrInvalidContext) {
		t.Fatalf("nil pass: want ErrInvalidContext, got %v", err)
	}
}

func TestNewRejectsNegativeInterval(t *testing.T) {
	if _, err := New(Options{MaintenanceInterval: -1}); err == nil {
		t.Fatalf("expected error for negative interval")
	}
}

// ==============================
// Read/write resolution
// ==============================

func TestBaseReadWrite(t *testing.T) {
	s := newTestStore(t, nil)

	if v := readRecord(t, s, PassOptions{}, "User:1", "name"); v.Kind() != value.KindAbsent {
		t.Fatalf("unknown field should be absent, got %v", v)
	}

	writePass(t, s, PassOptions{}, func(p *Pass) {
		mustWriteRecord(t, p, "User:1", "name", value.String("Ada"))
	})
	if got, _ := readRecord(t, s, PassOptions{}, "User:1", "name").Str(); got != "Ada" {
		t.Fatalf("name=%q", got)
	}

	writePass(t, s, PassOptions{}, func(p *Pass) {
		mustWriteRecord(t, p, "User:1", "name", value.Absent)
	})
	if _, ok := s.records.base["User:1"]; ok {
		t.Fatalf("absent write into base must delete the entry")
	}
}

func TestOverlayTombstoneShadowsBase(t *testing.T) {
	s := newTestStore(t, nil)
	writePass(t, s, PassOptions{}, func(p *Pass) {
		mustWriteRecord(t, p, "User:1", "name", value.String("Ada"))
	})

	// optimistic (exclusive) layer deleting the field
	writePass(t, s, PassOptions{Layer: 1, Optimistic: true}, func(p *Pass) {
		if p.Layer() != 1 {
			t.Fatalf("optimistic pass must write into its layer, got %v", p.Layer())
		}
		mustWriteRecord(t, p, "User:1", "name", value.Absent)
	})

	if v := s.records.optimistic[1]["User:1"]["name"]; v.Kind() != value.KindTombstone {
		t.Fatalf("overlay should hold a tombstone, got %v", v)
	}
	if v := readRecord(t, s, PassOptions{}, "User:1", "name"); v.Kind() != value.KindAbsent {
		t.Fatalf("tombstone should shadow base, got %v", v)
	}
	// optimistic evaluation never sees exclusive layers
	if got, _ := readRecord(t, s, PassOptions{Optimistic: true}, "User:1", "name").Str(); got != "Ada" {
		t.Fatalf("optimistic read should see base, got %q", got)
	}

	if err := s.DiscardLayer(1); err != nil {
		t.Fatalf("DiscardLayer: %v", err)
	}
	if got, _ := readRecord(t, s, PassOptions{}, "User:1", "name").Str(); got != "Ada" {
		t.Fatalf("after discard want base value, got %q", got)
	}
	if len(layersOf(t, s)) != 0 {
		t.Fatalf("layers left: %v", layersOf(t, s))
	}
}

// TestCommutativeReplayRead builds base x=1, exclusive layer 5 (x=2) at the
// bottom, commutative layers 7 (x=3) and 9 (x=4) above it.
func TestCommutativeReplayRead(t *testing.T) {
	s := newTestStore(t, nil)
	writePass(t, s, PassOptions{}, func(p *Pass) {
		mustWriteRecord(t, p, "E:1", "x", value.Int(1))
	})
	writePass(t, s, PassOptions{Layer: 5, Optimistic: true}, func(p *Pass) {
		mustWriteRecord(t, p, "E:1", "x", value.Int(2))
	})
	for _, l := range []struct {
		key LayerKey
		x   int64
	}{{7, 3}, {9, 4}} {
		if err := s.ReserveLayer(l.key, false); err != nil {
			t.Fatalf("ReserveLayer(%v): %v", l.key, err)
		}
		writePass(t, s, PassOptions{Layer: l.key}, func(p *Pass) {
			mustWriteRecord(t, p, "E:1", "x", value.Int(l.x))
		})
	}

	// the exclusive tail blocks settlement
	layers := layersOf(t, s)
	if len(layers) != 3 || layers[0].Key != 9 || layers[1].Key != 7 || layers[2].Key != 5 {
		t.Fatalf("order=%v", layers)
	}

	wantInt(t, readRecord(t, s, PassOptions{}, "E:1", "x"), 4)
	wantInt(t, readRecord(t, s, PassOptions{Layer: 9}, "E:1", "x"), 4)
	// commutative layer 9 above 7 is skipped
	wantInt(t, readRecord(t, s, PassOptions{Layer: 7}, "E:1", "x"), 3)
	// 5 is exclusive: normal resolution
	wantInt(t, readRecord(t, s, PassOptions{Layer: 5}, "E:1", "x"), 4)

	// an exclusive layer above the bound layer always wins
	writePass(t, s, PassOptions{Layer: 11, Optimistic: true}, func(p *Pass) {
		mustWriteRecord(t, p, "E:1", "x", value.Int(5))
	})
	wantInt(t, readRecord(t, s, PassOptions{Layer: 7}, "E:1", "x"), 5)
	wantInt(t, readRecord(t, s, PassOptions{Optimistic: true}, "E:1", "x"), 4)

	if err := s.DiscardLayer(11); err != nil {
		t.Fatalf("DiscardLayer: %v", err)
	}
	wantInt(t, readRecord(t, s, PassOptions{Layer: 7}, "E:1", "x"), 3)
}

// ==============================
// Dependencies
// ==============================

func TestRootFieldDependency(t *testing.T) {
	s := newTestStore(t, nil)
	p, err := s.BeginWrite(PassOptions{})
	if err != nil {
		t.Fatalf("BeginWrite: %v", err)
	}
	mustWriteRecord(t, p, "Query", "field", value.Int(1))
	mustWriteRecord(t, p, "Query", "__typename", value.String("Query"))
	deps, _ := p.Dependencies()
	if len(deps) != 1 || deps[0] != "Query.field" {
		t.Fatalf("deps=%v", deps)
	}
	_ = p.End()

	if len(s.refCount) != 0 || len(s.gc) != 0 {
		t.Fatalf("refCount=%v gc=%v", s.refCount, s.gc)
	}
	if g := s.SnapshotGen("Query.field"); g != 1 {
		t.Fatalf("gen after write=%d want 1", g)
	}
}

func TestNoOpWriteTracksNothing(t *testing.T) {
	s := newTestStore(t, nil)
	writePass(t, s, PassOptions{}, func(p *Pass) {
		mustWriteRecord(t, p, "User:1", "tags", value.List(value.String("a")))
		mustWriteLink(t, p, "User:1", "friends", value.Refs("User:2", "User:3"))
	})

	p, err := s.BeginWrite(PassOptions{})
	if err != nil {
		t.Fatalf("BeginWrite: %v", err)
	}
	mustWriteRecord(t, p, "User:1", "tags", value.List(value.String("a")))
	mustWriteLink(t, p, "User:1", "friends", value.Refs("User:2", "User:3"))
	if deps, _ := p.Dependencies(); len(deps) != 0 {
		t.Fatalf("same-value writes must not track deps, got %v", deps)
	}
	_ = p.End()

	gens := s.SnapshotGens([]string{"User:1"})
	if gens["User:1"] != 1 {
		t.Fatalf("gen=%d want 1 (bumped once)", gens["User:1"])
	}
	if n := s.refCount["User:2"]; n != 1 {
		t.Fatalf("refCount(User:2)=%d want 1", n)
	}
}

func TestReadDependencies(t *testing.T) {
	s := newTestStore(t, nil)
	writePass(t, s, PassOptions{}, func(p *Pass) {
		mustWriteLink(t, p, "Query", "me", value.Ref("User:1"))
		mustWriteRecord(t, p, "User:1", "name", value.String("Ada"))
	})

	p, err := s.BeginRead(PassOptions{})
	if err != nil {
		t.Fatalf("BeginRead: %v", err)
	}
	if _, err := p.ReadLink("Query", "me"); err != nil {
		t.Fatalf("ReadLink: %v", err)
	}
	if _, err := p.ReadRecord("Query", "__typename"); err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if _, err := p.ReadRecord("User:1", "name"); err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	deps, _ := p.Dependencies()
	if len(deps) != 2 || deps[0] != "Query.me" || deps[1] != "User:1" {
		t.Fatalf("deps=%v", deps)
	}
	_ = p.End()

	// read passes never bump generations
	if g := s.SnapshotGen("Query.me"); g != 1 {
		t.Fatalf("gen=%d want 1", g)
	}
}

// ==============================
// Inspection & type registry
// ==============================

func TestInspectFieldsAndEntityKeys(t *testing.T) {
	s := newTestStore(t, nil)
	writePass(t, s, PassOptions{}, func(p *Pass) {
		mustWriteRecord(t, p, "User:1", "name", value.String("Ada"))
		mustWriteRecord(t, p, "User:1", "gone", value.Int(1))
		mustWriteLink(t, p, "User:1", `todos({"first":10})`, value.Refs("Todo:1"))
	})
	writePass(t, s, PassOptions{Layer: 3, Optimistic: true}, func(p *Pass) {
		mustWriteRecord(t, p, "User:1", "gone", value.Absent)
		mustWriteRecord(t, p, "User:2", "name", value.String("Bob"))
	})

	p, err := s.BeginRead(PassOptions{})
	if err != nil {
		t.Fatalf("BeginRead: %v", err)
	}
	defer p.End()

	infos, err := p.InspectFields("User:1")
	if err != nil {
		t.Fatalf("InspectFields: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("infos=%+v", infos)
	}
	if infos[0].FieldName != "todos" || infos[0].Arguments["first"] != float64(10) {
		t.Fatalf("link info=%+v", infos[0])
	}
	if infos[1].FieldKey != "name" {
		t.Fatalf("record info=%+v", infos[1])
	}

	keys, _ := p.EntityKeys()
	if len(keys) != 2 || keys[0] != "User:1" || keys[1] != "User:2" {
		t.Fatalf("entity keys=%v", keys)
	}
}

func fieldKeys(infos []FieldInfo) []string {
	out := make([]string, len(infos))
	for i, fi := range infos {
		out[i] = fi.FieldKey
	}
	return out
}

func TestInspectFieldsDiscoveryOrder(t *testing.T) {
	s := newTestStore(t, nil)
	writePass(t, s, PassOptions{}, func(p *Pass) {
		mustWriteRecord(t, p, "User:1", "zeta", value.Int(1))
		mustWriteRecord(t, p, "User:1", "alpha", value.Int(2))
		mustWriteLink(t, p, "User:1", "both", value.Ref("User:2"))
		mustWriteRecord(t, p, "User:1", "both", value.Int(3))
	})
	writePass(t, s, PassOptions{Layer: 3, Optimistic: true}, func(p *Pass) {
		mustWriteRecord(t, p, "User:1", "extra", value.Int(4))
		mustWriteRecord(t, p, "User:1", "beta", value.Int(5))
		mustWriteRecord(t, p, "User:1", "zeta", value.Int(6))
	})

	p, err := s.BeginRead(PassOptions{})
	if err != nil {
		t.Fatalf("BeginRead: %v", err)
	}
	defer p.End()

	infos, err := p.InspectFields("User:1")
	if err != nil {
		t.Fatalf("InspectFields: %v", err)
	}
	got := fieldKeys(infos)
	want := []string{"both", "zeta", "alpha", "extra", "beta"}
	if len(got) != len(want) {
		t.Fatalf("fields=%v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("fields=%v want %v", got, want)
		}
	}
}

func TestTypeRegistry(t *testing.T) {
	s := newTestStore(t, nil)
	writePass(t, s, PassOptions{}, func(p *Pass) {
		_ = p.WriteType("User", "User:2")
		_ = p.WriteType("User", "User:1")
		_ = p.WriteConcreteType("Node", "User")
		_ = p.WriteConcreteType("Node", "Todo")
	})

	p, _ := s.BeginRead(PassOptions{})
	defer p.End()
	users, _ := p.EntitiesOfType("User")
	if len(users) != 2 || users[0] != "User:1" || users[1] != "User:2" {
		t.Fatalf("users=%v", users)
	}
	concrete, _ := p.ConcreteTypes("Node")
	if len(concrete) != 2 || concrete[0] != "Todo" || concrete[1] != "User" {
		t.Fatalf("concrete=%v", concrete)
	}
	if none, _ := p.EntitiesOfType("Missing"); none != nil {
		t.Fatalf("unknown type should be empty, got %v", none)
	}
}
