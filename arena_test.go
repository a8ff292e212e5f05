package entstore

import "testing"

func TestMakeDataIdentity(t *testing.T) {
	s := newTestStore(t, nil)

	p, _ := s.BeginRead(PassOptions{})
	root, err := p.MakeData(0, false)
	if err != nil || root == 0 {
		t.Fatalf("MakeData: h=%d err=%v", root, err)
	}
	if again, _ := p.MakeData(root, false); again != root {
		t.Fatalf("owned container must be reused, got %d want %d", again, root)
	}
	list, _ := p.MakeData(0, true)
	if d, ok := s.Arena().Get(list); !ok || !d.List || d.Fields != nil {
		t.Fatalf("list container=%+v ok=%v", d, ok)
	}
	_ = p.End()

	p2, _ := s.BeginRead(PassOptions{})
	next, _ := p2.MakeData(root, false)
	if next == root {
		t.Fatalf("a new pass must build a new container")
	}
	if mapped, _ := p2.MakeData(root, false); mapped != next {
		t.Fatalf("src must map to the same replacement, got %d want %d", mapped, next)
	}
	if !p2.Owned(next) || p2.Owned(root) {
		t.Fatalf("ownership: next=%v root=%v", p2.Owned(next), p2.Owned(root))
	}
	_ = p2.End()
	if p2.Owned(next) {
		t.Fatalf("ended pass owns nothing")
	}
}

func TestArenaFreeReuse(t *testing.T) {
	a := NewArena()
	h1 := a.alloc(false)
	h2 := a.alloc(true)
	if a.Len() != 2 {
		t.Fatalf("len=%d", a.Len())
	}

	d, _ := a.Get(h1)
	d.Fields["id"] = "1"
	if got, _ := a.Get(h1); got.Fields["id"] != "1" {
		t.Fatalf("fields must be shared by reference, got %+v", got)
	}
	if !a.Set(h2, Data{List: true, Items: []any{1, 2}}) {
		t.Fatalf("Set on live handle failed")
	}

	a.Free(h1)
	if _, ok := a.Get(h1); ok {
		t.Fatalf("freed handle must not resolve")
	}
	if a.Set(h1, Data{}) {
		t.Fatalf("Set on freed handle must fail")
	}
	if h3 := a.alloc(false); h3 != h1 {
		t.Fatalf("freed slot should be reused: got %d want %d", h3, h1)
	}
	if _, ok := a.Get(0); ok {
		t.Fatalf("zero handle must not resolve")
	}
}
