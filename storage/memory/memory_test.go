package memory

import (
	"context"
	"testing"
)

func TestWriteDataTombstonesDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.WriteData(ctx, map[string][]byte{"a.x": []byte("=1"), "b.y": []byte("=2")}); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteData(ctx, map[string][]byte{"a.x": nil}); err != nil {
		t.Fatal(err)
	}
	got, err := s.ReadData(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || string(got["b.y"]) != "=2" {
		t.Fatalf("unexpected data %v", got)
	}
	if s.Writes() != 2 {
		t.Fatalf("writes=%d want 2", s.Writes())
	}
}

func TestReadDataCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	in := []byte("=1")
	_ = s.WriteData(ctx, map[string][]byte{"k.f": in})
	in[1] = '9'
	got, _ := s.ReadData(ctx)
	got["k.f"][1] = '8'
	again, _ := s.ReadData(ctx)
	if string(again["k.f"]) != "=1" {
		t.Fatalf("storage aliases caller slices: %q", again["k.f"])
	}
}
