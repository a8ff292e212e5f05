package promhooks

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/unkn0wn-root/entstore"
	"github.com/unkn0wn-root/entstore/value"
)

func TestCountsStoreEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := New(reg, "test")

	st, err := entstore.New(entstore.Options{Hooks: h})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer st.Close(context.Background())

	p, _ := st.BeginWrite(entstore.PassOptions{})
	_ = p.WriteLink("Query", "me", value.Ref("User:1"))
	_ = p.WriteRecord("User:1", "name", value.String("Ada"))
	_ = p.WriteLink("Query", "me", value.Absent)
	_ = p.End()

	if n, err := st.Collect(); err != nil || n != 1 {
		t.Fatalf("Collect: n=%d err=%v", n, err)
	}
	if got := testutil.ToFloat64(h.collected); got != 1 {
		t.Fatalf("collected=%v want 1", got)
	}

	h.HydrateSkipped("k", "corrupt")
	h.HydrateSkipped("k", "corrupt")
	if got := testutil.ToFloat64(h.hydrateSkip.WithLabelValues("corrupt")); got != 2 {
		t.Fatalf("hydrate skipped=%v want 2", got)
	}
	h.LayerSquashed(1, 4)
	if got := testutil.ToFloat64(h.squashEntries); got != 4 {
		t.Fatalf("squash entries=%v want 4", got)
	}
}
