// Package sloghooks logs store events through log/slog. Storage keys embed
// entity ids, so they are redacted to a short hash unless Options.Redact
// says otherwise.
package sloghooks

import (
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/unkn0wn-root/entstore"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SquashEvery uint64
	SkipEvery   uint64
	// Optional key redactor. Defaults to an xxhash64 hex digest.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	squashCtr atomic.Uint64
	skipCtr   atomic.Uint64
}

var _ entstore.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	return strconv.FormatUint(xxhash.Sum64String(k), 16)
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) LayerSquashed(layer entstore.LayerKey, entries int) {
	if h.l == nil || !sample(h.opts.SquashEvery, &h.squashCtr) {
		return
	}
	h.l.Debug("entstore.layer_squashed",
		"layer", uint64(layer),
		"entries", entries)
}

func (h *Hooks) EntitiesCollected(count int) {
	if h.l == nil {
		return
	}
	h.l.Debug("entstore.entities_collected", "count", count)
}

func (h *Hooks) PersistFailed(entries int, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("entstore.persist_failed",
		"entries", entries,
		"err", err)
}

func (h *Hooks) HydrateSkipped(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SkipEvery, &h.skipCtr) {
		return
	}
	h.l.Warn("entstore.hydrate_skipped",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) GenBumpError(count int, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("entstore.gen_bump_error",
		"count", count,
		"err", err)
}

func (h *Hooks) MaintenanceDeferred() {
	if h.l == nil {
		return
	}
	h.l.Debug("entstore.maintenance_deferred")
}
