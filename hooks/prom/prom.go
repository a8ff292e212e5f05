// Package promhooks exports store events as Prometheus metrics.
package promhooks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/unkn0wn-root/entstore"
)

type Hooks struct {
	squashes      prometheus.Counter
	squashEntries prometheus.Counter
	collected     prometheus.Counter
	persistFailed prometheus.Counter
	hydrateSkip   *prometheus.CounterVec
	genBumpErrors prometheus.Counter
	deferred      prometheus.Counter
}

var _ entstore.Hooks = (*Hooks)(nil)

// New registers the store metrics with reg (prometheus.DefaultRegisterer
// when nil). namespace prefixes every metric name.
func New(reg prometheus.Registerer, namespace string) *Hooks {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entstore",
			Name:      name,
			Help:      help,
		})
	}
	return &Hooks{
		squashes:      counter("layer_squashes_total", "Optimistic layers squashed into the layer below or base"),
		squashEntries: counter("layer_squash_entries_total", "Links and records replayed by layer squashes"),
		collected:     counter("entities_collected_total", "Unreferenced entities removed by GC"),
		persistFailed: counter("persist_failures_total", "Persistence flushes rejected by storage"),
		hydrateSkip: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entstore",
			Name:      "hydrate_skipped_total",
			Help:      "Persisted entries skipped during hydration",
		}, []string{"reason"}),
		genBumpErrors: counter("gen_bump_errors_total", "Failed generation bumps after write passes"),
		deferred:      counter("maintenance_deferred_total", "Maintenance runs deferred by an open pass"),
	}
}

func (h *Hooks) LayerSquashed(_ entstore.LayerKey, entries int) {
	h.squashes.Inc()
	h.squashEntries.Add(float64(entries))
}

func (h *Hooks) EntitiesCollected(count int)     { h.collected.Add(float64(count)) }
func (h *Hooks) PersistFailed(int, error)        { h.persistFailed.Inc() }
func (h *Hooks) HydrateSkipped(_, reason string) { h.hydrateSkip.WithLabelValues(reason).Inc() }
func (h *Hooks) GenBumpError(int, error)         { h.genBumpErrors.Inc() }
func (h *Hooks) MaintenanceDeferred()            { h.deferred.Inc() }
