package entstore

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The store calls them from inside passes and maintenance.
type Hooks interface {
	// An optimistic layer was replayed into the layer below it (or base).
	// entries is the number of links and records replayed.
	LayerSquashed(layer LayerKey, entries int)

	// A GC run removed count unreferenced entities.
	EntitiesCollected(count int)

	// Storage rejected a persistence flush; the keys stay pending.
	PersistFailed(entries int, err error)

	// A persisted entry could not be hydrated.
	// reason ∈ {"key", "corrupt", "decode"}
	HydrateSkipped(storageKey, reason string)

	// Bumping generations after a write pass failed.
	// count is the number of dependency keys involved.
	GenBumpError(count int, err error)

	// A scheduled maintenance run found a pass open and left its work
	// pending for the next pass close.
	MaintenanceDeferred()
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) LayerSquashed(LayerKey, int)   {}
func (NopHooks) EntitiesCollected(int)         {}
func (NopHooks) PersistFailed(int, error)      {}
func (NopHooks) HydrateSkipped(string, string) {}
func (NopHooks) GenBumpError(int, error)       {}
func (NopHooks) MaintenanceDeferred()          {}
