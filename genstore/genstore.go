// Package genstore keeps a generation counter per dependency key.
//
// The store bumps the generation of every key a write pass changed when the
// pass closes. A result cache sitting above the store snapshots the
// generations of a result's dependency keys when it builds the result and
// compares them on the next lookup: any mismatch means the result is stale.
// This is the same compare-and-swap discipline a CAS cache applies per key.
package genstore

import (
	"context"
	"time"
)

// GenStore abstracts where generations live.
// Use LocalGenStore (default) for in-process gens, or RedisGenStore when
// several processes share one persisted store.
type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(ctx context.Context, key string) (uint64, error)
	// SnapshotMany returns gens for many keys; missing => 0.
	SnapshotMany(ctx context.Context, keys []string) (map[string]uint64, error)
	// BumpMany increments every key's generation once.
	BumpMany(ctx context.Context, keys []string) error
	// Cleanup prunes old metadata if applicable (no-op for Redis).
	Cleanup(retention time.Duration)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
