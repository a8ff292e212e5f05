// Package storage defines the durable backend the store flushes its
// persistence delta to and hydrates from at startup.
//
// Keys are serialized (entity, field) keys produced by the key registry;
// values are framed entries owned by the store. Implementations MUST be
// byte-for-byte transparent: ReadData must return exactly the []byte last
// passed to WriteData for a key (no prepended/appended metadata, no
// re-encoding). A nil value in a WriteData batch is a tombstone and MUST
// delete the key.
package storage

import "context"

// Storage is a minimal durable map of serialized keys to framed entries.
// Must be safe for concurrent use: the store flushes from its maintenance
// task, which may run on a different goroutine than passes.
type Storage interface {
	// WriteData applies a batch. nil values delete their key.
	WriteData(ctx context.Context, entries map[string][]byte) error

	// ReadData returns every persisted entry. Called once, at hydration.
	ReadData(ctx context.Context) (map[string][]byte, error)

	// Close releases resources.
	Close(ctx context.Context) error
}
