package entstore

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidContext is returned by every Pass operation once the pass
	// has ended (or on a nil Pass). It signals a programming error in the
	// caller, e.g. mutating the store from outside any pass.
	ErrInvalidContext = errors.New("entstore: operation requires an open pass")

	// ErrPassActive is returned when a pass is opened, or a between-pass
	// operation is attempted, while another pass is still open.
	ErrPassActive = errors.New("entstore: another pass is open")

	// ErrAlreadyHydrated is returned by a second Hydrate call.
	ErrAlreadyHydrated = errors.New("entstore: store already hydrated")

	// ErrInvalidLayer is returned for layer operations on layer key 0.
	ErrInvalidLayer = errors.New("entstore: layer key must be non-zero")
)

// PersistError reports a failed flush of the persistence delta. The entries
// remain pending and are retried by the next maintenance run.
type PersistError struct {
	Entries int
	Err     error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("entstore: persist %d entries: %v", e.Entries, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// EncodeError reports entries the codec could not encode during a flush.
// They were written as tombstones, so storage never keeps an older value
// for them and a later hydrate reads them as absent.
type EncodeError struct {
	Keys []string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("entstore: encode %d entries (first %q): %v", len(e.Keys), e.Keys[0], e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
