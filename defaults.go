package entstore

import "github.com/unkn0wn-root/entstore/keys"

const (
	defaultRootKey = "Query"
	typenameField  = "__typename"
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

var defaultKeys KeyRegistry = keys.Registry{}
