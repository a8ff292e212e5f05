package entstore

import (
	"fmt"
	"strconv"
	"time"

	"github.com/unkn0wn-root/entstore/codec"
	gen "github.com/unkn0wn-root/entstore/genstore"
	"github.com/unkn0wn-root/entstore/keys"
	"github.com/unkn0wn-root/entstore/storage"
)

// LayerKey identifies an optimistic layer. It is derived by the caller from
// the operation that owns the layer. The zero LayerKey means "no layer".
type LayerKey uint64

func (k LayerKey) String() string { return strconv.FormatUint(uint64(k), 10) }

// FieldInfo describes one stored field of an entity.
type FieldInfo = keys.FieldInfo

// KeyRegistry converts between (entity, field) pairs and the opaque string
// keys used for dependency tracking and persistence. keys.Registry is the
// default.
type KeyRegistry interface {
	JoinKeys(entityKey, fieldKey string) string
	SerializeKeys(entityKey, fieldKey string) string
	DeserializeKeyInfo(key string) (entityKey, fieldKey string, ok bool)
	FieldInfoOfKey(fieldKey string) FieldInfo
}

// Options tune the store. The zero value is a valid in-memory store rooted
// at "Query" with no persistence.
type Options struct {
	RootKey string      // query root entity key; "" => "Query"
	Keys    KeyRegistry // nil => keys.Registry{}

	// Persistence. When Storage is set the store starts in hydrating mode
	// and Hydrate must be called once before writes reach the base layer
	// through commutative layers.
	Storage storage.Storage
	Codec   codec.NodeCodec // nil => codec.JSON[value.Node]{}

	// Generations per dependency key, bumped when write passes close.
	GenStore        gen.GenStore  // nil => LocalGenStore (in-process)
	CleanupInterval time.Duration // local gen cleanup; 0 => 1h
	GenRetention    time.Duration // local gen retention; 0 => 30d

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used

	// Schedule hands a maintenance task (GC + persistence flush) to the
	// host's executor. At most one task is outstanding at a time.
	// Use GoSchedule to run it on a fresh goroutine.
	Schedule func(task func())
	// MaintenanceInterval, when > 0, runs pending maintenance from a
	// background loop. With neither Schedule nor an interval the host
	// calls Maintain itself.
	MaintenanceInterval time.Duration
}

// GoSchedule runs task on its own goroutine.
func GoSchedule(task func()) { go task() }

// PassOptions bind a pass to a layer.
//
// Read passes bound to a commutative layer read back that layer's own data
// (layers above it are skipped unless they are exclusive). Optimistic read
// passes only see commutative layers. Write passes with a Layer write into
// an overlay whenever more than one layer is in flight, the pass is
// optimistic, or the store is still hydrating.
type PassOptions struct {
	Layer      LayerKey
	Optimistic bool
}

// LayerInfo is a snapshot of one layer in priority order.
type LayerInfo struct {
	Key         LayerKey
	Commutative bool
	Deferred    bool
	Dirty       bool
}

func New(opts Options) (*Store, error) {
	if opts.MaintenanceInterval < 0 {
		return nil, fmt.Errorf("entstore: negative maintenance interval %s", opts.MaintenanceInterval)
	}
	return newStore(opts), nil
}
