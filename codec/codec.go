// Package codec turns persisted values into bytes and back.
//
// The store persists every (entity, field) entry as a value.Node; any
// Codec[value.Node] can be plugged into entstore.Options.Codec. JSON is the
// default. CBOR and Msgpack are more compact, Proto emits protobuf
// google.protobuf.Value messages for interop with non-Go readers.
package codec

import "github.com/unkn0wn-root/entstore/value"

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// NodeCodec is the codec shape the store consumes.
type NodeCodec = Codec[value.Node]
