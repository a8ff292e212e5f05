package codec

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/unkn0wn-root/entstore/value"
)

// CBOR encodes values with fxamacker/cbor. value.Node carries keyasint
// tags, so persisted nodes are small integer-keyed maps.
// The zero value is not ready to use; construct with NewCBOR or MustCBOR.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ NodeCodec = CBOR[value.Node]{}

// CBOROptions tune NewCBORWith.
type CBOROptions struct {
	// Deterministic selects RFC 8949 core deterministic encoding, so equal
	// nodes always produce equal bytes (useful when storage diffs entries).
	Deterministic bool
	// MaxNesting bounds list nesting accepted on decode; 0 => 32.
	MaxNesting int
}

// NewCBOR is NewCBORWith with default decode limits.
func NewCBOR[V any](deterministic bool) (CBOR[V], error) {
	return NewCBORWith[V](CBOROptions{Deterministic: deterministic})
}

func NewCBORWith[V any](o CBOROptions) (CBOR[V], error) {
	eo := cbor.PreferredUnsortedEncOptions()
	if o.Deterministic {
		eo = cbor.CoreDetEncOptions()
	}
	em, err := eo.EncMode()
	if err != nil {
		return CBOR[V]{}, err
	}

	// each value.Node level is a map plus its item array
	nesting := o.MaxNesting
	if nesting <= 0 {
		nesting = 32
	}
	dm, err := cbor.DecOptions{
		MaxNestedLevels: 2*nesting + 2,
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	return CBOR[V]{enc: em, dec: dm}, nil
}

// MustCBOR is like NewCBOR but panics on error.
func MustCBOR[V any](deterministic bool) CBOR[V] {
	c, err := NewCBOR[V](deterministic)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CBOR[V]) Encode(v V) ([]byte, error) { return c.enc.Marshal(v) }

func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	err := c.dec.Unmarshal(b, &v)
	return v, err
}
