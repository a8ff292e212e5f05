package codec

import (
	"encoding/json"

	"github.com/unkn0wn-root/entstore/value"
)

// JSON is the default codec. The zero value is ready to use.
type JSON[V any] struct{}

var _ NodeCodec = JSON[value.Node]{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
