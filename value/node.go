package value

import "fmt"

// Node is the serialisable mirror of a Value. Every field is exported and
// tagged so JSON, CBOR and msgpack codecs round-trip it exactly; integers and
// floats travel in separate fields so no codec can blur them.
type Node struct {
	K Kind    `json:"k" cbor:"1,keyasint" msgpack:"k"`
	B bool    `json:"b,omitempty" cbor:"2,keyasint,omitempty" msgpack:"b,omitempty"`
	I int64   `json:"i,omitempty" cbor:"3,keyasint,omitempty" msgpack:"i,omitempty"`
	F float64 `json:"f,omitempty" cbor:"4,keyasint,omitempty" msgpack:"f,omitempty"`
	S string  `json:"s,omitempty" cbor:"5,keyasint,omitempty" msgpack:"s,omitempty"`
	L []Node  `json:"l,omitempty" cbor:"6,keyasint,omitempty" msgpack:"l,omitempty"`
}

// ToNode converts v to its serialisable form.
func ToNode(v Value) Node {
	n := Node{K: v.kind, B: v.b, I: v.i, F: v.f, S: v.s}
	if v.kind == KindList {
		n.L = make([]Node, len(v.items))
		for i, it := range v.items {
			n.L[i] = ToNode(it)
		}
	}
	return n
}

// FromNode converts n back into a Value, rejecting unknown kinds.
func FromNode(n Node) (Value, error) {
	switch n.K {
	case KindAbsent, KindTombstone, KindNull:
		return Value{kind: n.K}, nil
	case KindBool:
		return Bool(n.B), nil
	case KindInt:
		return Int(n.I), nil
	case KindFloat:
		return Float(n.F), nil
	case KindString:
		return String(n.S), nil
	case KindRef:
		return Ref(n.S), nil
	case KindList:
		items := make([]Value, len(n.L))
		for i, it := range n.L {
			v, err := FromNode(it)
			if err != nil {
				return Absent, err
			}
			items[i] = v
		}
		return List(items...), nil
	default:
		return Absent, fmt.Errorf("value: unknown node kind %d", n.K)
	}
}
