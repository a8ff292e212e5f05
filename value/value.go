// Package value defines the closed set of values the store keeps per
// (entity, field): scalars, entity references, lists of either, and the two
// "missing" markers Absent and Tombstone.
//
// Records (field values) hold scalars or lists of scalars. Links hold Ref,
// Null, or lists of links. Absent is the zero Value and means "never written
// or deleted"; Tombstone is only ever stored inside optimistic overlays so an
// overlay can shadow a base value with a deletion.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Kind uint8

const (
	KindAbsent Kind = iota
	KindTombstone
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindRef
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindTombstone:
		return "tombstone"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindRef:
		return "ref"
	case KindList:
		return "list"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is immutable once constructed. Lists share their backing slice with
// copies of the Value, so callers must not mutate the slice returned by Items.
type Value struct {
	kind  Kind
	b     bool
	i     int64
	f     float64
	s     string // string scalar or entity key for KindRef
	items []Value
}

// Absent is the zero Value.
var Absent = Value{}

func Tombstone() Value           { return Value{kind: KindTombstone} }
func Null() Value                { return Value{kind: KindNull} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Int(i int64) Value          { return Value{kind: KindInt, i: i} }
func Float(f float64) Value      { return Value{kind: KindFloat, f: f} }
func String(s string) Value      { return Value{kind: KindString, s: s} }
func Ref(entityKey string) Value { return Value{kind: KindRef, s: entityKey} }

// List builds a list value. A nil or empty argument list yields an empty
// list, which is distinct from Absent.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, items: items}
}

// Refs builds a list of entity references. Empty keys become Null entries.
func Refs(entityKeys ...string) Value {
	items := make([]Value, len(entityKeys))
	for i, k := range entityKeys {
		if k == "" {
			items[i] = Null()
		} else {
			items[i] = Ref(k)
		}
	}
	return List(items...)
}

// Of converts a JSON-shaped Go value into a record Value. Integers of every
// width are normalised to int64; slices become lists.
func Of(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		return fromUint(x)
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case []any:
		items := make([]Value, len(x))
		for i, it := range x {
			iv, err := Of(it)
			if err != nil {
				return Absent, fmt.Errorf("value: list item %d: %w", i, err)
			}
			items[i] = iv
		}
		return List(items...), nil
	case []string:
		items := make([]Value, len(x))
		for i, it := range x {
			items[i] = String(it)
		}
		return List(items...), nil
	default:
		return Absent, fmt.Errorf("value: unsupported type %T", v)
	}
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Absent, fmt.Errorf("value: %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

func (v Value) Kind() Kind { return v.kind }

// Missing reports whether v carries no data. Tombstones and Absent are
// indistinguishable to readers.
func (v Value) Missing() bool { return v.kind == KindAbsent || v.kind == KindTombstone }

func (v Value) IsList() bool { return v.kind == KindList }

// Ref returns the referenced entity key for KindRef values.
func (v Value) Ref() (string, bool) {
	if v.kind != KindRef {
		return "", false
	}
	return v.s, true
}

func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) Int() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

func (v Value) Float() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f, true
}

func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) Items() []Value { return v.items }

func (v Value) Len() int { return len(v.items) }

// Interface returns the JSON-shaped Go form of v. References become their
// entity key string; missing values become nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString, KindRef:
		return v.s
	case KindList:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.Interface()
		}
		return out
	default:
		return nil
	}
}

// EachRef calls fn for every entity reference in v, recursing into lists.
func (v Value) EachRef(fn func(entityKey string)) {
	switch v.kind {
	case KindRef:
		fn(v.s)
	case KindList:
		for _, it := range v.items {
			it.EachRef(fn)
		}
	}
}

// Equal reports whether a and b hold the same data. Lists compare element by
// element. Absent and Tombstone are not equal to each other.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindString, KindRef:
		return a.s == b.s
	case KindList:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindAbsent, KindTombstone, KindNull:
		return v.kind.String()
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindRef:
		return "&" + v.s
	case KindList:
		parts := make([]string, len(v.items))
		for i, it := range v.items {
			parts[i] = it.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return v.kind.String()
	}
}
