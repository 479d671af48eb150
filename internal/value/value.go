// Package value defines the dynamic parameter value model shared by the
// workflow graph and the artifact compiler.
//
// A Value is a closed tagged union: null, bool, number, string, list, or map.
// Map values preserve insertion order, because generated artifacts must emit
// parameter dictionaries in the order the user (or the source file) declared
// them. Every consumer switches exhaustively on Kind instead of poking at
// interface{} values at runtime.
package value

import (
	"encoding/json"
	"fmt"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind discriminates the variants of the Value union.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

// String returns the lower-case variant name, for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Params is an insertion-ordered map from parameter name to Value. It is the
// storage type for node parameters and for the map variant of Value itself.
type Params = orderedmap.OrderedMap[string, Value]

// NewParams creates an empty ordered parameter map.
func NewParams() *Params {
	return orderedmap.New[string, Value]()
}

// Value is one node of a dynamic parameter tree. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	list []Value
	m    *Params
}

// Null returns the null Value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric Value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// List returns a list Value holding the given elements.
func List(elems ...Value) Value {
	return Value{kind: KindList, list: elems}
}

// Map returns a map Value backed by the given ordered entries. A nil map is
// treated as empty.
func Map(m *Params) Value {
	if m == nil {
		m = NewParams()
	}
	return Value{kind: KindMap, m: m}
}

// Kind reports which variant this Value holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is the null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload. Valid only for KindBool.
func (v Value) AsBool() bool { return v.b }

// AsNumber returns the numeric payload. Valid only for KindNumber.
func (v Value) AsNumber() float64 { return v.n }

// AsString returns the string payload. Valid only for KindString.
func (v Value) AsString() string { return v.s }

// AsList returns the element slice. Valid only for KindList.
func (v Value) AsList() []Value { return v.list }

// AsMap returns the ordered entries. Valid only for KindMap.
func (v Value) AsMap() *Params { return v.m }

// Equal reports deep equality of two values, honoring map entry order.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.n == other.n
	case KindString:
		return v.s == other.s
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if v.m.Len() != other.m.Len() {
			return false
		}
		op := other.m.Oldest()
		for p := v.m.Oldest(); p != nil; p = p.Next() {
			if op == nil || p.Key != op.Key || !p.Value.Equal(op.Value) {
				return false
			}
			op = op.Next()
		}
		return true
	}
	return false
}

// GoString renders the value in a compact JSON-ish form for logs and test
// failure messages.
func (v Value) GoString() string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("value(%s)", v.kind)
	}
	return string(b)
}

// MarshalJSON encodes the value as the equivalent JSON document. Map entries
// keep their insertion order on the wire.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	case KindNumber:
		return json.Marshal(v.n)
	case KindString:
		return json.Marshal(v.s)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindMap:
		return v.m.MarshalJSON()
	default:
		return nil, fmt.Errorf("cannot marshal %s value", v.kind)
	}
}
