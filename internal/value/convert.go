package value

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// FromCty converts a cty value (as produced by HCL expression evaluation)
// into a Value. Object and map types lose their source ordering inside cty,
// so their keys are emitted alphabetically; callers that need source order
// must decode the syntax tree instead (see the hclgrid package).
func FromCty(v cty.Value) (Value, error) {
	if v.IsNull() {
		return Null(), nil
	}
	ty := v.Type()
	switch {
	case ty == cty.Bool:
		return Bool(v.True()), nil
	case ty == cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return Number(f), nil
	case ty == cty.String:
		return String(v.AsString()), nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		elems := make([]Value, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			conv, err := FromCty(ev)
			if err != nil {
				return Null(), err
			}
			elems = append(elems, conv)
		}
		return List(elems...), nil
	case ty.IsObjectType() || ty.IsMapType():
		m := NewParams()
		keys := make([]string, 0, v.LengthInt())
		pairs := make(map[string]cty.Value, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			kv, ev := it.Element()
			keys = append(keys, kv.AsString())
			pairs[kv.AsString()] = ev
		}
		sort.Strings(keys)
		for _, k := range keys {
			conv, err := FromCty(pairs[k])
			if err != nil {
				return Null(), err
			}
			m.Set(k, conv)
		}
		return Map(m), nil
	default:
		return Null(), fmt.Errorf("cannot convert cty type %s to a parameter value", ty.FriendlyName())
	}
}

// FromGo converts a plain Go value (typically the result of json.Unmarshal or
// a catalog schema default) into a Value. Plain Go maps carry no ordering, so
// their keys are emitted alphabetically for determinism.
func FromGo(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case string:
		return String(t), nil
	case []any:
		elems := make([]Value, 0, len(t))
		for _, e := range t {
			conv, err := FromGo(e)
			if err != nil {
				return Null(), err
			}
			elems = append(elems, conv)
		}
		return List(elems...), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewParams()
		for _, k := range keys {
			conv, err := FromGo(t[k])
			if err != nil {
				return Null(), err
			}
			m.Set(k, conv)
		}
		return Map(m), nil
	default:
		return Null(), fmt.Errorf("cannot convert Go value of type %T to a parameter value", v)
	}
}
