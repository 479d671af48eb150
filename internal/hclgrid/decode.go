package hclgrid

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/flowforge/internal/value"
)

// blockParams is an ordered list of decoded parameter attributes. The order
// is the source order of the params block, which becomes the insertion order
// of the node's parameter map.
type blockParams []paramAttr

type paramAttr struct {
	name string
	val  value.Value
}

func (bp blockParams) toParams() *value.Params {
	params := value.NewParams()
	for _, p := range bp {
		params.Set(p.name, p.val)
	}
	return params
}

// paramsBlock decodes the optional nested params block. hclsyntax exposes
// attributes as a map, so they are re-ordered here by source position to
// recover the order the author wrote them in.
func paramsBlock(body *hclsyntax.Body) (blockParams, error) {
	var paramsBody *hclsyntax.Body
	for _, block := range body.Blocks {
		if block.Type != "params" {
			continue
		}
		if paramsBody != nil {
			return nil, fmt.Errorf("duplicate params block")
		}
		paramsBody = block.Body
	}
	if paramsBody == nil {
		return nil, nil
	}

	attrs := make([]*hclsyntax.Attribute, 0, len(paramsBody.Attributes))
	for _, attr := range paramsBody.Attributes {
		attrs = append(attrs, attr)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})

	var out blockParams
	for _, attr := range attrs {
		v, err := decodeValueExpr(attr.Expr)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", attr.Name, err)
		}
		out = append(out, paramAttr{name: attr.Name, val: v})
	}
	return out, nil
}

// decodeValueExpr converts a literal HCL expression into a Value. Object and
// tuple constructors are walked structurally so that map entries keep their
// source order; everything else is evaluated to a cty value and converted.
func decodeValueExpr(expr hclsyntax.Expression) (value.Value, error) {
	switch e := expr.(type) {
	case *hclsyntax.ObjectConsExpr:
		m := value.NewParams()
		for _, item := range e.Items {
			keyVal, diags := item.KeyExpr.Value(nil)
			if diags.HasErrors() {
				return value.Null(), fmt.Errorf("object key: %w", diags)
			}
			if keyVal.Type() != cty.String {
				return value.Null(), fmt.Errorf("object key must be a string, got %s", keyVal.Type().FriendlyName())
			}
			elem, err := decodeValueExpr(item.ValueExpr)
			if err != nil {
				return value.Null(), err
			}
			m.Set(keyVal.AsString(), elem)
		}
		return value.Map(m), nil

	case *hclsyntax.TupleConsExpr:
		elems := make([]value.Value, 0, len(e.Exprs))
		for _, itemExpr := range e.Exprs {
			elem, err := decodeValueExpr(itemExpr)
			if err != nil {
				return value.Null(), err
			}
			elems = append(elems, elem)
		}
		return value.List(elems...), nil

	default:
		val, diags := expr.Value(nil)
		if diags.HasErrors() {
			return value.Null(), fmt.Errorf("%w", diags)
		}
		return value.FromCty(val)
	}
}
