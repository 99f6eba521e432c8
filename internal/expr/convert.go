package expr

import (
	"fmt"
	"math/big"
	"slices"
	"sort"

	"github.com/vk/watchgraph/internal/component"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ToCtyValue converts a Go value into a cty value. Maps, slices, events,
// instances and nodes are converted structurally; anything else goes through
// gocty's implied types.
func ToCtyValue(v any) (cty.Value, error) {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case cty.Value:
		return x, nil
	case string:
		return cty.StringVal(x), nil
	case bool:
		return cty.BoolVal(x), nil
	case []any:
		if len(x) == 0 {
			return cty.EmptyTupleVal, nil
		}
		vals := make([]cty.Value, len(x))
		for i, item := range x {
			cv, err := ToCtyValue(item)
			if err != nil {
				return cty.NilVal, fmt.Errorf("index %d: %w", i, err)
			}
			vals[i] = cv
		}
		return cty.TupleVal(vals), nil
	case map[string]any:
		return objectVal(x)
	case map[string]string:
		attrs := make(map[string]any, len(x))
		for k, s := range x {
			attrs[k] = s
		}
		return objectVal(attrs)
	case component.Event:
		source, err := ToCtyValue(x.Source)
		if err != nil {
			return cty.NilVal, err
		}
		data, err := ToCtyValue(x.Data)
		if err != nil {
			return cty.NilVal, fmt.Errorf("event %s: %w", x.Type, err)
		}
		return cty.ObjectVal(map[string]cty.Value{
			"type":   cty.StringVal(x.Type),
			"source": source,
			"data":   data,
		}), nil
	case *component.Instance:
		return cty.ObjectVal(map[string]cty.Value{
			"id":        cty.NumberUIntVal(x.TargetID()),
			"component": cty.StringVal(x.Component().Label()),
		}), nil
	case *component.Node:
		attrs, err := ToCtyValue(x.Attrs())
		if err != nil {
			return cty.NilVal, err
		}
		return cty.ObjectVal(map[string]cty.Value{
			"id":      cty.NumberUIntVal(x.TargetID()),
			"element": cty.StringVal(x.Element().Name()),
			"tag":     cty.StringVal(x.Element().Tag()),
			"attrs":   attrs,
		}), nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type for %T: %w", v, err)
	}
	return gocty.ToCtyValue(v, ty)
}

func objectVal(m map[string]any) (cty.Value, error) {
	if len(m) == 0 {
		return cty.EmptyObjectVal, nil
	}
	attrs := make(map[string]cty.Value, len(m))
	for k, item := range m {
		cv, err := ToCtyValue(item)
		if err != nil {
			return cty.NilVal, fmt.Errorf("attribute %q: %w", k, err)
		}
		attrs[k] = cv
	}
	return cty.ObjectVal(attrs), nil
}

// FromCtyValue converts a known cty value back into Go: strings, bools, ints
// for whole numbers, float64 otherwise, []any and map[string]any.
func FromCtyValue(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value of type %s is not known", v.Type().FriendlyName())
	}
	ty := v.Type()
	switch {
	case ty.Equals(cty.String):
		var s string
		err := gocty.FromCtyValue(v, &s)
		return s, err
	case ty.Equals(cty.Bool):
		var b bool
		err := gocty.FromCtyValue(v, &b)
		return b, err
	case ty.Equals(cty.Number):
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return int(i), nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsListType(), ty.IsTupleType(), ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			gv, err := FromCtyValue(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, gv)
		}
		return out, nil
	case ty.IsMapType(), ty.IsObjectType():
		out := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			gv, err := FromCtyValue(ev)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = gv
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported cty type %s", ty.FriendlyName())
}

// propsVal builds the `props` object of an evaluation: every property
// declared along the prototype chain of the watch's component.
func propsVal(s *component.Scope) (cty.Value, error) {
	var names []string
	for p := s.Component(); p != nil; p = p.Prototype() {
		for _, name := range p.Properties() {
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	props := make(map[string]any, len(names))
	for _, name := range names {
		props[name] = s.Prop(name)
	}
	return objectVal(props)
}
