// Package ctyutil converts between cty values and plain Go values for JSON
// output, HTTP bodies and log attributes.
package ctyutil

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// ToNative converts a cty.Value to a Go value built from nil, string, bool,
// int64, float64, []any and map[string]any. Whole numbers that fit in an
// int64 become int64 so they render without an exponent.
func ToNative(val cty.Value) (any, error) {
	if val.Type() == cty.NilType || !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	if ty.IsPrimitiveType() {
		switch ty {
		case cty.String:
			return val.AsString(), nil
		case cty.Number:
			return numberToNative(val.AsBigFloat()), nil
		case cty.Bool:
			return val.True(), nil
		default:
			return nil, fmt.Errorf("unsupported primitive type: %s", ty.FriendlyName())
		}
	}
	if ty.IsObjectType() || ty.IsMapType() {
		out := make(map[string]any, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			native, err := ToNative(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = native
		}
		return out, nil
	}
	if ty.IsTupleType() || ty.IsListType() || ty.IsSetType() {
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			native, err := ToNative(v)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported cty.Type for conversion: %s", ty.FriendlyName())
}

func numberToNative(f *big.Float) any {
	if f.IsInt() {
		if i, acc := f.Int64(); acc == big.Exact {
			return i
		}
	}
	out, _ := f.Float64()
	return out
}

// FromNative converts a Go value into a cty.Value. Slices become tuples and
// maps with mixed values become objects, so heterogeneous JSON-like data
// survives the trip. Other types go through gocty with an implied type.
func FromNative(v any) (cty.Value, error) {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case cty.Value:
		return x, nil
	case bool:
		return cty.BoolVal(x), nil
	case string:
		return cty.StringVal(x), nil
	case int:
		return cty.NumberIntVal(int64(x)), nil
	case int32:
		return cty.NumberIntVal(int64(x)), nil
	case int64:
		return cty.NumberIntVal(x), nil
	case uint64:
		return cty.NumberUIntVal(x), nil
	case float32:
		return cty.NumberFloatVal(float64(x)), nil
	case float64:
		return cty.NumberFloatVal(x), nil
	case json.Number:
		return cty.ParseNumberVal(x.String())
	case []string:
		return StringList(x), nil
	case map[string]string:
		return StringMap(x), nil
	case []any:
		if len(x) == 0 {
			return cty.EmptyTupleVal, nil
		}
		vals := make([]cty.Value, len(x))
		for i, elem := range x {
			cv, err := FromNative(elem)
			if err != nil {
				return cty.NilVal, fmt.Errorf("element %d: %w", i, err)
			}
			vals[i] = cv
		}
		return cty.TupleVal(vals), nil
	case map[string]any:
		if len(x) == 0 {
			return cty.EmptyObjectVal, nil
		}
		vals := make(map[string]cty.Value, len(x))
		for k, elem := range x {
			cv, err := FromNative(elem)
			if err != nil {
				return cty.NilVal, fmt.Errorf("key %q: %w", k, err)
			}
			vals[k] = cv
		}
		return cty.ObjectVal(vals), nil
	}

	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("cannot convert %T to a cty value: %w", v, err)
	}
	return gocty.ToCtyValue(v, ty)
}

// FromJSON decodes arbitrary JSON into a cty.Value, taking the type from the
// document itself.
func FromJSON(data []byte) (cty.Value, error) {
	ty, err := ctyjson.ImpliedType(data)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to infer type from JSON: %w", err)
	}
	return ctyjson.Unmarshal(data, ty)
}

// MarshalJSON renders a cty.Value as plain JSON. An empty indent produces
// compact output.
func MarshalJSON(val cty.Value, indent string) ([]byte, error) {
	native, err := ToNative(val)
	if err != nil {
		return nil, err
	}
	if indent == "" {
		return json.Marshal(native)
	}
	return json.MarshalIndent(native, "", indent)
}

// FormatForLogs converts a value to its loggable representation. A
// cty.Value is converted to a Go value; other types pass through.
func FormatForLogs(v any) any {
	if ctyVal, ok := v.(cty.Value); ok {
		converted, err := ToNative(ctyVal)
		if err != nil {
			return fmt.Sprintf("[unloggable cty.Value: %v]", err)
		}
		return converted
	}
	return v
}

// StringList builds a list(string) value. An empty input yields an empty
// list rather than a null.
func StringList(items []string) cty.Value {
	if len(items) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(items))
	for i, s := range items {
		vals[i] = cty.StringVal(s)
	}
	return cty.ListVal(vals)
}

// StringMap builds a map(string) value. An empty input yields an empty map.
func StringMap(items map[string]string) cty.Value {
	if len(items) == 0 {
		return cty.MapValEmpty(cty.String)
	}
	vals := make(map[string]cty.Value, len(items))
	for k, s := range items {
		vals[k] = cty.StringVal(s)
	}
	return cty.MapVal(vals)
}
