package namespace

import (
	"fmt"
	"maps"
	"slices"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Call is the argument bag a caller hands to Invoke.
type Call struct {
	Positional []cty.Value
	Named      map[string]cty.Value
}

// NewCall builds a Call from positional arguments.
func NewCall(positional ...cty.Value) Call {
	return Call{Positional: positional}
}

// WithNamed returns a copy of the call with one named argument set.
func (c Call) WithNamed(name string, v cty.Value) Call {
	named := make(map[string]cty.Value, len(c.Named)+1)
	maps.Copy(named, c.Named)
	named[name] = v
	return Call{Positional: slices.Clone(c.Positional), Named: named}
}

// Args holds a call's arguments after they were bound to a signature. Every
// declared parameter has a value, already converted to its declared type.
type Args struct {
	function string
	values   map[string]cty.Value
	rest     []cty.Value
	extra    map[string]cty.Value
}

// NewArgs builds bound arguments directly. It is meant for calling an Impl
// outside a namespace, mostly in tests.
func NewArgs(function string, values map[string]cty.Value) *Args {
	return &Args{function: function, values: values, extra: map[string]cty.Value{}}
}

// Function returns the name of the function these arguments were bound for.
func (a *Args) Function() string {
	return a.function
}

// Value returns the bound value of a declared parameter. Unknown names yield
// cty.NilVal.
func (a *Args) Value(name string) cty.Value {
	v, ok := a.values[name]
	if !ok {
		return cty.NilVal
	}
	return v
}

// IsNull reports whether the named parameter is absent or bound to null.
func (a *Args) IsNull(name string) bool {
	v, ok := a.values[name]
	return !ok || v.IsNull()
}

// Rest returns the positional arguments collected by the variadic parameter.
func (a *Args) Rest() []cty.Value {
	return a.rest
}

// Extra returns the named arguments collected by the options parameter.
func (a *Args) Extra() map[string]cty.Value {
	return a.extra
}

// Decode decodes a bound parameter into a Go value using gocty.
func (a *Args) Decode(name string, target any) error {
	v, ok := a.values[name]
	if !ok {
		return fmt.Errorf("%s(): no parameter named %q", a.function, name)
	}
	if v.IsNull() {
		return fmt.Errorf("%s(): argument %q is null", a.function, name)
	}
	if err := gocty.FromCtyValue(v, target); err != nil {
		return fmt.Errorf("%s(): argument %q: %w", a.function, name, err)
	}
	return nil
}

// String decodes a string parameter.
func (a *Args) String(name string) (string, error) {
	var s string
	err := a.Decode(name, &s)
	return s, err
}

// Int decodes a whole-number parameter.
func (a *Args) Int(name string) (int, error) {
	var n int
	err := a.Decode(name, &n)
	return n, err
}

// Float decodes a number parameter.
func (a *Args) Float(name string) (float64, error) {
	var f float64
	err := a.Decode(name, &f)
	return f, err
}

// Bool decodes a bool parameter.
func (a *Args) Bool(name string) (bool, error) {
	var b bool
	err := a.Decode(name, &b)
	return b, err
}

// bind maps a call onto the signature. The signature must already be normalized.
func bind(name string, sig Signature, call Call) (*Args, error) {
	args := &Args{
		function: name,
		values:   make(map[string]cty.Value, len(sig.Params)),
		extra:    make(map[string]cty.Value),
	}

	if len(call.Positional) > len(sig.Params) && sig.Variadic == nil {
		return nil, &ArgumentError{
			Function: name,
			Reason:   fmt.Sprintf("takes %d positional arguments but %d were given", len(sig.Params), len(call.Positional)),
		}
	}

	for i, v := range call.Positional {
		if i < len(sig.Params) {
			p := sig.Params[i]
			converted, err := convertArg(name, p, v)
			if err != nil {
				return nil, err
			}
			args.values[p.Name] = converted
			continue
		}
		converted, err := convertArg(name, *sig.Variadic, v)
		if err != nil {
			return nil, err
		}
		args.rest = append(args.rest, converted)
	}

	byName := make(map[string]Param, len(sig.Params))
	for _, p := range sig.Params {
		byName[p.Name] = p
	}

	// Sorted so the first reported problem does not depend on map order.
	for _, key := range slices.Sorted(maps.Keys(call.Named)) {
		v := call.Named[key]
		p, declared := byName[key]
		switch {
		case declared:
			if _, already := args.values[key]; already {
				return nil, &ArgumentError{Function: name, Param: key, Reason: "got multiple values"}
			}
			converted, err := convertArg(name, p, v)
			if err != nil {
				return nil, err
			}
			args.values[key] = converted
		case sig.Options != nil:
			converted, err := convertArg(name, Param{Name: key, Type: sig.Options.Type}, v)
			if err != nil {
				return nil, err
			}
			args.extra[key] = converted
		default:
			return nil, &ArgumentError{Function: name, Param: key, Reason: "unexpected keyword argument"}
		}
	}

	for _, p := range sig.Params {
		if _, ok := args.values[p.Name]; ok {
			continue
		}
		if p.Default == nil {
			return nil, &ArgumentError{Function: name, Param: p.Name, Reason: "missing required argument"}
		}
		args.values[p.Name] = *p.Default
	}

	return args, nil
}

func convertArg(fn string, p Param, v cty.Value) (cty.Value, error) {
	if v.Type() == cty.NilType {
		v = cty.NullVal(cty.DynamicPseudoType)
	}
	converted, err := convertTo(v, p.Type)
	if err != nil {
		return cty.NilVal, &ArgumentError{
			Function: fn,
			Param:    p.Name,
			Reason:   fmt.Sprintf("cannot use %s value as %s", v.Type().FriendlyName(), p.Type.FriendlyName()),
			Err:      err,
		}
	}
	return converted, nil
}
