// Package namespace provides the Utility Namespace: a registry mapping function
// names to Go implementations, and the single dispatch surface through which
// every utility is invoked.
//
// A Namespace is constructed explicitly and handed to whoever needs it. Its
// lifecycle has two phases. During the registration phase modules add their
// functions with Register (or replace one explicitly with Override). Seal then
// closes the namespace for writes, and from that point it is a read-only
// lookup structure that any number of goroutines may Invoke concurrently.
//
// Every function declares the shape of the arguments it accepts as a
// Signature. A caller's arguments arrive as a Call, a bag of positional and
// named cty.Values, and are bound against that signature before the
// implementation runs:
//
//	ns := namespace.New()
//	_ = ns.Register("double", namespace.Function{
//		Signature: namespace.Signature{
//			Params: []namespace.Param{{Name: "x", Type: cty.Number}},
//		},
//		Impl: func(ctx context.Context, args *namespace.Args) (cty.Value, error) {
//			return args.Value("x").Multiply(cty.NumberIntVal(2)), nil
//		},
//	})
//	ns.Seal()
//
//	v, err := ns.Invoke(ctx, "double", namespace.NewCall(cty.NumberIntVal(5)))
//
// Invoke returns exactly what the implementation returned. Errors raised by an
// implementation are passed through untouched; the namespace itself only
// produces NotFoundError and ArgumentError.
package namespace
