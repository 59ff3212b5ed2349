package testutil

import (
	"context"

	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/zclconf/go-cty/cty"
)

// NoOpModule registers a single "noop" function that accepts any arguments
// and returns null. It's useful for tests that exercise plumbing rather than
// function behavior.
type NoOpModule struct{}

// Register registers the "noop" function.
func (m *NoOpModule) Register(ns *namespace.Namespace) error {
	return ns.Register("noop", namespace.Function{
		Description: "Does nothing.",
		Signature: namespace.Signature{
			Variadic: &namespace.Param{Name: "args"},
			Options:  &namespace.Param{Name: "named"},
		},
		Impl: func(context.Context, *namespace.Args) (cty.Value, error) {
			// No operation
			return cty.NullVal(cty.DynamicPseudoType), nil
		},
	})
}
