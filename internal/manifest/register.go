package manifest

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/specialistvlad/dmutils/internal/namespace"
)

// Register performs a strict parity check between the definitions and the Go
// implementations, then registers every function in manifest order.
func Register(ns *namespace.Namespace, defs []*Definition, impls map[string]namespace.Impl) error {
	var errs []string

	declared := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		declared[def.Name] = struct{}{}
		if _, ok := impls[def.Name]; !ok {
			errs = append(errs, fmt.Sprintf("function '%s': declared at %s but has no Go implementation", def.Name, def.DeclRange))
		}
	}
	for _, name := range slices.Sorted(maps.Keys(impls)) {
		if _, ok := declared[name]; !ok {
			errs = append(errs, fmt.Sprintf("function '%s': Go implementation exists but no manifest declares it", name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("manifest validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	for _, def := range defs {
		fn := namespace.Function{
			Description: def.Description,
			Signature:   def.Signature,
			Impl:        impls[def.Name],
		}
		if err := ns.Register(def.Name, fn); err != nil {
			return fmt.Errorf("%s: %w", def.DeclRange, err)
		}
	}
	return nil
}

// RegisterSource parses manifest source and registers impls against it.
func RegisterSource(ns *namespace.Namespace, filename string, src []byte, impls map[string]namespace.Impl) error {
	defs, diags := Parse(src, filename)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse manifest %s: %w", filename, diags)
	}
	return Register(ns, defs, impls)
}
