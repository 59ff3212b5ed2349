package namespace

import "fmt"

// Module is implemented by every package that contributes functions to a namespace.
type Module interface {
	Register(ns *Namespace) error
}

// RegisterModules registers each module in order and stops at the first failure.
func RegisterModules(ns *Namespace, modules ...Module) error {
	for _, mod := range modules {
		if err := mod.Register(ns); err != nil {
			return fmt.Errorf("failed to register module %T: %w", mod, err)
		}
	}
	return nil
}
