package testutil

import "github.com/specialistvlad/dmutils/internal/namespace"

// SimpleModule is a test helper for easily creating a mock module that
// registers a fixed set of functions.
type SimpleModule struct {
	Functions map[string]namespace.Function
}

// Register implements the namespace.Module interface.
func (m *SimpleModule) Register(ns *namespace.Namespace) error {
	for name, fn := range m.Functions {
		if err := ns.Register(name, fn); err != nil {
			return err
		}
	}
	return nil
}
