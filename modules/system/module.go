// Package system registers helpers for running commands and inspecting the
// host.
package system

import (
	"context"
	_ "embed"
	"os"
	"strings"

	"github.com/specialistvlad/dmutils/internal/ctyutil"
	"github.com/specialistvlad/dmutils/internal/manifest"
	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/zclconf/go-cty/cty"
)

//go:embed manifest.hcl
var manifestSrc []byte

// Module implements the namespace.Module interface for this package.
type Module struct{}

// Register registers the module's functions with the namespace.
func (m *Module) Register(ns *namespace.Namespace) error {
	return manifest.RegisterSource(ns, "system/manifest.hcl", manifestSrc, map[string]namespace.Impl{
		"sysc":              sysc,
		"is_root":           isRoot,
		"check_return_code": checkReturnCode,
		"env_vars":          envVars,
		"check_your_system": checkYourSystem,
	})
}

func isRoot(context.Context, *namespace.Args) (cty.Value, error) {
	return cty.BoolVal(os.Geteuid() == 0), nil
}

func envVars(context.Context, *namespace.Args) (cty.Value, error) {
	envMap := make(map[string]string)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			envMap[pair[0]] = pair[1]
		}
	}
	return ctyutil.StringMap(envMap), nil
}
