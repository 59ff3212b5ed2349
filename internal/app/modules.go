package app

import (
	"fmt"
	"slices"
	"strings"

	"github.com/specialistvlad/dmutils/internal/config"
	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/specialistvlad/dmutils/modules/archive"
	"github.com/specialistvlad/dmutils/modules/dates"
	"github.com/specialistvlad/dmutils/modules/jsondata"
	"github.com/specialistvlad/dmutils/modules/network"
	"github.com/specialistvlad/dmutils/modules/paths"
	"github.com/specialistvlad/dmutils/modules/system"
	"github.com/specialistvlad/dmutils/modules/text"
	"github.com/specialistvlad/dmutils/modules/xlsx"
)

// namedModule pairs a core module with the name used to enable it.
type namedModule struct {
	name   string
	module namespace.Module
}

// coreModules is the definitive list of all modules compiled into the
// dmutils binary, in registration order.
func coreModules(cfg *config.Config) []namedModule {
	return []namedModule{
		{"paths", &paths.Module{}},
		{"jsondata", &jsondata.Module{}},
		{"dates", &dates.Module{}},
		{"text", &text.Module{}},
		{"system", &system.Module{}},
		{"archive", &archive.Module{}},
		{"network", &network.Module{Client: network.NewClient(cfg.HTTPTimeout)}},
		{"xlsx", &xlsx.Module{}},
	}
}

// CoreModuleNames lists the names accepted by the modules setting.
func CoreModuleNames() []string {
	mods := coreModules(&config.Config{})
	names := make([]string, len(mods))
	for i, m := range mods {
		names[i] = m.name
	}
	return names
}

// selectModules returns the core modules enabled by cfg.Modules, or all of
// them when it is empty.
func selectModules(cfg *config.Config) ([]namespace.Module, error) {
	all := coreModules(cfg)
	if len(cfg.Modules) == 0 {
		out := make([]namespace.Module, len(all))
		for i, m := range all {
			out[i] = m.module
		}
		return out, nil
	}

	wanted := make(map[string]bool, len(cfg.Modules))
	for _, name := range cfg.Modules {
		name = strings.TrimSpace(name)
		if !slices.ContainsFunc(all, func(m namedModule) bool { return m.name == name }) {
			return nil, fmt.Errorf("unknown module %q: available modules are %s", name, strings.Join(CoreModuleNames(), ", "))
		}
		wanted[name] = true
	}

	var out []namespace.Module
	for _, m := range all {
		if wanted[m.name] {
			out = append(out, m.module)
		}
	}
	return out, nil
}
