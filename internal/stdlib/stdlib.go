// Package stdlib provides the Kite standard library modules: thin façades
// over the host OS, random numbers and data formats.
package stdlib

import (
	"github.com/funvibe/kite/internal/core"
	"github.com/funvibe/kite/internal/value"
)

// Module names
const (
	OSModule     = "os"
	RandomModule = "random"
	YAMLModule   = "yaml"
	TOMLModule   = "toml"
)

// Install adds the standard library modules to globals.
func Install(globals *value.Map) {
	modules := map[string]map[string]value.NativeFunc{
		OSModule:     OSBuiltins(),
		RandomModule: RandomBuiltins(),
		YAMLModule:   YAMLBuiltins(),
		TOMLModule:   TOMLBuiltins(),
	}
	for name, fns := range modules {
		globals.SetStr(name, value.FromMap(core.NewModule(name, fns)))
	}
}
