package modules

import (
	"fmt"
	"sort"

	"github.com/funvibe/kite/internal/value"
)

// Module is a loaded script and the export map shared by all importers.
type Module struct {
	Path    string
	Exports *value.Map
	loading bool
}

// Registry caches modules by canonical path for the life of a VM.
type Registry struct {
	modules map[string]*Module
}

func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*Module)}
}

// Lookup returns the module loaded from path. It fails with ErrCycle if the
// module's top level is still running.
func (r *Registry) Lookup(path string) (*Module, bool, error) {
	mod, ok := r.modules[path]
	if !ok {
		return nil, false, nil
	}
	if mod.loading {
		return nil, true, fmt.Errorf("%s is imported while it is still loading: %w", path, ErrCycle)
	}
	return mod, true, nil
}

// Begin registers path as loading and returns its empty export map, which
// the module's top level fills as it runs.
func (r *Registry) Begin(path string) *Module {
	mod := &Module{Path: path, Exports: value.NewMap(), loading: true}
	r.modules[path] = mod
	log.Debugf("loading %s", path)
	return mod
}

// Finish marks the module at path as loaded.
func (r *Registry) Finish(path string) {
	if mod, ok := r.modules[path]; ok {
		mod.loading = false
		log.Debugf("loaded %s (%d exports)", path, mod.Exports.Len())
	}
}

// Abort forgets a module whose top level failed so a later import retries.
func (r *Registry) Abort(path string) {
	delete(r.modules, path)
}

// Add registers an already-populated module, such as the main script.
func (r *Registry) Add(path string, exports *value.Map) *Module {
	mod := &Module{Path: path, Exports: exports}
	r.modules[path] = mod
	return mod
}

// Paths lists the canonical paths of all registered modules.
func (r *Registry) Paths() []string {
	paths := make([]string, 0, len(r.modules))
	for p := range r.modules {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
