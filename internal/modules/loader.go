package modules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/funvibe/kite/internal/config"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("kite.modules")

var (
	// ErrNotFound is returned by resolvers when no file matches an import.
	ErrNotFound = errors.New("module not found")
	// ErrCycle is returned when a module is imported while its top level
	// is still running.
	ErrCycle = errors.New("import cycle")
)

// Resolver maps an import path, as written in the importing script, to a
// canonical file location.
type Resolver interface {
	Resolve(fromDir, importPath string) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(fromDir, importPath string) (string, error)

func (f ResolverFunc) Resolve(fromDir, importPath string) (string, error) {
	return f(fromDir, importPath)
}

// FileResolver finds modules on disk: first next to the importing script,
// then in each search path in order.
type FileResolver struct {
	SearchPaths []string
}

func NewFileResolver(searchPaths ...string) *FileResolver {
	return &FileResolver{SearchPaths: searchPaths}
}

// SearchPathsFromEnv splits the KITE_PATH environment variable.
func SearchPathsFromEnv() []string {
	env := os.Getenv(config.SearchPathEnv)
	if env == "" {
		return nil
	}
	var paths []string
	for _, p := range filepath.SplitList(env) {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// Resolve implements Resolver. A bare name `foo` matches foo.kite or
// foo/main.kite; a path containing a separator or an extension is used as
// written, relative to the importing script.
func (r *FileResolver) Resolve(fromDir, importPath string) (string, error) {
	if importPath == "" {
		return "", fmt.Errorf("empty import path: %w", ErrNotFound)
	}

	dirs := make([]string, 0, len(r.SearchPaths)+1)
	if filepath.IsAbs(importPath) {
		dirs = append(dirs, "")
	} else {
		dirs = append(dirs, fromDir)
		dirs = append(dirs, r.SearchPaths...)
	}

	for _, dir := range dirs {
		base := importPath
		if dir != "" {
			base = filepath.Join(dir, importPath)
		}
		if path, ok := findSource(base); ok {
			canonical, err := canonicalPath(path)
			if err != nil {
				return "", err
			}
			log.Debugf("resolved %q from %s to %s", importPath, fromDir, canonical)
			return canonical, nil
		}
	}
	return "", fmt.Errorf("%q: %w", importPath, ErrNotFound)
}

// findSource tries base as written, with the source extension appended, and
// as a package directory holding a main file.
func findSource(base string) (string, bool) {
	candidates := []string{base}
	if !strings.HasSuffix(base, config.SourceFileExt) {
		candidates = append(candidates, base+config.SourceFileExt)
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, true
		}
	}
	main := filepath.Join(base, config.PackageMainFile)
	if info, err := os.Stat(main); err == nil && !info.IsDir() {
		return main, true
	}
	return "", false
}

func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}
