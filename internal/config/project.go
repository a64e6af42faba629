package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Project represents a kite.yaml project configuration.
type Project struct {
	// ModulePaths are extra directories searched for imports, relative to
	// the directory of kite.yaml.
	ModulePaths []string `yaml:"module_paths,omitempty"`

	Cache CacheConfig `yaml:"cache,omitempty"`
	Log   LogConfig   `yaml:"log,omitempty"`

	// Color forces colored driver output on or off. Unset means color when
	// stdout is a terminal.
	Color *bool `yaml:"color,omitempty"`

	// Dir is the directory containing kite.yaml. Empty for the defaults.
	Dir string `yaml:"-"`
}

// CacheConfig controls the persistent bytecode cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	// Path of the cache database. Relative paths are resolved against the
	// project directory; empty means the user cache directory.
	Path string `yaml:"path,omitempty"`
}

// LogConfig controls the driver's logging.
type LogConfig struct {
	// Verbosity: 0 is errors and warnings, 1 adds info, 2 adds debug.
	Verbosity int `yaml:"verbosity,omitempty"`
	// File receives log output instead of stderr.
	File string `yaml:"file,omitempty"`
}

// DefaultProject is the configuration used when no kite.yaml is found.
func DefaultProject() *Project {
	return &Project{}
}

// LoadProject reads and parses a kite.yaml file.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseProject(data, path)
}

// ParseProject parses kite.yaml content. The path locates relative paths
// and is used in error messages.
func ParseProject(data []byte, path string) (*Project, error) {
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolving directory: %w", err)
	}
	p.Dir = dir
	if err := p.validate(path); err != nil {
		return nil, err
	}
	p.resolvePaths()
	return &p, nil
}

// FindProject searches for kite.yaml starting from dir and walking up to
// parent directories. It returns an empty path when there is none.
func FindProject(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, ProjectFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// FindAndLoadProject loads the nearest kite.yaml above dir, or the
// defaults when there is none.
func FindAndLoadProject(dir string) (*Project, error) {
	path, err := FindProject(dir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return DefaultProject(), nil
	}
	return LoadProject(path)
}

func (p *Project) validate(path string) error {
	if p.Log.Verbosity < 0 || p.Log.Verbosity > 2 {
		return fmt.Errorf("%s: log.verbosity must be between 0 and 2, found %d", path, p.Log.Verbosity)
	}
	for i, mp := range p.ModulePaths {
		if strings.TrimSpace(mp) == "" {
			return fmt.Errorf("%s: module_paths[%d] is empty", path, i)
		}
	}
	return nil
}

func (p *Project) resolvePaths() {
	for i, mp := range p.ModulePaths {
		p.ModulePaths[i] = p.abs(mp)
	}
	if p.Cache.Path != "" {
		p.Cache.Path = p.abs(p.Cache.Path)
	}
	if p.Log.File != "" {
		p.Log.File = p.abs(p.Log.File)
	}
}

func (p *Project) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Dir, path)
}
