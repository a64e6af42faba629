package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseProject(t *testing.T) {
	dir := t.TempDir()
	data := []byte(`
module_paths:
  - lib
  - /opt/kite/lib
cache:
  enabled: true
  path: .cache/chunks.db
log:
  verbosity: 2
  file: kite.log
color: false
`)
	p, err := ParseProject(data, filepath.Join(dir, ProjectFileName))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(p.ModulePaths) != 2 || p.ModulePaths[0] != filepath.Join(dir, "lib") || p.ModulePaths[1] != "/opt/kite/lib" {
		t.Errorf("unexpected module paths %v", p.ModulePaths)
	}
	if !p.Cache.Enabled || p.Cache.Path != filepath.Join(dir, ".cache", "chunks.db") {
		t.Errorf("unexpected cache config %+v", p.Cache)
	}
	if p.Log.Verbosity != 2 || p.Log.File != filepath.Join(dir, "kite.log") {
		t.Errorf("unexpected log config %+v", p.Log)
	}
	if p.Color == nil || *p.Color {
		t.Errorf("expected color to be forced off")
	}
}

func TestParseProjectErrors(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		contains string
	}{
		{"bad yaml", "module_paths: [", "parsing"},
		{"verbosity", "log:\n  verbosity: 5\n", "log.verbosity"},
		{"empty path", "module_paths:\n  - ''\n", "module_paths[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProject([]byte(tt.data), ProjectFileName)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("expected error containing %q, got %q", tt.contains, err.Error())
			}
		})
	}
}

func TestFindAndLoadProject(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "src", "scripts")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ProjectFileName), []byte("cache:\n  enabled: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	path, err := FindProject(nested)
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(root, ProjectFileName) {
		t.Errorf("found %q", path)
	}

	p, err := FindAndLoadProject(nested)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Cache.Enabled || p.Dir != root {
		t.Errorf("unexpected project %+v", p)
	}
}

func TestFindAndLoadProjectDefaults(t *testing.T) {
	p, err := FindAndLoadProject(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if p.Cache.Enabled || p.Dir != "" || len(p.ModulePaths) != 0 {
		t.Errorf("expected defaults, got %+v", p)
	}
}

func TestModuleName(t *testing.T) {
	if got := ModuleName("/a/b/util.kite"); got != "util" {
		t.Errorf("got %q", got)
	}
	if got := TrimSourceExt("x.txt"); got != "x.txt" {
		t.Errorf("got %q", got)
	}
}
