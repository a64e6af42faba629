package modules

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/funvibe/kite/internal/config"
	"github.com/funvibe/kite/internal/value"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("export x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	canonical, err := canonicalPath(path)
	if err != nil {
		t.Fatal(err)
	}
	return canonical
}

func TestFileResolver(t *testing.T) {
	root := t.TempDir()
	scripts := filepath.Join(root, "scripts")
	lib := filepath.Join(root, "lib")

	local := touch(t, filepath.Join(scripts, "helpers.kite"))
	pkg := touch(t, filepath.Join(scripts, "geometry", "main.kite"))
	nested := touch(t, filepath.Join(scripts, "geometry", "shapes.kite"))
	shared := touch(t, filepath.Join(lib, "shared.kite"))
	shadowed := touch(t, filepath.Join(lib, "helpers.kite"))

	r := NewFileResolver(lib)
	tests := []struct {
		importPath string
		expected   string
	}{
		{"helpers", local},
		{"helpers.kite", local},
		{"geometry", pkg},
		{"geometry/shapes", nested},
		{"shared", shared},
		{shadowed, shadowed},
	}
	for _, tt := range tests {
		t.Run(tt.importPath, func(t *testing.T) {
			got, err := r.Resolve(scripts, tt.importPath)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}

	for _, missing := range []string{"", "nowhere", "geometry/circles"} {
		if _, err := r.Resolve(scripts, missing); !errors.Is(err, ErrNotFound) {
			t.Errorf("%q: expected ErrNotFound, got %v", missing, err)
		}
	}
}

func TestSearchPathsFromEnv(t *testing.T) {
	t.Setenv(config.SearchPathEnv, "")
	if paths := SearchPathsFromEnv(); paths != nil {
		t.Errorf("expected no paths, got %v", paths)
	}

	joined := "a" + string(os.PathListSeparator) + string(os.PathListSeparator) + "b"
	t.Setenv(config.SearchPathEnv, joined)
	paths := SearchPathsFromEnv()
	if len(paths) != 2 || paths[0] != "a" || paths[1] != "b" {
		t.Errorf("unexpected paths %v", paths)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if _, found, err := r.Lookup("/a.kite"); found || err != nil {
		t.Fatalf("expected an empty registry, got found=%v err=%v", found, err)
	}

	mod := r.Begin("/a.kite")
	if _, found, err := r.Lookup("/a.kite"); !found || !errors.Is(err, ErrCycle) {
		t.Errorf("expected a cycle while loading, got found=%v err=%v", found, err)
	}

	mod.Exports.Insert(value.Str("x"), value.Int(1))
	r.Finish("/a.kite")
	got, found, err := r.Lookup("/a.kite")
	if !found || err != nil || got != mod {
		t.Fatalf("expected the finished module, got %v %v %v", got, found, err)
	}

	r.Begin("/b.kite")
	r.Abort("/b.kite")
	if _, found, _ := r.Lookup("/b.kite"); found {
		t.Error("expected an aborted module to be forgotten")
	}

	r.Add("/main.kite", value.NewMap())
	if paths := r.Paths(); len(paths) != 2 || paths[0] != "/a.kite" || paths[1] != "/main.kite" {
		t.Errorf("unexpected paths %v", paths)
	}
}
