package kite_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	kite "github.com/funvibe/kite/pkg/embed"
)

// TestScripts runs every testdata/*.kite script, then its @main and @test
// entries, and compares the combined output with the matching .want file.
func TestScripts(t *testing.T) {
	scripts, err := filepath.Glob(filepath.Join("testdata", "*.kite"))
	if err != nil {
		t.Fatal(err)
	}
	if len(scripts) == 0 {
		t.Fatal("no scripts in testdata")
	}

	for _, script := range scripts {
		name := strings.TrimSuffix(filepath.Base(script), ".kite")
		t.Run(name, func(t *testing.T) {
			want, err := os.ReadFile(strings.TrimSuffix(script, ".kite") + ".want")
			if err != nil {
				t.Fatalf("missing .want file: %v", err)
			}

			args := []string{"x", "y"}
			var out bytes.Buffer
			engine := kite.New()
			engine.SetOutput(&out)
			engine.SetArgs(args)

			if _, err := engine.RunFile(script); err != nil {
				t.Fatalf("run failed: %v\noutput:\n%s", err, out.String())
			}
			if _, _, err := engine.Main(args); err != nil {
				t.Fatalf("@main failed: %v\noutput:\n%s", err, out.String())
			}
			engine.RunTests(func(r kite.TestResult) {
				if r.Passed() {
					fmt.Fprintf(&out, "PASS %s\n", r.Name)
				} else {
					fmt.Fprintf(&out, "FAIL %s: %v\n", r.Name, r.Err)
				}
			})

			got := strings.TrimSpace(out.String())
			expected := strings.TrimSpace(string(want))
			if got != expected {
				t.Errorf("output mismatch\n--- got ---\n%s\n--- want ---\n%s", got, expected)
			}
		})
	}
}
