package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/kite/internal/config"
	kite "github.com/funvibe/kite/pkg/embed"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name   string
		argv   []string
		check  func(*options) bool
		errStr string
	}{
		{"script with args", []string{"-v", "run.kite", "-x", "y"}, func(o *options) bool {
			return o.script == "run.kite" && o.verbosity == 1 && strings.Join(o.args, " ") == "-x y"
		}, ""},
		{"tests", []string{"--tests", "--no-cache", "t.kite"}, func(o *options) bool {
			return o.tests && o.noCache && o.script == "t.kite"
		}, ""},
		{"eval", []string{"-vv", "-e", "1 + 1"}, func(o *options) bool {
			return o.hasEval && o.eval == "1 + 1" && o.verbosity == 2
		}, ""},
		{"repl", nil, func(o *options) bool { return o.script == "" && !o.hasEval && o.verbosity == -1 }, ""},
		{"eval without source", []string{"-e"}, nil, "expects source code"},
		{"unknown flag", []string{"--bogus"}, nil, "unknown flag"},
		{"tests without script", []string{"--tests"}, nil, "expects a script"},
		{"eval and script", []string{"-e", "1", "x.kite"}, nil, "can't be combined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseArgs(tt.argv)
			if tt.errStr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errStr) {
					t.Fatalf("expected error containing %q, got %v", tt.errStr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !tt.check(opts) {
				t.Errorf("unexpected options %+v", opts)
			}
		})
	}

	if _, err := parseArgs([]string{"--help"}); !errors.Is(err, errHelp) {
		t.Errorf("expected errHelp, got %v", err)
	}
}

func TestRunTestsCommand(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "suite.kite")
	source := "@test ok = || assert true\n@test broken = || assert_eq 1, 2\n"
	if err := os.WriteFile(script, []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}

	var out, errBuf bytes.Buffer
	code := runTests(kite.New(), script, &painter{w: &out}, &painter{w: &errBuf})
	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(out.String(), "PASS ok") || !strings.Contains(out.String(), "1 passed, 1 failed") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
	if !strings.Contains(errBuf.String(), "FAIL broken") {
		t.Errorf("unexpected error output:\n%s", errBuf.String())
	}
}

func TestEvalLineKeepsBindings(t *testing.T) {
	engine := kite.New()
	if _, err := evalLine(engine, "x = 40"); err != nil {
		t.Fatal(err)
	}
	got, err := evalLine(engine, "x + 2")
	if err != nil {
		t.Fatal(err)
	}
	if got != "42" {
		t.Errorf("expected 42, got %q", got)
	}
	if got, _ := evalLine(engine, "null"); got != "" {
		t.Errorf("expected null to print nothing, got %q", got)
	}
}

func TestPainter(t *testing.T) {
	var buf bytes.Buffer
	(&painter{w: &buf, color: true}).error("bad")
	if buf.String() != ansiRed+"bad"+ansiReset+"\n" {
		t.Errorf("unexpected colored output %q", buf.String())
	}

	off := false
	p := newPainter(os.Stdout, &config.Project{Color: &off})
	if p.color {
		t.Error("expected kite.yaml to force color off")
	}
}
