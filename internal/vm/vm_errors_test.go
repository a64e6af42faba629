package vm

import (
	"errors"
	"strings"
	"testing"

	"github.com/funvibe/kite/internal/diagnostics"
	"github.com/funvibe/kite/internal/parser"
)

func runVMExpectError(t *testing.T, input string) error {
	t.Helper()
	vm := New()
	_, err := vm.Run(compile(t, vm, input))
	if err == nil {
		t.Fatalf("expected a runtime error, got none\ninput: %s", input)
	}
	return err
}

func runVMExpectErrorContains(t *testing.T, input, substr string) {
	t.Helper()
	err := runVMExpectError(t, input)
	if !strings.Contains(err.Error(), substr) {
		t.Errorf("expected error containing %q, got %q", substr, err.Error())
	}
}

func compileExpectError(t *testing.T, input string, code diagnostics.ErrorCode) *diagnostics.DiagnosticError {
	t.Helper()
	program, err := parser.Parse(input, "test.kite")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	_, err = Compile(program, CompileOptions{File: "test.kite", Globals: New().GlobalNames()})
	if err == nil {
		t.Fatalf("expected a compile error, got none\ninput: %s", input)
	}
	var diag *diagnostics.DiagnosticError
	if !errors.As(err, &diag) {
		t.Fatalf("expected a diagnostic, got %T: %v", err, err)
	}
	if diag.Code != code {
		t.Errorf("expected %s, got %s: %s", code, diag.Code, diag.Message)
	}
	return diag
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"index out of bounds", "[1, 2][5]", "index 5 is out of bounds for size 2"},
		{"bad operands", "1 + 'a'", "unable to apply '+' to Number and String"},
		{"not callable", "x = 1\nx()", "Number is not callable"},
		{"arity", "f = |a, b| a\nf 1", "expects 2 arguments, found 1"},
		{"missing field", "m = {a: 1}\nm.b", "'b' not found in Map"},
		{"no match", "match 3 {\n  1 then 'one'\n}", "no match found"},
		{"throw string", "throw 'oops'", "oops"},
		{"stack overflow", "f = |n| f(n + 1)\nf 0", "stack overflow"},
		{"unpack", "f = |(a, b)| a\nf (1, 2, 3)", "expected 2 elements to unpack, found 3"},
		{"integer remainder", "1 % 0", "integer remainder by zero"},
		{"assertion", "assert_eq 1, 2", "assertion failed, '1' is not equal to '2'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runVMExpectErrorContains(t, tt.input, tt.expected)
		})
	}
}

func TestRuntimeErrorLocation(t *testing.T) {
	err := runVMExpectError(t, "x = 1\ny = 2\nthrow 'here'")
	var rtErr *RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
	if rtErr.Message != "here" {
		t.Errorf("wrong message %q", rtErr.Message)
	}
	if len(rtErr.Trace) == 0 || rtErr.Trace[0].Line != 3 {
		t.Errorf("expected the error on line 3, got trace %+v", rtErr.Trace)
	}
	if !strings.HasSuffix(err.Error(), ":3: here") {
		t.Errorf("unexpected error text %q", err.Error())
	}
}

func TestErrorTrace(t *testing.T) {
	input := `
inner = || throw 'deep'
outer = || inner()
outer()`
	err := runVMExpectError(t, input)
	var rtErr *RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
	trace := rtErr.FormatTrace()
	if !strings.Contains(trace, "at inner") || !strings.Contains(trace, "at outer") {
		t.Errorf("trace is missing frames:\n%s", trace)
	}
	if strings.Index(trace, "at inner") > strings.Index(trace, "at outer") {
		t.Errorf("expected the innermost call first:\n%s", trace)
	}
}

func TestTryCatch(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"catch runtime error", "try {\n  [1][3]\n} catch e {\n  'caught: {e}'\n}", "caught: index 3 is out of bounds for size 1"},
		{"catch thrown map", "try {\n  throw {code: 42}\n} catch e {\n  e.code\n}", "42"},
		{"no error", "try {\n  1\n} catch {\n  2\n}", "1"},
		{"catch native type error", "try {\n  [1, 2].keys()\n} catch e {\n  'caught: {e}'\n}", "caught: 'keys' not found in List"},
		{"nested rethrow", `
try {
  try {
    throw 'inner'
  } catch e {
    throw '{e} again'
  }
} catch e {
  e
}`, "inner again"},
		{"finally runs", `
log = []
try {
  log.push 'body'
} finally {
  log.push 'finally'
}
log`, "['body', 'finally']"},
		{"error from callback", `
log = []
result = try {
  [1, 2, 3].keep(|x| if x == 2 then throw 'bad' else true).to_list()
} catch e {
  log.push 'caught {e}'
  -1
} finally {
  log.push 'finally'
}
(result, log)`, "(-1, ['caught bad', 'finally'])"},
		{"return through finally", `
log = []
f = || {
  try {
    return 'early'
  } finally {
    log.push 'cleanup'
  }
  'late'
}
(f(), log)`, "('early', ['cleanup'])"},
		{"break through finally", `
log = []
for i in 0..5 {
  try {
    if i == 2 { break }
  } finally {
    log.push i
  }
}
log`, "[0, 1, 2]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectResult(t, tt.input, tt.expected)
		})
	}
}

func TestUncaughtInFinallyPropagates(t *testing.T) {
	input := `
try {
  throw 'first'
} finally {
  x = 1
}`
	runVMExpectErrorContains(t, input, "first")
}

func TestGenerators(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"basic", "gen = || {\n  yield 1\n  yield 2\n}\ngen().to_list()", "[1, 2]"},
		{"loop", `
squares = |n| {
  for i in 0..n {
    yield i * i
  }
}
squares(5).to_tuple()`, "(0, 1, 4, 9, 16)"},
		{"lazy infinite", `
naturals = || {
  n = 0
  loop {
    yield n
    n += 1
  }
}
naturals().keep(|n| n % 3 == 0).take(4).to_list()`, "[0, 3, 6, 9]"},
		{"for over generator", `
gen = |xs| {
  for x in xs {
    yield x * 10
  }
}
total = 0
for x in gen [1, 2, 3] {
  total += x
}
total`, "60"},
		{"catch inside generator", `
gen = || {
  try {
    yield 1
    throw 'boom'
  } catch e {
    yield 'caught {e}'
  }
}
gen().to_list()`, "[1, 'caught boom']"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectResult(t, tt.input, tt.expected)
		})
	}
}

func TestCompileErrors(t *testing.T) {
	t.Run("unresolved identifier", func(t *testing.T) {
		diag := compileExpectError(t, "x = 1\ny + x", diagnostics.ErrC001)
		if diag.Message != "unresolved identifier 'y'" {
			t.Errorf("wrong message %q", diag.Message)
		}
		if diag.Token.Line != 2 {
			t.Errorf("expected line 2, got %d", diag.Token.Line)
		}
	})
	t.Run("break outside loop", func(t *testing.T) {
		compileExpectError(t, "break", diagnostics.ErrC004)
	})
	t.Run("export inside function", func(t *testing.T) {
		compileExpectError(t, "f = || {\n  x = 1\n  @main = || 1\n}", diagnostics.ErrC002)
	})
	t.Run("local before assignment", func(t *testing.T) {
		compileExpectError(t, "f = || {\n  z + 1\n}", diagnostics.ErrC001)
	})
}
