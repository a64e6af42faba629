package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/funvibe/kite/internal/ast"
	"github.com/funvibe/kite/internal/diagnostics"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	program, err := Parse(input, "test.kite")
	if err != nil {
		t.Fatalf("parse error: %v\ninput: %s", err, input)
	}
	return program
}

func parseSingle(t *testing.T, input string) ast.Expression {
	t.Helper()
	program := parse(t, input)
	if len(program.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d\ninput: %s", len(program.Statements), input)
	}
	return program.Statements[0]
}

func expectParseError(t *testing.T, input string, code diagnostics.ErrorCode) *diagnostics.DiagnosticError {
	t.Helper()
	_, err := Parse(input, "test.kite")
	if err == nil {
		t.Fatalf("expected error %s, got none\ninput: %s", code, input)
	}
	var d *diagnostics.DiagnosticError
	if !errors.As(err, &d) {
		t.Fatalf("expected a diagnostic, got %T: %v", err, err)
	}
	if d.Code != code {
		t.Fatalf("expected error %s, got %v", code, d)
	}
	if d.Kind != diagnostics.ParseError {
		t.Fatalf("expected a parse error, got %v", d.Kind)
	}
	return d
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"2 ^ 3 ^ 2", "(2 ^ (3 ^ 2))"},
		{"-x ^ 2", "(-(x ^ 2))"},
		{"a == b and c < d", "((a == b) and (c < d))"},
		{"not a or b", "((not a) or b)"},
		{"x >> f >> g", "((x >> f) >> g)"},
		{"1 + 2..5", "(1 + 2)..5"},
		{"a = b = 1", "a = b = 1"},
		{"x = 1 +\n 2", "x = (1 + 2)"},
		{"f(1)(2)", "f(1)(2)"},
		{"xs[0].y", "xs[0].y"},
	}
	for _, tt := range tests {
		got := show(parseSingle(t, tt.input))
		if got != tt.expected {
			t.Errorf("%q: expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestParenFreeCalls(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"print 'hi'", "print('hi')"},
		{"print 1, 2", "print(1, 2)"},
		{"f (1, 2)", "f((1, 2))"},
		{"xs.each |x| x", "xs.each(|x| x)"},
		{"f x, g y", "f(x, g(y))"},
		{"f [1]", "f([1])"},
		{"xs[1]", "xs[1]"},
		{"x = foo 1", "x = foo(1)"},
	}
	for _, tt := range tests {
		got := show(parseSingle(t, tt.input))
		if got != tt.expected {
			t.Errorf("%q: expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestChainContinuation(t *testing.T) {
	expr := parseSingle(t, "xs\n  .keep |x| x > 1\n  .to_list()")
	if got := show(expr); got != "xs.keep(|x| (x > 1)).to_list()" {
		t.Errorf("unexpected chain: %s", got)
	}
}

func TestTuplesAndMultiAssign(t *testing.T) {
	program := parse(t, "a, b = 1, 2\nx = 1, 2\n1, 2\nf(1, 2)")
	if _, ok := program.Statements[0].(*ast.MultiAssignExpression); !ok {
		t.Errorf("expected multi-assign, got %T", program.Statements[0])
	}
	assign := program.Statements[1].(*ast.AssignExpression)
	if tuple, ok := assign.Value.(*ast.TupleLiteral); !ok || len(tuple.Elements) != 2 {
		t.Errorf("expected tuple value, got %s", show(assign.Value))
	}
	if _, ok := program.Statements[2].(*ast.TupleLiteral); !ok {
		t.Errorf("expected tuple, got %T", program.Statements[2])
	}
	call := program.Statements[3].(*ast.CallExpression)
	if len(call.Arguments) != 2 {
		t.Errorf("expected 2 arguments, got %d", len(call.Arguments))
	}
}

func TestGroupedAndTuples(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"(1)", "1"},
		{"(1,)", "(1,)"},
		{"()", "()"},
		{"(1, 2, 3)", "(1, 2, 3)"},
	}
	for _, tt := range tests {
		if got := show(parseSingle(t, tt.input)); got != tt.expected {
			t.Errorf("%q: expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestMapLiterals(t *testing.T) {
	expr := parseSingle(t, "m = {a: 1, 'b c': 2, x, @+: |a, b| a\n  @test basics: || null}")
	m := expr.(*ast.AssignExpression).Value.(*ast.MapLiteral)
	if len(m.Entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(m.Entries))
	}
	if m.Entries[1].Key.Name != "b c" {
		t.Errorf("expected string key, got %+v", m.Entries[1].Key)
	}
	if m.Entries[2].Value != nil || m.Entries[2].Key.Name != "x" {
		t.Errorf("expected shorthand entry, got %+v", m.Entries[2])
	}
	if m.Entries[3].Key.Meta != "@+" || m.Entries[4].Key.Meta != "@test basics" {
		t.Errorf("unexpected metakeys: %q %q", m.Entries[3].Key.Meta, m.Entries[4].Key.Meta)
	}
}

func TestFunctionLiterals(t *testing.T) {
	expr := parseSingle(t, "f = |a, (b, c), [d, e...], rest...| a")
	fn := expr.(*ast.AssignExpression).Value.(*ast.FunctionLiteral)
	if fn.Name != "f" {
		t.Errorf("expected the literal to be named f, got %q", fn.Name)
	}
	if len(fn.Parameters) != 4 || !fn.Parameters[3].Variadic {
		t.Fatalf("unexpected parameters: %+v", fn.Parameters)
	}
	if _, ok := fn.Parameters[1].Pattern.(*ast.TuplePattern); !ok {
		t.Errorf("expected tuple pattern, got %T", fn.Parameters[1].Pattern)
	}
	if _, ok := fn.Parameters[2].Pattern.(*ast.ListPattern); !ok {
		t.Errorf("expected list pattern, got %T", fn.Parameters[2].Pattern)
	}

	body := parseSingle(t, "|| {\n  x = 1\n  x\n}").(*ast.FunctionLiteral).Body
	if block, ok := body.(*ast.Block); !ok || len(block.Statements) != 2 {
		t.Errorf("expected block body, got %s", show(body))
	}

	mapBody := parseSingle(t, "|| {a: 1}").(*ast.FunctionLiteral).Body
	if _, ok := mapBody.(*ast.MapLiteral); !ok {
		t.Errorf("expected map body, got %T", mapBody)
	}
}

func TestGenerators(t *testing.T) {
	fn := parseSingle(t, "|| {\n  yield 1\n  inner = || 2\n}").(*ast.FunctionLiteral)
	if !fn.IsGenerator {
		t.Errorf("expected a generator")
	}
	inner := fn.Body.(*ast.Block).Statements[1].(*ast.AssignExpression).Value.(*ast.FunctionLiteral)
	if inner.IsGenerator {
		t.Errorf("yield must not mark enclosing-only functions")
	}
	expectParseError(t, "yield 1", diagnostics.ErrP006)
}

func TestIfExpressions(t *testing.T) {
	expr := parseSingle(t, "x = if a then 1 else 2")
	ifExpr := expr.(*ast.AssignExpression).Value.(*ast.IfExpression)
	if ifExpr.Alternative == nil {
		t.Errorf("expected else branch")
	}

	chain := parseSingle(t, "if a {\n 1\n}\nelse if b {\n 2\n} else {\n 3\n}").(*ast.IfExpression)
	nested, ok := chain.Alternative.(*ast.IfExpression)
	if !ok || nested.Alternative == nil {
		t.Errorf("expected else-if chain, got %s", show(chain.Alternative))
	}
}

func TestMatchExpressions(t *testing.T) {
	input := `match x, y {
  0, 0 then 'origin'
  (a, b), _ or [a, b], _ if a > b then 'pair'
  -1, z { z }
  else 'other'
}`
	m := parseSingle(t, input).(*ast.MatchExpression)
	if len(m.Subjects) != 2 || len(m.Arms) != 4 {
		t.Fatalf("expected 2 subjects and 4 arms, got %d and %d", len(m.Subjects), len(m.Arms))
	}
	if len(m.Arms[1].Alternatives) != 2 || m.Arms[1].Guard == nil {
		t.Errorf("expected alternatives with a guard, got %+v", m.Arms[1])
	}
	lit := m.Arms[2].Alternatives[0][0].(*ast.LiteralPattern)
	if n, ok := lit.Value.(*ast.IntegerLiteral); !ok || n.Value != -1 {
		t.Errorf("expected -1 literal pattern, got %s", show(lit.Value))
	}
	if !m.Arms[3].IsElse {
		t.Errorf("expected else arm")
	}

	expectParseError(t, "match x {\n 1, 2 then 3\n}", diagnostics.ErrP005)
	expectParseError(t, "match x {\n [a..., b...] then 1\n}", diagnostics.ErrP005)
}

func TestSwitchExpression(t *testing.T) {
	s := parseSingle(t, "switch {\n a > 1 then 'big'\n a == 1 { 'one' }\n else 'small'\n}").(*ast.SwitchExpression)
	if len(s.Arms) != 3 || s.Arms[2].Condition != nil {
		t.Errorf("unexpected switch arms: %+v", s.Arms)
	}
}

func TestTryExpression(t *testing.T) {
	tr := parseSingle(t, "try {\n f()\n}\ncatch e {\n e\n}\nfinally {\n done()\n}").(*ast.TryExpression)
	if !tr.HasCatch || tr.CatchName != "e" || tr.FinallyBody == nil {
		t.Errorf("unexpected try: %+v", tr)
	}

	discard := parseSingle(t, "try { f() } catch _ { 1 }").(*ast.TryExpression)
	if !discard.HasCatch || discard.CatchName != "" {
		t.Errorf("expected discarded catch binding, got %q", discard.CatchName)
	}

	expectParseError(t, "try { f() }", diagnostics.ErrP003)
}

func TestLoops(t *testing.T) {
	program := parse(t, "for i, (k, v) in xs {\n break\n}\nwhile x < 10 {\n x += 1\n}\nuntil done { continue }\nloop { return }")
	f := program.Statements[0].(*ast.ForExpression)
	if len(f.Bindings) != 2 {
		t.Errorf("expected 2 bindings, got %d", len(f.Bindings))
	}
	if w := program.Statements[2].(*ast.WhileExpression); !w.Until {
		t.Errorf("expected until loop")
	}
	if _, ok := program.Statements[3].(*ast.LoopExpression); !ok {
		t.Errorf("expected loop, got %T", program.Statements[3])
	}

	r := parseSingle(t, "for i in 0.. {\n i\n}").(*ast.ForExpression)
	if rng := r.Iterable.(*ast.RangeExpression); rng.End != nil {
		t.Errorf("expected open range, got %s", show(rng))
	}
}

func TestImportsAndExports(t *testing.T) {
	program := parse(t, "import foo, bar.baz as qux\nfrom 'lib/x.kite' import a, b as c\nexport a, b = 1, 2\nexport {x: 1}\n@main = || null\n@test basics = || null")
	imp := program.Statements[0].(*ast.ImportExpression)
	if len(imp.Items) != 2 || imp.Items[1].Alias != "qux" || len(imp.Items[1].Path) != 2 {
		t.Errorf("unexpected import: %+v", imp.Items)
	}
	from := program.Statements[1].(*ast.ImportExpression)
	if from.From == nil || from.From.Literal != "lib/x.kite" || from.Items[1].Alias != "c" {
		t.Errorf("unexpected from import: %+v", from)
	}
	exp := program.Statements[2].(*ast.ExportExpression)
	if _, ok := exp.Value.(*ast.MultiAssignExpression); !ok {
		t.Errorf("expected exported multi-assign, got %T", exp.Value)
	}
	meta := program.Statements[5].(*ast.MetaAssignExpression)
	if meta.Key != "@test basics" {
		t.Errorf("expected test entry, got %q", meta.Key)
	}

	expectParseError(t, "@bogus = 1", diagnostics.ErrP007)
}

func TestStringInterpolation(t *testing.T) {
	lit := parseSingle(t, "'x = {x + 1}, {pi:.2}'").(*ast.StringLiteral)
	if len(lit.Parts) != 4 {
		t.Fatalf("expected 4 parts, got %d", len(lit.Parts))
	}
	if show(lit.Parts[1].Expr) != "(x + 1)" {
		t.Errorf("unexpected interpolation: %s", show(lit.Parts[1].Expr))
	}
	if lit.Parts[3].Format != ".2" {
		t.Errorf("expected format .2, got %q", lit.Parts[3].Format)
	}
}

func TestDebugExpression(t *testing.T) {
	d := parseSingle(t, "debug x + 1").(*ast.DebugExpression)
	if d.Source != "x + 1" {
		t.Errorf("expected source text, got %q", d.Source)
	}
}

func TestCompoundAssignmentTargets(t *testing.T) {
	for _, input := range []string{"x += 1", "a.b -= 2", "xs[0] *= 3", "m.'key' = 1"} {
		parseSingle(t, input)
	}
	expectParseError(t, "1 = 2", diagnostics.ErrP002)
	expectParseError(t, "_x += 1", diagnostics.ErrP002)
}

func TestParseErrorLocation(t *testing.T) {
	d := expectParseError(t, "x = 1\ny = )", diagnostics.ErrP001)
	if d.Line() != 2 || d.Column() != 5 {
		t.Errorf("expected error at 2:5, got %d:%d", d.Line(), d.Column())
	}
	if !strings.Contains(d.Error(), "test.kite:2:5") {
		t.Errorf("expected file location in %q", d.Error())
	}
}

func TestIncompleteInput(t *testing.T) {
	for _, input := range []string{"f = || {", "x = [1, 2", "'unterminated"} {
		_, err := Parse(input, "")
		if err == nil || !IsIncomplete(err) {
			t.Errorf("%q: expected incomplete input, got %v", input, err)
		}
	}
	_, err := Parse("x = )", "")
	if IsIncomplete(err) {
		t.Errorf("a misplaced token is not incomplete input")
	}
}
