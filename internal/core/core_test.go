package core_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/kite/internal/parser"
	"github.com/funvibe/kite/internal/vm"
)

// eval runs input on a fresh VM and returns the displayed result.
func eval(t *testing.T, input string) string {
	t.Helper()
	s, _, err := evalOutput(input)
	if err != nil {
		t.Fatalf("error: %v\ninput: %s", err, input)
	}
	return s
}

func evalOutput(input string) (string, string, error) {
	machine := vm.New()
	var out bytes.Buffer
	machine.SetOutput(&out)
	program, err := parser.Parse(input, "test.kite")
	if err != nil {
		return "", "", err
	}
	chunk, err := vm.Compile(program, vm.CompileOptions{File: "test.kite", Globals: machine.GlobalNames()})
	if err != nil {
		return "", "", err
	}
	result, err := machine.Run(chunk)
	if err != nil {
		return "", out.String(), err
	}
	s, err := machine.Display(result)
	return s, out.String(), err
}

type testCase struct {
	input    string
	expected string
}

func runCases(t *testing.T, tests []testCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := eval(t, tt.input); got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestIteratorModule(t *testing.T) {
	runCases(t, []testCase{
		{"[1, 2, 3].each(|x| x * 2).to_list()", "[2, 4, 6]"},
		{"(1..=6).keep(|x| x % 2 == 0).to_tuple()", "(2, 4, 6)"},
		{"[1, 2, 3].all |x| x > 0", "true"},
		{"[1, 2, 3].any |x| x > 2", "true"},
		{"[1, 2].chain([3, 4]).to_list()", "[1, 2, 3, 4]"},
		{"(1..=5).chunks(2).to_list()", "[(1, 2), (3, 4), (5)]"},
		{"(1..=4).windows(3).to_list()", "[(1, 2, 3), (2, 3, 4)]"},
		{"(0..10).count()", "10"},
		{"[1, 2].cycle().take(5).to_list()", "[1, 2, 1, 2, 1]"},
		{"['a', 'b'].enumerate().to_list()", "[(0, 'a'), (1, 'b')]"},
		{"[3, 4, 5].find |x| x > 3", "4"},
		{"[3, 4, 5].find |x| x > 9", "null"},
		{"[[1, 2], [3], []].flatten().to_list()", "[1, 2, 3]"},
		{"(1..=4).fold 0, |acc, x| acc + x", "10"},
		{"iterator.generate(3, || 'x').to_list()", "['x', 'x', 'x']"},
		{"[1, 2, 3].intersperse(0).to_list()", "[1, 0, 2, 0, 3]"},
		{"(1..=3).last()", "3"},
		{"[3, 1, 2].max()", "3"},
		{"['aaa', 'b', 'cc'].min |s| size s", "b"},
		{"[3, 1, 2].min_max()", "(1, 3)"},
		{"[].max()", "null"},
		{"iterator.once(7).to_list()", "[7]"},
		{"[5, 6, 7].position |x| x == 6", "1"},
		{"(1..=5).product()", "120"},
		{"(1..=4).sum()", "10"},
		{"[0.5, 0.25].sum()", "0.75"},
		{"iterator.repeat('y', 2).to_list()", "['y', 'y']"},
		{"(1..=3).reversed().to_list()", "[3, 2, 1]"},
		{"(0..6).skip(4).to_list()", "[4, 5]"},
		{"(0..10).step(3).to_list()", "[0, 3, 6, 9]"},
		{"(1..).take(3).to_list()", "[1, 2, 3]"},
		{"[1, 2, 5, 1].take_while(|x| x < 3).to_list()", "[1, 2]"},
		{"[('a', 1), ('b', 2)].to_map()", "{a: 1, b: 2}"},
		{"['x', 1, 'y'].to_string()", "x1y"},
		{"[1, 2, 3].zip(['a', 'b']).to_list()", "[(1, 'a'), (2, 'b')]"},
		{"{a: 1, b: 2}.each(|(k, v)| '{k}{v}').to_tuple()", "('a1', 'b2')"},
		{"'héllo'.each(|c| c).to_list()", "['h', 'é', 'l', 'l', 'o']"},
	})
}

func TestIteratorNext(t *testing.T) {
	input := `
it = [1, 2].each |x| x * 10
(it.next(), it.next(), it.next())`
	if got := eval(t, input); got != "(10, 20, null)" {
		t.Errorf("got %s", got)
	}
}

func TestPeekable(t *testing.T) {
	input := `
p = [1, 2, 3].peekable()
first = p.peek()
taken = p.next()
rest = p.to_list()
(first, taken, rest, type p)`
	if got := eval(t, input); got != "(1, 1, [2, 3], 'Peekable')" {
		t.Errorf("got %s", got)
	}
}

func TestSumUsesOperatorMetakeys(t *testing.T) {
	input := `
money = |n| {n: n, @+: |a, b| money(a.n + b.n), @display: |self| '${self.n}'}
[money(1), money(2), money(3)].sum money(0)`
	if got := eval(t, input); got != "$6" {
		t.Errorf("got %s", got)
	}
}

func TestConsumeRunsCallbacks(t *testing.T) {
	_, out, err := evalOutput("(1..=3).each(|x| print x).consume()")
	if err != nil {
		t.Fatal(err)
	}
	if out != "1\n2\n3\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestListModule(t *testing.T) {
	runCases(t, []testCase{
		{"xs = [1, 2]\nxs.clear()\nxs", "[]"},
		{"[1, 2].contains 2", "true"},
		{"a = [[1]]\nb = a.copy()\nb[0].push 2\na", "[[1, 2]]"},
		{"a = [[1]]\nb = a.deep_copy()\nb[0].push 2\na", "[[1]]"},
		{"[1].extend(2..=3)", "[1, 2, 3]"},
		{"[1, 2, 3].fill 0", "[0, 0, 0]"},
		{"([1, 2].first(), [1, 2].last(), [].first())", "(1, 2, null)"},
		{"([1, 2].get(5), [1, 2].get(5, 'd'), [1, 2].get(-1))", "(null, 'd', 2)"},
		{"[1, 3].insert 1, 2", "[1, 2, 3]"},
		{"([].is_empty(), [1].is_empty())", "(true, false)"},
		{"xs = [1, 2]\n(xs.pop(), xs)", "(2, [1])"},
		{"[1].push 2, 3", "[1, 2, 3]"},
		{"xs = [1, 2, 3]\n(xs.remove(0), xs)", "(1, [2, 3])"},
		{"[1].resize 3, 0", "[1, 0, 0]"},
		{"[1, 2, 3].resize 1", "[1]"},
		{"[1, 2, 3, 4].retain |x| x % 2 == 0", "[2, 4]"},
		{"[1, 2, 1].retain 1", "[1, 1]"},
		{"[1, 2, 3].reverse()", "[3, 2, 1]"},
		{"[3, 1, 2].sort()", "[1, 2, 3]"},
		{"['ccc', 'a', 'bb'].sort |s| size s", "['a', 'bb', 'ccc']"},
		{"xs = [1, 2, 3]\nxs.swap 0, 2\nxs", "[3, 2, 1]"},
		{"[1, 2].swap 0, 1", "null"},
		{"[1, 2].to_tuple()", "(1, 2)"},
		{"[1, 2].transform |x| x + 1", "[2, 3]"},
		{"list.size [1, 2]", "2"},
	})
}

func TestTupleModule(t *testing.T) {
	runCases(t, []testCase{
		{"(1, 2).contains 2", "true"},
		{"((1, 2).first(), (1, 2).last(), ().first())", "(1, 2, null)"},
		{"(1, 2).get 1", "2"},
		{"((), (1,)).each(|t| t.is_empty()).to_tuple()", "(true, false)"},
		{"(3, 1, 2).sort_copy()", "(1, 2, 3)"},
		{"(1, 2).to_list()", "[1, 2]"},
		{"(1, 2, 3).size()", "3"},
	})
}

func TestMapModule(t *testing.T) {
	runCases(t, []testCase{
		{"m = {a: 1}\nm.clear()\nm", "{}"},
		{"{a: 1}.contains_key 'a'", "true"},
		{"m = {a: [1]}\nc = m.copy()\nc.a.push 2\nm", "{a: [1, 2]}"},
		{"m = {a: [1]}\nc = m.deep_copy()\nc.a.push 2\nm", "{a: [1]}"},
		{"{a: 1}.extend({b: 2})", "{a: 1, b: 2}"},
		{"{a: 1}.extend [('b', 2)]", "{a: 1, b: 2}"},
		{"({a: 1}.get('a'), {a: 1}.get('z', 0))", "(1, 0)"},
		{"{a: 1, b: 2}.get_index 1", "('b', 2)"},
		{"m = {a: 1}\n(m.insert('a', 2), m.insert('b', 3), m)", "(1, null, {a: 2, b: 3})"},
		{"{}.is_empty()", "true"},
		{"{a: 1, b: 2}.keys().to_list()", "['a', 'b']"},
		{"{a: 1, b: 2}.values().to_list()", "[1, 2]"},
		{"m = {a: 1, b: 2}\n(m.remove('a'), m.remove('z'), m)", "(1, null, {b: 2})"},
		{"{a: 1, b: 2}.size()", "2"},
		{"{c: 1, a: 2, b: 3}.sort()", "{a: 2, b: 3, c: 1}"},
		{"{a: 3, b: 1, c: 2}.sort |k, v| v", "{b: 1, c: 2, a: 3}"},
		{"m = {n: 1}\nm.update 'n', |x| x + 1\nm.n", "2"},
		{"m = {}\nm.update 'n', |x| if x == null then 0 else x + 1\nm.n", "0"},
		{"m = {x: 1}\nmeta = {@display: |self| 'meta'}\nw = m.with_meta meta\n(m, w)", "({x: 1}, meta)"},
		{"m = {@type: 'Thing', x: 1}\ntype m.get_meta()", "Thing"},
		{"m = {}\nm.insert((1, 2), 'pair')\nm.get (1, 2)", "pair"},
	})
}

func TestNumberModule(t *testing.T) {
	runCases(t, []testCase{
		{"(-3).abs()", "3"},
		{"number.abs(-2.5)", "2.5"},
		{"(1.2.ceil(), 1.8.floor(), 2.5.round(), 7.round())", "(2, 1, 3, 7)"},
		{"15.clamp 0, 10", "10"},
		{"number.is_nan number.nan", "true"},
		{"number.max 1, 5", "5"},
		{"number.min 4, 2.5", "2.5"},
		{"2.pow 8", "256"},
		{"16.sqrt()", "4.0"},
		{"(3.to_float(), -3.7.to_int())", "(3.0, -3)"},
		{"number.pi > 3.14 and number.pi < 3.15", "true"},
		{"number.tau == number.pi * 2", "true"},
		{"number.infinity > 1e300", "true"},
		{"number.ln 1", "0.0"},
		{"number.log2 8", "3.0"},
		{"number.log10(1000) > 2.999", "true"},
		{"number.atan2(0, 1)", "0.0"},
	})
}

func TestRangeModule(t *testing.T) {
	runCases(t, []testCase{
		{"((0..10).contains(5), (0..10).contains(10), (0..=10).contains(10))", "(true, false, true)"},
		{"(10..0).contains 10", "true"},
		{"(0..10).contains 2..5", "true"},
		{"((0..10).start(), (0..10).end(), (..5).start())", "(0, 10, null)"},
		{"(2..4).expanded 1", "1..5"},
		{"(0..10).intersection 5..15", "5..10"},
		{"(0..3).intersection 5..8", "null"},
		{"((0..3).is_inclusive(), (0..=3).is_inclusive())", "(false, true)"},
		{"((0..10).size(), (0..=10).size(), (10..0).size())", "(10, 11, 10)"},
		{"(0..3).union 5", "0..6"},
		{"(0..3).union 5..8", "0..8"},
	})
}

func TestStringModule(t *testing.T) {
	runCases(t, []testCase{
		{"'ab'.bytes().to_list()", "[97, 98]"},
		{"'héllo'.chars().to_list()", "['h', 'é', 'l', 'l', 'o']"},
		{"('hello'.contains('ell'), 'hello'.starts_with('he'), 'hello'.ends_with('x'))", "(true, true, false)"},
		{"'\\{} + \\{} = \\{}'.format 1, 2, 3", "1 + 2 = 3"},
		{"'\\{1} \\{0}'.format 'a', 'b'", "b a"},
		{"'\\{\\{\\}\\}'.format()", "{}"},
		{"''.is_empty()", "true"},
		{"'a\\nb\\r\\nc'.lines().to_list()", "['a', 'b', 'c']"},
		{"'ab'.repeat 3", "ababab"},
		{"'a-b-c'.replace '-', '+'", "a+b+c"},
		{"'héllo'.size()", "5"},
		{"'a,b,,c'.split(',').to_list()", "['a', 'b', '', 'c']"},
		{"'a1b2c'.split(|c| c.to_number() != null).to_list()", "['a', 'b', 'c']"},
		{"('Kite'.to_lowercase(), 'Kite'.to_uppercase())", "('kite', 'KITE')"},
		{"('42'.to_number(), '2.5'.to_number(), 'x'.to_number())", "(42, 2.5, null)"},
		{"('  x  '.trim(), '  x  '.trim_start(), '  x  '.trim_end())", "('x', 'x  ', '  x')"},
		{"x = 3.14159\n'{x:.2}'", "3.14"},
		{"'[{'ab':>5}]'", "[   ab]"},
		{"'[{'ab':-^6}]'", "[--ab--]"},
	})
}

func TestPrelude(t *testing.T) {
	runCases(t, []testCase{
		{"(type(1), type('a'), type([]), type({}), type(()), type(1..2), type(null), type(true))",
			"('Number', 'String', 'List', 'Map', 'Tuple', 'Range', 'Null', 'Bool')"},
		{"(size('ab'), size([1]), size((1, 2, 3)), size(0..4))", "(2, 1, 3, 4)"},
		{"assert true\nassert_eq [1], [1]\nassert_ne 1, 2\nassert_near 0.1 + 0.2, 0.3\n'ok'", "ok"},
		{"assert_near 1.0, 1.05, 0.1\n'ok'", "ok"},
	})

	for _, tt := range []struct{ input, contains string }{
		{"assert false", "assertion failed"},
		{"assert 1 == 2, 'numbers differ'", "assertion failed: numbers differ"},
		{"assert_ne 1, 1", "assertion failed, '1' is equal to '1'"},
		{"assert_near 1.0, 2.0", "assertion failed"},
	} {
		t.Run(tt.input, func(t *testing.T) {
			_, _, err := evalOutput(tt.input)
			if err == nil || !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("expected error containing %q, got %v", tt.contains, err)
			}
		})
	}
}

func TestIOModule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.ToSlash(filepath.Join(dir, "out.txt"))
	input := `
path = '` + path + `'
io.write_file path, 'one\n'
io.append_file path, 'two\n'
content = io.read_file path
existed = io.exists path
io.remove_file path
(content.lines().to_list(), existed, io.exists path)`
	if got := eval(t, input); got != "(['one', 'two'], true, false)" {
		t.Errorf("got %s", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected %s to be removed", path)
	}
}

func TestIOPrint(t *testing.T) {
	_, out, err := evalOutput("io.print 'a'\nprint '\\{}-\\{}', 1, 2")
	if err != nil {
		t.Fatal(err)
	}
	if out != "a\n1-2\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestKiteModule(t *testing.T) {
	runCases(t, []testCase{
		{"kite.args()", "()"},
		{"kite.script_path()", "test.kite"},
		{"export x = 1\nkite.exports()", "{x: 1}"},
		{"kite.type [1]", "List"},
	})
}
