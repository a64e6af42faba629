package stdlib_test

import (
	"os/exec"
	"runtime"
	"strings"
	"testing"

	"github.com/funvibe/kite/internal/parser"
	"github.com/funvibe/kite/internal/vm"
)

func evalWith(t *testing.T, machine *vm.VM, input string) string {
	t.Helper()
	program, err := parser.Parse(input, "test.kite")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	chunk, err := vm.Compile(program, vm.CompileOptions{File: "test.kite", Globals: machine.GlobalNames()})
	if err != nil {
		t.Fatalf("compilation error: %v", err)
	}
	result, err := machine.Run(chunk)
	if err != nil {
		t.Fatalf("runtime error: %v\ninput: %s", err, input)
	}
	s, err := machine.Display(result)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func eval(t *testing.T, input string) string {
	t.Helper()
	return evalWith(t, vm.New(), input)
}

func evalError(t *testing.T, input string) error {
	t.Helper()
	machine := vm.New()
	program, err := parser.Parse(input, "test.kite")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	chunk, err := vm.Compile(program, vm.CompileOptions{File: "test.kite", Globals: machine.GlobalNames()})
	if err != nil {
		t.Fatalf("compilation error: %v", err)
	}
	_, err = machine.Run(chunk)
	if err == nil {
		t.Fatalf("expected an error\ninput: %s", input)
	}
	return err
}

func runCases(t *testing.T, tests []struct{ input, expected string }) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := eval(t, tt.input); got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestOSModule(t *testing.T) {
	t.Setenv("KITE_STDLIB_TEST", "present")

	runCases(t, []struct{ input, expected string }{
		{"os.name()", runtime.GOOS},
		{"os.env 'KITE_STDLIB_TEST'", "present"},
		{"os.env 'KITE_STDLIB_TEST_UNSET_VARIABLE'", "null"},
		{"os.time() > 1600000000", "true"},
		{"size(os.cwd()) > 0", "true"},
	})

	machine := vm.New()
	machine.SetArgs([]string{"one", "two"})
	if got := evalWith(t, machine, "os.args()"); got != "('one', 'two')" {
		t.Errorf("unexpected args %s", got)
	}
}

func TestOSSpawn(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo is not available")
	}
	input := `
p = os.spawn 'echo', 'hello', 42
result = p.wait()
(type(p), result.exit_code, result.stdout.trim(), p.poll().exit_code, p.pid() > 0)`
	if got := eval(t, input); got != "('Process', 0, 'hello 42', 0, true)" {
		t.Errorf("unexpected result %s", got)
	}

	err := evalError(t, "os.spawn 'kite-test-no-such-program'")
	if !strings.Contains(err.Error(), "spawn") {
		t.Errorf("unexpected error %q", err.Error())
	}
}

func TestOSSpawnExitCode(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}
	input := `
r = (os.spawn 'sh', '-c', 'echo oops >&2; exit 3').wait()
(r.exit_code, r.stderr.trim())`
	if got := eval(t, input); got != "(3, 'oops')" {
		t.Errorf("unexpected result %s", got)
	}
}

func TestOSSpawnKill(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no sleep program on windows")
	}
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep is not available")
	}
	input := `
p = os.spawn 'sleep', 30
before = p.poll()
p.kill()
r = p.wait()
(before, r.exit_code, p.poll().exit_code)`
	if got := eval(t, input); got != "(null, -1, -1)" {
		t.Errorf("unexpected result %s", got)
	}
}

func TestRandomModule(t *testing.T) {
	runCases(t, []struct{ input, expected string }{
		{"x = random.number()\nx >= 0 and x < 1", "true"},
		{"type(random.bool())", "Bool"},
		{"random.pick []", "null"},
		{"random.pick [3]", "3"},
		{"random.pick 4..5", "4"},
		{"random.pick 'z'", "z"},
		{"random.pick({a: 1})", "('a', 1)"},
		{"x = random.pick 1..=3\nx >= 1 and x <= 3", "true"},
		{"l = [1, 2, 3, 4]\nrandom.shuffle l\nl.sort()", "[1, 2, 3, 4]"},
		{"type(random.generator())", "RandomGenerator"},
	})
}

func TestRandomSeedIsReproducible(t *testing.T) {
	input := `
random.seed 42
a = random.shuffle (1..=20).to_list()
x = random.number()
random.seed 42
b = random.shuffle (1..=20).to_list()
y = random.number()
a == b and x == y`
	if got := eval(t, input); got != "true" {
		t.Errorf("expected seeded runs to match, got %s", got)
	}
}

func TestRandomSeededShuffleSequence(t *testing.T) {
	input := `
random.seed 42
l = [1, 2, 3, 4, 5]
random.shuffle l
first = l.to_tuple()
random.shuffle l
(first, l)`
	if got := eval(t, input); got != "((2, 4, 5, 1, 3), [1, 4, 2, 5, 3])" {
		t.Errorf("unexpected permutations %s", got)
	}
}

func TestRandomGenerators(t *testing.T) {
	input := `
g = random.generator 7
h = random.generator 7
other = random.generator 8
xs = (0..10).each(|i| g.number()).to_list()
ys = (0..10).each(|i| h.number()).to_list()
zs = (0..10).each(|i| other.number()).to_list()
(xs == ys, xs == zs)`
	if got := eval(t, input); got != "(true, false)" {
		t.Errorf("unexpected result %s", got)
	}
}

func TestYAMLModule(t *testing.T) {
	runCases(t, []struct{ input, expected string }{
		{`yaml.from_string 'b: 1\na: [true, 2.5, null]\nc: hello'`, "{b: 1, a: [true, 2.5, null], c: 'hello'}"},
		{`yaml.from_string '- x\n- 2'`, "['x', 2]"},
		{`yaml.from_string ''`, "null"},
		{`yaml.to_string({b: 1, a: 'x'})`, "b: 1\na: x\n"},
		{`yaml.to_string [1, 2]`, "- 1\n- 2\n"},
		{`yaml.to_string({n: null, f: 1.0})`, "n: null\nf: 1.0\n"},
		{`
data = {name: 'kite', tags: ['a', 'b'], nested: {enabled: true, ratio: 0.5}}
data == yaml.from_string(yaml.to_string data)`, "true"},
	})

	err := evalError(t, `yaml.from_string 'a: [1'`)
	if !strings.Contains(err.Error(), "yaml parse error") {
		t.Errorf("unexpected error %q", err.Error())
	}
}

func TestTOMLModule(t *testing.T) {
	runCases(t, []struct{ input, expected string }{
		{`toml.from_string 'title = "x"\n[server]\nport = 8080\nhosts = ["a", "b"]'`,
			"{title: 'x', server: {port: 8080, hosts: ['a', 'b']}}"},
		{`toml.from_string 'z = 1\na = 2.5\nm = true'`, "{z: 1, a: 2.5, m: true}"},
		{`(toml.from_string '[[item]]\nid = 1\n[[item]]\nid = 2').item`, "[{id: 1}, {id: 2}]"},
		{`toml.to_string({b: 1, a: 'x'})`, "a = \"x\"\nb = 1\n"},
		{`
data = {name: 'kite', version: 3, server: {port: 80, hosts: ['a', 'b']}}
data == toml.from_string(toml.to_string data)`, "true"},
	})

	for _, input := range []string{
		`toml.from_string 'a = '`,
		`toml.to_string [1, 2]`,
		`toml.to_string({a: null})`,
	} {
		evalError(t, input)
	}
}
