package vm

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/funvibe/kite/internal/parser"
	"github.com/funvibe/kite/internal/value"
)

func compile(t *testing.T, vm *VM, input string) *Chunk {
	t.Helper()
	program, err := parser.Parse(input, "test.kite")
	if err != nil {
		t.Fatalf("parse error: %v\ninput: %s", err, input)
	}
	chunk, err := Compile(program, CompileOptions{File: "test.kite", Globals: vm.GlobalNames()})
	if err != nil {
		t.Fatalf("compilation error: %v\ninput: %s", err, input)
	}
	return chunk
}

// runVM runs input on a fresh VM and returns the displayed result along
// with everything the script printed.
func runVM(t *testing.T, input string) (string, string) {
	t.Helper()
	vm := New()
	var out bytes.Buffer
	vm.SetOutput(&out)
	result, err := vm.Run(compile(t, vm, input))
	if err != nil {
		t.Fatalf("runtime error: %v\ninput: %s", err, input)
	}
	s, err := vm.Display(result)
	if err != nil {
		t.Fatalf("display error: %v", err)
	}
	return s, out.String()
}

func expectResult(t *testing.T, input, expected string) {
	t.Helper()
	got, _ := runVM(t, input)
	if got != expected {
		t.Errorf("wrong result for %q\n got: %s\nwant: %s", input, got, expected)
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2", "3"},
		{"1 - 2", "-1"},
		{"5 + 2 * 10", "25"},
		{"5 * (2 + 10)", "60"},
		{"7 / 2", "3.5"},
		{"4 / 2", "2.0"},
		{"7 % 3", "1"},
		{"2 ^ 10", "1024"},
		{"2 ^ 0.5 > 1.41", "true"},
		{"1.5 + 1", "2.5"},
		{"-5 + 10", "5"},
		{"0.1 + 0.2 == 0.30000000000000004", "true"},
		{"'a' + 'b'", "ab"},
		{"[1] + [2, 3]", "[1, 2, 3]"},
		{"(1,) + (2,)", "(1, 2)"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expectResult(t, tt.input, tt.expected)
		})
	}
}

func TestComparison(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 < 2", "true"},
		{"2 <= 1", "false"},
		{"1 == 1.0", "true"},
		{"'abc' < 'abd'", "true"},
		{"[1, 2] == [1, 2]", "true"},
		{"(1, [2]) == (1, [2])", "true"},
		{"{a: 1} == {a: 1}", "true"},
		{"{a: 1} != {a: 2}", "true"},
		{"null == null", "true"},
		{"1 and 2", "2"},
		{"null or 'default'", "default"},
		{"not null", "true"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expectResult(t, tt.input, tt.expected)
		})
	}
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"null", "null"},
		{"42", "42"},
		{"1.0", "1.0"},
		{"0.5", "0.5"},
		{"'hello'", "hello"},
		{"['a', 1]", "['a', 1]"},
		{"(1, 'b')", "(1, 'b')"},
		{"{a: 1, b: 'x'}", "{a: 1, b: 'x'}"},
		{"1..5", "1..5"},
		{"1..=5", "1..=5"},
		{"x = 3\n'x is {x}'", "x is 3"},
		{"'{1 + 1}{2 * 2}'", "24"},
		{"{@display: |self| 'custom'}", "custom"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expectResult(t, tt.input, tt.expected)
		})
	}
}

func TestControlFlow(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"inline if", "if 1 > 2 then 'a' else 'b'", "b"},
		{"block if", `
x = 5
if x < 0 {
  'negative'
} else if x == 0 {
  'zero'
} else {
  'positive'
}`, "positive"},
		{"for", `
total = 0
for i in 1..=10 {
  total += i
}
total`, "55"},
		{"while", `
n = 0
while n < 5 {
  n += 1
}
n`, "5"},
		{"until", `
n = 10
until n == 0 {
  n -= 2
}
n`, "0"},
		{"break and continue", `
total = 0
for i in 0..10 {
  if i == 5 { break }
  if i % 2 == 0 { continue }
  total += i
}
total`, "4"},
		{"loop", `
i = 0
loop {
  i += 1
  if i == 3 { break }
}
i`, "3"},
		{"map iteration", `
m = {a: 1, b: 2}
keys = []
for key, value in m {
  keys.push '{key}={value}'
}
keys`, "['a=1', 'b=2']"},
		{"switch", `
x = 15
switch {
  x % 15 == 0 then 'fizzbuzz'
  x % 3 == 0 then 'fizz'
  else x
}`, "fizzbuzz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectResult(t, tt.input, tt.expected)
		})
	}
}

func TestFunctions(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"call", "add = |a, b| a + b\nadd 1, 2", "3"},
		{"recursion", `
fib = |n| if n < 2 then n else fib(n - 1) + fib(n - 2)
fib 15`, "610"},
		{"closure counter", `
make_counter = || {
  count = 0
  || {
    count += 1
    count
  }
}
c = make_counter()
c()
c()
c()`, "3"},
		{"variadic", "f = |first, rest...| (first, rest)\nf 1, 2, 3", "(1, (2, 3))"},
		{"destructuring parameter", "f = |(a, b), c| a + b + c\nf (1, 2), 3", "6"},
		{"early return", `
find_first = |xs, target| {
  for i, x in xs.enumerate() {
    if x == target { return i }
  }
  null
}
find_first [5, 6, 7], 7`, "2"},
		{"pipe", "double = |x| x * 2\n3 >> double >> double", "12"},
		{"self method", `
counter = {
  count: 0,
  increment: |self| self.count += 1
}
counter.increment()
counter.increment()
counter.count`, "2"},
		{"call metakey", "callable = {@call: |self, x| x * 10}\ncallable 4", "40"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectResult(t, tt.input, tt.expected)
		})
	}
}

func TestCollections(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"list aliasing", "a = [1, 2]\nb = a\nb.push 3\na", "[1, 2, 3]"},
		{"map aliasing", "a = {}\nb = a\nb.x = 1\na.x", "1"},
		{"negative index", "[1, 2, 3][-1]", "3"},
		{"range slice", "[1, 2, 3, 4][1..3]", "[2, 3]"},
		{"open range slice", "(1, 2, 3, 4)[2..]", "(3, 4)"},
		{"string slice", "'hello'[1..=3]", "ell"},
		{"index assignment", "xs = [1, 2]\nxs[0] += 10\nxs", "[11, 2]"},
		{"missing map key", "{a: 1}.get 'b'", "null"},
		{"string key", "m = {'a key': 1}\nm.'a key'", "1"},
		{"size", "(size([1, 2]), size('abc'), size({a: 1}))", "(2, 3, 1)"},
		{"multi assign", "a, b = 1, 2\na, b = b, a\n(a, b)", "(2, 1)"},
		{"multi assign padding", "a, b, c = 1, 2\n(a, b, c)", "(1, 2, null)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectResult(t, tt.input, tt.expected)
		})
	}
}

func TestMetaOperators(t *testing.T) {
	input := `
vec = |x, y| {
  x: x,
  y: y,
  @+: |self, other| vec(self.x + other.x, self.y + other.y),
  @==: |self, other| self.x == other.x and self.y == other.y,
  @negate: |self| vec(-self.x, -self.y),
  @display: |self| 'vec({self.x}, {self.y})',
  @type: 'Vec',
}
a = vec(1, 2) + vec(3, 4)
(a, -a, a == vec(4, 6), type a)`
	expectResult(t, input, "(vec(4, 6), vec(-4, -6), true, 'Vec')")
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"literal", "match 0 {\n  0 then 'zero'\n  else 'other'\n}", "zero"},
		{"guard", "x = -3\nmatch x {\n  n if n < 0 then 'negative'\n  else 'positive'\n}", "negative"},
		{"tuple", "match (1, 2) {\n  (a, b) then a + b\n}", "3"},
		{"list rest", "match [1, 2, 3] {\n  [first, rest...] then (first, rest)\n}", "(1, [2, 3])"},
		{"alternatives", "match 'b' {\n  'a' or 'b' then 'ab'\n  else 'other'\n}", "ab"},
		{"multiple subjects", "match 1, 2 {\n  0, _ then 'first'\n  1, y then y\n}", "2"},
		{"negative literal", "match -1 {\n  -1 then 'minus one'\n  else 'other'\n}", "minus one"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectResult(t, tt.input, tt.expected)
		})
	}
}

func TestDebugExpression(t *testing.T) {
	_, out := runVM(t, "debug 1 + 2")
	if !strings.Contains(out, "1 + 2: 3") {
		t.Errorf("expected debug output with source and value, got %q", out)
	}
}

func TestPrint(t *testing.T) {
	_, out := runVM(t, "print 'hello'\nprint '\\{} and \\{}', 1, [2]")
	if out != "hello\n1 and [2]\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestNBody(t *testing.T) {
	input := `
pi = 3.141592653589793
solar_mass = 4 * pi * pi
days_per_year = 365.24

body = |x, y, z, vx, vy, vz, mass| {x: x, y: y, z: z, vx: vx * days_per_year, vy: vy * days_per_year, vz: vz * days_per_year, mass: mass * solar_mass}

bodies = [
  body(0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 1.0),
  body(4.84143144246472090e+00, -1.16032004402742839e+00, -1.03622044471123109e-01, 1.66007664274403694e-03, 7.69901118419740425e-03, -6.90460016972063023e-05, 9.54791938424326609e-04),
  body(8.34336671824457987e+00, 4.12479856412430479e+00, -4.03523417114321381e-01, -2.76742510726862411e-03, 4.99852801234917238e-03, 2.30417297573763929e-05, 2.85885980666130812e-04),
  body(1.28943695621391310e+01, -1.51111514016986312e+01, -2.23307578892655734e-01, 2.96460137564761618e-03, 2.37847173959480950e-03, -2.96589568540237556e-05, 4.36624404335156298e-05),
  body(1.53796971148509165e+01, -2.59193146099879641e+01, 1.79258772950371181e-01, 2.68067772490389322e-03, 1.62824170038242295e-03, -9.51592254519715870e-05, 5.15138902046611451e-05),
]

offset_momentum = || {
  px, py, pz = 0.0, 0.0, 0.0
  for b in bodies {
    px += b.vx * b.mass
    py += b.vy * b.mass
    pz += b.vz * b.mass
  }
  sun = bodies[0]
  sun.vx = -px / solar_mass
  sun.vy = -py / solar_mass
  sun.vz = -pz / solar_mass
}

energy = || {
  e = 0.0
  n = size bodies
  for i in 0..n {
    b = bodies[i]
    e += 0.5 * b.mass * (b.vx * b.vx + b.vy * b.vy + b.vz * b.vz)
    for j in (i + 1)..n {
      b2 = bodies[j]
      dx = b.x - b2.x
      dy = b.y - b2.y
      dz = b.z - b2.z
      e -= (b.mass * b2.mass) / number.sqrt(dx * dx + dy * dy + dz * dz)
    }
  }
  e
}

advance = |dt| {
  n = size bodies
  for i in 0..n {
    b = bodies[i]
    for j in (i + 1)..n {
      b2 = bodies[j]
      dx = b.x - b2.x
      dy = b.y - b2.y
      dz = b.z - b2.z
      d2 = dx * dx + dy * dy + dz * dz
      mag = dt / (d2 * number.sqrt(d2))
      b.vx -= dx * b2.mass * mag
      b.vy -= dy * b2.mass * mag
      b.vz -= dz * b2.mass * mag
      b2.vx += dx * b.mass * mag
      b2.vy += dy * b.mass * mag
      b2.vz += dz * b.mass * mag
    }
  }
  for b in bodies {
    b.x += dt * b.vx
    b.y += dt * b.vy
    b.z += dt * b.vz
  }
}

offset_momentum()
initial = energy()
for _ in 0..100 {
  advance 0.01
}
(initial, energy())`

	vm := New()
	result, err := vm.Run(compile(t, vm, input))
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if result.Kind() != value.KindTuple || result.Tuple().Len() != 2 {
		t.Fatalf("expected a pair of energies, got %s", value.Display(result))
	}
	initial := result.Tuple().At(0).AsFloat()
	final := result.Tuple().At(1).AsFloat()

	if diff := initial - (-0.16907514); diff > 1e-6 || diff < -1e-6 {
		t.Errorf("initial energy %.9f, want -0.169075140", initial)
	}
	if diff := final - (-0.16904989); diff > 1e-6 || diff < -1e-6 {
		t.Errorf("final energy %.9f, want -0.169049890", final)
	}
	wantInitial, wantFinal := nbodyReference(100)
	if diff := initial - wantInitial; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("initial energy %.17g, Go computes %.17g", initial, wantInitial)
	}
	if diff := final - wantFinal; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("final energy %.17g, Go computes %.17g", final, wantFinal)
	}
}

// nbodyReference runs the same simulation natively and returns the initial
// and final energies.
func nbodyReference(steps int) (float64, float64) {
	pi := math.Pi
	solarMass := 4 * pi * pi
	daysPerYear := 365.24
	type body struct{ x, y, z, vx, vy, vz, mass float64 }
	mk := func(x, y, z, vx, vy, vz, mass float64) *body {
		return &body{x, y, z, vx * daysPerYear, vy * daysPerYear, vz * daysPerYear, mass * solarMass}
	}
	bodies := []*body{
		mk(0, 0, 0, 0, 0, 0, 1),
		mk(4.84143144246472090e+00, -1.16032004402742839e+00, -1.03622044471123109e-01, 1.66007664274403694e-03, 7.69901118419740425e-03, -6.90460016972063023e-05, 9.54791938424326609e-04),
		mk(8.34336671824457987e+00, 4.12479856412430479e+00, -4.03523417114321381e-01, -2.76742510726862411e-03, 4.99852801234917238e-03, 2.30417297573763929e-05, 2.85885980666130812e-04),
		mk(1.28943695621391310e+01, -1.51111514016986312e+01, -2.23307578892655734e-01, 2.96460137564761618e-03, 2.37847173959480950e-03, -2.96589568540237556e-05, 4.36624404335156298e-05),
		mk(1.53796971148509165e+01, -2.59193146099879641e+01, 1.79258772950371181e-01, 2.68067772490389322e-03, 1.62824170038242295e-03, -9.51592254519715870e-05, 5.15138902046611451e-05),
	}

	var px, py, pz float64
	for _, b := range bodies {
		px += b.vx * b.mass
		py += b.vy * b.mass
		pz += b.vz * b.mass
	}
	bodies[0].vx = -px / solarMass
	bodies[0].vy = -py / solarMass
	bodies[0].vz = -pz / solarMass

	energy := func() float64 {
		e := 0.0
		for i, b := range bodies {
			e += 0.5 * b.mass * (b.vx*b.vx + b.vy*b.vy + b.vz*b.vz)
			for _, b2 := range bodies[i+1:] {
				dx, dy, dz := b.x-b2.x, b.y-b2.y, b.z-b2.z
				e -= (b.mass * b2.mass) / math.Sqrt(dx*dx+dy*dy+dz*dz)
			}
		}
		return e
	}

	initial := energy()
	const dt = 0.01
	for range steps {
		for i, b := range bodies {
			for _, b2 := range bodies[i+1:] {
				dx, dy, dz := b.x-b2.x, b.y-b2.y, b.z-b2.z
				d2 := dx*dx + dy*dy + dz*dz
				mag := dt / (d2 * math.Sqrt(d2))
				b.vx -= dx * b2.mass * mag
				b.vy -= dy * b2.mass * mag
				b.vz -= dz * b2.mass * mag
				b2.vx += dx * b.mass * mag
				b2.vy += dy * b.mass * mag
				b2.vz += dz * b.mass * mag
			}
		}
		for _, b := range bodies {
			b.x += dt * b.vx
			b.y += dt * b.vy
			b.z += dt * b.vz
		}
	}
	return initial, energy()
}

func TestDisplaySelfContainingMap(t *testing.T) {
	got, _ := runVM(t, "m = {name: 'loop'}\nm.self = m\nm")
	if !strings.HasPrefix(got, "{name: 'loop', self: {name: 'loop', ") || !strings.Contains(got, "...") {
		t.Errorf("unexpected display %q", got)
	}
}
