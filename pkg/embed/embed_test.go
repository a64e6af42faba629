package kite_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/funvibe/kite/internal/cache"
	"github.com/funvibe/kite/internal/modules"
	"github.com/funvibe/kite/internal/value"
	"github.com/funvibe/kite/internal/vm"
	kite "github.com/funvibe/kite/pkg/embed"
)

// User represents a Go struct to be used as a host object
type User struct {
	Name  string
	Score int
}

func (u *User) AddScore(points int) {
	u.Score += points
}

func (u *User) GetStatus() string {
	return fmt.Sprintf("User %s has %d points", u.Name, u.Score)
}

func TestEmbedAPI(t *testing.T) {
	engine := kite.New()

	if err := engine.Bind("double", func(x int) int { return x * 2 }); err != nil {
		t.Fatal(err)
	}
	user := &User{Name: "Alice", Score: 10}
	if err := engine.Bind("player", user); err != nil {
		t.Fatal(err)
	}

	code := `
doubled = double 21
name = player.Name
player.AddScore 5
status = player.GetStatus()
[doubled, name, status]
`
	res, err := engine.Run(code)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	got, err := engine.Display(res)
	if err != nil {
		t.Fatal(err)
	}
	if got != "[42, 'Alice', 'User Alice has 15 points']" {
		t.Errorf("unexpected result %s", got)
	}
	if user.Score != 15 {
		t.Errorf("Go struct not updated, score is %d", user.Score)
	}
}

func TestBindErrorsAndTuples(t *testing.T) {
	engine := kite.New()
	engine.Bind("divmod", func(a, b int) (int, int, error) {
		if b == 0 {
			return 0, 0, errors.New("division by zero")
		}
		return a / b, a % b, nil
	})
	engine.Bind("config", map[string]any{"port": 80, "tags": []string{"a", "b"}})
	engine.Bind("point", struct{ X, Y float64 }{1.5, 2})

	res, err := engine.Run("(divmod(7, 2), config.port, config.tags, point.X + point.Y)")
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := engine.Display(res); got != "((3, 1), 80, ['a', 'b'], 3.5)" {
		t.Errorf("unexpected result %s", got)
	}

	_, err = engine.Run("divmod 1, 0")
	if err == nil || !strings.Contains(err.Error(), "division by zero") {
		t.Errorf("expected the Go error to surface, got %v", err)
	}

	res, err = engine.Run("try {\n  divmod 1, 0\n} catch e {\n  'caught'\n}")
	if err != nil {
		t.Fatal(err)
	}
	if res.AsString() != "caught" {
		t.Errorf("expected the Go error to be catchable, got %s", value.Display(res))
	}
}

func TestGetAndCall(t *testing.T) {
	engine := kite.New()
	_, err := engine.Run(`
export greeting = 'hello'
export add = |a, b| a + b
export pair = || ('x', [1, 2])
`)
	if err != nil {
		t.Fatal(err)
	}

	greeting, err := engine.Get("greeting")
	if err != nil || greeting != "hello" {
		t.Errorf("Get returned %v, %v", greeting, err)
	}
	sum, err := engine.Call("add", 40, 2)
	if err != nil || sum != int64(42) {
		t.Errorf("Call returned %v (%T), %v", sum, sum, err)
	}
	pair, err := engine.Call("pair")
	if err != nil {
		t.Fatal(err)
	}
	items, ok := pair.([]any)
	if !ok || len(items) != 2 || items[0] != "x" {
		t.Errorf("unexpected pair %#v", pair)
	}
	if _, err := engine.Get("missing"); err == nil {
		t.Error("expected an error for a missing name")
	}
	if _, err := engine.Call("size", []int{1, 2, 3}); err != nil {
		t.Errorf("calling a prelude function: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	engine := kite.New()
	if _, err := engine.Load("x = (1, "); err == nil {
		t.Error("expected a parse error")
	}
	if _, err := engine.Load("undefined_name + 1"); err == nil {
		t.Error("expected a compile error")
	}

	_, err := engine.Run("throw 'boom'")
	var rtErr *vm.RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected *vm.RuntimeError, got %T: %v", err, err)
	}
	if rtErr.Message != "boom" {
		t.Errorf("unexpected message %q", rtErr.Message)
	}
}

func TestRunFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "mylib", "main.kite"), "export get_greeting = || 'Hello from Import'\n")
	writeFile(t, filepath.Join(dir, "main.kite"), "import mylib\nexport greeting = mylib.get_greeting()\n")

	engine := kite.New()
	if _, err := engine.RunFile(filepath.Join(dir, "main.kite")); err != nil {
		t.Fatalf("RunFile failed: %v", err)
	}
	res, err := engine.Get("greeting")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if res != "Hello from Import" {
		t.Errorf("unexpected greeting %v", res)
	}
}

func TestRunFileUsesCache(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "main.kite")
	writeFile(t, filepath.Join(dir, "lib.kite"), "export n = 20\n")
	writeFile(t, script, "import lib\nlib.n + 1\n")

	c, err := cache.Open(filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	for i := 0; i < 2; i++ {
		engine := kite.New()
		engine.SetCache(c)
		res, err := engine.RunFile(script)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if n, _ := value.ToInt(res); n != 21 {
			t.Errorf("run %d: expected 21, got %s", i, value.Display(res))
		}
	}
	if n, err := c.Len(context.Background()); err != nil || n != 2 {
		t.Errorf("expected the script and its import to be cached, got %d (%v)", n, err)
	}

	writeFile(t, script, "import lib\nlib.n + 2\n")
	engine := kite.New()
	engine.SetCache(c)
	res, err := engine.RunFile(script)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := value.ToInt(res); n != 22 {
		t.Errorf("expected the edited script to recompile, got %s", value.Display(res))
	}
}

func TestMainAndArgs(t *testing.T) {
	engine := kite.New()
	var out bytes.Buffer
	engine.SetOutput(&out)
	engine.SetArgs([]string{"a", "b"})
	_, err := engine.Run(`
@main = |args| {
  print 'main {args} {kite.args()}'
  args.size()
}`)
	if err != nil {
		t.Fatal(err)
	}
	res, found, err := engine.Main([]string{"a", "b"})
	if err != nil || !found {
		t.Fatalf("Main: found=%v err=%v", found, err)
	}
	if n, _ := value.ToInt(res); n != 2 {
		t.Errorf("unexpected result %s", value.Display(res))
	}
	if strings.TrimSpace(out.String()) != "main ('a', 'b') ('a', 'b')" {
		t.Errorf("unexpected output %q", out.String())
	}

	other := kite.New()
	if _, err := other.Run("1"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := other.Main(nil); found {
		t.Error("expected no @main")
	}
}

func TestRunTests(t *testing.T) {
	engine := kite.New()
	_, err := engine.Run(`
log = []
@pre_test = || log.push 'pre'
@post_test = || log.push 'post'
@test passes = || assert_eq 1 + 1, 2
@test fails = || assert_eq 1, 2
export log
`)
	if err != nil {
		t.Fatal(err)
	}
	var reported []string
	results := engine.RunTests(func(r kite.TestResult) {
		reported = append(reported, r.Name)
	})
	if len(results) != 2 || strings.Join(reported, ",") != "passes,fails" {
		t.Fatalf("unexpected results %+v", results)
	}
	if !results[0].Passed() || results[1].Passed() {
		t.Errorf("unexpected outcomes %+v", results)
	}
	if !strings.Contains(results[1].Err.Error(), "assertion failed") {
		t.Errorf("unexpected failure %v", results[1].Err)
	}
	log, _ := engine.Get("log")
	if fmt.Sprint(log) != "[pre post pre post]" {
		t.Errorf("hooks ran out of order: %v", log)
	}
}

func TestSetResolverAndContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "virtual.kite"), "export answer = 42\n")

	engine := kite.New()
	engine.SetResolver(modules.ResolverFunc(func(fromDir, importPath string) (string, error) {
		if importPath == "virtual" {
			return filepath.Join(dir, "virtual.kite"), nil
		}
		return "", modules.ErrNotFound
	}))
	res, err := engine.Run("import virtual\nvirtual.answer")
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := value.ToInt(res); n != 42 {
		t.Errorf("unexpected result %s", value.Display(res))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	looping := kite.New()
	looping.SetContext(ctx)
	if _, err := looping.Run("loop {\n  1\n}"); err == nil {
		t.Error("expected the cancelled context to stop the script")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
