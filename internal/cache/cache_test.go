package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/funvibe/kite/internal/parser"
	"github.com/funvibe/kite/internal/vm"
)

func openTemp(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "nested", "chunks.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func compileSource(t *testing.T, machine *vm.VM, source string) *vm.Chunk {
	t.Helper()
	program, err := parser.Parse(source, "script.kite")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	chunk, err := vm.Compile(program, vm.CompileOptions{File: "script.kite", Globals: machine.GlobalNames()})
	if err != nil {
		t.Fatalf("compilation error: %v", err)
	}
	return chunk
}

func TestGetMiss(t *testing.T) {
	c := openTemp(t)
	_, err := c.Get(context.Background(), "script.kite", "nothing")
	if !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss, got %v", err)
	}
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	c := openTemp(t)
	machine := vm.New()
	source := "square = |x| x * x\nsquare 7"
	hash := Key([]byte(source), machine.GlobalNames())

	if err := c.Put(ctx, "script.kite", hash, compileSource(t, machine, source)); err != nil {
		t.Fatalf("put: %v", err)
	}
	chunk, err := c.Get(ctx, "script.kite", hash)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	result, err := vm.New().Run(chunk)
	if err != nil {
		t.Fatalf("running cached chunk: %v", err)
	}
	if n := result.AsInt(); n != 49 {
		t.Errorf("expected 49, got %d", n)
	}
}

func TestPutReplacesOlderEntries(t *testing.T) {
	ctx := context.Background()
	c := openTemp(t)
	machine := vm.New()

	first := Key([]byte("1"), nil)
	second := Key([]byte("2"), nil)
	if err := c.Put(ctx, "script.kite", first, compileSource(t, machine, "1")); err != nil {
		t.Fatal(err)
	}
	if err := c.Put(ctx, "script.kite", second, compileSource(t, machine, "2")); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "script.kite", first); !errors.Is(err, ErrMiss) {
		t.Errorf("expected the old entry to be gone, got %v", err)
	}
	if n, err := c.Len(ctx); err != nil || n != 1 {
		t.Errorf("expected 1 entry, got %d (%v)", n, err)
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := c.Len(ctx); n != 0 {
		t.Errorf("expected an empty cache, got %d entries", n)
	}
}

func TestUnreadableEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c := openTemp(t)
	_, err := c.db.Exec(
		"INSERT INTO chunks (path, hash, version, data, created) VALUES (?, ?, ?, ?, 0)",
		"bad.kite", "h", vm.EncodingVersion, []byte("garbage"),
	)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "bad.kite", "h"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss, got %v", err)
	}

	_, err = c.db.Exec(
		"INSERT INTO chunks (path, hash, version, data, created) VALUES (?, ?, ?, ?, 0)",
		"old.kite", "h", vm.EncodingVersion+1, []byte("x"),
	)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "old.kite", "h"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss for another encoding version, got %v", err)
	}
}

func TestKey(t *testing.T) {
	a := Key([]byte("x"), []string{"print", "size"})
	if a != Key([]byte("x"), []string{"size", "print"}) {
		t.Error("key depends on global order")
	}
	if a == Key([]byte("x"), []string{"print"}) {
		t.Error("key ignores globals")
	}
	if a == Key([]byte("y"), []string{"print", "size"}) {
		t.Error("key ignores source")
	}
}
