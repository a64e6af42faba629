package vm

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/funvibe/kite/internal/value"
)

const encodingSource = `
fib = |n| if n < 2 then n else fib(n - 1) + fib(n - 2)
gen = |xs...| {
  for x in xs {
    yield x
  }
}
m = {@display: |self| 'custom', pi: 3.5, name: 'kite'}
total = gen(1, 2, 3).sum()
'{fib 10} {total} {m} {m.pi} {null}'
`

func TestChunkRoundTrip(t *testing.T) {
	vm := New()
	chunk := compile(t, vm, encodingSource)

	data, err := MarshalChunk(chunk)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := UnmarshalChunk(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !bytes.Equal(chunk.Code, decoded.Code) {
		t.Error("bytecode differs after round trip")
	}
	if len(chunk.Functions) != len(decoded.Functions) {
		t.Fatalf("expected %d functions, got %d", len(chunk.Functions), len(decoded.Functions))
	}
	for i, fn := range chunk.Functions {
		got := decoded.Functions[i]
		if fn.Name != got.Name || fn.Arity != got.Arity || fn.Variadic != got.Variadic ||
			fn.IsGenerator != got.IsGenerator || fn.SelfParam != got.SelfParam {
			t.Errorf("function %d: %+v != %+v", i, fn, got)
		}
	}

	again, err := MarshalChunk(decoded)
	if err != nil {
		t.Fatalf("marshal decoded: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Error("encoding is not deterministic")
	}

	result, err := New().Run(decoded)
	if err != nil {
		t.Fatalf("running decoded chunk: %v", err)
	}
	if s := result.AsString(); s != "55 6 custom 3.5 null" {
		t.Errorf("unexpected result %q", s)
	}
}

func TestUnmarshalChunkErrors(t *testing.T) {
	if _, err := UnmarshalChunk([]byte("not cbor")); err == nil {
		t.Error("expected an error for garbage input")
	}

	chunk := compile(t, New(), "1 + 1")
	wc, err := toWireChunk(chunk)
	if err != nil {
		t.Fatal(err)
	}
	stale, err := cborEncMode.Marshal(&wireFile{Version: EncodingVersion + 1, Chunk: wc})
	if err != nil {
		t.Fatal(err)
	}
	_, err = UnmarshalChunk(stale)
	if err == nil || !strings.Contains(err.Error(), "encoding version") {
		t.Errorf("expected a version error, got %v", err)
	}
}

func TestDisassemble(t *testing.T) {
	chunk := compile(t, New(), "add = |a, b| a + b\nadd 1, 2")
	out := Disassemble(chunk, "test")
	for _, want := range []string{"== test ==", "CLOSURE", "CALL", "== add ==", "ADD", "RETURN"} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}

func TestChunkRoundTripKeepsNegativeZero(t *testing.T) {
	vm := New()
	chunk := compile(t, vm, "x = -0.0\n1 / x")
	data, err := MarshalChunk(chunk)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := UnmarshalChunk(data)
	if err != nil {
		t.Fatal(err)
	}

	direct, err := New().Run(chunk)
	if err != nil {
		t.Fatal(err)
	}
	cached, err := New().Run(decoded)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(direct.AsFloat(), -1) || !math.IsInf(cached.AsFloat(), -1) {
		t.Errorf("expected -inf from both runs, got %s and %s", value.Display(direct), value.Display(cached))
	}
}
