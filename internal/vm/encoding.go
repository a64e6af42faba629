package vm

import (
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"
	"github.com/funvibe/kite/internal/value"
)

// EncodingVersion changes whenever the instruction set or the encoded
// layout changes, invalidating cached chunks.
const EncodingVersion = 2

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// wireConstant stores floats as their IEEE bits so -0.0 and NaN payloads
// survive the round trip.
type wireConstant struct {
	Kind  uint8  `cbor:"1,keyasint"`
	Int   int64  `cbor:"2,keyasint,omitempty"`
	Float uint64 `cbor:"3,keyasint,omitempty"`
	Str   string `cbor:"4,keyasint,omitempty"`
}

type wireProto struct {
	Name        string        `cbor:"1,keyasint"`
	Arity       int           `cbor:"2,keyasint"`
	Variadic    bool          `cbor:"3,keyasint,omitempty"`
	IsGenerator bool          `cbor:"4,keyasint,omitempty"`
	SelfParam   bool          `cbor:"5,keyasint,omitempty"`
	Upvalues    []UpvalueDesc `cbor:"6,keyasint,omitempty"`
	Chunk       *wireChunk    `cbor:"7,keyasint"`
}

type wireChunk struct {
	Code      []byte         `cbor:"1,keyasint"`
	Constants []wireConstant `cbor:"2,keyasint,omitempty"`
	Functions []*wireProto   `cbor:"3,keyasint,omitempty"`
	Lines     []int          `cbor:"4,keyasint"`
	Columns   []int          `cbor:"5,keyasint"`
	Locals    []string       `cbor:"6,keyasint,omitempty"`
	Entries   []Entry        `cbor:"7,keyasint,omitempty"`
	File      string         `cbor:"8,keyasint,omitempty"`
}

type wireFile struct {
	Version int        `cbor:"1,keyasint"`
	Chunk   *wireChunk `cbor:"2,keyasint"`
}

// MarshalChunk serializes a compiled chunk to CBOR bytes.
func MarshalChunk(c *Chunk) ([]byte, error) {
	wc, err := toWireChunk(c)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(&wireFile{Version: EncodingVersion, Chunk: wc})
}

// UnmarshalChunk deserializes a chunk written by MarshalChunk.
func UnmarshalChunk(data []byte) (*Chunk, error) {
	var f wireFile
	if err := cbor.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("vm: unmarshal chunk: %w", err)
	}
	if f.Version != EncodingVersion {
		return nil, fmt.Errorf("vm: unmarshal chunk: encoding version %d, want %d", f.Version, EncodingVersion)
	}
	if f.Chunk == nil {
		return nil, fmt.Errorf("vm: unmarshal chunk: missing chunk")
	}
	return fromWireChunk(f.Chunk)
}

func toWireChunk(c *Chunk) (*wireChunk, error) {
	wc := &wireChunk{
		Code:    c.Code,
		Lines:   c.Lines,
		Columns: c.Columns,
		Locals:  c.Locals,
		Entries: c.Entries,
		File:    c.File,
	}
	for _, k := range c.Constants {
		wk := wireConstant{Kind: uint8(k.Kind())}
		switch k.Kind() {
		case value.KindNull:
		case value.KindBool:
			if k.AsBool() {
				wk.Int = 1
			}
		case value.KindInt:
			wk.Int = k.AsInt()
		case value.KindFloat:
			wk.Float = math.Float64bits(k.AsFloat())
		case value.KindString:
			wk.Str = k.AsString()
		default:
			return nil, fmt.Errorf("vm: constant of type %s can't be serialized", value.TypeName(k))
		}
		wc.Constants = append(wc.Constants, wk)
	}
	for _, p := range c.Functions {
		inner, err := toWireChunk(p.Chunk)
		if err != nil {
			return nil, err
		}
		wc.Functions = append(wc.Functions, &wireProto{
			Name:        p.Name,
			Arity:       p.Arity,
			Variadic:    p.Variadic,
			IsGenerator: p.IsGenerator,
			SelfParam:   p.SelfParam,
			Upvalues:    p.Upvalues,
			Chunk:       inner,
		})
	}
	return wc, nil
}

func fromWireChunk(wc *wireChunk) (*Chunk, error) {
	if len(wc.Lines) != len(wc.Code) || len(wc.Columns) != len(wc.Code) {
		return nil, fmt.Errorf("vm: unmarshal chunk: line table doesn't match code")
	}
	c := &Chunk{
		Code:    wc.Code,
		Lines:   wc.Lines,
		Columns: wc.Columns,
		Locals:  wc.Locals,
		Entries: wc.Entries,
		File:    wc.File,
	}
	for _, wk := range wc.Constants {
		var k value.Value
		switch value.Kind(wk.Kind) {
		case value.KindNull:
			k = value.Null
		case value.KindBool:
			k = value.Bool(wk.Int != 0)
		case value.KindInt:
			k = value.Int(wk.Int)
		case value.KindFloat:
			k = value.Float(math.Float64frombits(wk.Float))
		case value.KindString:
			k = value.Str(wk.Str)
		default:
			return nil, fmt.Errorf("vm: unmarshal chunk: bad constant kind %d", wk.Kind)
		}
		c.Constants = append(c.Constants, k)
	}
	for _, wp := range wc.Functions {
		if wp.Chunk == nil {
			return nil, fmt.Errorf("vm: unmarshal chunk: function %s has no body", wp.Name)
		}
		inner, err := fromWireChunk(wp.Chunk)
		if err != nil {
			return nil, err
		}
		c.Functions = append(c.Functions, &FunctionProto{
			Name:        wp.Name,
			Arity:       wp.Arity,
			Variadic:    wp.Variadic,
			IsGenerator: wp.IsGenerator,
			SelfParam:   wp.SelfParam,
			Upvalues:    wp.Upvalues,
			Chunk:       inner,
		})
	}
	return c, nil
}
