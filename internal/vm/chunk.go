package vm

import "github.com/funvibe/kite/internal/value"

// Chunk is a compiled function body: bytecode plus the tables the VM and
// error reporting need.
type Chunk struct {
	// Code is the bytecode instructions
	Code []byte

	// Constants pool. Only scalars and strings are stored here so a chunk
	// can be serialized.
	Constants []value.Value

	// Functions are the prototypes of closures created by OP_CLOSURE
	Functions []*FunctionProto

	// Lines maps bytecode offset to source line number (for errors)
	Lines []int

	// Columns maps bytecode offset to source column number (for errors)
	Columns []int

	// Locals names every local slot; hidden temporaries have empty names.
	Locals []string

	// Entries records the module metakeys assigned at top level.
	Entries []Entry

	// File is the source file name
	File string
}

// Entry is a reserved entry point found at compile time, such as "@main"
// or "@test basics".
type Entry struct {
	Key  string
	Line int
}

// NewChunk creates a new empty chunk
func NewChunk(file string) *Chunk {
	return &Chunk{
		Code:    make([]byte, 0, 256),
		Lines:   make([]int, 0, 256),
		Columns: make([]int, 0, 256),
		File:    file,
	}
}

// Write adds a byte to the chunk with its source position
func (c *Chunk) Write(b byte, line, col int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
	c.Columns = append(c.Columns, col)
}

// WriteOp writes an opcode to the chunk
func (c *Chunk) WriteOp(op Opcode, line, col int) {
	c.Write(byte(op), line, col)
}

// AddConstant adds a constant to the pool and returns its index. Equal
// string and integer constants share a slot.
func (c *Chunk) AddConstant(v value.Value) int {
	for i, existing := range c.Constants {
		if existing.Kind() == v.Kind() && value.Same(existing, v) {
			return i
		}
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// ReadU16 reads a 2-byte big-endian operand at offset
func (c *Chunk) ReadU16(offset int) int {
	return int(c.Code[offset])<<8 | int(c.Code[offset+1])
}

// Len returns the number of bytes in the chunk
func (c *Chunk) Len() int {
	return len(c.Code)
}

// LocalCount is the size of the frame window a call reserves.
func (c *Chunk) LocalCount() int {
	return len(c.Locals)
}

// HasEntry reports whether the chunk assigns the given metakey.
func (c *Chunk) HasEntry(key string) bool {
	for _, e := range c.Entries {
		if e.Key == key {
			return true
		}
	}
	return false
}
