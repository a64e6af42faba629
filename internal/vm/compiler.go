package vm

import (
	"github.com/funvibe/kite/internal/ast"
	"github.com/funvibe/kite/internal/diagnostics"
	"github.com/funvibe/kite/internal/token"
	"github.com/funvibe/kite/internal/value"
)

// Limits imposed by the instruction encoding
const (
	MaxLocals    = 256
	MaxUpvalues  = 256
	MaxConstants = 1 << 16
	MaxArgs      = 255
	MaxJump      = 1<<16 - 1
)

// CompileOptions configures a compilation.
type CompileOptions struct {
	// File is recorded in the chunk for error messages and imports.
	File string
	// Globals are names resolvable at runtime outside the module's own
	// exports, usually the prelude.
	Globals []string
	// REPL makes top-level assignments exports so they outlive the line.
	REPL bool
}

// Local is a named stack slot of the function being compiled
type Local struct {
	Name string
	Slot int
}

// LoopContext tracks loop information for break/continue
type LoopContext struct {
	start      int   // Offset the loop jumps back to (for continue)
	spSlot     int   // Slot holding the operand stack height at loop entry
	breakJumps []int // Offsets of break jumps to patch
	tryDepth   int   // Number of enclosing try regions when the loop started
}

type tryStage int

const (
	tryBody tryStage = iota
	tryCatch
	tryFinally
)

// tryRegion is an enclosing try expression as seen by break and continue.
type tryRegion struct {
	stage    tryStage
	hasCatch bool
	finally  *ast.Block
}

// compileUnit holds what all compilers of one chunk share.
type compileUnit struct {
	file    string
	globals map[string]bool
	repl    bool
}

// Compiler compiles AST to bytecode
type Compiler struct {
	proto *FunctionProto
	chunk *Chunk

	locals   []Local
	upvalues []UpvalueDesc

	// Enclosing compiler (for nested functions)
	enclosing *Compiler

	// Loop context stack for break/continue
	loops []*LoopContext
	tries []*tryRegion

	unit *compileUnit

	// Token of the expression being compiled, for line tables and errors
	pos token.Token
}

// compileAbort carries a limit error out of deeply nested emit helpers.
type compileAbort struct {
	err *diagnostics.DiagnosticError
}

// Compile compiles a program to a chunk whose top level runs as a function
// of no arguments.
func Compile(program *ast.Program, opts CompileOptions) (chunk *Chunk, err error) {
	file := opts.File
	if file == "" {
		file = program.File
	}
	unit := &compileUnit{file: file, globals: make(map[string]bool), repl: opts.REPL}
	for _, name := range opts.Globals {
		unit.globals[name] = true
	}
	for _, name := range exportedNames(program) {
		unit.globals[name] = true
	}

	c := &Compiler{
		proto: &FunctionProto{Name: "<script>"},
		chunk: NewChunk(file),
		unit:  unit,
	}
	c.proto.Chunk = c.chunk

	defer func() {
		if r := recover(); r != nil {
			abort, ok := r.(compileAbort)
			if !ok {
				panic(r)
			}
			abort.err.File = file
			chunk, err = nil, abort.err
		}
	}()

	if err := c.compileStatements(program.Statements); err != nil {
		if d, ok := err.(*diagnostics.DiagnosticError); ok && d.File == "" {
			d.File = file
		}
		return nil, err
	}
	c.emit(OP_RETURN)
	return c.chunk, nil
}

func newFunctionCompiler(enclosing *Compiler, name string) *Compiler {
	c := &Compiler{
		proto:     &FunctionProto{Name: name},
		chunk:     NewChunk(enclosing.unit.file),
		enclosing: enclosing,
		unit:      enclosing.unit,
		pos:       enclosing.pos,
	}
	c.proto.Chunk = c.chunk
	return c
}

// isTopLevel reports whether the compiler is emitting the module body.
func (c *Compiler) isTopLevel() bool {
	return c.enclosing == nil
}

// compileStatements compiles a sequence whose value is the last element.
// Intermediate values are discarded.
func (c *Compiler) compileStatements(stmts []ast.Expression) error {
	if len(stmts) == 0 {
		c.emit(OP_NULL)
		return nil
	}
	for i, stmt := range stmts {
		if err := c.compileExpression(stmt); err != nil {
			return err
		}
		if i < len(stmts)-1 {
			c.emit(OP_POP)
		}
	}
	return nil
}

// errorf reports a compile error at the current position
func (c *Compiler) errorf(code diagnostics.ErrorCode, args ...interface{}) error {
	return c.errorAt(c.pos, code, args...)
}

func (c *Compiler) errorAt(tok token.Token, code diagnostics.ErrorCode, args ...interface{}) error {
	err := diagnostics.NewError(code, tok, args...)
	err.File = c.unit.file
	return err
}

func (c *Compiler) abort(code diagnostics.ErrorCode, args ...interface{}) {
	panic(compileAbort{err: diagnostics.NewError(code, c.pos, args...)})
}

// emit helpers

func (c *Compiler) emit(op Opcode) {
	c.chunk.WriteOp(op, c.pos.Line, c.pos.Column)
}

func (c *Compiler) emitByte(b byte) {
	c.chunk.Write(b, c.pos.Line, c.pos.Column)
}

func (c *Compiler) emitU16(n int) {
	c.emitByte(byte(n >> 8))
	c.emitByte(byte(n))
}

func (c *Compiler) emitOpU8(op Opcode, n int) {
	c.emit(op)
	c.emitByte(byte(n))
}

func (c *Compiler) emitOpU16(op Opcode, n int) {
	c.emit(op)
	c.emitU16(n)
}

func (c *Compiler) makeConstant(v value.Value) int {
	idx := c.chunk.AddConstant(v)
	if idx >= MaxConstants {
		c.abort(diagnostics.ErrC005, "too many constants in one function")
	}
	return idx
}

func (c *Compiler) nameConstant(name string) int {
	return c.makeConstant(value.Str(name))
}

func (c *Compiler) emitConstant(v value.Value) {
	c.emitOpU16(OP_CONST, c.makeConstant(v))
}

func (c *Compiler) emitJump(op Opcode) int {
	c.emit(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return c.chunk.Len() - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := c.chunk.Len() - offset - 2

	if jump > MaxJump {
		c.abort(diagnostics.ErrC005, "jump too far")
	}

	c.chunk.Code[offset] = byte(jump >> 8)
	c.chunk.Code[offset+1] = byte(jump)
}

func (c *Compiler) emitLoop(start int) {
	c.emit(OP_LOOP)
	offset := c.chunk.Len() - start + 2
	if offset > MaxJump {
		c.abort(diagnostics.ErrC005, "loop body too large")
	}
	c.emitU16(offset)
}

// exportedNames collects the names bound by static export forms at the top
// level, so functions can refer to exports defined later in the module.
func exportedNames(program *ast.Program) []string {
	var names []string
	identNames := func(exprs []ast.Expression) {
		for _, e := range exprs {
			if ident, ok := e.(*ast.Identifier); ok {
				names = append(names, ident.Value)
			}
		}
	}
	for _, stmt := range program.Statements {
		export, ok := stmt.(*ast.ExportExpression)
		if !ok {
			continue
		}
		switch v := export.Value.(type) {
		case *ast.Identifier:
			names = append(names, v.Value)
		case *ast.TupleLiteral:
			identNames(v.Elements)
		case *ast.AssignExpression:
			identNames([]ast.Expression{v.Target})
		case *ast.MultiAssignExpression:
			identNames(v.Targets)
		case *ast.MapLiteral:
			for _, e := range v.Entries {
				if e.Key.Name != "" {
					names = append(names, e.Key.Name)
				}
			}
		}
	}
	return names
}
