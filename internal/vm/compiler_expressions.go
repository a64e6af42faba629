package vm

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/funvibe/kite/internal/ast"
	"github.com/funvibe/kite/internal/diagnostics"
	"github.com/funvibe/kite/internal/value"
)

// Expression compilation - each expression pushes exactly ONE value onto the stack
func (c *Compiler) compileExpression(expr ast.Expression) error {
	saved := c.pos
	c.pos = expr.GetToken()
	err := c.compileNode(expr)
	c.pos = saved
	return err
}

func (c *Compiler) compileNode(expr ast.Expression) error {
	switch e := expr.(type) {
	case *ast.NullLiteral:
		c.emit(OP_NULL)
	case *ast.BooleanLiteral:
		if e.Value {
			c.emit(OP_TRUE)
		} else {
			c.emit(OP_FALSE)
		}
	case *ast.IntegerLiteral:
		c.emitConstant(value.Int(e.Value))
	case *ast.FloatLiteral:
		c.emitConstant(value.Float(e.Value))
	case *ast.StringLiteral:
		return c.compileString(e)
	case *ast.Identifier:
		return c.emitGetVar(e.Value)
	case *ast.Wildcard:
		return c.errorf(diagnostics.ErrC006, fmt.Sprintf("'%s' can only be assigned to", e.Name))
	case *ast.Block:
		return c.compileStatements(e.Statements)
	case *ast.ListLiteral:
		return c.compileSequence(OP_LIST, e.Elements)
	case *ast.TupleLiteral:
		return c.compileSequence(OP_TUPLE, e.Elements)
	case *ast.MapLiteral:
		return c.compileMap(e)
	case *ast.RangeExpression:
		return c.compileRange(e)
	case *ast.PrefixExpression:
		return c.compilePrefix(e)
	case *ast.InfixExpression:
		return c.compileInfix(e)
	case *ast.CallExpression:
		return c.compileCall(e)
	case *ast.MemberExpression:
		if err := c.compileExpression(e.Left); err != nil {
			return err
		}
		c.emitOpU16(OP_GET_FIELD, c.nameConstant(e.Name))
	case *ast.IndexExpression:
		if err := c.compileExpression(e.Left); err != nil {
			return err
		}
		if err := c.compileExpression(e.Index); err != nil {
			return err
		}
		c.emit(OP_GET_INDEX)
	case *ast.FunctionLiteral:
		return c.compileFunction(e)
	case *ast.IfExpression:
		return c.compileIf(e)
	case *ast.MatchExpression:
		return c.compileMatch(e)
	case *ast.SwitchExpression:
		return c.compileSwitch(e)
	case *ast.TryExpression:
		return c.compileTry(e)
	case *ast.ThrowExpression:
		if err := c.compileExpression(e.Value); err != nil {
			return err
		}
		c.emit(OP_THROW)
	case *ast.ReturnExpression:
		return c.compileReturn(e)
	case *ast.YieldExpression:
		return c.compileYield(e)
	case *ast.BreakExpression:
		return c.compileBreak(false)
	case *ast.ContinueExpression:
		return c.compileBreak(true)
	case *ast.ForExpression:
		return c.compileFor(e)
	case *ast.WhileExpression:
		return c.compileWhile(e)
	case *ast.LoopExpression:
		return c.compileLoop(e)
	case *ast.AssignExpression:
		return c.compileAssign(e)
	case *ast.MultiAssignExpression:
		return c.compileMultiAssign(e)
	case *ast.MetaAssignExpression:
		return c.compileMetaAssign(e)
	case *ast.ExportExpression:
		return c.compileExport(e)
	case *ast.ImportExpression:
		return c.compileImport(e)
	case *ast.DebugExpression:
		if err := c.compileExpression(e.Value); err != nil {
			return err
		}
		c.emitOpU16(OP_DEBUG, c.makeConstant(value.Str(e.Source)))
	default:
		return c.errorf(diagnostics.ErrC006, fmt.Sprintf("unsupported expression %T", expr))
	}
	return nil
}

// compileString lowers an interpolated string to constant loads, expression
// evaluations and a final OP_STRING.
func (c *Compiler) compileString(s *ast.StringLiteral) error {
	if len(s.Parts) == 0 {
		c.emitConstant(value.Str(""))
		return nil
	}
	if len(s.Parts) == 1 && s.Parts[0].Expr == nil {
		c.emitConstant(value.Str(s.Parts[0].Text))
		return nil
	}
	for _, part := range s.Parts {
		if part.Expr == nil {
			c.emitConstant(value.Str(part.Text))
			continue
		}
		if err := c.compileExpression(part.Expr); err != nil {
			return err
		}
		if part.Format != "" {
			c.emitOpU16(OP_FORMAT, c.makeConstant(value.Str(part.Format)))
		}
	}
	c.emitOpU16(OP_STRING, len(s.Parts))
	return nil
}

func (c *Compiler) compileSequence(op Opcode, elems []ast.Expression) error {
	if len(elems) > MaxJump {
		return c.errorf(diagnostics.ErrC005, "too many elements in literal")
	}
	for _, el := range elems {
		if err := c.compileExpression(el); err != nil {
			return err
		}
	}
	c.emitOpU16(op, len(elems))
	return nil
}

func (c *Compiler) compileMap(m *ast.MapLiteral) error {
	c.emit(OP_NEW_MAP)
	for _, entry := range m.Entries {
		key := entry.Key
		if fn, ok := entry.Value.(*ast.FunctionLiteral); ok && fn.Name == "" {
			fn.Name = key.Name
			if key.Meta != "" {
				fn.Name = key.Meta
			}
		}
		switch {
		case key.Meta != "":
			if err := c.compileExpression(entry.Value); err != nil {
				return err
			}
			c.emitOpU16(OP_MAP_META, c.makeConstant(value.Str(key.Meta)))
		case key.StringKey != nil:
			if err := c.compileExpression(key.StringKey); err != nil {
				return err
			}
			if err := c.compileExpression(entry.Value); err != nil {
				return err
			}
			c.emit(OP_MAP_INSERT)
		default:
			if entry.Value == nil {
				saved := c.pos
				c.pos = key.Token
				err := c.emitGetVar(key.Name)
				c.pos = saved
				if err != nil {
					return err
				}
			} else if err := c.compileExpression(entry.Value); err != nil {
				return err
			}
			c.emitOpU16(OP_MAP_ENTRY, c.nameConstant(key.Name))
		}
	}
	return nil
}

func (c *Compiler) compileRange(r *ast.RangeExpression) error {
	var flags byte
	if r.Start != nil {
		flags |= rangeHasStart
		if err := c.compileExpression(r.Start); err != nil {
			return err
		}
	}
	if r.End != nil {
		flags |= rangeHasEnd
		if err := c.compileExpression(r.End); err != nil {
			return err
		}
	}
	if r.Inclusive {
		flags |= rangeInclusive
	}
	c.emitOpU8(OP_RANGE, int(flags))
	return nil
}

func (c *Compiler) compilePrefix(e *ast.PrefixExpression) error {
	if lit, ok := e.Right.(*ast.IntegerLiteral); ok && e.Operator == "-" {
		c.emitConstant(value.Int(-lit.Value))
		return nil
	}
	if lit, ok := e.Right.(*ast.FloatLiteral); ok && e.Operator == "-" {
		c.emitConstant(value.Float(-lit.Value))
		return nil
	}
	if err := c.compileExpression(e.Right); err != nil {
		return err
	}
	if e.Operator == "not" {
		c.emit(OP_NOT)
	} else {
		c.emit(OP_NEGATE)
	}
	return nil
}

var binaryOps = map[string]Opcode{
	"+":  OP_ADD,
	"-":  OP_SUB,
	"*":  OP_MUL,
	"/":  OP_DIV,
	"%":  OP_REM,
	"^":  OP_POW,
	"==": OP_EQUAL,
	"!=": OP_NOT_EQUAL,
	"<":  OP_LESS,
	"<=": OP_LESS_EQ,
	">":  OP_GREATER,
	">=": OP_GREATER_EQ,
}

func (c *Compiler) compileInfix(e *ast.InfixExpression) error {
	switch e.Operator {
	case "and", "or":
		if err := c.compileExpression(e.Left); err != nil {
			return err
		}
		op := OP_JUMP_IF_FALSE_KEEP
		if e.Operator == "or" {
			op = OP_JUMP_IF_TRUE_KEEP
		}
		end := c.emitJump(op)
		c.emit(OP_POP)
		if err := c.compileExpression(e.Right); err != nil {
			return err
		}
		c.patchJump(end)
		return nil
	case ">>":
		if err := c.compileExpression(e.Left); err != nil {
			return err
		}
		if err := c.compileExpression(e.Right); err != nil {
			return err
		}
		c.emit(OP_SWAP)
		c.emitOpU8(OP_CALL, 1)
		return nil
	}

	op, ok := binaryOps[e.Operator]
	if !ok {
		return c.errorf(diagnostics.ErrC006, fmt.Sprintf("unknown operator '%s'", e.Operator))
	}
	if err := c.compileExpression(e.Left); err != nil {
		return err
	}
	if err := c.compileExpression(e.Right); err != nil {
		return err
	}
	c.emit(op)
	return nil
}

func (c *Compiler) compileArgs(args []ast.Expression) error {
	if len(args) > MaxArgs {
		return c.errorf(diagnostics.ErrC005, "too many arguments in call")
	}
	for _, arg := range args {
		if err := c.compileExpression(arg); err != nil {
			return err
		}
	}
	return nil
}

// compileCall emits OP_INVOKE for method calls so the receiver can be
// passed as self or to the core module of its type.
func (c *Compiler) compileCall(call *ast.CallExpression) error {
	if member, ok := call.Function.(*ast.MemberExpression); ok {
		if err := c.compileExpression(member.Left); err != nil {
			return err
		}
		if err := c.compileArgs(call.Arguments); err != nil {
			return err
		}
		c.emitOpU16(OP_INVOKE, c.nameConstant(member.Name))
		c.emitByte(byte(len(call.Arguments)))
		return nil
	}
	if err := c.compileExpression(call.Function); err != nil {
		return err
	}
	if err := c.compileArgs(call.Arguments); err != nil {
		return err
	}
	c.emitOpU8(OP_CALL, len(call.Arguments))
	return nil
}

// compileFunction compiles a nested function and emits OP_CLOSURE.
func (c *Compiler) compileFunction(fn *ast.FunctionLiteral) error {
	fc := newFunctionCompiler(c, fn.Name)
	proto := fc.proto
	proto.Arity = len(fn.Parameters)
	proto.IsGenerator = fn.IsGenerator

	// Parameters occupy the first slots in order; destructured parameters
	// get a hidden slot and are unpacked in the prologue.
	var destructure []int
	for i, param := range fn.Parameters {
		switch pat := param.Pattern.(type) {
		case *ast.IdentifierPattern:
			fc.addLocal(pat.Name)
			if i == 0 && pat.Name == "self" {
				proto.SelfParam = true
			}
		default:
			fc.addTemp()
			if _, wildcard := pat.(*ast.WildcardPattern); !wildcard {
				destructure = append(destructure, i)
			}
		}
		if param.Variadic {
			proto.Variadic = true
		}
	}
	for _, i := range destructure {
		param := fn.Parameters[i]
		fc.pos = param.Token
		if err := fc.destructure(param.Pattern, i); err != nil {
			return err
		}
	}

	fc.pos = fn.Body.GetToken()
	if err := fc.compileExpression(fn.Body); err != nil {
		return err
	}
	fc.emit(OP_RETURN)

	if len(c.chunk.Functions) >= MaxConstants {
		return c.errorf(diagnostics.ErrC005, "too many functions in one chunk")
	}
	c.chunk.Functions = append(c.chunk.Functions, proto)
	c.emitOpU16(OP_CLOSURE, len(c.chunk.Functions)-1)
	return nil
}

// importName is the binding created for an import item without an alias.
func importName(item *ast.ImportItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	if len(item.Path) > 0 {
		return item.Path[len(item.Path)-1]
	}
	base := filepath.Base(item.Literal)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
