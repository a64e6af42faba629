package vm

import (
	"fmt"

	"github.com/funvibe/kite/internal/ast"
	"github.com/funvibe/kite/internal/diagnostics"
	"github.com/funvibe/kite/internal/value"
)

var compoundOps = map[string]Opcode{
	"+=": OP_ADD,
	"-=": OP_SUB,
	"*=": OP_MUL,
	"/=": OP_DIV,
	"%=": OP_REM,
	"^=": OP_POW,
}

func (c *Compiler) compileAssign(e *ast.AssignExpression) error {
	var op Opcode
	compound := e.Operator != "="
	if compound {
		var ok bool
		if op, ok = compoundOps[e.Operator]; !ok {
			return c.errorf(diagnostics.ErrC006, fmt.Sprintf("unknown assignment operator '%s'", e.Operator))
		}
	}

	switch target := e.Target.(type) {
	case *ast.Identifier:
		name := target.Value
		if compound {
			if err := c.emitGetVar(name); err != nil {
				return err
			}
			if err := c.compileExpression(e.Value); err != nil {
				return err
			}
			c.emit(op)
			c.bindName(name)
			return nil
		}
		// Functions see their own name so they can recurse.
		if _, isFn := e.Value.(*ast.FunctionLiteral); isFn {
			kind, idx := c.declareTarget(name)
			if err := c.compileExpression(e.Value); err != nil {
				return err
			}
			c.emitSetVar(name, kind, idx)
			return nil
		}
		if err := c.compileExpression(e.Value); err != nil {
			return err
		}
		c.bindName(name)
		return nil

	case *ast.Wildcard:
		if compound {
			return c.errorf(diagnostics.ErrC006, "wildcards can't be used in compound assignment")
		}
		return c.compileExpression(e.Value)

	case *ast.MemberExpression:
		if err := c.compileExpression(target.Left); err != nil {
			return err
		}
		name := c.nameConstant(target.Name)
		if compound {
			c.emit(OP_DUP)
			c.emitOpU16(OP_GET_FIELD, name)
		}
		if err := c.compileExpression(e.Value); err != nil {
			return err
		}
		if compound {
			c.emit(op)
		}
		c.emitOpU16(OP_SET_FIELD, name)
		return nil

	case *ast.IndexExpression:
		if err := c.compileExpression(target.Left); err != nil {
			return err
		}
		if err := c.compileExpression(target.Index); err != nil {
			return err
		}
		if compound {
			c.emit(OP_DUP2)
			c.emit(OP_GET_INDEX)
		}
		if err := c.compileExpression(e.Value); err != nil {
			return err
		}
		if compound {
			c.emit(op)
		}
		c.emit(OP_SET_INDEX)
		return nil
	}
	return c.errorf(diagnostics.ErrC006, "invalid assignment target")
}

// storeTop assigns the value on top of the stack to target, leaving the
// value in place.
func (c *Compiler) storeTop(target ast.Expression) error {
	saved := c.pos
	c.pos = target.GetToken()
	defer func() { c.pos = saved }()

	switch t := target.(type) {
	case *ast.Identifier:
		c.bindName(t.Value)
		return nil
	case *ast.Wildcard:
		return nil
	case *ast.MemberExpression:
		tmp := c.addTemp()
		c.emitOpU8(OP_SET_LOCAL, tmp)
		c.emit(OP_POP)
		if err := c.compileExpression(t.Left); err != nil {
			return err
		}
		c.emitOpU8(OP_GET_LOCAL, tmp)
		c.emitOpU16(OP_SET_FIELD, c.nameConstant(t.Name))
		return nil
	case *ast.IndexExpression:
		tmp := c.addTemp()
		c.emitOpU8(OP_SET_LOCAL, tmp)
		c.emit(OP_POP)
		if err := c.compileExpression(t.Left); err != nil {
			return err
		}
		if err := c.compileExpression(t.Index); err != nil {
			return err
		}
		c.emitOpU8(OP_GET_LOCAL, tmp)
		c.emit(OP_SET_INDEX)
		return nil
	}
	return c.errorf(diagnostics.ErrC006, "invalid assignment target")
}

// compileMultiAssign unpacks the right-hand side through a temporary. The
// expression's value is the right-hand side.
func (c *Compiler) compileMultiAssign(e *ast.MultiAssignExpression) error {
	if len(e.Targets) > 255 {
		return c.errorf(diagnostics.ErrC005, "too many assignment targets")
	}
	if err := c.compileExpression(e.Value); err != nil {
		return err
	}
	tmp := c.addTemp()
	c.emitOpU8(OP_SET_LOCAL, tmp)
	c.emit(OP_POP)
	for i, target := range e.Targets {
		c.emitOpU8(OP_GET_LOCAL, tmp)
		c.emitOpU8(OP_GET_UNPACKED, i)
		if err := c.storeTop(target); err != nil {
			return err
		}
		c.emit(OP_POP)
	}
	c.emitOpU8(OP_GET_LOCAL, tmp)
	return nil
}

// compileMetaAssign stores an entry such as @main in the module's metamap
// and records it in the chunk's entry table.
func (c *Compiler) compileMetaAssign(e *ast.MetaAssignExpression) error {
	if !c.isTopLevel() {
		return c.errorf(diagnostics.ErrC002, fmt.Sprintf("'%s' can only be assigned at the top level of a module", e.Key))
	}
	if err := c.compileExpression(e.Value); err != nil {
		return err
	}
	c.emitOpU16(OP_SET_MODULE_META, c.makeConstant(value.Str(e.Key)))
	c.chunk.Entries = append(c.chunk.Entries, Entry{Key: e.Key, Line: e.Token.Line})
	return nil
}

func (c *Compiler) emitSetExport(name string) {
	c.emitOpU16(OP_SET_EXPORT, c.nameConstant(name))
}

// compileExport lowers the four export forms: bare names, assignments, map
// literals, and any other expression producing (name, value) pairs.
func (c *Compiler) compileExport(e *ast.ExportExpression) error {
	switch v := e.Value.(type) {
	case *ast.Identifier:
		if err := c.emitGetVar(v.Value); err != nil {
			return err
		}
		c.emitSetExport(v.Value)
		return nil

	case *ast.TupleLiteral:
		if names, ok := identifierNames(v.Elements); ok {
			for _, name := range names {
				if err := c.emitGetVar(name); err != nil {
					return err
				}
				c.emitSetExport(name)
			}
			c.emitOpU16(OP_TUPLE, len(names))
			return nil
		}

	case *ast.AssignExpression:
		ident, ok := v.Target.(*ast.Identifier)
		if !ok {
			return c.errorAt(v.Token, diagnostics.ErrC002, "only names can be exported")
		}
		if v.Operator != "=" {
			return c.errorAt(v.Token, diagnostics.ErrC002, "compound assignment can't be exported")
		}
		if err := c.compileAssign(v); err != nil {
			return err
		}
		c.emitSetExport(ident.Value)
		return nil

	case *ast.MultiAssignExpression:
		names, ok := identifierNames(v.Targets)
		if !ok {
			return c.errorAt(v.Token, diagnostics.ErrC002, "only names can be exported")
		}
		if err := c.compileMultiAssign(v); err != nil {
			return err
		}
		for _, name := range names {
			if err := c.emitGetVar(name); err != nil {
				return err
			}
			c.emitSetExport(name)
			c.emit(OP_POP)
		}
		return nil

	case *ast.MapLiteral:
		if err := c.compileMap(v); err != nil {
			return err
		}
		c.emit(OP_EXPORT_MAP)
		return nil
	}

	if err := c.compileExpression(e.Value); err != nil {
		return err
	}
	c.emit(OP_EXPORT_ITER)
	return nil
}

func identifierNames(exprs []ast.Expression) ([]string, bool) {
	names := make([]string, len(exprs))
	for i, e := range exprs {
		ident, ok := e.(*ast.Identifier)
		if !ok {
			return nil, false
		}
		names[i] = ident.Value
	}
	return names, true
}

// compileImport binds each imported item and leaves the imported value, or
// a tuple of them, on the stack.
func (c *Compiler) compileImport(e *ast.ImportExpression) error {
	if len(e.Items) > 255 {
		return c.errorf(diagnostics.ErrC005, "too many import items")
	}
	if e.From != nil {
		c.emitModule(e.From)
		tmp := c.addTemp()
		c.emitOpU8(OP_SET_LOCAL, tmp)
		c.emit(OP_POP)
		for _, item := range e.Items {
			c.pos = item.Token
			c.emitOpU8(OP_GET_LOCAL, tmp)
			if item.Literal != "" {
				c.emitOpU16(OP_GET_FIELD, c.nameConstant(item.Literal))
			}
			for _, seg := range item.Path {
				c.emitOpU16(OP_GET_FIELD, c.nameConstant(seg))
			}
			name := item.Alias
			if name == "" {
				name = importName(item)
				if item.Literal != "" {
					name = item.Literal
				}
			}
			c.bindName(name)
		}
	} else {
		for _, item := range e.Items {
			c.pos = item.Token
			c.emitModule(item)
			c.bindName(importName(item))
		}
	}
	if len(e.Items) > 1 {
		c.emitOpU16(OP_TUPLE, len(e.Items))
	}
	return nil
}

// emitModule pushes the module named by item, following dotted segments
// into its exports.
func (c *Compiler) emitModule(item *ast.ImportItem) {
	if item.Literal != "" {
		c.emitOpU16(OP_IMPORT, c.makeConstant(value.Str(item.Literal)))
		return
	}
	c.emitOpU16(OP_IMPORT, c.makeConstant(value.Str(item.Path[0])))
	for _, seg := range item.Path[1:] {
		c.emitOpU16(OP_GET_FIELD, c.nameConstant(seg))
	}
}
