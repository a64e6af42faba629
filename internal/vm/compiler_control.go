package vm

import (
	"github.com/funvibe/kite/internal/ast"
	"github.com/funvibe/kite/internal/diagnostics"
)

func (c *Compiler) compileIf(e *ast.IfExpression) error {
	if err := c.compileExpression(e.Condition); err != nil {
		return err
	}
	elseJump := c.emitJump(OP_JUMP_IF_FALSE)
	if err := c.compileExpression(e.Consequence); err != nil {
		return err
	}
	endJump := c.emitJump(OP_JUMP)
	c.patchJump(elseJump)
	if e.Alternative != nil {
		if err := c.compileExpression(e.Alternative); err != nil {
			return err
		}
	} else {
		c.emit(OP_NULL)
	}
	c.patchJump(endJump)
	return nil
}

func (c *Compiler) compileSwitch(e *ast.SwitchExpression) error {
	var endJumps []int
	hasElse := false
	for _, arm := range e.Arms {
		c.pos = arm.Token
		if arm.Condition == nil {
			hasElse = true
			if err := c.compileExpression(arm.Body); err != nil {
				return err
			}
			endJumps = append(endJumps, c.emitJump(OP_JUMP))
			break
		}
		if err := c.compileExpression(arm.Condition); err != nil {
			return err
		}
		next := c.emitJump(OP_JUMP_IF_FALSE)
		if err := c.compileExpression(arm.Body); err != nil {
			return err
		}
		endJumps = append(endJumps, c.emitJump(OP_JUMP))
		c.patchJump(next)
	}
	if !hasElse {
		c.emit(OP_NULL)
	}
	for _, j := range endJumps {
		c.patchJump(j)
	}
	return nil
}

// compileMatch lowers a match into ordered pattern tests. The first arm
// whose patterns and guard succeed wins; falling off the last arm emits
// OP_NO_MATCH.
func (c *Compiler) compileMatch(e *ast.MatchExpression) error {
	subjects := make([]int, len(e.Subjects))
	for i, subject := range e.Subjects {
		if err := c.compileExpression(subject); err != nil {
			return err
		}
		subjects[i] = c.addTemp()
		c.emitOpU8(OP_SET_LOCAL, subjects[i])
		c.emit(OP_POP)
	}

	var endJumps []int
	hasElse := false
	for _, arm := range e.Arms {
		c.pos = arm.Token
		if arm.IsElse {
			hasElse = true
			if err := c.compileExpression(arm.Body); err != nil {
				return err
			}
			endJumps = append(endJumps, c.emitJump(OP_JUMP))
			break
		}

		var matched, nextArm []int
		for _, alt := range arm.Alternatives {
			if len(alt) != len(subjects) {
				return c.errorAt(arm.Token, diagnostics.ErrC003, "arm patterns don't match the number of match subjects")
			}
			var failed []int
			for i, pat := range alt {
				if err := c.compilePattern(pat, slotRef(subjects[i]), &failed); err != nil {
					return err
				}
			}
			matched = append(matched, c.emitJump(OP_JUMP))
			for _, j := range failed {
				c.patchJump(j)
			}
		}
		nextArm = append(nextArm, c.emitJump(OP_JUMP))
		for _, j := range matched {
			c.patchJump(j)
		}

		if arm.Guard != nil {
			if err := c.compileExpression(arm.Guard); err != nil {
				return err
			}
			nextArm = append(nextArm, c.emitJump(OP_JUMP_IF_FALSE))
		}
		if err := c.compileExpression(arm.Body); err != nil {
			return err
		}
		endJumps = append(endJumps, c.emitJump(OP_JUMP))
		for _, j := range nextArm {
			c.patchJump(j)
		}
	}
	if !hasElse {
		c.pos = e.Token
		c.emit(OP_NO_MATCH)
	}
	for _, j := range endJumps {
		c.patchJump(j)
	}
	return nil
}

// compileTry lowers try/catch/finally:
//
//	    TRY_START catch finally
//	    <body>
//	    TRY_END
//	    JUMP done
//	catch:
//	    <bind payload> <catch body>
//	    TRY_END              (only with finally)
//	done:
//	    ENTER_FINALLY        (only with finally)
//	finally:
//	    <finally body> POP
//	    FINALLY_EXIT
func (c *Compiler) compileTry(e *ast.TryExpression) error {
	region := &tryRegion{stage: tryBody, hasCatch: e.HasCatch, finally: e.FinallyBody}
	c.tries = append(c.tries, region)
	defer func() { c.tries = c.tries[:len(c.tries)-1] }()

	c.emit(OP_TRY_START)
	operands := c.chunk.Len()
	c.emitU16(noTarget)
	c.emitU16(noTarget)

	if err := c.compileExpression(e.Body); err != nil {
		return err
	}
	c.emit(OP_TRY_END)
	done := c.emitJump(OP_JUMP)

	if e.HasCatch {
		c.patchTarget(operands)
		region.stage = tryCatch
		if e.CatchName != "" {
			c.bindName(e.CatchName)
		}
		c.emit(OP_POP)
		if err := c.compileExpression(e.CatchBody); err != nil {
			return err
		}
		if e.FinallyBody != nil {
			c.emit(OP_TRY_END)
		}
	}
	c.patchJump(done)

	if e.FinallyBody != nil {
		c.emit(OP_ENTER_FINALLY)
		c.patchTarget(operands + 2)
		region.stage = tryFinally
		if err := c.compileExpression(e.FinallyBody); err != nil {
			return err
		}
		c.emit(OP_POP)
		c.emit(OP_FINALLY_EXIT)
	}
	return nil
}

// patchTarget stores the current offset as an absolute handler target.
func (c *Compiler) patchTarget(operand int) {
	target := c.chunk.Len()
	if target >= noTarget {
		c.abort(diagnostics.ErrC005, "function too large for exception handling")
	}
	c.chunk.Code[operand] = byte(target >> 8)
	c.chunk.Code[operand+1] = byte(target)
}

func (c *Compiler) compileReturn(e *ast.ReturnExpression) error {
	if e.Value != nil {
		if err := c.compileExpression(e.Value); err != nil {
			return err
		}
	} else {
		c.emit(OP_NULL)
	}
	c.emit(OP_RETURN)
	return nil
}

func (c *Compiler) compileYield(e *ast.YieldExpression) error {
	if c.isTopLevel() || !c.proto.IsGenerator {
		return c.errorf(diagnostics.ErrC004, "yield is only allowed inside functions")
	}
	if e.Value != nil {
		if err := c.compileExpression(e.Value); err != nil {
			return err
		}
	} else {
		c.emit(OP_NULL)
	}
	c.emit(OP_YIELD)
	return nil
}

// compileBreak leaves the innermost loop, closing every try region entered
// since the loop started and running their finally blocks inline.
func (c *Compiler) compileBreak(isContinue bool) error {
	if len(c.loops) == 0 {
		word := "break"
		if isContinue {
			word = "continue"
		}
		return c.errorf(diagnostics.ErrC004, "'"+word+"' outside of a loop")
	}
	loop := c.loops[len(c.loops)-1]

	for i := len(c.tries) - 1; i >= loop.tryDepth; i-- {
		region := c.tries[i]
		switch region.stage {
		case tryBody:
			c.emit(OP_TRY_END)
		case tryCatch:
			if region.finally == nil {
				continue
			}
			c.emit(OP_TRY_END)
		case tryFinally:
			c.emit(OP_DISCARD_PENDING)
			continue
		}
		if region.finally != nil {
			// The finally body is compiled with the outer regions active.
			saved := c.tries
			c.tries = c.tries[:i]
			err := c.compileExpression(region.finally)
			c.tries = saved
			if err != nil {
				return err
			}
			c.emit(OP_POP)
		}
	}

	c.emitOpU8(OP_RESTORE_SP, loop.spSlot)
	if isContinue {
		c.emitLoop(loop.start)
	} else {
		loop.breakJumps = append(loop.breakJumps, c.emitJump(OP_JUMP))
	}
	// Unreachable, but keeps every expression pushing one value.
	c.emit(OP_NULL)
	return nil
}

func (c *Compiler) beginLoop() *LoopContext {
	loop := &LoopContext{spSlot: c.addTemp(), tryDepth: len(c.tries)}
	c.emitOpU8(OP_SAVE_SP, loop.spSlot)
	c.loops = append(c.loops, loop)
	return loop
}

// endLoop patches breaks to the loop exit, where the loop's null value is
// pushed.
func (c *Compiler) endLoop(loop *LoopContext) {
	c.loops = c.loops[:len(c.loops)-1]
	for _, j := range loop.breakJumps {
		c.patchJump(j)
	}
	c.emit(OP_NULL)
}

func (c *Compiler) compileFor(e *ast.ForExpression) error {
	if err := c.compileExpression(e.Iterable); err != nil {
		return err
	}
	c.emit(OP_ITER)
	iterSlot := c.addTemp()
	c.emitOpU8(OP_SET_LOCAL, iterSlot)
	c.emit(OP_POP)

	loop := c.beginLoop()
	loop.start = c.chunk.Len()
	c.emitOpU8(OP_ITER_NEXT, iterSlot)
	c.emitByte(0xff)
	c.emitByte(0xff)
	exit := c.chunk.Len() - 2

	if err := c.bindLoopValue(e.Bindings); err != nil {
		return err
	}
	if err := c.compileExpression(e.Body); err != nil {
		return err
	}
	c.emit(OP_POP)
	c.emitLoop(loop.start)
	c.patchJump(exit)
	c.endLoop(loop)
	return nil
}

// bindLoopValue assigns the pulled value on top of the stack to the loop
// bindings and pops it.
func (c *Compiler) bindLoopValue(bindings []*ast.Parameter) error {
	if len(bindings) == 1 {
		switch pat := bindings[0].Pattern.(type) {
		case *ast.IdentifierPattern:
			c.bindName(pat.Name)
			c.emit(OP_POP)
			return nil
		case *ast.WildcardPattern:
			c.emit(OP_POP)
			return nil
		}
	}
	tmp := c.addTemp()
	c.emitOpU8(OP_SET_LOCAL, tmp)
	c.emit(OP_POP)
	if len(bindings) == 1 {
		return c.destructure(bindings[0].Pattern, tmp)
	}
	patterns := make([]ast.Pattern, len(bindings))
	for i, b := range bindings {
		patterns[i] = b.Pattern
	}
	return c.destructureSeq(patterns, seqAny, tmp)
}

func (c *Compiler) compileWhile(e *ast.WhileExpression) error {
	loop := c.beginLoop()
	loop.start = c.chunk.Len()
	if err := c.compileExpression(e.Condition); err != nil {
		return err
	}
	if e.Until {
		c.emit(OP_NOT)
	}
	exit := c.emitJump(OP_JUMP_IF_FALSE)
	if err := c.compileExpression(e.Body); err != nil {
		return err
	}
	c.emit(OP_POP)
	c.emitLoop(loop.start)
	c.patchJump(exit)
	c.endLoop(loop)
	return nil
}

func (c *Compiler) compileLoop(e *ast.LoopExpression) error {
	loop := c.beginLoop()
	loop.start = c.chunk.Len()
	if err := c.compileExpression(e.Body); err != nil {
		return err
	}
	c.emit(OP_POP)
	c.emitLoop(loop.start)
	c.endLoop(loop)
	return nil
}
