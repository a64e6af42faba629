package parser

import (
	"github.com/funvibe/kite/internal/ast"
	"github.com/funvibe/kite/internal/diagnostics"
	"github.com/funvibe/kite/internal/token"
)

func (p *Parser) parseIfExpression() ast.Expression {
	expr := &ast.IfExpression{Token: p.curToken}
	p.nextToken()
	expr.Condition = p.parseExpression(LOWEST)

	if p.peekTokenIs(token.THEN) {
		p.nextToken()
		p.nextToken()
		expr.Consequence = p.parseExpression(LOWEST)
		if p.tokenAfterNewlines().Type == token.ELSE {
			p.skipPeekNewlines()
			p.nextToken()
			p.nextToken()
			expr.Alternative = p.parseExpression(LOWEST)
		}
		return expr
	}

	p.expectPeek(token.LBRACE, "'{' or 'then'")
	expr.Consequence = p.parseBlock()
	if p.tokenAfterNewlines().Type == token.ELSE {
		p.skipPeekNewlines()
		p.nextToken()
		if p.peekTokenIs(token.IF) {
			p.nextToken()
			expr.Alternative = p.parseIfExpression()
		} else {
			p.expectPeek(token.LBRACE, "'{' or 'if'")
			expr.Alternative = p.parseBlock()
		}
	}
	return expr
}

// parseArmBody parses `then expr` or `{ block }` after a match or switch arm
// head. For `else` arms the `then` keyword is omitted.
func (p *Parser) parseArmBody(isElse bool) ast.Expression {
	if p.peekTokenIs(token.LBRACE) {
		p.nextToken()
		return p.parseBlock()
	}
	if p.peekTokenIs(token.THEN) {
		p.nextToken()
	} else if !isElse {
		p.fail(diagnostics.NewError(diagnostics.ErrP003, p.peekToken, "'then' or '{'", describe(p.peekToken)))
	}
	p.nextToken()
	return p.parseExpressions()
}

func (p *Parser) parseMatchExpression() ast.Expression {
	expr := &ast.MatchExpression{Token: p.curToken}

	p.noTuple++
	p.nextToken()
	expr.Subjects = append(expr.Subjects, p.parseExpression(LOWEST))
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		expr.Subjects = append(expr.Subjects, p.parseExpression(LOWEST))
	}
	p.noTuple--

	p.expectPeek(token.LBRACE, "'{'")
	saved := p.noTuple
	p.noTuple = 0
	defer func() { p.noTuple = saved }()

	p.nextToken()
	p.skipNewlines()
	for !p.curTokenIs(token.RBRACE) {
		if p.curTokenIs(token.EOF) {
			p.fail(diagnostics.NewError(diagnostics.ErrP003, p.curToken, "'}'", describe(p.curToken)))
		}
		expr.Arms = append(expr.Arms, p.parseMatchArm(len(expr.Subjects)))
		p.endStatement(token.RBRACE)
	}
	if len(expr.Arms) == 0 {
		p.failf(expr.Token, "match requires at least one arm")
	}
	return expr
}

func (p *Parser) parseMatchArm(subjects int) *ast.MatchArm {
	arm := &ast.MatchArm{Token: p.curToken}
	if p.curTokenIs(token.ELSE) {
		arm.IsElse = true
		arm.Body = p.parseArmBody(true)
		return arm
	}

	for {
		alt := []ast.Pattern{p.parsePattern()}
		for p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			alt = append(alt, p.parsePattern())
		}
		if len(alt) != subjects {
			p.fail(diagnostics.NewError(diagnostics.ErrP005, arm.Token, "arm patterns don't match the number of match subjects"))
		}
		arm.Alternatives = append(arm.Alternatives, alt)
		if !p.peekTokenIs(token.OR) {
			break
		}
		p.nextToken()
		p.nextToken()
	}

	if p.peekTokenIs(token.IF) {
		p.nextToken()
		p.nextToken()
		arm.Guard = p.parseExpression(LOWEST)
	}
	arm.Body = p.parseArmBody(false)
	return arm
}

func (p *Parser) parseSwitchExpression() ast.Expression {
	expr := &ast.SwitchExpression{Token: p.curToken}
	p.expectPeek(token.LBRACE, "'{'")
	saved := p.noTuple
	p.noTuple = 0
	defer func() { p.noTuple = saved }()

	p.nextToken()
	p.skipNewlines()
	for !p.curTokenIs(token.RBRACE) {
		if p.curTokenIs(token.EOF) {
			p.fail(diagnostics.NewError(diagnostics.ErrP003, p.curToken, "'}'", describe(p.curToken)))
		}
		arm := &ast.SwitchArm{Token: p.curToken}
		if p.curTokenIs(token.ELSE) {
			arm.Body = p.parseArmBody(true)
		} else {
			arm.Condition = p.parseExpression(LOWEST)
			arm.Body = p.parseArmBody(false)
		}
		expr.Arms = append(expr.Arms, arm)
		p.endStatement(token.RBRACE)
	}
	return expr
}

func (p *Parser) parseTryExpression() ast.Expression {
	expr := &ast.TryExpression{Token: p.curToken}
	p.expectPeek(token.LBRACE, "'{'")
	expr.Body = p.parseBlock()

	if p.tokenAfterNewlines().Type == token.CATCH {
		p.skipPeekNewlines()
		p.nextToken()
		expr.HasCatch = true
		if p.peekTokenIs(token.IDENT) {
			p.nextToken()
			if p.curToken.Lexeme[0] != '_' {
				expr.CatchName = p.curToken.Lexeme
			}
		}
		p.expectPeek(token.LBRACE, "'{'")
		expr.CatchBody = p.parseBlock()
	}
	if p.tokenAfterNewlines().Type == token.FINALLY {
		p.skipPeekNewlines()
		p.nextToken()
		p.expectPeek(token.LBRACE, "'{'")
		expr.FinallyBody = p.parseBlock()
	}
	if !expr.HasCatch && expr.FinallyBody == nil {
		p.fail(diagnostics.NewError(diagnostics.ErrP003, p.peekToken, "'catch' or 'finally'", describe(p.peekToken)))
	}
	return expr
}

// endsExpression reports whether t terminates an optional operand, as after
// a bare `return`.
func endsExpression(t token.Token) bool {
	switch t.Type {
	case token.NEWLINE, token.SEMICOLON, token.RBRACE, token.RPAREN, token.RBRACKET,
		token.COMMA, token.ELSE, token.EOF:
		return true
	}
	return false
}

func (p *Parser) parseThrowExpression() ast.Expression {
	expr := &ast.ThrowExpression{Token: p.curToken}
	p.nextToken()
	expr.Value = p.parseExpressions()
	return expr
}

func (p *Parser) parseReturnExpression() ast.Expression {
	expr := &ast.ReturnExpression{Token: p.curToken}
	if !endsExpression(p.peekToken) {
		p.nextToken()
		expr.Value = p.parseExpressions()
	}
	return expr
}

func (p *Parser) parseYieldExpression() ast.Expression {
	expr := &ast.YieldExpression{Token: p.curToken}
	if p.funcDepth == 0 {
		p.failf(p.curToken, "yield is only allowed inside functions")
	}
	p.yields[len(p.yields)-1] = true
	if !endsExpression(p.peekToken) {
		p.nextToken()
		expr.Value = p.parseExpressions()
	}
	return expr
}

func (p *Parser) parseBreakExpression() ast.Expression {
	return &ast.BreakExpression{Token: p.curToken}
}

func (p *Parser) parseContinueExpression() ast.Expression {
	return &ast.ContinueExpression{Token: p.curToken}
}

func (p *Parser) parseForExpression() ast.Expression {
	expr := &ast.ForExpression{Token: p.curToken}
	p.nextToken()
	for {
		param := p.parseParameter()
		if param.Variadic {
			p.failf(param.Token, "loop bindings can't be variadic")
		}
		expr.Bindings = append(expr.Bindings, param)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		p.nextToken()
	}
	p.expectPeek(token.IN, "'in'")
	p.nextToken()
	expr.Iterable = p.parseExpression(LOWEST)
	p.expectPeek(token.LBRACE, "'{'")
	expr.Body = p.parseBlock()
	return expr
}

func (p *Parser) parseWhileExpression() ast.Expression {
	expr := &ast.WhileExpression{Token: p.curToken, Until: p.curTokenIs(token.UNTIL)}
	p.nextToken()
	expr.Condition = p.parseExpression(LOWEST)
	p.expectPeek(token.LBRACE, "'{'")
	expr.Body = p.parseBlock()
	return expr
}

func (p *Parser) parseLoopExpression() ast.Expression {
	expr := &ast.LoopExpression{Token: p.curToken}
	p.expectPeek(token.LBRACE, "'{'")
	expr.Body = p.parseBlock()
	return expr
}

func (p *Parser) parseDebugExpression() ast.Expression {
	expr := &ast.DebugExpression{Token: p.curToken}
	start := p.pos + 1
	p.nextToken()
	expr.Value = p.parseExpressions()
	expr.Source = p.sourceBetween(start, p.pos)
	return expr
}
