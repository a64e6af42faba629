package parser

import (
	"github.com/funvibe/kite/internal/ast"
	"github.com/funvibe/kite/internal/diagnostics"
	"github.com/funvibe/kite/internal/token"
)

func (p *Parser) parseExpression(precedence int) ast.Expression {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > MaxRecursionDepth {
		p.failf(p.curToken, "expression too complex: recursion depth limit exceeded")
	}

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.unexpected(p.curToken)
	}
	leftExp := prefix()

	for {
		// A following line that starts with '.' continues a call chain.
		if p.peekTokenIs(token.NEWLINE) && precedence == LOWEST && p.parenFree == 0 && p.tokenAfterNewlines().Type == token.DOT {
			p.skipPeekNewlines()
		}

		if p.startsParenFreeCall(leftExp, precedence) {
			leftExp = p.parseParenFreeCall(leftExp)
			continue
		}

		if precedence >= p.peekPrecedence() {
			break
		}
		// f(x) and x[i] only bind when the bracket touches the callee.
		if (p.peekTokenIs(token.LPAREN) || p.peekTokenIs(token.LBRACKET)) && p.peekToken.SpaceBefore {
			break
		}

		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			break
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}
	return leftExp
}

// parseExpressions parses a comma separated list as a tuple when commas are
// not already claimed by an enclosing construct.
func (p *Parser) parseExpressions() ast.Expression {
	first := p.parseExpression(LOWEST)
	if p.noTuple > 0 || !p.peekTokenIs(token.COMMA) {
		return first
	}
	tuple := &ast.TupleLiteral{Token: first.GetToken(), Elements: []ast.Expression{first}}
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		tuple.Elements = append(tuple.Elements, p.parseExpression(LOWEST))
	}
	return tuple
}

func (p *Parser) parseStatement() ast.Expression {
	switch p.curToken.Type {
	case token.EXPORT:
		return p.parseExportExpression()
	case token.META:
		return p.parseMetaAssign()
	}
	return p.parseExpressionStatement()
}

// parseExpressionStatement handles top-level tuples and multi-target
// assignment such as `a, b = 1, 2`.
func (p *Parser) parseExpressionStatement() ast.Expression {
	first := p.parseExpression(LOWEST)
	if p.noTuple > 0 || !p.peekTokenIs(token.COMMA) {
		return first
	}
	items := []ast.Expression{first}
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		items = append(items, p.parseExpression(LOWEST))
	}

	last := items[len(items)-1]
	if assign, ok := last.(*ast.AssignExpression); ok {
		if assign.Operator != "=" {
			p.fail(diagnostics.NewError(diagnostics.ErrP002, assign.Token))
		}
		targets := append(items[:len(items)-1:len(items)-1], assign.Target)
		for _, t := range targets {
			p.checkAssignTarget(t, "=")
		}
		return &ast.MultiAssignExpression{Token: first.GetToken(), Targets: targets, Value: assign.Value}
	}
	return &ast.TupleLiteral{Token: first.GetToken(), Elements: items}
}

func (p *Parser) checkAssignTarget(target ast.Expression, op string) {
	switch target.(type) {
	case *ast.Identifier, *ast.MemberExpression, *ast.IndexExpression:
		return
	case *ast.Wildcard:
		if op == "=" {
			return
		}
	}
	p.fail(diagnostics.NewError(diagnostics.ErrP002, target.GetToken()))
}

func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	tok := p.curToken
	p.checkAssignTarget(left, tok.Lexeme)

	p.nextToken()
	p.skipNewlines()
	value := p.parseExpression(ASSIGN - 1)
	if tok.Type == token.ASSIGN && p.noTuple == 0 && p.peekTokenIs(token.COMMA) {
		tuple := &ast.TupleLiteral{Token: value.GetToken(), Elements: []ast.Expression{value}}
		for p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			tuple.Elements = append(tuple.Elements, p.parseExpression(LOWEST))
		}
		value = tuple
	}

	if fn, ok := value.(*ast.FunctionLiteral); ok && fn.Name == "" {
		if ident, ok := left.(*ast.Identifier); ok {
			fn.Name = ident.Value
		}
	}
	return &ast.AssignExpression{Token: tok, Target: left, Operator: tok.Lexeme, Value: value}
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Lexeme,
		Left:     left,
	}
	precedence := precedences[p.curToken.Type]
	if p.curTokenIs(token.CARET) {
		precedence--
	}
	p.nextToken()
	p.skipNewlines()
	expression.Right = p.parseExpression(precedence)
	return expression
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	tok := p.curToken
	p.nextToken()
	right := p.parseExpression(PREFIX)
	switch lit := right.(type) {
	case *ast.IntegerLiteral:
		lit.Value = -lit.Value
		lit.Token = tok
		return lit
	case *ast.FloatLiteral:
		lit.Value = -lit.Value
		lit.Token = tok
		return lit
	}
	return &ast.PrefixExpression{Token: tok, Operator: "-", Right: right}
}

func (p *Parser) parseNotExpression() ast.Expression {
	tok := p.curToken
	p.nextToken()
	return &ast.PrefixExpression{Token: tok, Operator: "not", Right: p.parseExpression(NOT)}
}

// canStartExpression reports whether t may begin an operand. Braces are
// excluded so that `for i in 0.. {` keeps its body.
func (p *Parser) canStartExpression(t token.Token) bool {
	if t.Type == token.LBRACE {
		return false
	}
	_, ok := p.prefixParseFns[t.Type]
	return ok
}

func (p *Parser) parsePrefixRange() ast.Expression {
	r := &ast.RangeExpression{Token: p.curToken, Inclusive: p.curTokenIs(token.RANGE_INCL)}
	if p.canStartExpression(p.peekToken) {
		p.nextToken()
		r.End = p.parseExpression(RANGE)
	}
	return r
}

func (p *Parser) parseRangeExpression(left ast.Expression) ast.Expression {
	r := &ast.RangeExpression{Token: p.curToken, Start: left, Inclusive: p.curTokenIs(token.RANGE_INCL)}
	if p.canStartExpression(p.peekToken) {
		p.nextToken()
		r.End = p.parseExpression(RANGE)
	}
	return r
}
