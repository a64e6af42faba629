package parser

import (
	"github.com/funvibe/kite/internal/ast"
	"github.com/funvibe/kite/internal/diagnostics"
	"github.com/funvibe/kite/internal/token"
)

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	call := &ast.CallExpression{Token: p.curToken, Function: function}
	call.Arguments = p.parseExpressionList(token.RPAREN, "')'")
	return call
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	exp := &ast.IndexExpression{Token: p.curToken, Left: left}
	p.noTuple++
	defer func() { p.noTuple-- }()
	p.nextToken()
	exp.Index = p.parseExpression(LOWEST)
	p.expectPeek(token.RBRACKET, "']'")
	return exp
}

func (p *Parser) parseMemberExpression(left ast.Expression) ast.Expression {
	exp := &ast.MemberExpression{Token: p.curToken, Left: left}
	p.nextToken()
	switch {
	case p.curTokenIs(token.IDENT) || token.IsKeyword(p.curToken.Lexeme):
		exp.Name = p.curToken.Lexeme
	case p.curTokenIs(token.STRING):
		s, ok := staticString(p.parseStringLiteral().(*ast.StringLiteral))
		if !ok {
			p.failf(p.curToken, "interpolated strings can't be used as field names")
		}
		exp.Name = s
	default:
		p.fail(diagnostics.NewError(diagnostics.ErrP003, p.curToken, "a field name", describe(p.curToken)))
	}
	return exp
}

// startsParenFreeCall reports whether left is a callee followed on the same
// line by the start of an argument, as in `print 'hi'` or `xs.each |x| x`.
func (p *Parser) startsParenFreeCall(left ast.Expression, precedence int) bool {
	if precedence >= POSTFIX || !p.peekToken.SpaceBefore {
		return false
	}
	switch left.(type) {
	case *ast.Identifier, *ast.MemberExpression:
	default:
		return false
	}
	switch p.peekToken.Type {
	case token.IDENT, token.INT, token.FLOAT, token.STRING, token.TRUE, token.FALSE,
		token.NULL, token.BAR, token.LPAREN, token.LBRACKET:
		return true
	}
	return false
}

func (p *Parser) parseParenFreeCall(function ast.Expression) ast.Expression {
	call := &ast.CallExpression{Token: p.peekToken, Function: function}
	p.noTuple++
	p.parenFree++
	defer func() {
		p.noTuple--
		p.parenFree--
	}()
	for {
		p.nextToken()
		call.Arguments = append(call.Arguments, p.parseExpression(LOWEST))
		if !p.peekTokenIs(token.COMMA) {
			return call
		}
		p.nextToken()
		p.skipPeekNewlines()
	}
}
