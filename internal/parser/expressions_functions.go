package parser

import (
	"github.com/funvibe/kite/internal/ast"
	"github.com/funvibe/kite/internal/token"
)

// parseFunctionLiteral parses `|params| body`; the body is a block or a
// single expression on the same line.
func (p *Parser) parseFunctionLiteral() ast.Expression {
	fn := &ast.FunctionLiteral{Token: p.curToken}

	p.noTuple++
	p.nextToken()
	for !p.curTokenIs(token.BAR) {
		param := p.parseParameter()
		fn.Parameters = append(fn.Parameters, param)
		if param.Variadic && !p.peekTokenIs(token.BAR) {
			p.failf(p.peekToken, "the variadic parameter must be the last one")
		}
		p.nextToken()
		if p.curTokenIs(token.COMMA) {
			p.nextToken()
		} else if !p.curTokenIs(token.BAR) {
			p.unexpected(p.curToken)
		}
	}
	p.noTuple--

	p.funcDepth++
	p.yields = append(p.yields, false)
	savedTuple := p.noTuple
	if p.peekTokenIs(token.LBRACE) && !p.peekLooksLikeMap() {
		p.nextToken()
		fn.Body = p.parseBlock()
	} else {
		p.nextToken()
		fn.Body = p.parseExpression(LOWEST)
	}
	p.noTuple = savedTuple
	fn.IsGenerator = p.yields[len(p.yields)-1]
	p.yields = p.yields[:len(p.yields)-1]
	p.funcDepth--
	return fn
}

// parseParameter parses a parameter or loop binding.
func (p *Parser) parseParameter() *ast.Parameter {
	param := &ast.Parameter{Token: p.curToken}
	if p.curTokenIs(token.IDENT) && p.peekTokenIs(token.ELLIPSIS) {
		param.Pattern = &ast.IdentifierPattern{Token: p.curToken, Name: p.curToken.Lexeme}
		param.Variadic = true
		p.nextToken()
		return param
	}
	pat := p.parsePattern()
	switch pat.(type) {
	case *ast.IdentifierPattern, *ast.WildcardPattern, *ast.TuplePattern, *ast.ListPattern:
	default:
		p.failf(pat.GetToken(), "expected a name or a destructuring pattern")
	}
	param.Pattern = pat
	return param
}
