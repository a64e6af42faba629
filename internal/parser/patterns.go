package parser

import (
	"strings"

	"github.com/funvibe/kite/internal/ast"
	"github.com/funvibe/kite/internal/diagnostics"
	"github.com/funvibe/kite/internal/token"
)

func (p *Parser) parsePattern() ast.Pattern {
	tok := p.curToken
	switch tok.Type {
	case token.INT, token.FLOAT, token.TRUE, token.FALSE, token.NULL:
		return &ast.LiteralPattern{Token: tok, Value: p.prefixParseFns[tok.Type]()}
	case token.STRING:
		lit := p.parseStringLiteral().(*ast.StringLiteral)
		if _, ok := staticString(lit); !ok {
			p.fail(diagnostics.NewError(diagnostics.ErrP005, tok, "interpolated strings can't be matched"))
		}
		return &ast.LiteralPattern{Token: tok, Value: lit}
	case token.MINUS:
		p.nextToken()
		switch p.curToken.Type {
		case token.INT:
			return &ast.LiteralPattern{Token: tok, Value: &ast.IntegerLiteral{Token: tok, Value: -p.curToken.Literal.(int64)}}
		case token.FLOAT:
			return &ast.LiteralPattern{Token: tok, Value: &ast.FloatLiteral{Token: tok, Value: -p.curToken.Literal.(float64)}}
		}
		p.fail(diagnostics.NewError(diagnostics.ErrP005, p.curToken, "expected a number after '-'"))
	case token.IDENT:
		if p.peekTokenIs(token.ELLIPSIS) {
			p.nextToken()
			return &ast.RestPattern{Token: tok, Name: tok.Lexeme}
		}
		if strings.HasPrefix(tok.Lexeme, "_") {
			return &ast.WildcardPattern{Token: tok, Name: tok.Lexeme}
		}
		return &ast.IdentifierPattern{Token: tok, Name: tok.Lexeme}
	case token.ELLIPSIS:
		return &ast.RestPattern{Token: tok}
	case token.LPAREN:
		elems, trailingComma := p.parsePatternList(token.RPAREN, "')'")
		if len(elems) == 1 && !trailingComma {
			if _, isRest := elems[0].(*ast.RestPattern); !isRest {
				return elems[0]
			}
		}
		return &ast.TuplePattern{Token: tok, Elements: elems}
	case token.LBRACKET:
		elems, _ := p.parsePatternList(token.RBRACKET, "']'")
		return &ast.ListPattern{Token: tok, Elements: elems}
	}
	p.fail(diagnostics.NewError(diagnostics.ErrP005, tok, "unexpected '"+describe(tok)+"'"))
	return nil
}

func (p *Parser) parsePatternList(end token.TokenType, what string) ([]ast.Pattern, bool) {
	var elems []ast.Pattern
	trailingComma := false
	rest := false
	for !p.peekTokenIs(end) {
		p.nextToken()
		pat := p.parsePattern()
		if _, ok := pat.(*ast.RestPattern); ok {
			if rest {
				p.fail(diagnostics.NewError(diagnostics.ErrP005, pat.GetToken(), "only one rest pattern is allowed"))
			}
			rest = true
		}
		elems = append(elems, pat)
		trailingComma = false
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		trailingComma = true
	}
	p.expectPeek(end, what)
	return elems, trailingComma
}
