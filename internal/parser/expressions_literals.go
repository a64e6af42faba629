package parser

import (
	"strings"

	"github.com/funvibe/kite/internal/ast"
	"github.com/funvibe/kite/internal/diagnostics"
	"github.com/funvibe/kite/internal/token"
)

func (p *Parser) parseIdentifier() ast.Expression {
	if strings.HasPrefix(p.curToken.Lexeme, "_") {
		return &ast.Wildcard{Token: p.curToken, Name: p.curToken.Lexeme}
	}
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	return &ast.IntegerLiteral{Token: p.curToken, Value: p.curToken.Literal.(int64)}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	return &ast.FloatLiteral{Token: p.curToken, Value: p.curToken.Literal.(float64)}
}

func (p *Parser) parseBoolean() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNull() ast.Expression {
	return &ast.NullLiteral{Token: p.curToken}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	lit := &ast.StringLiteral{Token: p.curToken}
	segs, _ := p.curToken.Literal.([]token.StringSegment)
	for _, seg := range segs {
		if !seg.IsCode {
			lit.Parts = append(lit.Parts, ast.StringPart{Text: seg.Text})
			continue
		}
		lit.Parts = append(lit.Parts, ast.StringPart{Expr: p.subParse(seg), Format: strings.TrimSpace(seg.Format)})
	}
	return lit
}

// staticString returns the text of a string literal without interpolation.
func staticString(lit *ast.StringLiteral) (string, bool) {
	var b strings.Builder
	for _, part := range lit.Parts {
		if part.Expr != nil {
			return "", false
		}
		b.WriteString(part.Text)
	}
	return b.String(), true
}

// parseGroupedExpression handles `(expr)`, `()` and `(a, b)`.
func (p *Parser) parseGroupedExpression() ast.Expression {
	tok := p.curToken
	p.noTuple++
	defer func() { p.noTuple-- }()

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return &ast.TupleLiteral{Token: tok}
	}
	p.nextToken()
	first := p.parseExpression(LOWEST)
	if !p.peekTokenIs(token.COMMA) {
		p.expectPeek(token.RPAREN, "')'")
		return first
	}

	tuple := &ast.TupleLiteral{Token: tok, Elements: []ast.Expression{first}}
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		if p.peekTokenIs(token.RPAREN) {
			break
		}
		p.nextToken()
		tuple.Elements = append(tuple.Elements, p.parseExpression(LOWEST))
	}
	p.expectPeek(token.RPAREN, "')'")
	return tuple
}

func (p *Parser) parseListLiteral() ast.Expression {
	list := &ast.ListLiteral{Token: p.curToken}
	list.Elements = p.parseExpressionList(token.RBRACKET, "']'")
	return list
}

// parseExpressionList parses comma separated expressions up to end, leaving
// curToken on end. A trailing comma is allowed.
func (p *Parser) parseExpressionList(end token.TokenType, what string) []ast.Expression {
	p.noTuple++
	defer func() { p.noTuple-- }()

	var items []ast.Expression
	p.skipPeekNewlines()
	if p.peekTokenIs(end) {
		p.nextToken()
		return items
	}
	for {
		p.nextToken()
		p.skipNewlines()
		items = append(items, p.parseExpression(LOWEST))
		p.skipPeekNewlines()
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		p.skipPeekNewlines()
		if p.peekTokenIs(end) {
			break
		}
	}
	p.expectPeek(end, what)
	return items
}

// parseMapLiteral parses `{key: value, ...}`. Entries are separated by
// commas or newlines.
func (p *Parser) parseMapLiteral() ast.Expression {
	m := &ast.MapLiteral{Token: p.curToken}
	p.noTuple++
	defer func() { p.noTuple-- }()

	p.nextToken()
	p.skipNewlines()
	for !p.curTokenIs(token.RBRACE) {
		m.Entries = append(m.Entries, p.parseMapEntry())
		p.nextToken()
		switch {
		case p.curTokenIs(token.COMMA):
			p.nextToken()
		case p.curTokenIs(token.NEWLINE), p.curTokenIs(token.SEMICOLON), p.curTokenIs(token.RBRACE):
		default:
			p.unexpected(p.curToken)
		}
		p.skipNewlines()
	}
	return m
}

func (p *Parser) parseMapEntry() *ast.MapEntry {
	entry := &ast.MapEntry{Key: ast.MapKey{Token: p.curToken}}
	switch p.curToken.Type {
	case token.IDENT:
		entry.Key.Name = p.curToken.Lexeme
		if !p.peekTokenIs(token.COLON) {
			return entry
		}
	case token.STRING:
		lit := p.parseStringLiteral().(*ast.StringLiteral)
		if s, ok := staticString(lit); ok {
			entry.Key.Name = s
		} else {
			entry.Key.StringKey = lit
		}
	case token.META:
		entry.Key.Meta = p.curToken.Lexeme
		if entry.Key.Meta == "@test" {
			p.expectPeek(token.IDENT, "a test name")
			entry.Key.Meta += " " + p.curToken.Lexeme
		}
		p.checkMetaKey(entry.Key.Token, entry.Key.Meta)
	default:
		if token.IsKeyword(p.curToken.Lexeme) && p.peekTokenIs(token.COLON) {
			entry.Key.Name = p.curToken.Lexeme
			break
		}
		p.fail(diagnostics.NewError(diagnostics.ErrP003, p.curToken, "a map key", describe(p.curToken)))
	}
	p.expectPeek(token.COLON, "':'")
	p.nextToken()
	p.skipNewlines()
	entry.Value = p.parseExpression(LOWEST)
	return entry
}

// peekLooksLikeMap decides whether a '{' after closure parameters opens a
// map literal rather than a block.
func (p *Parser) peekLooksLikeMap() bool {
	i := p.pos + 2
	for i < len(p.tokens) && p.tokens[i].Type == token.NEWLINE {
		i++
	}
	if i+1 >= len(p.tokens) {
		return false
	}
	first, second := p.tokens[i], p.tokens[i+1]
	switch first.Type {
	case token.META:
		return true
	case token.IDENT, token.STRING:
		return second.Type == token.COLON
	}
	return false
}
