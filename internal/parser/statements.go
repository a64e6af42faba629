package parser

import (
	"github.com/funvibe/kite/internal/ast"
	"github.com/funvibe/kite/internal/diagnostics"
	"github.com/funvibe/kite/internal/token"
	"github.com/funvibe/kite/internal/value"
)

// parseExportExpression parses `export a`, `export a, b = 1, 2`,
// `export { ... }` and `export <expr>`.
func (p *Parser) parseExportExpression() ast.Expression {
	expr := &ast.ExportExpression{Token: p.curToken}
	if endsExpression(p.peekToken) {
		p.fail(diagnostics.NewError(diagnostics.ErrP003, p.peekToken, "an expression to export", describe(p.peekToken)))
	}
	p.nextToken()
	expr.Value = p.parseExpressionStatement()
	return expr
}

func (p *Parser) checkMetaKey(tok token.Token, key string) {
	if _, _, ok := value.ParseMetaEntry(key); !ok {
		p.fail(diagnostics.NewError(diagnostics.ErrP007, tok, key))
	}
}

// parseMetaAssign parses a module-level metakey assignment such as
// `@main = || ...` or `@test basics = || ...`.
func (p *Parser) parseMetaAssign() ast.Expression {
	expr := &ast.MetaAssignExpression{Token: p.curToken, Key: p.curToken.Lexeme}
	if expr.Key == "@test" {
		p.expectPeek(token.IDENT, "a test name")
		expr.Key += " " + p.curToken.Lexeme
	}
	p.checkMetaKey(expr.Token, expr.Key)
	p.expectPeek(token.ASSIGN, "'='")
	p.nextToken()
	p.skipNewlines()
	expr.Value = p.parseExpression(LOWEST)
	if fn, ok := expr.Value.(*ast.FunctionLiteral); ok && fn.Name == "" {
		fn.Name = expr.Key
	}
	return expr
}

// parseImportExpression parses `import a, b.c as d` and
// `from a.b import c, d as e`.
func (p *Parser) parseImportExpression() ast.Expression {
	expr := &ast.ImportExpression{Token: p.curToken}
	if p.curTokenIs(token.FROM) {
		p.nextToken()
		expr.From = p.parseImportItem(false)
		p.expectPeek(token.IMPORT, "'import'")
	}
	for {
		p.nextToken()
		expr.Items = append(expr.Items, p.parseImportItem(true))
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	return expr
}

func (p *Parser) parseImportItem(allowAlias bool) *ast.ImportItem {
	item := &ast.ImportItem{Token: p.curToken}
	switch p.curToken.Type {
	case token.STRING:
		s, ok := staticString(p.parseStringLiteral().(*ast.StringLiteral))
		if !ok {
			p.failf(p.curToken, "import paths can't be interpolated")
		}
		item.Literal = s
	case token.IDENT:
		item.Path = append(item.Path, p.curToken.Lexeme)
		for p.peekTokenIs(token.DOT) && !p.peekToken.SpaceBefore {
			p.nextToken()
			p.nextToken()
			if !p.curTokenIs(token.IDENT) && !token.IsKeyword(p.curToken.Lexeme) {
				p.fail(diagnostics.NewError(diagnostics.ErrP003, p.curToken, "a module name", describe(p.curToken)))
			}
			item.Path = append(item.Path, p.curToken.Lexeme)
		}
	default:
		p.fail(diagnostics.NewError(diagnostics.ErrP003, p.curToken, "a module name", describe(p.curToken)))
	}

	if allowAlias && p.peekTokenIs(token.AS) {
		p.nextToken()
		p.expectPeek(token.IDENT, "a name")
		item.Alias = p.curToken.Lexeme
	}
	return item
}
