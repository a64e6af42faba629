package parser

import (
	"errors"
	"strings"

	"github.com/funvibe/kite/internal/ast"
	"github.com/funvibe/kite/internal/diagnostics"
	"github.com/funvibe/kite/internal/lexer"
	"github.com/funvibe/kite/internal/pipeline"
	"github.com/funvibe/kite/internal/token"
)

const MaxRecursionDepth = 500

const (
	_ int = iota
	LOWEST
	ASSIGN      // = += -=
	PIPE        // >>
	OR          // or
	AND         // and
	NOT         // not x
	EQUALS      // == !=
	LESSGREATER // < <= > >=
	RANGE       // .. ..=
	SUM         // + -
	PRODUCT     // * / %
	PREFIX      // -x
	POWER       // ^
	POSTFIX     // f(x) x[i] x.y
)

var precedences = map[token.TokenType]int{
	token.ASSIGN:          ASSIGN,
	token.PLUS_ASSIGN:     ASSIGN,
	token.MINUS_ASSIGN:    ASSIGN,
	token.ASTERISK_ASSIGN: ASSIGN,
	token.SLASH_ASSIGN:    ASSIGN,
	token.PERCENT_ASSIGN:  ASSIGN,
	token.CARET_ASSIGN:    ASSIGN,
	token.PIPE:            PIPE,
	token.OR:              OR,
	token.AND:             AND,
	token.EQ:              EQUALS,
	token.NOT_EQ:          EQUALS,
	token.LT:              LESSGREATER,
	token.LTE:             LESSGREATER,
	token.GT:              LESSGREATER,
	token.GTE:             LESSGREATER,
	token.RANGE:           RANGE,
	token.RANGE_INCL:      RANGE,
	token.PLUS:            SUM,
	token.MINUS:           SUM,
	token.ASTERISK:        PRODUCT,
	token.SLASH:           PRODUCT,
	token.PERCENT:         PRODUCT,
	token.CARET:           POWER,
	token.LPAREN:          POSTFIX,
	token.LBRACKET:        POSTFIX,
	token.DOT:             POSTFIX,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// parseAbort unwinds the parser after the first error.
type parseAbort struct{}

type Parser struct {
	tokens []token.Token
	pos    int
	ctx    *pipeline.PipelineContext

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn

	depth int
	// noTuple counts enclosing constructs where commas separate items, so
	// assignment right-hand sides must not swallow them.
	noTuple int
	// parenFree counts enclosing paren-free call arguments, where a line
	// starting with '.' belongs to the outer chain.
	parenFree int
	// funcDepth is used to reject `yield` outside functions.
	funcDepth int
	// yields marks the function literals on the stack that contain `yield`.
	yields []bool
}

func New(tokens []token.Token, ctx *pipeline.PipelineContext) *Parser {
	p := &Parser{tokens: tokens, ctx: ctx}
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		p.tokens = append(p.tokens, token.Token{Type: token.EOF})
	}

	p.prefixParseFns = map[token.TokenType]prefixParseFn{
		token.IDENT:      p.parseIdentifier,
		token.INT:        p.parseIntegerLiteral,
		token.FLOAT:      p.parseFloatLiteral,
		token.STRING:     p.parseStringLiteral,
		token.TRUE:       p.parseBoolean,
		token.FALSE:      p.parseBoolean,
		token.NULL:       p.parseNull,
		token.MINUS:      p.parsePrefixExpression,
		token.NOT:        p.parseNotExpression,
		token.LPAREN:     p.parseGroupedExpression,
		token.LBRACKET:   p.parseListLiteral,
		token.LBRACE:     p.parseMapLiteral,
		token.BAR:        p.parseFunctionLiteral,
		token.RANGE:      p.parsePrefixRange,
		token.RANGE_INCL: p.parsePrefixRange,
		token.IF:         p.parseIfExpression,
		token.MATCH:      p.parseMatchExpression,
		token.SWITCH:     p.parseSwitchExpression,
		token.TRY:        p.parseTryExpression,
		token.THROW:      p.parseThrowExpression,
		token.RETURN:     p.parseReturnExpression,
		token.BREAK:      p.parseBreakExpression,
		token.CONTINUE:   p.parseContinueExpression,
		token.YIELD:      p.parseYieldExpression,
		token.FOR:        p.parseForExpression,
		token.WHILE:      p.parseWhileExpression,
		token.UNTIL:      p.parseWhileExpression,
		token.LOOP:       p.parseLoopExpression,
		token.IMPORT:     p.parseImportExpression,
		token.FROM:       p.parseImportExpression,
		token.DEBUG:      p.parseDebugExpression,
	}

	p.infixParseFns = map[token.TokenType]infixParseFn{
		token.PLUS:            p.parseInfixExpression,
		token.MINUS:           p.parseInfixExpression,
		token.ASTERISK:        p.parseInfixExpression,
		token.SLASH:           p.parseInfixExpression,
		token.PERCENT:         p.parseInfixExpression,
		token.CARET:           p.parseInfixExpression,
		token.EQ:              p.parseInfixExpression,
		token.NOT_EQ:          p.parseInfixExpression,
		token.LT:              p.parseInfixExpression,
		token.LTE:             p.parseInfixExpression,
		token.GT:              p.parseInfixExpression,
		token.GTE:             p.parseInfixExpression,
		token.AND:             p.parseInfixExpression,
		token.OR:              p.parseInfixExpression,
		token.PIPE:            p.parseInfixExpression,
		token.RANGE:           p.parseRangeExpression,
		token.RANGE_INCL:      p.parseRangeExpression,
		token.LPAREN:          p.parseCallExpression,
		token.LBRACKET:        p.parseIndexExpression,
		token.DOT:             p.parseMemberExpression,
		token.ASSIGN:          p.parseAssignExpression,
		token.PLUS_ASSIGN:     p.parseAssignExpression,
		token.MINUS_ASSIGN:    p.parseAssignExpression,
		token.ASTERISK_ASSIGN: p.parseAssignExpression,
		token.SLASH_ASSIGN:    p.parseAssignExpression,
		token.PERCENT_ASSIGN:  p.parseAssignExpression,
		token.CARET_ASSIGN:    p.parseAssignExpression,
	}

	p.pos = -1
	p.nextToken()
	return p
}

// Parse lexes and parses source in one step.
func Parse(source, file string) (*ast.Program, error) {
	ctx := pipeline.NewPipelineContext(source)
	ctx.FilePath = file
	ctx = pipeline.New(&lexer.LexerProcessor{}, &ParserProcessor{}).Run(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ctx.AstRoot.(*ast.Program), nil
}

// IsIncomplete reports whether err was caused by input ending early, which
// lets a REPL ask for another line.
func IsIncomplete(err error) bool {
	var d *diagnostics.DiagnosticError
	if !errors.As(err, &d) {
		return false
	}
	if d.Token.Type == token.EOF {
		return true
	}
	return d.Code == diagnostics.ErrP004 && strings.HasPrefix(d.Message, "unterminated")
}

func (p *Parser) nextToken() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	p.curToken = p.tokens[p.pos]
	if p.pos+1 < len(p.tokens) {
		p.peekToken = p.tokens[p.pos+1]
	} else {
		p.peekToken = p.tokens[len(p.tokens)-1]
	}
}

// tokenAfterNewlines returns the first token after any newlines following
// the current one.
func (p *Parser) tokenAfterNewlines() token.Token {
	for i := p.pos + 1; i < len(p.tokens); i++ {
		if p.tokens[i].Type != token.NEWLINE {
			return p.tokens[i]
		}
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) skipPeekNewlines() {
	for p.peekTokenIs(token.NEWLINE) {
		p.nextToken()
	}
}

func (p *Parser) skipNewlines() {
	for p.curTokenIs(token.NEWLINE) || p.curTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
}

func (p *Parser) curTokenIs(t token.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) peekPrecedence() int {
	if p, ok := precedences[p.peekToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) expectPeek(t token.TokenType, what string) {
	if !p.peekTokenIs(t) {
		p.fail(diagnostics.NewError(diagnostics.ErrP003, p.peekToken, what, describe(p.peekToken)))
	}
	p.nextToken()
}

func (p *Parser) fail(err *diagnostics.DiagnosticError) {
	err.File = p.ctx.FilePath
	p.ctx.Errors = append(p.ctx.Errors, err)
	panic(parseAbort{})
}

func (p *Parser) failf(tok token.Token, msg string) {
	p.fail(diagnostics.NewError(diagnostics.ErrP006, tok, msg))
}

func (p *Parser) unexpected(tok token.Token) {
	if tok.Type == token.ILLEGAL {
		p.fail(diagnostics.NewError(diagnostics.ErrP004, tok, tok.Lexeme))
	}
	p.fail(diagnostics.NewError(diagnostics.ErrP001, tok, describe(tok)))
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of input"
	case token.NEWLINE:
		return "newline"
	}
	return tok.Lexeme
}

// ParseProgram parses statements until EOF. Parsing stops at the first
// error, which is recorded in the pipeline context.
func (p *Parser) ParseProgram() (program *ast.Program) {
	program = &ast.Program{File: p.ctx.FilePath}
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(parseAbort); !ok {
				panic(r)
			}
		}
	}()

	p.skipNewlines()
	for !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		program.Statements = append(program.Statements, stmt)
		p.endStatement(token.EOF)
	}
	return program
}

// endStatement checks that the statement just parsed is followed by a
// terminator and moves to the start of the next statement.
func (p *Parser) endStatement(closer token.TokenType) {
	switch p.peekToken.Type {
	case token.NEWLINE, token.SEMICOLON:
		p.nextToken()
		p.skipNewlines()
	case closer:
		p.nextToken()
	default:
		p.unexpected(p.peekToken)
	}
}

// parseBlock parses `{ ... }` with curToken on '{' and leaves curToken on '}'.
func (p *Parser) parseBlock() *ast.Block {
	block := &ast.Block{Token: p.curToken}
	saved, savedFree := p.noTuple, p.parenFree
	p.noTuple, p.parenFree = 0, 0
	defer func() { p.noTuple, p.parenFree = saved, savedFree }()

	p.nextToken()
	p.skipNewlines()
	for !p.curTokenIs(token.RBRACE) {
		if p.curTokenIs(token.EOF) {
			p.fail(diagnostics.NewError(diagnostics.ErrP003, p.curToken, "'}'", describe(p.curToken)))
		}
		block.Statements = append(block.Statements, p.parseStatement())
		p.endStatement(token.RBRACE)
	}
	return block
}

// subParse parses an interpolated expression inside a string literal.
func (p *Parser) subParse(seg token.StringSegment) ast.Expression {
	toks := lexer.NewAt(seg.Code, seg.Line, seg.Column).All()
	for _, t := range toks {
		if t.Type == token.NEWLINE {
			p.failf(t, "newline in string interpolation")
		}
		if t.Type == token.ILLEGAL {
			p.unexpected(t)
		}
	}
	sub := New(toks, p.ctx)
	sub.funcDepth = p.funcDepth
	sub.depth = p.depth
	expr := sub.parseExpressions()
	if !sub.peekTokenIs(token.EOF) {
		sub.unexpected(sub.peekToken)
	}
	return expr
}

// sourceBetween rebuilds source text from the tokens in [from, to].
func (p *Parser) sourceBetween(from, to int) string {
	var b strings.Builder
	for i := from; i <= to && i < len(p.tokens); i++ {
		t := p.tokens[i]
		if i > from && t.SpaceBefore {
			b.WriteByte(' ')
		}
		b.WriteString(t.Lexeme)
	}
	return b.String()
}
