package token

type TokenType string

type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{}
	Line    int
	Column  int
	// SpaceBefore is set when whitespace separates the token from the
	// previous one on the same line.
	SpaceBefore bool
}

// StringSegment is one piece of a string literal: either literal text or
// the source of an interpolated expression.
type StringSegment struct {
	Text   string
	Code   string
	Format string
	IsCode bool
	Line   int
	Column int
}

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"
	NEWLINE = "NEWLINE"

	IDENT  = "IDENT"
	INT    = "INT"
	FLOAT  = "FLOAT"
	STRING = "STRING"
	META   = "META" // @+, @index, @test, ...

	ASSIGN          = "="
	PLUS_ASSIGN     = "+="
	MINUS_ASSIGN    = "-="
	ASTERISK_ASSIGN = "*="
	SLASH_ASSIGN    = "/="
	PERCENT_ASSIGN  = "%="
	CARET_ASSIGN    = "^="

	PLUS     = "+"
	MINUS    = "-"
	ASTERISK = "*"
	SLASH    = "/"
	PERCENT  = "%"
	CARET    = "^"

	EQ     = "=="
	NOT_EQ = "!="
	LT     = "<"
	LTE    = "<="
	GT     = ">"
	GTE    = ">="
	PIPE   = ">>"

	DOT        = "."
	RANGE      = ".."
	RANGE_INCL = "..="
	ELLIPSIS   = "..."
	COMMA      = ","
	COLON      = ":"
	SEMICOLON  = ";"
	BAR        = "|"

	LPAREN   = "("
	RPAREN   = ")"
	LBRACE   = "{"
	RBRACE   = "}"
	LBRACKET = "["
	RBRACKET = "]"

	AND      = "and"
	AS       = "as"
	BREAK    = "break"
	CATCH    = "catch"
	CONTINUE = "continue"
	DEBUG    = "debug"
	ELSE     = "else"
	EXPORT   = "export"
	FALSE    = "false"
	FINALLY  = "finally"
	FOR      = "for"
	FROM     = "from"
	IF       = "if"
	IMPORT   = "import"
	IN       = "in"
	LOOP     = "loop"
	MATCH    = "match"
	NOT      = "not"
	NULL     = "null"
	OR       = "or"
	RETURN   = "return"
	SWITCH   = "switch"
	THEN     = "then"
	THROW    = "throw"
	TRUE     = "true"
	TRY      = "try"
	UNTIL    = "until"
	WHILE    = "while"
	YIELD    = "yield"
)

var keywords = map[string]TokenType{
	"and":      AND,
	"as":       AS,
	"break":    BREAK,
	"catch":    CATCH,
	"continue": CONTINUE,
	"debug":    DEBUG,
	"else":     ELSE,
	"export":   EXPORT,
	"false":    FALSE,
	"finally":  FINALLY,
	"for":      FOR,
	"from":     FROM,
	"if":       IF,
	"import":   IMPORT,
	"in":       IN,
	"loop":     LOOP,
	"match":    MATCH,
	"not":      NOT,
	"null":     NULL,
	"or":       OR,
	"return":   RETURN,
	"switch":   SWITCH,
	"then":     THEN,
	"throw":    THROW,
	"true":     TRUE,
	"try":      TRY,
	"until":    UNTIL,
	"while":    WHILE,
	"yield":    YIELD,
}

// LookupIdent returns the keyword type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword reports whether ident is reserved.
func IsKeyword(ident string) bool {
	_, ok := keywords[ident]
	return ok
}
