package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/funvibe/kite/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number

	// nesting tracks open brackets; newlines are only significant at the
	// top level and directly inside braces.
	nesting  []rune
	lastType token.TokenType
	sawSpace bool
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

// NewAt creates a lexer whose positions start at line/column, used for
// interpolated expressions inside strings.
func NewAt(input string, line, column int) *Lexer {
	l := &Lexer{input: input, line: line, column: column - 1}
	l.readChar()
	return l
}

// Tokenize lexes the whole input including the final EOF token.
func Tokenize(input string) []token.Token {
	return New(input).All()
}

// All drains the lexer.
func (l *Lexer) All() []token.Token {
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		l.readPosition = len(l.input) + 1
		l.column++
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) peekChar2() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	_, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	if l.readPosition+w >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition+w:])
	return r
}

func (l *Lexer) atEnd() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) newlinesSignificant() bool {
	return len(l.nesting) == 0 || l.nesting[len(l.nesting)-1] == '{'
}

func (l *Lexer) NextToken() token.Token {
	l.sawSpace = false
	for {
		l.skipWhitespace()
		if l.ch == '\n' && !l.atEnd() {
			line, col := l.line, l.column
			l.readChar()
			if l.newlinesSignificant() && l.lastType != token.NEWLINE && l.lastType != "" {
				return l.emit(token.Token{Type: token.NEWLINE, Lexeme: "\n", Line: line, Column: col})
			}
			l.sawSpace = true
			continue
		}
		break
	}

	line, col := l.line, l.column
	simple := func(t token.TokenType, lexeme string) token.Token {
		for i := 1; i < utf8.RuneCountInString(lexeme); i++ {
			l.readChar()
		}
		l.readChar()
		return l.emit(token.Token{Type: t, Lexeme: lexeme, Literal: lexeme, Line: line, Column: col})
	}

	if l.atEnd() {
		return l.emit(token.Token{Type: token.EOF, Line: line, Column: col})
	}

	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			return simple(token.EQ, "==")
		}
		return simple(token.ASSIGN, "=")
	case '!':
		if l.peekChar() == '=' {
			return simple(token.NOT_EQ, "!=")
		}
	case '<':
		if l.peekChar() == '=' {
			return simple(token.LTE, "<=")
		}
		return simple(token.LT, "<")
	case '>':
		if l.peekChar() == '=' {
			return simple(token.GTE, ">=")
		}
		if l.peekChar() == '>' {
			return simple(token.PIPE, ">>")
		}
		return simple(token.GT, ">")
	case '+':
		if l.peekChar() == '=' {
			return simple(token.PLUS_ASSIGN, "+=")
		}
		return simple(token.PLUS, "+")
	case '-':
		if l.peekChar() == '=' {
			return simple(token.MINUS_ASSIGN, "-=")
		}
		return simple(token.MINUS, "-")
	case '*':
		if l.peekChar() == '=' {
			return simple(token.ASTERISK_ASSIGN, "*=")
		}
		return simple(token.ASTERISK, "*")
	case '/':
		if l.peekChar() == '=' {
			return simple(token.SLASH_ASSIGN, "/=")
		}
		return simple(token.SLASH, "/")
	case '%':
		if l.peekChar() == '=' {
			return simple(token.PERCENT_ASSIGN, "%=")
		}
		return simple(token.PERCENT, "%")
	case '^':
		if l.peekChar() == '=' {
			return simple(token.CARET_ASSIGN, "^=")
		}
		return simple(token.CARET, "^")
	case '.':
		if l.peekChar() == '.' {
			switch l.peekChar2() {
			case '.':
				return simple(token.ELLIPSIS, "...")
			case '=':
				return simple(token.RANGE_INCL, "..=")
			}
			return simple(token.RANGE, "..")
		}
		return simple(token.DOT, ".")
	case ',':
		return simple(token.COMMA, ",")
	case ':':
		return simple(token.COLON, ":")
	case ';':
		return simple(token.SEMICOLON, ";")
	case '|':
		return simple(token.BAR, "|")
	case '(', '[', '{':
		l.nesting = append(l.nesting, l.ch)
		switch l.ch {
		case '(':
			return simple(token.LPAREN, "(")
		case '[':
			return simple(token.LBRACKET, "[")
		}
		return simple(token.LBRACE, "{")
	case ')', ']', '}':
		if len(l.nesting) > 0 {
			l.nesting = l.nesting[:len(l.nesting)-1]
		}
		switch l.ch {
		case ')':
			return simple(token.RPAREN, ")")
		case ']':
			return simple(token.RBRACKET, "]")
		}
		return simple(token.RBRACE, "}")
	case '@':
		return l.readMetaKey()
	case '\'', '"':
		return l.readString(l.ch)
	default:
		if isLetter(l.ch) {
			if l.ch == 'r' && (l.peekChar() == '\'' || l.peekChar() == '"') {
				l.readChar()
				return l.readRawString(line, col)
			}
			ident := l.readIdentifier()
			return l.emit(token.Token{Type: token.LookupIdent(ident), Lexeme: ident, Literal: ident, Line: line, Column: col})
		}
		if isDigit(l.ch) {
			return l.readNumber()
		}
	}
	ch := l.ch
	l.readChar()
	return l.illegal(line, col, fmt.Sprintf("unexpected character '%c'", ch))
}

func (l *Lexer) emit(tok token.Token) token.Token {
	tok.SpaceBefore = l.sawSpace
	l.lastType = tok.Type
	return tok
}

func (l *Lexer) illegal(line, col int, msg string) token.Token {
	return l.emit(token.Token{Type: token.ILLEGAL, Lexeme: msg, Literal: msg, Line: line, Column: col})
}

func (l *Lexer) skipWhitespace() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			l.sawSpace = true
			l.readChar()
		case l.ch == '#' && l.peekChar() == '-':
			l.sawSpace = true
			l.readChar()
			l.readChar()
			for !l.atEnd() && !(l.ch == '-' && l.peekChar() == '#') {
				l.readChar()
			}
			if !l.atEnd() {
				l.readChar()
				l.readChar()
			}
		case l.ch == '#':
			l.sawSpace = true
			for !l.atEnd() && l.ch != '\n' {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

var metaOperators = []string{"<=", ">=", "==", "!=", "+", "-", "*", "/", "%", "^", "<", ">"}

func (l *Lexer) readMetaKey() token.Token {
	line, col := l.line, l.column
	l.readChar()
	if isLetter(l.ch) {
		name := "@" + l.readIdentifier()
		return l.emit(token.Token{Type: token.META, Lexeme: name, Literal: name, Line: line, Column: col})
	}
	rest := l.input[l.position:]
	for _, op := range metaOperators {
		if strings.HasPrefix(rest, op) {
			for range op {
				l.readChar()
			}
			name := "@" + op
			return l.emit(token.Token{Type: token.META, Lexeme: name, Literal: name, Line: line, Column: col})
		}
	}
	return l.illegal(line, col, "expected a metakey after '@'")
}

func (l *Lexer) readNumber() token.Token {
	line, col := l.line, l.column
	start := l.position

	if l.ch == '0' && strings.ContainsRune("xob", l.peekChar()) {
		base := map[rune]int{'x': 16, 'o': 8, 'b': 2}[l.peekChar()]
		l.readChar()
		l.readChar()
		digitsStart := l.position
		for isHexDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
		digits := strings.ReplaceAll(l.input[digitsStart:l.position], "_", "")
		n, err := strconv.ParseInt(digits, base, 64)
		if err != nil {
			return l.illegal(line, col, fmt.Sprintf("invalid number literal '%s'", l.input[start:l.position]))
		}
		return l.emit(token.Token{Type: token.INT, Lexeme: l.input[start:l.position], Literal: n, Line: line, Column: col})
	}

	isFloat := false
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekChar2())) {
			isFloat = true
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	lexeme := l.input[start:l.position]
	clean := strings.ReplaceAll(lexeme, "_", "")
	if isFloat {
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return l.illegal(line, col, fmt.Sprintf("invalid number literal '%s'", lexeme))
		}
		return l.emit(token.Token{Type: token.FLOAT, Lexeme: lexeme, Literal: f, Line: line, Column: col})
	}
	n, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(clean, 64)
		if ferr != nil {
			return l.illegal(line, col, fmt.Sprintf("invalid number literal '%s'", lexeme))
		}
		return l.emit(token.Token{Type: token.FLOAT, Lexeme: lexeme, Literal: f, Line: line, Column: col})
	}
	return l.emit(token.Token{Type: token.INT, Lexeme: lexeme, Literal: n, Line: line, Column: col})
}

func (l *Lexer) readRawString(line, col int) token.Token {
	quote := l.ch
	l.readChar()
	start := l.position
	for !l.atEnd() && l.ch != quote {
		l.readChar()
	}
	if l.atEnd() {
		return l.illegal(line, col, "unterminated string")
	}
	text := l.input[start:l.position]
	l.readChar()
	segs := []token.StringSegment{{Text: text}}
	return l.emit(token.Token{Type: token.STRING, Lexeme: "r" + string(quote) + text + string(quote), Literal: segs, Line: line, Column: col})
}

// readString lexes a quoted string into literal and interpolated segments.
func (l *Lexer) readString(quote rune) token.Token {
	line, col := l.line, l.column
	start := l.position
	l.readChar()

	var segs []token.StringSegment
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			segs = append(segs, token.StringSegment{Text: text.String()})
			text.Reset()
		}
	}

	for {
		if l.atEnd() {
			return l.illegal(line, col, "unterminated string")
		}
		switch l.ch {
		case quote:
			l.readChar()
			flush()
			if segs == nil {
				segs = []token.StringSegment{{Text: ""}}
			}
			return l.emit(token.Token{Type: token.STRING, Lexeme: l.input[start:l.position], Literal: segs, Line: line, Column: col})
		case '\\':
			l.readChar()
			r, ok := l.readEscape()
			if !ok {
				return l.illegal(line, col, "invalid escape sequence in string")
			}
			text.WriteRune(r)
		case '{':
			flush()
			seg, err := l.readInterpolation()
			if err != "" {
				return l.illegal(line, col, err)
			}
			segs = append(segs, seg)
		default:
			text.WriteRune(l.ch)
			l.readChar()
		}
	}
}

func (l *Lexer) readEscape() (rune, bool) {
	ch := l.ch
	l.readChar()
	switch ch {
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case '0':
		return 0, true
	case '\\', '\'', '"', '{', '}', '$':
		return ch, true
	case 'u':
		if l.ch != '{' {
			return 0, false
		}
		l.readChar()
		start := l.position
		for isHexDigit(l.ch) {
			l.readChar()
		}
		if l.ch != '}' {
			return 0, false
		}
		n, err := strconv.ParseUint(l.input[start:l.position], 16, 32)
		l.readChar()
		if err != nil || !utf8.ValidRune(rune(n)) {
			return 0, false
		}
		return rune(n), true
	}
	return 0, false
}

// readInterpolation consumes `{expr}` or `{expr:format}` starting at '{'.
func (l *Lexer) readInterpolation() (token.StringSegment, string) {
	l.readChar()
	line, col := l.line, l.column
	start := l.position
	depth := 0
	formatAt := -1
	for {
		if l.atEnd() {
			return token.StringSegment{}, "unterminated string interpolation"
		}
		switch l.ch {
		case '{', '(', '[':
			depth++
		case ')', ']':
			depth--
		case '}':
			if depth == 0 {
				end := l.position
				seg := token.StringSegment{IsCode: true, Line: line, Column: col}
				if formatAt >= 0 {
					seg.Code = l.input[start:formatAt]
					seg.Format = l.input[formatAt+1 : end]
				} else {
					seg.Code = l.input[start:end]
				}
				l.readChar()
				if strings.TrimSpace(seg.Code) == "" {
					return token.StringSegment{}, "empty string interpolation"
				}
				return seg, ""
			}
			depth--
		case ':':
			if depth == 0 && formatAt < 0 {
				formatAt = l.position
			}
		case '\'', '"':
			q := l.ch
			l.readChar()
			for !l.atEnd() && l.ch != q {
				if l.ch == '\\' {
					l.readChar()
				}
				l.readChar()
			}
		}
		l.readChar()
	}
}

func isHexDigit(ch rune) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
