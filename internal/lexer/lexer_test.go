package lexer

import (
	"testing"

	"github.com/funvibe/kite/internal/token"
)

func types(toks []token.Token) []token.TokenType {
	out := make([]token.TokenType, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestNextToken(t *testing.T) {
	input := `x = [1, 2.5, 0xff]
y += x[0] ^ 2 # comment
f = |a, rest...| a..=rest
@main = || null
`
	expected := []struct {
		typ    token.TokenType
		lexeme string
	}{
		{token.IDENT, "x"}, {token.ASSIGN, "="}, {token.LBRACKET, "["},
		{token.INT, "1"}, {token.COMMA, ","}, {token.FLOAT, "2.5"}, {token.COMMA, ","},
		{token.INT, "0xff"}, {token.RBRACKET, "]"}, {token.NEWLINE, "\n"},
		{token.IDENT, "y"}, {token.PLUS_ASSIGN, "+="}, {token.IDENT, "x"}, {token.LBRACKET, "["},
		{token.INT, "0"}, {token.RBRACKET, "]"}, {token.CARET, "^"}, {token.INT, "2"},
		{token.NEWLINE, "\n"},
		{token.IDENT, "f"}, {token.ASSIGN, "="}, {token.BAR, "|"}, {token.IDENT, "a"},
		{token.COMMA, ","}, {token.IDENT, "rest"}, {token.ELLIPSIS, "..."}, {token.BAR, "|"},
		{token.IDENT, "a"}, {token.RANGE_INCL, "..="}, {token.IDENT, "rest"}, {token.NEWLINE, "\n"},
		{token.META, "@main"}, {token.ASSIGN, "="}, {token.BAR, "|"}, {token.BAR, "|"},
		{token.NULL, "null"}, {token.NEWLINE, "\n"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range expected {
		tok := l.NextToken()
		if tok.Type != tt.typ {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (%q)", i, tt.typ, tok.Type, tok.Lexeme)
		}
		if tok.Lexeme != tt.lexeme {
			t.Fatalf("tests[%d] - lexeme wrong. expected=%q, got=%q", i, tt.lexeme, tok.Lexeme)
		}
	}
}

func TestNumberLiterals(t *testing.T) {
	tests := []struct {
		input string
		want  interface{}
	}{
		{"42", int64(42)},
		{"1_000", int64(1000)},
		{"0b101", int64(5)},
		{"0o17", int64(15)},
		{"0x1F", int64(31)},
		{"1.5", 1.5},
		{"1e3", 1000.0},
		{"2.5e-1", 0.25},
	}
	for _, tt := range tests {
		tok := New(tt.input).NextToken()
		if tok.Literal != tt.want {
			t.Errorf("%s: expected %v (%T), got %v (%T)", tt.input, tt.want, tt.want, tok.Literal, tok.Literal)
		}
	}
}

func TestRangeAfterInteger(t *testing.T) {
	got := types(Tokenize("1..5"))
	want := []token.TokenType{token.INT, token.RANGE, token.INT, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestNewlinesInsideBrackets(t *testing.T) {
	toks := Tokenize("f(1,\n 2)\n[3,\n4]")
	newlines := 0
	for _, tok := range toks {
		if tok.Type == token.NEWLINE {
			newlines++
		}
	}
	if newlines != 1 {
		t.Errorf("expected a single significant newline, got %d", newlines)
	}
}

func TestNewlinesInsideBraces(t *testing.T) {
	toks := Tokenize("{\n a\n\n b\n}")
	got := types(toks)
	want := []token.TokenType{token.LBRACE, token.NEWLINE, token.IDENT, token.NEWLINE, token.IDENT, token.NEWLINE, token.RBRACE, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestStringSegments(t *testing.T) {
	tok := New(`'a{x + 1}b{pi:.2}\n'`).NextToken()
	if tok.Type != token.STRING {
		t.Fatalf("expected STRING, got %s (%s)", tok.Type, tok.Lexeme)
	}
	segs := tok.Literal.([]token.StringSegment)
	if len(segs) != 5 {
		t.Fatalf("expected 5 segments, got %d: %+v", len(segs), segs)
	}
	if segs[0].Text != "a" || !segs[1].IsCode || segs[1].Code != "x + 1" {
		t.Errorf("unexpected leading segments: %+v", segs[:2])
	}
	if segs[3].Code != "pi" || segs[3].Format != ".2" {
		t.Errorf("expected format segment, got %+v", segs[3])
	}
	if segs[4].Text != "\n" {
		t.Errorf("expected escaped newline, got %q", segs[4].Text)
	}
}

func TestStringEscapes(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`'it\'s'`, "it's"},
		{`"tab\there"`, "tab\there"},
		{`'\u{1F600}'`, "\U0001F600"},
		{`'\{not code\}'`, "{not code}"},
		{`r'raw\n{x}'`, `raw\n{x}`},
		{`''`, ""},
	}
	for _, tt := range tests {
		tok := New(tt.input).NextToken()
		segs := tok.Literal.([]token.StringSegment)
		if len(segs) != 1 || segs[0].IsCode || segs[0].Text != tt.want {
			t.Errorf("%s: expected %q, got %+v", tt.input, tt.want, segs)
		}
	}
}

func TestComments(t *testing.T) {
	got := types(Tokenize("a #- block\ncomment -# b # line\nc"))
	want := []token.TokenType{token.IDENT, token.IDENT, token.NEWLINE, token.IDENT, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSpaceBefore(t *testing.T) {
	toks := Tokenize("f(x) f (x)")
	if toks[1].SpaceBefore {
		t.Errorf("expected adjacent '(' after f")
	}
	if !toks[5].SpaceBefore {
		t.Errorf("expected spaced '(' in the second call")
	}
}

func TestMetaKeys(t *testing.T) {
	for _, input := range []string{"@+", "@<=", "@==", "@display", "@index_mut", "@test"} {
		tok := New(input).NextToken()
		if tok.Type != token.META || tok.Lexeme != input {
			t.Errorf("%s: got %s %q", input, tok.Type, tok.Lexeme)
		}
	}
}

func TestIllegalTokens(t *testing.T) {
	tests := []struct {
		input string
		msg   string
	}{
		{"'open", "unterminated string"},
		{"'{x'", "unterminated string interpolation"},
		{"'{}'", "empty string interpolation"},
		{"'\\q'", "invalid escape sequence in string"},
		{"$", "unexpected character '$'"},
		{"@", "expected a metakey after '@'"},
	}
	for _, tt := range tests {
		tok := New(tt.input).NextToken()
		if tok.Type != token.ILLEGAL || tok.Lexeme != tt.msg {
			t.Errorf("%s: expected ILLEGAL %q, got %s %q", tt.input, tt.msg, tok.Type, tok.Lexeme)
		}
	}
}
