package ast

import (
	"github.com/funvibe/kite/internal/token"
)

// Pattern appears in match arms, parameters and loop bindings.
type Pattern interface {
	Node
	patternNode()
}

// LiteralPattern matches by equality against a literal.
type LiteralPattern struct {
	Token token.Token
	Value Expression
}

func (l *LiteralPattern) patternNode()          {}
func (l *LiteralPattern) TokenLiteral() string  { return l.Token.Lexeme }
func (l *LiteralPattern) GetToken() token.Token { return l.Token }

// IdentifierPattern binds the matched value.
type IdentifierPattern struct {
	Token token.Token
	Name  string
}

func (i *IdentifierPattern) patternNode()          {}
func (i *IdentifierPattern) TokenLiteral() string  { return i.Token.Lexeme }
func (i *IdentifierPattern) GetToken() token.Token { return i.Token }

type WildcardPattern struct {
	Token token.Token
	Name  string
}

func (w *WildcardPattern) patternNode()          {}
func (w *WildcardPattern) TokenLiteral() string  { return w.Token.Lexeme }
func (w *WildcardPattern) GetToken() token.Token { return w.Token }

type TuplePattern struct {
	Token    token.Token
	Elements []Pattern
}

func (t *TuplePattern) patternNode()          {}
func (t *TuplePattern) TokenLiteral() string  { return t.Token.Lexeme }
func (t *TuplePattern) GetToken() token.Token { return t.Token }

type ListPattern struct {
	Token    token.Token
	Elements []Pattern
}

func (l *ListPattern) patternNode()          {}
func (l *ListPattern) TokenLiteral() string  { return l.Token.Lexeme }
func (l *ListPattern) GetToken() token.Token { return l.Token }

// RestPattern is `rest...` or `...` inside a sequence pattern.
type RestPattern struct {
	Token token.Token
	Name  string
}

func (r *RestPattern) patternNode()          {}
func (r *RestPattern) TokenLiteral() string  { return r.Token.Lexeme }
func (r *RestPattern) GetToken() token.Token { return r.Token }
