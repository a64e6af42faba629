package ast

import (
	"github.com/funvibe/kite/internal/token"
)

// Identifier is a name reference.
type Identifier struct {
	Token token.Token
	Value string
}

func (i *Identifier) expressionNode()       {}
func (i *Identifier) TokenLiteral() string  { return i.Token.Lexeme }
func (i *Identifier) GetToken() token.Token { return i.Token }

// Wildcard is `_` or `_name`; it discards what is assigned to it.
type Wildcard struct {
	Token token.Token
	Name  string
}

func (w *Wildcard) expressionNode()       {}
func (w *Wildcard) TokenLiteral() string  { return w.Token.Lexeme }
func (w *Wildcard) GetToken() token.Token { return w.Token }

type NullLiteral struct {
	Token token.Token
}

func (n *NullLiteral) expressionNode()       {}
func (n *NullLiteral) TokenLiteral() string  { return n.Token.Lexeme }
func (n *NullLiteral) GetToken() token.Token { return n.Token }

type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (b *BooleanLiteral) expressionNode()       {}
func (b *BooleanLiteral) TokenLiteral() string  { return b.Token.Lexeme }
func (b *BooleanLiteral) GetToken() token.Token { return b.Token }

type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (i *IntegerLiteral) expressionNode()       {}
func (i *IntegerLiteral) TokenLiteral() string  { return i.Token.Lexeme }
func (i *IntegerLiteral) GetToken() token.Token { return i.Token }

type FloatLiteral struct {
	Token token.Token
	Value float64
}

func (f *FloatLiteral) expressionNode()       {}
func (f *FloatLiteral) TokenLiteral() string  { return f.Token.Lexeme }
func (f *FloatLiteral) GetToken() token.Token { return f.Token }

// StringLiteral holds literal text and interpolated expressions in order.
type StringLiteral struct {
	Token token.Token
	Parts []StringPart
}

func (s *StringLiteral) expressionNode()       {}
func (s *StringLiteral) TokenLiteral() string  { return s.Token.Lexeme }
func (s *StringLiteral) GetToken() token.Token { return s.Token }

type ListLiteral struct {
	Token    token.Token
	Elements []Expression
}

func (l *ListLiteral) expressionNode()       {}
func (l *ListLiteral) TokenLiteral() string  { return l.Token.Lexeme }
func (l *ListLiteral) GetToken() token.Token { return l.Token }

// TupleLiteral is `(a, b)` or `()`. A parenthesized single expression is not a tuple.
type TupleLiteral struct {
	Token    token.Token
	Elements []Expression
}

func (t *TupleLiteral) expressionNode()       {}
func (t *TupleLiteral) TokenLiteral() string  { return t.Token.Lexeme }
func (t *TupleLiteral) GetToken() token.Token { return t.Token }

type MapLiteral struct {
	Token   token.Token
	Entries []*MapEntry
}

func (m *MapLiteral) expressionNode()       {}
func (m *MapLiteral) TokenLiteral() string  { return m.Token.Lexeme }
func (m *MapLiteral) GetToken() token.Token { return m.Token }

// RangeExpression is `a..b` or `a..=b`; either bound may be missing.
type RangeExpression struct {
	Token     token.Token
	Start     Expression
	End       Expression
	Inclusive bool
}

func (r *RangeExpression) expressionNode()       {}
func (r *RangeExpression) TokenLiteral() string  { return r.Token.Lexeme }
func (r *RangeExpression) GetToken() token.Token { return r.Token }

type PrefixExpression struct {
	Token    token.Token
	Operator string
	Right    Expression
}

func (p *PrefixExpression) expressionNode()       {}
func (p *PrefixExpression) TokenLiteral() string  { return p.Token.Lexeme }
func (p *PrefixExpression) GetToken() token.Token { return p.Token }

// InfixExpression covers arithmetic, comparison, `and`/`or` and the `>>` pipe.
type InfixExpression struct {
	Token    token.Token
	Left     Expression
	Operator string
	Right    Expression
}

func (i *InfixExpression) expressionNode()       {}
func (i *InfixExpression) TokenLiteral() string  { return i.Token.Lexeme }
func (i *InfixExpression) GetToken() token.Token { return i.Token }

type CallExpression struct {
	Token     token.Token
	Function  Expression
	Arguments []Expression
}

func (c *CallExpression) expressionNode()       {}
func (c *CallExpression) TokenLiteral() string  { return c.Token.Lexeme }
func (c *CallExpression) GetToken() token.Token { return c.Token }

// MemberExpression is `x.name`.
type MemberExpression struct {
	Token token.Token
	Left  Expression
	Name  string
}

func (m *MemberExpression) expressionNode()       {}
func (m *MemberExpression) TokenLiteral() string  { return m.Token.Lexeme }
func (m *MemberExpression) GetToken() token.Token { return m.Token }

type IndexExpression struct {
	Token token.Token
	Left  Expression
	Index Expression
}

func (i *IndexExpression) expressionNode()       {}
func (i *IndexExpression) TokenLiteral() string  { return i.Token.Lexeme }
func (i *IndexExpression) GetToken() token.Token { return i.Token }

// FunctionLiteral is `|params| body`. Name is filled in when the literal is
// assigned directly to a name.
type FunctionLiteral struct {
	Token       token.Token
	Parameters  []*Parameter
	Body        Expression
	Name        string
	IsGenerator bool
}

func (f *FunctionLiteral) expressionNode()       {}
func (f *FunctionLiteral) TokenLiteral() string  { return f.Token.Lexeme }
func (f *FunctionLiteral) GetToken() token.Token { return f.Token }

type IfExpression struct {
	Token       token.Token
	Condition   Expression
	Consequence Expression
	Alternative Expression
}

func (i *IfExpression) expressionNode()       {}
func (i *IfExpression) TokenLiteral() string  { return i.Token.Lexeme }
func (i *IfExpression) GetToken() token.Token { return i.Token }

// MatchExpression matches one or more subjects against ordered arms.
type MatchExpression struct {
	Token    token.Token
	Subjects []Expression
	Arms     []*MatchArm
}

func (m *MatchExpression) expressionNode()       {}
func (m *MatchExpression) TokenLiteral() string  { return m.Token.Lexeme }
func (m *MatchExpression) GetToken() token.Token { return m.Token }

// SwitchExpression evaluates arm conditions in order.
type SwitchExpression struct {
	Token token.Token
	Arms  []*SwitchArm
}

func (s *SwitchExpression) expressionNode()       {}
func (s *SwitchExpression) TokenLiteral() string  { return s.Token.Lexeme }
func (s *SwitchExpression) GetToken() token.Token { return s.Token }

type TryExpression struct {
	Token       token.Token
	Body        *Block
	HasCatch    bool
	CatchName   string
	CatchBody   *Block
	FinallyBody *Block
}

func (t *TryExpression) expressionNode()       {}
func (t *TryExpression) TokenLiteral() string  { return t.Token.Lexeme }
func (t *TryExpression) GetToken() token.Token { return t.Token }

type ThrowExpression struct {
	Token token.Token
	Value Expression
}

func (t *ThrowExpression) expressionNode()       {}
func (t *ThrowExpression) TokenLiteral() string  { return t.Token.Lexeme }
func (t *ThrowExpression) GetToken() token.Token { return t.Token }

type ReturnExpression struct {
	Token token.Token
	Value Expression
}

func (r *ReturnExpression) expressionNode()       {}
func (r *ReturnExpression) TokenLiteral() string  { return r.Token.Lexeme }
func (r *ReturnExpression) GetToken() token.Token { return r.Token }

type BreakExpression struct {
	Token token.Token
}

func (b *BreakExpression) expressionNode()       {}
func (b *BreakExpression) TokenLiteral() string  { return b.Token.Lexeme }
func (b *BreakExpression) GetToken() token.Token { return b.Token }

type ContinueExpression struct {
	Token token.Token
}

func (c *ContinueExpression) expressionNode()       {}
func (c *ContinueExpression) TokenLiteral() string  { return c.Token.Lexeme }
func (c *ContinueExpression) GetToken() token.Token { return c.Token }

type YieldExpression struct {
	Token token.Token
	Value Expression
}

func (y *YieldExpression) expressionNode()       {}
func (y *YieldExpression) TokenLiteral() string  { return y.Token.Lexeme }
func (y *YieldExpression) GetToken() token.Token { return y.Token }

// ImportExpression is `import a, b.c as d` or `from a import b, c`.
type ImportExpression struct {
	Token token.Token
	From  *ImportItem
	Items []*ImportItem
}

func (i *ImportExpression) expressionNode()       {}
func (i *ImportExpression) TokenLiteral() string  { return i.Token.Lexeme }
func (i *ImportExpression) GetToken() token.Token { return i.Token }

// ExportExpression wraps the exported form: a name or tuple of names, an
// assignment, a map literal block, or an expression producing name/value
// pairs.
type ExportExpression struct {
	Token token.Token
	Value Expression
}

func (e *ExportExpression) expressionNode()       {}
func (e *ExportExpression) TokenLiteral() string  { return e.Token.Lexeme }
func (e *ExportExpression) GetToken() token.Token { return e.Token }

// AssignExpression is `target = value` or a compound assignment such as `+=`.
type AssignExpression struct {
	Token    token.Token
	Target   Expression
	Operator string
	Value    Expression
}

func (a *AssignExpression) expressionNode()       {}
func (a *AssignExpression) TokenLiteral() string  { return a.Token.Lexeme }
func (a *AssignExpression) GetToken() token.Token { return a.Token }

type MultiAssignExpression struct {
	Token   token.Token
	Targets []Expression
	Value   Expression
}

func (m *MultiAssignExpression) expressionNode()       {}
func (m *MultiAssignExpression) TokenLiteral() string  { return m.Token.Lexeme }
func (m *MultiAssignExpression) GetToken() token.Token { return m.Token }

// MetaAssignExpression is a top-level `@main = ...` or `@test name = ...`.
type MetaAssignExpression struct {
	Token token.Token
	Key   string
	Value Expression
}

func (m *MetaAssignExpression) expressionNode()       {}
func (m *MetaAssignExpression) TokenLiteral() string  { return m.Token.Lexeme }
func (m *MetaAssignExpression) GetToken() token.Token { return m.Token }

type ForExpression struct {
	Token    token.Token
	Bindings []*Parameter
	Iterable Expression
	Body     *Block
}

func (f *ForExpression) expressionNode()       {}
func (f *ForExpression) TokenLiteral() string  { return f.Token.Lexeme }
func (f *ForExpression) GetToken() token.Token { return f.Token }

// WhileExpression also represents `until` loops.
type WhileExpression struct {
	Token     token.Token
	Condition Expression
	Body      *Block
	Until     bool
}

func (w *WhileExpression) expressionNode()       {}
func (w *WhileExpression) TokenLiteral() string  { return w.Token.Lexeme }
func (w *WhileExpression) GetToken() token.Token { return w.Token }

type LoopExpression struct {
	Token token.Token
	Body  *Block
}

func (l *LoopExpression) expressionNode()       {}
func (l *LoopExpression) TokenLiteral() string  { return l.Token.Lexeme }
func (l *LoopExpression) GetToken() token.Token { return l.Token }

// DebugExpression prints its source text and value.
type DebugExpression struct {
	Token  token.Token
	Source string
	Value  Expression
}

func (d *DebugExpression) expressionNode()       {}
func (d *DebugExpression) TokenLiteral() string  { return d.Token.Lexeme }
func (d *DebugExpression) GetToken() token.Token { return d.Token }

// StringPart is literal text or an interpolated expression.
type StringPart struct {
	Text   string
	Expr   Expression
	Format string
}

// MapKey is an identifier or string key, or a metakey such as "@+" or
// "@test name".
type MapKey struct {
	Token     token.Token
	Name      string
	StringKey *StringLiteral
	Meta      string
}

type MapEntry struct {
	Key MapKey
	Value Expression // nil for shorthand entries like {x}
}

// Parameter is a function parameter or loop binding.
type Parameter struct {
	Token    token.Token
	Pattern  Pattern
	Variadic bool
}

// MatchArm is one arm of a match. Alternatives holds one pattern list per
// `or` branch, each with one pattern per subject.
type MatchArm struct {
	Token        token.Token
	Alternatives [][]Pattern
	Guard        Expression
	Body         Expression
	IsElse       bool
}

type SwitchArm struct {
	Token token.Token
	Condition Expression // nil for else
	Body Expression
}

// ImportItem names a module or a member path. Literal holds a string path.
type ImportItem struct {
	Token   token.Token
	Path    []string
	Literal string
	Alias   string
}
