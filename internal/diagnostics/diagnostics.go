// Package diagnostics defines the errors reported before a script runs.
package diagnostics

import (
	"errors"
	"fmt"

	"github.com/funvibe/kite/internal/token"
)

type ErrorCode string

// Kind separates syntax errors from semantic ones.
type Kind int

const (
	ParseError Kind = iota
	CompileError
)

func (k Kind) String() string {
	if k == CompileError {
		return "compile error"
	}
	return "parse error"
}

const (
	ErrP000 ErrorCode = "P000" // internal
	ErrP001 ErrorCode = "P001" // unexpected token
	ErrP002 ErrorCode = "P002" // invalid assignment target
	ErrP003 ErrorCode = "P003" // expected token
	ErrP004 ErrorCode = "P004" // illegal token from the lexer
	ErrP005 ErrorCode = "P005" // invalid pattern
	ErrP006 ErrorCode = "P006" // generic syntax error
	ErrP007 ErrorCode = "P007" // invalid metakey

	ErrC001 ErrorCode = "C001" // unresolved identifier
	ErrC002 ErrorCode = "C002" // malformed export
	ErrC003 ErrorCode = "C003" // malformed match
	ErrC004 ErrorCode = "C004" // misplaced control flow
	ErrC005 ErrorCode = "C005" // limit exceeded
	ErrC006 ErrorCode = "C006" // invalid assignment
)

var messages = map[ErrorCode]string{
	ErrP000: "%s",
	ErrP001: "unexpected token '%s'",
	ErrP002: "invalid assignment target",
	ErrP003: "expected %s, found '%s'",
	ErrP004: "%s",
	ErrP005: "invalid pattern: %s",
	ErrP006: "%s",
	ErrP007: "unknown metakey '%s'",

	ErrC001: "unresolved identifier '%s'",
	ErrC002: "invalid export: %s",
	ErrC003: "invalid match: %s",
	ErrC004: "%s",
	ErrC005: "%s",
	ErrC006: "%s",
}

// DiagnosticError is a ParseError or CompileError with a source location.
type DiagnosticError struct {
	Code    ErrorCode
	Kind    Kind
	Token   token.Token
	File    string
	Message string
}

// NewError formats the message registered for code with args.
func NewError(code ErrorCode, tok token.Token, args ...interface{}) *DiagnosticError {
	kind := ParseError
	if len(code) > 0 && code[0] == 'C' {
		kind = CompileError
	}
	msg := string(code)
	if tmpl, ok := messages[code]; ok {
		msg = fmt.Sprintf(tmpl, args...)
	}
	return &DiagnosticError{Code: code, Kind: kind, Token: tok, Message: msg}
}

func (e *DiagnosticError) Line() int   { return e.Token.Line }
func (e *DiagnosticError) Column() int { return e.Token.Column }

func (e *DiagnosticError) Error() string {
	loc := fmt.Sprintf("%d:%d", e.Token.Line, e.Token.Column)
	if e.File != "" {
		loc = e.File + ":" + loc
	}
	return fmt.Sprintf("%s [%s] at %s: %s", e.Kind, e.Code, loc, e.Message)
}

// Errors collects several diagnostics into one error value.
type Errors []*DiagnosticError

func (es Errors) Error() string {
	if len(es) == 0 {
		return "no errors"
	}
	if len(es) == 1 {
		return es[0].Error()
	}
	return fmt.Sprintf("%s (and %d more)", es[0].Error(), len(es)-1)
}

// Unwrap exposes the individual diagnostics to errors.As.
func (es Errors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

// IsKind reports whether err carries a diagnostic of the given kind.
func IsKind(err error, kind Kind) bool {
	var d *DiagnosticError
	return errors.As(err, &d) && d.Kind == kind
}
