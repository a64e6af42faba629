package parser

import (
	"fmt"
	"strings"

	"github.com/funvibe/kite/internal/ast"
)

// show renders an expression with explicit grouping for assertions.
func show(e ast.Expression) string {
	switch n := e.(type) {
	case nil:
		return "<nil>"
	case *ast.Identifier:
		return n.Value
	case *ast.Wildcard:
		return n.Name
	case *ast.IntegerLiteral:
		return fmt.Sprint(n.Value)
	case *ast.FloatLiteral:
		return fmt.Sprint(n.Value)
	case *ast.BooleanLiteral:
		return fmt.Sprint(n.Value)
	case *ast.NullLiteral:
		return "null"
	case *ast.StringLiteral:
		if s, ok := staticString(n); ok {
			return "'" + s + "'"
		}
		return n.Token.Lexeme
	case *ast.PrefixExpression:
		if n.Operator == "not" {
			return "(not " + show(n.Right) + ")"
		}
		return "(" + n.Operator + show(n.Right) + ")"
	case *ast.InfixExpression:
		return "(" + show(n.Left) + " " + n.Operator + " " + show(n.Right) + ")"
	case *ast.RangeExpression:
		op := ".."
		if n.Inclusive {
			op = "..="
		}
		s := op
		if n.Start != nil {
			s = show(n.Start) + s
		}
		if n.End != nil {
			s += show(n.End)
		}
		return s
	case *ast.AssignExpression:
		return show(n.Target) + " " + n.Operator + " " + show(n.Value)
	case *ast.CallExpression:
		return show(n.Function) + "(" + showList(n.Arguments) + ")"
	case *ast.MemberExpression:
		return show(n.Left) + "." + n.Name
	case *ast.IndexExpression:
		return show(n.Left) + "[" + show(n.Index) + "]"
	case *ast.ListLiteral:
		return "[" + showList(n.Elements) + "]"
	case *ast.TupleLiteral:
		if len(n.Elements) == 1 {
			return "(" + show(n.Elements[0]) + ",)"
		}
		return "(" + showList(n.Elements) + ")"
	case *ast.FunctionLiteral:
		params := make([]string, len(n.Parameters))
		for i, p := range n.Parameters {
			params[i] = p.Token.Lexeme
			if p.Variadic {
				params[i] += "..."
			}
		}
		return "|" + strings.Join(params, ", ") + "| " + show(n.Body)
	case *ast.Block:
		return "{ " + showList(n.Statements) + " }"
	}
	return fmt.Sprintf("<%T>", e)
}

func showList(items []ast.Expression) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = show(item)
	}
	return strings.Join(parts, ", ")
}
