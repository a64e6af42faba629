package parser

import (
	"github.com/funvibe/kite/internal/diagnostics"
	"github.com/funvibe/kite/internal/pipeline"
	"github.com/funvibe/kite/internal/token"
)

// ParserProcessor is the pipeline stage that turns the token stream into
// an *ast.Program. Diagnostics are appended to the context as they are
// found and carry the context's file path.
type ParserProcessor struct{}

func (pp *ParserProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if len(ctx.TokenStream) == 0 {
		ctx.Errors = append(ctx.Errors, diagnostics.NewError(diagnostics.ErrP000, token.Token{}, "no tokens to parse"))
		return ctx
	}
	ctx.AstRoot = New(ctx.TokenStream, ctx).ParseProgram()
	return ctx
}
