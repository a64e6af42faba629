package lexer

import (
	"github.com/funvibe/kite/internal/diagnostics"
	"github.com/funvibe/kite/internal/pipeline"
	"github.com/funvibe/kite/internal/token"
)

type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	ctx.TokenStream = Tokenize(ctx.SourceCode)
	for _, tok := range ctx.TokenStream {
		if tok.Type == token.ILLEGAL {
			err := diagnostics.NewError(diagnostics.ErrP004, tok, tok.Lexeme)
			err.File = ctx.FilePath
			ctx.Errors = append(ctx.Errors, err)
		}
	}
	return ctx
}
