// Package pipeline chains the source-processing stages (lexer, parser)
// and carries their shared context and diagnostics.
package pipeline

import (
	"github.com/pasalang/pasa/internal/ast"
	"github.com/pasalang/pasa/internal/diagnostics"
	"github.com/pasalang/pasa/internal/token"
)

// PipelineContext carries the intermediate artifacts between stages.
type PipelineContext struct {
	Source  string
	File    string
	Tokens  []token.Token
	AstRoot ast.Node
	Diags   *diagnostics.List
}

func NewPipelineContext(source string) *PipelineContext {
	return &PipelineContext{
		Source: source,
		Diags:  diagnostics.NewList(),
	}
}

// Processor is a single pipeline stage.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
		// Continue on errors to collect diagnostics from all stages.
	}
	return ctx
}
