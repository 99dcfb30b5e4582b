package vm

import "github.com/pasalang/pasa/internal/ast"

// compileWhileStatement lowers wonn: test at the top, body, loop back.
// Break jumps are patched past the exit POP; continue loops straight back
// to the test.
func (c *Compiler) compileWhileStatement(s *ast.WhileStatement) {
	line := s.Token.Line

	loopStart := c.currentChunk().Len()

	c.loopStack = append(c.loopStack, LoopContext{
		start:          loopStart,
		continueTarget: loopStart,
		scopeDepth:     c.scopeDepth,
	})

	c.compileExpression(s.Condition)
	exitJump := c.emitJump(OP_JUMP_IF_FALSE, line)
	c.emit(OP_POP, line)

	c.compileStatement(s.Body)

	c.emitLoop(loopStart, line)
	c.patchJump(exitJump, line)
	c.emit(OP_POP, line)

	ctx := c.loopStack[len(c.loopStack)-1]
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	for _, jump := range ctx.breakJumps {
		c.patchJump(jump, line)
	}
}

// compileForStatement desugars the counted loop
//
//	samrap i = start thueng end [khan step]
//
// into: declare local i = start; test i < end; body; increment; loop.
// A step that is absent or the literal 1 uses the INC_LOCAL
// superinstruction. Continue jumps land on the increment so the counter
// always advances.
func (c *Compiler) compileForStatement(s *ast.ForStatement) {
	line := s.Token.Line

	c.beginScope()

	c.declareVariable(s.Name.Value, line)
	c.compileExpression(s.Start)
	c.markInitialized()
	slot := c.localCount - 1

	loopStart := c.currentChunk().Len()

	c.loopStack = append(c.loopStack, LoopContext{
		start:          loopStart,
		continueTarget: -1,
		scopeDepth:     c.scopeDepth,
	})

	c.emit(OP_GET_LOCAL, line)
	c.currentChunk().Write(byte(slot), line)
	c.compileExpression(s.End)
	c.emit(OP_LESS, line)
	exitJump := c.emitJump(OP_JUMP_IF_FALSE, line)
	c.emit(OP_POP, line)

	c.compileStatement(s.Body)

	// Increment: continue lands here.
	ctx := &c.loopStack[len(c.loopStack)-1]
	for _, jump := range ctx.continueJumps {
		c.patchJump(jump, line)
	}
	ctx.continueJumps = nil

	if isUnitStep(s.Step) {
		c.emit(OP_INC_LOCAL, line)
		c.currentChunk().Write(byte(slot), line)
	} else {
		c.emit(OP_GET_LOCAL, line)
		c.currentChunk().Write(byte(slot), line)
		c.compileExpression(s.Step)
		c.emit(OP_ADD, line)
		c.emit(OP_SET_LOCAL, line)
		c.currentChunk().Write(byte(slot), line)
		c.emit(OP_POP, line)
	}

	c.emitLoop(loopStart, line)
	c.patchJump(exitJump, line)
	c.emit(OP_POP, line)

	done := c.loopStack[len(c.loopStack)-1]
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	for _, jump := range done.breakJumps {
		c.patchJump(jump, line)
	}

	c.endScope(line)
}

// isUnitStep reports whether the step is absent or the literal 1.
func isUnitStep(step ast.Expression) bool {
	if step == nil {
		return true
	}
	if lit, ok := step.(*ast.NumberLiteral); ok {
		return lit.Value == 1
	}
	return false
}
