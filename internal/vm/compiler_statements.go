package vm

import (
	"github.com/pasalang/pasa/internal/ast"
	"github.com/pasalang/pasa/internal/config"
	"github.com/pasalang/pasa/internal/diagnostics"
)

// compileStatement lowers one statement. Statements are stack-neutral:
// whatever they push, they pop (locals excepted, which stay as live slots).
func (c *Compiler) compileStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.VarStatement:
		c.compileVarStatement(s)

	case *ast.PrintStatement:
		c.compilePrintStatement(s)

	case *ast.BlockStatement:
		c.beginScope()
		for _, inner := range s.Statements {
			c.compileStatement(inner)
		}
		c.endScope(s.Token.Line)

	case *ast.IfStatement:
		c.compileIfStatement(s)

	case *ast.WhileStatement:
		c.compileWhileStatement(s)

	case *ast.ForStatement:
		c.compileForStatement(s)

	case *ast.FunctionStatement:
		c.compileFunctionStatement(s)

	case *ast.ReturnStatement:
		c.compileReturnStatement(s)

	case *ast.ClassStatement:
		c.compileClassStatement(s)

	case *ast.BreakStatement:
		c.compileBreakStatement(s)

	case *ast.ContinueStatement:
		c.compileContinueStatement(s)

	case *ast.SwitchStatement:
		c.compileSwitchStatement(s)

	case *ast.TryStatement:
		c.compileTryStatement(s)

	case *ast.ExpressionStatement:
		c.compileExpression(s.Expression)
		c.emit(OP_POP, s.Token.Line)

	default:
		c.error(stmt.GetToken().Line, "unknown statement type %T", stmt)
	}
}

func (c *Compiler) compileVarStatement(s *ast.VarStatement) {
	line := s.Token.Line
	name := s.Name.Value

	if c.scopeDepth > 0 {
		// The local exists, uninitialized, while its initializer compiles.
		c.declareVariable(name, line)
		if s.Value != nil {
			c.compileExpression(s.Value)
		} else {
			c.emit(OP_NULL, line)
		}
		c.markInitialized()
		return
	}

	if s.Value != nil {
		c.compileExpression(s.Value)
	} else {
		c.emit(OP_NULL, line)
	}
	nameIdx := c.identifierConstant(name, line)
	c.emit(OP_DEFINE_GLOBAL, line)
	c.emitUint16(nameIdx, line)
}

func (c *Compiler) compilePrintStatement(s *ast.PrintStatement) {
	for _, value := range s.Values {
		c.compileExpression(value)
		c.emit(OP_PRINT, s.Token.Line)
	}
}

func (c *Compiler) compileIfStatement(s *ast.IfStatement) {
	line := s.Token.Line

	c.compileExpression(s.Condition)
	thenJump := c.emitJump(OP_JUMP_IF_FALSE, line)
	c.emit(OP_POP, line)

	c.compileStatement(s.Consequence)

	elseJump := c.emitJump(OP_JUMP, line)
	c.patchJump(thenJump, line)
	c.emit(OP_POP, line)

	if s.Alternative != nil {
		c.compileStatement(s.Alternative)
	}
	c.patchJump(elseJump, line)
}

func (c *Compiler) compileFunctionStatement(s *ast.FunctionStatement) {
	line := s.Token.Line
	name := s.Name.Value

	if c.scopeDepth > 0 {
		// Local functions are visible to their own body for recursion.
		c.declareVariable(name, line)
		c.markInitialized()
		c.compileFunction(name, s.Parameters, s.Body, TYPE_FUNCTION, line)
		return
	}

	c.compileFunction(name, s.Parameters, s.Body, TYPE_FUNCTION, line)
	nameIdx := c.identifierConstant(name, line)
	c.emit(OP_DEFINE_GLOBAL, line)
	c.emitUint16(nameIdx, line)
}

func (c *Compiler) compileReturnStatement(s *ast.ReturnStatement) {
	line := s.Token.Line

	if c.funcType == TYPE_SCRIPT {
		c.error(line, "cannot return from top-level code")
		return
	}

	if s.Value != nil {
		if c.funcType == TYPE_INITIALIZER {
			c.error(line, "cannot return a value from %s", config.InitializerName)
			return
		}
		c.compileExpression(s.Value)
		c.emit(OP_RETURN, line)
		return
	}

	c.emitSyntheticReturn(line)
}

func (c *Compiler) compileClassStatement(s *ast.ClassStatement) {
	line := s.Token.Line
	name := s.Name.Value
	nameIdx := c.identifierConstant(name, line)

	c.emit(OP_CLASS, line)
	c.emitUint16(nameIdx, line)

	// Bind the class, then load it back for method installation.
	var classSlot = -1
	if c.scopeDepth > 0 {
		c.declareVariable(name, line)
		c.markInitialized()
		classSlot = c.localCount - 1
		c.emit(OP_GET_LOCAL, line)
		c.currentChunk().Write(byte(classSlot), line)
	} else {
		c.emit(OP_DEFINE_GLOBAL, line)
		c.emitUint16(nameIdx, line)
		c.emit(OP_GET_GLOBAL, line)
		c.emitUint16(nameIdx, line)
	}

	c.currentClass = &classContext{enclosing: c.currentClass}

	for _, method := range s.Methods {
		methodLine := method.Token.Line
		funcType := TYPE_METHOD
		if method.Name.Value == config.InitializerName {
			funcType = TYPE_INITIALIZER
		}
		c.compileFunction(method.Name.Value, method.Parameters, method.Body, funcType, methodLine)
		methodIdx := c.identifierConstant(method.Name.Value, methodLine)
		c.emit(OP_METHOD, methodLine)
		c.emitUint16(methodIdx, methodLine)
	}

	c.currentClass = c.currentClass.enclosing
	c.emit(OP_POP, line)
}

func (c *Compiler) compileBreakStatement(s *ast.BreakStatement) {
	line := s.Token.Line
	if len(c.loopStack) == 0 {
		c.error(line, "yut outside of a loop")
		return
	}
	ctx := &c.loopStack[len(c.loopStack)-1]
	c.discardLocals(ctx.scopeDepth, line)
	jump := c.emitJump(OP_JUMP, line)
	ctx.breakJumps = append(ctx.breakJumps, jump)
}

func (c *Compiler) compileContinueStatement(s *ast.ContinueStatement) {
	line := s.Token.Line
	if len(c.loopStack) == 0 {
		c.error(line, "tor outside of a loop")
		return
	}
	ctx := &c.loopStack[len(c.loopStack)-1]
	c.discardLocals(ctx.scopeDepth, line)
	if ctx.continueTarget >= 0 {
		c.emitLoop(ctx.continueTarget, line)
	} else {
		// Counted loops patch continues to their increment sequence.
		jump := c.emitJump(OP_JUMP, line)
		ctx.continueJumps = append(ctx.continueJumps, jump)
	}
}

// compileSwitchStatement lowers cheek/karani without implicit fallthrough:
// the discriminant is compiled once, each case compares against a DUP of it
// and the first match pops the discriminant, runs its body and jumps to the
// end.
func (c *Compiler) compileSwitchStatement(s *ast.SwitchStatement) {
	line := s.Token.Line

	c.compileExpression(s.Subject)

	var endJumps []int
	for _, cs := range s.Cases {
		caseLine := cs.Token.Line
		c.emit(OP_DUP, caseLine)
		c.compileExpression(cs.Value)
		c.emit(OP_EQUAL, caseLine)
		skip := c.emitJump(OP_JUMP_IF_FALSE, caseLine)
		c.emit(OP_POP, caseLine) // comparison result
		c.emit(OP_POP, caseLine) // discriminant
		c.beginScope()
		for _, stmt := range cs.Body {
			c.compileStatement(stmt)
		}
		c.endScope(caseLine)
		endJumps = append(endJumps, c.emitJump(OP_JUMP, caseLine))
		c.patchJump(skip, caseLine)
		c.emit(OP_POP, caseLine) // comparison result on the skip path
	}

	c.emit(OP_POP, line) // discriminant when nothing matched
	if s.Default != nil {
		c.beginScope()
		for _, stmt := range s.Default {
			c.compileStatement(stmt)
		}
		c.endScope(line)
	}

	for _, jump := range endJumps {
		c.patchJump(jump, line)
	}
}

// compileTryStatement: the bytecode backend has no handler mechanism in
// this release. The protected block runs with unchanged semantics and the
// handler clause is ignored; a warning diagnostic records the downgrade.
func (c *Compiler) compileTryStatement(s *ast.TryStatement) {
	c.diags.Warn(diagnostics.StageCompile, s.Token.Line,
		"long/jap has no handler support in the bytecode backend; running the protected block unguarded")
	c.compileStatement(s.Body)
}
