package vm

import (
	"github.com/pasalang/pasa/internal/ast"
	"github.com/pasalang/pasa/internal/config"
	"github.com/pasalang/pasa/internal/diagnostics"
)

// Local represents a local variable during compilation. Its index in the
// locals array is its stack slot relative to the frame base.
type Local struct {
	Name       string
	Depth      int  // scope depth; -1 while the initializer is being compiled
	IsCaptured bool // true if captured by a nested function
}

// Upvalue describes one captured variable of the function being compiled.
type Upvalue struct {
	Index   uint8 // slot in the enclosing function (or its upvalue vector)
	IsLocal bool  // true when capturing an enclosing local directly
}

// FunctionType distinguishes top-level code, plain functions and methods.
type FunctionType int

const (
	TYPE_SCRIPT FunctionType = iota
	TYPE_FUNCTION
	TYPE_METHOD
	TYPE_INITIALIZER
)

const maxLocals = 256

// LoopContext tracks the current loop for break/continue.
type LoopContext struct {
	start          int   // bytecode offset of the loop's test
	continueTarget int   // backward continue target, or -1 to patch forward
	breakJumps     []int // forward jumps emitted by yut
	continueJumps  []int // forward jumps emitted by tor (counted loops)
	scopeDepth     int   // depth owning the loop; break pops anything deeper
}

// classContext marks that compilation is inside a class body, making `ni`
// resolvable.
type classContext struct {
	enclosing *classContext
}

// Compiler translates the AST of one function into a chunk. Nested
// functions get their own Compiler linked through enclosing.
type Compiler struct {
	function *CompiledFunction
	funcType FunctionType

	locals     []Local
	localCount int
	scopeDepth int

	upvalues     []Upvalue
	upvalueCount int

	enclosing *Compiler

	loopStack []LoopContext

	currentClass *classContext

	// diags is shared across the whole compiler chain; a failed production
	// records an error and compilation of siblings continues.
	diags *diagnostics.List
}

// NewCompiler creates a compiler for top-level code.
func NewCompiler(diags *diagnostics.List) *Compiler {
	if diags == nil {
		diags = diagnostics.NewList()
	}
	c := &Compiler{
		function: &CompiledFunction{
			Chunk: NewChunk("<script>"),
			Name:  "<script>",
		},
		funcType: TYPE_SCRIPT,
		locals:   make([]Local, maxLocals),
		upvalues: make([]Upvalue, maxLocals),
		diags:    diags,
	}
	// Slot 0 belongs to the callee and is not nameable from user code.
	c.locals[0] = Local{Name: "", Depth: 0}
	c.localCount = 1
	return c
}

// newFunctionCompiler creates a compiler for a nested function or method.
func newFunctionCompiler(enclosing *Compiler, name string, funcType FunctionType) *Compiler {
	c := &Compiler{
		function: &CompiledFunction{
			Chunk: NewChunk(name),
			Name:  name,
		},
		funcType:     funcType,
		locals:       make([]Local, maxLocals),
		upvalues:     make([]Upvalue, maxLocals),
		scopeDepth:   1, // function body root
		enclosing:    enclosing,
		currentClass: enclosing.currentClass,
		diags:        enclosing.diags,
	}
	// Slot 0 holds the callee; in methods it names the receiver.
	receiver := ""
	if funcType == TYPE_METHOD || funcType == TYPE_INITIALIZER {
		receiver = config.ReceiverName
	}
	c.locals[0] = Local{Name: receiver, Depth: 0}
	c.localCount = 1
	return c
}

// currentChunk returns the chunk being compiled.
func (c *Compiler) currentChunk() *Chunk {
	return c.function.Chunk
}

// Compile compiles a program into a top-level function. When any error was
// recorded the function is discarded and the aggregated error returned.
func (c *Compiler) Compile(program *ast.Program) (*CompiledFunction, error) {
	for _, stmt := range program.Statements {
		c.compileStatement(stmt)
	}
	c.emitSyntheticReturn(lastLine(program))

	if c.diags.HasErrors() {
		return nil, c.diags.Err()
	}
	return c.function, nil
}

func lastLine(program *ast.Program) int {
	if n := len(program.Statements); n > 0 {
		return program.Statements[n-1].GetToken().Line
	}
	return 0
}

// error records a compile diagnostic; compilation continues so sibling
// productions still get checked.
func (c *Compiler) error(line int, format string, args ...interface{}) {
	c.diags.Add(diagnostics.StageCompile, line, format, args...)
}

// compileFunction compiles a nested function body and emits OP_CLOSURE in
// the enclosing chunk.
func (c *Compiler) compileFunction(name string, params []*ast.Identifier, body *ast.BlockStatement, funcType FunctionType, line int) {
	fc := newFunctionCompiler(c, name, funcType)
	fc.function.Arity = len(params)

	for _, param := range params {
		fc.declareVariable(param.Value, param.Token.Line)
		fc.markInitialized()
	}

	for _, stmt := range body.Statements {
		fc.compileStatement(stmt)
	}
	fc.emitSyntheticReturn(line)

	fn := fc.function
	fn.UpvalueCount = fc.upvalueCount

	fnIdx := c.makeConstant(ObjVal(fn), line)
	c.emit(OP_CLOSURE, line)
	c.emitUint16(fnIdx, line)

	for i := 0; i < fc.upvalueCount; i++ {
		if fc.upvalues[i].IsLocal {
			c.currentChunk().Write(1, line)
		} else {
			c.currentChunk().Write(0, line)
		}
		c.currentChunk().Write(fc.upvalues[i].Index, line)
	}
}

// emitSyntheticReturn emits the implicit trailing return: the receiver in
// an initializer, nil everywhere else.
func (c *Compiler) emitSyntheticReturn(line int) {
	if c.funcType == TYPE_INITIALIZER {
		c.emit(OP_GET_LOCAL, line)
		c.currentChunk().Write(0, line)
	} else {
		c.emit(OP_NULL, line)
	}
	c.emit(OP_RETURN, line)
}
