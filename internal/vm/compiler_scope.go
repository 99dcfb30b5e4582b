package vm

// beginScope starts a new scope
func (c *Compiler) beginScope() {
	c.scopeDepth++
}

// endScope ends the current scope and emits cleanup code: one POP per local
// leaving scope, or CLOSE_UPVALUE when the local was captured.
func (c *Compiler) endScope(line int) {
	c.scopeDepth--

	for c.localCount > 0 && c.locals[c.localCount-1].Depth > c.scopeDepth {
		if c.locals[c.localCount-1].IsCaptured {
			c.emit(OP_CLOSE_UPVALUE, line)
		} else {
			c.emit(OP_POP, line)
		}
		c.localCount--
	}
}

// declareVariable registers a new local in the current scope. At depth 0
// variables are globals and carry no slot. The local starts uninitialized
// (depth -1) until markInitialized, so its own initializer cannot read it.
func (c *Compiler) declareVariable(name string, line int) {
	if c.scopeDepth == 0 {
		return
	}
	for i := c.localCount - 1; i >= 0; i-- {
		local := &c.locals[i]
		if local.Depth != -1 && local.Depth < c.scopeDepth {
			break
		}
		if local.Name == name {
			c.error(line, "variable %q is already declared in this scope", name)
			return
		}
	}
	c.addLocal(name, line)
}

// addLocal pushes a new uninitialized local descriptor.
func (c *Compiler) addLocal(name string, line int) {
	if c.localCount >= maxLocals {
		c.error(line, "too many local variables in function")
		return
	}
	c.locals[c.localCount] = Local{Name: name, Depth: -1}
	c.localCount++
}

// markInitialized makes the newest local visible to reads.
func (c *Compiler) markInitialized() {
	if c.scopeDepth == 0 {
		return
	}
	c.locals[c.localCount-1].Depth = c.scopeDepth
}

// resolveLocal looks up a local variable by name, newest first. Returns the
// stack slot or -1.
func (c *Compiler) resolveLocal(name string, line int) int {
	for i := c.localCount - 1; i >= 0; i-- {
		if c.locals[i].Name == name {
			if c.locals[i].Depth == -1 {
				c.error(line, "cannot read local variable %q in its own initializer", name)
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue looks for a variable in enclosing functions. A hit marks
// the defining local as captured and threads an upvalue through every
// compiler between definition and use.
func (c *Compiler) resolveUpvalue(name string, line int) int {
	if c.enclosing == nil {
		return -1
	}

	if slot := c.enclosing.resolveLocal(name, line); slot != -1 {
		c.enclosing.locals[slot].IsCaptured = true
		return c.addUpvalue(uint8(slot), true, line)
	}

	if upvalue := c.enclosing.resolveUpvalue(name, line); upvalue != -1 {
		return c.addUpvalue(uint8(upvalue), false, line)
	}

	return -1
}

// addUpvalue adds an upvalue to this function's upvalue list, reusing an
// existing entry for the same capture.
func (c *Compiler) addUpvalue(index uint8, isLocal bool, line int) int {
	for i := 0; i < c.upvalueCount; i++ {
		if c.upvalues[i].Index == index && c.upvalues[i].IsLocal == isLocal {
			return i
		}
	}

	if c.upvalueCount >= maxLocals {
		c.error(line, "too many captured variables in function")
		return 0
	}

	c.upvalues[c.upvalueCount] = Upvalue{Index: index, IsLocal: isLocal}
	c.upvalueCount++
	return c.upvalueCount - 1
}

// discardLocals emits cleanup for locals deeper than the given depth
// without forgetting them; used by break/continue, whose code path leaves
// the scope structure intact.
func (c *Compiler) discardLocals(depth int, line int) {
	for i := c.localCount - 1; i >= 0 && c.locals[i].Depth > depth; i-- {
		if c.locals[i].IsCaptured {
			c.emit(OP_CLOSE_UPVALUE, line)
		} else {
			c.emit(OP_POP, line)
		}
	}
}

// --- emit helpers ---

func (c *Compiler) emit(op Opcode, line int) {
	c.currentChunk().WriteOp(op, line)
}

func (c *Compiler) emitUint16(v int, line int) {
	c.currentChunk().Write(byte(v>>8), line)
	c.currentChunk().Write(byte(v), line)
}

// makeConstant interns a value into the constant pool.
func (c *Compiler) makeConstant(v Value, line int) int {
	idx := c.currentChunk().AddConstant(v)
	if idx > 0xffff {
		c.error(line, "too many constants in one chunk")
		return 0
	}
	return idx
}

// identifierConstant interns a name as a string constant.
func (c *Compiler) identifierConstant(name string, line int) int {
	return c.makeConstant(StringVal(name), line)
}

// emitConstant emits a load of an arbitrary constant value.
func (c *Compiler) emitConstant(v Value, line int) {
	idx := c.makeConstant(v, line)
	c.emit(OP_CONSTANT, line)
	c.emitUint16(idx, line)
}

// emitNumber emits a number load, using the dedicated superinstructions
// for 0 and 1.
func (c *Compiler) emitNumber(v float64, line int) {
	switch v {
	case 0:
		c.emit(OP_LOAD_ZERO, line)
	case 1:
		c.emit(OP_LOAD_ONE, line)
	default:
		c.emitConstant(NumberVal(v), line)
	}
}

// emitJump emits a forward jump with a placeholder offset and returns the
// patch site.
func (c *Compiler) emitJump(op Opcode, line int) int {
	c.emit(op, line)
	c.currentChunk().Write(0xff, line)
	c.currentChunk().Write(0xff, line)
	return c.currentChunk().Len() - 2
}

// patchJump back-fills a forward jump. Overrunning the 16-bit delta is a
// hard limit on compiled function size and reported as a compile error.
func (c *Compiler) patchJump(offset int, line int) {
	jump := c.currentChunk().Len() - offset - 2

	if jump > 0xffff {
		c.error(line, "too much code to jump over")
		return
	}

	c.currentChunk().Code[offset] = byte(jump >> 8)
	c.currentChunk().Code[offset+1] = byte(jump)
}

// emitLoop emits a backward jump to loopStart.
func (c *Compiler) emitLoop(loopStart int, line int) {
	c.emit(OP_LOOP, line)

	offset := c.currentChunk().Len() - loopStart + 2
	if offset > 0xffff {
		c.error(line, "loop body too large")
		offset = 0
	}

	c.currentChunk().Write(byte(offset>>8), line)
	c.currentChunk().Write(byte(offset), line)
}
