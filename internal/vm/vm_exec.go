package vm

import "fmt"

// run is the main dispatch loop. It executes one instruction at a time in
// a single logical thread of control; side effects happen in exactly the
// order their opcodes execute.
func (vm *VM) run() (Value, error) {
	for {
		frame := vm.frame
		if frame.ip >= len(frame.chunk.Code) {
			return NilVal(), errTruncatedBytecode
		}
		vm.opLine = frame.chunk.Lines[frame.ip]
		op := Opcode(frame.chunk.Code[frame.ip])
		frame.ip++

		switch op {
		case OP_CONSTANT:
			vm.push(vm.readConstant())

		case OP_NULL:
			vm.push(NilVal())

		case OP_TRUE:
			vm.push(BoolVal(true))

		case OP_FALSE:
			vm.push(BoolVal(false))

		case OP_LOAD_ZERO:
			vm.push(NumberVal(0))

		case OP_LOAD_ONE:
			vm.push(NumberVal(1))

		case OP_POP:
			vm.pop()

		case OP_DUP:
			vm.push(vm.peek(0))

		case OP_SWAP:
			a := vm.pop()
			b := vm.pop()
			vm.push(a)
			vm.push(b)

		case OP_ADD, OP_SUBTRACT, OP_MULTIPLY, OP_DIVIDE, OP_MODULO, OP_POWER:
			if err := vm.binaryOp(op); err != nil {
				return NilVal(), err
			}

		case OP_NEGATE:
			val := vm.pop()
			if !val.IsNumber() {
				return NilVal(), vm.runtimeError("operand of unary - must be a number, got %s", val.TypeName())
			}
			vm.push(NumberVal(-val.AsNumber()))

		case OP_EQUAL:
			b := vm.pop()
			a := vm.pop()
			vm.push(BoolVal(a.Equals(b)))

		case OP_NOT_EQUAL:
			b := vm.pop()
			a := vm.pop()
			vm.push(BoolVal(!a.Equals(b)))

		case OP_GREATER, OP_GREATER_EQUAL, OP_LESS, OP_LESS_EQUAL:
			if err := vm.comparisonOp(op); err != nil {
				return NilVal(), err
			}

		case OP_NOT:
			val := vm.pop()
			vm.push(BoolVal(!val.IsTruthy()))

		case OP_BIT_AND, OP_BIT_OR, OP_BIT_XOR, OP_LSHIFT, OP_RSHIFT:
			if err := vm.bitwiseOp(op); err != nil {
				return NilVal(), err
			}

		case OP_BIT_NOT:
			val := vm.pop()
			if !val.IsNumber() {
				return NilVal(), vm.runtimeError("operand of ~ must be a number, got %s", val.TypeName())
			}
			vm.push(NumberVal(float64(^toInt32(val.AsNumber()))))

		case OP_DEFINE_GLOBAL:
			name := vm.readName()
			vm.globals.Names = vm.globals.Names.Put(name, vm.peek(0))
			vm.pop()

		case OP_GET_GLOBAL:
			name := vm.readName()
			val, ok := vm.globals.Names.Get(name)
			if !ok {
				return NilVal(), vm.runtimeError("undefined variable %q", name)
			}
			vm.push(val)

		case OP_SET_GLOBAL:
			name := vm.readName()
			if _, ok := vm.globals.Names.Get(name); !ok {
				return NilVal(), vm.runtimeError("cannot assign to undefined variable %q", name)
			}
			vm.globals.Names = vm.globals.Names.Put(name, vm.peek(0))

		case OP_GET_LOCAL:
			slot := int(vm.readByte())
			idx := frame.base + slot
			if idx >= vm.sp {
				return NilVal(), vm.runtimeError("local slot %d out of bounds", slot)
			}
			vm.push(vm.stack[idx])

		case OP_SET_LOCAL:
			slot := int(vm.readByte())
			idx := frame.base + slot
			if idx >= vm.sp {
				return NilVal(), vm.runtimeError("local slot %d out of bounds", slot)
			}
			vm.stack[idx] = vm.peek(0)

		case OP_INC_LOCAL:
			slot := int(vm.readByte())
			idx := frame.base + slot
			if idx >= vm.sp {
				return NilVal(), vm.runtimeError("local slot %d out of bounds", slot)
			}
			val := vm.stack[idx]
			if !val.IsNumber() {
				return NilVal(), vm.runtimeError("cannot increment %s", val.TypeName())
			}
			vm.stack[idx] = NumberVal(val.AsNumber() + 1)

		case OP_GET_UPVALUE:
			slot := int(vm.readByte())
			if slot < 0 || slot >= len(frame.closure.Upvalues) {
				return NilVal(), vm.runtimeError("upvalue slot %d out of bounds", slot)
			}
			upvalue := frame.closure.Upvalues[slot]
			if upvalue.Location >= 0 {
				vm.push(vm.stack[upvalue.Location])
			} else {
				vm.push(upvalue.Closed)
			}

		case OP_SET_UPVALUE:
			slot := int(vm.readByte())
			if slot < 0 || slot >= len(frame.closure.Upvalues) {
				return NilVal(), vm.runtimeError("upvalue slot %d out of bounds", slot)
			}
			upvalue := frame.closure.Upvalues[slot]
			if upvalue.Location >= 0 {
				vm.stack[upvalue.Location] = vm.peek(0)
			} else {
				upvalue.Closed = vm.peek(0)
			}

		case OP_CLOSE_UPVALUE:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()

		case OP_JUMP:
			offset := vm.readUint16()
			frame.ip += offset

		case OP_JUMP_IF_FALSE:
			offset := vm.readUint16()
			if !vm.peek(0).IsTruthy() {
				frame.ip += offset
			}

		case OP_JUMP_IF_TRUE:
			offset := vm.readUint16()
			if vm.peek(0).IsTruthy() {
				frame.ip += offset
			}

		case OP_LOOP:
			offset := vm.readUint16()
			frame.ip -= offset
			if frame.ip < 0 {
				return NilVal(), vm.runtimeError("loop jump out of bounds")
			}

		case OP_CALL:
			argCount := int(vm.readByte())
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return NilVal(), err
			}

		case OP_CLOSURE:
			constVal := vm.readConstant()
			fn, ok := constVal.Obj.(*CompiledFunction)
			if !ok {
				return NilVal(), fmt.Errorf("expected function constant, got %s", constVal.TypeName())
			}
			closure := &ObjClosure{
				Function: fn,
				Upvalues: make([]*ObjUpvalue, fn.UpvalueCount),
			}
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte()
				index := int(vm.readByte())
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.base + index)
				} else {
					if index < 0 || index >= len(frame.closure.Upvalues) {
						return NilVal(), vm.runtimeError("upvalue index %d out of bounds", index)
					}
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}
			vm.push(ObjVal(closure))

		case OP_RETURN:
			result := vm.pop()
			vm.closeUpvalues(vm.frame.base)
			vm.frameCount--
			if vm.frameCount == 0 {
				// Discard the top-level callee slot and hand the result
				// back to the host.
				vm.sp = 0
				return result, nil
			}
			vm.sp = vm.frame.base
			vm.frame = &vm.frames[vm.frameCount-1]
			vm.push(result)

		case OP_CLASS:
			name := vm.readName()
			vm.push(ObjVal(&ObjClass{
				Name:    name,
				Methods: make(map[string]*ObjClosure),
			}))

		case OP_METHOD:
			name := vm.readName()
			method := vm.pop()
			closure, ok := method.Obj.(*ObjClosure)
			if !ok {
				return NilVal(), vm.runtimeError("method %q is not a function", name)
			}
			class, ok := vm.peek(0).Obj.(*ObjClass)
			if !ok {
				return NilVal(), vm.runtimeError("methods can only be added to classes")
			}
			class.Methods[name] = closure

		case OP_GET_PROPERTY:
			name := vm.readName()
			if err := vm.getProperty(name); err != nil {
				return NilVal(), err
			}

		case OP_SET_PROPERTY:
			name := vm.readName()
			if err := vm.setProperty(name); err != nil {
				return NilVal(), err
			}

		case OP_ARRAY:
			count := vm.readUint16()
			if vm.sp < count {
				return NilVal(), errStackUnderflow
			}
			elements := make([]Value, count)
			copy(elements, vm.stack[vm.sp-count:vm.sp])
			vm.sp -= count
			vm.push(ObjVal(&ObjArray{Elements: elements}))

		case OP_OBJECT:
			pairCount := int(vm.readByte())
			if vm.sp < pairCount*2 {
				return NilVal(), errStackUnderflow
			}
			base := vm.sp - pairCount*2
			m := NewObjMap()
			for i := 0; i < pairCount; i++ {
				key := vm.stack[base+i*2]
				value := vm.stack[base+i*2+1]
				m.Set(key.Inspect(), value)
			}
			vm.sp = base
			vm.push(ObjVal(m))

		case OP_GET_INDEX:
			index := vm.pop()
			obj := vm.pop()
			result, err := vm.getIndex(obj, index)
			if err != nil {
				return NilVal(), err
			}
			vm.push(result)

		case OP_SET_INDEX:
			value := vm.pop()
			index := vm.pop()
			obj := vm.pop()
			if err := vm.setIndex(obj, index, value); err != nil {
				return NilVal(), err
			}
			vm.push(value)

		case OP_PRINT:
			val := vm.pop()
			fmt.Fprintln(vm.out, val.Inspect())

		default:
			return NilVal(), vm.runtimeError("unknown opcode %d", op)
		}
	}
}
