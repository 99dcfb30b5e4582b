package vm

import "github.com/pasalang/pasa/internal/config"

// callValue dispatches a call based on the callee variant. The stack at
// dispatch is [..., callee, arg1, ..., argN].
func (vm *VM) callValue(callee Value, argCount int) error {
	if !callee.IsObj() {
		return vm.runtimeError("can only call functions and classes, got %s", callee.TypeName())
	}

	switch fn := callee.Obj.(type) {
	case *ObjClosure:
		return vm.callClosure(fn, argCount)

	case *CompiledFunction:
		return vm.callClosure(&ObjClosure{Function: fn}, argCount)

	case *ObjClass:
		return vm.callClass(fn, argCount)

	case *ObjBoundMethod:
		// The receiver takes the callee slot, becoming slot 0 of the frame.
		vm.stack[vm.sp-argCount-1] = fn.Receiver
		return vm.callClosure(fn.Method, argCount)

	case *NativeFunction:
		return vm.callNative(fn, argCount)

	default:
		return vm.runtimeError("can only call functions and classes, got %s", callee.TypeName())
	}
}

// callClosure pushes a new frame. The arity check happens before any frame
// state changes, so a faulting call leaves no frame behind.
func (vm *VM) callClosure(closure *ObjClosure, argCount int) error {
	fn := closure.Function

	if argCount != fn.Arity {
		return vm.runtimeError("%s expected %d arguments but got %d", fn.Name, fn.Arity, argCount)
	}

	if vm.frameCount >= MaxFrameCount {
		return vm.runtimeError("stack overflow")
	}
	if vm.frameCount >= len(vm.frames) {
		growBy := FrameGrowthIncrement
		if len(vm.frames) > growBy {
			growBy = len(vm.frames)
		}
		newFrames := make([]CallFrame, len(vm.frames)+growBy)
		copy(newFrames, vm.frames[:vm.frameCount])
		vm.frames = newFrames
	}

	frame := &vm.frames[vm.frameCount]
	frame.closure = closure
	frame.chunk = fn.Chunk
	frame.ip = 0
	frame.base = vm.sp - argCount - 1

	vm.frameCount++
	vm.frame = frame
	return nil
}

// callClass synthesizes a new instance in the callee slot, then runs the
// initializer when the class declares one. Without an initializer, passing
// arguments is a fault.
func (vm *VM) callClass(class *ObjClass, argCount int) error {
	base := vm.sp - argCount - 1
	instance := &ObjInstance{Class: class, Fields: NewObjMap()}
	vm.stack[base] = ObjVal(instance)

	if init, ok := class.findMethod(config.InitializerName); ok {
		return vm.callClosure(init, argCount)
	}

	if argCount != 0 {
		return vm.runtimeError("class %s has no %s but was called with %d arguments",
			class.Name, config.InitializerName, argCount)
	}
	return nil
}

// callNative pops the arguments and the callee, invokes the host routine
// and pushes its result. The declared arity is advisory and not enforced.
// The invocation is atomic from the VM's point of view: no opcode advances
// while a native runs.
func (vm *VM) callNative(fn *NativeFunction, argCount int) error {
	if vm.sp < argCount+1 {
		return errStackUnderflow
	}
	args := make([]Value, argCount)
	copy(args, vm.stack[vm.sp-argCount:vm.sp])
	vm.sp -= argCount + 1

	result, err := fn.Fn(args)
	if err != nil {
		return vm.runtimeError("%s: %s", fn.Name, err.Error())
	}
	vm.push(result)
	return nil
}
