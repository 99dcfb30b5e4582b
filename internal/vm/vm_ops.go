package vm

import (
	"math"
)

// binaryOp performs the arithmetic operators. OP_ADD concatenates when
// either operand is a string, stringifying the other.
func (vm *VM) binaryOp(op Opcode) error {
	b := vm.pop()
	a := vm.pop()

	if op == OP_ADD && (a.IsString() || b.IsString()) {
		vm.push(StringVal(a.Inspect() + b.Inspect()))
		return nil
	}

	if !a.IsNumber() || !b.IsNumber() {
		if op == OP_ADD {
			return vm.runtimeError("operands of + must be numbers or strings, got %s and %s",
				a.TypeName(), b.TypeName())
		}
		return vm.runtimeError("operands of %s must be numbers, got %s and %s",
			opSymbol(op), a.TypeName(), b.TypeName())
	}

	aVal := a.AsNumber()
	bVal := b.AsNumber()

	var result float64
	switch op {
	case OP_ADD:
		result = aVal + bVal
	case OP_SUBTRACT:
		result = aVal - bVal
	case OP_MULTIPLY:
		result = aVal * bVal
	case OP_DIVIDE:
		if bVal == 0 {
			return vm.runtimeError("division by zero")
		}
		result = aVal / bVal
	case OP_MODULO:
		if bVal == 0 {
			return vm.runtimeError("modulo by zero")
		}
		result = math.Mod(aVal, bVal)
	case OP_POWER:
		result = math.Pow(aVal, bVal)
	}
	vm.push(NumberVal(result))
	return nil
}

// comparisonOp performs numeric ordering; mixed-type comparisons fault.
func (vm *VM) comparisonOp(op Opcode) error {
	b := vm.pop()
	a := vm.pop()

	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError("operands of %s must be numbers, got %s and %s",
			opSymbol(op), a.TypeName(), b.TypeName())
	}

	aVal := a.AsNumber()
	bVal := b.AsNumber()

	var result bool
	switch op {
	case OP_GREATER:
		result = aVal > bVal
	case OP_GREATER_EQUAL:
		result = aVal >= bVal
	case OP_LESS:
		result = aVal < bVal
	case OP_LESS_EQUAL:
		result = aVal <= bVal
	}
	vm.push(BoolVal(result))
	return nil
}

// bitwiseOp performs the bitwise operators on int32 two's-complement
// truncations of the operands; shift counts are masked to 0..31.
func (vm *VM) bitwiseOp(op Opcode) error {
	b := vm.pop()
	a := vm.pop()

	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError("operands of %s must be numbers, got %s and %s",
			opSymbol(op), a.TypeName(), b.TypeName())
	}

	aVal := toInt32(a.AsNumber())
	bVal := toInt32(b.AsNumber())

	var result int32
	switch op {
	case OP_BIT_AND:
		result = aVal & bVal
	case OP_BIT_OR:
		result = aVal | bVal
	case OP_BIT_XOR:
		result = aVal ^ bVal
	case OP_LSHIFT:
		result = aVal << (uint32(bVal) & 31)
	case OP_RSHIFT:
		result = aVal >> (uint32(bVal) & 31)
	}
	vm.push(NumberVal(float64(result)))
	return nil
}

// toInt32 truncates a double to int32 with wraparound, the way dynamic
// languages define their bitwise operators. NaN and infinities become 0.
func toInt32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	t := math.Trunc(f)
	m := math.Mod(t, 4294967296) // 2^32
	if m < 0 {
		m += 4294967296
	}
	return int32(uint32(m))
}

func opSymbol(op Opcode) string {
	switch op {
	case OP_ADD:
		return "+"
	case OP_SUBTRACT:
		return "-"
	case OP_MULTIPLY:
		return "*"
	case OP_DIVIDE:
		return "/"
	case OP_MODULO:
		return "%"
	case OP_POWER:
		return "**"
	case OP_GREATER:
		return ">"
	case OP_GREATER_EQUAL:
		return ">="
	case OP_LESS:
		return "<"
	case OP_LESS_EQUAL:
		return "<="
	case OP_BIT_AND:
		return "&"
	case OP_BIT_OR:
		return "|"
	case OP_BIT_XOR:
		return "^"
	case OP_LSHIFT:
		return "<<"
	case OP_RSHIFT:
		return ">>"
	}
	return OpcodeNames[op]
}

// getProperty implements OP_GET_PROPERTY: on instances a field wins over a
// method, and a method access produces a bound method; on plain objects the
// key is looked up directly. Undefined properties fault.
func (vm *VM) getProperty(name string) error {
	objVal := vm.pop()
	if !objVal.IsObj() {
		return vm.runtimeError("only instances and objects have properties, got %s", objVal.TypeName())
	}

	switch obj := objVal.Obj.(type) {
	case *ObjInstance:
		if field, ok := obj.Fields.Get(name); ok {
			vm.push(field)
			return nil
		}
		if method, ok := obj.Class.findMethod(name); ok {
			vm.push(ObjVal(&ObjBoundMethod{Receiver: objVal, Method: method}))
			return nil
		}
		return vm.runtimeError("undefined property %q on %s instance", name, obj.Class.Name)

	case *ObjMap:
		if value, ok := obj.Get(name); ok {
			vm.push(value)
			return nil
		}
		return vm.runtimeError("undefined property %q", name)

	default:
		return vm.runtimeError("only instances and objects have properties, got %s", objVal.TypeName())
	}
}

// setProperty implements OP_SET_PROPERTY: instance fields are created on
// first assignment; object keys likewise. The assigned value stays on the
// stack.
func (vm *VM) setProperty(name string) error {
	value := vm.pop()
	objVal := vm.pop()
	if !objVal.IsObj() {
		return vm.runtimeError("only instances and objects have properties, got %s", objVal.TypeName())
	}

	switch obj := objVal.Obj.(type) {
	case *ObjInstance:
		obj.Fields.Set(name, value)
	case *ObjMap:
		obj.Set(name, value)
	default:
		return vm.runtimeError("only instances and objects have properties, got %s", objVal.TypeName())
	}
	vm.push(value)
	return nil
}

// getIndex implements OP_GET_INDEX. Array reads are lenient: an
// out-of-range index yields nil. Object reads use the stringified key and
// are likewise lenient. String reads yield a single code point.
func (vm *VM) getIndex(objVal, index Value) (Value, error) {
	if !objVal.IsObj() {
		return NilVal(), vm.runtimeError("cannot index %s", objVal.TypeName())
	}

	switch obj := objVal.Obj.(type) {
	case *ObjArray:
		if !index.IsNumber() {
			return NilVal(), vm.runtimeError("array index must be a number, got %s", index.TypeName())
		}
		i := int(math.Trunc(index.AsNumber()))
		if i < 0 || i >= len(obj.Elements) {
			return NilVal(), nil
		}
		return obj.Elements[i], nil

	case *ObjMap:
		if value, ok := obj.Get(index.Inspect()); ok {
			return value, nil
		}
		return NilVal(), nil

	case *ObjString:
		if !index.IsNumber() {
			return NilVal(), vm.runtimeError("string index must be a number, got %s", index.TypeName())
		}
		i := int(math.Trunc(index.AsNumber()))
		runes := []rune(obj.Value)
		if i < 0 || i >= len(runes) {
			return NilVal(), nil
		}
		return StringVal(string(runes[i])), nil

	default:
		return NilVal(), vm.runtimeError("cannot index %s", objVal.TypeName())
	}
}

// setIndex implements OP_SET_INDEX. Array writes past the current length
// extend the array with nils; writes into strings fault.
func (vm *VM) setIndex(objVal, index, value Value) error {
	if !objVal.IsObj() {
		return vm.runtimeError("cannot index %s", objVal.TypeName())
	}

	switch obj := objVal.Obj.(type) {
	case *ObjArray:
		if !index.IsNumber() {
			return vm.runtimeError("array index must be a number, got %s", index.TypeName())
		}
		i := int(math.Trunc(index.AsNumber()))
		if i < 0 {
			return vm.runtimeError("array index out of range: %d", i)
		}
		for len(obj.Elements) <= i {
			obj.Elements = append(obj.Elements, NilVal())
		}
		obj.Elements[i] = value
		return nil

	case *ObjMap:
		obj.Set(index.Inspect(), value)
		return nil

	case *ObjString:
		return vm.runtimeError("strings are immutable")

	default:
		return vm.runtimeError("cannot index %s", objVal.TypeName())
	}
}
