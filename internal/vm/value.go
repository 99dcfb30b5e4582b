package vm

import (
	"math"
	"strconv"
	"strings"

	"github.com/pasalang/pasa/internal/config"
)

// ValueType identifies the variant stored in a Value.
type ValueType uint8

const (
	ValNil ValueType = iota
	ValBool
	ValNumber
	ValObj // heap objects: String, Array, Object, Closure, Class, ...
)

// Value is a stack-allocated tagged union. Small primitives (Nil, Bool,
// Number) avoid heap allocation; everything else lives behind Obj.
type Value struct {
	Type ValueType
	Data uint64 // float64 bits, or bool (0/1)
	Obj  Object
}

// Constructors

func NilVal() Value {
	return Value{Type: ValNil}
}

func BoolVal(v bool) Value {
	var data uint64
	if v {
		data = 1
	}
	return Value{Type: ValBool, Data: data}
}

func NumberVal(v float64) Value {
	return Value{Type: ValNumber, Data: math.Float64bits(v)}
}

func StringVal(s string) Value {
	return Value{Type: ValObj, Obj: &ObjString{Value: s}}
}

func ObjVal(o Object) Value {
	return Value{Type: ValObj, Obj: o}
}

// Accessors

func (v Value) AsBool() bool {
	return v.Data == 1
}

func (v Value) AsNumber() float64 {
	return math.Float64frombits(v.Data)
}

// AsString returns the string payload; valid only when IsString is true.
func (v Value) AsString() string {
	return v.Obj.(*ObjString).Value
}

// Type checking helpers

func (v Value) IsNil() bool    { return v.Type == ValNil }
func (v Value) IsBool() bool   { return v.Type == ValBool }
func (v Value) IsNumber() bool { return v.Type == ValNumber }
func (v Value) IsObj() bool    { return v.Type == ValObj }

func (v Value) IsString() bool {
	if v.Type != ValObj {
		return false
	}
	_, ok := v.Obj.(*ObjString)
	return ok
}

// IsTruthy implements the language truthiness rules: nil and false are
// falsy, so are the number 0 and the empty string; everything else is truthy.
func (v Value) IsTruthy() bool {
	switch v.Type {
	case ValNil:
		return false
	case ValBool:
		return v.Data == 1
	case ValNumber:
		return v.AsNumber() != 0
	case ValObj:
		if s, ok := v.Obj.(*ObjString); ok {
			return len(s.Value) > 0
		}
		return true
	default:
		return false
	}
}

// Equals implements value equality: primitives compare by payload, heap
// objects by identity (strings are primitives and compare by content).
func (v Value) Equals(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case ValNil:
		return true
	case ValBool:
		return v.Data == other.Data
	case ValNumber:
		return v.AsNumber() == other.AsNumber()
	case ValObj:
		if a, ok := v.Obj.(*ObjString); ok {
			if b, ok := other.Obj.(*ObjString); ok {
				return a.Value == b.Value
			}
			return false
		}
		return v.Obj == other.Obj
	default:
		return false
	}
}

// Inspect returns the print representation: wang / jing / tej for the
// singletons, shortest decimal for numbers, raw text for strings.
func (v Value) Inspect() string {
	switch v.Type {
	case ValNil:
		return config.NilLiteral
	case ValBool:
		if v.Data == 1 {
			return config.TrueLiteral
		}
		return config.FalseLiteral
	case ValNumber:
		return formatNumber(v.AsNumber())
	case ValObj:
		if v.Obj != nil {
			return v.Obj.Inspect()
		}
		return "<nil obj>"
	default:
		return "<?>"
	}
}

// TypeName returns the variant name used in runtime error messages.
func (v Value) TypeName() string {
	switch v.Type {
	case ValNil:
		return "nil"
	case ValBool:
		return "bool"
	case ValNumber:
		return "number"
	case ValObj:
		if v.Obj != nil {
			return string(v.Obj.Type())
		}
		return "nil"
	default:
		return "unknown"
	}
}

// formatNumber renders integral doubles without a fractional part.
func formatNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// joinInspect stringifies a slice of values with the given separator.
func joinInspect(values []Value, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.Inspect()
	}
	return strings.Join(parts, sep)
}
