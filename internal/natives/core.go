package natives

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pasalang/pasa/internal/vm"
)

func coreNatives() []*vm.NativeFunction {
	return []*vm.NativeFunction{
		{Name: "len", Arity: 1, Fn: nativeLen},
		{Name: "str", Arity: 1, Fn: nativeStr},
		{Name: "num", Arity: 1, Fn: nativeNum},
		{Name: "type_of", Arity: 1, Fn: nativeTypeOf},
		{Name: "clock", Arity: 0, Fn: nativeClock},
		{Name: "uuid", Arity: 0, Fn: nativeUUID},
		{Name: "push", Arity: 2, Fn: nativePush},
		{Name: "pop", Arity: 1, Fn: nativePop},
		{Name: "keys", Arity: 1, Fn: nativeKeys},
	}
}

func nativeLen(args []vm.Value) (vm.Value, error) {
	if len(args) != 1 {
		return vm.NilVal(), fmt.Errorf("expected 1 argument, got %d", len(args))
	}
	v := args[0]
	switch {
	case v.IsString():
		return vm.NumberVal(float64(utf8.RuneCountInString(v.AsString()))), nil
	case v.IsObj():
		switch obj := v.Obj.(type) {
		case *vm.ObjArray:
			return vm.NumberVal(float64(len(obj.Elements))), nil
		case *vm.ObjMap:
			return vm.NumberVal(float64(obj.Len())), nil
		}
	}
	return vm.NilVal(), fmt.Errorf("cannot take length of %s", v.TypeName())
}

func nativeStr(args []vm.Value) (vm.Value, error) {
	if len(args) != 1 {
		return vm.NilVal(), fmt.Errorf("expected 1 argument, got %d", len(args))
	}
	return vm.StringVal(args[0].Inspect()), nil
}

func nativeNum(args []vm.Value) (vm.Value, error) {
	if len(args) != 1 {
		return vm.NilVal(), fmt.Errorf("expected 1 argument, got %d", len(args))
	}
	v := args[0]
	if v.IsNumber() {
		return v, nil
	}
	if !v.IsString() {
		return vm.NilVal(), fmt.Errorf("cannot convert %s to a number", v.TypeName())
	}
	f, err := strconv.ParseFloat(v.AsString(), 64)
	if err != nil {
		return vm.NilVal(), nil // lenient: unparsable text yields nil
	}
	return vm.NumberVal(f), nil
}

func nativeTypeOf(args []vm.Value) (vm.Value, error) {
	if len(args) != 1 {
		return vm.NilVal(), fmt.Errorf("expected 1 argument, got %d", len(args))
	}
	return vm.StringVal(args[0].TypeName()), nil
}

func nativeClock(args []vm.Value) (vm.Value, error) {
	return vm.NumberVal(float64(time.Now().UnixNano()) / 1e9), nil
}

func nativeUUID(args []vm.Value) (vm.Value, error) {
	return vm.StringVal(uuid.NewString()), nil
}

func nativePush(args []vm.Value) (vm.Value, error) {
	if len(args) != 2 {
		return vm.NilVal(), fmt.Errorf("expected 2 arguments, got %d", len(args))
	}
	arr, ok := args[0].Obj.(*vm.ObjArray)
	if !args[0].IsObj() || !ok {
		return vm.NilVal(), fmt.Errorf("first argument must be an array, got %s", args[0].TypeName())
	}
	arr.Elements = append(arr.Elements, args[1])
	return args[0], nil
}

func nativePop(args []vm.Value) (vm.Value, error) {
	if len(args) != 1 {
		return vm.NilVal(), fmt.Errorf("expected 1 argument, got %d", len(args))
	}
	arr, ok := args[0].Obj.(*vm.ObjArray)
	if !args[0].IsObj() || !ok {
		return vm.NilVal(), fmt.Errorf("argument must be an array, got %s", args[0].TypeName())
	}
	if len(arr.Elements) == 0 {
		return vm.NilVal(), nil
	}
	last := arr.Elements[len(arr.Elements)-1]
	arr.Elements = arr.Elements[:len(arr.Elements)-1]
	return last, nil
}

// nativeKeys returns an object's keys in first-insertion order.
func nativeKeys(args []vm.Value) (vm.Value, error) {
	if len(args) != 1 {
		return vm.NilVal(), fmt.Errorf("expected 1 argument, got %d", len(args))
	}
	m, ok := args[0].Obj.(*vm.ObjMap)
	if !args[0].IsObj() || !ok {
		return vm.NilVal(), fmt.Errorf("argument must be an object, got %s", args[0].TypeName())
	}
	keys := m.Keys()
	arr := &vm.ObjArray{Elements: make([]vm.Value, len(keys))}
	for i, key := range keys {
		arr.Elements[i] = vm.StringVal(key)
	}
	return vm.ObjVal(arr), nil
}
