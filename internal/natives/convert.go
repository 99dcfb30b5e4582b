package natives

import (
	"fmt"

	"github.com/pasalang/pasa/internal/vm"
)

// ToGo lowers a VM value into plain Go data for host libraries (YAML,
// SQL drivers, protobuf JSON). Object key order is not preserved across
// this boundary.
func ToGo(v vm.Value) interface{} {
	switch {
	case v.IsNil():
		return nil
	case v.IsBool():
		return v.AsBool()
	case v.IsNumber():
		n := v.AsNumber()
		if n == float64(int64(n)) {
			return int64(n)
		}
		return n
	case v.IsString():
		return v.AsString()
	}

	switch obj := v.Obj.(type) {
	case *vm.ObjArray:
		out := make([]interface{}, len(obj.Elements))
		for i, elem := range obj.Elements {
			out[i] = ToGo(elem)
		}
		return out
	case *vm.ObjMap:
		out := make(map[string]interface{}, obj.Len())
		for _, key := range obj.Keys() {
			value, _ := obj.Get(key)
			out[key] = ToGo(value)
		}
		return out
	default:
		return v.Inspect()
	}
}

// FromGo lifts plain Go data (from yaml.Unmarshal, JSON, SQL rows) into VM
// values. Mappings become Objects, sequences become Arrays, scalars map to
// their primitive variants.
func FromGo(data interface{}) (vm.Value, error) {
	switch v := data.(type) {
	case nil:
		return vm.NilVal(), nil
	case bool:
		return vm.BoolVal(v), nil
	case int:
		return vm.NumberVal(float64(v)), nil
	case int64:
		return vm.NumberVal(float64(v)), nil
	case uint64:
		return vm.NumberVal(float64(v)), nil
	case float32:
		return vm.NumberVal(float64(v)), nil
	case float64:
		return vm.NumberVal(v), nil
	case string:
		return vm.StringVal(v), nil
	case []byte:
		return vm.StringVal(string(v)), nil
	case []interface{}:
		arr := &vm.ObjArray{Elements: make([]vm.Value, len(v))}
		for i, item := range v {
			elem, err := FromGo(item)
			if err != nil {
				return vm.NilVal(), err
			}
			arr.Elements[i] = elem
		}
		return vm.ObjVal(arr), nil
	case map[string]interface{}:
		m := vm.NewObjMap()
		for key, item := range v {
			value, err := FromGo(item)
			if err != nil {
				return vm.NilVal(), err
			}
			m.Set(key, value)
		}
		return vm.ObjVal(m), nil
	case map[interface{}]interface{}:
		m := vm.NewObjMap()
		for key, item := range v {
			value, err := FromGo(item)
			if err != nil {
				return vm.NilVal(), err
			}
			m.Set(fmt.Sprintf("%v", key), value)
		}
		return vm.ObjVal(m), nil
	default:
		return vm.NilVal(), fmt.Errorf("unsupported host value type %T", data)
	}
}
