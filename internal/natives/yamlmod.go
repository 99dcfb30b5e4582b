package natives

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/pasalang/pasa/internal/vm"
)

func yamlNatives() []*vm.NativeFunction {
	return []*vm.NativeFunction{
		{Name: "yaml_parse", Arity: 1, Fn: nativeYamlParse},
		{Name: "yaml_stringify", Arity: 1, Fn: nativeYamlStringify},
	}
}

// nativeYamlParse parses a YAML document: mappings become Objects,
// sequences become Arrays, scalars become their primitive variants.
func nativeYamlParse(args []vm.Value) (vm.Value, error) {
	if len(args) != 1 || !args[0].IsString() {
		return vm.NilVal(), fmt.Errorf("expected one string argument")
	}
	var data interface{}
	if err := yaml.Unmarshal([]byte(args[0].AsString()), &data); err != nil {
		return vm.NilVal(), fmt.Errorf("YAML parse error: %v", err)
	}
	return FromGo(data)
}

func nativeYamlStringify(args []vm.Value) (vm.Value, error) {
	if len(args) != 1 {
		return vm.NilVal(), fmt.Errorf("expected 1 argument, got %d", len(args))
	}
	out, err := yaml.Marshal(ToGo(args[0]))
	if err != nil {
		return vm.NilVal(), fmt.Errorf("YAML encoding error: %v", err)
	}
	return vm.StringVal(string(out)), nil
}
