// Package natives supplies the host-side standard callables that are
// copied into VM globals before a run begins. A native declares a name, an
// advisory arity and an invoke routine from argument values to a result
// value or failure.
package natives

import "github.com/pasalang/pasa/internal/vm"

// Standard returns the full native set.
func Standard() []*vm.NativeFunction {
	var all []*vm.NativeFunction
	all = append(all, coreNatives()...)
	all = append(all, termNatives()...)
	all = append(all, yamlNatives()...)
	all = append(all, dbNatives()...)
	all = append(all, grpcNatives()...)
	return all
}

// Register installs the standard natives into a VM.
func Register(v *vm.VM) {
	v.RegisterNatives(Standard())
}
