package natives

import (
	"bufio"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/pasalang/pasa/internal/vm"
)

func termNatives() []*vm.NativeFunction {
	return []*vm.NativeFunction{
		{Name: "is_tty", Arity: 0, Fn: nativeIsTTY},
		{Name: "input", Arity: 0, Fn: nativeInput},
	}
}

func nativeIsTTY(args []vm.Value) (vm.Value, error) {
	fd := os.Stdout.Fd()
	return vm.BoolVal(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)), nil
}

// nativeInput reads one line from stdin. The VM treats the call as atomic;
// execution is quiescent while the host blocks on I/O.
func nativeInput(args []vm.Value) (vm.Value, error) {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return vm.NilVal(), nil
	}
	return vm.StringVal(strings.TrimRight(line, "\r\n")), nil
}
