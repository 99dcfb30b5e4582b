// Package cli implements the pasa command line entry point: compile and
// run a script, evaluate an inline expression, or dump disassembly.
package cli

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pasalang/pasa/internal/ast"
	"github.com/pasalang/pasa/internal/config"
	"github.com/pasalang/pasa/internal/diagnostics"
	"github.com/pasalang/pasa/internal/lexer"
	"github.com/pasalang/pasa/internal/natives"
	"github.com/pasalang/pasa/internal/parser"
	"github.com/pasalang/pasa/internal/pipeline"
	"github.com/pasalang/pasa/internal/vm"
)

// Options come from flags and the optional pasa.yaml project file.
type Options struct {
	// Color is "auto" (default), "always" or "never".
	Color string `yaml:"color"`

	// Disasm prints the compiled bytecode instead of running it.
	Disasm bool `yaml:"disasm"`
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: pasa [--disasm] [--no-color] <file"+config.SourceFileExt+">")
	fmt.Fprintln(w, "       pasa -e <source>")
}

// Main runs the CLI and returns the process exit code.
func Main(args []string) int {
	opts := loadProjectConfig()

	var source, file string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--disasm":
			opts.Disasm = true
		case "--no-color":
			opts.Color = "never"
		case "-e":
			if i+1 >= len(args) {
				usage(os.Stderr)
				return 2
			}
			i++
			source = args[i]
		case "-h", "--help":
			usage(os.Stdout)
			return 0
		default:
			file = args[i]
		}
	}

	if source == "" {
		if file == "" {
			usage(os.Stderr)
			return 2
		}
		data, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		source = string(data)
	}

	color := false
	switch opts.Color {
	case "always":
		color = true
	case "never":
		color = false
	default:
		color = diagnostics.ColorEnabled(os.Stderr)
	}

	return run(source, file, opts, color)
}

func loadProjectConfig() Options {
	opts := Options{Color: "auto"}
	data, err := os.ReadFile(config.ProjectConfigFile)
	if err != nil {
		return opts
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		fmt.Fprintf(os.Stderr, "warning: ignoring malformed %s: %v\n", config.ProjectConfigFile, err)
		return Options{Color: "auto"}
	}
	if opts.Color == "" {
		opts.Color = "auto"
	}
	return opts
}

func run(source, file string, opts Options, color bool) int {
	ctx := pipeline.NewPipelineContext(source)
	ctx.File = file

	p := pipeline.New(lexer.LexerProcessor{}, parser.ParserProcessor{})
	ctx = p.Run(ctx)

	program, _ := ctx.AstRoot.(*ast.Program)
	var fn *vm.CompiledFunction
	if program != nil && !ctx.Diags.HasErrors() {
		compiler := vm.NewCompiler(ctx.Diags)
		fn, _ = compiler.Compile(program)
	}

	reportDiagnostics(ctx.Diags, color)
	if ctx.Diags.HasErrors() || fn == nil {
		return 65
	}

	if opts.Disasm {
		fmt.Fprint(os.Stdout, vm.Disassemble(fn.Chunk, fn.Name))
		return 0
	}

	machine := vm.New()
	machine.SetOutput(os.Stdout)
	natives.Register(machine)

	if _, err := machine.Run(fn); err != nil {
		if d, ok := err.(diagnostics.Diagnostic); ok {
			fmt.Fprintln(os.Stderr, diagnostics.Render(d, color))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return 70
	}
	return 0
}

func reportDiagnostics(diags *diagnostics.List, color bool) {
	for _, d := range diags.Items() {
		fmt.Fprintln(os.Stderr, diagnostics.Render(d, color))
	}
}
