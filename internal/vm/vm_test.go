package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pasalang/pasa/internal/ast"
	"github.com/pasalang/pasa/internal/lexer"
	"github.com/pasalang/pasa/internal/parser"
	"github.com/pasalang/pasa/internal/pipeline"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	ctx := pipeline.NewPipelineContext(input)

	l := lexer.LexerProcessor{}
	ctx = l.Process(ctx)
	if ctx.Diags.HasErrors() {
		t.Fatalf("lexer error: %s", ctx.Diags.Err())
	}

	p := parser.ParserProcessor{}
	ctx = p.Process(ctx)
	if ctx.Diags.HasErrors() {
		t.Fatalf("parser error: %s", ctx.Diags.Err())
	}

	return ctx.AstRoot.(*ast.Program)
}

func compile(t *testing.T, input string) *CompiledFunction {
	t.Helper()
	compiler := NewCompiler(nil)
	fn, err := compiler.Compile(parse(t, input))
	if err != nil {
		t.Fatalf("compilation error: %s", err)
	}
	return fn
}

// runOutput executes a program and returns everything it printed.
func runOutput(t *testing.T, input string) string {
	t.Helper()
	fn := compile(t, input)

	var out bytes.Buffer
	machine := New()
	machine.SetOutput(&out)
	if _, err := machine.Run(fn); err != nil {
		t.Fatalf("runtime error: %s", err)
	}
	return out.String()
}

func expectLines(t *testing.T, input string, want ...string) {
	t.Helper()
	got := runOutput(t, input)
	wantJoined := strings.Join(want, "\n") + "\n"
	if len(want) == 0 {
		wantJoined = ""
	}
	if got != wantJoined {
		t.Errorf("wrong output.\ngot:\n%q\nwant:\n%q", got, wantJoined)
	}
}

func TestArithmeticAndVariables(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"da 1 + 2", "3"},
		{"da 10 - 4", "6"},
		{"da 3 * 4", "12"},
		{"da 10 / 4", "2.5"},
		{"da 10 % 3", "1"},
		{"da 2 ** 10", "1024"},
		{"da -5 + 3", "-2"},
		{"da (1 + 2) * 3", "9"},
		{"da 1.5 + 2.25", "3.75"},
		{"ao x = 10\nda x + 5", "15"},
		{"ao x = 1\nao y = 2\nda x + y", "3"},
		{"ao x = 1\nx = x + 41\nda x", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expectLines(t, tt.input, tt.expected)
		})
	}
}

func TestStringification(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"da wang", "wang"},
		{"da jing", "jing"},
		{"da tej", "tej"},
		{"da 15", "15"},
		{"da 15.0", "15"},
		{"da 0.5", "0.5"},
		{`da "sawasdee"`, "sawasdee"},
		{"da [1, 2, 3]", "[1, 2, 3]"},
		{`da ["a", wang, jing]`, "[a, wang, jing]"},
		{"da {a: 1, b: 2}", "{a: 1,b: 2}"},
		{"da []", "[]"},
		{"da {}", "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expectLines(t, tt.input, tt.expected)
		})
	}
}

func TestStringConcatenation(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`da "a" + "b"`, "ab"},
		{`da "n=" + 5`, "n=5"},
		{`da 5 + "=n"`, "5=n"},
		{`da "v:" + wang`, "v:wang"},
		{`da "" + jing`, "jing"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expectLines(t, tt.input, tt.expected)
		})
	}
}

func TestTruthinessAndLogic(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"da !jing", "tej"},
		{"da !wang", "jing"},
		{"da !0", "jing"},
		{`da !""`, "jing"},
		{`da !"x"`, "tej"},
		{"da 1 == 1", "jing"},
		{"da 1 != 2", "jing"},
		{`da "a" == "a"`, "jing"},
		{`da "a" == "b"`, "tej"},
		{"da wang == wang", "jing"},
		{"da 1 == \"1\"", "tej"},
		{"da 1 < 2 && 2 < 3", "jing"},
		{"da jing ? 1 : 2", "1"},
		{"da tej ? 1 : 2", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expectLines(t, tt.input, tt.expected)
		})
	}
}

func TestBitwiseOperators(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"da 6 & 3", "2"},
		{"da 6 | 3", "7"},
		{"da 6 ^ 3", "5"},
		{"da ~0", "-1"},
		{"da 1 << 4", "16"},
		{"da 256 >> 4", "16"},
		{"da -8 >> 1", "-4"},
		// Non-integral operands truncate to int32.
		{"da 6.9 & 3.2", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expectLines(t, tt.input, tt.expected)
		})
	}
}

// Short-circuit evaluation: the right operand runs only when the left
// selects it, and the left operand is preserved as the result.
func TestShortCircuit(t *testing.T) {
	expectLines(t, `
kian effect(v)
  da "effect"
  kuun v
job
da tej && effect(jing)
da jing || effect(jing)
`, "tej", "jing")

	expectLines(t, `
kian effect(v)
  da "effect"
  kuun v
job
da jing && effect(5)
da tej || effect(6)
`, "effect", "5", "effect", "6")
}

func TestTernaryEvaluatesOneBranch(t *testing.T) {
	expectLines(t, `
kian trace(v)
  da v
  kuun v
job
da jing ? trace(1) : trace(2)
`, "1", "1")
}

func TestIfElseChains(t *testing.T) {
	input := `
ao x = 2
tha x == 1
  da "one"
uen tha x == 2
  da "two"
uen
  da "many"
job
`
	expectLines(t, input, "two")

	input2 := `
ao x = 9
tha x == 1
  da "one"
uen tha x == 2
  da "two"
uen
  da "many"
job
`
	expectLines(t, input2, "many")
}

// E2: while loop and mutation.
func TestWhileLoop(t *testing.T) {
	input := `
ao i = 0
wonn i < 3
  da i
  i = i + 1
job
`
	expectLines(t, input, "0", "1", "2")
}

func TestCountedForLoop(t *testing.T) {
	expectLines(t, `
samrap i = 0 thueng 3
  da i
job
`, "0", "1", "2")

	expectLines(t, `
samrap i = 0 thueng 10 khan 3
  da i
job
`, "0", "3", "6", "9")
}

func TestBreakAndContinue(t *testing.T) {
	expectLines(t, `
ao i = 0
wonn jing
  i = i + 1
  tha i > 3
    yut
  job
  da i
job
`, "1", "2", "3")

	// Continue in a counted loop still advances the counter.
	expectLines(t, `
samrap i = 0 thueng 5
  tha i % 2 == 1
    tor
  job
  da i
job
`, "0", "2", "4")
}

// E6: switch executes only the first matching case.
func TestSwitch(t *testing.T) {
	input := `
ao x = 2
cheek x
  karani 1: da "one"
  karani 2: da "two"
  karani 3: da "three"
job
`
	expectLines(t, input, "two")
}

func TestSwitchDefault(t *testing.T) {
	input := `
ao x = 9
cheek x
  karani 1: da "one"
  pokati: da "other"
job
`
	expectLines(t, input, "other")

	input2 := `
ao x = 1
cheek x
  karani 1: da "one"
  pokati: da "other"
job
`
	expectLines(t, input2, "one")
}

func TestFunctionsAndRecursion(t *testing.T) {
	expectLines(t, `
kian add(a, b)
  kuun a + b
job
da add(3, 4)
`, "7")

	expectLines(t, `
kian fib(n)
  tha n < 2
    kuun n
  job
  kuun fib(n - 1) + fib(n - 2)
job
da fib(10)
`, "55")
}

func TestAnonymousFunctions(t *testing.T) {
	expectLines(t, `
ao twice = kian(f, x)
  kuun f(f(x))
job
da twice(kian(n)
  kuun n + 1
job, 5)
`, "7")
}

// E3: closure capture across the defining frame's return.
func TestClosureCapture(t *testing.T) {
	input := `
kian make()
  ao n = 0
  kuun kian()
    n = n + 1
    kuun n
  job
job
ao c = make()
da c()
da c()
`
	expectLines(t, input, "1", "2")
}

// Two closures that capture the same local share one upvalue: writes through
// one are visible through the other after the outer frame has returned.
func TestClosureSharing(t *testing.T) {
	input := `
kian make()
  ao n = 0
  ao pair = {}
  pair.inc = kian()
    n = n + 1
    kuun n
  job
  pair.get = kian()
    kuun n
  job
  kuun pair
job
ao p = make()
p.inc()
p.inc()
da p.get()
`
	expectLines(t, input, "2")
}

func TestClosureSharingBeforeReturn(t *testing.T) {
	input := `
kian run()
  ao n = 10
  ao bump = kian()
    n = n + 5
  job
  bump()
  da n
job
run()
`
	expectLines(t, input, "15")
}

// E4: class with initializer and method.
func TestClassInitializerAndMethod(t *testing.T) {
	input := `
klum Box
  kian sang(v)
    ni.v = v
  job
  kian get()
    kuun ni.v
  job
job
ao b = mai Box(7)
da b.get()
`
	expectLines(t, input, "7")
}

// Invoking a class produces an instance even though the initializer body
// runs for its side effects.
func TestClassCallYieldsInstance(t *testing.T) {
	input := `
klum Point
  kian sang(x, y)
    ni.x = x
    ni.y = y
  job
job
ao p = mai Point(1, 2)
da type_of_check(p)
`
	fn := compile(t, input)

	var out bytes.Buffer
	machine := New()
	machine.SetOutput(&out)
	machine.RegisterNative(&NativeFunction{
		Name:  "type_of_check",
		Arity: 1,
		Fn: func(args []Value) (Value, error) {
			return StringVal(string(args[0].Obj.Type())), nil
		},
	})
	if _, err := machine.Run(fn); err != nil {
		t.Fatalf("runtime error: %s", err)
	}
	if got := out.String(); got != "instance\n" {
		t.Errorf("expected instance, got %q", got)
	}
}

func TestClassWithoutInitializer(t *testing.T) {
	input := `
klum Bag
  kian put(v)
    ni.v = v
    kuun ni
  job
job
ao b = mai Bag()
b.put(3)
da b.v
`
	expectLines(t, input, "3")
}

func TestFieldShadowsMethod(t *testing.T) {
	input := `
klum Thing
  kian name()
    kuun "method"
  job
job
ao x = mai Thing()
da x.name() == "method"
x.name = "field"
da x.name
`
	expectLines(t, input, "jing", "field")
}

func TestBoundMethodAsValue(t *testing.T) {
	input := `
klum Counter
  kian sang()
    ni.n = 0
  job
  kian inc()
    ni.n = ni.n + 1
    kuun ni.n
  job
job
ao c = mai Counter()
ao f = c.inc
f()
f()
da c.n
`
	expectLines(t, input, "2")
}

func TestArrays(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"ao a = [1, 2, 3]\nda a[0]", "1"},
		{"ao a = [1, 2, 3]\nda a[2]", "3"},
		// Lenient out-of-range read.
		{"ao a = [1]\nda a[5]", "wang"},
		{"ao a = [1, 2]\na[0] = 9\nda a", "[9, 2]"},
		// Writes past the end extend with nil.
		{"ao a = [1]\na[3] = 4\nda a", "[1, wang, wang, 4]"},
		// Element order is compile order.
		{"da [1 + 1, 2 + 2, 3 + 3]", "[2, 4, 6]"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expectLines(t, tt.input, tt.expected)
		})
	}
}

func TestObjects(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"ao o = {a: 1}\nda o.a", "1"},
		{`ao o = {a: 1}\nda o["a"]`, "1"},
		{"ao o = {a: 1}\no.b = 2\nda o.b", "2"},
		{`ao o = {}\no["k"] = 7\nda o.k`, "7"},
		// Missing index read is lenient.
		{`ao o = {}\nda o["missing"]`, "wang"},
		// Computed keys.
		{`ao o = {["a" + "b"]: 3}\nda o.ab`, "3"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			input := strings.ReplaceAll(tt.input, `\n`, "\n")
			expectLines(t, input, tt.expected)
		})
	}
}

// Object keys iterate in first-assignment order even after overwrites.
func TestObjectKeyOrder(t *testing.T) {
	input := `
ao o = {b: 1, a: 2}
o.c = 3
o.b = 9
da o
`
	expectLines(t, input, "{b: 9,a: 2,c: 3}")
}

func TestStringIndexing(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`da "abc"[0]`, "a"},
		{`da "abc"[2]`, "c"},
		{`da "abc"[9]`, "wang"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expectLines(t, tt.input, tt.expected)
		})
	}
}

func TestThaiIdentifiers(t *testing.T) {
	expectLines(t, "ao จำนวน = 42\nda จำนวน", "42")
}

func TestPrintMultipleValues(t *testing.T) {
	expectLines(t, "da 1, 2, 3", "1", "2", "3")
}

func TestAssignmentIsAnExpression(t *testing.T) {
	expectLines(t, "ao a = 0\nao b = 0\na = b = 5\nda a + b", "10")
}

func TestAwaitAndSpreadPassThrough(t *testing.T) {
	expectLines(t, `
kian id(x)
  kuun x
job
da ro id(3)
`, "3")
}

// Scope popping: block exit restores the stack so outer locals keep their
// slots.
func TestBlockScoping(t *testing.T) {
	input := `
kian run()
  ao a = 1
  tha jing
    ao b = 2
    da b
  job
  da a
job
run()
`
	expectLines(t, input, "2", "1")
}

func TestEqualityReflexivity(t *testing.T) {
	input := `
ao arr = [1]
ao obj = {a: 1}
kian f()
job
klum K
job
ao inst = mai K()
da arr == arr
da obj == obj
da f == f
da K == K
da inst == inst
`
	expectLines(t, input, "jing", "jing", "jing", "jing", "jing")
}

func TestDistinctObjectsNotEqual(t *testing.T) {
	expectLines(t, "da [1] == [1]\nda {a: 1} == {a: 1}", "tej", "tej")
}

func TestNativesThroughGlobals(t *testing.T) {
	fn := compile(t, "da greet(\"pasa\")")

	var out bytes.Buffer
	machine := New()
	machine.SetOutput(&out)
	machine.RegisterNative(&NativeFunction{
		Name:  "greet",
		Arity: 1,
		Fn: func(args []Value) (Value, error) {
			return StringVal("hello " + args[0].Inspect()), nil
		},
	})
	if _, err := machine.Run(fn); err != nil {
		t.Fatalf("runtime error: %s", err)
	}
	if got := out.String(); got != "hello pasa\n" {
		t.Errorf("unexpected output %q", got)
	}
}

// Native arity is advisory: the VM passes through whatever the call site
// provides.
func TestNativeArityNotEnforced(t *testing.T) {
	fn := compile(t, "da count(1, 2, 3)")

	var out bytes.Buffer
	machine := New()
	machine.SetOutput(&out)
	machine.RegisterNative(&NativeFunction{
		Name:  "count",
		Arity: 1,
		Fn: func(args []Value) (Value, error) {
			return NumberVal(float64(len(args))), nil
		},
	})
	if _, err := machine.Run(fn); err != nil {
		t.Fatalf("runtime error: %s", err)
	}
	if got := out.String(); got != "3\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestRunReturnsNilForPlainScript(t *testing.T) {
	fn := compile(t, "ao x = 1")
	machine := New()
	result, err := machine.Run(fn)
	if err != nil {
		t.Fatalf("runtime error: %s", err)
	}
	if !result.IsNil() {
		t.Errorf("expected nil result, got %s", result.Inspect())
	}
}
