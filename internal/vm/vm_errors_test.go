package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/pasalang/pasa/internal/diagnostics"
)

// runError executes a program expecting a runtime fault and returns it as
// a diagnostic.
func runError(t *testing.T, input string) diagnostics.Diagnostic {
	t.Helper()
	fn := compile(t, input)

	var out bytes.Buffer
	machine := New()
	machine.SetOutput(&out)
	_, err := machine.Run(fn)
	if err == nil {
		t.Fatalf("expected runtime fault for %q, output was %q", input, out.String())
	}
	d, ok := err.(diagnostics.Diagnostic)
	if !ok {
		t.Fatalf("fault is %T, want diagnostics.Diagnostic", err)
	}
	if out.Len() > 0 {
		t.Errorf("faulting program printed %q before the fault", out.String())
	}
	return d
}

// E5: division by zero faults with the line of the division and prints
// nothing.
func TestDivisionByZeroFault(t *testing.T) {
	d := runError(t, "da 1 / 0")
	if !strings.Contains(d.Message, "division by zero") {
		t.Errorf("unexpected message %q", d.Message)
	}
	if d.Line != 1 {
		t.Errorf("fault attributed to line %d, want 1", d.Line)
	}
}

func TestFaultLineAttribution(t *testing.T) {
	d := runError(t, "ao a = 1\nao b = 0\nda a / b")
	if d.Line != 3 {
		t.Errorf("fault attributed to line %d, want 3", d.Line)
	}
}

func TestRuntimeFaults(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"undefined global read", "da missing", "undefined variable"},
		{"undefined global write", "missing = 1", "undefined variable"},
		{"modulo by zero", "ao z = 0\nda 1 % z", "modulo by zero"},
		{"subtract strings", `da "a" - "b"`, "must be numbers"},
		{"negate string", `da -"x"`, "must be a number"},
		{"compare mixed types", `da 1 < "2"`, "must be numbers"},
		{"call a number", "ao x = 3\nx(1)", "can only call functions and classes"},
		{"call nil", "wang()", "can only call functions and classes"},
		{"property on number", "ao x = 1\nda x.y", "only instances and objects have properties"},
		{"property on nil", "ao x = wang\nda x.y", "only instances and objects have properties"},
		{"undefined object property", "ao o = {a: 1}\nda o.b", "undefined property"},
		{"index a bool", "ao b = jing\nda b[0]", "cannot index"},
		{"write into string", `ao s = "abc"` + "\n" + `s[0] = "z"`, "strings are immutable"},
		{"negative array write", "ao a = [1]\na[-1] = 2", "out of range"},
		{"increment non-number", "samrap i = 0 thueng 3\n  i = wang\njob", "cannot increment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := runError(t, tt.input)
			if !strings.Contains(d.Message, tt.wantMsg) {
				t.Errorf("fault %q does not mention %q", d.Message, tt.wantMsg)
			}
		})
	}
}

// Closure arity: a wrong-count call faults and pushes no frame.
func TestClosureArityFault(t *testing.T) {
	d := runError(t, "kian f(a, b)\n  kuun a\njob\nf(1)")
	if !strings.Contains(d.Message, "expected 2 arguments but got 1") {
		t.Errorf("unexpected message %q", d.Message)
	}

	d = runError(t, "kian f()\n  kuun 1\njob\nf(1, 2)")
	if !strings.Contains(d.Message, "expected 0 arguments but got 2") {
		t.Errorf("unexpected message %q", d.Message)
	}
}

// Undefined instance property access faults; assignment creates the field
// instead.
func TestInstancePropertyFaults(t *testing.T) {
	d := runError(t, `
klum K
job
ao k = mai K()
da k.missing
`)
	if !strings.Contains(d.Message, "undefined property") {
		t.Errorf("unexpected message %q", d.Message)
	}

	// Set creates the field, no fault.
	expectLines(t, `
klum K
job
ao k = mai K()
k.fresh = 1
da k.fresh
`, "1")
}

// A class without an initializer refuses arguments.
func TestClassArgsWithoutInitializer(t *testing.T) {
	d := runError(t, "klum K\njob\nao k = mai K(1)")
	if !strings.Contains(d.Message, "no sang") {
		t.Errorf("unexpected message %q", d.Message)
	}
}

// Frame-stack exhaustion is a fatal fault; recursion depth is bounded by
// frame capacity.
func TestFrameStackOverflow(t *testing.T) {
	d := runError(t, "kian f()\n  kuun f()\njob\nf()")
	if !strings.Contains(d.Message, "stack overflow") {
		t.Errorf("unexpected message %q", d.Message)
	}
}

// The fault hook sees the formatted message before Run returns.
func TestFaultHook(t *testing.T) {
	fn := compile(t, "da 1 / 0")

	var hooked string
	machine := New()
	machine.SetOutput(&bytes.Buffer{})
	machine.SetFaultHandler(func(msg string) { hooked = msg })

	if _, err := machine.Run(fn); err == nil {
		t.Fatal("expected fault")
	}
	if !strings.Contains(hooked, "division by zero") || !strings.Contains(hooked, "line 1") {
		t.Errorf("hook received %q", hooked)
	}
}

// A faulted VM can host a fresh run afterwards.
func TestRunAfterFault(t *testing.T) {
	machine := New()
	var out bytes.Buffer
	machine.SetOutput(&out)

	bad := compile(t, "da 1 / 0")
	if _, err := machine.Run(bad); err == nil {
		t.Fatal("expected fault")
	}

	good := compile(t, "da 2 + 2")
	if _, err := machine.Run(good); err != nil {
		t.Fatalf("fresh run failed: %s", err)
	}
	if got := out.String(); got != "4\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestNativeErrorBecomesFault(t *testing.T) {
	fn := compile(t, "boom()")

	machine := New()
	machine.SetOutput(&bytes.Buffer{})
	machine.RegisterNative(&NativeFunction{
		Name:  "boom",
		Arity: 0,
		Fn: func(args []Value) (Value, error) {
			return NilVal(), errors.New("it broke")
		},
	})
	_, err := machine.Run(fn)
	if err == nil {
		t.Fatal("expected fault from native error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("fault %q does not name the native", err.Error())
	}
}
