package parser

import (
	"testing"

	"github.com/pasalang/pasa/internal/ast"
	"github.com/pasalang/pasa/internal/diagnostics"
	"github.com/pasalang/pasa/internal/lexer"
)

func parseProgram(t *testing.T, input string) *ast.Program {
	t.Helper()
	diags := diagnostics.NewList()
	toks := lexer.New(input, diags).Tokenize()
	if diags.HasErrors() {
		t.Fatalf("lexer error: %s", diags.Err())
	}
	program := New(toks, diags).ParseProgram()
	if diags.HasErrors() {
		t.Fatalf("parser error: %s", diags.Err())
	}
	return program
}

func TestVarStatement(t *testing.T) {
	program := parseProgram(t, "ao x = 10")
	if len(program.Statements) != 1 {
		t.Fatalf("got %d statements", len(program.Statements))
	}
	stmt, ok := program.Statements[0].(*ast.VarStatement)
	if !ok {
		t.Fatalf("got %T", program.Statements[0])
	}
	if stmt.Name.Value != "x" {
		t.Errorf("name = %q", stmt.Name.Value)
	}
	if lit, ok := stmt.Value.(*ast.NumberLiteral); !ok || lit.Value != 10 {
		t.Errorf("value = %#v", stmt.Value)
	}
}

func TestVarWithoutInitializer(t *testing.T) {
	program := parseProgram(t, "ao x")
	stmt := program.Statements[0].(*ast.VarStatement)
	if stmt.Value != nil {
		t.Errorf("expected nil initializer, got %#v", stmt.Value)
	}
}

func TestPrintMultiple(t *testing.T) {
	program := parseProgram(t, "da 1, 2, 3")
	stmt := program.Statements[0].(*ast.PrintStatement)
	if len(stmt.Values) != 3 {
		t.Errorf("got %d print values", len(stmt.Values))
	}
}

func TestOperatorPrecedence(t *testing.T) {
	// 1 + 2 * 3 parses as 1 + (2 * 3)
	program := parseProgram(t, "da 1 + 2 * 3")
	stmt := program.Statements[0].(*ast.PrintStatement)
	add := stmt.Values[0].(*ast.InfixExpression)
	if add.Operator != "+" {
		t.Fatalf("outer operator %q", add.Operator)
	}
	mul := add.Right.(*ast.InfixExpression)
	if mul.Operator != "*" {
		t.Errorf("inner operator %q", mul.Operator)
	}
}

func TestPowerRightAssociative(t *testing.T) {
	// 2 ** 3 ** 2 parses as 2 ** (3 ** 2)
	program := parseProgram(t, "da 2 ** 3 ** 2")
	stmt := program.Statements[0].(*ast.PrintStatement)
	outer := stmt.Values[0].(*ast.InfixExpression)
	if _, ok := outer.Right.(*ast.InfixExpression); !ok {
		t.Errorf("power is not right-associative: %#v", outer.Right)
	}
}

func TestIfElseChain(t *testing.T) {
	input := `
tha x == 1
  da "one"
uen tha x == 2
  da "two"
uen
  da "many"
job
`
	program := parseProgram(t, input)
	stmt := program.Statements[0].(*ast.IfStatement)
	chained, ok := stmt.Alternative.(*ast.IfStatement)
	if !ok {
		t.Fatalf("alternative is %T, want chained if", stmt.Alternative)
	}
	if _, ok := chained.Alternative.(*ast.BlockStatement); !ok {
		t.Errorf("final else is %T, want block", chained.Alternative)
	}
}

func TestWhileAndFor(t *testing.T) {
	program := parseProgram(t, "wonn i < 3\n  da i\njob")
	if _, ok := program.Statements[0].(*ast.WhileStatement); !ok {
		t.Fatalf("got %T", program.Statements[0])
	}

	program = parseProgram(t, "samrap i = 0 thueng 10 khan 2\n  da i\njob")
	forStmt, ok := program.Statements[0].(*ast.ForStatement)
	if !ok {
		t.Fatalf("got %T", program.Statements[0])
	}
	if forStmt.Step == nil {
		t.Error("step was not parsed")
	}

	program = parseProgram(t, "samrap i = 0 thueng 3\n  da i\njob")
	forStmt = program.Statements[0].(*ast.ForStatement)
	if forStmt.Step != nil {
		t.Error("absent step should be nil")
	}
}

func TestFunctionDeclaration(t *testing.T) {
	program := parseProgram(t, "kian add(a, b)\n  kuun a + b\njob")
	fn := program.Statements[0].(*ast.FunctionStatement)
	if fn.Name.Value != "add" || len(fn.Parameters) != 2 {
		t.Errorf("fn = %q params = %d", fn.Name.Value, len(fn.Parameters))
	}
	ret, ok := fn.Body.Statements[0].(*ast.ReturnStatement)
	if !ok || ret.Value == nil {
		t.Errorf("body = %#v", fn.Body.Statements[0])
	}
}

func TestAsyncFunctionFlag(t *testing.T) {
	program := parseProgram(t, "prom kian fetch()\n  kuun 1\njob")
	fn := program.Statements[0].(*ast.FunctionStatement)
	if !fn.IsAsync {
		t.Error("IsAsync not set")
	}
}

func TestAnonymousFunctionExpression(t *testing.T) {
	program := parseProgram(t, "ao f = kian(x)\n  kuun x\njob")
	stmt := program.Statements[0].(*ast.VarStatement)
	if _, ok := stmt.Value.(*ast.FunctionLiteral); !ok {
		t.Errorf("value = %T", stmt.Value)
	}
}

func TestClassDeclaration(t *testing.T) {
	input := `
klum Box
  kian sang(v)
    ni.v = v
  job
  kian get()
    kuun ni.v
  job
job
`
	program := parseProgram(t, input)
	class := program.Statements[0].(*ast.ClassStatement)
	if class.Name.Value != "Box" || len(class.Methods) != 2 {
		t.Fatalf("class %q with %d methods", class.Name.Value, len(class.Methods))
	}
	if class.Methods[0].Name.Value != "sang" {
		t.Errorf("first method %q", class.Methods[0].Name.Value)
	}
}

func TestNewExpression(t *testing.T) {
	program := parseProgram(t, "ao b = mai Box(7)")
	stmt := program.Statements[0].(*ast.VarStatement)
	newExpr, ok := stmt.Value.(*ast.NewExpression)
	if !ok {
		t.Fatalf("value = %T", stmt.Value)
	}
	if len(newExpr.Arguments) != 1 {
		t.Errorf("args = %d", len(newExpr.Arguments))
	}
}

func TestSwitchStatement(t *testing.T) {
	input := `
cheek x
  karani 1: da "one"
  karani 2: da "two"
  pokati: da "other"
job
`
	program := parseProgram(t, input)
	sw := program.Statements[0].(*ast.SwitchStatement)
	if len(sw.Cases) != 2 {
		t.Errorf("cases = %d", len(sw.Cases))
	}
	if sw.Default == nil {
		t.Error("default missing")
	}
}

func TestSwitchMultiLineCaseBody(t *testing.T) {
	input := `
cheek x
  karani 1:
    da "a"
    da "b"
  karani 2: da "c"
job
`
	program := parseProgram(t, input)
	sw := program.Statements[0].(*ast.SwitchStatement)
	if len(sw.Cases[0].Body) != 2 {
		t.Errorf("first case body has %d statements", len(sw.Cases[0].Body))
	}
}

func TestTryCatch(t *testing.T) {
	input := `
long
  da 1
jap e
  da 2
job
`
	program := parseProgram(t, input)
	try := program.Statements[0].(*ast.TryStatement)
	if try.CatchName == nil || try.CatchName.Value != "e" {
		t.Errorf("catch name = %#v", try.CatchName)
	}
}

func TestAssignmentTargets(t *testing.T) {
	program := parseProgram(t, "x = 1\no.f = 2\na[0] = 3")
	for i, wantTarget := range []interface{}{
		&ast.Identifier{}, &ast.MemberExpression{}, &ast.IndexExpression{},
	} {
		stmt := program.Statements[i].(*ast.ExpressionStatement)
		assign, ok := stmt.Expression.(*ast.AssignExpression)
		if !ok {
			t.Fatalf("statement %d is %T", i, stmt.Expression)
		}
		switch wantTarget.(type) {
		case *ast.Identifier:
			_, ok = assign.Target.(*ast.Identifier)
		case *ast.MemberExpression:
			_, ok = assign.Target.(*ast.MemberExpression)
		case *ast.IndexExpression:
			_, ok = assign.Target.(*ast.IndexExpression)
		}
		if !ok {
			t.Errorf("statement %d target is %T", i, assign.Target)
		}
	}
}

func TestInvalidAssignmentTarget(t *testing.T) {
	diags := diagnostics.NewList()
	toks := lexer.New("1 = 2", diags).Tokenize()
	New(toks, diags).ParseProgram()
	if !diags.HasErrors() {
		t.Error("expected a parse error for invalid assignment target")
	}
}

func TestArrayAndObjectLiterals(t *testing.T) {
	program := parseProgram(t, "ao a = [1, 2, 3]")
	stmt := program.Statements[0].(*ast.VarStatement)
	arr := stmt.Value.(*ast.ArrayLiteral)
	if len(arr.Elements) != 3 {
		t.Errorf("elements = %d", len(arr.Elements))
	}

	program = parseProgram(t, `ao o = {a: 1, "b c": 2, [k]: 3}`)
	stmt = program.Statements[0].(*ast.VarStatement)
	obj := stmt.Value.(*ast.ObjectLiteral)
	if len(obj.Entries) != 3 {
		t.Fatalf("entries = %d", len(obj.Entries))
	}
	if _, ok := obj.Entries[2].Key.(*ast.Identifier); !ok {
		t.Errorf("computed key parsed as %T", obj.Entries[2].Key)
	}
}

func TestMultilineLiterals(t *testing.T) {
	input := "ao a = [\n  1,\n  2\n]\nao o = {\n  a: 1,\n  b: 2\n}"
	program := parseProgram(t, input)
	if len(program.Statements) != 2 {
		t.Fatalf("got %d statements", len(program.Statements))
	}
}

func TestTernary(t *testing.T) {
	program := parseProgram(t, "da a ? 1 : 2")
	stmt := program.Statements[0].(*ast.PrintStatement)
	if _, ok := stmt.Values[0].(*ast.TernaryExpression); !ok {
		t.Errorf("got %T", stmt.Values[0])
	}
}

func TestAwaitAndSpread(t *testing.T) {
	program := parseProgram(t, "da ro f(...xs)")
	stmt := program.Statements[0].(*ast.PrintStatement)
	await, ok := stmt.Values[0].(*ast.AwaitExpression)
	if !ok {
		t.Fatalf("got %T", stmt.Values[0])
	}
	call := await.Value.(*ast.CallExpression)
	if _, ok := call.Arguments[0].(*ast.SpreadExpression); !ok {
		t.Errorf("argument is %T", call.Arguments[0])
	}
}

func TestParserRecovery(t *testing.T) {
	// A bad line records an error and parsing resumes on the next line.
	diags := diagnostics.NewList()
	toks := lexer.New("ao = 5\nda 1", diags).Tokenize()
	program := New(toks, diags).ParseProgram()
	if !diags.HasErrors() {
		t.Fatal("expected parse errors")
	}
	if len(program.Statements) != 1 {
		t.Errorf("expected the good statement to survive, got %d", len(program.Statements))
	}
}
