package parser

import (
	"strings"
	"testing"

	"github.com/zurustar/procscript/pkg/compiler/lexer"
)

func parse(t *testing.T, input string) *Program {
	t.Helper()
	p := New(lexer.New(input))
	program, errs := p.ParseProgram()
	if len(errs) > 0 {
		for _, err := range errs {
			t.Errorf("parser error: %v", err)
		}
		t.FailNow()
	}
	return program
}

func TestVarStatements(t *testing.T) {
	program := parse(t, `var x = 1, y; let z = "a"; const k = 2`)

	if len(program.Statements) != 3 {
		t.Fatalf("program.Statements does not contain 3 statements. got=%d", len(program.Statements))
	}

	tests := []struct {
		kind  string
		names []string
	}{
		{"var", []string{"x", "y"}},
		{"let", []string{"z"}},
		{"const", []string{"k"}},
	}
	for i, tt := range tests {
		stmt, ok := program.Statements[i].(*VarStatement)
		if !ok {
			t.Fatalf("statement %d is not *VarStatement. got=%T", i, program.Statements[i])
		}
		if stmt.Kind != tt.kind {
			t.Errorf("statement %d kind = %q, want %q", i, stmt.Kind, tt.kind)
		}
		if strings.Join(stmt.Names, ",") != strings.Join(tt.names, ",") {
			t.Errorf("statement %d names = %v, want %v", i, stmt.Names, tt.names)
		}
	}

	first := program.Statements[0].(*VarStatement)
	if first.Values[1] != nil {
		t.Errorf("y should have no initializer, got %v", first.Values[1])
	}
}

func TestConstWithoutInitializer(t *testing.T) {
	p := New(lexer.New("const k;"))
	_, errs := p.ParseProgram()
	if len(errs) == 0 {
		t.Fatal("expected an error for const without initializer")
	}
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"a + b * c", "(a + (b * c));"},
		{"a * b + c", "((a * b) + c);"},
		{"-a * b", "((-a) * b);"},
		{"!a == b", "((!a) == b);"},
		{"a < b == c > d", "((a < b) == (c > d));"},
		{"a || b && c", "(a || (b && c));"},
		{"a ?? b || c", "(a ?? (b || c));"},
		{"a = b = c", "a = b = c;"},
		{"x += y * 2", "x += (y * 2);"},
		{"a ? b : c ? d : e", "(a ? b : (c ? d : e));"},
		{"f(a + b, c)[0].d", "f((a + b), c)[0].d;"},
		{"typeof a === \"number\"", "((typeof a) === \"number\");"},
		{"i++ + ++j", "((i++) + (++j));"},
		{"(a + b) * c", "((a + b) * c);"},
		{"a.b.c(d)", "a.b.c(d);"},
		{"a % b - c / d", "((a % b) - (c / d));"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			program := parse(t, tt.input)
			if got := strings.TrimSpace(program.String()); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestLiterals(t *testing.T) {
	program := parse(t, `x = [1, 0x10, .5, "s", true, null, undefined, {a: 1, "b": 2, default: 3,}];`)

	stmt := program.Statements[0].(*ExpressionStatement)
	assign, ok := stmt.Expression.(*AssignExpression)
	if !ok {
		t.Fatalf("expression is not *AssignExpression. got=%T", stmt.Expression)
	}
	arr, ok := assign.Value.(*ArrayLiteral)
	if !ok {
		t.Fatalf("value is not *ArrayLiteral. got=%T", assign.Value)
	}
	if len(arr.Elements) != 8 {
		t.Fatalf("array has %d elements, want 8", len(arr.Elements))
	}
	if n := arr.Elements[1].(*NumberLiteral); n.Value != 16 {
		t.Errorf("hex literal = %v, want 16", n.Value)
	}
	if n := arr.Elements[2].(*NumberLiteral); n.Value != 0.5 {
		t.Errorf("fraction literal = %v, want 0.5", n.Value)
	}
	obj, ok := arr.Elements[7].(*ObjectLiteral)
	if !ok {
		t.Fatalf("last element is not *ObjectLiteral. got=%T", arr.Elements[7])
	}
	if strings.Join(obj.Keys, ",") != "a,b,default" {
		t.Errorf("object keys = %v", obj.Keys)
	}
}

func TestIfElseStatement(t *testing.T) {
	program := parse(t, `
	if (x > 5) {
		y = 10;
	} else if (x > 2) y = 5; else {
		y = 0;
	}
	`)

	stmt, ok := program.Statements[0].(*IfStatement)
	if !ok {
		t.Fatalf("program.Statements[0] is not *IfStatement. got=%T", program.Statements[0])
	}
	if _, ok := stmt.Consequence.(*BlockStatement); !ok {
		t.Errorf("consequence is not a block. got=%T", stmt.Consequence)
	}
	nested, ok := stmt.Alternative.(*IfStatement)
	if !ok {
		t.Fatalf("alternative is not *IfStatement. got=%T", stmt.Alternative)
	}
	if _, ok := nested.Consequence.(*ExpressionStatement); !ok {
		t.Errorf("nested consequence is not an expression statement. got=%T", nested.Consequence)
	}
	if nested.Alternative == nil {
		t.Error("nested alternative is nil")
	}
}

func TestLoops(t *testing.T) {
	program := parse(t, `
	while (i < 10) { i++; }
	do { i--; } while (i > 0);
	for (let j = 0; j < 3; j++) { continue; }
	for (;;) break;
	`)

	if len(program.Statements) != 4 {
		t.Fatalf("program.Statements does not contain 4 statements. got=%d", len(program.Statements))
	}
	if _, ok := program.Statements[0].(*WhileStatement); !ok {
		t.Errorf("statement 0 is %T", program.Statements[0])
	}
	if _, ok := program.Statements[1].(*DoWhileStatement); !ok {
		t.Errorf("statement 1 is %T", program.Statements[1])
	}

	forStmt, ok := program.Statements[2].(*ForStatement)
	if !ok {
		t.Fatalf("statement 2 is %T", program.Statements[2])
	}
	if _, ok := forStmt.Init.(*VarStatement); !ok {
		t.Errorf("for init is %T", forStmt.Init)
	}
	if forStmt.Condition == nil || forStmt.Post == nil {
		t.Error("for condition or post is missing")
	}

	empty := program.Statements[3].(*ForStatement)
	if empty.Init != nil || empty.Condition != nil || empty.Post != nil {
		t.Error("for (;;) should have no header parts")
	}
	if _, ok := empty.Body.(*BreakStatement); !ok {
		t.Errorf("for body is %T", empty.Body)
	}
}

func TestFunctions(t *testing.T) {
	program := parse(t, `
	function add(a, b) {
		return a + b;
	}
	var twice = function (x) { return x * 2; };
	function nothing() { return }
	`)

	fn, ok := program.Statements[0].(*FunctionStatement)
	if !ok {
		t.Fatalf("statement 0 is %T", program.Statements[0])
	}
	if fn.Name != "add" || strings.Join(fn.Params, ",") != "a,b" {
		t.Errorf("function = %s(%v)", fn.Name, fn.Params)
	}

	decl := program.Statements[1].(*VarStatement)
	lit, ok := decl.Values[0].(*FunctionLiteral)
	if !ok {
		t.Fatalf("initializer is %T", decl.Values[0])
	}
	if len(lit.Params) != 1 {
		t.Errorf("literal params = %v", lit.Params)
	}

	empty := program.Statements[2].(*FunctionStatement)
	ret := empty.Body.Statements[0].(*ReturnStatement)
	if ret.Value != nil {
		t.Errorf("bare return has value %v", ret.Value)
	}
}

func TestReturnValueOnNextLine(t *testing.T) {
	program := parse(t, "function f() {\n return\n 1\n}")
	fn := program.Statements[0].(*FunctionStatement)
	if len(fn.Body.Statements) != 2 {
		t.Fatalf("body has %d statements, want 2", len(fn.Body.Statements))
	}
	if ret := fn.Body.Statements[0].(*ReturnStatement); ret.Value != nil {
		t.Error("return should not take a value from the next line")
	}
}

func TestTryCatchFinally(t *testing.T) {
	program := parse(t, `
	try { f(); } catch (e) { g(e); } finally { h(); }
	try { f(); } finally { h(); }
	try { f(); } catch { }
	`)

	full := program.Statements[0].(*TryStatement)
	if full.CatchParam != "e" || full.Catch == nil || full.Finally == nil {
		t.Errorf("full try = %s", full.String())
	}
	noCatch := program.Statements[1].(*TryStatement)
	if noCatch.Catch != nil || noCatch.Finally == nil {
		t.Errorf("try/finally = %s", noCatch.String())
	}
	bare := program.Statements[2].(*TryStatement)
	if bare.CatchParam != "" || bare.Catch == nil {
		t.Errorf("try/catch = %s", bare.String())
	}
}

func TestThrowStatement(t *testing.T) {
	program := parse(t, `throw "boom";`)
	stmt, ok := program.Statements[0].(*ThrowStatement)
	if !ok {
		t.Fatalf("statement is %T", program.Statements[0])
	}
	if s, ok := stmt.Value.(*StringLiteral); !ok || s.Value != "boom" {
		t.Errorf("thrown value = %v", stmt.Value)
	}
}

func TestNewIsAPlainCall(t *testing.T) {
	program := parse(t, `throw new Error("boom");`)
	stmt := program.Statements[0].(*ThrowStatement)
	call, ok := stmt.Value.(*CallExpression)
	if !ok {
		t.Fatalf("thrown value is %T, want *CallExpression", stmt.Value)
	}
	if len(call.Arguments) != 1 {
		t.Errorf("got %d arguments, want 1", len(call.Arguments))
	}
}

func TestSwitchStatement(t *testing.T) {
	program := parse(t, `
	switch (x) {
	case 1:
		y = 1;
		break;
	case 2:
	case 3:
		y = 2;
	default:
		y = 0;
	}
	`)

	stmt, ok := program.Statements[0].(*SwitchStatement)
	if !ok {
		t.Fatalf("statement is %T", program.Statements[0])
	}
	if len(stmt.Cases) != 4 {
		t.Fatalf("switch has %d cases, want 4", len(stmt.Cases))
	}
	if len(stmt.Cases[0].Body) != 2 {
		t.Errorf("case 1 has %d statements, want 2", len(stmt.Cases[0].Body))
	}
	if len(stmt.Cases[1].Body) != 0 {
		t.Errorf("case 2 should fall through with no statements")
	}
	if stmt.Cases[3].Value != nil {
		t.Error("last clause should be default")
	}
}

func TestStatementLines(t *testing.T) {
	program := parse(t, "var a = 1;\n\nwhile (a) {\n  a = 0;\n}\n")
	if line := program.Statements[0].(*VarStatement).Token.Line; line != 1 {
		t.Errorf("var line = %d, want 1", line)
	}
	loop := program.Statements[1].(*WhileStatement)
	if loop.Token.Line != 3 {
		t.Errorf("while line = %d, want 3", loop.Token.Line)
	}
	inner := loop.Body.(*BlockStatement).Statements[0].(*ExpressionStatement)
	if inner.Token.Line != 4 {
		t.Errorf("body line = %d, want 4", inner.Token.Line)
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		input string
		line  int
	}{
		{"var = 5;", 1},
		{"x = ;", 1},
		{"if (x {\n}", 1},
		{"a\n1 = 2;", 2},
		{"while (true) {\n", 1},
		{"try { }", 1},
		{"var s = \"open", 1},
		{"obj.;", 1},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p := New(lexer.New(tt.input))
			_, errs := p.ParseProgram()
			if len(errs) == 0 {
				t.Fatal("expected parser errors")
			}
			pe, ok := errs[0].(*ParserError)
			if !ok {
				t.Fatalf("error is %T, want *ParserError", errs[0])
			}
			if pe.Line != tt.line {
				t.Errorf("error line = %d, want %d (%v)", pe.Line, tt.line, pe)
			}
		})
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	program := parse(t, `
	// leading comment
	var a = 1; /* inline */ var b = 2;
	`)
	if len(program.Statements) != 2 {
		t.Fatalf("program.Statements does not contain 2 statements. got=%d", len(program.Statements))
	}
}
