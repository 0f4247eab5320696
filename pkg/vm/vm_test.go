package vm

import (
	"errors"
	"strings"
	"testing"

	"github.com/zurustar/procscript/pkg/compiler"
)

// run compiles src with yield guards and runs it to completion.
func run(t *testing.T, src string, opts ...Option) (*VM, error) {
	t.Helper()
	res, errs := compiler.Compile(src)
	if len(errs) > 0 {
		t.Fatalf("compile %q: %v", src, errs[0])
	}
	v := New(res.OpCodes, opts...)
	return v, v.Run()
}

// result runs src and returns the global named result.
func result(t *testing.T, src string, opts ...Option) any {
	t.Helper()
	v, err := run(t, src, opts...)
	if err != nil {
		t.Fatalf("run %q: %v", src, err)
	}
	got, ok := v.GetGlobal("result")
	if !ok {
		t.Fatalf("run %q: result is not defined", src)
	}
	return got
}

func TestExpressions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want any
	}{
		{"precedence", `var result = 1 + 2 * 3;`, 7.0},
		{"string concat", `var result = "a" + 1;`, "a1"},
		{"modulo", `var result = 7 % 3;`, 1.0},
		{"division", `var result = 10 / 4;`, 2.5},
		{"numeric strings multiply", `var result = "3" * "4";`, 12.0},
		{"loose equality", `var result = 1 == "1";`, true},
		{"strict equality", `var result = 1 === "1";`, false},
		{"nullish", `var result = null ?? "d";`, "d"},
		{"or returns operand", `var result = 0 || "x";`, "x"},
		{"and returns operand", `var result = 1 && "y";`, "y"},
		{"typeof undeclared", `var result = typeof nothing;`, "undefined"},
		{"typeof object", `var result = typeof {};`, "object"},
		{"typeof null", `var result = typeof null;`, "object"},
		{"typeof function", `var result = typeof function() {};`, "function"},
		{"conditional", `var result = 2 > 1 ? "yes" : "no";`, "yes"},
		{"string comparison", `var result = "apple" < "banana";`, true},
		{"compound assign", `var result = 5; result += 2;`, 7.0},
		{"updates", `var i = 1; var result = i++ + ++i;`, 4.0},
		{"toFixed", `var result = (0.1).toFixed(2);`, "0.10"},
		{"join", `var result = [1, 2, 3].join("-");`, "1-2-3"},
		{"toUpperCase", `var result = "Hello".toUpperCase();`, "HELLO"},
		{"split length", `var result = "a,b".split(",").length;`, 2.0},
		{"string index", `var result = "abc"[1];`, "b"},
		{"Math.max", `var result = Math.max(1, 5, 3);`, 5.0},
		{"parseInt prefix", `var result = parseInt("42px");`, 42.0},
		{"parseInt hex", `var result = parseInt("ff", 16);`, 255.0},
		{"infinity", `var result = String(1 / 0);`, "Infinity"},
		{"map", `var result = [1, 2, 3].map(function(x) { return x * 2; }).join(",");`, "2,4,6"},
		{"filter", `var result = [1, 2, 3, 4].filter(function(x) { return x % 2 == 0; }).length;`, 2.0},
		{"reduce", `var result = [1, 2, 3].reduce(function(a, b) { return a + b; }, 10);`, 16.0},
		{"array to string", `var result = "" + [1, [2, 3]];`, "1,2,3"},
		{"object to string", `var result = "" + {};`, "[object Object]"},
		{"stringify", `var result = JSON.stringify({b: 1, a: [true, null, undefined]});`, `{"b":1,"a":[true,null,null]}`},
		{"stringify omits undefined", `var result = JSON.stringify({a: undefined, f: function() {}, b: "x"});`, `{"b":"x"}`},
		{"parse keeps order", `var result = Object.keys(JSON.parse('{"z": 1, "a": 2}')).join(",");`, "z,a"},
		{"array length grows", `var a = []; a[3] = 1; var result = a.length;`, 4.0},
		{"new is a call", `var result = new Error("m").message;`, "m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := result(t, tt.src); got != tt.want {
				t.Errorf("result = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestControlFlow(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want any
	}{
		{
			"for with continue and break",
			`var s = 0;
			for (var i = 0; i < 10; i++) {
				if (i % 2) continue;
				if (i > 6) break;
				s += i;
			}
			var result = s;`,
			12.0,
		},
		{
			"switch falls through until break",
			`var x = 2, out = "";
			switch (x) {
			case 1: out += "a";
			case 2: out += "b";
			case 3: out += "c"; break;
			default: out += "d";
			}
			var result = out;`,
			"bc",
		},
		{
			"switch default",
			`var out = "";
			switch ("z") {
			case "a": out = "a"; break;
			default: out = "d";
			}
			var result = out;`,
			"d",
		},
		{
			"do while runs once before check",
			`var n = 10; do { n++; } while (n < 5); var result = n;`,
			11.0,
		},
		{
			"while with break",
			`var n = 0; while (true) { n++; if (n == 3) break; } var result = n;`,
			3.0,
		},
		{
			"return from inside loop",
			`function first(a) { for (var i = 0; i < a.length; i++) { if (a[i] > 2) return a[i]; } return -1; }
			var result = first([1, 5, 3]);`,
			5.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := result(t, tt.src); got != tt.want {
				t.Errorf("result = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestFunctionsAndScopes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want any
	}{
		{
			"closure keeps state",
			`function make() { var c = 0; return function() { c++; return c; }; }
			var f = make(); f(); f();
			var result = f();`,
			3.0,
		},
		{"function hoisting", `var result = add(2, 3); function add(a, b) { return a + b; }`, 5.0},
		{"var hoisting", `var result = typeof v; var v = 1;`, "undefined"},
		{"let is block scoped", `let x = 1; { let x = 2; } var result = x;`, 1.0},
		{"var is function scoped", `function f() { { var inner = 7; } return inner; } var result = f();`, 7.0},
		{"recursion", `function fib(n) { return n < 2 ? n : fib(n - 1) + fib(n - 2); } var result = fib(10);`, 55.0},
		{"this binding", `var o = {n: 4, get: function() { return this.n; }}; var result = o.get();`, 4.0},
		{
			"named function expression",
			`var f = function fact(n) { return n <= 1 ? 1 : n * fact(n - 1); }; var result = f(5);`,
			120.0,
		},
		{"missing arguments are undefined", `function f(a, b) { return typeof b; } var result = f(1);`, "undefined"},
		{"function name", `var g = function() {}; var result = g.name;`, "g"},
		{"assignment to undeclared creates global", `function f() { leaked = 9; } f(); var result = leaked;`, 9.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := result(t, tt.src); got != tt.want {
				t.Errorf("result = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestExceptions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want any
	}{
		{"property of null", `var result; try { null.x; } catch (e) { result = e.name; }`, "TypeError"},
		{"thrown value is caught", `var result; try { throw "boom"; } catch (e) { result = e; }`, "boom"},
		{
			"catch then finally",
			`var log = "";
			try { log += "t"; throw Error("x"); log += "!"; } catch (e) { log += "c"; } finally { log += "f"; }
			var result = log;`,
			"tcf",
		},
		{"undeclared read", `var result; try { var y = missing; } catch (e) { result = e.name; }`, "ReferenceError"},
		{"const reassignment", `const k = 1; var result; try { k = 2; } catch (e) { result = e.name; }`, "TypeError"},
		{"frozen object", `var o = Object.freeze({a: 1}); var result; try { o.a = 2; } catch (e) { result = e.name; }`, "TypeError"},
		{"call of non-function", `var result; try { var n = 1; n(); } catch (e) { result = e.name; }`, "TypeError"},
		{"error message", `var result; try { throw RangeError("too far"); } catch (e) { result = String(e); }`, "RangeError: too far"},
		{"rethrow from catch", `var result; try { try { throw 1; } catch (e) { throw e + 1; } } catch (e) { result = e; }`, 2.0},
		{"finally runs on return", `var log = ""; function f() { try { return 1; } finally { log = "f"; } } f(); var result = log;`, "f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := result(t, tt.src); got != tt.want {
				t.Errorf("result = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestUncaughtError(t *testing.T) {
	_, err := run(t, "var a = 1;\nthrow Error(\"bad\");")

	var se *ScriptError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *ScriptError", err)
	}
	if se.Line != 2 {
		t.Errorf("Line = %d, want 2", se.Line)
	}
	if se.Message != "Error: bad" {
		t.Errorf("Message = %q", se.Message)
	}
	if IsAbort(err) {
		t.Error("a script error must not be an abort")
	}
}

func TestStackTrace(t *testing.T) {
	src := "function inner() {\n  throw Error(\"deep\");\n}\nfunction outer() {\n  inner();\n}\nouter();"
	_, err := run(t, src)

	var se *ScriptError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *ScriptError", err)
	}
	want := []string{"at inner (line 2)", "at outer (line 5)", "at <main> (line 7)"}
	if strings.Join(se.Trace, "|") != strings.Join(want, "|") {
		t.Errorf("Trace = %v, want %v", se.Trace, want)
	}
}

func TestStackOverflow(t *testing.T) {
	_, err := run(t, `function f() { return f(); } f();`, WithMaxStackDepth(50))

	var se *ScriptError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *ScriptError", err)
	}
	if !strings.HasPrefix(se.Message, "RangeError") {
		t.Errorf("Message = %q, want a RangeError", se.Message)
	}
}

func TestDuplicateLet(t *testing.T) {
	_, err := run(t, `let a = 1; let a = 2;`)

	var se *ScriptError
	if !errors.As(err, &se) || !strings.HasPrefix(se.Message, "SyntaxError") {
		t.Fatalf("err = %v, want a SyntaxError", err)
	}
}

func TestGlobals(t *testing.T) {
	v, err := run(t, `var a = 1; let b = "two"; function c() {}`, WithGlobals(map[string]any{"host": 3}))
	if err != nil {
		t.Fatal(err)
	}

	got := strings.Join(v.Globals(), ",")
	if got != "a,b,c" {
		t.Errorf("Globals() = %q, want a,b,c", got)
	}

	if h, _ := v.GetGlobal("host"); h != 3.0 {
		t.Errorf("host = %#v, want 3", h)
	}

	if err := v.SetGlobal("a", int64(5)); err != nil {
		t.Fatal(err)
	}
	if a, _ := v.GetGlobal("a"); a != 5.0 {
		t.Errorf("a = %#v, want 5", a)
	}
}

func TestSetGlobalConst(t *testing.T) {
	v, err := run(t, `const k = 1;`)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.SetGlobal("k", 2.0); err == nil {
		t.Error("expected an error assigning a constant")
	}
}

func TestRunTwice(t *testing.T) {
	v, err := run(t, `var a = 1;`)
	if err != nil {
		t.Fatal(err)
	}
	if v.IsRunning() {
		t.Error("IsRunning() = true after Run returned")
	}
}

func TestRerunRedeclaresLexicals(t *testing.T) {
	v, err := run(t, `const limit = 3; let n = 1; var runs; if (runs === undefined) { runs = 0; } runs += n;`)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := v.Run(); err != nil {
			t.Fatalf("rerun %d: %v", i+1, err)
		}
	}
	if runs, _ := v.GetGlobal("runs"); runs != 3.0 {
		t.Errorf("runs = %#v, want 3", runs)
	}
	if got := strings.Join(v.Globals(), ","); got != "limit,n,runs" {
		t.Errorf("Globals() = %q, want limit,n,runs", got)
	}
}

func TestForLetBindings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want any
	}{
		{
			"closures capture each iteration",
			`var fs = [];
			for (let i = 0; i < 3; i++) { fs.push(function() { return i; }); }
			var result = fs[0]() + "" + fs[1]() + fs[2]();`,
			"012",
		},
		{
			"var loop shares one binding",
			`var fs = [];
			for (var i = 0; i < 3; i++) { fs.push(function() { return i; }); }
			var result = fs[0]() + "" + fs[1]() + fs[2]();`,
			"333",
		},
		{
			"body updates carry into the next iteration",
			`var seen = "";
			for (let i = 0; i < 6; i++) { seen += i; i++; }
			var result = seen;`,
			"024",
		},
		{
			"let is not visible after the loop",
			`for (let i = 0; i < 2; i++) {}
			var result = typeof i;`,
			"undefined",
		},
		{
			"body let is fresh each iteration",
			`var s = 0;
			for (let i = 0; i < 3; i++) { let d = i * 2; s += d; }
			var result = s;`,
			6.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := result(t, tt.src); got != tt.want {
				t.Errorf("result = %#v, want %#v", got, tt.want)
			}
		})
	}
}
