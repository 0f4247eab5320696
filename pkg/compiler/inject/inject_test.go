package inject

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zurustar/procscript/pkg/compiler/lexer"
	"github.com/zurustar/procscript/pkg/compiler/parser"
)

func parse(t *testing.T, src string) *parser.Program {
	t.Helper()
	program, errs := parser.New(lexer.New(src)).ParseProgram()
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	return program
}

func TestInstrumentLoops(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		guards int
		lines  []int
	}{
		{"no loops", "var a = 1;\nprint(a);", 0, nil},
		{"while", "while (true) {}", 1, []int{1}},
		{"do while", "var i = 0;\ndo { i++; } while (i < 3);", 1, []int{2}},
		{"for", "\n\nfor (var i = 0; i < 5; i++) { x = i; }", 1, []int{3}},
		{"nested", "while (a) {\n  for (;;) {\n    do {} while (b)\n  }\n}", 3, []int{1, 2, 3}},
		{"function body", "function f() {\n  while (x) {}\n}", 1, []int{2}},
		{"function expression", "var f = function () {\n  for (;;) {}\n};", 1, []int{2}},
		{"callback argument", "run(function () {\n  while (1) {}\n});", 1, []int{2}},
		{"if and try", "if (a) { while (b) {} } else { try { for(;;){} } catch (e) { while (c) {} } }", 3, []int{1, 1, 1}},
		{"switch case", "switch (a) {\ncase 1:\n  while (b) {}\n}", 1, []int{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program := parse(t, tt.src)
			res := Instrument(program)
			if res.Guards != tt.guards {
				t.Fatalf("Guards = %d, want %d", res.Guards, tt.guards)
			}
			for i, line := range tt.lines {
				if res.Lines[i] != line {
					t.Errorf("Lines[%d] = %d, want %d", i, res.Lines[i], line)
				}
			}
		})
	}
}

func TestInstrumentRendersGuards(t *testing.T) {
	program := parse(t, `
	while (i < 3) { i++; }
	for (var j = 0; j < 2; j++) x = j;
	do { k--; } while (k > 0);
	`)
	Instrument(program)
	out := program.String()

	expected := []string{
		"while (__yield() && ((i < 3))) { (i++); }",
		"for (var j = 0; (j < 2); (j++)) { __yield(); x = j; }",
		"do { (k--); } while (__yield() && ((k > 0)));",
	}
	for _, want := range expected {
		if !strings.Contains(out, want) {
			t.Errorf("transformed source missing %q\n%s", want, out)
		}
	}
}

func TestInstrumentAssignsUniqueIDs(t *testing.T) {
	program := parse(t, "while (a) {}\nwhile (b) { while (c) {} }")
	Instrument(program)

	seen := map[int]bool{}
	outer := program.Statements[0].(*parser.WhileStatement)
	second := program.Statements[1].(*parser.WhileStatement)
	inner := second.Body.(*parser.BlockStatement).Statements[0].(*parser.WhileStatement)
	for _, g := range []*parser.YieldGuard{outer.Guard, second.Guard, inner.Guard} {
		if g == nil {
			t.Fatal("loop without guard")
		}
		if seen[g.ID] {
			t.Errorf("duplicate guard id %d", g.ID)
		}
		seen[g.ID] = true
	}
}

func TestInstrumentIsIdempotent(t *testing.T) {
	program := parse(t, "for (;;) { while (x) {} }")
	first := Instrument(program)
	rendered := program.String()
	second := Instrument(program)

	if first.Guards != second.Guards {
		t.Errorf("guard count changed: %d then %d", first.Guards, second.Guards)
	}
	if program.String() != rendered {
		t.Errorf("second pass changed the program:\n%s\n%s", rendered, program.String())
	}
}

func TestInstrumentNilProgram(t *testing.T) {
	if res := Instrument(nil); res.Guards != 0 {
		t.Errorf("Guards = %d, want 0", res.Guards)
	}
}

// TestPropertyEveryLoopGuarded checks that any nesting of loop kinds gets
// exactly one guard per loop and renders one yield call per loop.
func TestPropertyEveryLoopGuarded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("one guard per loop", prop.ForAll(
		func(kinds []int) bool {
			src := nestedLoops(kinds)
			program, errs := parser.New(lexer.New(src)).ParseProgram()
			if len(errs) > 0 {
				return false
			}
			res := Instrument(program)
			if res.Guards != len(kinds) {
				return false
			}
			return strings.Count(program.String(), "__yield()") == len(kinds)
		},
		gen.SliceOf(gen.IntRange(0, 2)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// nestedLoops builds loops nested in the given order: 0 while, 1 for, 2 do-while.
func nestedLoops(kinds []int) string {
	var open, close strings.Builder
	for _, k := range kinds {
		switch k {
		case 0:
			open.WriteString("while (x) {\n")
		case 1:
			open.WriteString("for (var i = 0; i < 3; i++) {\n")
		default:
			open.WriteString("do {\n")
		}
	}
	for i := len(kinds) - 1; i >= 0; i-- {
		if kinds[i] == 2 {
			close.WriteString("} while (y);\n")
		} else {
			close.WriteString("}\n")
		}
	}
	return open.String() + "n++;\n" + close.String()
}
