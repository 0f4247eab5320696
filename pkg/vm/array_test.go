package vm

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestArrayGrowsWithUndefined(t *testing.T) {
	a := NewArray(0)
	a.Set(2, "x")

	if a.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", a.Len())
	}
	for i := int64(0); i < 2; i++ {
		if v, _ := a.Get(i); v != Undefined {
			t.Errorf("a[%d] = %v, want undefined", i, v)
		}
	}
	if v, ok := a.Get(5); ok || v != Undefined {
		t.Errorf("Get(5) = %v, %v", v, ok)
	}
}

func TestArrayEnds(t *testing.T) {
	a := NewArrayFromSlice([]any{2.0})
	a.Push(3.0)
	a.Unshift(1.0)

	if got := ToString(a); got != "1,2,3" {
		t.Fatalf("array = %s", got)
	}
	if v := a.Shift(); v != 1.0 {
		t.Errorf("Shift() = %v", v)
	}
	if v := a.Pop(); v != 3.0 {
		t.Errorf("Pop() = %v", v)
	}
	a.SetLen(0)
	if v := a.Pop(); v != Undefined {
		t.Errorf("Pop() on empty = %v", v)
	}
}

func TestArrayMethods(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want any
	}{
		{"push returns length", `var a = [1]; var result = a.push(2, 3);`, 3.0},
		{"indexOf", `var result = [1, 2, 3].indexOf(3);`, 2.0},
		{"indexOf missing", `var result = ["a"].indexOf("b");`, -1.0},
		{"includes NaN", `var result = [NaN].includes(NaN);`, true},
		{"slice negative", `var result = [1, 2, 3, 4].slice(-2).join();`, "3,4"},
		{"splice", `var a = [1, 2, 3, 4]; var r = a.splice(1, 2, "x"); var result = a.join() + "|" + r.join();`, "1,x,4|2,3"},
		{"concat", `var result = [1].concat([2, 3], 4).join();`, "1,2,3,4"},
		{"reverse in place", `var a = [1, 2, 3]; a.reverse(); var result = a.join();`, "3,2,1"},
		{"sort default is by string", `var result = [10, 9, 1].sort().join();`, "1,10,9"},
		{"sort with comparator", `var result = [10, 9, 1].sort(function(a, b) { return a - b; }).join();`, "1,9,10"},
		{"find", `var result = [1, 5, 8].find(function(x) { return x > 4; });`, 5.0},
		{"findIndex", `var result = [1, 5, 8].findIndex(function(x) { return x > 6; });`, 2.0},
		{"some", `var result = [1, 2].some(function(x) { return x == 2; });`, true},
		{"every", `var result = [1, 2].every(function(x) { return x == 2; });`, false},
		{"forEach", `var s = 0; [1, 2, 3].forEach(function(x, i) { s += x * i; }); var result = s;`, 8.0},
		{"length truncates", `var a = [1, 2, 3]; a.length = 1; var result = a.join();`, "1"},
		{"Array.isArray", `var result = Array.isArray([]) && !Array.isArray({});`, true},
		{"Object.keys", `var result = Object.keys({b: 1, a: 2}).join();`, "b,a"},
		{"Object.entries", `var result = JSON.stringify(Object.entries({k: "v"}));`, `[["k","v"]]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := result(t, tt.src); got != tt.want {
				t.Errorf("result = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestCallbackErrorsPropagate(t *testing.T) {
	got := result(t, `var result;
try {
  [1, 2].map(function(x) { throw "stop at " + x; });
} catch (e) {
  result = e;
}`)
	if got != "stop at 1" {
		t.Errorf("result = %#v", got)
	}
}

func TestPropertyPushPop(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("pop returns pushed values in reverse order", prop.ForAll(
		func(values []float64) bool {
			a := NewArray(0)
			for _, v := range values {
				a.Push(v)
			}
			for i := len(values) - 1; i >= 0; i-- {
				if a.Pop() != values[i] {
					return false
				}
			}
			return a.Len() == 0
		},
		gen.SliceOf(gen.Float64Range(-1e9, 1e9)),
	))

	properties.Property("set beyond the end pads with undefined", prop.ForAll(
		func(n int) bool {
			a := NewArray(0)
			a.Set(int64(n), true)
			if a.Len() != n+1 {
				return false
			}
			for i := 0; i < n; i++ {
				if v, _ := a.Get(int64(i)); v != Undefined {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 200),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
