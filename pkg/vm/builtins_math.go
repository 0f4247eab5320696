package vm

import (
	"maps"
	"math"
	"math/rand/v2"
	"slices"
)

// registerMathBuiltins installs the Math object.
func (vm *VM) registerMathBuiltins() {
	unary := func(f func(float64) float64) BuiltinFunc {
		return func(v *VM, args []any) (any, error) {
			return f(ToNumber(argAt(args, 0))), nil
		}
	}

	m := newNamespace(map[string]BuiltinFunc{
		"floor": unary(math.Floor),
		"ceil":  unary(math.Ceil),
		"trunc": unary(math.Trunc),
		"abs":   unary(math.Abs),
		"sqrt":  unary(math.Sqrt),
		"sin":   unary(math.Sin),
		"cos":   unary(math.Cos),
		"tan":   unary(math.Tan),
		"log":   unary(math.Log),
		"exp":   unary(math.Exp),
		// Halves round toward +Infinity.
		"round": unary(func(x float64) float64 { return math.Floor(x + 0.5) }),
		"sign": unary(func(x float64) float64 {
			switch {
			case x > 0:
				return 1
			case x < 0:
				return -1
			}
			return x
		}),
		"pow": func(v *VM, args []any) (any, error) {
			return math.Pow(ToNumber(argAt(args, 0)), ToNumber(argAt(args, 1))), nil
		},
		"atan2": func(v *VM, args []any) (any, error) {
			return math.Atan2(ToNumber(argAt(args, 0)), ToNumber(argAt(args, 1))), nil
		},
		"min": func(v *VM, args []any) (any, error) {
			result := math.Inf(1)
			for _, a := range args {
				n := ToNumber(a)
				if math.IsNaN(n) {
					return math.NaN(), nil
				}
				result = math.Min(result, n)
			}
			return result, nil
		},
		"max": func(v *VM, args []any) (any, error) {
			result := math.Inf(-1)
			for _, a := range args {
				n := ToNumber(a)
				if math.IsNaN(n) {
					return math.NaN(), nil
				}
				result = math.Max(result, n)
			}
			return result, nil
		},
		"random": func(v *VM, args []any) (any, error) {
			return rand.Float64(), nil
		},
	})
	m.props["PI"] = math.Pi
	m.props["E"] = math.E
	m.keys = append(m.keys, "PI", "E")
	m.Freeze()
	vm.RegisterGlobal("Math", m)

	vm.RegisterGlobal("NaN", math.NaN())
	vm.RegisterGlobal("Infinity", math.Inf(1))
	vm.RegisterGlobal("undefined", Undefined)
}

// newNamespace builds an object holding native functions in name order.
func newNamespace(fns map[string]BuiltinFunc) *Object {
	obj := NewObject()
	for _, name := range slices.Sorted(maps.Keys(fns)) {
		obj.Set(name, &Builtin{Name: name, Fn: fns[name]})
	}
	return obj
}
