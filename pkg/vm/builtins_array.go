package vm

import (
	"slices"
	"strings"
)

// registerArrayBuiltins registers the Array and Object globals.
func (vm *VM) registerArrayBuiltins() {
	array := newNamespace(map[string]BuiltinFunc{
		"isArray": func(v *VM, args []any) (any, error) {
			_, ok := argAt(args, 0).(*Array)
			return ok, nil
		},
		"of": func(v *VM, args []any) (any, error) {
			return NewArrayFromSlice(append([]any(nil), args...)), nil
		},
	})
	array.Freeze()
	vm.RegisterGlobal("Array", array)

	object := newNamespace(map[string]BuiltinFunc{
		"keys": func(v *VM, args []any) (any, error) {
			keys := ownKeys(argAt(args, 0))
			elems := make([]any, len(keys))
			for i, k := range keys {
				elems[i] = k
			}
			return NewArrayFromSlice(elems), nil
		},
		"values": func(v *VM, args []any) (any, error) {
			obj := argAt(args, 0)
			var elems []any
			for _, k := range ownKeys(obj) {
				val, err := v.getProperty(obj, k)
				if err != nil {
					return nil, err
				}
				elems = append(elems, val)
			}
			return NewArrayFromSlice(elems), nil
		},
		"entries": func(v *VM, args []any) (any, error) {
			obj := argAt(args, 0)
			var elems []any
			for _, k := range ownKeys(obj) {
				val, err := v.getProperty(obj, k)
				if err != nil {
					return nil, err
				}
				elems = append(elems, NewArrayFromSlice([]any{k, val}))
			}
			return NewArrayFromSlice(elems), nil
		},
		"freeze": func(v *VM, args []any) (any, error) {
			if obj, ok := argAt(args, 0).(*Object); ok {
				obj.Freeze()
			}
			return argAt(args, 0), nil
		},
		"isFrozen": func(v *VM, args []any) (any, error) {
			if obj, ok := argAt(args, 0).(*Object); ok {
				return obj.Frozen(), nil
			}
			return isPrimitive(argAt(args, 0)), nil
		},
	})
	object.Freeze()
	vm.RegisterGlobal("Object", object)
}

// ownKeys returns the enumerable keys of a script value.
func ownKeys(v any) []string {
	switch o := v.(type) {
	case *Object:
		return o.Keys()
	case *Array:
		keys := make([]string, o.Len())
		for i := range keys {
			keys[i] = FormatNumber(float64(i))
		}
		return keys
	case string:
		keys := make([]string, len([]rune(o)))
		for i := range keys {
			keys[i] = FormatNumber(float64(i))
		}
		return keys
	}
	return nil
}

// arrayMethod returns the bound method name of arr, or undefined.
func (vm *VM) arrayMethod(arr *Array, name string) any {
	var fn BuiltinFunc

	// each calls f for every element with (element, index, array).
	each := func(v *VM, f any, visit func(i int, el, result any) bool) error {
		if !isCallable(f) {
			return v.throwError(KindTypeError, "%s is not a function", ToString(f))
		}
		for i, el := range arr.ToSlice() {
			result, err := v.CallValue(f, Undefined, []any{el, float64(i), arr})
			if err != nil {
				return err
			}
			if !visit(i, el, result) {
				break
			}
		}
		return nil
	}

	switch name {
	case "push":
		fn = func(v *VM, args []any) (any, error) { return float64(arr.Push(args...)), nil }
	case "pop":
		fn = func(v *VM, args []any) (any, error) { return arr.Pop(), nil }
	case "shift":
		fn = func(v *VM, args []any) (any, error) { return arr.Shift(), nil }
	case "unshift":
		fn = func(v *VM, args []any) (any, error) { return float64(arr.Unshift(args...)), nil }
	case "indexOf":
		fn = func(v *VM, args []any) (any, error) {
			elems := arr.ToSlice()
			for i := clampIndex(argAt(args, 1), len(elems), 0); i < len(elems); i++ {
				if StrictEquals(elems[i], argAt(args, 0)) {
					return float64(i), nil
				}
			}
			return -1.0, nil
		}
	case "includes":
		fn = func(v *VM, args []any) (any, error) {
			target := argAt(args, 0)
			return slices.ContainsFunc(arr.ToSlice(), func(el any) bool {
				if a, ok := el.(float64); ok && a != a {
					b, ok := target.(float64)
					return ok && b != b
				}
				return StrictEquals(el, target)
			}), nil
		}
	case "join":
		fn = func(v *VM, args []any) (any, error) {
			sep := ","
			if argAt(args, 0) != Undefined {
				sep = ToString(argAt(args, 0))
			}
			elems := arr.ToSlice()
			parts := make([]string, len(elems))
			for i, el := range elems {
				if !isNullish(el) {
					parts[i] = ToString(el)
				}
			}
			return strings.Join(parts, sep), nil
		}
	case "slice":
		fn = func(v *VM, args []any) (any, error) {
			elems := arr.ToSlice()
			start := clampIndex(argAt(args, 0), len(elems), 0)
			end := clampIndex(argAt(args, 1), len(elems), len(elems))
			if start >= end {
				return NewArray(0), nil
			}
			return NewArrayFromSlice(append([]any(nil), elems[start:end]...)), nil
		}
	case "splice":
		fn = func(v *VM, args []any) (any, error) {
			elems := arr.ToSlice()
			start := clampIndex(argAt(args, 0), len(elems), 0)
			count := len(elems) - start
			if len(args) > 1 {
				n, _ := toInt64(args[1])
				count = max(0, min(int(n), count))
			}
			removed := append([]any(nil), elems[start:start+count]...)
			var inserted []any
			if len(args) > 2 {
				inserted = args[2:]
			}
			rest := slices.Concat(elems[:start], inserted, elems[start+count:])
			arr.SetLen(0)
			arr.Push(rest...)
			return NewArrayFromSlice(removed), nil
		}
	case "concat":
		fn = func(v *VM, args []any) (any, error) {
			result := append([]any(nil), arr.ToSlice()...)
			for _, a := range args {
				if other, ok := a.(*Array); ok {
					result = append(result, other.ToSlice()...)
				} else {
					result = append(result, a)
				}
			}
			return NewArrayFromSlice(result), nil
		}
	case "reverse":
		fn = func(v *VM, args []any) (any, error) {
			elems := arr.ToSlice()
			slices.Reverse(elems)
			arr.SetLen(0)
			arr.Push(elems...)
			return arr, nil
		}
	case "sort":
		fn = func(v *VM, args []any) (any, error) {
			elems := arr.ToSlice()
			cmp := argAt(args, 0)
			var sortErr error
			slices.SortStableFunc(elems, func(a, b any) int {
				if sortErr != nil {
					return 0
				}
				if a == Undefined || b == Undefined {
					return boolCmp(a == Undefined, b == Undefined)
				}
				if cmp == Undefined {
					return strings.Compare(ToString(a), ToString(b))
				}
				r, err := v.CallValue(cmp, Undefined, []any{a, b})
				if err != nil {
					sortErr = err
					return 0
				}
				n := ToNumber(r)
				switch {
				case n < 0:
					return -1
				case n > 0:
					return 1
				}
				return 0
			})
			if sortErr != nil {
				return nil, sortErr
			}
			arr.SetLen(0)
			arr.Push(elems...)
			return arr, nil
		}
	case "forEach":
		fn = func(v *VM, args []any) (any, error) {
			return Undefined, each(v, argAt(args, 0), func(int, any, any) bool { return true })
		}
	case "map":
		fn = func(v *VM, args []any) (any, error) {
			var out []any
			err := each(v, argAt(args, 0), func(_ int, _, r any) bool {
				out = append(out, r)
				return true
			})
			return NewArrayFromSlice(out), err
		}
	case "filter":
		fn = func(v *VM, args []any) (any, error) {
			var out []any
			err := each(v, argAt(args, 0), func(_ int, el, r any) bool {
				if ToBoolean(r) {
					out = append(out, el)
				}
				return true
			})
			return NewArrayFromSlice(out), err
		}
	case "find":
		fn = func(v *VM, args []any) (any, error) {
			var found any = Undefined
			err := each(v, argAt(args, 0), func(_ int, el, r any) bool {
				if ToBoolean(r) {
					found = el
					return false
				}
				return true
			})
			return found, err
		}
	case "findIndex":
		fn = func(v *VM, args []any) (any, error) {
			found := -1
			err := each(v, argAt(args, 0), func(i int, _, r any) bool {
				if ToBoolean(r) {
					found = i
					return false
				}
				return true
			})
			return float64(found), err
		}
	case "some":
		fn = func(v *VM, args []any) (any, error) {
			found := false
			err := each(v, argAt(args, 0), func(_ int, _, r any) bool {
				found = ToBoolean(r)
				return !found
			})
			return found, err
		}
	case "every":
		fn = func(v *VM, args []any) (any, error) {
			all := true
			err := each(v, argAt(args, 0), func(_ int, _, r any) bool {
				all = ToBoolean(r)
				return all
			})
			return all, err
		}
	case "reduce":
		fn = func(v *VM, args []any) (any, error) {
			f := argAt(args, 0)
			if !isCallable(f) {
				return nil, v.throwError(KindTypeError, "%s is not a function", ToString(f))
			}
			elems := arr.ToSlice()
			start := 0
			var acc any
			if len(args) > 1 {
				acc = args[1]
			} else {
				if len(elems) == 0 {
					return nil, v.throwError(KindTypeError, "reduce of empty array with no initial value")
				}
				acc, start = elems[0], 1
			}
			for i := start; i < len(elems); i++ {
				r, err := v.CallValue(f, Undefined, []any{acc, elems[i], float64(i), arr})
				if err != nil {
					return nil, err
				}
				acc = r
			}
			return acc, nil
		}
	case "toString":
		fn = func(v *VM, args []any) (any, error) { return ToString(arr), nil }
	default:
		return Undefined
	}
	return &Builtin{Name: name, Fn: fn}
}

func boolCmp(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	}
	return -1
}
