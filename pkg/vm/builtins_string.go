package vm

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	intPrefix   = regexp.MustCompile(`^[+-]?[0-9a-zA-Z]+`)
	floatPrefix = regexp.MustCompile(`^[+-]?(Infinity|[0-9]+\.?[0-9]*([eE][+-]?[0-9]+)?|\.[0-9]+([eE][+-]?[0-9]+)?)`)

	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)
)

// registerStringBuiltins registers conversion functions and the String and Number globals.
func (vm *VM) registerStringBuiltins() {
	vm.RegisterBuiltinFunction("String", func(v *VM, args []any) (any, error) {
		if len(args) == 0 {
			return "", nil
		}
		return ToString(args[0]), nil
	})

	vm.RegisterBuiltinFunction("Number", func(v *VM, args []any) (any, error) {
		if len(args) == 0 {
			return 0.0, nil
		}
		return ToNumber(args[0]), nil
	})

	vm.RegisterBuiltinFunction("Boolean", func(v *VM, args []any) (any, error) {
		return ToBoolean(argAt(args, 0)), nil
	})

	vm.RegisterBuiltinFunction("parseInt", func(v *VM, args []any) (any, error) {
		radix := 10
		if r, ok := toInt64(argAt(args, 1)); ok && r != 0 {
			if r < 2 || r > 36 {
				return math.NaN(), nil
			}
			radix = int(r)
		}
		return parseIntPrefix(strings.TrimSpace(ToString(argAt(args, 0))), radix), nil
	})

	vm.RegisterBuiltinFunction("parseFloat", func(v *VM, args []any) (any, error) {
		s := floatPrefix.FindString(strings.TrimSpace(ToString(argAt(args, 0))))
		if s == "" {
			return math.NaN(), nil
		}
		return stringToNumber(s), nil
	})

	vm.RegisterBuiltinFunction("isNaN", func(v *VM, args []any) (any, error) {
		return math.IsNaN(ToNumber(argAt(args, 0))), nil
	})

	vm.RegisterBuiltinFunction("isFinite", func(v *VM, args []any) (any, error) {
		n := ToNumber(argAt(args, 0))
		return !math.IsNaN(n) && !math.IsInf(n, 0), nil
	})
}

// parseIntPrefix parses the longest valid integer prefix of s in radix.
func parseIntPrefix(s string, radix int) float64 {
	s = intPrefix.FindString(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if radix == 16 || radix == 10 {
		if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
			s, radix = s[2:], 16
		}
	}

	result, digits := 0.0, 0
	for _, r := range strings.ToLower(s) {
		var d int
		switch {
		case r >= '0' && r <= '9':
			d = int(r - '0')
		case r >= 'a' && r <= 'z':
			d = int(r-'a') + 10
		}
		if d >= radix {
			break
		}
		result = result*float64(radix) + float64(d)
		digits++
	}
	if digits == 0 {
		return math.NaN()
	}
	if neg {
		return -result
	}
	return result
}

// clampIndex resolves a relative index against length.
func clampIndex(v any, length int, def int) int {
	if v == Undefined {
		return def
	}
	n, ok := toInt64(v)
	if !ok {
		f := ToNumber(v)
		switch {
		case math.IsInf(f, 1):
			return length
		case math.IsInf(f, -1), math.IsNaN(f):
			return 0
		}
	}
	i := int(n)
	if i < 0 {
		i += length
	}
	return max(0, min(i, length))
}

// stringMethod returns the bound method name of s, or undefined.
func (vm *VM) stringMethod(s string, name string) any {
	runes := []rune(s)
	var fn BuiltinFunc

	switch name {
	case "charAt":
		fn = func(v *VM, args []any) (any, error) {
			i, ok := toInt64(argAt(args, 0))
			if argAt(args, 0) == Undefined {
				i, ok = 0, true
			}
			if !ok || i < 0 || int(i) >= len(runes) {
				return "", nil
			}
			return string(runes[i]), nil
		}
	case "charCodeAt":
		fn = func(v *VM, args []any) (any, error) {
			i, _ := toInt64(argAt(args, 0))
			if i < 0 || int(i) >= len(runes) {
				return math.NaN(), nil
			}
			return float64(runes[i]), nil
		}
	case "indexOf":
		fn = func(v *VM, args []any) (any, error) {
			return float64(runeIndex(runes, []rune(ToString(argAt(args, 0))), clampIndex(argAt(args, 1), len(runes), 0))), nil
		}
	case "lastIndexOf":
		fn = func(v *VM, args []any) (any, error) {
			sub := []rune(ToString(argAt(args, 0)))
			for i := len(runes) - len(sub); i >= 0; i-- {
				if string(runes[i:i+len(sub)]) == string(sub) {
					return float64(i), nil
				}
			}
			return -1.0, nil
		}
	case "includes":
		fn = func(v *VM, args []any) (any, error) {
			return strings.Contains(s, ToString(argAt(args, 0))), nil
		}
	case "startsWith":
		fn = func(v *VM, args []any) (any, error) {
			return strings.HasPrefix(s, ToString(argAt(args, 0))), nil
		}
	case "endsWith":
		fn = func(v *VM, args []any) (any, error) {
			return strings.HasSuffix(s, ToString(argAt(args, 0))), nil
		}
	case "slice":
		fn = func(v *VM, args []any) (any, error) {
			start := clampIndex(argAt(args, 0), len(runes), 0)
			end := clampIndex(argAt(args, 1), len(runes), len(runes))
			if start >= end {
				return "", nil
			}
			return string(runes[start:end]), nil
		}
	case "substring":
		fn = func(v *VM, args []any) (any, error) {
			bound := func(a any, def int) int {
				if a == Undefined {
					return def
				}
				n := ToNumber(a)
				if math.IsNaN(n) || n < 0 {
					return 0
				}
				return int(min(n, float64(len(runes))))
			}
			start, end := bound(argAt(args, 0), 0), bound(argAt(args, 1), len(runes))
			if start > end {
				start, end = end, start
			}
			return string(runes[start:end]), nil
		}
	case "toUpperCase":
		fn = func(v *VM, args []any) (any, error) { return upper.String(s), nil }
	case "toLowerCase":
		fn = func(v *VM, args []any) (any, error) { return lower.String(s), nil }
	case "trim":
		fn = func(v *VM, args []any) (any, error) { return strings.TrimSpace(s), nil }
	case "trimStart":
		fn = func(v *VM, args []any) (any, error) { return strings.TrimLeft(s, " \t\n\r"), nil }
	case "trimEnd":
		fn = func(v *VM, args []any) (any, error) { return strings.TrimRight(s, " \t\n\r"), nil }
	case "split":
		fn = func(v *VM, args []any) (any, error) {
			if argAt(args, 0) == Undefined {
				return NewArrayFromSlice([]any{s}), nil
			}
			sep := ToString(argAt(args, 0))
			var parts []string
			if sep == "" {
				for _, r := range runes {
					parts = append(parts, string(r))
				}
			} else {
				parts = strings.Split(s, sep)
			}
			elems := make([]any, len(parts))
			for i, p := range parts {
				elems[i] = p
			}
			return NewArrayFromSlice(elems), nil
		}
	case "replace":
		fn = func(v *VM, args []any) (any, error) {
			return strings.Replace(s, ToString(argAt(args, 0)), ToString(argAt(args, 1)), 1), nil
		}
	case "replaceAll":
		fn = func(v *VM, args []any) (any, error) {
			return strings.ReplaceAll(s, ToString(argAt(args, 0)), ToString(argAt(args, 1))), nil
		}
	case "repeat":
		fn = func(v *VM, args []any) (any, error) {
			n, ok := toInt64(argAt(args, 0))
			if !ok || n < 0 {
				return nil, v.throwError(KindRangeError, "invalid count value: %s", ToString(argAt(args, 0)))
			}
			return strings.Repeat(s, int(n)), nil
		}
	case "padStart", "padEnd":
		fn = func(v *VM, args []any) (any, error) {
			width, _ := toInt64(argAt(args, 0))
			pad := " "
			if argAt(args, 1) != Undefined {
				pad = ToString(argAt(args, 1))
			}
			missing := int(width) - len(runes)
			if missing <= 0 || pad == "" {
				return s, nil
			}
			fill := []rune(strings.Repeat(pad, missing/len([]rune(pad))+1))[:missing]
			if name == "padStart" {
				return string(fill) + s, nil
			}
			return s + string(fill), nil
		}
	case "toString":
		fn = func(v *VM, args []any) (any, error) { return s, nil }
	default:
		return Undefined
	}
	return &Builtin{Name: name, Fn: fn}
}

func runeIndex(runes, sub []rune, from int) int {
	for i := from; i+len(sub) <= len(runes); i++ {
		if string(runes[i:i+len(sub)]) == string(sub) {
			return i
		}
	}
	return -1
}

// numberMethod returns the bound method name of n, or undefined.
func (vm *VM) numberMethod(n float64, name string) any {
	switch name {
	case "toFixed":
		return &Builtin{Name: name, Fn: func(v *VM, args []any) (any, error) {
			digits, _ := toInt64(argAt(args, 0))
			if digits < 0 || digits > 100 {
				return nil, v.throwError(KindRangeError, "toFixed() digits argument must be between 0 and 100")
			}
			if math.IsNaN(n) || math.IsInf(n, 0) {
				return FormatNumber(n), nil
			}
			return strconv.FormatFloat(n, 'f', int(digits), 64), nil
		}}
	case "toString":
		return &Builtin{Name: name, Fn: func(v *VM, args []any) (any, error) {
			radix, ok := toInt64(argAt(args, 0))
			if !ok || radix == 10 || argAt(args, 0) == Undefined {
				return FormatNumber(n), nil
			}
			if radix < 2 || radix > 36 {
				return nil, v.throwError(KindRangeError, "toString() radix must be between 2 and 36")
			}
			if n == math.Trunc(n) && !math.IsInf(n, 0) {
				return strconv.FormatInt(int64(n), int(radix)), nil
			}
			return FormatNumber(n), nil
		}}
	}
	return Undefined
}
