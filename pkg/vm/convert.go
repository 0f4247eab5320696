package vm

import (
	"math"
	"strconv"
	"strings"

	"github.com/zurustar/procscript/pkg/sandbox"
)

// ToString converts a value to its script string form.
func ToString(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case sandbox.UndefinedType:
		return "undefined"
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return FormatNumber(val)
	case *Array:
		elems := val.ToSlice()
		parts := make([]string, len(elems))
		for i, e := range elems {
			if e == nil || e == Undefined {
				continue
			}
			parts[i] = ToString(e)
		}
		return strings.Join(parts, ",")
	case *Object:
		if val.class != "Object" {
			name, _ := val.Get("name")
			msg, _ := val.Get("message")
			if m := ToString(msg); m != "" && msg != Undefined {
				return ToString(name) + ": " + m
			}
			return ToString(name)
		}
		return "[object Object]"
	case *Function:
		return "function " + val.Name + "(" + strings.Join(val.Params, ", ") + ") { [code] }"
	case *Builtin:
		return "function " + val.Name + "() { [native code] }"
	case *sandbox.Object:
		return val.String()
	case *sandbox.BoundMethod:
		return val.String()
	default:
		return "undefined"
	}
}

// FormatNumber renders a number the way script code prints it.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		// Go pads the exponent to two digits.
		mant, exp, _ := strings.Cut(s, "e")
		sign := exp[0]
		digits := strings.TrimLeft(exp[1:], "0")
		return mant + "e" + string(sign) + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToNumber converts a value to a number. Unconvertible values give NaN.
func ToNumber(v any) float64 {
	switch val := v.(type) {
	case nil:
		return 0
	case sandbox.UndefinedType:
		return math.NaN()
	case float64:
		return val
	case bool:
		if val {
			return 1
		}
		return 0
	case string:
		return stringToNumber(val)
	case *Array:
		switch val.Len() {
		case 0:
			return 0
		case 1:
			e, _ := val.Get(0)
			return ToNumber(ToString(e))
		}
		return math.NaN()
	default:
		return math.NaN()
	}
}

func stringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		n, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(n)
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789.eE+-", r) {
			return math.NaN()
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ToBoolean converts a value to its truthiness.
func ToBoolean(v any) bool {
	switch val := v.(type) {
	case nil, sandbox.UndefinedType:
		return false
	case bool:
		return val
	case float64:
		return val != 0 && !math.IsNaN(val)
	case string:
		return val != ""
	default:
		return true
	}
}

// toInt64 converts a number to an integer index, truncating toward zero.
func toInt64(v any) (int64, bool) {
	f := ToNumber(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}

// arrayIndex reports whether key names an array element.
func arrayIndex(key any) (int64, bool) {
	switch k := key.(type) {
	case float64:
		if k >= 0 && k == math.Trunc(k) {
			return int64(k), true
		}
	case string:
		n, err := strconv.ParseInt(k, 10, 64)
		if err == nil && n >= 0 && strconv.FormatInt(n, 10) == k {
			return n, true
		}
	}
	return 0, false
}

// StrictEquals implements ===.
func StrictEquals(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case sandbox.UndefinedType:
		_, ok := b.(sandbox.UndefinedType)
		return ok
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case *sandbox.Object:
		y, ok := b.(*sandbox.Object)
		return ok && sandbox.Same(x, y)
	case *Array:
		y, ok := b.(*Array)
		return ok && x == y
	case *Object:
		y, ok := b.(*Object)
		return ok && x == y
	case *Function:
		y, ok := b.(*Function)
		return ok && x == y
	case *Builtin:
		y, ok := b.(*Builtin)
		return ok && x == y
	case *sandbox.BoundMethod:
		y, ok := b.(*sandbox.BoundMethod)
		return ok && x == y
	}
	return false
}

// LooseEquals implements ==.
func LooseEquals(a, b any) bool {
	if isNullish(a) || isNullish(b) {
		return isNullish(a) && isNullish(b)
	}
	if TypeOf(a) == TypeOf(b) {
		return StrictEquals(a, b)
	}
	if ab, ok := a.(bool); ok {
		return LooseEquals(boolToNumber(ab), b)
	}
	if bb, ok := b.(bool); ok {
		return LooseEquals(a, boolToNumber(bb))
	}
	_, aNum := a.(float64)
	_, bNum := b.(float64)
	_, aStr := a.(string)
	_, bStr := b.(string)
	switch {
	case aNum && bStr, aStr && bNum:
		return ToNumber(a) == ToNumber(b)
	case isPrimitive(a) && !isPrimitive(b):
		return LooseEquals(a, ToString(b))
	case !isPrimitive(a) && isPrimitive(b):
		return LooseEquals(ToString(a), b)
	}
	return false
}

func isNullish(v any) bool {
	return v == nil || v == Undefined
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case nil, sandbox.UndefinedType, bool, float64, string:
		return true
	}
	return false
}

func boolToNumber(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
