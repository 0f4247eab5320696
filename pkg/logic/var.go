// Package logic defines the instruction-level processor interface the script
// engine drives: named registers, typed instructions and the executor that
// applies them to a world.
package logic

import (
	"fmt"
	"math"
	"strconv"
)

// Names of the registers bound before a session starts.
const (
	RegCounter = "@counter"
	RegUnit    = "@unit"
	RegThis    = "@this"
	RegIPT     = "@ipt"
)

// Var is a processor register. It holds either a number or an object.
type Var struct {
	Name  string
	num   float64
	obj   any
	isObj bool
}

// NewVar creates a numeric register holding 0.
func NewVar(name string) *Var {
	return &Var{Name: name}
}

// SetNum stores a number. NaN and infinities are stored as 0.
func (v *Var) SetNum(f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	v.num, v.obj, v.isObj = f, nil, false
}

// SetBool stores 1 or 0.
func (v *Var) SetBool(b bool) {
	if b {
		v.SetNum(1)
	} else {
		v.SetNum(0)
	}
}

// SetObj stores an object. A nil object is the null value.
func (v *Var) SetObj(o any) {
	v.num, v.obj, v.isObj = 0, o, true
}

// Set copies the value of other.
func (v *Var) Set(other *Var) {
	v.num, v.obj, v.isObj = other.num, other.obj, other.isObj
}

// IsObj reports whether the register holds an object (possibly null).
func (v *Var) IsObj() bool {
	return v.isObj
}

// Num returns the numeric value. Objects read as 1, null as 0.
func (v *Var) Num() float64 {
	if v.isObj {
		if v.obj != nil {
			return 1
		}
		return 0
	}
	return v.num
}

// Bool returns the truth value of the register.
func (v *Var) Bool() bool {
	if v.isObj {
		return v.obj != nil
	}
	return math.Abs(v.num) >= 0.00001
}

// Obj returns the object held, or nil for numbers.
func (v *Var) Obj() any {
	if v.isObj {
		return v.obj
	}
	return nil
}

// String renders the register the way print does.
func (v *Var) String() string {
	if v.isObj {
		return FormatValue(v.obj)
	}
	return FormatNumber(v.num)
}

// FormatNumber prints whole numbers without a fraction.
func FormatNumber(f float64) string {
	if math.Abs(f-math.Round(f)) < 0.00001 {
		return strconv.FormatInt(int64(math.Round(f)), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatValue renders an object register value.
func FormatValue(o any) string {
	switch val := o.(type) {
	case nil:
		return "null"
	case string:
		return val
	case float64:
		return FormatNumber(val)
	case bool:
		if val {
			return "1"
		}
		return "0"
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
