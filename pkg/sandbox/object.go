package sandbox

import (
	"context"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
)

// Runtime is the part of the interpreter a host method may use.
type Runtime interface {
	// Yield reports a yield point at the current line.
	Yield() error
	// Line returns the source line being executed.
	Line() int
	ToString(v any) string
	ToNumber(v any) float64
	ToBoolean(v any) bool
}

// Identity is implemented by host values whose equality is decided by an
// underlying entity rather than by the handle itself.
type Identity interface {
	Identity() any
}

// Object is a registered host value visible to script.
type Object struct {
	class *Class
	value any
	sb    *Sandbox
}

// ClassName returns the registered class name.
func (o *Object) ClassName() string {
	return o.class.Name
}

// String renders the object for diagnostics.
func (o *Object) String() string {
	if s, ok := o.value.(fmt.Stringer); ok {
		return s.String()
	}
	return "[object " + o.class.Name + "]"
}

// Member resolves a field or method by name. Blocked and unknown names are absent.
func (o *Object) Member(name string) (any, bool) {
	if IsBlocked(name) {
		o.sb.deny("Blocked member denied", "class", o.class.Name, "name", name)
		return Undefined, false
	}
	if f, ok := o.class.Fields[name]; ok {
		return o.sb.Wrap(f(o.value)), true
	}
	if m, ok := o.class.Methods[name]; ok {
		return &BoundMethod{Name: name, obj: o, fn: m}, true
	}
	o.sb.deny("Unknown member denied", "class", o.class.Name, "name", name)
	return Undefined, false
}

// Keys lists the visible member names, fields first, each group sorted.
func (o *Object) Keys() []string {
	return append(slices.Sorted(maps.Keys(o.class.Fields)), slices.Sorted(maps.Keys(o.class.Methods))...)
}

// Same reports whether two host objects refer to the same entity.
func Same(a, b *Object) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	ia, okA := a.value.(Identity)
	ib, okB := b.value.(Identity)
	if okA && okB {
		return sameValue(ia.Identity(), ib.Identity())
	}
	return sameValue(a.value, b.value)
}

func sameValue(x, y any) bool {
	if x == nil || y == nil {
		return x == y
	}
	if reflect.TypeOf(x) != reflect.TypeOf(y) || !reflect.TypeOf(x).Comparable() {
		return false
	}
	return x == y
}

// BoundMethod is a host method bound to its receiver.
type BoundMethod struct {
	Name string
	obj  *Object
	fn   MethodFunc
}

// Invoke calls the method. The result has already been through Wrap.
func (m *BoundMethod) Invoke(ctx context.Context, rt Runtime, args []any) (any, error) {
	res, err := m.fn(&Call{
		Ctx:     ctx,
		Runtime: rt,
		Recv:    m.obj.value,
		Args:    args,
		Method:  m.obj.class.Name + "." + m.Name,
	})
	if err != nil {
		return Undefined, err
	}
	return m.obj.sb.Wrap(res), nil
}

func (m *BoundMethod) String() string {
	return "function " + m.Name + "() { [native code] }"
}

// Record is an ordered key/value result handed to script as a plain object.
type Record struct {
	Keys   []string
	Values map[string]any
	Frozen bool
}

// NewRecord creates an empty Record.
func NewRecord() *Record {
	return &Record{Values: make(map[string]any)}
}

// Set adds or replaces a key, keeping first insertion order.
func (r *Record) Set(key string, value any) *Record {
	if _, ok := r.Values[key]; !ok {
		r.Keys = append(r.Keys, key)
	}
	r.Values[key] = value
	return r
}

// TypeError is raised by host methods on wrong arity or argument type.
// Script code can catch it.
type TypeError struct {
	Message string
}

func (e *TypeError) Error() string {
	return "TypeError: " + e.Message
}

// Call carries one host method invocation.
type Call struct {
	Ctx     context.Context
	Runtime Runtime
	Recv    any
	Args    []any
	Method  string
}

// Arg returns argument i or Undefined.
func (c *Call) Arg(i int) any {
	if i < 0 || i >= len(c.Args) {
		return Undefined
	}
	return c.Args[i]
}

// Require fails unless at least n arguments were passed.
func (c *Call) Require(n int) error {
	if len(c.Args) < n {
		return &TypeError{Message: fmt.Sprintf("%s expects %d argument(s), got %d", c.Method, n, len(c.Args))}
	}
	return nil
}

// Number returns argument i as a number. Strings that are not numeric,
// host objects and missing arguments are rejected.
func (c *Call) Number(i int) (float64, error) {
	switch v := c.Arg(i).(type) {
	case float64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		if c.Runtime != nil {
			if n := c.Runtime.ToNumber(v); !math.IsNaN(n) {
				return n, nil
			}
		}
	}
	return 0, c.typeError(i, "a number")
}

// String returns argument i converted to a string. Missing arguments are rejected.
func (c *Call) String(i int) (string, error) {
	v := c.Arg(i)
	if i >= len(c.Args) {
		return "", c.typeError(i, "a string")
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	if c.Runtime != nil {
		return c.Runtime.ToString(v), nil
	}
	return fmt.Sprint(v), nil
}

// Bool returns the truthiness of argument i.
func (c *Call) Bool(i int) bool {
	v := c.Arg(i)
	if c.Runtime != nil {
		return c.Runtime.ToBoolean(v)
	}
	b, _ := v.(bool)
	return b
}

// Host returns the Go value behind argument i when it is a host object.
func (c *Call) Host(i int) (any, bool) {
	return Unwrap(c.Arg(i))
}

func (c *Call) typeError(i int, want string) error {
	return &TypeError{Message: fmt.Sprintf("%s argument %d must be %s", c.Method, i+1, want)}
}

// TypeErrorf builds a TypeError for the method being called.
func (c *Call) TypeErrorf(format string, args ...any) error {
	return &TypeError{Message: c.Method + ": " + fmt.Sprintf(format, args...)}
}
