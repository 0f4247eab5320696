package vm

import (
	"sync"

	"github.com/zurustar/procscript/pkg/opcode"
	"github.com/zurustar/procscript/pkg/sandbox"
)

// Undefined is the script value undefined. Null is represented by nil.
var Undefined = sandbox.Undefined

// Object is a plain script object with insertion-ordered keys.
type Object struct {
	keys   []string
	props  map[string]any
	frozen bool
	class  string
	mu     sync.RWMutex
}

// NewObject creates an empty object.
func NewObject() *Object {
	return &Object{props: make(map[string]any), class: "Object"}
}

// Get returns the property value, or undefined and false.
func (o *Object) Get(key string) (any, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.props[key]
	if !ok {
		return Undefined, false
	}
	return v, true
}

// Set adds or replaces a property. It reports false when the object is frozen.
func (o *Object) Set(key string, value any) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.frozen {
		return false
	}
	if _, ok := o.props[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.props[key] = value
	return true
}

// Has reports whether key is an own property.
func (o *Object) Has(key string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.props[key]
	return ok
}

// Keys returns the property names in insertion order.
func (o *Object) Keys() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]string(nil), o.keys...)
}

// Freeze makes the object read-only.
func (o *Object) Freeze() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.frozen = true
}

// Frozen reports whether the object is read-only.
func (o *Object) Frozen() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.frozen
}

// Class returns "Object" for plain objects or the error kind for error objects.
func (o *Object) Class() string {
	return o.class
}

// Function is a script closure.
type Function struct {
	Name    string
	Params  []string
	Body    []opcode.OpCode
	Closure *Scope
}

// BuiltinFunc is the signature for built-in functions.
// Built-in functions receive the VM instance and arguments, and return a value and error.
type BuiltinFunc func(vm *VM, args []any) (any, error)

// Builtin is a native function value.
type Builtin struct {
	Name string
	Fn   BuiltinFunc
}

// TypeOf returns the typeof string of a value.
func TypeOf(v any) string {
	switch v.(type) {
	case sandbox.UndefinedType:
		return "undefined"
	case nil:
		return "object"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case *Function, *Builtin, *sandbox.BoundMethod:
		return "function"
	default:
		return "object"
	}
}

// isNative reports whether v is already a script value.
func isNative(v any) bool {
	switch v.(type) {
	case nil, bool, float64, string, sandbox.UndefinedType,
		*Array, *Object, *Function, *Builtin,
		*sandbox.Object, *sandbox.BoundMethod:
		return true
	}
	return false
}

// fromHost converts a host value to a script value through the sandbox.
func (vm *VM) fromHost(v any) any {
	if isNative(v) {
		return v
	}
	switch w := vm.sandbox.Wrap(v).(type) {
	case *sandbox.Record:
		obj := NewObject()
		for _, k := range w.Keys {
			obj.Set(k, vm.fromHost(w.Values[k]))
		}
		if w.Frozen {
			obj.Freeze()
		}
		return obj
	case []any:
		elems := make([]any, len(w))
		for i, e := range w {
			elems[i] = vm.fromHost(e)
		}
		return NewArrayFromSlice(elems)
	default:
		return w
	}
}
