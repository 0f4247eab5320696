// Package sandbox is the capability filter between script code and host values.
//
// Only primitive values and instances of explicitly registered host classes
// can cross into script. Registered classes expose exactly the methods and
// fields they list. Everything else reads as undefined.
package sandbox

import (
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/zurustar/procscript/pkg/logger"
)

// UndefinedType is the type of Undefined.
type UndefinedType struct{}

func (UndefinedType) String() string { return "undefined" }

// Undefined is the script value undefined.
var Undefined = UndefinedType{}

// blockedNames are never resolved on host objects.
var blockedNames = map[string]bool{
	"getClass":         true,
	"class":            true,
	"constructor":      true,
	"__proto__":        true,
	"prototype":        true,
	"__defineGetter__": true,
	"__lookupGetter__": true,
	"__defineSetter__": true,
	"__lookupSetter__": true,
	"hasOwnProperty":   true,
}

// IsBlocked reports whether name is a reflective name that always resolves to absent.
func IsBlocked(name string) bool {
	return blockedNames[name]
}

// MethodFunc implements a host method.
type MethodFunc func(c *Call) (any, error)

// FieldFunc reads a host field from the receiver.
type FieldFunc func(recv any) any

// Class describes what script code may see of one host type.
type Class struct {
	Name    string
	Methods map[string]MethodFunc
	Fields  map[string]FieldFunc
}

// Sandbox holds the allow-list of host classes.
type Sandbox struct {
	mu      sync.RWMutex
	classes map[reflect.Type]*Class
	denials atomic.Int64
	log     *slog.Logger
}

// Option configures a Sandbox.
type Option func(*Sandbox)

// WithLogger sets the logger used for denial messages.
func WithLogger(log *slog.Logger) Option {
	return func(s *Sandbox) {
		s.log = log
	}
}

// New creates an empty Sandbox. Without registered classes only primitives pass.
func New(opts ...Option) *Sandbox {
	s := &Sandbox{
		classes: make(map[reflect.Type]*Class),
		log:     logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register allows values of sample's dynamic type to cross as class c.
// Registering the same type again replaces the previous class.
func (s *Sandbox) Register(sample any, c *Class) {
	if sample == nil || c == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classes[reflect.TypeOf(sample)] = c
	s.log.Debug("Host class registered", "class", c.Name, "methods", len(c.Methods), "fields", len(c.Fields))
}

// ClassOf returns the class registered for v's type.
func (s *Sandbox) ClassOf(v any) (*Class, bool) {
	if v == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.classes[reflect.TypeOf(v)]
	return c, ok
}

// Denials returns the number of values and members refused so far.
func (s *Sandbox) Denials() int64 {
	return s.denials.Load()
}

func (s *Sandbox) deny(msg string, args ...any) {
	s.denials.Add(1)
	s.log.Debug(msg, args...)
}

// Wrap converts a host value into something script code may hold.
//
// Primitives pass through, Go numeric kinds become float64, registered host
// values become *Object. *Record and []any pass through shallowly; their
// elements are converted by the caller with the same rules. Anything else
// becomes Undefined.
func (s *Sandbox) Wrap(v any) any {
	switch val := v.(type) {
	case nil, bool, string, float64, UndefinedType, *Object, *BoundMethod, *Record, []any:
		return val
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	}

	if c, ok := s.ClassOf(v); ok {
		return &Object{class: c, value: v, sb: s}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.String()
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return nil
		}
	}

	s.deny("Host value denied", "type", reflect.TypeOf(v).String())
	return Undefined
}

// Allowed reports whether v would cross unchanged or as a host object.
func (s *Sandbox) Allowed(v any) bool {
	return s.Wrap(v) != Undefined || v == Undefined
}

// Unwrap returns the Go value behind a host object.
func Unwrap(v any) (any, bool) {
	if o, ok := v.(*Object); ok {
		return o.value, true
	}
	return nil, false
}
