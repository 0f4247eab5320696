package sandbox

import (
	"context"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type lamp struct {
	name string
	on   bool
}

type handle struct {
	entity *lamp
}

func (h *handle) Identity() any { return h.entity }

type secret struct {
	Password string
}

func newTestSandbox() *Sandbox {
	sb := New()
	sb.Register(&lamp{}, &Class{
		Name: "Lamp",
		Methods: map[string]MethodFunc{
			"toggle": func(c *Call) (any, error) {
				l := c.Recv.(*lamp)
				l.on = !l.on
				return l.on, nil
			},
			"leak": func(c *Call) (any, error) {
				return &secret{Password: "hunter2"}, nil
			},
			"brightness": func(c *Call) (any, error) {
				if err := c.Require(1); err != nil {
					return nil, err
				}
				return c.Number(0)
			},
		},
		Fields: map[string]FieldFunc{
			"name": func(recv any) any { return recv.(*lamp).name },
		},
	})
	sb.Register(&handle{}, &Class{Name: "Handle"})
	return sb
}

type level int

func TestWrapPrimitives(t *testing.T) {
	sb := New()
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"bool", true, true},
		{"string", "s", "s"},
		{"float64", 1.5, 1.5},
		{"int", 3, 3.0},
		{"int64", int64(-2), -2.0},
		{"uint8", uint8(7), 7.0},
		{"float32", float32(0.5), 0.5},
		{"named int", level(4), 4.0},
		{"undefined", Undefined, Undefined},
		{"nil pointer", (*secret)(nil), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sb.Wrap(tt.in); got != tt.want {
				t.Errorf("Wrap(%#v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWrapUnregisteredIsUndefined(t *testing.T) {
	sb := New()
	values := []any{
		&secret{},
		secret{},
		map[string]int{"a": 1},
		func() {},
		make(chan int),
		[]int{1, 2},
		errors.New("boom"),
	}
	for _, v := range values {
		if got := sb.Wrap(v); got != Undefined {
			t.Errorf("Wrap(%T) = %#v, want Undefined", v, got)
		}
	}
	if sb.Denials() != int64(len(values)) {
		t.Errorf("Denials = %d, want %d", sb.Denials(), len(values))
	}
}

func TestWrapRegistered(t *testing.T) {
	sb := newTestSandbox()
	l := &lamp{name: "hall"}
	obj, ok := sb.Wrap(l).(*Object)
	if !ok {
		t.Fatalf("Wrap returned %T, want *Object", sb.Wrap(l))
	}
	if obj.ClassName() != "Lamp" {
		t.Errorf("ClassName = %q", obj.ClassName())
	}
	if v, ok := Unwrap(obj); !ok || v != l {
		t.Errorf("Unwrap = %v, %v", v, ok)
	}
	if _, ok := Unwrap("plain"); ok {
		t.Error("Unwrap of a primitive should fail")
	}
}

func TestMemberResolution(t *testing.T) {
	sb := newTestSandbox()
	obj := sb.Wrap(&lamp{name: "hall"}).(*Object)

	if v, ok := obj.Member("name"); !ok || v != "hall" {
		t.Errorf("name = %#v, %v", v, ok)
	}

	m, ok := obj.Member("toggle")
	if !ok {
		t.Fatal("toggle not found")
	}
	bm, ok := m.(*BoundMethod)
	if !ok {
		t.Fatalf("toggle is %T", m)
	}
	res, err := bm.Invoke(context.Background(), nil, nil)
	if err != nil || res != true {
		t.Errorf("toggle() = %#v, %v", res, err)
	}

	if v, ok := obj.Member("missing"); ok || v != Undefined {
		t.Errorf("missing = %#v, %v", v, ok)
	}
}

func TestBlockedMembers(t *testing.T) {
	sb := newTestSandbox()
	obj := sb.Wrap(&lamp{}).(*Object)
	for name := range blockedNames {
		t.Run(name, func(t *testing.T) {
			if v, ok := obj.Member(name); ok || v != Undefined {
				t.Errorf("%s resolved to %#v", name, v)
			}
		})
	}
}

func TestMethodResultsAreWrapped(t *testing.T) {
	sb := newTestSandbox()
	obj := sb.Wrap(&lamp{}).(*Object)
	m, _ := obj.Member("leak")
	res, err := m.(*BoundMethod).Invoke(context.Background(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res != Undefined {
		t.Errorf("leak() = %#v, want Undefined", res)
	}
}

func TestMethodTypeErrors(t *testing.T) {
	sb := newTestSandbox()
	obj := sb.Wrap(&lamp{}).(*Object)
	m, _ := obj.Member("brightness")
	bm := m.(*BoundMethod)

	tests := []struct {
		name string
		args []any
	}{
		{"missing argument", nil},
		{"host object argument", []any{obj}},
		{"non numeric string", []any{"bright"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bm.Invoke(context.Background(), nil, tt.args)
			var te *TypeError
			if !errors.As(err, &te) {
				t.Fatalf("err = %v, want *TypeError", err)
			}
		})
	}

	res, err := bm.Invoke(context.Background(), nil, []any{0.25})
	if err != nil || res != 0.25 {
		t.Errorf("brightness(0.25) = %#v, %v", res, err)
	}
}

func TestSame(t *testing.T) {
	sb := newTestSandbox()
	entity := &lamp{}
	a := sb.Wrap(&handle{entity: entity}).(*Object)
	b := sb.Wrap(&handle{entity: entity}).(*Object)
	c := sb.Wrap(&handle{entity: &lamp{}}).(*Object)

	if !Same(a, b) {
		t.Error("handles of one entity should be the same")
	}
	if Same(a, c) {
		t.Error("handles of different entities should differ")
	}
	if Same(a, nil) {
		t.Error("object should differ from nil")
	}
}

func TestRecordKeepsOrder(t *testing.T) {
	r := NewRecord().Set("x", 1.0).Set("y", 2.0).Set("x", 3.0)
	if len(r.Keys) != 2 || r.Keys[0] != "x" || r.Keys[1] != "y" {
		t.Errorf("Keys = %v", r.Keys)
	}
	if r.Values["x"] != 3.0 {
		t.Errorf("x = %v", r.Values["x"])
	}
}

// TestPropertyWrapFailsClosed checks that no unregistered composite value
// crosses the boundary, whatever its contents.
func TestPropertyWrapFailsClosed(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	sb := newTestSandbox()

	properties.Property("unregistered values become undefined", prop.ForAll(
		func(password string, keys []string, n int) bool {
			candidates := []any{
				&secret{Password: password},
				secret{Password: password},
				keys,
				map[string]int{password: n},
				struct{ N int }{n},
			}
			for _, v := range candidates {
				if sb.Wrap(v) != Undefined {
					return false
				}
			}
			return true
		},
		gen.AlphaString(),
		gen.SliceOf(gen.AlphaString()),
		gen.Int(),
	))

	properties.Property("primitives pass unchanged", prop.ForAll(
		func(s string, f float64, b bool) bool {
			return sb.Wrap(s) == s && sb.Wrap(f) == f && sb.Wrap(b) == b
		},
		gen.AnyString(),
		gen.Float64Range(-1e9, 1e9),
		gen.Bool(),
	))

	properties.Property("blocked names never resolve", prop.ForAll(
		func(i int) bool {
			names := make([]string, 0, len(blockedNames))
			for name := range blockedNames {
				names = append(names, name)
			}
			obj := sb.Wrap(&lamp{}).(*Object)
			_, ok := obj.Member(names[i%len(names)])
			return !ok
		},
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
