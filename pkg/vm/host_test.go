package vm

import (
	"testing"

	"github.com/zurustar/procscript/pkg/sandbox"
)

type counter struct{ n int }

type opaque struct{ secret string }

func counterSandbox() *sandbox.Sandbox {
	sb := sandbox.New()
	sb.Register(&counter{}, &sandbox.Class{
		Name: "Counter",
		Methods: map[string]sandbox.MethodFunc{
			"add": func(c *sandbox.Call) (any, error) {
				d, err := c.Number(0)
				if err != nil {
					return nil, err
				}
				ctr := c.Recv.(*counter)
				ctr.n += int(d)
				return ctr.n, nil
			},
			"snapshot": func(c *sandbox.Call) (any, error) {
				r := sandbox.NewRecord().Set("n", c.Recv.(*counter).n)
				r.Frozen = true
				return r, nil
			},
			"leak": func(c *sandbox.Call) (any, error) {
				return &opaque{secret: "s"}, nil
			},
			"list": func(c *sandbox.Call) (any, error) {
				return []any{1, "two", &opaque{}}, nil
			},
		},
		Fields: map[string]sandbox.FieldFunc{
			"value": func(recv any) any { return recv.(*counter).n },
		},
	})
	return sb
}

func TestHostObjects(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want any
	}{
		{"method call", `ctr.add(2); var result = ctr.add(3);`, 5.0},
		{"field read", `ctr.add(4); var result = ctr.value;`, 4.0},
		{"typeof host object", `var result = typeof ctr;`, "object"},
		{"typeof host method", `var result = typeof ctr.add;`, "function"},
		{"blocked member", `var result = typeof ctr.constructor;`, "undefined"},
		{"unknown member", `var result = typeof ctr.nope;`, "undefined"},
		{"bad argument is a TypeError", `var result; try { ctr.add("x"); } catch (e) { result = e.name; }`, "TypeError"},
		{"host objects are read-only", `var result; try { ctr.value = 1; } catch (e) { result = e.name; }`, "TypeError"},
		{"record becomes a plain object", `ctr.add(7); var result = ctr.snapshot().n;`, 7.0},
		{"frozen record", `var s = ctr.snapshot(); var result; try { s.n = 1; } catch (e) { result = e.name; }`, "TypeError"},
		{"unregistered result is undefined", `var result = typeof ctr.leak();`, "undefined"},
		{"slices become arrays", `var l = ctr.list(); var result = l.length + ":" + l[1] + ":" + typeof l[2];`, "3:two:undefined"},
		{"same host object is equal", `var result = ctr === ctr;`, true},
		{"unregistered global is undefined", `var result = typeof raw;`, "undefined"},
		{"stringify host fields", `ctr.add(1); var result = JSON.stringify(ctr);`, `{"value":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := result(t, tt.src,
				WithSandbox(counterSandbox()),
				WithGlobals(map[string]any{
					"ctr": &counter{},
					"raw": &opaque{secret: "s"},
				}))
			if got != tt.want {
				t.Errorf("result = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestHostDenialsAreCounted(t *testing.T) {
	sb := counterSandbox()
	_, err := run(t, `var a = ctr.leak(); var b = ctr.getClass;`,
		WithSandbox(sb),
		WithGlobals(map[string]any{"ctr": &counter{}}))
	if err != nil {
		t.Fatal(err)
	}
	if sb.Denials() != 2 {
		t.Errorf("Denials() = %d, want 2", sb.Denials())
	}
}
