package vm

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strings"

	"github.com/zurustar/procscript/pkg/sandbox"
)

// registerJSONBuiltins installs the JSON object.
func (vm *VM) registerJSONBuiltins() {
	obj := newNamespace(map[string]BuiltinFunc{
		"stringify": func(v *VM, args []any) (any, error) {
			indent := ""
			switch sp := argAt(args, 2).(type) {
			case float64:
				indent = strings.Repeat(" ", int(max(0, min(sp, 10))))
			case string:
				indent = sp
				if len(indent) > 10 {
					indent = indent[:10]
				}
			}
			s := &stringifier{vm: v, indent: indent, seen: make(map[any]bool)}
			ok, err := s.write(argAt(args, 0), "")
			if err != nil {
				return nil, err
			}
			if !ok {
				return Undefined, nil
			}
			return s.buf.String(), nil
		},
		"parse": func(v *VM, args []any) (any, error) {
			dec := json.NewDecoder(strings.NewReader(ToString(argAt(args, 0))))
			dec.UseNumber()
			result, err := parseJSON(dec)
			if err == nil {
				if _, extra := dec.Token(); extra != io.EOF {
					err = errors.New("unexpected data after JSON value")
				}
			}
			if err != nil {
				return nil, v.throwError(KindSyntaxError, "JSON.parse: %v", err)
			}
			return result, nil
		},
	})
	obj.Freeze()
	vm.RegisterGlobal("JSON", obj)
}

type stringifier struct {
	vm     *VM
	buf    bytes.Buffer
	indent string
	seen   map[any]bool
}

// write appends the JSON form of v. It reports false for values JSON omits.
func (s *stringifier) write(v any, prefix string) (bool, error) {
	switch val := v.(type) {
	case nil:
		s.buf.WriteString("null")
	case bool, string:
		s.writeString(v)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			s.buf.WriteString("null")
		} else {
			s.buf.WriteString(FormatNumber(val))
		}
	case sandbox.UndefinedType, *Function, *Builtin, *sandbox.BoundMethod:
		return false, nil
	case *Array:
		if err := s.enter(val); err != nil {
			return false, err
		}
		defer delete(s.seen, val)
		elems := val.ToSlice()
		s.buf.WriteByte('[')
		for i, el := range elems {
			if i > 0 {
				s.buf.WriteByte(',')
			}
			s.newline(prefix + s.indent)
			ok, err := s.write(el, prefix+s.indent)
			if err != nil {
				return false, err
			}
			if !ok {
				s.buf.WriteString("null")
			}
		}
		if len(elems) > 0 {
			s.newline(prefix)
		}
		s.buf.WriteByte(']')
	case *Object:
		if err := s.enter(val); err != nil {
			return false, err
		}
		defer delete(s.seen, val)
		return true, s.writeObject(val.Keys(), func(k string) any { v, _ := val.Get(k); return v }, prefix)
	case *sandbox.Object:
		return true, s.writeObject(val.Keys(), func(k string) any {
			m, _ := val.Member(k)
			return s.vm.fromHost(m)
		}, prefix)
	default:
		return false, nil
	}
	return true, nil
}

func (s *stringifier) writeObject(keys []string, get func(string) any, prefix string) error {
	s.buf.WriteByte('{')
	n := 0
	for _, k := range keys {
		mark := s.buf.Len()
		if n > 0 {
			s.buf.WriteByte(',')
		}
		s.newline(prefix + s.indent)
		s.writeString(k)
		s.buf.WriteByte(':')
		if s.indent != "" {
			s.buf.WriteByte(' ')
		}
		ok, err := s.write(get(k), prefix+s.indent)
		if err != nil {
			return err
		}
		if !ok {
			s.buf.Truncate(mark)
			continue
		}
		n++
	}
	if n > 0 {
		s.newline(prefix)
	}
	s.buf.WriteByte('}')
	return nil
}

func (s *stringifier) enter(v any) error {
	if s.seen[v] {
		return s.vm.throwError(KindTypeError, "converting circular structure to JSON")
	}
	s.seen[v] = true
	return nil
}

func (s *stringifier) newline(prefix string) {
	if s.indent != "" {
		s.buf.WriteByte('\n')
		s.buf.WriteString(prefix)
	}
}

func (s *stringifier) writeString(v any) {
	enc := json.NewEncoder(&s.buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
	// Encode terminates with a newline.
	s.buf.Truncate(s.buf.Len() - 1)
}

// parseJSON reads one value from dec, keeping object keys in document order.
func parseJSON(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			var elems []any
			for dec.More() {
				el, err := parseJSON(dec)
				if err != nil {
					return nil, err
				}
				elems = append(elems, el)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return NewArrayFromSlice(elems), nil
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				val, err := parseJSON(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		}
		return nil, errors.New("unexpected delimiter " + t.String())
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case nil:
		return nil, nil
	default:
		return t, nil
	}
}
