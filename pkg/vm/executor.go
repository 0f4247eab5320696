package vm

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/zurustar/procscript/pkg/opcode"
	"github.com/zurustar/procscript/pkg/sandbox"
)

// evaluateValue evaluates a value that may be a Variable, OpCode, or literal.
// It recursively resolves variables and executes nested OpCodes.
func (vm *VM) evaluateValue(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return Undefined, nil
	case opcode.Variable:
		resolved, ok := vm.scope.Get(string(v))
		if !ok {
			return nil, vm.throwError(KindReferenceError, "%s is not defined", string(v))
		}
		return resolved, nil
	case opcode.OpCode:
		return vm.Execute(v)
	default:
		return v, nil
	}
}

// executeAssign executes an Assign OpCode.
// Args: [operator, target, value]
func (vm *VM) executeAssign(op opcode.OpCode) (any, error) {
	operator, _ := op.Args[0].(string)
	target := op.Args[1]

	ref, err := vm.resolveTarget(target)
	if err != nil {
		return nil, err
	}

	value, err := vm.evaluateValue(op.Args[2])
	if err != nil {
		return nil, err
	}

	if operator != "=" {
		current, err := ref.get()
		if err != nil {
			return nil, err
		}
		value, err = vm.binary(strings.TrimSuffix(operator, "="), current, value)
		if err != nil {
			return nil, err
		}
	}

	if fn, ok := value.(*Function); ok && fn.Name == "" {
		if name, isVar := target.(opcode.Variable); isVar {
			fn.Name = string(name)
		}
	}

	if err := ref.set(value); err != nil {
		return nil, err
	}
	return value, nil
}

// executeUpdate executes an Update OpCode (++ and --).
// Args: [operator, prefix bool, target]
func (vm *VM) executeUpdate(op opcode.OpCode) (any, error) {
	operator, _ := op.Args[0].(string)
	prefix, _ := op.Args[1].(bool)

	ref, err := vm.resolveTarget(op.Args[2])
	if err != nil {
		return nil, err
	}
	current, err := ref.get()
	if err != nil {
		return nil, err
	}

	old := ToNumber(current)
	updated := old + 1
	if operator == "--" {
		updated = old - 1
	}
	if err := ref.set(updated); err != nil {
		return nil, err
	}
	if prefix {
		return updated, nil
	}
	return old, nil
}

// reference is an assignable location.
type reference struct {
	get func() (any, error)
	set func(any) error
}

// resolveTarget evaluates the object and key of an assignment target once.
func (vm *VM) resolveTarget(target any) (*reference, error) {
	switch t := target.(type) {
	case opcode.Variable:
		name := string(t)
		return &reference{
			get: func() (any, error) { return vm.evaluateValue(t) },
			set: func(v any) error {
				found, err := vm.scope.Assign(name, v)
				if err != nil {
					return vm.throwError(KindTypeError, "%v", err)
				}
				if !found {
					vm.globalScope.SetLocal(name, v)
				}
				return nil
			},
		}, nil
	case opcode.OpCode:
		var key any
		obj, err := vm.evaluateValue(t.Args[0])
		if err != nil {
			return nil, err
		}
		switch t.Cmd {
		case opcode.Member:
			key = t.Args[1]
		case opcode.Index:
			key, err = vm.evaluateValue(t.Args[1])
			if err != nil {
				return nil, err
			}
		default:
			return nil, vm.throwError(KindSyntaxError, "invalid assignment target")
		}
		return &reference{
			get: func() (any, error) { return vm.getProperty(obj, key) },
			set: func(v any) error { return vm.setProperty(obj, key, v) },
		}, nil
	}
	return nil, vm.throwError(KindSyntaxError, "invalid assignment target")
}

// executeBinaryOp executes a BinaryOp OpCode.
// && || and ?? evaluate the right operand only when needed.
// Args: [operator, leftOperand, rightOperand]
func (vm *VM) executeBinaryOp(op opcode.OpCode) (any, error) {
	operator, _ := op.Args[0].(string)

	left, err := vm.evaluateValue(op.Args[1])
	if err != nil {
		return nil, err
	}

	switch operator {
	case "&&":
		if !ToBoolean(left) {
			return left, nil
		}
		return vm.evaluateValue(op.Args[2])
	case "||":
		if ToBoolean(left) {
			return left, nil
		}
		return vm.evaluateValue(op.Args[2])
	case "??":
		if !isNullish(left) {
			return left, nil
		}
		return vm.evaluateValue(op.Args[2])
	}

	right, err := vm.evaluateValue(op.Args[2])
	if err != nil {
		return nil, err
	}
	return vm.binary(operator, left, right)
}

// binary applies a non short-circuit binary operator.
func (vm *VM) binary(operator string, left, right any) (any, error) {
	switch operator {
	case "+":
		if isStringLike(left) || isStringLike(right) {
			return ToString(left) + ToString(right), nil
		}
		return ToNumber(left) + ToNumber(right), nil
	case "-":
		return ToNumber(left) - ToNumber(right), nil
	case "*":
		return ToNumber(left) * ToNumber(right), nil
	case "/":
		return ToNumber(left) / ToNumber(right), nil
	case "%":
		return math.Mod(ToNumber(left), ToNumber(right)), nil
	case "==":
		return LooseEquals(left, right), nil
	case "!=":
		return !LooseEquals(left, right), nil
	case "===":
		return StrictEquals(left, right), nil
	case "!==":
		return !StrictEquals(left, right), nil
	case "<", "<=", ">", ">=":
		return compare(operator, left, right), nil
	default:
		return nil, fmt.Errorf("unknown binary operator: %s", operator)
	}
}

// isStringLike reports whether + should concatenate for this operand.
func isStringLike(v any) bool {
	switch v.(type) {
	case string, *Array, *Object, *Function, *Builtin, *sandbox.Object, *sandbox.BoundMethod:
		return true
	}
	return false
}

func compare(operator string, left, right any) bool {
	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok && rok {
		switch operator {
		case "<":
			return ls < rs
		case "<=":
			return ls <= rs
		case ">":
			return ls > rs
		default:
			return ls >= rs
		}
	}

	l, r := ToNumber(left), ToNumber(right)
	if math.IsNaN(l) || math.IsNaN(r) {
		return false
	}
	switch operator {
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	default:
		return l >= r
	}
}

// executeUnaryOp executes a UnaryOp OpCode.
// Args: [operator, operand]
func (vm *VM) executeUnaryOp(op opcode.OpCode) (any, error) {
	operator, _ := op.Args[0].(string)

	if operator == "typeof" {
		if name, ok := op.Args[1].(opcode.Variable); ok {
			v, found := vm.scope.Get(string(name))
			if !found {
				return "undefined", nil
			}
			return TypeOf(v), nil
		}
	}

	operand, err := vm.evaluateValue(op.Args[1])
	if err != nil {
		return nil, err
	}

	switch operator {
	case "-":
		return -ToNumber(operand), nil
	case "+":
		return ToNumber(operand), nil
	case "!":
		return !ToBoolean(operand), nil
	case "typeof":
		return TypeOf(operand), nil
	default:
		return nil, fmt.Errorf("unknown unary operator: %s", operator)
	}
}

// executeConditional executes a Conditional OpCode.
// Args: [condition, then, else]
func (vm *VM) executeConditional(op opcode.OpCode) (any, error) {
	cond, err := vm.evaluateValue(op.Args[0])
	if err != nil {
		return nil, err
	}
	if ToBoolean(cond) {
		return vm.evaluateValue(op.Args[1])
	}
	return vm.evaluateValue(op.Args[2])
}

// executeCall executes a Call OpCode. A Member or Index callee binds this.
// Args: [callee, arg1, arg2, ...]
func (vm *VM) executeCall(op opcode.OpCode) (any, error) {
	if err := vm.checkContext(); err != nil {
		return nil, err
	}

	var (
		callee any
		this   any = Undefined
		name   string
		err    error
	)

	switch c := op.Args[0].(type) {
	case opcode.OpCode:
		if c.Cmd == opcode.Member || c.Cmd == opcode.Index {
			this, err = vm.evaluateValue(c.Args[0])
			if err != nil {
				return nil, err
			}
			key := c.Args[1]
			if c.Cmd == opcode.Index {
				key, err = vm.evaluateValue(key)
				if err != nil {
					return nil, err
				}
			}
			name = ToString(key)
			callee, err = vm.getProperty(this, key)
		} else {
			callee, err = vm.Execute(c)
		}
	case opcode.Variable:
		name = string(c)
		callee, err = vm.evaluateValue(c)
	default:
		callee = c
	}
	if err != nil {
		return nil, err
	}

	args := make([]any, 0, len(op.Args)-1)
	for _, a := range op.Args[1:] {
		val, err := vm.evaluateValue(a)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}

	if op.Line > 0 {
		vm.line = op.Line
	}

	if !isCallable(callee) {
		if name == "" {
			name = "expression"
		}
		return nil, vm.throwError(KindTypeError, "%s is not a function", name)
	}
	return vm.CallValue(callee, this, args)
}

func isCallable(v any) bool {
	switch v.(type) {
	case *Function, *Builtin, *sandbox.BoundMethod:
		return true
	}
	return false
}

// CallValue invokes a callable script or host value.
func (vm *VM) CallValue(callee, this any, args []any) (any, error) {
	switch fn := callee.(type) {
	case *Function:
		return vm.callUserFunction(fn, this, args)
	case *Builtin:
		result, err := fn.Fn(vm, args)
		if err != nil {
			return nil, vm.hostError(err)
		}
		return vm.fromHost(result), nil
	case *sandbox.BoundMethod:
		result, err := fn.Invoke(vm.ctx, vm, args)
		if err != nil {
			return nil, vm.hostError(err)
		}
		return vm.fromHost(result), nil
	default:
		return nil, vm.throwError(KindTypeError, "%s is not a function", ToString(callee))
	}
}

// hostError turns an error from native code into what the script sees.
// Aborts and script errors pass through; sandbox type errors become catchable TypeErrors.
func (vm *VM) hostError(err error) error {
	var se *ScriptError
	if IsAbort(err) || errors.As(err, &se) {
		return err
	}
	var te *sandbox.TypeError
	if errors.As(err, &te) {
		return vm.throwError(KindTypeError, "%s", te.Message)
	}
	if ctxErr := vm.ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return vm.abort(err)
	}
	return vm.throwError(KindError, "%v", err)
}

// callUserFunction calls a script function in a fresh function scope.
func (vm *VM) callUserFunction(fn *Function, this any, args []any) (any, error) {
	localScope := NewFunctionScope(fn.Closure)
	localScope.SetLocal("this", this)
	localScope.SetLocal("arguments", NewArrayFromSlice(append([]any(nil), args...)))
	for i, param := range fn.Params {
		var value any = Undefined
		if i < len(args) {
			value = args[i]
		}
		localScope.SetLocal(param, value)
	}

	if err := vm.PushStackFrame(fn.Name, localScope); err != nil {
		return nil, err
	}
	defer vm.PopStackFrame()

	prev := vm.scope
	vm.scope = localScope
	defer func() { vm.scope = prev }()

	vm.hoist(fn.Body, localScope, true)
	result, err := vm.executeBody(fn.Body)
	if err != nil {
		return nil, err
	}
	if ret, ok := result.(*returnMarker); ok {
		return ret.value, nil
	}
	return Undefined, nil
}

// executeMember executes a Member OpCode.
// Args: [object, name string]
func (vm *VM) executeMember(op opcode.OpCode) (any, error) {
	obj, err := vm.evaluateValue(op.Args[0])
	if err != nil {
		return nil, err
	}
	return vm.getProperty(obj, op.Args[1])
}

// executeIndex executes an Index OpCode.
// Args: [object, key]
func (vm *VM) executeIndex(op opcode.OpCode) (any, error) {
	obj, err := vm.evaluateValue(op.Args[0])
	if err != nil {
		return nil, err
	}
	key, err := vm.evaluateValue(op.Args[1])
	if err != nil {
		return nil, err
	}
	return vm.getProperty(obj, key)
}

// getProperty reads obj[key].
func (vm *VM) getProperty(obj, key any) (any, error) {
	switch o := obj.(type) {
	case nil, sandbox.UndefinedType:
		return nil, vm.throwError(KindTypeError, "cannot read properties of %s (reading '%s')", ToString(obj), ToString(key))
	case *Array:
		if i, ok := arrayIndex(key); ok {
			v, _ := o.Get(i)
			return v, nil
		}
		name := ToString(key)
		if name == "length" {
			return float64(o.Len()), nil
		}
		return vm.arrayMethod(o, name), nil
	case string:
		if i, ok := arrayIndex(key); ok {
			runes := []rune(o)
			if int(i) < len(runes) {
				return string(runes[i]), nil
			}
			return Undefined, nil
		}
		name := ToString(key)
		if name == "length" {
			return float64(len([]rune(o))), nil
		}
		return vm.stringMethod(o, name), nil
	case float64:
		return vm.numberMethod(o, ToString(key)), nil
	case *Object:
		name := ToString(key)
		if v, ok := o.Get(name); ok {
			return v, nil
		}
		if name == "hasOwnProperty" {
			return &Builtin{Name: name, Fn: func(v *VM, args []any) (any, error) {
				return o.Has(ToString(argAt(args, 0))), nil
			}}, nil
		}
		return Undefined, nil
	case *Function:
		switch ToString(key) {
		case "name":
			return o.Name, nil
		case "length":
			return float64(len(o.Params)), nil
		}
		return Undefined, nil
	case *Builtin:
		if ToString(key) == "name" {
			return o.Name, nil
		}
		return Undefined, nil
	case *sandbox.Object:
		v, _ := o.Member(ToString(key))
		return vm.fromHost(v), nil
	default:
		return Undefined, nil
	}
}

// setProperty writes obj[key] = value.
func (vm *VM) setProperty(obj, key, value any) error {
	switch o := obj.(type) {
	case nil, sandbox.UndefinedType:
		return vm.throwError(KindTypeError, "cannot set properties of %s (setting '%s')", ToString(obj), ToString(key))
	case *Array:
		if i, ok := arrayIndex(key); ok {
			o.Set(i, value)
			return nil
		}
		if ToString(key) == "length" {
			n, ok := toInt64(value)
			if !ok || n < 0 {
				return vm.throwError(KindRangeError, "invalid array length")
			}
			o.SetLen(int(n))
			return nil
		}
		return vm.throwError(KindTypeError, "cannot add property '%s' to an array", ToString(key))
	case *Object:
		if !o.Set(ToString(key), value) {
			return vm.throwError(KindTypeError, "cannot assign to read only property '%s' of object", ToString(key))
		}
		return nil
	case *sandbox.Object:
		return vm.throwError(KindTypeError, "cannot set property '%s' of %s", ToString(key), o.ClassName())
	default:
		return nil
	}
}

// executeArrayLiteral executes an ArrayLiteral OpCode.
// Args: [element1, element2, ...]
func (vm *VM) executeArrayLiteral(op opcode.OpCode) (any, error) {
	elements := make([]any, 0, len(op.Args))
	for _, el := range op.Args {
		v, err := vm.evaluateValue(el)
		if err != nil {
			return nil, err
		}
		elements = append(elements, v)
	}
	return NewArrayFromSlice(elements), nil
}

// executeObjectLiteral executes an ObjectLiteral OpCode.
// Args: [keys []string, values []any]
func (vm *VM) executeObjectLiteral(op opcode.OpCode) (any, error) {
	keys, _ := op.Args[0].([]string)
	values, _ := op.Args[1].([]any)

	obj := NewObject()
	for i, key := range keys {
		v, err := vm.evaluateValue(values[i])
		if err != nil {
			return nil, err
		}
		if fn, ok := v.(*Function); ok && fn.Name == "" {
			fn.Name = key
		}
		obj.Set(key, v)
	}
	return obj, nil
}

// executeFunction executes a Function OpCode, creating a closure over the current scope.
// Args: [name string, params []string, body []OpCode]
func (vm *VM) executeFunction(op opcode.OpCode) (any, error) {
	name, _ := op.Args[0].(string)
	params, _ := op.Args[1].([]string)
	body, _ := op.Args[2].([]opcode.OpCode)

	closure := vm.scope
	fn := &Function{Name: name, Params: params, Body: body}
	if name != "" {
		// A named function expression sees its own name.
		closure = NewScope(vm.scope)
		closure.SetLocal(name, fn)
	}
	fn.Closure = closure
	return fn, nil
}

// argAt returns args[i] or undefined.
func argAt(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}
