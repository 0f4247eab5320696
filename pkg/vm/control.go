package vm

import (
	"errors"
	"fmt"

	"github.com/zurustar/procscript/pkg/opcode"
)

// breakSignal is a special type to signal a break from a loop or switch.
type breakSignal struct{}

// continueSignal is a special type to signal a continue in a loop.
type continueSignal struct{}

// returnMarker is a special type to indicate a function return.
type returnMarker struct {
	value any
}

func isSignal(v any) bool {
	switch v.(type) {
	case *breakSignal, *continueSignal, *returnMarker:
		return true
	}
	return false
}

// executeBody executes statements in the current scope.
// Break, continue and return signals stop the body and are returned to the caller.
func (vm *VM) executeBody(ops []opcode.OpCode) (any, error) {
	for _, op := range ops {
		if err := vm.checkContext(); err != nil {
			return nil, err
		}
		if op.Line > 0 {
			vm.line = op.Line
		}
		result, err := vm.Execute(op)
		if err != nil {
			return nil, err
		}
		if isSignal(result) {
			return result, nil
		}
	}
	return nil, nil
}

// runIn executes ops with scope as the current scope.
func (vm *VM) runIn(scope *Scope, ops []opcode.OpCode) (any, error) {
	prev := vm.scope
	vm.scope = scope
	defer func() { vm.scope = prev }()

	vm.hoist(ops, scope, false)
	return vm.executeBody(ops)
}

// hoist defines function declarations of ops in scope before the body runs.
// With vars set, var names anywhere in the body (outside nested functions)
// are also declared as undefined.
func (vm *VM) hoist(ops []opcode.OpCode, scope *Scope, vars bool) {
	for _, op := range ops {
		if op.Cmd != opcode.DefineFunction {
			continue
		}
		name, _ := op.Args[0].(string)
		params, _ := op.Args[1].([]string)
		body, _ := op.Args[2].([]opcode.OpCode)
		scope.SetLocal(name, &Function{Name: name, Params: params, Body: body, Closure: scope})
	}
	if vars {
		hoistVars(ops, scope)
	}
}

func hoistVars(ops []opcode.OpCode, scope *Scope) {
	for _, op := range ops {
		switch op.Cmd {
		case opcode.Declare:
			if kind, _ := op.Args[0].(string); kind == "var" {
				name := string(op.Args[1].(opcode.Variable))
				if !scope.HasLocal(name) {
					scope.SetLocal(name, Undefined)
				}
			}
		case opcode.Block:
			hoistVars(bodyArg(op, 0), scope)
		case opcode.If:
			hoistVars(bodyArg(op, 1), scope)
			hoistVars(bodyArg(op, 2), scope)
		case opcode.While:
			hoistVars(bodyArg(op, 1), scope)
		case opcode.DoWhile:
			hoistVars(bodyArg(op, 0), scope)
		case opcode.For:
			hoistVars(bodyArg(op, 0), scope)
			hoistVars(bodyArg(op, 3), scope)
		case opcode.Switch:
			cases, _ := op.Args[1].([]opcode.CaseClause)
			for _, c := range cases {
				hoistVars(c.Body, scope)
			}
		case opcode.Try:
			hoistVars(bodyArg(op, 0), scope)
			hoistVars(bodyArg(op, 2), scope)
			hoistVars(bodyArg(op, 3), scope)
		}
	}
}

func bodyArg(op opcode.OpCode, i int) []opcode.OpCode {
	if i >= len(op.Args) {
		return nil
	}
	body, _ := op.Args[i].([]opcode.OpCode)
	return body
}

// guard runs a loop's yield guard. It yields unless a yield point was
// reached since mark, then moves mark to the current yield count.
func (vm *VM) guard(g *opcode.Guard, mark *uint64) error {
	if g == nil {
		return vm.checkContext()
	}
	if vm.yieldSeq == *mark {
		vm.line = g.Line
		if err := vm.Yield(); err != nil {
			return err
		}
	}
	*mark = vm.yieldSeq
	return nil
}

// executeDeclare executes a Declare OpCode.
// Args: [kind, Variable(name), value or nil]
func (vm *VM) executeDeclare(op opcode.OpCode) (any, error) {
	kind, _ := op.Args[0].(string)
	name := string(op.Args[1].(opcode.Variable))

	var value any = Undefined
	hasInit := op.Args[2] != nil
	if hasInit {
		v, err := vm.evaluateValue(op.Args[2])
		if err != nil {
			return nil, err
		}
		value = v
		if fn, ok := value.(*Function); ok && fn.Name == "" {
			fn.Name = name
		}
	}

	switch kind {
	case "var":
		fs := vm.scope.FunctionScope()
		if !hasInit && fs.HasLocal(name) {
			return nil, nil
		}
		fs.SetLocal(name, value)
	default:
		if err := vm.scope.Declare(name, value, kind == "const"); err != nil {
			return nil, vm.throwError(KindSyntaxError, "%v", err)
		}
	}

	vm.log.Debug("Variable declared", "kind", kind, "name", name)
	return nil, nil
}

// executeScopedBlock executes a Block OpCode in a fresh lexical scope.
// Args: [body []OpCode]
func (vm *VM) executeScopedBlock(op opcode.OpCode) (any, error) {
	return vm.runIn(NewScope(vm.scope), bodyArg(op, 0))
}

// executeIf executes an If OpCode.
// Args: [condition, thenBlock []OpCode, elseBlock []OpCode]
func (vm *VM) executeIf(op opcode.OpCode) (any, error) {
	if len(op.Args) < 3 {
		return nil, fmt.Errorf("If requires 3 arguments, got %d", len(op.Args))
	}

	conditionVal, err := vm.evaluateValue(op.Args[0])
	if err != nil {
		return nil, err
	}

	if ToBoolean(conditionVal) {
		return vm.executeBody(bodyArg(op, 1))
	}
	return vm.executeBody(bodyArg(op, 2))
}

// executeWhile executes a While OpCode. The guard runs before every condition check.
// Args: [condition, bodyBlock []OpCode, guard *Guard]
func (vm *VM) executeWhile(op opcode.OpCode) (any, error) {
	body := bodyArg(op, 1)
	g, _ := op.Args[2].(*opcode.Guard)
	mark := vm.yieldSeq

	for {
		if err := vm.guard(g, &mark); err != nil {
			return nil, err
		}

		conditionVal, err := vm.evaluateValue(op.Args[0])
		if err != nil {
			return nil, err
		}
		if !ToBoolean(conditionVal) {
			return nil, nil
		}

		result, err := vm.executeBody(body)
		if err != nil {
			return nil, err
		}
		switch result.(type) {
		case *breakSignal:
			return nil, nil
		case *returnMarker:
			return result, nil
		}
	}
}

// executeDoWhile executes a DoWhile OpCode. The guard runs before every condition check.
// Args: [bodyBlock []OpCode, condition, guard *Guard]
func (vm *VM) executeDoWhile(op opcode.OpCode) (any, error) {
	body := bodyArg(op, 0)
	g, _ := op.Args[2].(*opcode.Guard)
	mark := vm.yieldSeq

	for {
		result, err := vm.executeBody(body)
		if err != nil {
			return nil, err
		}
		switch result.(type) {
		case *breakSignal:
			return nil, nil
		case *returnMarker:
			return result, nil
		}

		if err := vm.guard(g, &mark); err != nil {
			return nil, err
		}

		conditionVal, err := vm.evaluateValue(op.Args[1])
		if err != nil {
			return nil, err
		}
		if !ToBoolean(conditionVal) {
			return nil, nil
		}
	}
}

// executeFor executes a For OpCode in its own scope.
// The guard runs at the end of every iteration, before the post expression.
// Args: [initBlock []OpCode, condition, post, bodyBlock []OpCode, guard *Guard]
func (vm *VM) executeFor(op opcode.OpCode) (any, error) {
	if len(op.Args) < 5 {
		return nil, fmt.Errorf("For requires 5 arguments, got %d", len(op.Args))
	}

	prev := vm.scope
	header := NewScope(prev)
	vm.scope = header
	defer func() { vm.scope = prev }()

	if _, err := vm.executeBody(bodyArg(op, 0)); err != nil {
		return nil, err
	}

	// let bindings from the header get a fresh copy per iteration, so
	// closures created in the body see that iteration's values.
	perIteration := header.Size() > 0
	if perIteration {
		vm.scope = header.Clone()
	}

	condition, post := op.Args[1], op.Args[2]
	body := bodyArg(op, 3)
	g, _ := op.Args[4].(*opcode.Guard)
	mark := vm.yieldSeq

	for {
		if err := vm.checkContext(); err != nil {
			return nil, err
		}

		if condition != nil {
			conditionVal, err := vm.evaluateValue(condition)
			if err != nil {
				return nil, err
			}
			if !ToBoolean(conditionVal) {
				return nil, nil
			}
		}

		result, err := vm.executeBody(body)
		if err != nil {
			return nil, err
		}
		switch result.(type) {
		case *breakSignal:
			return nil, nil
		case *returnMarker:
			return result, nil
		}

		if err := vm.guard(g, &mark); err != nil {
			return nil, err
		}

		if perIteration {
			vm.scope = vm.scope.Clone()
		}
		if post != nil {
			if _, err := vm.evaluateValue(post); err != nil {
				return nil, err
			}
		}
	}
}

// executeSwitch executes a Switch OpCode with fallthrough.
// Cases are compared with strict equality in source order; default is used when none match.
// Args: [value, cases []CaseClause]
func (vm *VM) executeSwitch(op opcode.OpCode) (any, error) {
	switchVal, err := vm.evaluateValue(op.Args[0])
	if err != nil {
		return nil, err
	}

	cases, ok := op.Args[1].([]opcode.CaseClause)
	if !ok {
		return nil, fmt.Errorf("Switch cases must be []CaseClause, got %T", op.Args[1])
	}

	start := -1
	for i, c := range cases {
		if c.IsDefault {
			continue
		}
		caseVal, err := vm.evaluateValue(c.Value)
		if err != nil {
			return nil, err
		}
		if StrictEquals(switchVal, caseVal) {
			start = i
			break
		}
	}
	if start < 0 {
		for i, c := range cases {
			if c.IsDefault {
				start = i
				break
			}
		}
	}
	if start < 0 {
		return nil, nil
	}

	prev := vm.scope
	vm.scope = NewScope(prev)
	defer func() { vm.scope = prev }()
	for _, c := range cases {
		vm.hoist(c.Body, vm.scope, false)
	}

	for _, c := range cases[start:] {
		result, err := vm.executeBody(c.Body)
		if err != nil {
			return nil, err
		}
		if _, isBreak := result.(*breakSignal); isBreak {
			return nil, nil
		}
		if result != nil {
			return result, nil
		}
	}
	return nil, nil
}

// executeReturn executes a Return OpCode.
// Args: [] or [value]
func (vm *VM) executeReturn(op opcode.OpCode) (any, error) {
	if len(op.Args) == 0 {
		return &returnMarker{value: Undefined}, nil
	}
	value, err := vm.evaluateValue(op.Args[0])
	if err != nil {
		return nil, err
	}
	return &returnMarker{value: value}, nil
}

// executeThrow executes a Throw OpCode.
// Args: [value]
func (vm *VM) executeThrow(op opcode.OpCode) (any, error) {
	value, err := vm.evaluateValue(op.Args[0])
	if err != nil {
		return nil, err
	}
	return nil, vm.throwValue(value)
}

// executeTry executes a Try OpCode.
// Only script exceptions are caught; aborts pass through and skip finally.
// Args: [block []OpCode, catchParam string, catchBlock []OpCode, finallyBlock []OpCode]
func (vm *VM) executeTry(op opcode.OpCode) (any, error) {
	block := bodyArg(op, 0)
	param, _ := op.Args[1].(string)
	catchBlock := bodyArg(op, 2)
	finallyBlock := bodyArg(op, 3)

	result, err := vm.runIn(NewScope(vm.scope), block)

	var se *ScriptError
	if err != nil && catchBlock != nil && errors.As(err, &se) && !IsAbort(err) {
		scope := NewScope(vm.scope)
		if param != "" {
			scope.SetLocal(param, se.Value)
		}
		result, err = vm.runIn(scope, catchBlock)
	}

	if finallyBlock != nil && !IsAbort(err) {
		finResult, finErr := vm.runIn(NewScope(vm.scope), finallyBlock)
		if finErr != nil {
			return nil, finErr
		}
		if isSignal(finResult) {
			return finResult, nil
		}
	}

	return result, err
}
