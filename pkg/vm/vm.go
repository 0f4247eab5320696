// Package vm provides the virtual machine for executing processor script OpCodes.
// It implements a tree-walking interpreter with support for:
// - Lexical scopes, closures and exceptions
// - A yield hook called at every cooperative yield point
// - Host values filtered through a capability sandbox
// - Context cancellation checked at every statement and call
package vm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/zurustar/procscript/pkg/logger"
	"github.com/zurustar/procscript/pkg/opcode"
	"github.com/zurustar/procscript/pkg/sandbox"
)

// MaxStackDepth is the default maximum call stack depth before stack overflow.
const MaxStackDepth = 1000

// YieldHook is called at every yield point. A non-nil error aborts the run.
type YieldHook interface {
	OnYieldPoint(ctx context.Context, line int) error
}

// YieldFunc adapts a function to YieldHook.
type YieldFunc func(ctx context.Context, line int) error

// OnYieldPoint calls f.
func (f YieldFunc) OnYieldPoint(ctx context.Context, line int) error {
	return f(ctx, line)
}

// VM represents the virtual machine that executes OpCode instructions.
type VM struct {
	opcodes []opcode.OpCode

	globalScope *Scope
	scope       *Scope
	callStack   []*StackFrame
	maxDepth    int

	// Names installed by the VM itself, hidden from Globals.
	builtinNames map[string]bool
	globals      map[string]any

	sandbox *sandbox.Sandbox
	hook    YieldHook

	// yieldSeq counts yield points; loop guards compare against it.
	yieldSeq uint64
	line     int

	running bool
	runs    int
	mu      sync.RWMutex

	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	log *slog.Logger
}

// StackFrame represents a call stack frame for function calls.
type StackFrame struct {
	FunctionName string
	LocalScope   *Scope
	CallLine     int
}

// Option is a functional option for configuring the VM.
type Option func(*VM)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(vm *VM) {
		vm.log = log
	}
}

// WithContext sets the parent context. Cancelling it aborts the run.
func WithContext(ctx context.Context) Option {
	return func(vm *VM) {
		vm.parent = ctx
	}
}

// WithYieldHook sets the hook called at every yield point.
func WithYieldHook(hook YieldHook) Option {
	return func(vm *VM) {
		vm.hook = hook
	}
}

// WithSandbox sets the capability sandbox host values pass through.
func WithSandbox(sb *sandbox.Sandbox) Option {
	return func(vm *VM) {
		vm.sandbox = sb
	}
}

// WithGlobals predefines global variables. Host values are wrapped by the sandbox.
func WithGlobals(globals map[string]any) Option {
	return func(vm *VM) {
		for k, v := range globals {
			vm.globals[k] = v
		}
	}
}

// WithMaxStackDepth overrides MaxStackDepth.
func WithMaxStackDepth(depth int) Option {
	return func(vm *VM) {
		if depth > 0 {
			vm.maxDepth = depth
		}
	}
}

// New creates a new VM instance with the given OpCodes and options.
func New(opcodes []opcode.OpCode, opts ...Option) *VM {
	vm := &VM{
		opcodes:      opcodes,
		globalScope:  NewScope(nil),
		callStack:    make([]*StackFrame, 0, 64),
		maxDepth:     MaxStackDepth,
		builtinNames: make(map[string]bool),
		globals:      make(map[string]any),
		parent:       context.Background(),
		log:          logger.GetLogger(),
	}

	for _, opt := range opts {
		opt(vm)
	}

	if vm.sandbox == nil {
		vm.sandbox = sandbox.New(sandbox.WithLogger(vm.log))
	}
	vm.ctx, vm.cancel = context.WithCancel(vm.parent)
	vm.scope = vm.globalScope

	vm.registerDefaultBuiltins()

	names := make([]string, 0, len(vm.globals))
	for name := range vm.globals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		vm.globalScope.SetLocal(name, vm.fromHost(vm.globals[name]))
		vm.builtinNames[name] = true
	}

	return vm
}

// registerDefaultBuiltins installs the standard global objects and functions.
func (vm *VM) registerDefaultBuiltins() {
	vm.registerMathBuiltins()
	vm.registerStringBuiltins()
	vm.registerArrayBuiltins()
	vm.registerJSONBuiltins()
	vm.registerErrorBuiltins()
}

// RegisterBuiltinFunction installs a native global function.
func (vm *VM) RegisterBuiltinFunction(name string, fn BuiltinFunc) {
	vm.RegisterGlobal(name, &Builtin{Name: name, Fn: fn})
}

// RegisterGlobal installs a global value that Globals does not report.
func (vm *VM) RegisterGlobal(name string, value any) {
	vm.globalScope.SetLocal(name, value)
	vm.builtinNames[name] = true
}

// Run executes the program to completion.
// It returns nil on normal completion, an *AbortError when stopped from
// outside, or a *ScriptError for an uncaught exception.
func (vm *VM) Run() error {
	vm.mu.Lock()
	if vm.running {
		vm.mu.Unlock()
		return fmt.Errorf("VM is already running")
	}
	vm.running = true
	vm.mu.Unlock()

	defer func() {
		vm.mu.Lock()
		vm.running = false
		vm.mu.Unlock()
	}()

	vm.log.Debug("VM started", "opcode_count", len(vm.opcodes))

	// A rerun gets fresh let and const bindings; var globals keep their values.
	if vm.runs > 0 {
		vm.globalScope.ResetLexical()
	}
	vm.runs++

	vm.hoist(vm.opcodes, vm.globalScope, true)
	result, err := vm.executeBody(vm.opcodes)
	if err != nil {
		if IsAbort(err) {
			vm.log.Debug("VM aborted", "line", vm.line, "error", err)
		}
		return err
	}
	if _, isReturn := result.(*returnMarker); isReturn {
		return fmt.Errorf("return outside of function")
	}

	vm.log.Debug("VM completed", "line", vm.line)
	return nil
}

// Stop cancels the run. The worker stops at its next statement, call or yield.
func (vm *VM) Stop() {
	vm.cancel()
}

// IsRunning returns whether the VM is currently running.
func (vm *VM) IsRunning() bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.running
}

// Context returns the context of the run.
func (vm *VM) Context() context.Context {
	return vm.ctx
}

// Yield reports a yield point at the current line to the hook.
// Host builtins call it before touching the outside world.
func (vm *VM) Yield() error {
	vm.yieldSeq++
	if err := vm.ctx.Err(); err != nil {
		return vm.abort(err)
	}
	if vm.hook == nil {
		return nil
	}
	if err := vm.hook.OnYieldPoint(vm.ctx, vm.line); err != nil {
		if IsAbort(err) {
			return err
		}
		return vm.abort(err)
	}
	return nil
}

// YieldCount returns the number of yield points reached so far.
func (vm *VM) YieldCount() uint64 {
	return vm.yieldSeq
}

// Line returns the source line being executed.
func (vm *VM) Line() int {
	return vm.line
}

// ToString implements sandbox.Runtime.
func (vm *VM) ToString(v any) string { return ToString(v) }

// ToNumber implements sandbox.Runtime.
func (vm *VM) ToNumber(v any) float64 { return ToNumber(v) }

// ToBoolean implements sandbox.Runtime.
func (vm *VM) ToBoolean(v any) bool { return ToBoolean(v) }

// checkContext aborts when the run has been cancelled.
func (vm *VM) checkContext() error {
	select {
	case <-vm.ctx.Done():
		return vm.abort(vm.ctx.Err())
	default:
		return nil
	}
}

// Globals returns the names of script-defined global variables, sorted.
func (vm *VM) Globals() []string {
	var names []string
	for _, k := range vm.globalScope.Keys() {
		if !vm.builtinNames[k] {
			names = append(names, k)
		}
	}
	return names
}

// GetGlobal returns a global variable.
func (vm *VM) GetGlobal(name string) (any, bool) {
	return vm.globalScope.GetLocal(name)
}

// SetGlobal sets a global variable. Host values are wrapped by the sandbox.
func (vm *VM) SetGlobal(name string, value any) error {
	if vm.globalScope.IsConst(name) {
		return fmt.Errorf("assignment to constant variable %q", name)
	}
	vm.globalScope.SetLocal(name, vm.fromHost(value))
	return nil
}

// GetGlobalScope returns the global scope.
func (vm *VM) GetGlobalScope() *Scope {
	return vm.globalScope
}

// GetCurrentScope returns the innermost active scope.
func (vm *VM) GetCurrentScope() *Scope {
	return vm.scope
}

// PushStackFrame pushes a new stack frame for a function call.
func (vm *VM) PushStackFrame(functionName string, localScope *Scope) error {
	if len(vm.callStack) >= vm.maxDepth {
		return vm.throwError(KindRangeError, "maximum call stack size exceeded (%d)", vm.maxDepth)
	}

	frame := &StackFrame{
		FunctionName: functionName,
		LocalScope:   localScope,
		CallLine:     vm.line,
	}
	vm.callStack = append(vm.callStack, frame)

	vm.log.Debug("Stack frame pushed", "function", functionName, "depth", len(vm.callStack))
	return nil
}

// PopStackFrame pops the current stack frame after a function returns.
func (vm *VM) PopStackFrame() (*StackFrame, error) {
	if len(vm.callStack) == 0 {
		return nil, fmt.Errorf("cannot pop from empty call stack")
	}

	frame := vm.callStack[len(vm.callStack)-1]
	vm.callStack = vm.callStack[:len(vm.callStack)-1]
	vm.line = frame.CallLine

	vm.log.Debug("Stack frame popped", "function", frame.FunctionName, "depth", len(vm.callStack))
	return frame, nil
}

// GetStackDepth returns the current call stack depth.
func (vm *VM) GetStackDepth() int {
	return len(vm.callStack)
}

// Execute executes a single OpCode and returns the result.
// This is the main dispatch method that routes OpCodes to their handlers.
func (vm *VM) Execute(op opcode.OpCode) (any, error) {
	switch op.Cmd {
	case opcode.Declare:
		return vm.executeDeclare(op)
	case opcode.DefineFunction:
		// Hoisted when the enclosing body is entered.
		return nil, nil
	case opcode.Block:
		return vm.executeScopedBlock(op)
	case opcode.If:
		return vm.executeIf(op)
	case opcode.While:
		return vm.executeWhile(op)
	case opcode.DoWhile:
		return vm.executeDoWhile(op)
	case opcode.For:
		return vm.executeFor(op)
	case opcode.Switch:
		return vm.executeSwitch(op)
	case opcode.Break:
		return &breakSignal{}, nil
	case opcode.Continue:
		return &continueSignal{}, nil
	case opcode.Return:
		return vm.executeReturn(op)
	case opcode.Throw:
		return vm.executeThrow(op)
	case opcode.Try:
		return vm.executeTry(op)
	case opcode.Assign:
		return vm.executeAssign(op)
	case opcode.Update:
		return vm.executeUpdate(op)
	case opcode.BinaryOp:
		return vm.executeBinaryOp(op)
	case opcode.UnaryOp:
		return vm.executeUnaryOp(op)
	case opcode.Conditional:
		return vm.executeConditional(op)
	case opcode.Call:
		return vm.executeCall(op)
	case opcode.Member:
		return vm.executeMember(op)
	case opcode.Index:
		return vm.executeIndex(op)
	case opcode.ArrayLiteral:
		return vm.executeArrayLiteral(op)
	case opcode.ObjectLiteral:
		return vm.executeObjectLiteral(op)
	case opcode.Function:
		return vm.executeFunction(op)
	case opcode.Literal:
		if c, _ := op.Args[0].(opcode.Constant); c == opcode.Null {
			return nil, nil
		}
		return Undefined, nil
	default:
		return nil, fmt.Errorf("unknown OpCode command: %s", op.Cmd)
	}
}
