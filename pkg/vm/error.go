package vm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAborted is matched by every error that stops a run from outside the script:
// a cancelled context or a yield hook that refused to continue.
var ErrAborted = errors.New("script aborted")

// AbortError ends a run. Script try/catch never sees it.
type AbortError struct {
	Cause error
	Line  int
}

func (e *AbortError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("script aborted at line %d", e.Line)
	}
	return fmt.Sprintf("script aborted at line %d: %v", e.Line, e.Cause)
}

// Unwrap exposes both ErrAborted and the cause to errors.Is.
func (e *AbortError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrAborted}
	}
	return []error{ErrAborted, e.Cause}
}

// IsAbort reports whether err ends the run regardless of script handlers.
func IsAbort(err error) bool {
	return errors.Is(err, ErrAborted)
}

// ErrorKind names the built-in error constructors.
type ErrorKind string

const (
	KindError          ErrorKind = "Error"
	KindTypeError      ErrorKind = "TypeError"
	KindReferenceError ErrorKind = "ReferenceError"
	KindRangeError     ErrorKind = "RangeError"
	KindSyntaxError    ErrorKind = "SyntaxError"
)

// ScriptError is an exception raised in script code, either by throw or by the
// runtime. Value is what a catch clause binds.
type ScriptError struct {
	Value   any
	Message string
	Line    int
	Trace   []string
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("Uncaught %s (line %d)", e.Message, e.Line)
}

// StackTrace renders the trace, innermost frame first.
func (e *ScriptError) StackTrace() string {
	return strings.Join(e.Trace, "\n")
}

// NewErrorObject creates the object a runtime error throws.
func NewErrorObject(kind ErrorKind, message string) *Object {
	obj := NewObject()
	obj.class = string(kind)
	obj.Set("name", string(kind))
	obj.Set("message", message)
	return obj
}

// throwError builds a ScriptError of the given kind at the current line.
func (vm *VM) throwError(kind ErrorKind, format string, args ...any) *ScriptError {
	msg := fmt.Sprintf(format, args...)
	return &ScriptError{
		Value:   NewErrorObject(kind, msg),
		Message: string(kind) + ": " + msg,
		Line:    vm.line,
		Trace:   vm.trace(),
	}
}

// throwValue builds a ScriptError for a script throw statement.
func (vm *VM) throwValue(v any) *ScriptError {
	return &ScriptError{
		Value:   v,
		Message: ToString(v),
		Line:    vm.line,
		Trace:   vm.trace(),
	}
}

// abort builds the error that stops the run.
func (vm *VM) abort(cause error) *AbortError {
	return &AbortError{Cause: cause, Line: vm.line}
}

// trace lists active calls, innermost first.
func (vm *VM) trace() []string {
	lines := make([]string, 0, len(vm.callStack)+1)
	current := vm.line
	for i := len(vm.callStack) - 1; i >= 0; i-- {
		f := vm.callStack[i]
		name := f.FunctionName
		if name == "" {
			name = "<anonymous>"
		}
		lines = append(lines, fmt.Sprintf("at %s (line %d)", name, current))
		current = f.CallLine
	}
	lines = append(lines, fmt.Sprintf("at <main> (line %d)", current))
	return lines
}
