// Package opcode defines the instruction set for the processor script virtual machine.
// This package is the foundation that both the compiler and VM depend on.
// The compiler generates OpCode trees, and the VM executes them.
package opcode

// Cmd represents an OpCode command type.
// Each Cmd corresponds to a specific operation that the VM can execute.
type Cmd string

// Statement commands.
const (
	// Declare declares variables in the current scope.
	// Args: [kind string ("var", "let", "const"), Variable(name), value]
	// A nil value declares the variable as undefined.
	Declare Cmd = "Declare"

	// DefineFunction declares a named function, hoisted to the top of its scope.
	// Args: [name string, params []string, body []OpCode]
	DefineFunction Cmd = "DefineFunction"

	// Block executes statements in a fresh lexical scope.
	// Args: [body []OpCode]
	Block Cmd = "Block"

	// If executes conditional branching.
	// Args: [condition, thenBlock []OpCode, elseBlock []OpCode]
	If Cmd = "If"

	// While executes a while loop.
	// Args: [condition, bodyBlock []OpCode, guard *Guard]
	While Cmd = "While"

	// DoWhile executes a do-while loop.
	// Args: [bodyBlock []OpCode, condition, guard *Guard]
	DoWhile Cmd = "DoWhile"

	// For executes a for loop. A nil condition loops forever.
	// Args: [initBlock []OpCode, condition, post, bodyBlock []OpCode, guard *Guard]
	For Cmd = "For"

	// Switch executes a switch statement with fallthrough.
	// Args: [value, cases []CaseClause]
	Switch Cmd = "Switch"

	// Break breaks out of the current loop or switch.
	// Args: []
	Break Cmd = "Break"

	// Continue continues to the next iteration of the current loop.
	// Args: []
	Continue Cmd = "Continue"

	// Return returns from the current function.
	// Args: [] or [value]
	Return Cmd = "Return"

	// Throw raises a script exception.
	// Args: [value]
	Throw Cmd = "Throw"

	// Try executes a block with optional catch and finally blocks.
	// Args: [block []OpCode, catchParam string, catchBlock []OpCode, finallyBlock []OpCode]
	// catchBlock and finallyBlock are nil when absent.
	Try Cmd = "Try"
)

// Expression commands. They may also appear as statements; the result is discarded.
const (
	// Assign assigns to a variable, member or index target.
	// Args: [operator string ("=", "+=", ...), target, value]
	// target is a Variable or an OpCode with Cmd Member or Index.
	Assign Cmd = "Assign"

	// Update applies ++ or -- to a target.
	// Args: [operator string, prefix bool, target]
	Update Cmd = "Update"

	// BinaryOp performs a binary operation.
	// && || and ?? short-circuit.
	// Args: [operator, leftOperand, rightOperand]
	BinaryOp Cmd = "BinaryOp"

	// UnaryOp performs a unary operation (-, +, !, typeof).
	// Args: [operator, operand]
	UnaryOp Cmd = "UnaryOp"

	// Conditional evaluates cond ? then : else.
	// Args: [condition, then, else]
	Conditional Cmd = "Conditional"

	// Call invokes a function. A Member callee binds this.
	// Args: [callee, arg1, arg2, ...]
	Call Cmd = "Call"

	// Member reads a named property.
	// Args: [object, name string]
	Member Cmd = "Member"

	// Index reads a computed property or array element.
	// Args: [object, key]
	Index Cmd = "Index"

	// ArrayLiteral creates an array.
	// Args: [element1, element2, ...]
	ArrayLiteral Cmd = "ArrayLiteral"

	// ObjectLiteral creates an object with ordered keys.
	// Args: [keys []string, values []any]
	ObjectLiteral Cmd = "ObjectLiteral"

	// Function creates a closure over the current scope.
	// Args: [name string, params []string, body []OpCode]
	Function Cmd = "Function"

	// Literal produces null or undefined.
	// Args: [Null or Undefined]
	Literal Cmd = "Literal"
)

// OpCode represents a single instruction for the VM.
// It consists of a command type (Cmd), a slice of arguments (Args) and the
// source line the instruction was compiled from.
// The Args can contain various types including:
// - Primitive values (float64, string, bool)
// - Variable references (Variable type)
// - Nested OpCode structures for complex expressions
// - Slices of OpCode for block statements
type OpCode struct {
	Cmd  Cmd
	Args []any
	Line int
}

// Variable represents a variable reference in OpCode arguments.
// This type distinguishes variable references from literal string values.
// When the VM encounters a Variable in Args, it should resolve the variable
// by name from the current scope.
type Variable string

// Constant is the argument of a Literal OpCode.
type Constant int

const (
	Undefined Constant = iota
	Null
)

// Guard marks a loop as preemptible. It is present on loops instrumented
// by the yield injector and nil otherwise.
type Guard struct {
	ID   int
	Line int
}

// CaseClause is one clause of a Switch. Default clauses have IsDefault set
// and a nil Value.
type CaseClause struct {
	Value     any
	IsDefault bool
	Body      []OpCode
}
