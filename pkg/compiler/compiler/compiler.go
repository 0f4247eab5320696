// Package compiler provides OpCode generation for processor scripts.
// It transforms an AST into a tree of OpCode instructions.
package compiler

import (
	"fmt"

	"github.com/zurustar/procscript/pkg/compiler/parser"
	"github.com/zurustar/procscript/pkg/opcode"
)

// CompilerError represents an error that occurred during compilation.
// It includes location information when available from AST nodes.
type CompilerError struct {
	Message string
	Line    int
	Column  int
}

// Error implements the error interface.
func (e *CompilerError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("compiler error at line %d, column %d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("compiler error: %s", e.Message)
}

// NewCompilerError creates a new CompilerError with the given message and location.
func NewCompilerError(message string, line, column int) *CompilerError {
	return &CompilerError{
		Message: message,
		Line:    line,
		Column:  column,
	}
}

// Compiler generates OpCode from an AST.
type Compiler struct {
	errors []*CompilerError

	// nesting counters used to reject misplaced break, continue and return
	loops     int
	switches  int
	functions int
}

// New creates a new Compiler.
func New() *Compiler {
	return &Compiler{
		errors: []*CompilerError{},
	}
}

// Compile compiles the given AST program into OpCode instructions.
// Returns the generated OpCode sequence and any compilation errors.
func (c *Compiler) Compile(program *parser.Program) ([]opcode.OpCode, []error) {
	if program == nil {
		return nil, []error{NewCompilerError("program is nil", 0, 0)}
	}

	opcodes := c.compileStatements(program.Statements)

	var errs []error
	for _, e := range c.errors {
		errs = append(errs, e)
	}

	return opcodes, errs
}

// Errors returns the list of compilation errors.
func (c *Compiler) Errors() []*CompilerError {
	return c.errors
}

func (c *Compiler) addError(line, column int, format string, args ...any) {
	c.errors = append(c.errors, NewCompilerError(fmt.Sprintf(format, args...), line, column))
}

func (c *Compiler) compileStatements(stmts []parser.Statement) []opcode.OpCode {
	opcodes := []opcode.OpCode{}
	for _, stmt := range stmts {
		opcodes = append(opcodes, c.compileStatement(stmt)...)
	}
	return opcodes
}

// compileStatement compiles a single statement into OpCode instructions.
// It dispatches to the appropriate compile method based on the statement type.
func (c *Compiler) compileStatement(stmt parser.Statement) []opcode.OpCode {
	switch s := stmt.(type) {
	case *parser.VarStatement:
		return c.compileVarStatement(s)
	case *parser.FunctionStatement:
		return c.compileFunctionStatement(s)
	case *parser.BlockStatement:
		return []opcode.OpCode{{
			Cmd:  opcode.Block,
			Args: []any{c.compileStatements(s.Statements)},
			Line: s.Token.Line,
		}}
	case *parser.ExpressionStatement:
		return c.compileExpressionStatement(s)
	case *parser.IfStatement:
		return c.compileIfStatement(s)
	case *parser.WhileStatement:
		return c.compileWhileStatement(s)
	case *parser.DoWhileStatement:
		return c.compileDoWhileStatement(s)
	case *parser.ForStatement:
		return c.compileForStatement(s)
	case *parser.SwitchStatement:
		return c.compileSwitchStatement(s)
	case *parser.BreakStatement:
		if c.loops == 0 && c.switches == 0 {
			c.addError(s.Token.Line, s.Token.Column, "break outside of loop or switch")
		}
		return []opcode.OpCode{{Cmd: opcode.Break, Args: []any{}, Line: s.Token.Line}}
	case *parser.ContinueStatement:
		if c.loops == 0 {
			c.addError(s.Token.Line, s.Token.Column, "continue outside of loop")
		}
		return []opcode.OpCode{{Cmd: opcode.Continue, Args: []any{}, Line: s.Token.Line}}
	case *parser.ReturnStatement:
		if c.functions == 0 {
			c.addError(s.Token.Line, s.Token.Column, "return outside of function")
		}
		args := []any{}
		if s.Value != nil {
			args = append(args, c.compileExpression(s.Value))
		}
		return []opcode.OpCode{{Cmd: opcode.Return, Args: args, Line: s.Token.Line}}
	case *parser.ThrowStatement:
		return []opcode.OpCode{{
			Cmd:  opcode.Throw,
			Args: []any{c.compileExpression(s.Value)},
			Line: s.Token.Line,
		}}
	case *parser.TryStatement:
		return c.compileTryStatement(s)
	default:
		c.addError(0, 0, "unknown statement type: %T", stmt)
		return []opcode.OpCode{}
	}
}

// compileBody compiles a loop or branch body. A block body becomes a single Block OpCode.
func (c *Compiler) compileBody(stmt parser.Statement) []opcode.OpCode {
	if stmt == nil {
		return []opcode.OpCode{}
	}
	return c.compileStatement(stmt)
}

// compileVarStatement compiles var/let/const into one Declare per name.
//
// Example: let a = 1, b;
//
//	{Cmd: opcode.Declare, Args: []any{"let", opcode.Variable("a"), 1.0}}
//	{Cmd: opcode.Declare, Args: []any{"let", opcode.Variable("b"), nil}}
func (c *Compiler) compileVarStatement(vs *parser.VarStatement) []opcode.OpCode {
	opcodes := make([]opcode.OpCode, 0, len(vs.Names))
	for i, name := range vs.Names {
		var value any
		if vs.Values[i] != nil {
			value = c.compileExpression(vs.Values[i])
		}
		opcodes = append(opcodes, opcode.OpCode{
			Cmd:  opcode.Declare,
			Args: []any{vs.Kind, opcode.Variable(name), value},
			Line: vs.Token.Line,
		})
	}
	return opcodes
}

func (c *Compiler) compileFunctionBody(body *parser.BlockStatement) []opcode.OpCode {
	loops, switches := c.loops, c.switches
	c.loops, c.switches = 0, 0
	c.functions++
	defer func() {
		c.loops, c.switches = loops, switches
		c.functions--
	}()

	if body == nil {
		return []opcode.OpCode{}
	}
	return c.compileStatements(body.Statements)
}

// compileFunctionStatement compiles a function declaration.
func (c *Compiler) compileFunctionStatement(fs *parser.FunctionStatement) []opcode.OpCode {
	return []opcode.OpCode{{
		Cmd:  opcode.DefineFunction,
		Args: []any{fs.Name, fs.Params, c.compileFunctionBody(fs.Body)},
		Line: fs.Token.Line,
	}}
}

// compileExpressionStatement compiles an expression evaluated for its side effects.
// Plain literals and variable reads produce no OpCode.
func (c *Compiler) compileExpressionStatement(es *parser.ExpressionStatement) []opcode.OpCode {
	if es.Expression == nil {
		return []opcode.OpCode{}
	}
	result := c.compileExpression(es.Expression)
	if op, ok := result.(opcode.OpCode); ok {
		op.Line = es.Token.Line
		return []opcode.OpCode{op}
	}
	return []opcode.OpCode{}
}

// compileIfStatement compiles an if statement.
// For if-else if chains, the else block contains another If.
//
// Example: if (x > 5) { y = 10 } else { y = 0 }
//
//	opcode.OpCode{
//	    Cmd: opcode.If,
//	    Args: []any{
//	        opcode.OpCode{Cmd: opcode.BinaryOp, Args: []any{">", opcode.Variable("x"), 5.0}},
//	        []opcode.OpCode{{Cmd: opcode.Block, ...}},
//	        []opcode.OpCode{{Cmd: opcode.Block, ...}},
//	    },
//	}
func (c *Compiler) compileIfStatement(is *parser.IfStatement) []opcode.OpCode {
	condition := c.compileExpression(is.Condition)
	thenBlock := c.compileBody(is.Consequence)
	elseBlock := c.compileBody(is.Alternative)

	return []opcode.OpCode{{
		Cmd:  opcode.If,
		Args: []any{condition, thenBlock, elseBlock},
		Line: is.Token.Line,
	}}
}

func guardOf(g *parser.YieldGuard) *opcode.Guard {
	if g == nil {
		return nil
	}
	return &opcode.Guard{ID: g.ID, Line: g.Line}
}

func (c *Compiler) compileLoopBody(stmt parser.Statement) []opcode.OpCode {
	c.loops++
	defer func() { c.loops-- }()
	return c.compileBody(stmt)
}

// compileWhileStatement compiles a while loop.
// Args: [condition, body, guard]
func (c *Compiler) compileWhileStatement(ws *parser.WhileStatement) []opcode.OpCode {
	condition := c.compileExpression(ws.Condition)
	body := c.compileLoopBody(ws.Body)

	return []opcode.OpCode{{
		Cmd:  opcode.While,
		Args: []any{condition, body, guardOf(ws.Guard)},
		Line: ws.Token.Line,
	}}
}

// compileDoWhileStatement compiles a do-while loop.
// Args: [body, condition, guard]
func (c *Compiler) compileDoWhileStatement(dw *parser.DoWhileStatement) []opcode.OpCode {
	body := c.compileLoopBody(dw.Body)
	condition := c.compileExpression(dw.Condition)

	return []opcode.OpCode{{
		Cmd:  opcode.DoWhile,
		Args: []any{body, condition, guardOf(dw.Guard)},
		Line: dw.Token.Line,
	}}
}

// compileForStatement compiles a for loop.
//
// Example: for (let i = 0; i < 10; i++) { ... }
//
//	opcode.OpCode{
//	    Cmd: opcode.For,
//	    Args: []any{
//	        []opcode.OpCode{{Cmd: opcode.Declare, Args: []any{"let", opcode.Variable("i"), 0.0}}},
//	        opcode.OpCode{Cmd: opcode.BinaryOp, Args: []any{"<", opcode.Variable("i"), 10.0}},
//	        opcode.OpCode{Cmd: opcode.Update, Args: []any{"++", false, opcode.Variable("i")}},
//	        []opcode.OpCode{...},
//	        &opcode.Guard{...},
//	    },
//	}
func (c *Compiler) compileForStatement(fs *parser.ForStatement) []opcode.OpCode {
	initBlock := []opcode.OpCode{}
	if fs.Init != nil {
		initBlock = c.compileStatement(fs.Init)
	}

	var condition any
	if fs.Condition != nil {
		condition = c.compileExpression(fs.Condition)
	}

	var post any
	if fs.Post != nil {
		post = c.compileExpression(fs.Post)
	}

	body := c.compileLoopBody(fs.Body)

	return []opcode.OpCode{{
		Cmd:  opcode.For,
		Args: []any{initBlock, condition, post, body, guardOf(fs.Guard)},
		Line: fs.Token.Line,
	}}
}

// compileSwitchStatement compiles a switch statement.
// Clauses keep their source order so that fallthrough and a default in the middle work.
func (c *Compiler) compileSwitchStatement(ss *parser.SwitchStatement) []opcode.OpCode {
	value := c.compileExpression(ss.Value)

	c.switches++
	defer func() { c.switches-- }()

	cases := make([]opcode.CaseClause, 0, len(ss.Cases))
	for _, clause := range ss.Cases {
		cc := opcode.CaseClause{Body: c.compileStatements(clause.Body)}
		if clause.Value == nil {
			cc.IsDefault = true
		} else {
			cc.Value = c.compileExpression(clause.Value)
		}
		cases = append(cases, cc)
	}

	return []opcode.OpCode{{
		Cmd:  opcode.Switch,
		Args: []any{value, cases},
		Line: ss.Token.Line,
	}}
}

// compileTryStatement compiles try/catch/finally.
// Args: [block, catchParam, catchBlock, finallyBlock]
func (c *Compiler) compileTryStatement(ts *parser.TryStatement) []opcode.OpCode {
	block := c.compileStatements(ts.Block.Statements)

	var catchBlock, finallyBlock []opcode.OpCode
	if ts.Catch != nil {
		catchBlock = c.compileStatements(ts.Catch.Statements)
	}
	if ts.Finally != nil {
		finallyBlock = c.compileStatements(ts.Finally.Statements)
	}

	return []opcode.OpCode{{
		Cmd:  opcode.Try,
		Args: []any{block, ts.CatchParam, catchBlock, finallyBlock},
		Line: ts.Token.Line,
	}}
}

// compileExpression compiles an expression and returns its value representation.
// The returned value can be:
// - Primitive values (float64, string, bool)
// - Variable references (Variable type)
// - OpCode for everything else
func (c *Compiler) compileExpression(expr parser.Expression) any {
	if expr == nil {
		return nil
	}

	switch e := expr.(type) {
	case *parser.Identifier:
		return opcode.Variable(e.Value)
	case *parser.NumberLiteral:
		return e.Value
	case *parser.StringLiteral:
		return e.Value
	case *parser.BooleanLiteral:
		return e.Value
	case *parser.NullLiteral:
		return opcode.OpCode{Cmd: opcode.Literal, Args: []any{opcode.Null}, Line: e.Token.Line}
	case *parser.UndefinedLiteral:
		return opcode.OpCode{Cmd: opcode.Literal, Args: []any{opcode.Undefined}, Line: e.Token.Line}
	case *parser.ArrayLiteral:
		elements := make([]any, 0, len(e.Elements))
		for _, el := range e.Elements {
			elements = append(elements, c.compileExpression(el))
		}
		return opcode.OpCode{Cmd: opcode.ArrayLiteral, Args: elements, Line: e.Token.Line}
	case *parser.ObjectLiteral:
		values := make([]any, 0, len(e.Values))
		for _, v := range e.Values {
			values = append(values, c.compileExpression(v))
		}
		return opcode.OpCode{Cmd: opcode.ObjectLiteral, Args: []any{e.Keys, values}, Line: e.Token.Line}
	case *parser.FunctionLiteral:
		return opcode.OpCode{
			Cmd:  opcode.Function,
			Args: []any{e.Name, e.Params, c.compileFunctionBody(e.Body)},
			Line: e.Token.Line,
		}
	case *parser.PrefixExpression:
		return opcode.OpCode{
			Cmd:  opcode.UnaryOp,
			Args: []any{e.Operator, c.compileExpression(e.Right)},
			Line: e.Token.Line,
		}
	case *parser.UpdateExpression:
		return opcode.OpCode{
			Cmd:  opcode.Update,
			Args: []any{e.Operator, e.Prefix, c.compileTarget(e.Target)},
			Line: e.Token.Line,
		}
	case *parser.InfixExpression:
		return opcode.OpCode{
			Cmd:  opcode.BinaryOp,
			Args: []any{e.Operator, c.compileExpression(e.Left), c.compileExpression(e.Right)},
			Line: e.Token.Line,
		}
	case *parser.AssignExpression:
		return opcode.OpCode{
			Cmd:  opcode.Assign,
			Args: []any{e.Operator, c.compileTarget(e.Target), c.compileExpression(e.Value)},
			Line: e.Token.Line,
		}
	case *parser.ConditionalExpression:
		return opcode.OpCode{
			Cmd: opcode.Conditional,
			Args: []any{
				c.compileExpression(e.Condition),
				c.compileExpression(e.Then),
				c.compileExpression(e.Else),
			},
			Line: e.Token.Line,
		}
	case *parser.CallExpression:
		args := []any{c.compileExpression(e.Function)}
		for _, arg := range e.Arguments {
			args = append(args, c.compileExpression(arg))
		}
		return opcode.OpCode{Cmd: opcode.Call, Args: args, Line: e.Token.Line}
	case *parser.MemberExpression:
		return opcode.OpCode{
			Cmd:  opcode.Member,
			Args: []any{c.compileExpression(e.Object), e.Property},
			Line: e.Token.Line,
		}
	case *parser.IndexExpression:
		return opcode.OpCode{
			Cmd:  opcode.Index,
			Args: []any{c.compileExpression(e.Left), c.compileExpression(e.Index)},
			Line: e.Token.Line,
		}
	default:
		c.addError(0, 0, "unknown expression type: %T", expr)
		return nil
	}
}

// compileTarget compiles the left side of an assignment or update.
func (c *Compiler) compileTarget(expr parser.Expression) any {
	switch t := expr.(type) {
	case *parser.Identifier, *parser.MemberExpression, *parser.IndexExpression:
		return c.compileExpression(t)
	default:
		c.addError(0, 0, "invalid assignment target: %T", expr)
		return nil
	}
}
