// Package inject makes loop constructs cooperatively preemptible.
//
// Instrument walks a parsed program and attaches a YieldGuard to every
// while, do-while and for loop, including loops nested in function bodies
// and function expressions. The guard is a separate AST node, so loop
// headers, evaluation order and scoping are left as written.
//
// Unbounded work without a loop keyword, such as recursion, is not instrumented.
package inject

import (
	"github.com/zurustar/procscript/pkg/compiler/parser"
)

// Result summarizes one instrumentation pass.
type Result struct {
	// Guards is the number of loop sites that received a guard.
	Guards int
	// Lines lists the source line of each guarded loop, in guard ID order.
	Lines []int
}

type injector struct {
	next  int
	lines []int
}

// Instrument attaches yield guards to every loop in program.
// Guard IDs are assigned in source order starting at 1.
// Running Instrument twice on the same program keeps the existing guards.
func Instrument(program *parser.Program) Result {
	in := &injector{}
	if program != nil {
		in.statements(program.Statements)
	}
	return Result{Guards: len(in.lines), Lines: in.lines}
}

func (in *injector) guard(existing *parser.YieldGuard, line int) *parser.YieldGuard {
	if existing != nil {
		in.lines = append(in.lines, existing.Line)
		if existing.ID > in.next {
			in.next = existing.ID
		}
		return existing
	}
	in.next++
	in.lines = append(in.lines, line)
	return &parser.YieldGuard{ID: in.next, Line: line}
}

func (in *injector) statements(stmts []parser.Statement) {
	for _, s := range stmts {
		in.statement(s)
	}
}

func (in *injector) statement(s parser.Statement) {
	switch n := s.(type) {
	case nil:
	case *parser.WhileStatement:
		n.Guard = in.guard(n.Guard, n.Token.Line)
		in.expression(n.Condition)
		in.statement(n.Body)
	case *parser.DoWhileStatement:
		n.Guard = in.guard(n.Guard, n.Token.Line)
		in.statement(n.Body)
		in.expression(n.Condition)
	case *parser.ForStatement:
		n.Guard = in.guard(n.Guard, n.Token.Line)
		in.statement(n.Init)
		in.expression(n.Condition)
		in.expression(n.Post)
		in.statement(n.Body)
	case *parser.BlockStatement:
		if n != nil {
			in.statements(n.Statements)
		}
	case *parser.ExpressionStatement:
		in.expression(n.Expression)
	case *parser.VarStatement:
		for _, v := range n.Values {
			in.expression(v)
		}
	case *parser.FunctionStatement:
		in.statement(n.Body)
	case *parser.IfStatement:
		in.expression(n.Condition)
		in.statement(n.Consequence)
		in.statement(n.Alternative)
	case *parser.ReturnStatement:
		in.expression(n.Value)
	case *parser.ThrowStatement:
		in.expression(n.Value)
	case *parser.TryStatement:
		in.statement(n.Block)
		if n.Catch != nil {
			in.statement(n.Catch)
		}
		if n.Finally != nil {
			in.statement(n.Finally)
		}
	case *parser.SwitchStatement:
		in.expression(n.Value)
		for _, c := range n.Cases {
			in.expression(c.Value)
			in.statements(c.Body)
		}
	}
}

// expression descends into expressions only to reach function literals.
func (in *injector) expression(e parser.Expression) {
	switch n := e.(type) {
	case nil:
	case *parser.FunctionLiteral:
		in.statement(n.Body)
	case *parser.ArrayLiteral:
		for _, el := range n.Elements {
			in.expression(el)
		}
	case *parser.ObjectLiteral:
		for _, v := range n.Values {
			in.expression(v)
		}
	case *parser.PrefixExpression:
		in.expression(n.Right)
	case *parser.UpdateExpression:
		in.expression(n.Target)
	case *parser.InfixExpression:
		in.expression(n.Left)
		in.expression(n.Right)
	case *parser.AssignExpression:
		in.expression(n.Target)
		in.expression(n.Value)
	case *parser.ConditionalExpression:
		in.expression(n.Condition)
		in.expression(n.Then)
		in.expression(n.Else)
	case *parser.CallExpression:
		in.expression(n.Function)
		for _, a := range n.Arguments {
			in.expression(a)
		}
	case *parser.MemberExpression:
		in.expression(n.Object)
	case *parser.IndexExpression:
		in.expression(n.Left)
		in.expression(n.Index)
	}
}
