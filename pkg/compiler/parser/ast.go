// Package parser provides syntax analysis for processor scripts.
package parser

import (
	"strconv"
	"strings"

	"github.com/zurustar/procscript/pkg/compiler/lexer"
)

// Node is the interface for all AST nodes.
type Node interface {
	TokenLiteral() string
	String() string
}

// Statement is the interface for all statement nodes.
type Statement interface {
	Node
	statementNode()
}

// Expression is the interface for all expression nodes.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root node of the AST.
type Program struct {
	Statements []Statement
}

// TokenLiteral returns the literal value of the first statement's token.
func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

// String renders the program back to source, one statement per line.
func (p *Program) String() string {
	var sb strings.Builder
	for _, s := range p.Statements {
		sb.WriteString(s.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// YieldGuard marks a loop as cooperatively preemptible.
// It is attached by the yield injector, never produced by the parser.
type YieldGuard struct {
	ID   int // unique per loop site
	Line int // source line reported at the yield point
}

// guardCall is how a guard is rendered in transformed source.
const guardCall = "__yield()"

// VarStatement represents a variable declaration.
// Example: var x = 1, y; let z; const k = 2;
type VarStatement struct {
	Token  lexer.Token // var, let or const
	Kind   string      // "var", "let" or "const"
	Names  []string
	Values []Expression // nil entries for declarations without initializer
}

func (vs *VarStatement) statementNode()       {}
func (vs *VarStatement) TokenLiteral() string { return vs.Token.Literal }
func (vs *VarStatement) String() string {
	parts := make([]string, len(vs.Names))
	for i, name := range vs.Names {
		if vs.Values[i] != nil {
			parts[i] = name + " = " + vs.Values[i].String()
		} else {
			parts[i] = name
		}
	}
	return vs.Kind + " " + strings.Join(parts, ", ") + ";"
}

// FunctionStatement represents a named function declaration.
// Example: function add(a, b) { return a + b; }
type FunctionStatement struct {
	Token  lexer.Token
	Name   string
	Params []string
	Body   *BlockStatement
}

func (fs *FunctionStatement) statementNode()       {}
func (fs *FunctionStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *FunctionStatement) String() string {
	return "function " + fs.Name + "(" + strings.Join(fs.Params, ", ") + ") " + fs.Body.String()
}

// BlockStatement represents a block of statements.
type BlockStatement struct {
	Token      lexer.Token // {
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BlockStatement) String() string {
	return renderBlock("", bs.Statements)
}

func renderBlock(prefix string, stmts []Statement) string {
	var sb strings.Builder
	sb.WriteString("{")
	if prefix != "" {
		sb.WriteString(" ")
		sb.WriteString(prefix)
	}
	for _, s := range stmts {
		sb.WriteString(" ")
		sb.WriteString(s.String())
	}
	sb.WriteString(" }")
	return sb.String()
}

// ExpressionStatement represents a statement consisting of a single expression.
type ExpressionStatement struct {
	Token      lexer.Token
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Literal }
func (es *ExpressionStatement) String() string {
	if es.Expression == nil {
		return ";"
	}
	return es.Expression.String() + ";"
}

// IfStatement represents an if-else statement.
type IfStatement struct {
	Token       lexer.Token
	Condition   Expression
	Consequence Statement
	Alternative Statement // nil when there is no else
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) TokenLiteral() string { return is.Token.Literal }
func (is *IfStatement) String() string {
	out := "if (" + is.Condition.String() + ") " + is.Consequence.String()
	if is.Alternative != nil {
		out += " else " + is.Alternative.String()
	}
	return out
}

// WhileStatement represents a while loop.
// With a Guard, a yield point precedes every condition check including the first.
type WhileStatement struct {
	Token     lexer.Token
	Condition Expression
	Body      Statement
	Guard     *YieldGuard
}

func (ws *WhileStatement) statementNode()       {}
func (ws *WhileStatement) TokenLiteral() string { return ws.Token.Literal }
func (ws *WhileStatement) String() string {
	cond := ws.Condition.String()
	if ws.Guard != nil {
		cond = guardCall + " && (" + cond + ")"
	}
	return "while (" + cond + ") " + ws.Body.String()
}

// DoWhileStatement represents a do-while loop.
// With a Guard, a yield point precedes every condition check.
type DoWhileStatement struct {
	Token     lexer.Token
	Body      Statement
	Condition Expression
	Guard     *YieldGuard
}

func (dw *DoWhileStatement) statementNode()       {}
func (dw *DoWhileStatement) TokenLiteral() string { return dw.Token.Literal }
func (dw *DoWhileStatement) String() string {
	cond := dw.Condition.String()
	if dw.Guard != nil {
		cond = guardCall + " && (" + cond + ")"
	}
	return "do " + dw.Body.String() + " while (" + cond + ");"
}

// ForStatement represents a C-style for loop.
// With a Guard, a yield point opens every iteration after the first.
type ForStatement struct {
	Token     lexer.Token
	Init      Statement  // may be nil
	Condition Expression // may be nil
	Post      Expression // may be nil
	Body      Statement
	Guard     *YieldGuard
}

func (fs *ForStatement) statementNode()       {}
func (fs *ForStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *ForStatement) String() string {
	var sb strings.Builder
	sb.WriteString("for (")
	if fs.Init != nil {
		sb.WriteString(strings.TrimSuffix(fs.Init.String(), ";"))
	}
	sb.WriteString("; ")
	if fs.Condition != nil {
		sb.WriteString(fs.Condition.String())
	}
	sb.WriteString("; ")
	if fs.Post != nil {
		sb.WriteString(fs.Post.String())
	}
	sb.WriteString(") ")
	if fs.Guard == nil {
		sb.WriteString(fs.Body.String())
		return sb.String()
	}
	if block, ok := fs.Body.(*BlockStatement); ok {
		sb.WriteString(renderBlock(guardCall+";", block.Statements))
	} else {
		sb.WriteString(renderBlock(guardCall+";", []Statement{fs.Body}))
	}
	return sb.String()
}

// BreakStatement represents a break statement.
type BreakStatement struct {
	Token lexer.Token
}

func (bs *BreakStatement) statementNode()       {}
func (bs *BreakStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BreakStatement) String() string       { return "break;" }

// ContinueStatement represents a continue statement.
type ContinueStatement struct {
	Token lexer.Token
}

func (cs *ContinueStatement) statementNode()       {}
func (cs *ContinueStatement) TokenLiteral() string { return cs.Token.Literal }
func (cs *ContinueStatement) String() string       { return "continue;" }

// ReturnStatement represents a return statement.
type ReturnStatement struct {
	Token lexer.Token
	Value Expression // may be nil
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Literal }
func (rs *ReturnStatement) String() string {
	if rs.Value == nil {
		return "return;"
	}
	return "return " + rs.Value.String() + ";"
}

// ThrowStatement represents a throw statement.
type ThrowStatement struct {
	Token lexer.Token
	Value Expression
}

func (ts *ThrowStatement) statementNode()       {}
func (ts *ThrowStatement) TokenLiteral() string { return ts.Token.Literal }
func (ts *ThrowStatement) String() string       { return "throw " + ts.Value.String() + ";" }

// TryStatement represents try/catch/finally.
// Example: try { f(); } catch (e) { console.error(e); } finally { done(); }
type TryStatement struct {
	Token      lexer.Token
	Block      *BlockStatement
	CatchParam string          // empty when catch binds nothing
	Catch      *BlockStatement // may be nil
	Finally    *BlockStatement // may be nil
}

func (ts *TryStatement) statementNode()       {}
func (ts *TryStatement) TokenLiteral() string { return ts.Token.Literal }
func (ts *TryStatement) String() string {
	out := "try " + ts.Block.String()
	if ts.Catch != nil {
		if ts.CatchParam != "" {
			out += " catch (" + ts.CatchParam + ") " + ts.Catch.String()
		} else {
			out += " catch " + ts.Catch.String()
		}
	}
	if ts.Finally != nil {
		out += " finally " + ts.Finally.String()
	}
	return out
}

// SwitchStatement represents a switch statement.
type SwitchStatement struct {
	Token lexer.Token
	Value Expression
	Cases []*CaseClause
}

// CaseClause is one case of a switch. Value is nil for default.
type CaseClause struct {
	Token lexer.Token
	Value Expression
	Body  []Statement
}

func (ss *SwitchStatement) statementNode()       {}
func (ss *SwitchStatement) TokenLiteral() string { return ss.Token.Literal }
func (ss *SwitchStatement) String() string {
	var sb strings.Builder
	sb.WriteString("switch (" + ss.Value.String() + ") {")
	for _, c := range ss.Cases {
		if c.Value == nil {
			sb.WriteString(" default:")
		} else {
			sb.WriteString(" case " + c.Value.String() + ":")
		}
		for _, s := range c.Body {
			sb.WriteString(" " + s.String())
		}
	}
	sb.WriteString(" }")
	return sb.String()
}

// Identifier represents an identifier.
type Identifier struct {
	Token lexer.Token
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) String() string       { return i.Value }

// NumberLiteral represents a numeric literal.
type NumberLiteral struct {
	Token lexer.Token
	Value float64
}

func (nl *NumberLiteral) expressionNode()      {}
func (nl *NumberLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NumberLiteral) String() string       { return nl.Token.Literal }

// StringLiteral represents a string literal.
type StringLiteral struct {
	Token lexer.Token
	Value string
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) String() string       { return strconv.Quote(sl.Value) }

// BooleanLiteral represents true or false.
type BooleanLiteral struct {
	Token lexer.Token
	Value bool
}

func (bl *BooleanLiteral) expressionNode()      {}
func (bl *BooleanLiteral) TokenLiteral() string { return bl.Token.Literal }
func (bl *BooleanLiteral) String() string       { return bl.Token.Literal }

// NullLiteral represents null.
type NullLiteral struct {
	Token lexer.Token
}

func (nl *NullLiteral) expressionNode()      {}
func (nl *NullLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NullLiteral) String() string       { return "null" }

// UndefinedLiteral represents undefined.
type UndefinedLiteral struct {
	Token lexer.Token
}

func (ul *UndefinedLiteral) expressionNode()      {}
func (ul *UndefinedLiteral) TokenLiteral() string { return ul.Token.Literal }
func (ul *UndefinedLiteral) String() string       { return "undefined" }

// ArrayLiteral represents an array literal.
// Example: [1, 2, "three"]
type ArrayLiteral struct {
	Token    lexer.Token
	Elements []Expression
}

func (al *ArrayLiteral) expressionNode()      {}
func (al *ArrayLiteral) TokenLiteral() string { return al.Token.Literal }
func (al *ArrayLiteral) String() string {
	return "[" + joinExpressions(al.Elements) + "]"
}

// ObjectLiteral represents an object literal with ordered keys.
// Example: {x: 1, "y": 2}
type ObjectLiteral struct {
	Token  lexer.Token
	Keys   []string
	Values []Expression
}

func (ol *ObjectLiteral) expressionNode()      {}
func (ol *ObjectLiteral) TokenLiteral() string { return ol.Token.Literal }
func (ol *ObjectLiteral) String() string {
	parts := make([]string, len(ol.Keys))
	for i, k := range ol.Keys {
		parts[i] = strconv.Quote(k) + ": " + ol.Values[i].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// FunctionLiteral represents a function expression.
// Example: function (a) { return a * 2; }
type FunctionLiteral struct {
	Token  lexer.Token
	Name   string // optional
	Params []string
	Body   *BlockStatement
}

func (fl *FunctionLiteral) expressionNode()      {}
func (fl *FunctionLiteral) TokenLiteral() string { return fl.Token.Literal }
func (fl *FunctionLiteral) String() string {
	name := ""
	if fl.Name != "" {
		name = " " + fl.Name
	}
	return "(function" + name + "(" + strings.Join(fl.Params, ", ") + ") " + fl.Body.String() + ")"
}

// PrefixExpression represents a unary prefix operation (!, -, +, typeof).
type PrefixExpression struct {
	Token    lexer.Token
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()      {}
func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PrefixExpression) String() string {
	if pe.Operator == "typeof" {
		return "(typeof " + pe.Right.String() + ")"
	}
	return "(" + pe.Operator + pe.Right.String() + ")"
}

// UpdateExpression represents ++ or -- applied to an assignable target.
type UpdateExpression struct {
	Token    lexer.Token
	Operator string // "++" or "--"
	Prefix   bool
	Target   Expression
}

func (ue *UpdateExpression) expressionNode()      {}
func (ue *UpdateExpression) TokenLiteral() string { return ue.Token.Literal }
func (ue *UpdateExpression) String() string {
	if ue.Prefix {
		return "(" + ue.Operator + ue.Target.String() + ")"
	}
	return "(" + ue.Target.String() + ue.Operator + ")"
}

// InfixExpression represents a binary operation, including && || and ??.
type InfixExpression struct {
	Token    lexer.Token
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()      {}
func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

// AssignExpression represents plain or compound assignment.
// Example: x = 1, a.b += 2, arr[i] -= 1
type AssignExpression struct {
	Token    lexer.Token
	Target   Expression // Identifier, MemberExpression or IndexExpression
	Operator string     // "=", "+=", ...
	Value    Expression
}

func (ae *AssignExpression) expressionNode()      {}
func (ae *AssignExpression) TokenLiteral() string { return ae.Token.Literal }
func (ae *AssignExpression) String() string {
	return ae.Target.String() + " " + ae.Operator + " " + ae.Value.String()
}

// ConditionalExpression represents cond ? a : b.
type ConditionalExpression struct {
	Token     lexer.Token
	Condition Expression
	Then      Expression
	Else      Expression
}

func (ce *ConditionalExpression) expressionNode()      {}
func (ce *ConditionalExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *ConditionalExpression) String() string {
	return "(" + ce.Condition.String() + " ? " + ce.Then.String() + " : " + ce.Else.String() + ")"
}

// CallExpression represents a function or method call.
// Example: f(1), cpu.link("cell1")
type CallExpression struct {
	Token     lexer.Token // (
	Function  Expression
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CallExpression) String() string {
	return ce.Function.String() + "(" + joinExpressions(ce.Arguments) + ")"
}

// MemberExpression represents property access with a dot.
type MemberExpression struct {
	Token    lexer.Token // .
	Object   Expression
	Property string
}

func (me *MemberExpression) expressionNode()      {}
func (me *MemberExpression) TokenLiteral() string { return me.Token.Literal }
func (me *MemberExpression) String() string {
	return me.Object.String() + "." + me.Property
}

// IndexExpression represents computed property access.
// Example: arr[0], obj["key"]
type IndexExpression struct {
	Token lexer.Token // [
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) expressionNode()      {}
func (ie *IndexExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IndexExpression) String() string {
	return ie.Left.String() + "[" + ie.Index.String() + "]"
}

func joinExpressions(exprs []Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
