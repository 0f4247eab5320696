package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zurustar/procscript/pkg/compiler/lexer"
)

// Precedence levels for operators.
const (
	_ int = iota
	LOWEST
	ASSIGN      // = += -=
	TERNARY     // ?:
	NULLISH     // ??
	OR          // ||
	AND         // &&
	EQUALS      // == != === !==
	LESSGREATER // > or <
	SUM         // +
	PRODUCT     // *
	PREFIX      // -X or !X
	POSTFIX     // X++
	CALL        // myFunction(X), obj.member, array[index]
)

var precedences = map[lexer.TokenType]int{
	lexer.TOKEN_ASSIGN:          ASSIGN,
	lexer.TOKEN_PLUS_ASSIGN:     ASSIGN,
	lexer.TOKEN_MINUS_ASSIGN:    ASSIGN,
	lexer.TOKEN_ASTERISK_ASSIGN: ASSIGN,
	lexer.TOKEN_SLASH_ASSIGN:    ASSIGN,
	lexer.TOKEN_PERCENT_ASSIGN:  ASSIGN,
	lexer.TOKEN_QUESTION:        TERNARY,
	lexer.TOKEN_NULLISH:         NULLISH,
	lexer.TOKEN_OR:              OR,
	lexer.TOKEN_AND:             AND,
	lexer.TOKEN_EQ:              EQUALS,
	lexer.TOKEN_NEQ:             EQUALS,
	lexer.TOKEN_STRICT_EQ:       EQUALS,
	lexer.TOKEN_STRICT_NEQ:      EQUALS,
	lexer.TOKEN_LT:              LESSGREATER,
	lexer.TOKEN_LTE:             LESSGREATER,
	lexer.TOKEN_GT:              LESSGREATER,
	lexer.TOKEN_GTE:             LESSGREATER,
	lexer.TOKEN_PLUS:            SUM,
	lexer.TOKEN_MINUS:           SUM,
	lexer.TOKEN_ASTERISK:        PRODUCT,
	lexer.TOKEN_SLASH:           PRODUCT,
	lexer.TOKEN_PERCENT:         PRODUCT,
	lexer.TOKEN_INCREMENT:       POSTFIX,
	lexer.TOKEN_DECREMENT:       POSTFIX,
	lexer.TOKEN_LPAREN:          CALL,
	lexer.TOKEN_DOT:             CALL,
	lexer.TOKEN_LBRACKET:        CALL,
}

// ParserError represents a syntax error with its location.
type ParserError struct {
	Message string
	Line    int
	Column  int
}

// Error implements the error interface.
func (e *ParserError) Error() string {
	return fmt.Sprintf("parser error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// Parser parses processor script source code into an AST.
type Parser struct {
	l      *lexer.Lexer
	errors []error

	curToken  lexer.Token
	peekToken lexer.Token

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn
}

type (
	prefixParseFn func() Expression
	infixParseFn  func(Expression) Expression
)

// New creates a new Parser.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:      l,
		errors: []error{},
	}

	p.prefixParseFns = make(map[lexer.TokenType]prefixParseFn)
	p.registerPrefix(lexer.TOKEN_IDENT, p.parseIdentifier)
	p.registerPrefix(lexer.TOKEN_NUMBER, p.parseNumberLiteral)
	p.registerPrefix(lexer.TOKEN_STRING, p.parseStringLiteral)
	p.registerPrefix(lexer.TOKEN_TRUE, p.parseBooleanLiteral)
	p.registerPrefix(lexer.TOKEN_FALSE, p.parseBooleanLiteral)
	p.registerPrefix(lexer.TOKEN_NULL, p.parseNullLiteral)
	p.registerPrefix(lexer.TOKEN_UNDEFINED, p.parseUndefinedLiteral)
	p.registerPrefix(lexer.TOKEN_NOT, p.parsePrefixExpression)
	p.registerPrefix(lexer.TOKEN_MINUS, p.parsePrefixExpression)
	p.registerPrefix(lexer.TOKEN_PLUS, p.parsePrefixExpression)
	p.registerPrefix(lexer.TOKEN_TYPEOF, p.parsePrefixExpression)
	p.registerPrefix(lexer.TOKEN_NEW, p.parseNewExpression)
	p.registerPrefix(lexer.TOKEN_INCREMENT, p.parsePrefixUpdate)
	p.registerPrefix(lexer.TOKEN_DECREMENT, p.parsePrefixUpdate)
	p.registerPrefix(lexer.TOKEN_LPAREN, p.parseGroupedExpression)
	p.registerPrefix(lexer.TOKEN_LBRACKET, p.parseArrayLiteral)
	p.registerPrefix(lexer.TOKEN_LBRACE, p.parseObjectLiteral)
	p.registerPrefix(lexer.TOKEN_FUNCTION, p.parseFunctionLiteral)

	p.infixParseFns = make(map[lexer.TokenType]infixParseFn)
	for _, tt := range []lexer.TokenType{
		lexer.TOKEN_PLUS, lexer.TOKEN_MINUS, lexer.TOKEN_ASTERISK, lexer.TOKEN_SLASH, lexer.TOKEN_PERCENT,
		lexer.TOKEN_EQ, lexer.TOKEN_NEQ, lexer.TOKEN_STRICT_EQ, lexer.TOKEN_STRICT_NEQ,
		lexer.TOKEN_LT, lexer.TOKEN_LTE, lexer.TOKEN_GT, lexer.TOKEN_GTE,
		lexer.TOKEN_AND, lexer.TOKEN_OR, lexer.TOKEN_NULLISH,
	} {
		p.registerInfix(tt, p.parseInfixExpression)
	}
	for _, tt := range []lexer.TokenType{
		lexer.TOKEN_ASSIGN, lexer.TOKEN_PLUS_ASSIGN, lexer.TOKEN_MINUS_ASSIGN,
		lexer.TOKEN_ASTERISK_ASSIGN, lexer.TOKEN_SLASH_ASSIGN, lexer.TOKEN_PERCENT_ASSIGN,
	} {
		p.registerInfix(tt, p.parseAssignExpression)
	}
	p.registerInfix(lexer.TOKEN_QUESTION, p.parseConditionalExpression)
	p.registerInfix(lexer.TOKEN_INCREMENT, p.parsePostfixUpdate)
	p.registerInfix(lexer.TOKEN_DECREMENT, p.parsePostfixUpdate)
	p.registerInfix(lexer.TOKEN_LPAREN, p.parseCallExpression)
	p.registerInfix(lexer.TOKEN_DOT, p.parseMemberExpression)
	p.registerInfix(lexer.TOKEN_LBRACKET, p.parseIndexExpression)

	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()

	return p
}

// Errors returns the parser errors.
func (p *Parser) Errors() []error {
	return p.errors
}

// ParseProgram parses the entire program and returns it with any syntax errors.
func (p *Parser) ParseProgram() (*Program, []error) {
	program := &Program{}
	program.Statements = []Statement{}

	for !p.curTokenIs(lexer.TOKEN_EOF) {
		// Skip empty statements
		if p.curTokenIs(lexer.TOKEN_SEMICOLON) {
			p.nextToken()
			continue
		}

		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
	}

	return program, p.errors
}

// parseStatement parses one statement. On return curToken is the statement's last token.
func (p *Parser) parseStatement() Statement {
	switch p.curToken.Type {
	case lexer.TOKEN_VAR, lexer.TOKEN_LET, lexer.TOKEN_CONST:
		stmt := p.parseVarStatement()
		p.skipSemicolon()
		return stmt
	case lexer.TOKEN_FUNCTION:
		if p.peekTokenIs(lexer.TOKEN_IDENT) {
			return p.parseFunctionStatement()
		}
		return p.parseExpressionStatement()
	case lexer.TOKEN_LBRACE:
		return p.parseBlockStatement()
	case lexer.TOKEN_IF:
		return p.parseIfStatement()
	case lexer.TOKEN_WHILE:
		return p.parseWhileStatement()
	case lexer.TOKEN_DO:
		return p.parseDoWhileStatement()
	case lexer.TOKEN_FOR:
		return p.parseForStatement()
	case lexer.TOKEN_BREAK:
		stmt := &BreakStatement{Token: p.curToken}
		p.skipSemicolon()
		return stmt
	case lexer.TOKEN_CONTINUE:
		stmt := &ContinueStatement{Token: p.curToken}
		p.skipSemicolon()
		return stmt
	case lexer.TOKEN_RETURN:
		return p.parseReturnStatement()
	case lexer.TOKEN_THROW:
		return p.parseThrowStatement()
	case lexer.TOKEN_TRY:
		return p.parseTryStatement()
	case lexer.TOKEN_SWITCH:
		return p.parseSwitchStatement()
	case lexer.TOKEN_ILLEGAL:
		p.addError(p.curToken, "illegal token %q", p.curToken.Literal)
		return nil
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseExpressionStatement() Statement {
	stmt := &ExpressionStatement{Token: p.curToken}
	stmt.Expression = p.parseExpression(LOWEST)
	if stmt.Expression == nil {
		return nil
	}
	p.skipSemicolon()
	return stmt
}

// parseVarStatement parses var/let/const declarations without consuming a trailing semicolon.
func (p *Parser) parseVarStatement() *VarStatement {
	stmt := &VarStatement{Token: p.curToken, Kind: p.curToken.Literal}

	for {
		if !p.expectPeek(lexer.TOKEN_IDENT) {
			return nil
		}
		name := p.curToken
		var value Expression
		if p.peekTokenIs(lexer.TOKEN_ASSIGN) {
			p.nextToken()
			p.nextToken()
			value = p.parseExpression(ASSIGN - 1)
		} else if stmt.Kind == "const" {
			p.addError(name, "missing initializer in const declaration of %s", name.Literal)
		}
		stmt.Names = append(stmt.Names, name.Literal)
		stmt.Values = append(stmt.Values, value)

		if !p.peekTokenIs(lexer.TOKEN_COMMA) {
			break
		}
		p.nextToken()
	}

	return stmt
}

func (p *Parser) parseFunctionStatement() Statement {
	stmt := &FunctionStatement{Token: p.curToken}
	p.nextToken()
	stmt.Name = p.curToken.Literal

	if !p.expectPeek(lexer.TOKEN_LPAREN) {
		return nil
	}
	stmt.Params = p.parseFunctionParameters()
	if stmt.Params == nil {
		return nil
	}
	if !p.expectPeek(lexer.TOKEN_LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	return stmt
}

// parseFunctionParameters parses (a, b, c). curToken is ( on entry and ) on return.
func (p *Parser) parseFunctionParameters() []string {
	params := []string{}

	if p.peekTokenIs(lexer.TOKEN_RPAREN) {
		p.nextToken()
		return params
	}

	for {
		if !p.expectPeek(lexer.TOKEN_IDENT) {
			return nil
		}
		params = append(params, p.curToken.Literal)
		if !p.peekTokenIs(lexer.TOKEN_COMMA) {
			break
		}
		p.nextToken()
	}

	if !p.expectPeek(lexer.TOKEN_RPAREN) {
		return nil
	}
	return params
}

// parseBlockStatement parses { ... }. curToken is { on entry and } on return.
func (p *Parser) parseBlockStatement() *BlockStatement {
	block := &BlockStatement{Token: p.curToken}
	block.Statements = []Statement{}

	p.nextToken()

	for !p.curTokenIs(lexer.TOKEN_RBRACE) {
		if p.curTokenIs(lexer.TOKEN_EOF) {
			p.addError(block.Token, "unterminated block")
			return block
		}
		if p.curTokenIs(lexer.TOKEN_SEMICOLON) {
			p.nextToken()
			continue
		}
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}

	return block
}

func (p *Parser) parseIfStatement() Statement {
	stmt := &IfStatement{Token: p.curToken}

	if !p.expectPeek(lexer.TOKEN_LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.TOKEN_RPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Consequence = p.parseStatement()
	if stmt.Consequence == nil {
		return nil
	}

	if p.peekTokenIs(lexer.TOKEN_ELSE) {
		p.nextToken()
		p.nextToken()
		stmt.Alternative = p.parseStatement()
		if stmt.Alternative == nil {
			return nil
		}
	}

	return stmt
}

func (p *Parser) parseWhileStatement() Statement {
	stmt := &WhileStatement{Token: p.curToken}

	if !p.expectPeek(lexer.TOKEN_LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.TOKEN_RPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Body = p.parseStatement()
	if stmt.Body == nil || stmt.Condition == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseDoWhileStatement() Statement {
	stmt := &DoWhileStatement{Token: p.curToken}

	p.nextToken()
	stmt.Body = p.parseStatement()
	if stmt.Body == nil {
		return nil
	}
	if !p.expectPeek(lexer.TOKEN_WHILE) {
		return nil
	}
	if !p.expectPeek(lexer.TOKEN_LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.TOKEN_RPAREN) {
		return nil
	}
	p.skipSemicolon()
	return stmt
}

// parseForStatement parses for (init; cond; post) body.
func (p *Parser) parseForStatement() Statement {
	stmt := &ForStatement{Token: p.curToken}

	if !p.expectPeek(lexer.TOKEN_LPAREN) {
		return nil
	}
	p.nextToken()

	// init
	switch p.curToken.Type {
	case lexer.TOKEN_SEMICOLON:
	case lexer.TOKEN_VAR, lexer.TOKEN_LET, lexer.TOKEN_CONST:
		decl := p.parseVarStatement()
		if decl == nil {
			return nil
		}
		stmt.Init = decl
		if !p.expectPeek(lexer.TOKEN_SEMICOLON) {
			return nil
		}
	default:
		init := &ExpressionStatement{Token: p.curToken, Expression: p.parseExpression(LOWEST)}
		if init.Expression == nil {
			return nil
		}
		stmt.Init = init
		if !p.expectPeek(lexer.TOKEN_SEMICOLON) {
			return nil
		}
	}

	// condition
	if p.peekTokenIs(lexer.TOKEN_SEMICOLON) {
		p.nextToken()
	} else {
		p.nextToken()
		stmt.Condition = p.parseExpression(LOWEST)
		if !p.expectPeek(lexer.TOKEN_SEMICOLON) {
			return nil
		}
	}

	// post
	if p.peekTokenIs(lexer.TOKEN_RPAREN) {
		p.nextToken()
	} else {
		p.nextToken()
		stmt.Post = p.parseExpression(LOWEST)
		if !p.expectPeek(lexer.TOKEN_RPAREN) {
			return nil
		}
	}

	p.nextToken()
	stmt.Body = p.parseStatement()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseReturnStatement() Statement {
	stmt := &ReturnStatement{Token: p.curToken}

	// A value must start on the same line as return.
	if p.peekTokenIs(lexer.TOKEN_SEMICOLON) || p.peekTokenIs(lexer.TOKEN_RBRACE) ||
		p.peekTokenIs(lexer.TOKEN_EOF) || p.peekToken.Line != p.curToken.Line {
		p.skipSemicolon()
		return stmt
	}

	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseThrowStatement() Statement {
	stmt := &ThrowStatement{Token: p.curToken}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil {
		return nil
	}
	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseTryStatement() Statement {
	stmt := &TryStatement{Token: p.curToken}

	if !p.expectPeek(lexer.TOKEN_LBRACE) {
		return nil
	}
	stmt.Block = p.parseBlockStatement()

	if p.peekTokenIs(lexer.TOKEN_CATCH) {
		p.nextToken()
		if p.peekTokenIs(lexer.TOKEN_LPAREN) {
			p.nextToken()
			if !p.expectPeek(lexer.TOKEN_IDENT) {
				return nil
			}
			stmt.CatchParam = p.curToken.Literal
			if !p.expectPeek(lexer.TOKEN_RPAREN) {
				return nil
			}
		}
		if !p.expectPeek(lexer.TOKEN_LBRACE) {
			return nil
		}
		stmt.Catch = p.parseBlockStatement()
	}

	if p.peekTokenIs(lexer.TOKEN_FINALLY) {
		p.nextToken()
		if !p.expectPeek(lexer.TOKEN_LBRACE) {
			return nil
		}
		stmt.Finally = p.parseBlockStatement()
	}

	if stmt.Catch == nil && stmt.Finally == nil {
		p.addError(stmt.Token, "missing catch or finally after try")
		return nil
	}
	return stmt
}

func (p *Parser) parseSwitchStatement() Statement {
	stmt := &SwitchStatement{Token: p.curToken}

	if !p.expectPeek(lexer.TOKEN_LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.TOKEN_RPAREN) {
		return nil
	}
	if !p.expectPeek(lexer.TOKEN_LBRACE) {
		return nil
	}
	p.nextToken()

	hasDefault := false
	for !p.curTokenIs(lexer.TOKEN_RBRACE) {
		clause := &CaseClause{Token: p.curToken}
		switch p.curToken.Type {
		case lexer.TOKEN_CASE:
			p.nextToken()
			clause.Value = p.parseExpression(LOWEST)
		case lexer.TOKEN_DEFAULT:
			if hasDefault {
				p.addError(p.curToken, "more than one default clause in switch")
			}
			hasDefault = true
		default:
			p.addError(p.curToken, "expected case or default, got %s", p.curToken.Type)
			return nil
		}
		if !p.expectPeek(lexer.TOKEN_COLON) {
			return nil
		}
		p.nextToken()

		for !p.curTokenIs(lexer.TOKEN_CASE) && !p.curTokenIs(lexer.TOKEN_DEFAULT) &&
			!p.curTokenIs(lexer.TOKEN_RBRACE) {
			if p.curTokenIs(lexer.TOKEN_EOF) {
				p.addError(stmt.Token, "unterminated switch")
				return nil
			}
			if p.curTokenIs(lexer.TOKEN_SEMICOLON) {
				p.nextToken()
				continue
			}
			if s := p.parseStatement(); s != nil {
				clause.Body = append(clause.Body, s)
			}
			p.nextToken()
		}
		stmt.Cases = append(stmt.Cases, clause)
	}

	return stmt
}

func (p *Parser) parseExpression(precedence int) Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	leftExp := prefix()

	for !p.peekTokenIs(lexer.TOKEN_SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		// A postfix update must stay on the operand's line.
		if (p.peekTokenIs(lexer.TOKEN_INCREMENT) || p.peekTokenIs(lexer.TOKEN_DECREMENT)) &&
			p.peekToken.Line != p.curToken.Line {
			return leftExp
		}

		p.nextToken()
		leftExp = infix(leftExp)
		if leftExp == nil {
			return nil
		}
	}

	return leftExp
}

func (p *Parser) parseIdentifier() Expression {
	return &Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseNumberLiteral() Expression {
	lit := &NumberLiteral{Token: p.curToken}
	text := p.curToken.Literal

	if len(text) > 2 && (strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X")) {
		v, err := strconv.ParseUint(text[2:], 16, 64)
		if err != nil {
			p.addError(p.curToken, "could not parse %q as hex number", text)
			return nil
		}
		lit.Value = float64(v)
		return lit
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.addError(p.curToken, "could not parse %q as number", text)
		return nil
	}
	lit.Value = v
	return lit
}

func (p *Parser) parseStringLiteral() Expression {
	return &StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseBooleanLiteral() Expression {
	return &BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(lexer.TOKEN_TRUE)}
}

func (p *Parser) parseNullLiteral() Expression {
	return &NullLiteral{Token: p.curToken}
}

func (p *Parser) parseUndefinedLiteral() Expression {
	return &UndefinedLiteral{Token: p.curToken}
}

func (p *Parser) parsePrefixExpression() Expression {
	expr := &PrefixExpression{Token: p.curToken, Operator: p.curToken.Literal}
	p.nextToken()
	expr.Right = p.parseExpression(PREFIX)
	if expr.Right == nil {
		return nil
	}
	return expr
}

// parseNewExpression parses new F(args). Constructors are plain callables,
// so the result is the call itself.
func (p *Parser) parseNewExpression() Expression {
	p.nextToken()
	return p.parseExpression(PREFIX)
}

func (p *Parser) parsePrefixUpdate() Expression {
	expr := &UpdateExpression{Token: p.curToken, Operator: p.curToken.Literal, Prefix: true}
	p.nextToken()
	expr.Target = p.parseExpression(PREFIX)
	if !p.checkAssignable(expr.Token, expr.Target) {
		return nil
	}
	return expr
}

func (p *Parser) parsePostfixUpdate(left Expression) Expression {
	expr := &UpdateExpression{Token: p.curToken, Operator: p.curToken.Literal, Target: left}
	if !p.checkAssignable(expr.Token, left) {
		return nil
	}
	return expr
}

func (p *Parser) parseInfixExpression(left Expression) Expression {
	expr := &InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
		Left:     left,
	}

	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	if expr.Right == nil {
		return nil
	}
	return expr
}

// parseAssignExpression parses right-associative assignment.
func (p *Parser) parseAssignExpression(left Expression) Expression {
	expr := &AssignExpression{Token: p.curToken, Operator: p.curToken.Literal, Target: left}
	if !p.checkAssignable(expr.Token, left) {
		return nil
	}
	p.nextToken()
	expr.Value = p.parseExpression(ASSIGN - 1)
	if expr.Value == nil {
		return nil
	}
	return expr
}

func (p *Parser) parseConditionalExpression(cond Expression) Expression {
	expr := &ConditionalExpression{Token: p.curToken, Condition: cond}
	p.nextToken()
	expr.Then = p.parseExpression(ASSIGN - 1)
	if !p.expectPeek(lexer.TOKEN_COLON) {
		return nil
	}
	p.nextToken()
	expr.Else = p.parseExpression(TERNARY - 1)
	if expr.Then == nil || expr.Else == nil {
		return nil
	}
	return expr
}

func (p *Parser) parseGroupedExpression() Expression {
	p.nextToken()
	expr := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.TOKEN_RPAREN) {
		return nil
	}
	return expr
}

func (p *Parser) parseArrayLiteral() Expression {
	array := &ArrayLiteral{Token: p.curToken}
	array.Elements = p.parseExpressionList(lexer.TOKEN_RBRACKET)
	if array.Elements == nil {
		return nil
	}
	return array
}

// parseObjectLiteral parses {key: value, ...}. Keys may be identifiers, keywords, strings or numbers.
func (p *Parser) parseObjectLiteral() Expression {
	obj := &ObjectLiteral{Token: p.curToken}

	for !p.peekTokenIs(lexer.TOKEN_RBRACE) {
		p.nextToken()
		var key string
		switch {
		case p.curTokenIs(lexer.TOKEN_IDENT), p.curTokenIs(lexer.TOKEN_STRING), p.curToken.Type.IsKeyword():
			key = p.curToken.Literal
		case p.curTokenIs(lexer.TOKEN_NUMBER):
			n, ok := p.parseNumberLiteral().(*NumberLiteral)
			if !ok {
				return nil
			}
			key = strconv.FormatFloat(n.Value, 'f', -1, 64)
		default:
			p.addError(p.curToken, "invalid object key %q", p.curToken.Literal)
			return nil
		}
		if !p.expectPeek(lexer.TOKEN_COLON) {
			return nil
		}
		p.nextToken()
		value := p.parseExpression(ASSIGN - 1)
		if value == nil {
			return nil
		}
		obj.Keys = append(obj.Keys, key)
		obj.Values = append(obj.Values, value)

		if !p.peekTokenIs(lexer.TOKEN_RBRACE) && !p.expectPeek(lexer.TOKEN_COMMA) {
			return nil
		}
	}
	p.nextToken()
	return obj
}

func (p *Parser) parseFunctionLiteral() Expression {
	fn := &FunctionLiteral{Token: p.curToken}
	if p.peekTokenIs(lexer.TOKEN_IDENT) {
		p.nextToken()
		fn.Name = p.curToken.Literal
	}
	if !p.expectPeek(lexer.TOKEN_LPAREN) {
		return nil
	}
	fn.Params = p.parseFunctionParameters()
	if fn.Params == nil {
		return nil
	}
	if !p.expectPeek(lexer.TOKEN_LBRACE) {
		return nil
	}
	fn.Body = p.parseBlockStatement()
	return fn
}

func (p *Parser) parseCallExpression(function Expression) Expression {
	call := &CallExpression{Token: p.curToken, Function: function}
	call.Arguments = p.parseExpressionList(lexer.TOKEN_RPAREN)
	if call.Arguments == nil {
		return nil
	}
	return call
}

func (p *Parser) parseMemberExpression(object Expression) Expression {
	expr := &MemberExpression{Token: p.curToken, Object: object}
	p.nextToken()
	if !p.curTokenIs(lexer.TOKEN_IDENT) && !p.curToken.Type.IsKeyword() {
		p.addError(p.curToken, "expected property name after '.', got %s", p.curToken.Type)
		return nil
	}
	expr.Property = p.curToken.Literal
	return expr
}

func (p *Parser) parseIndexExpression(left Expression) Expression {
	expr := &IndexExpression{Token: p.curToken, Left: left}
	p.nextToken()
	expr.Index = p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.TOKEN_RBRACKET) {
		return nil
	}
	return expr
}

// parseExpressionList parses a comma separated list up to end. A trailing comma is allowed.
// It returns nil on error and an empty slice for an empty list.
func (p *Parser) parseExpressionList(end lexer.TokenType) []Expression {
	list := []Expression{}

	for !p.peekTokenIs(end) {
		p.nextToken()
		expr := p.parseExpression(ASSIGN - 1)
		if expr == nil {
			return nil
		}
		list = append(list, expr)
		if !p.peekTokenIs(end) && !p.expectPeek(lexer.TOKEN_COMMA) {
			return nil
		}
	}
	p.nextToken()

	return list
}

func (p *Parser) checkAssignable(tok lexer.Token, target Expression) bool {
	switch target.(type) {
	case *Identifier, *MemberExpression, *IndexExpression:
		return true
	}
	p.addError(tok, "invalid assignment target")
	return false
}

// Helper functions
func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

// skipSemicolon consumes an optional statement terminator.
func (p *Parser) skipSemicolon() {
	if p.peekTokenIs(lexer.TOKEN_SEMICOLON) {
		p.nextToken()
	}
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()

	// Skip comments
	for p.peekToken.Type == lexer.TOKEN_COMMENT {
		p.peekToken = p.l.NextToken()
	}
}

func (p *Parser) peekPrecedence() int {
	if p, ok := precedences[p.peekToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if p, ok := precedences[p.curToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) addError(tok lexer.Token, format string, args ...any) {
	p.errors = append(p.errors, &ParserError{
		Message: fmt.Sprintf(format, args...),
		Line:    tok.Line,
		Column:  tok.Column,
	})
}

func (p *Parser) peekError(t lexer.TokenType) {
	p.addError(p.peekToken, "expected next token to be %s, got %s instead", t, p.peekToken.Type)
}

func (p *Parser) noPrefixParseFnError(tok lexer.Token) {
	if tok.Type == lexer.TOKEN_ILLEGAL {
		p.addError(tok, "illegal token %q", tok.Literal)
		return
	}
	p.addError(tok, "unexpected %s", tok.Type)
}

func (p *Parser) registerPrefix(tokenType lexer.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType lexer.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}
