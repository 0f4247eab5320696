package lexer

import (
	"strings"
)

// Lexer tokenizes processor script source code.
type Lexer struct {
	input        string
	position     int  // current position in input
	readPosition int  // current reading position (after current char)
	ch           byte // current char
	line         int  // current line number
	column       int  // current column number
}

// New creates a new Lexer.
func New(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	line, column := l.line, l.column

	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			if l.peekChar() == '=' {
				l.readChar()
				return l.advance(TOKEN_STRICT_EQ, "===", line, column)
			}
			return l.advance(TOKEN_EQ, "==", line, column)
		}
		return l.advance(TOKEN_ASSIGN, "=", line, column)
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			if l.peekChar() == '=' {
				l.readChar()
				return l.advance(TOKEN_STRICT_NEQ, "!==", line, column)
			}
			return l.advance(TOKEN_NEQ, "!=", line, column)
		}
		return l.advance(TOKEN_NOT, "!", line, column)
	case '+':
		switch l.peekChar() {
		case '+':
			l.readChar()
			return l.advance(TOKEN_INCREMENT, "++", line, column)
		case '=':
			l.readChar()
			return l.advance(TOKEN_PLUS_ASSIGN, "+=", line, column)
		}
		return l.advance(TOKEN_PLUS, "+", line, column)
	case '-':
		switch l.peekChar() {
		case '-':
			l.readChar()
			return l.advance(TOKEN_DECREMENT, "--", line, column)
		case '=':
			l.readChar()
			return l.advance(TOKEN_MINUS_ASSIGN, "-=", line, column)
		}
		return l.advance(TOKEN_MINUS, "-", line, column)
	case '*':
		if l.peekChar() == '=' {
			l.readChar()
			return l.advance(TOKEN_ASTERISK_ASSIGN, "*=", line, column)
		}
		return l.advance(TOKEN_ASTERISK, "*", line, column)
	case '/':
		switch l.peekChar() {
		case '/':
			return Token{Type: TOKEN_COMMENT, Literal: l.readComment(), Line: line, Column: column}
		case '*':
			return Token{Type: TOKEN_COMMENT, Literal: l.readMultiLineComment(), Line: line, Column: column}
		case '=':
			l.readChar()
			return l.advance(TOKEN_SLASH_ASSIGN, "/=", line, column)
		}
		return l.advance(TOKEN_SLASH, "/", line, column)
	case '%':
		if l.peekChar() == '=' {
			l.readChar()
			return l.advance(TOKEN_PERCENT_ASSIGN, "%=", line, column)
		}
		return l.advance(TOKEN_PERCENT, "%", line, column)
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			return l.advance(TOKEN_LTE, "<=", line, column)
		}
		return l.advance(TOKEN_LT, "<", line, column)
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			return l.advance(TOKEN_GTE, ">=", line, column)
		}
		return l.advance(TOKEN_GT, ">", line, column)
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			return l.advance(TOKEN_AND, "&&", line, column)
		}
		return l.advance(TOKEN_ILLEGAL, "&", line, column)
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			return l.advance(TOKEN_OR, "||", line, column)
		}
		return l.advance(TOKEN_ILLEGAL, "|", line, column)
	case '?':
		if l.peekChar() == '?' {
			l.readChar()
			return l.advance(TOKEN_NULLISH, "??", line, column)
		}
		return l.advance(TOKEN_QUESTION, "?", line, column)
	case '(':
		return l.advance(TOKEN_LPAREN, "(", line, column)
	case ')':
		return l.advance(TOKEN_RPAREN, ")", line, column)
	case '{':
		return l.advance(TOKEN_LBRACE, "{", line, column)
	case '}':
		return l.advance(TOKEN_RBRACE, "}", line, column)
	case '[':
		return l.advance(TOKEN_LBRACKET, "[", line, column)
	case ']':
		return l.advance(TOKEN_RBRACKET, "]", line, column)
	case ',':
		return l.advance(TOKEN_COMMA, ",", line, column)
	case ';':
		return l.advance(TOKEN_SEMICOLON, ";", line, column)
	case ':':
		return l.advance(TOKEN_COLON, ":", line, column)
	case '.':
		if isDigit(l.peekChar()) {
			return l.readNumber(line, column)
		}
		return l.advance(TOKEN_DOT, ".", line, column)
	case '"', '\'':
		lit, ok := l.readString(l.ch)
		if !ok {
			return Token{Type: TOKEN_ILLEGAL, Literal: "unterminated string", Line: line, Column: column}
		}
		return Token{Type: TOKEN_STRING, Literal: lit, Line: line, Column: column}
	case 0:
		return Token{Type: TOKEN_EOF, Literal: "", Line: line, Column: column}
	}

	if isLetter(l.ch) {
		lit := l.readIdentifier()
		return Token{Type: LookupIdent(lit), Literal: lit, Line: line, Column: column}
	}
	if isDigit(l.ch) {
		return l.readNumber(line, column)
	}
	return l.advance(TOKEN_ILLEGAL, string(l.ch), line, column)
}

// advance consumes the current character and returns a token positioned at line/column.
func (l *Lexer) advance(tokenType TokenType, literal string, line, column int) Token {
	l.readChar()
	return Token{Type: tokenType, Literal: literal, Line: line, Column: column}
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// readIdentifier reads an identifier.
func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber reads a number (integer, float, exponent, or hexadecimal).
func (l *Lexer) readNumber(line, column int) Token {
	position := l.position

	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar() // consume '0'
		l.readChar() // consume 'x' or 'X'
		for isHexDigit(l.ch) {
			l.readChar()
		}
		return Token{Type: TOKEN_NUMBER, Literal: l.input[position:l.position], Line: line, Column: column}
	}

	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) || l.ch == '.' && position == l.position {
		l.readChar() // consume '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	return Token{Type: TOKEN_NUMBER, Literal: l.input[position:l.position], Line: line, Column: column}
}

// readString reads a string literal delimited by quote and decodes escapes.
// The closing quote is consumed. ok is false when the input ends first.
func (l *Lexer) readString(quote byte) (string, bool) {
	var sb strings.Builder
	for {
		l.readChar()
		switch l.ch {
		case 0, '\n':
			return sb.String(), false
		case quote:
			l.readChar()
			return sb.String(), true
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '0':
				sb.WriteByte(0)
			case 0:
				return sb.String(), false
			default:
				sb.WriteByte(l.ch)
			}
		default:
			sb.WriteByte(l.ch)
		}
	}
}

// readComment reads a single-line comment.
func (l *Lexer) readComment() string {
	position := l.position
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readMultiLineComment reads a multi-line comment /* ... */
func (l *Lexer) readMultiLineComment() string {
	position := l.position
	l.readChar() // consume /
	l.readChar() // consume *

	for {
		if l.ch == 0 {
			break // EOF
		}
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar() // consume *
			l.readChar() // consume /
			break
		}
		l.readChar()
	}

	return l.input[position:l.position]
}

// skipWhitespace skips whitespace characters.
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// isLetter checks if a character can start an identifier.
func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch == '$' || ch >= 0x80
}

// isDigit checks if a character is a digit.
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// isHexDigit checks if a character is a hexadecimal digit.
func isHexDigit(ch byte) bool {
	return ('0' <= ch && ch <= '9') || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

// GetSource returns the source code as a string
func (l *Lexer) GetSource() string {
	return l.input
}
