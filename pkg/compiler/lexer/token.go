// Package lexer provides lexical analysis for processor scripts.
package lexer

// TokenType represents the type of a token.
type TokenType int

// Token types
const (
	// Special tokens
	TOKEN_ILLEGAL TokenType = iota
	TOKEN_EOF
	TOKEN_COMMENT

	// Literals
	TOKEN_IDENT  // identifier
	TOKEN_NUMBER // numeric literal (decimal, float, hex)
	TOKEN_STRING // string literal

	// Operators
	TOKEN_PLUS            // +
	TOKEN_MINUS           // -
	TOKEN_ASTERISK        // *
	TOKEN_SLASH           // /
	TOKEN_PERCENT         // %
	TOKEN_ASSIGN          // =
	TOKEN_PLUS_ASSIGN     // +=
	TOKEN_MINUS_ASSIGN    // -=
	TOKEN_ASTERISK_ASSIGN // *=
	TOKEN_SLASH_ASSIGN    // /=
	TOKEN_PERCENT_ASSIGN  // %=
	TOKEN_INCREMENT       // ++
	TOKEN_DECREMENT       // --
	TOKEN_EQ              // ==
	TOKEN_NEQ             // !=
	TOKEN_STRICT_EQ       // ===
	TOKEN_STRICT_NEQ      // !==
	TOKEN_LT              // <
	TOKEN_GT              // >
	TOKEN_LTE             // <=
	TOKEN_GTE             // >=
	TOKEN_AND             // &&
	TOKEN_OR              // ||
	TOKEN_NULLISH         // ??
	TOKEN_NOT             // !
	TOKEN_QUESTION        // ?

	// Delimiters
	TOKEN_LPAREN    // (
	TOKEN_RPAREN    // )
	TOKEN_LBRACE    // {
	TOKEN_RBRACE    // }
	TOKEN_LBRACKET  // [
	TOKEN_RBRACKET  // ]
	TOKEN_COMMA     // ,
	TOKEN_SEMICOLON // ;
	TOKEN_COLON     // :
	TOKEN_DOT       // .

	// Keywords
	TOKEN_VAR       // var
	TOKEN_LET       // let
	TOKEN_CONST     // const
	TOKEN_FUNCTION  // function
	TOKEN_IF        // if
	TOKEN_ELSE      // else
	TOKEN_FOR       // for
	TOKEN_WHILE     // while
	TOKEN_DO        // do
	TOKEN_SWITCH    // switch
	TOKEN_CASE      // case
	TOKEN_DEFAULT   // default
	TOKEN_BREAK     // break
	TOKEN_CONTINUE  // continue
	TOKEN_RETURN    // return
	TOKEN_THROW     // throw
	TOKEN_TRY       // try
	TOKEN_CATCH     // catch
	TOKEN_FINALLY   // finally
	TOKEN_TRUE      // true
	TOKEN_FALSE     // false
	TOKEN_NULL      // null
	TOKEN_UNDEFINED // undefined
	TOKEN_NEW       // new
	TOKEN_TYPEOF    // typeof
)

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

// tokenTypeNames maps TokenType to its string representation.
var tokenTypeNames = map[TokenType]string{
	TOKEN_ILLEGAL: "ILLEGAL",
	TOKEN_EOF:     "EOF",
	TOKEN_COMMENT: "COMMENT",

	TOKEN_IDENT:  "IDENT",
	TOKEN_NUMBER: "NUMBER",
	TOKEN_STRING: "STRING",

	TOKEN_PLUS:            "+",
	TOKEN_MINUS:           "-",
	TOKEN_ASTERISK:        "*",
	TOKEN_SLASH:           "/",
	TOKEN_PERCENT:         "%",
	TOKEN_ASSIGN:          "=",
	TOKEN_PLUS_ASSIGN:     "+=",
	TOKEN_MINUS_ASSIGN:    "-=",
	TOKEN_ASTERISK_ASSIGN: "*=",
	TOKEN_SLASH_ASSIGN:    "/=",
	TOKEN_PERCENT_ASSIGN:  "%=",
	TOKEN_INCREMENT:       "++",
	TOKEN_DECREMENT:       "--",
	TOKEN_EQ:              "==",
	TOKEN_NEQ:             "!=",
	TOKEN_STRICT_EQ:       "===",
	TOKEN_STRICT_NEQ:      "!==",
	TOKEN_LT:              "<",
	TOKEN_GT:              ">",
	TOKEN_LTE:             "<=",
	TOKEN_GTE:             ">=",
	TOKEN_AND:             "&&",
	TOKEN_OR:              "||",
	TOKEN_NULLISH:         "??",
	TOKEN_NOT:             "!",
	TOKEN_QUESTION:        "?",

	TOKEN_LPAREN:    "(",
	TOKEN_RPAREN:    ")",
	TOKEN_LBRACE:    "{",
	TOKEN_RBRACE:    "}",
	TOKEN_LBRACKET:  "[",
	TOKEN_RBRACKET:  "]",
	TOKEN_COMMA:     ",",
	TOKEN_SEMICOLON: ";",
	TOKEN_COLON:     ":",
	TOKEN_DOT:       ".",

	TOKEN_VAR:       "var",
	TOKEN_LET:       "let",
	TOKEN_CONST:     "const",
	TOKEN_FUNCTION:  "function",
	TOKEN_IF:        "if",
	TOKEN_ELSE:      "else",
	TOKEN_FOR:       "for",
	TOKEN_WHILE:     "while",
	TOKEN_DO:        "do",
	TOKEN_SWITCH:    "switch",
	TOKEN_CASE:      "case",
	TOKEN_DEFAULT:   "default",
	TOKEN_BREAK:     "break",
	TOKEN_CONTINUE:  "continue",
	TOKEN_RETURN:    "return",
	TOKEN_THROW:     "throw",
	TOKEN_TRY:       "try",
	TOKEN_CATCH:     "catch",
	TOKEN_FINALLY:   "finally",
	TOKEN_TRUE:      "true",
	TOKEN_FALSE:     "false",
	TOKEN_NULL:      "null",
	TOKEN_UNDEFINED: "undefined",
	TOKEN_NEW:       "new",
	TOKEN_TYPEOF:    "typeof",
}

// String returns a string representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsKeyword returns true if the token type is a keyword.
func (t TokenType) IsKeyword() bool {
	return t >= TOKEN_VAR && t <= TOKEN_TYPEOF
}

// IsAssignment returns true for = and the compound assignment operators.
func (t TokenType) IsAssignment() bool {
	return t >= TOKEN_ASSIGN && t <= TOKEN_PERCENT_ASSIGN
}

// keywords maps keyword strings to their TokenType.
// Unlike identifiers in some script dialects, keywords are case-sensitive.
var keywords = map[string]TokenType{
	"var":       TOKEN_VAR,
	"let":       TOKEN_LET,
	"const":     TOKEN_CONST,
	"function":  TOKEN_FUNCTION,
	"if":        TOKEN_IF,
	"else":      TOKEN_ELSE,
	"for":       TOKEN_FOR,
	"while":     TOKEN_WHILE,
	"do":        TOKEN_DO,
	"switch":    TOKEN_SWITCH,
	"case":      TOKEN_CASE,
	"default":   TOKEN_DEFAULT,
	"break":     TOKEN_BREAK,
	"continue":  TOKEN_CONTINUE,
	"return":    TOKEN_RETURN,
	"throw":     TOKEN_THROW,
	"try":       TOKEN_TRY,
	"catch":     TOKEN_CATCH,
	"finally":   TOKEN_FINALLY,
	"true":      TOKEN_TRUE,
	"false":     TOKEN_FALSE,
	"null":      TOKEN_NULL,
	"undefined": TOKEN_UNDEFINED,
	"new":       TOKEN_NEW,
	"typeof":    TOKEN_TYPEOF,
}

// LookupIdent checks if the given identifier is a keyword.
// If the identifier is a keyword, it returns the corresponding TokenType.
// Otherwise, it returns TOKEN_IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TOKEN_IDENT
}
