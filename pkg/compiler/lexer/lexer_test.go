package lexer

import (
	"testing"
)

func TestNextToken(t *testing.T) {
	input := `var count = 0;
while (count < 10) {
	count++;
	console.log("count: " + count);
}
let m = cpu.link('cell1');
m.write(0x1F, 2.5e1);
if (a === b && c !== d || e ?? f) { x += 1; y -= 2; z *= 3; w /= 4; v %= 5; }
`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TOKEN_VAR, "var"},
		{TOKEN_IDENT, "count"},
		{TOKEN_ASSIGN, "="},
		{TOKEN_NUMBER, "0"},
		{TOKEN_SEMICOLON, ";"},

		{TOKEN_WHILE, "while"},
		{TOKEN_LPAREN, "("},
		{TOKEN_IDENT, "count"},
		{TOKEN_LT, "<"},
		{TOKEN_NUMBER, "10"},
		{TOKEN_RPAREN, ")"},
		{TOKEN_LBRACE, "{"},
		{TOKEN_IDENT, "count"},
		{TOKEN_INCREMENT, "++"},
		{TOKEN_SEMICOLON, ";"},
		{TOKEN_IDENT, "console"},
		{TOKEN_DOT, "."},
		{TOKEN_IDENT, "log"},
		{TOKEN_LPAREN, "("},
		{TOKEN_STRING, "count: "},
		{TOKEN_PLUS, "+"},
		{TOKEN_IDENT, "count"},
		{TOKEN_RPAREN, ")"},
		{TOKEN_SEMICOLON, ";"},
		{TOKEN_RBRACE, "}"},

		{TOKEN_LET, "let"},
		{TOKEN_IDENT, "m"},
		{TOKEN_ASSIGN, "="},
		{TOKEN_IDENT, "cpu"},
		{TOKEN_DOT, "."},
		{TOKEN_IDENT, "link"},
		{TOKEN_LPAREN, "("},
		{TOKEN_STRING, "cell1"},
		{TOKEN_RPAREN, ")"},
		{TOKEN_SEMICOLON, ";"},

		{TOKEN_IDENT, "m"},
		{TOKEN_DOT, "."},
		{TOKEN_IDENT, "write"},
		{TOKEN_LPAREN, "("},
		{TOKEN_NUMBER, "0x1F"},
		{TOKEN_COMMA, ","},
		{TOKEN_NUMBER, "2.5e1"},
		{TOKEN_RPAREN, ")"},
		{TOKEN_SEMICOLON, ";"},

		{TOKEN_IF, "if"},
		{TOKEN_LPAREN, "("},
		{TOKEN_IDENT, "a"},
		{TOKEN_STRICT_EQ, "==="},
		{TOKEN_IDENT, "b"},
		{TOKEN_AND, "&&"},
		{TOKEN_IDENT, "c"},
		{TOKEN_STRICT_NEQ, "!=="},
		{TOKEN_IDENT, "d"},
		{TOKEN_OR, "||"},
		{TOKEN_IDENT, "e"},
		{TOKEN_NULLISH, "??"},
		{TOKEN_IDENT, "f"},
		{TOKEN_RPAREN, ")"},
		{TOKEN_LBRACE, "{"},
		{TOKEN_IDENT, "x"},
		{TOKEN_PLUS_ASSIGN, "+="},
		{TOKEN_NUMBER, "1"},
		{TOKEN_SEMICOLON, ";"},
		{TOKEN_IDENT, "y"},
		{TOKEN_MINUS_ASSIGN, "-="},
		{TOKEN_NUMBER, "2"},
		{TOKEN_SEMICOLON, ";"},
		{TOKEN_IDENT, "z"},
		{TOKEN_ASTERISK_ASSIGN, "*="},
		{TOKEN_NUMBER, "3"},
		{TOKEN_SEMICOLON, ";"},
		{TOKEN_IDENT, "w"},
		{TOKEN_SLASH_ASSIGN, "/="},
		{TOKEN_NUMBER, "4"},
		{TOKEN_SEMICOLON, ";"},
		{TOKEN_IDENT, "v"},
		{TOKEN_PERCENT_ASSIGN, "%="},
		{TOKEN_NUMBER, "5"},
		{TOKEN_SEMICOLON, ";"},
		{TOKEN_RBRACE, "}"},
		{TOKEN_EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestTokenPositions(t *testing.T) {
	l := New("var a = 1;\n  while (a) {}")

	expected := []struct {
		literal string
		line    int
		column  int
	}{
		{"var", 1, 1},
		{"a", 1, 5},
		{"=", 1, 7},
		{"1", 1, 9},
		{";", 1, 10},
		{"while", 2, 3},
		{"(", 2, 9},
	}

	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Literal != exp.literal || tok.Line != exp.line || tok.Column != exp.column {
			t.Errorf("token %d: expected %q at %d:%d, got %q at %d:%d",
				i, exp.literal, exp.line, exp.column, tok.Literal, tok.Line, tok.Column)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"a\nb"`, "a\nb"},
		{`'it\'s'`, "it's"},
		{`"tab\there"`, "tab\there"},
		{`"back\\slash"`, `back\slash`},
		{`'mixed "quotes"'`, `mixed "quotes"`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := New(tt.input).NextToken()
			if tok.Type != TOKEN_STRING {
				t.Fatalf("expected STRING, got %s", tok.Type)
			}
			if tok.Literal != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, tok.Literal)
			}
		})
	}
}

func TestUnterminatedString(t *testing.T) {
	tok := New(`"never closed`).NextToken()
	if tok.Type != TOKEN_ILLEGAL {
		t.Errorf("expected ILLEGAL, got %s", tok.Type)
	}
}

func TestComments(t *testing.T) {
	l := New("// line\n/* block\n comment */ x")

	tok := l.NextToken()
	if tok.Type != TOKEN_COMMENT || tok.Literal != "// line" {
		t.Errorf("expected line comment, got %s %q", tok.Type, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != TOKEN_COMMENT {
		t.Errorf("expected block comment, got %s", tok.Type)
	}
	tok = l.NextToken()
	if tok.Type != TOKEN_IDENT || tok.Line != 3 {
		t.Errorf("expected identifier on line 3, got %s on line %d", tok.Type, tok.Line)
	}
}
