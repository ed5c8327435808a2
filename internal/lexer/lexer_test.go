package lexer

import (
	"testing"

	"github.com/funvibe/simstream/internal/token"
)

func TestNextToken(t *testing.T) {
	input := `car_position + 1.5 >= -0.07 ** 2 // 3 != 'left' and not (a, b) in {1: [2]}`

	expected := []struct {
		typ     token.TokenType
		literal string
	}{
		{token.IDENT, "car_position"},
		{token.PLUS, "+"},
		{token.FLOAT, "1.5"},
		{token.GT_EQ, ">="},
		{token.MINUS, "-"},
		{token.FLOAT, "0.07"},
		{token.POWER, "**"},
		{token.INT, "2"},
		{token.FLOORDIV, "//"},
		{token.INT, "3"},
		{token.NOT_EQ, "!="},
		{token.STRING, "left"},
		{token.AND, "and"},
		{token.NOT, "not"},
		{token.LPAREN, "("},
		{token.IDENT, "a"},
		{token.COMMA, ","},
		{token.IDENT, "b"},
		{token.RPAREN, ")"},
		{token.IN, "in"},
		{token.LBRACE, "{"},
		{token.INT, "1"},
		{token.COLON, ":"},
		{token.LBRACKET, "["},
		{token.INT, "2"},
		{token.RBRACKET, "]"},
		{token.RBRACE, "}"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want.typ {
			t.Fatalf("token %d: type = %q, want %q (literal %q)", i, tok.Type, want.typ, tok.Literal)
		}
		if tok.Literal != want.literal {
			t.Fatalf("token %d: literal = %q, want %q", i, tok.Literal, want.literal)
		}
	}
}

func TestKeywordsAndBooleans(t *testing.T) {
	cases := []struct {
		input string
		typ   token.TokenType
	}{
		{"True", token.TRUE},
		{"true", token.TRUE},
		{"False", token.FALSE},
		{"None", token.NONE},
		{"if", token.IF},
		{"else", token.ELSE},
		{"for", token.FOR},
		{"is", token.IS},
		{"or", token.OR},
		{"world_time", token.IDENT},
	}
	for _, tc := range cases {
		tok := New(tc.input).NextToken()
		if tok.Type != tc.typ {
			t.Errorf("%q: type = %q, want %q", tc.input, tok.Type, tc.typ)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{`"double"`, "double"},
		{`'single'`, "single"},
		{`"a\nb"`, "a\nb"},
		{`"say \"hi\""`, `say "hi"`},
		{`'it\'s'`, "it's"},
	}
	for _, tc := range cases {
		tok := New(tc.input).NextToken()
		if tok.Type != token.STRING {
			t.Fatalf("%q: type = %q, want STRING", tc.input, tok.Type)
		}
		if tok.Literal != tc.want {
			t.Errorf("%q: literal = %q, want %q", tc.input, tok.Literal, tc.want)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	tok := New(`'oops`).NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("type = %q, want ILLEGAL", tok.Type)
	}
}

func TestNumbers(t *testing.T) {
	cases := []struct {
		input string
		typ   token.TokenType
	}{
		{"42", token.INT},
		{"0", token.INT},
		{"3.14", token.FLOAT},
		{".5", token.FLOAT},
		{"1e6", token.FLOAT},
		{"2.5e-3", token.FLOAT},
	}
	for _, tc := range cases {
		tok := New(tc.input).NextToken()
		if tok.Type != tc.typ {
			t.Errorf("%q: type = %q, want %q", tc.input, tok.Type, tc.typ)
		}
		if tok.Literal != tc.input {
			t.Errorf("%q: literal = %q", tc.input, tok.Literal)
		}
	}
}
