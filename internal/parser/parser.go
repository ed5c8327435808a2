package parser

import (
	"fmt"

	"github.com/funvibe/simstream/internal/ast"
	"github.com/funvibe/simstream/internal/lexer"
	"github.com/funvibe/simstream/internal/token"
)

// Operator precedence levels, loosest first. The ordering follows the
// expression surface the engine evaluates: ternary below boolean
// operators, `not` below comparisons, power above unary minus.
const (
	_ int = iota
	LOWEST
	TERNARY  // x if c else y
	OR       // or
	AND      // and
	NOT      // not x
	COMPARE  // == != < <= > >= in is
	BITOR    // |
	BITXOR   // ^
	BITAND   // &
	SHIFT    // << >>
	SUM      // + -
	PRODUCT  // * / // %
	PREFIX   // -x +x ~x
	POWER    // **
	CALL     // f(x) a[i] a.b
)

var precedences = map[token.TokenType]int{
	token.IF:        TERNARY,
	token.OR:        OR,
	token.AND:       AND,
	token.EQ:        COMPARE,
	token.NOT_EQ:    COMPARE,
	token.LT:        COMPARE,
	token.LT_EQ:     COMPARE,
	token.GT:        COMPARE,
	token.GT_EQ:     COMPARE,
	token.IN:        COMPARE,
	token.IS:        COMPARE,
	token.NOT:       COMPARE, // `not in`
	token.PIPE:      BITOR,
	token.CARET:     BITXOR,
	token.AMPERSAND: BITAND,
	token.LSHIFT:    SHIFT,
	token.RSHIFT:    SHIFT,
	token.PLUS:      SUM,
	token.MINUS:     SUM,
	token.ASTERISK:  PRODUCT,
	token.SLASH:     PRODUCT,
	token.FLOORDIV:  PRODUCT,
	token.PERCENT:   PRODUCT,
	token.POWER:     POWER,
	token.LPAREN:    CALL,
	token.LBRACKET:  CALL,
	token.DOT:       CALL,
}

// MaxRecursionDepth bounds nesting so malformed sampled text cannot blow
// the stack.
const MaxRecursionDepth = 500

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	l *lexer.Lexer

	curToken  token.Token
	peekToken token.Token

	errors []string
	depth  int

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = map[token.TokenType]prefixParseFn{
		token.IDENT:    p.parseIdentifier,
		token.INT:      p.parseIntegerLiteral,
		token.FLOAT:    p.parseFloatLiteral,
		token.STRING:   p.parseStringLiteral,
		token.TRUE:     p.parseBooleanLiteral,
		token.FALSE:    p.parseBooleanLiteral,
		token.NONE:     p.parseNoneLiteral,
		token.MINUS:    p.parsePrefixExpression,
		token.PLUS:     p.parsePrefixExpression,
		token.TILDE:    p.parsePrefixExpression,
		token.NOT:      p.parseNotExpression,
		token.LPAREN:   p.parseGroupedOrTuple,
		token.LBRACKET: p.parseListOrComprehension,
		token.LBRACE:   p.parseMapLiteral,
	}

	p.infixParseFns = map[token.TokenType]infixParseFn{
		token.PLUS:      p.parseInfixExpression,
		token.MINUS:     p.parseInfixExpression,
		token.ASTERISK:  p.parseInfixExpression,
		token.SLASH:     p.parseInfixExpression,
		token.FLOORDIV:  p.parseInfixExpression,
		token.PERCENT:   p.parseInfixExpression,
		token.POWER:     p.parsePowerExpression,
		token.PIPE:      p.parseInfixExpression,
		token.CARET:     p.parseInfixExpression,
		token.AMPERSAND: p.parseInfixExpression,
		token.LSHIFT:    p.parseInfixExpression,
		token.RSHIFT:    p.parseInfixExpression,
		token.EQ:        p.parseComparison,
		token.NOT_EQ:    p.parseComparison,
		token.LT:        p.parseComparison,
		token.LT_EQ:     p.parseComparison,
		token.GT:        p.parseComparison,
		token.GT_EQ:     p.parseComparison,
		token.IN:        p.parseComparison,
		token.IS:        p.parseComparison,
		token.NOT:       p.parseComparison,
		token.AND:       p.parseBoolExpression,
		token.OR:        p.parseBoolExpression,
		token.IF:        p.parseConditional,
		token.LPAREN:    p.parseCallExpression,
		token.LBRACKET:  p.parseIndexExpression,
		token.DOT:       p.parseAttributeExpression,
	}

	// Read two tokens, so curToken and peekToken are both set.
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses the input as a single expression and reports trailing
// tokens as an error.
func Parse(input string) (ast.Expression, error) {
	p := New(lexer.New(input))
	expr := p.parseExpression(LOWEST)
	if expr != nil && !p.peekTokenIs(token.EOF) {
		p.errors = append(p.errors, fmt.Sprintf("unexpected token %q after expression", p.peekToken.Lexeme))
	}
	if len(p.errors) > 0 {
		return nil, fmt.Errorf("%s", p.errors[0])
	}
	if expr == nil {
		return nil, fmt.Errorf("empty expression")
	}
	return expr, nil
}

func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errors = append(p.errors, fmt.Sprintf(
		"expected %s, got %q (line %d, column %d)",
		t, p.peekToken.Lexeme, p.peekToken.Line, p.peekToken.Column))
	return false
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) noPrefixParseFnError(t token.Token) {
	if t.Type == token.ILLEGAL && t.Literal == "unterminated string" {
		p.errors = append(p.errors, fmt.Sprintf("unterminated string (line %d, column %d)", t.Line, t.Column))
		return
	}
	p.errors = append(p.errors, fmt.Sprintf(
		"unexpected token %q (line %d, column %d)", t.Lexeme, t.Line, t.Column))
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > MaxRecursionDepth {
		p.errors = append(p.errors, "expression too complex: recursion depth limit exceeded")
		return nil
	}

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	leftExp := prefix()

	for leftExp != nil && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}

	return leftExp
}
