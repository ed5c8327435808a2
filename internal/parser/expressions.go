package parser

import (
	"fmt"
	"strconv"

	"github.com/funvibe/simstream/internal/ast"
	"github.com/funvibe/simstream/internal/token"
)

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	value, err := strconv.ParseInt(p.curToken.Lexeme, 10, 64)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("could not parse %q as integer", p.curToken.Lexeme))
		return nil
	}
	return &ast.IntegerLiteral{Token: p.curToken, Value: value}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	value, err := strconv.ParseFloat(p.curToken.Lexeme, 64)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("could not parse %q as float", p.curToken.Lexeme))
		return nil
	}
	return &ast.FloatLiteral{Token: p.curToken, Value: value}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Lexeme}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNoneLiteral() ast.Expression {
	return &ast.NoneLiteral{Token: p.curToken}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expr := &ast.PrefixExpression{Token: p.curToken, Operator: p.curToken.Lexeme}
	p.nextToken()
	expr.Right = p.parseExpression(PREFIX)
	if expr.Right == nil {
		return nil
	}
	return expr
}

// parseNotExpression binds looser than comparisons: `not a == b` negates
// the whole comparison.
func (p *Parser) parseNotExpression() ast.Expression {
	expr := &ast.PrefixExpression{Token: p.curToken, Operator: "not"}
	p.nextToken()
	expr.Right = p.parseExpression(NOT)
	if expr.Right == nil {
		return nil
	}
	return expr
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expr := &ast.InfixExpression{
		Token:    p.curToken,
		Left:     left,
		Operator: p.curToken.Lexeme,
	}
	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	if expr.Right == nil {
		return nil
	}
	return expr
}

// parsePowerExpression is right-associative: 2 ** 3 ** 2 == 2 ** (3 ** 2).
func (p *Parser) parsePowerExpression(left ast.Expression) ast.Expression {
	expr := &ast.InfixExpression{Token: p.curToken, Left: left, Operator: "**"}
	p.nextToken()
	expr.Right = p.parseExpression(POWER - 1)
	if expr.Right == nil {
		return nil
	}
	return expr
}

// parseComparison handles single and chained comparisons, plus the
// two-token operators `not in` and `is not`.
func (p *Parser) parseComparison(left ast.Expression) ast.Expression {
	tok := p.curToken
	op := p.curToken.Lexeme

	switch p.curToken.Type {
	case token.NOT:
		if !p.expectPeek(token.IN) {
			return nil
		}
		op = "not in"
	case token.IS:
		op = "is"
		if p.peekTokenIs(token.NOT) {
			p.nextToken()
			op = "is not"
		}
	}

	p.nextToken()
	right := p.parseExpression(COMPARE)
	if right == nil {
		return nil
	}

	if chain, ok := left.(*ast.CompareExpression); ok {
		chain.Ops = append(chain.Ops, op)
		chain.Comparators = append(chain.Comparators, right)
		return chain
	}
	return &ast.CompareExpression{
		Token:       tok,
		Left:        left,
		Ops:         []string{op},
		Comparators: []ast.Expression{right},
	}
}

func (p *Parser) parseBoolExpression(left ast.Expression) ast.Expression {
	tok := p.curToken
	op := p.curToken.Lexeme
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}

	if be, ok := left.(*ast.BoolExpression); ok && be.Operator == op {
		be.Values = append(be.Values, right)
		return be
	}
	return &ast.BoolExpression{Token: tok, Operator: op, Values: []ast.Expression{left, right}}
}

// parseConditional parses the ternary with the already-parsed body on the
// left: `body if test else orelse`. The else branch re-enters at LOWEST,
// making nested conditionals right-associative.
func (p *Parser) parseConditional(body ast.Expression) ast.Expression {
	expr := &ast.ConditionalExpression{Token: p.curToken, Body: body}
	p.nextToken()
	expr.Test = p.parseExpression(TERNARY)
	if expr.Test == nil {
		return nil
	}
	if !p.expectPeek(token.ELSE) {
		return nil
	}
	p.nextToken()
	expr.OrElse = p.parseExpression(LOWEST)
	if expr.OrElse == nil {
		return nil
	}
	return expr
}

func (p *Parser) parseGroupedOrTuple() ast.Expression {
	tok := p.curToken

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return &ast.TupleLiteral{Token: tok}
	}

	p.nextToken()
	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil
	}

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return first
	}

	tuple := &ast.TupleLiteral{Token: tok, Elements: []ast.Expression{first}}
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		if p.peekTokenIs(token.RPAREN) { // trailing comma
			break
		}
		p.nextToken()
		elem := p.parseExpression(LOWEST)
		if elem == nil {
			return nil
		}
		tuple.Elements = append(tuple.Elements, elem)
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return tuple
}

func (p *Parser) parseListOrComprehension() ast.Expression {
	tok := p.curToken

	if p.peekTokenIs(token.RBRACKET) {
		p.nextToken()
		return &ast.ListLiteral{Token: tok}
	}

	p.nextToken()
	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil
	}

	if p.peekTokenIs(token.FOR) {
		p.nextToken()
		return p.parseComprehension(tok, first)
	}

	list := &ast.ListLiteral{Token: tok, Elements: []ast.Expression{first}}
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		if p.peekTokenIs(token.RBRACKET) { // trailing comma
			break
		}
		p.nextToken()
		elem := p.parseExpression(LOWEST)
		if elem == nil {
			return nil
		}
		list.Elements = append(list.Elements, elem)
	}
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return list
}

// parseComprehension continues after `[elt for`. The iterable and filter
// clauses parse at TERNARY precedence so the comprehension's own `if`
// keyword is not mistaken for a conditional expression.
func (p *Parser) parseComprehension(tok token.Token, elt ast.Expression) ast.Expression {
	comp := &ast.ListComprehension{Token: tok, Elt: elt}

	p.nextToken()
	comp.Target = p.parseComprehensionTarget()
	if comp.Target == nil {
		return nil
	}
	if !p.expectPeek(token.IN) {
		return nil
	}
	p.nextToken()
	comp.Iter = p.parseExpression(TERNARY)
	if comp.Iter == nil {
		return nil
	}
	for p.peekTokenIs(token.IF) {
		p.nextToken()
		p.nextToken()
		cond := p.parseExpression(TERNARY)
		if cond == nil {
			return nil
		}
		comp.Ifs = append(comp.Ifs, cond)
	}
	if p.peekTokenIs(token.FOR) {
		p.errors = append(p.errors, "only single generator comprehensions are supported")
		return nil
	}
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return comp
}

// parseComprehensionTarget accepts `x`, `x, y` and `(x, y)`.
func (p *Parser) parseComprehensionTarget() ast.Expression {
	if p.curTokenIs(token.LPAREN) {
		return p.parseGroupedOrTuple()
	}
	if !p.curTokenIs(token.IDENT) {
		p.errors = append(p.errors, fmt.Sprintf("invalid comprehension target %q", p.curToken.Lexeme))
		return nil
	}
	first := &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
	if !p.peekTokenIs(token.COMMA) {
		return first
	}
	tuple := &ast.TupleLiteral{Token: p.curToken, Elements: []ast.Expression{first}}
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		tuple.Elements = append(tuple.Elements, &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme})
	}
	return tuple
}

func (p *Parser) parseMapLiteral() ast.Expression {
	ml := &ast.MapLiteral{Token: p.curToken}

	for !p.peekTokenIs(token.RBRACE) {
		p.nextToken()
		key := p.parseExpression(LOWEST)
		if key == nil {
			return nil
		}
		if !p.expectPeek(token.COLON) {
			return nil
		}
		p.nextToken()
		value := p.parseExpression(LOWEST)
		if value == nil {
			return nil
		}
		ml.Keys = append(ml.Keys, key)
		ml.Values = append(ml.Values, value)

		if !p.peekTokenIs(token.RBRACE) && !p.expectPeek(token.COMMA) {
			return nil
		}
	}
	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	return ml
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	call := &ast.CallExpression{Token: p.curToken, Function: function}

	for !p.peekTokenIs(token.RPAREN) {
		p.nextToken()

		if p.curTokenIs(token.IDENT) && p.peekTokenIs(token.ASSIGN) {
			name := p.curToken.Lexeme
			p.nextToken()
			p.nextToken()
			value := p.parseExpression(LOWEST)
			if value == nil {
				return nil
			}
			call.Kwargs = append(call.Kwargs, ast.KeywordArg{Name: name, Value: value})
		} else {
			arg := p.parseExpression(LOWEST)
			if arg == nil {
				return nil
			}
			if len(call.Kwargs) > 0 {
				p.errors = append(p.errors, "positional argument follows keyword argument")
				return nil
			}
			call.Args = append(call.Args, arg)
		}

		if !p.peekTokenIs(token.RPAREN) && !p.expectPeek(token.COMMA) {
			return nil
		}
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return call
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	ie := &ast.IndexExpression{Token: p.curToken, Left: left}

	sliceTok := p.curToken
	var lower, upper, step ast.Expression

	p.nextToken()
	if !p.curTokenIs(token.COLON) {
		lower = p.parseExpression(LOWEST)
		if lower == nil {
			return nil
		}
		if p.peekTokenIs(token.RBRACKET) {
			p.nextToken()
			ie.Index = lower
			return ie
		}
		if !p.expectPeek(token.COLON) {
			return nil
		}
	}

	// A slice: curToken is now the first colon.
	if !p.peekTokenIs(token.COLON) && !p.peekTokenIs(token.RBRACKET) {
		p.nextToken()
		upper = p.parseExpression(LOWEST)
		if upper == nil {
			return nil
		}
	}
	if p.peekTokenIs(token.COLON) {
		p.nextToken()
		if !p.peekTokenIs(token.RBRACKET) {
			p.nextToken()
			step = p.parseExpression(LOWEST)
			if step == nil {
				return nil
			}
		}
	}
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}

	ie.Index = &ast.SliceExpression{Token: sliceTok, Lower: lower, Upper: upper, Step: step}
	return ie
}

func (p *Parser) parseAttributeExpression(left ast.Expression) ast.Expression {
	ae := &ast.AttributeExpression{Token: p.curToken, Left: left}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	ae.Name = p.curToken.Lexeme
	return ae
}
