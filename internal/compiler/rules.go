package compiler

import (
	"strconv"

	"github.com/embr-lang/embr/internal/bytecode"
	"github.com/embr-lang/embr/internal/token"
)

// Precedence ladder: assignment binds loosest, primary tightest, with a
// dedicated bitwise tier sitting between factor and unary so `a + b & c`
// parses as `a + (b & c)`.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment
	PrecOr
	PrecAnd
	PrecEquality
	PrecComparison
	PrecTerm
	PrecFactor
	PrecBitwise
	PrecUnary
	PrecCall
	PrecPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   Precedence
}

var rules map[token.Type]parseRule

func init() {
	rules = map[token.Type]parseRule{
		token.LParen:       {prefix: (*Compiler).grouping, infix: (*Compiler).call, prec: PrecCall},
		token.Dot:          {infix: (*Compiler).dot, prec: PrecCall},
		token.LBracket:     {prefix: (*Compiler).arrayLiteral, infix: (*Compiler).index, prec: PrecCall},
		token.LBrace:       {prefix: (*Compiler).dictLiteral},
		token.Minus:        {prefix: (*Compiler).unary, infix: (*Compiler).binary, prec: PrecTerm},
		token.Plus:         {infix: (*Compiler).binary, prec: PrecTerm},
		token.Slash:        {infix: (*Compiler).binary, prec: PrecFactor},
		token.Star:         {infix: (*Compiler).binary, prec: PrecFactor},
		token.Percent:      {infix: (*Compiler).binary, prec: PrecFactor},
		token.Bang:         {prefix: (*Compiler).unary},
		token.Tilde:        {prefix: (*Compiler).unary},
		token.NotEqual:     {infix: (*Compiler).binary, prec: PrecEquality},
		token.Equal:        {infix: (*Compiler).binary, prec: PrecEquality},
		token.Greater:      {infix: (*Compiler).binary, prec: PrecComparison},
		token.GreaterEqual: {infix: (*Compiler).binary, prec: PrecComparison},
		token.Less:         {infix: (*Compiler).binary, prec: PrecComparison},
		token.LessEqual:    {infix: (*Compiler).binary, prec: PrecComparison},
		token.Amp:          {infix: (*Compiler).binary, prec: PrecBitwise},
		token.Pipe:         {infix: (*Compiler).binary, prec: PrecBitwise},
		token.Caret:        {infix: (*Compiler).binary, prec: PrecBitwise},
		token.LShift:       {infix: (*Compiler).binary, prec: PrecBitwise},
		token.RShift:       {infix: (*Compiler).binary, prec: PrecBitwise},
		token.Ident:        {prefix: (*Compiler).variable},
		token.String:       {prefix: (*Compiler).stringLit},
		token.Number:       {prefix: (*Compiler).number},
		token.And:          {infix: (*Compiler).and_, prec: PrecAnd},
		token.Or:           {infix: (*Compiler).or_, prec: PrecOr},
		token.True:         {prefix: (*Compiler).literal},
		token.False:        {prefix: (*Compiler).literal},
		token.Nil:          {prefix: (*Compiler).literal},
		token.This:         {prefix: (*Compiler).this_},
		token.Super:        {prefix: (*Compiler).super_},
	}
}

func getRule(t token.Type) parseRule { return rules[t] }

func (c *Compiler) expression() { c.parsePrecedence(PrecAssignment) }

func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	prefixRule := getRule(c.prev.Type).prefix
	if prefixRule == nil {
		c.error("Expect expression.")
		return
	}
	canAssign := prec <= PrecAssignment
	prefixRule(c, canAssign)

	for prec <= getRule(c.cur.Type).prec {
		c.advance()
		infixRule := getRule(c.prev.Type).infix
		infixRule(c, canAssign)
	}

	if canAssign && c.match(token.Assign) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) number(canAssign bool) {
	v, err := strconv.ParseFloat(c.prev.Literal, 64)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	c.emitConstant(v)
}

func (c *Compiler) stringLit(canAssign bool) {
	c.emitConstant(c.prev.Literal)
}

func (c *Compiler) literal(canAssign bool) {
	switch c.prev.Type {
	case token.True:
		c.emitByte(bytecode.OP_TRUE)
	case token.False:
		c.emitByte(bytecode.OP_FALSE)
	case token.Nil:
		c.emitByte(bytecode.OP_NIL)
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(token.RParen, "Expect ')' after expression.")
}

func (c *Compiler) unary(canAssign bool) {
	opType := c.prev.Type
	c.parsePrecedence(PrecUnary)
	switch opType {
	case token.Minus:
		c.emitByte(bytecode.OP_NEGATE)
	case token.Bang:
		c.emitByte(bytecode.OP_NOT)
	case token.Tilde:
		c.emitByte(bytecode.OP_BITNOT)
	}
}

func (c *Compiler) binary(canAssign bool) {
	opType := c.prev.Type
	rule := getRule(opType)
	c.parsePrecedence(rule.prec + 1)
	switch opType {
	case token.Plus:
		c.emitByte(bytecode.OP_ADD)
	case token.Minus:
		c.emitByte(bytecode.OP_SUBTRACT)
	case token.Star:
		c.emitByte(bytecode.OP_MULTIPLY)
	case token.Slash:
		c.emitByte(bytecode.OP_DIVIDE)
	case token.Percent:
		c.emitByte(bytecode.OP_MODULO)
	case token.Equal:
		c.emitByte(bytecode.OP_EQUAL)
	case token.NotEqual:
		c.emitBytes(bytecode.OP_EQUAL, bytecode.OP_NOT)
	case token.Less:
		c.emitByte(bytecode.OP_LESS)
	case token.LessEqual:
		c.emitBytes(bytecode.OP_GREATER, bytecode.OP_NOT)
	case token.Greater:
		c.emitByte(bytecode.OP_GREATER)
	case token.GreaterEqual:
		c.emitBytes(bytecode.OP_LESS, bytecode.OP_NOT)
	case token.Amp:
		c.emitByte(bytecode.OP_BITAND)
	case token.Pipe:
		c.emitByte(bytecode.OP_BITOR)
	case token.Caret:
		c.emitByte(bytecode.OP_BITXOR)
	case token.LShift:
		c.emitByte(bytecode.OP_LSHIFT)
	case token.RShift:
		c.emitByte(bytecode.OP_RSHIFT)
	}
}

// and_/or_ short-circuit using only OP_JUMP_IF_FALSE and OP_JUMP — the same
// two-jump trick a jump-if-true-free VM needs for `or`.
func (c *Compiler) and_(canAssign bool) {
	endJump := c.emitJump(bytecode.OP_JUMP_IF_FALSE)
	c.emitByte(bytecode.OP_POP)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or_(canAssign bool) {
	elseJump := c.emitJump(bytecode.OP_JUMP_IF_FALSE)
	endJump := c.emitJump(bytecode.OP_JUMP)
	c.patchJump(elseJump)
	c.emitByte(bytecode.OP_POP)
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func (c *Compiler) call(canAssign bool) {
	argCount := c.argumentList()
	c.emitBytes(bytecode.OP_CALL, argCount)
}

func (c *Compiler) argumentList() byte {
	count := 0
	if !c.check(token.RParen) {
		for {
			c.expression()
			if count == 255 {
				c.error("Can't have more than 255 arguments.")
			}
			count++
			if !c.match(token.Comma) {
				break
			}
		}
	}
	c.consume(token.RParen, "Expect ')' after arguments.")
	return byte(count)
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(token.Ident, "Expect property name after '.'.")
	nameConst := c.identifierConstant(c.prev.Literal)
	switch {
	case canAssign && c.match(token.Assign):
		c.expression()
		c.emitU8(bytecode.OP_SET_PROPERTY, nameConst)
	case c.match(token.LParen):
		argCount := c.argumentList()
		c.emitBytes(bytecode.OP_INVOKE, byte(nameConst), argCount)
	default:
		c.emitU8(bytecode.OP_GET_PROPERTY, nameConst)
	}
}

// index implements the postfix `expr[expr]` form; assignment through it
// (`expr[expr] = value`) reuses the same trailing value already on the
// stack, matching OP_OBJECT_SET's stack effect.
func (c *Compiler) index(canAssign bool) {
	c.expression()
	c.consume(token.RBracket, "Expect ']' after index.")
	if canAssign && c.match(token.Assign) {
		c.expression()
		c.emitByte(bytecode.OP_OBJECT_SET)
	} else {
		c.emitByte(bytecode.OP_OBJECT_GET)
	}
}

func (c *Compiler) arrayLiteral(canAssign bool) {
	count := 0
	if !c.check(token.RBracket) {
		for {
			c.expression()
			if count == 255 {
				c.error("Can't have more than 255 elements in an array literal.")
			}
			count++
			if !c.match(token.Comma) {
				break
			}
		}
	}
	c.consume(token.RBracket, "Expect ']' after array elements.")
	c.emitU8(bytecode.OP_ARRAY, count)
}

func (c *Compiler) dictLiteral(canAssign bool) {
	count := 0
	if !c.check(token.RBrace) {
		for {
			switch {
			case c.check(token.Ident):
				c.advance()
				c.emitConstant(c.prev.Literal)
			case c.check(token.String):
				c.advance()
				c.emitConstant(c.prev.Literal)
			default:
				c.errorAtCurrent("Expect dict key.")
				c.advance()
			}
			c.consume(token.Colon, "Expect ':' after dict key.")
			c.expression()
			if count == 255 {
				c.error("Can't have more than 255 entries in a dict literal.")
			}
			count++
			if !c.match(token.Comma) {
				break
			}
		}
	}
	c.consume(token.RBrace, "Expect '}' after dict literal.")
	c.emitU8(bytecode.OP_DICT, count)
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.prev.Literal, canAssign)
}

func (c *Compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp byte
	var arg int

	if slot, ok := resolveLocalIn(c.fn, name); ok {
		getOp, setOp, arg = bytecode.OP_GET_LOCAL, bytecode.OP_SET_LOCAL, int(slot)
	} else if slot, ok := resolveUpvalueIn(c, c.fn, name); ok {
		getOp, setOp, arg = bytecode.OP_GET_UPVALUE, bytecode.OP_SET_UPVALUE, int(slot)
	} else {
		arg = c.identifierConstant(name)
		getOp, setOp = bytecode.OP_GET_GLOBAL, bytecode.OP_SET_GLOBAL
	}

	if canAssign && c.match(token.Assign) {
		c.expression()
		c.emitU8(setOp, arg)
		return
	}
	c.emitU8(getOp, arg)
}

func (c *Compiler) this_(canAssign bool) {
	if c.class == nil {
		c.error("Can't use 'this' outside of a class.")
		return
	}
	c.namedVariable("this", false)
}

func (c *Compiler) super_(canAssign bool) {
	if c.class == nil {
		c.error("Can't use 'super' outside of a class.")
	} else if !c.class.hasSuperclass {
		c.error("Can't use 'super' in a class with no superclass.")
	}
	c.consume(token.Dot, "Expect '.' after 'super'.")
	c.consume(token.Ident, "Expect superclass method name.")
	nameConst := c.identifierConstant(c.prev.Literal)
	c.namedVariable("this", false)
	if c.match(token.LParen) {
		argCount := c.argumentList()
		c.namedVariable("super", false)
		c.emitBytes(bytecode.OP_SUPER_INVOKE, byte(nameConst), argCount)
	} else {
		c.namedVariable("super", false)
		c.emitU8(bytecode.OP_GET_SUPER, nameConst)
	}
}
