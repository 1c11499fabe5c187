package compiler

import (
	"github.com/kristofer/ember/pkg/bytecode"
	"github.com/kristofer/ember/pkg/scanner"
	"github.com/kristofer/ember/pkg/value"
)

// precedence is the Pratt ladder from spec §4.3, low to high.
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

var rules map[scanner.Kind]parseRule

func init() {
	rules = map[scanner.Kind]parseRule{
		scanner.LeftParen:  {prefix: grouping, infix: call, precedence: precCall},
		scanner.Dot:        {infix: dot, precedence: precCall},
		scanner.Minus:      {prefix: unary, infix: binary, precedence: precTerm},
		scanner.Plus:       {infix: binary, precedence: precTerm},
		scanner.Slash:      {infix: binary, precedence: precFactor},
		scanner.Star:       {infix: binary, precedence: precFactor},
		scanner.Bang:       {prefix: unary},
		scanner.BangEqual:  {infix: binary, precedence: precEquality},
		scanner.EqualEqual: {infix: binary, precedence: precEquality},
		scanner.Greater:      {infix: binary, precedence: precComparison},
		scanner.GreaterEqual: {infix: binary, precedence: precComparison},
		scanner.Less:         {infix: binary, precedence: precComparison},
		scanner.LessEqual:    {infix: binary, precedence: precComparison},
		scanner.Identifier: {prefix: variable},
		scanner.String:     {prefix: stringLiteral},
		scanner.Number:     {prefix: number},
		scanner.And:        {infix: and_, precedence: precAnd},
		scanner.Or:         {infix: or_, precedence: precOr},
		scanner.False:      {prefix: literal},
		scanner.Nil:        {prefix: literal},
		scanner.True:       {prefix: literal},
		scanner.This:       {prefix: this_},
		scanner.Super:      {prefix: super_},
	}
}

func (c *Compiler) getRule(k scanner.Kind) parseRule { return rules[k] }

func (c *Compiler) expression() {
	c.parsePrecedence(precAssignment)
}

// parsePrecedence drives the Pratt loop: dispatch the prefix parselet for
// the current token, then keep consuming infix operators whose own
// precedence is at least p.
func (c *Compiler) parsePrecedence(p precedence) {
	c.advance()
	rule := c.getRule(c.previous.Kind)
	if rule.prefix == nil {
		c.error("Expect expression.")
		return
	}
	canAssign := p <= precAssignment
	rule.prefix(c, canAssign)

	for p <= c.getRule(c.current.Kind).precedence {
		c.advance()
		infix := c.getRule(c.previous.Kind).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(scanner.Equal) {
		c.error("Invalid assignment target.")
	}
}

func grouping(c *Compiler, _ bool) {
	c.expression()
	c.consume(scanner.RightParen, "Expect ')' after expression.")
}

func unary(c *Compiler, _ bool) {
	op := c.previous.Kind
	c.parsePrecedence(precUnary)
	switch op {
	case scanner.Minus:
		c.emit(bytecode.OpNeg)
	case scanner.Bang:
		c.emit(bytecode.OpNot)
	}
}

func binary(c *Compiler, _ bool) {
	op := c.previous.Kind
	rule := c.getRule(op)
	c.parsePrecedence(rule.precedence + 1)

	switch op {
	case scanner.Plus:
		c.emit(bytecode.OpAdd)
	case scanner.Minus:
		c.emit(bytecode.OpSub)
	case scanner.Star:
		c.emit(bytecode.OpMul)
	case scanner.Slash:
		c.emit(bytecode.OpDiv)
	case scanner.EqualEqual:
		c.emit(bytecode.OpEqual)
	case scanner.BangEqual:
		c.emit(bytecode.OpEqual)
		c.emit(bytecode.OpNot)
	case scanner.Greater:
		c.emit(bytecode.OpGreater)
	case scanner.GreaterEqual:
		c.emit(bytecode.OpLess)
		c.emit(bytecode.OpNot)
	case scanner.Less:
		c.emit(bytecode.OpLess)
	case scanner.LessEqual:
		c.emit(bytecode.OpGreater)
		c.emit(bytecode.OpNot)
	}
}

func number(c *Compiler, _ bool) {
	c.emitConstantValue(value.Number(numberLiteral(c.previous.Lexeme)))
}

func stringLiteral(c *Compiler, _ bool) {
	lexeme := c.previous.Lexeme
	s := lexeme[1 : len(lexeme)-1] // strip surrounding quotes
	c.emitConstantValue(value.Obj(c.heap.NewString(s)))
}

func literal(c *Compiler, _ bool) {
	switch c.previous.Kind {
	case scanner.False:
		c.emit(bytecode.OpFalse)
	case scanner.True:
		c.emit(bytecode.OpTrue)
	case scanner.Nil:
		c.emit(bytecode.OpNil)
	}
}

func variable(c *Compiler, canAssign bool) {
	c.namedVariable(c.previous, canAssign)
}

func and_(c *Compiler, _ bool) {
	endJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emit(bytecode.OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func or_(c *Compiler, _ bool) {
	elseJump := c.emitJump(bytecode.OpJumpIfFalse)
	endJump := c.emitJump(bytecode.OpJump)
	c.patchJump(elseJump)
	c.emit(bytecode.OpPop)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

// argumentList parses a parenthesized, comma-separated argument list
// (the opening '(' has already been consumed by the caller) and returns
// the argument count.
func (c *Compiler) argumentList() int {
	argc := 0
	if !c.check(scanner.RightParen) {
		for {
			c.expression()
			if argc >= maxArity {
				c.error("Can't have more than 255 arguments.")
			}
			argc++
			if !c.match(scanner.Comma) {
				break
			}
		}
	}
	c.consume(scanner.RightParen, "Expect ')' after arguments.")
	return argc
}

func call(c *Compiler, _ bool) {
	argc := c.argumentList()
	c.emit(bytecode.OpCall)
	c.emitByte(byte(argc))
}

func dot(c *Compiler, canAssign bool) {
	c.consume(scanner.Identifier, "Expect property name after '.'.")
	name := c.identifierConstant(c.previous.Lexeme)

	switch {
	case canAssign && c.match(scanner.Equal):
		c.expression()
		c.emitIndexed(bytecode.OpSetProperty, name)
	case c.match(scanner.LeftParen):
		argc := c.argumentList()
		if name > 0xFF {
			c.error("Too many constants in one chunk.")
			return
		}
		c.emit(bytecode.OpInvoke)
		c.emitByte(byte(name))
		c.emitByte(byte(argc))
	default:
		c.emitIndexed(bytecode.OpGetProperty, name)
	}
}

func this_(c *Compiler, _ bool) {
	if c.class == nil {
		c.error("Can't use 'this' outside of a class.")
		return
	}
	variable(c, false)
}

// super_ handles both `super.method` and `super.method(args)`, following
// the stack discipline spec §4.4.1 implies for bound-method dispatch: push
// the receiver (`this`), then (for a call) the arguments, then the
// superclass object, then a fused lookup+call or lookup+bind opcode.
func super_(c *Compiler, _ bool) {
	if c.class == nil {
		c.error("Can't use 'super' outside of a class.")
	} else if !c.class.hasSuperclass {
		c.error("Can't use 'super' in a class with no superclass.")
	}
	c.consume(scanner.Dot, "Expect '.' after 'super'.")
	c.consume(scanner.Identifier, "Expect superclass method name.")
	name := c.identifierConstant(c.previous.Lexeme)

	c.namedVariable(scanner.Token{Kind: scanner.Identifier, Lexeme: "this"}, false)
	if c.match(scanner.LeftParen) {
		argc := c.argumentList()
		c.namedVariable(scanner.Token{Kind: scanner.Identifier, Lexeme: "super"}, false)
		if name > 0xFF {
			c.error("Too many constants in one chunk.")
			return
		}
		c.emit(bytecode.OpSuperInvoke)
		c.emitByte(byte(name))
		c.emitByte(byte(argc))
	} else {
		c.namedVariable(scanner.Token{Kind: scanner.Identifier, Lexeme: "super"}, false)
		if name > 0xFF {
			c.error("Too many constants in one chunk.")
			return
		}
		c.emit(bytecode.OpGetSuper)
		c.emitByte(byte(name))
	}
}
