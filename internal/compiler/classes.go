package compiler

import (
	"github.com/embr-lang/embr/internal/bytecode"
	"github.com/embr-lang/embr/internal/token"
)

func (c *Compiler) parseReturnType() bytecode.ReturnKind {
	if !c.match(token.At) {
		return bytecode.ReturnNone
	}
	c.consume(token.Ident, "Expect return type after '@'.")
	switch c.prev.Literal {
	case "void":
		return bytecode.ReturnVoid
	case "int":
		return bytecode.ReturnInt
	case "float":
		return bytecode.ReturnFloat
	case "str":
		return bytecode.ReturnStr
	case "bool":
		return bytecode.ReturnBool
	default:
		c.error("Unknown return type '@" + c.prev.Literal + "'.")
		return bytecode.ReturnNone
	}
}

// function compiles a nested function/method body: fresh funcState, params
// as locals, optional `@type` annotation, then the brace-delimited body.
// The compiled prototype is appended to the enclosing chunk's constant pool
// and wrapped with OP_CLOSURE, followed by one (isLocal, index) byte pair
// per captured upvalue.
func (c *Compiler) function(fnType FunctionType, name string) {
	enclosing := c.fn
	fs := &funcState{enclosing: enclosing, fnType: fnType, chunk: &bytecode.Chunk{}, name: name}

	slot0Name := ""
	if fnType == TypeMethod || fnType == TypeInitializer {
		slot0Name = "this"
	}
	fs.locals = append(fs.locals, local{name: slot0Name, depth: 0})
	c.fn = fs
	c.beginScope()

	c.consume(token.LParen, "Expect '(' after function name.")
	if !c.check(token.RParen) {
		for {
			c.fn.arity++
			if c.fn.arity > 255 {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			c.consume(token.Ident, "Expect parameter name.")
			c.declareVariable(c.prev.Literal)
			c.markInitialized()
			if !c.match(token.Comma) {
				break
			}
		}
	}
	c.consume(token.RParen, "Expect ')' after parameters.")
	c.fn.returnKind = c.parseReturnType()
	c.consume(token.LBrace, "Expect '{' before function body.")
	c.block()

	upvalues := fs.upvalues
	proto := c.endFunction()
	c.fn = enclosing

	idx := c.addU8Constant(proto)
	c.emitU8(bytecode.OP_CLOSURE, idx)
	for _, uv := range upvalues {
		isLocal := byte(0)
		if uv.isLocal {
			isLocal = 1
		}
		c.emitBytes(isLocal, uv.index)
	}
}

// classDeclaration mirrors the original interpreter's class compilation: a
// hidden `super` local scope wraps method bodies when the class declares a
// superclass, so `super` resolves as an upvalue exactly like any other
// enclosing local.
func (c *Compiler) classDeclaration() {
	c.consume(token.Ident, "Expect class name.")
	name := c.prev.Literal
	nameConstant := c.identifierConstant(name)
	c.declareVariable(name)

	c.emitU8(bytecode.OP_CLASS, nameConstant)
	c.defineVariable(nameConstant)

	cs := &classState{enclosing: c.class}
	c.class = cs

	if c.match(token.Less) {
		c.consume(token.Ident, "Expect superclass name.")
		superName := c.prev.Literal
		if superName == name {
			c.error("A class can't inherit from itself.")
		}
		c.namedVariable(superName, false)

		c.beginScope()
		c.addLocal("super")
		c.markInitialized()

		c.namedVariable(name, false)
		c.emitByte(bytecode.OP_INHERIT)
		cs.hasSuperclass = true
	}

	c.namedVariable(name, false)
	c.consume(token.LBrace, "Expect '{' before class body.")
	for !c.check(token.RBrace) && !c.check(token.EOF) {
		c.method()
	}
	c.consume(token.RBrace, "Expect '}' after class body.")
	c.emitByte(bytecode.OP_POP)

	if cs.hasSuperclass {
		c.endScope()
	}
	c.class = cs.enclosing
}

func (c *Compiler) method() {
	c.consume(token.Ident, "Expect method name.")
	name := c.prev.Literal
	constant := c.identifierConstant(name)

	fnType := TypeMethod
	if name == "init" {
		fnType = TypeInitializer
	}
	c.function(fnType, name)
	c.emitU8(bytecode.OP_METHOD, constant)
}
