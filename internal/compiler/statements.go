package compiler

import (
	"github.com/embr-lang/embr/internal/bytecode"
	"github.com/embr-lang/embr/internal/token"
)

func (c *Compiler) identifierConstant(name string) int {
	return c.addU8Constant(name)
}

// parseVariable consumes an identifier, declares it (as a local if inside a
// scope), and — for globals only — returns the name's constant table index
// for a later OP_DEFINE_GLOBAL.
func (c *Compiler) parseVariable(errMsg string) int {
	c.consume(token.Ident, errMsg)
	name := c.prev.Literal
	c.declareVariable(name)
	if c.fn.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(name)
}

func (c *Compiler) defineVariable(global int) {
	if c.fn.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitU8(bytecode.OP_DEFINE_GLOBAL, global)
}

func (c *Compiler) declaration() {
	switch {
	case c.match(token.Class):
		c.classDeclaration()
	case c.match(token.Fn):
		c.fnDeclaration()
	case c.match(token.Var):
		c.varDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")
	if c.match(token.Assign) {
		c.expression()
	} else {
		c.emitByte(bytecode.OP_NIL)
	}
	c.consume(token.Semicolon, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

func (c *Compiler) fnDeclaration() {
	c.consume(token.Ident, "Expect function name.")
	name := c.prev.Literal
	c.declareVariable(name)

	isGlobal := c.fn.scopeDepth == 0
	global := 0
	if isGlobal {
		global = c.identifierConstant(name)
	}
	c.markInitialized()

	c.function(TypeFunction, name)

	if isGlobal {
		c.emitU8(bytecode.OP_DEFINE_GLOBAL, global)
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.Out):
		c.outStatement()
	case c.match(token.If):
		c.ifStatement()
	case c.match(token.While):
		c.whileStatement()
	case c.match(token.Until):
		c.untilStatement()
	case c.match(token.For):
		c.forStatement()
	case c.match(token.Return):
		c.returnStatement()
	case c.match(token.Import):
		c.importStatement()
	case c.match(token.LBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

// block parses declarations up to (and consuming) the closing brace; the
// caller is responsible for the matching beginScope/endScope pair.
func (c *Compiler) block() {
	for !c.check(token.RBrace) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RBrace, "Expect '}' after block.")
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after expression.")
	c.emitByte(bytecode.OP_POP)
}

func (c *Compiler) outStatement() {
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after value.")
	c.emitByte(bytecode.OP_OUT)
}

func (c *Compiler) ifStatement() {
	c.consume(token.LParen, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RParen, "Expect ')' after condition.")

	thenJump := c.emitJump(bytecode.OP_JUMP_IF_FALSE)
	c.emitByte(bytecode.OP_POP)
	c.statement()

	elseJump := c.emitJump(bytecode.OP_JUMP)
	c.patchJump(thenJump)
	c.emitByte(bytecode.OP_POP)

	if c.match(token.Else) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk().Code)
	c.consume(token.LParen, "Expect '(' after 'while'.")
	c.expression()
	c.consume(token.RParen, "Expect ')' after condition.")

	exitJump := c.emitJump(bytecode.OP_JUMP_IF_FALSE)
	c.emitByte(bytecode.OP_POP)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitByte(bytecode.OP_POP)
}

// untilStatement is while with its condition negated: `until (cond) stmt`
// is sugar for `while (!(cond)) stmt`.
func (c *Compiler) untilStatement() {
	loopStart := len(c.chunk().Code)
	c.consume(token.LParen, "Expect '(' after 'until'.")
	c.expression()
	c.emitByte(bytecode.OP_NOT)
	c.consume(token.RParen, "Expect ')' after condition.")

	exitJump := c.emitJump(bytecode.OP_JUMP_IF_FALSE)
	c.emitByte(bytecode.OP_POP)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitByte(bytecode.OP_POP)
}

// forStatement desugars C-style `for (init; cond; incr) stmt` into a while
// loop at compile time — the classic bytecode-VM technique, needing no
// dedicated loop opcode of its own.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LParen, "Expect '(' after 'for'.")

	switch {
	case c.match(token.Semicolon):
		// no initializer
	case c.match(token.Var):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk().Code)
	exitJump := -1
	if !c.match(token.Semicolon) {
		c.expression()
		c.consume(token.Semicolon, "Expect ';' after loop condition.")
		exitJump = c.emitJump(bytecode.OP_JUMP_IF_FALSE)
		c.emitByte(bytecode.OP_POP)
	}

	if !c.match(token.RParen) {
		bodyJump := c.emitJump(bytecode.OP_JUMP)
		incrementStart := len(c.chunk().Code)
		c.expression()
		c.emitByte(bytecode.OP_POP)
		c.consume(token.RParen, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitByte(bytecode.OP_POP)
	}
	c.endScope()
}

func (c *Compiler) returnStatement() {
	if c.fn.fnType == TypeScript {
		c.error("Can't return from top-level code.")
	}
	if c.match(token.Semicolon) {
		if rt := c.fn.returnKind; rt != bytecode.ReturnNone && rt != bytecode.ReturnVoid {
			c.error(returnTypeErrorMessage(rt))
		}
		c.emitReturn()
		return
	}
	if c.fn.fnType == TypeInitializer {
		c.error("Can't return a value from an initializer.")
	}
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after return value.")
	if !acceptableForReturnType(c.fn.returnKind, c.fn.lastOp) {
		c.error(returnTypeErrorMessage(c.fn.returnKind))
	}
	c.emitByte(bytecode.OP_RETURN)
}

// importStatement emits OP_IMPORT with the module name as a constant; the
// VM resolves and executes the import at runtime (see internal/vm), not
// here at compile time, so the compiler never depends on a live VM.
func (c *Compiler) importStatement() {
	c.consume(token.String, "Expect module name string after 'import'.")
	name := c.prev.Literal
	c.consume(token.Semicolon, "Expect ';' after import statement.")
	idx := c.addU8Constant(name)
	c.emitU8(bytecode.OP_IMPORT, idx)
}
