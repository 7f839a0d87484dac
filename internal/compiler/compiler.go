// Package compiler implements Embr's single-pass Pratt-parsing compiler:
// there is no intermediate AST — each parse function directly writes bytes
// to the current chunk. Scanning and bytecode emission are interleaved
// token by token, with function bodies compiled by their own nested
// compiler frame that chains back to its enclosing scope.
package compiler

import (
	"fmt"

	"github.com/embr-lang/embr/internal/bytecode"
	"github.com/embr-lang/embr/internal/scanner"
	"github.com/embr-lang/embr/internal/token"
)

// FunctionType distinguishes the handful of contexts a function body can
// compile under, since `init` and top-level script code both need special
// implicit-return handling.
type FunctionType int

const (
	TypeFunction FunctionType = iota
	TypeInitializer
	TypeMethod
	TypeScript
)

// CompileError reports a single parse-time diagnostic. Compile keeps going
// after the first one (panic-mode recovery via synchronize) and returns
// every error it collected, first-found first.
type CompileError struct {
	Line    int
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
}

type local struct {
	name       string
	depth      int // -1 means declared but not yet initialized
	isCaptured bool
}

type upvalueRef struct {
	index   uint8
	isLocal bool
}

// funcState is one function's compilation context; nested functions push a
// new funcState whose enclosing pointer chains back to the parent, exactly
// the structure resolveUpvalue needs to recurse through.
type funcState struct {
	enclosing  *funcState
	fnType     FunctionType
	chunk      *bytecode.Chunk
	name       string
	arity      int
	returnKind bytecode.ReturnKind
	locals     []local
	upvalues   []upvalueRef
	scopeDepth int
	lastOp     byte
	hasLastOp  bool
}

type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

// Compiler holds all state for one source-to-bytecode compilation.
type Compiler struct {
	sc          *scanner.Scanner
	cur, prev   token.Token
	hadError    bool
	panicMode   bool
	errs        []error
	fn          *funcState
	class       *classState
	source      string
}

// Compile compiles source (from a file/module named `source` for
// diagnostics) into a top-level function prototype ready to be wrapped in
// a closure and run. It returns every compile error collected via
// panic-mode recovery, not just the first.
func Compile(src string, source string) (*bytecode.FunctionProto, []error) {
	c := &Compiler{sc: scanner.New(src), source: source}
	c.fn = &funcState{fnType: TypeScript, chunk: &bytecode.Chunk{}, locals: []local{{name: "", depth: 0}}}

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	proto := c.endFunction()

	if c.hadError {
		return nil, c.errs
	}
	return proto, nil
}

// --- token stream plumbing ---

func (c *Compiler) advance() {
	c.prev = c.cur
	for {
		c.cur = c.sc.NextToken()
		if c.cur.Type != token.Illegal {
			break
		}
		c.errorAtCurrent(c.cur.Literal)
	}
}

func (c *Compiler) check(t token.Type) bool { return c.cur.Type == t }

func (c *Compiler) match(t token.Type) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t token.Type, msg string) {
	if c.cur.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.cur, msg) }
func (c *Compiler) error(msg string)          { c.errorAt(c.prev, msg) }

func (c *Compiler) errorAt(tok token.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true
	c.errs = append(c.errs, &CompileError{Line: tok.Pos.Line, Message: msg})
}

// synchronize discards tokens until a statement boundary, matching the
// original interpreter's resync keyword set exactly.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.cur.Type != token.EOF {
		if c.prev.Type == token.Semicolon {
			return
		}
		switch c.cur.Type {
		case token.Class, token.Fn, token.Var, token.For, token.If, token.While, token.Out, token.Return, token.Import:
			return
		}
		c.advance()
	}
}

// --- emission helpers ---

func (c *Compiler) chunk() *bytecode.Chunk { return c.fn.chunk }

func (c *Compiler) emitByte(b byte) {
	c.chunk().Write(b, c.prev.Pos.Line)
	c.fn.lastOp = b
	c.fn.hasLastOp = true
}

func (c *Compiler) emitBytes(bs ...byte) {
	for _, b := range bs {
		c.chunk().Write(b, c.prev.Pos.Line)
	}
	if len(bs) > 0 {
		c.fn.lastOp = bs[0]
		c.fn.hasLastOp = true
	}
}

func (c *Compiler) emitU16(hi byte, v int) {
	c.emitBytes(hi, byte(v>>8), byte(v))
}

// emitU8 emits an opcode followed by a single-byte operand — the width
// every name-constant, class/method/closure-constant, invoke selector and
// array/dict element count uses; only OP_CONSTANT_LONG and jump/loop
// offsets are two bytes wide.
func (c *Compiler) emitU8(op byte, v int) {
	c.emitBytes(op, byte(v))
}

// addU8Constant appends v to the current chunk's constant pool and returns
// its index, erroring if the pool has grown too large for the single-byte
// operand every u8-indexed opcode referencing it requires.
func (c *Compiler) addU8Constant(v interface{}) int {
	idx := c.chunk().AddConstant(v)
	if idx > 255 {
		c.error("Too many constants in one chunk.")
	}
	return idx
}

func (c *Compiler) emitConstant(v interface{}) {
	idx := c.chunk().AddConstant(v)
	if idx < 256 {
		c.emitBytes(bytecode.OP_CONSTANT, byte(idx))
	} else {
		c.emitU16(bytecode.OP_CONSTANT_LONG, idx)
	}
}

func (c *Compiler) emitJump(op byte) int {
	c.emitByte(op)
	c.emitBytes(0xff, 0xff)
	return len(c.chunk().Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.chunk().Code)
	code := c.chunk().Code
	code[offset] = byte(jump >> 8)
	code[offset+1] = byte(jump)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitByte(bytecode.OP_LOOP)
	back := len(c.chunk().Code) + 2 - loopStart
	c.emitBytes(byte(back>>8), byte(back))
}

func (c *Compiler) emitReturn() {
	if c.fn.fnType == TypeInitializer {
		c.emitBytes(bytecode.OP_GET_LOCAL, 0)
	} else {
		c.emitByte(bytecode.OP_NIL)
	}
	c.emitByte(bytecode.OP_RETURN)
}

func (c *Compiler) endFunction() *bytecode.FunctionProto {
	if !c.fn.hasLastOp || c.fn.lastOp != bytecode.OP_RETURN {
		if c.fn.returnKind != bytecode.ReturnNone && c.fn.returnKind != bytecode.ReturnVoid {
			c.error("Function must have an explicit return.")
		}
		c.emitReturn()
	}
	proto := &bytecode.FunctionProto{
		Name:       c.fn.name,
		Source:     c.source,
		Arity:      c.fn.arity,
		UpvalueN:   len(c.fn.upvalues),
		MaxLocals:  len(c.fn.locals),
		ReturnKind: c.fn.returnKind,
		IsInit:     c.fn.fnType == TypeInitializer,
		Chunk:      c.fn.chunk,
	}
	return proto
}

// --- scope / local / upvalue resolution ---
// Resolution order is locals, then upvalues, then globals — walked in
// exactly that order at every variable reference.

func (c *Compiler) beginScope() { c.fn.scopeDepth++ }

func (c *Compiler) endScope() {
	c.fn.scopeDepth--
	for len(c.fn.locals) > 0 && c.fn.locals[len(c.fn.locals)-1].depth > c.fn.scopeDepth {
		last := c.fn.locals[len(c.fn.locals)-1]
		if last.isCaptured {
			c.emitByte(bytecode.OP_CLOSE_UPVALUE)
		} else {
			c.emitByte(bytecode.OP_POP)
		}
		c.fn.locals = c.fn.locals[:len(c.fn.locals)-1]
	}
}

func (c *Compiler) addLocal(name string) {
	if len(c.fn.locals) >= 256 {
		c.error("Too many local variables in function.")
		return
	}
	c.fn.locals = append(c.fn.locals, local{name: name, depth: -1})
}

func (c *Compiler) declareVariable(name string) {
	if c.fn.scopeDepth == 0 {
		return
	}
	for i := len(c.fn.locals) - 1; i >= 0; i-- {
		l := c.fn.locals[i]
		if l.depth != -1 && l.depth < c.fn.scopeDepth {
			break
		}
		if l.name == name {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) markInitialized() {
	if c.fn.scopeDepth == 0 {
		return
	}
	c.fn.locals[len(c.fn.locals)-1].depth = c.fn.scopeDepth
}

func resolveLocalIn(fs *funcState, name string) (uint8, bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			if fs.locals[i].depth == -1 {
				return 0, false
			}
			return uint8(i), true
		}
	}
	return 0, false
}

func addUpvalue(c *Compiler, fs *funcState, index uint8, isLocal bool) uint8 {
	for i, uv := range fs.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return uint8(i)
		}
	}
	if len(fs.upvalues) >= 256 {
		c.error("Too many upvalues in function.")
		return 0
	}
	fs.upvalues = append(fs.upvalues, upvalueRef{index: index, isLocal: isLocal})
	return uint8(len(fs.upvalues) - 1)
}

func resolveUpvalueIn(c *Compiler, fs *funcState, name string) (uint8, bool) {
	if fs.enclosing == nil {
		return 0, false
	}
	if slot, ok := resolveLocalIn(fs.enclosing, name); ok {
		fs.enclosing.locals[slot].isCaptured = true
		return addUpvalue(c, fs, slot, true), true
	}
	if slot, ok := resolveUpvalueIn(c, fs.enclosing, name); ok {
		return addUpvalue(c, fs, slot, false), true
	}
	return 0, false
}
