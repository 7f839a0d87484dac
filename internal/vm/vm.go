// Package vm implements the stack-based bytecode interpreter for compiled
// Embr chunks: a CallFrame stack over a fixed value stack, one dispatch loop
// switching on internal/bytecode's opcodes, and the runtime half of every
// check the compiler can only approximate at compile time.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/embr-lang/embr/internal/bytecode"
	"github.com/embr-lang/embr/internal/compiler"
	"github.com/embr-lang/embr/internal/host"
	"github.com/embr-lang/embr/internal/value"
)

const (
	defaultMaxStack  = 1 << 16
	defaultMaxFrames = 256
)

// frame is one activation record. Unlike a tree-walking interpreter's
// environment chain, locals are never copied anywhere: base is the index
// into vm.stack where this call's slot 0 begins, and OP_GET_LOCAL/
// OP_SET_LOCAL address vm.stack[base+slot] directly.
type frame struct {
	closure *value.ObjClosure
	ip      int
	base    int
}

func (fr *frame) proto() *bytecode.FunctionProto { return fr.closure.Fn.Proto }

// VM runs compiled Embr chunks. The zero value is not usable; construct one
// with New. A VM is not safe for concurrent use — CallAsync-style host code
// should Duplicate() one VM per goroutine instead of sharing a single VM.
type VM struct {
	heap   *value.Heap
	stack  []value.Value // fixed-length backing array; sp tracks the live top
	sp     int
	frames []frame

	globals      map[string]value.Value
	openUpvalues *value.ObjUpvalue

	importer  host.Importer
	clock     host.Clock
	commander host.Commander
	out       io.Writer

	traceHook TraceHook
	instLimit int
	instCount int
	maxFrames int
}

// New constructs a VM with system defaults: no imports, the system clock,
// no shell access, and stdout as the `out` destination.
func New() *VM {
	return &VM{
		heap:      value.NewHeap(),
		stack:     make([]value.Value, defaultMaxStack),
		frames:    make([]frame, 0, defaultMaxFrames),
		globals:   make(map[string]value.Value),
		importer:  host.NoImports{},
		clock:     host.NewSystemClock(),
		out:       os.Stdout,
		maxFrames: defaultMaxFrames,
	}
}

// SetImporter overrides how `import "name";` resolves source text.
func (vm *VM) SetImporter(imp host.Importer) { vm.importer = imp }

// SetClock overrides the source of clock()/time() readings.
func (vm *VM) SetClock(c host.Clock) { vm.clock = c }

// SetCommander overrides the shell command runner backing term().
func (vm *VM) SetCommander(c host.Commander) { vm.commander = c }

// SetOutput redirects `out` statements away from stdout.
func (vm *VM) SetOutput(w io.Writer) { vm.out = w }

// SetTraceHook installs a callback invoked before every instruction; pass
// nil to disable tracing. `embr run --trace` installs one that logs each
// instruction.
func (vm *VM) SetTraceHook(hook TraceHook) { vm.traceHook = hook }

// SetInstructionLimit caps the number of instructions a single Run/Call may
// execute before failing with a runtime error; 0 (the default) means
// unlimited. This is the host's guard against runaway or hostile scripts.
func (vm *VM) SetInstructionLimit(n int) { vm.instLimit = n }

// SetMaxFrames overrides the call-depth ceiling used to detect stack
// overflow from unbounded recursion; 0 leaves the default in place.
func (vm *VM) SetMaxFrames(n int) {
	if n > 0 {
		vm.maxFrames = n
	}
}

// Clock exposes the configured host.Clock so natives (clock/time) can read
// it without internal/natives importing internal/host itself.
func (vm *VM) Clock() host.Clock { return vm.clock }

// Commander exposes the configured host.Commander for the term() native.
func (vm *VM) Commander() host.Commander { return vm.commander }

// ResetState clears the value stack, call frames and instruction counter
// without discarding globals or heap allocations, so repeated Call()
// invocations against the same script don't leak frames across calls.
func (vm *VM) ResetState() {
	vm.sp = 0
	vm.frames = vm.frames[:0]
	vm.openUpvalues = nil
	vm.instCount = 0
}

// DefineGlobal binds name directly, bypassing OP_DEFINE_GLOBAL — how a host
// registers natives and constants before running any script.
func (vm *VM) DefineGlobal(name string, v value.Value) { vm.globals[name] = v }

// DefineNative registers a Go function as a global callable exactly like
// any Embr function; arity -1 means variadic (no check at call time).
func (vm *VM) DefineNative(name string, arity int, fn value.NativeFn) {
	vm.DefineGlobal(name, value.FromObject(vm.heap.NewNative(name, arity, fn)))
}

// Run compiles nothing itself: proto must already be the product of
// compiler.Compile. It resets VM state, wraps proto in a closure with no
// upvalues (top-level scripts never capture anything) and executes it.
func (vm *VM) Run(proto *bytecode.FunctionProto, args []value.Value) (value.Value, error) {
	vm.ResetState()
	fn := vm.heap.NewFunction(proto)
	cl := vm.heap.NewClosure(fn)
	return vm.invoke(cl, args)
}

// Call invokes a previously-defined global by name — the embedding API's
// primary entry point for calling into script-defined functions.
func (vm *VM) Call(name string, args []value.Value) (value.Value, error) {
	callee, ok := vm.globals[name]
	if !ok {
		return value.Nil, fmt.Errorf("SKILL ISSUE: undefined global '%s'", name)
	}
	vm.ResetState()
	return vm.callValue(callee, args)
}

// callValue is the host-boundary counterpart of the bytecode-level call():
// it stages callee and args onto the stack itself (bytecode normally does
// this via ordinary expression evaluation) before dispatching.
func (vm *VM) callValue(callee value.Value, args []value.Value) (result value.Value, err error) {
	defer vm.recoverOverflow(&err)
	depth := len(vm.frames)
	vm.push(callee)
	for _, a := range args {
		vm.push(a)
	}
	if callErr := vm.call(callee, len(args)); callErr != nil {
		return value.Nil, wrapPlainError(callErr)
	}
	if len(vm.frames) == depth {
		// call() executed a native or empty-init class construction inline;
		// no frame was pushed, so the result is already sitting on the stack.
		return vm.pop(), nil
	}
	return vm.run(depth)
}

func (vm *VM) invoke(cl *value.ObjClosure, args []value.Value) (value.Value, error) {
	return vm.callValue(value.FromObject(cl), args)
}

// call dispatches a single OP_CALL/OP_INVOKE-style invocation: closures and
// bound methods push a CallFrame for the dispatch loop to pick up next
// iteration; natives and no-init classes run to completion immediately.
func (vm *VM) call(callee value.Value, argCount int) error {
	if !callee.IsObject() {
		return fmt.Errorf("can only call functions and classes")
	}
	switch obj := callee.AsObject().(type) {
	case *value.ObjClosure:
		return vm.callClosure(obj, argCount)
	case *value.ObjNative:
		return vm.callNative(obj, argCount)
	case *value.ObjBoundMethod:
		vm.stack[vm.sp-argCount-1] = obj.Receiver
		return vm.callClosure(obj.Method, argCount)
	case *value.ObjClass:
		return vm.instantiate(obj, argCount)
	default:
		return fmt.Errorf("can only call functions and classes")
	}
}

func (vm *VM) callClosure(cl *value.ObjClosure, argCount int) error {
	proto := cl.Fn.Proto
	if argCount != proto.Arity {
		return fmt.Errorf("expected %d arguments but got %d", proto.Arity, argCount)
	}
	if len(vm.frames) >= vm.maxFrames {
		return fmt.Errorf("stack overflow")
	}
	base := vm.sp - argCount - 1
	vm.frames = append(vm.frames, frame{closure: cl, ip: 0, base: base})
	return nil
}

func (vm *VM) callNative(n *value.ObjNative, argCount int) error {
	if n.Arity >= 0 && argCount != n.Arity {
		return fmt.Errorf("expected %d arguments but got %d", n.Arity, argCount)
	}
	args := make([]value.Value, argCount)
	copy(args, vm.stack[vm.sp-argCount:vm.sp])
	result, err := n.Fn(args)
	if err != nil {
		return err
	}
	vm.sp -= argCount + 1
	vm.push(result)
	return nil
}

// instantiate replaces the class value being called with a fresh instance
// (so `init`, if present, runs with `this` bound to it in slot 0) and
// dispatches into init exactly like any other method call.
func (vm *VM) instantiate(class *value.ObjClass, argCount int) error {
	inst := vm.heap.NewInstance(class)
	vm.stack[vm.sp-argCount-1] = value.FromObject(inst)
	if init, ok := class.Methods["init"]; ok {
		return vm.callClosure(init, argCount)
	}
	if argCount != 0 {
		return fmt.Errorf("expected 0 arguments but got %d", argCount)
	}
	return nil
}

// invokeMethod backs OP_INVOKE. If the receiver has an instance *field* by
// this name, it is called instead of a method by the same name — the
// field value replaces the receiver on the call, it does not receive
// `this`.
func (vm *VM) invokeMethod(recv value.Value, name string, argCount int) error {
	if !recv.IsInstance() {
		return fmt.Errorf("only instances have methods")
	}
	inst := recv.AsInstance()
	if f, ok := inst.Fields[name]; ok {
		vm.stack[vm.sp-argCount-1] = f
		return vm.call(f, argCount)
	}
	m, ok := inst.Class.Methods[name]
	if !ok {
		return fmt.Errorf("undefined property '%s'", name)
	}
	return vm.callClosure(m, argCount)
}

// run is the dispatch loop, shared by every entry point: it executes until
// the frame stack unwinds back down to baseDepth, then returns the value
// left by that frame's OP_RETURN. Nested invocations (native callbacks,
// OP_IMPORT executing an imported script's top level) call back into run
// recursively at a deeper baseDepth, mirroring the original interpreter's
// recursive interpret() calls but through Go's call stack instead of a
// single translation unit.
func (vm *VM) run(baseDepth int) (value.Value, error) {
	for {
		fr := &vm.frames[len(vm.frames)-1]
		code := fr.proto().Chunk.Code
		if fr.ip >= len(code) {
			return vm.runtimeErrorAt(fr, "function fell off the end without returning")
		}
		op := code[fr.ip]
		fr.ip++

		vm.instCount++
		if vm.instLimit > 0 && vm.instCount > vm.instLimit {
			return vm.runtimeErrorAt(fr, "instruction limit exceeded")
		}
		vm.trace(fr, op)

		switch op {
		case bytecode.OP_CONSTANT:
			idx := vm.readU8(fr)
			vm.push(vm.constantValue(fr, int(idx)))
		case bytecode.OP_CONSTANT_LONG:
			idx := vm.readU16(fr)
			vm.push(vm.constantValue(fr, idx))
		case bytecode.OP_NIL:
			vm.push(value.Nil)
		case bytecode.OP_TRUE:
			vm.push(value.Bool(true))
		case bytecode.OP_FALSE:
			vm.push(value.Bool(false))
		case bytecode.OP_POP:
			vm.pop()

		case bytecode.OP_GET_LOCAL:
			slot := vm.readU8(fr)
			vm.push(vm.stack[fr.base+int(slot)])
		case bytecode.OP_SET_LOCAL:
			slot := vm.readU8(fr)
			vm.stack[fr.base+int(slot)] = vm.peek(0)
		case bytecode.OP_GET_UPVALUE:
			slot := vm.readU8(fr)
			vm.push(fr.closure.Upvalues[slot].Get())
		case bytecode.OP_SET_UPVALUE:
			slot := vm.readU8(fr)
			fr.closure.Upvalues[slot].Set(vm.peek(0))

		case bytecode.OP_DEFINE_GLOBAL:
			idx := int(vm.readU8(fr))
			vm.globals[vm.constantString(fr, idx)] = vm.pop()
		case bytecode.OP_GET_GLOBAL:
			idx := int(vm.readU8(fr))
			name := vm.constantString(fr, idx)
			v, ok := vm.globals[name]
			if !ok {
				return vm.runtimeErrorAt(fr, "undefined variable '%s'", name)
			}
			vm.push(v)
		case bytecode.OP_SET_GLOBAL:
			idx := int(vm.readU8(fr))
			name := vm.constantString(fr, idx)
			if _, ok := vm.globals[name]; !ok {
				return vm.runtimeErrorAt(fr, "undefined variable '%s'", name)
			}
			vm.globals[name] = vm.peek(0)

		case bytecode.OP_GET_PROPERTY:
			idx := int(vm.readU8(fr))
			name := vm.constantString(fr, idx)
			recv := vm.peek(0)
			switch {
			case recv.IsInstance():
				inst := recv.AsInstance()
				vm.pop()
				if f, ok := inst.Fields[name]; ok {
					vm.push(f)
				} else if m, ok := inst.Class.Methods[name]; ok {
					vm.push(value.FromObject(vm.heap.NewBoundMethod(recv, m)))
				} else {
					return vm.runtimeErrorAt(fr, "undefined property '%s'", name)
				}
			case recv.IsDict():
				dict := recv.AsDict()
				vm.pop()
				vm.push(dict.Entries[name])
			default:
				return vm.runtimeErrorAt(fr, "only instances and dictionaries have properties")
			}
		case bytecode.OP_SET_PROPERTY:
			idx := int(vm.readU8(fr))
			name := vm.constantString(fr, idx)
			val := vm.peek(0)
			recv := vm.peek(1)
			switch {
			case recv.IsInstance():
				recv.AsInstance().Fields[name] = val
			case recv.IsDict():
				recv.AsDict().Entries[name] = val
			default:
				return vm.runtimeErrorAt(fr, "only instances and dictionaries have fields")
			}
			vm.pop()
			vm.pop()
			vm.push(val)
		case bytecode.OP_GET_SUPER:
			idx := int(vm.readU8(fr))
			name := vm.constantString(fr, idx)
			super := vm.pop()
			recv := vm.pop()
			if !super.IsClass() {
				return vm.runtimeErrorAt(fr, "superclass must be a class")
			}
			m, ok := super.AsClass().Methods[name]
			if !ok {
				return vm.runtimeErrorAt(fr, "undefined property '%s'", name)
			}
			vm.push(value.FromObject(vm.heap.NewBoundMethod(recv, m)))

		case bytecode.OP_EQUAL:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))
		case bytecode.OP_GREATER:
			b, a := vm.pop(), vm.pop()
			if !a.IsNumber() || !b.IsNumber() {
				return vm.runtimeErrorAt(fr, "operands must be numbers")
			}
			vm.push(value.Bool(a.AsNumber() > b.AsNumber()))
		case bytecode.OP_LESS:
			b, a := vm.pop(), vm.pop()
			if !a.IsNumber() || !b.IsNumber() {
				return vm.runtimeErrorAt(fr, "operands must be numbers")
			}
			vm.push(value.Bool(a.AsNumber() < b.AsNumber()))

		case bytecode.OP_ADD:
			b, a := vm.pop(), vm.pop()
			switch {
			case a.IsNumber() && b.IsNumber():
				vm.push(value.Number(a.AsNumber() + b.AsNumber()))
			case a.IsString() && b.IsString():
				vm.push(value.FromObject(vm.heap.InternString(a.Str() + b.Str())))
			default:
				return vm.runtimeErrorAt(fr, "operands must be two numbers or two strings")
			}
		case bytecode.OP_SUBTRACT:
			if !vm.applyNumeric(fr, func(x, y float64) float64 { return x - y }) {
				return vm.runtimeErrorAt(fr, "operands must be numbers")
			}
		case bytecode.OP_MULTIPLY:
			if !vm.applyNumeric(fr, func(x, y float64) float64 { return x * y }) {
				return vm.runtimeErrorAt(fr, "operands must be numbers")
			}
		case bytecode.OP_DIVIDE:
			// Unchecked: dividing by zero yields IEEE inf/nan, not an error.
			if !vm.applyNumeric(fr, func(x, y float64) float64 { return x / y }) {
				return vm.runtimeErrorAt(fr, "operands must be numbers")
			}
		case bytecode.OP_MODULO:
			if vm.peek(1).IsNumber() && vm.peek(0).IsNumber() && vm.peek(0).AsNumber() == 0 {
				return vm.runtimeErrorAt(fr, "division by zero")
			}
			if !vm.applyNumeric(fr, mathMod) {
				return vm.runtimeErrorAt(fr, "operands must be numbers")
			}

		case bytecode.OP_BITAND:
			if !vm.applyInt(fr, func(x, y int64) int64 { return x & y }) {
				return vm.runtimeErrorAt(fr, "operands must be numbers")
			}
		case bytecode.OP_BITOR:
			if !vm.applyInt(fr, func(x, y int64) int64 { return x | y }) {
				return vm.runtimeErrorAt(fr, "operands must be numbers")
			}
		case bytecode.OP_BITXOR:
			if !vm.applyInt(fr, func(x, y int64) int64 { return x ^ y }) {
				return vm.runtimeErrorAt(fr, "operands must be numbers")
			}
		case bytecode.OP_LSHIFT:
			if !vm.applyInt(fr, func(x, y int64) int64 { return x << uint(y) }) {
				return vm.runtimeErrorAt(fr, "operands must be numbers")
			}
		case bytecode.OP_RSHIFT:
			if !vm.applyInt(fr, func(x, y int64) int64 { return x >> uint(y) }) {
				return vm.runtimeErrorAt(fr, "operands must be numbers")
			}
		case bytecode.OP_BITNOT:
			a := vm.pop()
			if !a.IsNumber() {
				return vm.runtimeErrorAt(fr, "operand must be a number")
			}
			vm.push(value.Number(float64(^int64(a.AsNumber()))))

		case bytecode.OP_NOT:
			vm.push(value.Bool(!value.Truthy(vm.pop())))
		case bytecode.OP_NEGATE:
			a := vm.pop()
			if !a.IsNumber() {
				return vm.runtimeErrorAt(fr, "operand must be a number")
			}
			vm.push(value.Number(-a.AsNumber()))

		case bytecode.OP_OUT:
			v := vm.pop()
			fmt.Fprintln(vm.out, value.Stringify(v))

		case bytecode.OP_JUMP:
			off := vm.readU16(fr)
			fr.ip = off
		case bytecode.OP_JUMP_IF_FALSE:
			off := vm.readU16(fr)
			if !value.Truthy(vm.peek(0)) {
				fr.ip = off
			}
		case bytecode.OP_LOOP:
			back := vm.readU16(fr)
			fr.ip -= back

		case bytecode.OP_CALL:
			argCount := int(vm.readU8(fr))
			callee := vm.peek(argCount)
			if err := vm.call(callee, argCount); err != nil {
				return vm.wrapRuntimeError(fr, err)
			}

		case bytecode.OP_INVOKE:
			idx := int(vm.readU8(fr))
			name := vm.constantString(fr, idx)
			argCount := int(vm.readU8(fr))
			recv := vm.peek(argCount)
			if err := vm.invokeMethod(recv, name, argCount); err != nil {
				return vm.wrapRuntimeError(fr, err)
			}
		case bytecode.OP_SUPER_INVOKE:
			idx := int(vm.readU8(fr))
			name := vm.constantString(fr, idx)
			argCount := int(vm.readU8(fr))
			super := vm.pop()
			if !super.IsClass() {
				return vm.runtimeErrorAt(fr, "superclass must be a class")
			}
			m, ok := super.AsClass().Methods[name]
			if !ok {
				return vm.runtimeErrorAt(fr, "undefined property '%s'", name)
			}
			if err := vm.callClosure(m, argCount); err != nil {
				return vm.wrapRuntimeError(fr, err)
			}

		case bytecode.OP_CLOSURE:
			idx := int(vm.readU8(fr))
			proto := fr.proto().Chunk.Consts[idx].(*bytecode.FunctionProto)
			fn := vm.heap.NewFunction(proto)
			cl := vm.heap.NewClosure(fn)
			for i := 0; i < proto.UpvalueN; i++ {
				isLocal := vm.readU8(fr)
				index := vm.readU8(fr)
				if isLocal == 1 {
					cl.Upvalues[i] = vm.captureUpvalue(fr.base + int(index))
				} else {
					cl.Upvalues[i] = fr.closure.Upvalues[index]
				}
			}
			vm.push(value.FromObject(cl))
		case bytecode.OP_CLOSE_UPVALUE:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()

		case bytecode.OP_RETURN:
			result := vm.pop()
			finished := vm.frames[len(vm.frames)-1]
			vm.closeUpvalues(finished.base)
			vm.frames = vm.frames[:len(vm.frames)-1]
			vm.sp = finished.base
			if !checkReturnType(finished.closure.Fn.Proto.ReturnKind, result) {
				return vm.runtimeErrorAt(&finished, "return value of type '%s' does not match declared return type '@%s'",
					value.TypeName(result), finished.closure.Fn.Proto.ReturnKind)
			}
			if len(vm.frames) == baseDepth {
				return result, nil
			}
			vm.push(result)

		case bytecode.OP_CLASS:
			idx := int(vm.readU8(fr))
			vm.push(value.FromObject(vm.heap.NewClass(vm.constantString(fr, idx))))
		case bytecode.OP_INHERIT:
			subclassVal := vm.pop()
			superVal := vm.peek(0)
			if !superVal.IsClass() {
				return vm.runtimeErrorAt(fr, "superclass must be a class")
			}
			if !subclassVal.IsClass() {
				return vm.runtimeErrorAt(fr, "inherit target must be a class")
			}
			for name, m := range superVal.AsClass().Methods {
				subclassVal.AsClass().Methods[name] = m
			}
		case bytecode.OP_METHOD:
			idx := int(vm.readU8(fr))
			name := vm.constantString(fr, idx)
			methodVal := vm.pop()
			classVal := vm.peek(0)
			classVal.AsClass().Methods[name] = methodVal.AsClosure()

		case bytecode.OP_ARRAY:
			count := int(vm.readU8(fr))
			elems := make([]value.Value, count)
			for i := count - 1; i >= 0; i-- {
				elems[i] = vm.pop()
			}
			vm.push(value.FromObject(vm.heap.NewArray(elems)))
		case bytecode.OP_DICT:
			pairCount := int(vm.readU8(fr))
			entries := make(map[string]value.Value, pairCount)
			for i := 0; i < pairCount; i++ {
				val := vm.pop()
				key := vm.pop()
				entries[key.Str()] = val
			}
			vm.push(value.FromObject(vm.heap.NewDict(entries)))

		case bytecode.OP_OBJECT_GET:
			idx := vm.pop()
			container := vm.pop()
			v, err := vm.objectGet(container, idx)
			if err != nil {
				return vm.wrapRuntimeError(fr, err)
			}
			vm.push(v)
		case bytecode.OP_OBJECT_SET:
			val := vm.pop()
			idx := vm.pop()
			container := vm.pop()
			if err := vm.objectSet(container, idx, val); err != nil {
				return vm.wrapRuntimeError(fr, err)
			}
			vm.push(val)

		case bytecode.OP_IMPORT:
			idx := int(vm.readU8(fr))
			name := vm.constantString(fr, idx)
			if err := vm.runImport(name); err != nil {
				return vm.wrapRuntimeError(fr, err)
			}

		default:
			return vm.runtimeErrorAt(fr, "unknown opcode %d", op)
		}
	}
}

// runImport resolves and executes an imported script's top level
// synchronously, populating vm.globals as a side effect — see DESIGN.md's
// note on why this happens at VM runtime rather than compile time.
func (vm *VM) runImport(name string) error {
	src, resolvedName, err := vm.importer.Load(name)
	if err != nil {
		return err
	}
	proto, errs := compiler.Compile(src, resolvedName)
	if len(errs) > 0 {
		return fmt.Errorf("import %q failed to compile: %s", name, errs[0].Error())
	}
	fn := vm.heap.NewFunction(proto)
	cl := vm.heap.NewClosure(fn)
	_, err = vm.invoke(cl, nil)
	return err
}

func checkReturnType(rt bytecode.ReturnKind, v value.Value) bool {
	switch rt {
	case bytecode.ReturnNone:
		return true
	case bytecode.ReturnVoid:
		return v.IsNil()
	case bytecode.ReturnInt, bytecode.ReturnFloat:
		return v.IsNumber()
	case bytecode.ReturnStr:
		return v.IsString()
	case bytecode.ReturnBool:
		return v.IsBool()
	default:
		return true
	}
}

func mathMod(x, y float64) float64 {
	return x - y*float64(int64(x/y))
}

func (vm *VM) applyNumeric(fr *frame, op func(float64, float64) float64) bool {
	b, a := vm.pop(), vm.pop()
	if !a.IsNumber() || !b.IsNumber() {
		return false
	}
	vm.push(value.Number(op(a.AsNumber(), b.AsNumber())))
	return true
}

func (vm *VM) applyInt(fr *frame, op func(int64, int64) int64) bool {
	b, a := vm.pop(), vm.pop()
	if !a.IsNumber() || !b.IsNumber() {
		return false
	}
	vm.push(value.Number(float64(op(int64(a.AsNumber()), int64(b.AsNumber())))))
	return true
}

// objectGet backs `container[index]` for OP_OBJECT_GET. Array reads
// out of bounds return nil rather than erroring, a deliberate departure
// from the C original's undefined behavior on out-of-range access.
func (vm *VM) objectGet(container, idx value.Value) (value.Value, error) {
	switch {
	case container.IsArray():
		arr := container.AsArray()
		i, err := indexAsInt(idx)
		if err != nil {
			return value.Nil, err
		}
		if i < 0 || i >= len(arr.Elements) {
			return value.Nil, nil
		}
		return arr.Elements[i], nil
	case container.IsDict():
		key, err := dictKey(idx)
		if err != nil {
			return value.Nil, err
		}
		v, ok := container.AsDict().Entries[key]
		if !ok {
			return value.Nil, nil
		}
		return v, nil
	default:
		return value.Nil, fmt.Errorf("value of type '%s' is not indexable", value.TypeName(container))
	}
}

// objectSet backs `container[index] = value`. Assigning past an array's end
// grows it, filling the gap with nil, rather than erroring — the write side
// of the same out-of-range policy objectGet implements for reads.
func (vm *VM) objectSet(container, idx, val value.Value) error {
	switch {
	case container.IsArray():
		arr := container.AsArray()
		i, err := indexAsInt(idx)
		if err != nil {
			return err
		}
		if i < 0 {
			return fmt.Errorf("array index must not be negative")
		}
		if i >= len(arr.Elements) {
			grown := make([]value.Value, i+1)
			copy(grown, arr.Elements)
			for j := len(arr.Elements); j < i; j++ {
				grown[j] = value.Nil
			}
			arr.Elements = grown
		}
		arr.Elements[i] = val
		return nil
	case container.IsDict():
		key, err := dictKey(idx)
		if err != nil {
			return err
		}
		container.AsDict().Entries[key] = val
		return nil
	default:
		return fmt.Errorf("value of type '%s' is not indexable", value.TypeName(container))
	}
}

func indexAsInt(v value.Value) (int, error) {
	if !v.IsNumber() {
		return 0, fmt.Errorf("index must be a number")
	}
	n := v.AsNumber()
	i := int(n)
	if float64(i) != n {
		return 0, fmt.Errorf("index must be an integer")
	}
	return i, nil
}

func dictKey(v value.Value) (string, error) {
	if v.IsString() {
		return v.Str(), nil
	}
	if v.IsNumber() {
		return value.Stringify(v), nil
	}
	return "", fmt.Errorf("dict key must be a string or number")
}

// push and pop operate on a fixed-length backing array rather than a
// growable slice: ObjUpvalue.Location holds a raw *Value into vm.stack, and
// an append-triggered reallocation would silently invalidate every open
// upvalue pointing into the old array. Overflow panics and is recovered at
// the callValue boundary instead of threading an error return through
// every push call site — the Go analogue of clox running off the end of
// its fixed C stack array.
func (vm *VM) push(v value.Value) {
	if vm.sp >= len(vm.stack) {
		panic(stackOverflowPanic{})
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() value.Value {
	vm.sp--
	v := vm.stack[vm.sp]
	vm.stack[vm.sp] = value.Nil
	return v
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.sp-1-distance]
}

type stackOverflowPanic struct{}

func (vm *VM) recoverOverflow(errOut *error) {
	if r := recover(); r != nil {
		if _, ok := r.(stackOverflowPanic); ok {
			*errOut = fmt.Errorf("SKILL ISSUE: stack overflow")
			return
		}
		panic(r)
	}
}

func wrapPlainError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("SKILL ISSUE: %s", err.Error())
}

func (vm *VM) readU8(fr *frame) byte {
	b := fr.proto().Chunk.Code[fr.ip]
	fr.ip++
	return b
}

func (vm *VM) readU16(fr *frame) int {
	code := fr.proto().Chunk.Code
	hi, lo := code[fr.ip], code[fr.ip+1]
	fr.ip += 2
	return int(hi)<<8 | int(lo)
}

func (vm *VM) constantValue(fr *frame, idx int) value.Value {
	return vm.wrapConstant(fr.proto().Chunk.Consts[idx])
}

func (vm *VM) wrapConstant(c interface{}) value.Value {
	switch c := c.(type) {
	case float64:
		return value.Number(c)
	case string:
		return value.FromObject(vm.heap.InternString(c))
	case bool:
		return value.Bool(c)
	case nil:
		return value.Nil
	default:
		return value.Nil
	}
}

func (vm *VM) constantString(fr *frame, idx int) string {
	if s, ok := fr.proto().Chunk.Consts[idx].(string); ok {
		return s
	}
	return ""
}

// stackIndexOf finds the live stack slot loc points into, by linear scan
// over vm.stack[:vm.sp]; its cost grows with the current stack depth.
func stackIndexOf(vm *VM, loc *value.Value) int {
	for i := 0; i < vm.sp; i++ {
		if &vm.stack[i] == loc {
			return i
		}
	}
	return -1
}

// captureUpvalue returns the existing open upvalue for stackIndex if one is
// already tracked (so two closures capturing the same local share state),
// or creates and links in a new one — the classic clox sorted-list capture
// algorithm, translated from raw pointer comparisons to stackIndexOf since
// Go pointers don't support ordering without unsafe.
func (vm *VM) captureUpvalue(stackIndex int) *value.ObjUpvalue {
	var prev *value.ObjUpvalue
	cur := vm.openUpvalues
	for cur != nil && stackIndexOf(vm, cur.Location) > stackIndex {
		prev = cur
		cur = cur.NextOpen
	}
	if cur != nil && cur.Location != nil && stackIndexOf(vm, cur.Location) == stackIndex {
		return cur
	}
	created := vm.heap.NewUpvalue(&vm.stack[stackIndex])
	created.NextOpen = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues copies the value out of every open upvalue at or above
// fromIndex, detaching it from the live stack before that frame's slots
// are reused — called on OP_RETURN and OP_CLOSE_UPVALUE alike.
func (vm *VM) closeUpvalues(fromIndex int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Location != nil && stackIndexOf(vm, vm.openUpvalues.Location) >= fromIndex {
		uv := vm.openUpvalues
		uv.Close()
		vm.openUpvalues = uv.NextOpen
	}
}
