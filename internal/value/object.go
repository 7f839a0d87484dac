package value

import "github.com/embr-lang/embr/internal/bytecode"

// ObjType tags the concrete kind of a heap Object.
type ObjType byte

const (
	ObjTypeString ObjType = iota
	ObjTypeFunction
	ObjTypeClosure
	ObjTypeUpvalue
	ObjTypeClass
	ObjTypeInstance
	ObjTypeBoundMethod
	ObjTypeArray
	ObjTypeDict
	ObjTypeNative
)

// Object is implemented by every heap-allocated value. Every allocator
// (Heap.New*) links new objects into its Heap's intrusive list via
// setNext/getNext, mirroring the clox `Obj.next` bookkeeping.
// Nothing ever walks the list to free memory — Go's own GC does that — the
// list exists purely so Heap.Count() can report on live allocations
// the way a mark-sweep collector's object list would.
type Object interface {
	ObjType() ObjType
	getNext() Object
	setNext(Object)
}

type objHeader struct{ next Object }

func (h *objHeader) getNext() Object   { return h.next }
func (h *objHeader) setNext(o Object)  { h.next = o }

// ObjString is an interned string. Two ObjStrings with equal content are
// always the same pointer once allocated through Heap.InternString.
type ObjString struct {
	objHeader
	Value string
	Hash  uint32
}

func (*ObjString) ObjType() ObjType { return ObjTypeString }

// ObjFunction pairs a compiled prototype with its heap identity. It carries
// no upvalue *values* itself — those belong to the ObjClosure created for
// it — only the static shape (arity, chunk, declared return kind).
type ObjFunction struct {
	objHeader
	Proto *bytecode.FunctionProto
}

func (*ObjFunction) ObjType() ObjType { return ObjTypeFunction }

// ObjUpvalue is open while Location points at a live stack slot and closed
// once the owning frame pops, at which point Closed holds the value and
// Location is nilled — identical in shape to clox's ObjUpvalue.
type ObjUpvalue struct {
	objHeader
	Location *Value
	Closed   Value
	NextOpen *ObjUpvalue // singly linked list of currently-open upvalues, sorted by stack depth
}

func (*ObjUpvalue) ObjType() ObjType { return ObjTypeUpvalue }

func (u *ObjUpvalue) Get() Value {
	if u.Location != nil {
		return *u.Location
	}
	return u.Closed
}

func (u *ObjUpvalue) Set(v Value) {
	if u.Location != nil {
		*u.Location = v
		return
	}
	u.Closed = v
}

func (u *ObjUpvalue) Close() {
	if u.Location != nil {
		u.Closed = *u.Location
		u.Location = nil
	}
}

// ObjClosure is a function together with the upvalues it captured at
// creation time; this, not ObjFunction, is what gets called.
type ObjClosure struct {
	objHeader
	Fn       *ObjFunction
	Upvalues []*ObjUpvalue
}

func (*ObjClosure) ObjType() ObjType { return ObjTypeClosure }

// ObjClass holds a flat method table. OP_INHERIT copies the superclass's
// table into the subclass's at class-declaration time (compile-time
// linearization, not a runtime superclass pointer chase), matching the
// original interpreter.
type ObjClass struct {
	objHeader
	Name    string
	Methods map[string]*ObjClosure
}

func (*ObjClass) ObjType() ObjType { return ObjTypeClass }

// ObjInstance is a class instance with its own field table, distinct from
// the class's shared method table.
type ObjInstance struct {
	objHeader
	Class  *ObjClass
	Fields map[string]Value
}

func (*ObjInstance) ObjType() ObjType { return ObjTypeInstance }

// ObjBoundMethod pairs a receiver with a method closure so that
// `obj.method` used as a value (not immediately invoked) still knows what
// `this` should be when eventually called.
type ObjBoundMethod struct {
	objHeader
	Receiver Value
	Method   *ObjClosure
}

func (*ObjBoundMethod) ObjType() ObjType { return ObjTypeBoundMethod }

// ObjArray is a growable, 0-indexed, heterogeneous array.
type ObjArray struct {
	objHeader
	Elements []Value
}

func (*ObjArray) ObjType() ObjType { return ObjTypeArray }

// ObjDict maps interned-string-content keys to values. Go string keys are
// used directly rather than pointer-interned *ObjString keys, since map
// lookup by content is what every dict operation needs anyway.
type ObjDict struct {
	objHeader
	Entries map[string]Value
}

func (*ObjDict) ObjType() ObjType { return ObjTypeDict }

// NativeFn is a host-provided function body, given already-evaluated
// arguments and returning a runtime error to raise inside the script.
type NativeFn func(args []Value) (Value, error)

// ObjNative is a builtin such as clock/length/append registered under a
// global name and invoked through the ordinary OP_CALL path, exactly like
// a closure — Embr has no dedicated builtin-call opcode.
type ObjNative struct {
	objHeader
	Name  string
	Arity int // -1 means variadic
	Fn    NativeFn
}

func (*ObjNative) ObjType() ObjType { return ObjTypeNative }
