package value

import (
	"hash/fnv"

	"github.com/embr-lang/embr/internal/bytecode"
)

// Heap owns every allocation made by a VM: the intrusive object list and
// the interned-string table. A VM.Duplicate() gets its own Heap so cloned
// VMs never share mutable heap objects (see internal/vm/duplicate.go).
type Heap struct {
	head    Object
	count   int
	strings map[string]*ObjString
}

// NewHeap constructs an empty heap.
func NewHeap() *Heap {
	return &Heap{strings: make(map[string]*ObjString)}
}

// Count returns the number of live allocations tracked by the intrusive
// list — a diagnostic, not something anything frees from.
func (h *Heap) Count() int { return h.count }

func (h *Heap) track(o Object) {
	o.setNext(h.head)
	h.head = o
	h.count++
}

// InternString returns the canonical ObjString for s, allocating it on
// first sight. Every subsequent request for the same content returns the
// identical pointer, so string equality can be a pointer comparison.
func (h *Heap) InternString(s string) *ObjString {
	if existing, ok := h.strings[s]; ok {
		return existing
	}
	obj := &ObjString{Value: s, Hash: fnv1a(s)}
	h.track(obj)
	h.strings[s] = obj
	return obj
}

func fnv1a(s string) uint32 {
	f := fnv.New32a()
	_, _ = f.Write([]byte(s))
	return f.Sum32()
}

func (h *Heap) NewFunction(proto *bytecode.FunctionProto) *ObjFunction {
	fn := &ObjFunction{Proto: proto}
	h.track(fn)
	return fn
}

func (h *Heap) NewClosure(fn *ObjFunction) *ObjClosure {
	upN := 0
	if fn.Proto != nil {
		upN = fn.Proto.UpvalueN
	}
	cl := &ObjClosure{Fn: fn, Upvalues: make([]*ObjUpvalue, upN)}
	h.track(cl)
	return cl
}

func (h *Heap) NewUpvalue(slot *Value) *ObjUpvalue {
	uv := &ObjUpvalue{Location: slot}
	h.track(uv)
	return uv
}

func (h *Heap) NewClass(name string) *ObjClass {
	c := &ObjClass{Name: name, Methods: make(map[string]*ObjClosure)}
	h.track(c)
	return c
}

func (h *Heap) NewInstance(class *ObjClass) *ObjInstance {
	inst := &ObjInstance{Class: class, Fields: make(map[string]Value)}
	h.track(inst)
	return inst
}

func (h *Heap) NewBoundMethod(receiver Value, method *ObjClosure) *ObjBoundMethod {
	bm := &ObjBoundMethod{Receiver: receiver, Method: method}
	h.track(bm)
	return bm
}

func (h *Heap) NewArray(elements []Value) *ObjArray {
	a := &ObjArray{Elements: elements}
	h.track(a)
	return a
}

func (h *Heap) NewDict(entries map[string]Value) *ObjDict {
	if entries == nil {
		entries = make(map[string]Value)
	}
	d := &ObjDict{Entries: entries}
	h.track(d)
	return d
}

func (h *Heap) NewNative(name string, arity int, fn NativeFn) *ObjNative {
	n := &ObjNative{Name: name, Arity: arity, Fn: fn}
	h.track(n)
	return n
}
