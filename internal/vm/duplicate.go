package vm

import "github.com/embr-lang/embr/internal/value"

// cloneState deep-clones a value graph into a fresh Heap, deduplicating by
// original pointer so shared structure (two globals pointing at the same
// array, a class referenced by several instances) stays shared in the copy
// instead of being duplicated per reference, and so cycles (an instance
// whose field points back to itself) terminate instead of recursing
// forever.
type cloneState struct {
	heap      *value.Heap
	strings   map[*value.ObjString]*value.ObjString
	functions map[*value.ObjFunction]*value.ObjFunction
	closures  map[*value.ObjClosure]*value.ObjClosure
	classes   map[*value.ObjClass]*value.ObjClass
	instances map[*value.ObjInstance]*value.ObjInstance
	arrays    map[*value.ObjArray]*value.ObjArray
	dicts     map[*value.ObjDict]*value.ObjDict
	upvalues  map[*value.ObjUpvalue]*value.ObjUpvalue
}

func newCloneState(heap *value.Heap) *cloneState {
	return &cloneState{
		heap:      heap,
		strings:   make(map[*value.ObjString]*value.ObjString),
		functions: make(map[*value.ObjFunction]*value.ObjFunction),
		closures:  make(map[*value.ObjClosure]*value.ObjClosure),
		classes:   make(map[*value.ObjClass]*value.ObjClass),
		instances: make(map[*value.ObjInstance]*value.ObjInstance),
		arrays:    make(map[*value.ObjArray]*value.ObjArray),
		dicts:     make(map[*value.ObjDict]*value.ObjDict),
		upvalues:  make(map[*value.ObjUpvalue]*value.ObjUpvalue),
	}
}

// Duplicate returns an independent VM whose globals are a deep copy of
// this one's: mutating an array or instance reachable from the copy's
// globals never affects the original, and vice versa. Hosts use this to
// hand out one isolated VM per concurrent script invocation (CallAsync)
// without recompiling or re-running the defining script each time.
func (vm *VM) Duplicate() *VM {
	dup := New()
	dup.maxFrames = vm.maxFrames
	dup.instLimit = vm.instLimit
	dup.traceHook = vm.traceHook
	dup.importer = vm.importer
	dup.clock = vm.clock
	dup.commander = vm.commander
	dup.out = vm.out

	cs := newCloneState(dup.heap)
	dup.globals = make(map[string]value.Value, len(vm.globals))
	for name, v := range vm.globals {
		dup.globals[name] = cs.cloneValue(v)
	}
	return dup
}

func (cs *cloneState) cloneValue(v value.Value) value.Value {
	if !v.IsObject() {
		return v
	}
	switch o := v.AsObject().(type) {
	case *value.ObjString:
		return value.FromObject(cs.cloneString(o))
	case *value.ObjArray:
		return value.FromObject(cs.cloneArray(o))
	case *value.ObjDict:
		return value.FromObject(cs.cloneDict(o))
	case *value.ObjFunction:
		return value.FromObject(cs.cloneFunction(o))
	case *value.ObjClosure:
		return value.FromObject(cs.cloneClosure(o))
	case *value.ObjClass:
		return value.FromObject(cs.cloneClass(o))
	case *value.ObjInstance:
		return value.FromObject(cs.cloneInstance(o))
	case *value.ObjBoundMethod:
		return value.FromObject(cs.heap.NewBoundMethod(cs.cloneValue(o.Receiver), cs.cloneClosure(o.Method)))
	case *value.ObjNative:
		// Stateless Go closures over args only; safe to share across VMs.
		return v
	default:
		return v
	}
}

func (cs *cloneState) cloneString(o *value.ObjString) *value.ObjString {
	if c, ok := cs.strings[o]; ok {
		return c
	}
	c := cs.heap.InternString(o.Value)
	cs.strings[o] = c
	return c
}

func (cs *cloneState) cloneArray(o *value.ObjArray) *value.ObjArray {
	if c, ok := cs.arrays[o]; ok {
		return c
	}
	out := cs.heap.NewArray(make([]value.Value, len(o.Elements)))
	cs.arrays[o] = out
	for i, el := range o.Elements {
		out.Elements[i] = cs.cloneValue(el)
	}
	return out
}

func (cs *cloneState) cloneDict(o *value.ObjDict) *value.ObjDict {
	if c, ok := cs.dicts[o]; ok {
		return c
	}
	out := cs.heap.NewDict(make(map[string]value.Value, len(o.Entries)))
	cs.dicts[o] = out
	for k, v := range o.Entries {
		out.Entries[k] = cs.cloneValue(v)
	}
	return out
}

func (cs *cloneState) cloneFunction(o *value.ObjFunction) *value.ObjFunction {
	if c, ok := cs.functions[o]; ok {
		return c
	}
	// Proto is immutable compiled output; sharing it across heaps is safe.
	c := cs.heap.NewFunction(o.Proto)
	cs.functions[o] = c
	return c
}

func (cs *cloneState) cloneClosure(o *value.ObjClosure) *value.ObjClosure {
	if c, ok := cs.closures[o]; ok {
		return c
	}
	fn := cs.cloneFunction(o.Fn)
	out := cs.heap.NewClosure(fn)
	cs.closures[o] = out
	for i, uv := range o.Upvalues {
		out.Upvalues[i] = cs.cloneUpvalue(uv)
	}
	return out
}

// cloneUpvalue always produces a closed upvalue: a duplicated VM starts
// with an empty stack, so there is no live slot for the clone to stay open
// against — it captures whatever value the original held at clone time.
func (cs *cloneState) cloneUpvalue(o *value.ObjUpvalue) *value.ObjUpvalue {
	if o == nil {
		return nil
	}
	if c, ok := cs.upvalues[o]; ok {
		return c
	}
	closedVal := o.Get()
	c := cs.heap.NewUpvalue(nil)
	cs.upvalues[o] = c
	c.Closed = cs.cloneValue(closedVal)
	return c
}

func (cs *cloneState) cloneClass(o *value.ObjClass) *value.ObjClass {
	if c, ok := cs.classes[o]; ok {
		return c
	}
	c := cs.heap.NewClass(o.Name)
	cs.classes[o] = c
	for name, m := range o.Methods {
		c.Methods[name] = cs.cloneClosure(m)
	}
	return c
}

func (cs *cloneState) cloneInstance(o *value.ObjInstance) *value.ObjInstance {
	if c, ok := cs.instances[o]; ok {
		return c
	}
	c := cs.heap.NewInstance(cs.cloneClass(o.Class))
	cs.instances[o] = c
	for k, v := range o.Fields {
		c.Fields[k] = cs.cloneValue(v)
	}
	return c
}
