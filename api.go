// Package embr is the public host-embedding surface for the Embr
// scripting language: compile a script, register host functions, call
// script functions from Go, and marshal values across the boundary.
package embr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/embr-lang/embr/internal/compiler"
	"github.com/embr-lang/embr/internal/natives"
	"github.com/embr-lang/embr/internal/value"
	"github.com/embr-lang/embr/internal/vm"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Value is a marshaled value that is compatible with embr's runtime
// representation. It wraps the internal value.Value without exposing the
// internal package directly.
type Value struct {
	v     value.Value
	owner *vm.VM
}

// ArgError reports a typed argument validation failure, either from
// HostArgs accessors or from reflection-based marshaling.
type ArgError struct {
	Name string
	Want string
	Got  string
}

func (e ArgError) Error() string {
	switch {
	case e.Name != "" && e.Want != "" && e.Got != "":
		return fmt.Sprintf("argument %q: want %s, got %s", e.Name, e.Want, e.Got)
	case e.Name != "" && e.Want != "":
		return fmt.Sprintf("argument %q: want %s", e.Name, e.Want)
	default:
		return "argument error"
	}
}

// Marshaler allows a Go type to control its own conversion into a Value.
type Marshaler interface {
	MarshalEmbr() (Value, error)
}

// Unmarshaler allows a Go type to control its own conversion from a Value.
type Unmarshaler interface {
	UnmarshalEmbr(Value) error
}

// ValueKind mirrors Embr's runtime value kinds for host-side inspection.
type ValueKind int

const (
	ValueNil ValueKind = iota
	ValueBool
	ValueNumber
	ValueString
	ValueArray
	ValueDict
	ValueFunction
	ValueInstance
	ValueClass
)

func kindName(k ValueKind) string {
	switch k {
	case ValueNil:
		return "nil"
	case ValueBool:
		return "bool"
	case ValueNumber:
		return "number"
	case ValueString:
		return "str"
	case ValueArray:
		return "array"
	case ValueDict:
		return "dict"
	case ValueFunction:
		return "function"
	case ValueInstance:
		return "instance"
	case ValueClass:
		return "class"
	default:
		return "unknown"
	}
}

func kindOf(v value.Value) ValueKind {
	switch {
	case v.IsNil():
		return ValueNil
	case v.IsBool():
		return ValueBool
	case v.IsNumber():
		return ValueNumber
	case v.IsString():
		return ValueString
	case v.IsArray():
		return ValueArray
	case v.IsDict():
		return ValueDict
	case v.IsInstance():
		return ValueInstance
	case v.IsClass():
		return ValueClass
	default:
		return ValueFunction
	}
}

// FrameTrace describes a single call-stack frame in a runtime error.
type FrameTrace struct {
	Function string
	Source   string
	Line     int
}

// RuntimeError is a source-aware execution failure surfaced from the VM,
// carrying the frame it happened in and the full call stack beneath it.
type RuntimeError struct {
	Message string
	Frame   FrameTrace
	Stack   []FrameTrace
	Cause   error
}

func (e *RuntimeError) Error() string {
	var parts []string
	if e.Frame.Source != "" {
		if e.Frame.Line > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", e.Frame.Source, e.Frame.Line))
		} else {
			parts = append(parts, e.Frame.Source)
		}
	} else if e.Frame.Line > 0 {
		parts = append(parts, fmt.Sprintf("line %d", e.Frame.Line))
	}
	if e.Frame.Function != "" {
		parts = append(parts, fmt.Sprintf("in %s", e.Frame.Function))
	}
	if loc := strings.Join(parts, " "); loc != "" {
		return fmt.Sprintf("%s: %s", loc, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *RuntimeError) Unwrap() error { return e.Cause }

// CompileError reports a script that failed to compile.
type CompileError struct {
	Source string
	Errors []error
}

func (e *CompileError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Source, strings.Join(msgs, "; "))
}

// TraceInfo describes the instruction about to execute, handed to a
// TraceHook once per dispatch.
type TraceInfo struct {
	Op       byte
	Function string
	Source   string
	Line     int
}

// TraceHook observes instruction dispatch for debugging or profiling.
type TraceHook func(TraceInfo)

func convertRuntimeError(err error) error {
	if err == nil {
		return nil
	}
	var rte *vm.RuntimeError
	if errors.As(err, &rte) {
		return &RuntimeError{
			Message: rte.Message,
			Frame:   frameTraceFromVM(rte.Frame),
			Stack:   stackTraceFromVM(rte.Stack),
			Cause:   rte.Cause,
		}
	}
	return err
}

func frameTraceFromVM(info vm.FrameInfo) FrameTrace {
	return FrameTrace{Function: info.Function, Source: info.Source, Line: info.Line}
}

func stackTraceFromVM(stack []vm.FrameInfo) []FrameTrace {
	if len(stack) == 0 {
		return nil
	}
	out := make([]FrameTrace, len(stack))
	for i, fr := range stack {
		out[i] = frameTraceFromVM(fr)
	}
	return out
}

// HostArgs provides typed accessors over a native function's argument
// list, in call order.
type HostArgs struct {
	args []Value
}

func newHostArgs(args []Value) HostArgs { return HostArgs{args: args} }

// Len reports how many arguments were passed.
func (a HostArgs) Len() int { return len(a.args) }

// At returns the raw argument at position i.
func (a HostArgs) At(i int) (Value, error) {
	if i < 0 || i >= len(a.args) {
		return Value{}, ArgError{Name: fmt.Sprintf("arg%d", i), Want: "present"}
	}
	return a.args[i], nil
}

// Number returns the numeric argument at position i.
func (a HostArgs) Number(i int) (float64, error) {
	v, err := a.At(i)
	if err != nil {
		return 0, err
	}
	if n, ok := v.Number(); ok {
		return n, nil
	}
	return 0, ArgError{Name: fmt.Sprintf("arg%d", i), Want: "number", Got: kindName(v.Kind())}
}

// String returns the string argument at position i.
func (a HostArgs) String(i int) (string, error) {
	v, err := a.At(i)
	if err != nil {
		return "", err
	}
	if s, ok := v.String(); ok {
		return s, nil
	}
	return "", ArgError{Name: fmt.Sprintf("arg%d", i), Want: "str", Got: kindName(v.Kind())}
}

// Bool returns the boolean argument at position i.
func (a HostArgs) Bool(i int) (bool, error) {
	v, err := a.At(i)
	if err != nil {
		return false, err
	}
	if b, ok := v.Bool(); ok {
		return b, nil
	}
	return false, ArgError{Name: fmt.Sprintf("arg%d", i), Want: "bool", Got: kindName(v.Kind())}
}

// Array returns the array argument at position i.
func (a HostArgs) Array(i int) ([]Value, error) {
	v, err := a.At(i)
	if err != nil {
		return nil, err
	}
	if arr, ok := v.Array(); ok {
		return arr, nil
	}
	return nil, ArgError{Name: fmt.Sprintf("arg%d", i), Want: "array", Got: kindName(v.Kind())}
}

// NewValue marshals a Go value into an Embr-compatible Value.
func NewValue(val any) (Value, error) {
	v, err := marshalGoValue(val)
	if err != nil {
		return Value{}, err
	}
	return Value{v: v}, nil
}

// MustValue marshals and panics on error; a convenience for tests and
// bootstrap code building constant Values.
func MustValue(val any) Value {
	v, err := NewValue(val)
	if err != nil {
		panic(err)
	}
	return v
}

// IsNil reports whether the value is nil.
func (v Value) IsNil() bool { return v.v.IsNil() }

// Kind reports the underlying value kind.
func (v Value) Kind() ValueKind { return kindOf(v.v) }

// Bool returns the boolean value when the kind matches.
func (v Value) Bool() (bool, bool) {
	if !v.v.IsBool() {
		return false, false
	}
	return v.v.AsBool(), true
}

// Number returns the numeric value when the kind matches.
func (v Value) Number() (float64, bool) {
	if !v.v.IsNumber() {
		return 0, false
	}
	return v.v.AsNumber(), true
}

// String returns the string value when the kind matches.
func (v Value) String() (string, bool) {
	if !v.v.IsString() {
		return "", false
	}
	return v.v.Str(), true
}

// Array unwraps an array into Values when the kind matches.
func (v Value) Array() ([]Value, bool) {
	if !v.v.IsArray() {
		return nil, false
	}
	elems := v.v.AsArray().Elements
	out := make([]Value, len(elems))
	for i, el := range elems {
		out[i] = Value{v: el, owner: v.owner}
	}
	return out, true
}

// Dict unwraps a dict into Values keyed by string when the kind matches.
func (v Value) Dict() (map[string]Value, bool) {
	if !v.v.IsDict() {
		return nil, false
	}
	entries := v.v.AsDict().Entries
	out := make(map[string]Value, len(entries))
	for k, el := range entries {
		out[k] = Value{v: el, owner: v.owner}
	}
	return out, true
}

// Raw returns a plain Go representation of the value (bool/float64/string
// /[]any/map[string]any). Function values are not convertible.
func (v Value) Raw() (any, error) { return unmarshalToGo(v.v) }

// MustRaw returns Raw() or panics on error.
func (v Value) MustRaw() any {
	raw, err := v.Raw()
	if err != nil {
		panic(err)
	}
	return raw
}

// Context is the execution context handed to host functions. It carries
// no state today, but gives room to attach cancellation or per-call
// metadata later without breaking signatures.
type Context struct{}

// FunctionHandler is the Go-side implementation of an Embr-callable
// native function.
type FunctionHandler func(ctx *Context, args HostArgs) (Value, error)

// HostFunction describes a host-provided function: its name, arity (-1
// for variadic, matching value.ObjNative's convention) and handler.
type HostFunction struct {
	Name    string
	Arity   int
	Handler FunctionHandler
}

// NewHostFunction builds a HostFunction from a name, arity and handler.
func NewHostFunction(name string, arity int, handler FunctionHandler) *HostFunction {
	return &HostFunction{Name: name, Arity: arity, Handler: handler}
}

func (hf *HostFunction) toNativeFn(heap *value.Heap) value.NativeFn {
	return func(args []value.Value) (value.Value, error) {
		wrapped := make([]Value, len(args))
		for i, a := range args {
			wrapped[i] = Value{v: a}
		}
		out, err := hf.Handler(&Context{}, newHostArgs(wrapped))
		if err != nil {
			return value.Nil, err
		}
		return rehome(out.v, heap), nil
	}
}

// rehome re-interns every string reachable from v (recursing through
// arrays and dicts) into heap, and rebuilds arrays/dicts as allocations
// on heap. Values marshaled by NewValue/HostFunctionsFromMap are built
// against a package-level scratch heap with its own string intern table;
// binding one into a VM without rehoming it would leave its strings
// unequal (by the pointer-identity rule value.Equal uses for interned
// strings) to otherwise-identical literals the VM compiles itself.
func rehome(v value.Value, heap *value.Heap) value.Value {
	switch {
	case v.IsString():
		return value.FromObject(heap.InternString(v.Str()))
	case v.IsArray():
		src := v.AsArray().Elements
		out := make([]value.Value, len(src))
		for i, el := range src {
			out[i] = rehome(el, heap)
		}
		return value.FromObject(heap.NewArray(out))
	case v.IsDict():
		src := v.AsDict().Entries
		out := make(map[string]value.Value, len(src))
		for k, el := range src {
			out[k] = rehome(el, heap)
		}
		return value.FromObject(heap.NewDict(out))
	default:
		return v
	}
}

func hostFunctionFromFunc(name string, fn any) (*HostFunction, error) {
	if fn == nil {
		return nil, errors.New("nil function")
	}
	rv := reflect.ValueOf(fn)
	rt := rv.Type()
	if rt.Kind() != reflect.Func {
		return nil, fmt.Errorf("value of %s is not a function", name)
	}
	if rt.NumOut() > 2 {
		return nil, fmt.Errorf("function %s has too many return values (max 2)", name)
	}
	retValIndex, retErrIndex := -1, -1
	switch rt.NumOut() {
	case 1:
		if rt.Out(0) == errorType {
			retErrIndex = 0
		} else {
			retValIndex = 0
		}
	case 2:
		if rt.Out(1) != errorType {
			return nil, fmt.Errorf("function %s second return value must be error", name)
		}
		retValIndex, retErrIndex = 0, 1
	}

	handler := func(_ *Context, args HostArgs) (Value, error) {
		if args.Len() != rt.NumIn() {
			return Value{}, fmt.Errorf("%s: expected %d args, got %d", name, rt.NumIn(), args.Len())
		}
		inputs := make([]reflect.Value, rt.NumIn())
		for i := 0; i < rt.NumIn(); i++ {
			arg, _ := args.At(i)
			val, err := convertToReflect(arg.v, rt.In(i))
			if err != nil {
				return Value{}, fmt.Errorf("argument %d: %w", i, err)
			}
			inputs[i] = val
		}
		results := rv.Call(inputs)
		if retErrIndex >= 0 && !results[retErrIndex].IsNil() {
			return Value{}, results[retErrIndex].Interface().(error)
		}
		if retValIndex >= 0 {
			mv, err := marshalGoValue(results[retValIndex].Interface())
			if err != nil {
				return Value{}, err
			}
			return Value{v: mv}, nil
		}
		return Value{v: value.Nil}, nil
	}

	return &HostFunction{Name: name, Arity: rt.NumIn(), Handler: handler}, nil
}

// HostFunctionsFromMap converts a map of ordinary Go functions into
// HostFunctions, inferring arity and error handling from each signature.
// Supported shapes: func(...) T, func(...) (T, error), func(...) error,
// func(...).
func HostFunctionsFromMap(funcs map[string]any) (map[string]*HostFunction, error) {
	out := make(map[string]*HostFunction, len(funcs))
	for name, fn := range funcs {
		hf, err := hostFunctionFromFunc(name, fn)
		if err != nil {
			return nil, fmt.Errorf("host function %s: %w", name, err)
		}
		out[name] = hf
	}
	return out, nil
}

// VM configures and executes Embr scripts: it holds the compiled global
// environment plus host bindings, and serializes access the way a script
// engine embedded behind a request handler needs to.
type VM struct {
	core *vm.VM
	mu   sync.Mutex
	busy bool
}

// NewVM constructs a VM with the standard native environment registered
// (clock/time/term/length/append/prepend/head/tail/rest/remove/uuid).
func NewVM() *VM {
	core := vm.New()
	natives.RegisterAll(core)
	return &VM{core: core}
}

// Duplicate clones the VM's global state into a new, independent VM —
// mutating an array or instance reachable from one never affects the
// other. Fails while a call is in flight on the receiver.
func (vmc *VM) Duplicate() (*VM, error) {
	vmc.mu.Lock()
	if vmc.busy {
		vmc.mu.Unlock()
		return nil, errors.New("VM is busy; cannot duplicate while running")
	}
	vmc.busy = true
	vmc.mu.Unlock()
	defer func() {
		vmc.mu.Lock()
		vmc.busy = false
		vmc.mu.Unlock()
	}()
	return &VM{core: vmc.core.Duplicate()}, nil
}

// SetHostFunction binds a HostFunction as a global callable, exactly as
// if a native had been registered at VM construction.
func (vmc *VM) SetHostFunction(hf *HostFunction) error {
	if hf == nil || hf.Handler == nil {
		return errors.New("nil host function")
	}
	vmc.core.DefineNative(hf.Name, hf.Arity, hf.toNativeFn(vmc.core.Heap()))
	return nil
}

// SetGlobal binds an arbitrary marshaled Value under a global name,
// rehoming any strings/arrays/dicts it carries onto this VM's own heap.
func (vmc *VM) SetGlobal(name string, val Value) {
	vmc.core.DefineGlobal(name, rehome(val.v, vmc.core.Heap()))
}

// HasFunction reports whether name is bound to a callable global — a
// script fn/class or a host-registered native.
func (vmc *VM) HasFunction(name string) bool {
	v, ok := vmc.core.Globals()[name]
	if !ok {
		return false
	}
	switch kindOf(v) {
	case ValueFunction, ValueClass:
		return true
	default:
		return false
	}
}

// SetInstructionLimit caps the number of instructions a single Call may
// execute (0 disables the limit), guarding against runaway scripts.
func (vmc *VM) SetInstructionLimit(limit int) {
	if limit < 0 {
		limit = 0
	}
	vmc.core.SetInstructionLimit(limit)
}

// SetTraceHook attaches a debug hook invoked once per instruction.
func (vmc *VM) SetTraceHook(h TraceHook) {
	if h == nil {
		vmc.core.SetTraceHook(nil)
		return
	}
	vmc.core.SetTraceHook(func(info vm.TraceInfo) {
		h(TraceInfo{Op: info.Op, Function: info.Function, Source: info.Source, Line: info.Line})
	})
}

// LoadFile compiles and runs a script from a filesystem path, populating
// the VM's globals with its top-level fn/var/class declarations.
func (vmc *VM) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return vmc.LoadSource(path, string(data))
}

// LoadSource compiles and runs script source, populating globals. name is
// used for diagnostics and in RuntimeError/CompileError source fields.
func (vmc *VM) LoadSource(name string, src string) error {
	vmc.mu.Lock()
	if vmc.busy {
		vmc.mu.Unlock()
		return errors.New("VM is busy")
	}
	vmc.busy = true
	vmc.mu.Unlock()
	defer func() {
		vmc.mu.Lock()
		vmc.busy = false
		vmc.mu.Unlock()
	}()

	proto, errs := compiler.Compile(src, name)
	if len(errs) > 0 {
		return &CompileError{Source: name, Errors: errs}
	}
	_, err := vmc.core.Run(proto, nil)
	return convertRuntimeError(err)
}

// Call resolves a global function by name and invokes it synchronously.
func (vmc *VM) Call(name string, args ...Value) (Value, error) {
	vmc.mu.Lock()
	if vmc.busy {
		vmc.mu.Unlock()
		return Value{}, errors.New("VM is busy")
	}
	vmc.busy = true
	vmc.mu.Unlock()
	defer func() {
		vmc.mu.Lock()
		vmc.busy = false
		vmc.mu.Unlock()
	}()

	argVals := make([]value.Value, len(args))
	for i, a := range args {
		argVals[i] = rehome(a.v, vmc.core.Heap())
	}
	res, err := vmc.core.Call(name, argVals)
	if err = convertRuntimeError(err); err != nil {
		return Value{}, err
	}
	return Value{v: res, owner: vmc.core}, nil
}

// CallResult is the outcome of an asynchronous Call.
type CallResult struct {
	Value Value
	Err   error
}

// CallFuture represents an in-flight asynchronous call.
type CallFuture struct{ ch <-chan CallResult }

// Await blocks for completion or context cancellation.
func (f CallFuture) Await(ctx context.Context) (Value, error) {
	select {
	case <-ctx.Done():
		return Value{}, ctx.Err()
	case res := <-f.ch:
		return res.Value, res.Err
	}
}

// CallAsync runs Call in a goroutine — intended for use against a
// Duplicate()'d VM so a long-running script call never blocks a caller
// sharing the original VM.
func (vmc *VM) CallAsync(ctx context.Context, name string, args ...Value) CallFuture {
	ch := make(chan CallResult, 1)
	go func() {
		defer close(ch)
		select {
		case <-ctx.Done():
			ch <- CallResult{Err: ctx.Err()}
			return
		default:
		}
		v, err := vmc.Call(name, args...)
		ch <- CallResult{Value: v, Err: err}
	}()
	return CallFuture{ch: ch}
}

// Unmarshal assigns an Embr Value into a Go target using reflection.
// Supports primitives, slices, maps (string keys), structs, and
// Unmarshaler.
func Unmarshal(val Value, target any) error {
	if target == nil {
		return errors.New("nil target")
	}
	if u, ok := target.(Unmarshaler); ok {
		return u.UnmarshalEmbr(val)
	}
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("target must be a non-nil pointer")
	}
	return assignValue(val.v, rv.Elem())
}

func marshalGoValue(val any) (value.Value, error) {
	if m, ok := val.(Marshaler); ok {
		custom, err := m.MarshalEmbr()
		if err != nil {
			return value.Value{}, err
		}
		return custom.v, nil
	}
	switch v := val.(type) {
	case Value:
		return v.v, nil
	case nil:
		return value.Nil, nil
	case bool:
		return value.Bool(v), nil
	case string:
		return value.FromObject(sharedHeap.InternString(v)), nil
	case error:
		return value.FromObject(sharedHeap.InternString(v.Error())), nil
	case int:
		return value.Number(float64(v)), nil
	case int8:
		return value.Number(float64(v)), nil
	case int16:
		return value.Number(float64(v)), nil
	case int32:
		return value.Number(float64(v)), nil
	case int64:
		return value.Number(float64(v)), nil
	case uint:
		return value.Number(float64(v)), nil
	case uint8:
		return value.Number(float64(v)), nil
	case uint16:
		return value.Number(float64(v)), nil
	case uint32:
		return value.Number(float64(v)), nil
	case uint64:
		return value.Number(float64(v)), nil
	case float32:
		return value.Number(float64(v)), nil
	case float64:
		return value.Number(v), nil
	default:
		return marshalReflect(reflect.ValueOf(val))
	}
}

func marshalReflect(rv reflect.Value) (value.Value, error) {
	if !rv.IsValid() {
		return value.Nil, nil
	}
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return value.Nil, nil
		}
		return marshalGoValue(rv.Elem().Interface())
	case reflect.Interface:
		if rv.IsNil() {
			return value.Nil, nil
		}
		return marshalGoValue(rv.Elem().Interface())
	case reflect.Bool:
		return value.Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Number(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return value.Number(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return value.Number(rv.Float()), nil
	case reflect.String:
		return value.FromObject(sharedHeap.InternString(rv.String())), nil
	case reflect.Slice, reflect.Array:
		elems := make([]value.Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			mv, err := marshalGoValue(rv.Index(i).Interface())
			if err != nil {
				return value.Value{}, err
			}
			elems[i] = mv
		}
		return value.FromObject(sharedHeap.NewArray(elems)), nil
	case reflect.Map:
		entries := make(map[string]value.Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key().Interface()
			keyStr, ok := key.(string)
			if !ok {
				if s, ok := key.(fmt.Stringer); ok {
					keyStr = s.String()
				} else {
					keyStr = fmt.Sprint(key)
				}
			}
			mv, err := marshalGoValue(iter.Value().Interface())
			if err != nil {
				return value.Value{}, err
			}
			entries[keyStr] = mv
		}
		return value.FromObject(sharedHeap.NewDict(entries)), nil
	case reflect.Struct:
		entries := make(map[string]value.Value, rv.NumField())
		rt := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			field := rt.Field(i)
			if field.PkgPath != "" {
				continue
			}
			mv, err := marshalGoValue(rv.Field(i).Interface())
			if err != nil {
				return value.Value{}, err
			}
			entries[field.Name] = mv
		}
		return value.FromObject(sharedHeap.NewDict(entries)), nil
	default:
		return value.Value{}, fmt.Errorf("unsupported value type %s", rv.Type())
	}
}

// sharedHeap backs standalone marshaling (NewValue, HostFunctionsFromMap
// return conversion) that happens outside of any single VM's own heap;
// values built here are plain data crossing into whichever VM they are
// bound to via SetGlobal/SetHostFunction, never referencing VM-internal
// state themselves.
var sharedHeap = value.NewHeap()

func unmarshalToGo(v value.Value) (any, error) {
	switch {
	case v.IsNil():
		return nil, nil
	case v.IsBool():
		return v.AsBool(), nil
	case v.IsNumber():
		return v.AsNumber(), nil
	case v.IsString():
		return v.Str(), nil
	case v.IsArray():
		elems := v.AsArray().Elements
		out := make([]any, len(elems))
		for i, el := range elems {
			raw, err := unmarshalToGo(el)
			if err != nil {
				return nil, err
			}
			out[i] = raw
		}
		return out, nil
	case v.IsDict():
		entries := v.AsDict().Entries
		out := make(map[string]any, len(entries))
		for k, el := range entries {
			raw, err := unmarshalToGo(el)
			if err != nil {
				return nil, err
			}
			out[k] = raw
		}
		return out, nil
	default:
		return nil, fmt.Errorf("Raw() not supported on %s values", value.TypeName(v))
	}
}

func convertToReflect(src value.Value, targetType reflect.Type) (reflect.Value, error) {
	ptr := reflect.New(targetType)
	if err := assignValue(src, ptr.Elem()); err != nil {
		return reflect.Value{}, err
	}
	return ptr.Elem(), nil
}

func assignValue(src value.Value, dst reflect.Value) error {
	if !dst.CanSet() {
		return errors.New("cannot set target")
	}
	switch dst.Kind() {
	case reflect.Interface:
		raw, err := unmarshalToGo(src)
		if err != nil {
			return err
		}
		if raw == nil {
			return nil
		}
		dst.Set(reflect.ValueOf(raw))
		return nil
	case reflect.Bool:
		if !src.IsBool() {
			return ArgError{Want: "bool", Got: kindName(kindOf(src))}
		}
		dst.SetBool(src.AsBool())
		return nil
	case reflect.String:
		if !src.IsString() {
			return ArgError{Want: "str", Got: kindName(kindOf(src))}
		}
		dst.SetString(src.Str())
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !src.IsNumber() {
			return ArgError{Want: "number", Got: kindName(kindOf(src))}
		}
		dst.SetInt(int64(src.AsNumber()))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if !src.IsNumber() {
			return ArgError{Want: "number", Got: kindName(kindOf(src))}
		}
		dst.SetUint(uint64(src.AsNumber()))
		return nil
	case reflect.Float32, reflect.Float64:
		if !src.IsNumber() {
			return ArgError{Want: "number", Got: kindName(kindOf(src))}
		}
		dst.SetFloat(src.AsNumber())
		return nil
	case reflect.Slice:
		if !src.IsArray() {
			return ArgError{Want: "array", Got: kindName(kindOf(src))}
		}
		elems := src.AsArray().Elements
		dst.Set(reflect.MakeSlice(dst.Type(), len(elems), len(elems)))
		for i, el := range elems {
			if err := assignValue(el, dst.Index(i)); err != nil {
				return err
			}
		}
		return nil
	case reflect.Array:
		if !src.IsArray() {
			return ArgError{Want: "array", Got: kindName(kindOf(src))}
		}
		elems := src.AsArray().Elements
		if len(elems) != dst.Len() {
			return fmt.Errorf("array length mismatch: have %d want %d", len(elems), dst.Len())
		}
		for i, el := range elems {
			if err := assignValue(el, dst.Index(i)); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		if !src.IsDict() {
			return ArgError{Want: "dict", Got: kindName(kindOf(src))}
		}
		if dst.Type().Key().Kind() != reflect.String {
			return errors.New("map keys must be string")
		}
		entries := src.AsDict().Entries
		dst.Set(reflect.MakeMapWithSize(dst.Type(), len(entries)))
		for k, v := range entries {
			elem := reflect.New(dst.Type().Elem()).Elem()
			if err := assignValue(v, elem); err != nil {
				return err
			}
			dst.SetMapIndex(reflect.ValueOf(k), elem)
		}
		return nil
	case reflect.Struct:
		if !src.IsDict() {
			return ArgError{Want: "dict", Got: kindName(kindOf(src))}
		}
		entries := src.AsDict().Entries
		rt := dst.Type()
		for i := 0; i < rt.NumField(); i++ {
			field := rt.Field(i)
			if field.PkgPath != "" {
				continue
			}
			if v, ok := entries[field.Name]; ok {
				if err := assignValue(v, dst.Field(i)); err != nil {
					return err
				}
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported unmarshal target kind %s", dst.Kind())
	}
}
