package vm

import (
	"fmt"
	"strings"

	"github.com/embr-lang/embr/internal/value"
)

// TraceInfo describes the instruction about to execute, handed to a
// TraceHook before each dispatch — the hook behind `embr run --trace`
// and any host-side debugger.
type TraceInfo struct {
	Op       byte
	Function string
	Source   string
	Line     int
}

// TraceHook is called once per executed instruction when installed via
// SetTraceHook. Hooks that need the mnemonic can look it up with
// bytecode.Name(info.Op).
type TraceHook func(TraceInfo)

// FrameInfo is one entry of a RuntimeError's stack trace: which function,
// in which source, at which line.
type FrameInfo struct {
	Function string
	Source   string
	Line     int
}

func (f FrameInfo) String() string {
	loc := f.Source
	if f.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, f.Line)
	}
	if loc == "" {
		return f.Function
	}
	return fmt.Sprintf("%s in %s", loc, f.Function)
}

// RuntimeError is what every failure inside run() ultimately becomes: a
// message plus the frame it happened in and the full call stack beneath
// it, so a host can render a proper backtrace instead of a bare string.
type RuntimeError struct {
	Message string
	Frame   FrameInfo
	Stack   []FrameInfo
	Cause   error
}

func (e *RuntimeError) Error() string {
	loc := e.Frame.Source
	if e.Frame.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Frame.Line)
	}
	if loc == "" {
		return e.Message
	}
	return fmt.Sprintf("%s in %s: %s", loc, e.Frame.Function, e.Message)
}

// Unwrap exposes the wrapped Go error (a native's returned error, an
// import compile failure, ...) so errors.Is/errors.As reach through a
// RuntimeError to the underlying cause.
func (e *RuntimeError) Unwrap() error { return e.Cause }

// Backtrace renders the full call stack, most-recent frame first, in the
// style a REPL or CLI error report would print it.
func (e *RuntimeError) Backtrace() string {
	var sb strings.Builder
	sb.WriteString(e.Error())
	for _, fr := range e.Stack {
		sb.WriteString("\n  at ")
		sb.WriteString(fr.String())
	}
	return sb.String()
}

func (vm *VM) frameInfo(fr *frame) FrameInfo {
	if fr == nil || fr.closure == nil || fr.closure.Fn == nil {
		return FrameInfo{}
	}
	proto := fr.closure.Fn.Proto
	line := 0
	ip := fr.ip - 1
	if ip < 0 {
		ip = 0
	}
	if proto.Chunk != nil {
		line = proto.Chunk.LineAt(ip)
	}
	name := proto.Name
	if name == "" {
		name = "<script>"
	}
	return FrameInfo{Function: name, Source: proto.Source, Line: line}
}

func (vm *VM) stackTrace() []FrameInfo {
	trace := make([]FrameInfo, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		trace = append(trace, vm.frameInfo(&vm.frames[i]))
	}
	return trace
}

// runtimeErrorAt builds a RuntimeError anchored at fr, prefixed with the
// "SKILL ISSUE: " marker every runtime failure carries so a host can
// distinguish interpreter-raised errors from other error sources.
func (vm *VM) runtimeErrorAt(fr *frame, format string, args ...interface{}) (value.Value, error) {
	msg := "SKILL ISSUE: " + fmt.Sprintf(format, args...)
	return value.Nil, &RuntimeError{Message: msg, Frame: vm.frameInfo(fr), Stack: vm.stackTrace()}
}

// wrapRuntimeError promotes a plain Go error (from a native, a call
// arity mismatch, an import failure) into a RuntimeError anchored at fr,
// adding the "SKILL ISSUE: " prefix unless the error already carries one.
func (vm *VM) wrapRuntimeError(fr *frame, err error) (value.Value, error) {
	if err == nil {
		return value.Nil, nil
	}
	if re, ok := err.(*RuntimeError); ok {
		return value.Nil, re
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "SKILL ISSUE: ") {
		msg = "SKILL ISSUE: " + msg
	}
	return value.Nil, &RuntimeError{Message: msg, Frame: vm.frameInfo(fr), Stack: vm.stackTrace(), Cause: err}
}

func (vm *VM) trace(fr *frame, op byte) {
	if vm.traceHook == nil {
		return
	}
	info := vm.frameInfo(fr)
	vm.traceHook(TraceInfo{Op: op, Function: info.Function, Source: info.Source, Line: info.Line})
}
