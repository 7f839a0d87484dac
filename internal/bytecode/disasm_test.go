package bytecode

import (
	"strings"
	"testing"
)

func TestDisassembleFunctionBasic(t *testing.T) {
	chunk := &Chunk{}
	idx := chunk.AddConstant(1.0)
	chunk.Write(OP_CONSTANT, 1)
	chunk.Write(byte(idx), 1)
	chunk.Write(OP_RETURN, 1)

	proto := &FunctionProto{Name: "main", Arity: 0, Chunk: chunk, ReturnKind: ReturnNone}

	var sb strings.Builder
	d := NewDisassembler(&sb)
	if err := d.DisassembleFunction(proto); err != nil {
		t.Fatalf("disassemble: %v", err)
	}
	out := sb.String()
	if !strings.Contains(out, "OP_CONSTANT") {
		t.Errorf("expected OP_CONSTANT in output, got:\n%s", out)
	}
	if !strings.Contains(out, "OP_RETURN") {
		t.Errorf("expected OP_RETURN in output, got:\n%s", out)
	}
}

func TestDisassembleFunctionNested(t *testing.T) {
	inner := &Chunk{}
	inner.Write(OP_NIL, 3)
	inner.Write(OP_RETURN, 3)
	innerProto := &FunctionProto{Name: "inner", Chunk: inner}

	outer := &Chunk{}
	idx := outer.AddConstant(innerProto)
	outer.Write(OP_CLOSURE, 2)
	outer.Write(byte(idx), 2)
	outer.Write(OP_RETURN, 2)
	outerProto := &FunctionProto{Name: "outer", Chunk: outer}

	var sb strings.Builder
	d := NewDisassembler(&sb)
	if err := d.DisassembleFunction(outerProto); err != nil {
		t.Fatalf("disassemble: %v", err)
	}
	out := sb.String()
	if !strings.Contains(out, "== outer") || !strings.Contains(out, "== inner") {
		t.Errorf("expected both function sections, got:\n%s", out)
	}
}
