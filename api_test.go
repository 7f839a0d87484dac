package embr

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type testCustomMarshaler struct{ V string }
type testCustomUnmarshaler struct{ V string }

var _ Marshaler = (*testCustomMarshaler)(nil)
var _ Unmarshaler = (*testCustomUnmarshaler)(nil)

func (c testCustomMarshaler) MarshalEmbr() (Value, error) {
	return NewValue(map[string]any{"v": c.V})
}

func (c *testCustomUnmarshaler) UnmarshalEmbr(v Value) error {
	obj, ok := v.Dict()
	if !ok {
		return fmt.Errorf("expected dict")
	}
	val, ok := obj["v"].String()
	if !ok {
		return fmt.Errorf("missing v")
	}
	c.V = val
	return nil
}

func TestAPIScriptCall(t *testing.T) {
	vm := NewVM()
	if err := vm.LoadSource("inline", `fn add(a, b) @int { return a + b; }`); err != nil {
		t.Fatalf("load source: %v", err)
	}
	a1, _ := NewValue(2)
	a2, _ := NewValue(3)
	res, err := vm.CallAsync(context.Background(), "add", a1, a2).Await(context.Background())
	if err != nil {
		t.Fatalf("call error: %v", err)
	}
	if v, ok := res.MustRaw().(float64); !ok || v != 5 {
		t.Fatalf("expected 5, got %#v", res)
	}
}

func TestAPIHostFunctionBinding(t *testing.T) {
	vm := NewVM()
	host := NewHostFunction("inc", 1, func(ctx *Context, args HostArgs) (Value, error) {
		x, err := args.Number(0)
		if err != nil {
			return Value{}, err
		}
		return NewValue(x + 1)
	})
	if err := vm.SetHostFunction(host); err != nil {
		t.Fatalf("set host function: %v", err)
	}
	if err := vm.LoadSource("inline", `fn run(v) { return inc(v); }`); err != nil {
		t.Fatalf("load source: %v", err)
	}
	arg, _ := NewValue(4)
	res, err := vm.CallAsync(context.Background(), "run", arg).Await(context.Background())
	if err != nil {
		t.Fatalf("call error: %v", err)
	}
	if v, ok := res.MustRaw().(float64); !ok || v != 5 {
		t.Fatalf("expected 5, got %#v", res)
	}
}

func TestAPIHasFunction(t *testing.T) {
	vm := NewVM()
	if vm.HasFunction("missing") {
		t.Fatalf("expected missing to be false")
	}
	if err := vm.LoadSource("inline", `fn add(a, b) @int { return a + b; }`); err != nil {
		t.Fatalf("load source: %v", err)
	}
	if !vm.HasFunction("add") {
		t.Fatalf("expected add to be true")
	}
	host := NewHostFunction("host", 0, func(ctx *Context, args HostArgs) (Value, error) {
		return MustValue(1), nil
	})
	if err := vm.SetHostFunction(host); err != nil {
		t.Fatalf("set host function: %v", err)
	}
	if !vm.HasFunction("host") {
		t.Fatalf("expected host to be true")
	}
}

func TestAPIVMDuplicateIsolation(t *testing.T) {
	base := NewVM()
	err := base.LoadSource("inline", `
var state = {"count": 0};
fn bump() {
	state.count = state.count + 1;
	return state.count;
}
`)
	if err != nil {
		t.Fatalf("load source: %v", err)
	}
	dup, err := base.Duplicate()
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := dup.CallAsync(context.Background(), "bump").Await(context.Background()); err != nil {
			t.Fatalf("dup bump: %v", err)
		}
	}
	dupResult, err := dup.CallAsync(context.Background(), "bump").Await(context.Background())
	if err != nil {
		t.Fatalf("dup bump: %v", err)
	}
	origResult, err := base.CallAsync(context.Background(), "bump").Await(context.Background())
	if err != nil {
		t.Fatalf("base bump: %v", err)
	}
	if dupResult.MustRaw().(float64) != 3 {
		t.Fatalf("expected duplicate counter at 3, got %#v", dupResult)
	}
	if origResult.MustRaw().(float64) != 1 {
		t.Fatalf("expected original counter at 1, got %#v", origResult)
	}
}

func TestAPICustomMarshalerUnmarshaler(t *testing.T) {
	v, err := NewValue(testCustomMarshaler{V: "hi"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out testCustomUnmarshaler
	if err := Unmarshal(v, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.V != "hi" {
		t.Fatalf("expected hi, got %q", out.V)
	}
}

func TestAPIUnmarshalStruct(t *testing.T) {
	type Point struct {
		X float64
		Y float64
	}
	v, err := NewValue(Point{X: 1, Y: 2})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Point
	if err := Unmarshal(v, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.X != 1 || out.Y != 2 {
		t.Fatalf("expected {1 2}, got %#v", out)
	}
}

func TestAPIHostFunctionsFromMapArity(t *testing.T) {
	fns, err := HostFunctionsFromMap(map[string]any{
		"double": func(x float64) (float64, error) { return x * 2, nil },
	})
	if err != nil {
		t.Fatalf("from map: %v", err)
	}
	vm := NewVM()
	if err := vm.SetHostFunction(fns["double"]); err != nil {
		t.Fatalf("set host function: %v", err)
	}
	if err := vm.LoadSource("inline", `fn run(v) { return double(v); }`); err != nil {
		t.Fatalf("load source: %v", err)
	}
	arg, _ := NewValue(21)
	res, err := vm.Call("run", arg)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if v, ok := res.MustRaw().(float64); !ok || v != 42 {
		t.Fatalf("expected 42, got %#v", res)
	}
}

func TestAPIRuntimeErrorReportsFrame(t *testing.T) {
	vm := NewVM()
	if err := vm.LoadSource("inline", `
fn boom() {
	return 1 % 0;
}
`); err != nil {
		t.Fatalf("load source: %v", err)
	}
	_, err := vm.Call("boom")
	if err == nil {
		t.Fatalf("expected an error")
	}
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected a *RuntimeError, got %T: %v", err, err)
	}
	if rerr.Frame.Function != "boom" {
		t.Fatalf("expected frame function boom, got %q", rerr.Frame.Function)
	}
}

func TestAPICompileErrorReported(t *testing.T) {
	vm := NewVM()
	err := vm.LoadSource("inline", `fn broken( { return; }`)
	if err == nil {
		t.Fatalf("expected a compile error")
	}
	var cerr *CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected a *CompileError, got %T: %v", err, err)
	}
}

func TestAPIInstructionLimitStopsRunaway(t *testing.T) {
	vm := NewVM()
	vm.SetInstructionLimit(1000)
	if err := vm.LoadSource("inline", `
fn spin() {
	var i = 0;
	while (true) {
		i = i + 1;
	}
	return i;
}
`); err != nil {
		t.Fatalf("load source: %v", err)
	}
	if _, err := vm.Call("spin"); err == nil {
		t.Fatalf("expected the instruction limit to stop the runaway loop")
	}
}

func TestAPITraceHookFires(t *testing.T) {
	vm := NewVM()
	count := 0
	vm.SetTraceHook(func(info TraceInfo) { count++ })
	if err := vm.LoadSource("inline", `out 1 + 1;`); err != nil {
		t.Fatalf("load source: %v", err)
	}
	if count == 0 {
		t.Fatalf("expected the trace hook to fire at least once")
	}
}

func TestAPIArrayAndDictRoundTrip(t *testing.T) {
	v, err := NewValue([]any{1, 2, 3})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	arr, ok := v.Array()
	if !ok || len(arr) != 3 {
		t.Fatalf("expected a 3-element array, got %#v", v)
	}
	n, ok := arr[1].Number()
	if !ok || n != 2 {
		t.Fatalf("expected element 1 == 2, got %#v", arr[1])
	}
}
