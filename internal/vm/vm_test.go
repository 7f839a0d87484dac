package vm_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/embr-lang/embr/internal/compiler"
	"github.com/embr-lang/embr/internal/natives"
	"github.com/embr-lang/embr/internal/value"
	"github.com/embr-lang/embr/internal/vm"
)

func TestVMArithmeticAndOut(t *testing.T) {
	proto, errs := compiler.Compile(`out 1 + 2 * 3;`, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	var out strings.Builder
	machine := vm.New()
	machine.SetOutput(&out)
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "7" {
		t.Errorf("expected output 7, got %q", got)
	}
}

func TestVMGlobalsAndCall(t *testing.T) {
	proto, errs := compiler.Compile(`fn add(a, b) @int { return a + b; }`, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	result, err := machine.Call("add", []value.Value{value.Number(3), value.Number(4)})
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if !result.IsNumber() || result.AsNumber() != 7 {
		t.Errorf("expected 7, got %v", result)
	}
}

func TestVMWhileLoopAccumulates(t *testing.T) {
	src := `
var total = 0;
var i = 0;
while (i < 5) {
	total = total + i;
	i = i + 1;
}
fn result() { return total; }
`
	proto, errs := compiler.Compile(src, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	result, err := machine.Call("result", nil)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if result.AsNumber() != 10 {
		t.Errorf("expected 10, got %v", result)
	}
}

func TestVMClosureCapturesUpvalue(t *testing.T) {
	src := `
fn counter() {
	var n = 0;
	fn inc() {
		n = n + 1;
		return n;
	}
	return inc;
}
var c = counter();
fn callOnce() { return c(); }
`
	proto, errs := compiler.Compile(src, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	first, err := machine.Call("callOnce", nil)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	second, err := machine.Call("callOnce", nil)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if first.AsNumber() != 1 || second.AsNumber() != 2 {
		t.Errorf("expected the shared upvalue to persist across calls, got %v then %v", first, second)
	}
}

func TestVMClassesAndInheritance(t *testing.T) {
	src := `
class Animal {
	init(name) {
		this.name = name;
	}
	speak() @str {
		return "...";
	}
}
class Dog < Animal {
	speak() {
		return this.name + " says Woof";
	}
}
var rex = Dog("Rex");
fn speak() { return rex.speak(); }
`
	proto, errs := compiler.Compile(src, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	result, err := machine.Call("speak", nil)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if result.Str() != "Rex says Woof" {
		t.Errorf("expected 'Rex says Woof', got %q", result.Str())
	}
}

func TestVMSuperInvoke(t *testing.T) {
	src := `
class Animal {
	speak() @str { return "generic noise"; }
}
class Dog < Animal {
	speak() { return super.speak() + " (bark)"; }
}
var d = Dog();
fn speak() { return d.speak(); }
`
	proto, errs := compiler.Compile(src, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	result, err := machine.Call("speak", nil)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if result.Str() != "generic noise (bark)" {
		t.Errorf("unexpected result %q", result.Str())
	}
}

func TestVMFieldReplacesReceiverOnInvoke(t *testing.T) {
	// Invoking a callable *field* replaces the receiver for that call
	// rather than dispatching to a method of the same name with `this`
	// bound to the instance.
	src := `
fn standalone() @int { return 42; }
class Box {
	init() {
		this.handler = standalone;
	}
}
var b = Box();
fn call() { return b.handler(); }
`
	proto, errs := compiler.Compile(src, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	result, err := machine.Call("call", nil)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if result.AsNumber() != 42 {
		t.Errorf("expected 42, got %v", result)
	}
}

func TestVMArrayOutOfBoundsReadIsLenientNil(t *testing.T) {
	src := `
var a = [1, 2, 3];
fn get() { return a[10]; }
`
	proto, errs := compiler.Compile(src, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	result, err := machine.Call("get", nil)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if !result.IsNil() {
		t.Errorf("expected nil for out-of-bounds read, got %v", result)
	}
}

func TestVMArrayWriteGrowsOnDemand(t *testing.T) {
	src := `
var a = [1];
fn grow() {
	a[4] = 99;
	return a[4];
}
`
	proto, errs := compiler.Compile(src, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	result, err := machine.Call("grow", nil)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if result.AsNumber() != 99 {
		t.Errorf("expected 99, got %v", result)
	}
}

func TestVMDictLiteralAndIndex(t *testing.T) {
	src := `
var d = {name: "Rex", legs: 4};
fn legs() { return d["legs"]; }
`
	proto, errs := compiler.Compile(src, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	result, err := machine.Call("legs", nil)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if result.AsNumber() != 4 {
		t.Errorf("expected 4, got %v", result)
	}
}

func TestVMDictDotPropertyAfterRemove(t *testing.T) {
	src := `
var d = {"a": 1, "b": 2};
remove(d, "a");
fn count() { return length(d); }
fn b() { return d.b; }
`
	proto, errs := compiler.Compile(src, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	natives.RegisterAll(machine)
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	count, err := machine.Call("count", nil)
	if err != nil {
		t.Fatalf("call count failed: %v", err)
	}
	if count.AsNumber() != 1 {
		t.Errorf("expected length 1 after remove, got %v", count)
	}
	b, err := machine.Call("b", nil)
	if err != nil {
		t.Fatalf("call b failed: %v", err)
	}
	if b.AsNumber() != 2 {
		t.Errorf("expected d.b == 2, got %v", b)
	}
}

func TestVMDictMissingDotPropertyIsNil(t *testing.T) {
	src := `
var d = {"a": 1};
fn missing() { return d.nope; }
`
	proto, errs := compiler.Compile(src, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	result, err := machine.Call("missing", nil)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if !result.IsNil() {
		t.Errorf("expected nil for a missing dict key, got %v", result)
	}
}

func TestVMDictDotPropertySet(t *testing.T) {
	src := `
var d = {};
d.x = 9;
fn x() { return d.x; }
`
	proto, errs := compiler.Compile(src, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	result, err := machine.Call("x", nil)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if result.AsNumber() != 9 {
		t.Errorf("expected d.x == 9, got %v", result)
	}
}

func TestVMDivideByZeroYieldsInfNotError(t *testing.T) {
	proto, errs := compiler.Compile(`fn div() @float { return 1 / 0; }`, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	result, err := machine.Call("div", nil)
	if err != nil {
		t.Fatalf("expected division by zero to succeed, got error: %v", err)
	}
	if !math.IsInf(result.AsNumber(), 1) {
		t.Errorf("expected +Inf, got %v", result)
	}
}

func TestVMModuloByZeroIsRuntimeError(t *testing.T) {
	proto, errs := compiler.Compile(`fn mod() { return 1 % 0; }`, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, err := machine.Call("mod", nil); err == nil {
		t.Fatal("expected an error for modulo by zero")
	}
}

func TestVMRuntimeErrorReportsFrameAndLine(t *testing.T) {
	src := `
fn boom() {
	return 1 + nil;
}
`
	proto, errs := compiler.Compile(src, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	_, err := machine.Call("boom", nil)
	if err == nil {
		t.Fatalf("expected a runtime error")
	}
	var rerr *vm.RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *vm.RuntimeError, got %T: %v", err, err)
	}
	if rerr.Frame.Function != "boom" {
		t.Errorf("expected error frame to name 'boom', got %q", rerr.Frame.Function)
	}
	if rerr.Frame.Line != 3 {
		t.Errorf("expected error frame to report line 3, got %d", rerr.Frame.Line)
	}
	if !strings.HasPrefix(rerr.Message, "SKILL ISSUE: ") {
		t.Errorf("expected message to carry the SKILL ISSUE prefix, got %q", rerr.Message)
	}
}

func TestVMReturnTypeMismatchCaughtAtRuntime(t *testing.T) {
	// OP_ADD is on the numeric whitelist regardless of what it actually
	// computes, so the compile-time heuristic can't tell string
	// concatenation from numeric addition here — only the runtime kind
	// check on OP_RETURN catches the mismatch.
	src := `
fn f() @int { return "a" + "b"; }
`
	proto, errs := compiler.Compile(src, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, err := machine.Call("f", nil); err == nil {
		t.Fatalf("expected a runtime error for returning a string from an @int function")
	}
}

func TestVMInstructionLimitStopsRunawayLoop(t *testing.T) {
	src := `while (true) { var x = 1; }`
	proto, errs := compiler.Compile(src, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	machine.SetInstructionLimit(1000)
	if _, err := machine.Run(proto, nil); err == nil {
		t.Fatalf("expected instruction limit to stop the loop")
	}
}

func TestVMDuplicateIsolatesState(t *testing.T) {
	src := `
var counter = [0];
fn bump() {
	counter[0] = counter[0] + 1;
	return counter[0];
}
`
	proto, errs := compiler.Compile(src, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	original := vm.New()
	if _, err := original.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, err := original.Call("bump", nil); err != nil {
		t.Fatalf("bump failed: %v", err)
	}

	dup := original.Duplicate()
	if _, err := dup.Call("bump", nil); err != nil {
		t.Fatalf("duplicate bump failed: %v", err)
	}
	dupResult, err := dup.Call("bump", nil)
	if err != nil {
		t.Fatalf("duplicate bump failed: %v", err)
	}
	if dupResult.AsNumber() != 3 {
		t.Fatalf("expected duplicate to inherit state and advance independently (1 -> 3), got %v", dupResult)
	}

	origResult, err := original.Call("bump", nil)
	if err != nil {
		t.Fatalf("original bump failed: %v", err)
	}
	if origResult.AsNumber() != 2 {
		t.Errorf("expected the original's counter to be unaffected by the duplicate's mutations, got %v", origResult)
	}
}

func TestVMTraceHookFiresPerInstruction(t *testing.T) {
	proto, errs := compiler.Compile(`out 1;`, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	machine.SetOutput(&strings.Builder{})
	count := 0
	machine.SetTraceHook(func(vm.TraceInfo) { count++ })
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if count == 0 {
		t.Errorf("expected trace hook to fire at least once")
	}
}

func TestVMNativeFunctionCall(t *testing.T) {
	proto, errs := compiler.Compile(`fn call() { return double(21); }`, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	machine.DefineNative("double", 1, func(args []value.Value) (value.Value, error) {
		return value.Number(args[0].AsNumber() * 2), nil
	})
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	result, err := machine.Call("call", nil)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if result.AsNumber() != 42 {
		t.Errorf("expected 42, got %v", result)
	}
}

func TestVMImportPopulatesGlobals(t *testing.T) {
	proto, errs := compiler.Compile(`import "greeting";`, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	machine.SetImporter(mapImporter{"greeting": `var hello = "hi";`})
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	v, ok := machine.Globals()["hello"]
	if !ok {
		t.Fatalf("expected import to define global 'hello'")
	}
	if v.Str() != "hi" {
		t.Errorf("expected 'hi', got %q", v.Str())
	}
}

type mapImporter map[string]string

func (m mapImporter) Load(name string) (string, string, error) {
	src, ok := m[name]
	if !ok {
		return "", "", errors.New("no such module: " + name)
	}
	return src, name, nil
}
