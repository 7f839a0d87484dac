package vm

import "github.com/embr-lang/embr/internal/value"

// Heap exposes the VM's object heap so host code building native functions
// can allocate strings, arrays and dicts that live on it (internal/natives
// does this for rest and uuid).
func (vm *VM) Heap() *value.Heap { return vm.heap }

// Globals exposes the live globals table. Hosts use this for introspection
// (the embr package's HasFunction lookup) rather than mutating it
// directly — prefer DefineGlobal/DefineNative for writes.
func (vm *VM) Globals() map[string]value.Value { return vm.globals }

// Push, Pop and Peek expose the operand stack to natives that need direct
// stack access rather than working purely from their args slice — kept
// narrow (three methods, no raw index access) so natives can't corrupt
// frame bookkeeping.
func (vm *VM) Push(v value.Value) { vm.push(v) }
func (vm *VM) Pop() value.Value   { return vm.pop() }
func (vm *VM) Peek(distance int) value.Value { return vm.peek(distance) }

// TypeName re-exports value.TypeName so callers that only import
// internal/vm (not internal/value) can still produce type-mismatch
// messages consistent with the interpreter's own.
func TypeName(v value.Value) string { return value.TypeName(v) }
