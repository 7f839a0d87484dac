// Package natives implements Embr's builtin functions: clock/time/term
// backed by the host collaborator interfaces, and a handful of pure
// array/dict helpers. Each native lives in its own file and registers
// itself as an ordinary global Native object through vm.DefineNative —
// there is no reserved opcode range, since a Native value is called
// through the general OP_CALL path like any other callable.
package natives

import "github.com/embr-lang/embr/internal/vm"

// RegisterAll installs every standard native plus the supplemental
// uuid() into v's globals. cmd/embr calls this once per VM right after
// construction, before compiling or running any script.
func RegisterAll(v *vm.VM) {
	registerClock(v)
	registerTime(v)
	registerTerm(v)
	registerLength(v)
	registerAppend(v)
	registerPrepend(v)
	registerHead(v)
	registerTail(v)
	registerRest(v)
	registerRemove(v)
	registerUUID(v)
}
