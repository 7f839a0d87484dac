package natives

import (
	"github.com/embr-lang/embr/internal/value"
	"github.com/embr-lang/embr/internal/vm"
)

// clock() returns seconds elapsed since the VM's host clock was started
// (monotonic-ish), backed by host.Clock.ProcessSeconds.
func registerClock(v *vm.VM) {
	v.DefineNative("clock", 0, func(args []value.Value) (value.Value, error) {
		return value.Number(v.Clock().ProcessSeconds()), nil
	})
}
