package natives

import (
	"github.com/embr-lang/embr/internal/value"
	"github.com/embr-lang/embr/internal/vm"
)

// time() returns wall-clock seconds since the Unix epoch, backed by
// host.Clock.WallSeconds.
func registerTime(v *vm.VM) {
	v.DefineNative("time", 0, func(args []value.Value) (value.Value, error) {
		return value.Number(v.Clock().WallSeconds()), nil
	})
}
