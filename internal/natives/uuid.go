package natives

import (
	"github.com/google/uuid"

	"github.com/embr-lang/embr/internal/value"
	"github.com/embr-lang/embr/internal/vm"
)

// uuid() returns a freshly generated v4 UUID string, backed by
// github.com/google/uuid.
func registerUUID(v *vm.VM) {
	v.DefineNative("uuid", 0, func(args []value.Value) (value.Value, error) {
		return value.FromObject(v.Heap().InternString(uuid.NewString())), nil
	})
}
