package natives

import (
	"fmt"

	"github.com/embr-lang/embr/internal/value"
	"github.com/embr-lang/embr/internal/vm"
)

// remove(d,k) deletes key k from dict d in place and returns nil.
func registerRemove(v *vm.VM) {
	v.DefineNative("remove", 2, func(args []value.Value) (value.Value, error) {
		if !args[0].IsDict() || !args[1].IsString() {
			return value.Nil, fmt.Errorf("remove() takes exactly 2 arguments: dict and key")
		}
		delete(args[0].AsDict().Entries, args[1].Str())
		return value.Nil, nil
	})
}
