package natives

import (
	"fmt"

	"github.com/embr-lang/embr/internal/value"
	"github.com/embr-lang/embr/internal/vm"
)

// prepend(a,v) shifts every element of array a one slot right and writes
// v into slot 0, in place, returning nil.
func registerPrepend(v *vm.VM) {
	v.DefineNative("prepend", 2, func(args []value.Value) (value.Value, error) {
		if !args[0].IsArray() {
			return value.Nil, fmt.Errorf("prepend() takes exactly 2 arguments: array and value, got %s", vm.TypeName(args[0]))
		}
		arr := args[0].AsArray()
		arr.Elements = append(arr.Elements, value.Nil)
		copy(arr.Elements[1:], arr.Elements[:len(arr.Elements)-1])
		arr.Elements[0] = args[1]
		return value.Nil, nil
	})
}
