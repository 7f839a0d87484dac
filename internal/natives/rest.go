package natives

import (
	"fmt"

	"github.com/embr-lang/embr/internal/value"
	"github.com/embr-lang/embr/internal/vm"
)

// rest(a) returns a new array holding everything but a's first element,
// leaving a itself untouched.
func registerRest(v *vm.VM) {
	v.DefineNative("rest", 1, func(args []value.Value) (value.Value, error) {
		if !args[0].IsArray() {
			return value.Nil, fmt.Errorf("rest() takes exactly 1 argument: array, got %s", vm.TypeName(args[0]))
		}
		arr := args[0].AsArray()
		if len(arr.Elements) == 0 {
			return value.Nil, fmt.Errorf("rest() called on an empty array")
		}
		rest := make([]value.Value, len(arr.Elements)-1)
		copy(rest, arr.Elements[1:])
		return value.FromObject(v.Heap().NewArray(rest)), nil
	})
}
