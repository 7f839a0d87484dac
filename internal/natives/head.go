package natives

import (
	"fmt"

	"github.com/embr-lang/embr/internal/value"
	"github.com/embr-lang/embr/internal/vm"
)

// head(a) removes and returns array a's first element, shifting the
// remainder left in place.
func registerHead(v *vm.VM) {
	v.DefineNative("head", 1, func(args []value.Value) (value.Value, error) {
		if !args[0].IsArray() {
			return value.Nil, fmt.Errorf("head() takes exactly 1 argument: array, got %s", vm.TypeName(args[0]))
		}
		arr := args[0].AsArray()
		if len(arr.Elements) == 0 {
			return value.Nil, fmt.Errorf("head() called on an empty array")
		}
		first := arr.Elements[0]
		arr.Elements = arr.Elements[1:]
		return first, nil
	})
}
