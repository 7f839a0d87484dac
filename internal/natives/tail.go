package natives

import (
	"fmt"

	"github.com/embr-lang/embr/internal/value"
	"github.com/embr-lang/embr/internal/vm"
)

// tail(a) removes and returns array a's last element.
func registerTail(v *vm.VM) {
	v.DefineNative("tail", 1, func(args []value.Value) (value.Value, error) {
		if !args[0].IsArray() {
			return value.Nil, fmt.Errorf("tail() takes exactly 1 argument: array, got %s", vm.TypeName(args[0]))
		}
		arr := args[0].AsArray()
		n := len(arr.Elements)
		if n == 0 {
			return value.Nil, fmt.Errorf("tail() called on an empty array")
		}
		last := arr.Elements[n-1]
		arr.Elements = arr.Elements[:n-1]
		return last, nil
	})
}
