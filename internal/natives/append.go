package natives

import (
	"fmt"

	"github.com/embr-lang/embr/internal/value"
	"github.com/embr-lang/embr/internal/vm"
)

// append(a,v) pushes v onto the end of array a in place and returns nil.
func registerAppend(v *vm.VM) {
	v.DefineNative("append", 2, func(args []value.Value) (value.Value, error) {
		if !args[0].IsArray() {
			return value.Nil, fmt.Errorf("append() takes exactly 2 arguments: array and value, got %s", vm.TypeName(args[0]))
		}
		arr := args[0].AsArray()
		arr.Elements = append(arr.Elements, args[1])
		return value.Nil, nil
	})
}
