package natives

import (
	"fmt"

	"github.com/embr-lang/embr/internal/value"
	"github.com/embr-lang/embr/internal/vm"
)

// length(x) reports a str's byte length, an array's element count, or a
// dict's key count.
func registerLength(v *vm.VM) {
	v.DefineNative("length", 1, func(args []value.Value) (value.Value, error) {
		switch a := args[0]; {
		case a.IsString():
			return value.Number(float64(len(a.Str()))), nil
		case a.IsArray():
			return value.Number(float64(len(a.AsArray().Elements))), nil
		case a.IsDict():
			return value.Number(float64(len(a.AsDict().Entries))), nil
		default:
			return value.Nil, fmt.Errorf("length() expects a str, array or dict, got %s", vm.TypeName(a))
		}
	})
}
