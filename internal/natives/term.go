package natives

import (
	"fmt"

	"github.com/embr-lang/embr/internal/value"
	"github.com/embr-lang/embr/internal/vm"
)

// term(cmd) runs cmd through the host shell and returns its exit status,
// backed by host.Commander.
func registerTerm(v *vm.VM) {
	v.DefineNative("term", 1, func(args []value.Value) (value.Value, error) {
		if !args[0].IsString() {
			return value.Nil, fmt.Errorf("term() expects a str, got %s", vm.TypeName(args[0]))
		}
		status, err := v.Commander().Run(args[0].Str())
		if err != nil {
			return value.Nil, err
		}
		return value.Number(float64(status)), nil
	})
}
