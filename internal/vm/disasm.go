package vm

import (
	"fmt"
	"io"
	"sort"

	"github.com/embr-lang/embr/internal/bytecode"
	"github.com/embr-lang/embr/internal/value"
)

// Disassemble writes a readable dump of every closure and native currently
// bound in globals, sorted by name. The `embr dis` CLI command does not use
// it; that command disassembles the compiled script without running it.
func (vm *VM) Disassemble(w io.Writer) error {
	names := make([]string, 0, len(vm.globals))
	for name, v := range vm.globals {
		if v.IsObject() {
			switch v.AsObject().ObjType() {
			case value.ObjTypeClosure, value.ObjTypeNative:
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)

	d := bytecode.NewDisassembler(w)
	for _, name := range names {
		switch obj := vm.globals[name].AsObject().(type) {
		case *value.ObjClosure:
			if err := d.DisassembleFunction(obj.Fn.Proto); err != nil {
				return err
			}
		case *value.ObjNative:
			fmt.Fprintf(w, "\n== %s (native, arity=%d) ==\n", obj.Name, obj.Arity)
		}
	}
	return nil
}
