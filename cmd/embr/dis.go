package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/embr-lang/embr/internal/bytecode"
	"github.com/embr-lang/embr/internal/compiler"
)

var disCmd = &cobra.Command{
	Use:   "dis <file.embr>",
	Short: "Compile a script and print its disassembled bytecode",
	Args:  cobra.ExactArgs(1),
	RunE:  runDis,
}

func runDis(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyLogLevel(cfg)

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	proto, errs := compiler.Compile(string(data), path)
	if len(errs) > 0 {
		for _, e := range errs {
			log.Errorf("%s: %v", path, e)
		}
		return fmt.Errorf("%s: %d compile error(s)", path, len(errs))
	}

	d := bytecode.NewDisassembler(cmd.OutOrStdout())
	return d.DisassembleFunction(proto)
}
