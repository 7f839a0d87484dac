package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/embr-lang/embr/internal/bytecode"
	"github.com/embr-lang/embr/internal/compiler"
	"github.com/embr-lang/embr/internal/vm"
)

var runCmd = &cobra.Command{
	Use:   "run <file.embr>",
	Short: "Compile and execute an Embr script",
	Args:  cobra.ExactArgs(1),
	RunE:  runScript,
}

func init() {
	runCmd.Flags().Bool("trace", false, "log every executed instruction at debug level")
}

func runScript(cmd *cobra.Command, args []string) error {
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
		return compileExitError(fmt.Errorf("%s: %d compile error(s)", path, len(errs)))
	}

	machine := newMachine(cfg)
	traceFlag, _ := cmd.Flags().GetBool("trace")
	if traceFlag || cfg.VM.Trace {
		machine.SetTraceHook(func(info vm.TraceInfo) {
			log.Debugf("%s:%d %s in %s", info.Source, info.Line, bytecode.Name(info.Op), info.Function)
		})
	}

	if _, err := machine.Run(proto, nil); err != nil {
		return runtimeExitError(err)
	}
	return nil
}
