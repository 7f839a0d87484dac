package main

import (
	"bufio"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/embr-lang/embr/internal/compiler"
	"github.com/embr-lang/embr/internal/value"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive Embr session",
	RunE:  runRepl,
}

// runRepl reads statements line by line and compiles+runs each against a
// single persistent VM, so `var`/`fn`/`class` declarations from earlier
// lines stay visible as globals to later ones.
func runRepl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyLogLevel(cfg)

	machine := newMachine(cfg)
	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())

	fmt.Fprintln(out, "embr repl — Ctrl-D to exit")
	for {
		fmt.Fprint(out, "> ")
		if !in.Scan() {
			break
		}
		line := in.Text()
		if line == "" {
			continue
		}
		proto, errs := compiler.Compile(line, "repl")
		if len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintln(out, e)
			}
			continue
		}
		result, err := machine.Run(proto, nil)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		if !result.IsNil() {
			fmt.Fprintln(out, value.Stringify(result))
		}
	}
	if err := in.Err(); err != nil && err != io.EOF {
		return err
	}
	return nil
}
