// Command embr is the reference host for the Embr scripting language: it
// compiles and runs scripts, disassembles compiled chunks, and offers a
// small REPL, wiring internal/host's filesystem/shell/clock
// implementations into an internal/vm VM.
package main

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/embr-lang/embr/internal/version"
)

var log = logrus.New()

// exitCodeError pairs a diagnostic with the process exit code main should
// terminate with, letting a subcommand distinguish a compile failure from
// a runtime failure instead of every error collapsing to a generic 1.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

func compileExitError(err error) error { return &exitCodeError{code: 65, err: err} }
func runtimeExitError(err error) error { return &exitCodeError{code: 70, err: err} }

var rootCmd = &cobra.Command{
	Use:   "embr",
	Short: "Embr language interpreter and toolchain",
	Long:  "embr compiles and runs Embr scripts against a stack-based bytecode VM.",
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.PersistentFlags().String("log-level", "", "log level (trace|debug|info|warn|error), overrides embr.toml")
	rootCmd.PersistentFlags().String("config-dir", ".", "directory to load embr.toml from")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(disCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		code := 1
		var ece *exitCodeError
		if errors.As(err, &ece) {
			code = ece.code
		}
		os.Exit(code)
	}
}
