package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/embr-lang/embr/internal/config"
	"github.com/embr-lang/embr/internal/host/fsimport"
	"github.com/embr-lang/embr/internal/host/shell"
	"github.com/embr-lang/embr/internal/host/sysclock"
	"github.com/embr-lang/embr/internal/natives"
	"github.com/embr-lang/embr/internal/vm"
)

// loadConfig reads embr.toml from --config-dir (or its Default() when
// absent) and applies --log-level over LogConfig.Level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dir, err := cmd.Flags().GetString("config-dir")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		cfg.Log.Level = override
	}
	return cfg, nil
}

func applyLogLevel(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
}

// newMachine builds a *vm.VM wired to the real host collaborators
// (filesystem imports rooted at cfg.Import.BaseDir, an os/exec shell for
// term(), the system wall/monotonic clock) plus the standard native
// registry, and applies cfg.VM's limits.
func newMachine(cfg *config.Config) *vm.VM {
	machine := vm.New()
	natives.RegisterAll(machine)
	machine.SetImporter(fsimport.New(cfg.Import.BaseDir))
	machine.SetClock(sysclock.New())
	machine.SetCommander(shell.New())
	if cfg.VM.InstructionLimit > 0 {
		machine.SetInstructionLimit(cfg.VM.InstructionLimit)
	}
	if cfg.VM.MaxFrames > 0 {
		machine.SetMaxFrames(cfg.VM.MaxFrames)
	}
	return machine
}
