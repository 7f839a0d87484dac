// Package shell implements host.Commander over os/exec, backing the
// `term()` native's ability to run a host command and observe its exit
// status.
package shell

import (
	"os"
	"os/exec"
	"runtime"
)

// Shell runs commands through the platform's command interpreter.
type Shell struct {
	Stdout, Stderr *os.File
}

// New returns a Commander that inherits the current process's stdio.
func New() *Shell {
	return &Shell{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run implements host.Commander.
func (s *Shell) Run(command string) (int, error) {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/C", command)
	} else {
		cmd = exec.Command("/bin/sh", "-c", command)
	}
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
