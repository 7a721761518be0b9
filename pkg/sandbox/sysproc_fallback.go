//go:build !unix

package sandbox

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// Without process groups only the direct child is tracked.
func setProcAttr(*exec.Cmd) {}

// signalGroup kills the child. There is no graceful signal, so SIGTERM and
// SIGKILL both end the process immediately.
func signalGroup(pid int, _ syscall.Signal) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	defer proc.Release()
	return proc.Kill()
}

func processGone(err error) bool {
	return errors.Is(err, os.ErrProcessDone)
}
