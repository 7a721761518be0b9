//go:build linux

package sandbox

import (
	"errors"
	"os/exec"
	"syscall"
)

// setProcAttr puts the child in its own process group and asks the kernel
// to kill it when the parent dies.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
}

func signalGroup(pid int, sig syscall.Signal) error {
	return syscall.Kill(-pid, sig)
}

func processGone(err error) bool {
	return errors.Is(err, syscall.ESRCH)
}
