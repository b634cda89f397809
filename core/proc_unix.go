//go:build unix

package core

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

type stopSignal = unix.Signal

const (
	stopTerm = unix.SIGTERM
	stopKill = unix.SIGKILL
)

// setProcessGroup places the command in its own process group so shell
// children can be signalled together.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// processGroup returns the command's process group id, or 0 when unknown.
func processGroup(cmd *exec.Cmd) int {
	if cmd.Process == nil {
		return 0
	}
	pgid, err := unix.Getpgid(cmd.Process.Pid)
	if err != nil {
		return 0
	}
	return pgid
}

// signalProcess signals the whole process group, falling back to the group
// derived from the pid and finally to the process itself.
func signalProcess(cmd *exec.Cmd, pgid int, sig stopSignal) error {
	if cmd.Process == nil {
		return nil
	}
	if pgid > 0 {
		if err := unix.Kill(-pgid, sig); err == nil {
			return nil
		}
	}
	pid := cmd.Process.Pid
	if err := unix.Kill(-pid, sig); err == nil {
		return nil
	}
	return cmd.Process.Signal(sig)
}
