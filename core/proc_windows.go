//go:build windows

package core

import "os/exec"

type stopSignal int

const (
	stopTerm stopSignal = iota
	stopKill
)

func setProcessGroup(_ *exec.Cmd) {}

func processGroup(_ *exec.Cmd) int { return 0 }

// signalProcess has no graceful option on Windows; both signals kill.
func signalProcess(cmd *exec.Cmd, _ int, _ stopSignal) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
