package core

import (
	"os/exec"
	"runtime"
)

// shellCommand builds the platform shell invocation for a command line.
func shellCommand(command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.Command("cmd.exe", "/C", command)
	}
	return exec.Command("/bin/bash", "-c", command)
}
