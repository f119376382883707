//go:build windows

package executor

import (
	"os"
	"os/exec"
	"syscall"
)

func setProcessGroup(cmd *exec.Cmd) {}

// signalGroup can only kill on Windows; every signal terminates.
func signalGroup(pid int, sig syscall.Signal) error {
	return SignalPID(pid, sig)
}

func SignalPID(pid int, _ syscall.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return os.ErrProcessDone
	}
	return p.Kill()
}

func ProcessExists(pid int) bool {
	_, err := os.FindProcess(pid)
	return err == nil
}

func exitStatus(ps *os.ProcessState) (int, string) {
	return ps.ExitCode(), ""
}
