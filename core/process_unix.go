//go:build !windows

package core

import (
	"errors"
	"os"
	"syscall"
)

// isProcessAlive probes pid with signal 0. EPERM still means the process
// exists.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
