//go:build !unix

package terminal

import "os"

type signal int

const (
	sigTerm signal = iota
	sigKill
)

// signalGroup falls back to killing the process itself; there are no process
// groups to signal.
func signalGroup(pid int, _ signal) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}

func isRetryable(error) bool {
	return false
}
