//go:build windows

package supervisor

import (
	"os"
	"os/exec"
)

func setProcGroup(_ *exec.Cmd) {}

// Windows has no process groups to signal; both paths kill the child
// directly and leave any helpers to exit on their own.
func terminateGroup(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	return p.Kill()
}

func killGroup(pid int) error {
	return terminateGroup(pid)
}
