//go:build windows

package procgroup

import (
	"os"
	"os/exec"
)

// Setup is a no-op on Windows; CREATE_NEW_PROCESS_GROUP support would be
// needed for full parity but the driver's primary target is the Unix
// toolchains creduce itself targets.
func Setup(cmd *exec.Cmd) {}

// Kill best-effort terminates the single process by pid; Windows has no
// direct equivalent of a POSIX process group kill without a job object.
func Kill(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}
