//go:build unix

package ffmpeg

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts the shell as a group leader so that cancelling the
// context kills the shell and everything it spawned (cat, ffmpeg).
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
