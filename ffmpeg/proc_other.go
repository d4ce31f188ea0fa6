//go:build !unix

package ffmpeg

import "os/exec"

// setProcessGroup is a no-op; exec.CommandContext kills the shell process.
func setProcessGroup(cmd *exec.Cmd) {}
