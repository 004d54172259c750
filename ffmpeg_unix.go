//go:build unix

package glyphcast

import (
	"os/exec"
	"syscall"
)

// detach puts ffmpeg in its own process group so a terminal Ctrl-C reaches
// only glyphcast, which then shuts ffmpeg down in order.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
