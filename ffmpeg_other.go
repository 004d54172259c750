//go:build !unix

package glyphcast

import "os/exec"

func detach(cmd *exec.Cmd) {}
