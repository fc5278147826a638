//go:build !unix

package data

import "os/exec"

func killProcessGroup(cmd *exec.Cmd) {}
