//go:build !windows

package scripts

import "os/exec"

func hideConsoleWindow(*exec.Cmd) {}
