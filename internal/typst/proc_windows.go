//go:build windows

package typst

import "os/exec"

// setProcessGroup is a no-op on Windows; KillProcessGroup uses taskkill's
// tree kill instead.
func setProcessGroup(cmd *exec.Cmd) {}
