//go:build windows

package runner

import "os/exec"

// setProcessGroup is a no-op on Windows: no process group or Job Object is
// set up at launch; KillTree in killtree_windows.go tears the tree down
// with taskkill /T /F instead.
func setProcessGroup(cmd *exec.Cmd) {}
