package runner

import "os/exec"

// exitCodeOf extracts the numeric exit code from cmd.Wait's error, and
// reports whether the process instead terminated due to a signal (in
// which case there is no meaningful exit code and signaled is true). Any
// other non-nil error that is not an *exec.ExitError is reported the same
// way, as (-1, true).
func exitCodeOf(waitErr error) (exitCode int, signaled bool) {
	if waitErr == nil {
		return 0, false
	}
	exitErr, ok := waitErr.(*exec.ExitError)
	if !ok {
		return -1, true
	}
	if exitErr.ExitCode() == -1 {
		return -1, true
	}
	return exitErr.ExitCode(), false
}
