package cmd

import "github.com/bnema/vkshell/internal/shell"

// ExitCode maps a command error to the process exit status. Failures to
// bring the window up exit with -1, everything else with 1.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case shell.IsInitError(err):
		return -1
	default:
		return 1
	}
}
