//go:build !windows

package provider

import (
	"os"
	"syscall"
)

// relaunchProcess replaces the running process with exe. It only returns on
// failure.
func relaunchProcess(exe string, args []string) error {
	argv := append([]string{exe}, args...)
	//nolint:gosec // G204: exe is our own freshly installed binary
	return syscall.Exec(exe, argv, os.Environ())
}
