//go:build windows

package provider

import (
	"errors"
	"os"
	"os/exec"
)

// relaunchProcess runs exe on the current console and waits for it, since
// Windows has no exec. A non-zero exit of the new process is not a relaunch
// failure.
func relaunchProcess(exe string, args []string) error {
	//nolint:gosec // G204: exe is our own freshly installed binary
	cmd := exec.Command(exe, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
