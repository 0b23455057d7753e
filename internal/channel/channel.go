// Package channel decides which update strategy applies to the running build.
package channel

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultPortableEnv is the variable a portable launcher sets to the
// directory the application was extracted into.
const DefaultPortableEnv = "PORTABLE_EXECUTABLE_DIR"

// Strategy is the update channel a build falls into.
type Strategy int

const (
	// Disabled performs no update activity at all.
	Disabled Strategy = iota
	// NotifyOnly tells the user about new releases and links to the download page.
	NotifyOnly
	// Managed delegates download and install to the update provider.
	Managed
)

// String returns the string representation of a Strategy.
func (s Strategy) String() string {
	switch s {
	case Managed:
		return "managed"
	case NotifyOnly:
		return "notify-only"
	default:
		return "disabled"
	}
}

// Signals are the environment facts consulted by Classify.
type Signals struct {
	// PortableDir is non-empty when the process runs from a self-extracted
	// portable directory.
	PortableDir string
}

// Classify picks the strategy. First match wins:
//
//  1. development (unpackaged) runs are Disabled
//  2. portable Windows builds are NotifyOnly, since replacing the binary
//     would rewrite a directory the user manages by hand
//  3. everything else is Managed
func Classify(platform string, packaged bool, sig Signals) Strategy {
	if !packaged {
		return Disabled
	}
	if platform == "windows" && strings.TrimSpace(sig.PortableDir) != "" {
		return NotifyOnly
	}
	return Managed
}

// DetectSignals reads the signals from the environment. An empty envName
// falls back to DefaultPortableEnv.
func DetectSignals(lookupEnv func(string) (string, bool), envName string) Signals {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if strings.TrimSpace(envName) == "" {
		envName = DefaultPortableEnv
	}
	dir, _ := lookupEnv(envName)
	return Signals{PortableDir: strings.TrimSpace(dir)}
}

// IsPackaged reports whether the binary is a released build rather than a
// development invocation. Builds without an injected version and binaries
// that "go run" placed in the build cache count as development.
func IsPackaged(buildVersion, executablePath string) bool {
	v := strings.TrimSpace(buildVersion)
	if v == "" || v == "dev" || v == "development" {
		return false
	}

	if executablePath == "" {
		return true
	}
	path := strings.ReplaceAll(filepath.ToSlash(executablePath), `\`, "/")
	if strings.Contains(path, "/go-build") {
		return false
	}
	return true
}
