// Package version carries build metadata injected with -ldflags.
package version

import "fmt"

// Build-time variables set by ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns version information
func Info() (string, string, string) {
	return Version, GitCommit, BuildDate
}

// String formats the build metadata for the version command and the health endpoint.
func String() string {
	return fmt.Sprintf("gradescan %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
