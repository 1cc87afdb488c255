// Package version carries build metadata injected through ldflags.
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

// UserAgent identifies ledmap to LED controllers and other peers.
func UserAgent() string {
	return fmt.Sprintf("ledmap/%s (%s)", Version, GitCommit)
}
