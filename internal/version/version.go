// Package version carries the build metadata of the shiplabel binary.
package version

import "fmt"

// Build-time variables set by ldflags:
//
//	-X github.com/MeKo-Tech/shiplabel/internal/version.Version=v1.2.0
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns version, commit and build date.
func Info() (string, string, string) {
	return Version, GitCommit, BuildDate
}

// String is the one-line version banner.
func String() string {
	return fmt.Sprintf("shiplabel %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
