// Package version carries build identification, stamped via -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version of the bot core.
	Version = "0.1.0"
	// GitCommit is the short commit hash of the build.
	GitCommit = ""
	// BuildDate is the UTC build timestamp.
	BuildDate = ""
)

// String returns the version with commit and toolchain details when present.
func String() string {
	s := Version
	if GitCommit != "" {
		s += fmt.Sprintf(" (%s)", GitCommit)
	}
	if BuildDate != "" {
		s += fmt.Sprintf(" built %s", BuildDate)
	}
	return fmt.Sprintf("%s go %s %s/%s", s, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
