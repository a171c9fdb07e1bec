// Package version exposes build-time version information for the
// lakeetl binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

const unknownValue = "unknown"

// Build-time variables set by ldflags.
var (
	Version   = "dev"
	BuildDate = unknownValue
	GitCommit = unknownValue
	GoVersion = runtime.Version()
)

// BuildInfo collects the build-time variables together with module
// information from the Go runtime.
type BuildInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty"`
	Module    string `json:"module"`
}

// Info returns the build information for the running binary.
func Info() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: GoVersion,
		Dirty:     strings.Contains(GitCommit, "-dirty"),
	}

	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		info.Module = buildInfo.Main.Path
	}

	return info
}

// String renders the build info in the format printed by the version
// subcommand.
func (b BuildInfo) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("lakeetl %s", b.Version))
	if b.Dirty {
		sb.WriteString(" (dirty)")
	}
	sb.WriteString("\n")

	if b.GitCommit != unknownValue {
		commit := b.GitCommit
		if len(commit) > 7 {
			commit = commit[:7]
		}
		sb.WriteString(fmt.Sprintf("commit: %s\n", commit))
	}
	if b.BuildDate != unknownValue {
		sb.WriteString(fmt.Sprintf("built:  %s\n", b.BuildDate))
	}
	sb.WriteString(fmt.Sprintf("go:     %s\n", b.GoVersion))

	return sb.String()
}

// IsRelease reports whether the binary was built from a tagged release.
func IsRelease() bool {
	return Version != "dev" && !strings.Contains(Version, "-")
}
