// Package version reports build metadata. Release builds set [Version] and
// [BuildDate] with -ldflags; development builds fall back to the VCS revision
// embedded by the Go toolchain.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version   string // Set via ldflags.
	BuildDate string // Set via ldflags.

	Revision  = readRevision()
	GoVersion = runtime.Version()
	Platform  = runtime.GOOS + "/" + runtime.GOARCH
)

// GetVersion returns the release version, or the revision for development
// builds.
func GetVersion() string {
	if Version != "" {
		return Version
	}

	return Revision
}

// String describes the build on one line, for logs.
func String() string {
	s := fmt.Sprintf("%s (revision %s, %s, %s)", GetVersion(), Revision, GoVersion, Platform)
	if BuildDate != "" {
		s += ", built " + BuildDate
	}

	return s
}

func readRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return RevisionFrom(nil)
	}

	return RevisionFrom(info.Settings)
}

// RevisionFrom derives a short revision from VCS build settings. Uncommitted
// changes add a "-dirty" suffix.
func RevisionFrom(settings []debug.BuildSetting) string {
	rev := "unknown"
	modified := false

	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
			if len(rev) > 7 {
				rev = rev[:7]
			}

		case "vcs.modified":
			modified = s.Value == "true"
		}
	}

	if modified {
		return rev + "-dirty"
	}

	return rev
}
