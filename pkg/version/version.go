// Package version exposes build information set through -ldflags.
package version

import (
	"github.com/Masterminds/semver/v3"
)

// Set at build time with -ldflags "-X github.com/rshade/stagehand/pkg/version.version=...".
//
//nolint:gochecknoglobals // populated by the linker
var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// GetVersion returns the stagehand version.
func GetVersion() string { return version }

// GetGitCommit returns the commit the binary was built from.
func GetGitCommit() string { return gitCommit }

// GetBuildDate returns when the binary was built.
func GetBuildDate() string { return buildDate }

// Semver parses GetVersion. A version that is not valid semver is reported as
// 0.0.0 so that constraint checks fail closed.
func Semver() *semver.Version {
	v, err := semver.NewVersion(version)
	if err != nil {
		return semver.MustParse("0.0.0")
	}
	return v
}
