// Package version holds cmd/embr's build fingerprint, overridable at
// build time via -ldflags.
package version

var (
	// Version is the semantic version of the embr CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash, set via -ldflags.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601, set via -ldflags.
	BuildDate = ""
)
