package version

// Set by the build system via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)
