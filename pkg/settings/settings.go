// Package settings holds build metadata and the per-run CLI settings.
package settings

// CliBinaryName is the binary and config directory name.
const CliBinaryName = "tableview"

// VersionInformation is set at build time via ldflags.
var VersionInformation = VersionInfo{
	Commit:       "unknown",
	BuildVersion: "v0.0.0-nightly",
	BuildTime:    "unknown",
}

// VersionInfo is the build metadata.
type VersionInfo struct {
	Commit       string
	BuildVersion string
	BuildTime    string
}

// Run holds the settings of one CLI invocation.
type Run struct {
	MinLogLevel int8
	ConfigFile  string
	NoColor     bool
	Width       int
	Interactive bool
	ExitOnError bool
}

// NewCliParams returns the defaults for a CLI run.
func NewCliParams() *Run {
	return &Run{
		MinLogLevel: 0,
		ExitOnError: true,
	}
}
