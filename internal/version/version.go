package version

import (
	"fmt"
	"runtime"
)

// These are overridden at build time via -ldflags.
var (
	GitVersion    = "0.1.0"
	GitCommit     = "unknown"
	GitTreeState  = "unknown"
	BuildMetadata = ""
)

// GetVersion returns the semantic version with optional build metadata.
func GetVersion() string {
	if BuildMetadata == "" {
		return GitVersion
	}
	return GitVersion + "+" + BuildMetadata
}

// GetVersionInfo returns version details as a map
func GetVersionInfo() map[string]string {
	return map[string]string{
		"version":      GetVersion(),
		"gitCommit":    GitCommit,
		"gitTreeState": GitTreeState,
		"goVersion":    runtime.Version(),
		"platform":     fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
