package config

import "fmt"

// Release metadata, overridden at link time:
//
//	go build -ldflags "-X zapnest/internal/config.version=1.2.3 \
//	    -X zapnest/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X zapnest/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/api
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo returns the linker-injected release metadata. LoadConfig
// stores it in Config.Build; /health reports the version.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}

// String renders the build for startup logs, e.g. "1.2.3 (a1b2c3d, 2026-10-16T09:30:00Z)".
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (%s, %s)", b.Version, b.Commit, b.BuildTime)
}
