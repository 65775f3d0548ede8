// Package version provides build version information for hub-clusters.
// Version values are set at build time via ldflags.
package version

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
)

// Environment variable for overriding UserAgent
const EnvUserAgent = "HUB_CLUSTERS_USER_AGENT"

// Build-time variables set via ldflags
// Example: go build -ldflags "-X github.com/openshift-hyperfleet/hub-clusters/pkg/version.Version=1.0.0"
var (
	// Version is the semantic version of the service
	Version = "0.1.0"

	// Commit is the git commit SHA
	Commit = "none"

	// BuildDate is the date when the binary was built
	BuildDate = "unknown"

	// Tag is the git tag (if any)
	Tag = "none"
)

// readBuildInfo is replaced in tests
var readBuildInfo = debug.ReadBuildInfo

// UserAgent returns the User-Agent string sent to regional cluster services.
// HUB_CLUSTERS_USER_AGENT overrides the default "hub-clusters/{version}".
func UserAgent() string {
	if ua := os.Getenv(EnvUserAgent); ua != "" {
		return ua
	}
	return "hub-clusters/" + Version
}

// VersionInfo contains all build version information
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	Tag       string `json:"tag"`
	GoVersion string `json:"go_version"`
	// Modified is set when the binary was built from a dirty tree
	Modified bool `json:"modified,omitempty"`
}

// Info returns all version information. Commit and BuildDate fall back to
// the VCS stamp of the binary when they were not set via ldflags.
func Info() VersionInfo {
	info := VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		Tag:       Tag,
		GoVersion: runtime.Version(),
	}
	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "none" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildDate == "unknown" {
				info.BuildDate = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

func (i VersionInfo) String() string {
	commit := i.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if i.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("hub-clusters %s (commit %s, built %s, %s)", i.Version, commit, i.BuildDate, i.GoVersion)
}
