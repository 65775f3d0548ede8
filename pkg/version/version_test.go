package version

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserAgent(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv(EnvUserAgent, "")
		assert.Equal(t, "hub-clusters/"+Version, UserAgent())
	})

	t.Run("env_override", func(t *testing.T) {
		t.Setenv(EnvUserAgent, "console-bff/2.0")
		assert.Equal(t, "console-bff/2.0", UserAgent())
	})
}

func stubBuildInfo(t *testing.T, settings ...debug.BuildSetting) {
	t.Helper()
	orig := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Settings: settings}, true
	}
	t.Cleanup(func() { readBuildInfo = orig })
}

func TestInfoFallsBackToVCSStamp(t *testing.T) {
	stubBuildInfo(t,
		debug.BuildSetting{Key: "vcs.revision", Value: "0123456789abcdef"},
		debug.BuildSetting{Key: "vcs.time", Value: "2024-05-01T10:00:00Z"},
		debug.BuildSetting{Key: "vcs.modified", Value: "true"},
	)

	info := Info()
	assert.Equal(t, "0123456789abcdef", info.Commit)
	assert.Equal(t, "2024-05-01T10:00:00Z", info.BuildDate)
	assert.True(t, info.Modified)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Contains(t, info.String(), "commit 0123456789ab-dirty")
}

func TestInfoPrefersLdflags(t *testing.T) {
	stubBuildInfo(t, debug.BuildSetting{Key: "vcs.revision", Value: "fromvcs"})

	origCommit := Commit
	Commit = "fromldflags"
	t.Cleanup(func() { Commit = origCommit })

	info := Info()
	assert.Equal(t, "fromldflags", info.Commit)
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, Tag, info.Tag)
}
