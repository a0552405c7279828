package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionInfo(t *testing.T) {
	info := VersionInfo()

	assert.Contains(t, info, "MongoLog version")
	assert.Contains(t, info, Version)
	assert.Contains(t, info, "build: "+BuildDate)
	assert.Contains(t, info, "commit: "+CommitHash)
}

func TestVersionInfo_BuildValues(t *testing.T) {
	oldVersion, oldDate, oldCommit := Version, BuildDate, CommitHash
	t.Cleanup(func() { Version, BuildDate, CommitHash = oldVersion, oldDate, oldCommit })

	Version, BuildDate, CommitHash = "1.2.3", "2026-10-19", "abc123"
	assert.Equal(t, "MongoLog version 1.2.3 (build: 2026-10-19, commit: abc123)", VersionInfo())
}
