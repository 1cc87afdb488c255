package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserAgent(t *testing.T) {
	oldVersion, oldCommit := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = oldVersion, oldCommit })

	Version, GitCommit = "1.2.3", "abc123"
	assert.Equal(t, "ledmap/1.2.3 (abc123)", UserAgent())

	v, c, _ := Info()
	assert.Equal(t, "1.2.3", v)
	assert.Equal(t, "abc123", c)
}
