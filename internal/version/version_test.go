package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	old := [3]string{Version, GitCommit, BuildDate}
	t.Cleanup(func() { Version, GitCommit, BuildDate = old[0], old[1], old[2] })

	Version, GitCommit, BuildDate = "1.4.0", "abc123", "2026-10-01"
	v, c, d := Info()
	assert.Equal(t, []string{"1.4.0", "abc123", "2026-10-01"}, []string{v, c, d})
	assert.Equal(t, "gradescan 1.4.0 (commit abc123, built 2026-10-01)", String())
}
