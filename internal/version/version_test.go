package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	saved := Version
	t.Cleanup(func() { Version = saved })

	Version = "1.2.3"
	assert.Contains(t, String(), "metaini 1.2.3")
	assert.Contains(t, String(), Commit)
}
