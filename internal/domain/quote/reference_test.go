package quote

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var referenceFormat = regexp.MustCompile(`^SOL-\d+-[0-9A-Z]{6}$`)

func TestNewReferenceFormat(t *testing.T) {
	now := time.UnixMilli(1718000000123)
	ref := NewReference(now)
	assert.Regexp(t, referenceFormat, ref)
	assert.Contains(t, ref, "SOL-1718000000123-")
}

func TestNewReferenceUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		// Same timestamp on purpose: only the suffix separates them.
		ref := NewReference(now)
		_, dup := seen[ref]
		require.False(t, dup, "duplicate reference %s after %d generations", ref, i)
		seen[ref] = struct{}{}
	}
}
