package quote

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewReference returns a display reference such as SOL-1718000000000-7ZK4QH.
// The suffix comes from the monotonic entropy of a ULID, so references made in
// the same millisecond by this process still differ.
func NewReference(now time.Time) string {
	s := ulid.Make().String()
	return fmt.Sprintf("SOL-%d-%s", now.UnixMilli(), s[len(s)-6:])
}
