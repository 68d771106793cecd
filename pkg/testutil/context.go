package testutil

import (
	"time"
)

// FixedTime returns the reference clock used across tests so TTL math is
// reproducible.
func FixedTime() time.Time {
	return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
}
