// Package biztime provides business timezone helpers. All storage and
// transport use UTC; the business timezone only anchors the scheduler's
// cron boundaries (nightly track maintenance, daily audit sweep).
package biztime

import (
	"sync"
	"time"
)

// DefaultTimezone is the business timezone the gateway settles in.
const DefaultTimezone = "Asia/Tehran"

var (
	bizLocation *time.Location
	locOnce     sync.Once
)

// Location returns the business timezone location, falling back to UTC when
// the timezone database is unavailable.
func Location() *time.Location {
	locOnce.Do(func() {
		loc, err := time.LoadLocation(DefaultTimezone)
		if err != nil {
			loc = time.UTC
		}
		bizLocation = loc
	})
	return bizLocation
}

// NowUTC returns the current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}
