package timex

import "time"

// Clock returns the current time. Components take a Clock so tests can pin it.
type Clock func() time.Time

// System is the wall clock.
var System Clock = time.Now

// Unix returns the clock reading in whole seconds since the epoch.
func (c Clock) Unix() int64 {
	if c == nil {
		return time.Now().Unix()
	}
	return c().Unix()
}

// Fixed returns a Clock that always reports sec.
func Fixed(sec int64) Clock {
	return func() time.Time { return time.Unix(sec, 0) }
}
