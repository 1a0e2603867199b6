package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is the package-level time source for cache timestamps and publish
// times. Tests freeze it via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Clock returns the current time source, for components that need timers.
func Clock() clockwork.Clock {
	return clock
}

// Now returns the current time according to the package clock.
func Now() time.Time {
	return clock.Now()
}
