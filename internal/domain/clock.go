package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is the time source used to compute marker age. Commands and tests that
// need reproducible colors install a fake clock through SetClock.
var clock clockwork.Clock = clockwork.NewRealClock()

// SetClock swaps the time source used for recency classification.
// Pass nil to go back to wall-clock time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current time of the installed clock. A render pass calls it
// exactly once so every marker in a page is colored against the same instant.
func Now() time.Time {
	return clock.Now()
}
