package capture

import "time"

// Countdown is the cosmetic seconds counter drawn in every zone. It shows
// period, period-1, ..., 0 on wall-clock time, one second each, and restarts,
// whatever the frame rate.
type Countdown struct {
	seconds int64
	start   time.Time
}

// NewCountdown starts a countdown of the given period (whole seconds) at start.
func NewCountdown(period time.Duration, start time.Time) *Countdown {
	return &Countdown{seconds: int64(period / time.Second), start: start}
}

// Remaining returns the value to display at now.
func (c *Countdown) Remaining(now time.Time) int {
	if c.seconds <= 0 {
		return 0
	}
	elapsed := int64(now.Sub(c.start) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	return int(c.seconds - elapsed%(c.seconds+1))
}
