package session

import (
	"math/rand"
	"time"
)

// backoff produces exponentially growing reconnect delays with jitter,
// capped at max and reset to the minimum on each successful connection.
type backoff struct {
	min     time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(min, max time.Duration) *backoff {
	if min <= 0 {
		min = time.Second
	}
	if max < min {
		max = min
	}
	return &backoff{min: min, max: max}
}

// Next returns the delay to wait before the next attempt and advances the
// schedule. Jitter spreads the delay over [d/2, d) so a fleet of clients
// does not reconnect in lockstep.
func (b *backoff) Next() time.Duration {
	if b.current == 0 {
		b.current = b.min
	}
	d := b.current

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}

	half := d / 2
	if half <= 0 {
		return d
	}
	return half + time.Duration(rand.Int63n(int64(half)))
}

// Reset returns the schedule to the minimum delay.
func (b *backoff) Reset() {
	b.current = 0
}
