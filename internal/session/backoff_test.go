package session

import (
	"testing"
	"time"
)

// TestBackoffGrowsStrictly checks consecutive failures ride a strictly
// increasing schedule even with jitter applied.
func TestBackoffGrowsStrictly(t *testing.T) {
	t.Parallel()

	b := newBackoff(time.Second, time.Minute)

	prev := time.Duration(0)
	for i := 0; i < 3; i++ {
		d := b.Next()
		if d <= prev {
			t.Errorf("attempt %d: delay %v not greater than previous %v", i, d, prev)
		}
		prev = d
	}
}

// TestBackoffJitterRange checks every delay lands in [d/2, d) of the
// un-jittered schedule step.
func TestBackoffJitterRange(t *testing.T) {
	t.Parallel()

	const min, max = time.Second, time.Minute

	for run := 0; run < 20; run++ {
		b := newBackoff(min, max)
		step := min
		for i := 0; i < 10; i++ {
			d := b.Next()
			if d < step/2 || d >= step {
				t.Fatalf("attempt %d: delay %v outside [%v, %v)", i, d, step/2, step)
			}
			step *= 2
			if step > max {
				step = max
			}
		}
	}
}

// TestBackoffCaps checks the schedule never exceeds the maximum.
func TestBackoffCaps(t *testing.T) {
	t.Parallel()

	b := newBackoff(time.Second, 4*time.Second)
	for i := 0; i < 10; i++ {
		if d := b.Next(); d >= 4*time.Second {
			t.Fatalf("attempt %d: delay %v reached the cap", i, d)
		}
	}
}

// TestBackoffReset checks a successful connection returns the schedule to
// the minimum.
func TestBackoffReset(t *testing.T) {
	t.Parallel()

	b := newBackoff(time.Second, time.Minute)
	for i := 0; i < 5; i++ {
		b.Next()
	}
	b.Reset()

	if d := b.Next(); d >= time.Second {
		t.Errorf("delay after Reset = %v, want < %v", d, time.Second)
	}
}

// TestBackoffDefaults checks degenerate bounds are corrected.
func TestBackoffDefaults(t *testing.T) {
	t.Parallel()

	b := newBackoff(0, 0)
	if b.min != time.Second {
		t.Errorf("min = %v, want %v", b.min, time.Second)
	}
	if b.max != time.Second {
		t.Errorf("max = %v, want %v", b.max, time.Second)
	}
}
