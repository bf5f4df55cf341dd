package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

// TestBurstAgainstKnownBucket checks that with limit 5 and 8 queued
// requests, exactly 5 proceed immediately and the rest wait out the reset.
func TestBurstAgainstKnownBucket(t *testing.T) {
	t.Parallel()

	const (
		limit = 5
		burst = 8
		reset = 150 * time.Millisecond
	)

	l := New()
	l.Update("route", limit, limit, reset)
	start := time.Now()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		immediate int
		delayed   int
	)
	for i := 0; i < burst; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background(), "route"); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			elapsed := time.Since(start)
			mu.Lock()
			if elapsed < reset/2 {
				immediate++
			} else {
				delayed++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if immediate != limit {
		t.Errorf("immediate = %d, want %d", immediate, limit)
	}
	if delayed != burst-limit {
		t.Errorf("delayed = %d, want %d", delayed, burst-limit)
	}
}

// TestUnknownBucketPermissive checks that a bucket is fully permissive
// before the first Update teaches it a quota.
func TestUnknownBucketPermissive(t *testing.T) {
	t.Parallel()

	l := New()
	start := time.Now()
	for i := 0; i < 50; i++ {
		if err := l.Acquire(context.Background(), "fresh"); err != nil {
			t.Fatalf("Acquire: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("unknown bucket delayed callers for %v", elapsed)
	}
}

// TestBucketsIndependent checks that draining one bucket never blocks
// another route.
func TestBucketsIndependent(t *testing.T) {
	t.Parallel()

	l := New()
	l.Update("slow", 1, 0, 500*time.Millisecond)
	l.Update("fast", 10, 10, 500*time.Millisecond)

	blocked := make(chan struct{})
	go func() {
		l.Acquire(context.Background(), "slow")
		close(blocked)
	}()

	start := time.Now()
	if err := l.Acquire(context.Background(), "fast"); err != nil {
		t.Fatalf("Acquire fast: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("fast bucket waited %v behind the slow one", elapsed)
	}

	select {
	case <-blocked:
		t.Error("exhausted bucket granted a permit before reset")
	default:
	}
}

// TestGlobalPausesEveryRoute checks that a global update stalls all
// buckets until the deadline passes.
func TestGlobalPausesEveryRoute(t *testing.T) {
	t.Parallel()

	const pause = 150 * time.Millisecond

	l := New()
	l.Update(GlobalBucket, 0, 0, pause)

	start := time.Now()
	if err := l.Acquire(context.Background(), "anything"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if elapsed := time.Since(start); elapsed < pause/2 {
		t.Errorf("Acquire returned after %v, want to wait out the global pause of %v", elapsed, pause)
	}
}

// TestPauseAllNeverShortens checks that an earlier deadline cannot undo a
// later one.
func TestPauseAllNeverShortens(t *testing.T) {
	t.Parallel()

	l := New()
	far := time.Now().Add(time.Hour)
	l.PauseAll(far)
	l.PauseAll(time.Now().Add(time.Millisecond))

	l.globalMu.RLock()
	until := l.globalUntil
	l.globalMu.RUnlock()
	if !until.Equal(far) {
		t.Errorf("globalUntil = %v, want %v", until, far)
	}
}

// TestAcquireHonoursContext checks that a blocked Acquire unblocks on
// cancellation instead of sleeping out the reset.
func TestAcquireHonoursContext(t *testing.T) {
	t.Parallel()

	l := New()
	l.Update("route", 1, 0, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx, "route")
	if err != context.DeadlineExceeded {
		t.Errorf("Acquire error = %v, want %v", err, context.DeadlineExceeded)
	}
}

// TestUpdateResync checks that a server update overrides the optimistic
// refill.
func TestUpdateResync(t *testing.T) {
	t.Parallel()

	l := New()
	l.Update("route", 3, 2, 200*time.Millisecond)

	// Two permits left: both must be immediate.
	for i := 0; i < 2; i++ {
		start := time.Now()
		if err := l.Acquire(context.Background(), "route"); err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
			t.Errorf("permit %d delayed by %v", i, elapsed)
		}
	}

	// The server refreshes the quota early; the next caller must not wait.
	l.Update("route", 3, 3, 200*time.Millisecond)
	start := time.Now()
	if err := l.Acquire(context.Background(), "route"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("resynced bucket delayed caller by %v", elapsed)
	}
}
