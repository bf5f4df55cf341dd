// Package ratelimit tracks per-route and global quota buckets for outbound
// requests. Bucket state is fed back from server response headers and is
// never visible to callers; an exhausted bucket delays only its own
// callers, while the global bucket pauses every route.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// GlobalBucket is the distinguished bucket key that pauses all routes.
const GlobalBucket = "global"

// Limiter gates outbound requests against shared quota buckets.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	globalMu    sync.RWMutex
	globalUntil time.Time
}

// bucket tracks one route's quota: {remaining, reset-at, limit}. The sem
// channel serializes waiters so requests proceed in submission order per
// bucket; unrelated buckets never contend.
type bucket struct {
	sem chan struct{}

	mu        sync.Mutex
	known     bool
	limit     int
	remaining int
	reset     time.Time
	window    time.Duration
}

// New returns an empty limiter. Buckets are created on first use and stay
// permissive until the first Update teaches them their server-side quota.
func New() *Limiter {
	return &Limiter{buckets: make(map[string]*bucket)}
}

func (l *Limiter) bucket(key string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{sem: make(chan struct{}, 1)}
		l.buckets[key] = b
	}
	return b
}

// Acquire blocks until the bucket grants a permit or ctx is cancelled.
// While the global bucket is exhausted every Acquire waits first.
func (l *Limiter) Acquire(ctx context.Context, key string) error {
	b := l.bucket(key)

	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-b.sem }()

	if err := l.waitGlobal(ctx); err != nil {
		return err
	}

	b.mu.Lock()
	if !b.known {
		b.mu.Unlock()
		return nil
	}
	if b.remaining > 0 {
		b.remaining--
		b.mu.Unlock()
		return nil
	}
	wait := time.Until(b.reset)
	b.mu.Unlock()

	if wait > 0 {
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}

	// The window elapsed: refill optimistically and take one permit. The
	// next response re-syncs whatever the server actually thinks.
	b.mu.Lock()
	b.remaining = b.limit - 1
	if b.remaining < 0 {
		b.remaining = 0
	}
	b.reset = time.Now().Add(b.window)
	b.mu.Unlock()
	return nil
}

// Update re-syncs a bucket from server-provided quota state. resetAfter is
// the delay until the bucket refills, as reported by the response.
func (l *Limiter) Update(key string, limit, remaining int, resetAfter time.Duration) {
	if key == GlobalBucket {
		l.PauseAll(time.Now().Add(resetAfter))
		return
	}

	b := l.bucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.known = true
	b.limit = limit
	b.remaining = remaining
	b.reset = time.Now().Add(resetAfter)
	if resetAfter > 0 {
		b.window = resetAfter
	}
}

// PauseAll suspends every bucket until the given instant. Later deadlines
// extend the pause; earlier ones never shorten it.
func (l *Limiter) PauseAll(until time.Time) {
	l.globalMu.Lock()
	defer l.globalMu.Unlock()
	if until.After(l.globalUntil) {
		l.globalUntil = until
	}
}

func (l *Limiter) waitGlobal(ctx context.Context) error {
	l.globalMu.RLock()
	until := l.globalUntil
	l.globalMu.RUnlock()

	if wait := time.Until(until); wait > 0 {
		return sleep(ctx, wait)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
