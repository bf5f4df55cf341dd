// Package tasks provides a minimal periodic runner: fire a function every
// interval with crash isolation, so a panicking tick never kills the loop.
package tasks

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Every runs fn every interval until ctx is cancelled or the returned stop
// function is called. Each tick recovers from panics and logs them through
// log (logrus standard logger when nil). Stop is idempotent and safe to
// call concurrently.
func Every(ctx context.Context, interval time.Duration, log logrus.FieldLogger, fn func()) (stop func()) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	tctx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				runIsolated(log, fn)
			case <-tctx.Done():
				return
			}
		}
	}()

	return cancel
}

func runIsolated(log logrus.FieldLogger, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Periodic task panicked")
		}
	}()
	fn()
}
