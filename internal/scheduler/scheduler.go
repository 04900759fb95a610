// Package scheduler provides the single-threaded cooperative scheduler that
// drives every loop of the overlay runtime.
//
// Exactly one callback runs at a time and each runs to completion. Blocking
// work (HTTP calls, page rendering) runs off-loop through Go or Call and
// resumes exactly one continuation on the loop. State owned by loop
// callbacks therefore needs no locking.
package scheduler

import (
	"context"
	"time"
)

// Timer is a pending delayed callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the
	// callback was still pending.
	Stop() bool
}

// Scheduler dispatches callbacks one at a time.
type Scheduler interface {
	// Now returns the scheduler's notion of the current time.
	Now() time.Time
	// Post enqueues fn to run on the loop. Safe to call from any goroutine.
	Post(fn func())
	// AfterFunc runs fn on the loop once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
	// Go runs blocking work off the loop. work must hand results back via Post.
	Go(work func())
}

// Call runs work off-loop and posts done with its result. done always runs
// exactly once, on the loop.
func Call[T any](s Scheduler, work func() (T, error), done func(T, error)) {
	s.Go(func() {
		v, err := work()
		s.Post(func() { done(v, err) })
	})
}

// Exec runs fn on the loop and waits for it to return. It is the entry point
// for foreign goroutines such as HTTP handlers.
func Exec(ctx context.Context, s Scheduler, fn func()) error {
	done := make(chan struct{})
	s.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Query runs fn on the loop and returns its result.
func Query[T any](ctx context.Context, s Scheduler, fn func() T) (T, error) {
	var v T
	err := Exec(ctx, s, func() { v = fn() })
	return v, err
}
