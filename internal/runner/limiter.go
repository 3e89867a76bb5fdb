package runner

// limiter.go bounds how many validation runs execute at once.
//
// When all slots are taken, new runs wait up to maxWait before failing with
// ErrTooManyRuns. WaitForDrain blocks until every active run has finished,
// which the server uses during graceful shutdown.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyRuns is returned when all run slots are occupied and the wait
// timeout expires. Clients should retry after a short delay.
var ErrTooManyRuns = errors.New("too many concurrent runs, please try again later")

// DefaultMaxConcurrentRuns is the default limit for parallel runs.
const DefaultMaxConcurrentRuns = 2

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 5 * time.Second

// Limiter controls concurrent runs with a weighted semaphore.
type Limiter struct {
	sem     *semaphore.Weighted
	max     int64
	maxWait time.Duration
	active  atomic.Int64
}

// NewLimiter creates a limiter that allows at most maxConcurrent runs.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRuns
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &Limiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     int64(maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits for a run slot.
// Returns nil on success, ErrTooManyRuns if the wait times out, or the
// context error if ctx ends first. The caller must call Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyRuns
	}
	l.active.Add(1)
	return nil
}

// TryAcquire takes a slot without blocking.
func (l *Limiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.active.Add(1)
	return true
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *Limiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// ActiveCount returns the number of runs holding a slot.
func (l *Limiter) ActiveCount() int { return int(l.active.Load()) }

// MaxConcurrent returns the configured slot count.
func (l *Limiter) MaxConcurrent() int { return int(l.max) }

// Available returns the number of free slots.
func (l *Limiter) Available() int { return int(l.max - l.active.Load()) }

// WaitForDrain blocks until no run holds a slot or ctx ends. New runs cannot
// start while it waits.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, l.max); err != nil {
		return err
	}
	l.sem.Release(l.max)
	return nil
}

// LimiterStatus is a snapshot of the limiter's state.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *Limiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: l.MaxConcurrent(),
	}
}
