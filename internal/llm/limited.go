package llm

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter caps the number of generative calls in flight across every caller
// sharing it. Callers hold a slot only around the call itself, so queueing
// time never counts against a per-call timeout started after Acquire.
type Limiter struct {
	sem *semaphore.Weighted
}

func NewLimiter(maxInFlight int) *Limiter {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(maxInFlight))}
}

// Acquire blocks until a slot is free or ctx is done. The returned func
// releases the slot.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { l.sem.Release(1) }, nil
}
