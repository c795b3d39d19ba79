package park

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// weightedCap bounds the number of wakeups that may be pending at once.
// A carrier waits on one thing at a time, so in practice it is at most 1.
const weightedCap = 1 << 20

// Weighted is a Sema built on golang.org/x/sync/semaphore. It starts
// with every permit taken, so Wakeup posts a permit and Sleep consumes one.
type Weighted struct {
	w *semaphore.Weighted
}

// NewWeighted returns a Weighted semaphore with no pending wakeups.
func NewWeighted() *Weighted {
	w := semaphore.NewWeighted(weightedCap)
	w.TryAcquire(weightedCap)
	return &Weighted{w: w}
}

// Sleep implements Sema.
func (s *Weighted) Sleep(ns int64) bool {
	if ns < 0 {
		return s.w.Acquire(context.Background(), 1) == nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(ns))
	err := s.w.Acquire(ctx, 1)
	cancel()
	return err == nil
}

// Wakeup implements Sema.
func (s *Weighted) Wakeup() {
	s.w.Release(1)
}
