package semalock

import (
	"sync/atomic"
)

// mutexLocked is bit 0 of a Mutex word.
const mutexLocked = 1

// Mutex is a spin-then-block mutual exclusion lock for carriers.
//
// The whole state lives in one word:
//
//	0                 unlocked, no waiters
//	1                 locked, no waiters
//	head<<1 | 1       locked, head is the most recently queued waiter
//	head<<1           unlocked, waiters still queued
//
// Waiters form a stack linked through each carrier's nextWait field, so the
// most recently queued waiter is woken first. There is no fairness and no
// starvation bound: unlock hands the word back and every woken waiter must
// win it again.
//
// The zero value is an unlocked Mutex. All carriers using a Mutex must
// belong to the same Pool.
//
// Lock and Unlock never allocate once the carrier has its semaphore.
type Mutex struct {
	_   noCopy
	key atomic.Uintptr
}

// Lock acquires m for carrier c, spinning then parking while it is held.
// It aborts the process if c's held-lock counter is corrupted.
func (m *Mutex) Lock(c *Carrier) {
	c.acquireCount()

	// Speculative grab for lock.
	if m.key.CompareAndSwap(0, mutexLocked) {
		return
	}
	m.lockSlow(c)
}

func (m *Mutex) lockSlow(c *Carrier) {
	p := c.pool
	c.ensureSema()
	c.count(statContended)

	// On a uniprocessor nobody can release the lock while we spin.
	spin := 0
	if p.ncpu > 1 {
		spin = p.activeSpin
	}

	for i := 0; ; i++ {
		v := m.key.Load()
		if v&mutexLocked == 0 {
			if m.key.CompareAndSwap(v, v|mutexLocked) {
				return
			}
			i = 0
		}
		switch {
		case i < spin:
			p.backend.ProcYield(p.activeSpinCnt)
		case i < spin+p.passiveSpin:
			p.backend.OSYield()
		default:
			if !m.enqueue(c, v) {
				// Released while queueing.
				continue
			}
			c.semasleep(-1)
			i = -1
		}
	}
}

// enqueue pushes c on the waiter stack of m, starting from the observed
// word v. It reports false, without queueing, once m is seen unlocked.
func (m *Mutex) enqueue(c *Carrier, v uintptr) bool {
	for {
		if v&mutexLocked == 0 {
			return false
		}
		c.nextWait.Store(v &^ mutexLocked)
		if m.key.CompareAndSwap(v, c.word()|mutexLocked) {
			return true
		}
		v = m.key.Load()
	}
}

// TryLock acquires m for c only if it is free right now, without spinning
// or parking.
func (m *Mutex) TryLock(c *Carrier) bool {
	c.acquireCount()
	if m.key.CompareAndSwap(0, mutexLocked) {
		return true
	}
	// A preemption request may have been deferred while the counter was up.
	c.releaseCount()
	return false
}

// Unlock releases m and wakes the most recently queued waiter, if any.
//
// When c's held-lock counter drops to zero and a preemption request was
// deferred meanwhile, the request is re-armed through the Scheduler.
func (m *Mutex) Unlock(c *Carrier) {
	p := c.pool
	for {
		v := m.key.Load()
		if v == mutexLocked {
			if m.key.CompareAndSwap(mutexLocked, 0) {
				break
			}
			continue
		}
		if v&mutexLocked == 0 {
			p.throw("unlock of unlocked mutex", c, v)
		}
		// Pop the head waiter; the word becomes the rest of the stack,
		// unlocked.
		w := p.carrierAt(v)
		if m.key.CompareAndSwap(v, w.nextWait.Load()) {
			w.semawakeup()
			break
		}
	}
	c.releaseCount()
}
