package semalock

import (
	"sync/atomic"
	"time"
)

// noteFired is the Note word after a wakeup. Carrier words are even, so it
// never collides with a registered waiter.
const noteFired = 1

// Note is a one-shot wakeup with at most one waiter.
//
// The word is 0 (cleared), a registered carrier, or fired. The owner calls
// Clear before each use; between two Clears exactly one Wakeup is allowed
// and exactly one sleeper observes it, whether it registered before or
// after the Wakeup.
//
// The zero value is a cleared Note. All carriers using a Note must belong
// to the same Pool.
type Note struct {
	_   noCopy
	key atomic.Uintptr
}

// Clear resets n. No waiter or waker may be active on n concurrently.
func (n *Note) Clear() {
	n.key.Store(0)
}

// Fired reports whether n has been woken and not cleared since.
func (n *Note) Fired() bool {
	return n.key.Load() == noteFired
}

// Wakeup fires n on behalf of carrier c. See Pool.Wakeup.
func (n *Note) Wakeup(c *Carrier) {
	c.pool.Wakeup(n)
}

// Wakeup fires n, waking its registered waiter if there is one. A second
// Wakeup before the next Clear aborts the process.
//
// It may be called from any goroutine, carrier or not.
func (p *Pool) Wakeup(n *Note) {
	var v uintptr
	for {
		v = n.key.Load()
		if n.key.CompareAndSwap(v, noteFired) {
			break
		}
	}

	switch v {
	case 0:
		// Nothing was waiting. The next sleeper returns at once.
	case noteFired:
		p.throw("notewakeup - double wakeup", nil, v)
	default:
		p.carrierAt(v).semawakeup()
	}
}

// Sleep blocks c until n is woken. It must be called from c's bookkeeping
// context, never from inside RunTask.
func (n *Note) Sleep(c *Carrier) {
	p := c.pool
	if c.task.Load() {
		p.throw("notesleep not on bookkeeping context", c, 0)
	}
	c.ensureSema()
	if !n.key.CompareAndSwap(0, c.word()) {
		// Must be fired (got wakeup already).
		if v := n.key.Load(); v != noteFired {
			p.throw("notesleep - waiter out of sync", c, v)
		}
		return
	}
	// Registered. Wakeup owns the transition from here, and only posts the
	// semaphore after it, so the wakeup cannot be lost.
	c.blocked.Store(true)
	c.semasleep(-1)
	c.blocked.Store(false)
}

// TimedSleep blocks c until n is woken or ns nanoseconds have passed, and
// reports whether it was woken. ns < 0 waits without a timeout.
//
// On return n is either cleared with c unregistered (false) or fired with
// the wakeup consumed (true). It must be called from c's bookkeeping
// context.
func (n *Note) TimedSleep(c *Carrier, ns int64) bool {
	if c.task.Load() {
		c.pool.throw("notetsleep not on bookkeeping context", c, 0)
	}
	c.ensureSema()
	return n.tsleep(c, ns)
}

// TimedSleepFromTask is TimedSleep for task code running inside RunTask.
// The wait is bracketed by Scheduler.EnterSyscallBlock and
// Scheduler.ExitSyscall so the scheduler can replace the blocked carrier.
func (n *Note) TimedSleepFromTask(c *Carrier, ns int64) bool {
	if !c.task.Load() {
		c.pool.throw("notetsleepg on bookkeeping context", c, 0)
	}
	c.ensureSema()

	s := c.enterSyscallBlock()
	defer s.exit()
	return n.tsleep(c, ns)
}

// TimedSleepFor is TimedSleep with a time.Duration.
func (n *Note) TimedSleepFor(c *Carrier, d time.Duration) bool {
	return n.TimedSleep(c, int64(d))
}

// TimedSleepFromTaskFor is TimedSleepFromTask with a time.Duration.
func (n *Note) TimedSleepFromTaskFor(c *Carrier, d time.Duration) bool {
	return n.TimedSleepFromTask(c, int64(d))
}

func (n *Note) tsleep(c *Carrier, ns int64) bool {
	p := c.pool
	me := c.word()

	// Register for wakeup on n.
	if !n.key.CompareAndSwap(0, me) {
		if v := n.key.Load(); v != noteFired {
			p.throw("notetsleep - waiter out of sync", c, v)
		}
		return true
	}

	if ns < 0 {
		c.blocked.Store(true)
		c.semasleep(-1)
		c.blocked.Store(false)
		return true
	}

	deadline := p.backend.Nanotime() + ns
	for {
		c.blocked.Store(true)
		if c.semasleep(ns) {
			// Acquired the semaphore; Wakeup unregistered us.
			c.blocked.Store(false)
			return true
		}
		c.blocked.Store(false)

		// Interrupted or timed out. Still registered.
		ns = deadline - p.backend.Nanotime()
		if ns <= 0 {
			break
		}
	}

	// Deadline arrived, still registered, semaphore not acquired. A Wakeup
	// racing with us must not be allowed to post a semaphore nobody takes.
	for {
		v := n.key.Load()
		switch v {
		case me:
			if n.key.CompareAndSwap(me, 0) {
				c.count(statTimeouts)
				return false
			}
		case noteFired:
			// Wakeup happened, so the semaphore is (about to be) posted.
			// Take it to keep the count in sync.
			c.blocked.Store(true)
			if !c.semasleep(-1) {
				p.throw("unable to acquire - semaphore out of sync", c, v)
			}
			c.blocked.Store(false)
			return true
		default:
			p.throw("unexpected waiter - semaphore out of sync", c, v)
		}
	}
}
