package semalock

import (
	"reflect"
	"sync/atomic"

	"github.com/llxisdsh/semalock/internal/opt"
)

// Carrier is the record of one worker thread. It owns the semaphore the
// worker parks on and the bookkeeping Mutex and Note need about it.
//
// A Carrier must be driven by one goroutine at a time, and every Mutex and
// Note call takes the calling carrier explicitly.
type Carrier struct {
	_    noCopy
	pool *Pool
	id   uint32
	name string

	// sema is created lazily by the carrier itself and published to other
	// carriers by the CAS that queues or registers it.
	sema Sema

	// nextWait links the carrier into a Mutex waiter stack. It holds the
	// previous stack word without the locked bit and is meaningful only
	// while the carrier is queued on exactly one Mutex.
	nextWait atomic.Uintptr

	// locks counts the Mutexes held. Preemption is deferred while it is
	// non-zero.
	locks atomic.Int32

	blocked atomic.Bool
	preempt atomic.Bool
	task    atomic.Bool

	stats opt.Stripe_
}

// ID returns the carrier's index in the pool table. It is never zero.
func (c *Carrier) ID() uint32 {
	return c.id
}

// Name returns the name the carrier was registered with.
func (c *Carrier) Name() string {
	return c.name
}

// Pool returns the pool the carrier belongs to.
func (c *Carrier) Pool() *Pool {
	return c.pool
}

// Locks returns the number of Mutexes the carrier holds.
func (c *Carrier) Locks() int32 {
	return c.locks.Load()
}

// Blocked reports whether the carrier is parked in a Note wait.
func (c *Carrier) Blocked() bool {
	return c.blocked.Load()
}

// InTask reports whether the carrier is running task code (see RunTask).
func (c *Carrier) InTask() bool {
	return c.task.Load()
}

// RunTask runs fn in the carrier's task context. Outside of RunTask the
// carrier is in its bookkeeping context, where Sleep and TimedSleep are
// allowed; inside it only TimedSleepFromTask is.
func (c *Carrier) RunTask(fn func()) {
	if !c.task.CompareAndSwap(false, true) {
		panic("semalock: nested RunTask")
	}
	defer c.task.Store(false)
	fn()
}

// RequestPreempt asks the scheduler to preempt the carrier. While the
// carrier holds a lock the request stays pending and is re-armed when the
// last lock is released.
func (c *Carrier) RequestPreempt() {
	c.preempt.Store(true)
	if c.locks.Load() == 0 {
		c.pool.sched.Preempt(c)
	}
}

// Safepoint consumes a pending preemption request. It reports false while
// the carrier holds any lock, leaving the request pending.
func (c *Carrier) Safepoint() bool {
	if !c.preempt.Load() || c.locks.Load() != 0 {
		return false
	}
	return c.preempt.CompareAndSwap(true, false)
}

// word is the carrier's encoding in a Mutex or Note word.
//
//go:nosplit
func (c *Carrier) word() uintptr {
	return uintptr(c.id) << 1
}

func (c *Carrier) ensureSema() {
	if c.sema != nil {
		return
	}
	s := c.pool.backend.NewSema()
	if isNilSema(s) {
		c.pool.throw("semacreate returned no semaphore", c, 0)
	}
	c.sema = s
	c.pool.log.Debug().Uint32("carrier", c.id).Msg("semaphore created")
}

// isNilSema also catches a nil pointer wrapped in the interface.
func isNilSema(s Sema) bool {
	if s == nil {
		return true
	}
	v := reflect.ValueOf(s)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface, reflect.Slice:
		return v.IsNil()
	}
	return false
}

func (c *Carrier) semasleep(ns int64) bool {
	c.count(statParks)
	return c.sema.Sleep(ns)
}

// semawakeup wakes c, which is parked or about to park.
func (c *Carrier) semawakeup() {
	c.count(statWakeups)
	c.sema.Wakeup()
}

func (c *Carrier) acquireCount() {
	if c.locks.Add(1) <= 0 {
		c.pool.throw("lock: lock count", c, 0)
	}
}

func (c *Carrier) releaseCount() {
	n := c.locks.Add(-1)
	if n < 0 {
		c.pool.throw("unlock: lock count", c, 0)
	}
	if n == 0 && c.preempt.Load() {
		// A preemption request arrived while a lock was held.
		c.pool.sched.Preempt(c)
	}
}

// syscallScope brackets a blocking wait issued from task context.
type syscallScope struct {
	c *Carrier
}

func (c *Carrier) enterSyscallBlock() syscallScope {
	c.pool.sched.EnterSyscallBlock(c)
	return syscallScope{c: c}
}

func (s syscallScope) exit() {
	s.c.pool.sched.ExitSyscall(s.c)
}
