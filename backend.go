package semalock

import "github.com/llxisdsh/semalock/internal/park"

// Sema is the per-carrier semaphore a Backend hands out.
//
//   - Sleep(ns < 0): block until woken, return true.
//   - Sleep(ns >= 0): block up to ns nanoseconds; true if woken within it,
//     false on timeout or interruption.
//   - Wakeup: wake the carrier parked, or about to park, on this semaphore.
type Sema = park.Sema

// Backend supplies the OS services Mutex and Note block on.
type Backend interface {
	// NewSema creates a carrier semaphore. It must never return nil, nor a
	// nil pointer of a Sema type.
	NewSema() Sema
	// Nanotime reads a monotonic, nanosecond resolution clock.
	Nanotime() int64
	// ProcYield spins the CPU for about the given number of cycles.
	ProcYield(cycles uint32)
	// OSYield gives the OS thread's time slice away.
	OSYield()
	// NumCPU reports how many CPUs can run carriers in parallel.
	NumCPU() int
}

// Scheduler is the cooperative task scheduler running on the carriers.
type Scheduler interface {
	// EnterSyscallBlock is called before a carrier blocks in
	// TimedSleepFromTask, so that another carrier can run tasks meanwhile.
	EnterSyscallBlock(c *Carrier)
	// ExitSyscall is called once the carrier is done blocking, on every
	// return path.
	ExitSyscall(c *Carrier)
	// Preempt re-arms a preemption request for c. It is called from
	// RequestPreempt when c holds no locks, and from Unlock when c releases
	// its last lock with a request still pending.
	Preempt(c *Carrier)
}

type nopScheduler struct{}

func (nopScheduler) EnterSyscallBlock(*Carrier) {}
func (nopScheduler) ExitSyscall(*Carrier)       {}
func (nopScheduler) Preempt(*Carrier)           {}
