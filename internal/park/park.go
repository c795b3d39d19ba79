// Package park provides the OS services carriers block on: a per-carrier
// semaphore with optional timeout, a monotonic clock and yield hints.
package park

import (
	"runtime"
	"time"

	"github.com/llxisdsh/semalock/internal/opt"
)

// Sema is a per-carrier semaphore.
//
//   - Sleep(ns < 0) blocks until woken and returns true.
//   - Sleep(ns >= 0) blocks for at most ns nanoseconds and reports whether
//     the semaphore was acquired. false means timed out or interrupted.
//   - Wakeup releases the carrier that is, or will soon be, sleeping on it.
type Sema interface {
	Sleep(ns int64) bool
	Wakeup()
}

// System is the default backend. It hands out the platform semaphore
// (futex on linux, Weighted elsewhere) unless Portable is set.
type System struct {
	// Portable forces Weighted semaphores on every platform.
	Portable bool
}

// NewSema creates a semaphore with no pending wakeups.
func (s *System) NewSema() Sema {
	if s.Portable {
		return NewWeighted()
	}
	return newPlatformSema()
}

// Nanotime returns nanoseconds elapsed on the monotonic clock since the
// package was initialized.
func (*System) Nanotime() int64 {
	return int64(time.Since(epoch))
}

// ProcYield spins for roughly the given number of cycles.
func (*System) ProcYield(cycles uint32) {
	for i := uint32(0); i < cycles; i += opt.ActiveSpinCnt_ {
		opt.DoSpin()
	}
}

// OSYield gives up the time slice of the current OS thread.
func (*System) OSYield() {
	osyield()
}

// NumCPU reports the number of logical CPUs usable by the process.
func (*System) NumCPU() int {
	return runtime.NumCPU()
}

var epoch = time.Now()
