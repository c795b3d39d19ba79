//go:build linux

package park

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	_FUTEX_WAIT         = 0
	_FUTEX_WAKE         = 1
	_FUTEX_PRIVATE_FLAG = 128

	_FUTEX_WAIT_PRIVATE = _FUTEX_WAIT | _FUTEX_PRIVATE_FLAG
	_FUTEX_WAKE_PRIVATE = _FUTEX_WAKE | _FUTEX_PRIVATE_FLAG
)

// Futex is a counting Sema on a linux futex word.
// The word holds the number of pending wakeups.
type Futex struct {
	count atomic.Uint32
}

func newPlatformSema() Sema {
	return new(Futex)
}

// Sleep implements Sema. A timed sleep makes a single FUTEX_WAIT, so a
// signal or a spurious futex wakeup is reported as false.
func (f *Futex) Sleep(ns int64) bool {
	for {
		if f.tryAcquire() {
			return true
		}
		if ns < 0 {
			futexsleep(&f.count, 0, nil)
			continue
		}
		ts := unix.NsecToTimespec(ns)
		futexsleep(&f.count, 0, &ts)
		return f.tryAcquire()
	}
}

// Wakeup implements Sema.
func (f *Futex) Wakeup() {
	f.count.Add(1)
	futexwakeup(&f.count, 1)
}

func (f *Futex) tryAcquire() bool {
	for {
		v := f.count.Load()
		if v == 0 {
			return false
		}
		if f.count.CompareAndSwap(v, v-1) {
			return true
		}
	}
}

// futexsleep blocks while *addr == val. EINTR, EAGAIN and ETIMEDOUT all
// just return; callers recheck the word.
func futexsleep(addr *atomic.Uint32, val uint32, ts *unix.Timespec) {
	_, _, _ = unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		_FUTEX_WAIT_PRIVATE,
		uintptr(val),
		uintptr(unsafe.Pointer(ts)),
		0, 0)
}

func futexwakeup(addr *atomic.Uint32, cnt uint32) {
	_, _, _ = unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		_FUTEX_WAKE_PRIVATE,
		uintptr(cnt),
		0, 0, 0)
}

func osyield() {
	_, _, _ = unix.RawSyscall(unix.SYS_SCHED_YIELD, 0, 0, 0)
}
