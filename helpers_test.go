package semalock

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/llxisdsh/semalock/internal/park"
)

// newTestPool returns a pool whose abort hook returns, so invariant
// violations surface as *FatalError panics.
func newTestPool(t testing.TB, options ...func(*Config)) *Pool {
	t.Helper()
	opts := []func(*Config){
		WithLogger(zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.InfoLevel)),
		WithAbort(func(string) {}),
	}
	return NewPool(append(opts, options...)...)
}

func mustCarrier(t testing.TB, p *Pool, name string) *Carrier {
	t.Helper()
	c, err := p.NewCarrier(name)
	if err != nil {
		t.Fatalf("NewCarrier(%q): %v", name, err)
	}
	return c
}

func expectFatal(t *testing.T, want string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		fe, ok := r.(*FatalError)
		if !ok {
			t.Fatalf("expected fatal error %q, got %v", want, r)
		}
		if !strings.Contains(fe.Msg, want) {
			t.Fatalf("fatal error = %q, want %q", fe.Msg, want)
		}
	}()
	fn()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitClosed(t *testing.T, done <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// countingBackend wraps the system backend, counting yields and letting
// tests pretend to run on a given number of CPUs or swap semaphores.
type countingBackend struct {
	park.System
	ncpu      int
	procYield atomic.Int32
	osYield   atomic.Int32
	newSema   func(inner Sema) Sema
}

func (b *countingBackend) NumCPU() int {
	return b.ncpu
}

func (b *countingBackend) ProcYield(cycles uint32) {
	b.procYield.Add(1)
	b.System.ProcYield(cycles)
}

func (b *countingBackend) OSYield() {
	b.osYield.Add(1)
	b.System.OSYield()
}

func (b *countingBackend) NewSema() Sema {
	s := b.System.NewSema()
	if b.newSema != nil {
		return b.newSema(s)
	}
	return s
}

// hookSema runs onTimed instead of the first timed sleep and reports a
// timeout, simulating a wakeup that races with the deadline. onSleep runs
// at the start of every sleep.
type hookSema struct {
	inner   Sema
	onTimed func()
	onSleep func()
	// spurious is the number of timed sleeps that return false at once.
	spurious atomic.Int32
	// broken makes untimed sleeps fail.
	broken bool
}

func (s *hookSema) Sleep(ns int64) bool {
	if s.onSleep != nil {
		s.onSleep()
	}
	if ns >= 0 {
		if f := s.onTimed; f != nil {
			s.onTimed = nil
			f()
			return false
		}
		if s.spurious.Add(-1) >= 0 {
			return false
		}
	}
	if ns < 0 && s.broken {
		return false
	}
	return s.inner.Sleep(ns)
}

func (s *hookSema) Wakeup() {
	s.inner.Wakeup()
}

type recordingScheduler struct {
	enter     atomic.Int32
	exit      atomic.Int32
	preempt   atomic.Int32
	inSyscall atomic.Bool
}

func (s *recordingScheduler) EnterSyscallBlock(*Carrier) {
	s.enter.Add(1)
	s.inSyscall.Store(true)
}

func (s *recordingScheduler) ExitSyscall(*Carrier) {
	s.exit.Add(1)
	s.inSyscall.Store(false)
}

func (s *recordingScheduler) Preempt(*Carrier) {
	s.preempt.Add(1)
}
