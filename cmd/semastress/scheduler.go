package main

import (
	"sync/atomic"

	"github.com/llxisdsh/semalock"
)

// scheduler stands in for a task scheduler: it only counts the calls the
// pool makes into it.
type scheduler struct {
	syscalls   atomic.Int64
	inSyscall  atomic.Int64
	preempts   atomic.Int64
	safepoints atomic.Int64

	contended atomic.Uint64
	parks     atomic.Uint64
	wakeups   atomic.Uint64
	timeouts  atomic.Uint64
}

func (s *scheduler) EnterSyscallBlock(*semalock.Carrier) {
	s.syscalls.Add(1)
	s.inSyscall.Add(1)
}

func (s *scheduler) ExitSyscall(*semalock.Carrier) {
	s.inSyscall.Add(-1)
}

func (s *scheduler) Preempt(*semalock.Carrier) {
	s.preempts.Add(1)
}

func (s *scheduler) record(st semalock.Stats) {
	s.contended.Add(st.Contended)
	s.parks.Add(st.Parks)
	s.wakeups.Add(st.Wakeups)
	s.timeouts.Add(st.Timeouts)
}

func (s *scheduler) totals() semalock.Stats {
	return semalock.Stats{
		Contended: s.contended.Load(),
		Parks:     s.parks.Load(),
		Wakeups:   s.wakeups.Load(),
		Timeouts:  s.timeouts.Load(),
	}
}
