package semalock

import (
	"sync/atomic"
)

const (
	statContended = iota
	statParks
	statWakeups
	statTimeouts
)

// Stats are event counters of a carrier, or of a pool summed over its
// registered carriers.
type Stats struct {
	// Contended counts Lock calls that missed the fast path.
	Contended uint64
	// Parks counts semaphore sleeps.
	Parks uint64
	// Wakeups counts semaphore wakeups delivered to the carrier.
	Wakeups uint64
	// Timeouts counts timed Note waits that ended without a wakeup.
	Timeouts uint64
}

func (s *Stats) add(o Stats) {
	s.Contended += o.Contended
	s.Parks += o.Parks
	s.Wakeups += o.Wakeups
	s.Timeouts += o.Timeouts
}

// Stats returns a snapshot of the carrier's counters.
func (c *Carrier) Stats() Stats {
	return Stats{
		Contended: uint64(atomic.LoadUintptr(&c.stats.C[statContended])),
		Parks:     uint64(atomic.LoadUintptr(&c.stats.C[statParks])),
		Wakeups:   uint64(atomic.LoadUintptr(&c.stats.C[statWakeups])),
		Timeouts:  uint64(atomic.LoadUintptr(&c.stats.C[statTimeouts])),
	}
}

//go:nosplit
func (c *Carrier) count(i int) {
	atomic.AddUintptr(&c.stats.C[i], 1)
}
