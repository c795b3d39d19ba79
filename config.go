package semalock

import (
	"github.com/rs/zerolog"

	"github.com/llxisdsh/semalock/internal/opt"
	"github.com/llxisdsh/semalock/internal/park"
)

// ============================================================================
// Configuration
// ============================================================================

const (
	defaultCapacity = 1024
	// maxCapacity keeps (id << 1) | 1 inside a 32-bit word.
	maxCapacity = 1<<30 - 1

	defaultActiveSpin    = 4
	defaultActiveSpinCnt = opt.ActiveSpinCnt_
	defaultPassiveSpin   = 1
)

// Config defines configurable options for Pool initialization.
type Config struct {
	// backend provides semaphores, the clock and yield hints.
	// If nil, the platform backend from internal/park is used.
	backend Backend

	// scheduler is notified around blocking task-context waits and when a
	// deferred preemption request must be re-armed. If nil, a no-op
	// scheduler is used.
	scheduler Scheduler

	// logger receives pool lifecycle events at debug level and invariant
	// violations at fatal level. If nil, the global zerolog logger is used.
	logger *zerolog.Logger

	// abort terminates the process after an invariant violation has been
	// logged. It must not return. If nil, the process exits with status 2.
	abort func(msg string)

	// capacity is the number of carriers the pool can register over its
	// lifetime. Carrier ids are never reused.
	capacity int

	// activeSpin is the number of ProcYield rounds a contended Lock makes
	// on a multiprocessor before falling back to OS yields.
	activeSpin int

	// activeSpinCnt is the number of cycles passed to each ProcYield.
	activeSpinCnt uint32

	// passiveSpin is the number of OSYield rounds before queueing.
	passiveSpin int
}

// WithBackend sets the park/unpark backend.
func WithBackend(b Backend) func(*Config) {
	return func(c *Config) {
		c.backend = b
	}
}

// WithPortableBackend selects the x/sync/semaphore based backend on every
// platform instead of the native one.
func WithPortableBackend() func(*Config) {
	return func(c *Config) {
		c.backend = &park.System{Portable: true}
	}
}

// WithScheduler sets the scheduler collaborator.
func WithScheduler(s Scheduler) func(*Config) {
	return func(c *Config) {
		c.scheduler = s
	}
}

// WithLogger sets the logger used for lifecycle events and fatal
// diagnostics.
func WithLogger(l zerolog.Logger) func(*Config) {
	return func(c *Config) {
		c.logger = &l
	}
}

// WithAbort replaces the process termination hook. The hook must not
// return; if it does, the pool panics with a *FatalError instead of
// continuing with corrupted state.
func WithAbort(abort func(msg string)) func(*Config) {
	return func(c *Config) {
		c.abort = abort
	}
}

// WithCapacity sets how many carriers the pool can register. If cap is
// zero or negative, the value is ignored.
func WithCapacity(cap int) func(*Config) {
	return func(c *Config) {
		if cap > 0 {
			c.capacity = min(cap, maxCapacity)
		}
	}
}

// WithActiveSpin sets the active spin budget of a contended Lock: rounds
// of ProcYield(cycles). Zero rounds disables active spinning.
func WithActiveSpin(rounds int, cycles uint32) func(*Config) {
	return func(c *Config) {
		c.activeSpin = max(rounds, 0)
		c.activeSpinCnt = cycles
	}
}

// WithPassiveSpin sets the number of OSYield rounds a contended Lock makes
// before queueing.
func WithPassiveSpin(rounds int) func(*Config) {
	return func(c *Config) {
		c.passiveSpin = max(rounds, 0)
	}
}
