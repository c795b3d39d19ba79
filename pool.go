package semalock

import (
	"errors"
	"os"
	"runtime"
	"strconv"
	"sync/atomic"

	"github.com/llxisdsh/pb"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/llxisdsh/semalock/internal/park"
)

var (
	// ErrPoolFull is returned when every carrier id of the pool is taken.
	ErrPoolFull = errors.New("semalock: carrier table is full")
	// ErrDuplicateName is returned when a carrier name is already registered.
	ErrDuplicateName = errors.New("semalock: duplicate carrier name")
	// ErrCarrierBusy is returned when retiring a carrier that holds locks,
	// is parked, or runs a task.
	ErrCarrierBusy = errors.New("semalock: carrier is busy")
)

// FatalError is the panic value raised when the abort hook returns after an
// invariant violation.
type FatalError struct {
	Msg string
}

func (e *FatalError) Error() string {
	return "semalock: fatal error: " + e.Msg
}

// Pool is the carrier table shared by the Mutexes and Notes its carriers
// use. Words of a Mutex or Note hold carrier ids, so a given Mutex or Note
// must only ever be used by carriers of one pool.
type Pool struct {
	_ noCopy

	backend Backend
	sched   Scheduler
	log     zerolog.Logger
	abort   func(msg string)

	ncpu          int
	activeSpin    int
	activeSpinCnt uint32
	passiveSpin   int

	// carriers[0] is never set; id 0 means "no carrier".
	carriers []atomic.Pointer[Carrier]
	lastID   atomic.Uint32
	names    pb.MapOf[string, *Carrier]
}

// NewPool creates a carrier pool.
func NewPool(options ...func(*Config)) *Pool {
	cfg := &Config{
		capacity:      defaultCapacity,
		activeSpin:    defaultActiveSpin,
		activeSpinCnt: defaultActiveSpinCnt,
		passiveSpin:   defaultPassiveSpin,
	}
	for _, o := range options {
		o(cfg)
	}
	if cfg.backend == nil {
		cfg.backend = &park.System{}
	}
	if cfg.scheduler == nil {
		cfg.scheduler = nopScheduler{}
	}
	if cfg.logger == nil {
		cfg.logger = &log.Logger
	}
	if cfg.abort == nil {
		cfg.abort = func(string) { os.Exit(2) }
	}

	p := &Pool{
		backend:       cfg.backend,
		sched:         cfg.scheduler,
		log:           cfg.logger.With().Str("component", "semalock").Logger(),
		abort:         cfg.abort,
		ncpu:          cfg.backend.NumCPU(),
		activeSpin:    cfg.activeSpin,
		activeSpinCnt: cfg.activeSpinCnt,
		passiveSpin:   cfg.passiveSpin,
		carriers:      make([]atomic.Pointer[Carrier], cfg.capacity+1),
	}
	p.log.Debug().
		Int("ncpu", p.ncpu).
		Int("capacity", cfg.capacity).
		Int("active_spin", p.activeSpin).
		Int("passive_spin", p.passiveSpin).
		Msg("pool started")
	return p
}

// NewCarrier registers a carrier. An empty name is replaced by one derived
// from the carrier id.
//
// The carrier is not bound to any goroutine; the caller must make sure only
// one goroutine at a time acts as it. Run does this for you.
func (p *Pool) NewCarrier(name string) (*Carrier, error) {
	if name != "" {
		if _, ok := p.names.Load(name); ok {
			return nil, ErrDuplicateName
		}
	}
	var id uint32
	for {
		last := p.lastID.Load()
		if int(last)+1 >= len(p.carriers) {
			return nil, ErrPoolFull
		}
		if p.lastID.CompareAndSwap(last, last+1) {
			id = last + 1
			break
		}
	}
	if name == "" {
		name = "carrier-" + strconv.FormatUint(uint64(id), 10)
	}
	c := &Carrier{pool: p, id: id, name: name}
	if _, loaded := p.names.LoadOrStore(name, c); loaded {
		// The id is burned; ids are never handed out twice.
		return nil, ErrDuplicateName
	}
	p.carriers[id].Store(c)
	p.log.Debug().Uint32("carrier", id).Str("name", name).Msg("carrier registered")
	return c, nil
}

// Retire removes c from the pool. A carrier that holds locks, is parked or
// runs a task cannot be retired.
func (p *Pool) Retire(c *Carrier) error {
	if c.pool != p {
		p.throw("retire: carrier of another pool", c, 0)
	}
	if c.locks.Load() != 0 || c.blocked.Load() || c.task.Load() {
		return ErrCarrierBusy
	}
	if !p.carriers[c.id].CompareAndSwap(c, nil) {
		return nil
	}
	p.names.Delete(c.name)
	p.log.Debug().Uint32("carrier", c.id).Str("name", c.name).Msg("carrier retired")
	return nil
}

// Run registers a carrier named name, binds it to the calling goroutine
// locked to its OS thread, and calls fn with it. The carrier is retired
// when fn returns.
func (p *Pool) Run(name string, fn func(c *Carrier) error) error {
	c, err := p.NewCarrier(name)
	if err != nil {
		return err
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	err = fn(c)
	if rerr := p.Retire(c); err == nil {
		err = rerr
	}
	return err
}

// Lookup returns the registered carrier with the given name.
func (p *Pool) Lookup(name string) (*Carrier, bool) {
	return p.names.Load(name)
}

// Range calls f for each registered carrier. Iteration stops when f
// returns false.
func (p *Pool) Range(f func(c *Carrier) bool) {
	p.names.Range(func(_ string, c *Carrier) bool {
		return f(c)
	})
}

// Blocked returns the names of the carriers currently parked on their
// semaphore inside a Note wait.
func (p *Pool) Blocked() []string {
	var names []string
	p.Range(func(c *Carrier) bool {
		if c.Blocked() {
			names = append(names, c.name)
		}
		return true
	})
	return names
}

// Stats sums the counters of all registered carriers.
func (p *Pool) Stats() Stats {
	var s Stats
	p.Range(func(c *Carrier) bool {
		s.add(c.Stats())
		return true
	})
	return s
}

// carrierAt resolves the carrier id stored in a Mutex or Note word.
func (p *Pool) carrierAt(v uintptr) *Carrier {
	id := v >> 1
	if id == 0 || id >= uintptr(len(p.carriers)) {
		p.throw("bad carrier id in word", nil, v)
	}
	c := p.carriers[id].Load()
	if c == nil {
		p.throw("word refers to a retired carrier", nil, v)
	}
	return c
}

// throw reports an invariant violation and terminates the process.
func (p *Pool) throw(msg string, c *Carrier, key uintptr) {
	e := p.log.WithLevel(zerolog.FatalLevel).Uint64("key", uint64(key))
	if c != nil {
		e = e.Uint32("carrier", c.id).Str("name", c.name).Int32("locks", c.locks.Load())
	}
	e.Msg(msg)

	p.abort(msg)
	panic(&FatalError{Msg: msg})
}
