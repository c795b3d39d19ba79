// Command semastress hammers a semalock Mutex and Notes from a set of
// carriers and reports the pool statistics.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/llxisdsh/semalock"
)

type options struct {
	carriers    int
	iters       int
	taskEvery   int
	taskTimeout time.Duration
	preemptTick time.Duration
	portable    bool
	logPath     string
	logLevel    int
	diodeBuf    int
}

func getOptions() options {
	var o options
	flag.IntVar(&o.carriers, "carriers", 8, "number of worker carriers")
	flag.IntVar(&o.iters, "iters", 100000, "lock/unlock rounds per carrier")
	flag.IntVar(&o.taskEvery, "task_every", 1000, "rounds between timed waits from task context (0 disables)")
	flag.DurationVar(&o.taskTimeout, "task_timeout", 50*time.Microsecond, "timeout of the task-context waits")
	flag.DurationVar(&o.preemptTick, "preempt", time.Millisecond, "interval of preemption requests (0 disables)")
	flag.BoolVar(&o.portable, "portable", false, "use the x/sync/semaphore backend instead of the native one")
	flag.StringVar(&o.logPath, "log", "stderr", "log destination: stdout, stderr or a file name")
	flag.IntVar(&o.logLevel, "log_level", 1, "log level: 0-debug 1-info 2-warn 3-error 4-fatal")
	flag.IntVar(&o.diodeBuf, "diode", 0, "size of the diode log buffer (0 disables)")
	flag.Parse()
	return o
}

func main() {
	o := getOptions()
	closer, err := initLogger(o.logPath, o.logLevel, o.diodeBuf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot set up logging: %v\n", err)
		os.Exit(1)
	}
	if err := run(o, closer); err != nil {
		log.Error().Err(err).Msg("stress run failed")
		closer.Close()
		os.Exit(1)
	}
	closer.Close()
}

func run(o options, logs io.Closer) error {
	sched := &scheduler{}
	opts := []func(*semalock.Config){
		semalock.WithScheduler(sched),
		semalock.WithCapacity(o.carriers + 1),
		semalock.WithAbort(func(string) {
			logs.Close()
			os.Exit(2)
		}),
	}
	if o.portable {
		opts = append(opts, semalock.WithPortableBackend())
	}
	pool := semalock.NewPool(opts...)

	var (
		mu        semalock.Mutex
		counter   int
		finished  semalock.Note
		remaining atomic.Int32
		stop      atomic.Bool
	)
	remaining.Store(int32(o.carriers))

	start := time.Now()
	g := new(errgroup.Group)
	for i := range o.carriers {
		g.Go(func() error {
			return pool.Run(fmt.Sprintf("worker-%d", i), func(c *semalock.Carrier) error {
				var idle semalock.Note
				for n := 1; n <= o.iters; n++ {
					mu.Lock(c)
					counter++
					mu.Unlock(c)

					if o.taskEvery > 0 && n%o.taskEvery == 0 {
						c.RunTask(func() {
							idle.Clear()
							idle.TimedSleepFromTaskFor(c, o.taskTimeout)
						})
					}
					if c.Safepoint() {
						sched.safepoints.Add(1)
					}
				}
				// Fold this carrier's counters in before Run retires it.
				sched.record(c.Stats())
				if remaining.Add(-1) == 0 {
					finished.Wakeup(c)
				}
				return nil
			})
		})
	}

	g.Go(func() error {
		return pool.Run("coordinator", func(c *semalock.Carrier) error {
			for !finished.TimedSleepFor(c, time.Second) {
				log.Info().
					Int32("remaining", remaining.Load()).
					Strs("blocked", pool.Blocked()).
					Msg("waiting for workers")
			}
			stop.Store(true)
			sched.record(c.Stats())
			return nil
		})
	})

	if o.preemptTick > 0 {
		go func() {
			for !stop.Load() {
				pool.Range(func(c *semalock.Carrier) bool {
					c.RequestPreempt()
					return true
				})
				time.Sleep(o.preemptTick)
			}
		}()
	}

	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	want := o.carriers * o.iters
	s := sched.totals()
	log.Info().
		Dur("elapsed", elapsed).
		Int("counter", counter).
		Uint64("contended", s.Contended).
		Uint64("parks", s.Parks).
		Uint64("wakeups", s.Wakeups).
		Uint64("timeouts", s.Timeouts).
		Int64("syscalls", sched.syscalls.Load()).
		Int64("preempts", sched.preempts.Load()).
		Int64("safepoints", sched.safepoints.Load()).
		Msg("stress run done")
	if counter != want {
		return fmt.Errorf("counter = %d, want %d", counter, want)
	}
	return nil
}
