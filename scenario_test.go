package semalock_test

import (
	"io"
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	. "github.com/llxisdsh/semalock"
)

var _ = Describe("Carriers", func() {

	var (
		pool   *Pool
		aborts []string
	)

	BeforeEach(func() {
		aborts = nil
		pool = NewPool(
			WithLogger(zerolog.New(io.Discard)),
			WithAbort(func(msg string) { aborts = append(aborts, msg) }),
		)
	})

	newCarrier := func(name string) *Carrier {
		c, err := pool.NewCarrier(name)
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	Describe("a Mutex", func() {
		var (
			mu   *Mutex
			a, b *Carrier
		)

		BeforeEach(func() {
			mu = new(Mutex)
			a = newCarrier("A")
			b = newCarrier("B")
		})

		It("Should hand the lock to a queued carrier on unlock", func() {
			mu.Lock(a)
			acquired := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				mu.Lock(b)
				close(acquired)
			}()
			Consistently(acquired, 50*time.Millisecond).ShouldNot(BeClosed())

			mu.Unlock(a)
			Eventually(acquired, time.Second).Should(BeClosed())
			Expect(mu.TryLock(a)).To(BeFalse())
			mu.Unlock(b)
			Expect(mu.TryLock(a)).To(BeTrue())
			mu.Unlock(a)
			Expect(a.Locks()).To(BeZero())
			Expect(b.Locks()).To(BeZero())
		})

		It("Should keep counter updates exclusive across carriers", func() {
			const carriers, iters = 8, 1000
			var wg sync.WaitGroup
			counter := 0
			for range carriers {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					err := pool.Run("", func(c *Carrier) error {
						for range iters {
							mu.Lock(c)
							counter++
							mu.Unlock(c)
						}
						return nil
					})
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()
			Expect(counter).To(Equal(carriers * iters))
		})

		It("Should abort on an unlock that was never locked", func() {
			Expect(func() { mu.Unlock(a) }).To(PanicWith(BeAssignableToTypeOf(&FatalError{})))
			Expect(aborts).To(ConsistOf("unlock of unlocked mutex"))
		})
	})

	Describe("a Note", func() {
		var (
			note *Note
			x    *Carrier
		)

		BeforeEach(func() {
			note = new(Note)
			x = newCarrier("X")
		})

		It("Should time out and end cleared when nobody wakes it", func() {
			start := time.Now()
			Expect(note.TimedSleepFor(x, 10*time.Millisecond)).To(BeFalse())
			Expect(time.Since(start)).To(BeNumerically(">=", 10*time.Millisecond))
			Expect(note.Fired()).To(BeFalse())
			// Cleared and unregistered: another timed wait registers again.
			Expect(note.TimedSleepFor(x, time.Millisecond)).To(BeFalse())
		})

		It("Should wake a registered sleeper and stay fired until cleared", func() {
			z := newCarrier("Z")
			woke := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				note.Sleep(x)
				close(woke)
			}()
			Eventually(x.Blocked, time.Second).Should(BeTrue())
			Expect(pool.Blocked()).To(ConsistOf("X"))

			note.Wakeup(z)
			Eventually(woke, time.Second).Should(BeClosed())
			Expect(x.Blocked()).To(BeFalse())
			Expect(note.Fired()).To(BeTrue())

			note.Clear()
			Expect(note.Fired()).To(BeFalse())
		})

		It("Should let a later sleeper through an early wakeup", func() {
			note.Wakeup(x)
			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				note.Sleep(x)
				close(done)
			}()
			Eventually(done, 100*time.Millisecond).Should(BeClosed())
		})

		It("Should abort on a second wakeup before clear", func() {
			note.Wakeup(x)
			Expect(func() { note.Wakeup(x) }).To(Panic())
			Expect(aborts).To(ConsistOf("notewakeup - double wakeup"))
		})

		It("Should bracket task-context waits with the scheduler", func() {
			sched := &countingScheduler{}
			pool = NewPool(WithLogger(zerolog.New(io.Discard)), WithScheduler(sched))
			w := newCarrier("W")
			var woken bool
			w.RunTask(func() {
				woken = note.TimedSleepFromTaskFor(w, time.Millisecond)
			})
			Expect(woken).To(BeFalse())
			Expect(sched.enter).To(Equal(1))
			Expect(sched.exit).To(Equal(1))
		})
	})
})

type countingScheduler struct {
	enter, exit, preempt int
}

func (s *countingScheduler) EnterSyscallBlock(*Carrier) { s.enter++ }
func (s *countingScheduler) ExitSyscall(*Carrier)       { s.exit++ }
func (s *countingScheduler) Preempt(*Carrier)           { s.preempt++ }
