package core

import (
	"context"
	"runtime"
	"time"

	"go-hemisphere/debug"
)

// Driver runs a Scheduler against the wall clock. Go timers cannot fire every
// 60us, so the driver wakes at a coarser rate and runs every tick that has
// come due since the last wake-up back to back.
type Driver struct {
	sched    *Scheduler
	wake     time.Duration
	maxBurst uint64 // cap on catch-up ticks per wake-up
	now      func() time.Time
}

// NewDriver creates a real-time driver for the scheduler
func NewDriver(s *Scheduler) *Driver {
	return &Driver{
		sched:    s,
		wake:     time.Millisecond,
		maxBurst: ISRFreq / 10, // never try to catch up more than 100ms
		now:      time.Now,
	}
}

// SetWakeInterval changes how often the driver wakes to run due ticks
func (d *Driver) SetWakeInterval(w time.Duration) {
	if w > 0 {
		d.wake = w
	}
}

// Run drives the scheduler until ctx is cancelled (blocking - run in goroutine)
func (d *Driver) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ticker := time.NewTicker(d.wake)
	defer ticker.Stop()

	t0 := d.now()
	var done uint64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			due := d.dueTicks(t0)
			if due <= done {
				continue
			}
			n := due - done
			if n > d.maxBurst {
				// Fell too far behind (suspended process, debugger) - drop
				// the backlog instead of bursting through it
				debug.Log("driver", "dropping %d ticks of backlog", n-d.maxBurst)
				done = due - d.maxBurst
				n = d.maxBurst
			}
			for i := uint64(0); i < n; i++ {
				d.sched.Tick()
			}
			done += n
		}
	}
}

// dueTicks returns how many ticks should have run since t0
func (d *Driver) dueTicks(t0 time.Time) uint64 {
	elapsed := d.now().Sub(t0)
	if elapsed <= 0 {
		return 0
	}
	// whole seconds and the remainder separately, so the product cannot
	// overflow on long runs
	secs := uint64(elapsed / time.Second)
	rem := uint64(elapsed % time.Second)
	return secs*ISRFreq + rem*ISRFreq/uint64(time.Second)
}
