package core

import (
	"sync"
	"sync/atomic"
	"time"
)

// A "tick" is one scheduler cycle, which happens 16666.667 times per second,
// or a million times per minute.
const (
	ISRFreq   = 16666
	TimerRate = time.Second / ISRFreq // ~60us
)

// Flusher writes previously queued output codes to hardware
type Flusher interface {
	Update()
}

// Scanner advances an input conversion by one step
type Scanner interface {
	Scan()
}

// App is the per-tick application callback
type App interface {
	ISR()
}

// Stats reports tick timing instrumentation
type Stats struct {
	Ticks       uint32
	MaxDuration time.Duration
	Overruns    uint64
}

// Scheduler is the fixed-rate tick entry point. Tick must only be called
// from one goroutine; everything else is safe from the foreground.
type Scheduler struct {
	dac   Flusher
	adc   Scanner
	gates Scanner

	ticks atomic.Uint32

	app        App
	appEnabled atomic.Bool
	appMu      sync.Mutex // held while the app callback runs

	period   time.Duration
	maxNanos atomic.Int64
	overruns atomic.Uint64
	timed    atomic.Bool
}

// NewScheduler creates a scheduler over the given output flusher and input
// scanners. Any of them may be nil.
func NewScheduler(dac Flusher, adc Scanner, gates Scanner) *Scheduler {
	s := &Scheduler{
		dac:    dac,
		adc:    adc,
		gates:  gates,
		period: TimerRate,
	}
	s.timed.Store(true)
	return s
}

// SetApp binds the application callback. The gate stays closed until
// SetAppEnabled(true).
func (s *Scheduler) SetApp(app App) {
	s.appMu.Lock()
	s.app = app
	s.appMu.Unlock()
}

// SetTiming turns per-tick overrun instrumentation on or off
func (s *Scheduler) SetTiming(on bool) {
	s.timed.Store(on)
}

// Tick runs one scheduler cycle in strict order: flush outputs, advance one
// ADC channel, scan digital inputs, count the tick, dispatch the app.
func (s *Scheduler) Tick() {
	timed := s.timed.Load()
	var start time.Time
	if timed {
		start = time.Now()
	}

	if s.dac != nil {
		s.dac.Update()
	}
	if s.adc != nil {
		s.adc.Scan()
	}
	if s.gates != nil {
		s.gates.Scan()
	}

	s.ticks.Add(1)

	if s.appEnabled.Load() && s.appMu.TryLock() {
		if s.app != nil {
			s.app.ISR()
		}
		s.appMu.Unlock()
	}

	if timed {
		d := time.Since(start)
		if d > s.period {
			s.overruns.Add(1)
		}
		if n := int64(d); n > s.maxNanos.Load() {
			s.maxNanos.Store(n)
		}
	}
}

// Ticks returns the monotonic tick counter
func (s *Scheduler) Ticks() uint32 {
	return s.ticks.Load()
}

// SetAppEnabled opens or closes the application gate
func (s *Scheduler) SetAppEnabled(on bool) {
	s.appEnabled.Store(on)
}

// AppEnabled reports whether the app callback runs on each tick
func (s *Scheduler) AppEnabled() bool {
	return s.appEnabled.Load()
}

// Suspend closes the app gate, waits for an in-flight dispatch to finish,
// runs fn, then restores the previous gate state. Input sampling and output
// flush keep running.
func (s *Scheduler) Suspend(fn func()) {
	was := s.appEnabled.Swap(false)
	s.appMu.Lock()
	defer func() {
		s.appMu.Unlock()
		s.appEnabled.Store(was)
	}()
	fn()
}

// Stats returns the overrun instrumentation counters
func (s *Scheduler) Stats() Stats {
	return Stats{
		Ticks:       s.ticks.Load(),
		MaxDuration: time.Duration(s.maxNanos.Load()),
		Overruns:    s.overruns.Load(),
	}
}

// ResetStats clears the overrun counters (the tick counter is untouched)
func (s *Scheduler) ResetStats() {
	s.maxNanos.Store(0)
	s.overruns.Store(0)
}
