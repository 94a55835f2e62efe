package clock

import (
	"sync"
	"sync/atomic"
)

// A "tick" is one scheduler cycle, which happens 16666.667 times per second,
// or a million times per minute. A "tock" is a metronome beat or a
// subdivision of one.
const (
	TicksPerMinute = 1000000

	TempoMin = 10
	TempoMax = 300
	TicksMin = TicksPerMinute / TempoMax
	TicksMax = TicksPerMinute / TempoMin

	MIDIOutPPQN = 24
	MaxMultiple = 24
	MinMultiple = -31 // becomes /32

	DefaultTempo    = 120
	DefaultPPQN     = 4
	DefaultDeadband = 4
)

// Output identifies one of the engine's logical clock outputs
type Output int

const (
	Left1 Output = iota
	Left2
	Right1
	Right2
	MIDIClock
	NumOutputs
)

func (o Output) String() string {
	switch o {
	case Left1:
		return "L1"
	case Left2:
		return "L2"
	case Right1:
		return "R1"
	case Right2:
		return "R2"
	case MIDIClock:
		return "MIDI"
	}
	return "?"
}

// TickSource provides the monotonic tick counter
type TickSource interface {
	Ticks() uint32
}

// NudgeConfig tunes external clock phase correction. Corrections only happen
// when the beat is off by more than Deadband ticks and less than half an
// external clock interval.
type NudgeConfig struct {
	Deadband int
}

// DefaultNudge returns the stock nudge tuning
func DefaultNudge() NudgeConfig {
	return NudgeConfig{Deadband: DefaultDeadband}
}

// Engine is the musical clock: internal tempo generator, per-output
// multiply/divide, external sync tracking.
type Engine struct {
	ticks TickSource

	mu           sync.Mutex
	tempo        int
	ticksPerBeat uint32
	running      bool
	paused       bool
	forwarded    bool
	gateEdge     edgeTracker
	midiEdge     edgeTracker
	beatTick     uint32
	tock         [NumOutputs]bool
	multiply     [NumOutputs]int
	count        [NumOutputs]int
	clockPPQN    int
	cycle        bool
	nudge        NudgeConfig

	boop [4]atomic.Bool // manual triggers, set from the foreground
}

// NewEngine creates a stopped clock at the default tempo
func NewEngine(ticks TickSource) *Engine {
	e := &Engine{
		ticks:     ticks,
		multiply:  [NumOutputs]int{4, 0, 8, 0, MIDIOutPPQN},
		clockPPQN: DefaultPPQN,
		nudge:     DefaultNudge(),
	}
	e.setTempo(DefaultTempo)
	return e
}

// SetNudge replaces the nudge tuning
func (e *Engine) SetNudge(cfg NudgeConfig) {
	if cfg.Deadband < 0 {
		cfg.Deadband = 0
	}
	e.mu.Lock()
	e.nudge = cfg
	e.mu.Unlock()
}

// SetMultiply sets an output's ratio: +N multiplies, -k divides by k+1, 0 is off
func (e *Engine) SetMultiply(ratio int, out Output) {
	if out < 0 || out >= NumOutputs {
		return
	}
	e.mu.Lock()
	e.multiply[out] = clamp(ratio, MinMultiple, MaxMultiple)
	e.mu.Unlock()
}

// Multiply returns an output's ratio
func (e *Engine) Multiply(out Output) int {
	if out < 0 || out >= NumOutputs {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.multiply[out]
}

// SetClockPPQN sets the expected number of clock input pulses per beat (0
// disables sync to the clock input). MIDI clock is always MIDIOutPPQN.
func (e *Engine) SetClockPPQN(ppqn int) {
	e.mu.Lock()
	e.clockPPQN = clamp(ppqn, 0, 24)
	e.mu.Unlock()
}

// ClockPPQN returns the expected clock input pulses per beat
func (e *Engine) ClockPPQN() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clockPPQN
}

// SetTempoBPM sets the tempo. Ticks per beat is a million divided by the
// tempo, truncated; the imprecision is accepted.
func (e *Engine) SetTempoBPM(bpm int) {
	e.mu.Lock()
	e.setTempo(bpm)
	e.mu.Unlock()
}

func (e *Engine) setTempo(bpm int) {
	e.tempo = clamp(bpm, TempoMin, TempoMax)
	e.ticksPerBeat = uint32(TicksPerMinute / e.tempo)
}

// setTempoFromTicks derives the tempo from a measured beat length
func (e *Engine) setTempoFromTicks(t uint32) {
	t = min(max(t, TicksMin), TicksMax)
	e.setTempo(int(TicksPerMinute / t))
}

// SetTempoFromTaps sets the tempo from the average of the given tap
// intervals (in ticks)
func (e *Engine) SetTempoFromTaps(intervals []uint32) {
	if len(intervals) == 0 {
		return
	}
	var total uint64
	for _, iv := range intervals {
		total += uint64(iv)
	}
	avg := total / uint64(len(intervals))
	if avg > TicksMax {
		avg = TicksMax
	}

	e.mu.Lock()
	e.setTempoFromTicks(uint32(avg))
	e.mu.Unlock()
}

// Tempo returns the tempo in BPM
func (e *Engine) Tempo() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tempo
}

// TicksPerBeat returns the beat length in ticks
func (e *Engine) TicksPerBeat() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticksPerBeat
}

// Reset resyncs the multipliers to the current tick, optionally skipping
// the first tock
func (e *Engine) Reset(skipFirst bool) {
	e.mu.Lock()
	e.reset(skipFirst)
	e.mu.Unlock()
}

func (e *Engine) reset(skip bool) {
	e.beatTick = e.ticks.Ticks()
	c := 0
	if skip {
		c = 1
	}
	for ch := range e.count {
		// divide counters carry across a skip reset
		if e.multiply[ch] > 0 || !skip {
			e.count[ch] = c
		}
	}
	e.cycle = !e.cycle
}

// Start resets the counters and runs the clock, or arms it when paused
// is true so the next external edge starts it.
func (e *Engine) Start(paused bool) {
	e.mu.Lock()
	e.reset(false)
	e.running = true
	e.paused = paused
	e.mu.Unlock()
}

// StartSkipFirst runs the clock without the tock at the start instant
func (e *Engine) StartSkipFirst() {
	e.mu.Lock()
	e.reset(true)
	e.running = true
	e.paused = false
	e.mu.Unlock()
}

// Stop halts the clock immediately
func (e *Engine) Stop() {
	e.mu.Lock()
	e.running = false
	e.paused = false
	e.tock = [NumOutputs]bool{}
	e.mu.Unlock()
}

// Pause holds a running clock without resetting its counters
func (e *Engine) Pause() {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
}

// ToggleForwarding flips master clock forwarding (left input 1 mirrored to
// the right hemisphere)
func (e *Engine) ToggleForwarding() {
	e.mu.Lock()
	e.forwarded = !e.forwarded
	e.mu.Unlock()
}

// SetForwarding sets master clock forwarding
func (e *Engine) SetForwarding(on bool) {
	e.mu.Lock()
	e.forwarded = on
	e.mu.Unlock()
}

// IsRunning reports whether tocks are being generated
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running && !e.paused
}

// IsPaused reports whether the clock is armed waiting for an edge
func (e *Engine) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// IsForwarded reports whether master clock forwarding is on
func (e *Engine) IsForwarded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.forwarded
}

// Boop queues a manual trigger for a channel (0-3)
func (e *Engine) Boop(ch int) {
	if ch >= 0 && ch < len(e.boop) {
		e.boop[ch].Store(true)
	}
}

// Beep consumes a pending manual trigger
func (e *Engine) Beep(ch int) bool {
	if ch < 0 || ch >= len(e.boop) {
		return false
	}
	return e.boop[ch].Swap(false)
}

// Tock reports whether the output fires on this tick
func (e *Engine) Tock(out Output) bool {
	if out < 0 || out >= NumOutputs {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tock[out]
}

// MIDITock reports whether a MIDI clock should be sent on this tick
func (e *Engine) MIDITock() bool {
	return e.Tock(MIDIClock)
}

// EndOfBeat reports whether the output has just started a new beat
func (e *Engine) EndOfBeat(out Output) bool {
	if out < 0 || out >= NumOutputs {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count[out] == 1
}

// Cycle alternates on each beat reset, for display
func (e *Engine) Cycle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cycle
}

// SyncTrig advances the clock by one tick. Call on every tick while the
// clock is running, before any channel program. clocked reports an
// edge on the clock input, tracked at ClockPPQN; hardReset resyncs the
// beat to now.
func (e *Engine) SyncTrig(clocked, hardReset bool) {
	e.SyncTrigMIDI(clocked, false, hardReset)
}

// SyncTrigMIDI is SyncTrig with a second external source: midiClocked
// reports a MIDI timing clock, always tracked at MIDIOutPPQN. Each source
// measures its own edge intervals.
func (e *Engine) SyncTrigMIDI(clocked, midiClocked, hardReset bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if hardReset {
		e.reset(false)
	}

	now := e.ticks.Ticks()

	// reset only when all multipliers have been met
	reset := true

	for ch := range e.multiply {
		m := e.multiply[ch]
		if m == 0 {
			e.tock[ch] = false
			continue
		}

		if m > 0 {
			next := e.beatTick + uint32(e.count[ch])*e.ticksPerBeat/uint32(m)
			e.tock[ch] = reached(now, next)
			if e.tock[ch] {
				e.count[ch]++
			}
			reset = reset && e.count[ch] > m
		} else {
			// -1 becomes /2, -2 becomes /3, etc.
			div := 1 - m
			next := e.beatTick
			if e.count[ch] != 0 {
				next += e.ticksPerBeat
			}
			exceeded := int32(now-next) > 0
			e.tock[ch] = false
			if exceeded {
				e.count[ch]++
				e.tock[ch] = e.count[ch]%div == 1
			}
			// resync on every beat
			reset = reset && exceeded
			if e.tock[ch] {
				e.count[ch] = 1
			}
		}
	}
	if reset {
		e.reset(true) // skip the one we're already on
	}

	if clocked {
		e.track(&e.gateEdge, now, uint32(e.clockPPQN))
	}
	if midiClocked {
		e.track(&e.midiEdge, now, MIDIOutPPQN)
	}
}

// edgeTracker remembers the previous edge of one external clock source
type edgeTracker struct {
	last     uint32
	tracking bool
}

// track updates tempo and phase from an external clock edge arriving at
// ppqn pulses per beat. The first edge of a source only starts tracking,
// and ppqn 0 records the edge without measuring it.
func (e *Engine) track(t *edgeTracker, now, ppqn uint32) {
	last, tracking := t.last, t.tracking
	t.last, t.tracking = now, true
	if !tracking || ppqn == 0 {
		return
	}

	diff := now - last
	if diff == 0 {
		return
	}
	if uint64(ppqn)*uint64(diff) > TicksMax {
		t.tracking = false // too slow, reset tracking
		return
	}

	e.setTempoFromTicks(ppqn * diff)

	perClock := int32(e.ticksPerBeat / ppqn)
	offset := int32(now - e.beatTick)

	// too long ago? time until next beat
	if offset > perClock/2 {
		offset -= int32(e.ticksPerBeat)
	}

	// within half a clock pulse of the nearest beat and significantly large
	if abs(offset) < perClock/2 && abs(offset) > int32(e.nudge.Deadband) {
		e.nudgeBeat(offset)
	}
}

// nudgeBeat moves the beat toward an external pulse. Better to be short by
// one than to overshoot by one.
func (e *Engine) nudgeBeat(diff int32) {
	if diff > 0 {
		diff--
	}
	if diff < 0 {
		diff++
	}
	e.beatTick += uint32(diff)
}

// reached compares ticks across counter wrap
func reached(now, due uint32) bool {
	return int32(now-due) >= 0
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
