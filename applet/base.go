package applet

import (
	"go-hemisphere/clock"
)

// Hemisphere is one half of the module, owning two channels
type Hemisphere int

const (
	Left Hemisphere = iota
	Right
)

func (h Hemisphere) String() string {
	if h == Right {
		return "right"
	}
	return "left"
}

// Offset is the index of the hemisphere's first channel
func (h Hemisphere) Offset() int {
	return int(h) * 2
}

// Base is embedded in every channel program. It maps the program's
// channels (0 and 1) onto the shared channel state of its hemisphere.
type Base struct {
	io         *IO
	hemisphere Hemisphere
	offset     int
	forwarded  bool // clock forwarding during the last controller run
	started    bool
}

// AppletBase returns the embedded base
func (b *Base) AppletBase() *Base {
	return b
}

// Hemisphere returns the hemisphere the program is bound to
func (b *Base) Hemisphere() Hemisphere {
	return b.hemisphere
}

// IO returns the shared channel state
func (b *Base) IO() *IO {
	return b.io
}

// AllowRestart makes Start run again the next time the program is selected
func (b *Base) AllowRestart() {
	b.started = false
}

func (b *Base) bind(io *IO, h Hemisphere) {
	b.io = io
	b.hemisphere = h
	b.offset = h.Offset()
}

// Ticks returns the current tick
func (b *Base) Ticks() uint32 {
	return b.io.Ticks.Ticks()
}

// In returns the pitch CV input read on this tick
func (b *Base) In(ch int) int {
	return int(b.io.inputs[b.offset+ch].Load())
}

// DetentedIn is In with a small dead zone around center
func (b *Base) DetentedIn(ch int) int {
	v := b.In(ch)
	if v > CenterCV+CenterDetent || v < CenterCV-CenterDetent {
		return v
	}
	return CenterCV
}

// SmoothedIn returns the smoothed, offset-corrected converter value
func (b *Base) SmoothedIn(ch int) int {
	return int(b.io.ADC.Value(b.offset + ch))
}

// Out sets a channel's output pitch, optionally shifted by whole octaves
func (b *Base) Out(ch, value, octave int) {
	c := b.offset + ch
	b.io.DAC.SetPitch(c, int32(value), int32(octave))
	b.io.outputs[c].Store(int32(value + octave*PitchPerOctave))
}

// SmoothedOut moves the output toward value with a one-pole filter
func (b *Base) SmoothedOut(ch, value, smoothing int) {
	c := b.offset + ch
	if smoothing < 1 {
		smoothing = 1
	}
	v := (b.io.outputsSmooth[c]*int32(smoothing-1) + int32(value)) / int32(smoothing)
	b.io.DAC.SetPitch(c, v, 0)
	b.io.outputsSmooth[c] = v
	b.io.outputs[c].Store(v)
}

// Clock reports whether the channel was clocked on this tick. Unless
// physical is set, a running clock engine's tock for the mapped output
// takes the place of the digital input. Manual triggers always count.
func (b *Base) Clock(ch int, physical bool) bool {
	eng := b.io.Clock
	useTock := !physical && eng.IsRunning()

	var out clock.Output
	var input int
	switch {
	case b.hemisphere == Left && ch == 0:
		out, input = clock.Left1, 0
	case b.hemisphere == Left:
		out, input = clock.Left2, 1
	case ch == 0:
		out, input = clock.Right1, 2
		if b.forwarded {
			input = 0 // forwarded from the left
		}
	default:
		out, input = clock.Right2, 3
	}

	var clocked bool
	if useTock && eng.Multiply(out) != 0 {
		clocked = eng.Tock(out)
	} else {
		clocked = b.io.Gates.Clocked(input)
	}

	c := b.offset + ch
	if eng.Beep(c) {
		clocked = true
	}

	if clocked {
		now := b.Ticks()
		b.io.cycleTicks[c].Store(now - b.io.lastClock[c])
		b.io.lastClock[c] = now
	}
	return clocked
}

// ClockOut sends a trigger pulse of the default length
func (b *Base) ClockOut(ch int) {
	b.ClockOutTicks(ch, ClockTicks)
}

// ClockOutTicks sends a trigger pulse lasting ticks times the trigger length
func (b *Base) ClockOutTicks(ch, ticks int) {
	b.io.clockCountdown[b.offset+ch] = int32(ticks * b.io.TrigLength())
	b.Out(ch, 0, PulseVoltage)
}

// Gate returns the instantaneous level of the channel's digital input
func (b *Base) Gate(ch int) bool {
	return b.io.Gates.Level(b.offset + ch)
}

// GateOut sets the output high or low
func (b *Base) GateOut(ch int, high bool) {
	v := 0
	if high {
		v = PulseVoltage
	}
	b.Out(ch, 0, v)
}

// Buffered I/O for views

func (b *Base) ViewIn(ch int) int { return b.io.Input(b.offset + ch) }

func (b *Base) ViewOut(ch int) int { return b.io.Output(b.offset + ch) }

func (b *Base) ClockCycleTicks(ch int) uint32 { return b.io.CycleTicks(b.offset + ch) }

func (b *Base) Changed(ch int) bool { return b.io.changed[b.offset+ch].Load() }

// StartADCLag arms the conversion delay after a clock edge. The pattern is
//
//	if b.Clock(0, false) {
//		b.StartADCLag(0)
//	}
//	if b.EndOfADCLag(0) {
//		cv := b.In(0)
//		...
//	}
func (b *Base) StartADCLag(ch int) {
	b.io.adcLag[b.offset+ch] = ADCLag
}

// EndOfADCLag is true exactly once, ADCLag polls after StartADCLag
func (b *Base) EndOfADCLag(ch int) bool {
	c := b.offset + ch
	if b.io.adcLag[c] <= 0 {
		return false
	}
	b.io.adcLag[c]--
	return b.io.adcLag[c] == 0
}

// MasterClockForwarded reports whether the left clock input is mirrored to
// this (right) hemisphere
func (b *Base) MasterClockForwarded() bool {
	return b.forwarded
}

// Proportion solves numerator/denominator = x/max in 14 bit fixed point
func Proportion(numerator, denominator, maxValue int) int {
	if denominator == 0 {
		return 0
	}
	p := (int64(numerator) << simfloatBits) / int64(denominator)
	return int((p * int64(maxValue)) >> simfloatBits)
}

// ProportionCV scales a CV value into 0..maxPixels for display
func ProportionCV(cv, maxPixels int) int {
	return min(max(Proportion(cv, MaxInputCV, maxPixels), 0), maxPixels)
}

// Proportion solves numerator/denominator = x/max in 14 bit fixed point
func (b *Base) Proportion(numerator, denominator, maxValue int) int {
	return Proportion(numerator, denominator, maxValue)
}

// ProportionCV scales a CV value into 0..maxPixels for display
func (b *Base) ProportionCV(cv, maxPixels int) int {
	return ProportionCV(cv, maxPixels)
}
