package applet

import (
	"sync/atomic"

	"go-hemisphere/adc"
	"go-hemisphere/clock"
	"go-hemisphere/dac"
	"go-hemisphere/gate"
)

const (
	NumChannels = 4

	ADCLag         = 33 // ticks between a clock edge and a settled CV read
	ClockTicks     = 50 // base clock out pulse, multiplied by trigger length
	PulseVoltage   = 5  // octaves
	MaxCV          = 9216
	MinCV          = -4608
	CenterCV       = 0
	CenterDetent   = 80
	MaxInputCV     = 9216
	DefaultTrigLen = 2
	PitchPerOctave = 12 << 7
	simfloatBits   = 14
)

// IO is the per-channel state shared by the hemispheres. It is owned by the
// tick context; fields read by the foreground view are atomic.
type IO struct {
	ADC   *adc.ADC
	DAC   *dac.DAC
	Gates *gate.Inputs
	Clock *clock.Engine
	Ticks clock.TickSource

	trigLength atomic.Int32

	inputs     [NumChannels]atomic.Int32
	outputs    [NumChannels]atomic.Int32
	cycleTicks [NumChannels]atomic.Uint32
	changed    [NumChannels]atomic.Bool

	// tick context only
	outputsSmooth  [NumChannels]int32
	clockCountdown [NumChannels]int32
	adcLag         [NumChannels]int32
	lastClock      [NumChannels]uint32
}

// NewIO wires the shared channel state to the hardware layers
func NewIO(a *adc.ADC, d *dac.DAC, g *gate.Inputs, c *clock.Engine, ticks clock.TickSource) *IO {
	io := &IO{
		ADC:   a,
		DAC:   d,
		Gates: g,
		Clock: c,
		Ticks: ticks,
	}
	io.trigLength.Store(DefaultTrigLen)
	return io
}

// SetTrigLength sets the clock out pulse multiplier
func (io *IO) SetTrigLength(n int) {
	io.trigLength.Store(int32(max(n, 1)))
}

// TrigLength returns the clock out pulse multiplier
func (io *IO) TrigLength() int {
	return int(io.trigLength.Load())
}

// Input returns the last pitch input read for a channel (0-3)
func (io *IO) Input(ch int) int {
	return int(io.inputs[ch].Load())
}

// Output returns the last pitch written to a channel (0-3)
func (io *IO) Output(ch int) int {
	return int(io.outputs[ch].Load())
}

// CycleTicks returns the interval between the last two clocks on a channel
func (io *IO) CycleTicks(ch int) uint32 {
	return io.cycleTicks[ch].Load()
}

// reset clears the state of one channel
func (io *IO) reset(ch int) {
	io.clockCountdown[ch] = 0
	io.inputs[ch].Store(0)
	io.outputs[ch].Store(0)
	io.outputsSmooth[ch] = 0
	io.adcLag[ch] = 0
}
