// Package sim is a software stand-in for the module's front panel: CV
// inputs, gate inputs and the four outputs.
package sim

import (
	"sync/atomic"

	"go-hemisphere/adc"
	"go-hemisphere/dac"
	"go-hemisphere/gate"
)

// semitone in pitch units
const Semitone = 128

// Panel implements adc.Source and dac.Sink. CV inputs are set in pitch
// units and converted to raw samples with the ADC calibration.
type Panel struct {
	cal   adc.CalibrationData
	gates *gate.Inputs

	cv     [adc.NumChannels]atomic.Int32
	sample [adc.NumChannels]atomic.Uint32
	codes  [dac.NumChannels]atomic.Uint32
	writes atomic.Uint64
}

// NewPanel creates a panel with all inputs at 0V
func NewPanel(cal adc.CalibrationData, gates *gate.Inputs) *Panel {
	p := &Panel{cal: cal, gates: gates}
	for ch := range p.cv {
		p.SetCV(ch, 0)
	}
	return p
}

// SetCV sets an input to a pitch value
func (p *Panel) SetCV(ch, pitch int) {
	if ch < 0 || ch >= adc.NumChannels {
		return
	}
	p.cv[ch].Store(int32(pitch))
	p.sample[ch].Store(uint32(p.toSample(ch, pitch)))
}

// NudgeCV moves an input by delta pitch units
func (p *Panel) NudgeCV(ch, delta int) {
	if ch < 0 || ch >= adc.NumChannels {
		return
	}
	p.SetCV(ch, int(p.cv[ch].Load())+delta)
}

// CV returns the pitch value an input is set to
func (p *Panel) CV(ch int) int {
	return int(p.cv[ch].Load())
}

// toSample inverts the ADC's pitch conversion
func (p *Panel) toSample(ch, pitch int) uint16 {
	raw := int(p.cal.Offset[ch]) - pitch<<12/int(p.cal.PitchCVScale)
	raw = min(max(raw, 0), 1<<adc.Resolution-1)
	return uint16(raw << (adc.ScanBits - adc.Resolution))
}

// Sample implements adc.Source
func (p *Panel) Sample(ch int) uint16 {
	return uint16(p.sample[ch].Load())
}

// Write implements dac.Sink
func (p *Panel) Write(ch int, code uint16) {
	p.codes[ch].Store(uint32(code))
	p.writes.Add(1)
}

// Code returns the last code written to an output
func (p *Panel) Code(ch int) uint16 {
	return uint16(p.codes[ch].Load())
}

// Writes returns the number of output writes
func (p *Panel) Writes() uint64 {
	return p.writes.Load()
}

// Pulse sends a trigger into a gate input
func (p *Panel) Pulse(i int) {
	p.gates.Trigger(i)
}

// SetGate holds a gate input high or low
func (p *Panel) SetGate(i int, high bool) {
	p.gates.SetLevel(i, high)
}

// Gate returns a gate input's level
func (p *Panel) Gate(i int) bool {
	return p.gates.Level(i)
}
