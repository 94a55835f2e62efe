package dac

import (
	"sync"
	"sync/atomic"
)

const (
	NumChannels  = 4
	Octaves      = 10
	OctaveZero   = 3 // table index of 0V
	HistoryDepth = 8
	MaxValue     = 65535

	// PitchPerOctave is 12 semitones of 128 steps
	PitchPerOctave = 12 << 7
	MaxPitch       = Octaves * PitchPerOctave
)

// Sink receives output codes on flush
type Sink interface {
	Write(ch int, code uint16)
}

// Calibration holds, per channel, the output code for each whole octave
// from -3V (index 0) upward
type Calibration [NumChannels][Octaves + 1]uint16

// DefaultCalibration returns an evenly spaced table spanning the code range
func DefaultCalibration() Calibration {
	var c Calibration
	for ch := range c {
		for o := range c[ch] {
			c[ch][o] = uint16(o * (MaxValue / Octaves))
		}
	}
	return c
}

// Scaling is an output voltage scaling applied before calibration lookup
type Scaling int

const (
	Scaling1VPerOct Scaling = iota
	ScalingCarlosAlpha
	ScalingCarlosBeta
	ScalingCarlosGamma
	ScalingBohlenPierce
	ScalingQuartertone
	Scaling1_2VPerOct
	Scaling2VPerOct
	NumScalings
)

var scalingNames = [NumScalings]string{
	"1V/oct", "Carlos alpha", "Carlos beta", "Carlos gamma",
	"Bohlen-Pierce", "quartertone", "1.2V/oct", "2V/oct",
}

func (s Scaling) String() string {
	if s < 0 || s >= NumScalings {
		return "unknown"
	}
	return scalingNames[s]
}

// scale applies the scaling as an integer multiply-then-shift
func (s Scaling) scale(pitch int64) int64 {
	switch s {
	case ScalingCarlosAlpha: // 0.77995
		return (pitch * 25548) >> 15
	case ScalingCarlosBeta: // 0.63833
		return (pitch * 20917) >> 15
	case ScalingCarlosGamma: // 0.35099
		return (pitch * 11501) >> 15
	case ScalingBohlenPierce: // 1.585
		return (pitch * 25969) >> 14
	case ScalingQuartertone:
		return pitch >> 1
	case Scaling1_2VPerOct:
		return (pitch * 19661) >> 14
	case Scaling2VPerOct:
		return pitch << 1
	}
	return pitch
}

// DAC holds the queued output codes for the four outputs. Set* may be
// called from the tick context; Update flushes to the sink.
type DAC struct {
	sink Sink
	cal  atomic.Pointer[Calibration]

	values [NumChannels]atomic.Uint32

	histMu  sync.Mutex
	history [NumChannels][HistoryDepth]uint16
	tail    int
}

// New creates a DAC writing to sink with the given calibration
func New(sink Sink, cal Calibration) *DAC {
	d := &DAC{sink: sink}
	d.cal.Store(&cal)
	return d
}

// SetCalibration swaps the calibration table
func (d *DAC) SetCalibration(cal Calibration) {
	d.cal.Store(&cal)
}

// Calibration returns the current calibration table
func (d *DAC) Calibration() Calibration {
	return *d.cal.Load()
}

// PitchToCode converts a pitch (12<<7 per octave, 0 = 0V) plus an octave
// offset into an output code by interpolating the calibration table.
// Out of range pitches are clamped.
func (d *DAC) PitchToCode(ch int, pitch, octaveOffset int32) int32 {
	p := int64(pitch) + (OctaveZero+int64(octaveOffset))*PitchPerOctave
	return d.lookup(ch, p)
}

// SemitoneToCode is PitchToCode for whole semitones
func (d *DAC) SemitoneToCode(ch int, semi, octaveOffset int32) int32 {
	return d.PitchToCode(ch, semi<<7, octaveOffset)
}

// ScaledPitchToCode converts a pitch after applying an output scaling.
// The octave offset is scaled along with the pitch.
func (d *DAC) ScaledPitchToCode(ch int, pitch, octaveOffset int32, s Scaling) int32 {
	p := int64(pitch) + int64(octaveOffset)*PitchPerOctave
	p = s.scale(p)
	p += OctaveZero * PitchPerOctave
	return d.lookup(ch, p)
}

// lookup takes a wide pitch so offsets and scalings saturate instead of
// wrapping
func (d *DAC) lookup(ch int, p int64) int32 {
	pitch := int32(min(max(p, 0), MaxPitch))

	octave := pitch / PitchPerOctave
	frac := pitch - octave*PitchPerOctave

	table := &d.cal.Load()[ch]
	sample := int32(table[octave])
	if frac != 0 {
		span := int32(table[octave+1]) - sample
		sample += (frac * span) / PitchPerOctave
	}
	return sample
}

// Set queues a raw code, saturated to 16 bits
func (d *DAC) Set(ch int, value int32) {
	d.values[ch].Store(uint32(sat16(value)))
}

// SetAll queues the same raw code on every output
func (d *DAC) SetAll(value int32) {
	for ch := range d.values {
		d.Set(ch, value)
	}
}

// SetPitch queues a pitch
func (d *DAC) SetPitch(ch int, pitch, octaveOffset int32) {
	d.Set(ch, d.PitchToCode(ch, pitch, octaveOffset))
}

// SetScaledPitch queues a pitch with an output scaling
func (d *DAC) SetScaledPitch(ch int, pitch, octaveOffset int32, s Scaling) {
	d.Set(ch, d.ScaledPitchToCode(ch, pitch, octaveOffset, s))
}

// SetOctave queues a whole voltage (0 = 0V, 1 = 1V)
func (d *DAC) SetOctave(ch, v int) {
	d.Set(ch, int32(d.OctaveOffset(ch, v)))
}

// Value returns the queued code for an output
func (d *DAC) Value(ch int) uint16 {
	return uint16(d.values[ch].Load())
}

// ZeroOffset returns the code for 0V
func (d *DAC) ZeroOffset(ch int) uint16 {
	return d.cal.Load()[ch][OctaveZero]
}

// OctaveOffset returns the code for a whole voltage, clamped to the table
func (d *DAC) OctaveOffset(ch, octave int) uint16 {
	i := min(max(OctaveZero+octave, 0), Octaves)
	return d.cal.Load()[ch][i]
}

// Update writes the queued codes to the sink and records them in the
// history ring
func (d *DAC) Update() {
	var codes [NumChannels]uint16
	for ch := range codes {
		codes[ch] = uint16(d.values[ch].Load())
		if d.sink != nil {
			d.sink.Write(ch, codes[ch])
		}
	}

	d.histMu.Lock()
	for ch := range codes {
		d.history[ch][d.tail] = codes[ch]
	}
	d.tail = (d.tail + 1) % HistoryDepth
	d.histMu.Unlock()
}

// History returns the last HistoryDepth flushed codes for a channel,
// oldest first
func (d *DAC) History(ch int) [HistoryDepth]uint16 {
	d.histMu.Lock()
	defer d.histMu.Unlock()

	var out [HistoryDepth]uint16
	for i := range out {
		out[i] = d.history[ch][(d.tail+i)%HistoryDepth]
	}
	return out
}

func sat16(v int32) uint16 {
	if v < 0 {
		return 0
	}
	if v > MaxValue {
		return MaxValue
	}
	return uint16(v)
}
