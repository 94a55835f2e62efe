package adc

import (
	"math"
	"sync/atomic"
)

const (
	NumChannels = 4
	Resolution  = 12 // bits kept from each conversion
	ScanBits    = 16 // bits delivered by a Source
	Smoothing   = 4
	SmoothBits  = 8 // fractional bits for smoothing

	// DefaultPitchCVScale maps the full input range onto ten octaves of
	// 12 semitones with 128 steps each
	DefaultPitchCVScale = (10 * 12) << 7

	DefaultOffset = 1 << (Resolution - 1)

	// ChangeThreshold is how far the pitch input must move (in 1/128
	// semitones) to count as a change
	ChangeThreshold = 32
)

// Source performs one raw conversion of an analog input
type Source interface {
	Sample(ch int) uint16
}

// CalibrationData holds the per-channel zero offsets and the pitch scale
type CalibrationData struct {
	Offset        [NumChannels]uint16 `json:"offset"`
	PitchCVScale  uint16              `json:"pitchCVScale"`
	PitchCVOffset int16               `json:"pitchCVOffset"`
}

// DefaultCalibration returns uncalibrated settings
func DefaultCalibration() CalibrationData {
	var c CalibrationData
	for i := range c.Offset {
		c.Offset[i] = DefaultOffset
	}
	c.PitchCVScale = DefaultPitchCVScale
	return c
}

// ADC converts one channel per Scan and keeps raw and smoothed values for
// all of them. Values read between scans of a channel are up to
// NumChannels-1 ticks stale.
type ADC struct {
	src     Source
	channel int // next channel to scan, tick context only

	raw      [NumChannels]atomic.Uint32
	smoothed [NumChannels]atomic.Uint32
	lastCV   [NumChannels]atomic.Int32

	cal atomic.Pointer[CalibrationData]
}

// New creates an ADC reading from src
func New(src Source, cal CalibrationData) *ADC {
	a := &ADC{src: src}
	a.cal.Store(&cal)
	return a
}

// Scan converts the next channel in round-robin order
func (a *ADC) Scan() {
	ch := a.channel
	if a.src != nil {
		a.update(ch, uint32(a.src.Sample(ch)))
	}
	a.channel = (ch + 1) % NumChannels
}

func (a *ADC) update(ch int, v uint32) {
	v = (v >> (ScanBits - Resolution)) << SmoothBits
	a.raw[ch].Store(v)
	s := (a.smoothed[ch].Load()*(Smoothing-1) + v) / Smoothing
	a.smoothed[ch].Store(s)
}

// Value returns the offset-corrected smoothed reading
func (a *ADC) Value(ch int) int32 {
	c := a.cal.Load()
	return int32(c.Offset[ch]) - int32(a.smoothed[ch].Load()>>SmoothBits)
}

// RawValue returns the last unsmoothed conversion
func (a *ADC) RawValue(ch int) uint32 {
	return a.raw[ch].Load() >> SmoothBits
}

// SmoothedRawValue returns the smoothed conversion without offset correction
func (a *ADC) SmoothedRawValue(ch int) uint32 {
	return a.smoothed[ch].Load() >> SmoothBits
}

// PitchValue returns the smoothed reading in pitch units
func (a *ADC) PitchValue(ch int) int32 {
	c := a.cal.Load()
	return (a.Value(ch) * int32(c.PitchCVScale)) >> 12
}

// RawPitchValue returns the unsmoothed reading in pitch units
func (a *ADC) RawPitchValue(ch int) int32 {
	c := a.cal.Load()
	v := int32(c.Offset[ch]) - int32(a.RawValue(ch))
	return (v * int32(c.PitchCVScale)) >> 12
}

// Changed reports whether the pitch reading has moved by more than
// ChangeThreshold since the last reported change
func (a *ADC) Changed(ch int) bool {
	return a.ChangedValue(ch, a.RawPitchValue(ch))
}

// ChangedValue runs change detection for an already read pitch value
func (a *ADC) ChangedValue(ch int, v int32) bool {
	d := v - a.lastCV[ch].Load()
	if d > ChangeThreshold || d < -ChangeThreshold {
		a.lastCV[ch].Store(v)
		return true
	}
	return false
}

// CalibratePitch sets the pitch scale from readings taken at two octaves
// apart (C2 and C4). Readings in the wrong order are ignored.
func (a *ADC) CalibratePitch(c2, c4 int32) {
	if c2 >= c4 {
		return
	}
	scale := min((24*128*4096)/(c4-c2), math.MaxUint16)
	c := *a.cal.Load()
	c.PitchCVScale = uint16(scale)
	a.cal.Store(&c)
}

// Calibration returns the current calibration
func (a *ADC) Calibration() CalibrationData {
	return *a.cal.Load()
}

// SetCalibration swaps in new calibration data
func (a *ADC) SetCalibration(c CalibrationData) {
	a.cal.Store(&c)
}
