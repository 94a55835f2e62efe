package dac

import (
	"math"
	"testing"
)

type fakeSink struct {
	codes [NumChannels]uint16
	n     int
}

func (f *fakeSink) Write(ch int, code uint16) {
	f.codes[ch] = code
	f.n++
}

// testCalibration has uneven steps so interpolation errors show up
func testCalibration() Calibration {
	var c Calibration
	for ch := range c {
		code := 1000
		for o := range c[ch] {
			c[ch][o] = uint16(code)
			code += 6000 + o*37 + ch
		}
	}
	return c
}

func TestPitchAtOctaveBoundaryIsExact(t *testing.T) {
	cal := testCalibration()
	d := New(nil, cal)
	for ch := 0; ch < NumChannels; ch++ {
		for o := 0; o <= Octaves; o++ {
			pitch := int32(o-OctaveZero) * PitchPerOctave
			if got := d.PitchToCode(ch, pitch, 0); got != int32(cal[ch][o]) {
				t.Fatalf("ch %d octave %d: code %d, want %d", ch, o, got, cal[ch][o])
			}
		}
	}
}

func TestPitchMidpointIsMean(t *testing.T) {
	cal := testCalibration()
	d := New(nil, cal)
	for ch := 0; ch < NumChannels; ch++ {
		for o := 0; o < Octaves; o++ {
			pitch := int32(o-OctaveZero)*PitchPerOctave + PitchPerOctave/2
			mean := (int32(cal[ch][o]) + int32(cal[ch][o+1])) / 2
			got := d.PitchToCode(ch, pitch, 0)
			if got < mean-1 || got > mean+1 {
				t.Fatalf("ch %d octave %d: midpoint %d, want %d +/- 1", ch, o, got, mean)
			}
		}
	}
}

func TestPitchClamped(t *testing.T) {
	cal := testCalibration()
	d := New(nil, cal)

	if got := d.PitchToCode(0, -100000, 0); got != int32(cal[0][0]) {
		t.Errorf("low clamp = %d, want %d", got, cal[0][0])
	}
	if got := d.PitchToCode(0, 100000, 0); got != int32(cal[0][Octaves]) {
		t.Errorf("high clamp = %d, want %d", got, cal[0][Octaves])
	}
	if got := d.PitchToCode(1, 0, 20); got != int32(cal[1][Octaves]) {
		t.Errorf("octave offset clamp = %d", got)
	}
}

func TestExtremeInputsClampToTheNearEnd(t *testing.T) {
	cal := testCalibration()
	d := New(nil, cal)
	low, high := int32(cal[0][0]), int32(cal[0][Octaves])

	tests := []struct {
		name   string
		pitch  int32
		offset int32
		s      Scaling
		want   int32
	}{
		{"huge offset", 0, math.MaxInt32 / 1000, Scaling1VPerOct, high},
		{"huge negative offset", 0, math.MinInt32 / 1000, Scaling1VPerOct, low},
		{"max pitch", math.MaxInt32, 0, Scaling1VPerOct, high},
		{"min pitch", math.MinInt32, 0, Scaling1VPerOct, low},
		{"bohlen-pierce max pitch", math.MaxInt32, 0, ScalingBohlenPierce, high},
		{"2V max pitch", math.MaxInt32, 0, Scaling2VPerOct, high},
		{"2V min pitch", math.MinInt32, 0, Scaling2VPerOct, low},
	}
	for _, tt := range tests {
		if got := d.ScaledPitchToCode(0, tt.pitch, tt.offset, tt.s); got != tt.want {
			t.Errorf("%s: scaled code = %d, want %d", tt.name, got, tt.want)
		}
		if tt.s != Scaling1VPerOct {
			continue
		}
		if got := d.PitchToCode(0, tt.pitch, tt.offset); got != tt.want {
			t.Errorf("%s: code = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestOctaveOffsetAndSemitone(t *testing.T) {
	cal := testCalibration()
	d := New(nil, cal)

	if got, want := d.PitchToCode(2, 0, 2), int32(cal[2][OctaveZero+2]); got != want {
		t.Errorf("octave offset: %d, want %d", got, want)
	}
	if got, want := d.SemitoneToCode(2, 12, 0), d.PitchToCode(2, PitchPerOctave, 0); got != want {
		t.Errorf("semitone: %d, want %d", got, want)
	}
	if d.ZeroOffset(3) != cal[3][OctaveZero] {
		t.Errorf("zero offset = %d", d.ZeroOffset(3))
	}
	if d.OctaveOffset(3, -3) != cal[3][0] || d.OctaveOffset(3, 99) != cal[3][Octaves] {
		t.Error("octave offset lookup not clamped to table")
	}
}

func TestScaledPitch(t *testing.T) {
	d := New(nil, testCalibration())
	pitch := int32(2 * PitchPerOctave)

	tests := []struct {
		s      Scaling
		scaled int32
	}{
		{Scaling1VPerOct, pitch},
		{ScalingCarlosAlpha, (pitch * 25548) >> 15},
		{ScalingCarlosBeta, (pitch * 20917) >> 15},
		{ScalingCarlosGamma, (pitch * 11501) >> 15},
		{ScalingBohlenPierce, (pitch * 25969) >> 14},
		{ScalingQuartertone, pitch / 2},
		{Scaling1_2VPerOct, (pitch * 19661) >> 14},
		{Scaling2VPerOct, pitch * 2},
	}
	for _, tt := range tests {
		t.Run(tt.s.String(), func(t *testing.T) {
			got := d.ScaledPitchToCode(0, pitch, 0, tt.s)
			want := d.PitchToCode(0, tt.scaled, 0)
			if got != want {
				t.Fatalf("code = %d, want %d", got, want)
			}
		})
	}

	// the octave offset is scaled with the pitch
	got := d.ScaledPitchToCode(0, 0, 2, ScalingQuartertone)
	if want := d.PitchToCode(0, PitchPerOctave, 0); got != want {
		t.Fatalf("scaled octave offset: %d, want %d", got, want)
	}
}

func TestSetSaturates(t *testing.T) {
	d := New(nil, DefaultCalibration())
	d.Set(0, -5)
	d.Set(1, 70000)
	d.Set(2, 1234)
	if d.Value(0) != 0 || d.Value(1) != MaxValue || d.Value(2) != 1234 {
		t.Fatalf("values = %d %d %d", d.Value(0), d.Value(1), d.Value(2))
	}

	d.SetAll(99)
	for ch := 0; ch < NumChannels; ch++ {
		if d.Value(ch) != 99 {
			t.Fatalf("SetAll ch %d = %d", ch, d.Value(ch))
		}
	}
}

func TestSetPitchAndOctave(t *testing.T) {
	cal := testCalibration()
	d := New(nil, cal)

	d.SetOctave(1, 5)
	if d.Value(1) != cal[1][OctaveZero+5] {
		t.Fatalf("SetOctave = %d", d.Value(1))
	}
	d.SetPitch(3, 0, 0)
	if d.Value(3) != cal[3][OctaveZero] {
		t.Fatalf("SetPitch 0V = %d", d.Value(3))
	}
	d.SetScaledPitch(0, 0, 0, ScalingBohlenPierce)
	if d.Value(0) != cal[0][OctaveZero] {
		t.Fatalf("SetScaledPitch 0V = %d", d.Value(0))
	}
}

func TestUpdateFlushesAndRecordsHistory(t *testing.T) {
	sink := &fakeSink{}
	d := New(sink, DefaultCalibration())

	for i := 1; i <= HistoryDepth+2; i++ {
		d.Set(0, int32(i*100))
		d.Update()
	}
	if sink.n != (HistoryDepth+2)*NumChannels {
		t.Fatalf("sink writes = %d", sink.n)
	}
	if sink.codes[0] != uint16((HistoryDepth+2)*100) {
		t.Fatalf("last code = %d", sink.codes[0])
	}

	h := d.History(0)
	for i, v := range h {
		if want := uint16((i + 3) * 100); v != want {
			t.Fatalf("history[%d] = %d, want %d", i, v, want)
		}
	}
}

func TestSetCalibration(t *testing.T) {
	d := New(nil, DefaultCalibration())
	cal := testCalibration()
	d.SetCalibration(cal)
	if d.Calibration() != cal {
		t.Fatal("calibration not swapped")
	}
	if d.ZeroOffset(0) != cal[0][OctaveZero] {
		t.Fatal("lookup does not use new table")
	}
}
