package adc

import "testing"

type fakeSource struct {
	v [NumChannels]uint16
	n [NumChannels]int
}

func (f *fakeSource) Sample(ch int) uint16 {
	f.n[ch]++
	return f.v[ch]
}

// scanAll runs a full round robin cycle
func scanAll(a *ADC, cycles int) {
	for i := 0; i < cycles*NumChannels; i++ {
		a.Scan()
	}
}

func TestScanRoundRobin(t *testing.T) {
	src := &fakeSource{}
	a := New(src, DefaultCalibration())
	for i := 0; i < 10; i++ {
		a.Scan()
	}
	want := [NumChannels]int{3, 3, 2, 2}
	if src.n != want {
		t.Fatalf("conversions per channel = %v, want %v", src.n, want)
	}
}

func TestRawAndSmoothed(t *testing.T) {
	src := &fakeSource{}
	src.v[1] = 0x8000 // 2048 after the 12 bit shift
	a := New(src, DefaultCalibration())

	scanAll(a, 1)
	if got := a.RawValue(1); got != 2048 {
		t.Fatalf("raw = %d, want 2048", got)
	}
	// one step of (s*3 + v) / 4 from zero
	if got := a.SmoothedRawValue(1); got != 512 {
		t.Fatalf("smoothed = %d, want 512", got)
	}

	scanAll(a, 100)
	if got := a.SmoothedRawValue(1); got < 2046 || got > 2048 {
		t.Fatalf("smoothed did not converge: %d", got)
	}
	if got := a.Value(1); got < 0 || got > 2 {
		t.Fatalf("value at offset = %d, want ~0", got)
	}
}

func TestPitchValues(t *testing.T) {
	src := &fakeSource{}
	cal := DefaultCalibration()
	a := New(src, cal)

	// one octave below center in raw counts is 4096/10 codes
	src.v[0] = uint16(DefaultOffset-410) << 4
	scanAll(a, 200)

	// 410 counts * 15360 / 4096 = 1537.5
	if got := a.RawPitchValue(0); got != 1537 {
		t.Fatalf("raw pitch = %d, want 1537", got)
	}
	if got := a.PitchValue(0); got < 1530 || got > 1540 {
		t.Fatalf("pitch = %d, want ~1537", got)
	}
}

func TestChangeThreshold(t *testing.T) {
	tests := []struct {
		name  string
		delta int
		want  bool
	}{
		{"below", ChangeThreshold - 1, false},
		{"exact", ChangeThreshold, false},
		{"above", ChangeThreshold + 1, true},
		{"negative exact", -ChangeThreshold, false},
		{"negative above", -ChangeThreshold - 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{}
			cal := DefaultCalibration()
			cal.PitchCVScale = 4096 // one pitch unit per count
			a := New(src, cal)

			base := 1000
			src.v[2] = uint16(base) << 4
			scanAll(a, 1)
			a.Changed(2) // establish the reference

			src.v[2] = uint16(base+tt.delta) << 4
			scanAll(a, 1)
			if got := a.Changed(2); got != tt.want {
				t.Fatalf("Changed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChangeReferenceOnlyMovesOnChange(t *testing.T) {
	a := New(nil, DefaultCalibration())
	if a.ChangedValue(0, 20) {
		t.Fatal("20 reported as change")
	}
	// drifting in small steps still adds up against the old reference
	if !a.ChangedValue(0, 40) {
		t.Fatal("cumulative drift of 40 not reported")
	}
	if a.ChangedValue(0, 60) {
		t.Fatal("reference not updated after change")
	}
}

func TestCalibratePitch(t *testing.T) {
	a := New(nil, DefaultCalibration())

	a.CalibratePitch(1000, 1819)
	if got := a.Calibration().PitchCVScale; got != uint16((24*128*4096)/819) {
		t.Fatalf("scale = %d", got)
	}

	before := a.Calibration()
	a.CalibratePitch(2000, 1000)
	if a.Calibration() != before {
		t.Fatal("reversed readings changed calibration")
	}

	a.CalibratePitch(0, 1)
	if got := a.Calibration().PitchCVScale; got != 65535 {
		t.Fatalf("tiny span scale = %d, want saturated", got)
	}
}
