package hemisphere

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-hemisphere/adc"
	"go-hemisphere/applet"
	"go-hemisphere/applets"
	"go-hemisphere/clock"
	"go-hemisphere/core"
	"go-hemisphere/dac"
	"go-hemisphere/debug"
	"go-hemisphere/gate"
	"go-hemisphere/midi"
	"go-hemisphere/pack"
	"go-hemisphere/preset"
	"go-hemisphere/sim"
)

const (
	emptyIndex  = 0
	trigSHIndex = 1
)

type fakeClockIn struct{ next midi.Latches }

func (f *fakeClockIn) Take() midi.Latches {
	l := f.next
	f.next = midi.Latches{}
	return l
}

type fakeSender struct{ sent []midi.Realtime }

func (f *fakeSender) Queue(r midi.Realtime) bool {
	f.sent = append(f.sent, r)
	return true
}

// transport returns everything sent except timing clocks
func (f *fakeSender) transport() []midi.Realtime {
	var out []midi.Realtime
	for _, r := range f.sent {
		if r != midi.RealtimeClock {
			out = append(out, r)
		}
	}
	return out
}

type rig struct {
	sched *core.Scheduler
	panel *sim.Panel
	io    *applet.IO
	in    *fakeClockIn
	out   *fakeSender
	store *preset.Store
	m     *Manager
}

func newRig(t *testing.T, dir string) *rig {
	t.Helper()
	cal := adc.DefaultCalibration()
	cal.PitchCVScale = 4096
	gates := gate.New()
	panel := sim.NewPanel(cal, gates)
	a := adc.New(panel, cal)
	d := dac.New(panel, dac.DefaultCalibration())

	sched := core.NewScheduler(d, a, gates)
	sched.SetTiming(false)
	io := applet.NewIO(a, d, gates, clock.NewEngine(sched), sched)

	r := &rig{
		sched: sched,
		panel: panel,
		io:    io,
		in:    &fakeClockIn{},
		out:   &fakeSender{},
		store: preset.NewStore(dir),
	}
	r.m = NewManager(sched, io, applets.Registry(), r.in, r.out)
	r.m.SetPresets(r.store)
	if err := r.m.Start(trigSHIndex, trigSHIndex); err != nil {
		t.Fatal(err)
	}
	sched.SetApp(r.m)
	sched.SetAppEnabled(true)
	return r
}

func (r *rig) run(n int) {
	for i := 0; i < n; i++ {
		r.sched.Tick()
	}
}

func TestStartSetsPrograms(t *testing.T) {
	r := newRig(t, t.TempDir())

	st := r.m.Status()
	if st.Programs != [2]string{"Trig S&H", "Trig S&H"} {
		t.Fatalf("programs = %v", st.Programs)
	}
	if r.m.Program(applet.Left) == r.m.Program(applet.Right) {
		t.Fatal("hemispheres share an instance")
	}
	if r.m.Program(applet.Right).AppletBase().Hemisphere() != applet.Right {
		t.Fatal("right program bound to the wrong hemisphere")
	}
	if err := r.m.SetProgram(applet.Left, 99); err == nil {
		t.Fatal("expected error for unknown program index")
	}
}

func TestSampleAndHoldThroughScheduler(t *testing.T) {
	r := newRig(t, t.TempDir())

	r.panel.SetCV(0, 500)
	r.run(adc.NumChannels * 2)
	r.panel.Pulse(0)
	r.run(applet.ADCLag + 2)

	if got := r.io.Output(0); got != 500 {
		t.Fatalf("held output = %d, want 500", got)
	}
	if got, want := r.io.Output(1), applet.PulseVoltage*applet.PitchPerOctave; got != want {
		t.Fatalf("trigger output = %d, want %d", got, want)
	}
	// pulse ends after ClockTicks * trigger length
	r.run(applet.ClockTicks * applet.DefaultTrigLen)
	if got := r.io.Output(1); got != 0 {
		t.Fatalf("trigger output = %d after pulse, want 0", got)
	}
}

func TestBoop(t *testing.T) {
	r := newRig(t, t.TempDir())

	r.m.Boop(2) // right hemisphere, channel 0
	r.run(1)
	if r.io.Output(3) == 0 {
		t.Fatal("boop did not clock the right hemisphere")
	}
	if r.io.Output(1) != 0 {
		t.Fatal("boop leaked to the left hemisphere")
	}
}

func TestToggleClockRun(t *testing.T) {
	r := newRig(t, t.TempDir())
	eng := r.io.Clock

	r.m.ToggleClockRun()
	if !eng.IsPaused() || eng.IsRunning() {
		t.Fatal("first press should arm the clock")
	}
	if len(r.out.sent) != 0 {
		t.Fatalf("sent %v while arming", r.out.sent)
	}

	r.m.ToggleClockRun()
	if !eng.IsRunning() {
		t.Fatal("second press should start the clock")
	}
	r.run(int(eng.TicksPerBeat()) - 1)

	r.m.ToggleClockRun()
	if eng.IsRunning() || eng.IsPaused() {
		t.Fatal("third press should stop the clock")
	}

	want := []midi.Realtime{midi.RealtimeStart, midi.RealtimeStop}
	got := r.out.transport()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("transport = %v, want %v", got, want)
	}
	if n := len(r.out.sent) - len(got); n != clock.MIDIOutPPQN {
		t.Fatalf("sent %d clocks in one beat, want %d", n, clock.MIDIOutPPQN)
	}
}

func TestArmedClockStartsOnGate(t *testing.T) {
	r := newRig(t, t.TempDir())
	eng := r.io.Clock

	r.m.ToggleClockRun()
	r.run(100)
	if eng.IsRunning() {
		t.Fatal("armed clock started without an edge")
	}
	r.panel.Pulse(0)
	r.run(1)
	if !eng.IsRunning() {
		t.Fatal("armed clock did not start on the clock input")
	}
}

func TestGateSyncTracksTempo(t *testing.T) {
	r := newRig(t, t.TempDir())
	eng := r.io.Clock
	eng.SetClockPPQN(4)

	r.m.ToggleClockRun()
	for i := 0; i < 4; i++ {
		r.panel.Pulse(0)
		r.run(2500)
	}
	// 4 pulses per beat, 2500 ticks apart
	if got := eng.Tempo(); got != 100 {
		t.Fatalf("tempo = %d, want 100", got)
	}
}

func TestMIDISync(t *testing.T) {
	r := newRig(t, t.TempDir())
	r.m.SetSyncSource(SyncMIDI)
	eng := r.io.Clock

	r.in.next = midi.Latches{Start: true}
	r.run(1)
	if !eng.IsPaused() {
		t.Fatal("MIDI start should arm the clock")
	}

	// a gate edge is ignored with MIDI sync
	r.panel.Pulse(0)
	r.run(1)
	if eng.IsRunning() {
		t.Fatal("gate started a MIDI-synced clock")
	}

	for i := 0; i < 4; i++ {
		r.in.next = midi.Latches{Clock: true}
		r.run(200)
	}
	if !eng.IsRunning() {
		t.Fatal("MIDI clock did not start the clock")
	}
	// 24 clocks per beat, 200 ticks apart
	if got := eng.Tempo(); got != 208 {
		t.Fatalf("tempo = %d, want 208", got)
	}

	if got := eng.ClockPPQN(); got != clock.DefaultPPQN {
		t.Fatalf("clock input ppqn = %d, want %d", got, clock.DefaultPPQN)
	}

	r.in.next = midi.Latches{Stop: true}
	r.run(1)
	if eng.IsRunning() || eng.IsPaused() {
		t.Fatal("MIDI stop did not stop the clock")
	}
}

func TestMIDISyncDefaultPPQN(t *testing.T) {
	r := newRig(t, t.TempDir())
	r.m.SetSyncSource(SyncMIDI)
	eng := r.io.Clock

	// a sender at 120 bpm: 24 clocks per 8328 tick beat
	r.m.ToggleClockRun()
	for i := 0; i < 2*clock.MIDIOutPPQN; i++ {
		r.in.next = midi.Latches{Clock: true}
		r.run(347)
	}
	if got := eng.Tempo(); got != 120 {
		t.Fatalf("tempo = %d, want 120", got)
	}
}

func TestAnySyncTracksEachSource(t *testing.T) {
	r := newRig(t, t.TempDir())
	r.m.SetSyncSource(SyncAny)
	eng := r.io.Clock
	eng.SetClockPPQN(4)

	// the same 4800 tick beat from both: gate every 1200, MIDI every 200
	r.m.ToggleClockRun()
	for i := 0; i < 4*clock.MIDIOutPPQN; i++ {
		if i%6 == 0 {
			r.panel.Pulse(0)
		}
		r.in.next = midi.Latches{Clock: true}
		r.run(200)
	}
	if got := eng.Tempo(); got != 208 {
		t.Fatalf("tempo = %d, want 208", got)
	}
}

func TestChannelUpdateOncePerTick(t *testing.T) {
	r := newRig(t, t.TempDir())
	left := r.m.Program(applet.Left).AppletBase()
	right := r.m.Program(applet.Right).AppletBase()
	r.run(adc.NumChannels * 2)

	t.Run("changed", func(t *testing.T) {
		r.panel.SetCV(0, 1000)
		r.panel.SetCV(2, 1000)
		var changed [2]int
		for i := 0; i < adc.NumChannels*4; i++ {
			r.run(1)
			if left.Changed(0) {
				changed[applet.Left]++
			}
			if right.Changed(0) {
				changed[applet.Right]++
			}
		}
		if changed[applet.Left] == 0 || changed[applet.Left] != changed[applet.Right] {
			t.Fatalf("ticks changed: left %d, right %d", changed[applet.Left], changed[applet.Right])
		}
	})

	t.Run("pulse length", func(t *testing.T) {
		r.panel.Pulse(0) // left channel 0
		r.panel.Pulse(2) // right channel 0
		var high [2]int
		for i := 0; i < 3*applet.ClockTicks*applet.DefaultTrigLen; i++ {
			r.run(1)
			if r.io.Output(1) != 0 {
				high[applet.Left]++
			}
			if r.io.Output(3) != 0 {
				high[applet.Right]++
			}
		}
		want := applet.ClockTicks * applet.DefaultTrigLen
		if high[applet.Left] != want || high[applet.Right] != want {
			t.Fatalf("pulse ticks: left %d, right %d, want %d", high[applet.Left], high[applet.Right], want)
		}
	})
}

func TestTap(t *testing.T) {
	r := newRig(t, t.TempDir())

	r.m.Tap()
	r.run(5000)
	r.m.Tap()
	if got := r.io.Clock.Tempo(); got != 200 {
		t.Fatalf("tempo = %d, want 200", got)
	}
}

func TestChangeProgramWraps(t *testing.T) {
	r := newRig(t, t.TempDir())
	n := applets.Registry().Len()

	if err := r.m.ChangeProgram(applet.Left, 1); err != nil {
		t.Fatal(err)
	}
	if got := r.m.ProgramIndex(applet.Left); got != (trigSHIndex+1)%n {
		t.Fatalf("index = %d after +1", got)
	}
	if err := r.m.ChangeProgram(applet.Left, -1); err != nil {
		t.Fatal(err)
	}
	if got := r.m.ProgramIndex(applet.Left); got != trigSHIndex {
		t.Fatalf("index = %d after -1", got)
	}

	r.m.SetProgram(applet.Right, emptyIndex)
	r.m.ChangeProgram(applet.Right, -1)
	if got := r.m.ProgramIndex(applet.Right); got != n-1 {
		t.Fatalf("index = %d, want wrap to %d", got, n-1)
	}
}

func TestProgramKeepsStateAcrossSwitch(t *testing.T) {
	r := newRig(t, t.TempDir())

	r.m.EncoderMove(applet.Left, 2)
	want := r.m.Program(applet.Left).Save()

	r.m.SetProgram(applet.Left, emptyIndex)
	r.m.SetProgram(applet.Left, trigSHIndex)
	if got := r.m.Program(applet.Left).Save(); got != want {
		t.Fatalf("settings %#x after switching back, want %#x", got, want)
	}
}

func TestInputRouting(t *testing.T) {
	r := newRig(t, t.TempDir())

	t.Run("select mode", func(t *testing.T) {
		r.m.ToggleSelectMode(applet.Right)
		r.m.EncoderMove(applet.Right, -1)
		if got := r.m.ProgramIndex(applet.Right); got != emptyIndex {
			t.Fatalf("index = %d, want %d", got, emptyIndex)
		}
		r.m.ButtonPress(applet.Right)
		if r.m.Status().SelectMode != -1 {
			t.Fatal("button press did not leave select mode")
		}
	})

	t.Run("program", func(t *testing.T) {
		before := r.m.Program(applet.Left).Save()
		r.m.EncoderMove(applet.Left, 1)
		if r.m.Program(applet.Left).Save() == before {
			t.Fatal("encoder did not reach the program")
		}
		r.m.ButtonPress(applet.Left)
		if r.m.Program(applet.Left).Save() != before {
			t.Fatal("button did not reach the program")
		}
	})

	t.Run("clock setup", func(t *testing.T) {
		tempo := r.io.Clock.Tempo()
		r.m.ToggleClockSetup()
		r.m.EncoderMove(applet.Right, 3)
		if got := r.io.Clock.Tempo(); got != tempo+3 {
			t.Fatalf("tempo = %d, want %d", got, tempo+3)
		}
		if !strings.Contains(r.m.View(applet.Left), "tempo") {
			t.Fatal("clock setup not shown")
		}
		r.m.ToggleClockSetup()
		if r.m.Status().SetupOpen {
			t.Fatal("clock setup still open")
		}
	})
}

func TestPresetRoundTrip(t *testing.T) {
	r := newRig(t, t.TempDir())
	eng := r.io.Clock

	eng.SetTempoBPM(97)
	eng.SetMultiply(-2, clock.Left2)
	r.m.EncoderMove(applet.Left, 2)
	want := r.m.Program(applet.Left).Save()

	if err := r.m.StoreToPreset(1); err != nil {
		t.Fatal(err)
	}

	eng.SetTempoBPM(150)
	eng.SetMultiply(0, clock.Left2)
	r.m.EncoderMove(applet.Left, -2)
	r.m.SetProgram(applet.Left, emptyIndex)

	if err := r.m.LoadFromPreset(1); err != nil {
		t.Fatal(err)
	}
	if got := eng.Tempo(); got != 97 {
		t.Fatalf("tempo = %d, want 97", got)
	}
	if got := eng.Multiply(clock.Left2); got != -2 {
		t.Fatalf("multiply = %d, want -2", got)
	}
	if got := r.m.ProgramIndex(applet.Left); got != trigSHIndex {
		t.Fatalf("left index = %d", got)
	}
	if got := r.m.Program(applet.Left).Save(); got != want {
		t.Fatalf("left settings = %#x, want %#x", got, want)
	}
	if r.m.Preset() != 1 {
		t.Fatalf("preset = %d", r.m.Preset())
	}

	if err := r.m.LoadFromPreset(2); err != preset.ErrEmpty {
		t.Fatalf("load empty preset: %v", err)
	}
}

func TestPresetUnknownProgram(t *testing.T) {
	r := newRig(t, t.TempDir())

	right := applets.NewTrigSH()
	right.OnEncoderMove(-1)
	p := &preset.Preset{
		Hemispheres: [2]pack.Chunk{
			{ProgramID: "no-such-program", Version: 1, Data: 7},
			applet.Chunk("trigsh", right),
		},
	}
	if err := r.store.Save(3, p); err != nil {
		t.Fatal(err)
	}
	tempo := r.io.Clock.Tempo()

	if err := r.m.LoadFromPreset(3); err != nil {
		t.Fatal(err)
	}
	if got := r.m.ProgramIndex(applet.Left); got != emptyIndex {
		t.Fatalf("left index = %d, want default", got)
	}
	if got := r.m.Program(applet.Right).Save(); got != right.Save() {
		t.Fatalf("right settings = %#x, want %#x", got, right.Save())
	}
	// missing clock chunk keeps the current clock
	if got := r.io.Clock.Tempo(); got != tempo {
		t.Fatalf("tempo = %d, want %d", got, tempo)
	}
}

func TestPresetLayoutMismatch(t *testing.T) {
	r := newRig(t, t.TempDir())

	r.m.EncoderMove(applet.Left, 3)
	old := r.m.Program(applet.Left)

	p := &preset.Preset{
		Clock: pack.Chunk{ProgramID: applets.ClockSetupID, Version: 99, Width: 3, Data: 1},
		Hemispheres: [2]pack.Chunk{
			{ProgramID: "trigsh", Version: 99, Width: 4, Data: 1},
			{ProgramID: "empty", Version: 1},
		},
	}
	if err := r.store.Save(2, p); err != nil {
		t.Fatal(err)
	}
	tempo := r.io.Clock.Tempo()

	if err := r.m.LoadFromPreset(2); err != nil {
		t.Fatal(err)
	}
	got := r.m.Program(applet.Left)
	if got == old {
		t.Fatal("mismatched settings kept the old instance")
	}
	if got.Save() != 0 {
		t.Fatalf("settings = %#x, want defaults", got.Save())
	}
	if r.m.ProgramIndex(applet.Right) != emptyIndex {
		t.Fatal("right chunk not loaded")
	}
	if r.io.Clock.Tempo() != tempo {
		t.Fatal("mismatched clock chunk changed the tempo")
	}
}

func TestResumeAndClose(t *testing.T) {
	dir := t.TempDir()
	r := newRig(t, dir)

	if err := r.m.Resume(); err != nil {
		t.Fatalf("resume with no presets: %v", err)
	}
	if r.m.Close(); r.store.Valid()[0] {
		t.Fatal("close saved preset A without it being active")
	}

	if err := r.m.StoreToPreset(0); err != nil {
		t.Fatal(err)
	}
	r.io.Clock.SetTempoBPM(140)
	if err := r.m.Close(); err != nil {
		t.Fatal(err)
	}

	r2 := newRig(t, dir)
	if err := r2.m.Resume(); err != nil {
		t.Fatal(err)
	}
	if got := r2.io.Clock.Tempo(); got != 140 {
		t.Fatalf("resumed tempo = %d, want 140", got)
	}
	if r2.m.Preset() != 0 {
		t.Fatalf("preset = %d after resume", r2.m.Preset())
	}
}

func TestNoPresetStore(t *testing.T) {
	r := newRig(t, t.TempDir())
	r.m.SetPresets(nil)

	if err := r.m.StoreToPreset(0); err == nil {
		t.Fatal("store without a preset store")
	}
	if err := r.m.Resume(); err != nil {
		t.Fatal(err)
	}
}

func TestDumpState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	if err := debug.EnableAt(path); err != nil {
		t.Fatal(err)
	}
	defer debug.Disable()

	r := newRig(t, t.TempDir())
	r.m.DumpState()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"cat=state", "Tempo", "Trig S&H"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log missing %q", want)
		}
	}
}

func TestParseSyncSource(t *testing.T) {
	tests := []struct {
		name    string
		want    SyncSource
		wantErr bool
	}{
		{"", SyncGate, false},
		{"gate", SyncGate, false},
		{"midi", SyncMIDI, false},
		{"any", SyncAny, false},
		{"usb", SyncGate, true},
	}
	for _, tt := range tests {
		got, err := ParseSyncSource(tt.name)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseSyncSource(%q) = %v, %v", tt.name, got, err)
		}
		if !tt.wantErr && tt.name != "" && got.String() != tt.name {
			t.Errorf("String() = %q, want %q", got.String(), tt.name)
		}
	}
}
