// Package hemisphere runs two channel programs side by side on the shared
// clock, with preset storage and MIDI clock in and out.
package hemisphere

import (
	"context"
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"

	"go-hemisphere/applet"
	"go-hemisphere/applets"
	"go-hemisphere/clock"
	"go-hemisphere/debug"
	"go-hemisphere/midi"
	"go-hemisphere/preset"
)

// UI refresh rate
const uiFPS = 30

// Suspender runs fn with per-tick dispatch held off
type Suspender interface {
	Suspend(fn func())
}

// ClockSource returns the MIDI realtime messages received since the last
// call
type ClockSource interface {
	Take() midi.Latches
}

// SyncSource selects what external signal clocks the engine
type SyncSource int

const (
	SyncGate SyncSource = iota // digital input 1
	SyncMIDI
	SyncAny
)

func (s SyncSource) String() string {
	switch s {
	case SyncMIDI:
		return "midi"
	case SyncAny:
		return "any"
	}
	return "gate"
}

// ParseSyncSource converts a config name to a SyncSource
func ParseSyncSource(name string) (SyncSource, error) {
	switch name {
	case "gate", "":
		return SyncGate, nil
	case "midi":
		return SyncMIDI, nil
	case "any":
		return SyncAny, nil
	}
	return SyncGate, fmt.Errorf("unknown sync source %q", name)
}

// Status is a snapshot of the manager for the UI
type Status struct {
	Clock      clock.Snapshot
	Programs   [2]string
	SelectMode int // hemisphere choosing a program, -1 if none
	SetupOpen  bool
	Preset     int // last loaded or stored preset, -1 if none
	Sync       SyncSource
	MIDISent   uint64
}

// Manager owns the two hemispheres. ISR runs on every tick; the rest is
// called from the foreground.
type Manager struct {
	sched   Suspender
	io      *applet.IO
	reg     *applet.Registry
	inst    *applet.Instances
	setup   *applets.ClockSetup
	tap     *clock.TapTempo
	presets *preset.Store
	midiIn  ClockSource
	midiOut applets.ClockSender

	// tick context, replaced only while suspended
	active [2]applet.Program
	sync   SyncSource

	// foreground
	index      [2]int
	selectMode int
	setupOpen  bool
	presetID   int

	// Notify UI of updates
	UpdateChan chan struct{}
}

// NewManager creates a manager. midiIn and midiOut may be nil.
func NewManager(sched Suspender, io *applet.IO, reg *applet.Registry, midiIn ClockSource, midiOut applets.ClockSender) *Manager {
	m := &Manager{
		sched:      sched,
		io:         io,
		reg:        reg,
		inst:       applet.NewInstances(reg),
		tap:        clock.NewTapTempo(io.Clock),
		midiIn:     midiIn,
		midiOut:    midiOut,
		selectMode: -1,
		presetID:   -1,
		UpdateChan: make(chan struct{}, 1),
	}
	m.setup = applets.NewClockSetup(midiOut)
	applet.BaseStart(m.setup, io, applet.Left)
	return m
}

// SetPresets sets the preset store
func (m *Manager) SetPresets(s *preset.Store) {
	m.presets = s
}

// SetSyncSource selects the external clock
func (m *Manager) SetSyncSource(s SyncSource) {
	m.sched.Suspend(func() {
		m.sync = s
	})
}

// Start selects the initial programs
func (m *Manager) Start(left, right int) error {
	if err := m.SetProgram(applet.Left, left); err != nil {
		return err
	}
	return m.SetProgram(applet.Right, right)
}

// ISR is the per-tick application callback
func (m *Manager) ISR() {
	eng := m.io.Clock

	var l midi.Latches
	if m.midiIn != nil && m.sync != SyncGate {
		l = m.midiIn.Take()
	}
	if l.Stop {
		eng.Stop()
	}
	if l.Start || l.Continue {
		eng.Start(true) // run from the next clock
	}

	// MIDI clock is tracked at its own 24 PPQN, the clock input at the
	// configured PPQN
	var gateSync, midiSync bool
	switch m.sync {
	case SyncGate:
		gateSync = m.io.Gates.Clocked(0)
	case SyncMIDI:
		midiSync = l.Clock
	case SyncAny:
		gateSync = m.io.Gates.Clocked(0)
		midiSync = l.Clock
	}
	reset := m.io.Gates.Clocked(3)

	// Paused means wait for clock-sync to start
	if eng.IsPaused() && (gateSync || midiSync) {
		eng.Start(false)
	}

	// Advance internal clock, sync to external clock / reset
	if eng.IsRunning() {
		eng.SyncTrigMIDI(gateSync, midiSync, reset)
	}

	// The clock setup program always runs - it handles MIDI clock out. It
	// owns no channels, so it skips the per-channel update.
	m.setup.Controller()

	forwarded := eng.IsForwarded()

	for _, p := range m.active {
		if p != nil {
			applet.BaseController(p, forwarded)
		}
	}
}

// SetProgram selects a hemisphere's program by registry index. A program
// selected before keeps its state.
func (m *Manager) SetProgram(h applet.Hemisphere, index int) error {
	p, ok := m.inst.Get(h, index)
	if !ok {
		return fmt.Errorf("set %s program: no program at index %d", h, index)
	}
	m.sched.Suspend(func() {
		m.install(h, index, p)
	})
	debug.Log("program", "%s: %s", h, p.Name())
	m.notifyUpdate()
	return nil
}

// install binds p to a hemisphere. Must be called while suspended.
func (m *Manager) install(h applet.Hemisphere, index int, p applet.Program) {
	applet.BaseStart(p, m.io, h)
	m.active[h] = p
	m.index[h] = index
}

// ChangeProgram steps a hemisphere's program forward or back, wrapping
func (m *Manager) ChangeProgram(h applet.Hemisphere, dir int) error {
	n := m.reg.Len()
	if n == 0 {
		return fmt.Errorf("change %s program: no programs", h)
	}
	index := ((m.index[h]+dir)%n + n) % n
	return m.SetProgram(h, index)
}

// Program returns a hemisphere's active program, nil before Start
func (m *Manager) Program(h applet.Hemisphere) applet.Program {
	return m.active[h]
}

// ProgramIndex returns a hemisphere's registry index
func (m *Manager) ProgramIndex(h applet.Hemisphere) int {
	return m.index[h]
}

// ClockSetup returns the clock setup program
func (m *Manager) ClockSetup() *applets.ClockSetup {
	return m.setup
}

// Clock transport

// ToggleClockRun stops a running clock. A stopped clock is armed to start
// on the next external clock; pressing again while armed starts it now.
func (m *Manager) ToggleClockRun() {
	eng := m.io.Clock
	if eng.IsRunning() {
		eng.Stop()
		m.sendRealtime(midi.RealtimeStop)
		debug.Log("clock", "stop")
		return
	}
	paused := eng.IsPaused()
	eng.Start(!paused)
	if paused {
		m.sendRealtime(midi.RealtimeStart)
	}
	debug.Log("clock", "start paused=%v", !paused)
}

func (m *Manager) sendRealtime(r midi.Realtime) {
	if m.midiOut != nil {
		m.midiOut.Queue(r)
	}
}

// Tap feeds a tap tempo press at the current tick
func (m *Manager) Tap() {
	n := m.tap.Tap(m.io.Ticks.Ticks())
	debug.Log("clock", "tap: %d intervals, tempo %d", n, m.io.Clock.Tempo())
}

// Boop sends a manual clock to a channel (0-3)
func (m *Manager) Boop(ch int) {
	m.io.Clock.Boop(ch)
}

// ToggleForwarding mirrors the left clock input to the right hemisphere
func (m *Manager) ToggleForwarding() {
	m.io.Clock.ToggleForwarding()
}

// Navigation

// ToggleClockSetup shows or hides the clock setup program
func (m *Manager) ToggleClockSetup() {
	m.setupOpen = !m.setupOpen
	m.selectMode = -1
}

// ToggleSelectMode enters or leaves program selection for a hemisphere
func (m *Manager) ToggleSelectMode(h applet.Hemisphere) {
	if m.selectMode == int(h) {
		m.selectMode = -1
	} else {
		m.selectMode = int(h)
	}
}

// ButtonPress routes an encoder push
func (m *Manager) ButtonPress(h applet.Hemisphere) {
	switch {
	case m.setupOpen:
		m.sched.Suspend(m.setup.OnButtonPress)
	case m.selectMode == int(h):
		// Pushing the button for the selected side turns off select mode
		m.selectMode = -1
	case m.active[h] != nil:
		m.sched.Suspend(m.active[h].OnButtonPress)
	}
	m.notifyUpdate()
}

// EncoderMove routes an encoder turn
func (m *Manager) EncoderMove(h applet.Hemisphere, dir int) {
	switch {
	case m.setupOpen:
		m.sched.Suspend(func() { m.setup.OnEncoderMove(dir) })
	case m.selectMode == int(h):
		if err := m.ChangeProgram(h, dir); err != nil {
			debug.Log("program", "%v", err)
		}
	case m.active[h] != nil:
		m.sched.Suspend(func() { m.active[h].OnEncoderMove(dir) })
	}
	m.notifyUpdate()
}

// View renders a hemisphere's program, or the clock setup when it is open
func (m *Manager) View(h applet.Hemisphere) string {
	if m.setupOpen {
		if h == applet.Left {
			return m.setup.View()
		}
		return ""
	}
	if p := m.active[h]; p != nil {
		return p.View()
	}
	return ""
}

// Status returns a snapshot for the UI
func (m *Manager) Status() Status {
	s := Status{
		Clock:      m.io.Clock.Snapshot(),
		SelectMode: m.selectMode,
		SetupOpen:  m.setupOpen,
		Preset:     m.presetID,
		Sync:       m.sync,
		MIDISent:   m.setup.Sent(),
	}
	for h, p := range m.active {
		if p != nil {
			s.Programs[h] = p.Name()
		}
	}
	return s
}

// DumpState writes the clock and channel state to the debug log
func (m *Manager) DumpState() {
	if !debug.Enabled() {
		return
	}
	state := struct {
		Status  Status
		Inputs  [applet.NumChannels]int
		Outputs [applet.NumChannels]int
		Cycles  [applet.NumChannels]uint32
	}{Status: m.Status()}
	for ch := 0; ch < applet.NumChannels; ch++ {
		state.Inputs[ch] = m.io.Input(ch)
		state.Outputs[ch] = m.io.Output(ch)
		state.Cycles[ch] = m.io.CycleTicks(ch)
	}
	debug.Log("state", "%s", spew.Sdump(state))
}

// Run notifies the UI at a fixed rate (blocking - run in goroutine)
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / uiFPS)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.notifyUpdate()
		}
	}
}

// notifyUpdate wakes the UI without blocking
func (m *Manager) notifyUpdate() {
	select {
	case m.UpdateChan <- struct{}{}:
	default:
	}
}
