package clock

// Snapshot is a consistent copy of the engine state
type Snapshot struct {
	Tempo        int
	TicksPerBeat uint32
	Running      bool
	Paused       bool
	Forwarded    bool
	BeatTick     uint32
	ClockTick    uint32 // last clock input edge
	MIDITick     uint32 // last MIDI clock
	ClockPPQN    int
	Cycle        bool
	Multiply     [NumOutputs]int
	Count        [NumOutputs]int
	Tock         [NumOutputs]bool
}

// Snapshot copies the engine state under its lock
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Tempo:        e.tempo,
		TicksPerBeat: e.ticksPerBeat,
		Running:      e.running,
		Paused:       e.paused,
		Forwarded:    e.forwarded,
		BeatTick:     e.beatTick,
		ClockTick:    e.gateEdge.last,
		MIDITick:     e.midiEdge.last,
		ClockPPQN:    e.clockPPQN,
		Cycle:        e.cycle,
		Multiply:     e.multiply,
		Count:        e.count,
		Tock:         e.tock,
	}
}

// IsRunning mirrors Engine.IsRunning for a snapshot
func (s Snapshot) IsRunning() bool {
	return s.Running && !s.Paused
}
