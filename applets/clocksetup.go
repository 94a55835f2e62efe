package applets

import (
	"fmt"
	"strings"
	"sync/atomic"

	"go-hemisphere/applet"
	"go-hemisphere/clock"
	"go-hemisphere/midi"
	"go-hemisphere/pack"
	"go-hemisphere/widgets"
)

// ClockSender queues MIDI realtime messages without blocking
type ClockSender interface {
	Queue(r midi.Realtime) bool
}

// ClockSetupID is the program ID of the clock data chunk
const ClockSetupID = "clock"

var clockSchema = pack.MustSchema(1,
	pack.Field{Name: "tempo", Width: 9},
	pack.Field{Name: "l1", Width: 6},
	pack.Field{Name: "l2", Width: 6},
	pack.Field{Name: "r1", Width: 6},
	pack.Field{Name: "r2", Width: 6},
	pack.Field{Name: "midi", Width: 6},
	pack.Field{Name: "ppqn", Width: 5},
	pack.Field{Name: "forward", Width: 1},
)

// multiplier field for each engine output
var clockFields = [clock.NumOutputs]string{"l1", "l2", "r1", "r2", "midi"}

// clock setup cursor positions
const (
	cursorTempo = iota
	cursorL1
	cursorL2
	cursorR1
	cursorR2
	cursorMIDI
	cursorPPQN
	cursorForward
	numCursors
)

// ClockSetup runs on every tick regardless of the selected programs. It
// forwards the engine's MIDI clock tocks and edits the clock settings.
type ClockSetup struct {
	applet.Base

	out    ClockSender
	cursor int
	sent   atomic.Uint64
}

// NewClockSetup creates the clock program. out may be nil.
func NewClockSetup(out ClockSender) *ClockSetup {
	return &ClockSetup{out: out}
}

func (c *ClockSetup) Name() string { return "Clock Setup" }

func (c *ClockSetup) Start() {}

func (c *ClockSetup) Controller() {
	eng := c.IO().Clock
	if c.out == nil || !eng.IsRunning() {
		return
	}
	if eng.MIDITock() && c.out.Queue(midi.RealtimeClock) {
		c.sent.Add(1)
	}
}

// Sent returns the number of MIDI clocks queued
func (c *ClockSetup) Sent() uint64 {
	return c.sent.Load()
}

func (c *ClockSetup) OnButtonPress() {
	c.cursor = (c.cursor + 1) % numCursors
}

func (c *ClockSetup) OnEncoderMove(direction int) {
	eng := c.IO().Clock
	switch c.cursor {
	case cursorTempo:
		eng.SetTempoBPM(eng.Tempo() + direction)
	case cursorL1, cursorL2, cursorR1, cursorR2, cursorMIDI:
		out := clock.Output(c.cursor - cursorL1)
		eng.SetMultiply(eng.Multiply(out)+direction, out)
	case cursorPPQN:
		eng.SetClockPPQN(eng.ClockPPQN() + direction)
	case cursorForward:
		eng.ToggleForwarding()
	}
}

// Cursor returns the field being edited
func (c *ClockSetup) Cursor() int {
	return c.cursor
}

func (c *ClockSetup) View() string {
	s := c.IO().Clock.Snapshot()

	state := "stopped"
	switch {
	case s.Paused:
		state = "armed"
	case s.Running:
		state = "running"
	}

	fields := []string{
		fmt.Sprintf("tempo %3d", s.Tempo),
	}
	for out := clock.Left1; out < clock.NumOutputs; out++ {
		fields = append(fields, fmt.Sprintf("%-4s %s", out, ratioString(s.Multiply[out])))
	}
	fields = append(fields,
		fmt.Sprintf("ppqn %2d", s.ClockPPQN),
		fmt.Sprintf("fwd  %v", s.Forwarded),
	)

	var out strings.Builder
	fmt.Fprintf(&out, "CLOCK SETUP  %s\n\n", state)
	for i, f := range fields {
		marker := "  "
		if i == c.cursor {
			marker = "> "
		}
		out.WriteString(marker + f + "\n")
	}
	out.WriteString("\n")
	out.WriteString(widgets.RenderKeyHelp([]widgets.KeySection{
		{Keys: []widgets.KeyBinding{
			{Key: "enter", Desc: "next field"},
			{Key: "left/right", Desc: "change value"},
		}},
	}))
	return out.String()
}

func ratioString(m int) string {
	switch {
	case m == 0:
		return "off"
	case m > 0:
		return fmt.Sprintf("x%d", m)
	}
	return fmt.Sprintf("/%d", 1-m)
}

func (c *ClockSetup) Schema() *pack.Schema { return clockSchema }

func (c *ClockSetup) Save() uint64 {
	s := c.IO().Clock.Snapshot()

	var data uint64
	data, _ = clockSchema.Set(data, "tempo", uint64(s.Tempo))
	for out, name := range clockFields {
		data, _ = clockSchema.SetSigned(data, name, int64(s.Multiply[out]))
	}
	data, _ = clockSchema.Set(data, "ppqn", uint64(s.ClockPPQN))
	if s.Forwarded {
		data, _ = clockSchema.Set(data, "forward", 1)
	}
	return data
}

func (c *ClockSetup) Load(data uint64) {
	eng := c.IO().Clock
	eng.SetTempoBPM(int(clockSchema.Get(data, "tempo")))
	for out, name := range clockFields {
		eng.SetMultiply(int(clockSchema.GetSigned(data, name)), clock.Output(out))
	}
	eng.SetClockPPQN(int(clockSchema.Get(data, "ppqn")))
	eng.SetForwarding(clockSchema.Get(data, "forward") == 1)
}
