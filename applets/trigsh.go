package applets

import (
	"fmt"
	"strings"
	"sync/atomic"

	"go-hemisphere/applet"
	"go-hemisphere/pack"
	"go-hemisphere/widgets"
)

const maxTranspose = 4 // octaves either way

var trigSHSchema = pack.MustSchema(1,
	pack.Field{Name: "transpose", Width: 4},
)

// TrigSH is a sample and hold. A clock on input 1 passes through to
// output 2 and, once the converter has settled, samples CV 1 to output 1.
type TrigSH struct {
	applet.Base

	transpose int // octaves

	// read by the view
	held    atomic.Int32
	samples atomic.Uint64
}

// NewTrigSH creates a sample and hold program
func NewTrigSH() applet.Program {
	return &TrigSH{}
}

func (t *TrigSH) Name() string { return "Trig S&H" }

func (t *TrigSH) Start() {
	t.held.Store(0)
	t.samples.Store(0)
}

func (t *TrigSH) Controller() {
	if t.Clock(0, false) {
		t.ClockOut(1)
		t.StartADCLag(0)
	}

	if t.EndOfADCLag(0) {
		v := t.In(0)
		t.held.Store(int32(v))
		t.samples.Add(1)
		t.Out(0, v, t.transpose)
	}
}

// Held returns the last sampled value
func (t *TrigSH) Held() int {
	return int(t.held.Load())
}

func (t *TrigSH) View() string {
	var out strings.Builder
	fmt.Fprintf(&out, "%s  TRIG S&H\n\n", t.Hemisphere())
	fmt.Fprintf(&out, "in   %s %6d\n", widgets.RenderBar(t.ProportionCV(t.ViewIn(0), 24), 24), t.ViewIn(0))
	held := t.Held()
	fmt.Fprintf(&out, "held %s %6d\n", widgets.RenderBar(t.ProportionCV(held, 24), 24), held)
	fmt.Fprintf(&out, "oct  %+d   samples %d\n\n", t.transpose, t.samples.Load())
	out.WriteString(widgets.RenderKeyHelp([]widgets.KeySection{
		{Keys: []widgets.KeyBinding{
			{Key: "left/right", Desc: "transpose output"},
			{Key: "enter", Desc: "reset transpose"},
		}},
	}))
	return out.String()
}

func (t *TrigSH) OnButtonPress() {
	t.transpose = 0
}

func (t *TrigSH) OnEncoderMove(direction int) {
	t.transpose = min(max(t.transpose+direction, -maxTranspose), maxTranspose)
}

func (t *TrigSH) Schema() *pack.Schema { return trigSHSchema }

func (t *TrigSH) Save() uint64 {
	data, _ := trigSHSchema.SetSigned(0, "transpose", int64(t.transpose))
	return data
}

func (t *TrigSH) Load(data uint64) {
	t.transpose = min(max(int(trigSHSchema.GetSigned(data, "transpose")), -maxTranspose), maxTranspose)
}
