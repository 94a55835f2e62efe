package applets

import (
	"fmt"

	"go-hemisphere/applet"
	"go-hemisphere/pack"
	"go-hemisphere/widgets"
)

var emptySchema = pack.MustSchema(1)

// Empty is a placeholder for a hemisphere with no program assigned
type Empty struct {
	applet.Base
}

// NewEmpty creates an empty program
func NewEmpty() applet.Program {
	return &Empty{}
}

func (e *Empty) Name() string { return "Empty" }

func (e *Empty) Start() {}

func (e *Empty) Controller() {}

func (e *Empty) View() string {
	out := fmt.Sprintf("%s  (empty)\n\n", e.Hemisphere())
	out += "No program assigned to this hemisphere.\n\n"
	out += widgets.RenderKeyHelp([]widgets.KeySection{
		{Keys: []widgets.KeyBinding{
			{Key: "[ / ]", Desc: "choose a program"},
		}},
	})
	return out
}

func (e *Empty) OnButtonPress() {}

func (e *Empty) OnEncoderMove(direction int) {}

func (e *Empty) Schema() *pack.Schema { return emptySchema }

func (e *Empty) Save() uint64 { return 0 }

func (e *Empty) Load(data uint64) {}
