package applet

import (
	"go-hemisphere/pack"
)

// Program is a channel program bound to one hemisphere. Controller runs
// once per tick from the tick context; everything else is called from the
// foreground with dispatch suspended.
type Program interface {
	Name() string

	// Start runs the first time the program is selected
	Start()
	// Controller runs every tick
	Controller()

	// UI
	View() string
	OnButtonPress()
	OnEncoderMove(direction int)

	// Persistent settings, packed per Schema
	Schema() *pack.Schema
	Save() uint64
	Load(data uint64)

	AppletBase() *Base
}

// BaseStart binds the program to a hemisphere and clears the hemisphere's
// channel state. Start is skipped if the program has already started, so
// it keeps its state across switching.
func BaseStart(p Program, io *IO, h Hemisphere) {
	b := p.AppletBase()
	b.bind(io, h)
	for ch := 0; ch < 2; ch++ {
		io.reset(b.offset + ch)
	}
	if !b.started {
		b.started = true
		p.Start()
	}
}

// BaseController updates the hemisphere's inputs and clock out pulses, then
// runs the program's Controller. forwarded is the master clock forwarding
// state; only the right hemisphere uses it.
func BaseController(p Program, forwarded bool) {
	b := p.AppletBase()
	io := b.io
	b.forwarded = forwarded && b.hemisphere == Right

	for ch := 0; ch < 2; ch++ {
		c := b.offset + ch
		v := io.ADC.RawPitchValue(c)
		io.inputs[c].Store(v)
		io.changed[c].Store(io.ADC.ChangedValue(c, v))

		if io.clockCountdown[c] > 0 {
			io.clockCountdown[c]--
			if io.clockCountdown[c] == 0 {
				b.Out(ch, 0, 0)
			}
		}
	}

	p.Controller()
}

// Chunk saves the program's settings with a versioned header
func Chunk(id string, p Program) pack.Chunk {
	return pack.NewChunk(id, p.Schema(), p.Save())
}

// LoadChunk restores settings if the chunk was written with the program's
// current layout. A mismatched chunk is ignored and false returned.
func LoadChunk(c pack.Chunk, p Program) bool {
	if c.IsZero() || !c.Matches(p.Schema()) {
		return false
	}
	p.Load(c.Data)
	return true
}
