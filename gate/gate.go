package gate

import "sync/atomic"

const NumInputs = 4

// Inputs are the digital trigger/gate inputs. Rising edges are latched as
// they arrive and published once per tick by Scan.
type Inputs struct {
	pending atomic.Uint32 // edges latched since the last scan
	clocked atomic.Uint32 // edges visible during this tick
	levels  atomic.Uint32
}

// New returns inputs with all lines low
func New() *Inputs {
	return &Inputs{}
}

// Trigger latches a rising edge on input i. Safe from any goroutine.
func (g *Inputs) Trigger(i int) {
	if i < 0 || i >= NumInputs {
		return
	}
	g.pending.Or(1 << i)
}

// SetLevel records the line state and latches an edge on a low to high
// transition
func (g *Inputs) SetLevel(i int, high bool) {
	if i < 0 || i >= NumInputs {
		return
	}
	bit := uint32(1) << i
	if high {
		if old := g.levels.Or(bit); old&bit == 0 {
			g.pending.Or(bit)
		}
	} else {
		g.levels.And(^bit)
	}
}

// Scan moves latched edges into this tick's clocked mask
func (g *Inputs) Scan() {
	g.clocked.Store(g.pending.Swap(0))
}

// Clocked reports whether input i saw a rising edge before this tick
func (g *Inputs) Clocked(i int) bool {
	if i < 0 || i >= NumInputs {
		return false
	}
	return g.clocked.Load()&(1<<i) != 0
}

// Mask returns this tick's clocked inputs as a bit mask
func (g *Inputs) Mask() uint32 {
	return g.clocked.Load()
}

// Level returns the instantaneous state of input i
func (g *Inputs) Level(i int) bool {
	if i < 0 || i >= NumInputs {
		return false
	}
	return g.levels.Load()&(1<<i) != 0
}
