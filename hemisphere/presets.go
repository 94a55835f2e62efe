package hemisphere

import (
	"github.com/pkg/errors"

	"go-hemisphere/applet"
	"go-hemisphere/applets"
	"go-hemisphere/debug"
	"go-hemisphere/pack"
	"go-hemisphere/preset"
)

var errNoStore = errors.New("no preset store")

// Preset returns the last loaded or stored preset, -1 if none
func (m *Manager) Preset() int {
	return m.presetID
}

// StoreToPreset saves the clock and both hemispheres' programs
func (m *Manager) StoreToPreset(id int) error {
	if m.presets == nil {
		return errNoStore
	}

	var p preset.Preset
	m.sched.Suspend(func() {
		p.Clock = applet.Chunk(applets.ClockSetupID, m.setup)
		for h, prog := range m.active {
			if prog == nil {
				continue
			}
			e, _ := m.reg.Entry(m.index[h])
			p.Hemispheres[h] = applet.Chunk(e.ID, prog)
		}
	})

	if err := m.presets.Save(id, &p); err != nil {
		return err
	}
	m.presetID = id
	debug.Log("preset", "stored %s", preset.Names[id])
	return nil
}

// LoadFromPreset restores a saved setup. An unknown program falls back to
// the first registry entry; settings saved with a different layout are
// dropped and the program starts from defaults.
func (m *Manager) LoadFromPreset(id int) error {
	if m.presets == nil {
		return errNoStore
	}
	p, err := m.presets.Load(id)
	if err != nil {
		return err
	}

	type pick struct {
		index int
		prog  applet.Program
		chunk pack.Chunk
	}
	var picks [2]pick
	for h := range picks {
		hem := applet.Hemisphere(h)
		c := p.Hemispheres[h]
		index := m.reg.Index(c.ProgramID)
		if index < 0 {
			debug.Log("preset", "%s: unknown program %q, using default", hem, c.ProgramID)
			index = 0
			c = pack.Chunk{}
		}
		prog, ok := m.inst.Get(hem, index)
		if !ok {
			return errors.Errorf("load preset %s: no programs", preset.Names[id])
		}
		if !c.IsZero() && !c.Matches(prog.Schema()) {
			debug.Log("preset", "%s: %s settings changed layout, using defaults", hem, prog.Name())
			m.inst.Reset(hem, index)
			prog, _ = m.inst.Get(hem, index)
			c = pack.Chunk{}
		}
		picks[h] = pick{index: index, prog: prog, chunk: c}
	}

	m.sched.Suspend(func() {
		if !applet.LoadChunk(p.Clock, m.setup) && !p.Clock.IsZero() {
			debug.Log("preset", "clock settings changed layout, keeping current")
		}
		for h, pk := range picks {
			m.install(applet.Hemisphere(h), pk.index, pk.prog)
			applet.LoadChunk(pk.chunk, pk.prog)
		}
	})

	m.presetID = id
	m.notifyUpdate()
	debug.Log("preset", "loaded %s", preset.Names[id])
	return nil
}

// Resume restores preset A if one was saved
func (m *Manager) Resume() error {
	if m.presets == nil {
		return nil
	}
	err := m.LoadFromPreset(0)
	if errors.Cause(err) == preset.ErrEmpty {
		return nil
	}
	return err
}

// Close writes the working setup back to preset A when it was loaded from
// or stored to A
func (m *Manager) Close() error {
	if m.presets == nil || m.presetID != 0 {
		return nil
	}
	return m.StoreToPreset(0)
}
