// Package theme holds the panel colors and symbols
package theme

import (
	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// Gates and triggers
	GateHigh rune // ● input or output high
	GateLow  rune // ○ low

	// Clock transport
	Running rune // ▶ running
	Armed   rune // ◌ waiting for an external clock
	Stopped rune // ■ stopped
	Forward rune // ⇉ left clock mirrored to the right

	// Navigation
	Focus  rune // ▸ focused hemisphere
	Select rune // ⟳ choosing a program
	Beat   rune // ♩ beat indicator
}

func New(palette *Palette) *Theme {
	if palette == nil {
		palette = Default()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			GateHigh: '●',
			GateLow:  '○',

			Running: '▶',
			Armed:   '◌',
			Stopped: '■',
			Forward: '⇉',

			Focus:  '▸',
			Select: '⟳',
			Beat:   '♩',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0 // deep blue
	RoleSurface = 0.1 // indigo
	RoleMuted   = 0.2 // purple
	RoleFG      = 0.4 // magenta (readable)
	RoleAccent  = 0.5 // rose
	RoleCursor  = 0.6 // coral
	RoleActive  = 0.7 // orange
	RoleWarning = 0.8 // amber
	RoleSuccess = 1.0 // bright yellow
)

// Style helpers

func (t *Theme) BG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleBG))
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Active() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleActive))
}

func (t *Theme) Cursor() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleCursor))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

func (t *Theme) Success() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleSuccess))
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

// Transport returns the symbol for a clock state
func (t *Theme) Transport(running, paused bool) rune {
	switch {
	case paused:
		return t.Symbols.Armed
	case running:
		return t.Symbols.Running
	}
	return t.Symbols.Stopped
}

// Gate returns the symbol for a gate level
func (t *Theme) Gate(high bool) rune {
	if high {
		return t.Symbols.GateHigh
	}
	return t.Symbols.GateLow
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(c.Hex())
}
