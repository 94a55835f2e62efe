package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-hemisphere/applet"
	"go-hemisphere/core"
	"go-hemisphere/dac"
	"go-hemisphere/hemisphere"
	"go-hemisphere/midi"
	"go-hemisphere/preset"
	"go-hemisphere/sim"
	"go-hemisphere/theme"
	"go-hemisphere/widgets"
)

const (
	tempoStep = 1
	panelCols = 28
)

// presetAction is a pending store or load waiting for a preset key
type presetAction int

const (
	presetNone presetAction = iota
	presetStore
	presetLoad
)

type Model struct {
	Manager *hemisphere.Manager
	Panel   *sim.Panel
	Sched   *core.Scheduler
	IO      *applet.IO
	Ports   *midi.Binder // may be nil
	Theme   *theme.Theme

	focus    applet.Hemisphere
	cvInput  int // input moved by up/down
	pending  presetAction
	status   string
	quitting bool
}

type UpdateMsg struct{}

type PortEventMsg midi.PortEvent

func NewModel(manager *hemisphere.Manager, panel *sim.Panel, sched *core.Scheduler, io *applet.IO, ports *midi.Binder, th *theme.Theme) Model {
	return Model{
		Manager: manager,
		Panel:   panel,
		Sched:   sched,
		IO:      io,
		Ports:   ports,
		Theme:   th,
	}
}

func ListenForUpdates(manager *hemisphere.Manager) tea.Cmd {
	return func() tea.Msg {
		<-manager.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForPorts(ports *midi.Binder) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ports.Events()
		if !ok {
			return nil
		}
		return PortEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{ListenForUpdates(m.Manager)}
	if m.Ports != nil {
		cmds = append(cmds, ListenForPorts(m.Ports))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case UpdateMsg:
		return m, ListenForUpdates(m.Manager)

	case PortEventMsg:
		if s := m.Ports.Handle(midi.PortEvent(msg)); s != "" {
			m.status = s
		}
		return m, ListenForPorts(m.Ports)
	}

	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	if m.pending != presetNone {
		m.finishPreset(key)
		return m, nil
	}

	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "p", " ":
		m.Manager.ToggleClockRun()

	case "t":
		m.Manager.Tap()

	case "+", "=":
		m.IO.Clock.SetTempoBPM(m.IO.Clock.Tempo() + tempoStep)

	case "-", "_":
		m.IO.Clock.SetTempoBPM(m.IO.Clock.Tempo() - tempoStep)

	case "1", "2", "3", "4":
		m.Panel.Pulse(int(key[0] - '1'))

	case "5", "6", "7", "8":
		m.Manager.Boop(int(key[0] - '5'))

	case "tab":
		m.focus = 1 - m.focus

	case "left", "h":
		m.Manager.EncoderMove(m.focus, -1)

	case "right", "l":
		m.Manager.EncoderMove(m.focus, 1)

	case "enter":
		m.Manager.ButtonPress(m.focus)

	case "[":
		m.changeProgram(-1)

	case "]":
		m.changeProgram(1)

	case "P":
		m.Manager.ToggleSelectMode(m.focus)

	case "c":
		m.Manager.ToggleClockSetup()

	case "f":
		m.Manager.ToggleForwarding()

	case "up", "k":
		m.Panel.NudgeCV(m.cvInput, sim.Semitone)

	case "down", "j":
		m.Panel.NudgeCV(m.cvInput, -sim.Semitone)

	case "v":
		m.cvInput = (m.cvInput + 1) % applet.NumChannels

	case "s":
		m.pending = presetStore
		m.status = "store to preset: a-d"

	case "o":
		m.pending = presetLoad
		m.status = "load preset: a-d"

	case "d":
		m.Manager.DumpState()
		m.status = "state written to debug log"

	case "r":
		m.Sched.ResetStats()
	}

	return m, nil
}

func (m *Model) changeProgram(dir int) {
	if err := m.Manager.ChangeProgram(m.focus, dir); err != nil {
		m.status = err.Error()
	}
}

func (m *Model) finishPreset(key string) {
	action := m.pending
	m.pending = presetNone

	if len(key) != 1 || key[0] < 'a' || int(key[0]-'a') >= preset.NumPresets {
		m.status = ""
		return
	}
	id := int(key[0] - 'a')

	var err error
	if action == presetStore {
		err = m.Manager.StoreToPreset(id)
		m.status = "stored preset " + preset.Names[id]
	} else {
		err = m.Manager.LoadFromPreset(id)
		m.status = "loaded preset " + preset.Names[id]
	}
	if err != nil {
		m.status = err.Error()
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	st := m.Manager.Status()

	// Styles
	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	statusStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())
	paneStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.Theme.Muted()).
		Padding(0, 1).
		Width(panelCols + 8)
	focusStyle := paneStyle.BorderForeground(m.Theme.Cursor())

	header := headerStyle.Render(m.header(st))

	var panes [2]string
	for h := range panes {
		hem := applet.Hemisphere(h)
		title := st.Programs[h]
		if st.SelectMode == h {
			title = fmt.Sprintf("%c %s", m.Theme.Symbols.Select, title)
		}
		if hem == m.focus {
			title = fmt.Sprintf("%c %s", m.Theme.Symbols.Focus, title)
		}
		body := title + "\n\n" + m.Manager.View(hem)
		if hem == m.focus {
			panes[h] = focusStyle.Render(body)
		} else {
			panes[h] = paneStyle.Render(body)
		}
	}
	hemispheres := lipgloss.JoinHorizontal(lipgloss.Top, panes[0], " ", panes[1])

	help := dimStyle.Render("p:run t:tap +/-:tempo 1-4:gate 5-8:boop tab:focus ←→:encoder enter:push [ ]:program\n" +
		"c:clock f:forward v/↑↓:cv s/o a-d:preset d:dump r:reset stats q:quit")

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(hemispheres)
	out.WriteString("\n")
	out.WriteString(m.panelView())
	out.WriteString("\n")
	out.WriteString(dimStyle.Render(m.statsLine()))
	out.WriteString("\n\n")
	out.WriteString(help)
	if m.status != "" {
		out.WriteString("\n")
		out.WriteString(statusStyle.Render(m.status))
	}
	return out.String()
}

func (m Model) header(st hemisphere.Status) string {
	clk := st.Clock
	beat := ' '
	if clk.Cycle {
		beat = m.Theme.Symbols.Beat
	}
	fwd := ""
	if clk.Forwarded {
		fwd = fmt.Sprintf(" %c", m.Theme.Symbols.Forward)
	}
	p := "-"
	if st.Preset >= 0 {
		p = preset.Names[st.Preset]
	}
	return fmt.Sprintf("go-hemisphere  %c %3dbpm %c  sync:%s  preset:%s%s",
		m.Theme.Transport(clk.Running, clk.Paused), clk.Tempo, beat, st.Sync, p, fwd)
}

// panelView shows the simulated jacks: CV and gate inputs, then outputs
func (m Model) panelView() string {
	var out strings.Builder

	var levels [applet.NumChannels]bool
	for ch := range levels {
		levels[ch] = m.Panel.Gate(ch)
	}
	out.WriteString("  gates " + widgets.RenderLEDRow(m.Theme.Palette.Lookup(theme.RoleActive), levels[:]) + "\n")
	for ch := 0; ch < applet.NumChannels; ch++ {
		cursor := ' '
		if ch == m.cvInput {
			cursor = m.Theme.Symbols.Focus
		}
		fmt.Fprintf(&out, "%c in%d %6d %c   out%d %6d %s\n",
			cursor, ch+1, m.Panel.CV(ch), m.Theme.Gate(m.Panel.Gate(ch)),
			ch+1, m.IO.Output(ch), m.outputHistory(ch))
	}
	return out.String()
}

func (m Model) outputHistory(ch int) string {
	h := m.IO.DAC.History(ch)
	color := m.Theme.Palette.Lookup(float64(ch+1) / float64(dac.NumChannels+1))
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(color.Hex())).
		Render(widgets.RenderSparkline(h[:], 0xFFFF))
}

func (m Model) statsLine() string {
	s := m.Sched.Stats()
	line := fmt.Sprintf("ticks %d  max %v  overruns %d", s.Ticks, s.MaxDuration, s.Overruns)
	if m.Ports != nil {
		line += "  " + m.Ports.Summary()
	}
	return line
}
