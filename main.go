package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/profile"
	flag "github.com/spf13/pflag"

	"go-hemisphere/adc"
	"go-hemisphere/applet"
	"go-hemisphere/applets"
	"go-hemisphere/clock"
	"go-hemisphere/config"
	"go-hemisphere/core"
	"go-hemisphere/dac"
	"go-hemisphere/debug"
	"go-hemisphere/gate"
	"go-hemisphere/hemisphere"
	"go-hemisphere/midi"
	"go-hemisphere/preset"
	"go-hemisphere/sim"
	"go-hemisphere/theme"
	"go-hemisphere/tui"
)

func main() {
	err := start(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// start parses the command line and runs the module
func start(args []string) error {
	fs := flag.NewFlagSet("go-hemisphere", flag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "config file (default ~/.config/go-hemisphere/config.json)")
	debugLog := fs.BoolP("debug", "d", false, "write ~/.config/go-hemisphere/debug.log")
	profileMode := fs.String("profile", "", "profile the run: cpu or mem")
	left := fs.String("left", "", "left hemisphere program id")
	right := fs.String("right", "", "right hemisphere program id")
	midiIn := fs.String("midi-in", "", "MIDI clock input port (name substring)")
	midiOut := fs.String("midi-out", "", "MIDI clock output port (name substring)")
	syncSource := fs.String("sync", "", "external clock: gate, midi or any")
	palette := fs.String("palette", "", "GIMP palette file")
	writeConfig := fs.Bool("write-config", false, "save the effective config and exit")
	listPrograms := fs.Bool("list", false, "list programs and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *listPrograms {
		for i, e := range applets.Registry().Entries() {
			fmt.Printf("%2d  %-8s %s\n", i, e.ID, e.Name)
		}
		return nil
	}

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q", *profileMode)
	}

	if *debugLog {
		if err := debug.Enable(); err != nil {
			return fmt.Errorf("debug log: %w", err)
		}
		defer debug.Disable()
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	// Flags override the config file
	if *left != "" {
		cfg.UI.Programs[applet.Left] = *left
	}
	if *right != "" {
		cfg.UI.Programs[applet.Right] = *right
	}
	if *midiIn != "" {
		cfg.MIDI.ClockIn = *midiIn
	}
	if *midiOut != "" {
		cfg.MIDI.ClockOut = *midiOut
	}
	if *syncSource != "" {
		cfg.Clock.SyncSource = config.SyncSource(*syncSource)
	}
	if *palette != "" {
		cfg.UI.Palette = *palette
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if *writeConfig {
		return saveConfig(cfg, *configPath)
	}

	return run(cfg)
}

func run(cfg *config.Config) error {
	pal, err := theme.LoadOrDefault(cfg.UI.Palette)
	if err != nil {
		return fmt.Errorf("palette: %w", err)
	}
	th := theme.New(pal)

	// Simulated front panel and converters
	gates := gate.New()
	panel := sim.NewPanel(cfg.Calibration.ADC, gates)
	a := adc.New(panel, cfg.Calibration.ADC)
	d := dac.New(panel, cfg.Calibration.DAC)

	sched := core.NewScheduler(d, a, gates)
	eng := clock.NewEngine(sched)
	cfg.ApplyClock(eng)

	io := applet.NewIO(a, d, gates, eng, sched)
	io.SetTrigLength(cfg.Clock.TrigLength)

	reg := applets.Registry()

	clockIn := midi.NewClockIn()
	clockOut := midi.NewClockOut(midi.DefaultQueueDepth)
	defer clockIn.Close()

	manager := hemisphere.NewManager(sched, io, reg, clockIn, clockOut)

	sync, err := hemisphere.ParseSyncSource(string(cfg.Clock.SyncSource))
	if err != nil {
		return err
	}
	manager.SetSyncSource(sync)

	presetDir, err := cfg.ResolvePresetDir()
	if err != nil {
		return fmt.Errorf("preset dir: %w", err)
	}
	manager.SetPresets(preset.NewStore(presetDir))

	var programs [2]int
	for h, id := range cfg.UI.Programs {
		programs[h] = reg.Index(id)
		if programs[h] < 0 {
			fmt.Fprintf(os.Stderr, "unknown program %q, using %s\n", id, mustEntry(reg, 0).Name)
			programs[h] = 0
		}
	}
	if err := manager.Start(programs[applet.Left], programs[applet.Right]); err != nil {
		return err
	}
	if err := manager.Resume(); err != nil {
		fmt.Fprintf(os.Stderr, "resume: %v\n", err)
	}

	sched.SetApp(manager)
	sched.SetAppEnabled(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go core.NewDriver(sched).Run(ctx)
	go clockOut.Run(ctx)
	go manager.Run(ctx)

	// MIDI ports come and go - bind the clock ports as they appear
	scanner := midi.NewPortScanner()
	binder := midi.NewBinder(scanner, clockIn, clockOut, cfg.MIDI.ClockIn, cfg.MIDI.ClockOut)
	go scanner.Run(ctx)

	debug.Log("main", "started: %s / %s, sync %s", cfg.UI.Programs[0], cfg.UI.Programs[1], sync)

	m := tui.NewModel(manager, panel, sched, io, binder, th)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()

	if cerr := manager.Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "save preset: %v\n", cerr)
	}
	return err
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func saveConfig(cfg *config.Config, path string) error {
	if path != "" {
		return cfg.SaveTo(path)
	}
	return cfg.Save()
}

func mustEntry(reg *applet.Registry, i int) applet.Entry {
	e, ok := reg.Entry(i)
	if !ok {
		panic(fmt.Sprintf("no program at index %d", i))
	}
	return e
}
