package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go-hemisphere/adc"
	"go-hemisphere/clock"
	"go-hemisphere/dac"
)

// SyncSource selects what clocks the engine from outside
type SyncSource string

const (
	SyncGate SyncSource = "gate" // digital input 1
	SyncMIDI SyncSource = "midi" // MIDI clock in
	SyncAny  SyncSource = "any"
)

// ClockConfig is the clock engine's start-up state
type ClockConfig struct {
	Tempo      int        `json:"tempo"`
	Multiply   [5]int     `json:"multiply"` // L1 L2 R1 R2 MIDI
	PPQN       int        `json:"ppqn"`
	Deadband   int        `json:"deadband"`
	TrigLength int        `json:"trigLength"`
	SyncSource SyncSource `json:"syncSource"`
}

// MIDIConfig names the MIDI ports. Names match as case insensitive
// substrings; empty disables the port.
type MIDIConfig struct {
	ClockIn  string `json:"clockIn,omitempty"`
	ClockOut string `json:"clockOut,omitempty"`
}

// CalibrationConfig holds the converter calibration injected at start-up
type CalibrationConfig struct {
	ADC adc.CalibrationData `json:"adc"`
	DAC dac.Calibration     `json:"dac"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette  string    `json:"palette,omitempty"` // GIMP .gpl file
	Programs [2]string `json:"programs"`          // program IDs, left and right
}

// Config is the main configuration structure
type Config struct {
	Clock       ClockConfig       `json:"clock"`
	MIDI        MIDIConfig        `json:"midi,omitempty"`
	Calibration CalibrationConfig `json:"calibration"`
	UI          UIConfig          `json:"ui,omitempty"`
	PresetDir   string            `json:"presetDir,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Clock: ClockConfig{
			Tempo:      clock.DefaultTempo,
			Multiply:   [5]int{4, 0, 8, 0, clock.MIDIOutPPQN},
			PPQN:       clock.DefaultPPQN,
			Deadband:   clock.DefaultDeadband,
			TrigLength: 2,
			SyncSource: SyncGate,
		},
		Calibration: CalibrationConfig{
			ADC: adc.DefaultCalibration(),
			DAC: dac.DefaultCalibration(),
		},
		UI: UIConfig{
			Programs: [2]string{"trigsh", "trigsh"},
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-hemisphere"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. Fields missing from the file keep
// their defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the values that cannot be clamped into range
func (c *Config) Validate() error {
	switch c.Clock.SyncSource {
	case SyncGate, SyncMIDI, SyncAny:
	default:
		return fmt.Errorf("unknown sync source %q", c.Clock.SyncSource)
	}
	if c.Calibration.ADC.PitchCVScale == 0 {
		return fmt.Errorf("adc pitch scale is zero")
	}
	return nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path
func (c *Config) SaveTo(path string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ResolvePresetDir returns the preset directory, the override if set
func (c *Config) ResolvePresetDir() (string, error) {
	if c.PresetDir != "" {
		return c.PresetDir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "presets"), nil
}

// ApplyClock sets up an engine from the clock config
func (c *Config) ApplyClock(e *clock.Engine) {
	e.SetTempoBPM(c.Clock.Tempo)
	for out, m := range c.Clock.Multiply {
		e.SetMultiply(m, clock.Output(out))
	}
	e.SetClockPPQN(c.Clock.PPQN)
	e.SetNudge(clock.NudgeConfig{Deadband: c.Clock.Deadband})
}
