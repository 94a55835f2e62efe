// Package preset stores the four A-D setups as JSON files
package preset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"go-hemisphere/pack"
)

const NumPresets = 4

// Names are the preset labels
var Names = [NumPresets]string{"A", "B", "C", "D"}

var (
	ErrEmpty = errors.New("preset is empty")
	ErrRange = errors.New("preset id out of range")
)

// Preset is one saved setup: clock settings plus a program per hemisphere
type Preset struct {
	Clock       pack.Chunk    `json:"clock"`
	Hemispheres [2]pack.Chunk `json:"hemispheres"`
	Saved       time.Time     `json:"saved"`
}

// IsValid reports whether the preset holds anything to load
func (p *Preset) IsValid() bool {
	return p != nil && (!p.Hemispheres[0].IsZero() || !p.Hemispheres[1].IsZero())
}

// Dir returns the default preset directory
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-hemisphere", "presets"), nil
}

// Store reads and writes presets in a directory
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a store over dir. The directory is created on first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the file for a preset
func (s *Store) Path(id int) string {
	return filepath.Join(s.dir, "preset-"+Names[id]+".json")
}

// Load reads a preset. A missing file is ErrEmpty.
func (s *Store) Load(id int) (*Preset, error) {
	if id < 0 || id >= NumPresets {
		return nil, errors.Wrapf(ErrRange, "load preset %d", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrEmpty
		}
		return nil, errors.Wrapf(err, "read preset %s", Names[id])
	}

	var p Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrapf(err, "parse preset %s", Names[id])
	}
	if !p.IsValid() {
		return nil, ErrEmpty
	}
	return &p, nil
}

// Save writes a preset, replacing the file atomically
func (s *Store) Save(id int, p *Preset) error {
	if id < 0 || id >= NumPresets {
		return errors.Wrapf(ErrRange, "save preset %d", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errors.Wrap(err, "create preset dir")
	}

	if p.Saved.IsZero() {
		p.Saved = time.Now()
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode preset %s", Names[id])
	}

	path := s.Path(id)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrapf(err, "write preset %s", Names[id])
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "write preset %s", Names[id])
	}
	return nil
}

// Delete removes a preset. Deleting an empty preset is not an error.
func (s *Store) Delete(id int) error {
	if id < 0 || id >= NumPresets {
		return errors.Wrapf(ErrRange, "delete preset %d", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(id)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete preset %s", Names[id])
	}
	return nil
}

// Valid reports which presets hold a loadable setup
func (s *Store) Valid() [NumPresets]bool {
	var valid [NumPresets]bool
	for id := range valid {
		_, err := s.Load(id)
		valid[id] = err == nil
	}
	return valid
}
