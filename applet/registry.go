package applet

import (
	"fmt"
	"sync"
)

// Factory creates a fresh program instance
type Factory func() Program

// Entry describes a selectable program
type Entry struct {
	ID      string
	Name    string
	Factory Factory
}

// Registry is the table of selectable programs, built at start-up
type Registry struct {
	entries []Entry
	byID    map[string]int
}

// NewRegistry creates a registry from entries
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{byID: make(map[string]int)}
	for _, e := range entries {
		if err := r.Register(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a program
func (r *Registry) Register(e Entry) error {
	if e.ID == "" || e.Factory == nil {
		return fmt.Errorf("register %q: id and factory required", e.Name)
	}
	if _, ok := r.byID[e.ID]; ok {
		return fmt.Errorf("register %q: duplicate id", e.ID)
	}
	r.byID[e.ID] = len(r.entries)
	r.entries = append(r.entries, e)
	return nil
}

// Len returns the number of programs
func (r *Registry) Len() int {
	return len(r.entries)
}

// Entry returns the program at index i
func (r *Registry) Entry(i int) (Entry, bool) {
	if i < 0 || i >= len(r.entries) {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Index returns the index of a program ID, -1 if unknown
func (r *Registry) Index(id string) int {
	if i, ok := r.byID[id]; ok {
		return i
	}
	return -1
}

// Entries returns all programs in registration order
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Instances keeps one program instance per hemisphere and registry index
// so a program's state survives switching away and back
type Instances struct {
	reg *Registry

	mu   sync.Mutex
	inst [2]map[int]Program
}

// NewInstances creates an empty instance table
func NewInstances(reg *Registry) *Instances {
	return &Instances{
		reg:  reg,
		inst: [2]map[int]Program{make(map[int]Program), make(map[int]Program)},
	}
}

// Registry returns the underlying registry
func (in *Instances) Registry() *Registry {
	return in.reg
}

// Get returns the instance for a hemisphere, creating it on first use
func (in *Instances) Get(h Hemisphere, index int) (Program, bool) {
	e, ok := in.reg.Entry(index)
	if !ok {
		return nil, false
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	if p, ok := in.inst[h][index]; ok {
		return p, true
	}
	p := e.Factory()
	in.inst[h][index] = p
	return p, true
}

// Reset discards a hemisphere's instance so the next Get starts from
// defaults
func (in *Instances) Reset(h Hemisphere, index int) {
	in.mu.Lock()
	delete(in.inst[h], index)
	in.mu.Unlock()
}
