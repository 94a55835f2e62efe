package midi

import (
	"fmt"
	"sync"

	"go-hemisphere/debug"
)

// Binder attaches the clock ports to the first scanned ports matching the
// configured names, and detaches them when the device goes away
type Binder struct {
	scanner    *PortScanner
	inPattern  string
	outPattern string

	openIn   func(name string) error
	closeIn  func() error
	openOut  func(name string) error
	closeOut func() error

	mu      sync.Mutex
	inName  string
	outName string
}

// NewBinder binds in and out to ports found by scanner. Either may be nil,
// and an empty pattern leaves that direction unbound.
func NewBinder(scanner *PortScanner, in *ClockIn, out *ClockOut, inPattern, outPattern string) *Binder {
	b := &Binder{
		scanner:    scanner,
		inPattern:  inPattern,
		outPattern: outPattern,
	}
	if in != nil {
		b.openIn = func(name string) error {
			p, err := FindIn(name)
			if err != nil {
				return err
			}
			return in.Open(p)
		}
		b.closeIn = in.Close
	}
	if out != nil {
		b.openOut = func(name string) error {
			p, err := FindOut(name)
			if err != nil {
				return err
			}
			return out.Open(p)
		}
		b.closeOut = out.Close
	}
	return b
}

// Events returns the scanner's port events
func (b *Binder) Events() <-chan PortEvent {
	return b.scanner.Events()
}

// Handle reacts to one port event. Returns a status line, empty if the
// event did not change a binding.
func (b *Binder) Handle(ev PortEvent) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	bound, pattern, open, closeFn := &b.inName, b.inPattern, b.openIn, b.closeIn
	if ev.Dir == PortOut {
		bound, pattern, open, closeFn = &b.outName, b.outPattern, b.openOut, b.closeOut
	}
	if open == nil {
		return ""
	}

	switch ev.Type {
	case PortConnected:
		if *bound != "" || !MatchPort(ev.Name, pattern) {
			return ""
		}
		if err := open(ev.Name); err != nil {
			debug.Log("midi", "bind clock %s %s: %v", ev.Dir, ev.Name, err)
			return fmt.Sprintf("clock %s: %v", ev.Dir, err)
		}
		*bound = ev.Name
		return fmt.Sprintf("clock %s: %s", ev.Dir, ev.Name)

	case PortDisconnected:
		if *bound != ev.Name {
			return ""
		}
		closeFn()
		*bound = ""
		return fmt.Sprintf("clock %s: %s disconnected", ev.Dir, ev.Name)
	}
	return ""
}

// Bound returns the names of the bound ports, empty if unbound
func (b *Binder) Bound() (in, out string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inName, b.outName
}

// Summary is a one-line description of the bindings
func (b *Binder) Summary() string {
	in, out := b.Bound()
	if in == "" {
		in = "-"
	}
	if out == "" {
		out = "-"
	}
	return fmt.Sprintf("midi in:%s out:%s", in, out)
}
