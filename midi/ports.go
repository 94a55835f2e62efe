package midi

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go-hemisphere/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// PortDir is the direction of a MIDI port
type PortDir int

const (
	PortIn PortDir = iota
	PortOut
)

func (d PortDir) String() string {
	if d == PortOut {
		return "out"
	}
	return "in"
}

// PortEvent is emitted when a port appears or disappears
type PortEvent struct {
	Type PortEventType
	Dir  PortDir
	Name string
}

type PortEventType int

const (
	PortConnected PortEventType = iota
	PortDisconnected
)

// PortLister returns the names of the available ports
type PortLister func() (ins, outs []string)

// ScanTimeout bounds one port listing (CoreMIDI can hang)
const ScanTimeout = 3 * time.Second

type portKey struct {
	dir  PortDir
	name string
}

// PortScanner handles hot-plug detection of MIDI ports
type PortScanner struct {
	list     PortLister
	ports    map[portKey]bool
	mu       sync.RWMutex
	events   chan PortEvent
	pollRate time.Duration
	timeout  time.Duration
}

// NewPortScanner creates a scanner over the system's MIDI ports
func NewPortScanner() *PortScanner {
	return newPortScanner(systemPorts)
}

func newPortScanner(list PortLister) *PortScanner {
	return &PortScanner{
		list:     list,
		ports:    make(map[portKey]bool),
		events:   make(chan PortEvent, 16),
		pollRate: time.Second,
		timeout:  ScanTimeout,
	}
}

// Events returns a channel of port connect/disconnect events
func (ps *PortScanner) Events() <-chan PortEvent {
	return ps.events
}

// Ports returns the ports seen by the last scan, sorted by name
func (ps *PortScanner) Ports() (ins, outs []string) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for k := range ps.ports {
		if k.dir == PortIn {
			ins = append(ins, k.name)
		} else {
			outs = append(outs, k.name)
		}
	}
	sort.Strings(ins)
	sort.Strings(outs)
	return ins, outs
}

// Run starts the polling loop (blocking - run in goroutine)
func (ps *PortScanner) Run(ctx context.Context) {
	ticker := time.NewTicker(ps.pollRate)
	defer ticker.Stop()

	// Initial scan
	ps.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			close(ps.events)
			return
		case <-ticker.C:
			ps.scan(ctx)
		}
	}
}

// scan lists the ports and emits the differences. Returns false if the
// listing timed out.
func (ps *PortScanner) scan(ctx context.Context) bool {
	type portsResult struct {
		ins, outs []string
	}

	ch := make(chan portsResult, 1)
	go func() {
		ins, outs := ps.list()
		ch <- portsResult{ins: ins, outs: outs}
	}()

	var result portsResult
	select {
	case result = <-ch:
	case <-time.After(ps.timeout):
		// MIDI service is hung - skip this scan
		debug.LogEvery(10, "midi", "port scan timed out")
		return false
	case <-ctx.Done():
		return false
	}

	seen := make(map[portKey]bool, len(result.ins)+len(result.outs))
	for _, name := range result.ins {
		seen[portKey{PortIn, name}] = true
	}
	for _, name := range result.outs {
		seen[portKey{PortOut, name}] = true
	}

	ps.mu.Lock()
	var events []PortEvent
	for k := range seen {
		if !ps.ports[k] {
			events = append(events, PortEvent{Type: PortConnected, Dir: k.dir, Name: k.name})
		}
	}
	for k := range ps.ports {
		if !seen[k] {
			events = append(events, PortEvent{Type: PortDisconnected, Dir: k.dir, Name: k.name})
		}
	}
	ps.ports = seen
	ps.mu.Unlock()

	for _, ev := range events {
		select {
		case ps.events <- ev:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func systemPorts() (ins, outs []string) {
	for _, p := range gomidi.GetInPorts() {
		ins = append(ins, p.String())
	}
	for _, p := range gomidi.GetOutPorts() {
		outs = append(outs, p.String())
	}
	return ins, outs
}

// MatchPort reports whether a port name matches a configured pattern. The
// match is a case insensitive substring, so "launchpad" finds
// "Launchpad X LPX MIDI".
func MatchPort(name, pattern string) bool {
	if pattern == "" {
		return false
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(pattern))
}

// FindIn returns the first input port matching pattern
func FindIn(pattern string) (drivers.In, error) {
	for _, p := range gomidi.GetInPorts() {
		if MatchPort(p.String(), pattern) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no MIDI input matching %q", pattern)
}

// FindOut returns the first output port matching pattern
func FindOut(pattern string) (drivers.Out, error) {
	for _, p := range gomidi.GetOutPorts() {
		if MatchPort(p.String(), pattern) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no MIDI output matching %q", pattern)
}
