package midi

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go-hemisphere/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ClockIn listens for MIDI clock and transport messages on an input port.
// Messages are latched as they arrive and consumed once per tick by Take.
type ClockIn struct {
	mu       sync.Mutex
	port     string
	inPort   drivers.In
	stopFunc func()

	clock atomic.Bool
	start atomic.Bool
	cont  atomic.Bool
	stop  atomic.Bool

	pulses atomic.Uint64
}

// NewClockIn creates a clock input with no port attached
func NewClockIn() *ClockIn {
	return &ClockIn{}
}

// Open starts listening on inPort, replacing any previous port
func (c *ClockIn) Open(inPort drivers.In) error {
	c.Close()

	name := inPort.String()
	stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
		c.Handle(msg)
	}, gomidi.UseTimeCode(), gomidi.HandleError(func(err error) {
		debug.Log("midi", "clock in %s: %v", name, err)
	}))
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}

	c.mu.Lock()
	c.port = name
	c.inPort = inPort
	c.stopFunc = stop
	c.mu.Unlock()

	debug.Log("midi", "clock in listening on %s", name)
	return nil
}

// Handle latches one incoming message. Other message types are ignored.
func (c *ClockIn) Handle(msg gomidi.Message) {
	switch {
	case msg.Is(gomidi.TimingClockMsg):
		c.clock.Store(true)
		c.pulses.Add(1)
	case msg.Is(gomidi.StartMsg):
		c.start.Store(true)
	case msg.Is(gomidi.ContinueMsg):
		c.cont.Store(true)
	case msg.Is(gomidi.StopMsg):
		c.stop.Store(true)
	}
}

// Take returns and clears the latched messages
func (c *ClockIn) Take() Latches {
	return Latches{
		Clock:    c.clock.Swap(false),
		Start:    c.start.Swap(false),
		Continue: c.cont.Swap(false),
		Stop:     c.stop.Swap(false),
	}
}

// Pulses returns the number of clock messages received
func (c *ClockIn) Pulses() uint64 {
	return c.pulses.Load()
}

// Port returns the name of the attached port, empty if none
func (c *ClockIn) Port() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port
}

// Close stops listening and closes the port. The latches keep their state.
func (c *ClockIn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopFunc != nil {
		c.stopFunc()
		c.stopFunc = nil
		debug.Log("midi", "clock in closed %s", c.port)
	}
	var err error
	if c.inPort != nil {
		err = c.inPort.Close()
		c.inPort = nil
	}
	c.port = ""
	return err
}
