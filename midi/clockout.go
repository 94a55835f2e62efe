package midi

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go-hemisphere/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// DefaultQueueDepth holds a little over a beat of clocks at the fastest tempo
const DefaultQueueDepth = 32

// ClockOut sends realtime messages queued from the tick context. Queue
// never blocks; Run does the port writes.
type ClockOut struct {
	queue chan Realtime

	mu      sync.Mutex
	port    string
	outPort drivers.Out
	send    func(gomidi.Message) error

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewClockOut creates a clock output with no port attached
func NewClockOut(depth int) *ClockOut {
	if depth < 1 {
		depth = DefaultQueueDepth
	}
	return &ClockOut{queue: make(chan Realtime, depth)}
}

// Open starts sending to outPort, replacing any previous port
func (c *ClockOut) Open(outPort drivers.Out) error {
	c.Close()
	send, err := gomidi.SendTo(outPort)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}

	c.mu.Lock()
	c.outPort = outPort
	c.mu.Unlock()
	c.SetSender(outPort.String(), send)

	debug.Log("midi", "clock out sending to %s", outPort.String())
	return nil
}

// SetSender attaches a send function directly
func (c *ClockOut) SetSender(name string, send func(gomidi.Message) error) {
	c.mu.Lock()
	c.port = name
	c.send = send
	c.mu.Unlock()
}

// Queue adds a message for sending. Returns false if the queue is full.
func (c *ClockOut) Queue(r Realtime) bool {
	select {
	case c.queue <- r:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

// Run sends queued messages (blocking - run in goroutine)
func (c *ClockOut) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.Close()
			return
		case r := <-c.queue:
			c.flush(r)
		}
	}
}

func (c *ClockOut) flush(r Realtime) {
	c.mu.Lock()
	send := c.send
	c.mu.Unlock()

	if send == nil {
		c.dropped.Add(1)
		return
	}
	if err := send(r.Message()); err != nil {
		debug.LogEvery(100, "midi", "clock out send %s: %v", r, err)
		c.dropped.Add(1)
		return
	}
	c.sent.Add(1)
}

// Stats returns the number of messages sent and dropped
func (c *ClockOut) Stats() (sent, dropped uint64) {
	return c.sent.Load(), c.dropped.Load()
}

// Port returns the name of the attached port, empty if none
func (c *ClockOut) Port() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port
}

// Close detaches the port. Queued messages are dropped as they are flushed.
func (c *ClockOut) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.outPort != nil {
		err = c.outPort.Close()
		c.outPort = nil
	}
	c.port = ""
	c.send = nil
	return err
}
