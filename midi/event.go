package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"
)

// Realtime is a single byte MIDI system realtime message
type Realtime uint8

// MIDI system realtime messages
const (
	RealtimeClock    Realtime = 0xF8
	RealtimeStart    Realtime = 0xFA
	RealtimeContinue Realtime = 0xFB
	RealtimeStop     Realtime = 0xFC
)

func (r Realtime) String() string {
	switch r {
	case RealtimeClock:
		return "clock"
	case RealtimeStart:
		return "start"
	case RealtimeContinue:
		return "continue"
	case RealtimeStop:
		return "stop"
	}
	return "unknown"
}

// Message returns the wire form of r
func (r Realtime) Message() gomidi.Message {
	return gomidi.Message{byte(r)}
}

// Latches are the realtime messages received since the last Take
type Latches struct {
	Clock    bool
	Start    bool
	Continue bool
	Stop     bool
}

// Any reports whether any message was latched
func (l Latches) Any() bool {
	return l.Clock || l.Start || l.Continue || l.Stop
}
