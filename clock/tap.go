package clock

import "sync"

// TapDepth is how many recent taps are remembered
const TapDepth = 4

// TapTempo collects tap timestamps and feeds their intervals to an engine.
// Taps further apart than the slowest tempo start a new sequence.
type TapTempo struct {
	engine *Engine

	mu sync.Mutex
	// intervals between recent taps, newest first
	taps  [TapDepth - 1]uint32
	n     int
	last  uint32
	valid bool
}

// NewTapTempo creates a tap tempo estimator for the engine
func NewTapTempo(e *Engine) *TapTempo {
	return &TapTempo{engine: e}
}

// Tap records a tap at the given tick. Once two taps are in, the engine
// tempo follows the average of the recorded intervals. Returns the number
// of intervals averaged.
func (t *TapTempo) Tap(now uint32) int {
	t.mu.Lock()
	if t.valid {
		iv := now - t.last
		if iv > TicksMax {
			t.n = 0
		} else {
			copy(t.taps[1:], t.taps[:len(t.taps)-1])
			t.taps[0] = iv
			if t.n < len(t.taps) {
				t.n++
			}
		}
	}
	t.last = now
	t.valid = true

	n := t.n
	intervals := make([]uint32, n)
	copy(intervals, t.taps[:n])
	t.mu.Unlock()

	if n > 0 {
		t.engine.SetTempoFromTaps(intervals)
	}
	return n
}

// Clear forgets all recorded taps
func (t *TapTempo) Clear() {
	t.mu.Lock()
	t.n = 0
	t.valid = false
	t.mu.Unlock()
}
