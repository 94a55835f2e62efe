package gate

import (
	"sync"
	"testing"
)

func TestClockedForOneTick(t *testing.T) {
	g := New()
	g.Trigger(0)

	if g.Clocked(0) {
		t.Fatal("edge visible before scan")
	}
	g.Scan()
	if !g.Clocked(0) {
		t.Fatal("edge not visible after scan")
	}
	if g.Clocked(1) {
		t.Fatal("edge leaked to another input")
	}
	g.Scan()
	if g.Clocked(0) {
		t.Fatal("edge visible for more than one tick")
	}
}

func TestSetLevelLatchesRisingEdge(t *testing.T) {
	g := New()

	g.SetLevel(2, true)
	g.SetLevel(2, true) // still high, no new edge
	g.Scan()
	if !g.Clocked(2) || !g.Level(2) {
		t.Fatal("rising edge not latched")
	}

	g.Scan()
	if g.Clocked(2) {
		t.Fatal("held level produced a second edge")
	}
	if !g.Level(2) {
		t.Fatal("level lost")
	}

	g.SetLevel(2, false)
	g.Scan()
	if g.Clocked(2) || g.Level(2) {
		t.Fatal("falling edge treated as clock")
	}
}

func TestShortPulseBetweenScans(t *testing.T) {
	g := New()
	g.SetLevel(3, true)
	g.SetLevel(3, false)
	g.Scan()
	if !g.Clocked(3) {
		t.Fatal("pulse shorter than a tick was lost")
	}
	if g.Level(3) {
		t.Fatal("level should be low")
	}
}

func TestOutOfRange(t *testing.T) {
	g := New()
	g.Trigger(-1)
	g.Trigger(NumInputs)
	g.SetLevel(9, true)
	g.Scan()
	if g.Mask() != 0 {
		t.Fatalf("mask = %b", g.Mask())
	}
	if g.Clocked(9) || g.Level(-2) {
		t.Fatal("out of range input reported state")
	}
}

func TestConcurrentTriggers(t *testing.T) {
	g := New()
	var wg sync.WaitGroup
	for i := 0; i < NumInputs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g.Trigger(i)
		}(i)
	}
	wg.Wait()
	g.Scan()
	if g.Mask() != 0xF {
		t.Fatalf("mask = %b, want 1111", g.Mask())
	}
}
